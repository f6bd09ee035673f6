package models

// User is the logged in user's profile. The cache holds at most one row.
type User struct {
	ID              int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Email           string `gorm:"not null" json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Status          string `json:"status"`
	PrimaryCurrency string `json:"primary_currency"`
	EmailVerified   bool   `json:"email_verified"`
	ValidPassword   bool   `json:"valid_password"`
}

func (User) TableName() string { return "users" }

func (u User) PrimaryKey() int64 { return u.ID }

// UserUpdate holds the editable profile fields.
type UserUpdate struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Email           string `json:"email" validate:"required,email"`
	PrimaryCurrency string `json:"primary_currency,omitempty" validate:"omitempty,iso4217"`
}

// Registration is the payload for creating a new user.
type Registration struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Currency  string `json:"currency,omitempty" validate:"omitempty,iso4217"`
}
