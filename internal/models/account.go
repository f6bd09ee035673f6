package models

import "github.com/shopspring/decimal"

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeBank       AccountType = "bank"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeLoan       AccountType = "loan"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeOther      AccountType = "other"
)

// Account is a financial account aggregated through a provider account.
type Account struct {
	ID                int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ProviderAccountID int64           `gorm:"not null;index" json:"provider_account_id"`
	AccountName       string          `gorm:"not null" json:"account_name"`
	NickName          string          `json:"nick_name"`
	AccountNumber     string          `json:"account_number"`
	AccountStatus     string          `json:"account_status"`
	AccountType       AccountType     `json:"account_type"`
	Container         string          `json:"container"`
	CurrentBalance    decimal.Decimal `gorm:"type:text" json:"current_balance"`
	Currency          string          `json:"currency"`
	Hidden            bool            `json:"hidden"`
	Included          bool            `json:"included"`
	Favourite         bool            `json:"favourite"`
	LastRefreshed     string          `json:"last_refreshed"`
}

func (Account) TableName() string { return "accounts" }

func (a Account) PrimaryKey() int64 { return a.ID }

// AccountUpdate holds the user-editable account fields.
type AccountUpdate struct {
	NickName  string `json:"nick_name,omitempty" validate:"omitempty,max=100"`
	Hidden    bool   `json:"hidden"`
	Included  bool   `json:"included"`
	Favourite bool   `json:"favourite"`
}
