package models

import "github.com/shopspring/decimal"

// TransactionBaseType is the direction of money movement.
type TransactionBaseType string

const (
	TransactionBaseTypeCredit TransactionBaseType = "credit"
	TransactionBaseTypeDebit  TransactionBaseType = "debit"
	TransactionBaseTypeOther  TransactionBaseType = "other"
)

// TransactionDateFormat is the layout of TransactionDate and PostDate.
const TransactionDateFormat = "2006-01-02"

// Transaction is a single movement on an account. MerchantID and CategoryID are
// zero when the host reported none.
type Transaction struct {
	ID                  int64               `gorm:"primaryKey;autoIncrement:false" json:"id"`
	AccountID           int64               `gorm:"not null;index" json:"account_id"`
	MerchantID          int64               `gorm:"index" json:"merchant_id"`
	CategoryID          int64               `gorm:"index" json:"category_id"`
	BaseType            TransactionBaseType `json:"base_type"`
	Status              string              `json:"status"`
	Amount              decimal.Decimal     `gorm:"type:text" json:"amount"`
	Currency            string              `json:"currency"`
	OriginalDescription string              `json:"original_description"`
	UserDescription     string              `json:"user_description"`
	TransactionDate     string              `gorm:"not null;index" json:"transaction_date"`
	PostDate            string              `json:"post_date"`
	Included            bool                `json:"included"`
	BudgetCategory      string              `json:"budget_category"`
	Memo                string              `json:"memo"`
}

func (Transaction) TableName() string { return "transactions" }

func (t Transaction) PrimaryKey() int64 { return t.ID }

// TransactionUpdate holds the user-editable transaction fields.
type TransactionUpdate struct {
	CategoryID      int64  `json:"category_id" validate:"required,gt=0"`
	Included        bool   `json:"included"`
	Memo            string `json:"memo,omitempty" validate:"omitempty,max=500"`
	UserDescription string `json:"user_description,omitempty" validate:"omitempty,max=200"`
	BudgetCategory  string `json:"budget_category" validate:"omitempty,budget_category"`
}
