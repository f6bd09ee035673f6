package models

// BudgetCategory buckets transactions for budgeting.
type BudgetCategory string

const (
	BudgetCategoryIncome    BudgetCategory = "income"
	BudgetCategoryLiving    BudgetCategory = "living"
	BudgetCategoryLifestyle BudgetCategory = "lifestyle"
	BudgetCategorySavings   BudgetCategory = "savings"
	BudgetCategoryOneOff    BudgetCategory = "one_off"
)

// TransactionCategory classifies transactions.
type TransactionCategory struct {
	ID                    int64          `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name                  string         `gorm:"not null" json:"name"`
	CategoryType          string         `json:"category_type"`
	DefaultBudgetCategory BudgetCategory `json:"default_budget_category"`
	IconURL               string         `json:"icon_url"`
	UserDefined           bool           `json:"user_defined"`
}

func (TransactionCategory) TableName() string { return "transaction_categories" }

func (c TransactionCategory) PrimaryKey() int64 { return c.ID }
