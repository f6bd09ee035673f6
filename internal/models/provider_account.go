package models

// RefreshStatus is the aggregation state of a provider account.
type RefreshStatus string

const (
	RefreshStatusSuccess     RefreshStatus = "success"
	RefreshStatusAdding      RefreshStatus = "adding"
	RefreshStatusUpdating    RefreshStatus = "updating"
	RefreshStatusNeedsAction RefreshStatus = "needs_action"
	RefreshStatusFailed      RefreshStatus = "failed"
)

// ProviderAccount is the user's login at a provider.
type ProviderAccount struct {
	ID                      int64         `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ProviderID              int64         `gorm:"not null;index" json:"provider_id"`
	Editable                bool          `json:"editable"`
	RefreshStatus           RefreshStatus `json:"refresh_status"`
	RefreshSubStatus        string        `json:"refresh_sub_status"`
	RefreshAdditionalStatus string        `json:"refresh_additional_status"`
	LastRefreshed           string        `json:"last_refreshed"`
	NextRefresh             string        `json:"next_refresh"`
}

func (ProviderAccount) TableName() string { return "provider_accounts" }

func (p ProviderAccount) PrimaryKey() int64 { return p.ID }

// LoginFormField is one credential field submitted when linking a provider.
type LoginFormField struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Value string `json:"value" validate:"required"`
}

// LoginForm is the credential payload for creating or updating a provider account.
type LoginForm struct {
	ID     string           `json:"id"`
	Fields []LoginFormField `json:"fields" validate:"required,min=1,dive"`
}
