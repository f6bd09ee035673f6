package models

// ProviderStatus is the server-side availability of a provider.
type ProviderStatus string

const (
	ProviderStatusSupported   ProviderStatus = "supported"
	ProviderStatusBeta        ProviderStatus = "beta"
	ProviderStatusOutage      ProviderStatus = "outage"
	ProviderStatusComingSoon  ProviderStatus = "coming_soon"
	ProviderStatusDisabled    ProviderStatus = "disabled"
	ProviderStatusUnsupported ProviderStatus = "unsupported"
)

// ProtectedProviderStatuses are kept in the cache even when a refresh omits them,
// since provider accounts may still point at them.
var ProtectedProviderStatuses = []string{string(ProviderStatusDisabled), string(ProviderStatusUnsupported)}

// Provider is a financial institution that accounts can be aggregated from.
type Provider struct {
	ID             int64          `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name           string         `gorm:"not null;index" json:"name"`
	SmallLogoURL   string         `json:"small_logo_url"`
	Status         ProviderStatus `gorm:"index" json:"status"`
	Popular        bool           `json:"popular"`
	ContainerNames []string       `gorm:"serializer:json" json:"container_names"`
	LoginURL       string         `json:"login_url"`
	AuthType       string         `json:"auth_type"`
}

func (Provider) TableName() string { return "providers" }

func (p Provider) PrimaryKey() int64 { return p.ID }
