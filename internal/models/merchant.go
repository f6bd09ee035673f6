package models

// Merchant is the counterparty of a transaction.
type Merchant struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	MerchantType string `json:"merchant_type"`
	SmallLogoURL string `json:"small_logo_url"`
}

func (Merchant) TableName() string { return "merchants" }

func (m Merchant) PrimaryKey() int64 { return m.ID }
