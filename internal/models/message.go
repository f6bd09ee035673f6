package models

// Message is an in-app message addressed to the user.
type Message struct {
	ID           int64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Event        string   `json:"event"`
	UserEventID  int64    `json:"user_event_id"`
	Placement    int64    `json:"placement"`
	Persistent   bool     `json:"persistent"`
	Read         bool     `gorm:"index" json:"read"`
	Interacted   bool     `json:"interacted"`
	MessageTypes []string `gorm:"serializer:json" json:"message_types"`
	Title        string   `json:"title"`
	ContentType  string   `json:"content_type"`
	Content      string   `json:"content"`
	ActionTitle  string   `json:"action_title"`
	ActionLink   string   `json:"action_link"`
}

func (Message) TableName() string { return "messages" }

func (m Message) PrimaryKey() int64 { return m.ID }

// MessageUpdate marks a message read or interacted.
type MessageUpdate struct {
	Read       bool `json:"read"`
	Interacted bool `json:"interacted"`
}
