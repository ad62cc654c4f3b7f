package model

import "time"

// Delivery channels for outbound messages.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// Outbound message states.  QUEUED rows are waiting for the consumer; the
// admin view polls by status and can resend FAILED or stuck rows.
const (
	MessageQueued = "QUEUED"
	MessageSent   = "SENT"
	MessageFailed = "FAILED"
)

// Notification is what business code asks to have delivered.
type Notification struct {
	Channel        string
	Recipient      string
	Subject        string
	Body           string
	AttachmentPath string
	TicketNumber   string
}

// OutboundMessage is the persisted queue entry for one notification.
type OutboundMessage struct {
	ID             string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Channel        string     `gorm:"type:varchar(16);not null" json:"channel"`
	Recipient      string     `gorm:"type:varchar(255);not null" json:"recipient"`
	Subject        string     `gorm:"type:varchar(255)" json:"subject,omitempty"`
	Body           string     `gorm:"type:text;not null" json:"body"`
	AttachmentPath string     `gorm:"type:varchar(512)" json:"attachment_path,omitempty"`
	TicketNumber   string     `gorm:"type:varchar(64);index" json:"ticket_number,omitempty"`
	Status         string     `gorm:"type:varchar(16);not null;index" json:"status"`
	Attempts       int        `gorm:"not null;default:0" json:"attempts"`
	LastError      string     `gorm:"type:text" json:"last_error,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName pins the table name used by gorm.
func (OutboundMessage) TableName() string { return "outbound_messages" }
