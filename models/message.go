package models

import (
	"time"

	"github.com/amirphl/Kusanagi/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message body bounds, applied after trimming whitespace.
const (
	MinMessageLen = 1
	MaxMessageLen = 1000
)

// Message is an append-only chat entry. Exactly one of ChatSessionID or
// TicketID is set: session-scoped messages are the normal path, ticket-scoped
// messages are the legacy per-ticket channel. Messages are never edited,
// only created, deleted, or marked read.
type Message struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	ChatSessionID *uint     `gorm:"index" json:"chat_session_id,omitempty"`
	TicketID      *uint     `gorm:"index" json:"ticket_id,omitempty"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`

	Body   string `gorm:"type:text;not null" json:"message"`
	IsRead *bool  `gorm:"default:false;index" json:"is_read"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	ChatSession *ChatSession `gorm:"foreignKey:ChatSessionID;references:ID;constraint:OnDelete:CASCADE" json:"chat_session,omitempty"`
	Ticket      *Ticket      `gorm:"foreignKey:TicketID;references:ID;constraint:OnDelete:CASCADE" json:"ticket,omitempty"`
	User        *User        `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (Message) TableName() string { return "messages" }

// BeforeCreate ensures UUID and timestamps are set
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.IsRead == nil {
		m.IsRead = utils.ToPtr(false)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// IsAuthoredBy reports whether the message was written by the given user.
func (m *Message) IsAuthoredBy(userID uint) bool {
	return m.UserID == userID
}

// MessageFilter represents filter criteria for message queries
type MessageFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	ChatSessionID *uint      `json:"chat_session_id,omitempty"`
	TicketID      *uint      `json:"ticket_id,omitempty"`
	UserID        *uint      `json:"user_id,omitempty"`
	IsRead        *bool      `json:"is_read,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
