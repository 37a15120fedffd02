package models

import (
	"time"

	"github.com/amirphl/Kusanagi/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Chat session statuses. A closed session is never reopened; resuming a
// chat always creates a new session on the same ticket.
const (
	ChatSessionStatusActive = "active"
	ChatSessionStatusClosed = "closed"
)

// ChatSession represents a conversation thread bound to exactly one ticket.
// AdminParticipantIDs accumulates the admins who transferred the session;
// membership grants them standing access after they hand the chat off.
// All reads and writes of the set go through the accessor methods below.
type ChatSession struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	TicketID uint      `gorm:"not null;index" json:"ticket_id"`
	UserID   uint      `gorm:"not null;index" json:"user_id"`

	ICTStaffID *uint  `gorm:"index" json:"ict_staff_id,omitempty"`
	Status     string `gorm:"type:chat_session_status_enum;not null;default:'active';index" json:"status"`

	TransferredTo *uint      `json:"transferred_to,omitempty"`
	TransferredBy *uint      `json:"transferred_by,omitempty"`
	TransferredAt *time.Time `json:"transferred_at,omitempty"`

	AdminParticipantIDs pq.Int64Array `gorm:"type:bigint[];not null;default:'{}'" json:"admin_participant_ids"`

	StartedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Ticket   *Ticket `gorm:"foreignKey:TicketID;references:ID;constraint:OnDelete:CASCADE" json:"ticket,omitempty"`
	User     *User   `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	ICTStaff *User   `gorm:"foreignKey:ICTStaffID;references:ID;constraint:OnDelete:SET NULL" json:"ict_staff,omitempty"`
}

func (ChatSession) TableName() string { return "chat_sessions" }

// BeforeCreate ensures UUID, status, and timestamps are set
func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	if s.Status == "" {
		s.Status = ChatSessionStatusActive
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = utils.UTCNow()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = utils.UTCNow()
	}
	return nil
}

func (s *ChatSession) IsActive() bool {
	return s.Status == ChatSessionStatusActive
}

// HasAdminParticipant reports whether the given admin already belongs to
// the participant set.
func (s *ChatSession) HasAdminParticipant(adminID uint) bool {
	for _, id := range s.AdminParticipantIDs {
		if uint(id) == adminID {
			return true
		}
	}
	return false
}

// AddAdminParticipant appends the admin to the participant set if absent.
// Returns true when the set changed.
func (s *ChatSession) AddAdminParticipant(adminID uint) bool {
	if s.HasAdminParticipant(adminID) {
		return false
	}
	s.AdminParticipantIDs = append(s.AdminParticipantIDs, int64(adminID))
	return true
}

// ChatSessionFilter represents filter criteria for chat session queries
type ChatSessionFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	TicketID      *uint      `json:"ticket_id,omitempty"`
	UserID        *uint      `json:"user_id,omitempty"`
	ICTStaffID    *uint      `json:"ict_staff_id,omitempty"`
	Status        *string    `json:"status,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
