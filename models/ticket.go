package models

import (
	"time"

	"github.com/amirphl/Kusanagi/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ticket statuses. A ticket never moves backward through the lifecycle.
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusCompleted  = "completed"
	TicketStatusEscalated  = "escalated"
	TicketStatusClosed     = "closed"
)

// ticketTransitions is the legal status-transition table. Absent entries
// are rejected; self transitions are allowed so partial updates that echo
// the current status back do not fail.
var ticketTransitions = map[string][]string{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusCompleted, TicketStatusEscalated, TicketStatusClosed},
	TicketStatusInProgress: {TicketStatusCompleted, TicketStatusEscalated, TicketStatusClosed},
	TicketStatusEscalated:  {TicketStatusInProgress, TicketStatusCompleted, TicketStatusClosed},
	TicketStatusCompleted:  {TicketStatusClosed},
	TicketStatusClosed:     {},
}

// Ticket represents a support request submitted by a staff member.
// Reporter name and department are snapshotted at creation time so the
// ticket stays readable even after the reporter's profile changes.
type Ticket struct {
	ID     uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	UserID uint      `gorm:"not null;index" json:"user_id"`

	FirstName  string  `gorm:"size:100;not null" json:"first_name"`
	LastName   string  `gorm:"size:100;not null" json:"last_name"`
	Department *string `gorm:"size:100" json:"department,omitempty"`

	Phone       string `gorm:"size:20;not null" json:"phone"`
	Room        string `gorm:"size:50;not null" json:"room"`
	Description string `gorm:"type:text;not null" json:"description"`

	Status     string `gorm:"type:ticket_status_enum;not null;default:'open';index" json:"status"`
	AssignedTo *uint  `gorm:"index" json:"assigned_to,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	User     *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Assignee *User `gorm:"foreignKey:AssignedTo;references:ID;constraint:OnDelete:SET NULL" json:"assignee,omitempty"`
}

func (Ticket) TableName() string { return "tickets" }

// BeforeCreate ensures UUID and timestamps are set
func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.Status == "" {
		t.Status = TicketStatusOpen
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// IsValidTicketStatus reports whether status is part of the ticket status vocabulary.
func IsValidTicketStatus(status string) bool {
	_, ok := ticketTransitions[status]
	return ok
}

// CanTransitionTicket reports whether moving a ticket from one status to
// another is legal. Echoing the current status back is always allowed.
func CanTransitionTicket(from, to string) bool {
	if from == to {
		return IsValidTicketStatus(from)
	}
	for _, next := range ticketTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TicketFilter represents filter criteria for ticket queries
type TicketFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	UserID        *uint      `json:"user_id,omitempty"`
	Status        *string    `json:"status,omitempty"`
	AssignedTo    *uint      `json:"assigned_to,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
