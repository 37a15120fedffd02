package dto

// CreateTicketRequest represents the payload to open a new ticket
type CreateTicketRequest struct {
	Phone       string `json:"phone" validate:"required,max=20" example:"555-1234"`
	Room        string `json:"room" validate:"required,max=50" example:"204"`
	Description string `json:"description" validate:"required,min=1" example:"printer jam"`
}

// UpdateTicketRequest represents a partial ticket update. Action, when
// present, short-circuits the status field: complete and escalate set the
// corresponding status and any status value in the same payload is ignored.
type UpdateTicketRequest struct {
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=open in_progress completed escalated closed"`
	Description *string `json:"description,omitempty" validate:"omitempty,min=1"`
	AssignedTo  *uint   `json:"assigned_to,omitempty"`
	Action      *string `json:"action,omitempty" validate:"omitempty,oneof=complete escalate"`
}

// TicketDTO is the API representation of a ticket
type TicketDTO struct {
	ID          uint            `json:"id" example:"42"`
	UUID        string          `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	UserID      uint            `json:"user_id" example:"123"`
	FirstName   string          `json:"first_name" example:"John"`
	LastName    string          `json:"last_name" example:"Doe"`
	Department  *string         `json:"department,omitempty" example:"Finance"`
	Phone       string          `json:"phone" example:"555-1234"`
	Room        string          `json:"room" example:"204"`
	Description string          `json:"description" example:"printer jam"`
	Status      string          `json:"status" example:"open"`
	AssignedTo  *uint           `json:"assigned_to,omitempty" example:"7"`
	User        *UserSummaryDTO `json:"user,omitempty"`
	Assignee    *UserSummaryDTO `json:"assignee,omitempty"`
	CreatedAt   string          `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt   string          `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}
