package dto

// SendMessageRequest carries a chat or ticket message body. Bounds are
// re-checked after trimming in the flow layer.
type SendMessageRequest struct {
	Message string `json:"message" validate:"required,min=1,max=1000" example:"Have you tried turning it off and on again?"`
}

// MessageDTO is the API representation of a message
type MessageDTO struct {
	ID            uint            `json:"id" example:"101"`
	UUID          string          `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	ChatSessionID *uint           `json:"chat_session_id,omitempty" example:"5"`
	TicketID      *uint           `json:"ticket_id,omitempty" example:"42"`
	UserID        uint            `json:"user_id" example:"123"`
	Body          string          `json:"message" example:"Have you tried turning it off and on again?"`
	IsRead        *bool           `json:"is_read" example:"false"`
	User          *UserSummaryDTO `json:"user,omitempty"`
	CreatedAt     string          `json:"created_at" example:"2024-01-15T10:46:00Z"`
}

// UnreadCountDTO is the per-ticket unread counter
type UnreadCountDTO struct {
	TicketID uint  `json:"ticket_id" example:"42"`
	Count    int64 `json:"count" example:"3"`
}

// TotalUnreadDTO aggregates unread counts across all tickets visible to the caller
type TotalUnreadDTO struct {
	Total int64 `json:"total" example:"7"`
}
