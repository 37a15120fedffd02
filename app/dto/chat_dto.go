package dto

// StartChatRequest opens a chat session on a ticket. ICTStaffID is
// optional; without it the session starts active and unassigned.
type StartChatRequest struct {
	TicketID   uint  `json:"ticket_id" validate:"required" example:"42"`
	ICTStaffID *uint `json:"ict_staff_id,omitempty" example:"7"`
}

// AssignStaffRequest attaches or reassigns staff on an existing session (admin only)
type AssignStaffRequest struct {
	ICTStaffID uint `json:"ict_staff_id" validate:"required" example:"7"`
}

// TransferChatRequest hands an active session to a different staff member (admin only)
type TransferChatRequest struct {
	ICTStaffID uint `json:"ict_staff_id" validate:"required" example:"9"`
}

// ChatSessionDTO is the API representation of a chat session
type ChatSessionDTO struct {
	ID                uint            `json:"id" example:"5"`
	UUID              string          `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	TicketID          uint            `json:"ticket_id" example:"42"`
	UserID            uint            `json:"user_id" example:"123"`
	ICTStaffID        *uint           `json:"ict_staff_id,omitempty" example:"7"`
	Status            string          `json:"status" example:"active"`
	TransferredTo     *uint           `json:"transferred_to,omitempty" example:"9"`
	TransferredBy     *uint           `json:"transferred_by,omitempty" example:"1"`
	TransferredAt     string          `json:"transferred_at,omitempty" example:"2024-01-15T11:00:00Z"`
	AdminParticipants []uint          `json:"admin_participants"`
	User              *UserSummaryDTO `json:"user,omitempty"`
	ICTStaff          *UserSummaryDTO `json:"ict_staff,omitempty"`
	StartedAt         string          `json:"started_at" example:"2024-01-15T10:45:00Z"`
	EndedAt           string          `json:"ended_at,omitempty" example:"2024-01-15T12:00:00Z"`
}
