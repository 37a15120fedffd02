// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// ToUserDTO converts a user model to its API representation
func ToUserDTO(user models.User) dto.UserDTO {
	return dto.UserDTO{
		ID:          user.ID,
		UUID:        user.UUID.String(),
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		Role:        user.Role,
		Department:  user.Department,
		Designation: user.Designation,
		Extension:   user.Extension,
		Phone:       user.Phone,
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}

// ToUserSummaryDTO converts a user model to the compact form embedded in
// ticket and session responses. Never carries sensitive fields.
func ToUserSummaryDTO(user *models.User) *dto.UserSummaryDTO {
	if user == nil {
		return nil
	}
	return &dto.UserSummaryDTO{
		ID:         user.ID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Email:      user.Email,
		Role:       user.Role,
		Department: user.Department,
	}
}

// ToTicketDTO converts a ticket model to its API representation
func ToTicketDTO(ticket models.Ticket) dto.TicketDTO {
	out := dto.TicketDTO{
		ID:          ticket.ID,
		UUID:        ticket.UUID.String(),
		UserID:      ticket.UserID,
		FirstName:   ticket.FirstName,
		LastName:    ticket.LastName,
		Department:  ticket.Department,
		Phone:       ticket.Phone,
		Room:        ticket.Room,
		Description: ticket.Description,
		Status:      ticket.Status,
		AssignedTo:  ticket.AssignedTo,
		CreatedAt:   ticket.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   ticket.UpdatedAt.Format(time.RFC3339),
	}
	out.User = ToUserSummaryDTO(ticket.User)
	out.Assignee = ToUserSummaryDTO(ticket.Assignee)
	return out
}

// ToChatSessionDTO converts a chat session model to its API representation
func ToChatSessionDTO(session models.ChatSession) dto.ChatSessionDTO {
	participants := make([]uint, 0, len(session.AdminParticipantIDs))
	for _, id := range session.AdminParticipantIDs {
		participants = append(participants, uint(id))
	}

	out := dto.ChatSessionDTO{
		ID:                session.ID,
		UUID:              session.UUID.String(),
		TicketID:          session.TicketID,
		UserID:            session.UserID,
		ICTStaffID:        session.ICTStaffID,
		Status:            session.Status,
		TransferredTo:     session.TransferredTo,
		TransferredBy:     session.TransferredBy,
		AdminParticipants: participants,
		StartedAt:         session.StartedAt.Format(time.RFC3339),
	}
	if session.TransferredAt != nil {
		out.TransferredAt = session.TransferredAt.Format(time.RFC3339)
	}
	if session.EndedAt != nil {
		out.EndedAt = session.EndedAt.Format(time.RFC3339)
	}
	out.User = ToUserSummaryDTO(session.User)
	out.ICTStaff = ToUserSummaryDTO(session.ICTStaff)
	return out
}

// ToMessageDTO converts a message model to its API representation
func ToMessageDTO(message models.Message) dto.MessageDTO {
	out := dto.MessageDTO{
		ID:            message.ID,
		UUID:          message.UUID.String(),
		ChatSessionID: message.ChatSessionID,
		TicketID:      message.TicketID,
		UserID:        message.UserID,
		Body:          message.Body,
		IsRead:        message.IsRead,
		CreatedAt:     message.CreatedAt.Format(time.RFC3339),
	}
	out.User = ToUserSummaryDTO(message.User)
	return out
}
