package businessflow

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// MessageFlow handles chat and ticket messaging
type MessageFlow interface {
	SendSessionMessage(ctx context.Context, actor Actor, sessionID uint, req *dto.SendMessageRequest, metadata *ClientMetadata) (*dto.MessageDTO, error)
	ListSessionMessages(ctx context.Context, actor Actor, sessionID uint) ([]dto.MessageDTO, error)
	SendTicketMessage(ctx context.Context, actor Actor, ticketID uint, req *dto.SendMessageRequest, metadata *ClientMetadata) (*dto.MessageDTO, error)
	ListTicketMessages(ctx context.Context, actor Actor, ticketID uint) ([]dto.MessageDTO, error)
	MarkMessageRead(ctx context.Context, actor Actor, messageID uint) error
	UnreadCount(ctx context.Context, actor Actor, ticketID uint) (*dto.UnreadCountDTO, error)
	TotalUnread(ctx context.Context, actor Actor) (*dto.TotalUnreadDTO, error)
	DeleteMessage(ctx context.Context, actor Actor, messageID uint, metadata *ClientMetadata) error
}

// MessageFlowImpl implements the messaging business flow
type MessageFlowImpl struct {
	messageRepo repository.MessageRepository
	sessionRepo repository.ChatSessionRepository
	ticketRepo  repository.TicketRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewMessageFlow creates a new message flow instance
func NewMessageFlow(
	messageRepo repository.MessageRepository,
	sessionRepo repository.ChatSessionRepository,
	ticketRepo repository.TicketRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) MessageFlow {
	return &MessageFlowImpl{
		messageRepo: messageRepo,
		sessionRepo: sessionRepo,
		ticketRepo:  ticketRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// SendSessionMessage appends a message to an active chat session
func (m *MessageFlowImpl) SendSessionMessage(ctx context.Context, actor Actor, sessionID uint, req *dto.SendMessageRequest, metadata *ClientMetadata) (*dto.MessageDTO, error) {
	session, err := m.sessionRepo.ByID(ctx, sessionID)
	if err != nil {
		return nil, NewBusinessError("CHAT_FETCH_FAILED", "Failed to fetch chat session", err)
	}
	if session == nil {
		return nil, NewBusinessError("CHAT_SESSION_NOT_FOUND", "Chat session not found", ErrChatSessionNotFound)
	}
	if !CanAccessChatSession(actor, session, ActionMessage) {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}
	if !session.IsActive() {
		return nil, NewBusinessError("CHAT_SESSION_NOT_ACTIVE", "Chat session is closed", ErrChatSessionNotActive)
	}

	body, err := normalizeMessageBody(req.Message)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		ChatSessionID: &session.ID,
		UserID:        actor.ID,
		Body:          body,
		IsRead:        utils.ToPtr(false),
	}

	err = repository.WithTransaction(ctx, m.db, func(txCtx context.Context) error {
		return m.messageRepo.Save(txCtx, message)
	})
	if err != nil {
		return nil, NewBusinessError("MESSAGE_SEND_FAILED", "Failed to send message", err)
	}

	out := ToMessageDTO(*message)
	return &out, nil
}

// ListSessionMessages returns a session's messages oldest first. Listing
// marks messages from other participants as read, except for admins, whose
// dashboard reads must not consume the recipients' unread state.
func (m *MessageFlowImpl) ListSessionMessages(ctx context.Context, actor Actor, sessionID uint) ([]dto.MessageDTO, error) {
	session, err := m.sessionRepo.ByID(ctx, sessionID)
	if err != nil {
		return nil, NewBusinessError("CHAT_FETCH_FAILED", "Failed to fetch chat session", err)
	}
	if session == nil {
		return nil, NewBusinessError("CHAT_SESSION_NOT_FOUND", "Chat session not found", ErrChatSessionNotFound)
	}
	if !CanAccessChatSession(actor, session, ActionView) {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	if !actor.IsAdmin() {
		if err := m.messageRepo.MarkOthersReadBySession(ctx, sessionID, actor.ID); err != nil {
			return nil, NewBusinessError("MESSAGE_LIST_FAILED", "Failed to list messages", err)
		}
	}

	messages, err := m.messageRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_LIST_FAILED", "Failed to list messages", err)
	}
	return toMessageDTOs(messages), nil
}

// SendTicketMessage appends a message directly to a ticket. This is the
// channel used before a chat session exists.
func (m *MessageFlowImpl) SendTicketMessage(ctx context.Context, actor Actor, ticketID uint, req *dto.SendMessageRequest, metadata *ClientMetadata) (*dto.MessageDTO, error) {
	ticket, err := m.ticketRepo.ByID(ctx, ticketID)
	if err != nil {
		return nil, NewBusinessError("TICKET_FETCH_FAILED", "Failed to fetch ticket", err)
	}
	if ticket == nil {
		return nil, NewBusinessError("TICKET_NOT_FOUND", "Ticket not found", ErrTicketNotFound)
	}
	if !CanAccessTicketMessages(actor, ticket) {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	body, err := normalizeMessageBody(req.Message)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		TicketID: &ticket.ID,
		UserID:   actor.ID,
		Body:     body,
		IsRead:   utils.ToPtr(false),
	}

	err = repository.WithTransaction(ctx, m.db, func(txCtx context.Context) error {
		return m.messageRepo.Save(txCtx, message)
	})
	if err != nil {
		return nil, NewBusinessError("MESSAGE_SEND_FAILED", "Failed to send message", err)
	}

	out := ToMessageDTO(*message)
	return &out, nil
}

// ListTicketMessages returns a ticket's direct messages oldest first and
// marks the other side's messages as read.
func (m *MessageFlowImpl) ListTicketMessages(ctx context.Context, actor Actor, ticketID uint) ([]dto.MessageDTO, error) {
	ticket, err := m.ticketRepo.ByID(ctx, ticketID)
	if err != nil {
		return nil, NewBusinessError("TICKET_FETCH_FAILED", "Failed to fetch ticket", err)
	}
	if ticket == nil {
		return nil, NewBusinessError("TICKET_NOT_FOUND", "Ticket not found", ErrTicketNotFound)
	}
	if !CanAccessTicketMessages(actor, ticket) {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	if err := m.messageRepo.MarkOthersReadByTicket(ctx, ticketID, actor.ID); err != nil {
		return nil, NewBusinessError("MESSAGE_LIST_FAILED", "Failed to list messages", err)
	}

	messages, err := m.messageRepo.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_LIST_FAILED", "Failed to list messages", err)
	}
	return toMessageDTOs(messages), nil
}

// MarkMessageRead marks a single message as read. Authors cannot mark
// their own messages; the read flag never goes back to unread.
func (m *MessageFlowImpl) MarkMessageRead(ctx context.Context, actor Actor, messageID uint) error {
	message, err := m.messageRepo.ByID(ctx, messageID)
	if err != nil {
		return NewBusinessError("MESSAGE_FETCH_FAILED", "Failed to fetch message", err)
	}
	if message == nil {
		return NewBusinessError("MESSAGE_NOT_FOUND", "Message not found", ErrMessageNotFound)
	}
	if message.IsAuthoredBy(actor.ID) {
		return NewBusinessError("CANNOT_MARK_OWN_READ", "Cannot mark your own message as read", ErrCannotMarkOwnRead)
	}

	if err := m.canAccessMessageChannel(ctx, actor, message); err != nil {
		return err
	}

	if utils.IsTrue(message.IsRead) {
		return nil
	}
	if err := m.messageRepo.MarkRead(ctx, messageID); err != nil {
		return NewBusinessError("MESSAGE_UPDATE_FAILED", "Failed to mark message as read", err)
	}
	return nil
}

// UnreadCount returns the number of unread messages on a ticket authored
// by someone other than the caller, covering both channels.
func (m *MessageFlowImpl) UnreadCount(ctx context.Context, actor Actor, ticketID uint) (*dto.UnreadCountDTO, error) {
	ticket, err := m.ticketRepo.ByID(ctx, ticketID)
	if err != nil {
		return nil, NewBusinessError("TICKET_FETCH_FAILED", "Failed to fetch ticket", err)
	}
	if ticket == nil {
		return nil, NewBusinessError("TICKET_NOT_FOUND", "Ticket not found", ErrTicketNotFound)
	}
	if !CanAccessTicketMessages(actor, ticket) {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	count, err := m.messageRepo.CountUnreadForTicket(ctx, ticketID, actor.ID)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_COUNT_FAILED", "Failed to count unread messages", err)
	}

	return &dto.UnreadCountDTO{TicketID: ticketID, Count: count}, nil
}

// TotalUnread aggregates unread counts across the tickets visible to the
// caller. Regular users see their own tickets, ICT staff their assigned
// tickets, admins everything.
func (m *MessageFlowImpl) TotalUnread(ctx context.Context, actor Actor) (*dto.TotalUnreadDTO, error) {
	filter := models.TicketFilter{}
	switch {
	case actor.IsAdmin():
		// no filter, all tickets
	case actor.IsICTStaff():
		filter.AssignedTo = &actor.ID
	default:
		filter.UserID = &actor.ID
	}

	tickets, err := m.ticketRepo.ByFilter(ctx, filter, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_COUNT_FAILED", "Failed to count unread messages", err)
	}

	ticketIDs := make([]uint, 0, len(tickets))
	for _, ticket := range tickets {
		ticketIDs = append(ticketIDs, ticket.ID)
	}

	total, err := m.messageRepo.CountUnreadForTickets(ctx, ticketIDs, actor.ID)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_COUNT_FAILED", "Failed to count unread messages", err)
	}

	return &dto.TotalUnreadDTO{Total: total}, nil
}

// DeleteMessage removes a message. Author or admin.
func (m *MessageFlowImpl) DeleteMessage(ctx context.Context, actor Actor, messageID uint, metadata *ClientMetadata) error {
	message, err := m.messageRepo.ByID(ctx, messageID)
	if err != nil {
		return NewBusinessError("MESSAGE_FETCH_FAILED", "Failed to fetch message", err)
	}
	if message == nil {
		return NewBusinessError("MESSAGE_NOT_FOUND", "Message not found", ErrMessageNotFound)
	}
	if !CanDeleteMessage(actor, message) {
		return NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	err = repository.WithTransaction(ctx, m.db, func(txCtx context.Context) error {
		return m.messageRepo.Delete(txCtx, messageID)
	})
	if err != nil {
		return NewBusinessError("MESSAGE_DELETE_FAILED", "Failed to delete message", err)
	}

	_ = m.createAuditLog(ctx, actor, models.AuditActionMessageDeleted, fmt.Sprintf("message %d deleted", messageID), true, nil, metadata)
	return nil
}

// canAccessMessageChannel checks the actor against whichever channel the
// message lives on.
func (m *MessageFlowImpl) canAccessMessageChannel(ctx context.Context, actor Actor, message *models.Message) error {
	if message.ChatSessionID != nil {
		session, err := m.sessionRepo.ByID(ctx, *message.ChatSessionID)
		if err != nil {
			return NewBusinessError("CHAT_FETCH_FAILED", "Failed to fetch chat session", err)
		}
		if session == nil || !CanAccessChatSession(actor, session, ActionView) {
			return NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
		}
		return nil
	}

	if message.TicketID != nil {
		ticket, err := m.ticketRepo.ByID(ctx, *message.TicketID)
		if err != nil {
			return NewBusinessError("TICKET_FETCH_FAILED", "Failed to fetch ticket", err)
		}
		if ticket == nil || !CanAccessTicketMessages(actor, ticket) {
			return NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
		}
		return nil
	}

	return NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
}

// normalizeMessageBody trims whitespace and re-checks length bounds.
// Bounds are in characters, not bytes, matching the DTO validation.
func normalizeMessageBody(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(body); n < models.MinMessageLen || n > models.MaxMessageLen {
		return "", NewBusinessError("MESSAGE_BODY_INVALID", "Message must be between 1 and 1000 characters", ErrMessageBodyInvalid)
	}
	return body, nil
}

func toMessageDTOs(messages []*models.Message) []dto.MessageDTO {
	out := make([]dto.MessageDTO, 0, len(messages))
	for _, message := range messages {
		out = append(out, ToMessageDTO(*message))
	}
	return out
}

func (m *MessageFlowImpl) createAuditLog(ctx context.Context, actor Actor, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	entry := &models.AuditLog{
		UserID:       &actor.ID,
		Action:       action,
		Description:  &description,
		Success:      &success,
		ErrorMessage: errorMsg,
		CreatedAt:    utils.UTCNow(),
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			entry.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			entry.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			entry.RequestID = &metadata.RequestID
		}
	}
	return m.auditRepo.Save(ctx, entry)
}
