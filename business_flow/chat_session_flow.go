package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// ChatSessionFlow handles the chat session lifecycle
type ChatSessionFlow interface {
	GetAvailableStaff(ctx context.Context, actor Actor) ([]dto.UserDTO, error)
	StartChat(ctx context.Context, actor Actor, req *dto.StartChatRequest, metadata *ClientMetadata) (*dto.ChatSessionDTO, error)
	GetActiveSession(ctx context.Context, actor Actor, ticketID uint) (*dto.ChatSessionDTO, error)
	AssignStaff(ctx context.Context, actor Actor, sessionID uint, req *dto.AssignStaffRequest, metadata *ClientMetadata) (*dto.ChatSessionDTO, error)
	TransferChat(ctx context.Context, actor Actor, sessionID uint, req *dto.TransferChatRequest, metadata *ClientMetadata) (*dto.ChatSessionDTO, error)
	EndSession(ctx context.Context, actor Actor, sessionID uint, metadata *ClientMetadata) (*dto.ChatSessionDTO, error)
	GetChatHistory(ctx context.Context, actor Actor, ticketID uint) ([]dto.ChatSessionDTO, error)
	ListActiveSessions(ctx context.Context, actor Actor) ([]dto.ChatSessionDTO, error)
	ListStaffSessions(ctx context.Context, actor Actor) ([]dto.ChatSessionDTO, error)
}

// ChatSessionFlowImpl implements the chat session business flow
type ChatSessionFlowImpl struct {
	sessionRepo repository.ChatSessionRepository
	ticketRepo  repository.TicketRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewChatSessionFlow creates a new chat session flow instance
func NewChatSessionFlow(
	sessionRepo repository.ChatSessionRepository,
	ticketRepo repository.TicketRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) ChatSessionFlow {
	return &ChatSessionFlowImpl{
		sessionRepo: sessionRepo,
		ticketRepo:  ticketRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// GetAvailableStaff returns ICT staff not currently tied up in an active session
func (c *ChatSessionFlowImpl) GetAvailableStaff(ctx context.Context, actor Actor) ([]dto.UserDTO, error) {
	staff, err := c.userRepo.ListByRole(ctx, models.RoleICTStaff)
	if err != nil {
		return nil, NewBusinessError("STAFF_LIST_FAILED", "Failed to list available staff", err)
	}

	busyIDs, err := c.sessionRepo.StaffIDsWithActiveSessions(ctx)
	if err != nil {
		return nil, NewBusinessError("STAFF_LIST_FAILED", "Failed to list available staff", err)
	}

	busy := make(map[uint]struct{}, len(busyIDs))
	for _, id := range busyIDs {
		busy[id] = struct{}{}
	}

	out := make([]dto.UserDTO, 0, len(staff))
	for _, member := range staff {
		if _, found := busy[member.ID]; found {
			continue
		}
		if !utils.IsTrue(member.IsActive) {
			continue
		}
		out = append(out, ToUserDTO(*member))
	}
	return out, nil
}

// StartChat opens a chat session on a ticket. The caller must own the
// ticket or be an admin. Requesting a specific staff member fails with a
// conflict when that staff member already holds an active session.
func (c *ChatSessionFlowImpl) StartChat(ctx context.Context, actor Actor, req *dto.StartChatRequest, metadata *ClientMetadata) (*dto.ChatSessionDTO, error) {
	ticket, err := c.ticketRepo.ByID(ctx, req.TicketID)
	if err != nil {
		return nil, NewBusinessError("TICKET_FETCH_FAILED", "Failed to fetch ticket", err)
	}
	if ticket == nil {
		return nil, NewBusinessError("TICKET_NOT_FOUND", "Ticket not found", ErrTicketNotFound)
	}
	if !CanAccessTicket(actor, ticket, ActionMessage) {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	existing, err := c.sessionRepo.ActiveByTicket(ctx, req.TicketID)
	if err != nil {
		return nil, NewBusinessError("CHAT_START_FAILED", "Failed to start chat session", err)
	}
	if existing != nil {
		out := ToChatSessionDTO(*existing)
		return &out, nil
	}

	if req.ICTStaffID != nil {
		staff, err := c.userRepo.ByID(ctx, *req.ICTStaffID)
		if err != nil {
			return nil, NewBusinessError("CHAT_START_FAILED", "Failed to start chat session", err)
		}
		if staff == nil || !staff.IsICTStaff() {
			return nil, NewBusinessError("STAFF_NOT_ICT_STAFF", "Requested staff member must be ICT staff", ErrStaffNotICTStaff)
		}
	}

	session := &models.ChatSession{
		TicketID:   req.TicketID,
		UserID:     ticket.UserID,
		ICTStaffID: req.ICTStaffID,
		Status:     models.ChatSessionStatusActive,
		StartedAt:  utils.UTCNow(),
	}

	err = repository.WithTransaction(ctx, c.db, func(txCtx context.Context) error {
		if req.ICTStaffID != nil {
			// Row lock serializes concurrent starts against the same staff member
			held, err := c.sessionRepo.ActiveByStaffLocked(txCtx, *req.ICTStaffID)
			if err != nil {
				return err
			}
			if held != nil {
				return ErrStaffUnavailable
			}
		}
		return c.sessionRepo.Save(txCtx, session)
	})
	if err != nil {
		if IsStaffUnavailable(err) {
			return nil, NewBusinessError("STAFF_UNAVAILABLE", "Staff member already has an active chat session", ErrStaffUnavailable)
		}
		return nil, NewBusinessError("CHAT_START_FAILED", "Failed to start chat session", err)
	}

	_ = c.createAuditLog(ctx, actor, models.AuditActionChatStarted, fmt.Sprintf("chat session %d started on ticket %d", session.ID, session.TicketID), true, nil, metadata)

	out := ToChatSessionDTO(*session)
	return &out, nil
}

// GetActiveSession returns the active session on a ticket, if any
func (c *ChatSessionFlowImpl) GetActiveSession(ctx context.Context, actor Actor, ticketID uint) (*dto.ChatSessionDTO, error) {
	ticket, err := c.ticketRepo.ByID(ctx, ticketID)
	if err != nil {
		return nil, NewBusinessError("TICKET_FETCH_FAILED", "Failed to fetch ticket", err)
	}
	if ticket == nil {
		return nil, NewBusinessError("TICKET_NOT_FOUND", "Ticket not found", ErrTicketNotFound)
	}
	if !CanAccessTicketMessages(actor, ticket) {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	session, err := c.sessionRepo.ActiveByTicket(ctx, ticketID)
	if err != nil {
		return nil, NewBusinessError("CHAT_FETCH_FAILED", "Failed to fetch chat session", err)
	}
	if session == nil {
		return nil, NewBusinessError("CHAT_SESSION_NOT_FOUND", "No active chat session on this ticket", ErrChatSessionNotFound)
	}

	out := ToChatSessionDTO(*session)
	return &out, nil
}

// AssignStaff attaches or reassigns staff on an active session. Admin only.
func (c *ChatSessionFlowImpl) AssignStaff(ctx context.Context, actor Actor, sessionID uint, req *dto.AssignStaffRequest, metadata *ClientMetadata) (*dto.ChatSessionDTO, error) {
	session, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !CanAccessChatSession(actor, session, ActionAssign) {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}
	if !session.IsActive() {
		return nil, NewBusinessError("CHAT_SESSION_NOT_ACTIVE", "Chat session is closed", ErrChatSessionNotActive)
	}

	if err := c.moveSessionToStaff(ctx, session, req.ICTStaffID, nil); err != nil {
		return nil, err
	}

	_ = c.createAuditLog(ctx, actor, models.AuditActionChatStaffAssigned, fmt.Sprintf("staff %d assigned to chat session %d", req.ICTStaffID, session.ID), true, nil, metadata)

	out := ToChatSessionDTO(*session)
	return &out, nil
}

// TransferChat hands an active session to a different staff member. Admin
// only. The transferring admin joins the session's participant set.
func (c *ChatSessionFlowImpl) TransferChat(ctx context.Context, actor Actor, sessionID uint, req *dto.TransferChatRequest, metadata *ClientMetadata) (*dto.ChatSessionDTO, error) {
	session, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !CanAccessChatSession(actor, session, ActionTransfer) {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}
	if !session.IsActive() {
		return nil, NewBusinessError("CHAT_SESSION_NOT_ACTIVE", "Chat session is closed", ErrChatSessionNotActive)
	}

	if err := c.moveSessionToStaff(ctx, session, req.ICTStaffID, &actor.ID); err != nil {
		return nil, err
	}

	_ = c.createAuditLog(ctx, actor, models.AuditActionChatTransferred, fmt.Sprintf("chat session %d transferred to staff %d", session.ID, req.ICTStaffID), true, nil, metadata)

	out := ToChatSessionDTO(*session)
	return &out, nil
}

// moveSessionToStaff validates the target staff member, takes the
// availability lock, and persists the reassignment. A non-nil transferredBy
// records a transfer and adds that admin to the participant set.
func (c *ChatSessionFlowImpl) moveSessionToStaff(ctx context.Context, session *models.ChatSession, staffID uint, transferredBy *uint) error {
	staff, err := c.userRepo.ByID(ctx, staffID)
	if err != nil {
		return NewBusinessError("CHAT_UPDATE_FAILED", "Failed to update chat session", err)
	}
	if staff == nil || !staff.IsICTStaff() {
		return NewBusinessError("STAFF_NOT_ICT_STAFF", "Target must be ICT staff", ErrStaffNotICTStaff)
	}
	if session.ICTStaffID != nil && *session.ICTStaffID == staffID {
		return NewBusinessError("STAFF_UNAVAILABLE", "Staff member already holds this session", ErrStaffUnavailable)
	}

	err = repository.WithTransaction(ctx, c.db, func(txCtx context.Context) error {
		held, err := c.sessionRepo.ActiveByStaffLocked(txCtx, staffID)
		if err != nil {
			return err
		}
		if held != nil && held.ID != session.ID {
			return ErrStaffUnavailable
		}

		if transferredBy != nil {
			now := utils.UTCNow()
			session.TransferredTo = &staffID
			session.TransferredBy = transferredBy
			session.TransferredAt = &now
			session.AddAdminParticipant(*transferredBy)
		}
		session.ICTStaffID = &staffID
		return c.sessionRepo.Update(txCtx, session)
	})
	if err != nil {
		if IsStaffUnavailable(err) {
			return NewBusinessError("STAFF_UNAVAILABLE", "Staff member already has an active chat session", ErrStaffUnavailable)
		}
		return NewBusinessError("CHAT_UPDATE_FAILED", "Failed to update chat session", err)
	}
	return nil
}

// EndSession closes an active session. Only participants may end it; the
// closed state is terminal.
func (c *ChatSessionFlowImpl) EndSession(ctx context.Context, actor Actor, sessionID uint, metadata *ClientMetadata) (*dto.ChatSessionDTO, error) {
	session, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !CanAccessChatSession(actor, session, ActionEnd) {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}
	if !session.IsActive() {
		return nil, NewBusinessError("CHAT_SESSION_NOT_ACTIVE", "Chat session is already closed", ErrChatSessionNotActive)
	}

	now := utils.UTCNow()
	session.Status = models.ChatSessionStatusClosed
	session.EndedAt = &now

	err = repository.WithTransaction(ctx, c.db, func(txCtx context.Context) error {
		return c.sessionRepo.Update(txCtx, session)
	})
	if err != nil {
		return nil, NewBusinessError("CHAT_UPDATE_FAILED", "Failed to end chat session", err)
	}

	_ = c.createAuditLog(ctx, actor, models.AuditActionChatEnded, fmt.Sprintf("chat session %d ended", session.ID), true, nil, metadata)

	out := ToChatSessionDTO(*session)
	return &out, nil
}

// GetChatHistory lists every session on a ticket, oldest first. Ticket
// owner or admin.
func (c *ChatSessionFlowImpl) GetChatHistory(ctx context.Context, actor Actor, ticketID uint) ([]dto.ChatSessionDTO, error) {
	ticket, err := c.ticketRepo.ByID(ctx, ticketID)
	if err != nil {
		return nil, NewBusinessError("TICKET_FETCH_FAILED", "Failed to fetch ticket", err)
	}
	if ticket == nil {
		return nil, NewBusinessError("TICKET_NOT_FOUND", "Ticket not found", ErrTicketNotFound)
	}
	if !CanAccessTicket(actor, ticket, ActionView) {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	sessions, err := c.sessionRepo.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, NewBusinessError("CHAT_FETCH_FAILED", "Failed to fetch chat history", err)
	}
	return toChatSessionDTOs(sessions), nil
}

// ListActiveSessions is the admin dashboard view of every active session
func (c *ChatSessionFlowImpl) ListActiveSessions(ctx context.Context, actor Actor) ([]dto.ChatSessionDTO, error) {
	if !actor.IsAdmin() {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	sessions, err := c.sessionRepo.ListActive(ctx)
	if err != nil {
		return nil, NewBusinessError("CHAT_FETCH_FAILED", "Failed to fetch active sessions", err)
	}
	return toChatSessionDTOs(sessions), nil
}

// ListStaffSessions is the staff dashboard view of the caller's active sessions
func (c *ChatSessionFlowImpl) ListStaffSessions(ctx context.Context, actor Actor) ([]dto.ChatSessionDTO, error) {
	if !actor.IsICTStaff() && !actor.IsAdmin() {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	sessions, err := c.sessionRepo.ListActiveByStaff(ctx, actor.ID)
	if err != nil {
		return nil, NewBusinessError("CHAT_FETCH_FAILED", "Failed to fetch staff sessions", err)
	}
	return toChatSessionDTOs(sessions), nil
}

func (c *ChatSessionFlowImpl) loadSession(ctx context.Context, sessionID uint) (*models.ChatSession, error) {
	session, err := c.sessionRepo.ByID(ctx, sessionID)
	if err != nil {
		return nil, NewBusinessError("CHAT_FETCH_FAILED", "Failed to fetch chat session", err)
	}
	if session == nil {
		return nil, NewBusinessError("CHAT_SESSION_NOT_FOUND", "Chat session not found", ErrChatSessionNotFound)
	}
	return session, nil
}

func toChatSessionDTOs(sessions []*models.ChatSession) []dto.ChatSessionDTO {
	out := make([]dto.ChatSessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, ToChatSessionDTO(*session))
	}
	return out
}

func (c *ChatSessionFlowImpl) createAuditLog(ctx context.Context, actor Actor, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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
	return c.auditRepo.Save(ctx, entry)
}
