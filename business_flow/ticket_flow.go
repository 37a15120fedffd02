package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// TicketFlow handles the ticket lifecycle
type TicketFlow interface {
	CreateTicket(ctx context.Context, actor Actor, req *dto.CreateTicketRequest, metadata *ClientMetadata) (*dto.TicketDTO, error)
	ListTickets(ctx context.Context, actor Actor) ([]dto.TicketDTO, error)
	ListMyTickets(ctx context.Context, actor Actor) ([]dto.TicketDTO, error)
	GetTicket(ctx context.Context, actor Actor, ticketID uint) (*dto.TicketDTO, error)
	UpdateTicket(ctx context.Context, actor Actor, ticketID uint, req *dto.UpdateTicketRequest, metadata *ClientMetadata) (*dto.TicketDTO, error)
	DeleteTicket(ctx context.Context, actor Actor, ticketID uint, metadata *ClientMetadata) error
	ExportTickets(ctx context.Context, actor Actor) ([]byte, error)
}

// Ticket update actions that short-circuit the status field
const (
	TicketActionComplete = "complete"
	TicketActionEscalate = "escalate"
)

// TicketFlowImpl implements the ticket business flow
type TicketFlowImpl struct {
	ticketRepo      repository.TicketRepository
	userRepo        repository.UserRepository
	auditRepo       repository.AuditLogRepository
	notificationSvc services.NotificationService
	db              *gorm.DB
}

// NewTicketFlow creates a new ticket flow instance
func NewTicketFlow(
	ticketRepo repository.TicketRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	notificationSvc services.NotificationService,
	db *gorm.DB,
) TicketFlow {
	return &TicketFlowImpl{
		ticketRepo:      ticketRepo,
		userRepo:        userRepo,
		auditRepo:       auditRepo,
		notificationSvc: notificationSvc,
		db:              db,
	}
}

// CreateTicket opens a new ticket for the calling user. Reporter name and
// department are snapshotted from the user row at this moment.
func (t *TicketFlowImpl) CreateTicket(ctx context.Context, actor Actor, req *dto.CreateTicketRequest, metadata *ClientMetadata) (*dto.TicketDTO, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, NewBusinessError("TICKET_DESCRIPTION_REQUIRED", "Ticket description is required", ErrTicketDescriptionMissing)
	}

	user, err := t.userRepo.ByID(ctx, actor.ID)
	if err != nil {
		return nil, NewBusinessError("TICKET_CREATE_FAILED", "Failed to create ticket", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	ticket := &models.Ticket{
		UserID:      user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Department:  user.Department,
		Phone:       req.Phone,
		Room:        req.Room,
		Description: description,
		Status:      models.TicketStatusOpen,
	}

	err = repository.WithTransaction(ctx, t.db, func(txCtx context.Context) error {
		return t.ticketRepo.Save(txCtx, ticket)
	})
	if err != nil {
		return nil, NewBusinessError("TICKET_CREATE_FAILED", "Failed to create ticket", err)
	}

	// Notification goes out after commit; a delivery failure does not fail the request
	if err := t.notificationSvc.SendTicketCreatedEmail(user.Email, description); err != nil {
		errMsg := err.Error()
		_ = t.createAuditLog(ctx, actor, models.AuditActionTicketCreated, "ticket created, notification failed", true, &errMsg, metadata)
	} else {
		_ = t.createAuditLog(ctx, actor, models.AuditActionTicketCreated, fmt.Sprintf("ticket %d created", ticket.ID), true, nil, metadata)
	}

	out := ToTicketDTO(*ticket)
	return &out, nil
}

// ListTickets returns all tickets with reporter and assignee summaries. Admin only.
func (t *TicketFlowImpl) ListTickets(ctx context.Context, actor Actor) ([]dto.TicketDTO, error) {
	if !actor.IsAdmin() {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	tickets, err := t.ticketRepo.ListWithUsers(ctx, models.TicketFilter{})
	if err != nil {
		return nil, NewBusinessError("TICKET_LIST_FAILED", "Failed to list tickets", err)
	}

	return toTicketDTOs(tickets), nil
}

// ListMyTickets returns the caller's own tickets
func (t *TicketFlowImpl) ListMyTickets(ctx context.Context, actor Actor) ([]dto.TicketDTO, error) {
	tickets, err := t.ticketRepo.ListWithUsers(ctx, models.TicketFilter{UserID: &actor.ID})
	if err != nil {
		return nil, NewBusinessError("TICKET_LIST_FAILED", "Failed to list tickets", err)
	}

	return toTicketDTOs(tickets), nil
}

// GetTicket returns a single ticket. Owner or admin.
func (t *TicketFlowImpl) GetTicket(ctx context.Context, actor Actor, ticketID uint) (*dto.TicketDTO, error) {
	ticket, err := t.ticketRepo.ByIDWithUsers(ctx, ticketID)
	if err != nil {
		return nil, NewBusinessError("TICKET_FETCH_FAILED", "Failed to fetch ticket", err)
	}
	if ticket == nil {
		return nil, NewBusinessError("TICKET_NOT_FOUND", "Ticket not found", ErrTicketNotFound)
	}

	if !CanAccessTicket(actor, ticket, ActionView) {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	out := ToTicketDTO(*ticket)
	return &out, nil
}

// UpdateTicket applies a partial update. Owner, admin, or the currently
// assigned ICT staff. An action of complete or escalate wins over any
// status carried in the same payload.
func (t *TicketFlowImpl) UpdateTicket(ctx context.Context, actor Actor, ticketID uint, req *dto.UpdateTicketRequest, metadata *ClientMetadata) (*dto.TicketDTO, error) {
	ticket, err := t.ticketRepo.ByID(ctx, ticketID)
	if err != nil {
		return nil, NewBusinessError("TICKET_FETCH_FAILED", "Failed to fetch ticket", err)
	}
	if ticket == nil {
		return nil, NewBusinessError("TICKET_NOT_FOUND", "Ticket not found", ErrTicketNotFound)
	}

	allowed := CanAccessTicket(actor, ticket, ActionModify) ||
		(actor.IsICTStaff() && ticket.AssignedTo != nil && *ticket.AssignedTo == actor.ID)
	if !allowed {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	targetStatus := ""
	if req.Action != nil {
		switch *req.Action {
		case TicketActionComplete:
			targetStatus = models.TicketStatusCompleted
		case TicketActionEscalate:
			targetStatus = models.TicketStatusEscalated
		default:
			return nil, NewBusinessError("INVALID_TICKET_STATUS", "Unknown ticket action", ErrInvalidTicketStatus)
		}
	} else if req.Status != nil {
		if !models.IsValidTicketStatus(*req.Status) {
			return nil, NewBusinessError("INVALID_TICKET_STATUS", "Invalid ticket status", ErrInvalidTicketStatus)
		}
		targetStatus = *req.Status
	}

	if targetStatus != "" {
		if !models.CanTransitionTicket(ticket.Status, targetStatus) {
			return nil, NewBusinessErrorf("INVALID_STATUS_TRANSITION", "Cannot move ticket from %s to %s", ErrInvalidStatusTransition, ticket.Status, targetStatus)
		}
		ticket.Status = targetStatus
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, NewBusinessError("TICKET_DESCRIPTION_REQUIRED", "Ticket description is required", ErrTicketDescriptionMissing)
		}
		ticket.Description = description
	}

	if req.AssignedTo != nil {
		assignee, err := t.userRepo.ByID(ctx, *req.AssignedTo)
		if err != nil {
			return nil, NewBusinessError("TICKET_UPDATE_FAILED", "Failed to update ticket", err)
		}
		if assignee == nil || !assignee.IsICTStaff() {
			return nil, NewBusinessError("ASSIGNEE_NOT_ICT_STAFF", "Assignee must be ICT staff", ErrAssigneeNotICTStaff)
		}
		ticket.AssignedTo = req.AssignedTo
	}

	err = repository.WithTransaction(ctx, t.db, func(txCtx context.Context) error {
		return t.ticketRepo.Update(txCtx, ticket)
	})
	if err != nil {
		return nil, NewBusinessError("TICKET_UPDATE_FAILED", "Failed to update ticket", err)
	}

	_ = t.createAuditLog(ctx, actor, models.AuditActionTicketUpdated, fmt.Sprintf("ticket %d updated", ticket.ID), true, nil, metadata)

	out := ToTicketDTO(*ticket)
	return &out, nil
}

// DeleteTicket removes a ticket. Owner or admin only.
func (t *TicketFlowImpl) DeleteTicket(ctx context.Context, actor Actor, ticketID uint, metadata *ClientMetadata) error {
	ticket, err := t.ticketRepo.ByID(ctx, ticketID)
	if err != nil {
		return NewBusinessError("TICKET_FETCH_FAILED", "Failed to fetch ticket", err)
	}
	if ticket == nil {
		return NewBusinessError("TICKET_NOT_FOUND", "Ticket not found", ErrTicketNotFound)
	}

	if !CanAccessTicket(actor, ticket, ActionDelete) {
		return NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	err = repository.WithTransaction(ctx, t.db, func(txCtx context.Context) error {
		return t.ticketRepo.Delete(txCtx, ticketID)
	})
	if err != nil {
		return NewBusinessError("TICKET_DELETE_FAILED", "Failed to delete ticket", err)
	}

	_ = t.createAuditLog(ctx, actor, models.AuditActionTicketDeleted, fmt.Sprintf("ticket %d deleted", ticketID), true, nil, metadata)
	return nil
}

// ExportTickets renders every ticket into an XLSX workbook. Admin only.
func (t *TicketFlowImpl) ExportTickets(ctx context.Context, actor Actor) ([]byte, error) {
	if !actor.IsAdmin() {
		return nil, NewBusinessError("ACCESS_DENIED", "Access denied", ErrAccessDenied)
	}

	tickets, err := t.ticketRepo.ListWithUsers(ctx, models.TicketFilter{})
	if err != nil {
		return nil, NewBusinessError("TICKET_EXPORT_FAILED", "Failed to export tickets", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Tickets"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, NewBusinessError("TICKET_EXPORT_FAILED", "Failed to export tickets", err)
	}

	headers := []string{"ID", "Reporter", "Department", "Phone", "Room", "Description", "Status", "Assignee", "Created At"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, NewBusinessError("TICKET_EXPORT_FAILED", "Failed to export tickets", err)
		}
	}

	for row, ticket := range tickets {
		department := ""
		if ticket.Department != nil {
			department = *ticket.Department
		}
		assignee := ""
		if ticket.Assignee != nil {
			assignee = ticket.Assignee.FullName()
		}
		values := []any{
			ticket.ID,
			ticket.FirstName + " " + ticket.LastName,
			department,
			ticket.Phone,
			ticket.Room,
			ticket.Description,
			ticket.Status,
			assignee,
			ticket.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, NewBusinessError("TICKET_EXPORT_FAILED", "Failed to export tickets", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, NewBusinessError("TICKET_EXPORT_FAILED", "Failed to export tickets", err)
	}

	return buf.Bytes(), nil
}

func toTicketDTOs(tickets []*models.Ticket) []dto.TicketDTO {
	out := make([]dto.TicketDTO, 0, len(tickets))
	for _, ticket := range tickets {
		out = append(out, ToTicketDTO(*ticket))
	}
	return out
}

func (t *TicketFlowImpl) createAuditLog(ctx context.Context, actor Actor, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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
	return t.auditRepo.Save(ctx, entry)
}
