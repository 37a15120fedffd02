package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatSessionRepositoryImpl implements ChatSessionRepository interface
type ChatSessionRepositoryImpl struct {
	*BaseRepository[models.ChatSession, models.ChatSessionFilter]
}

// NewChatSessionRepository creates a new chat session repository
func NewChatSessionRepository(db *gorm.DB) ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ChatSession, models.ChatSessionFilter](db),
	}
}

// ByID retrieves a chat session by its ID
func (r *ChatSessionRepositoryImpl) ByID(ctx context.Context, id uint) (*models.ChatSession, error) {
	db := r.getDB(ctx)
	var row models.ChatSession
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ActiveByTicket retrieves the active session bound to a ticket, if any
func (r *ChatSessionRepositoryImpl) ActiveByTicket(ctx context.Context, ticketID uint) (*models.ChatSession, error) {
	active := models.ChatSessionStatusActive
	rows, err := r.ByFilter(ctx, models.ChatSessionFilter{TicketID: &ticketID, Status: &active}, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ActiveByStaff retrieves the active session currently assigned to a staff member, if any
func (r *ChatSessionRepositoryImpl) ActiveByStaff(ctx context.Context, staffID uint) (*models.ChatSession, error) {
	active := models.ChatSessionStatusActive
	rows, err := r.ByFilter(ctx, models.ChatSessionFilter{ICTStaffID: &staffID, Status: &active}, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ActiveByStaffLocked is ActiveByStaff with a FOR UPDATE row lock. Callers
// must run inside WithTransaction; the lock serializes concurrent
// availability checks against the same staff member.
func (r *ChatSessionRepositoryImpl) ActiveByStaffLocked(ctx context.Context, staffID uint) (*models.ChatSession, error) {
	db := r.getDB(ctx)
	var row models.ChatSession
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ict_staff_id = ? AND status = ?", staffID, models.ChatSessionStatusActive).
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListActive lists all active sessions
func (r *ChatSessionRepositoryImpl) ListActive(ctx context.Context) ([]*models.ChatSession, error) {
	db := r.getDB(ctx)
	var rows []*models.ChatSession
	err := db.Preload("Ticket").Preload("User").Preload("ICTStaff").
		Where("status = ?", models.ChatSessionStatusActive).
		Order("started_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveByStaff lists active sessions where the staff member is the current assignee
func (r *ChatSessionRepositoryImpl) ListActiveByStaff(ctx context.Context, staffID uint) ([]*models.ChatSession, error) {
	db := r.getDB(ctx)
	var rows []*models.ChatSession
	err := db.Preload("Ticket").Preload("User").
		Where("ict_staff_id = ? AND status = ?", staffID, models.ChatSessionStatusActive).
		Order("started_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByTicket lists every session (any status) bound to a ticket, oldest first
func (r *ChatSessionRepositoryImpl) ListByTicket(ctx context.Context, ticketID uint) ([]*models.ChatSession, error) {
	return r.ByFilter(ctx, models.ChatSessionFilter{TicketID: &ticketID}, "started_at ASC", 0, 0)
}

// StaffIDsWithActiveSessions returns the distinct staff ids currently tied
// up in an active session. Used to compute staff availability.
func (r *ChatSessionRepositoryImpl) StaffIDsWithActiveSessions(ctx context.Context) ([]uint, error) {
	db := r.getDB(ctx)
	var ids []uint
	err := db.Model(&models.ChatSession{}).
		Where("status = ? AND ict_staff_id IS NOT NULL", models.ChatSessionStatusActive).
		Distinct().
		Pluck("ict_staff_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Update persists changes to an existing session
func (r *ChatSessionRepositoryImpl) Update(ctx context.Context, session *models.ChatSession) error {
	db := r.getDB(ctx)
	session.UpdatedAt = utils.UTCNow()
	if err := db.Save(session).Error; err != nil {
		return fmt.Errorf("failed to update chat session %d: %w", session.ID, err)
	}
	return nil
}

// applyFilter applies filter criteria to a GORM query
func (r *ChatSessionRepositoryImpl) applyFilter(query *gorm.DB, filter models.ChatSessionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.TicketID != nil {
		query = query.Where("ticket_id = ?", *filter.TicketID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ICTStaffID != nil {
		query = query.Where("ict_staff_id = ?", *filter.ICTStaffID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves chat sessions based on filter criteria
func (r *ChatSessionRepositoryImpl) ByFilter(ctx context.Context, filter models.ChatSessionFilter, orderBy string, limit, offset int) ([]*models.ChatSession, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.ChatSession{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.ChatSession
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of chat sessions matching filter
func (r *ChatSessionRepositoryImpl) Count(ctx context.Context, filter models.ChatSessionFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.ChatSession{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any chat session matches the filter
func (r *ChatSessionRepositoryImpl) Exists(ctx context.Context, filter models.ChatSessionFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
