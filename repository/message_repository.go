package repository

import (
	"context"
	"errors"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// MessageRepositoryImpl implements MessageRepository interface
type MessageRepositoryImpl struct {
	*BaseRepository[models.Message, models.MessageFilter]
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &MessageRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Message, models.MessageFilter](db),
	}
}

// ByID retrieves a message by its ID
func (r *MessageRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Message, error) {
	db := r.getDB(ctx)
	var row models.Message
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListBySession lists session messages in ascending chronological order
func (r *MessageRepositoryImpl) ListBySession(ctx context.Context, sessionID uint) ([]*models.Message, error) {
	db := r.getDB(ctx)
	var rows []*models.Message
	err := db.Preload("User").
		Where("chat_session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByTicket lists legacy ticket-scoped messages in ascending chronological order
func (r *MessageRepositoryImpl) ListByTicket(ctx context.Context, ticketID uint) ([]*models.Message, error) {
	db := r.getDB(ctx)
	var rows []*models.Message
	err := db.Preload("User").
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkOthersReadBySession bulk-marks session messages not authored by the
// reader as read. Idempotent under concurrent listing.
func (r *MessageRepositoryImpl) MarkOthersReadBySession(ctx context.Context, sessionID, readerID uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.Message{}).
		Where("chat_session_id = ? AND user_id <> ? AND is_read = ?", sessionID, readerID, false).
		Updates(map[string]any{
			"is_read":    true,
			"updated_at": utils.UTCNow(),
		}).Error
}

// MarkOthersReadByTicket bulk-marks ticket-scoped messages not authored by the reader as read
func (r *MessageRepositoryImpl) MarkOthersReadByTicket(ctx context.Context, ticketID, readerID uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.Message{}).
		Where("ticket_id = ? AND user_id <> ? AND is_read = ?", ticketID, readerID, false).
		Updates(map[string]any{
			"is_read":    true,
			"updated_at": utils.UTCNow(),
		}).Error
}

// MarkRead marks a single message as read
func (r *MessageRepositoryImpl) MarkRead(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_read":    true,
			"updated_at": utils.UTCNow(),
		}).Error
}

// CountUnreadForTicket counts unread messages on a ticket that the reader
// did not author, covering both the legacy ticket channel and every chat
// session bound to the ticket.
func (r *MessageRepositoryImpl) CountUnreadForTicket(ctx context.Context, ticketID, readerID uint) (int64, error) {
	db := r.getDB(ctx)
	sessionIDs := db.Model(&models.ChatSession{}).Select("id").Where("ticket_id = ?", ticketID)

	var count int64
	err := db.Model(&models.Message{}).
		Where("user_id <> ? AND is_read = ?", readerID, false).
		Where("ticket_id = ? OR chat_session_id IN (?)", ticketID, sessionIDs).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountUnreadForTickets aggregates unread counts across a set of tickets
func (r *MessageRepositoryImpl) CountUnreadForTickets(ctx context.Context, ticketIDs []uint, readerID uint) (int64, error) {
	if len(ticketIDs) == 0 {
		return 0, nil
	}

	db := r.getDB(ctx)
	sessionIDs := db.Model(&models.ChatSession{}).Select("id").Where("ticket_id IN ?", ticketIDs)

	var count int64
	err := db.Model(&models.Message{}).
		Where("user_id <> ? AND is_read = ?", readerID, false).
		Where("ticket_id IN ? OR chat_session_id IN (?)", ticketIDs, sessionIDs).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a message
func (r *MessageRepositoryImpl) Delete(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	return db.Delete(&models.Message{}, id).Error
}

// applyFilter applies filter criteria to a GORM query
func (r *MessageRepositoryImpl) applyFilter(query *gorm.DB, filter models.MessageFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.ChatSessionID != nil {
		query = query.Where("chat_session_id = ?", *filter.ChatSessionID)
	}
	if filter.TicketID != nil {
		query = query.Where("ticket_id = ?", *filter.TicketID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.IsRead != nil {
		query = query.Where("is_read = ?", *filter.IsRead)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves messages based on filter criteria
func (r *MessageRepositoryImpl) ByFilter(ctx context.Context, filter models.MessageFilter, orderBy string, limit, offset int) ([]*models.Message, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Message{})

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

	var rows []*models.Message
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of messages matching filter
func (r *MessageRepositoryImpl) Count(ctx context.Context, filter models.MessageFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Message{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any message matches the filter
func (r *MessageRepositoryImpl) Exists(ctx context.Context, filter models.MessageFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
