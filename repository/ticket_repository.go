package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// TicketRepositoryImpl implements TicketRepository interface
type TicketRepositoryImpl struct {
	*BaseRepository[models.Ticket, models.TicketFilter]
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &TicketRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Ticket, models.TicketFilter](db),
	}
}

// ByID retrieves a ticket by its ID
func (r *TicketRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Ticket, error) {
	db := r.getDB(ctx)
	var row models.Ticket
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ByIDWithUsers retrieves a ticket with reporter and assignee preloaded
func (r *TicketRepositoryImpl) ByIDWithUsers(ctx context.Context, id uint) (*models.Ticket, error) {
	db := r.getDB(ctx)
	var row models.Ticket
	err := db.Preload("User").Preload("Assignee").Last(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListWithUsers lists tickets matching the filter with reporter and assignee preloaded
func (r *TicketRepositoryImpl) ListWithUsers(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Ticket{}), filter)
	query = query.Preload("User").Preload("Assignee").Order("id DESC")

	var rows []*models.Ticket
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update persists changes to an existing ticket
func (r *TicketRepositoryImpl) Update(ctx context.Context, ticket *models.Ticket) error {
	db := r.getDB(ctx)
	ticket.UpdatedAt = utils.UTCNow()
	if err := db.Save(ticket).Error; err != nil {
		return fmt.Errorf("failed to update ticket %d: %w", ticket.ID, err)
	}
	return nil
}

// Delete removes a ticket. Sessions and messages cascade at the DB level.
func (r *TicketRepositoryImpl) Delete(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	return db.Delete(&models.Ticket{}, id).Error
}

// applyFilter applies filter criteria to a GORM query
func (r *TicketRepositoryImpl) applyFilter(query *gorm.DB, filter models.TicketFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves tickets based on filter criteria
func (r *TicketRepositoryImpl) ByFilter(ctx context.Context, filter models.TicketFilter, orderBy string, limit, offset int) ([]*models.Ticket, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Ticket{})

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

	var rows []*models.Ticket
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of tickets matching filter
func (r *TicketRepositoryImpl) Count(ctx context.Context, filter models.TicketFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Ticket{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any ticket matches the filter
func (r *TicketRepositoryImpl) Exists(ctx context.Context, filter models.TicketFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
