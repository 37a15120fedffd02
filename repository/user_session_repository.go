package repository

import (
	"context"
	"errors"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// UserSessionRepositoryImpl implements UserSessionRepository interface
type UserSessionRepositoryImpl struct {
	*BaseRepository[models.UserSession, models.UserSessionFilter]
}

// NewUserSessionRepository creates a new user session repository
func NewUserSessionRepository(db *gorm.DB) UserSessionRepository {
	return &UserSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UserSession, models.UserSessionFilter](db),
	}
}

// ByToken retrieves a session by its token id
func (r *UserSessionRepositoryImpl) ByToken(ctx context.Context, token string) (*models.UserSession, error) {
	rows, err := r.ByFilter(ctx, models.UserSessionFilter{SessionToken: &token}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// RevokeByToken deactivates the session holding the given token id
func (r *UserSessionRepositoryImpl) RevokeByToken(ctx context.Context, token string) error {
	db := r.getDB(ctx)
	return db.Model(&models.UserSession{}).
		Where("session_token = ?", token).
		Updates(map[string]any{
			"is_active":  false,
			"revoked_at": utils.UTCNow(),
		}).Error
}

// RevokeAllForUser deactivates every active session belonging to the user
func (r *UserSessionRepositoryImpl) RevokeAllForUser(ctx context.Context, userID uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.UserSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]any{
			"is_active":  false,
			"revoked_at": utils.UTCNow(),
		}).Error
}

// applyFilter applies filter criteria to a GORM query
func (r *UserSessionRepositoryImpl) applyFilter(query *gorm.DB, filter models.UserSessionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.SessionToken != nil {
		query = query.Where("session_token = ?", *filter.SessionToken)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.ExpiresAfter != nil {
		query = query.Where("expires_at > ?", *filter.ExpiresAfter)
	}
	if filter.ExpiresBefore != nil {
		query = query.Where("expires_at < ?", *filter.ExpiresBefore)
	}
	return query
}

// ByFilter retrieves sessions based on filter criteria
func (r *UserSessionRepositoryImpl) ByFilter(ctx context.Context, filter models.UserSessionFilter, orderBy string, limit, offset int) ([]*models.UserSession, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.UserSession{})

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

	var rows []*models.UserSession
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of sessions matching filter
func (r *UserSessionRepositoryImpl) Count(ctx context.Context, filter models.UserSessionFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.UserSession{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any session matches the filter
func (r *UserSessionRepositoryImpl) Exists(ctx context.Context, filter models.UserSessionFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// ByID retrieves a session by its ID
func (r *UserSessionRepositoryImpl) ByID(ctx context.Context, id uint) (*models.UserSession, error) {
	db := r.getDB(ctx)
	var row models.UserSession
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
