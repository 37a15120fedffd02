package repository

import (
	"context"
	"errors"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// PasswordResetTokenRepositoryImpl implements PasswordResetTokenRepository interface
type PasswordResetTokenRepositoryImpl struct {
	*BaseRepository[models.PasswordResetToken, models.PasswordResetTokenFilter]
}

// NewPasswordResetTokenRepository creates a new password reset token repository
func NewPasswordResetTokenRepository(db *gorm.DB) PasswordResetTokenRepository {
	return &PasswordResetTokenRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PasswordResetToken, models.PasswordResetTokenFilter](db),
	}
}

// ByToken retrieves a reset token row by its token value
func (r *PasswordResetTokenRepositoryImpl) ByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	rows, err := r.ByFilter(ctx, models.PasswordResetTokenFilter{Token: &token}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// MarkUsed stamps the token as consumed
func (r *PasswordResetTokenRepositoryImpl) MarkUsed(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.PasswordResetToken{}).
		Where("id = ?", id).
		Update("used_at", utils.UTCNow()).Error
}

// DeleteForUser removes all reset tokens issued to the user
func (r *PasswordResetTokenRepositoryImpl) DeleteForUser(ctx context.Context, userID uint) error {
	db := r.getDB(ctx)
	return db.Where("user_id = ?", userID).Delete(&models.PasswordResetToken{}).Error
}

// applyFilter applies filter criteria to a GORM query
func (r *PasswordResetTokenRepositoryImpl) applyFilter(query *gorm.DB, filter models.PasswordResetTokenFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Token != nil {
		query = query.Where("token = ?", *filter.Token)
	}
	return query
}

// ByFilter retrieves reset tokens based on filter criteria
func (r *PasswordResetTokenRepositoryImpl) ByFilter(ctx context.Context, filter models.PasswordResetTokenFilter, orderBy string, limit, offset int) ([]*models.PasswordResetToken, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.PasswordResetToken{})

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

	var rows []*models.PasswordResetToken
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of reset tokens matching filter
func (r *PasswordResetTokenRepositoryImpl) Count(ctx context.Context, filter models.PasswordResetTokenFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.PasswordResetToken{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any reset token matches the filter
func (r *PasswordResetTokenRepositoryImpl) Exists(ctx context.Context, filter models.PasswordResetTokenFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// ByID retrieves a reset token by its ID
func (r *PasswordResetTokenRepositoryImpl) ByID(ctx context.Context, id uint) (*models.PasswordResetToken, error) {
	db := r.getDB(ctx)
	var row models.PasswordResetToken
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
