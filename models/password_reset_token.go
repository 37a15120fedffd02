package models

import (
	"time"

	"github.com/amirphl/Kusanagi/utils"
)

// PasswordResetToken is a single-use token emailed to a user who forgot
// their password.
type PasswordResetToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:idx_reset_tokens_user_id" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Token     string     `gorm:"size:255;not null;uniqueIndex:uk_reset_tokens_token" json:"-"`
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	ExpiresAt time.Time  `gorm:"not null;index:idx_reset_tokens_expires_at" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// IsUsable reports whether the token is unused and unexpired.
func (t *PasswordResetToken) IsUsable() bool {
	return t.UsedAt == nil && !utils.IsExpired(t.ExpiresAt)
}

// PasswordResetTokenFilter represents filter criteria for reset token queries
type PasswordResetTokenFilter struct {
	ID     *uint
	UserID *uint
	Token  *string
}
