// Package models contains domain entities and business models for the helpdesk system
package models

import (
	"time"

	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// UserSession represents an issued bearer token. SessionToken holds the JWT
// jti so a session row can be looked up and revoked by token id.
type UserSession struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	UserID       uint   `gorm:"not null;index:idx_sessions_user_id" json:"user_id"`
	User         *User  `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	SessionToken string `gorm:"size:255;not null;uniqueIndex:uk_sessions_token" json:"-"`

	IPAddress *string `gorm:"type:inet" json:"ip_address,omitempty"`
	UserAgent *string `gorm:"type:text" json:"user_agent,omitempty"`

	IsActive   *bool      `gorm:"default:true;index:idx_sessions_is_active" json:"is_active"`
	CreatedAt  time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	ExpiresAt  time.Time  `gorm:"not null;index:idx_sessions_expires_at" json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

// BeforeCreate sets timestamps before creating a new session
func (s *UserSession) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	return nil
}

func (s *UserSession) IsExpired() bool {
	return utils.IsExpired(s.ExpiresAt)
}

// IsValid reports whether the session is active, unrevoked, and unexpired.
func (s *UserSession) IsValid() bool {
	return utils.IsTrue(s.IsActive) && s.RevokedAt == nil && !s.IsExpired()
}

// UserSessionFilter represents filter criteria for session queries
type UserSessionFilter struct {
	ID            *uint
	UserID        *uint
	SessionToken  *string
	IsActive      *bool
	ExpiresAfter  *time.Time
	ExpiresBefore *time.Time
}
