// Package models contains domain entities and business models for the helpdesk system
package models

import (
	"time"

	"github.com/amirphl/Kusanagi/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles. Role is the sole authorization axis in the system.
const (
	RoleAdmin      = "admin"
	RoleICTStaff   = "ict_staff"
	RoleOtherStaff = "other_staff"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	FirstName    string    `gorm:"size:100;not null" json:"first_name"`
	LastName     string    `gorm:"size:100;not null" json:"last_name"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:uk_users_email;index:idx_users_email" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"type:user_role_enum;not null;default:'other_staff';index:idx_users_role" json:"role"`

	Department  *string `gorm:"size:100" json:"department,omitempty"`
	Designation *string `gorm:"size:100" json:"designation,omitempty"`
	Extension   *string `gorm:"size:20" json:"extension,omitempty"`
	Phone       *string `gorm:"size:20" json:"phone,omitempty"`

	IsActive    *bool      `gorm:"default:true;index:idx_users_is_active" json:"is_active"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate sets UUID and timestamps before creating a new user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	now := utils.UTCNow()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsICTStaff() bool {
	return u.Role == RoleICTStaff
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsValidRole reports whether role is one of the three known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleICTStaff, RoleOtherStaff:
		return true
	}
	return false
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Email         *string
	Role          *string
	Department    *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
