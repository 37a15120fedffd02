// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/Kusanagi/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	ListByRole(ctx context.Context, role string) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
	UpdateLastLogin(ctx context.Context, userID uint) error
	Delete(ctx context.Context, userID uint) error
}

// UserSessionRepository defines operations for bearer-token sessions
type UserSessionRepository interface {
	Repository[models.UserSession, models.UserSessionFilter]
	ByToken(ctx context.Context, token string) (*models.UserSession, error)
	RevokeByToken(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID uint) error
}

// PasswordResetTokenRepository defines operations for password reset tokens
type PasswordResetTokenRepository interface {
	Repository[models.PasswordResetToken, models.PasswordResetTokenFilter]
	ByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id uint) error
	DeleteForUser(ctx context.Context, userID uint) error
}

// TicketRepository defines operations for tickets
type TicketRepository interface {
	Repository[models.Ticket, models.TicketFilter]
	ByIDWithUsers(ctx context.Context, id uint) (*models.Ticket, error)
	ListWithUsers(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error)
	Update(ctx context.Context, ticket *models.Ticket) error
	Delete(ctx context.Context, id uint) error
}

// ChatSessionRepository defines operations for chat sessions
type ChatSessionRepository interface {
	Repository[models.ChatSession, models.ChatSessionFilter]
	ActiveByTicket(ctx context.Context, ticketID uint) (*models.ChatSession, error)
	ActiveByStaff(ctx context.Context, staffID uint) (*models.ChatSession, error)
	ActiveByStaffLocked(ctx context.Context, staffID uint) (*models.ChatSession, error)
	ListActive(ctx context.Context) ([]*models.ChatSession, error)
	ListActiveByStaff(ctx context.Context, staffID uint) ([]*models.ChatSession, error)
	ListByTicket(ctx context.Context, ticketID uint) ([]*models.ChatSession, error)
	StaffIDsWithActiveSessions(ctx context.Context) ([]uint, error)
	Update(ctx context.Context, session *models.ChatSession) error
}

// MessageRepository defines operations for messages
type MessageRepository interface {
	Repository[models.Message, models.MessageFilter]
	ListBySession(ctx context.Context, sessionID uint) ([]*models.Message, error)
	ListByTicket(ctx context.Context, ticketID uint) ([]*models.Message, error)
	MarkOthersReadBySession(ctx context.Context, sessionID, readerID uint) error
	MarkOthersReadByTicket(ctx context.Context, ticketID, readerID uint) error
	MarkRead(ctx context.Context, id uint) error
	CountUnreadForTicket(ctx context.Context, ticketID, readerID uint) (int64, error)
	CountUnreadForTickets(ctx context.Context, ticketIDs []uint, readerID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
}
