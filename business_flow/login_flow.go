// Package businessflow contains the core business logic and use cases for helpdesk workflows
package businessflow

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// LoginFlow handles authentication and credential recovery
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponseData, error)
	Logout(ctx context.Context, token, tokenID string, userID uint, metadata *ClientMetadata) error
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) error
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) error
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	userRepo        repository.UserRepository
	sessionRepo     repository.UserSessionRepository
	resetTokenRepo  repository.PasswordResetTokenRepository
	auditRepo       repository.AuditLogRepository
	tokenService    services.TokenService
	notificationSvc services.NotificationService
	db              *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	resetTokenRepo repository.PasswordResetTokenRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	notificationSvc services.NotificationService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		userRepo:        userRepo,
		sessionRepo:     sessionRepo,
		resetTokenRepo:  resetTokenRepo,
		auditRepo:       auditRepo,
		tokenService:    tokenService,
		notificationSvc: notificationSvc,
		db:              db,
	}
}

// Login verifies credentials and issues a bearer token. Previously issued
// sessions for the user are revoked so only one token is live at a time.
func (l *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponseData, error) {
	user, err := l.userRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if user == nil {
		_ = l.createAuditLog(ctx, nil, models.AuditActionLoginFailed, fmt.Sprintf("unknown email %s", req.Email), false, nil, metadata)
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		_ = l.createAuditLog(ctx, user, models.AuditActionLoginFailed, "incorrect password", false, nil, metadata)
		return nil, NewBusinessError("INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	token, tokenID, err := l.tokenService.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	err = repository.WithTransaction(ctx, l.db, func(txCtx context.Context) error {
		if err := l.sessionRepo.RevokeAllForUser(txCtx, user.ID); err != nil {
			return err
		}

		session := &models.UserSession{
			UserID:       user.ID,
			SessionToken: tokenID,
			IsActive:     utils.ToPtr(true),
			ExpiresAt:    utils.UTCNowAdd(utils.SessionTimeout),
		}
		if metadata != nil {
			if metadata.IPAddress != "" {
				session.IPAddress = &metadata.IPAddress
			}
			if metadata.UserAgent != "" {
				session.UserAgent = &metadata.UserAgent
			}
		}
		if err := l.sessionRepo.Save(txCtx, session); err != nil {
			return err
		}

		return l.userRepo.UpdateLastLogin(txCtx, user.ID)
	})
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	_ = l.createAuditLog(ctx, user, models.AuditActionLoginSuccessful, "login successful", true, nil, metadata)

	return &dto.LoginResponseData{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   utils.AccessTokenTTLSeconds,
		User:        ToUserDTO(*user),
	}, nil
}

// Logout revokes the presented token and its session row
func (l *LoginFlowImpl) Logout(ctx context.Context, token, tokenID string, userID uint, metadata *ClientMetadata) error {
	if err := l.tokenService.RevokeToken(ctx, token); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}
	if err := l.sessionRepo.RevokeByToken(ctx, tokenID); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	user, _ := l.userRepo.ByID(ctx, userID)
	_ = l.createAuditLog(ctx, user, models.AuditActionLogout, "logout", true, nil, metadata)
	return nil
}

// ForgotPassword issues a single-use reset token and emails it to the user
func (l *LoginFlowImpl) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) error {
	user, err := l.userRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}
	if user == nil {
		return NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	resetToken, err := utils.RandomToken(32)
	if err != nil {
		return NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}

	err = repository.WithTransaction(ctx, l.db, func(txCtx context.Context) error {
		if err := l.resetTokenRepo.DeleteForUser(txCtx, user.ID); err != nil {
			return err
		}
		return l.resetTokenRepo.Save(txCtx, &models.PasswordResetToken{
			UserID:    user.ID,
			Token:     resetToken,
			ExpiresAt: utils.UTCNowAdd(utils.PasswordResetTokenTTL),
		})
	})
	if err != nil {
		return NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}

	// Email goes out after commit so a delivery failure cannot roll back the token
	if err := l.notificationSvc.SendPasswordResetEmail(user.Email, resetToken); err != nil {
		return NewBusinessError("PASSWORD_RESET_FAILED", "Failed to send reset email", err)
	}

	_ = l.createAuditLog(ctx, user, models.AuditActionPasswordResetRequested, "password reset requested", true, nil, metadata)
	return nil
}

// ResetPassword consumes a reset token and replaces the user's password.
// All live sessions are revoked.
func (l *LoginFlowImpl) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) error {
	row, err := l.resetTokenRepo.ByToken(ctx, req.Token)
	if err != nil {
		return NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}
	if row == nil || row.UsedAt != nil {
		return NewBusinessError("RESET_TOKEN_INVALID", "Reset token is invalid", ErrResetTokenInvalid)
	}
	if utils.IsExpired(row.ExpiresAt) {
		return NewBusinessError("RESET_TOKEN_EXPIRED", "Reset token has expired", ErrResetTokenExpired)
	}

	user, err := l.userRepo.ByID(ctx, row.UserID)
	if err != nil || user == nil {
		return NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}

	err = repository.WithTransaction(ctx, l.db, func(txCtx context.Context) error {
		if err := l.userRepo.UpdatePassword(txCtx, user.ID, string(hashedPassword)); err != nil {
			return err
		}
		if err := l.resetTokenRepo.MarkUsed(txCtx, row.ID); err != nil {
			return err
		}
		return l.sessionRepo.RevokeAllForUser(txCtx, user.ID)
	})
	if err != nil {
		errMsg := err.Error()
		_ = l.createAuditLog(ctx, user, models.AuditActionPasswordResetFailed, "password reset failed", false, &errMsg, metadata)
		return NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}

	_ = l.createAuditLog(ctx, user, models.AuditActionPasswordResetCompleted, "password reset completed", true, nil, metadata)
	return nil
}

func (l *LoginFlowImpl) createAuditLog(ctx context.Context, user *models.User, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	entry := &models.AuditLog{
		Action:       action,
		Description:  &description,
		Success:      &success,
		ErrorMessage: errorMsg,
		CreatedAt:    utils.UTCNow(),
	}
	if user != nil {
		entry.UserID = &user.ID
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
	return l.auditRepo.Save(ctx, entry)
}
