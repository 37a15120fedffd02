// Package testing provides test utilities and database setup for testing the helpdesk system
package testing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mathrand "math/rand"
	"time"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates an active test user with the given role
func (tf *TestFixtures) CreateTestUser(role string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	randomDigits := fmt.Sprintf("%09d", mathrand.Intn(900000000)+100000000)
	department := "ICT"
	if role == models.RoleOtherStaff {
		department = "Finance"
	}

	user := &models.User{
		FirstName:    "John",
		LastName:     "Doe",
		Email:        fmt.Sprintf("john.doe.%s.%s@example.com", role, randomDigits),
		PasswordHash: string(hashedPassword),
		Role:         role,
		Department:   &department,
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	return user, nil
}

// CreateInactiveTestUser creates a deactivated user for login rejection tests
func (tf *TestFixtures) CreateInactiveTestUser(role string) (*models.User, error) {
	user, err := tf.CreateTestUser(role)
	if err != nil {
		return nil, err
	}

	user.IsActive = utils.ToPtr(false)
	if err := tf.DB.DB.Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to deactivate test user: %w", err)
	}

	return user, nil
}

// CreateTestTicket creates an open ticket reported by the given user
func (tf *TestFixtures) CreateTestTicket(reporter *models.User) (*models.Ticket, error) {
	ticket := &models.Ticket{
		UserID:      reporter.ID,
		FirstName:   reporter.FirstName,
		LastName:    reporter.LastName,
		Department:  reporter.Department,
		Phone:       "555-1234",
		Room:        "B-204",
		Description: "Monitor flickers after a few minutes of use",
		Status:      models.TicketStatusOpen,
	}

	if err := tf.DB.DB.Create(ticket).Error; err != nil {
		return nil, fmt.Errorf("failed to create test ticket: %w", err)
	}

	return ticket, nil
}

// CreateTestChatSession creates an active chat session on the ticket.
// staffID may be nil for an unassigned session.
func (tf *TestFixtures) CreateTestChatSession(ticket *models.Ticket, staffID *uint) (*models.ChatSession, error) {
	session := &models.ChatSession{
		TicketID:   ticket.ID,
		UserID:     ticket.UserID,
		ICTStaffID: staffID,
		Status:     models.ChatSessionStatusActive,
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test chat session: %w", err)
	}

	return session, nil
}

// CreateTestMessage creates an unread message in the given session
func (tf *TestFixtures) CreateTestMessage(session *models.ChatSession, authorID uint, body string) (*models.Message, error) {
	message := &models.Message{
		ChatSessionID: &session.ID,
		UserID:        authorID,
		Body:          body,
		IsRead:        utils.ToPtr(false),
	}

	if err := tf.DB.DB.Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to create test message: %w", err)
	}

	return message, nil
}

// CreateTestTicketMessage creates an unread message on the ticket's legacy channel
func (tf *TestFixtures) CreateTestTicketMessage(ticket *models.Ticket, authorID uint, body string) (*models.Message, error) {
	message := &models.Message{
		TicketID: &ticket.ID,
		UserID:   authorID,
		Body:     body,
		IsRead:   utils.ToPtr(false),
	}

	if err := tf.DB.DB.Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to create test ticket message: %w", err)
	}

	return message, nil
}

// GenerateSecureToken generates a URL-safe random token
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CreateTestSession creates an active user session row
func (tf *TestFixtures) CreateTestSession(userID uint) (*models.UserSession, error) {
	sessionToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure session token: %w", err)
	}

	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	session := &models.UserSession{
		UserID:       userID,
		SessionToken: sessionToken,
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		IsActive:     utils.ToPtr(true),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test session: %w", err)
	}

	return session, nil
}

// CreateTestResetToken creates a usable password reset token for the user
func (tf *TestFixtures) CreateTestResetToken(userID uint) (*models.PasswordResetToken, error) {
	token, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	resetToken := &models.PasswordResetToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(time.Hour),
	}

	if err := tf.DB.DB.Create(resetToken).Error; err != nil {
		return nil, fmt.Errorf("failed to create test reset token: %w", err)
	}

	return resetToken, nil
}

// CreateExpiredResetToken creates a reset token that expired an hour ago
func (tf *TestFixtures) CreateExpiredResetToken(userID uint) (*models.PasswordResetToken, error) {
	token, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	resetToken := &models.PasswordResetToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	}

	if err := tf.DB.DB.Create(resetToken).Error; err != nil {
		return nil, fmt.Errorf("failed to create expired reset token: %w", err)
	}

	return resetToken, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(userID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		UserID:      userID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
