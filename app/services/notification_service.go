// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"fmt"
	"log"
	"strings"
)

// NotificationService handles sending notifications via email
type NotificationService interface {
	SendEmail(email, subject, message string) error
	SendPasswordResetEmail(email, resetToken string) error
	SendTicketCreatedEmail(email, ticketDescription string) error
}

// EmailProvider interface for email sending
type EmailProvider interface {
	SendEmail(email, subject, message string) error
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	emailProvider EmailProvider
	resetURLBase  string
}

// NewNotificationService creates a new notification service
func NewNotificationService(emailProvider EmailProvider, resetURLBase string) NotificationService {
	return &NotificationServiceImpl{
		emailProvider: emailProvider,
		resetURLBase:  resetURLBase,
	}
}

// SendEmail sends an email to the specified email address
func (s *NotificationServiceImpl) SendEmail(email, subject, message string) error {
	if s.emailProvider == nil {
		return fmt.Errorf("email provider not configured")
	}

	// Basic email validation
	if len(email) == 0 || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %s", email)
	}

	return s.emailProvider.SendEmail(email, subject, message)
}

// SendPasswordResetEmail sends the password reset link to the user
func (s *NotificationServiceImpl) SendPasswordResetEmail(email, resetToken string) error {
	body := fmt.Sprintf("A password reset was requested for your account.\n\nReset link: %s/reset-password?token=%s\n\nIf you did not request this, ignore this email.", s.resetURLBase, resetToken)
	return s.SendEmail(email, "Password Reset Request", body)
}

// SendTicketCreatedEmail confirms to the reporter that their ticket was filed
func (s *NotificationServiceImpl) SendTicketCreatedEmail(email, ticketDescription string) error {
	body := fmt.Sprintf("Your support ticket has been created and is now open:\n\n%s\n\nThe ICT team will follow up shortly.", ticketDescription)
	return s.SendEmail(email, "Support Ticket Created", body)
}

type MockEmailProvider struct{}

func NewMockEmailProvider() EmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) SendEmail(email, subject, message string) error {
	log.Printf("Email sent to %s: %s", email, subject)
	return nil
}
