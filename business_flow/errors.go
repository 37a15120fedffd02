// Package businessflow contains the core business logic and use cases for helpdesk workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidRole        = errors.New("invalid role")

	// Password reset errors
	ErrResetTokenInvalid = errors.New("reset token is invalid")
	ErrResetTokenExpired = errors.New("reset token has expired")

	// Authorization errors
	ErrAccessDenied = errors.New("access denied")

	// Ticket-related errors
	ErrTicketNotFound           = errors.New("ticket not found")
	ErrInvalidTicketStatus      = errors.New("invalid ticket status")
	ErrInvalidStatusTransition  = errors.New("status transition not allowed")
	ErrAssigneeNotICTStaff      = errors.New("assignee must be ICT staff")
	ErrTicketDescriptionMissing = errors.New("ticket description is required")

	// Chat session errors
	ErrChatSessionNotFound  = errors.New("chat session not found")
	ErrChatSessionNotActive = errors.New("chat session is not active")
	ErrStaffUnavailable     = errors.New("staff member is currently unavailable")
	ErrStaffNotICTStaff     = errors.New("staff member must be ICT staff")

	// Message errors
	ErrMessageNotFound    = errors.New("message not found")
	ErrMessageBodyInvalid = errors.New("message must be between 1 and 1000 characters")
	ErrCannotMarkOwnRead  = errors.New("cannot mark own message as read")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsInvalidRole(err error) bool {
	return errors.Is(err, ErrInvalidRole)
}

func IsResetTokenInvalid(err error) bool {
	return errors.Is(err, ErrResetTokenInvalid)
}

func IsResetTokenExpired(err error) bool {
	return errors.Is(err, ErrResetTokenExpired)
}

func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

func IsTicketNotFound(err error) bool {
	return errors.Is(err, ErrTicketNotFound)
}

func IsInvalidTicketStatus(err error) bool {
	return errors.Is(err, ErrInvalidTicketStatus)
}

func IsInvalidStatusTransition(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition)
}

func IsAssigneeNotICTStaff(err error) bool {
	return errors.Is(err, ErrAssigneeNotICTStaff)
}

func IsChatSessionNotFound(err error) bool {
	return errors.Is(err, ErrChatSessionNotFound)
}

func IsChatSessionNotActive(err error) bool {
	return errors.Is(err, ErrChatSessionNotActive)
}

func IsStaffUnavailable(err error) bool {
	return errors.Is(err, ErrStaffUnavailable)
}

func IsStaffNotICTStaff(err error) bool {
	return errors.Is(err, ErrStaffNotICTStaff)
}

func IsMessageNotFound(err error) bool {
	return errors.Is(err, ErrMessageNotFound)
}

func IsMessageBodyInvalid(err error) bool {
	return errors.Is(err, ErrMessageBodyInvalid)
}

func IsCannotMarkOwnRead(err error) bool {
	return errors.Is(err, ErrCannotMarkOwnRead)
}
