// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/middleware"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Register(c fiber.Ctx) error
	RegisterStaff(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	ForgotPassword(c fiber.Ctx) error
	ResetPassword(c fiber.Ctx) error
}

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	signupFlow businessflow.SignupFlow
	loginFlow  businessflow.LoginFlow
	validator  *validator.Validate
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(signupFlow businessflow.SignupFlow, loginFlow businessflow.LoginFlow) *AuthHandler {
	return &AuthHandler{
		signupFlow: signupFlow,
		loginFlow:  loginFlow,
		validator:  validator.New(),
	}
}

func (h *AuthHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AuthHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Register User
// @Description Self-register a new staff account. The created account always holds the other_staff role.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration data"
// @Success 201 {object} dto.APIResponse{data=dto.UserDTO} "Account created successfully"
// @Failure 409 {object} dto.APIResponse "Email already registered"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/register [post]
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.signupFlow.Register(h.createRequestContext(c, "/api/v1/register"), &req, metadata)
	if err != nil {
		if businessflow.IsEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email is already registered", dto.ErrorEmailExists, nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Registration failed", "REGISTRATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Account created successfully", result)
}

// Register Staff
// @Description Create an ICT staff or admin account.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.StaffRegisterRequest true "Staff registration data"
// @Success 201 {object} dto.APIResponse{data=dto.UserDTO} "Account created successfully"
// @Failure 409 {object} dto.APIResponse "Email already registered"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/stregister [post]
func (h *AuthHandler) RegisterStaff(c fiber.Ctx) error {
	var req dto.StaffRegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.signupFlow.RegisterStaff(h.createRequestContext(c, "/api/v1/stregister"), &req, metadata)
	if err != nil {
		if businessflow.IsEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email is already registered", dto.ErrorEmailExists, nil)
		}
		if businessflow.IsInvalidRole(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Invalid role", "INVALID_ROLE", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Registration failed", "REGISTRATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Account created successfully", result)
}

// Login
// @Description Authenticate with email and password and receive a bearer token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponseData} "Login successful"
// @Failure 401 {object} dto.APIResponse "Incorrect password or inactive account"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/signin [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.loginFlow.Login(h.createRequestContext(c, "/api/v1/signin"), &req, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}
		if businessflow.IsIncorrectPassword(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Incorrect password", dto.ErrorIncorrectPassword, nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Account is inactive", dto.ErrorAccountInactive, nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Logout
// @Description Revoke the presented bearer token and close the server-side session.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Logout successful"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}
	token, _ := middleware.GetTokenFromContext(c)
	tokenID, _ := middleware.GetTokenIDFromContext(c)

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	err := h.loginFlow.Logout(h.createRequestContext(c, "/api/v1/logout"), token, tokenID, userID, metadata)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Logout failed", "LOGOUT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Logout successful", nil)
}

// Forgot Password
// @Description Start a password reset. A reset token is emailed to the account.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.ForgotPasswordRequest true "Account email"
// @Success 200 {object} dto.APIResponse "Reset email sent"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	err := h.loginFlow.ForgotPassword(h.createRequestContext(c, "/api/v1/forgot-password"), &req, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start password reset", "PASSWORD_RESET_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Password reset email sent", nil)
}

// Reset Password
// @Description Complete a password reset using the emailed token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} dto.APIResponse "Password reset successful"
// @Failure 422 {object} dto.APIResponse "Invalid or expired token, or validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/reset-password [post]
func (h *AuthHandler) ResetPassword(c fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	err := h.loginFlow.ResetPassword(h.createRequestContext(c, "/api/v1/reset-password"), &req, metadata)
	if err != nil {
		if businessflow.IsResetTokenInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Reset token is invalid", dto.ErrorResetTokenInvalid, nil)
		}
		if businessflow.IsResetTokenExpired(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Reset token has expired", dto.ErrorResetTokenExpired, nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reset password", "PASSWORD_RESET_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Password reset successful", nil)
}

func (h *AuthHandler) validationErrorResponse(c fiber.Ctx, err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		first := validationErrors[0]
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, getValidationErrorMessage(first), "VALIDATION_ERROR", first.Field())
	}
	return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Validation failed", "VALIDATION_ERROR", err.Error())
}

func (h *AuthHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *AuthHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
