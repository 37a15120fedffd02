package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/middleware"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// UserHandlerInterface defines the contract for user management handlers
type UserHandlerInterface interface {
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	ListICTStaff(c fiber.Ctx) error
	GetProfile(c fiber.Ctx) error
	UpdateProfile(c fiber.Ctx) error
}

// UserHandler handles user management HTTP requests
type UserHandler struct {
	flow      businessflow.UserFlow
	validator *validator.Validate
}

// NewUserHandler creates a new user handler
func NewUserHandler(flow businessflow.UserFlow) *UserHandler {
	return &UserHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *UserHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *UserHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// List Users
// @Description List every registered user. Admin only.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.UserDTO} "Users retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Router /api/v1/users [get]
func (h *UserHandler) List(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.flow.ListUsers(h.createRequestContext(c, "/api/v1/users"), actor)
	if err != nil {
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list users", "USER_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Users retrieved successfully", result)
}

// Get User
// @Description Fetch a single user. Admin or the user themselves.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO} "User retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) Get(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	userID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid user id", "INVALID_USER_ID", nil)
	}

	result, err := h.flow.GetUser(h.createRequestContext(c, "/api/v1/users/:id"), actor, userID)
	if err != nil {
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch user", "USER_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "User retrieved successfully", result)
}

// Update User
// @Description Update a user's profile fields, role, or active flag. Admin only.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.UpdateUserRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO} "User updated"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Router /api/v1/users/{id} [put]
func (h *UserHandler) Update(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	userID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid user id", "INVALID_USER_ID", nil)
	}

	var req dto.UpdateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.UpdateUser(h.createRequestContext(c, "/api/v1/users/:id"), actor, userID, &req, metadata)
	if err != nil {
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}
		if businessflow.IsInvalidRole(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Invalid role", "INVALID_ROLE", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update user", "USER_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "User updated successfully", result)
}

// Delete User
// @Description Delete a user account. The user's tickets, sessions, and messages go with it. Admin only.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse "User deleted"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Router /api/v1/users/{id} [delete]
func (h *UserHandler) Delete(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	userID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid user id", "INVALID_USER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	err = h.flow.DeleteUser(h.createRequestContext(c, "/api/v1/users/:id"), actor, userID, metadata)
	if err != nil {
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete user", "USER_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "User deleted successfully", nil)
}

// List ICT Staff
// @Description Directory of ICT staff members, visible to any authenticated user.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.UserSummaryDTO} "ICT staff retrieved"
// @Router /api/v1/ict-staff [get]
func (h *UserHandler) ListICTStaff(c fiber.Ctx) error {
	if _, ok := actorFromContext(c); !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.flow.ListICTStaff(h.createRequestContext(c, "/api/v1/ict-staff"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list ICT staff", "STAFF_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "ICT staff retrieved successfully", result)
}

// Get Profile
// @Description Fetch the authenticated user's own profile.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO} "Profile retrieved"
// @Router /api/v1/profile [get]
func (h *UserHandler) GetProfile(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.flow.GetProfile(h.createRequestContext(c, "/api/v1/profile"), actor.ID)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch profile", "PROFILE_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile retrieved successfully", result)
}

// Update Profile
// @Description Update the authenticated user's own profile. Role and active flag cannot be changed here.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO} "Profile updated"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Router /api/v1/profile [put]
func (h *UserHandler) UpdateProfile(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.UpdateProfileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.UpdateProfile(h.createRequestContext(c, "/api/v1/profile"), actor.ID, &req, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update profile", "PROFILE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile updated successfully", result)
}

func (h *UserHandler) validationErrorResponse(c fiber.Ctx, err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		first := validationErrors[0]
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, getValidationErrorMessage(first), "VALIDATION_ERROR", first.Field())
	}
	return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Validation failed", "VALIDATION_ERROR", err.Error())
}

func (h *UserHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *UserHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}

// actorFromContext builds the acting user from values set by the auth middleware
func actorFromContext(c fiber.Ctx) (businessflow.Actor, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		return businessflow.Actor{}, false
	}
	role, ok := middleware.GetUserRoleFromContext(c)
	if !ok {
		return businessflow.Actor{}, false
	}
	return businessflow.Actor{ID: userID, Role: role}, true
}

// parseIDParam parses a positive integer route parameter
func parseIDParam(c fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, strconv.ErrRange
	}
	return uint(id), nil
}
