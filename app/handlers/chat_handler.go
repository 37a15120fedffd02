package handlers

import (
	"context"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ChatHandlerInterface defines the contract for chat session handlers
type ChatHandlerInterface interface {
	AvailableStaff(c fiber.Ctx) error
	Start(c fiber.Ctx) error
	ActiveSession(c fiber.Ctx) error
	AssignStaff(c fiber.Ctx) error
	Transfer(c fiber.Ctx) error
	End(c fiber.Ctx) error
	History(c fiber.Ctx) error
	ActiveSessions(c fiber.Ctx) error
	StaffSessions(c fiber.Ctx) error
}

// ChatHandler handles chat session HTTP requests
type ChatHandler struct {
	flow      businessflow.ChatSessionFlow
	validator *validator.Validate
}

// NewChatHandler creates a new chat handler
func NewChatHandler(flow businessflow.ChatSessionFlow) *ChatHandler {
	return &ChatHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *ChatHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ChatHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Available Staff
// @Description List ICT staff members not currently in an active chat session.
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.UserDTO} "Available staff retrieved"
// @Router /api/v1/chat/available-staff [get]
func (h *ChatHandler) AvailableStaff(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.flow.GetAvailableStaff(h.createRequestContext(c, "/api/v1/chat/available-staff"), actor)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list available staff", "STAFF_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Available staff retrieved successfully", result)
}

// Start Chat
// @Description Open a chat session on a ticket. If the ticket already has an active session it is returned instead. Requesting a busy staff member fails with a conflict.
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.StartChatRequest true "Ticket and optional staff"
// @Success 201 {object} dto.APIResponse{data=dto.ChatSessionDTO} "Chat session started"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Ticket not found"
// @Failure 409 {object} dto.APIResponse "Staff member unavailable"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Router /api/v1/chat/start [post]
func (h *ChatHandler) Start(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.StartChatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.StartChat(h.createRequestContext(c, "/api/v1/chat/start"), actor, &req, metadata)
	if err != nil {
		return h.chatErrorResponse(c, err, "Failed to start chat session", "CHAT_START_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Chat session started successfully", result)
}

// Active Session
// @Description Fetch the active chat session on a ticket.
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param ticket_id path int true "Ticket ID"
// @Success 200 {object} dto.APIResponse{data=dto.ChatSessionDTO} "Session retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "No active session"
// @Router /api/v1/chat/ticket/{ticket_id} [get]
func (h *ChatHandler) ActiveSession(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	ticketID, err := parseIDParam(c, "ticket_id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ticket id", "INVALID_TICKET_ID", nil)
	}

	result, err := h.flow.GetActiveSession(h.createRequestContext(c, "/api/v1/chat/ticket/:ticket_id"), actor, ticketID)
	if err != nil {
		return h.chatErrorResponse(c, err, "Failed to fetch chat session", "CHAT_FETCH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Chat session retrieved successfully", result)
}

// Assign Staff
// @Description Attach or reassign ICT staff on an active session. Admin only.
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Param request body dto.AssignStaffRequest true "Staff to assign"
// @Success 200 {object} dto.APIResponse{data=dto.ChatSessionDTO} "Staff assigned"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Session not found"
// @Failure 409 {object} dto.APIResponse "Session closed or staff unavailable"
// @Router /api/v1/chat/{id}/assign [put]
func (h *ChatHandler) AssignStaff(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", "INVALID_SESSION_ID", nil)
	}

	var req dto.AssignStaffRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.AssignStaff(h.createRequestContext(c, "/api/v1/chat/:id/assign"), actor, sessionID, &req, metadata)
	if err != nil {
		return h.chatErrorResponse(c, err, "Failed to assign staff", "CHAT_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Staff assigned successfully", result)
}

// Transfer Chat
// @Description Hand an active session to a different staff member. The transferring admin joins the session. Admin only.
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Param request body dto.TransferChatRequest true "Staff to transfer to"
// @Success 200 {object} dto.APIResponse{data=dto.ChatSessionDTO} "Chat transferred"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Session not found"
// @Failure 409 {object} dto.APIResponse "Session closed or staff unavailable"
// @Router /api/v1/chat/{id}/transfer [put]
func (h *ChatHandler) Transfer(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", "INVALID_SESSION_ID", nil)
	}

	var req dto.TransferChatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.TransferChat(h.createRequestContext(c, "/api/v1/chat/:id/transfer"), actor, sessionID, &req, metadata)
	if err != nil {
		return h.chatErrorResponse(c, err, "Failed to transfer chat session", "CHAT_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Chat session transferred successfully", result)
}

// End Session
// @Description Close an active chat session. Only participants may end it; closed is terminal.
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 200 {object} dto.APIResponse{data=dto.ChatSessionDTO} "Session ended"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Session not found"
// @Failure 409 {object} dto.APIResponse "Session already closed"
// @Router /api/v1/chat/{id}/end [put]
func (h *ChatHandler) End(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", "INVALID_SESSION_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.EndSession(h.createRequestContext(c, "/api/v1/chat/:id/end"), actor, sessionID, metadata)
	if err != nil {
		return h.chatErrorResponse(c, err, "Failed to end chat session", "CHAT_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Chat session ended successfully", result)
}

// Chat History
// @Description List every chat session on a ticket, oldest first. Ticket owner or admin.
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param ticket_id path int true "Ticket ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.ChatSessionDTO} "History retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Ticket not found"
// @Router /api/v1/chat/ticket/{ticket_id}/history [get]
func (h *ChatHandler) History(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	ticketID, err := parseIDParam(c, "ticket_id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ticket id", "INVALID_TICKET_ID", nil)
	}

	result, err := h.flow.GetChatHistory(h.createRequestContext(c, "/api/v1/chat/ticket/:ticket_id/history"), actor, ticketID)
	if err != nil {
		return h.chatErrorResponse(c, err, "Failed to fetch chat history", "CHAT_FETCH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Chat history retrieved successfully", result)
}

// Active Sessions
// @Description Dashboard of every active chat session. Admin only.
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.ChatSessionDTO} "Sessions retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Router /api/v1/chat/active [get]
func (h *ChatHandler) ActiveSessions(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.flow.ListActiveSessions(h.createRequestContext(c, "/api/v1/chat/active"), actor)
	if err != nil {
		return h.chatErrorResponse(c, err, "Failed to fetch active sessions", "CHAT_FETCH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Active sessions retrieved successfully", result)
}

// Staff Sessions
// @Description Dashboard of the authenticated staff member's active sessions.
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.ChatSessionDTO} "Sessions retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Router /api/v1/chat/staff [get]
func (h *ChatHandler) StaffSessions(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.flow.ListStaffSessions(h.createRequestContext(c, "/api/v1/chat/staff"), actor)
	if err != nil {
		return h.chatErrorResponse(c, err, "Failed to fetch staff sessions", "CHAT_FETCH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Staff sessions retrieved successfully", result)
}

// chatErrorResponse maps the shared chat error cases
func (h *ChatHandler) chatErrorResponse(c fiber.Ctx, err error, fallbackMsg, fallbackCode string) error {
	if businessflow.IsAccessDenied(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
	}
	if businessflow.IsTicketNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Ticket not found", "TICKET_NOT_FOUND", nil)
	}
	if businessflow.IsChatSessionNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Chat session not found", "CHAT_SESSION_NOT_FOUND", nil)
	}
	if businessflow.IsChatSessionNotActive(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Chat session is closed", "CHAT_SESSION_NOT_ACTIVE", nil)
	}
	if businessflow.IsStaffUnavailable(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Staff member is unavailable", "STAFF_UNAVAILABLE", nil)
	}
	if businessflow.IsStaffNotICTStaff(err) {
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Target must be ICT staff", "STAFF_NOT_ICT_STAFF", nil)
	}
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMsg, fallbackCode, nil)
}

func (h *ChatHandler) validationErrorResponse(c fiber.Ctx, err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		first := validationErrors[0]
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, getValidationErrorMessage(first), "VALIDATION_ERROR", first.Field())
	}
	return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Validation failed", "VALIDATION_ERROR", err.Error())
}

func (h *ChatHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *ChatHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
