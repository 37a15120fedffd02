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

// MessageHandlerInterface defines the contract for message handlers
type MessageHandlerInterface interface {
	SendToSession(c fiber.Ctx) error
	ListSession(c fiber.Ctx) error
	SendToTicket(c fiber.Ctx) error
	ListTicket(c fiber.Ctx) error
	MarkRead(c fiber.Ctx) error
	UnreadCount(c fiber.Ctx) error
	TotalUnread(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

// MessageHandler handles messaging HTTP requests
type MessageHandler struct {
	flow      businessflow.MessageFlow
	validator *validator.Validate
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(flow businessflow.MessageFlow) *MessageHandler {
	return &MessageHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *MessageHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *MessageHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Send Session Message
// @Description Append a message to an active chat session.
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Param request body dto.SendMessageRequest true "Message body"
// @Success 201 {object} dto.APIResponse{data=dto.MessageDTO} "Message sent"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Session not found"
// @Failure 409 {object} dto.APIResponse "Session closed"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Router /api/v1/chat/{id}/messages [post]
func (h *MessageHandler) SendToSession(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", "INVALID_SESSION_ID", nil)
	}

	var req dto.SendMessageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.SendSessionMessage(h.createRequestContext(c, "/api/v1/chat/:id/messages"), actor, sessionID, &req, metadata)
	if err != nil {
		return h.messageErrorResponse(c, err, "Failed to send message", "MESSAGE_SEND_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Message sent successfully", result)
}

// List Session Messages
// @Description List a session's messages oldest first. Listing marks messages from other participants as read, except for admin reads.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.MessageDTO} "Messages retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Session not found"
// @Router /api/v1/chat/{id}/messages [get]
func (h *MessageHandler) ListSession(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", "INVALID_SESSION_ID", nil)
	}

	result, err := h.flow.ListSessionMessages(h.createRequestContext(c, "/api/v1/chat/:id/messages"), actor, sessionID)
	if err != nil {
		return h.messageErrorResponse(c, err, "Failed to list messages", "MESSAGE_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Messages retrieved successfully", result)
}

// Send Ticket Message
// @Description Append a message directly to a ticket, outside any chat session.
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Param request body dto.SendMessageRequest true "Message body"
// @Success 201 {object} dto.APIResponse{data=dto.MessageDTO} "Message sent"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Ticket not found"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Router /api/v1/tickets/{id}/messages [post]
func (h *MessageHandler) SendToTicket(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ticket id", "INVALID_TICKET_ID", nil)
	}

	var req dto.SendMessageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.SendTicketMessage(h.createRequestContext(c, "/api/v1/tickets/:id/messages"), actor, ticketID, &req, metadata)
	if err != nil {
		return h.messageErrorResponse(c, err, "Failed to send message", "MESSAGE_SEND_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Message sent successfully", result)
}

// List Ticket Messages
// @Description List a ticket's direct messages oldest first. Listing marks the other side's messages as read.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.MessageDTO} "Messages retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Ticket not found"
// @Router /api/v1/tickets/{id}/messages [get]
func (h *MessageHandler) ListTicket(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ticket id", "INVALID_TICKET_ID", nil)
	}

	result, err := h.flow.ListTicketMessages(h.createRequestContext(c, "/api/v1/tickets/:id/messages"), actor, ticketID)
	if err != nil {
		return h.messageErrorResponse(c, err, "Failed to list messages", "MESSAGE_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Messages retrieved successfully", result)
}

// Mark Message Read
// @Description Mark a single message as read. Authors cannot mark their own messages.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} dto.APIResponse "Message marked as read"
// @Failure 403 {object} dto.APIResponse "Access denied or own message"
// @Failure 404 {object} dto.APIResponse "Message not found"
// @Router /api/v1/messages/{id}/read [put]
func (h *MessageHandler) MarkRead(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	messageID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid message id", "INVALID_MESSAGE_ID", nil)
	}

	err = h.flow.MarkMessageRead(h.createRequestContext(c, "/api/v1/messages/:id/read"), actor, messageID)
	if err != nil {
		if businessflow.IsCannotMarkOwnRead(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Cannot mark your own message as read", "CANNOT_MARK_OWN_READ", nil)
		}
		return h.messageErrorResponse(c, err, "Failed to mark message as read", "MESSAGE_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Message marked as read", nil)
}

// Unread Count
// @Description Unread message count on a ticket for the authenticated user, covering both message channels.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Success 200 {object} dto.APIResponse{data=dto.UnreadCountDTO} "Count retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Ticket not found"
// @Router /api/v1/tickets/{id}/messages/unread [get]
func (h *MessageHandler) UnreadCount(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ticket id", "INVALID_TICKET_ID", nil)
	}

	result, err := h.flow.UnreadCount(h.createRequestContext(c, "/api/v1/tickets/:id/messages/unread"), actor, ticketID)
	if err != nil {
		return h.messageErrorResponse(c, err, "Failed to count unread messages", "MESSAGE_COUNT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Unread count retrieved successfully", result)
}

// Total Unread
// @Description Total unread messages across the tickets visible to the caller. Users see their own tickets, ICT staff their assignments, admins everything.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.TotalUnreadDTO} "Total retrieved"
// @Router /api/v1/messages/unread [get]
func (h *MessageHandler) TotalUnread(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.flow.TotalUnread(h.createRequestContext(c, "/api/v1/messages/unread"), actor)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count unread messages", "MESSAGE_COUNT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Total unread retrieved successfully", result)
}

// Delete Message
// @Description Delete a message. Author or admin.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} dto.APIResponse "Message deleted"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Message not found"
// @Router /api/v1/messages/{id} [delete]
func (h *MessageHandler) Delete(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	messageID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid message id", "INVALID_MESSAGE_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	err = h.flow.DeleteMessage(h.createRequestContext(c, "/api/v1/messages/:id"), actor, messageID, metadata)
	if err != nil {
		return h.messageErrorResponse(c, err, "Failed to delete message", "MESSAGE_DELETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Message deleted successfully", nil)
}

// messageErrorResponse maps the shared messaging error cases
func (h *MessageHandler) messageErrorResponse(c fiber.Ctx, err error, fallbackMsg, fallbackCode string) error {
	if businessflow.IsAccessDenied(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
	}
	if businessflow.IsTicketNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Ticket not found", "TICKET_NOT_FOUND", nil)
	}
	if businessflow.IsChatSessionNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Chat session not found", "CHAT_SESSION_NOT_FOUND", nil)
	}
	if businessflow.IsMessageNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Message not found", "MESSAGE_NOT_FOUND", nil)
	}
	if businessflow.IsChatSessionNotActive(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Chat session is closed", "CHAT_SESSION_NOT_ACTIVE", nil)
	}
	if businessflow.IsMessageBodyInvalid(err) {
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Message must be between 1 and 1000 characters", "MESSAGE_BODY_INVALID", nil)
	}
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMsg, fallbackCode, nil)
}

func (h *MessageHandler) validationErrorResponse(c fiber.Ctx, err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		first := validationErrors[0]
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, getValidationErrorMessage(first), "VALIDATION_ERROR", first.Field())
	}
	return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Validation failed", "VALIDATION_ERROR", err.Error())
}

func (h *MessageHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *MessageHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
