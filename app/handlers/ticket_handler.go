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

// TicketHandlerInterface defines the contract for ticket handlers
type TicketHandlerInterface interface {
	Create(c fiber.Ctx) error
	List(c fiber.Ctx) error
	ListMine(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	Export(c fiber.Ctx) error
}

// TicketHandler handles ticket-related HTTP requests
type TicketHandler struct {
	flow      businessflow.TicketFlow
	validator *validator.Validate
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(flow businessflow.TicketFlow) *TicketHandler {
	return &TicketHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *TicketHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *TicketHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Create Ticket
// @Description Open a new helpdesk ticket. The reporter's name and department are snapshotted onto the ticket.
// @Tags Tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateTicketRequest true "Ticket data"
// @Success 201 {object} dto.APIResponse{data=dto.TicketDTO} "Ticket created"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/issues [post]
func (h *TicketHandler) Create(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.CreateTicketRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.CreateTicket(h.createRequestContext(c, "/api/v1/issues"), actor, &req, metadata)
	if err != nil {
		if be, ok := err.(*businessflow.BusinessError); ok && be.Code == "TICKET_DESCRIPTION_REQUIRED" {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Ticket description is required", be.Code, nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create ticket", "TICKET_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Ticket created successfully", result)
}

// List Tickets
// @Description List every ticket in the system. Admin only.
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.TicketDTO} "Tickets retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Router /api/v1/issues [get]
func (h *TicketHandler) List(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.flow.ListTickets(h.createRequestContext(c, "/api/v1/issues"), actor)
	if err != nil {
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list tickets", "TICKET_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tickets retrieved successfully", result)
}

// List My Tickets
// @Description List the authenticated user's own tickets.
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.TicketDTO} "Tickets retrieved"
// @Router /api/v1/issues/my [get]
func (h *TicketHandler) ListMine(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.flow.ListMyTickets(h.createRequestContext(c, "/api/v1/issues/my"), actor)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list tickets", "TICKET_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tickets retrieved successfully", result)
}

// Get Ticket
// @Description Fetch a single ticket. Ticket owner or admin.
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Success 200 {object} dto.APIResponse{data=dto.TicketDTO} "Ticket retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Ticket not found"
// @Router /api/v1/issues/{id} [get]
func (h *TicketHandler) Get(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ticket id", "INVALID_TICKET_ID", nil)
	}

	result, err := h.flow.GetTicket(h.createRequestContext(c, "/api/v1/issues/:id"), actor, ticketID)
	if err != nil {
		return h.ticketErrorResponse(c, err, "Failed to fetch ticket", "TICKET_FETCH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Ticket retrieved successfully", result)
}

// Update Ticket
// @Description Update a ticket's status, description, or assignee. Owner, admin, or assigned ICT staff. The action field (complete or escalate) takes precedence over a raw status.
// @Tags Tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Param request body dto.UpdateTicketRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.TicketDTO} "Ticket updated"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Ticket not found"
// @Failure 409 {object} dto.APIResponse "Invalid status transition"
// @Failure 422 {object} dto.APIResponse "Validation error"
// @Router /api/v1/issues/{id} [put]
func (h *TicketHandler) Update(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ticket id", "INVALID_TICKET_ID", nil)
	}

	var req dto.UpdateTicketRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.validationErrorResponse(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.UpdateTicket(h.createRequestContext(c, "/api/v1/issues/:id"), actor, ticketID, &req, metadata)
	if err != nil {
		if businessflow.IsInvalidStatusTransition(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Invalid status transition", "INVALID_STATUS_TRANSITION", nil)
		}
		if businessflow.IsInvalidTicketStatus(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Invalid ticket status", "INVALID_TICKET_STATUS", nil)
		}
		if businessflow.IsAssigneeNotICTStaff(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Assignee must be ICT staff", "ASSIGNEE_NOT_ICT_STAFF", nil)
		}
		return h.ticketErrorResponse(c, err, "Failed to update ticket", "TICKET_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Ticket updated successfully", result)
}

// Delete Ticket
// @Description Delete a ticket with its sessions and messages. Owner or admin.
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ticket ID"
// @Success 200 {object} dto.APIResponse "Ticket deleted"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Ticket not found"
// @Router /api/v1/issues/{id} [delete]
func (h *TicketHandler) Delete(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ticket id", "INVALID_TICKET_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	err = h.flow.DeleteTicket(h.createRequestContext(c, "/api/v1/issues/:id"), actor, ticketID, metadata)
	if err != nil {
		return h.ticketErrorResponse(c, err, "Failed to delete ticket", "TICKET_DELETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Ticket deleted successfully", nil)
}

// Export Tickets
// @Description Download every ticket as an XLSX workbook. Admin only.
// @Tags Tickets
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} binary "XLSX export"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Router /api/v1/issues/export [get]
func (h *TicketHandler) Export(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	data, err := h.flow.ExportTickets(h.createRequestContext(c, "/api/v1/issues/export"), actor)
	if err != nil {
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export tickets", "TICKET_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="tickets.xlsx"`)
	return c.Status(fiber.StatusOK).Send(data)
}

// ticketErrorResponse maps the shared ticket error cases
func (h *TicketHandler) ticketErrorResponse(c fiber.Ctx, err error, fallbackMsg, fallbackCode string) error {
	if businessflow.IsAccessDenied(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
	}
	if businessflow.IsTicketNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Ticket not found", "TICKET_NOT_FOUND", nil)
	}
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMsg, fallbackCode, nil)
}

func (h *TicketHandler) validationErrorResponse(c fiber.Ctx, err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		first := validationErrors[0]
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, getValidationErrorMessage(first), "VALIDATION_ERROR", first.Field())
	}
	return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Validation failed", "VALIDATION_ERROR", err.Error())
}

func (h *TicketHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *TicketHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
