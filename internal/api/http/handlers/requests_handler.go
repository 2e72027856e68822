package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-tracker/internal/api/dto"
	"github.com/spec-kit/maintenance-tracker/internal/domain"
	"github.com/spec-kit/maintenance-tracker/internal/service"
)

// RequestsHandler manages maintenance request endpoints.
type RequestsHandler struct {
	service   *service.RequestService
	validator *dto.Validator
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService, validator *dto.Validator) *RequestsHandler {
	return &RequestsHandler{service: requestService, validator: validator}
}

// Create handles POST /users/:user_id/requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateRequestRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	request, err := h.service.Create(c.UserContext(), actor(c), c.Params("user_id"), service.CreateRequestInput{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewRequestResponse(request), "request created successfully")
}

// ListForOwner handles GET /users/:user_id/requests.
func (h *RequestsHandler) ListForOwner(c *fiber.Ctx) error {
	requests, err := h.service.ListForOwner(c.UserContext(), actor(c), c.Params("user_id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewRequestResponses(requests), "")
}

// GetForOwner handles GET /users/:user_id/requests/:request_id.
func (h *RequestsHandler) GetForOwner(c *fiber.Ctx) error {
	request, err := h.service.GetForOwner(c.UserContext(), actor(c), c.Params("user_id"), c.Params("request_id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewRequestResponse(request), "")
}

// Edit handles PATCH /users/:user_id/requests/:request_id.
func (h *RequestsHandler) Edit(c *fiber.Ctx) error {
	var req dto.EditRequestRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	request, err := h.service.Edit(c.UserContext(), actor(c), c.Params("user_id"), c.Params("request_id"), service.EditRequestInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewRequestResponse(request), "request modified successfully")
}

// Delete handles DELETE /users/:user_id/requests/:request_id.
func (h *RequestsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), actor(c), c.Params("user_id"), c.Params("request_id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "request deleted successfully")
}

// ListAll handles GET /requests with an optional ?status= filter.
func (h *RequestsHandler) ListAll(c *fiber.Ctx) error {
	var filter domain.RequestFilter
	if raw := c.Query("status"); raw != "" {
		status, err := domain.ParseRequestStatus(raw)
		if err != nil {
			return err
		}
		filter.Status = &status
	}
	requests, err := h.service.ListAll(c.UserContext(), actor(c), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewRequestResponses(requests), "")
}

// Get handles GET /requests/:request_id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	request, err := h.service.Get(c.UserContext(), actor(c), c.Params("request_id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewRequestResponse(request), "")
}

// Respond handles PUT /requests/:request_id/:action.
func (h *RequestsHandler) Respond(c *fiber.Ctx) error {
	request, err := h.service.Respond(c.UserContext(), actor(c), c.Params("request_id"), c.Params("action"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewRequestResponse(request), "request updated successfully")
}

// History handles GET /requests/:request_id/history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	entries, err := h.service.History(c.UserContext(), actor(c), c.Params("request_id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewHistoryResponses(entries), "")
}
