package server

import (
	"strings"
	"time"

	"foreman/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateModeRequest handles POST /api/mode-requests
func (s *Server) CreateModeRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)

	var req struct {
		RequestedMode string `json:"requested_mode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	requestedMode := models.ViewMode(strings.TrimSpace(req.RequestedMode))

	created, err := s.modeSwitchService.CreateRequest(ctx, userID, requestedMode)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishAdminEvent(EventModeRequestCreated, map[string]interface{}{
		"id":             created.ID,
		"account_id":     created.AccountID,
		"requested_mode": created.RequestedMode,
		"status":         created.Status,
		"created_at":     created.CreatedAt.Format(time.RFC3339Nano),
	})

	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetActiveModeRequest handles GET /api/mode-requests/active.
// Responds 200 with the pending request, or 204 when the account has none.
func (s *Server) GetActiveModeRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)

	active, err := s.modeSwitchService.GetActiveRequest(ctx, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if active == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.JSON(active)
}

// GetMyModeRequests handles GET /api/mode-requests/me
func (s *Server) GetMyModeRequests(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)

	requests, err := s.modeSwitchService.ListByAccount(ctx, userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(requests)
}
