package server

import (
	"strings"
	"time"

	"foreman/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetAdminModeRequests handles GET /api/admin/mode-requests?status=
// Defaults to the PENDING queue, which is what the review dashboard polls.
func (s *Server) GetAdminModeRequests(c *fiber.Ctx) error {
	ctx := c.Context()
	status := models.ModeRequestStatus(strings.TrimSpace(
		c.Query("status", string(models.ModeRequestStatusPending))))

	requests, err := s.modeSwitchService.ListByStatus(ctx, status)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(requests)
}

// ResolveModeRequest handles POST /api/admin/mode-requests/:id/resolve
func (s *Server) ResolveModeRequest(c *fiber.Ctx) error {
	resolverID := c.Locals("userID").(uint)
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Decision string `json:"decision"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	decision := models.Decision(strings.TrimSpace(body.Decision))
	return s.resolveModeRequest(c, requestID, resolverID, decision)
}

// ApproveModeRequest handles POST /api/admin/mode-requests/:id/approve
func (s *Server) ApproveModeRequest(c *fiber.Ctx) error {
	resolverID := c.Locals("userID").(uint)
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.resolveModeRequest(c, requestID, resolverID, models.DecisionApprove)
}

// RejectModeRequest handles POST /api/admin/mode-requests/:id/reject
func (s *Server) RejectModeRequest(c *fiber.Ctx) error {
	resolverID := c.Locals("userID").(uint)
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.resolveModeRequest(c, requestID, resolverID, models.DecisionReject)
}

func (s *Server) resolveModeRequest(c *fiber.Ctx, requestID, resolverID uint, decision models.Decision) error {
	ctx := c.Context()

	resolved, err := s.modeSwitchService.ResolveRequest(ctx, requestID, resolverID, decision)
	if err != nil {
		return respondServiceError(c, err)
	}

	resolvedAt := ""
	if resolved.ResolvedAt != nil {
		resolvedAt = resolved.ResolvedAt.Format(time.RFC3339Nano)
	}
	s.publishUserEvent(resolved.AccountID, EventModeRequestResolved, map[string]interface{}{
		"id":             resolved.ID,
		"account_id":     resolved.AccountID,
		"requested_mode": resolved.RequestedMode,
		"status":         resolved.Status,
		"resolved_at":    resolvedAt,
	})

	return c.JSON(resolved)
}
