package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/llm"
	"github.com/healthmate/backend/internal/storage/sqlite"
	"github.com/healthmate/backend/internal/workflow"
	"github.com/healthmate/backend/pkg/logger"
)

// userID reads the identity header. There is no authentication layer; the
// header scopes ownership and nothing else.
func userID(c *fiber.Ctx) (string, bool) {
	id := c.Get("X-User-ID")
	if id == "" {
		return "", false
	}
	return id, true
}

func missingUserID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "X-User-ID header is required",
	})
}

// respondError maps the error taxonomy onto HTTP statuses. Workflow errors
// carry a user-facing message; everything else gets a generic body.
func respondError(c *fiber.Ctx, err error) error {
	// Emergency detection is a result, not a failure: 200 with a directive
	// payload, mirroring the emergency session state.
	var emergencyErr *workflow.EmergencyError
	if errors.As(err, &emergencyErr) {
		return c.JSON(fiber.Map{
			"emergency": true,
			"message":   emergencyErr.Message,
		})
	}

	var validationErr *workflow.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validationErr.Message,
		})
	}

	if errors.Is(err, workflow.ErrSessionNotFound) || errors.Is(err, sqlite.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})
	}

	var transitionErr *workflow.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "This session is not ready for that step.",
		})
	}

	var wfErr *workflow.WorkflowError
	if errors.As(err, &wfErr) {
		return c.Status(statusForKind(llm.KindOf(wfErr.Err))).JSON(fiber.Map{
			"error": wfErr.Message,
		})
	}

	logger.Error("Unhandled error in request", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Something went wrong. Please try again.",
	})
}

func statusForKind(kind llm.ErrorKind) int {
	switch kind {
	case llm.KindRateLimited:
		return fiber.StatusTooManyRequests
	case llm.KindNetwork, llm.KindServiceUnavailable:
		return fiber.StatusServiceUnavailable
	case llm.KindNotConfigured, llm.KindInvalidKey, llm.KindUnauthorized:
		return fiber.StatusBadGateway
	default:
		// Parse failures and refusals land here too.
		return fiber.StatusBadGateway
	}
}
