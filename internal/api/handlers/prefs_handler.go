package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/prefs"
	"github.com/healthmate/backend/pkg/logger"
)

type PrefsHandler struct {
	store *prefs.Store
}

func NewPrefsHandler(store *prefs.Store) *PrefsHandler {
	return &PrefsHandler{store: store}
}

func (h *PrefsHandler) HandleGet(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	p, err := h.store.Load(c.Context(), uid)
	if err != nil {
		// Load already fell back to defaults; log and serve them.
		logger.Warn("Failed to load preferences", zap.Error(err))
	}

	return c.JSON(p)
}

func (h *PrefsHandler) HandlePut(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	p := prefs.Defaults()
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.store.Save(c.Context(), uid, p); err != nil {
		if errors.Is(err, prefs.ErrInvalidPreference) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		logger.Error("Failed to save preferences", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save preferences. Please try again.",
		})
	}

	return c.JSON(p)
}
