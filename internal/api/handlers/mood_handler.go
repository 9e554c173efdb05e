package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/analytics"
	"github.com/healthmate/backend/internal/workflow"
	"github.com/healthmate/backend/pkg/logger"
)

type MoodHandler struct {
	journal *workflow.Journal
}

func NewMoodHandler(journal *workflow.Journal) *MoodHandler {
	return &MoodHandler{journal: journal}
}

// HandleSave upserts the entry for the given date; PUT twice on the same day
// updates in place.
func (h *MoodHandler) HandleSave(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	var req workflow.MoodEntryRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	entry, err := h.journal.Save(c.Context(), uid, req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":          entry.ID,
		"date":        entry.Date,
		"mood":        entry.Mood,
		"emotions":    entry.Emotions,
		"activities":  entry.Activities,
		"notes":       entry.Notes,
		"sleepHours":  entry.SleepHours,
		"energyLevel": entry.EnergyLevel,
		"updatedAt":   entry.UpdatedAt,
	})
}

func (h *MoodHandler) HandleList(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	entries, err := h.journal.List(c.Context(), uid, c.Query("from"), c.Query("to"), c.QueryInt("limit", 0))
	if err != nil {
		logger.Error("Failed to list mood entries", zap.Error(err))
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"entries": entries})
}

// HandleAnalytics computes derived stats over a date range in memory.
func (h *MoodHandler) HandleAnalytics(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	entries, err := h.journal.List(c.Context(), uid, c.Query("from"), c.Query("to"), c.QueryInt("limit", 0))
	if err != nil {
		logger.Error("Failed to load mood entries for analytics", zap.Error(err))
		return respondError(c, err)
	}

	return c.JSON(analytics.Summarize(entries))
}

// HandleInsight asks the model about journal patterns; nothing is persisted.
func (h *MoodHandler) HandleInsight(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	insight, err := h.journal.Insight(c.Context(), uid, c.Query("from"), c.Query("to"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(insight)
}

func (h *MoodHandler) HandleDelete(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	if err := h.journal.Delete(c.Context(), uid, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
