package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/storage/models"
	"github.com/healthmate/backend/internal/storage/sqlite"
	"github.com/healthmate/backend/internal/workflow"
	"github.com/healthmate/backend/pkg/logger"
)

type MedicationHandler struct {
	lookup *workflow.Lookup
	store  *sqlite.Client
}

func NewMedicationHandler(lookup *workflow.Lookup, store *sqlite.Client) *MedicationHandler {
	return &MedicationHandler{lookup: lookup, store: store}
}

func (h *MedicationHandler) HandleSearch(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	var req struct {
		Name    string         `json:"name"`
		Profile models.Profile `json:"profile"`
	}
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.lookup.Search(c.Context(), uid, req.Name, req.Profile)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":         result.ID,
		"medication": result.Info,
		"syncStatus": result.SyncStatus,
	})
}

func (h *MedicationHandler) HandleHistory(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	limit := c.QueryInt("limit", 50)
	rows, err := h.store.ListMedicationSearches(uid, limit)
	if err != nil {
		logger.Error("Failed to list medication searches", zap.Error(err))
		return respondError(c, err)
	}

	history := make([]fiber.Map, 0, len(rows))
	for _, r := range rows {
		history = append(history, fiber.Map{
			"id":         r.ID,
			"name":       r.Name,
			"medication": r.Info,
			"createdAt":  r.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"history": history})
}

func (h *MedicationHandler) HandleDelete(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	if err := h.store.DeleteMedicationSearch(c.Params("id"), uid); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
