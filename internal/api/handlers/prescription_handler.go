package handlers

import (
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/ingestion"
	"github.com/healthmate/backend/internal/storage/models"
	"github.com/healthmate/backend/internal/storage/sqlite"
	"github.com/healthmate/backend/internal/workflow"
	"github.com/healthmate/backend/pkg/logger"
)

// maxUploadBytes caps prescription PDF uploads.
const maxUploadBytes = 10 << 20

type PrescriptionHandler struct {
	explainer *workflow.Explainer
	processor *ingestion.Processor
	store     *sqlite.Client
}

func NewPrescriptionHandler(explainer *workflow.Explainer, processor *ingestion.Processor, store *sqlite.Client) *PrescriptionHandler {
	return &PrescriptionHandler{
		explainer: explainer,
		processor: processor,
		store:     store,
	}
}

func (h *PrescriptionHandler) HandleAnalyze(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	var req struct {
		Text    string         `json:"text"`
		Profile models.Profile `json:"profile"`
	}
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Prescription text is required",
		})
	}

	result, err := h.explainer.Explain(c.Context(), uid, req.Text, req.Profile)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":         result.ID,
		"analysis":   result.Analysis,
		"syncStatus": result.SyncStatus,
	})
}

// HandleAnalyzePDF accepts a multipart PDF upload, extracts its text and runs
// the same analysis as the text endpoint. Profile fields ride along as form
// values.
func (h *PrescriptionHandler) HandleAnalyzePDF(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A PDF file upload named 'file' is required",
		})
	}
	if fileHeader.Size > maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "File is too large. Please keep uploads under 10 MB.",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open upload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not read the uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("Failed to read upload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not read the uploaded file",
		})
	}

	text, err := h.processor.ExtractText(data)
	if err != nil {
		logger.Warn("PDF text extraction failed", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not extract text from this PDF. Scanned images are not supported; please paste the prescription text instead.",
		})
	}

	profile := models.Profile{Gender: c.FormValue("gender")}
	if age, err := strconv.Atoi(c.FormValue("age")); err == nil {
		profile.Age = age
	}

	result, err := h.explainer.Explain(c.Context(), uid, text, profile)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":            result.ID,
		"analysis":      result.Analysis,
		"syncStatus":    result.SyncStatus,
		"extractedText": text,
	})
}

func (h *PrescriptionHandler) HandleHistory(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	limit := c.QueryInt("limit", 50)
	rows, err := h.store.ListPrescriptionAnalyses(uid, limit)
	if err != nil {
		logger.Error("Failed to list prescription analyses", zap.Error(err))
		return respondError(c, err)
	}

	history := make([]fiber.Map, 0, len(rows))
	for _, r := range rows {
		history = append(history, fiber.Map{
			"id":        r.ID,
			"analysis":  r.Analysis,
			"createdAt": r.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"history": history})
}

func (h *PrescriptionHandler) HandleDelete(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	if err := h.store.DeletePrescriptionAnalysis(c.Params("id"), uid); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
