package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/prefs"
	"github.com/healthmate/backend/internal/report"
	"github.com/healthmate/backend/pkg/logger"
)

type ReportHandler struct {
	generator *report.Generator
	prefs     *prefs.Store
}

func NewReportHandler(generator *report.Generator, prefsStore *prefs.Store) *ReportHandler {
	return &ReportHandler{generator: generator, prefs: prefsStore}
}

func (h *ReportHandler) HandleGenerate(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	var req report.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	row, err := h.generator.Generate(c.Context(), uid, req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":          row.ID,
		"reportType":  row.ReportType,
		"data":        row.Data,
		"generatedAt": row.GeneratedAt,
	})
}

func (h *ReportHandler) HandleList(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	rows, err := h.generator.List(uid, c.QueryInt("limit", 0))
	if err != nil {
		logger.Error("Failed to list health reports", zap.Error(err))
		return respondError(c, err)
	}

	reports := make([]fiber.Map, 0, len(rows))
	for _, r := range rows {
		reports = append(reports, fiber.Map{
			"id":          r.ID,
			"reportType":  r.ReportType,
			"generatedAt": r.GeneratedAt,
		})
	}

	return c.JSON(fiber.Map{"reports": reports})
}

func (h *ReportHandler) HandleGet(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	row, err := h.generator.Get(uid, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":          row.ID,
		"reportType":  row.ReportType,
		"data":        row.Data,
		"generatedAt": row.GeneratedAt,
	})
}

// HandleExport renders a report for download. Format comes from the query
// string, falling back to the user's saved preference.
func (h *ReportHandler) HandleExport(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	row, err := h.generator.Get(uid, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	format := c.Query("format")
	if format == "" {
		p, err := h.prefs.Load(c.Context(), uid)
		if err != nil {
			logger.Warn("Failed to load preferences for export", zap.Error(err))
		}
		format = p.ExportFormat
	}

	switch format {
	case "json":
		out, err := report.ExportJSON(row)
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="health-report.json"`)
		return c.Type("json").Send(out)
	case "html":
		out, err := report.ExportHTML(row)
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="health-report.html"`)
		return c.Type("html").Send(out)
	case "pdf":
		out, err := report.ExportPDF(row)
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="health-report.pdf"`)
		return c.Type("pdf").Send(out)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported export format. Use html, pdf or json.",
		})
	}
}

func (h *ReportHandler) HandleDelete(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	if err := h.generator.Delete(uid, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
