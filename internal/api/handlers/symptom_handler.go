package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/storage/models"
	"github.com/healthmate/backend/internal/storage/sqlite"
	"github.com/healthmate/backend/internal/workflow"
	"github.com/healthmate/backend/pkg/logger"
)

type SymptomHandler struct {
	checker *workflow.Checker
	store   *sqlite.Client
}

func NewSymptomHandler(checker *workflow.Checker, store *sqlite.Client) *SymptomHandler {
	return &SymptomHandler{checker: checker, store: store}
}

// HandleCheck starts a symptom-check session. Rejected input and emergency
// detection come back as session states, not transport errors.
func (h *SymptomHandler) HandleCheck(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	var req workflow.SymptomRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Description == "" && len(req.Symptoms) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Describe your symptoms or provide a symptom list",
		})
	}

	sess, err := h.checker.Start(c.Context(), uid, req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(statusForSession(sess)).JSON(sessionView(sess))
}

// HandleFollowUp submits yes/no answers and runs the refinement pass.
func (h *SymptomHandler) HandleFollowUp(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	var req struct {
		Answers map[string]bool `json:"answers"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if len(req.Answers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Answers are required",
		})
	}

	sess, err := h.checker.Refine(c.Context(), uid, c.Params("id"), req.Answers)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(statusForSession(sess)).JSON(sessionView(sess))
}

func (h *SymptomHandler) HandleGetSession(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	sess, err := h.checker.Session(c.Params("id"), uid)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(sessionView(sess))
}

func (h *SymptomHandler) HandleHistory(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	limit := c.QueryInt("limit", 50)
	logs, err := h.store.ListDiagnosisLogs(uid, limit)
	if err != nil {
		logger.Error("Failed to list diagnosis logs", zap.Error(err))
		return respondError(c, err)
	}
	if logs == nil {
		logs = []models.DiagnosisLog{}
	}

	history := make([]fiber.Map, 0, len(logs))
	for _, l := range logs {
		history = append(history, fiber.Map{
			"id":         l.ID,
			"reportId":   l.ReportID,
			"analysis":   l.Analysis,
			"urgency":    l.Urgency,
			"confidence": l.Confidence,
			"isRefined":  l.IsRefined,
			"createdAt":  l.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"history": history})
}

func (h *SymptomHandler) HandleDelete(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return missingUserID(c)
	}

	if err := h.store.DeleteSymptomReport(c.Params("id"), uid); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// statusForSession keeps HTTP transport concerns out of the workflow:
// validation rejections map to 400, everything else is a 200 whose body
// carries the state.
func statusForSession(sess *workflow.Session) int {
	if sess.State == workflow.StateError && sess.Reason == workflow.ReasonValidation {
		return fiber.StatusBadRequest
	}
	return fiber.StatusOK
}

func sessionView(sess *workflow.Session) fiber.Map {
	view := fiber.Map{
		"sessionId": sess.ID,
		"state":     sess.State.String(),
	}
	if sess.Message != "" {
		view["message"] = sess.Message
	}
	if sess.Report != nil {
		view["reportId"] = sess.Report.ID
	}
	if sess.Analysis != nil {
		view["analysis"] = sess.Analysis
	}
	if len(sess.Questions) > 0 && sess.State == workflow.StateFollowUp {
		view["followUpQuestions"] = sess.Questions
	}
	if sess.SyncStatus != "" {
		view["syncStatus"] = sess.SyncStatus
	}
	return view
}
