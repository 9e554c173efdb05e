package workflow

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/llm"
	"github.com/healthmate/backend/internal/metrics"
	"github.com/healthmate/backend/internal/prompt"
	"github.com/healthmate/backend/internal/storage/models"
	"github.com/healthmate/backend/internal/validate"
	"github.com/healthmate/backend/pkg/logger"
	"github.com/healthmate/backend/pkg/retry"
)

// SymptomStore is the slice of storage the symptom workflow writes through.
type SymptomStore interface {
	InsertSymptomReport(report *models.SymptomReport) error
	InsertDiagnosisLog(log *models.DiagnosisLog) error
	UpdateFollowUpAnswers(reportID, userID string, answers map[string]bool) error
}

// SymptomRequest is the initial submission. Either Symptoms or Description
// must be present; free text becomes a single symptom entry.
type SymptomRequest struct {
	Description string                          `json:"description"`
	Symptoms    []string                        `json:"symptoms"`
	Details     map[string]models.SymptomDetail `json:"details"`
	Profile     models.Profile                  `json:"profile"`
}

func (r SymptomRequest) text() string {
	if r.Description != "" {
		return r.Description
	}
	return strings.Join(r.Symptoms, ", ")
}

func (r SymptomRequest) symptoms() []string {
	if len(r.Symptoms) > 0 {
		return r.Symptoms
	}
	return []string{r.Description}
}

// Checker drives the symptom-analysis state machine. Persistence is
// best-effort: a database failure marks the session's sync status but never
// withholds the analysis from the user.
type Checker struct {
	llm      llm.Completer
	store    SymptomStore
	sessions *SessionManager
}

func NewChecker(completer llm.Completer, store SymptomStore) *Checker {
	return &Checker{
		llm:      completer,
		store:    store,
		sessions: NewSessionManager(),
	}
}

// Session returns a detached copy of the session for serialization.
func (c *Checker) Session(id, userID string) (*Session, error) {
	sess, err := c.sessions.Get(id, userID)
	if err != nil {
		return nil, err
	}
	return sess.snapshot(), nil
}

// Start validates the submission, runs the first analysis pass and leaves the
// session in followup (questions pending), complete (no questions) or a
// terminal emergency/error state. Validation and emergency detection happen
// before any model call.
func (c *Checker) Start(ctx context.Context, userID string, req SymptomRequest) (*Session, error) {
	start := time.Now()
	sess := newSession(userID)

	result := validate.Classify(req.text())
	if result.Emergency {
		if err := sess.transition(StateEmergency); err != nil {
			return nil, err
		}
		sess.Message = result.Message
		c.sessions.put(sess)
		metrics.WorkflowTotal.WithLabelValues("symptom", "emergency").Inc()
		logger.Warn("Emergency phrases detected in symptom input",
			zap.String("session_id", sess.ID),
		)
		return sess.snapshot(), nil
	}
	if !result.Acceptable {
		sess.fail(ReasonValidation, result.Message)
		c.sessions.put(sess)
		metrics.WorkflowTotal.WithLabelValues("symptom", "rejected").Inc()
		return sess.snapshot(), nil
	}

	if err := sess.transition(StateAnalyzing); err != nil {
		return nil, err
	}

	input := prompt.SymptomInput{
		Symptoms: req.symptoms(),
		Details:  req.Details,
		Profile:  req.Profile,
	}

	raw, err := c.llm.Complete(ctx, llm.CompletionRequest{Prompt: prompt.BuildSymptomPrompt(input)})
	if err != nil {
		sess.fail(ReasonLLM, messageFor(err))
		c.sessions.put(sess)
		metrics.WorkflowTotal.WithLabelValues("symptom", "llm_error").Inc()
		return sess.snapshot(), nil
	}

	analysis, err := decodeSymptomAnalysis(raw)
	if err != nil {
		sess.fail(ReasonAnalysis, messageFor(err))
		c.sessions.put(sess)
		metrics.WorkflowTotal.WithLabelValues("symptom", "parse_error").Inc()
		logger.Error("Symptom analysis unparseable",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return sess.snapshot(), nil
	}

	report := &models.SymptomReport{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symptoms:  input.Symptoms,
		Details:   req.Details,
		Profile:   req.Profile,
		CreatedAt: time.Now(),
	}

	sess.Report = report
	sess.Analysis = analysis
	sess.Questions = analysis.FollowUpQuestions
	c.persistInitial(ctx, sess)

	next := StateComplete
	if len(sess.Questions) > 0 {
		next = StateFollowUp
	}
	if err := sess.transition(next); err != nil {
		return nil, err
	}

	c.sessions.put(sess)
	metrics.WorkflowTotal.WithLabelValues("symptom", "ok").Inc()
	metrics.WorkflowDuration.WithLabelValues("symptom", "initial").Observe(time.Since(start).Seconds())
	metrics.ConfidenceScore.Observe(analysis.Confidence)

	logger.Info("Symptom analysis complete",
		zap.String("session_id", sess.ID),
		zap.String("urgency", analysis.Urgency),
		zap.Int("followup_questions", len(sess.Questions)),
		zap.String("sync_status", sess.SyncStatus),
	)
	return sess.snapshot(), nil
}

// Refine runs the second analysis pass once every follow-up question has a
// yes/no answer. The refined analysis is logged as a second row against the
// same report; the initial row is never overwritten.
func (c *Checker) Refine(ctx context.Context, userID, sessionID string, answers map[string]bool) (*Session, error) {
	start := time.Now()

	sess, err := c.sessions.Get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	// The state check and the move to refining happen under the session
	// lock, so a second concurrent refine cannot pass the check.
	sess.mu.Lock()
	if sess.State != StateFollowUp {
		from := sess.State
		sess.mu.Unlock()
		return nil, &InvalidTransitionError{From: from, To: StateRefining}
	}

	for _, q := range sess.Questions {
		if _, ok := answers[q]; !ok {
			sess.mu.Unlock()
			return nil, &ValidationError{Message: "Please answer all follow-up questions before refining."}
		}
	}

	if err := sess.transition(StateRefining); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	sess.Answers = answers
	report := sess.Report
	previous, err := json.Marshal(sess.Analysis)
	sess.mu.Unlock()

	if err != nil {
		sess.failShared(ReasonAnalysis, genericFailureMessage)
		return sess.snapshot(), nil
	}

	input := prompt.RefinementInput{
		SymptomInput: prompt.SymptomInput{
			Symptoms: report.Symptoms,
			Details:  report.Details,
			Profile:  report.Profile,
		},
		Answers:          answers,
		PreviousAnalysis: string(previous),
	}

	raw, err := c.llm.Complete(ctx, llm.CompletionRequest{Prompt: prompt.BuildRefinementPrompt(input)})
	if err != nil {
		sess.failShared(ReasonLLM, messageFor(err))
		metrics.WorkflowTotal.WithLabelValues("symptom_refine", "llm_error").Inc()
		return sess.snapshot(), nil
	}

	refined, err := decodeSymptomAnalysis(raw)
	if err != nil {
		sess.failShared(ReasonAnalysis, messageFor(err))
		metrics.WorkflowTotal.WithLabelValues("symptom_refine", "parse_error").Inc()
		return sess.snapshot(), nil
	}

	refined.IsRefined = true
	refined.FollowUpQuestions = []string{}

	syncStatus := c.persistRefinement(ctx, sessionID, report.ID, userID, answers, refined)

	sess.mu.Lock()
	sess.Analysis = refined
	sess.SyncStatus = syncStatus
	err = sess.transition(StateComplete)
	sess.mu.Unlock()
	if err != nil {
		return nil, err
	}

	metrics.WorkflowTotal.WithLabelValues("symptom_refine", "ok").Inc()
	metrics.WorkflowDuration.WithLabelValues("symptom", "refine").Observe(time.Since(start).Seconds())
	metrics.ConfidenceScore.Observe(refined.Confidence)

	logger.Info("Symptom analysis refined",
		zap.String("session_id", sessionID),
		zap.String("urgency", refined.Urgency),
		zap.String("sync_status", syncStatus),
	)
	return sess.snapshot(), nil
}

func (c *Checker) persistInitial(ctx context.Context, sess *Session) {
	log := &models.DiagnosisLog{
		ID:         uuid.New().String(),
		UserID:     sess.UserID,
		ReportID:   sess.Report.ID,
		Analysis:   *sess.Analysis,
		Urgency:    sess.Analysis.Urgency,
		Confidence: sess.Analysis.Confidence,
		CreatedAt:  time.Now(),
	}

	reportInserted := false
	err := retry.Do(ctx, persistRetryConfig(), func() error {
		if !reportInserted {
			if err := c.store.InsertSymptomReport(sess.Report); err != nil {
				return err
			}
			reportInserted = true
		}
		return c.store.InsertDiagnosisLog(log)
	})
	if err != nil {
		sess.SyncStatus = SyncFailed
		metrics.PersistenceFailures.WithLabelValues("diagnosis_log").Inc()
		logger.Error("Failed to persist symptom analysis",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return
	}
	sess.SyncStatus = SyncSaved
}

func (c *Checker) persistRefinement(ctx context.Context, sessionID, reportID, userID string, answers map[string]bool, analysis *models.SymptomAnalysis) string {
	log := &models.DiagnosisLog{
		ID:         uuid.New().String(),
		UserID:     userID,
		ReportID:   reportID,
		Analysis:   *analysis,
		Urgency:    analysis.Urgency,
		Confidence: analysis.Confidence,
		IsRefined:  true,
		CreatedAt:  time.Now(),
	}

	err := retry.Do(ctx, persistRetryConfig(), func() error {
		if err := c.store.UpdateFollowUpAnswers(reportID, userID, answers); err != nil {
			return err
		}
		return c.store.InsertDiagnosisLog(log)
	})
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("diagnosis_log").Inc()
		logger.Error("Failed to persist refined analysis",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return SyncFailed
	}
	return SyncSaved
}

func persistRetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.Logger = logger.GetLogger()
	return cfg
}
