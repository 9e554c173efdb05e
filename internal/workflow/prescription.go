package workflow

import (
	"context"
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

type PrescriptionStore interface {
	InsertPrescriptionAnalysis(a *models.PrescriptionAnalysis) error
}

// PrescriptionResult pairs the explanation with how the save went; the
// explanation is returned even when the row did not make it to disk.
type PrescriptionResult struct {
	ID         string
	Analysis   *models.PrescriptionDetail
	SyncStatus string
}

// Explainer turns raw prescription text into a structured plain-language
// explanation. Single pass, no follow-up loop.
type Explainer struct {
	llm   llm.Completer
	store PrescriptionStore
}

func NewExplainer(completer llm.Completer, store PrescriptionStore) *Explainer {
	return &Explainer{llm: completer, store: store}
}

func (e *Explainer) Explain(ctx context.Context, userID, text string, profile models.Profile) (*PrescriptionResult, error) {
	start := time.Now()

	result := validate.Classify(text)
	if result.Emergency {
		metrics.WorkflowTotal.WithLabelValues("prescription", "emergency").Inc()
		logger.Warn("Emergency phrases detected in prescription text")
		return nil, &EmergencyError{Message: result.Message}
	}
	if !result.Acceptable {
		metrics.WorkflowTotal.WithLabelValues("prescription", "rejected").Inc()
		return nil, &ValidationError{Message: result.Message}
	}

	raw, err := e.llm.Complete(ctx, llm.CompletionRequest{
		Prompt: prompt.BuildPrescriptionPrompt(prompt.PrescriptionInput{Text: text, Profile: profile}),
	})
	if err != nil {
		metrics.WorkflowTotal.WithLabelValues("prescription", "llm_error").Inc()
		return nil, &WorkflowError{Message: messageFor(err), Err: err}
	}

	detail, err := decodePrescriptionDetail(raw)
	if err != nil {
		metrics.WorkflowTotal.WithLabelValues("prescription", "parse_error").Inc()
		logger.Error("Prescription analysis unparseable", zap.Error(err))
		return nil, &WorkflowError{Message: messageFor(err), Err: err}
	}

	row := &models.PrescriptionAnalysis{
		ID:        uuid.New().String(),
		UserID:    userID,
		RawText:   text,
		Analysis:  *detail,
		Profile:   profile,
		CreatedAt: time.Now(),
	}

	out := &PrescriptionResult{ID: row.ID, Analysis: detail, SyncStatus: SyncSaved}
	if err := retry.Do(ctx, persistRetryConfig(), func() error {
		return e.store.InsertPrescriptionAnalysis(row)
	}); err != nil {
		out.SyncStatus = SyncFailed
		metrics.PersistenceFailures.WithLabelValues("prescription_analysis").Inc()
		logger.Error("Failed to persist prescription analysis", zap.Error(err))
	}

	metrics.WorkflowTotal.WithLabelValues("prescription", "ok").Inc()
	metrics.WorkflowDuration.WithLabelValues("prescription", "explain").Observe(time.Since(start).Seconds())
	metrics.ConfidenceScore.Observe(detail.Confidence)

	logger.Info("Prescription explained",
		zap.Int("medications", len(detail.Medications)),
		zap.String("sync_status", out.SyncStatus),
	)
	return out, nil
}
