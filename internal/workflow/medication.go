package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/llm"
	"github.com/healthmate/backend/internal/metrics"
	"github.com/healthmate/backend/internal/prompt"
	"github.com/healthmate/backend/internal/storage/models"
	"github.com/healthmate/backend/pkg/logger"
	"github.com/healthmate/backend/pkg/retry"
)

type MedicationStore interface {
	InsertMedicationSearch(s *models.MedicationSearch) error
}

type MedicationResult struct {
	ID         string
	Info       *models.MedicationInfo
	SyncStatus string
}

// Lookup answers "what is this medication" queries. Every call goes to the
// model; the search table is history, not a cache.
type Lookup struct {
	llm   llm.Completer
	store MedicationStore
}

func NewLookup(completer llm.Completer, store MedicationStore) *Lookup {
	return &Lookup{llm: completer, store: store}
}

const maxMedicationNameLen = 100

func (l *Lookup) Search(ctx context.Context, userID, name string, profile models.Profile) (*MedicationResult, error) {
	start := time.Now()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Message: "Please enter a medication name."}
	}
	if len(name) > maxMedicationNameLen {
		return nil, &ValidationError{Message: "Medication name is too long."}
	}

	raw, err := l.llm.Complete(ctx, llm.CompletionRequest{
		Prompt: prompt.BuildMedicationPrompt(name, profile),
	})
	if err != nil {
		metrics.WorkflowTotal.WithLabelValues("medication", "llm_error").Inc()
		return nil, &WorkflowError{Message: messageFor(err), Err: err}
	}

	info, err := decodeMedicationInfo(raw)
	if err != nil {
		metrics.WorkflowTotal.WithLabelValues("medication", "parse_error").Inc()
		return nil, &WorkflowError{Message: messageFor(err), Err: err}
	}
	if info.Name == "" {
		info.Name = name
	}

	row := &models.MedicationSearch{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Info:      *info,
		CreatedAt: time.Now(),
	}

	out := &MedicationResult{ID: row.ID, Info: info, SyncStatus: SyncSaved}
	if err := retry.Do(ctx, persistRetryConfig(), func() error {
		return l.store.InsertMedicationSearch(row)
	}); err != nil {
		out.SyncStatus = SyncFailed
		metrics.PersistenceFailures.WithLabelValues("medication_search").Inc()
		logger.Error("Failed to persist medication search", zap.Error(err))
	}

	metrics.WorkflowTotal.WithLabelValues("medication", "ok").Inc()
	metrics.WorkflowDuration.WithLabelValues("medication", "search").Observe(time.Since(start).Seconds())

	logger.Info("Medication lookup complete",
		zap.String("name", name),
		zap.String("sync_status", out.SyncStatus),
	)
	return out, nil
}
