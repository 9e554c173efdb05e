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
	"github.com/healthmate/backend/pkg/logger"
)

type MoodStore interface {
	SaveMoodEntry(e *models.MoodEntry) (*models.MoodEntry, error)
	ListMoodEntries(userID string, from, to string, limit int) ([]models.MoodEntry, error)
	DeleteMoodEntry(id, userID string) error
}

// MoodEntryRequest is one journal submission. Date defaults to today when
// empty; submitting twice for the same date updates the existing entry.
type MoodEntryRequest struct {
	Date        string   `json:"date"`
	Mood        int      `json:"mood"`
	Emotions    []string `json:"emotions"`
	Activities  []string `json:"activities"`
	Notes       string   `json:"notes"`
	SleepHours  *float64 `json:"sleepHours"`
	EnergyLevel *int     `json:"energyLevel"`
}

const (
	moodMin = 1
	moodMax = 5

	dateLayout = "2006-01-02"

	maxNotesLen      = 1000
	defaultMoodLimit = 90
	maxMoodLimit     = 366
)

// Journal is the mood-tracking workflow. Saves are synchronous writes, not
// best-effort: a journal entry with nothing to show the user has no value if
// it is lost.
type Journal struct {
	llm   llm.Completer
	store MoodStore
}

func NewJournal(completer llm.Completer, store MoodStore) *Journal {
	return &Journal{llm: completer, store: store}
}

func (j *Journal) Save(ctx context.Context, userID string, req MoodEntryRequest) (*models.MoodEntry, error) {
	date := req.Date
	if date == "" {
		date = time.Now().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, &ValidationError{Message: "Date must be in YYYY-MM-DD format."}
	}
	if req.Mood < moodMin || req.Mood > moodMax {
		return nil, &ValidationError{Message: "Mood must be between 1 and 5."}
	}
	if req.SleepHours != nil && (*req.SleepHours < 0 || *req.SleepHours > 24) {
		return nil, &ValidationError{Message: "Sleep hours must be between 0 and 24."}
	}
	if req.EnergyLevel != nil && (*req.EnergyLevel < 1 || *req.EnergyLevel > 5) {
		return nil, &ValidationError{Message: "Energy level must be between 1 and 5."}
	}
	if len(req.Notes) > maxNotesLen {
		return nil, &ValidationError{Message: "Notes are too long. Please keep them under 1000 characters."}
	}

	entry := &models.MoodEntry{
		ID:          uuid.New().String(),
		UserID:      userID,
		Date:        date,
		Mood:        req.Mood,
		Emotions:    req.Emotions,
		Activities:  req.Activities,
		Notes:       req.Notes,
		SleepHours:  req.SleepHours,
		EnergyLevel: req.EnergyLevel,
	}

	saved, err := j.store.SaveMoodEntry(entry)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("mood_entry").Inc()
		return nil, err
	}

	op := "insert"
	if !saved.CreatedAt.Equal(saved.UpdatedAt) {
		op = "update"
	}
	metrics.MoodEntriesSaved.WithLabelValues(op).Inc()

	logger.Info("Mood entry saved",
		zap.String("date", saved.Date),
		zap.String("op", op),
	)
	return saved, nil
}

func (j *Journal) List(ctx context.Context, userID, from, to string, limit int) ([]models.MoodEntry, error) {
	if limit <= 0 {
		limit = defaultMoodLimit
	}
	if limit > maxMoodLimit {
		limit = maxMoodLimit
	}
	entries, err := j.store.ListMoodEntries(userID, from, to, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.MoodEntry{}
	}
	return entries, nil
}

func (j *Journal) Delete(ctx context.Context, userID, id string) error {
	return j.store.DeleteMoodEntry(id, userID)
}

// minInsightEntries is the smallest journal window worth asking the model
// about; fewer entries produce generic filler.
const minInsightEntries = 3

// Insight asks the model to describe patterns across a journal window. The
// result is computed on demand and never persisted.
func (j *Journal) Insight(ctx context.Context, userID, from, to string) (*MoodInsight, error) {
	start := time.Now()

	entries, err := j.store.ListMoodEntries(userID, from, to, maxMoodLimit)
	if err != nil {
		return nil, err
	}
	if len(entries) < minInsightEntries {
		return nil, &ValidationError{Message: "Log a few more days of moods to get an insight."}
	}

	raw, err := j.llm.Complete(ctx, llm.CompletionRequest{
		Prompt: prompt.BuildMoodInsightPrompt(prompt.MoodInsightInput{Entries: entries}),
	})
	if err != nil {
		metrics.WorkflowTotal.WithLabelValues("mood_insight", "llm_error").Inc()
		return nil, &WorkflowError{Message: messageFor(err), Err: err}
	}

	insight, err := decodeMoodInsight(raw)
	if err != nil {
		metrics.WorkflowTotal.WithLabelValues("mood_insight", "parse_error").Inc()
		return nil, &WorkflowError{Message: messageFor(err), Err: err}
	}

	metrics.WorkflowTotal.WithLabelValues("mood_insight", "ok").Inc()
	metrics.WorkflowDuration.WithLabelValues("mood", "insight").Observe(time.Since(start).Seconds())
	return insight, nil
}
