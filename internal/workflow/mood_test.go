package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/healthmate/backend/internal/storage/models"
)

type memMoodStore struct {
	byDate  map[string]*models.MoodEntry
	deleted []string
	failure error
}

func newMemMoodStore() *memMoodStore {
	return &memMoodStore{byDate: make(map[string]*models.MoodEntry)}
}

func (s *memMoodStore) SaveMoodEntry(e *models.MoodEntry) (*models.MoodEntry, error) {
	if s.failure != nil {
		return nil, s.failure
	}

	now := time.Now()
	if existing, ok := s.byDate[e.UserID+"|"+e.Date]; ok {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
		e.UpdatedAt = now.Add(time.Second)
	} else {
		e.CreatedAt = now
		e.UpdatedAt = now
	}
	s.byDate[e.UserID+"|"+e.Date] = e
	return e, nil
}

func (s *memMoodStore) ListMoodEntries(userID string, from, to string, limit int) ([]models.MoodEntry, error) {
	if s.failure != nil {
		return nil, s.failure
	}
	var out []models.MoodEntry
	for key, e := range s.byDate {
		if key[:len(userID)] == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *memMoodStore) DeleteMoodEntry(id, userID string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func TestJournalSaveInsertsEntry(t *testing.T) {
	store := newMemMoodStore()
	journal := NewJournal(&mockCompleter{}, store)

	entry, err := journal.Save(context.Background(), "user-1", MoodEntryRequest{
		Date:     "2026-08-15",
		Mood:     4,
		Emotions: []string{"calm"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "2026-08-15", entry.Date)
	assert.Equal(t, entry.CreatedAt, entry.UpdatedAt)
}

func TestJournalSaveSameDateUpdates(t *testing.T) {
	store := newMemMoodStore()
	journal := NewJournal(&mockCompleter{}, store)

	first, err := journal.Save(context.Background(), "user-1", MoodEntryRequest{Date: "2026-08-15", Mood: 4})
	require.NoError(t, err)

	second, err := journal.Save(context.Background(), "user-1", MoodEntryRequest{Date: "2026-08-15", Mood: 2})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Mood)
	assert.True(t, second.UpdatedAt.After(second.CreatedAt))
	assert.Len(t, store.byDate, 1)
}

func TestJournalSaveDefaultsDateToToday(t *testing.T) {
	journal := NewJournal(&mockCompleter{}, newMemMoodStore())

	entry, err := journal.Save(context.Background(), "user-1", MoodEntryRequest{Mood: 3})
	require.NoError(t, err)

	assert.Equal(t, time.Now().Format("2006-01-02"), entry.Date)
}

func TestJournalSaveValidation(t *testing.T) {
	journal := NewJournal(&mockCompleter{}, newMemMoodStore())

	cases := []struct {
		name string
		req  MoodEntryRequest
	}{
		{"mood too low", MoodEntryRequest{Date: "2026-08-15", Mood: 0}},
		{"mood too high", MoodEntryRequest{Date: "2026-08-15", Mood: 6}},
		{"bad date", MoodEntryRequest{Date: "15/08/2026", Mood: 3}},
		{"bad sleep", MoodEntryRequest{Date: "2026-08-15", Mood: 3, SleepHours: floatPtr(30)}},
		{"bad energy", MoodEntryRequest{Date: "2026-08-15", Mood: 3, EnergyLevel: intPtr(9)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := journal.Save(context.Background(), "user-1", tc.req)

			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestJournalSavePropagatesStoreError(t *testing.T) {
	store := newMemMoodStore()
	store.failure = errors.New("locked")
	journal := NewJournal(&mockCompleter{}, store)

	_, err := journal.Save(context.Background(), "user-1", MoodEntryRequest{Date: "2026-08-15", Mood: 3})
	assert.Error(t, err)
}

func TestJournalInsightNeedsEnoughEntries(t *testing.T) {
	completer := &mockCompleter{}
	store := newMemMoodStore()
	journal := NewJournal(completer, store)

	_, err := journal.Save(context.Background(), "user-1", MoodEntryRequest{Date: "2026-08-15", Mood: 3})
	require.NoError(t, err)

	_, err = journal.Insight(context.Background(), "user-1", "", "")

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestJournalInsight(t *testing.T) {
	completer := &mockCompleter{}
	store := newMemMoodStore()
	journal := NewJournal(completer, store)

	for _, date := range []string{"2026-08-13", "2026-08-14", "2026-08-15"} {
		_, err := journal.Save(context.Background(), "user-1", MoodEntryRequest{Date: date, Mood: 3})
		require.NoError(t, err)
	}

	completer.On("Complete", mock.Anything, mock.Anything).
		Return(`{"summary": "steady", "patterns": ["stable mood"], "suggestions": [], "confidence": 0.6}`, nil).Once()

	insight, err := journal.Insight(context.Background(), "user-1", "", "")
	require.NoError(t, err)

	assert.Equal(t, "steady", insight.Summary)
	assert.Equal(t, []string{"stable mood"}, insight.Patterns)
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
