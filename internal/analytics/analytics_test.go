package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthmate/backend/internal/storage/models"
)

func TestTopNTiesKeepFirstSeenOrder(t *testing.T) {
	values := []string{
		"anxious", "tired", "anxious", "tired", "calm",
		"anxious", "tired", "anxious", "tired", "calm", "calm",
	}
	// anxious: 4, tired: 4, calm: 3; anxious appeared first.
	out := TopN(values, 2)

	require.Len(t, out, 2)
	assert.Equal(t, FrequencyCount{Value: "anxious", Count: 4}, out[0])
	assert.Equal(t, FrequencyCount{Value: "tired", Count: 4}, out[1])
}

func TestTopNUnlimited(t *testing.T) {
	out := TopN([]string{"a", "b", "a"}, 0)

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Value)
}

func TestTopNEmpty(t *testing.T) {
	assert.Empty(t, TopN(nil, 5))
}

func TestDetectSpikes(t *testing.T) {
	entries := []models.MoodEntry{
		{Date: "2026-08-03", Mood: 2},
		{Date: "2026-08-01", Mood: 4},
		{Date: "2026-08-02", Mood: 4},
	}

	spikes := DetectSpikes(entries)

	require.Len(t, spikes, 1)
	assert.Equal(t, "2026-08-02", spikes[0].FromDate)
	assert.Equal(t, "2026-08-03", spikes[0].ToDate)
	assert.Equal(t, -2, spikes[0].Delta)
}

func TestDetectSpikesNoneBelowThreshold(t *testing.T) {
	entries := []models.MoodEntry{
		{Date: "2026-08-01", Mood: 3},
		{Date: "2026-08-02", Mood: 4},
		{Date: "2026-08-03", Mood: 3},
	}

	assert.Empty(t, DetectSpikes(entries))
}

func TestWeekdayAverages(t *testing.T) {
	entries := []models.MoodEntry{
		{Date: "2026-08-03", Mood: 2}, // Monday
		{Date: "2026-08-10", Mood: 4}, // Monday
		{Date: "2026-08-04", Mood: 5}, // Tuesday
		{Date: "not-a-date", Mood: 1},
	}

	avgs := WeekdayAverages(entries)

	assert.InDelta(t, 3.0, avgs["Monday"], 0.001)
	assert.InDelta(t, 5.0, avgs["Tuesday"], 0.001)
	assert.Len(t, avgs, 2)
}

func TestSummarize(t *testing.T) {
	sleep := 8.0
	entries := []models.MoodEntry{
		{Date: "2026-08-01", Mood: 2, Emotions: []string{"tired"}, SleepHours: &sleep},
		{Date: "2026-08-02", Mood: 4, Emotions: []string{"calm", "tired"}},
	}

	stats := Summarize(entries)

	assert.Equal(t, 2, stats.Count)
	assert.InDelta(t, 3.0, stats.AverageMood, 0.001)
	assert.InDelta(t, 8.0, stats.AverageSleep, 0.001)
	require.NotEmpty(t, stats.TopEmotions)
	assert.Equal(t, "tired", stats.TopEmotions[0].Value)
	assert.Len(t, stats.Spikes, 1)
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil)

	assert.Equal(t, 0, stats.Count)
	assert.NotNil(t, stats.TopEmotions)
	assert.NotNil(t, stats.TopActivities)
	assert.NotNil(t, stats.Spikes)
}

func TestConditionCounts(t *testing.T) {
	logs := []models.DiagnosisLog{
		{Analysis: models.SymptomAnalysis{Conditions: []models.Condition{
			{Name: "tension headache"}, {Name: "migraine"},
		}}},
		{Analysis: models.SymptomAnalysis{Conditions: []models.Condition{
			{Name: "migraine"},
		}}},
	}

	counts := ConditionCounts(logs, 5)

	require.Len(t, counts, 2)
	assert.Equal(t, FrequencyCount{Value: "migraine", Count: 2}, counts[0])
}

func TestMedicationCounts(t *testing.T) {
	searches := []models.MedicationSearch{
		{Name: "ibuprofen"}, {Name: "metformin"}, {Name: "ibuprofen"},
	}

	counts := MedicationCounts(searches, 1)

	require.Len(t, counts, 1)
	assert.Equal(t, "ibuprofen", counts[0].Value)
}
