// Package analytics computes dashboard statistics in memory over rows the
// caller already fetched. Nothing here is persisted except through the
// optional health-report snapshot.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/healthmate/backend/internal/storage/models"
)

type FrequencyCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type MoodSpike struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
	FromMood int    `json:"fromMood"`
	ToMood   int    `json:"toMood"`
	Delta    int    `json:"delta"`
}

type MoodStats struct {
	Count           int                `json:"count"`
	AverageMood     float64            `json:"averageMood"`
	AverageSleep    float64            `json:"averageSleep"`
	TopEmotions     []FrequencyCount   `json:"topEmotions"`
	TopActivities   []FrequencyCount   `json:"topActivities"`
	WeekdayAverages map[string]float64 `json:"weekdayAverages"`
	Spikes          []MoodSpike        `json:"spikes"`
}

// SpikeThreshold is the absolute mood delta between consecutive entries that
// counts as a spike.
const SpikeThreshold = 2

const defaultTopN = 5

// TopN returns the n most frequent values. The sort is stable, so ties keep
// first-seen order.
func TopN(values []string, n int) []FrequencyCount {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}

	out := make([]FrequencyCount, 0, len(order))
	for _, v := range order {
		out = append(out, FrequencyCount{Value: v, Count: counts[v]})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DetectSpikes flags consecutive chronologically-sorted entries whose mood
// differs by SpikeThreshold or more.
func DetectSpikes(entries []models.MoodEntry) []MoodSpike {
	sorted := sortByDate(entries)

	var spikes []MoodSpike
	for i := 1; i < len(sorted); i++ {
		delta := sorted[i].Mood - sorted[i-1].Mood
		if math.Abs(float64(delta)) >= SpikeThreshold {
			spikes = append(spikes, MoodSpike{
				FromDate: sorted[i-1].Date,
				ToDate:   sorted[i].Date,
				FromMood: sorted[i-1].Mood,
				ToMood:   sorted[i].Mood,
				Delta:    delta,
			})
		}
	}
	return spikes
}

// WeekdayAverages buckets mood by weekday name. Entries with unparseable
// dates are skipped.
func WeekdayAverages(entries []models.MoodEntry) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, e := range entries {
		day, ok := weekdayOf(e.Date)
		if !ok {
			continue
		}
		sums[day] += float64(e.Mood)
		counts[day]++
	}

	out := make(map[string]float64, len(sums))
	for day, sum := range sums {
		out[day] = sum / float64(counts[day])
	}
	return out
}

func Summarize(entries []models.MoodEntry) MoodStats {
	stats := MoodStats{
		Count:           len(entries),
		WeekdayAverages: WeekdayAverages(entries),
		Spikes:          DetectSpikes(entries),
	}

	if len(entries) == 0 {
		stats.TopEmotions = []FrequencyCount{}
		stats.TopActivities = []FrequencyCount{}
		stats.Spikes = []MoodSpike{}
		return stats
	}

	var moodSum float64
	var sleepSum float64
	sleepCount := 0
	var emotions, activities []string

	for _, e := range entries {
		moodSum += float64(e.Mood)
		if e.SleepHours != nil {
			sleepSum += *e.SleepHours
			sleepCount++
		}
		emotions = append(emotions, e.Emotions...)
		activities = append(activities, e.Activities...)
	}

	stats.AverageMood = moodSum / float64(len(entries))
	if sleepCount > 0 {
		stats.AverageSleep = sleepSum / float64(sleepCount)
	}
	stats.TopEmotions = TopN(emotions, defaultTopN)
	stats.TopActivities = TopN(activities, defaultTopN)
	if stats.Spikes == nil {
		stats.Spikes = []MoodSpike{}
	}
	return stats
}

// ConditionCounts tallies condition names across diagnosis logs, for the
// health-report snapshot.
func ConditionCounts(logs []models.DiagnosisLog, n int) []FrequencyCount {
	var names []string
	for _, l := range logs {
		for _, c := range l.Analysis.Conditions {
			names = append(names, c.Name)
		}
	}
	return TopN(names, n)
}

// MedicationCounts tallies medication names across searches.
func MedicationCounts(searches []models.MedicationSearch, n int) []FrequencyCount {
	var names []string
	for _, s := range searches {
		names = append(names, s.Name)
	}
	return TopN(names, n)
}

func weekdayOf(date string) (string, bool) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", false
	}
	return t.Weekday().String(), true
}

func sortByDate(entries []models.MoodEntry) []models.MoodEntry {
	sorted := make([]models.MoodEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})
	return sorted
}
