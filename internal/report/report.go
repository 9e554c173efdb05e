// Package report builds point-in-time health report snapshots and renders
// them for export. Reports are rebuilt wholesale on each generation; prior
// rows stay as history.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/analytics"
	"github.com/healthmate/backend/internal/llm"
	"github.com/healthmate/backend/internal/llm/parse"
	"github.com/healthmate/backend/internal/metrics"
	"github.com/healthmate/backend/internal/prompt"
	"github.com/healthmate/backend/internal/storage/models"
	"github.com/healthmate/backend/internal/workflow"
	"github.com/healthmate/backend/pkg/logger"
)

const (
	TypeSummary = "summary"
	TypeMood    = "mood"
)

const (
	historyLimit = 200
	topNLimit    = 5
)

type Store interface {
	ListDiagnosisLogs(userID string, limit int) ([]models.DiagnosisLog, error)
	ListPrescriptionAnalyses(userID string, limit int) ([]models.PrescriptionAnalysis, error)
	ListMedicationSearches(userID string, limit int) ([]models.MedicationSearch, error)
	ListMoodEntries(userID string, from, to string, limit int) ([]models.MoodEntry, error)
	InsertHealthReport(r *models.HealthReport) error
	GetHealthReport(id, userID string) (*models.HealthReport, error)
	ListHealthReports(userID string, limit int) ([]models.HealthReport, error)
	DeleteHealthReport(id, userID string) error
}

// Insighter is the optional LLM layer; a nil journal skips the narrative.
type Insighter interface {
	Insight(ctx context.Context, userID, from, to string) (*workflow.MoodInsight, error)
}

type Generator struct {
	store   Store
	journal Insighter
	llm     llm.Completer
}

func NewGenerator(store Store, journal Insighter, completer llm.Completer) *Generator {
	return &Generator{store: store, journal: journal, llm: completer}
}

// Narrative is the model-written prose for a summary report.
type Narrative struct {
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
	Confidence float64  `json:"confidence"`
}

type GenerateRequest struct {
	ReportType string `json:"reportType"`
	From       string `json:"from"`
	To         string `json:"to"`
	// WithInsight asks the model for a mood narrative. Off by default so
	// report generation works with no API key configured.
	WithInsight bool `json:"withInsight"`
}

// Generate assembles a snapshot from stored rows plus derived analytics and
// persists it. A failed insight call degrades to a report without the
// narrative rather than failing the report.
func (g *Generator) Generate(ctx context.Context, userID string, req GenerateRequest) (*models.HealthReport, error) {
	reportType := req.ReportType
	if reportType == "" {
		reportType = TypeSummary
	}
	if reportType != TypeSummary && reportType != TypeMood {
		return nil, &workflow.ValidationError{Message: fmt.Sprintf("Unknown report type %q.", reportType)}
	}

	moods, err := g.store.ListMoodEntries(userID, req.From, req.To, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load mood entries: %w", err)
	}

	moodStats := analytics.Summarize(moods)
	data := map[string]interface{}{
		"range": map[string]string{"from": req.From, "to": req.To},
		"mood":  moodStats,
	}

	var topConditions, topMedications []analytics.FrequencyCount
	symptomChecks := 0
	if reportType == TypeSummary {
		logs, err := g.store.ListDiagnosisLogs(userID, historyLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load diagnosis logs: %w", err)
		}
		prescriptions, err := g.store.ListPrescriptionAnalyses(userID, historyLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load prescription analyses: %w", err)
		}
		searches, err := g.store.ListMedicationSearches(userID, historyLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load medication searches: %w", err)
		}

		symptomChecks = len(logs)
		topConditions = analytics.ConditionCounts(logs, topNLimit)
		topMedications = analytics.MedicationCounts(searches, topNLimit)

		data["symptomChecks"] = symptomChecks
		data["topConditions"] = topConditions
		data["prescriptionsAnalyzed"] = len(prescriptions)
		data["topMedications"] = topMedications
	}

	if req.WithInsight {
		switch {
		case reportType == TypeSummary && g.llm != nil:
			narrative, err := g.narrative(ctx, reportType, req, moodStats, symptomChecks, topConditions, topMedications)
			if err != nil {
				logger.Warn("Report narrative unavailable", zap.Error(err))
			} else {
				data["narrative"] = narrative
			}
		case reportType == TypeMood && g.journal != nil:
			insight, err := g.journal.Insight(ctx, userID, req.From, req.To)
			if err != nil {
				logger.Warn("Mood insight unavailable for report", zap.Error(err))
			} else {
				data["moodInsight"] = insight
			}
		}
	}

	row := &models.HealthReport{
		ID:          uuid.New().String(),
		UserID:      userID,
		ReportType:  reportType,
		Data:        data,
		GeneratedAt: time.Now(),
	}

	if err := g.store.InsertHealthReport(row); err != nil {
		return nil, fmt.Errorf("failed to persist health report: %w", err)
	}

	metrics.ReportsGenerated.WithLabelValues(reportType).Inc()
	logger.Info("Health report generated",
		zap.String("report_id", row.ID),
		zap.String("report_type", reportType),
	)
	return row, nil
}

// narrative asks the model for a short prose section over the summary
// snapshot. Failures degrade to a report without prose.
func (g *Generator) narrative(ctx context.Context, reportType string, req GenerateRequest, moodStats analytics.MoodStats, symptomChecks int, topConditions, topMedications []analytics.FrequencyCount) (*Narrative, error) {
	in := prompt.HealthReportInput{
		ReportType:    reportType,
		From:          req.From,
		To:            req.To,
		MoodEntries:   moodStats.Count,
		AverageMood:   moodStats.AverageMood,
		SymptomChecks: symptomChecks,
	}
	for _, c := range topConditions {
		in.TopConditions = append(in.TopConditions, c.Value)
	}
	for _, m := range topMedications {
		in.TopMedications = append(in.TopMedications, m.Value)
	}

	raw, err := g.llm.Complete(ctx, llm.CompletionRequest{
		Prompt: prompt.BuildHealthReportPrompt(in),
	})
	if err != nil {
		return nil, err
	}

	var out Narrative
	if err := parse.Decode(raw, &out); err != nil {
		return nil, err
	}
	if out.Highlights == nil {
		out.Highlights = []string{}
	}
	return &out, nil
}

func (g *Generator) Get(userID, id string) (*models.HealthReport, error) {
	return g.store.GetHealthReport(id, userID)
}

func (g *Generator) List(userID string, limit int) ([]models.HealthReport, error) {
	if limit <= 0 {
		limit = 50
	}
	reports, err := g.store.ListHealthReports(userID, limit)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []models.HealthReport{}
	}
	return reports, nil
}

func (g *Generator) Delete(userID, id string) error {
	return g.store.DeleteHealthReport(id, userID)
}

// ExportJSON renders the raw snapshot for download.
func ExportJSON(r *models.HealthReport) ([]byte, error) {
	out, err := json.MarshalIndent(map[string]interface{}{
		"id":          r.ID,
		"reportType":  r.ReportType,
		"generatedAt": r.GeneratedAt.Format(time.RFC3339),
		"data":        r.Data,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return out, nil
}
