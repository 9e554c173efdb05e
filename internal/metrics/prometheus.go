package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WorkflowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthmate_workflow_duration_seconds",
			Help:    "Workflow step duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"workflow", "step"},
	)

	WorkflowTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthmate_workflow_total",
			Help: "Total workflow executions by outcome",
		},
		[]string{"workflow", "status"},
	)

	EmergencyDetections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "healthmate_emergency_detections_total",
			Help: "Inputs flagged by the emergency phrase list",
		},
	)

	InputRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthmate_input_rejections_total",
			Help: "Inputs rejected before any LLM call",
		},
		[]string{"reason"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthmate_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	ParseRepairs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "healthmate_parse_repairs_total",
			Help: "Model replies that only parsed after textual repair",
		},
	)

	PersistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthmate_persistence_failures_total",
			Help: "Best-effort writes that failed after a result was shown",
		},
		[]string{"entity"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "healthmate_analysis_confidence",
			Help:    "Confidence scores reported by analyses",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	MoodEntriesSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthmate_mood_entries_saved_total",
			Help: "Mood entries saved, split by insert vs update",
		},
		[]string{"op"},
	)

	ReportsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthmate_reports_generated_total",
			Help: "Health reports generated by type",
		},
		[]string{"report_type"},
	)
)

func Init() {
	prometheus.MustRegister(WorkflowDuration)
	prometheus.MustRegister(WorkflowTotal)
	prometheus.MustRegister(EmergencyDetections)
	prometheus.MustRegister(InputRejections)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(ParseRepairs)
	prometheus.MustRegister(PersistenceFailures)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(MoodEntriesSaved)
	prometheus.MustRegister(ReportsGenerated)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
