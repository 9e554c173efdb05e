package models

import "time"

// Profile is the health-profile snapshot attached to analyses. It is stored
// alongside each row so past analyses keep the context they were made with.
type Profile struct {
	Age           int      `json:"age"`
	Gender        string   `json:"gender"`
	Preconditions []string `json:"preconditions"`
	Medications   []string `json:"medications"`
	Allergies     []string `json:"allergies"`
}

type SymptomDetail struct {
	Severity string `json:"severity"`
	Duration string `json:"duration"`
}

// SymptomReport is created on initial symptom submission and is immutable
// afterwards except for follow-up answers attached before refinement.
type SymptomReport struct {
	ID              string                   `json:"id"`
	UserID          string                   `json:"-"`
	Symptoms        []string                 `json:"symptoms"`
	Details         map[string]SymptomDetail `json:"details"`
	Profile         Profile                  `json:"profile"`
	FollowUpAnswers map[string]bool          `json:"followUpAnswers,omitempty"`
	CreatedAt       time.Time                `json:"createdAt"`
}

type Condition struct {
	Name        string `json:"name"`
	Likelihood  string `json:"likelihood"`
	Description string `json:"description"`
}

// SymptomAnalysis is the structured result decoded from the model reply.
// Every field is defaulted after parsing so rendering never sees a nil shape.
type SymptomAnalysis struct {
	Conditions        []Condition `json:"conditions"`
	RiskAssessment    string      `json:"riskAssessment"`
	Urgency           string      `json:"urgency"`
	Recommendations   []string    `json:"recommendations"`
	RedFlags          []string    `json:"redFlags"`
	FollowUpQuestions []string    `json:"followUpQuestions"`
	Confidence        float64     `json:"confidence"`
	Disclaimer        string      `json:"disclaimer"`
	IsRefined         bool        `json:"isRefined"`
}

// DiagnosisLog records one analysis pass. A refinement inserts a second log
// against the same report id with IsRefined set; both rows persist.
type DiagnosisLog struct {
	ID         string          `json:"id"`
	UserID     string          `json:"-"`
	ReportID   string          `json:"reportId"`
	Analysis   SymptomAnalysis `json:"analysis"`
	Urgency    string          `json:"urgency"`
	Confidence float64         `json:"confidence"`
	IsRefined  bool            `json:"isRefined"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type MedicationInfo struct {
	Name         string   `json:"name"`
	Purpose      string   `json:"purpose"`
	Dosage       string   `json:"dosage"`
	SideEffects  []string `json:"sideEffects"`
	Warnings     []string `json:"warnings"`
	Interactions []string `json:"interactions"`
}

type PrescriptionDetail struct {
	Medications  []MedicationInfo `json:"medications"`
	Interactions []string         `json:"interactions"`
	SideEffects  []string         `json:"sideEffects"`
	Monitoring   []string         `json:"monitoring"`
	Lifestyle    []string         `json:"lifestyle"`
	Confidence   float64          `json:"confidence"`
	Disclaimer   string           `json:"disclaimer"`
}

type PrescriptionAnalysis struct {
	ID        string             `json:"id"`
	UserID    string             `json:"-"`
	RawText   string             `json:"rawText"`
	Analysis  PrescriptionDetail `json:"analysis"`
	Profile   Profile            `json:"profile"`
	CreatedAt time.Time          `json:"createdAt"`
}

// MedicationSearch is a history row. It is never read back as a cache; every
// lookup re-queries the model.
type MedicationSearch struct {
	ID        string         `json:"id"`
	UserID    string         `json:"-"`
	Name      string         `json:"name"`
	Info      MedicationInfo `json:"medication"`
	CreatedAt time.Time      `json:"createdAt"`
}

// MoodEntry is one journal entry per user per calendar day. Date is a
// YYYY-MM-DD string; the one-per-day rule is a lookup-then-branch upsert,
// not a unique constraint.
type MoodEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Date        string    `json:"date"`
	Mood        int       `json:"mood"`
	Emotions    []string  `json:"emotions"`
	Activities  []string  `json:"activities"`
	Notes       string    `json:"notes,omitempty"`
	SleepHours  *float64  `json:"sleepHours,omitempty"`
	EnergyLevel *int      `json:"energyLevel,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HealthReport is a point-in-time snapshot. Reports are rebuilt wholesale on
// each generation; prior rows remain as history.
type HealthReport struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"-"`
	ReportType  string                 `json:"reportType"`
	Data        map[string]interface{} `json:"data"`
	GeneratedAt time.Time              `json:"generatedAt"`
}
