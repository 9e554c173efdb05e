package workflow

import (
	"github.com/healthmate/backend/internal/llm/parse"
	"github.com/healthmate/backend/internal/storage/models"
)

const (
	defaultConfidence = 0.7
	defaultUrgency    = "routine"
	defaultDisclaimer = "This information is educational and is not a medical diagnosis. " +
		"Consult a healthcare professional about your symptoms."
	defaultMedDisclaimer = "This information is educational and does not replace your " +
		"pharmacist's or doctor's instructions."
)

func decodeSymptomAnalysis(raw string) (*models.SymptomAnalysis, error) {
	var a models.SymptomAnalysis
	if err := parse.Decode(raw, &a); err != nil {
		return nil, err
	}
	applyAnalysisDefaults(&a)
	return &a, nil
}

// applyAnalysisDefaults fills gaps the model left so rendering never sees a
// nil slice or a zero confidence. It is idempotent: a second application over
// already-defaulted data changes nothing.
func applyAnalysisDefaults(a *models.SymptomAnalysis) {
	if a.Conditions == nil {
		a.Conditions = []models.Condition{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	if a.RedFlags == nil {
		a.RedFlags = []string{}
	}
	if a.FollowUpQuestions == nil {
		a.FollowUpQuestions = []string{}
	}
	if a.Confidence <= 0 || a.Confidence > 1 {
		a.Confidence = defaultConfidence
	}
	if a.Urgency == "" {
		a.Urgency = defaultUrgency
	}
	if a.Disclaimer == "" {
		a.Disclaimer = defaultDisclaimer
	}
}

func decodePrescriptionDetail(raw string) (*models.PrescriptionDetail, error) {
	var d models.PrescriptionDetail
	if err := parse.Decode(raw, &d); err != nil {
		return nil, err
	}
	applyPrescriptionDefaults(&d)
	return &d, nil
}

func applyPrescriptionDefaults(d *models.PrescriptionDetail) {
	if d.Medications == nil {
		d.Medications = []models.MedicationInfo{}
	}
	for i := range d.Medications {
		applyMedicationDefaults(&d.Medications[i])
	}
	if d.Interactions == nil {
		d.Interactions = []string{}
	}
	if d.SideEffects == nil {
		d.SideEffects = []string{}
	}
	if d.Monitoring == nil {
		d.Monitoring = []string{}
	}
	if d.Lifestyle == nil {
		d.Lifestyle = []string{}
	}
	if d.Confidence <= 0 || d.Confidence > 1 {
		d.Confidence = defaultConfidence
	}
	if d.Disclaimer == "" {
		d.Disclaimer = defaultMedDisclaimer
	}
}

func decodeMedicationInfo(raw string) (*models.MedicationInfo, error) {
	var info models.MedicationInfo
	if err := parse.Decode(raw, &info); err != nil {
		return nil, err
	}
	applyMedicationDefaults(&info)
	return &info, nil
}

func applyMedicationDefaults(info *models.MedicationInfo) {
	if info.SideEffects == nil {
		info.SideEffects = []string{}
	}
	if info.Warnings == nil {
		info.Warnings = []string{}
	}
	if info.Interactions == nil {
		info.Interactions = []string{}
	}
}

// MoodInsight is the model's read on a journal window. It is computed on
// demand and never persisted.
type MoodInsight struct {
	Summary     string   `json:"summary"`
	Patterns    []string `json:"patterns"`
	Suggestions []string `json:"suggestions"`
	Confidence  float64  `json:"confidence"`
}

func decodeMoodInsight(raw string) (*MoodInsight, error) {
	var ins MoodInsight
	if err := parse.Decode(raw, &ins); err != nil {
		return nil, err
	}
	if ins.Patterns == nil {
		ins.Patterns = []string{}
	}
	if ins.Suggestions == nil {
		ins.Suggestions = []string{}
	}
	if ins.Confidence <= 0 || ins.Confidence > 1 {
		ins.Confidence = defaultConfidence
	}
	return &ins, nil
}
