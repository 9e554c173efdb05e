// Package prompt builds the natural-language instructions sent to the model.
// Builders are pure functions over explicit input structs so they can be
// unit-tested without network code.
package prompt

import (
	"fmt"
	"strings"

	"github.com/healthmate/backend/internal/storage/models"
)

type SymptomInput struct {
	Symptoms []string
	Details  map[string]models.SymptomDetail
	Profile  models.Profile
}

type RefinementInput struct {
	SymptomInput
	Answers          map[string]bool
	PreviousAnalysis string
}

type PrescriptionInput struct {
	Text    string
	Profile models.Profile
}

type MoodInsightInput struct {
	Entries []models.MoodEntry
}

const symptomInstructions = `You are a cautious medical information assistant. You never diagnose; you suggest possible conditions for discussion with a clinician.

Respond with ONLY a JSON object of this shape:
{
  "conditions": [{"name": "...", "likelihood": "high|moderate|low", "description": "..."}],
  "riskAssessment": "...",
  "urgency": "routine|soon|urgent",
  "recommendations": ["..."],
  "redFlags": ["..."],
  "followUpQuestions": ["yes/no question", "..."],
  "confidence": 0.0,
  "disclaimer": "..."
}

Follow-up questions must be answerable with yes or no. If the request is outside your policy, respond with {"error": "reason"}.`

func BuildSymptomPrompt(in SymptomInput) string {
	var b strings.Builder
	b.WriteString(symptomInstructions)
	b.WriteString("\n\nPatient profile:\n")
	writeProfile(&b, in.Profile)

	b.WriteString("\nReported symptoms:\n")
	for _, s := range in.Symptoms {
		if d, ok := in.Details[s]; ok {
			fmt.Fprintf(&b, "- %s (severity: %s, duration: %s)\n", s, d.Severity, d.Duration)
		} else {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	b.WriteString("\nReturn JSON only.")
	return b.String()
}

func BuildRefinementPrompt(in RefinementInput) string {
	var b strings.Builder
	b.WriteString(symptomInstructions)
	b.WriteString("\n\nThis is a refinement pass. Revise your previous analysis using the follow-up answers. Do not include new followUpQuestions.\n")

	b.WriteString("\nPatient profile:\n")
	writeProfile(&b, in.Profile)

	b.WriteString("\nReported symptoms:\n")
	for _, s := range in.Symptoms {
		if d, ok := in.Details[s]; ok {
			fmt.Fprintf(&b, "- %s (severity: %s, duration: %s)\n", s, d.Severity, d.Duration)
		} else {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	b.WriteString("\nFollow-up answers:\n")
	for question, answer := range in.Answers {
		fmt.Fprintf(&b, "- %q: %s\n", question, yesNo(answer))
	}

	b.WriteString("\nPrevious analysis:\n")
	b.WriteString(in.PreviousAnalysis)
	b.WriteString("\n\nReturn JSON only.")
	return b.String()
}

const prescriptionInstructions = `You are a medication information assistant explaining a prescription in plain language. You do not give dosing advice beyond what is written.

Respond with ONLY a JSON object of this shape:
{
  "medications": [{"name": "...", "purpose": "...", "dosage": "...", "sideEffects": ["..."], "warnings": ["..."], "interactions": ["..."]}],
  "interactions": ["cross-medication interactions"],
  "sideEffects": ["..."],
  "monitoring": ["..."],
  "lifestyle": ["..."],
  "confidence": 0.0,
  "disclaimer": "..."
}

If the text is not a prescription or is outside your policy, respond with {"error": "reason"}.`

func BuildPrescriptionPrompt(in PrescriptionInput) string {
	var b strings.Builder
	b.WriteString(prescriptionInstructions)
	b.WriteString("\n\nPatient profile:\n")
	writeProfile(&b, in.Profile)
	b.WriteString("\nPrescription text:\n")
	b.WriteString(in.Text)
	b.WriteString("\n\nReturn JSON only.")
	return b.String()
}

const medicationInstructions = `You are a medication reference assistant. Describe the medication below for a layperson.

Respond with ONLY a JSON object of this shape:
{
  "name": "...",
  "purpose": "...",
  "dosage": "typical dosing as general information",
  "sideEffects": ["..."],
  "warnings": ["..."],
  "interactions": ["..."]
}

If the name is not a recognizable medication, respond with {"error": "reason"}.`

func BuildMedicationPrompt(name string, profile models.Profile) string {
	var b strings.Builder
	b.WriteString(medicationInstructions)
	b.WriteString("\n\nPatient profile:\n")
	writeProfile(&b, profile)
	fmt.Fprintf(&b, "\nMedication: %s\n\nReturn JSON only.", name)
	return b.String()
}

const moodInsightInstructions = `You are a supportive wellbeing assistant. Summarize patterns in the mood journal below without clinical judgement.

Respond with ONLY a JSON object of this shape:
{
  "summary": "...",
  "patterns": ["..."],
  "suggestions": ["..."],
  "confidence": 0.0
}`

func BuildMoodInsightPrompt(in MoodInsightInput) string {
	var b strings.Builder
	b.WriteString(moodInsightInstructions)
	b.WriteString("\n\nJournal entries (oldest first):\n")
	for _, e := range in.Entries {
		fmt.Fprintf(&b, "- %s: mood %d/5", e.Date, e.Mood)
		if len(e.Emotions) > 0 {
			fmt.Fprintf(&b, ", emotions: %s", strings.Join(e.Emotions, ", "))
		}
		if len(e.Activities) > 0 {
			fmt.Fprintf(&b, ", activities: %s", strings.Join(e.Activities, ", "))
		}
		if e.SleepHours != nil {
			fmt.Fprintf(&b, ", sleep: %.1fh", *e.SleepHours)
		}
		if e.Notes != "" {
			fmt.Fprintf(&b, ", notes: %s", e.Notes)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nReturn JSON only.")
	return b.String()
}

type HealthReportInput struct {
	ReportType     string
	From           string
	To             string
	MoodEntries    int
	AverageMood    float64
	SymptomChecks  int
	TopConditions  []string
	TopMedications []string
}

const healthReportInstructions = `You are a supportive health assistant writing the narrative section of a personal health report. Plain language, no diagnosis, no alarm.

Respond with ONLY a JSON object of this shape:
{
  "summary": "...",
  "highlights": ["..."],
  "confidence": 0.0
}`

func BuildHealthReportPrompt(in HealthReportInput) string {
	var b strings.Builder
	b.WriteString(healthReportInstructions)

	b.WriteString("\n\nReport window: ")
	switch {
	case in.From != "" && in.To != "":
		fmt.Fprintf(&b, "%s to %s\n", in.From, in.To)
	case in.From != "":
		fmt.Fprintf(&b, "from %s\n", in.From)
	case in.To != "":
		fmt.Fprintf(&b, "until %s\n", in.To)
	default:
		b.WriteString("all recorded data\n")
	}

	fmt.Fprintf(&b, "\nRecorded activity (%s report):\n", in.ReportType)
	fmt.Fprintf(&b, "- mood journal entries: %d\n", in.MoodEntries)
	if in.MoodEntries > 0 {
		fmt.Fprintf(&b, "- average mood: %.1f/5\n", in.AverageMood)
	}
	fmt.Fprintf(&b, "- symptom checks: %d\n", in.SymptomChecks)
	if len(in.TopConditions) > 0 {
		fmt.Fprintf(&b, "- most discussed conditions: %s\n", strings.Join(in.TopConditions, ", "))
	}
	if len(in.TopMedications) > 0 {
		fmt.Fprintf(&b, "- most looked-up medications: %s\n", strings.Join(in.TopMedications, ", "))
	}

	b.WriteString("\nReturn JSON only.")
	return b.String()
}

func writeProfile(b *strings.Builder, p models.Profile) {
	fmt.Fprintf(b, "- age: %d\n", p.Age)
	if p.Gender != "" {
		fmt.Fprintf(b, "- gender: %s\n", p.Gender)
	}
	if len(p.Preconditions) > 0 {
		fmt.Fprintf(b, "- existing conditions: %s\n", strings.Join(p.Preconditions, ", "))
	}
	if len(p.Medications) > 0 {
		fmt.Fprintf(b, "- current medications: %s\n", strings.Join(p.Medications, ", "))
	}
	if len(p.Allergies) > 0 {
		fmt.Fprintf(b, "- allergies: %s\n", strings.Join(p.Allergies, ", "))
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
