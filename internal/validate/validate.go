// Package validate classifies user free text before any LLM call. It is a
// curated keyword/regex heuristic; missed emergencies and blocked legitimate
// input are accepted limitations of the approach.
package validate

import (
	"regexp"
	"strings"

	"github.com/healthmate/backend/internal/metrics"
)

const (
	MinLength = 3
	MaxLength = 2000
)

type Result struct {
	Acceptable bool   `json:"acceptable"`
	Emergency  bool   `json:"emergency"`
	Message    string `json:"message,omitempty"`
}

const EmergencyMessage = "Your description suggests a possible medical emergency. " +
	"Please contact your local emergency services immediately instead of waiting for an analysis."

var emergencyPhrases = []string{
	"chest pain",
	"can't breathe",
	"cannot breathe",
	"can not breathe",
	"difficulty breathing",
	"suicidal",
	"suicide",
	"want to die",
	"overdose",
	"severe bleeding",
	"unconscious",
	"not breathing",
	"heart attack",
	"stroke",
	"seizure",
	"anaphyla",
}

var (
	inappropriatePattern = regexp.MustCompile(`(?i)\b(fuck|shit|bitch|asshole|cunt)\b|(?i)(viagra cheap|buy now|free money|casino bonus|crypto giveaway)`)

	nonMedicalPattern = regexp.MustCompile(`(?i)\b(bitcoin|lottery|homework assignment|stock tip|football score|tax return|write my essay)\b`)
)

// Classify gates text before the LLM is ever invoked. Emergency phrases
// short-circuit with Acceptable=true and a directive message; rejected input
// returns Acceptable=false.
func Classify(text string) Result {
	trimmed := strings.TrimSpace(text)

	if len(trimmed) < MinLength {
		metrics.InputRejections.WithLabelValues("too_short").Inc()
		return Result{
			Acceptable: false,
			Message:    "Please describe what you are experiencing in a few more words.",
		}
	}

	if len(trimmed) > MaxLength {
		metrics.InputRejections.WithLabelValues("too_long").Inc()
		return Result{
			Acceptable: false,
			Message:    "Your description is too long. Please keep it under 2000 characters.",
		}
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range emergencyPhrases {
		if strings.Contains(lower, phrase) {
			metrics.EmergencyDetections.Inc()
			return Result{
				Acceptable: true,
				Emergency:  true,
				Message:    EmergencyMessage,
			}
		}
	}

	if inappropriatePattern.MatchString(trimmed) {
		metrics.InputRejections.WithLabelValues("inappropriate").Inc()
		return Result{
			Acceptable: false,
			Message:    "This input contains inappropriate content. Please describe your health concern.",
		}
	}

	if nonMedicalPattern.MatchString(trimmed) {
		metrics.InputRejections.WithLabelValues("non_medical").Inc()
		return Result{
			Acceptable: false,
			Message:    "This does not look like a health-related question. Please describe your symptoms or medications.",
		}
	}

	return Result{Acceptable: true}
}
