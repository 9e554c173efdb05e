// Package parse recovers structured JSON from free-form model replies.
// Extraction runs as a pipeline of total stage functions so diagnostics can
// name exactly which stage gave up.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/healthmate/backend/internal/metrics"
)

const (
	StageSlice  = "slice"
	StageParse  = "parse"
	StageRepair = "repair"
)

// ParseError reports that no JSON object could be recovered, with the
// pipeline stage that failed last.
type ParseError struct {
	Stage string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("response parse failed at %s stage: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RefusalError surfaces a content-policy refusal as a domain error rather
// than structured data. Message is shown to the user verbatim.
type RefusalError struct {
	Message string
}

func (e *RefusalError) Error() string {
	return e.Message
}

var (
	fenceOpen  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")

	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	smartQuotes   = strings.NewReplacer(
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	)
)

// StripFences removes a leading/trailing markdown code fence if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// SliceOuterBraces returns the substring between the first '{' and the last
// '}' inclusive, and whether both were found.
func SliceOuterBraces(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// TryParse attempts a strict JSON object parse.
func TryParse(s string) (map[string]interface{}, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Repair applies the small set of textual fixes worth attempting once:
// trailing commas before closing brackets and smart quotes.
func Repair(s string) string {
	s = smartQuotes.Replace(s)
	s = trailingComma.ReplaceAllString(s, "$1")
	return s
}

// Extract runs the full pipeline and returns the JSON text that parsed,
// after refusal detection. Callers typically follow with a typed Decode.
func Extract(raw string) (string, error) {
	cleaned := StripFences(raw)

	sliced, ok := SliceOuterBraces(cleaned)
	if !ok {
		return "", &ParseError{Stage: StageSlice, Err: fmt.Errorf("no JSON object found in response")}
	}

	obj, err := TryParse(sliced)
	if err != nil {
		repaired := Repair(sliced)
		obj, err = TryParse(repaired)
		if err != nil {
			return "", &ParseError{Stage: StageRepair, Err: err}
		}
		metrics.ParseRepairs.Inc()
		sliced = repaired
	}

	if msg := refusalMessage(obj); msg != "" {
		return "", &RefusalError{Message: msg}
	}

	return sliced, nil
}

// Decode extracts the JSON object from raw and unmarshals it into v.
// Field defaulting is the caller's concern; Decode only guarantees a valid,
// non-refusal object.
func Decode(raw string, v interface{}) error {
	text, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return &ParseError{Stage: StageParse, Err: err}
	}
	return nil
}

func refusalMessage(obj map[string]interface{}) string {
	for _, key := range []string{"error", "refusal"} {
		if val, ok := obj[key]; ok {
			if msg, ok := val.(string); ok && msg != "" {
				return msg
			}
		}
	}
	return ""
}
