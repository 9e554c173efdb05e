package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/healthmate/backend/internal/llm/parse"
)

var ErrSessionNotFound = errors.New("session not found")

type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ValidationError covers bad input caught before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// EmergencyError carries the directive message for input the emergency
// phrase list matched. It is raised before any model call.
type EmergencyError struct {
	Message string
}

func (e *EmergencyError) Error() string {
	return e.Message
}

// WorkflowError wraps an upstream failure with the message shown to the user.
type WorkflowError struct {
	Message string
	Err     error
}

func (e *WorkflowError) Error() string {
	return e.Message
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

const genericFailureMessage = "Analysis failed. Please try again."

// errorMessages maps substrings of underlying errors to the user-facing
// message. First match wins; anything unmatched gets the generic message.
var errorMessages = []struct {
	substr  string
	message string
}{
	{"rate limit", "The analysis service is receiving too many requests. Please try again in a moment."},
	{"invalid api key", "The analysis service is not configured correctly. Please check the API key."},
	{"not configured", "The analysis service is not configured. Please set an API key."},
	{"unauthorized", "The analysis service rejected the request. Please check the API key configuration."},
	{"service unavailable", "The analysis service is temporarily unavailable. Please try again later."},
	{"network", "Could not reach the analysis service. Please check your connection and try again."},
}

func messageFor(err error) string {
	var refusal *parse.RefusalError
	if errors.As(err, &refusal) {
		return refusal.Message
	}

	lower := strings.ToLower(err.Error())
	for _, entry := range errorMessages {
		if strings.Contains(lower, entry.substr) {
			return entry.message
		}
	}
	return genericFailureMessage
}
