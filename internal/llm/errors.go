package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/sashabaranov/go-openai"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotConfigured
	KindInvalidKey
	KindUnauthorized
	KindRateLimited
	KindServiceUnavailable
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotConfigured:
		return "not_configured"
	case KindInvalidKey:
		return "invalid_key"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// APIError classifies completion failures so callers can pick user-facing
// messaging without inspecting transport details.
type APIError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("llm %s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or KindUnknown when err is not
// an APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

func classifyError(err error) *APIError {
	var oaErr *openai.APIError
	if errors.As(err, &oaErr) {
		switch oaErr.HTTPStatusCode {
		case 401:
			return &APIError{Kind: KindInvalidKey, Message: "invalid API key", Err: err}
		case 403:
			return &APIError{Kind: KindUnauthorized, Message: "request not authorized", Err: err}
		case 429:
			return &APIError{Kind: KindRateLimited, Message: "rate limit exceeded", Err: err}
		case 500, 502, 503:
			return &APIError{Kind: KindServiceUnavailable, Message: "service unavailable", Err: err}
		default:
			return &APIError{Kind: KindUnknown, Message: "completion failed", Err: err}
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 500 {
			return &APIError{Kind: KindServiceUnavailable, Message: "service unavailable", Err: err}
		}
		return &APIError{Kind: KindNetwork, Message: "request failed", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: KindNetwork, Message: "network error", Err: err}
	}

	return &APIError{Kind: KindUnknown, Message: "completion failed", Err: err}
}
