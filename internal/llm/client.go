package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/metrics"
	"github.com/healthmate/backend/pkg/circuitbreaker"
	"github.com/healthmate/backend/pkg/config"
	"github.com/healthmate/backend/pkg/logger"
)

// Completer is the single operation workflows need from the model. Tests
// substitute a mock.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest carries one full natural-language prompt, sent as a
// single user-role message. No streaming, no built-in retry; callers
// re-invoke the whole workflow step if they want another attempt.
type CompletionRequest struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	configured  bool
}

// placeholderKeys are values commonly left in sample configs. Any of them
// means the key was never set.
var placeholderKeys = []string{
	"your-api-key",
	"your_api_key",
	"your-api-key-here",
	"changeme",
	"placeholder",
	"sk-xxxx",
}

func keyIsPlaceholder(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return true
	}
	for _, p := range placeholderKeys {
		if k == p || strings.HasPrefix(k, "your-") || strings.HasPrefix(k, "your_") {
			return true
		}
	}
	return false
}

func NewClient(cfg config.LLMConfig) *Client {
	configured := !keyIsPlaceholder(cfg.APIKey)
	if !configured {
		logger.Warn("LLM API key missing or placeholder, completions will fail fast")
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	cb := circuitbreaker.New("llm", circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
		Logger:           logger.GetLogger(),
	})

	logger.Info("LLM client initialized", zap.String("model", cfg.Model))

	return &Client{
		api:         openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		cb:          cb,
		configured:  configured,
	}
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if !c.configured {
		return "", &APIError{Kind: KindNotConfigured, Message: "LLM API key is not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	var content string

	err := c.cb.Execute(ctx, func() error {
		resp, err := c.api.CreateChatCompletion(
			ctx,
			openai.ChatCompletionRequest{
				Model: c.model,
				Messages: []openai.ChatCompletionMessage{
					{
						Role:    openai.ChatMessageRoleUser,
						Content: req.Prompt,
					},
				},
				Temperature: temperature,
				MaxTokens:   maxTokens,
			},
		)
		if err != nil {
			return err
		}

		if len(resp.Choices) == 0 {
			return &APIError{Kind: KindUnknown, Message: "empty completion response"}
		}

		metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

		logger.Debug("LLM completion generated",
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		)

		content = resp.Choices[0].Message.Content
		return nil
	})

	if err != nil {
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr):
		case errors.Is(err, circuitbreaker.ErrCircuitOpen):
			apiErr = &APIError{Kind: KindServiceUnavailable, Message: "service temporarily unavailable", Err: err}
		default:
			apiErr = classifyError(err)
		}
		logger.Error("LLM completion failed",
			zap.String("kind", apiErr.Kind.String()),
			zap.Error(err),
		)
		return "", apiErr
	}

	return content, nil
}
