package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/resilience"
)

const breakerName = "chat-upstream"

// Completer produces a chat completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// LLMCompleter sends requests through langchaingo's OpenAI client, guarded
// by a circuit breaker, bounded retries and a per-attempt timeout. Without
// an API key every call fails with ErrNotConfigured.
type LLMCompleter struct {
	model    llms.Model
	defaults Defaults
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryConfig
	timeout  time.Duration
	logger   *slog.Logger
}

type Option func(*options)

type options struct {
	model      llms.Model
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// WithModel replaces the OpenAI client, for tests and alternative backends.
func WithModel(m llms.Model) Option {
	return func(o *options) { o.model = m }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithMetrics publishes breaker state changes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func NewLLMCompleter(cfg config.ChatConfig, opts ...Option) (*LLMCompleter, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &LLMCompleter{
		model: o.model,
		defaults: Defaults{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: 250 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Retryable:    retryable,
		},
		timeout: cfg.Timeout,
		logger:  slog.Default().With("component", "chat-completer"),
	}

	cbCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		ResetTimeout:     cfg.ResetTimeout,
		IsFailure:        func(err error) bool { return !errors.Is(err, context.Canceled) },
	}
	if o.metrics != nil {
		gauge := o.metrics.CircuitBreakerState
		gauge.WithLabelValues(breakerName).Set(float64(resilience.StateClosed))
		cbCfg.OnStateChange = func(name string, to resilience.State) {
			gauge.WithLabelValues(name).Set(float64(to))
		}
	}
	c.breaker = resilience.NewCircuitBreaker(breakerName, cbCfg)

	if c.model == nil && cfg.APIKey != "" {
		clientOpts := []openai.Option{
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if o.httpClient != nil {
			clientOpts = append(clientOpts, openai.WithHTTPClient(o.httpClient))
		}
		model, err := openai.New(clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating chat client: %w", err)
		}
		c.model = model
	}
	if c.model == nil {
		c.logger.Warn("chat API key not configured, completions disabled")
	}
	return c, nil
}

// Configured reports whether an upstream client is available.
func (c *LLMCompleter) Configured() bool {
	return c.model != nil
}

func (c *LLMCompleter) Defaults() Defaults {
	return c.defaults
}

func (c *LLMCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	if c.model == nil {
		return nil, apperrors.New(apperrors.ErrNotConfigured, http.StatusInternalServerError,
			"API key not configured. Check environment variables.")
	}
	req = req.WithDefaults(c.defaults)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	content := toMessageContent(req.Messages)
	callOpts := []llms.CallOption{
		llms.WithModel(req.Model),
		llms.WithTemperature(*req.Temperature),
		llms.WithMaxTokens(req.MaxTokens),
	}

	var resp *llms.ContentResponse
	err := c.breaker.Execute(func() error {
		return resilience.Retry(ctx, "chat-completion", c.retry, func() error {
			r, err := resilience.CallWithTimeout(ctx, c.timeout, "chat-completion", func(ctx context.Context) (*llms.ContentResponse, error) {
				return c.model.GenerateContent(ctx, content, callOpts...)
			})
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion has no choices", apperrors.ErrUpstream)
	}
	return toResponse(req.Model, resp), nil
}

// retryable skips retries once the caller has gone away.
func retryable(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", apperrors.ErrUpstream, err)
	}
}

func toMessageContent(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}
	return out
}

func toResponse(model string, resp *llms.ContentResponse) *Response {
	out := &Response{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: make([]Choice, 0, len(resp.Choices)),
	}
	for i, ch := range resp.Choices {
		out.Choices = append(out.Choices, Choice{
			Index:        i,
			Message:      Message{Role: RoleAssistant, Content: ch.Content},
			FinishReason: ch.StopReason,
		})
	}
	info := resp.Choices[0].GenerationInfo
	out.Usage = Usage{
		PromptTokens:     intInfo(info, "PromptTokens"),
		CompletionTokens: intInfo(info, "CompletionTokens"),
		TotalTokens:      intInfo(info, "TotalTokens"),
	}
	return out
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
