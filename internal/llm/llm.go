// Package llm provides text generation clients for plan synthesis.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/uipilot/internal/config"
	"github.com/fyrsmithlabs/uipilot/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/uipilot/internal/llm"

var (
	// ErrEmptyPrompt indicates an empty or whitespace-only prompt.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrInvalidConfig indicates invalid client configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrGenerationFailed indicates the provider failed after retries.
	ErrGenerationFailed = errors.New("generation failed")
)

const baseBackoff = 500 * time.Millisecond

// Config holds configuration for the OpenAI generation client.
type Config struct {
	// Model is the chat model name.
	Model string

	// APIKey authenticates against the provider.
	APIKey config.Secret

	// BaseURL overrides the provider endpoint (OpenAI-compatible proxies).
	BaseURL string

	// Temperature controls sampling. Plan synthesis wants it low.
	Temperature float64

	// MaxTokens caps the completion length.
	MaxTokens int

	// RequestsPerMinute caps generation calls client-side. Zero disables
	// the limiter.
	RequestsPerMinute int

	// MaxRetries bounds retries of a failed call.
	MaxRetries int
}

// DefaultConfig returns client defaults tuned for plan generation.
func DefaultConfig() *Config {
	return &Config{
		Model:             "gpt-4",
		Temperature:       0.2,
		MaxTokens:         512,
		RequestsPerMinute: 30,
		MaxRetries:        2,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.APIKey.IsSet() {
		return fmt.Errorf("%w: api key required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature out of range: %v", ErrInvalidConfig, c.Temperature)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// OpenAI generates text through an OpenAI-compatible chat API.
//
// A client-side rate limiter guards request admission, and failed calls
// are retried with exponential backoff while honoring context
// cancellation. Callers see exactly one result per Generate call.
type OpenAI struct {
	config  *Config
	model   llms.Model
	limiter *rate.Limiter
	logger  *logging.Logger
	backoff time.Duration

	tracer      trace.Tracer
	meter       metric.Meter
	callCounter metric.Int64Counter
}

// NewOpenAI creates an OpenAI generation client.
func NewOpenAI(cfg *Config, logger *logging.Logger) (*OpenAI, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey.Value()),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	return newOpenAI(cfg, model, logger), nil
}

// newOpenAI wires a client around an existing model. Tests inject fakes
// through this path.
func newOpenAI(cfg *Config, model llms.Model, logger *logging.Logger) *OpenAI {
	if logger == nil {
		logger = logging.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	c := &OpenAI{
		config:  cfg,
		model:   model,
		limiter: limiter,
		logger:  logger,
		backoff: baseBackoff,
		tracer:  otel.Tracer(instrumentationName),
		meter:   otel.Meter(instrumentationName),
	}

	c.initMetrics()

	return c
}

func (c *OpenAI) initMetrics() {
	var err error

	c.callCounter, err = c.meter.Int64Counter(
		"uipilot.llm.calls_total",
		metric.WithDescription("Total generation calls by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		c.logger.Warn(context.Background(), "failed to create call counter", zap.Error(err))
	}
}

// Generate produces a completion for the prompt.
func (c *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "llm.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("model", c.config.Model),
		attribute.Int("prompt_chars", len(prompt)),
	)

	if prompt == "" {
		span.SetStatus(codes.Error, ErrEmptyPrompt.Error())
		return "", ErrEmptyPrompt
	}

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	callOpts := []llms.CallOption{
		llms.WithTemperature(c.config.Temperature),
	}
	if c.config.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.config.MaxTokens))
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				span.RecordError(ctx.Err())
				span.SetStatus(codes.Error, ctx.Err().Error())
				return "", ctx.Err()
			}
			c.logger.Debug(ctx, "retrying generation",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
		}

		text, err := c.callModel(ctx, messages, callOpts)
		if err == nil {
			c.recordCall(ctx, "success")
			span.SetAttributes(attribute.Int("completion_chars", len(text)))
			return text, nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	c.recordCall(ctx, "error")
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return "", fmt.Errorf("%w: %w", ErrGenerationFailed, lastErr)
}

// callModel performs a single provider round trip.
func (c *OpenAI) callModel(ctx context.Context, messages []llms.MessageContent, opts []llms.CallOption) (string, error) {
	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("provider returned no choices")
	}
	return resp.Choices[0].Content, nil
}

func (c *OpenAI) recordCall(ctx context.Context, outcome string) {
	if c.callCounter != nil {
		c.callCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("model", c.config.Model),
			attribute.String("outcome", outcome),
		))
	}
}

// isRetryable reports whether a provider error is worth retrying.
// Context errors are terminal; provider errors are opaque strings, so
// everything else gets the small retry budget.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
