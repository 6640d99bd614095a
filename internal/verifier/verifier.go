// Package verifier checks goal keywords against execution outcomes.
package verifier

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/uipilot/internal/logging"
	"github.com/fyrsmithlabs/uipilot/internal/task"
)

const instrumentationName = "github.com/fyrsmithlabs/uipilot/internal/verifier"

// DefaultSuccessThreshold is the number of distinct matched goal
// keywords required to call a run successful.
const DefaultSuccessThreshold = 3

// stopWords are common English function words excluded from keyword
// candidates.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"and": {}, "or": {}, "but": {}, "nor": {},
	"at": {}, "by": {}, "for": {}, "from": {}, "in": {}, "into": {},
	"of": {}, "off": {}, "on": {}, "onto": {}, "out": {}, "over": {},
	"to": {}, "up": {}, "with": {}, "via": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"do": {}, "does": {}, "did": {},
	"it": {}, "its": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"as": {}, "if": {}, "then": {}, "than": {}, "so": {},
	"my": {}, "your": {}, "me": {}, "you": {},
	"please": {},
}

// Config configures the verifier service.
type Config struct {
	// SuccessThreshold is the distinct matched keyword count required
	// for success.
	SuccessThreshold int
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() *Config {
	return &Config{
		SuccessThreshold: DefaultSuccessThreshold,
	}
}

// Service provides outcome verification.
type Service interface {
	// Verify checks goal keywords against outcome messages. It is
	// deterministic: the same goal and outcomes always produce the
	// same result.
	Verify(ctx context.Context, goal string, outcomes []task.StepOutcome) task.VerificationResult
}

// service implements the Service interface.
type service struct {
	config *Config
	logger *logging.Logger

	tracer        trace.Tracer
	meter         metric.Meter
	verifyCounter metric.Int64Counter
}

// NewService creates a verifier service.
func NewService(cfg *Config, logger *logging.Logger) (Service, error) {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if cfg.SuccessThreshold < 1 {
		return nil, fmt.Errorf("success threshold must be at least 1, got %d", cfg.SuccessThreshold)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &service{
		config: cfg,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *service) initMetrics() {
	var err error

	s.verifyCounter, err = s.meter.Int64Counter(
		"uipilot.verifier.verifications_total",
		metric.WithDescription("Total verifications labeled by success"),
		metric.WithUnit("{verification}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create verification counter", zap.Error(err))
	}
}

// Verify checks goal keywords against outcome messages.
func (s *service) Verify(ctx context.Context, goal string, outcomes []task.StepOutcome) task.VerificationResult {
	ctx, span := s.tracer.Start(ctx, "verifier.verify")
	defer span.End()

	keywords := extractKeywords(goal)
	haystack := buildHaystack(outcomes)

	matched := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			matched = append(matched, kw)
		}
	}

	result := task.VerificationResult{
		MatchedKeywords: matched,
		Success:         s.successFor(len(matched), len(keywords)),
	}

	span.SetAttributes(
		attribute.Int("keywords", len(keywords)),
		attribute.Int("matched", len(matched)),
		attribute.Bool("success", result.Success),
	)
	if s.verifyCounter != nil {
		s.verifyCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("success", result.Success),
		))
	}

	s.logger.Info(ctx, "verification finished",
		zap.Strings("matched_keywords", matched),
		zap.Int("candidates", len(keywords)),
		zap.Bool("success", result.Success),
	)

	return result
}

// successFor applies the threshold rule. Goals yielding fewer
// candidates than the threshold must match all of them; zero candidates
// is never a vacuous success.
func (s *service) successFor(matched, candidates int) bool {
	if candidates == 0 {
		return false
	}
	if candidates < s.config.SuccessThreshold {
		return matched == candidates
	}
	return matched >= s.config.SuccessThreshold
}

// extractKeywords returns candidate keywords from the goal: lower-cased
// words with non-alphanumeric edges trimmed, stop words and empties
// dropped, de-duplicated preserving first occurrence order.
func extractKeywords(goal string) []string {
	words := strings.Fields(strings.ToLower(goal))
	seen := make(map[string]struct{}, len(words))

	var keywords []string
	for _, w := range words {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w == "" {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}
	return keywords
}

// buildHaystack lower-cases and joins all outcome messages. A space
// separator keeps keywords from matching across message boundaries.
func buildHaystack(outcomes []task.StepOutcome) string {
	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		parts = append(parts, strings.ToLower(o.Message))
	}
	return strings.Join(parts, " ")
}
