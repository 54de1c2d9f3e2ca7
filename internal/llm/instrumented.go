package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgallion1/scenegest/internal/metrics"
)

// Instrumented wraps a Generator with latency stats, Prometheus counters and
// debug logging.
type Instrumented struct {
	next     Generator
	provider string
	model    string
	stats    *Stats
	log      *slog.Logger
}

func NewInstrumented(next Generator, provider, model string, stats *Stats, log *slog.Logger) *Instrumented {
	if stats == nil {
		stats = NewStats(time.Hour)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Instrumented{
		next:     next,
		provider: provider,
		model:    model,
		stats:    stats,
		log:      log,
	}
}

func (g *Instrumented) Provider() string { return g.provider }
func (g *Instrumented) Model() string    { return g.model }
func (g *Instrumented) Stats() *Stats    { return g.stats }

func (g *Instrumented) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := g.next.Generate(ctx, req)
	elapsed := time.Since(start)

	g.stats.Record(elapsed, err != nil)
	metrics.LLMRequestDuration.WithLabelValues(g.provider).Observe(elapsed.Seconds())
	metrics.LLMRequestsTotal.WithLabelValues(g.provider, outcome(err)).Inc()

	if err != nil {
		g.log.Debug("generation failed", "provider", g.provider, "duration_ms", elapsed.Milliseconds(), "error", err)
		return "", err
	}
	g.log.Debug("generation done", "provider", g.provider, "duration_ms", elapsed.Milliseconds(), "response_bytes", len(out))
	return out, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case IsRetryable(err):
		return "retryable"
	default:
		return "error"
	}
}
