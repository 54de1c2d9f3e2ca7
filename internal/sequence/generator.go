package sequence

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgallion1/scenegest/internal/llm"
	"github.com/dgallion1/scenegest/internal/metrics"
)

// ChunkGenerator runs the attempt loop for one chunk: request, parse, check
// the count against the tolerance, retry with a shortfall note, renumber.
type ChunkGenerator[U Unit[U], M any] struct {
	gen        llm.Generator
	strategy   Strategy[U, M]
	maxRetries int
	backoff    func(attempt int) time.Duration
	log        *slog.Logger
}

func NewChunkGenerator[U Unit[U], M any](gen llm.Generator, strategy Strategy[U, M], maxRetries int, log *slog.Logger) *ChunkGenerator[U, M] {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if log == nil {
		log = slog.Default()
	}
	return &ChunkGenerator[U, M]{
		gen:        gen,
		strategy:   strategy,
		maxRetries: maxRetries,
		backoff:    Backoff,
		log:        log,
	}
}

// WithBackoff replaces the wait used after transient generation errors.
func (g *ChunkGenerator[U, M]) WithBackoff(fn func(attempt int) time.Duration) *ChunkGenerator[U, M] {
	if fn != nil {
		g.backoff = fn
	}
	return g
}

// Generate produces the units for c, numbered c.Start onwards.
//
// A response that fails to parse counts as zero units. A count below
// MinExpected is retried while attempts remain and accepted (flagged as
// Undercount) once they run out. A generation error on the last attempt is
// returned as is.
func (g *ChunkGenerator[U, M]) Generate(ctx context.Context, c Chunk) (ChunkResult[U, M], error) {
	attempts := g.maxRetries + 1
	minExpected := MinExpected(c.Expected)
	log := g.log.With("chunk", c.Index, "expected", c.Expected, "start", c.Start)

	var (
		best     *Batch[U, M]
		parseErr error
		short    *Shortfall
		attempt  int
		accepted bool
	)
	for attempt = 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return ChunkResult[U, M]{}, err
		}

		raw, err := g.gen.Generate(ctx, g.strategy.BuildRequest(c, short))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ChunkResult[U, M]{}, ctxErr
			}
			metrics.ChunkAttemptsTotal.WithLabelValues("error").Inc()
			if attempt == attempts {
				return ChunkResult[U, M]{}, err
			}
			log.Warn("generation failed, retrying", "attempt", attempt, "error", err)
			if llm.IsRetryable(err) {
				if err := sleep(ctx, g.backoff(attempt-1)); err != nil {
					return ChunkResult[U, M]{}, err
				}
			}
			continue
		}

		got := 0
		batch, err := g.strategy.Parse(raw)
		if err != nil {
			parseErr = err
			metrics.ChunkAttemptsTotal.WithLabelValues("parse_error").Inc()
			log.Warn("unparseable response", "attempt", attempt, "error", err, "response", llm.Truncate(raw, 200))
		} else {
			got = len(batch.Units)
			if best == nil || got > len(best.Units) {
				best = &batch
			}
		}

		if err == nil && got > 0 && got >= minExpected {
			metrics.ChunkAttemptsTotal.WithLabelValues("ok").Inc()
			best = &batch
			accepted = true
			break
		}
		if err == nil {
			metrics.ChunkAttemptsTotal.WithLabelValues("short").Inc()
			log.Info("chunk came up short", "attempt", attempt, "actual", got, "min", minExpected)
		}
		short = &Shortfall{Attempt: attempt, Got: got, Want: c.Expected, Min: minExpected, Start: c.Start}
	}
	if attempt > attempts {
		attempt = attempts
	}

	if best == nil {
		return ChunkResult[U, M]{}, fmt.Errorf("%w after %d attempts: %v", ErrParse, attempts, parseErr)
	}
	if len(best.Units) == 0 {
		return ChunkResult[U, M]{}, fmt.Errorf("%w after %d attempts", ErrEmptyChunk, attempts)
	}

	res := ChunkResult[U, M]{
		Chunk:    c.Index,
		First:    c.First,
		Start:    c.Start,
		Expected: c.Expected,
		Attempts: attempt,
		Units:    Renumber(best.Units, c.Start),
		Entities: best.Entities,
	}
	if c.First {
		res.Meta = best.Meta
	}
	if !accepted {
		res.Undercount = true
		metrics.ChunkUndercountsTotal.Inc()
		log.Warn("accepting undercount", "actual", len(res.Units), "min", minExpected, "attempts", attempts)
	}
	return res, nil
}

// Renumber sorts units by their self-reported numbers (stable, so ties keep
// response order) and numbers them start, start+1, ...
func Renumber[U Unit[U]](units []U, start int) []U {
	sorted := slices.Clone(units)
	slices.SortStableFunc(sorted, func(a, b U) int { return cmp.Compare(a.Number(), b.Number()) })
	out := make([]U, len(sorted))
	for i, u := range sorted {
		out[i] = u.WithNumber(start + i)
	}
	return out
}
