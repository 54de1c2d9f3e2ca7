package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/scenegest/internal/budget"
	"github.com/dgallion1/scenegest/internal/chunker"
	"github.com/dgallion1/scenegest/internal/llm"
	"github.com/dgallion1/scenegest/internal/metrics"
)

// State is a step of a run.
type State string

const (
	StateEstimating State = "estimating"
	StateSingleShot State = "single_shot"
	StateChunking   State = "chunking"
	StateAssembling State = "assembling"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Mode is how a run was executed.
type Mode string

const (
	ModeSingleShot Mode = "single_shot"
	ModeChunked    Mode = "chunked"
)

// Event is reported to an Observer on every state change and after each
// chunk completes.
type Event struct {
	RunID      string
	State      State
	Chunk      int
	Chunks     int
	Units      int
	Undercount bool
}

// Observer receives run progress. It is called synchronously from Run.
type Observer func(Event)

// Config controls a Runner.
type Config struct {
	Policy           budget.Policy
	MaxUnitsPerChunk int
	MaxRetries       int
	// Backoff overrides the wait after transient generation errors.
	Backoff  func(attempt int) time.Duration
	Observer Observer
	Logger   *slog.Logger
}

func (c Config) Validate() error {
	if c.Policy == nil {
		return fmt.Errorf("%w: unit policy is required", ErrInvalidInput)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if c.MaxUnitsPerChunk <= 0 {
		return fmt.Errorf("%w: max units per chunk must be positive, got %d", ErrInvalidInput, c.MaxUnitsPerChunk)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative, got %d", ErrInvalidInput, c.MaxRetries)
	}
	return nil
}

// Result is a completed run.
type Result[U any, M any] struct {
	RunID         string        `json:"run_id"`
	Mode          Mode          `json:"mode"`
	Estimated     int           `json:"estimated"`
	Chunks        int           `json:"chunks"`
	Units         []U           `json:"units"`
	Entities      []Entity      `json:"entities"`
	Meta          *M            `json:"meta,omitempty"`
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
}

// Undercounted reports whether any chunk was accepted below tolerance.
func (r *Result[U, M]) Undercounted() bool { return Undercounted(r.Discrepancies) }

// Runner drives estimate, split, generate and assemble for one strategy.
// A Runner is safe for concurrent use; each Run owns its own state.
type Runner[U Unit[U], M any] struct {
	cfg Config
	gen *ChunkGenerator[U, M]
	log *slog.Logger
}

func NewRunner[U Unit[U], M any](gen llm.Generator, strategy Strategy[U, M], cfg Config) (*Runner[U, M], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gen == nil || strategy == nil {
		return nil, fmt.Errorf("%w: generator and strategy are required", ErrInvalidInput)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner[U, M]{
		cfg: cfg,
		gen: NewChunkGenerator(gen, strategy, cfg.MaxRetries, log).WithBackoff(cfg.Backoff),
		log: log,
	}, nil
}

// Plan estimates text and returns the chunks a run would generate, without
// calling the model. Start numbers assume every chunk delivers its estimate.
func (r *Runner[U, M]) Plan(text string) (total int, chunks []Chunk) {
	total = budget.Estimate(r.cfg.Policy, text)
	if total == 0 {
		return 0, nil
	}
	if r.chunkCount(total) <= 1 {
		return total, []Chunk{{Index: 0, Total: 1, Text: chunker.Normalize(text), Expected: total, Start: 1, First: true}}
	}
	segments := chunker.SplitSegments(text, r.wordsPerSegment())
	start := 1
	for i, seg := range segments {
		c := Chunk{
			Index:    i,
			Total:    len(segments),
			Text:     seg,
			Expected: budget.Estimate(r.cfg.Policy, seg),
			Start:    start,
			First:    i == 0,
		}
		chunks = append(chunks, c)
		start += c.Expected
	}
	return total, chunks
}

func (r *Runner[U, M]) chunkCount(total int) int {
	return (total + r.cfg.MaxUnitsPerChunk - 1) / r.cfg.MaxUnitsPerChunk
}

func (r *Runner[U, M]) wordsPerSegment() int {
	return max(1, int(math.Round(float64(r.cfg.MaxUnitsPerChunk)*r.cfg.Policy.WordsPerUnit())))
}

// Run generates the full sequence for text. Chunks run one at a time because
// each chunk starts numbering after the units earlier chunks actually
// produced. Any chunk failure ends the run; completed chunks are discarded.
func (r *Runner[U, M]) Run(ctx context.Context, text string) (*Result[U, M], error) {
	rn := &run[U, M]{Runner: r, id: uuid.NewString()}
	rn.log = r.log.With("run_id", rn.id)

	res, err := rn.execute(ctx, text)
	if err != nil {
		rn.setState(StateFailed)
		metrics.RunsTotal.WithLabelValues(string(rn.mode), string(StateFailed)).Inc()
		if isCanceled(err) {
			rn.log.Info("run canceled", "state", rn.failedIn)
		} else {
			rn.log.Error("run failed", "state", rn.failedIn, "chunk", rn.failedChunk, "error", err)
		}
		return nil, &RunError{RunID: rn.id, State: rn.failedIn, Chunk: rn.failedChunk, Err: err}
	}

	rn.setState(StateDone)
	metrics.RunsTotal.WithLabelValues(string(res.Mode), string(StateDone)).Inc()
	metrics.UnitsGenerated.Observe(float64(len(res.Units)))
	rn.log.Info("run complete", "mode", res.Mode, "estimated", res.Estimated, "units", len(res.Units), "chunks", res.Chunks, "discrepancies", len(res.Discrepancies))
	return res, nil
}

type run[U Unit[U], M any] struct {
	*Runner[U, M]
	id          string
	log         *slog.Logger
	state       State
	mode        Mode
	failedIn    State
	failedChunk int
}

func (r *run[U, M]) setState(s State) {
	r.state = s
	r.notify(Event{RunID: r.id, State: s})
}

func (r *run[U, M]) notify(ev Event) {
	if r.cfg.Observer != nil {
		r.cfg.Observer(ev)
	}
}

func (r *run[U, M]) fail(chunk int, err error) error {
	r.failedIn = r.state
	r.failedChunk = chunk
	return err
}

func (r *run[U, M]) execute(ctx context.Context, text string) (*Result[U, M], error) {
	r.mode = ModeSingleShot
	r.setState(StateEstimating)
	if strings.TrimSpace(text) == "" {
		return nil, r.fail(-1, fmt.Errorf("%w: input text is empty", ErrInvalidInput))
	}

	total := budget.Estimate(r.cfg.Policy, text)
	chunkCount := r.chunkCount(total)
	r.log.Info("estimated units", "words", chunker.CountWords(text), "units", total, "chunks", chunkCount)

	var (
		results []ChunkResult[U, M]
		err     error
	)
	if chunkCount <= 1 {
		r.setState(StateSingleShot)
		c := Chunk{Index: 0, Total: 1, Text: chunker.Normalize(text), Expected: total, Start: 1, First: true}
		var res ChunkResult[U, M]
		if res, err = r.gen.Generate(ctx, c); err != nil {
			return nil, r.fail(0, err)
		}
		r.notify(Event{RunID: r.id, State: r.state, Chunk: 0, Chunks: 1, Units: len(res.Units), Undercount: res.Undercount})
		results = []ChunkResult[U, M]{res}
	} else {
		r.mode = ModeChunked
		r.setState(StateChunking)
		if results, err = r.chunked(ctx, text); err != nil {
			return nil, err
		}
	}

	r.setState(StateAssembling)
	asm, err := Assemble(results)
	if err != nil {
		return nil, r.fail(-1, err)
	}
	return &Result[U, M]{
		RunID:         r.id,
		Mode:          r.mode,
		Estimated:     total,
		Chunks:        len(results),
		Units:         asm.Units,
		Entities:      asm.Entities,
		Meta:          asm.Meta,
		Discrepancies: asm.Discrepancies,
	}, nil
}

func (r *run[U, M]) chunked(ctx context.Context, text string) ([]ChunkResult[U, M], error) {
	segments := chunker.SplitSegments(text, r.wordsPerSegment())
	r.log.Info("split input", "segments", len(segments), "words_per_segment", r.wordsPerSegment())

	results := make([]ChunkResult[U, M], 0, len(segments))
	var known []Entity
	next := 1
	for i, seg := range segments {
		c := Chunk{
			Index:    i,
			Total:    len(segments),
			Text:     seg,
			Expected: budget.Estimate(r.cfg.Policy, seg),
			Start:    next,
			First:    i == 0,
			Known:    known,
		}
		res, err := r.gen.Generate(ctx, c)
		if err != nil {
			return nil, r.fail(i, fmt.Errorf("chunk %d/%d: %w", i+1, len(segments), err))
		}
		results = append(results, res)
		known = MergeEntities(known, res.Entities)
		next += len(res.Units)
		r.notify(Event{RunID: r.id, State: r.state, Chunk: i, Chunks: len(segments), Units: next - 1, Undercount: res.Undercount})
	}
	return results, nil
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
