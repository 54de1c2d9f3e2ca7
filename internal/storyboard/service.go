package storyboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/scenegest/internal/budget"
	"github.com/dgallion1/scenegest/internal/llm"
	"github.com/dgallion1/scenegest/internal/sequence"
)

// Defaults for scene and module generation.
const (
	DefaultWordsPerScene        = 12
	DefaultSceneDurationSeconds = 4
	DefaultMaxScenesPerChunk    = 50
	DefaultWordsPerModule       = 600
	DefaultMaxModulesPerChunk   = 6
)

// NoRetries disables chunk retries. A zero MaxRetries means
// sequence.DefaultMaxRetries.
const NoRetries = -1

// RetryCount maps a configured retry count onto the options field, where
// zero selects the default.
func RetryCount(n int) int {
	if n <= 0 {
		return NoRetries
	}
	return n
}

func effectiveRetries(n int) int {
	switch {
	case n == 0:
		return sequence.DefaultMaxRetries
	case n < 0:
		return 0
	}
	return n
}

// SceneOptions controls a storyboard run.
type SceneOptions struct {
	WordsPerScene        float64
	SceneDurationSeconds float64
	MaxScenesPerChunk    int
	// MaxRetries is extra attempts per chunk: 0 means the default, NoRetries none.
	MaxRetries int
	// NarrativePrepass plans scene briefs first. Both passes then estimate
	// scenes from narration time so brief numbers line up with scenes.
	NarrativePrepass bool
	Observer         sequence.Observer
}

func (o SceneOptions) withDefaults() SceneOptions {
	if o.WordsPerScene <= 0 {
		o.WordsPerScene = DefaultWordsPerScene
	}
	if o.SceneDurationSeconds <= 0 {
		o.SceneDurationSeconds = DefaultSceneDurationSeconds
	}
	if o.MaxScenesPerChunk <= 0 {
		o.MaxScenesPerChunk = DefaultMaxScenesPerChunk
	}
	o.MaxRetries = effectiveRetries(o.MaxRetries)
	return o
}

// Retries is the number of extra attempts each chunk gets.
func (o SceneOptions) Retries() int { return effectiveRetries(o.MaxRetries) }

// OutlineOptions controls a principle-module run.
type OutlineOptions struct {
	Title              string
	WordsPerModule     float64
	MaxModulesPerChunk int
	Observer           sequence.Observer
	// MaxRetries follows SceneOptions.MaxRetries.
	MaxRetries int
}

func (o OutlineOptions) withDefaults() OutlineOptions {
	if o.WordsPerModule <= 0 {
		o.WordsPerModule = DefaultWordsPerModule
	}
	if o.MaxModulesPerChunk <= 0 {
		o.MaxModulesPerChunk = DefaultMaxModulesPerChunk
	}
	o.MaxRetries = effectiveRetries(o.MaxRetries)
	return o
}

// Retries is the number of extra attempts each chunk gets.
func (o OutlineOptions) Retries() int { return effectiveRetries(o.MaxRetries) }

// Service runs storyboard and outline pipelines against one generator.
type Service struct {
	gen     llm.Generator
	log     *slog.Logger
	backoff func(int) time.Duration
}

func NewService(gen llm.Generator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{gen: gen, log: log}
}

// WithBackoff overrides the wait after transient generation errors.
func (s *Service) WithBackoff(fn func(int) time.Duration) *Service {
	s.backoff = fn
	return s
}

// Storyboard breaks a narration script into numbered scenes plus the
// characters they use.
func (s *Service) Storyboard(ctx context.Context, script string, opts SceneOptions) (*Storyboard, error) {
	opts = opts.withDefaults()

	var policy budget.Policy = budget.DirectRatio{Words: opts.WordsPerScene}
	var narrative *NarrativeContext
	if opts.NarrativePrepass {
		policy = budget.NewDurationMediated(opts.SceneDurationSeconds)
		var err error
		if narrative, err = s.Narrative(ctx, script, opts); err != nil {
			return nil, fmt.Errorf("narrative pre-pass: %w", err)
		}
	}

	runner, err := sequence.NewRunner[Scene, Story](s.gen, SceneStrategy{Narrative: narrative}, sequence.Config{
		Policy:           policy,
		MaxUnitsPerChunk: opts.MaxScenesPerChunk,
		MaxRetries:       opts.MaxRetries,
		Backoff:          s.backoff,
		Observer:         opts.Observer,
		Logger:           s.log.With("pipeline", "scenes"),
	})
	if err != nil {
		return nil, err
	}
	res, err := runner.Run(ctx, script)
	if err != nil {
		return nil, err
	}

	sb := &Storyboard{
		RunID:         res.RunID,
		Mode:          res.Mode,
		Estimated:     res.Estimated,
		Characters:    res.Entities,
		Scenes:        res.Units,
		Story:         res.Meta,
		Narrative:     narrative,
		Discrepancies: res.Discrepancies,
	}
	if narrative != nil {
		story := narrative.Story
		sb.Story = &story
	}
	return sb, nil
}

// Narrative runs the pre-pass alone: scene briefs plus story metadata,
// estimated from narration time.
func (s *Service) Narrative(ctx context.Context, script string, opts SceneOptions) (*NarrativeContext, error) {
	opts = opts.withDefaults()
	runner, err := sequence.NewRunner[SceneBrief, Story](s.gen, NarrativeStrategy{}, sequence.Config{
		Policy:           budget.NewDurationMediated(opts.SceneDurationSeconds),
		MaxUnitsPerChunk: opts.MaxScenesPerChunk,
		MaxRetries:       opts.MaxRetries,
		Backoff:          s.backoff,
		Observer:         opts.Observer,
		Logger:           s.log.With("pipeline", "narrative"),
	})
	if err != nil {
		return nil, err
	}
	res, err := runner.Run(ctx, script)
	if err != nil {
		return nil, err
	}
	nc := &NarrativeContext{SceneBriefs: res.Units}
	if res.Meta != nil {
		nc.Story = *res.Meta
	}
	return nc, nil
}

// Outline distills a source book into principle modules.
func (s *Service) Outline(ctx context.Context, book string, opts OutlineOptions) (*Outline, error) {
	opts = opts.withDefaults()
	runner, err := sequence.NewRunner[Module, BookOverview](s.gen, ModuleStrategy{Title: opts.Title}, sequence.Config{
		Policy:           budget.DirectRatio{Words: opts.WordsPerModule},
		MaxUnitsPerChunk: opts.MaxModulesPerChunk,
		MaxRetries:       opts.MaxRetries,
		Backoff:          s.backoff,
		Observer:         opts.Observer,
		Logger:           s.log.With("pipeline", "modules"),
	})
	if err != nil {
		return nil, err
	}
	res, err := runner.Run(ctx, book)
	if err != nil {
		return nil, err
	}

	out := &Outline{
		RunID:         res.RunID,
		Mode:          res.Mode,
		Estimated:     res.Estimated,
		Overview:      res.Meta,
		Modules:       res.Units,
		Concepts:      res.Entities,
		Discrepancies: res.Discrepancies,
	}
	if out.Overview == nil {
		out.Overview = &BookOverview{}
	}
	if out.Overview.Title == "" {
		out.Overview.Title = opts.Title
	}
	return out, nil
}
