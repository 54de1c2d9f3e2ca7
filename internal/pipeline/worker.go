package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/scenegest/internal/metrics"
	"github.com/dgallion1/scenegest/internal/parser"
	"github.com/dgallion1/scenegest/internal/script"
	"github.com/dgallion1/scenegest/internal/sequence"
	"github.com/dgallion1/scenegest/internal/storyboard"
)

// ScriptOutput is the result of a script job, optionally with the
// storyboard generated from the finished script.
type ScriptOutput struct {
	*script.Result
	Storyboard *storyboard.Storyboard `json:"storyboard,omitempty"`
}

// Worker processes a single generation job.
type Worker struct {
	scenes    *storyboard.Service
	writer    *script.Writer
	cache     *ResultCache
	parseOpts parser.Options
	model     string
	log       *slog.Logger
}

func NewWorker(scenes *storyboard.Service, writer *script.Writer, cache *ResultCache, parseOpts parser.Options, model string, log *slog.Logger) *Worker {
	return &Worker{
		scenes:    scenes,
		writer:    writer,
		cache:     cache,
		parseOpts: parseOpts,
		model:     model,
		log:       log,
	}
}

// Process runs the pipeline for the job's kind and records the outcome on
// the job. It never returns an error; failures end in StatusFailed.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "kind", job.Kind)
	start := time.Now()
	in := job.Input()

	var (
		out any
		err error
	)
	switch job.Kind {
	case KindStoryboard:
		out, err = w.storyboard(ctx, job, in.Text, in.Scenes, in.Force, log)
	case KindOutline:
		out, err = w.outline(ctx, job, in, log)
	case KindScript:
		out, err = w.script(ctx, job, in, log)
	case KindRewrite:
		job.SetStatus(StatusGenerating, "rewrite")
		out, err = w.writer.Rewrite(ctx, in.Rewrite)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	switch {
	case err != nil:
		logFailure(log, err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
	case len(job.Snapshot().Progress.Warnings) > 0:
		job.SetResult(out)
		job.SetStatus(StatusCompletedWithWarnings, "done")
	default:
		job.SetResult(out)
		job.SetStatus(StatusCompleted, "done")
	}

	final := job.Snapshot()
	metrics.JobsTotal.WithLabelValues(string(job.Kind), string(final.Status)).Inc()
	log.Info("job finished", "status", final.Status, "cached", final.Cached, "duration_ms", time.Since(start).Milliseconds())
}

type sceneSettings struct {
	Model                string  `json:"model"`
	WordsPerScene        float64 `json:"words_per_scene"`
	SceneDurationSeconds float64 `json:"scene_duration_seconds"`
	MaxScenesPerChunk    int     `json:"max_scenes_per_chunk"`
	MaxRetries           int     `json:"max_retries"`
	NarrativePrepass     bool    `json:"narrative_prepass"`
}

func (w *Worker) storyboard(ctx context.Context, job *Job, text string, opts storyboard.SceneOptions, force bool, log *slog.Logger) (*storyboard.Storyboard, error) {
	key, err := CacheKey(KindStoryboard, sceneSettings{
		Model:                w.model,
		WordsPerScene:        opts.WordsPerScene,
		SceneDurationSeconds: opts.SceneDurationSeconds,
		MaxScenesPerChunk:    opts.MaxScenesPerChunk,
		MaxRetries:           opts.Retries(),
		NarrativePrepass:     opts.NarrativePrepass,
	}, []byte(text))
	if err != nil {
		return nil, err
	}
	if v, ok := w.fromCache(job, key, force, log); ok {
		if sb, ok := v.(*storyboard.Storyboard); ok {
			return sb, nil
		}
	}

	if opts.NarrativePrepass {
		job.SetStatus(StatusPlanning, "narrative")
	} else {
		job.SetStatus(StatusGenerating, "scenes")
	}
	opts.Observer = w.observer(job, opts.NarrativePrepass)

	sb, err := w.scenes.Storyboard(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	w.warnDiscrepancies(job, "scene", sb.Discrepancies, log)
	w.store(job, key, sb)
	return sb, nil
}

type outlineSettings struct {
	Model              string  `json:"model"`
	Title              string  `json:"title"`
	WordsPerModule     float64 `json:"words_per_module"`
	MaxModulesPerChunk int     `json:"max_modules_per_chunk"`
	MaxRetries         int     `json:"max_retries"`
}

func (w *Worker) outline(ctx context.Context, job *Job, in Input, log *slog.Logger) (*storyboard.Outline, error) {
	text := in.Text
	opts := in.Outline
	if len(in.FileData) > 0 {
		job.SetStatus(StatusParsing, "parsing")
		doc, err := parser.ReadBytes(in.FileData, job.Filename, w.parseOpts)
		if err != nil {
			return nil, err
		}
		job.releaseInput()
		log.Info("parsed source", "filename", job.Filename, "words", doc.Words, "sections", doc.Sections)
		text = doc.Text
		if opts.Title == "" {
			opts.Title = doc.Title
		}
	}

	key, err := CacheKey(KindOutline, outlineSettings{
		Model:              w.model,
		Title:              opts.Title,
		WordsPerModule:     opts.WordsPerModule,
		MaxModulesPerChunk: opts.MaxModulesPerChunk,
		MaxRetries:         opts.Retries(),
	}, []byte(text))
	if err != nil {
		return nil, err
	}
	if v, ok := w.fromCache(job, key, in.Force, log); ok {
		if o, ok := v.(*storyboard.Outline); ok {
			return o, nil
		}
	}

	job.SetStatus(StatusGenerating, "modules")
	opts.Observer = w.observer(job, false)
	out, err := w.scenes.Outline(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	w.warnDiscrepancies(job, "module", out.Discrepancies, log)
	w.store(job, key, out)
	return out, nil
}

func (w *Worker) script(ctx context.Context, job *Job, in Input, log *slog.Logger) (*ScriptOutput, error) {
	job.SetStatus(StatusGenerating, "script")
	res, err := w.writer.Write(ctx, in.Brief)
	if err != nil {
		return nil, err
	}
	out := &ScriptOutput{Result: res}
	if !in.Storyboard {
		return out, nil
	}
	sb, err := w.storyboard(ctx, job, res.Script.Content, in.Scenes, in.Force, log)
	if err != nil {
		return nil, fmt.Errorf("storyboard from script: %w", err)
	}
	out.Storyboard = sb
	return out, nil
}

// observer maps runner events onto job progress. With a narrative
// pre-pass the first run seen is the planning pass.
func (w *Worker) observer(job *Job, prepass bool) sequence.Observer {
	planningRun := ""
	return func(ev sequence.Event) {
		if prepass {
			if planningRun == "" {
				planningRun = ev.RunID
			}
			if ev.RunID != planningRun && ev.State == sequence.StateEstimating {
				job.SetStatus(StatusGenerating, "scenes")
			}
		}
		job.Observe(ev)
	}
}

func (w *Worker) fromCache(job *Job, key string, force bool, log *slog.Logger) (any, bool) {
	if w.cache == nil || force {
		return nil, false
	}
	hit, ok := w.cache.Get(key)
	if !ok {
		return nil, false
	}
	log.Info("result cache hit", "cache_key", key)
	job.mu.Lock()
	job.CacheKey = key
	job.Cached = true
	job.mu.Unlock()
	for _, warn := range hit.Warnings {
		job.AddWarning(warn)
	}
	return hit.Result, true
}

func (w *Worker) store(job *Job, key string, v any) {
	job.mu.Lock()
	job.CacheKey = key
	job.mu.Unlock()
	if w.cache == nil {
		return
	}
	snap := job.Snapshot()
	w.cache.Put(key, CachedResult{Result: v, Warnings: snap.Progress.Warnings})
}

func (w *Worker) warnDiscrepancies(job *Job, unit string, ds []sequence.Discrepancy, log *slog.Logger) {
	for _, d := range ds {
		if !d.Undercount {
			continue
		}
		msg := fmt.Sprintf("chunk %d: expected %d %ss, got %d", d.Chunk+1, d.Expected, unit, d.Actual)
		log.Warn("undercount accepted", "chunk", d.Chunk, "expected", d.Expected, "actual", d.Actual)
		job.AddWarning(msg)
	}
}

func logFailure(log *slog.Logger, err error) {
	var runErr *sequence.RunError
	if errors.As(err, &runErr) {
		log.Error("job failed", "run_id", runErr.RunID, "state", runErr.State, "chunk", runErr.Chunk, "error", runErr.Err)
		return
	}
	log.Error("job failed", "error", err)
}
