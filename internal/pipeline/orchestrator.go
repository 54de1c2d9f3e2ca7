package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/scenegest/internal/config"
	"github.com/dgallion1/scenegest/internal/llm"
	"github.com/dgallion1/scenegest/internal/metrics"
	"github.com/dgallion1/scenegest/internal/parser"
	"github.com/dgallion1/scenegest/internal/script"
	"github.com/dgallion1/scenegest/internal/storyboard"
)

// ErrQueueFull is returned by Submit when every queue slot is taken.
var ErrQueueFull = errors.New("job queue is full")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("orchestrator stopped")

// Orchestrator runs generation jobs on a fixed pool of workers fed by a
// bounded queue. Each worker owns its job's run exclusively.
type Orchestrator struct {
	jobs   *JobStore
	cache  *ResultCache
	queue  chan *Job
	worker *Worker
	log    *slog.Logger
	cfg    config.Config

	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewOrchestrator wires the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, gen llm.Generator, model string, log *slog.Logger) *Orchestrator {
	cache := NewResultCache(cfg.JobTTL)
	scenes := storyboard.NewService(gen, log)
	writer := script.NewWriter(gen, log)
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		cache:  cache,
		queue:  make(chan *Job, cfg.MaxQueueSize),
		worker: NewWorker(scenes, writer, cache, parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext}, model, log),
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.group, workerCtx = errgroup.WithContext(workerCtx)

	for i := range o.cfg.WorkerCount {
		o.group.Go(func() error {
			log := o.log.With("worker", i)
			for {
				select {
				case <-workerCtx.Done():
					return nil
				case job, ok := <-o.queue:
					if !ok {
						return nil
					}
					metrics.QueueDepth.Set(float64(len(o.queue)))
					log.Debug("picked up job", "job_id", job.ID)
					o.worker.Process(workerCtx, job)
					o.jobs.Put(job)
				}
			}
		})
	}
}

// Stop cancels in-flight jobs and waits for workers to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	if o.group != nil {
		_ = o.group.Wait()
	}
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		metrics.QueueDepth.Set(float64(len(o.queue)))
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		metrics.JobsTotal.WithLabelValues(string(job.Kind), string(StatusFailed)).Inc()
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Config returns the settings the orchestrator was built with.
func (o *Orchestrator) Config() config.Config {
	return o.cfg
}
