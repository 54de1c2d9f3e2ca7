package pipeline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/dgallion1/scenegest/internal/script"
	"github.com/dgallion1/scenegest/internal/sequence"
	"github.com/dgallion1/scenegest/internal/storyboard"
)

// JobKind selects which pipeline a job runs.
type JobKind string

const (
	KindStoryboard JobKind = "storyboard"
	KindOutline    JobKind = "outline"
	KindScript     JobKind = "script"
	KindRewrite    JobKind = "rewrite"
)

// JobStatus represents the state of a generation job.
type JobStatus string

const (
	StatusQueued                JobStatus = "queued"
	StatusParsing               JobStatus = "parsing"
	StatusPlanning              JobStatus = "planning"
	StatusGenerating            JobStatus = "generating"
	StatusCompleted             JobStatus = "completed"
	StatusCompletedWithWarnings JobStatus = "completed_with_warnings"
	StatusFailed                JobStatus = "failed"
)

// Finished reports whether the job will not change again.
func (s JobStatus) Finished() bool {
	return s == StatusCompleted || s == StatusCompletedWithWarnings || s == StatusFailed
}

// Input carries everything a worker needs. Only the field matching the
// job kind is read.
type Input struct {
	Text    string // storyboard script or outline source
	Scenes  storyboard.SceneOptions
	Outline storyboard.OutlineOptions
	Brief   script.Brief
	Rewrite script.RewriteRequest
	// Storyboard chains a storyboard run after a script job.
	Storyboard bool

	// FileData is an uploaded source book, parsed by the worker.
	FileData []byte
	Force    bool
}

// Job tracks the state of a single generation request.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Kind     JobKind   `json:"kind"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename,omitempty"`
	Title    string    `json:"title,omitempty"`

	Progress Progress `json:"progress"`

	CacheKey  string    `json:"cache_key,omitempty"`
	Cached    bool      `json:"cached"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	input  Input
	result any
}

// Progress tracks processing progress.
type Progress struct {
	RunID       string   `json:"run_id,omitempty"`
	TotalChunks int      `json:"total_chunks"`
	ChunksDone  int      `json:"chunks_done"`
	Units       int      `json:"units"`
	Warnings    []string `json:"warnings"`
	Errors      []string `json:"errors"`
}

// NewJob creates a queued job with a fresh ID.
func NewJob(kind JobKind, in Input) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		input:     in,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Errors = append(j.Progress.Errors, err)
	j.UpdatedAt = time.Now()
}

// AddWarning records a non-fatal problem such as an undercounted chunk.
func (j *Job) AddWarning(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Warnings = append(j.Progress.Warnings, msg)
	j.UpdatedAt = time.Now()
}

// Observe folds runner events into the job's progress.
func (j *Job) Observe(ev sequence.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.RunID = ev.RunID
	if ev.Chunks > 0 {
		j.Progress.TotalChunks = ev.Chunks
	}
	if ev.Chunk >= 0 && ev.State == sequence.StateChunking && ev.Units > 0 {
		j.Progress.ChunksDone = ev.Chunk + 1
	}
	if ev.State == sequence.StateSingleShot && ev.Units > 0 {
		j.Progress.ChunksDone = 1
	}
	if ev.Units > 0 {
		j.Progress.Units = ev.Units
	}
	j.UpdatedAt = time.Now()
}

// SetResult stores the finished output.
func (j *Job) SetResult(v any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = v
	j.UpdatedAt = time.Now()
}

// Result returns the output and the status it was recorded under.
func (j *Job) Result() (any, JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.Status
}

// Input returns the job's request payload.
func (j *Job) Input() Input {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.input
}

// releaseInput drops the raw upload once it has been parsed.
func (j *Job) releaseInput() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.input.FileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Kind      JobKind   `json:"kind"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Filename  string    `json:"filename,omitempty"`
	Title     string    `json:"title,omitempty"`
	Cached    bool      `json:"cached"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Warnings = append([]string{}, p.Warnings...)
	p.Errors = append([]string{}, p.Errors...)
	return JobSnapshot{
		ID:        j.ID,
		Kind:      j.Kind,
		Status:    j.Status,
		Phase:     j.Phase,
		Filename:  j.Filename,
		Title:     j.Title,
		Cached:    j.Cached,
		Progress:  p,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	c *cache.Cache
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{c: cache.New(ttl, cleanupInterval(ttl))}
}

// Put stores or refreshes a job; the TTL restarts on every call.
func (s *JobStore) Put(job *Job) {
	s.c.Set(job.ID, job, cache.DefaultExpiration)
}

func (s *JobStore) Get(id string) *Job {
	v, ok := s.c.Get(id)
	if !ok {
		return nil
	}
	return v.(*Job)
}

// Cleanup drops expired jobs now instead of waiting for the janitor.
func (s *JobStore) Cleanup() {
	s.c.DeleteExpired()
}

func (s *JobStore) Len() int {
	return s.c.ItemCount()
}

// CachedResult is a finished job output reusable for identical requests.
type CachedResult struct {
	Result   any
	Warnings []string
}

// ResultCache maps a request fingerprint to a finished result.
type ResultCache struct {
	c *cache.Cache
}

func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{c: cache.New(ttl, cleanupInterval(ttl))}
}

func (rc *ResultCache) Get(key string) (CachedResult, bool) {
	v, ok := rc.c.Get(key)
	if !ok {
		return CachedResult{}, false
	}
	return v.(CachedResult), true
}

func (rc *ResultCache) Put(key string, r CachedResult) {
	rc.c.Set(key, r, cache.DefaultExpiration)
}

func cleanupInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Minute)
}

// CacheKey fingerprints a request from its kind, the settings that shape
// the output and the input text.
func CacheKey(kind JobKind, settings any, input []byte) (string, error) {
	cfg, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	buf := make([]byte, 0, len(kind)+len(cfg)+len(input)+2)
	buf = append(buf, kind...)
	buf = append(buf, 0)
	buf = append(buf, cfg...)
	buf = append(buf, 0)
	buf = append(buf, input...)
	return ContentHashHex(buf), nil
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
