package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/scenegest/internal/sequence"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestCacheKey(t *testing.T) {
	type settings struct {
		Words float64 `json:"words"`
	}
	a, err := CacheKey(KindStoryboard, settings{12}, []byte("script"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	same, _ := CacheKey(KindStoryboard, settings{12}, []byte("script"))
	if a != same {
		t.Error("expected identical requests to share a key")
	}

	variants := map[string]func() (string, error){
		"kind":     func() (string, error) { return CacheKey(KindOutline, settings{12}, []byte("script")) },
		"settings": func() (string, error) { return CacheKey(KindStoryboard, settings{10}, []byte("script")) },
		"input":    func() (string, error) { return CacheKey(KindStoryboard, settings{12}, []byte("script!")) },
	}
	for name, fn := range variants {
		k, err := fn()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if k == a {
			t.Errorf("expected a different key when %s changes", name)
		}
	}

	if _, err := CacheKey(KindStoryboard, func() {}, nil); err == nil {
		t.Error("expected error for unmarshalable settings")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob(KindStoryboard, Input{Text: "x"})
	if job.ID == "" || job.Status != StatusQueued {
		t.Fatalf("unexpected new job %+v", job.Snapshot())
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusPlanning, "narrative"},
		{StatusGenerating, "scenes"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJobStatus_Finished(t *testing.T) {
	tests := map[JobStatus]bool{
		StatusQueued:                false,
		StatusParsing:               false,
		StatusPlanning:              false,
		StatusGenerating:            false,
		StatusCompleted:             true,
		StatusCompletedWithWarnings: true,
		StatusFailed:                true,
	}
	for status, want := range tests {
		if got := status.Finished(); got != want {
			t.Errorf("%s.Finished() = %v, want %v", status, got, want)
		}
	}
}

func TestJob_ErrorsAndWarnings(t *testing.T) {
	job := NewJob(KindOutline, Input{})
	job.AddError("chunk 3 failed")
	job.AddWarning("chunk 1: expected 6 modules, got 4")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "chunk 3 failed" {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
	if len(snap.Progress.Warnings) != 1 {
		t.Errorf("unexpected warnings %v", snap.Progress.Warnings)
	}

	// Snapshot slices are copies.
	snap.Progress.Errors[0] = "mutated"
	if job.Snapshot().Progress.Errors[0] != "chunk 3 failed" {
		t.Error("expected snapshot to be independent of the job")
	}
}

func TestJob_SnapshotSlicesNotNil(t *testing.T) {
	snap := NewJob(KindScript, Input{}).Snapshot()
	if snap.Progress.Errors == nil || snap.Progress.Warnings == nil {
		t.Error("expected non-nil errors and warnings in snapshot")
	}
}

func TestJob_Observe(t *testing.T) {
	job := NewJob(KindStoryboard, Input{})
	job.Observe(sequence.Event{RunID: "r1", State: sequence.StateEstimating})
	job.Observe(sequence.Event{RunID: "r1", State: sequence.StateChunking})
	job.Observe(sequence.Event{RunID: "r1", State: sequence.StateChunking, Chunk: 0, Chunks: 3, Units: 50})
	job.Observe(sequence.Event{RunID: "r1", State: sequence.StateChunking, Chunk: 1, Chunks: 3, Units: 95})

	p := job.Snapshot().Progress
	if p.RunID != "r1" || p.TotalChunks != 3 || p.ChunksDone != 2 || p.Units != 95 {
		t.Errorf("unexpected progress %+v", p)
	}

	job.Observe(sequence.Event{RunID: "r2", State: sequence.StateSingleShot, Chunks: 1, Units: 7})
	p = job.Snapshot().Progress
	if p.RunID != "r2" || p.TotalChunks != 1 || p.ChunksDone != 1 || p.Units != 7 {
		t.Errorf("unexpected progress after single shot %+v", p)
	}
}

func TestJob_ReleaseInput(t *testing.T) {
	job := NewJob(KindOutline, Input{FileData: []byte("book bytes"), Text: "t"})
	job.releaseInput()
	in := job.Input()
	if in.FileData != nil {
		t.Error("expected file data to be released")
	}
	if in.Text != "t" {
		t.Error("expected other input to survive")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := NewJob(KindStoryboard, Input{})
	store.Put(job)

	got := store.Get(job.ID)
	if got != job {
		t.Fatal("expected to get the same job back")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLExpiry(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := NewJob(KindStoryboard, Input{})
	store.Put(expired)
	time.Sleep(100 * time.Millisecond)

	fresh := NewJob(KindStoryboard, Input{})
	store.Put(fresh)
	store.Cleanup()

	if store.Get(expired.ID) != nil {
		t.Error("expected expired job to be gone")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestResultCache(t *testing.T) {
	rc := NewResultCache(time.Hour)
	if _, ok := rc.Get("k"); ok {
		t.Fatal("expected miss on empty cache")
	}
	rc.Put("k", CachedResult{Result: "out", Warnings: []string{"w"}})
	got, ok := rc.Get("k")
	if !ok || got.Result != "out" || len(got.Warnings) != 1 {
		t.Errorf("unexpected cached result %+v (ok=%v)", got, ok)
	}
}
