package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/scenegest/internal/budget"
	"github.com/dgallion1/scenegest/internal/chunker"
	"github.com/dgallion1/scenegest/internal/llm"
)

func newTestRunner(t *testing.T, gen llm.Generator, obs Observer) *Runner[testUnit, testMeta] {
	t.Helper()
	r, err := NewRunner[testUnit, testMeta](gen, testStrategy{}, Config{
		Policy:           budget.DirectRatio{Words: 12},
		MaxUnitsPerChunk: 50,
		MaxRetries:       DefaultMaxRetries,
		Backoff:          noBackoff,
		Observer:         obs,
	})
	require.NoError(t, err)
	return r
}

func assertContiguous(t *testing.T, us []testUnit) {
	t.Helper()
	for i, u := range us {
		require.Equal(t, i+1, u.N, "unit at position %d", i)
	}
}

func TestRun_ChunkedStartsFollowActualCounts(t *testing.T) {
	text := sentencesText(180, 10)
	require.Equal(t, 1800, chunker.CountWords(text))

	gen := &scripted{answer: func(n int, c call) (string, error) {
		count := c.Expected
		if c.Start == 1 {
			count = 45
		}
		return unitsJSON(c.Start, count,
			Entity{ID: "narrator-" + string(rune('a'+n)), Name: "Narrator"},
			Entity{ID: "e", Name: "Extra " + string(rune('A'+n))},
		), nil
	}}
	r := newTestRunner(t, gen, nil)

	res, err := r.Run(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, ModeChunked, res.Mode)
	assert.Equal(t, 150, res.Estimated)
	assert.Equal(t, 3, res.Chunks)

	calls := gen.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []int{1, 46, 96}, []int{calls[0].Start, calls[1].Start, calls[2].Start})
	assert.Equal(t, []int{50, 50, 50}, []int{calls[0].Expected, calls[1].Expected, calls[2].Expected})
	assert.True(t, calls[0].First)
	assert.False(t, calls[1].First)
	assert.Equal(t, []int{0, 2, 3}, []int{calls[0].Known, calls[1].Known, calls[2].Known})

	require.Len(t, res.Units, 145)
	assertContiguous(t, res.Units)

	require.Len(t, res.Entities, 4)
	assert.Equal(t, "Narrator", res.Entities[0].Name)
	assert.Equal(t, "narrator-b", res.Entities[0].ID)

	require.NotNil(t, res.Meta)
	assert.Equal(t, "arc-1", res.Meta.Arc)
	assert.Equal(t, []Discrepancy{{Chunk: 0, Expected: 50, Actual: 45}}, res.Discrepancies)
	assert.False(t, res.Undercounted())
	assert.NotEmpty(t, res.RunID)
}

func TestRun_SingleShot(t *testing.T) {
	var states []State
	gen := &scripted{answer: func(n int, c call) (string, error) {
		return unitsJSON(c.Start, c.Expected), nil
	}}
	r := newTestRunner(t, gen, func(ev Event) { states = append(states, ev.State) })

	res, err := r.Run(context.Background(), sentencesText(12, 10))
	require.NoError(t, err)

	assert.Equal(t, ModeSingleShot, res.Mode)
	assert.Equal(t, 10, res.Estimated)
	require.Len(t, res.Units, 10)
	assertContiguous(t, res.Units)
	assert.Empty(t, res.Discrepancies)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].Start)
	assert.True(t, calls[0].First)

	assert.Equal(t, []State{StateEstimating, StateSingleShot, StateSingleShot, StateAssembling, StateDone}, states)
}

func TestRun_ExactlyOneChunkIsSingleShot(t *testing.T) {
	gen := &scripted{answer: func(n int, c call) (string, error) {
		return unitsJSON(c.Start, c.Expected), nil
	}}
	res, err := newTestRunner(t, gen, nil).Run(context.Background(), sentencesText(60, 10))
	require.NoError(t, err)
	assert.Equal(t, ModeSingleShot, res.Mode)
	assert.Len(t, res.Units, 50)
}

func TestRun_RecoversWithoutWarning(t *testing.T) {
	gen := &scripted{answer: func(n int, c call) (string, error) {
		if n < 3 {
			return "", &llm.GenerationError{Provider: "fake", Err: errors.New("socket hang up")}
		}
		return unitsJSON(c.Start, c.Expected), nil
	}}
	res, err := newTestRunner(t, gen, nil).Run(context.Background(), sentencesText(5, 12))
	require.NoError(t, err)
	assert.Len(t, res.Units, 5)
	assert.Empty(t, res.Discrepancies)
	assert.False(t, res.Undercounted())
}

func TestRun_UndercountIsWarningNotError(t *testing.T) {
	gen := &scripted{answer: func(n int, c call) (string, error) {
		return unitsJSON(c.Start, 2), nil
	}}
	res, err := newTestRunner(t, gen, nil).Run(context.Background(), sentencesText(10, 12))
	require.NoError(t, err)
	assert.Len(t, res.Units, 2)
	assert.True(t, res.Undercounted())
}

func TestRun_EmptyChunkFailsWithoutPartialOutput(t *testing.T) {
	var states []State
	gen := &scripted{answer: func(n int, c call) (string, error) {
		if c.Start == 1 {
			return unitsJSON(c.Start, c.Expected), nil
		}
		return `{"units":[]}`, nil
	}}
	r := newTestRunner(t, gen, func(ev Event) { states = append(states, ev.State) })

	res, err := r.Run(context.Background(), sentencesText(180, 10))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrEmptyChunk)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateChunking, runErr.State)
	assert.Equal(t, 1, runErr.Chunk)
	assert.Equal(t, StateFailed, states[len(states)-1])

	// chunk 1 plus three attempts on chunk 2; chunk 3 is never requested
	assert.Len(t, gen.Calls(), 4)
}

func TestRun_GenerationErrorIsFatal(t *testing.T) {
	gen := &scripted{answer: func(n int, c call) (string, error) {
		return "", &llm.GenerationError{Provider: "fake", Err: errors.New("invalid api key")}
	}}
	_, err := newTestRunner(t, gen, nil).Run(context.Background(), "One short sentence.")

	var genErr *llm.GenerationError
	require.ErrorAs(t, err, &genErr)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateSingleShot, runErr.State)
	assert.Equal(t, 0, runErr.Chunk)
}

func TestRun_RejectsEmptyInputBeforeGenerating(t *testing.T) {
	gen := &scripted{answer: func(n int, c call) (string, error) {
		t.Fatal("generator must not be called")
		return "", nil
	}}
	_, err := newTestRunner(t, gen, nil).Run(context.Background(), "   \n\t ")
	require.ErrorIs(t, err, ErrInvalidInput)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateEstimating, runErr.State)
	assert.Equal(t, -1, runErr.Chunk)
}

func TestNewRunner_ValidatesConfig(t *testing.T) {
	gen := &scripted{}
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing policy", Config{MaxUnitsPerChunk: 10}},
		{"zero words per unit", Config{Policy: budget.DirectRatio{Words: 0}, MaxUnitsPerChunk: 10}},
		{"zero chunk ceiling", Config{Policy: budget.DirectRatio{Words: 12}}},
		{"negative retries", Config{Policy: budget.DirectRatio{Words: 12}, MaxUnitsPerChunk: 10, MaxRetries: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRunner[testUnit, testMeta](gen, testStrategy{}, tc.cfg)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &scripted{answer: func(n int, c call) (string, error) {
		return unitsJSON(c.Start, c.Expected), nil
	}}
	_, err := newTestRunner(t, gen, nil).Run(ctx, sentencesText(3, 10))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gen.Calls())
}

func TestRun_DurationPolicy(t *testing.T) {
	gen := &scripted{answer: func(n int, c call) (string, error) {
		return unitsJSON(c.Start, c.Expected), nil
	}}
	r, err := NewRunner[testUnit, testMeta](gen, testStrategy{}, Config{
		Policy:           budget.NewDurationMediated(4),
		MaxUnitsPerChunk: 50,
		Backoff:          noBackoff,
	})
	require.NoError(t, err)

	// 300 words: 2 minutes of narration, 30 four-second scenes.
	res, err := r.Run(context.Background(), sentencesText(30, 10))
	require.NoError(t, err)
	assert.Equal(t, 30, res.Estimated)
	assert.Len(t, res.Units, 30)
}

func TestPlan(t *testing.T) {
	r := newTestRunner(t, &scripted{}, nil)

	total, chunks := r.Plan(sentencesText(180, 10))
	assert.Equal(t, 150, total)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1, 51, 101}, []int{chunks[0].Start, chunks[1].Start, chunks[2].Start})
	assert.Equal(t, 150, chunks[2].End())

	total, chunks = r.Plan("")
	assert.Zero(t, total)
	assert.Empty(t, chunks)
}
