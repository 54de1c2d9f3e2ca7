// Package sequence turns a long text into one ordered, contiguously numbered
// list of generated units. A Runner estimates the unit count, splits the text
// into sentence-aligned chunks, asks a Strategy-driven ChunkGenerator for each
// chunk in order and assembles the results.
package sequence

import (
	"errors"
	"fmt"
	"math"

	"github.com/dgallion1/scenegest/internal/llm"
)

// Unit is a generated record carrying a sequence number. WithNumber returns
// a copy renumbered to n.
type Unit[U any] interface {
	Number() int
	WithNumber(n int) U
}

// Entity is a side record (a character, a recurring object) discovered while
// generating units. Entities are merged across chunks by exact Name.
type Entity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Chunk is one slice of input text and the units it should yield.
type Chunk struct {
	Index    int
	Total    int
	Text     string
	Expected int
	Start    int
	First    bool
	// Known holds entities merged from earlier chunks, in discovery order.
	Known []Entity
}

// End is the last number the chunk is expected to produce.
func (c Chunk) End() int { return c.Start + c.Expected - 1 }

// Shortfall describes the previous attempt when a chunk is retried.
type Shortfall struct {
	Attempt int
	Got     int
	Want    int
	Min     int
	Start   int
}

// Batch is one parsed model response.
type Batch[U any, M any] struct {
	Units    []U
	Entities []Entity
	Meta     *M
}

// Strategy supplies the domain half of chunk generation: how to ask for a
// chunk and how to read the answer.
type Strategy[U Unit[U], M any] interface {
	// BuildRequest encodes the chunk's expected count and starting number.
	// short is nil on the first attempt.
	BuildRequest(c Chunk, short *Shortfall) llm.Request
	// Parse returns a validated batch or an error. Errors are treated as an
	// empty response and retried.
	Parse(raw string) (Batch[U, M], error)
}

// ChunkResult is the accepted output for one chunk.
type ChunkResult[U any, M any] struct {
	Chunk      int
	First      bool
	Start      int
	Expected   int
	Attempts   int
	Undercount bool
	Units      []U
	Entities   []Entity
	Meta       *M
}

var (
	// ErrInvalidInput rejects a run before any generation call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrParse means no attempt for a chunk produced a parseable response.
	ErrParse = errors.New("unparseable response")
	// ErrEmptyChunk means a chunk produced no units after every attempt.
	ErrEmptyChunk = errors.New("chunk produced no units")
	// ErrSequenceGap means assembled numbers are not exactly 1..N.
	ErrSequenceGap = errors.New("sequence numbers are not contiguous")
)

// Tolerance is the accepted shortfall before a chunk is retried.
const Tolerance = 0.15

// DefaultMaxRetries is the number of extra attempts per chunk.
const DefaultMaxRetries = 2

// MinExpected is the smallest unit count accepted without retry.
func MinExpected(expected int) int {
	return int(math.Floor(float64(expected)*(1-Tolerance) + 1e-9))
}

// RunError is the terminal failure of a run. It carries the state the run
// was in and the chunk being generated (-1 when no chunk was involved).
type RunError struct {
	RunID string
	State State
	Chunk int
	Err   error
}

func (e *RunError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("run %s failed while %s (chunk %d): %v", e.RunID, e.State, e.Chunk, e.Err)
	}
	return fmt.Sprintf("run %s failed while %s: %v", e.RunID, e.State, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
