package sequence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/scenegest/internal/llm"
)

type testUnit struct {
	N    int    `json:"n"`
	Text string `json:"text"`
}

func (u testUnit) Number() int               { return u.N }
func (u testUnit) WithNumber(n int) testUnit { u.N = n; return u }

type testMeta struct {
	Arc string `json:"arc"`
}

type testPayload struct {
	Units    []testUnit `json:"units"`
	Entities []Entity   `json:"entities"`
	Meta     *testMeta  `json:"meta"`
}

// testStrategy encodes the chunk parameters into the prompt so scripted
// generators can answer for the right range.
type testStrategy struct{}

func (testStrategy) BuildRequest(c Chunk, short *Shortfall) llm.Request {
	p := fmt.Sprintf("start=%d expected=%d first=%t known=%d", c.Start, c.Expected, c.First, len(c.Known))
	if short != nil {
		p += fmt.Sprintf(" retry got=%d want=%d", short.Got, short.Want)
	}
	return llm.Request{Prompt: p, Structured: true}
}

func (testStrategy) Parse(raw string) (Batch[testUnit, testMeta], error) {
	var p testPayload
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &p); err != nil {
		return Batch[testUnit, testMeta]{}, fmt.Errorf("%w: %v", llm.ErrMalformed, err)
	}
	return Batch[testUnit, testMeta]{Units: p.Units, Entities: p.Entities, Meta: p.Meta}, nil
}

type call struct {
	Start, Expected, Known int
	First, Retry           bool
	Prompt                 string
}

// scripted is a Generator whose answer is computed per call.
type scripted struct {
	mu     sync.Mutex
	calls  []call
	answer func(n int, c call) (string, error)
}

func (s *scripted) Generate(ctx context.Context, req llm.Request) (string, error) {
	var c call
	fmt.Sscanf(req.Prompt, "start=%d expected=%d first=%t known=%d", &c.Start, &c.Expected, &c.First, &c.Known)
	c.Retry = strings.Contains(req.Prompt, "retry")
	c.Prompt = req.Prompt

	s.mu.Lock()
	s.calls = append(s.calls, c)
	n := len(s.calls)
	s.mu.Unlock()

	return s.answer(n, c)
}

func (s *scripted) Calls() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

// unitsJSON answers with count units numbered from start.
func unitsJSON(start, count int, entities ...Entity) string {
	p := testPayload{Entities: entities, Meta: &testMeta{Arc: fmt.Sprintf("arc-%d", start)}}
	for i := range count {
		p.Units = append(p.Units, testUnit{N: start + i, Text: fmt.Sprintf("unit %d", start+i)})
	}
	b, _ := json.Marshal(p)
	return string(b)
}

func noBackoff(int) time.Duration { return 0 }

func newTestGenerator(gen llm.Generator) *ChunkGenerator[testUnit, testMeta] {
	return NewChunkGenerator[testUnit, testMeta](gen, testStrategy{}, DefaultMaxRetries, nil).WithBackoff(noBackoff)
}

// sentencesText builds n sentences of wordsEach words.
func sentencesText(n, wordsEach int) string {
	var sb strings.Builder
	for i := range n {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.Repeat("lorem ", wordsEach-1))
		sb.WriteString("ipsum.")
	}
	return sb.String()
}
