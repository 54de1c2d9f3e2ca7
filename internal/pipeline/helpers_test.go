package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgallion1/scenegest/internal/llm"
	"github.com/dgallion1/scenegest/internal/parser"
	"github.com/dgallion1/scenegest/internal/script"
	"github.com/dgallion1/scenegest/internal/storyboard"
)

var countRe = regexp.MustCompile(`EXACTLY (\d+) [a-z ]+?s?, numbered (\d+)`)

// fakeModel answers every pipeline request. short > 0 trims that many
// units from each structured answer.
type fakeModel struct {
	calls atomic.Int32
	short int
	fail  error
}

func (f *fakeModel) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.calls.Add(1)
	if f.fail != nil {
		return "", f.fail
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !req.Structured {
		switch req.MaxOutputTokens {
		case 200:
			return "**Core Question:** Why does saving feel impossible?", nil
		case 1500:
			return "1. **Principle Name:** Pay Yourself First **Description:** Save before you spend.", nil
		default:
			return sentences(30, 10), nil
		}
	}

	m := countRe.FindStringSubmatch(req.System)
	if m == nil {
		return "", fmt.Errorf("no count line in request")
	}
	n, _ := strconv.Atoi(m[1])
	start, _ := strconv.Atoi(m[2])
	n = max(1, n-f.short)

	var payload map[string]any
	switch req.SchemaName {
	case "principle_modules":
		var mods []storyboard.Module
		for i := range n {
			mods = append(mods, storyboard.Module{
				ModuleNumber:       start + i,
				PrincipleName:      fmt.Sprintf("Principle %d", start+i),
				Principle:          "why",
				Strategy:           "what",
				ActionableSteps:    []string{"step"},
				ReflectionQuestion: "so?",
			})
		}
		payload = map[string]any{"modules": mods, "concepts": []any{}, "overview": storyboard.BookOverview{Thesis: "save"}}
	case "narrative_plan":
		var briefs []storyboard.SceneBrief
		for i := range n {
			briefs = append(briefs, storyboard.SceneBrief{SceneNumber: start + i, FocalElement: "coin", VisualTone: storyboard.ToneCalm})
		}
		payload = map[string]any{"scene_briefs": briefs, "story": storyboard.Story{StoryArc: "planned"}}
	default:
		var scenes []storyboard.Scene
		for i := range n {
			scenes = append(scenes, storyboard.Scene{SceneNumber: start + i, ScriptSnippet: "words", VisualPrompt: "A coin on a table."})
		}
		payload = map[string]any{"scenes": scenes, "characters": []any{}, "story": storyboard.Story{StoryArc: "arc"}}
	}
	b, err := json.Marshal(payload)
	return string(b), err
}

func sentences(n, words int) string {
	var parts []string
	for range n {
		parts = append(parts, strings.Repeat("word ", words-1)+"end.")
	}
	return strings.Join(parts, " ")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noBackoff(int) time.Duration { return 0 }

func newTestWorker(gen llm.Generator, cache *ResultCache) *Worker {
	log := discardLogger()
	scenes := storyboard.NewService(gen, log).WithBackoff(noBackoff)
	return NewWorker(scenes, script.NewWriter(gen, log), cache, parser.Options{}, "test-model", log)
}

func sceneOpts() storyboard.SceneOptions {
	return storyboard.SceneOptions{WordsPerScene: 12, SceneDurationSeconds: 4, MaxScenesPerChunk: 50, MaxRetries: 1}
}
