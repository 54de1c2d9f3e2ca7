package script

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/scenegest/internal/chunker"
	"github.com/dgallion1/scenegest/internal/llm"
	"github.com/dgallion1/scenegest/internal/sequence"
)

// Limits on rewrite input and length.
const (
	MinRewriteChars = 50
	MinRewriteWords = 50
	MaxRewriteWords = 10000
)

// RewriteRequest is existing text to recast in the narration voice.
type RewriteRequest struct {
	Text            string `json:"input_text"`
	TargetWordCount int    `json:"target_word_count"`
}

// Validate checks the request before any model call.
func (r RewriteRequest) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(r.Text)) < MinRewriteChars {
		return fmt.Errorf("%w: input text must be at least %d characters", sequence.ErrInvalidInput, MinRewriteChars)
	}
	if r.TargetWordCount < MinRewriteWords || r.TargetWordCount > MaxRewriteWords {
		return fmt.Errorf("%w: target word count must be between %d and %d, got %d", sequence.ErrInvalidInput, MinRewriteWords, MaxRewriteWords, r.TargetWordCount)
	}
	return nil
}

// Rewrite is rewritten text with its length against the target.
type Rewrite struct {
	Content         string  `json:"rewritten_text"`
	InputWordCount  int     `json:"input_word_count"`
	OutputWordCount int     `json:"output_word_count"`
	TargetWordCount int     `json:"target_word_count"`
	Variance        int     `json:"variance"`
	VariancePercent float64 `json:"variance_percent"`
}

// RewriteMaxTokens sizes the output budget for a rewrite. Rewrites are
// shorter than full scripts, so the floor is lower than MaxTokensFor's.
func RewriteMaxTokens(target int) int {
	return min(max(target*2, 4096), 16384)
}

// Rewrite recasts arbitrary text as a narration script of about the
// target length.
func (w *Writer) Rewrite(ctx context.Context, req RewriteRequest) (*Rewrite, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	inWords := chunker.CountWords(req.Text)
	w.log.Info("rewriting", "input_words", inWords, "target", req.TargetWordCount)

	out, err := w.gen.Generate(ctx, llm.Request{
		System:          systemPrompt,
		Prompt:          rewritePrompt(req.Text, req.TargetWordCount),
		Temperature:     0.7,
		MaxOutputTokens: RewriteMaxTokens(req.TargetWordCount),
	})
	if err != nil {
		return nil, fmt.Errorf("rewrite: %w", err)
	}
	content := strings.TrimSpace(out)
	if content == "" {
		return nil, fmt.Errorf("rewrite: %w: empty response", llm.ErrMalformed)
	}

	words := chunker.CountWords(content)
	variance := words - req.TargetWordCount
	w.log.Info("rewrite done", "words", words, "target", req.TargetWordCount, "variance", variance)
	return &Rewrite{
		Content:         content,
		InputWordCount:  inWords,
		OutputWordCount: words,
		TargetWordCount: req.TargetWordCount,
		Variance:        variance,
		VariancePercent: float64(variance) / float64(req.TargetWordCount) * 100,
	}, nil
}
