// Package script writes the narration script a storyboard is built from:
// a core question distilled from topic, context and book, the book's
// principles, and the final draft.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dgallion1/scenegest/internal/chunker"
	"github.com/dgallion1/scenegest/internal/llm"
	"github.com/dgallion1/scenegest/internal/sequence"
)

// MinTargetWords is the shortest script the writer will attempt.
const MinTargetWords = 100

// CoreQuestion is the single question a video answers.
type CoreQuestion struct {
	Question string `json:"question"`
	Topic    string `json:"topic"`
	Context  string `json:"context"`
	Book     string `json:"book"`
}

// Principle is one foundational idea of a book.
type Principle struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DraftRequest is the input to Draft.
type DraftRequest struct {
	CoreQuestion    string
	Book            string
	Outline         string
	TargetWordCount int
}

// Script is a finished narration script.
type Script struct {
	Content         string  `json:"content"`
	WordCount       int     `json:"word_count"`
	TargetWordCount int     `json:"target_word_count"`
	Variance        int     `json:"variance"`
	VariancePercent float64 `json:"variance_percent"`
	Book            string  `json:"book"`
	CoreQuestion    string  `json:"core_question"`
}

// Writer produces scripts with one generator.
type Writer struct {
	gen llm.Generator
	log *slog.Logger
}

func NewWriter(gen llm.Generator, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{gen: gen, log: log}
}

var coreQuestionRe = regexp.MustCompile(`(?i)\*\*Core Question:\*\*\s*(.+)`)

// CoreQuestion distills topic, context and book into one question.
func (w *Writer) CoreQuestion(ctx context.Context, topic, viewerContext, book string) (*CoreQuestion, error) {
	if err := required("topic", topic, "context", viewerContext, "book", book); err != nil {
		return nil, err
	}
	out, err := w.gen.Generate(ctx, llm.Request{
		System:          systemPrompt,
		Prompt:          coreQuestionPrompt(topic, viewerContext, book),
		Temperature:     0.7,
		MaxOutputTokens: 200,
	})
	if err != nil {
		return nil, fmt.Errorf("core question: %w", err)
	}

	q := strings.TrimSpace(out)
	if m := coreQuestionRe.FindStringSubmatch(out); m != nil {
		q = strings.TrimSpace(m[1])
	}
	if q == "" {
		return nil, fmt.Errorf("core question: %w: empty response", llm.ErrMalformed)
	}
	w.log.Info("core question generated", "topic", topic, "question", q)
	return &CoreQuestion{Question: q, Topic: topic, Context: viewerContext, Book: book}, nil
}

var principleRe = regexp.MustCompile(`(?i)\d+\.\s*\*\*Principle Name:\*\*\s*([^\n*]+)\s*\*\*Description:\*\*\s*([^\n]+)`)

// Principles asks for the book's foundational principles relevant to question.
func (w *Writer) Principles(ctx context.Context, book, question string) ([]Principle, error) {
	if err := required("book", book, "core question", question); err != nil {
		return nil, err
	}
	out, err := w.gen.Generate(ctx, llm.Request{
		System:          systemPrompt,
		Prompt:          principlesPrompt(book, question),
		Temperature:     0.7,
		MaxOutputTokens: 1500,
	})
	if err != nil {
		return nil, fmt.Errorf("principles: %w", err)
	}
	ps := ParsePrinciples(out)
	if len(ps) == 0 {
		return nil, fmt.Errorf("principles: %w: no principles found", llm.ErrMalformed)
	}
	w.log.Info("principles extracted", "book", book, "count", len(ps))
	return ps, nil
}

// ParsePrinciples reads "1. **Principle Name:** X **Description:** Y" lines.
func ParsePrinciples(text string) []Principle {
	var out []Principle
	for _, m := range principleRe.FindAllStringSubmatch(text, -1) {
		out = append(out, Principle{Name: strings.TrimSpace(m[1]), Description: strings.TrimSpace(m[2])})
	}
	return out
}

// PrinciplesOutline renders principles as a numbered outline for Draft.
func PrinciplesOutline(ps []Principle) string {
	var sb strings.Builder
	for i, p := range ps {
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, p.Name, p.Description)
	}
	return sb.String()
}

// MaxTokensFor sizes the output budget for a target length.
func MaxTokensFor(target int) int {
	return min(max(target*2, 8192), 16384)
}

// Draft writes the final script from an outline and reports how far it
// landed from the target length.
func (w *Writer) Draft(ctx context.Context, req DraftRequest) (*Script, error) {
	if err := required("core question", req.CoreQuestion, "book", req.Book, "outline", req.Outline); err != nil {
		return nil, err
	}
	if req.TargetWordCount < MinTargetWords {
		return nil, fmt.Errorf("%w: target word count must be at least %d, got %d", sequence.ErrInvalidInput, MinTargetWords, req.TargetWordCount)
	}

	out, err := w.gen.Generate(ctx, llm.Request{
		System:          systemPrompt,
		Prompt:          draftPrompt(req.CoreQuestion, req.Book, req.Outline, req.TargetWordCount),
		Temperature:     0.7,
		MaxOutputTokens: MaxTokensFor(req.TargetWordCount),
	})
	if err != nil {
		return nil, fmt.Errorf("draft: %w", err)
	}
	content := strings.TrimSpace(out)
	if content == "" {
		return nil, fmt.Errorf("draft: %w: empty script", llm.ErrMalformed)
	}

	words := chunker.CountWords(content)
	variance := words - req.TargetWordCount
	s := &Script{
		Content:         content,
		WordCount:       words,
		TargetWordCount: req.TargetWordCount,
		Variance:        variance,
		VariancePercent: float64(variance) / float64(req.TargetWordCount) * 100,
		Book:            req.Book,
		CoreQuestion:    req.CoreQuestion,
	}
	w.log.Info("script drafted", "words", words, "target", req.TargetWordCount, "variance", variance)
	return s, nil
}

// Brief is everything needed to write a script from scratch.
type Brief struct {
	Topic           string `json:"topic"`
	Context         string `json:"context"`
	Book            string `json:"book"`
	Outline         string `json:"outline,omitempty"`
	TargetWordCount int    `json:"target_word_count"`
}

// Result is the output of Write.
type Result struct {
	CoreQuestion *CoreQuestion `json:"core_question"`
	Principles   []Principle   `json:"principles,omitempty"`
	Script       *Script       `json:"script"`
}

// Write runs the whole chain: core question, then principles when no
// outline is supplied, then the draft.
func (w *Writer) Write(ctx context.Context, b Brief) (*Result, error) {
	if b.TargetWordCount < MinTargetWords {
		return nil, fmt.Errorf("%w: target word count must be at least %d, got %d", sequence.ErrInvalidInput, MinTargetWords, b.TargetWordCount)
	}
	q, err := w.CoreQuestion(ctx, b.Topic, b.Context, b.Book)
	if err != nil {
		return nil, err
	}
	res := &Result{CoreQuestion: q}

	outline := b.Outline
	if strings.TrimSpace(outline) == "" {
		if res.Principles, err = w.Principles(ctx, b.Book, q.Question); err != nil {
			return nil, err
		}
		outline = PrinciplesOutline(res.Principles)
	}

	if res.Script, err = w.Draft(ctx, DraftRequest{
		CoreQuestion:    q.Question,
		Book:            b.Book,
		Outline:         outline,
		TargetWordCount: b.TargetWordCount,
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// required takes name, value pairs and rejects the first blank value.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: %s is required", sequence.ErrInvalidInput, pairs[i])
		}
	}
	return nil
}
