// Package llm is the text-generation boundary: a provider-neutral request,
// the Anthropic and OpenAI adapters, and helpers for pulling JSON out of
// model output.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Request is one prompt to a generation backend.
type Request struct {
	System string
	Prompt string

	// Structured asks for a single JSON object. It is a request, not a
	// guarantee: callers still validate what comes back.
	Structured bool
	// Schema optionally describes the expected object (see GenerateSchema).
	// Backends that cannot enforce it fall back to plain JSON mode.
	Schema     any
	SchemaName string

	Temperature     float64
	MaxOutputTokens int
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ErrMalformed is returned when model output does not contain the expected
// structure. It is recoverable: the caller may ask again.
var ErrMalformed = errors.New("malformed model output")

// GenerationError is a failure of the backend itself (network, quota, model).
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RetryableError indicates a transient failure that can be retried after a pause.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, Truncate(e.Message, 200))
}

// IsRetryable reports whether err is worth retrying after backoff.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON pulls the JSON object out of a model response: a fenced code
// block if present, otherwise the outermost braces, otherwise the whole text.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		return m[1]
	}
	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first != -1 && last > first {
		return raw[first : last+1]
	}
	return raw
}

// Truncate shortens s to n bytes for logging.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
