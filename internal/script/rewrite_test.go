package script

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/scenegest/internal/llm"
	"github.com/dgallion1/scenegest/internal/sequence"
)

const article = "Compound interest rewards patience more than it rewards cleverness. Small, regular deposits outgrow large, irregular ones."

func TestRewrite(t *testing.T) {
	content := strings.TrimSpace(strings.Repeat("word ", 45))
	gen := &replay{responses: []string{content + "\n"}}
	out, err := NewWriter(gen, nil).Rewrite(context.Background(), RewriteRequest{Text: article, TargetWordCount: 50})
	require.NoError(t, err)

	assert.Equal(t, content, out.Content)
	assert.Equal(t, 16, out.InputWordCount)
	assert.Equal(t, 45, out.OutputWordCount)
	assert.Equal(t, -5, out.Variance)
	assert.InDelta(t, -10.0, out.VariancePercent, 0.001)

	require.Len(t, gen.requests, 1)
	assert.Equal(t, 4096, gen.requests[0].MaxOutputTokens)
	assert.Contains(t, gen.requests[0].Prompt, article)
	assert.Contains(t, gen.requests[0].Prompt, "about 50 words")
}

func TestRewriteValidation(t *testing.T) {
	tests := []struct {
		name string
		req  RewriteRequest
	}{
		{"short input", RewriteRequest{Text: "Too short to rewrite.", TargetWordCount: 200}},
		{"blank padded input", RewriteRequest{Text: strings.Repeat(" ", 80), TargetWordCount: 200}},
		{"target too small", RewriteRequest{Text: article, TargetWordCount: 49}},
		{"target too large", RewriteRequest{Text: article, TargetWordCount: 10001}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &replay{}
			_, err := NewWriter(gen, nil).Rewrite(context.Background(), tc.req)
			require.ErrorIs(t, err, sequence.ErrInvalidInput)
			assert.Empty(t, gen.requests)
		})
	}
}

func TestRewriteEmptyResponse(t *testing.T) {
	gen := &replay{responses: []string{"\n\n"}}
	_, err := NewWriter(gen, nil).Rewrite(context.Background(), RewriteRequest{Text: article, TargetWordCount: 100})
	require.ErrorIs(t, err, llm.ErrMalformed)
}

func TestRewriteMaxTokens(t *testing.T) {
	tests := []struct{ target, want int }{
		{50, 4096},
		{2048, 4096},
		{3000, 6000},
		{10000, 16384},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, RewriteMaxTokens(tc.target), "target=%d", tc.target)
	}
}
