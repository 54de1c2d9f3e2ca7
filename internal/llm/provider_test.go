package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/scenegest/internal/config"
)

func TestNewFromConfig(t *testing.T) {
	g, err := NewFromConfig(config.Config{LLMProvider: config.ProviderOpenAI, OpenAIModel: "gpt-test"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", g.Provider())
	assert.Equal(t, "gpt-test", g.Model())
	assert.IsType(t, &OpenAIClient{}, g.next)

	g, err = NewFromConfig(config.Config{LLMProvider: config.ProviderAnthropic, AnthropicModel: "claude-test"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "claude-test", g.Model())
	assert.IsType(t, &ClaudeClient{}, g.next)
	g.Close()

	_, err = NewFromConfig(config.Config{LLMProvider: "gemini"}, nil, nil)
	assert.Error(t, err)
}
