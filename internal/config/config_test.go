package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LLM_PROVIDER", "WORKER_COUNT", "JOB_TTL", "WORDS_PER_SCENE", "MAX_RETRIES"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.Equal(t, 12.0, cfg.WordsPerScene)
	assert.Equal(t, 4.0, cfg.SceneDurationSeconds)
	assert.Equal(t, 50, cfg.MaxScenesPerChunk)
	assert.Equal(t, 600.0, cfg.WordsPerModule)
	assert.Equal(t, 6, cfg.MaxModulesPerChunk)
	assert.Equal(t, 2, cfg.MaxRetries)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_MODEL", "claude-test")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("WORDS_PER_SCENE", "9.5")
	t.Setenv("JOB_TTL", "10m")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := Load()
	assert.Equal(t, "claude-test", cfg.Model())
	assert.Equal(t, 4, cfg.WorkerCount, "non-positive worker count falls back")
	assert.Equal(t, 9.5, cfg.WordsPerScene)
	assert.Equal(t, 10*time.Minute, cfg.JobTTL)
	assert.Equal(t, 2, cfg.MaxRetries, "unparseable values fall back")
}

func TestValidate(t *testing.T) {
	base := Config{
		LLMProvider:          ProviderOpenAI,
		OpenAIAPIKey:         "sk-test",
		WordsPerScene:        12,
		SceneDurationSeconds: 4,
		MaxScenesPerChunk:    50,
		WordsPerModule:       600,
		MaxModulesPerChunk:   6,
		MaxRetries:           2,
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing openai key", func(c *Config) { c.OpenAIAPIKey = "" }},
		{"missing anthropic key", func(c *Config) { c.LLMProvider = ProviderAnthropic }},
		{"unknown provider", func(c *Config) { c.LLMProvider = "gemini" }},
		{"zero words per scene", func(c *Config) { c.WordsPerScene = 0 }},
		{"zero max modules", func(c *Config) { c.MaxModulesPerChunk = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
