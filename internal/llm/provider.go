package llm

import (
	"fmt"
	"log/slog"

	"github.com/dgallion1/scenegest/internal/config"
)

// NewFromConfig builds the client selected by LLM_PROVIDER, wrapped with
// latency stats and metrics.
func NewFromConfig(cfg config.Config, stats *Stats, log *slog.Logger) (*Instrumented, error) {
	var gen Generator
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		gen = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case config.ProviderAnthropic:
		gen = NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
	return NewInstrumented(gen, cfg.LLMProvider, cfg.Model(), stats, log), nil
}

// Close releases the wrapped client's connections if it holds any.
func (g *Instrumented) Close() {
	if c, ok := g.next.(interface{ Close() }); ok {
		c.Close()
	}
}
