package llm

import (
	"fmt"

	"github.com/newthinker/aegis/internal/config"
)

// New creates an LLM provider based on configuration.
func New(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "claude":
		return NewClaude(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		return NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
