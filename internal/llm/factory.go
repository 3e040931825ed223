package llm

import (
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/finplan/internal/config"
)

// New builds the provider named by cfg.LLMProvider, wrapped with the
// default resilience settings.
func New(cfg *config.Config, logger *slog.Logger) (*ResilientProvider, error) {
	var p Provider
	switch cfg.LLMProvider {
	case "openai":
		p = NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
		})
	case "ollama":
		p = NewOllamaProvider(OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.LLMModel,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.LLMProvider)
	}

	rc := DefaultResilientConfig()
	rc.Logger = logger
	return NewResilientProvider(p, rc), nil
}
