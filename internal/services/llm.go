package services

import (
	"fmt"

	"github.com/Enkhtuvshin02/realstateagent/internal/analyzer"
	"github.com/Enkhtuvshin02/realstateagent/internal/config"
)

const llmTemperature = 0.7

// NewTextGenerator builds the configured LLM backend. Both backends
// satisfy analyzer.TextGenerator.
func NewTextGenerator(cfg *config.Config) (analyzer.TextGenerator, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return NewGeminiLLM(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	case "openai":
		return NewOpenAILLM(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
