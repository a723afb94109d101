package llm

import (
	"fmt"
	"os"
)

// NewProvider creates a new LLM provider based on the given provider type
// and model. Currently only "openai" (and OpenAI-compatible endpoints via
// OPENAI_BASE_URL) is supported.
func NewProvider(providerType string, model string) (Provider, error) {
	switch providerType {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model, os.Getenv("OPENAI_BASE_URL")), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
