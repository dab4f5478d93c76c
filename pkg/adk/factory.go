package adk

import (
	"context"
	"fmt"
)

// Providers lists the backend names NewProvider understands.
var Providers = []string{"ollama", "gemini", "openai", "anthropic"}

// NewProvider builds the named inference backend. baseURL is optional and
// ignored by backends with a fixed endpoint.
func NewProvider(ctx context.Context, providerName, apiKey, baseURL string) (Provider, error) {
	switch providerName {
	case "", "ollama":
		return NewOllamaProvider(baseURL), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return NewGeminiProvider(ctx, apiKey)
	case "openai":
		return NewOpenAIProvider(apiKey, baseURL), nil
	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return NewAnthropicProvider(apiKey, baseURL), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
}
