package adk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	DefaultAnthropicURL = "https://api.anthropic.com/v1"
	anthropicVersion    = "2023-06-01"
)

type AnthropicProvider struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

func NewAnthropicProvider(apiKey, baseURL string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = DefaultAnthropicURL
	}
	return &AnthropicProvider{APIKey: apiKey, BaseURL: strings.TrimSuffix(baseURL, "/"), client: newHTTPClient()}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) ListModels(ctx context.Context) ([]string, error) {
	// No model listing endpoint is used; these are the supported models.
	return []string{
		"claude-sonnet-4-5",
		"claude-opus-4-5",
		"claude-haiku-4-5",
	}, nil
}

func (p *AnthropicProvider) Infer(ctx context.Context, model, prompt string, opts Options) (string, error) {
	if opts.JSON {
		prompt += "\n\nReturn only the JSON object."
	}
	// Current Claude models reject temperature and top_p together.
	body := map[string]interface{}{
		"model":       model,
		"max_tokens":  opts.MaxTokens,
		"temperature": opts.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	headers := map[string]string{
		"x-api-key":         p.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := doJSON(ctx, p.client, http.MethodPost, p.BaseURL+"/messages", headers, body, &resp); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}
	return sb.String(), nil
}
