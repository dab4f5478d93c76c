package adk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// DefaultOpenAIURL is the public OpenAI endpoint. Any OpenAI-compatible server
// (LocalAI, LM Studio, vLLM) works through BaseURL.
const DefaultOpenAIURL = "https://api.openai.com/v1"

type OpenAIProvider struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	return &OpenAIProvider{APIKey: apiKey, BaseURL: strings.TrimSuffix(baseURL, "/"), client: newHTTPClient()}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) headers() map[string]string {
	if p.APIKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + p.APIKey}
}

func (p *OpenAIProvider) Infer(ctx context.Context, model, prompt string, opts Options) (string, error) {
	body := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": opts.Temperature,
		"top_p":       opts.TopP,
		"max_tokens":  opts.MaxTokens,
	}
	if opts.JSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := doJSON(ctx, p.client, http.MethodPost, p.BaseURL+"/chat/completions", p.headers(), body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := doJSON(ctx, p.client, http.MethodGet, p.BaseURL+"/models", p.headers(), nil, &result); err != nil {
		return nil, err
	}

	var models []string
	for _, m := range result.Data {
		if m.ID != "" {
			models = append(models, m.ID)
		}
	}
	return models, nil
}
