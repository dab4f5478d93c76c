package adk

import (
	"context"
	"net/http"
	"sort"
	"strings"
)

// DefaultOllamaURL is where a local Ollama daemon listens.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaProvider talks to an Ollama server.
type OllamaProvider struct {
	client  *http.Client
	baseURL string
}

func NewOllamaProvider(baseURL string) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaProvider{client: newHTTPClient(), baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Format  string                 `json:"format,omitempty"`
	Options map[string]interface{} `json:"options"`
}

func (p *OllamaProvider) Infer(ctx context.Context, model, prompt string, opts Options) (string, error) {
	req := ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
			"top_p":       opts.TopP,
			"num_predict": opts.MaxTokens,
		},
	}
	if opts.JSON {
		req.Format = "json"
	}

	var resp struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := doJSON(ctx, p.client, http.MethodPost, p.baseURL+"/api/generate", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (p *OllamaProvider) ListModels(ctx context.Context) ([]string, error) {
	var resp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := doJSON(ctx, p.client, http.MethodGet, p.baseURL+"/api/tags", nil, nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names, nil
}
