package adk

import (
	"context"
	"errors"
)

// Options tunes a single inference call. Low temperature keeps analyses
// reproducible enough for comparison across agents.
type Options struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
	JSON        bool // ask the backend for a JSON-only response when supported
}

// DefaultOptions mirrors the sampling settings used for every agent.
func DefaultOptions() Options {
	return Options{Temperature: 0.1, TopP: 0.9, MaxTokens: 2000, JSON: true}
}

// Provider is the inference service boundary. Retries, pooling and endpoint
// configuration live behind it.
type Provider interface {
	Name() string
	Infer(ctx context.Context, model, prompt string, opts Options) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

var (
	// ErrTimeout means the call exceeded its allotted duration.
	ErrTimeout = errors.New("inference timed out")
	// ErrUnavailable means the service could not be reached or refused the call.
	ErrUnavailable = errors.New("inference service unavailable")
	// ErrMalformedResponse means the response could not be parsed into findings.
	ErrMalformedResponse = errors.New("malformed agent response")
)
