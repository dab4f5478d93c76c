package cmd

import (
	"context"
	"fmt"

	"github.com/avaloki108/Slitheryn/pkg/adk"
	"github.com/avaloki108/Slitheryn/pkg/config"
	"github.com/avaloki108/Slitheryn/pkg/orchestrator"
	"github.com/avaloki108/Slitheryn/pkg/selector"
)

func loadConfig() (*config.Config, error) {
	if ConfigFile != "" {
		return config.LoadConfigFrom(ConfigFile)
	}
	return config.LoadConfig()
}

func saveConfig(cfg *config.Config) error {
	if ConfigFile != "" {
		return config.SaveConfigTo(cfg, ConfigFile)
	}
	return config.SaveConfig(cfg)
}

// newProvider builds the configured inference backend. The caller closes it
// through closeProvider.
func newProvider(ctx context.Context, cfg *config.Config) (adk.Provider, error) {
	name := cfg.SelectedProvider
	if name == "" {
		name = "ollama"
	}
	p, err := adk.NewProvider(ctx, name, cfg.GetAPIKey(name), cfg.GetBaseURL(name))
	if err != nil {
		return nil, fmt.Errorf("error creating %s provider: %w", name, err)
	}
	return p, nil
}

func closeProvider(p adk.Provider) {
	// Not every provider holds a client; Gemini does.
	if closer, ok := p.(interface{ Close() }); ok {
		closer.Close()
	}
}

// newOrchestrator wires provider, model table and defaults from cfg.
func newOrchestrator(ctx context.Context, cfg *config.Config, opts ...orchestrator.Option) (*orchestrator.Orchestrator, adk.Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	p, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	sel := selector.New(cfg.SelectorTable())
	opts = append([]orchestrator.Option{orchestrator.WithLogger(adk.NewConsoleLogger(nil))}, opts...)
	return orchestrator.New(p, sel, cfg.OrchestratorConfig(), opts...), p, nil
}
