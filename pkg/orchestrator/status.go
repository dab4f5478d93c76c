package orchestrator

import (
	"context"
	"strings"

	"github.com/avaloki108/Slitheryn/pkg/adk"
	"github.com/avaloki108/Slitheryn/pkg/engine"
)

// StatusReport is a read-only diagnostic of the orchestrator's setup.
type StatusReport struct {
	Provider        string          `json:"provider"`
	Roles           []engine.Role   `json:"roles"`
	DefaultModel    string          `json:"default_model"`
	Models          []string        `json:"models"`
	MaxWorkers      int             `json:"max_workers"`
	DefaultTimeout  string          `json:"default_timeout"`
	Threshold       float64         `json:"consensus_threshold"`
	Probed          bool            `json:"probed"`
	Reachable       bool            `json:"reachable"`
	Error           string          `json:"error,omitempty"`
	ServiceModels   []string        `json:"service_models,omitempty"`
	ModelsAvailable map[string]bool `json:"models_available,omitempty"`
}

// Status describes roles and configured models. With probe set it also asks
// the provider for its model list and marks each configured model available
// or not.
func (o *Orchestrator) Status(ctx context.Context, probe bool) StatusReport {
	sel := o.Selector()
	st := StatusReport{
		Roles:          adk.Roles(),
		DefaultModel:   sel.Default(),
		Models:         sel.Models(),
		MaxWorkers:     o.cfg.MaxWorkers,
		DefaultTimeout: o.cfg.DefaultTimeout.String(),
		Threshold:      o.cfg.DefaultThreshold,
	}
	if o.provider != nil {
		st.Provider = o.provider.Name()
	}
	if !probe || o.provider == nil {
		return st
	}

	st.Probed = true
	listed, err := o.provider.ListModels(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Reachable = true
	st.ServiceModels = listed
	st.ModelsAvailable = make(map[string]bool, len(st.Models))
	for _, m := range st.Models {
		st.ModelsAvailable[m] = modelListed(m, listed)
	}
	return st
}

// PruneUnavailable probes the provider and swaps in a selector that skips
// configured models the service does not list. It returns the skipped models.
func (o *Orchestrator) PruneUnavailable(ctx context.Context) ([]string, error) {
	listed, err := o.provider.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	sel := o.Selector()
	var missing []string
	for _, m := range sel.Models() {
		if !modelListed(m, listed) {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		o.log.Warn("configured models not served, falling back", adk.F("models", strings.Join(missing, ",")))
		o.setSelector(sel.MarkUnavailable(missing...))
	}
	return missing, nil
}

// modelListed treats "name" and "name:latest" as the same model.
func modelListed(model string, listed []string) bool {
	want := strings.TrimSuffix(model, ":latest")
	for _, l := range listed {
		if strings.TrimSuffix(l, ":latest") == want {
			return true
		}
	}
	return false
}
