package adk

import (
	"context"
	"fmt"
	"time"

	"github.com/avaloki108/Slitheryn/pkg/engine"
)

// Agent runs one role-specific analysis against a Provider. It holds no state
// between runs and is safe for concurrent use.
type Agent struct {
	strategy RoleStrategy
	provider Provider
	opts     Options
}

// NewAgent creates an agent for role backed by p.
func NewAgent(role engine.Role, p Provider) (*Agent, error) {
	if p == nil {
		return nil, fmt.Errorf("agent %s: nil provider", role)
	}
	s, err := Strategy(role)
	if err != nil {
		return nil, err
	}
	return &Agent{strategy: s, provider: p, opts: DefaultOptions()}, nil
}

// WithOptions returns a copy of the agent using opts for inference.
func (a *Agent) WithOptions(opts Options) *Agent {
	c := *a
	c.opts = opts
	return &c
}

func (a *Agent) Role() engine.Role { return a.strategy.Role }

// Run analyzes code with the given model. A non-positive timeout means the
// caller's context alone bounds the call. Failures are returned as *AgentError.
func (a *Agent) Run(ctx context.Context, code string, vars map[string]string, model string, timeout time.Duration) ([]engine.Finding, error) {
	role := a.strategy.Role
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	prompt, err := a.strategy.Render(code, vars)
	if err != nil {
		return nil, &AgentError{Kind: KindMalformedResponse, Role: role, Err: err}
	}

	Debugf("%s agent: sending %d byte prompt to %s/%s", role, len(prompt), a.provider.Name(), model)
	raw, err := a.provider.Infer(ctx, model, prompt, a.opts)
	if err != nil {
		return nil, &AgentError{Kind: classify(ctx, err), Role: role, Err: err}
	}
	if ctx.Err() != nil {
		return nil, &AgentError{Kind: KindTimeout, Role: role, Err: ctx.Err()}
	}

	findings, err := a.strategy.Parse(raw)
	if err != nil {
		Debugf("%s agent: unparseable response: %.200s", role, raw)
		return nil, &AgentError{Kind: KindMalformedResponse, Role: role, Err: err}
	}
	Debugf("%s agent: %d findings from %s", role, len(findings), model)
	return findings, nil
}
