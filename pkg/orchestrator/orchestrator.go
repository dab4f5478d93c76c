// Package orchestrator fans analysis requests out to role agents and reduces
// their results into a consensus report.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/avaloki108/Slitheryn/pkg/adk"
	"github.com/avaloki108/Slitheryn/pkg/engine"
	"github.com/avaloki108/Slitheryn/pkg/selector"
)

var (
	// ErrInvalidRequest wraps every validation failure. Nothing is dispatched
	// when Analyze returns it.
	ErrInvalidRequest   = errors.New("invalid analysis request")
	ErrInvalidThreshold = errors.New("consensus threshold must be within [0,1]")
	ErrDuplicateRole    = errors.New("duplicate agent role")
	ErrUnknownMode      = errors.New("unknown analysis mode")
	ErrUnknownRole      = engine.ErrUnknownRole
)

const cancelledBeforeDispatch = "cancelled before dispatch"

// Config holds the defaults a host supplies from its configuration.
type Config struct {
	MaxWorkers       int
	DefaultTimeout   time.Duration
	DefaultThreshold float64
	DefaultMode      selector.Mode
}

func DefaultConfig() Config {
	return Config{
		MaxWorkers:       4,
		DefaultTimeout:   120 * time.Second,
		DefaultThreshold: 0.7,
		DefaultMode:      selector.ModeComprehensive,
	}
}

// Request describes one analysis. A nil Threshold uses the configured default;
// a non-positive PerAgentTimeout uses the configured default timeout.
type Request struct {
	SubjectID       string
	Code            string
	Context         map[string]string
	Roles           []engine.Role
	Mode            selector.Mode
	Parallel        bool
	PerAgentTimeout time.Duration
	Threshold       *float64
}

// Threshold is a helper for filling Request.Threshold.
func Threshold(v float64) *float64 { return &v }

// Runner is what the orchestrator needs from an agent.
type Runner interface {
	Run(ctx context.Context, code string, vars map[string]string, model string, timeout time.Duration) ([]engine.Finding, error)
}

// RunnerFactory builds the runner for a role.
type RunnerFactory func(role engine.Role) (Runner, error)

type Option func(*Orchestrator)

func WithLogger(l adk.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithObserver adds an observer; it may be given more than once.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

func WithMatcher(m engine.Matcher) Option {
	return func(o *Orchestrator) { o.engine = engine.NewConsensusEngine(m) }
}

// WithRunnerFactory replaces the default adk.Agent construction.
func WithRunnerFactory(f RunnerFactory) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.newRunner = f
		}
	}
}

// Orchestrator is safe for concurrent use; each Analyze call is independent.
type Orchestrator struct {
	provider  adk.Provider
	cfg       Config
	engine    *engine.ConsensusEngine
	newRunner RunnerFactory
	log       adk.Logger
	observers multiObserver

	mu  sync.RWMutex
	sel *selector.Selector
}

func New(provider adk.Provider, sel *selector.Selector, cfg Config, opts ...Option) *Orchestrator {
	def := DefaultConfig()
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = def.MaxWorkers
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = def.DefaultTimeout
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = def.DefaultMode
	}
	if sel == nil {
		sel = selector.New(selector.DefaultTable())
	}
	o := &Orchestrator{
		provider: provider,
		cfg:      cfg,
		engine:   engine.NewConsensusEngine(nil),
		log:      adk.NopLogger{},
		sel:      sel,
	}
	o.newRunner = func(role engine.Role) (Runner, error) {
		return adk.NewAgent(role, o.provider)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Config() Config { return o.cfg }

func (o *Orchestrator) Selector() *selector.Selector {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sel
}

func (o *Orchestrator) setSelector(s *selector.Selector) {
	o.mu.Lock()
	o.sel = s
	o.mu.Unlock()
}

type plan struct {
	runID     string
	subject   string
	roles     []engine.Role
	models    []string
	vars      map[string]string
	timeout   time.Duration
	threshold float64
	workers   int
}

func (o *Orchestrator) validate(req Request) (*plan, error) {
	p := &plan{threshold: o.cfg.DefaultThreshold, timeout: req.PerAgentTimeout, workers: o.cfg.MaxWorkers}
	if req.Threshold != nil {
		p.threshold = *req.Threshold
	}
	if math.IsNaN(p.threshold) || p.threshold < 0 || p.threshold > 1 {
		return nil, fmt.Errorf("%w: %w (got %v)", ErrInvalidRequest, ErrInvalidThreshold, p.threshold)
	}

	seen := make(map[engine.Role]bool, len(req.Roles))
	for _, r := range req.Roles {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidRequest, ErrUnknownRole, r)
		}
		if seen[r] {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidRequest, ErrDuplicateRole, r)
		}
		seen[r] = true
	}
	p.roles = append(p.roles, req.Roles...)

	if p.timeout <= 0 {
		p.timeout = o.cfg.DefaultTimeout
	}
	mode := req.Mode
	if mode == "" {
		mode = o.cfg.DefaultMode
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %w: %q", ErrInvalidRequest, ErrUnknownMode, mode)
	}

	p.runID = uuid.NewString()
	p.subject = req.SubjectID
	if p.subject == "" {
		p.subject = p.runID
	}

	sel := o.Selector()
	for _, r := range p.roles {
		p.models = append(p.models, sel.Resolve(r, mode))
	}

	p.vars = make(map[string]string, len(req.Context)+1)
	for k, v := range req.Context {
		p.vars[k] = v
	}
	p.vars[adk.ContextModeKey] = string(mode)
	return p, nil
}

// Analyze runs every requested role against req.Code and reduces the results.
// Validation errors are returned before any agent is dispatched. Agent
// failures never fail the call. When ctx ends early the agents that finished
// are still reduced into a partial report.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (*engine.ConsensusReport, error) {
	p, err := o.validate(req)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	o.log.Info("analysis started",
		adk.F("run_id", p.runID),
		adk.F("subject", p.subject),
		adk.F("roles", len(p.roles)),
		adk.F("parallel", req.Parallel),
		adk.F("threshold", p.threshold))
	o.emit(Event{Type: EventRunStarted, RunID: p.runID, SubjectID: p.subject})

	results := make([]engine.AgentResult, len(p.roles))
	if req.Parallel {
		o.runParallel(ctx, p, req.Code, results)
	} else {
		o.runSequential(ctx, p, req.Code, results)
	}

	report := o.engine.Reduce(results, p.threshold)
	report.SubjectID = p.subject
	report.RunID = p.runID
	report.Results = results
	report.Elapsed = time.Since(start)

	if ctx.Err() != nil {
		o.log.Warn("analysis interrupted, reporting partial results", adk.F("run_id", p.runID), adk.F("error", ctx.Err()))
	}
	if report.AllFailed() {
		o.log.Warn("no agent succeeded", adk.F("run_id", p.runID))
	}
	o.log.Info("analysis finished",
		adk.F("run_id", p.runID),
		adk.F("succeeded", len(report.AgentsSucceeded)),
		adk.F("accepted", len(report.Accepted)),
		adk.F("elapsed", report.Elapsed))
	o.emit(Event{
		Type:      EventRunFinished,
		RunID:     p.runID,
		SubjectID: p.subject,
		Findings:  countFindings(results),
		Accepted:  len(report.Accepted),
		Elapsed:   report.Elapsed,
	})
	return &report, nil
}

// runParallel dispatches one task per role through a semaphore of MaxWorkers.
// Tasks never return errors so one failure cannot cancel its siblings.
func (o *Orchestrator) runParallel(ctx context.Context, p *plan, code string, results []engine.AgentResult) {
	sem := semaphore.NewWeighted(int64(p.workers))
	var g errgroup.Group
	for i := range p.roles {
		i := i
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = o.cancelled(p, i)
				return nil
			}
			defer sem.Release(1)
			results[i] = o.runAgent(ctx, p, i, code)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) runSequential(ctx context.Context, p *plan, code string, results []engine.AgentResult) {
	for i := range p.roles {
		results[i] = o.runAgent(ctx, p, i, code)
	}
}

func (o *Orchestrator) cancelled(p *plan, i int) engine.AgentResult {
	res := engine.AgentResult{
		Role:      p.roles[i],
		ModelUsed: p.models[i],
		Status:    engine.StatusTimedOut,
		Reason:    cancelledBeforeDispatch,
	}
	o.emit(Event{Type: EventAgentFinished, RunID: p.runID, SubjectID: p.subject, Role: res.Role, Model: res.ModelUsed, Status: res.Status, Reason: res.Reason})
	return res
}

func (o *Orchestrator) runAgent(ctx context.Context, p *plan, i int, code string) engine.AgentResult {
	if ctx.Err() != nil {
		return o.cancelled(p, i)
	}
	role, model := p.roles[i], p.models[i]
	res := engine.AgentResult{Role: role, ModelUsed: model}

	o.emit(Event{Type: EventAgentStarted, RunID: p.runID, SubjectID: p.subject, Role: role, Model: model})
	o.log.Debug("agent dispatched", adk.F("run_id", p.runID), adk.F("role", role), adk.F("model", model))

	start := time.Now()
	agentCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	runner, err := o.newRunner(role)
	var findings []engine.Finding
	if err == nil {
		findings, err = runner.Run(agentCtx, code, p.vars, model, p.timeout)
	}
	res.Elapsed = time.Since(start)

	switch {
	case err == nil:
		res.Status = engine.StatusOk
		res.Findings = findings
		if res.Findings == nil {
			res.Findings = []engine.Finding{}
		}
		o.log.Info("agent finished", adk.F("role", role), adk.F("model", model), adk.F("findings", len(findings)), adk.F("elapsed", res.Elapsed))
	case errors.Is(err, adk.ErrTimeout) || agentCtx.Err() != nil:
		res.Status = engine.StatusTimedOut
		res.Reason = err.Error()
		o.log.Warn("agent timed out", adk.F("role", role), adk.F("model", model), adk.F("elapsed", res.Elapsed))
	default:
		res.Status = engine.StatusFailed
		res.Reason = err.Error()
		o.log.Warn("agent failed", adk.F("role", role), adk.F("model", model), adk.F("error", err))
	}

	o.emit(Event{
		Type:      EventAgentFinished,
		RunID:     p.runID,
		SubjectID: p.subject,
		Role:      role,
		Model:     model,
		Status:    res.Status,
		Reason:    res.Reason,
		Findings:  len(res.Findings),
		Elapsed:   res.Elapsed,
	})
	return res
}

func (o *Orchestrator) emit(e Event) {
	if len(o.observers) == 0 {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	o.observers.Observe(e)
}

func countFindings(results []engine.AgentResult) int {
	n := 0
	for _, r := range results {
		n += len(r.Findings)
	}
	return n
}
