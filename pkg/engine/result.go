package engine

import "time"

// Status is the terminal state of one agent invocation.
type Status string

const (
	StatusOk       Status = "ok"
	StatusTimedOut Status = "timed_out"
	StatusFailed   Status = "failed"
)

// AgentResult is what the orchestrator records for each invoked agent.
// Non-Ok results carry no findings.
type AgentResult struct {
	Role      Role          `json:"role"`
	ModelUsed string        `json:"model_used"`
	Findings  []Finding     `json:"findings"`
	Elapsed   time.Duration `json:"elapsed"`
	Status    Status        `json:"status"`
	Reason    string        `json:"reason,omitempty"`
}

func (r AgentResult) Ok() bool {
	return r.Status == StatusOk
}
