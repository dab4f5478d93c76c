package orchestrator

import (
	"time"

	"github.com/avaloki108/Slitheryn/pkg/engine"
)

type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventAgentStarted  EventType = "agent_started"
	EventAgentFinished EventType = "agent_finished"
	EventRunFinished   EventType = "run_finished"
)

// Event is a progress notification emitted while a run executes.
type Event struct {
	Type      EventType     `json:"type"`
	RunID     string        `json:"run_id"`
	SubjectID string        `json:"subject_id,omitempty"`
	Role      engine.Role   `json:"role,omitempty"`
	Model     string        `json:"model,omitempty"`
	Status    engine.Status `json:"status,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Findings  int           `json:"findings"`
	Accepted  int           `json:"accepted,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	Time      time.Time     `json:"time"`
}

// Observer receives events. Agent events arrive from worker goroutines, so
// implementations must be safe for concurrent use.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}
