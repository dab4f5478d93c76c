package adk

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/avaloki108/Slitheryn/pkg/engine"
)

// ErrorKind classifies an agent failure.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota
	KindUnavailable
	KindMalformedResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindMalformedResponse:
		return "malformed_response"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindMalformedResponse:
		return ErrMalformedResponse
	}
	return ErrUnavailable
}

// AgentError is returned by Agent.Run. errors.Is matches it against
// ErrTimeout, ErrUnavailable or ErrMalformedResponse according to Kind.
type AgentError struct {
	Kind ErrorKind
	Role engine.Role
	Err  error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("%s agent: %s: %v", e.Role, e.Kind, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

func (e *AgentError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// classify maps a provider error to an ErrorKind. A done context always wins
// so that cancellation and deadlines are reported as timeouts.
func classify(ctx context.Context, err error) ErrorKind {
	if ctx.Err() != nil {
		return KindTimeout
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, ErrMalformedResponse) {
		return KindMalformedResponse
	}
	return KindUnavailable
}
