// Package buildstate is the seam between the request gate and the
// coordinating build state machine. The gate only interprets one state,
// StateWaiting; everything else is opaque "not safe to render yet".
package buildstate

import (
	"context"
	"sync"
)

type State string

const (
	StateWaiting  State = "waiting"
	StateBuilding State = "building"
)

// Machine is what the request gate needs from the coordinator: the current
// state, a per-request acknowledgment channel, and a way to wait for the
// machine to go idle without polling.
type Machine interface {
	Current() State

	// RequestReceived registers an inbound request with the machine and
	// returns a channel closed when the machine acknowledges it. Each
	// request id gets its own channel, so concurrent requests cannot
	// clobber one another's pending acknowledgment.
	RequestReceived(id string) <-chan struct{}

	// AwaitIdle blocks until the machine's state is StateWaiting. Waiters
	// are notified on transition, there is no sleep interval.
	AwaitIdle(ctx context.Context) error

	// Cancel discards the session registered under id. Callers that give up
	// before the acknowledgment arrives must cancel, or the session leaks.
	Cancel(id string)
}

// InProc is the in-process Machine implementation driven by the host's
// build orchestrator via Ack and SetState.
type InProc struct {
	mu          sync.Mutex
	state       State
	sessions    map[string]chan struct{}
	idleWaiters []chan struct{}
	requests    chan string
}

func NewInProc(initial State) *InProc {
	return &InProc{
		state:    initial,
		sessions: make(map[string]chan struct{}),
		requests: make(chan string, 64),
	}
}

func (m *InProc) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *InProc) RequestReceived(id string) <-chan struct{} {
	m.mu.Lock()
	ch := make(chan struct{})
	m.sessions[id] = ch
	m.mu.Unlock()

	select {
	case m.requests <- id:
	default:
		// Orchestrator is behind; the session stays registered and can
		// still be acked by id.
	}
	return ch
}

// Requests exposes the stream of received request ids for the orchestrator.
func (m *InProc) Requests() <-chan string {
	return m.requests
}

// Ack acknowledges the request registered under id. Unknown ids are ignored.
func (m *InProc) Ack(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.sessions[id]; ok {
		close(ch)
		delete(m.sessions, id)
	}
}

// Cancel removes the session registered under id without acknowledging it.
// A later Ack for the same id is a no-op. Unknown ids are ignored.
func (m *InProc) Cancel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Pending reports the number of registered, not-yet-acknowledged sessions.
func (m *InProc) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SetState records a transition. Entering StateWaiting releases every
// pending AwaitIdle caller.
func (m *InProc) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	if s == StateWaiting {
		for _, ch := range m.idleWaiters {
			close(ch)
		}
		m.idleWaiters = nil
	}
}

func (m *InProc) AwaitIdle(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateWaiting {
		m.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	m.idleWaiters = append(m.idleWaiters, ch)
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
