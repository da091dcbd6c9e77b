package renderer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"pagemill/model"
)

// Supervisor owns the process-wide pool handle. The handle is replaced,
// never mutated: readers always load the current pointer, so a restart
// needs no locks on the dispatch path.
type Supervisor struct {
	newPool func() (*WorkerPool, error)
	logger  *zap.Logger

	current atomic.Pointer[WorkerPool]

	// restartMu serializes Start/Restart/Shutdown; Submit never takes it.
	restartMu sync.Mutex
}

func NewSupervisor(newPool func() (*WorkerPool, error), logger *zap.Logger) *Supervisor {
	return &Supervisor{newPool: newPool, logger: logger}
}

// Start builds the initial pool. The pool warms itself on construction.
func (s *Supervisor) Start() error {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()

	if s.current.Load() != nil {
		return fmt.Errorf("supervisor already started")
	}
	pool, err := s.newPool()
	if err != nil {
		return fmt.Errorf("start render pool: %w", err)
	}
	s.current.Store(pool)
	s.logger.Info("render pool started", zap.String("pool", pool.ID()))
	return nil
}

// Restart creates a fresh pool, swaps it in, then drains and terminates the
// old pool in the background. No submission after the swap reaches the old
// pool; in-flight jobs on it finish before its runners close.
func (s *Supervisor) Restart() error {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()

	pool, err := s.newPool()
	if err != nil {
		return fmt.Errorf("restart render pool: %w", err)
	}
	old := s.current.Swap(pool)
	s.logger.Info("render pool restarted", zap.String("pool", pool.ID()))

	if old != nil {
		go old.Shutdown()
	}
	return nil
}

// Submit routes req to the current pool. The handle is read once per call
// and never cached across calls.
func (s *Supervisor) Submit(ctx context.Context, req *model.RenderRequest) (*model.RenderReply, error) {
	pool := s.current.Load()
	if pool == nil {
		return nil, fmt.Errorf("render pool not started")
	}
	return pool.Submit(ctx, req)
}

// Pool exposes the current handle for identity checks and stats.
func (s *Supervisor) Pool() *WorkerPool {
	return s.current.Load()
}

// Shutdown tears down the current pool and leaves the supervisor empty.
func (s *Supervisor) Shutdown() {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()

	if old := s.current.Swap(nil); old != nil {
		old.Shutdown()
	}
}
