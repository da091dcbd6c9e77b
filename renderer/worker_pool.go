package renderer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	logrus "github.com/sirupsen/logrus"

	"pagemill/model"
)

// PoolConfig sizes a pool and tells it where to warm from.
type PoolConfig struct {
	MaxWorkers   int
	JobQueueSize int

	// WarmEntry and WarmDir form the dummy job fired at startup so the
	// worker's import cost is paid before any real request arrives.
	WarmEntry string
	WarmDir   string
}

// Job pairs a render request with the channel its result is delivered on.
type Job struct {
	Request *model.RenderRequest
	Result  chan Result
}

// Result contains the outcome of one render job.
type Result struct {
	Reply    *model.RenderReply
	Err      error
	Duration time.Duration
}

// WorkerPool owns a fixed set of runners draining a shared job queue. A
// pool is immutable after construction; restart semantics live in the
// Supervisor, which swaps whole pools.
type WorkerPool struct {
	id          string
	jobs        chan Job
	runners     []Runner
	logger      *logrus.Logger
	maxWorkers  int
	maxJobCount int
	wg          sync.WaitGroup

	closedMu sync.RWMutex
	closed   bool
}

// NewWorkerPool builds runners via newRunner, starts the workers, and fires
// the detached warming job. It returns before the warming render completes.
func NewWorkerPool(cfg PoolConfig, newRunner func() (Runner, error)) (*WorkerPool, error) {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.JobQueueSize < 1 {
		cfg.JobQueueSize = 16
	}

	logger := logrus.New()
	if err := os.MkdirAll("logs", 0755); err == nil {
		logFile, err := os.OpenFile("logs/renderer.log", os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err == nil {
			logger.SetOutput(logFile)
		}
	}

	pool := &WorkerPool{
		id:          uuid.NewString(),
		jobs:        make(chan Job, cfg.JobQueueSize),
		logger:      logger,
		maxWorkers:  cfg.MaxWorkers,
		maxJobCount: cfg.JobQueueSize,
	}

	for i := 0; i < cfg.MaxWorkers; i++ {
		runner, err := newRunner()
		if err != nil {
			pool.closeRunners()
			return nil, err
		}
		if err := runner.Start(context.Background()); err != nil {
			runner.Close()
			pool.closeRunners()
			return nil, err
		}
		pool.runners = append(pool.runners, runner)
		pool.wg.Add(1)
		go pool.worker(i+1, runner)
	}

	pool.warm(cfg)
	return pool, nil
}

// ID identifies this pool instance. Two pools never share an id, which is
// how callers can observe that a restart actually swapped pools.
func (p *WorkerPool) ID() string {
	return p.id
}

// warm fires the warming render on a detached goroutine and discards its
// result.
func (p *WorkerPool) warm(cfg PoolConfig) {
	req := &model.RenderRequest{
		ID:        uuid.NewString(),
		EntryPath: cfg.WarmEntry,
		WorkDir:   cfg.WarmDir,
		Warming:   true,
	}
	go func() {
		if _, err := p.Submit(context.Background(), req); err != nil {
			p.logger.Printf("Pool %s warming failed: %v", p.id[:8], err)
			return
		}
		p.logger.Printf("Pool %s warmed", p.id[:8])
	}()
}

// worker drains the job queue with its dedicated runner until the queue is
// closed; jobs already queued at shutdown still run.
func (p *WorkerPool) worker(id int, runner Runner) {
	defer p.wg.Done()
	p.logger.Printf("Worker %d started", id)

	for job := range p.jobs {
		p.executeJob(id, runner, job)
	}
	p.logger.Printf("Worker %d shutting down", id)
}

func (p *WorkerPool) executeJob(workerID int, runner Runner, job Job) {
	start := time.Now()
	reply, err := runner.Render(context.Background(), job.Request)
	duration := time.Since(start)

	if err == nil && reply.Status == "err" && reply.Error != nil {
		err = reply.Error
	}

	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"worker":   workerID,
			"paths":    job.Request.Paths,
			"duration": duration,
			"error":    err,
		}).Error("Render failed")
	} else {
		p.logger.WithFields(logrus.Fields{
			"worker":   workerID,
			"paths":    job.Request.Paths,
			"duration": duration,
		}).Debug("Render completed")
	}

	job.Result <- Result{Reply: reply, Err: err, Duration: duration}
}

// Submit forwards req to a worker and blocks until the result arrives.
// Worker failures are propagated unchanged; there is no retry here.
func (p *WorkerPool) Submit(ctx context.Context, req *model.RenderRequest) (*model.RenderReply, error) {
	result := make(chan Result, 1)

	p.closedMu.RLock()
	if p.closed {
		p.closedMu.RUnlock()
		return nil, fmt.Errorf("pool %s is shut down", p.id[:8])
	}
	select {
	case p.jobs <- Job{Request: req, Result: result}:
		p.closedMu.RUnlock()
	case <-ctx.Done():
		p.closedMu.RUnlock()
		return nil, ctx.Err()
	default:
		p.closedMu.RUnlock()
		return nil, fmt.Errorf("job queue full, max capacity: %d", p.maxJobCount)
	}

	// No cancellation once submitted: a hung worker holds the request.
	r := <-result
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Reply, nil
}

// Shutdown stops accepting work, lets queued and in-flight jobs finish, and
// closes the runners.
func (p *WorkerPool) Shutdown() {
	p.closedMu.Lock()
	if p.closed {
		p.closedMu.Unlock()
		return
	}
	p.closed = true
	p.closedMu.Unlock()

	p.logger.Printf("Shutting down pool %s...", p.id[:8])
	close(p.jobs)
	p.wg.Wait()
	p.closeRunners()
	p.logger.Printf("Pool %s shutdown complete", p.id[:8])
}

func (p *WorkerPool) closeRunners() {
	for _, r := range p.runners {
		r.Close()
	}
}
