package renderer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagemill/model"
)

type fakeRunner struct {
	mu       sync.Mutex
	requests []*model.RenderRequest
	renderFn func(*model.RenderRequest) (*model.RenderReply, error)
	closed   bool
}

func (f *fakeRunner) Start(ctx context.Context) error { return nil }

func (f *fakeRunner) Render(ctx context.Context, req *model.RenderRequest) (*model.RenderReply, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fn := f.renderFn
	f.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	html := make([]string, len(req.Paths))
	for i, p := range req.Paths {
		html[i] = "<html>" + p + "</html>"
	}
	return &model.RenderReply{ID: req.ID, Status: "ok", HTML: html}, nil
}

func (f *fakeRunner) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeRunner) seen() []*model.RenderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.RenderRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func nonWarming(reqs []*model.RenderRequest) []*model.RenderRequest {
	var out []*model.RenderRequest
	for _, r := range reqs {
		if !r.Warming {
			out = append(out, r)
		}
	}
	return out
}

func newTestPool(t *testing.T, fr *fakeRunner) *WorkerPool {
	t.Helper()
	pool, err := NewWorkerPool(PoolConfig{MaxWorkers: 1, JobQueueSize: 4}, func() (Runner, error) {
		return fr, nil
	})
	require.NoError(t, err)
	return pool
}

func TestSubmitReturnsOneDocumentPerPath(t *testing.T) {
	fr := &fakeRunner{}
	pool := newTestPool(t, fr)
	defer pool.Shutdown()

	req := &model.RenderRequest{
		ID:    "r1",
		Paths: []string{"/", "/about", "/contact"},
	}
	reply, err := pool.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, reply.HTML, len(req.Paths))
	assert.Equal(t, "<html>/about</html>", reply.HTML[1])
}

func TestSubmitPropagatesWorkerError(t *testing.T) {
	boom := &model.WorkerError{Message: "render exploded", Type: "TypeError"}
	fr := &fakeRunner{
		renderFn: func(req *model.RenderRequest) (*model.RenderReply, error) {
			if req.Warming {
				return &model.RenderReply{ID: req.ID, Status: "ok"}, nil
			}
			return &model.RenderReply{ID: req.ID, Status: "err", Error: boom}, nil
		},
	}
	pool := newTestPool(t, fr)
	defer pool.Shutdown()

	_, err := pool.Submit(context.Background(), &model.RenderRequest{ID: "r1", Paths: []string{"/"}})
	require.Error(t, err)
	var we *model.WorkerError
	require.ErrorAs(t, err, &we)
	assert.Same(t, boom, we)
}

func TestWarmingDoesNotBlockConstruction(t *testing.T) {
	release := make(chan struct{})
	fr := &fakeRunner{
		renderFn: func(req *model.RenderRequest) (*model.RenderReply, error) {
			if req.Warming {
				<-release
			}
			return &model.RenderReply{ID: req.ID, Status: "ok"}, nil
		},
	}

	built := make(chan *WorkerPool, 1)
	go func() {
		pool, err := NewWorkerPool(PoolConfig{MaxWorkers: 1, JobQueueSize: 4, WarmEntry: "public/render-page.js"},
			func() (Runner, error) { return fr, nil })
		if err == nil {
			built <- pool
		}
	}()

	var pool *WorkerPool
	select {
	case pool = <-built:
	case <-time.After(2 * time.Second):
		t.Fatal("pool construction blocked on warming render")
	}

	close(release)
	require.Eventually(t, func() bool { return len(fr.seen()) > 0 }, 2*time.Second, 10*time.Millisecond)
	pool.Shutdown()

	reqs := fr.seen()
	assert.True(t, reqs[0].Warming)
	assert.Equal(t, "public/render-page.js", reqs[0].EntryPath)
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	fr := &fakeRunner{}
	pool := newTestPool(t, fr)
	pool.Shutdown()

	_, err := pool.Submit(context.Background(), &model.RenderRequest{ID: "r1", Paths: []string{"/"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shut down")
	assert.True(t, fr.closed)
}

func TestSubmitQueueFull(t *testing.T) {
	entered := make(chan struct{}, 8)
	release := make(chan struct{})
	fr := &fakeRunner{
		renderFn: func(req *model.RenderRequest) (*model.RenderReply, error) {
			if !req.Warming {
				entered <- struct{}{}
				<-release
			}
			return &model.RenderReply{ID: req.ID, Status: "ok", HTML: make([]string, len(req.Paths))}, nil
		},
	}
	pool, err := NewWorkerPool(PoolConfig{MaxWorkers: 1, JobQueueSize: 1}, func() (Runner, error) {
		return fr, nil
	})
	require.NoError(t, err)

	// First job occupies the worker, second fills the queue slot.
	go pool.Submit(context.Background(), &model.RenderRequest{ID: "a", Paths: []string{"/a"}})
	<-entered
	go pool.Submit(context.Background(), &model.RenderRequest{ID: "b", Paths: []string{"/b"}})

	require.Eventually(t, func() bool {
		_, err := pool.Submit(context.Background(), &model.RenderRequest{ID: "c", Paths: []string{"/c"}})
		return err != nil && err.Error() == "job queue full, max capacity: 1"
	}, time.Second, 10*time.Millisecond)

	close(release)
	pool.Shutdown()
}
