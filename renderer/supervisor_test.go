package renderer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pagemill/model"
)

// poolFixture builds a supervisor whose pools each get their own fake
// runner, so tests can see which pool generation served a request.
type poolFixture struct {
	mu      sync.Mutex
	runners []*fakeRunner
	sup     *Supervisor
}

func newPoolFixture() *poolFixture {
	f := &poolFixture{}
	f.sup = NewSupervisor(func() (*WorkerPool, error) {
		return NewWorkerPool(PoolConfig{MaxWorkers: 1, JobQueueSize: 4}, func() (Runner, error) {
			fr := &fakeRunner{}
			f.mu.Lock()
			f.runners = append(f.runners, fr)
			f.mu.Unlock()
			return fr, nil
		})
	}, zap.NewNop())
	return f
}

func (f *poolFixture) runner(i int) *fakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runners[i]
}

func TestSubmitWithoutStartFails(t *testing.T) {
	f := newPoolFixture()
	_, err := f.sup.Submit(context.Background(), &model.RenderRequest{ID: "r", Paths: []string{"/"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}

func TestRestartSwapsPoolIdentity(t *testing.T) {
	f := newPoolFixture()
	require.NoError(t, f.sup.Start())
	defer f.sup.Shutdown()

	before := f.sup.Pool().ID()
	require.NoError(t, f.sup.Restart())
	after := f.sup.Pool().ID()

	assert.NotEqual(t, before, after)
}

func TestSubmitAfterRestartNeverReachesOldPool(t *testing.T) {
	f := newPoolFixture()
	require.NoError(t, f.sup.Start())
	defer f.sup.Shutdown()

	require.NoError(t, f.sup.Restart())

	_, err := f.sup.Submit(context.Background(), &model.RenderRequest{ID: "r", Paths: []string{"/about"}})
	require.NoError(t, err)

	assert.Empty(t, nonWarming(f.runner(0).seen()), "old pool served a post-restart submission")
	newSeen := nonWarming(f.runner(1).seen())
	require.Len(t, newSeen, 1)
	assert.Equal(t, []string{"/about"}, newSeen[0].Paths)
}

func TestStartTwiceFails(t *testing.T) {
	f := newPoolFixture()
	require.NoError(t, f.sup.Start())
	defer f.sup.Shutdown()

	assert.Error(t, f.sup.Start())
}
