package renderer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pagemill/model"
)

func TestRenderHTMLReturnsFirstDocument(t *testing.T) {
	f := newPoolFixture()
	require.NoError(t, f.sup.Start())
	defer f.sup.Shutdown()

	d := NewDispatcher(f.sup, zap.NewNop())
	html, err := d.RenderHTML(context.Background(), "/about", "/site/public/render-page.js", "/site",
		[]model.EnvVar{{Key: "NODE_ENV", Value: "development"}})
	require.NoError(t, err)
	assert.Equal(t, "<html>/about</html>", html)

	seen := nonWarming(f.runner(0).seen())
	require.Len(t, seen, 1)
	assert.Equal(t, "/site/public/render-page.js", seen[0].EntryPath)
	assert.Equal(t, "/site", seen[0].WorkDir)
	assert.Equal(t, []model.EnvVar{{Key: "NODE_ENV", Value: "development"}}, seen[0].Env)
}

func TestRenderHTMLPropagatesFailure(t *testing.T) {
	f := newPoolFixture()
	require.NoError(t, f.sup.Start())
	defer f.sup.Shutdown()

	boom := &model.WorkerError{Message: "no dice"}
	f.runner(0).mu.Lock()
	f.runner(0).renderFn = func(req *model.RenderRequest) (*model.RenderReply, error) {
		if req.Warming {
			return &model.RenderReply{ID: req.ID, Status: "ok"}, nil
		}
		return &model.RenderReply{ID: req.ID, Status: "err", Error: boom}, nil
	}
	f.runner(0).mu.Unlock()

	d := NewDispatcher(f.sup, zap.NewNop())
	_, err := d.RenderHTML(context.Background(), "/about", "entry.js", "/site", nil)
	var we *model.WorkerError
	require.ErrorAs(t, err, &we)
	assert.Same(t, boom, we)
}

func TestRenderHTMLLogsFailure(t *testing.T) {
	f := newPoolFixture()
	require.NoError(t, f.sup.Start())
	defer f.sup.Shutdown()

	f.runner(0).mu.Lock()
	f.runner(0).renderFn = func(req *model.RenderRequest) (*model.RenderReply, error) {
		if req.Warming {
			return &model.RenderReply{ID: req.ID, Status: "ok"}, nil
		}
		return &model.RenderReply{ID: req.ID, Status: "err", Error: &model.WorkerError{Message: "no dice"}}, nil
	}
	f.runner(0).mu.Unlock()

	core, logs := observer.New(zapcore.ErrorLevel)
	d := NewDispatcher(f.sup, zap.New(core))
	_, err := d.RenderHTML(context.Background(), "/about", "entry.js", "/site", nil)
	require.Error(t, err)

	entries := logs.FilterMessage("render job failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/about", entries[0].ContextMap()["path"])
}

func TestRenderHTMLRejectsShortReply(t *testing.T) {
	f := newPoolFixture()
	require.NoError(t, f.sup.Start())
	defer f.sup.Shutdown()

	f.runner(0).mu.Lock()
	f.runner(0).renderFn = func(req *model.RenderRequest) (*model.RenderReply, error) {
		return &model.RenderReply{ID: req.ID, Status: "ok"}, nil
	}
	f.runner(0).mu.Unlock()

	d := NewDispatcher(f.sup, zap.NewNop())
	_, err := d.RenderHTML(context.Background(), "/about", "entry.js", "/site", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 documents for 1 paths")
}
