package routes

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagemill/buildstate"
	"pagemill/diagnostics"
	"pagemill/internal"
	"pagemill/model"
	"pagemill/pages"
)

// HTMLRenderer is what the gate needs from the render dispatcher.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, path, entryPath, workDir string, env []model.EnvVar) (string, error)
}

// GateConfig locates the renderer entry for a site.
type GateConfig struct {
	SiteDir       string
	RendererEntry string // relative to SiteDir
}

// Gate is the HTTP-facing component. Requests for registered pages are held
// until the build machine acknowledges them and reaches its waiting state,
// then dispatched to the render pool. Everything else passes through.
type Gate struct {
	registry   *pages.Registry
	machine    buildstate.Machine
	dispatcher HTMLRenderer
	translator *diagnostics.Translator
	cfg        GateConfig
	logger     *zap.Logger
}

func NewGate(registry *pages.Registry, machine buildstate.Machine, dispatcher HTMLRenderer,
	translator *diagnostics.Translator, cfg GateConfig, logger *zap.Logger) *Gate {
	return &Gate{
		registry:   registry,
		machine:    machine,
		dispatcher: dispatcher,
		translator: translator,
		cfg:        cfg,
		logger:     logger,
	}
}

// Middleware gates page requests. A path that is not a registered page is
// not this subsystem's concern and falls through to next untouched.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		path := r.URL.Path
		if err := internal.SanitizeRequestPath(path); err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := g.registry.Lookup(path); !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		id := uuid.NewString()

		// Signal the machine and wait for its acknowledgment; each request
		// holds its own keyed ack channel.
		ack := g.machine.RequestReceived(id)
		select {
		case <-ack:
		case <-ctx.Done():
			g.machine.Cancel(id)
			return
		}

		// A render must never race an in-progress rebuild.
		if err := g.machine.AwaitIdle(ctx); err != nil {
			return
		}

		start := time.Now()
		g.logger.Info("building HTML for path",
			zap.String("path", path),
			zap.String("request", id))
		defer func() {
			g.logger.Info("finished building HTML for path",
				zap.String("path", path),
				zap.String("request", id),
				zap.Duration("elapsed", time.Since(start)))
		}()

		entry := filepath.Join(g.cfg.SiteDir, g.cfg.RendererEntry)
		html, err := g.dispatcher.RenderHTML(ctx, path, entry, g.cfg.SiteDir, passthroughEnv())
		if err != nil {
			diag := g.translator.Translate(err)
			g.logger.Error("render failed",
				zap.String("path", path),
				zap.String("file", diag.Filename),
				zap.Int("line", diag.Line),
				zap.String("message", diag.Message))
			writeErrorPage(w, path, diag)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(html))
	})
}

// passthroughEnv forwards the host's execution mode, invoking command and
// log verbosity to the renderer; unset values become empty strings.
func passthroughEnv() []model.EnvVar {
	return []model.EnvVar{
		{Key: "NODE_ENV", Value: os.Getenv("NODE_ENV")},
		{Key: "PAGEMILL_CMD", Value: os.Getenv("PAGEMILL_CMD")},
		{Key: "LOG_LEVEL", Value: os.Getenv("LOG_LEVEL")},
	}
}
