package renderer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagemill/model"
)

// Dispatcher is the thin submission API the HTTP layer talks to. It exists
// so handlers never see pool internals.
type Dispatcher struct {
	sup    *Supervisor
	logger *zap.Logger
}

func NewDispatcher(sup *Supervisor, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sup: sup, logger: logger}
}

// RenderHTML renders a single page path with the renderer entry module in
// workDir and returns its HTML. Failures from the worker are propagated
// unchanged.
func (d *Dispatcher) RenderHTML(ctx context.Context, path, entryPath, workDir string, env []model.EnvVar) (string, error) {
	req := &model.RenderRequest{
		ID:        uuid.NewString(),
		Paths:     []string{path},
		EntryPath: entryPath,
		WorkDir:   workDir,
		Env:       env,
	}

	d.logger.Debug("submitting render job",
		zap.String("request", req.ID),
		zap.String("path", path))

	reply, err := d.sup.Submit(ctx, req)
	if err != nil {
		d.logger.Error("render job failed",
			zap.String("request", req.ID),
			zap.String("path", path),
			zap.Error(err))
		return "", err
	}
	if len(reply.HTML) != len(req.Paths) {
		err := fmt.Errorf("render reply has %d documents for %d paths", len(reply.HTML), len(req.Paths))
		d.logger.Error("render job failed",
			zap.String("request", req.ID),
			zap.String("path", path),
			zap.Error(err))
		return "", err
	}
	return reply.HTML[0], nil
}
