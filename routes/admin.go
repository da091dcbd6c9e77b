package routes

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"pagemill/renderer"
)

// Admin exposes the operator-level pool controls. Restart is the only
// recovery path for a wedged worker; there is no automatic retry.
type Admin struct {
	sup    *renderer.Supervisor
	logger *zap.Logger
}

func NewAdmin(sup *renderer.Supervisor, logger *zap.Logger) *Admin {
	return &Admin{sup: sup, logger: logger}
}

func (a *Admin) HandleRestart(w http.ResponseWriter, r *http.Request) {
	if err := a.sup.Restart(); err != nil {
		a.logger.Error("pool restart failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.writePool(w)
}

func (a *Admin) HandleStatus(w http.ResponseWriter, r *http.Request) {
	a.writePool(w)
}

func (a *Admin) writePool(w http.ResponseWriter) {
	pool := a.sup.Pool()
	if pool == nil {
		http.Error(w, "render pool not started", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"pool": pool.ID()})
}
