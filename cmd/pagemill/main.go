package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pagemill/buildstate"
	"pagemill/config"
	"pagemill/diagnostics"
	"pagemill/logger"
	"pagemill/pages"
	"pagemill/pkg"
	"pagemill/renderer"
	"pagemill/routes"
)

func main() {
	cfg := config.LoadConfig()
	log := logger.New(cfg.Environment, cfg.LogLevel)
	defer log.Sync()

	sup := renderer.NewSupervisor(func() (*renderer.WorkerPool, error) {
		return renderer.NewWorkerPool(renderer.PoolConfig{
			MaxWorkers:   cfg.MaxWorkers,
			JobQueueSize: cfg.JobQueueSize,
			WarmEntry:    filepath.Join(cfg.SiteDir, cfg.RendererEntry),
			WarmDir:      cfg.SiteDir,
		}, newRunnerFactory(cfg))
	}, log)

	if err := sup.Start(); err != nil {
		log.Fatal("failed to start render pool", zap.Error(err))
	}
	defer sup.Shutdown()

	machine := buildstate.NewInProc(buildstate.StateWaiting)
	go ackLoop(machine)

	registry := pages.NewRegistry()
	if err := loadRegistry(registry, cfg.SiteDir); err != nil {
		log.Warn("no page manifest loaded", zap.Error(err))
	}
	log.Info("page registry loaded", zap.Int("pages", registry.Len()))

	dispatcher := renderer.NewDispatcher(sup, log)
	translator := diagnostics.NewTranslator(cfg.SiteDir, cfg.StripSegments, cfg.ContextLines, diagnostics.DefaultPalette())
	gate := routes.NewGate(registry, machine, dispatcher, translator, routes.GateConfig{
		SiteDir:       cfg.SiteDir,
		RendererEntry: cfg.RendererEntry,
	}, log)
	admin := routes.NewAdmin(sup, log)

	limiter := pkg.NewRateLimiter(time.Second/time.Duration(max(cfg.RateLimitRPS, 1)), cfg.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(limiter.Limit)
	r.Post("/__pagemill/restart", admin.HandleRestart)
	r.Get("/__pagemill/status", admin.HandleStatus)

	static := http.FileServer(http.Dir(filepath.Join(cfg.SiteDir, "public")))
	r.Handle("/*", gate.Middleware(static))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("dev server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for {
		select {
		case err := <-errCh:
			log.Fatal("server error", zap.Error(err))
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				log.Info("SIGHUP received, restarting render pool")
				if err := sup.Restart(); err != nil {
					log.Error("pool restart failed", zap.Error(err))
				}
				continue
			}
			log.Info("shutting down", zap.String("signal", sig.String()))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("server shutdown failed", zap.Error(err))
			}
			return
		}
	}
}

// newRunnerFactory picks the isolation backend.
func newRunnerFactory(cfg config.Config) func() (renderer.Runner, error) {
	if cfg.Isolation == "container" {
		return func() (renderer.Runner, error) {
			return renderer.NewContainerRunner(renderer.ContainerConfig{
				Image:          cfg.ContainerImage,
				MemoryMB:       cfg.ContainerMemoryMB,
				CPUs:           cfg.ContainerCPUs,
				HealthInterval: cfg.HealthInterval,
			}, cfg.SiteDir)
		}
	}
	return func() (renderer.Runner, error) {
		return renderer.NewProcessRunner(cfg.NodeBin, cfg.SiteDir), nil
	}
}

// ackLoop acknowledges gated requests as soon as the machine reports them.
// A richer host would defer acks while it schedules incremental rebuilds.
func ackLoop(machine *buildstate.InProc) {
	for id := range machine.Requests() {
		machine.Ack(id)
	}
}

// loadRegistry reads the host-produced pages.json manifest.
func loadRegistry(registry *pages.Registry, siteDir string) error {
	data, err := os.ReadFile(filepath.Join(siteDir, "pages.json"))
	if err != nil {
		return err
	}
	var manifest struct {
		Pages []pages.Page `json:"pages"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return err
	}
	for _, p := range manifest.Pages {
		registry.Register(p)
	}
	return nil
}
