package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()
	assert.Equal(t, 1, cfg.MaxWorkers)
	assert.Equal(t, "process", cfg.Isolation)
	assert.Equal(t, 2, cfg.StripSegments)
	assert.Equal(t, "public/render-page.js", cfg.RendererEntry)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("MAX_WORKERS", "4")
	t.Setenv("ISOLATION", "container")
	t.Setenv("STRIP_SEGMENTS", "3")
	t.Setenv("HEALTH_INTERVAL", "250ms")

	cfg := LoadConfig()
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, "container", cfg.Isolation)
	assert.Equal(t, 3, cfg.StripSegments)
	assert.Equal(t, 250*time.Millisecond, cfg.HealthInterval)
}

func TestLoadConfigBadIntFallsBack(t *testing.T) {
	t.Setenv("MAX_WORKERS", "not-a-number")
	cfg := LoadConfig()
	assert.Equal(t, 1, cfg.MaxWorkers)
}
