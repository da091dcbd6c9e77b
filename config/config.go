package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	MaxWorkers   int
	JobQueueSize int

	// Isolation selects the worker backend: "process" runs the renderer in a
	// Node child, "container" wraps it in a docker container.
	Isolation string

	NodeBin       string
	SiteDir       string
	RendererEntry string

	// StripSegments is how many leading path segments the wrapping layer in
	// the renderer bundle adds to stack-trace filenames.
	StripSegments int
	ContextLines  int

	HealthInterval    time.Duration
	ContainerImage    string
	ContainerMemoryMB int64
	ContainerCPUs     int64

	RateLimitRPS   int
	RateLimitBurst int
}

func LoadConfig() Config {
	err := godotenv.Load(".env")
	if err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	return Config{
		Port:        getEnv("PORT", "8000"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		MaxWorkers:   getEnvInt("MAX_WORKERS", 1),
		JobQueueSize: getEnvInt("JOB_QUEUE_SIZE", 16),

		Isolation: getEnv("ISOLATION", "process"),

		NodeBin:       getEnv("NODE_BIN", "node"),
		SiteDir:       getEnv("SITE_DIR", "."),
		RendererEntry: getEnv("RENDERER_ENTRY", "public/render-page.js"),

		StripSegments: getEnvInt("STRIP_SEGMENTS", 2),
		ContextLines:  getEnvInt("CONTEXT_LINES", 5),

		HealthInterval:    getEnvDuration("HEALTH_INTERVAL", 5*time.Second),
		ContainerImage:    getEnv("CONTAINER_IMAGE", "node:20-slim"),
		ContainerMemoryMB: int64(getEnvInt("CONTAINER_MEMORY_MB", 500)),
		ContainerCPUs:     int64(getEnvInt("CONTAINER_CPUS", 1)),

		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
