package renderer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	logrus "github.com/sirupsen/logrus"

	"pagemill/model"
)

const (
	containerSiteDir    = "/site"
	containerHarnessDir = "/harness"
)

// ContainerConfig holds the docker-level settings for container isolation.
type ContainerConfig struct {
	Image          string
	MemoryMB       int64
	CPUs           int64
	HealthInterval time.Duration
}

// ContainerRunner runs the renderer harness inside a resource-limited
// docker container. Container lifecycle goes through the docker client
// API; the interactive harness exec goes through the docker CLI, which
// handles the stdio plumbing.
type ContainerRunner struct {
	cfg     ContainerConfig
	workDir string

	dockerClient *client.Client
	logger       *logrus.Logger

	mu          sync.Mutex
	containerID string
	unhealthy   bool

	harnessDir string
	cmd        *exec.Cmd
	box        *mailbox
	stopHealth chan struct{}
}

func NewContainerRunner(cfg ContainerConfig, workDir string) (*ContainerRunner, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %v", err)
	}

	logger := logrus.New()
	if err := os.MkdirAll("logs", 0755); err == nil {
		logFile, err := os.OpenFile("logs/renderer.log", os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err == nil {
			logger.SetOutput(logFile)
		}
	}

	return &ContainerRunner{
		cfg:          cfg,
		workDir:      workDir,
		dockerClient: dockerClient,
		logger:       logger,
		stopHealth:   make(chan struct{}),
	}, nil
}

func (r *ContainerRunner) Start(ctx context.Context) error {
	harnessDir, err := os.MkdirTemp("", "pagemill-harness-")
	if err != nil {
		return fmt.Errorf("write harness: %w", err)
	}
	harnessPath := filepath.Join(harnessDir, "harness.mjs")
	if err := os.WriteFile(harnessPath, []byte(harnessJS), 0644); err != nil {
		return fmt.Errorf("write harness: %w", err)
	}
	r.harnessDir = harnessDir

	absWork, err := filepath.Abs(r.workDir)
	if err != nil {
		return fmt.Errorf("resolve work dir: %v", err)
	}

	config := &container.Config{
		Image:      r.cfg.Image,
		Cmd:        []string{"sleep", "infinity"},
		WorkingDir: containerSiteDir,
	}
	hostConfig := &container.HostConfig{
		Resources: container.Resources{
			Memory:   r.cfg.MemoryMB * 1024 * 1024,
			NanoCPUs: r.cfg.CPUs * 1000000000,
		},
		NetworkMode: "none",
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: absWork, Target: containerSiteDir},
			{Type: mount.TypeBind, Source: harnessDir, Target: containerHarnessDir, ReadOnly: true},
		},
	}

	resp, err := r.dockerClient.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if err != nil {
		r.logger.Errorf("failed to create container: %v", err)
		return fmt.Errorf("failed to create container: %v", err)
	}
	if err := r.dockerClient.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		r.dockerClient.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		r.logger.Errorf("failed to start container %s: %v", shortID(resp.ID), err)
		return fmt.Errorf("failed to start container: %v", err)
	}
	r.containerID = resp.ID
	r.logger.Printf("Started render worker container: %s", shortID(resp.ID))

	cmd := exec.Command("docker", "exec", "-i", resp.ID,
		"node", containerHarnessDir+"/harness.mjs")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start harness exec: %w", err)
	}
	r.cmd = cmd
	r.box = newMailbox(stdin, stdout)

	go r.monitor()
	return nil
}

func (r *ContainerRunner) Render(ctx context.Context, req *model.RenderRequest) (*model.RenderReply, error) {
	r.mu.Lock()
	if r.unhealthy {
		r.mu.Unlock()
		return nil, fmt.Errorf("render worker container %s is not running", shortID(r.containerID))
	}
	r.mu.Unlock()

	if r.box == nil {
		return nil, fmt.Errorf("render worker not started")
	}

	// Paths inside the container are rooted at the site mount.
	inReq := *req
	inReq.WorkDir = containerSiteDir
	if rel, err := filepath.Rel(r.workDir, req.EntryPath); err == nil && !strings.HasPrefix(rel, "..") {
		inReq.EntryPath = filepath.Join(containerSiteDir, rel)
	}
	return r.box.roundTrip(ctx, &inReq)
}

// monitor is the health loop: if docker reports the container gone, the
// runner is flagged so later submissions fail fast instead of hanging on a
// dead mailbox.
func (r *ContainerRunner) monitor() {
	ticker := time.NewTicker(r.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopHealth:
			return
		case <-ticker.C:
		}

		containers, err := r.dockerClient.ContainerList(context.Background(), container.ListOptions{All: true})
		if err != nil {
			r.logger.Printf("Failed to list containers: %v", err)
			continue
		}
		running := false
		for _, c := range containers {
			if c.ID == r.containerID && c.State == "running" {
				running = true
				break
			}
		}
		if !running {
			r.logger.Printf("Container %s not running, marking unhealthy", shortID(r.containerID))
			r.mu.Lock()
			r.unhealthy = true
			r.mu.Unlock()
			return
		}
	}
}

func (r *ContainerRunner) Close() error {
	close(r.stopHealth)
	if r.box != nil {
		r.box.close()
	}
	if r.cmd != nil && r.cmd.Process != nil {
		r.cmd.Process.Kill()
		r.cmd.Wait()
	}
	if r.containerID != "" {
		ctx := context.Background()
		if err := r.dockerClient.ContainerRemove(ctx, r.containerID, container.RemoveOptions{Force: true}); err != nil {
			r.logger.Printf("Failed to remove container %s: %v", shortID(r.containerID), err)
		} else {
			r.logger.Printf("Removed container: %s", shortID(r.containerID))
		}
	}
	if r.harnessDir != "" {
		os.RemoveAll(r.harnessDir)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
