package renderer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"pagemill/model"
)

// syncBuffer is stderr capture that is safe against the copy goroutine
// os/exec keeps writing for the child's lifetime.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// ProcessRunner runs the renderer harness in a persistent Node child
// process. The child outlives individual requests so module import cost is
// paid once.
type ProcessRunner struct {
	NodeBin string
	WorkDir string

	harnessPath string
	cmd         *exec.Cmd
	box         *mailbox
	stderr      syncBuffer
}

func NewProcessRunner(nodeBin, workDir string) *ProcessRunner {
	return &ProcessRunner{NodeBin: nodeBin, WorkDir: workDir}
}

func (r *ProcessRunner) Start(ctx context.Context) error {
	f, err := os.CreateTemp("", "pagemill-harness-*.mjs")
	if err != nil {
		return fmt.Errorf("write harness: %w", err)
	}
	if _, err := f.WriteString(harnessJS); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("write harness: %w", err)
	}
	f.Close()
	r.harnessPath = f.Name()

	// The child is deliberately not bound to ctx: it outlives Start and is
	// torn down by Close.
	cmd := exec.Command(r.NodeBin, r.harnessPath)
	cmd.Dir = r.WorkDir
	cmd.Stderr = &r.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start render worker: %w", err)
	}

	r.cmd = cmd
	r.box = newMailbox(stdin, stdout)
	return nil
}

func (r *ProcessRunner) Render(ctx context.Context, req *model.RenderRequest) (*model.RenderReply, error) {
	if r.box == nil {
		return nil, fmt.Errorf("render worker not started")
	}
	reply, err := r.box.roundTrip(ctx, req)
	if err != nil {
		if s := bytes.TrimSpace(r.stderr.snapshot()); len(s) > 0 {
			return nil, fmt.Errorf("%w (worker stderr: %s)", err, s)
		}
		return nil, err
	}
	return reply, nil
}

func (r *ProcessRunner) Close() error {
	if r.box != nil {
		r.box.close()
	}
	if r.cmd != nil && r.cmd.Process != nil {
		// Closing stdin asks the harness to exit; Wait reaps it. Kill is
		// the fallback for a wedged child.
		done := make(chan error, 1)
		go func() { done <- r.cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			r.cmd.Process.Kill()
			<-done
		}
	}
	if r.harnessPath != "" {
		os.Remove(r.harnessPath)
	}
	return nil
}
