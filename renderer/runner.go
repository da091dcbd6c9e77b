package renderer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"pagemill/model"
)

// Runner is an isolated execution context exposing the single "render"
// operation. Implementations own the isolation boundary (a Node child for
// ProcessRunner, a docker container for ContainerRunner).
type Runner interface {
	Start(ctx context.Context) error
	Render(ctx context.Context, req *model.RenderRequest) (*model.RenderReply, error)
	Close() error
}

// maxReplyBytes bounds a single mailbox line; rendered documents can be
// large but not unbounded.
const maxReplyBytes = 32 * 1024 * 1024

// mailbox is the host-side half of the line-delimited JSON protocol. A
// mailbox belongs to exactly one worker goroutine, so round trips are
// serialized by construction; the mutex only guards against a Close racing
// a round trip.
type mailbox struct {
	mu  sync.Mutex
	enc *json.Encoder
	sc  *bufio.Scanner
	in  io.Closer
}

func newMailbox(stdin io.WriteCloser, stdout io.Reader) *mailbox {
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), maxReplyBytes)
	return &mailbox{
		enc: json.NewEncoder(stdin),
		sc:  sc,
		in:  stdin,
	}
}

// roundTrip writes req and reads replies until one matches its id. Replies
// for other ids (a discarded warming result, typically) are skipped.
func (m *mailbox) roundTrip(ctx context.Context, req *model.RenderRequest) (*model.RenderReply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enc.Encode(req); err != nil {
		return nil, fmt.Errorf("write render request: %w", err)
	}

	for m.sc.Scan() {
		line := m.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var reply model.RenderReply
		if err := json.Unmarshal(line, &reply); err != nil {
			return nil, fmt.Errorf("decode render reply: %w", err)
		}
		if reply.ID != req.ID {
			continue
		}
		return &reply, nil
	}
	if err := m.sc.Err(); err != nil {
		return nil, fmt.Errorf("read render reply: %w", err)
	}
	return nil, fmt.Errorf("worker closed mailbox before replying")
}

func (m *mailbox) close() error {
	return m.in.Close()
}
