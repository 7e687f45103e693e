package transport

import (
	"context"
	"sync"

	"github.com/cosmodirect/rntbd/consts"
	"github.com/cosmodirect/rntbd/frame"
	"github.com/cosmodirect/rntbd/wire"
)

// negotiator is the single-assignment completion of the connection
// context handshake. Either outcome latches; a second completion is a
// programming error surfaced to the caller.
type negotiator struct {
	mu        sync.Mutex
	requested bool
	ctx       *frame.Context
	err       error
	done      chan struct{}
}

func newNegotiator() *negotiator {
	return &negotiator{done: make(chan struct{})}
}

// requestOnce reports whether the caller is the first to trigger the
// handshake and should write the context request frame.
func (n *negotiator) requestOnce() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.requested {
		return false
	}
	n.requested = true
	return true
}

func encodeContextRequest(clientVersion, userAgent string) ([]byte, error) {
	req := frame.ContextRequest{
		ActivityID:      wire.NewActivityID(),
		ProtocolVersion: consts.ProtocolVersion,
		ClientVersion:   clientVersion,
		UserAgent:       userAgent,
	}
	return req.Append(nil)
}

func (n *negotiator) complete(ctx *frame.Context) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ctx != nil || n.err != nil {
		return false
	}
	n.ctx = ctx
	close(n.done)
	return true
}

func (n *negotiator) fail(err error) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ctx != nil || n.err != nil {
		return false
	}
	n.err = err
	close(n.done)
	return true
}

func (n *negotiator) wasRequested() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.requested
}

func (n *negotiator) established() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ctx != nil
}

func (n *negotiator) outcome() (*frame.Context, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ctx, n.err
}

// wait blocks until the handshake resolves either way.
func (n *negotiator) wait(ctx context.Context) (*frame.Context, error) {
	select {
	case <-n.done:
		return n.outcome()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
