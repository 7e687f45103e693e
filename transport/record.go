// Package transport implements the per-connection RNTBD state machine:
// context negotiation, request multiplexing, timeouts and teardown.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/cosmodirect/rntbd/rntbderr"
	"github.com/cosmodirect/rntbd/wire"
)

var ErrRequestCancelled = errors.New("request cancelled")

// Args is what a caller submits: addressing, headers and the optional
// payload of one request.
type Args struct {
	// ActivityID is generated when zero.
	ActivityID    wire.GUID
	ResourceType  uint16
	OperationType uint16

	ReplicaPath string

	// PhysicalAddress is the endpoint URI carried by synthetic errors so
	// upper layers can route retries.
	PhysicalAddress string

	Payload []byte

	// Timeout overrides the connection's default request timeout.
	Timeout time.Duration

	// Populate, when set, fills additional request headers before the
	// frame is encoded.
	Populate func(headers *wire.TokenStream) error
}

// Operation names the request for logs and reports.
func (a *Args) Operation() string {
	return fmt.Sprintf("%#04x/%#04x", a.ResourceType, a.OperationType)
}

func (a *Args) headerMap() map[string]string {
	return map[string]string{
		"ActivityId":  a.ActivityID.String(),
		"ReplicaPath": a.ReplicaPath,
	}
}

// StoreResponse is the successful completion of one request.
type StoreResponse struct {
	Status     uint32
	ActivityID wire.GUID
	Headers    *wire.TokenStream
	Payload    []byte
}

type recordState int

const (
	statePending recordState = iota
	stateCompleted
	stateFailed
	stateCancelled
)

// Record is one in-flight request. Transitions out of pending are
// one-way and mutually exclusive; each transition reports whether it
// won. Completion hooks run exactly once, on whichever transition wins.
type Record struct {
	args     Args
	id       uint64
	deadline time.Time
	timeout  time.Duration

	mu    sync.Mutex
	state recordState
	resp  *StoreResponse
	err   error
	hooks []func()
	timer *clock.Timer
	done  chan struct{}
}

func newRecord(args Args, id uint64, deadline time.Time, timeout time.Duration) *Record {
	return &Record{
		args:     args,
		id:       id,
		deadline: deadline,
		timeout:  timeout,
		done:     make(chan struct{}),
	}
}

func (r *Record) TransportRequestID() uint64 { return r.id }
func (r *Record) Args() Args                 { return r.args }
func (r *Record) Deadline() time.Time        { return r.deadline }

// Done is closed on any terminal transition.
func (r *Record) Done() <-chan struct{} { return r.done }

// Complete finishes the record with a response.
func (r *Record) Complete(resp *StoreResponse) bool {
	return r.transition(stateCompleted, resp, nil)
}

// Fail finishes the record exceptionally.
func (r *Record) Fail(err error) bool {
	return r.transition(stateFailed, nil, err)
}

// Expire synthesizes a request-timeout failure. Invoked by the manager
// on its own execution context when the record's timer fires.
func (r *Record) Expire() bool {
	return r.transition(stateFailed, nil, rntbderr.NewRequestTimeout(r.args.PhysicalAddress, r.timeout))
}

// Cancel drops the caller's interest. A response arriving later is
// discarded by the manager.
func (r *Record) Cancel() bool {
	return r.transition(stateCancelled, nil, ErrRequestCancelled)
}

func (r *Record) transition(to recordState, resp *StoreResponse, err error) bool {
	r.mu.Lock()
	if r.state != statePending {
		r.mu.Unlock()
		return false
	}
	r.state = to
	r.resp = resp
	r.err = err
	hooks := r.hooks
	r.hooks = nil
	timer := r.timer
	r.timer = nil
	r.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	// Hooks run before done is observable, so anyone woken by Done sees
	// the pending-table bookkeeping already settled.
	for _, fn := range hooks {
		fn()
	}
	close(r.done)
	return true
}

// Result reports the outcome; valid once Done is closed.
func (r *Record) Result() (*StoreResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resp, r.err
}

// Wait blocks for the outcome or the caller's context, cancelling the
// record when the context wins.
func (r *Record) Wait(ctx context.Context) (*StoreResponse, error) {
	select {
	case <-r.done:
		return r.Result()
	case <-ctx.Done():
		r.Cancel()
		return nil, ctx.Err()
	}
}

// onComplete registers fn to run on the terminal transition; it runs
// immediately when the record is already terminal.
func (r *Record) onComplete(fn func()) {
	r.mu.Lock()
	if r.state == statePending {
		r.hooks = append(r.hooks, fn)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	fn()
}

// armTimer attaches the deadline timer; dropped (and stopped by the
// caller) when the record is already terminal.
func (r *Record) armTimer(t *clock.Timer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != statePending {
		return false
	}
	r.timer = t
	return true
}
