package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cosmodirect/rntbd/consts"
	"github.com/cosmodirect/rntbd/frame"
	"github.com/cosmodirect/rntbd/rntbderr"
	"github.com/cosmodirect/rntbd/transport/store"
	"github.com/cosmodirect/rntbd/transport/types"
	"github.com/cosmodirect/rntbd/utils/lru"
	"github.com/cosmodirect/rntbd/wire"
)

// State is the connection lifecycle position. Transitions are linear
// except for ClosingExceptionally, reachable from any live state.
type State int32

const (
	StateFresh State = iota
	StateRegistered
	StateContextRequested
	StateContextEstablished
	StateClosingExceptionally
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "Fresh"
	case StateRegistered:
		return "Registered"
	case StateContextRequested:
		return "ContextRequested"
	case StateContextEstablished:
		return "ContextEstablished"
	case StateClosingExceptionally:
		return "ClosingExceptionally"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ErrPendingLimit rejects a submit that would exceed the connection's
// pending-request cap.
var ErrPendingLimit = errors.New("pending request limit reached")

// ErrProtocol marks peer behavior the protocol forbids; it is fatal to
// the connection.
var ErrProtocol = errors.New("protocol violation")

type Options struct {
	// PendingRequestLimit caps concurrently in-flight requests.
	PendingRequestLimit int

	// RequestTimeout is the per-request deadline unless Args overrides.
	RequestTimeout time.Duration

	ClientVersion string
	UserAgent     string

	// Clock drives deadlines and health windows; the wall clock unless a
	// test installs a mock.
	Clock clock.Clock

	HealthChecker HealthChecker
	Reporter      types.ManagerReporter
}

func (o Options) withDefaults() Options {
	if o.PendingRequestLimit == 0 {
		o.PendingRequestLimit = consts.DefaultPendingRequestLimit
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = consts.DefaultRequestTimeout
	}
	if o.ClientVersion == "" {
		o.ClientVersion = consts.ClientVersion
	}
	if o.UserAgent == "" {
		o.UserAgent = consts.UserAgent
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.HealthChecker == nil {
		o.HealthChecker = newDefaultHealthChecker(o.Clock)
	}
	if o.Reporter == nil {
		o.Reporter = types.NoopReporter{}
	}
	return o
}

type pendingWrite struct {
	buf    []byte
	record *Record
}

var managerID atomic.Uint64

// Manager is the per-connection state machine. It owns the pending
// table, gates writes behind the context handshake, routes inbound
// frames to their records and fails everything forward on any fault.
type Manager struct {
	conn       net.Conn
	remote     string
	log        *zap.Logger
	opts       Options
	clk        clock.Clock
	sender     *sender
	negotiator *negotiator
	timestamps *Timestamps
	pending    *store.Map[*Record]
	expiryCh   chan uint64

	// responded remembers recent response-completed ids so a duplicate
	// response can be told apart from one for a locally expired request.
	responded *lru.Set

	mu         sync.Mutex
	state      State
	nextID     uint64
	pendWrites []pendingWrite
	closeCause error
}

func NewManager(conn net.Conn, log *zap.Logger, opts Options) *Manager {
	opts = opts.withDefaults()

	remote := "unknown"
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	log = log.Named("transport").
		With(zap.Uint64("conn-id", managerID.Add(1)), zap.String("remote", remote))

	timestamps := newTimestamps(opts.Clock)
	m := &Manager{
		conn:       conn,
		remote:     remote,
		log:        log,
		opts:       opts,
		clk:        opts.Clock,
		sender:     newSender(conn, timestamps),
		negotiator: newNegotiator(),
		timestamps: timestamps,
		pending:    store.NewMap[*Record](opts.PendingRequestLimit),
		expiryCh:   make(chan uint64, 4*opts.PendingRequestLimit),
		responded:  lru.New(4 * opts.PendingRequestLimit),
		state:      StateRegistered,
	}
	log.Debug("connection registered")
	return m
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) PendingCount() int { return m.pending.Len() }

func (m *Manager) ContextEstablished() bool { return m.negotiator.established() }

// Context returns the negotiated connection context once established.
func (m *Manager) Context() (*frame.Context, bool) {
	ctx, _ := m.negotiator.outcome()
	return ctx, ctx != nil
}

// WaitContext blocks until the handshake resolves either way.
func (m *Manager) WaitContext(ctx context.Context) (*frame.Context, error) {
	return m.negotiator.wait(ctx)
}

// IsServiceable is the admission check. Before the context is
// established the cap also bounds the caller's demand, throttling the
// pre-context write flood.
func (m *Manager) IsServiceable(demand int) bool {
	limit := m.opts.PendingRequestLimit
	if !m.negotiator.established() {
		limit = min(limit, demand)
	}
	return m.pending.Len() < limit
}

// Submit queues one request and returns its record without blocking on
// I/O. Before the context handshake resolves, the encoded frame pends
// in the coalescing buffer; afterwards it goes straight to the sender.
// Wire order is submission order.
func (m *Manager) Submit(args Args) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state >= StateClosingExceptionally {
		cause := m.closeCause
		if cause == nil {
			cause = rntbderr.ErrOnClose
		}
		return nil, fmt.Errorf("connection is closing: %w", cause)
	}
	if m.pending.Len() >= m.opts.PendingRequestLimit {
		return nil, ErrPendingLimit
	}

	if args.ActivityID.IsZero() {
		args.ActivityID = wire.NewActivityID()
	}
	timeout := args.Timeout
	if timeout == 0 {
		timeout = m.opts.RequestTimeout
	}

	m.nextID++
	id := m.nextID
	rec := newRecord(args, id, m.clk.Now().Add(timeout), timeout)

	buf, err := encodeRequest(&args, id)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	if !m.pending.SetIfAbsent(id, rec) {
		m.log.DPanic("transport request id collision", zap.Uint64("id", id))
		return nil, fmt.Errorf("transport request id collision: %d", id)
	}

	state := m.opts.Reporter.Acquire(args.Operation())
	state.SetSize(len(buf))

	timer := m.clk.AfterFunc(timeout, func() { m.expiryCh <- id })
	if !rec.armTimer(timer) {
		timer.Stop()
	}
	rec.onComplete(func() {
		m.pending.Delete(id)
		m.report(state, rec)
	})

	switch m.state {
	case StateRegistered:
		ctxBuf, err := encodeContextRequest(m.opts.ClientVersion, m.opts.UserAgent)
		if err != nil {
			m.log.DPanic("encoding context request", zap.Error(err))
			rec.Fail(err)
			return nil, err
		}
		m.negotiator.requestOnce()
		m.sender.Send(ctxBuf)
		m.state = StateContextRequested
		m.log.Debug("context requested")
		m.pendWrites = append(m.pendWrites, pendingWrite{buf, rec})
	case StateContextRequested:
		m.pendWrites = append(m.pendWrites, pendingWrite{buf, rec})
	default: // StateContextEstablished
		m.sender.Send(buf)
	}

	m.log.Debug("request submitted",
		zap.Uint64("id", id), zap.String("operation", args.Operation()))
	return rec, nil
}

func (m *Manager) report(state types.RequestState, rec *Record) {
	resp, err := rec.Result()
	if resp != nil {
		state.Done(resp.Status)
		return
	}
	// Mapped response errors count as served; synthetic ones (timeouts,
	// Gone on close, cancellations) as I/O failures.
	var re *rntbderr.Error
	if errors.As(err, &re) && re.Message == "" {
		state.Done(re.Status)
		return
	}
	state.IoError(err)
}

func encodeRequest(args *Args, id uint64) ([]byte, error) {
	req := frame.NewRequest(args.ActivityID, args.ResourceType, args.OperationType, id)
	if err := req.Headers.Token(wire.ReqReplicaPath).SetValue(args.ReplicaPath); err != nil {
		return nil, err
	}
	if args.Populate != nil {
		if err := args.Populate(req.Headers); err != nil {
			return nil, err
		}
	}
	req.Payload = args.Payload
	return req.Append(nil)
}

// Run drives the connection until the context is cancelled or a fault
// occurs. It always tears the connection down before returning; pending
// records never outlive it.
func (m *Manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return m.conn.SetDeadline(time.Now())
	})
	g.Go(func() error {
		defer cancel()
		return m.sender.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return m.runReceiver(ctx)
	})
	g.Go(func() error {
		m.runExpiry(ctx)
		return nil
	})

	err := g.Wait()
	if m.State() >= StateClosingExceptionally {
		// Torn down by Close, OnInactive or OnIdle; that path already
		// carried the cause to every pending record.
		return nil
	}
	if err == nil || isDeadlineErr(err) || errors.Is(err, context.Canceled) {
		// Interrupted by the caller's context, not by a fault.
		m.shutdown(rntbderr.ErrOnClose)
		return nil
	}
	m.shutdown(err)
	return err
}

func isDeadlineErr(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (m *Manager) runReceiver(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	ch := make(chan []byte)
	g.Go(func() error {
		// A processor fault must unblock a reader parked in conn.Read.
		<-ctx.Done()
		return m.conn.SetReadDeadline(time.Now())
	})
	g.Go(func() error {
		return m.runProcessor(ch)
	})
	g.Go(func() error {
		defer close(ch)
		buf1 := make([]byte, consts.RecieveBufferSize)
		buf2 := make([]byte, consts.RecieveBufferSize)
		for ctx.Err() == nil {
			if err := m.read(ctx, ch, buf1); err != nil {
				return err
			}
			if err := m.read(ctx, ch, buf2); err != nil {
				return err
			}
		}
		return nil
	})
	return g.Wait()
}

func (m *Manager) read(ctx context.Context, ch chan<- []byte, b []byte) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	n, err := m.conn.Read(b)
	if err != nil {
		return fmt.Errorf("reading error: %w", err)
	}
	m.timestamps.markRead()

	select {
	case ch <- b[:n]:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) runProcessor(ch <-chan []byte) error {
	framer := new(frame.Framer)
	var pendingPayload *frame.Response

	for b := range ch {
		framer.Fill(b)
		for {
			unit, err := framer.Next()
			if err != nil {
				return err
			}
			if unit == nil {
				break
			}
			if err := m.processUnit(unit, &pendingPayload); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Manager) processUnit(unit []byte, pendingPayload **frame.Response) error {
	if resp := *pendingPayload; resp != nil {
		*pendingPayload = nil
		resp.Payload = unit
		return m.dispatch(resp)
	}

	switch m.State() {
	case StateContextRequested:
		ctxResp, err := frame.DecodeContext(unit)
		if err != nil {
			var ce *frame.ContextError
			if errors.As(err, &ce) {
				return fmt.Errorf("RNTBD context request read failed: %w", err)
			}
			return err
		}
		m.establish(ctxResp)
		return nil

	case StateContextEstablished:
		resp, err := frame.DecodeResponse(unit)
		if err != nil {
			return err
		}
		hasPayload, err := resp.HasPayload()
		if err != nil {
			return err
		}
		if hasPayload {
			*pendingPayload = resp
			return nil
		}
		return m.dispatch(resp)

	default:
		return fmt.Errorf("unexpected frame in state %s: %w", m.State(), ErrProtocol)
	}
}

func (m *Manager) establish(ctxResp *frame.Context) {
	m.mu.Lock()
	if m.state >= StateClosingExceptionally {
		m.mu.Unlock()
		return
	}
	m.state = StateContextEstablished
	writes := m.pendWrites
	m.pendWrites = nil
	if !m.negotiator.complete(ctxResp) {
		m.mu.Unlock()
		m.log.DPanic("context completed twice")
		return
	}
	for _, w := range writes {
		m.sender.Send(w.buf)
	}
	m.mu.Unlock()

	m.log.Info("connection context established",
		zap.String("server-agent", ctxResp.ServerAgent),
		zap.String("server-version", ctxResp.ServerVersion),
		zap.Int("flushed-writes", len(writes)))
}

func (m *Manager) dispatch(resp *frame.Response) error {
	id := resp.TransportRequestID

	rec, ok := m.pending.Get(id)
	if !ok {
		if m.responded.Contains(id) {
			return fmt.Errorf("second response for transport request id %d: %w", id, ErrProtocol)
		}
		m.log.Warn("response ignored because there is no matching pending request",
			zap.Uint64("id", id), zap.Uint32("status", resp.Status))
		return nil
	}
	m.responded.Add(id)

	if resp.Status >= 200 && resp.Status < 300 {
		won := rec.Complete(&StoreResponse{
			Status:     resp.Status,
			ActivityID: resp.ActivityID,
			Headers:    resp.Headers,
			Payload:    resp.Payload,
		})
		if !won {
			m.log.Warn("late response discarded", zap.Uint64("id", id))
		}
		return nil
	}

	subStatus, err := resp.SubStatus()
	if err != nil {
		return err
	}
	lsn, err := resp.LSN()
	if err != nil {
		return err
	}
	pkRangeID, err := resp.PartitionKeyRangeID()
	if err != nil {
		return err
	}
	headers, err := headerMapOf(resp.Headers)
	if err != nil {
		return err
	}

	won := rec.Fail(rntbderr.FromResponse(resp.Status, subStatus, lsn, pkRangeID, headers, resp.Payload))
	if !won {
		m.log.Warn("late response discarded", zap.Uint64("id", id))
	}
	return nil
}

func headerMapOf(headers *wire.TokenStream) (map[string]string, error) {
	out := make(map[string]string, headers.ComputeCount())
	var firstErr error
	headers.Each(func(t *wire.Token) {
		v, err := t.Value()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		out[t.Name()] = fmt.Sprint(v)
	})
	return out, firstErr
}

func (m *Manager) runExpiry(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-m.expiryCh:
			rec, ok := m.pending.Get(id)
			if ok && rec.Expire() {
				m.log.Debug("request expired", zap.Uint64("id", id))
			}
		}
	}
}

// OnIdle runs the health probe; an unhealthy verdict tears the
// connection down. Wired to the owner's idle timer.
func (m *Manager) OnIdle(ctx context.Context) error {
	err := m.opts.HealthChecker.Probe(ctx, m.timestamps.Snapshot())
	if err == nil {
		return nil
	}
	m.log.Warn("health check failed, closing", zap.Error(err))
	m.shutdown(err)
	return err
}

// OnInactive is the transport's notification that the channel went
// away. cause is one of the close sentinels.
func (m *Manager) OnInactive(cause error) {
	m.shutdown(cause)
}

// Close tears the connection down, failing all pending work with the
// on-close sentinel.
func (m *Manager) Close() error {
	return m.shutdown(rntbderr.ErrOnClose)
}

// shutdown is the single, idempotent fatal path. Every pending record
// resolves exactly once with a Gone error carrying cause; the coalesced
// pre-context writes are released; the transport is closed with a
// graceful TLS outbound close when available.
func (m *Manager) shutdown(cause error) error {
	m.mu.Lock()
	if m.state >= StateClosingExceptionally {
		m.mu.Unlock()
		m.log.Debug("already closing", zap.Error(cause))
		return nil
	}
	m.state = StateClosingExceptionally
	m.closeCause = cause
	// Coalesced pre-context writes are released here; their records are
	// failed with everything else pending below.
	m.pendWrites = nil
	m.mu.Unlock()

	m.negotiator.fail(cause)

	phrase := "closed exceptionally"
	if m.negotiator.wasRequested() && !m.negotiator.established() {
		var ce *frame.ContextError
		if errors.As(cause, &ce) {
			phrase = "RNTBD context request read failed"
		} else {
			phrase = "RNTBD context request write failed"
		}
	}

	var recs []*Record
	m.pending.Each(func(_ uint64, rec *Record) {
		recs = append(recs, rec)
	})

	message := fmt.Sprintf("%s %s with %d pending requests", m.remote, phrase, len(recs))
	for _, rec := range recs {
		args := rec.Args()
		rec.Fail(rntbderr.NewGone(message, cause, args.PhysicalAddress, args.headerMap()))
	}

	var closeErr error
	if cw, ok := m.conn.(interface{ CloseWrite() error }); ok {
		closeErr = cw.CloseWrite()
	}
	closeErr = multierr.Append(closeErr, m.conn.Close())

	m.mu.Lock()
	m.state = StateClosed
	m.mu.Unlock()

	m.log.Info("connection closed",
		zap.Error(cause), zap.Int("failed-pending", len(recs)))
	return closeErr
}
