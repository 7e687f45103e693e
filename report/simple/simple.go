// Package simple prints per-second request aggregates to stdout.
package simple

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cosmodirect/rntbd/transport/types"
	"github.com/cosmodirect/rntbd/utils/pool"
)

type Reporter struct {
	pool    *pool.SlicePool[*requestState]
	closeCh chan struct{}

	start time.Time
	ok    atomic.Uint32
	nook  atomic.Uint32
	req   atomic.Uint32
	size  atomic.Uint64

	lastOk   uint32
	lastNook uint32
	lastReq  uint32
	lastSize uint64
	lastTime time.Time
}

func New() *Reporter {
	now := time.Now()
	return &Reporter{
		pool:     pool.NewSlicePoolSize[*requestState](100),
		closeCh:  make(chan struct{}),
		start:    now,
		lastTime: now,
	}
}

func (a *Reporter) Run() error {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	defer a.total()
	for {
		select {
		case now := <-t.C:
			a.report(now)
		case <-a.closeCh:
			return nil
		}
	}
}

func (a *Reporter) Close() error {
	close(a.closeCh)
	return nil
}

func (a *Reporter) Acquire(_ string) types.RequestState {
	a.req.Add(1)
	s, ok := a.pool.Acquire()
	if !ok {
		s = &requestState{reporter: a}
	}
	s.reset()
	return s
}

func (a *Reporter) accept(s *requestState) {
	if s.result() {
		a.ok.Add(1)
	} else {
		a.nook.Add(1)
	}

	a.pool.Release(s)
}

func (a *Reporter) addSize(size int) {
	a.size.Add(uint64(size))
}

func (a *Reporter) write(ok, nook, req uint32, size uint64, d time.Duration) {
	total := ok + nook
	miliSeconds := d.Milliseconds()
	if miliSeconds > 0 {
		fmt.Printf(
			"total=%d ok=%d nook=%d req=%d size=%s req/s=%.2f resp/s=%.2f\n",
			total, ok, nook, req,
			humanize.Bytes(size*1000/uint64(miliSeconds)),
			float64(req)*1000/float64(miliSeconds), float64(total)*1000/float64(miliSeconds),
		)
	} else {
		fmt.Printf("total=%d ok=%d nook=%d req=%d\n", total, ok, nook, req)
	}
}

func (a *Reporter) total() {
	fmt.Println("total")
	a.write(a.ok.Load(), a.nook.Load(), a.req.Load(), a.size.Load(), time.Since(a.start))
}

func (a *Reporter) report(now time.Time) {
	ok, nook, req, size, period := a.ok.Load(), a.nook.Load(), a.req.Load(), a.size.Load(), now.Sub(a.lastTime)
	a.write(ok-a.lastOk, nook-a.lastNook, req-a.lastReq, size-a.lastSize, period)
	a.lastOk, a.lastNook, a.lastTime, a.lastReq, a.lastSize = ok, nook, now, req, size
}

type requestState struct {
	reporter *Reporter

	status uint32
	ioErr  error
	done   bool
}

func (s *requestState) reset() {
	s.status = 0
	s.ioErr = nil
	s.done = false
}

func (s *requestState) SetSize(size int) {
	s.reporter.addSize(size)
}

func (s *requestState) Done(status uint32) {
	s.status = status
	s.done = true
	s.end()
}

func (s *requestState) IoError(err error) {
	s.ioErr = err
	s.end()
}

func (s *requestState) result() (ok bool) {
	switch {
	case s.ioErr != nil:
		return false
	case !s.done:
		return false
	}
	return s.status >= 200 && s.status < 300
}

func (s *requestState) end() {
	s.reporter.accept(s)
}
