package transport

import (
	"context"
	"fmt"
	"io"
	"net"
)

const senderQueueSize = 1024

// sender owns the outbound half of the connection. Frames queue on a
// channel and are drained greedily into one vectored write, so bursts
// of small frames coalesce into few syscalls.
type sender struct {
	conn       io.Writer
	ch         chan []byte
	timestamps *Timestamps
}

func newSender(conn io.Writer, timestamps *Timestamps) *sender {
	return &sender{
		conn:       conn,
		ch:         make(chan []byte, senderQueueSize),
		timestamps: timestamps,
	}
}

// Send queues b for writing. Ordering is the caller's queueing order.
func (s *sender) Send(b []byte) {
	s.ch <- b
}

func (s *sender) Run(ctx context.Context) error {
	// WriteTo consumes the slice and may shrink its capacity, so each
	// batch is rebuilt over a fixed backing array.
	var backing [64][]byte
	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-s.ch:
			bufs := net.Buffers(backing[:0])
			bufs = append(bufs, b)
			for len(bufs) < cap(backing) {
				select {
				case b := <-s.ch:
					bufs = append(bufs, b)
					continue
				default:
				}
				break
			}

			n := len(bufs)
			s.timestamps.markWriteAttempted()
			if _, err := bufs.WriteTo(s.conn); err != nil {
				return fmt.Errorf("writing %d frames: %w", n, err)
			}
			s.timestamps.markWriteCompleted()
		}
	}
}
