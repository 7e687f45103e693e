package frame

import (
	"encoding/binary"

	"github.com/cosmodirect/rntbd/consts"
)

// Framer splits an inbound byte stream into complete length-prefixed
// units: response frames and their follow-up payload blobs share the
// same u32-length-prefixed shape. Partial units stay buffered across
// Fill calls; nothing is surfaced until a unit is complete.
type Framer struct {
	buf []byte
	off int
}

// Fill appends an inbound chunk. The chunk is copied; the caller may
// reuse its buffer immediately.
func (f *Framer) Fill(b []byte) {
	if f.off == len(f.buf) {
		f.buf = f.buf[:0]
		f.off = 0
	}
	f.buf = append(f.buf, b...)
}

// Next returns the body of the next complete unit, its length prefix
// stripped, or nil when more bytes are needed. The returned slice is
// owned by the caller and stays valid across further Fill calls.
func (f *Framer) Next() ([]byte, error) {
	pending := f.buf[f.off:]
	if len(pending) < lengthPrefixSize {
		return nil, nil
	}

	length := binary.LittleEndian.Uint32(pending)
	if length > consts.MaxFrameSize {
		return nil, malformed("frame of %d bytes exceeds the %d limit", length, consts.MaxFrameSize)
	}
	total := lengthPrefixSize + int(length)
	if len(pending) < total {
		return nil, nil
	}

	unit := make([]byte, length)
	copy(unit, pending[lengthPrefixSize:total])
	f.off += total

	// Compact once the consumed prefix dominates the buffer.
	if f.off > len(f.buf)/2 {
		f.buf = append(f.buf[:0], f.buf[f.off:]...)
		f.off = 0
	}
	return unit, nil
}

// Buffered reports the byte count of incomplete data held back.
func (f *Framer) Buffered() int { return len(f.buf) - f.off }
