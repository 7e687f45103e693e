package wire

import (
	"encoding/binary"
	"io"
)

// cursor is a non-copying reader over a frame region. All multi-byte
// integers on the wire are little-endian.
type cursor struct {
	b []byte
}

func newCursor(b []byte) *cursor { return &cursor{b} }

func (c *cursor) remaining() int { return len(c.b) }

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || n > len(c.b) {
		return nil, io.ErrUnexpectedEOF
	}
	b := c.b[:n]
	c.b = c.b[n:]
	return b, nil
}

func (c *cursor) peek(n int) ([]byte, error) {
	if n > len(c.b) {
		return nil, io.ErrUnexpectedEOF
	}
	return c.b[:n], nil
}

func (c *cursor) readByte() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) readUint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) readUint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) readUint64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
