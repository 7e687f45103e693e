package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// TokenType identifies the primitive wire type of a token. The numeric
// assignment is part of the wire contract and must not change.
type TokenType byte

const (
	TypeByte        TokenType = 0x00
	TypeUShort      TokenType = 0x01
	TypeULong       TokenType = 0x02
	TypeLong        TokenType = 0x03
	TypeULongLong   TokenType = 0x04
	TypeLongLong    TokenType = 0x05
	TypeGUID        TokenType = 0x06
	TypeSmallString TokenType = 0x07
	TypeString      TokenType = 0x08
	TypeULongString TokenType = 0x09
	TypeSmallBytes  TokenType = 0x0A
	TypeBytes       TokenType = 0x0B
	TypeULongBytes  TokenType = 0x0C
	TypeFloat       TokenType = 0x0D
	TypeDouble      TokenType = 0x0E
	TypeInvalid     TokenType = 0xFF
)

func (t TokenType) String() string {
	switch t {
	case TypeByte:
		return "Byte"
	case TypeUShort:
		return "UShort"
	case TypeULong:
		return "ULong"
	case TypeLong:
		return "Long"
	case TypeULongLong:
		return "ULongLong"
	case TypeLongLong:
		return "LongLong"
	case TypeGUID:
		return "GUID"
	case TypeSmallString:
		return "SmallString"
	case TypeString:
		return "String"
	case TypeULongString:
		return "ULongString"
	case TypeSmallBytes:
		return "SmallBytes"
	case TypeBytes:
		return "Bytes"
	case TypeULongBytes:
		return "ULongBytes"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	default:
		return fmt.Sprintf("Invalid(%#02x)", byte(t))
	}
}

// fixedLen reports the body length of fixed-size types and -1 for the
// length-prefixed ones.
func (t TokenType) fixedLen() int {
	switch t {
	case TypeByte:
		return 1
	case TypeUShort:
		return 2
	case TypeULong, TypeLong, TypeFloat:
		return 4
	case TypeULongLong, TypeLongLong, TypeDouble:
		return 8
	case TypeGUID:
		return GUIDLength
	default:
		return -1
	}
}

// prefixLen reports the width of the length prefix of variable-size
// types and 0 for the fixed-size ones.
func (t TokenType) prefixLen() int {
	switch t {
	case TypeSmallString, TypeSmallBytes:
		return 1
	case TypeString, TypeBytes:
		return 2
	case TypeULongString, TypeULongBytes:
		return 4
	default:
		return 0
	}
}

func tokenTypeFromID(id byte) (TokenType, error) {
	t := TokenType(id)
	if t.fixedLen() < 0 && t.prefixLen() == 0 {
		return TypeInvalid, fmt.Errorf("token type tag out of range: %#02x", id)
	}
	return t, nil
}

// ReadSlice consumes the token body from c without parsing it. The
// returned slice retains the length prefix of variable-size types so it
// can be re-emitted verbatim.
func (t TokenType) ReadSlice(c *cursor) ([]byte, error) {
	if n := t.fixedLen(); n >= 0 {
		return c.take(n)
	}

	p := t.prefixLen()
	head, err := c.peek(p)
	if err != nil {
		return nil, err
	}

	var n int
	switch p {
	case 1:
		n = int(head[0])
	case 2:
		n = int(binary.LittleEndian.Uint16(head))
	default:
		v := binary.LittleEndian.Uint32(head)
		if v > math.MaxInt32 {
			return nil, fmt.Errorf("token length overrun: %d", v)
		}
		n = int(v)
	}
	return c.take(p + n)
}

// Decode parses a raw slice previously produced by ReadSlice.
func (t TokenType) Decode(raw []byte) (any, error) {
	c := newCursor(raw)
	v, err := t.decode(c)
	if err != nil {
		return nil, err
	}
	if c.remaining() != 0 {
		return nil, fmt.Errorf("%s token has %d trailing bytes", t, c.remaining())
	}
	return v, nil
}

func (t TokenType) decode(c *cursor) (any, error) {
	switch t {
	case TypeByte:
		return c.readByte()
	case TypeUShort:
		return c.readUint16()
	case TypeULong:
		return c.readUint32()
	case TypeLong:
		v, err := c.readUint32()
		return int32(v), err
	case TypeULongLong:
		return c.readUint64()
	case TypeLongLong:
		v, err := c.readUint64()
		return int64(v), err
	case TypeFloat:
		v, err := c.readUint32()
		return math.Float32frombits(v), err
	case TypeDouble:
		v, err := c.readUint64()
		return math.Float64frombits(v), err
	case TypeGUID:
		b, err := c.take(GUIDLength)
		if err != nil {
			return nil, err
		}
		return GUIDFromWire(b), nil
	}

	body, err := t.ReadSlice(c)
	if err != nil {
		return nil, err
	}
	body = body[t.prefixLen():]
	switch t {
	case TypeSmallString, TypeString, TypeULongString:
		return string(body), nil
	default:
		// Copied so the value does not alias the frame buffer.
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}
}

// Append encodes v (length prefix included) onto b. The caller must have
// validated v with IsValid.
func (t TokenType) Append(b []byte, v any) []byte {
	switch t {
	case TypeByte:
		return append(b, v.(byte))
	case TypeUShort:
		return binary.LittleEndian.AppendUint16(b, v.(uint16))
	case TypeULong:
		return binary.LittleEndian.AppendUint32(b, v.(uint32))
	case TypeLong:
		return binary.LittleEndian.AppendUint32(b, uint32(v.(int32)))
	case TypeULongLong:
		return binary.LittleEndian.AppendUint64(b, v.(uint64))
	case TypeLongLong:
		return binary.LittleEndian.AppendUint64(b, uint64(v.(int64)))
	case TypeFloat:
		return binary.LittleEndian.AppendUint32(b, math.Float32bits(v.(float32)))
	case TypeDouble:
		return binary.LittleEndian.AppendUint64(b, math.Float64bits(v.(float64)))
	case TypeGUID:
		return v.(GUID).AppendWire(b)
	}

	body := valueBody(v)
	switch t.prefixLen() {
	case 1:
		b = append(b, byte(len(body)))
	case 2:
		b = binary.LittleEndian.AppendUint16(b, uint16(len(body)))
	default:
		b = binary.LittleEndian.AppendUint32(b, uint32(len(body)))
	}
	return append(b, body...)
}

// ValueLength reports the on-wire byte count of v: the body plus the
// length prefix of variable-size types, excluding the 3-byte id+type
// record prefix.
func (t TokenType) ValueLength(v any) int {
	if n := t.fixedLen(); n >= 0 {
		return n
	}
	return t.prefixLen() + len(valueBody(v))
}

// IsValid reports whether v is the canonical value type for t and, for
// variable-size types, whether the body fits its length prefix.
func (t TokenType) IsValid(v any) bool {
	switch t {
	case TypeByte:
		_, ok := v.(byte)
		return ok
	case TypeUShort:
		_, ok := v.(uint16)
		return ok
	case TypeULong:
		_, ok := v.(uint32)
		return ok
	case TypeLong:
		_, ok := v.(int32)
		return ok
	case TypeULongLong:
		_, ok := v.(uint64)
		return ok
	case TypeLongLong:
		_, ok := v.(int64)
		return ok
	case TypeFloat:
		_, ok := v.(float32)
		return ok
	case TypeDouble:
		_, ok := v.(float64)
		return ok
	case TypeGUID:
		_, ok := v.(GUID)
		return ok
	case TypeSmallString, TypeString, TypeULongString:
		s, ok := v.(string)
		return ok && len(s) <= t.maxBodyLen()
	case TypeSmallBytes, TypeBytes, TypeULongBytes:
		b, ok := v.([]byte)
		return ok && len(b) <= t.maxBodyLen()
	default:
		return false
	}
}

func (t TokenType) maxBodyLen() int {
	switch t.prefixLen() {
	case 1:
		return math.MaxUint8
	case 2:
		return math.MaxUint16
	default:
		return math.MaxInt32
	}
}

// Default is the value reported for a token that is not present.
func (t TokenType) Default() any {
	switch t {
	case TypeByte:
		return byte(0)
	case TypeUShort:
		return uint16(0)
	case TypeULong:
		return uint32(0)
	case TypeLong:
		return int32(0)
	case TypeULongLong:
		return uint64(0)
	case TypeLongLong:
		return int64(0)
	case TypeFloat:
		return float32(0)
	case TypeDouble:
		return float64(0)
	case TypeGUID:
		return GUID{}
	case TypeSmallString, TypeString, TypeULongString:
		return ""
	default:
		return []byte(nil)
	}
}

func valueBody(v any) []byte {
	if s, ok := v.(string); ok {
		return []byte(s)
	}
	return v.([]byte)
}
