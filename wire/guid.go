package wire

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
)

const GUIDLength = 16

// GUID is a 16-byte activity identifier, held in RFC 4122 byte order.
// On the wire it uses the Microsoft mixed-endian GUID layout: the first
// three groups are little-endian, the last eight bytes are verbatim.
type GUID [GUIDLength]byte

// NewActivityID returns a random version-4 GUID.
func NewActivityID() GUID {
	var g GUID
	if _, err := io.ReadFull(rand.Reader, g[:]); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	g[6] = (g[6] & 0x0f) | 0x40
	g[8] = (g[8] & 0x3f) | 0x80
	return g
}

func (g GUID) IsZero() bool { return g == GUID{} }

// AppendWire encodes g in the mixed-endian wire layout.
func (g GUID) AppendWire(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, binary.BigEndian.Uint32(g[0:4]))
	b = binary.LittleEndian.AppendUint16(b, binary.BigEndian.Uint16(g[4:6]))
	b = binary.LittleEndian.AppendUint16(b, binary.BigEndian.Uint16(g[6:8]))
	return append(b, g[8:16]...)
}

// GUIDFromWire decodes the mixed-endian wire layout. b must hold at
// least GUIDLength bytes.
func GUIDFromWire(b []byte) GUID {
	_ = b[15]
	var g GUID
	binary.BigEndian.PutUint32(g[0:4], binary.LittleEndian.Uint32(b[0:4]))
	binary.BigEndian.PutUint16(g[4:6], binary.LittleEndian.Uint16(b[4:6]))
	binary.BigEndian.PutUint16(g[6:8], binary.LittleEndian.Uint16(b[6:8]))
	copy(g[8:16], b[8:16])
	return g
}

func (g GUID) String() string {
	var buf [36]byte
	hex.Encode(buf[0:8], g[0:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], g[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], g[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], g[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:36], g[10:16])
	return string(buf[:])
}
