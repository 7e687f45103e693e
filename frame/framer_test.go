package frame

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmodirect/rntbd/consts"
	"github.com/cosmodirect/rntbd/wire"
)

func TestFramerByteAtATime(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	req := NewRequest(wire.NewActivityID(), ResourceDocument, OperationRead, 9)
	require.NoError(t, req.Headers.Token(wire.ReqReplicaPath).SetValue("/db"))
	req.Payload = []byte("xyz")

	b, err := req.Append(nil)
	require.NoError(t, err)

	f := new(Framer)
	var units [][]byte
	for _, c := range b {
		f.Fill([]byte{c})
		for {
			unit, err := f.Next()
			require.NoError(t, err)
			if unit == nil {
				break
			}
			units = append(units, unit)
		}
	}

	require.Len(t, units, 2)
	a.Zero(f.Buffered())

	decoded, err := DecodeRequest(units[0])
	require.NoError(t, err)
	a.Equal(uint64(9), decoded.TransportRequestID)
	a.Equal([]byte("xyz"), units[1])
}

func TestFramerUnitsSurviveLaterFills(t *testing.T) {
	t.Parallel()

	req := NewRequest(wire.NewActivityID(), ResourceDatabase, OperationRead, 1)
	require.NoError(t, req.Headers.Token(wire.ReqReplicaPath).SetValue("/"))
	b1, err := req.Append(nil)
	require.NoError(t, err)

	req2 := NewRequest(wire.NewActivityID(), ResourceDatabase, OperationRead, 2)
	require.NoError(t, req2.Headers.Token(wire.ReqReplicaPath).SetValue("/other"))
	b2, err := req2.Append(nil)
	require.NoError(t, err)

	f := new(Framer)
	f.Fill(b1)
	unit1, err := f.Next()
	require.NoError(t, err)
	require.NotNil(t, unit1)

	snapshot := make([]byte, len(unit1))
	copy(snapshot, unit1)

	f.Fill(b2)
	_, err = f.Next()
	require.NoError(t, err)

	require.Equal(t, snapshot, unit1, "a returned unit must not alias the fill buffer")
}

func TestFramerEmptyUnit(t *testing.T) {
	t.Parallel()

	f := new(Framer)
	f.Fill(binary.LittleEndian.AppendUint32(nil, 0))

	unit, err := f.Next()
	require.NoError(t, err)
	require.NotNil(t, unit, "a zero-length unit is complete, not pending")
	require.Empty(t, unit)
}

func TestFramerOversizedFrame(t *testing.T) {
	t.Parallel()

	f := new(Framer)
	f.Fill(binary.LittleEndian.AppendUint32(nil, consts.MaxFrameSize+1))

	_, err := f.Next()
	require.ErrorIs(t, err, ErrMalformedFrame)
}

func TestFramerNeedMore(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	f := new(Framer)
	unit, err := f.Next()
	require.NoError(t, err)
	a.Nil(unit)

	f.Fill([]byte{0x08, 0x00, 0x00})
	unit, err = f.Next()
	require.NoError(t, err)
	a.Nil(unit, "length prefix itself is incomplete")

	f.Fill([]byte{0x00, 0x01, 0x02, 0x03})
	unit, err = f.Next()
	require.NoError(t, err)
	a.Nil(unit, "body is incomplete")
	a.Equal(7, f.Buffered())

	f.Fill([]byte{0x04, 0x05, 0x06, 0x07, 0x08})
	unit, err = f.Next()
	require.NoError(t, err)
	a.Equal([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, unit)
}
