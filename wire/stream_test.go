package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequestStream(t *testing.T) *TokenStream {
	t.Helper()
	s := NewRequestTokenStream()
	require.NoError(t, s.Token(ReqPayloadPresent).SetValue(byte(0)))
	require.NoError(t, s.Token(ReqReplicaPath).SetValue("/db/col/part-1/replica-2"))
	return s
}

func TestStreamRoundTrip(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	s := validRequestStream(t)
	require.NoError(t, s.Token(ReqDatabaseName).SetValue("orders"))
	require.NoError(t, s.Token(ReqPageSize).SetValue(uint32(100)))
	require.NoError(t, s.Token(ReqResourceID).SetValue([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	require.NoError(t, s.Token(ReqConsistencyLevel).SetValue(byte(2)))

	b, err := s.Append(nil)
	require.NoError(t, err)
	a.Equal(s.ComputeLength(), len(b))

	decoded := NewRequestTokenStream()
	require.NoError(t, decoded.Decode(b))
	a.Equal(s.ComputeCount(), decoded.ComputeCount())

	for _, i := range []int{ReqPayloadPresent, ReqReplicaPath, ReqDatabaseName, ReqPageSize, ReqResourceID, ReqConsistencyLevel} {
		want, err := s.Token(i).Value()
		require.NoError(t, err)
		got, err := decoded.Token(i).Value()
		require.NoError(t, err)
		a.Equal(want, got, s.Token(i).Name())
	}

	// re-encoding a decoded stream reproduces the bytes
	b2, err := decoded.Append(nil)
	require.NoError(t, err)
	a.Equal(b, b2)
}

func TestStreamRequiredHeaderMissing(t *testing.T) {
	t.Parallel()

	// PayloadPresent alone; ReplicaPath is required and absent.
	b := []byte{0x02, 0x00, 0x00, 0x01}
	err := NewRequestTokenStream().Decode(b)
	require.ErrorIs(t, err, ErrRequiredToken)
}

func TestStreamUnknownHeaderPreserved(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	s := validRequestStream(t)
	b, err := s.Append(nil)
	require.NoError(t, err)

	// unknown id 0xFFFE, type ULong, value 0x12345678
	b = append(b, 0xFE, 0xFF, 0x02, 0x78, 0x56, 0x34, 0x12)

	decoded := NewRequestTokenStream()
	require.NoError(t, decoded.Decode(b), "unknown ids must not fail the decode")

	undefined := decoded.Undefined()
	require.Len(t, undefined, 1)
	a.Equal(uint16(0xFFFE), undefined[0].ID())
	a.Equal("Undefined", undefined[0].Name())
	a.False(undefined[0].Required())
	v, err := undefined[0].Value()
	require.NoError(t, err)
	a.Equal(uint32(0x12345678), v)

	// re-encoding drops the unknown token; known ones survive
	b2, err := decoded.Append(nil)
	require.NoError(t, err)
	a.NotContains(string(b2), string([]byte{0xFE, 0xFF}))

	rt := NewRequestTokenStream()
	require.NoError(t, rt.Decode(b2))
	path, err := rt.Token(ReqReplicaPath).Text()
	require.NoError(t, err)
	a.Equal("/db/col/part-1/replica-2", path)
}

func TestStreamTypeMismatchBecomesUndefined(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	s := validRequestStream(t)
	b, err := s.Append(nil)
	require.NoError(t, err)

	// PageSize (id 0x0004) declared ULong arrives as Byte
	b = append(b, 0x04, 0x00, 0x00, 0x2A)

	decoded := NewRequestTokenStream()
	require.NoError(t, decoded.Decode(b))
	a.False(decoded.Token(ReqPageSize).IsPresent())
	require.Len(t, decoded.Undefined(), 1)
	a.Equal(uint16(0x0004), decoded.Undefined()[0].ID())
}

func TestStreamTypeTagOutOfRange(t *testing.T) {
	t.Parallel()

	b := []byte{0x01, 0x00, 0x5A, 0x00}
	err := NewRequestTokenStream().Decode(b)
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of range")
}

func TestStreamTruncatedToken(t *testing.T) {
	t.Parallel()

	// String announces 16 body bytes, only 3 follow
	b := []byte{0x11, 0x00, 0x08, 0x10, 0x00, 'a', 'b', 'c'}
	err := NewRequestTokenStream().Decode(b)
	require.Error(t, err)
}

func TestStreamEachOrder(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	s := validRequestStream(t)
	var names []string
	s.Each(func(tok *Token) { names = append(names, tok.Name()) })
	a.Equal([]string{"PayloadPresent", "ReplicaPath"}, names)
}
