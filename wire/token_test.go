package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteTokenRoundTrip(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	cat := newCatalog("test", []HeaderDef{{0x0001, "Probe", TypeByte, false}})
	s := NewTokenStream(cat)
	require.NoError(t, s.Token(0).SetValue(byte(0x7F)))

	b, err := s.Append(nil)
	require.NoError(t, err)
	a.Equal([]byte{0x01, 0x00, 0x00, 0x7F}, b)

	decoded := NewTokenStream(cat)
	require.NoError(t, decoded.Decode(b))
	v, err := decoded.Token(0).Value()
	require.NoError(t, err)
	a.Equal(byte(0x7F), v)
}

func TestTokenSetGet(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	tok := newToken(HeaderDef{0x0005, "SessionToken", TypeString, false})
	a.False(tok.IsPresent())

	require.NoError(t, tok.SetValue("a:1#42"))
	a.True(tok.IsPresent())
	v, err := tok.Value()
	require.NoError(t, err)
	a.Equal("a:1#42", v)

	// get after set stays stable across repeated reads
	v2, err := tok.Value()
	require.NoError(t, err)
	a.Equal(v, v2)
}

func TestTokenLazyDecode(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	tok := newToken(HeaderDef{0x0002, "SubStatus", TypeULong, false})
	tok.setRaw([]byte{0x78, 0x56, 0x34, 0x12})

	v, err := tok.Value()
	require.NoError(t, err)
	a.Equal(uint32(0x12345678), v)

	// the first read parses; later reads hit the cached value
	v2, err := tok.Value()
	require.NoError(t, err)
	a.Equal(v, v2)
}

func TestTokenAbsentReportsDefault(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	for _, tc := range []struct {
		ty   TokenType
		want any
	}{
		{TypeByte, byte(0)},
		{TypeULong, uint32(0)},
		{TypeLongLong, int64(0)},
		{TypeDouble, float64(0)},
		{TypeGUID, GUID{}},
		{TypeString, ""},
		{TypeBytes, []byte(nil)},
	} {
		tok := newToken(HeaderDef{0x0001, "X", tc.ty, false})
		v, err := tok.Value()
		require.NoError(t, err)
		a.Equal(tc.want, v, tc.ty.String())
	}
}

func TestTokenSetValueValidates(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	tok := newToken(HeaderDef{0x0004, "PageSize", TypeULong, false})
	a.Error(tok.SetValue("not a number"))
	a.Error(tok.SetValue(nil))
	a.Error(tok.SetValue(int64(1)))
	a.NoError(tok.SetValue(uint32(1)))

	small := newToken(HeaderDef{0x0003, "Date", TypeSmallString, false})
	a.Error(small.SetValue(string(make([]byte, 256))))
	a.NoError(small.SetValue(string(make([]byte, 255))))
}

func TestTokenComputeLength(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	tok := newToken(HeaderDef{0x0011, "ReplicaPath", TypeString, true})
	a.Zero(tok.ComputeLength())

	require.NoError(t, tok.SetValue("/db/col"))
	// 3-byte record prefix + u16 length prefix + 7 body bytes
	a.Equal(3+2+7, tok.ComputeLength())

	require.NoError(t, tok.SetValue("/x"))
	a.Equal(3+2+2, tok.ComputeLength(), "cached length must drop on set")
}

func TestRequiredTokenEncode(t *testing.T) {
	t.Parallel()

	tok := newToken(HeaderDef{0x0011, "ReplicaPath", TypeString, true})
	_, err := tok.Append(nil)
	require.ErrorIs(t, err, ErrRequiredToken)
}
