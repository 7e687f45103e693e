package wire

import (
	"errors"
	"fmt"
)

var ErrRequiredToken = errors.New("required token not found on token stream")

// Token is a mutable slot bound to one header. After decoding it holds
// the unparsed body slice; the parse is deferred to the first Value
// call. The raw slice keeps the length prefix of variable-size types so
// re-encoding is a straight copy.
type Token struct {
	def    HeaderDef
	raw    []byte
	value  any
	length int
}

const tokenRecordPrefix = 3 // u16 id + u8 type

func newToken(def HeaderDef) Token {
	return Token{def: def, length: -1}
}

func (t *Token) ID() uint16      { return t.def.ID }
func (t *Token) Name() string    { return t.def.Name }
func (t *Token) Type() TokenType { return t.def.Type }
func (t *Token) Required() bool  { return t.def.Required }

func (t *Token) IsPresent() bool { return t.raw != nil || t.value != nil }

// Value returns the decoded value, parsing the raw slice on first use.
// An absent token reports its type's default value.
func (t *Token) Value() (any, error) {
	if t.value != nil {
		return t.value, nil
	}
	if t.raw == nil {
		return t.def.Type.Default(), nil
	}

	v, err := t.def.Type.Decode(t.raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s token %s: %w", t.def.Type, t.def.Name, err)
	}
	t.value = v
	t.raw = nil
	return v, nil
}

// SetValue replaces the token's value. The cached length is dropped.
func (t *Token) SetValue(v any) error {
	if v == nil || !t.def.Type.IsValid(v) {
		return fmt.Errorf("invalid value for %s token %s: %v", t.def.Type, t.def.Name, v)
	}
	t.raw = nil
	t.value = v
	t.length = -1
	return nil
}

func (t *Token) setRaw(raw []byte) {
	t.raw = raw
	t.value = nil
	t.length = -1
}

// ComputeLength reports the token's full on-wire length, zero when the
// token is absent.
func (t *Token) ComputeLength() int {
	if !t.IsPresent() {
		return 0
	}
	if t.raw != nil {
		return tokenRecordPrefix + len(t.raw)
	}
	if t.length < 0 {
		t.length = tokenRecordPrefix + t.def.Type.ValueLength(t.value)
	}
	return t.length
}

// Append encodes the token record onto b. Absent optional tokens emit
// nothing; an absent required token is an error.
func (t *Token) Append(b []byte) ([]byte, error) {
	if !t.IsPresent() {
		if t.def.Required {
			return nil, fmt.Errorf("missing value for required header %s (id=%#04x): %w",
				t.def.Name, t.def.ID, ErrRequiredToken)
		}
		return b, nil
	}

	b = append(b, byte(t.def.ID), byte(t.def.ID>>8), byte(t.def.Type))
	if t.raw != nil {
		return append(b, t.raw...), nil
	}
	return t.def.Type.Append(b, t.value), nil
}

// Typed accessors used by the transport layer. Each returns the type's
// default when the token is absent.

func (t *Token) Byte() (byte, error) {
	v, err := t.Value()
	if err != nil {
		return 0, err
	}
	b, ok := v.(byte)
	if !ok {
		return 0, fmt.Errorf("token %s is %s, not Byte", t.def.Name, t.def.Type)
	}
	return b, nil
}

func (t *Token) Uint32() (uint32, error) {
	v, err := t.Value()
	if err != nil {
		return 0, err
	}
	u, ok := v.(uint32)
	if !ok {
		return 0, fmt.Errorf("token %s is %s, not ULong", t.def.Name, t.def.Type)
	}
	return u, nil
}

func (t *Token) Int64() (int64, error) {
	v, err := t.Value()
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("token %s is %s, not an integer", t.def.Name, t.def.Type)
	}
}

func (t *Token) Text() (string, error) {
	v, err := t.Value()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("token %s is %s, not a string", t.def.Name, t.def.Type)
	}
	return s, nil
}
