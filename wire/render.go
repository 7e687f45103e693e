package wire

import (
	"encoding/hex"
	"fmt"

	"github.com/mailru/easyjson/jwriter"
)

// MarshalJSONTo renders the present tokens as a JSON array for logs and
// the dump tool. Absent tokens are omitted.
func (s *TokenStream) MarshalJSONTo(w *jwriter.Writer) {
	w.RawByte('[')
	first := true
	s.Each(func(t *Token) {
		if !first {
			w.RawByte(',')
		}
		first = false
		t.marshalJSONTo(w)
	})
	w.RawByte(']')
}

func (s *TokenStream) DebugString() string {
	w := &jwriter.Writer{}
	s.MarshalJSONTo(w)
	b, err := w.BuildBytes()
	if err != nil {
		return fmt.Sprintf("<render error: %v>", err)
	}
	return string(b)
}

func (t *Token) marshalJSONTo(w *jwriter.Writer) {
	w.RawString(`{"id":`)
	w.Uint16(t.ID())
	w.RawString(`,"name":`)
	w.String(t.Name())
	w.RawString(`,"type":`)
	w.String(t.Type().String())
	w.RawString(`,"value":`)

	v, err := t.Value()
	if err != nil {
		w.String(fmt.Sprintf("<%v>", err))
		w.RawByte('}')
		return
	}
	switch v := v.(type) {
	case byte:
		w.Uint8(v)
	case uint16:
		w.Uint16(v)
	case uint32:
		w.Uint32(v)
	case int32:
		w.Int32(v)
	case uint64:
		w.Uint64(v)
	case int64:
		w.Int64(v)
	case float32:
		w.Float32(v)
	case float64:
		w.Float64(v)
	case GUID:
		w.String(v.String())
	case string:
		w.String(v)
	case []byte:
		w.String(hex.EncodeToString(v))
	default:
		w.String(fmt.Sprintf("%v", v))
	}
	w.RawByte('}')
}
