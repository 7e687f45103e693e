package wire

import "fmt"

// TokenStream is the ordered token collection for one message part. It
// is pre-populated with an absent token per catalog entry; decoding
// mutates those in place. Tokens with ids outside the catalog are
// retained for inspection but are not re-encoded.
type TokenStream struct {
	catalog   *Catalog
	tokens    []Token
	undefined []Token
}

func NewTokenStream(catalog *Catalog) *TokenStream {
	tokens := make([]Token, catalog.Len())
	for i := range tokens {
		tokens[i] = newToken(catalog.Def(i))
	}
	return &TokenStream{catalog: catalog, tokens: tokens}
}

func NewRequestTokenStream() *TokenStream  { return NewTokenStream(RequestHeaders) }
func NewResponseTokenStream() *TokenStream { return NewTokenStream(ResponseHeaders) }

func (s *TokenStream) Catalog() *Catalog { return s.catalog }

// Token addresses a known header by its catalog position constant.
func (s *TokenStream) Token(i int) *Token { return &s.tokens[i] }

// Undefined returns the unknown-header tokens in wire arrival order.
func (s *TokenStream) Undefined() []Token { return s.undefined }

// Each visits every present token, known headers first in catalog
// order, then undefined ones in arrival order.
func (s *TokenStream) Each(fn func(*Token)) {
	for i := range s.tokens {
		if s.tokens[i].IsPresent() {
			fn(&s.tokens[i])
		}
	}
	for i := range s.undefined {
		fn(&s.undefined[i])
	}
}

// Decode consumes b to exhaustion as a sequence of token records, then
// verifies that every required header is present. Unknown header ids
// are retained as undefined tokens so forward-compatible extensions
// never fail the decode.
func (s *TokenStream) Decode(b []byte) error {
	c := newCursor(b)
	for c.remaining() > 0 {
		id, err := c.readUint16()
		if err != nil {
			return fmt.Errorf("reading token id: %w", err)
		}
		tb, err := c.readByte()
		if err != nil {
			return fmt.Errorf("reading token type: %w", err)
		}
		tt, err := tokenTypeFromID(tb)
		if err != nil {
			return err
		}

		raw, err := tt.ReadSlice(c)
		if err != nil {
			return fmt.Errorf("reading %s token %#04x: %w", tt, id, err)
		}

		// A known id whose wire type disagrees with the catalog is kept
		// as an undefined token rather than mis-parsed.
		var token *Token
		if i, ok := s.catalog.Lookup(id); ok && s.catalog.Def(i).Type == tt {
			token = &s.tokens[i]
		} else {
			s.undefined = append(s.undefined, newToken(undefinedHeader(id, tt)))
			token = &s.undefined[len(s.undefined)-1]
		}
		token.setRaw(raw)
	}

	return s.checkRequired()
}

func (s *TokenStream) checkRequired() error {
	for i := range s.tokens {
		t := &s.tokens[i]
		if t.Required() && !t.IsPresent() {
			return fmt.Errorf("%s stream: type=%s, identifier=%#04x: %w",
				s.catalog.Name(), t.Type(), t.ID(), ErrRequiredToken)
		}
	}
	return nil
}

// Append encodes every present known token in catalog order.
func (s *TokenStream) Append(b []byte) ([]byte, error) {
	var err error
	for i := range s.tokens {
		b, err = s.tokens[i].Append(b)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ComputeLength reports the encoded byte count of the stream.
func (s *TokenStream) ComputeLength() int {
	total := 0
	for i := range s.tokens {
		total += s.tokens[i].ComputeLength()
	}
	return total
}

// ComputeCount reports the number of present known tokens.
func (s *TokenStream) ComputeCount() int {
	count := 0
	for i := range s.tokens {
		if s.tokens[i].IsPresent() {
			count++
		}
	}
	return count
}
