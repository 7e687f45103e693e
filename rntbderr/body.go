package rntbderr

import (
	"github.com/mailru/easyjson/jlexer"
)

// ParseBody reads the server error body, a flat JSON object whose
// "code" and "message" members are the only ones the client consumes.
// Unknown members are skipped so server-side additions never break the
// parse. A nil or empty payload yields a zero Body.
func ParseBody(payload []byte) (Body, error) {
	var body Body
	if len(payload) == 0 {
		return body, nil
	}

	in := jlexer.Lexer{Data: payload}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeString()
		in.WantColon()
		switch key {
		case "code", "Code":
			body.Code = in.String()
		case "message", "Message":
			body.Message = in.String()
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	in.Consumed()

	return body, in.Error()
}
