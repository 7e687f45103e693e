package frame

import (
	"encoding/binary"

	"github.com/cosmodirect/rntbd/wire"
)

// Response is one decoded inbound response frame. Payload is attached
// by the caller once the follow-up blob arrives (see Framer).
type Response struct {
	Status             uint32
	ActivityID         wire.GUID
	TransportRequestID uint64
	Headers            *wire.TokenStream
	Payload            []byte
}

// DecodeResponse parses a complete frame body, the length prefix
// already stripped. Header tokens alias b; b must stay untouched for
// the life of the response.
func DecodeResponse(b []byte) (*Response, error) {
	if len(b) < responsePrologSize {
		return nil, malformed("response frame of %d bytes", len(b))
	}

	r := &Response{
		Status:             binary.LittleEndian.Uint32(b),
		ActivityID:         wire.GUIDFromWire(b[4:20]),
		TransportRequestID: binary.LittleEndian.Uint64(b[20:28]),
		Headers:            wire.NewResponseTokenStream(),
	}
	if err := r.Headers.Decode(b[responsePrologSize:]); err != nil {
		return nil, err
	}
	return r, nil
}

// HasPayload reports whether the frame announced a follow-up payload
// blob.
func (r *Response) HasPayload() (bool, error) {
	v, err := r.Headers.Token(wire.RespPayloadPresent).Byte()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// SubStatus returns the sub-status header, zero when absent.
func (r *Response) SubStatus() (uint32, error) {
	return r.Headers.Token(wire.RespSubStatus).Uint32()
}

// LSN returns the LSN header, zero when absent.
func (r *Response) LSN() (int64, error) {
	return r.Headers.Token(wire.RespLSN).Int64()
}

// PartitionKeyRangeID returns the partition key range id header, empty
// when absent.
func (r *Response) PartitionKeyRangeID() (string, error) {
	return r.Headers.Token(wire.RespPartitionKeyRangeID).Text()
}

// AppendResponse encodes a response frame. The transport core never
// sends responses; this is the test half of the codec and the seam a
// fake server hangs off.
func AppendResponse(b []byte, r *Response) ([]byte, error) {
	payloadPresent := byte(0)
	if len(r.Payload) > 0 {
		payloadPresent = 1
	}
	err := r.Headers.Token(wire.RespPayloadPresent).SetValue(payloadPresent)
	if err != nil {
		return nil, err
	}

	length := responsePrologSize + r.Headers.ComputeLength()
	b = binary.LittleEndian.AppendUint32(b, uint32(length))
	b = binary.LittleEndian.AppendUint32(b, r.Status)
	b = r.ActivityID.AppendWire(b)
	b = binary.LittleEndian.AppendUint64(b, r.TransportRequestID)
	b, err = r.Headers.Append(b)
	if err != nil {
		return nil, err
	}

	if payloadPresent == 1 {
		b = binary.LittleEndian.AppendUint32(b, uint32(len(r.Payload)))
		b = append(b, r.Payload...)
	}
	return b, nil
}
