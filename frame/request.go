package frame

import (
	"encoding/binary"

	"github.com/cosmodirect/rntbd/wire"
)

// Request is one outbound request frame. The frame length prefix covers
// the prolog and the header region; a payload, when present, follows
// the frame as its own u32-length-prefixed blob, announced by the
// PayloadPresent header token.
type Request struct {
	ActivityID         wire.GUID
	ResourceType       uint16
	OperationType      uint16
	TransportRequestID uint64
	Headers            *wire.TokenStream
	Payload            []byte
}

func NewRequest(activityID wire.GUID, resourceType, operationType uint16, transportRequestID uint64) *Request {
	return &Request{
		ActivityID:         activityID,
		ResourceType:       resourceType,
		OperationType:      operationType,
		TransportRequestID: transportRequestID,
		Headers:            wire.NewRequestTokenStream(),
	}
}

// Append encodes the request onto b. The PayloadPresent header is set
// here so it always matches the actual payload.
func (r *Request) Append(b []byte) ([]byte, error) {
	payloadPresent := byte(0)
	if len(r.Payload) > 0 {
		payloadPresent = 1
	}
	err := r.Headers.Token(wire.ReqPayloadPresent).SetValue(payloadPresent)
	if err != nil {
		return nil, err
	}

	length := requestPrologSize + r.Headers.ComputeLength()
	b = binary.LittleEndian.AppendUint32(b, uint32(length))
	b = appendRequestProlog(b, r.ActivityID, r.ResourceType, r.OperationType, r.TransportRequestID)
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

// DecodeRequest parses a complete request frame body, the length prefix
// already stripped. The payload blob, when announced, is a separate
// unit; the caller attaches it.
func DecodeRequest(b []byte) (*Request, error) {
	if len(b) < requestPrologSize {
		return nil, malformed("request frame of %d bytes", len(b))
	}

	r := &Request{
		ActivityID:         wire.GUIDFromWire(b[0:16]),
		ResourceType:       binary.LittleEndian.Uint16(b[16:18]),
		OperationType:      binary.LittleEndian.Uint16(b[18:20]),
		TransportRequestID: binary.LittleEndian.Uint64(b[20:28]),
		Headers:            wire.NewRequestTokenStream(),
	}
	if err := r.Headers.Decode(b[requestPrologSize:]); err != nil {
		return nil, err
	}
	return r, nil
}

// HasPayload reports whether the frame announced a follow-up payload
// blob.
func (r *Request) HasPayload() (bool, error) {
	v, err := r.Headers.Token(wire.ReqPayloadPresent).Byte()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func appendRequestProlog(b []byte, activityID wire.GUID, resourceType, operationType uint16, transportRequestID uint64) []byte {
	b = activityID.AppendWire(b)
	b = binary.LittleEndian.AppendUint16(b, resourceType)
	b = binary.LittleEndian.AppendUint16(b, operationType)
	return binary.LittleEndian.AppendUint64(b, transportRequestID)
}
