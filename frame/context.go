package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/cosmodirect/rntbd/wire"
)

// ContextRequest is the one-shot handshake frame written before any
// other traffic on a new connection.
type ContextRequest struct {
	ActivityID      wire.GUID
	ProtocolVersion uint32
	ClientVersion   string
	UserAgent       string
}

func (r *ContextRequest) Append(b []byte) ([]byte, error) {
	headers := wire.NewTokenStream(wire.ContextRequestHeaders)
	if err := headers.Token(wire.CtxReqProtocolVersion).SetValue(r.ProtocolVersion); err != nil {
		return nil, err
	}
	if err := headers.Token(wire.CtxReqClientVersion).SetValue(r.ClientVersion); err != nil {
		return nil, err
	}
	if err := headers.Token(wire.CtxReqUserAgent).SetValue(r.UserAgent); err != nil {
		return nil, err
	}

	length := requestPrologSize + headers.ComputeLength()
	b = binary.LittleEndian.AppendUint32(b, uint32(length))
	b = appendRequestProlog(b, r.ActivityID, ResourceConnection, OperationConnection, 0)
	return headers.Append(b)
}

// DecodeContextRequest parses a complete context request frame body;
// the server half of the handshake codec.
func DecodeContextRequest(b []byte) (*ContextRequest, error) {
	if len(b) < requestPrologSize {
		return nil, malformed("context request frame of %d bytes", len(b))
	}

	resourceType := binary.LittleEndian.Uint16(b[16:18])
	operationType := binary.LittleEndian.Uint16(b[18:20])
	if resourceType != ResourceConnection || operationType != OperationConnection {
		return nil, malformed("frame %#04x/%#04x is not a context request", resourceType, operationType)
	}

	headers := wire.NewTokenStream(wire.ContextRequestHeaders)
	if err := headers.Decode(b[requestPrologSize:]); err != nil {
		return nil, err
	}

	r := &ContextRequest{ActivityID: wire.GUIDFromWire(b[0:16])}
	var err error
	if r.ProtocolVersion, err = headers.Token(wire.CtxReqProtocolVersion).Uint32(); err != nil {
		return nil, err
	}
	if r.ClientVersion, err = headers.Token(wire.CtxReqClientVersion).Text(); err != nil {
		return nil, err
	}
	if r.UserAgent, err = headers.Token(wire.CtxReqUserAgent).Text(); err != nil {
		return nil, err
	}
	return r, nil
}

// Context is the negotiated connection context, decoded from the first
// inbound frame.
type Context struct {
	Status             uint32
	ActivityID         wire.GUID
	ProtocolVersion    uint32
	ClientVersion      string
	ServerAgent        string
	ServerVersion      string
	IdleTimeoutSeconds uint32
}

// ContextError is a context response whose status reports a failed
// handshake. Headers are not decoded on this path; the status line is
// all the server guarantees.
type ContextError struct {
	Status     uint32
	ActivityID wire.GUID
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("connection context rejected: status %d (activity id %s)", e.Status, e.ActivityID)
}

// DecodeContext parses a complete context response frame body. A non-2xx
// status decodes as a *ContextError.
func DecodeContext(b []byte) (*Context, error) {
	if len(b) < responsePrologSize {
		return nil, malformed("context response frame of %d bytes", len(b))
	}

	status := binary.LittleEndian.Uint32(b)
	activityID := wire.GUIDFromWire(b[4:20])
	if status < 200 || status >= 300 {
		return nil, &ContextError{Status: status, ActivityID: activityID}
	}

	headers := wire.NewTokenStream(wire.ContextResponseHeaders)
	if err := headers.Decode(b[responsePrologSize:]); err != nil {
		return nil, err
	}

	c := &Context{Status: status, ActivityID: activityID}
	var err error
	if c.ProtocolVersion, err = headers.Token(wire.CtxRespProtocolVersion).Uint32(); err != nil {
		return nil, err
	}
	if c.ClientVersion, err = headers.Token(wire.CtxRespClientVersion).Text(); err != nil {
		return nil, err
	}
	if c.ServerAgent, err = headers.Token(wire.CtxRespServerAgent).Text(); err != nil {
		return nil, err
	}
	if c.ServerVersion, err = headers.Token(wire.CtxRespServerVersion).Text(); err != nil {
		return nil, err
	}
	if c.IdleTimeoutSeconds, err = headers.Token(wire.CtxRespIdleTimeoutInSeconds).Uint32(); err != nil {
		return nil, err
	}
	return c, nil
}

// AppendContext encodes a context response frame; the test half of the
// handshake codec.
func AppendContext(b []byte, c *Context) ([]byte, error) {
	headers := wire.NewTokenStream(wire.ContextResponseHeaders)
	if err := headers.Token(wire.CtxRespProtocolVersion).SetValue(c.ProtocolVersion); err != nil {
		return nil, err
	}
	if err := headers.Token(wire.CtxRespClientVersion).SetValue(c.ClientVersion); err != nil {
		return nil, err
	}
	if err := headers.Token(wire.CtxRespServerAgent).SetValue(c.ServerAgent); err != nil {
		return nil, err
	}
	if err := headers.Token(wire.CtxRespServerVersion).SetValue(c.ServerVersion); err != nil {
		return nil, err
	}
	if c.IdleTimeoutSeconds != 0 {
		if err := headers.Token(wire.CtxRespIdleTimeoutInSeconds).SetValue(c.IdleTimeoutSeconds); err != nil {
			return nil, err
		}
	}

	length := responsePrologSize + headers.ComputeLength()
	b = binary.LittleEndian.AppendUint32(b, uint32(length))
	b = binary.LittleEndian.AppendUint32(b, c.Status)
	b = c.ActivityID.AppendWire(b)
	b = binary.LittleEndian.AppendUint64(b, 0)
	return headers.Append(b)
}
