package consts

import "time"

const (
	RecieveBufferSize = 2048

	// ProtocolVersion is the RNTBD protocol version negotiated during the
	// connection context handshake.
	ProtocolVersion uint32 = 0x00000001

	ClientVersion = "cosmodirect-rntbd/0.3.0"
	UserAgent     = "cosmodirect-rntbd"

	DefaultRequestTimeout      = 60 * time.Second
	DefaultPendingRequestLimit = 30

	// MaxFrameSize bounds the declared length of an inbound frame. A frame
	// announcing more is treated as malformed as soon as its length prefix
	// is read, before its body is awaited.
	MaxFrameSize = 64 << 20
)
