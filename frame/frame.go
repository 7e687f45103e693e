// Package frame implements the outer RNTBD envelope: length-prefixed
// frames carrying a fixed prolog, a header token stream and an optional
// payload blob.
package frame

import (
	"errors"
	"fmt"
)

// Resource types addressed by the transport core. The full catalog
// belongs to the resource-management layer above.
const (
	ResourceConnection      uint16 = 0x0000
	ResourceDatabase        uint16 = 0x0001
	ResourceCollection      uint16 = 0x0002
	ResourceDocument        uint16 = 0x0003
	ResourceAttachment      uint16 = 0x0004
	ResourceUser            uint16 = 0x0005
	ResourcePermission      uint16 = 0x0006
	ResourceStoredProcedure uint16 = 0x0007
	ResourceTrigger         uint16 = 0x0008
	ResourceUDF             uint16 = 0x0009
)

// Operation types addressed by the transport core.
const (
	OperationConnection uint16 = 0x0000
	OperationCreate     uint16 = 0x0001
	OperationPatch      uint16 = 0x0002
	OperationRead       uint16 = 0x0003
	OperationReadFeed   uint16 = 0x0004
	OperationDelete     uint16 = 0x0005
	OperationReplace    uint16 = 0x0006
	OperationQuery      uint16 = 0x0008
	OperationUpsert     uint16 = 0x0009
)

const (
	// lengthPrefixSize is the u32 carrying the remaining frame length.
	lengthPrefixSize = 4

	// requestPrologSize covers activity id, resource type, operation type
	// and transport request id; it excludes the length prefix.
	requestPrologSize = 16 + 2 + 2 + 8

	// responsePrologSize covers status, activity id and transport request
	// id; it excludes the length prefix.
	responsePrologSize = 4 + 16 + 8
)

var ErrMalformedFrame = errors.New("malformed frame")

func malformed(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrMalformedFrame)...)
}
