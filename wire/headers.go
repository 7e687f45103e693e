package wire

import "fmt"

// HeaderDef describes one entry of a closed header catalog.
type HeaderDef struct {
	ID       uint16
	Name     string
	Type     TokenType
	Required bool
}

// Catalog is a closed enumeration of headers for one message part.
// Positions inside defs are stable and addressed by the exported index
// constants below.
type Catalog struct {
	name string
	defs []HeaderDef
	byID map[uint16]int
}

func newCatalog(name string, defs []HeaderDef) *Catalog {
	byID := make(map[uint16]int, len(defs))
	for i, d := range defs {
		if _, ok := byID[d.ID]; ok {
			panic(fmt.Sprintf("catalog %s: duplicate header id %#04x", name, d.ID))
		}
		byID[d.ID] = i
	}
	return &Catalog{name, defs, byID}
}

func (c *Catalog) Name() string        { return c.name }
func (c *Catalog) Len() int            { return len(c.defs) }
func (c *Catalog) Def(i int) HeaderDef { return c.defs[i] }

// Lookup resolves a wire header id to its catalog position.
func (c *Catalog) Lookup(id uint16) (int, bool) {
	i, ok := c.byID[id]
	return i, ok
}

// Request header catalog positions. Must mirror the defs order in
// RequestHeaders.
const (
	ReqResourceID = iota
	ReqAuthorizationToken
	ReqPayloadPresent
	ReqDate
	ReqPageSize
	ReqSessionToken
	ReqContinuationToken
	ReqIndexingDirective
	ReqMatch
	ReqPreTriggerInclude
	ReqPostTriggerInclude
	ReqIsFanout
	ReqCollectionPartitionIndex
	ReqCollectionServiceIndex
	ReqConsistencyLevel
	ReqEntityID
	ReqResourceSchemaName
	ReqReplicaPath
	ReqResourceTokenExpiry
	ReqDatabaseName
	ReqCollectionName
	ReqDocumentName
	ReqAttachmentName
	ReqUserName
	ReqPermissionName
	ReqStoredProcedureName
	ReqUserDefinedFunctionName
	ReqTriggerName
	ReqEnableScanInQuery
	ReqEmitVerboseTracesInQuery
	ReqPartitionKey
	ReqPartitionKeyRangeID
)

var RequestHeaders = newCatalog("request", []HeaderDef{
	{0x0000, "ResourceId", TypeBytes, false},
	{0x0001, "AuthorizationToken", TypeString, false},
	{0x0002, "PayloadPresent", TypeByte, true},
	{0x0003, "Date", TypeSmallString, false},
	{0x0004, "PageSize", TypeULong, false},
	{0x0005, "SessionToken", TypeString, false},
	{0x0006, "ContinuationToken", TypeString, false},
	{0x0007, "IndexingDirective", TypeByte, false},
	{0x0008, "Match", TypeString, false},
	{0x0009, "PreTriggerInclude", TypeString, false},
	{0x000A, "PostTriggerInclude", TypeString, false},
	{0x000B, "IsFanout", TypeByte, false},
	{0x000C, "CollectionPartitionIndex", TypeULong, false},
	{0x000D, "CollectionServiceIndex", TypeULong, false},
	{0x000E, "ConsistencyLevel", TypeByte, false},
	{0x000F, "EntityId", TypeString, false},
	{0x0010, "ResourceSchemaName", TypeSmallString, false},
	{0x0011, "ReplicaPath", TypeString, true},
	{0x0012, "ResourceTokenExpiry", TypeULong, false},
	{0x0013, "DatabaseName", TypeString, false},
	{0x0014, "CollectionName", TypeString, false},
	{0x0015, "DocumentName", TypeString, false},
	{0x0016, "AttachmentName", TypeString, false},
	{0x0017, "UserName", TypeString, false},
	{0x0018, "PermissionName", TypeString, false},
	{0x0019, "StoredProcedureName", TypeString, false},
	{0x001A, "UserDefinedFunctionName", TypeString, false},
	{0x001B, "TriggerName", TypeString, false},
	{0x001C, "EnableScanInQuery", TypeByte, false},
	{0x001D, "EmitVerboseTracesInQuery", TypeByte, false},
	{0x001E, "PartitionKey", TypeString, false},
	{0x001F, "PartitionKeyRangeId", TypeString, false},
})

// Response header catalog positions.
const (
	RespPayloadPresent = iota
	RespLastStateChangeDateTime
	RespSubStatus
	RespItemCount
	RespSchemaVersion
	RespLSN
	RespOwnerFullName
	RespOwnerID
	RespItemLSN
	RespPartitionKeyRangeID
	RespRequestCharge
	RespSessionToken
	RespContinuationToken
	RespRetryAfterMilliseconds
	RespGlobalCommittedLSN
	RespNumberOfReadRegions
	RespQueryMetrics
	RespCollectionUpdateProgress
)

var ResponseHeaders = newCatalog("response", []HeaderDef{
	{0x0000, "PayloadPresent", TypeByte, true},
	{0x0001, "LastStateChangeDateTime", TypeSmallString, false},
	{0x0002, "SubStatus", TypeULong, false},
	{0x0003, "ItemCount", TypeULong, false},
	{0x0004, "SchemaVersion", TypeSmallString, false},
	{0x0005, "LSN", TypeLongLong, false},
	{0x0006, "OwnerFullName", TypeULongString, false},
	{0x0007, "OwnerId", TypeString, false},
	{0x0008, "ItemLSN", TypeLongLong, false},
	{0x0009, "PartitionKeyRangeId", TypeString, false},
	{0x000A, "RequestCharge", TypeDouble, false},
	{0x000B, "SessionToken", TypeString, false},
	{0x000C, "ContinuationToken", TypeString, false},
	{0x000D, "RetryAfterMilliseconds", TypeULong, false},
	{0x000E, "GlobalCommittedLSN", TypeLongLong, false},
	{0x000F, "NumberOfReadRegions", TypeULong, false},
	{0x0010, "QueryMetrics", TypeULongString, false},
	{0x0011, "CollectionUpdateProgress", TypeULong, false},
})

// Context request header catalog positions.
const (
	CtxReqProtocolVersion = iota
	CtxReqClientVersion
	CtxReqUserAgent
)

var ContextRequestHeaders = newCatalog("context-request", []HeaderDef{
	{0x0000, "ProtocolVersion", TypeULong, true},
	{0x0001, "ClientVersion", TypeSmallString, true},
	{0x0002, "UserAgent", TypeSmallString, true},
})

// Context response header catalog positions.
const (
	CtxRespProtocolVersion = iota
	CtxRespClientVersion
	CtxRespServerAgent
	CtxRespServerVersion
	CtxRespIdleTimeoutInSeconds
	CtxRespUnauthenticatedTimeoutInSeconds
)

var ContextResponseHeaders = newCatalog("context-response", []HeaderDef{
	{0x0000, "ProtocolVersion", TypeULong, false},
	{0x0001, "ClientVersion", TypeSmallString, false},
	{0x0002, "ServerAgent", TypeSmallString, true},
	{0x0003, "ServerVersion", TypeSmallString, true},
	{0x0004, "IdleTimeoutInSeconds", TypeULong, false},
	{0x0005, "UnauthenticatedTimeoutInSeconds", TypeULong, false},
})

func undefinedHeader(id uint16, t TokenType) HeaderDef {
	return HeaderDef{ID: id, Name: "Undefined", Type: t, Required: false}
}
