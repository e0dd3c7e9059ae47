package eventstore

// Well-known metadata keys used in the graveyard wire protocol.
// These appear as schema metadata on Arrow IPC streams.
const (
	MetaMethod         = "graveyard.method"
	MetaRequestVersion = "graveyard.request_version"
	MetaRequestID      = "graveyard.request_id"
	MetaErrorType      = "graveyard.error_type"
	MetaErrorMessage   = "graveyard.error_message"
	MetaServerID       = "graveyard.server_id"

	ProtocolVersion = "1"
)

// RPC method names.
const (
	MethodAppendEvent  = "AppendEvent"
	MethodGetEvents    = "GetEvents"
	MethodUpsertSchema = "UpsertSchema"
	MethodGetSchema    = "GetSchema"
)

// HTTP transport constants.
const (
	ArrowContentType = "application/vnd.apache.arrow.stream"
	PathPrefix       = "/graveyard"

	// ErrorTrailer and ErrorTypeTrailer report a failure that happened after
	// a streaming response was already under way.
	ErrorTrailer     = "Graveyard-Error"
	ErrorTypeTrailer = "Graveyard-Error-Type"
)
