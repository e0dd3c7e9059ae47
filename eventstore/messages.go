package eventstore

// Parameter and result rows of each RPC method. Nested values travel as
// binary columns holding an embedded IPC stream.

// AnyVersion disables the optimistic-concurrency check of AppendEvent.
const AnyVersion int64 = -1

// AppendEventParams is the request row of AppendEvent. Events holds an encoded event batch.
type AppendEventParams struct {
	StreamID        string `rpc:"stream_id"`
	Events          []byte `rpc:"events"`
	ExpectedVersion int64  `rpc:"expected_version"`
}

// AppendEventResult is the result row of AppendEvent.
type AppendEventResult struct {
	Success bool `rpc:"success"`
}

// GetEventsParams is the request row of GetEvents.
type GetEventsParams struct {
	StreamID string `rpc:"stream_id"`
}

// UpsertSchemaParams is the request row of UpsertSchema. Schema holds a schema.MarshalArrow stream.
type UpsertSchemaParams struct {
	Schema []byte `rpc:"schema"`
}

// UpsertSchemaResponse is the service's reply to UpsertSchema.
type UpsertSchemaResponse struct {
	Success bool   `rpc:"success"`
	Message string `rpc:"message"`
}

// GetSchemaParams is the request row of GetSchema.
type GetSchemaParams struct {
	Name string `rpc:"name"`
}

// GetSchemaResult is the result row of GetSchema. Schema is empty unless Found.
type GetSchemaResult struct {
	Found  bool   `rpc:"found"`
	Schema []byte `rpc:"schema"`
}
