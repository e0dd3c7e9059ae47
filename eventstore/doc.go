// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package eventstore is a client for the graveyard event store.
//
//	client, err := eventstore.NewClient(eventstore.DefaultConfig())
//	if err != nil { ... }
//	defer client.Close()
//
//	ok, err := client.AppendEvent(ctx, "user-42", []eventstore.Event{
//		eventstore.NewEvent("UserCreated", payload),
//	}, eventstore.AnyVersion)
//
// # Wire protocol
//
// Every call is an HTTP POST to /graveyard/{method} whose body is an Arrow
// IPC stream. The request schema metadata carries the method name, the
// protocol version and a ULID request ID; its single row carries the
// parameters. Nested values such as event batches and schemas travel as
// binary columns holding an embedded IPC stream.
//
// Unary responses are an IPC stream with one result row. Failures are an
// IPC stream whose schema metadata carries graveyard.error_type and
// graveyard.error_message. GetEvents responds with a stream of event
// batches; a failure after the stream started is reported in the
// Graveyard-Error trailer, and the client then discards everything it
// received.
//
// Bodies may be zstd-compressed (Content-Encoding: zstd).
//
// # Errors
//
// Remote failures are *RpcError. A unary call that completes without a
// result row fails with ErrEmptyResponse. Deadline and transport errors are
// returned wrapped with the method name, so errors.Is(err,
// context.DeadlineExceeded) works.
package eventstore
