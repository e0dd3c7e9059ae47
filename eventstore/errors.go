// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package eventstore

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse is returned when a unary call completes without a
	// result row. It is distinct from a transport error and from a false
	// success flag.
	ErrEmptyResponse = errors.New("eventstore: empty response")

	// ErrClientClosed is returned by calls made after Close.
	ErrClientClosed = errors.New("eventstore: client closed")
)

// ErrRpc is a sentinel for use with errors.Is to check whether any error in a
// chain is an *RpcError.
var ErrRpc = &RpcError{}

// RpcError is an error reported by the remote service.
type RpcError struct {
	Type      string // e.g. "ProtocolError", "ValidationError"
	Message   string
	RequestID string
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Is supports errors.Is by matching any *RpcError target.
func (e *RpcError) Is(target error) bool {
	_, ok := target.(*RpcError)
	return ok
}

// errorType names err for the wire: the RpcError type if there is one,
// otherwise the Go type.
func errorType(err error) string {
	var rpcErr *RpcError
	if errors.As(err, &rpcErr) && rpcErr.Type != "" {
		return rpcErr.Type
	}
	return fmt.Sprintf("%T", err)
}

// errorMessage is the message half of errorType.
func errorMessage(err error) string {
	var rpcErr *RpcError
	if errors.As(err, &rpcErr) {
		return rpcErr.Message
	}
	return err.Error()
}
