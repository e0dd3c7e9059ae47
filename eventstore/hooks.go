// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package eventstore

import (
	"context"
	"net/http"
)

// Method type string constants for CallInfo.MethodType.
const (
	CallMethodUnary  = "unary"
	CallMethodStream = "stream"
)

// CallHook provides observability callpoints around client calls.
// Implementations must be safe for concurrent use.
type CallHook interface {
	OnCallStart(ctx context.Context, info CallInfo) (context.Context, HookToken)
	OnCallEnd(ctx context.Context, token HookToken, info CallInfo, stats *CallStatistics, err error)
}

// HookToken is an opaque value returned by OnCallStart and passed back to
// OnCallEnd. Only meaningful to the CallHook that created it.
type HookToken interface{}

// CallInfo carries call metadata passed to hooks.
type CallInfo struct {
	Method     string // RPC method name
	MethodType string // CallMethodUnary or CallMethodStream
	Target     string // host:port
	RequestID  string // client-generated request identifier
	// Header holds the outgoing HTTP headers. Hooks may add to it in
	// OnCallStart, e.g. to propagate trace context.
	Header http.Header
}

// CallStatistics holds per-call I/O counters.
type CallStatistics struct {
	RequestBatches  int64
	ResponseBatches int64
	RequestRows     int64
	ResponseRows    int64
	RequestBytes    int64
	ResponseBytes   int64
}

// RecordRequest records one request batch with the given row count and size.
func (s *CallStatistics) RecordRequest(numRows, numBytes int64) {
	s.RequestBatches++
	s.RequestRows += numRows
	s.RequestBytes += numBytes
}

// RecordResponse records response batches with the given row count and size.
func (s *CallStatistics) RecordResponse(numBatches, numRows, numBytes int64) {
	s.ResponseBatches += numBatches
	s.ResponseRows += numRows
	s.ResponseBytes += numBytes
}
