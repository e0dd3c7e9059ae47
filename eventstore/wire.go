// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package eventstore

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
)

// Request represents a parsed RPC request from the wire.
type Request struct {
	Method    string
	Version   string
	RequestID string
	Record    arrow.Record
	Metadata  map[string]string
}

// Release releases the request record.
func (r *Request) Release() {
	if r.Record != nil {
		r.Record.Release()
		r.Record = nil
	}
}

// WriteRequest writes a one-row IPC stream carrying params for method.
func WriteRequest[P any](w io.Writer, method, requestID string, params P) error {
	md := arrow.NewMetadata(
		[]string{MetaMethod, MetaRequestVersion, MetaRequestID},
		[]string{method, ProtocolVersion, requestID},
	)
	rec, err := encodeRows([]P{params}, &md)
	if err != nil {
		return fmt.Errorf("encoding %s params: %w", method, err)
	}
	defer rec.Release()
	return writeStream(w, rec)
}

// ReadRequest reads one complete IPC stream and validates the request
// metadata. The caller must Release the request.
func ReadRequest(r io.Reader) (*Request, error) {
	reader, err := ipc.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading request IPC stream: %w", err)
	}
	defer reader.Release()

	meta := reader.Schema().Metadata()

	method, ok := meta.GetValue(MetaMethod)
	if !ok {
		return nil, &RpcError{
			Type:    "ProtocolError",
			Message: fmt.Sprintf("Missing '%s' in request metadata", MetaMethod),
		}
	}
	version, ok := meta.GetValue(MetaRequestVersion)
	if !ok {
		return nil, &RpcError{
			Type:    "VersionError",
			Message: fmt.Sprintf("Missing '%s' in request metadata", MetaRequestVersion),
		}
	}
	if version != ProtocolVersion {
		return nil, &RpcError{
			Type:    "VersionError",
			Message: fmt.Sprintf("Unsupported request version %q, expected %q", version, ProtocolVersion),
		}
	}
	requestID, _ := meta.GetValue(MetaRequestID)

	if !reader.Next() {
		if err := reader.Err(); err != nil {
			return nil, fmt.Errorf("reading request batch: %w", err)
		}
		return nil, &RpcError{Type: "ProtocolError", Message: "Request stream has no batch", RequestID: requestID}
	}
	rec := reader.Record()
	if rec.NumRows() != 1 {
		return nil, &RpcError{
			Type:      "ProtocolError",
			Message:   fmt.Sprintf("Expected 1 row in request batch, got %d", rec.NumRows()),
			RequestID: requestID,
		}
	}
	rec.Retain()

	metaMap := make(map[string]string, meta.Len())
	for i := range meta.Len() {
		metaMap[meta.Keys()[i]] = meta.Values()[i]
	}

	return &Request{
		Method:    method,
		Version:   version,
		RequestID: requestID,
		Record:    rec,
		Metadata:  metaMap,
	}, nil
}

// DecodeParams decodes the request row into P.
func DecodeParams[P any](req *Request) (P, error) {
	var zero P
	rows, err := decodeRows[P](req.Record)
	if err != nil {
		return zero, &RpcError{
			Type:      "TypeError",
			Message:   fmt.Sprintf("parameter deserialization: %v", err),
			RequestID: req.RequestID,
		}
	}
	return rows[0], nil
}

// WriteUnaryResponse writes an IPC stream with a single result row.
func WriteUnaryResponse[R any](w io.Writer, result R, requestID string) error {
	md := arrow.NewMetadata([]string{MetaRequestID}, []string{requestID})
	rec, err := encodeRows([]R{result}, &md)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	defer rec.Release()
	return writeStream(w, rec)
}

// WriteEmptyResponse writes a well-formed result stream for R with no rows.
func WriteEmptyResponse[R any](w io.Writer, requestID string) error {
	md := arrow.NewMetadata([]string{MetaRequestID}, []string{requestID})
	rec, err := encodeRows([]R(nil), &md)
	if err != nil {
		return err
	}
	defer rec.Release()
	return writeStream(w, rec)
}

// WriteErrorResponse writes an IPC stream whose schema metadata carries err.
func WriteErrorResponse(w io.Writer, err error, serverID, requestID string) error {
	keys := []string{MetaErrorType, MetaErrorMessage}
	vals := []string{errorType(err), errorMessage(err)}
	if serverID != "" {
		keys = append(keys, MetaServerID)
		vals = append(vals, serverID)
	}
	if requestID != "" {
		keys = append(keys, MetaRequestID)
		vals = append(vals, requestID)
	}
	md := arrow.NewMetadata(keys, vals)
	sc := arrow.NewSchema(nil, &md)
	rec := array.NewRecord(sc, nil, 0)
	defer rec.Release()
	return writeStream(w, rec)
}

// ReadUnaryResponse reads a unary result stream into R. A stream carrying
// error metadata yields an *RpcError; a stream without a result row yields
// ErrEmptyResponse.
func ReadUnaryResponse[R any](r io.Reader) (R, error) {
	var zero R
	reader, err := ipc.NewReader(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return zero, ErrEmptyResponse
		}
		return zero, fmt.Errorf("reading response IPC stream: %w", err)
	}
	defer reader.Release()

	if err := errorFromSchema(reader.Schema()); err != nil {
		return zero, err
	}
	for reader.Next() {
		rec := reader.Record()
		if rec.NumRows() == 0 {
			continue
		}
		rows, err := decodeRows[R](rec)
		if err != nil {
			return zero, fmt.Errorf("decoding response: %w", err)
		}
		return rows[0], nil
	}
	if err := reader.Err(); err != nil {
		return zero, fmt.Errorf("reading response batch: %w", err)
	}
	return zero, ErrEmptyResponse
}

// errorFromSchema returns the *RpcError carried in schema metadata, if any.
func errorFromSchema(sc *arrow.Schema) error {
	md := sc.Metadata()
	errType, ok := md.GetValue(MetaErrorType)
	if !ok {
		return nil
	}
	msg, _ := md.GetValue(MetaErrorMessage)
	requestID, _ := md.GetValue(MetaRequestID)
	return &RpcError{Type: errType, Message: msg, RequestID: requestID}
}

func writeStream(w io.Writer, rec arrow.Record) error {
	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("writing IPC batch: %w", err)
	}
	return writer.Close()
}
