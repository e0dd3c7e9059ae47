// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package reference implements an in-memory event store that speaks the
// graveyard wire protocol. It exists to exercise the client end to end and
// is not a storage engine: nothing is persisted.
package reference

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/Query-farm/graveyard-go/eventstore"
	"github.com/Query-farm/graveyard-go/schema"
	"github.com/google/uuid"
)

const defaultBatchSize = 64

// Faults makes the server misbehave in controlled ways.
type Faults struct {
	// FailStream makes GetEvents report an error after FailStreamAfter
	// events have been sent.
	FailStream      bool
	FailStreamAfter int
	// EmptyResponses makes unary methods complete without a result row.
	EmptyResponses bool
}

// Server serves the graveyard protocol over HTTP from a Store.
type Server struct {
	store     *Store
	logger    *slog.Logger
	serverID  string
	batchSize int
	validate  bool
	mux       *http.ServeMux

	faultsMu sync.RWMutex
	faults   Faults
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithStore serves an existing store.
func WithStore(st *Store) Option {
	return func(s *Server) { s.store = st }
}

// WithBatchSize sets the number of events per GetEvents batch.
func WithBatchSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithPayloadValidation rejects appended events whose payload does not
// satisfy the schema registered under their event type.
func WithPayloadValidation(enabled bool) Option {
	return func(s *Server) { s.validate = enabled }
}

// NewServer creates a server with an empty store unless WithStore is given.
func NewServer(opts ...Option) *Server {
	s := &Server{
		logger:    slog.Default(),
		serverID:  uuid.NewString(),
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewStore()
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc(fmt.Sprintf("POST %s/{method}", eventstore.PathPrefix), s.handle)
	return s
}

// Store returns the backing store.
func (s *Server) Store() *Store { return s.store }

// ServerID returns the identifier reported in error responses.
func (s *Server) ServerID() string { return s.serverID }

// SetFaults replaces the active fault injection settings.
func (s *Server) SetFaults(f Faults) {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	s.faults = f
}

func (s *Server) currentFaults() Faults {
	s.faultsMu.RLock()
	defer s.faultsMu.RUnlock()
	return s.faults
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// response is the per-request output state.
type response struct {
	w         http.ResponseWriter
	zstd      bool
	requestID string
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	method := r.PathValue("method")
	res := &response{w: w, zstd: eventstore.AcceptsZstd(r.Header.Get("Accept-Encoding"))}

	if ct := r.Header.Get("Content-Type"); ct != eventstore.ArrowContentType {
		s.writeHttpError(res, http.StatusUnsupportedMediaType,
			fmt.Errorf("unsupported content type: %s", ct))
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeHttpError(res, http.StatusBadRequest, err)
		return
	}
	body, err := eventstore.DecodeBody(r.Header.Get("Content-Encoding"), raw)
	if err != nil {
		s.writeHttpError(res, http.StatusUnsupportedMediaType, err)
		return
	}

	req, err := eventstore.ReadRequest(bytes.NewReader(body))
	if err != nil {
		s.writeHttpError(res, http.StatusBadRequest, err)
		return
	}
	defer req.Release()
	res.requestID = req.RequestID

	if req.Method != method {
		s.writeHttpError(res, http.StatusBadRequest, &eventstore.RpcError{
			Type:    "ProtocolError",
			Message: fmt.Sprintf("Request names method '%s' but was sent to '%s'", req.Method, method),
		})
		return
	}

	s.logger.Debug("dispatch",
		slog.String("method", method),
		slog.String("request_id", req.RequestID),
		slog.String("traceparent", r.Header.Get("traceparent")))

	switch method {
	case eventstore.MethodAppendEvent:
		s.appendEvent(res, req)
	case eventstore.MethodGetEvents:
		s.getEvents(r, res, req)
	case eventstore.MethodUpsertSchema:
		s.upsertSchema(res, req)
	case eventstore.MethodGetSchema:
		s.getSchema(res, req)
	default:
		s.writeHttpError(res, http.StatusNotFound, &eventstore.RpcError{
			Type:    "AttributeError",
			Message: fmt.Sprintf("Unknown method: '%s'", method),
		})
	}
}

func (s *Server) appendEvent(res *response, req *eventstore.Request) {
	params, err := eventstore.DecodeParams[eventstore.AppendEventParams](req)
	if err != nil {
		s.writeHttpError(res, http.StatusBadRequest, err)
		return
	}
	events, err := eventstore.DecodeEvents(bytes.NewReader(params.Events))
	if err != nil {
		s.writeHttpError(res, http.StatusBadRequest, &eventstore.RpcError{
			Type:    "TypeError",
			Message: fmt.Sprintf("events: %v", err),
		})
		return
	}
	if s.validate {
		if err := s.validatePayloads(events); err != nil {
			s.writeHttpError(res, http.StatusBadRequest, err)
			return
		}
	}

	ok := s.store.Append(params.StreamID, events, params.ExpectedVersion)
	s.logger.Debug("append",
		slog.String("stream_id", params.StreamID),
		slog.Int("events", len(events)),
		slog.Int64("expected_version", params.ExpectedVersion),
		slog.Bool("success", ok))
	writeUnary(s, res, eventstore.AppendEventResult{Success: ok})
}

func (s *Server) validatePayloads(events []eventstore.Event) error {
	var errs []error
	for _, e := range events {
		sc, ok := s.store.Schema(e.EventType)
		if !ok {
			continue
		}
		for _, v := range sc.Validate(e.Payload) {
			errs = append(errs, fmt.Errorf("event %s: %w", e.ID, v))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &eventstore.RpcError{Type: "ValidationError", Message: errors.Join(errs...).Error()}
}

func (s *Server) getEvents(r *http.Request, res *response, req *eventstore.Request) {
	params, err := eventstore.DecodeParams[eventstore.GetEventsParams](req)
	if err != nil {
		s.writeHttpError(res, http.StatusBadRequest, err)
		return
	}
	events := s.store.Events(params.StreamID)
	faults := s.currentFaults()

	var (
		buf       bytes.Buffer
		streamErr error
	)
	writer := eventstore.NewEventStreamWriter(&buf, req.RequestID)
	limit := len(events)
	if faults.FailStream {
		limit = min(limit, max(faults.FailStreamAfter, 0))
	}
	for start := 0; start < limit; start += s.batchSize {
		if err := r.Context().Err(); err != nil {
			return
		}
		if err := writer.Write(events[start:min(start+s.batchSize, limit)]); err != nil {
			streamErr = err
			break
		}
	}
	if streamErr == nil && faults.FailStream {
		streamErr = &eventstore.RpcError{
			Type:    "StreamError",
			Message: fmt.Sprintf("stream interrupted after %d events", writer.Rows()),
		}
	}
	_ = writer.Close()

	h := res.w.Header()
	h.Set("Trailer", eventstore.ErrorTrailer+", "+eventstore.ErrorTypeTrailer)
	s.writeArrow(res, http.StatusOK, buf.Bytes())
	if streamErr != nil {
		s.logger.Debug("stream failed", slog.String("request_id", req.RequestID), slog.Any("error", streamErr))
		var rpcErr *eventstore.RpcError
		if errors.As(streamErr, &rpcErr) {
			h.Set(eventstore.ErrorTypeTrailer, rpcErr.Type)
			h.Set(eventstore.ErrorTrailer, rpcErr.Message)
		} else {
			h.Set(eventstore.ErrorTypeTrailer, "RuntimeError")
			h.Set(eventstore.ErrorTrailer, streamErr.Error())
		}
	}
}

func (s *Server) upsertSchema(res *response, req *eventstore.Request) {
	params, err := eventstore.DecodeParams[eventstore.UpsertSchemaParams](req)
	if err != nil {
		s.writeHttpError(res, http.StatusBadRequest, err)
		return
	}
	sc, err := schema.UnmarshalArrow(params.Schema)
	if err != nil {
		s.writeHttpError(res, http.StatusBadRequest, &eventstore.RpcError{Type: "TypeError", Message: err.Error()})
		return
	}
	if strings.TrimSpace(sc.Name) == "" {
		s.writeHttpError(res, http.StatusBadRequest, &eventstore.RpcError{Type: "ValueError", Message: "Schema name is required"})
		return
	}
	version := s.store.UpsertSchema(sc)
	s.logger.Debug("schema upserted", slog.String("name", sc.Name), slog.Int64("version", version))
	writeUnary(s, res, eventstore.UpsertSchemaResponse{Success: true, Message: "Schema upserted"})
}

func (s *Server) getSchema(res *response, req *eventstore.Request) {
	params, err := eventstore.DecodeParams[eventstore.GetSchemaParams](req)
	if err != nil {
		s.writeHttpError(res, http.StatusBadRequest, err)
		return
	}
	sc, ok := s.store.Schema(params.Name)
	if !ok {
		writeUnary(s, res, eventstore.GetSchemaResult{Found: false})
		return
	}
	data, err := sc.MarshalArrow()
	if err != nil {
		s.writeHttpError(res, http.StatusInternalServerError, err)
		return
	}
	writeUnary(s, res, eventstore.GetSchemaResult{Found: true, Schema: data})
}

// --- Helpers ---

func writeUnary[R any](s *Server, res *response, result R) {
	var buf bytes.Buffer
	var err error
	if s.currentFaults().EmptyResponses {
		err = eventstore.WriteEmptyResponse[R](&buf, res.requestID)
	} else {
		err = eventstore.WriteUnaryResponse(&buf, result, res.requestID)
	}
	if err != nil {
		s.writeHttpError(res, http.StatusInternalServerError,
			&eventstore.RpcError{Type: "SerializationError", Message: err.Error()})
		return
	}
	s.writeArrow(res, http.StatusOK, buf.Bytes())
}

func (s *Server) writeHttpError(res *response, statusCode int, err error) {
	s.logger.Debug("request failed", slog.Int("status", statusCode), slog.Any("error", err))
	var buf bytes.Buffer
	_ = eventstore.WriteErrorResponse(&buf, err, s.serverID, res.requestID)
	s.writeArrow(res, statusCode, buf.Bytes())
}

func (s *Server) writeArrow(res *response, statusCode int, data []byte) {
	if res.zstd {
		if compressed, err := eventstore.EncodeBody(eventstore.CompressionZstd, data); err == nil {
			res.w.Header().Set("Content-Encoding", eventstore.CompressionZstd)
			data = compressed
		}
	}
	res.w.Header().Set("Content-Type", eventstore.ArrowContentType)
	res.w.WriteHeader(statusCode)
	_, _ = res.w.Write(data)
}
