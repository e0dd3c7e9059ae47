// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package eventstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Query-farm/graveyard-go/schema"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/oklog/ulid/v2"
)

// Client talks to a remote event store. It is safe for concurrent use.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	gen     *schema.Generator
	logger  *slog.Logger
	hook    CallHook
	closed  atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithRegistry derives schemas from reg instead of schema.Default.
func WithRegistry(reg *schema.Registry) Option {
	return func(c *Client) { c.gen = schema.NewGenerator(reg) }
}

// WithLogger sets the logger used for per-call debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the HTTP client. The TLS settings of Config are
// not applied to a caller-supplied client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCallHook installs a hook around every call.
func WithCallHook(h CallHook) Option {
	return func(c *Client) { c.hook = h }
}

// NewClient validates cfg and returns a client for it. No connection is
// made until the first call.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:     cfg,
		baseURL: cfg.BaseURL(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gen == nil {
		c.gen = schema.NewGenerator(nil)
	}
	if c.http == nil {
		t, err := cfg.transport()
		if err != nil {
			return nil, err
		}
		c.http = &http.Client{Transport: t}
	}
	return c, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config { return c.cfg }

// Generator returns the schema generator used by UpsertSchema.
func (c *Client) Generator() *schema.Generator { return c.gen }

// SetCallHook installs a hook. It must be called before the client is used
// concurrently.
func (c *Client) SetCallHook(h CallHook) { c.hook = h }

// AppendEvent appends events to streamID. expectedVersion is the index of
// the last event the caller has seen, or AnyVersion to skip the check. The
// result is the service's success flag: false reports a version conflict.
// Events without an ID or timestamp get one.
func (c *Client) AppendEvent(ctx context.Context, streamID string, events []Event, expectedVersion int64) (bool, error) {
	payload, err := EncodeEvents(prepareEvents(streamID, events))
	if err != nil {
		return false, fmt.Errorf("%s: %w", MethodAppendEvent, err)
	}
	res, err := unaryCall[AppendEventParams, AppendEventResult](ctx, c, MethodAppendEvent, AppendEventParams{
		StreamID:        streamID,
		Events:          payload,
		ExpectedVersion: expectedVersion,
	})
	if err != nil {
		return false, err
	}
	return res.Success, nil
}

// AppendEventAny appends events without an optimistic-concurrency check.
func (c *Client) AppendEventAny(ctx context.Context, streamID string, events []Event) (bool, error) {
	return c.AppendEvent(ctx, streamID, events, AnyVersion)
}

// GetEvents reads the whole of streamID. If the service reports an error
// before the stream completes, events received so far are discarded.
func (c *Client) GetEvents(ctx context.Context, streamID string) ([]Event, error) {
	var events []Event
	err := c.invoke(ctx, MethodGetEvents, CallMethodStream,
		func(w io.Writer, requestID string) error {
			return WriteRequest(w, MethodGetEvents, requestID, GetEventsParams{StreamID: streamID})
		},
		func(res *callResult, stats *CallStatistics) error {
			if msg := res.trailer.Get(ErrorTrailer); msg != "" {
				errType := res.trailer.Get(ErrorTypeTrailer)
				if errType == "" {
					errType = "StreamError"
				}
				return &RpcError{Type: errType, Message: msg}
			}
			got, batches, err := decodeEventStream(bytes.NewReader(res.body))
			if err != nil {
				return err
			}
			stats.RecordResponse(batches, int64(len(got)), int64(len(res.body)))
			events = got
			return nil
		})
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []Event{}
	}
	return events, nil
}

// UpsertSchema derives the schema of v (a record value or a reflect.Type)
// with the client's generator and registers it.
func (c *Client) UpsertSchema(ctx context.Context, v any) (*UpsertSchemaResponse, error) {
	var (
		s   *schema.Schema
		err error
	)
	if t, ok := v.(reflect.Type); ok {
		s, err = c.gen.Generate(t)
	} else {
		s, err = c.gen.GenerateValue(v)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MethodUpsertSchema, err)
	}
	return c.UpsertSchemaValue(ctx, s)
}

// UpsertSchemaValue registers an already derived schema.
func (c *Client) UpsertSchemaValue(ctx context.Context, s *schema.Schema) (*UpsertSchemaResponse, error) {
	data, err := s.MarshalArrow()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MethodUpsertSchema, err)
	}
	res, err := unaryCall[UpsertSchemaParams, UpsertSchemaResponse](ctx, c, MethodUpsertSchema,
		UpsertSchemaParams{Schema: data})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetSchema fetches the schema registered under name. The bool is false
// when no such schema exists.
func (c *Client) GetSchema(ctx context.Context, name string) (*schema.Schema, bool, error) {
	res, err := unaryCall[GetSchemaParams, GetSchemaResult](ctx, c, MethodGetSchema, GetSchemaParams{Name: name})
	if err != nil {
		return nil, false, err
	}
	if !res.Found {
		return nil, false, nil
	}
	s, err := schema.UnmarshalArrow(res.Schema)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", MethodGetSchema, err)
	}
	return s, true, nil
}

// Close releases idle connections. The client cannot be used afterwards.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}
	c.http.CloseIdleConnections()
	return nil
}

// callResult is a fully read response body plus its trailers.
type callResult struct {
	body    []byte
	trailer http.Header
}

// unaryCall performs one unary round trip.
func unaryCall[P, R any](ctx context.Context, c *Client, method string, params P) (R, error) {
	var result R
	err := c.invoke(ctx, method, CallMethodUnary,
		func(w io.Writer, requestID string) error {
			return WriteRequest(w, method, requestID, params)
		},
		func(res *callResult, stats *CallStatistics) error {
			if len(res.body) == 0 {
				return ErrEmptyResponse
			}
			r, err := ReadUnaryResponse[R](bytes.NewReader(res.body))
			if err != nil {
				return err
			}
			stats.RecordResponse(1, 1, int64(len(res.body)))
			result = r
			return nil
		})
	return result, err
}

// invoke runs one call under its own deadline and reports it to the hook.
func (c *Client) invoke(ctx context.Context, method, methodType string,
	encode func(w io.Writer, requestID string) error,
	decode func(res *callResult, stats *CallStatistics) error) error {

	if c.closed.Load() {
		return fmt.Errorf("%s: %w", method, ErrClientClosed)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	info := CallInfo{
		Method:     method,
		MethodType: methodType,
		Target:     c.cfg.Target(),
		RequestID:  ulid.Make().String(),
		Header:     make(http.Header),
	}
	stats := &CallStatistics{}
	var token HookToken
	if c.hook != nil {
		ctx, token = c.hook.OnCallStart(ctx, info)
	}

	start := time.Now()
	err := c.roundTrip(ctx, info, encode, decode, stats)

	if c.hook != nil {
		c.hook.OnCallEnd(ctx, token, info, stats, err)
	}
	if err != nil {
		c.logger.Debug("call failed",
			slog.String("method", method),
			slog.String("request_id", info.RequestID),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))
		return fmt.Errorf("%s: %w", method, err)
	}
	c.logger.Debug("call completed",
		slog.String("method", method),
		slog.String("request_id", info.RequestID),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int64("response_rows", stats.ResponseRows))
	return nil
}

func (c *Client) roundTrip(ctx context.Context, info CallInfo,
	encode func(w io.Writer, requestID string) error,
	decode func(res *callResult, stats *CallStatistics) error,
	stats *CallStatistics) error {

	var buf bytes.Buffer
	if err := encode(&buf, info.RequestID); err != nil {
		return err
	}
	stats.RecordRequest(1, int64(buf.Len()))

	body, err := EncodeBody(c.cfg.Compression, buf.Bytes())
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+info.Method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	for k, vs := range info.Header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", ArrowContentType)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.Compression != CompressionNone {
		req.Header.Set("Content-Encoding", c.cfg.Compression)
		req.Header.Set("Accept-Encoding", c.cfg.Compression)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	data, err := DecodeBody(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return responseError(resp, data)
	}
	return decode(&callResult{body: data, trailer: resp.Trailer}, stats)
}

// responseError extracts the remote error from a non-200 response.
func responseError(resp *http.Response, data []byte) error {
	if strings.HasPrefix(resp.Header.Get("Content-Type"), ArrowContentType) {
		if reader, err := ipc.NewReader(bytes.NewReader(data)); err == nil {
			defer reader.Release()
			if rpcErr := errorFromSchema(reader.Schema()); rpcErr != nil {
				return rpcErr
			}
		}
	}
	return fmt.Errorf("unexpected HTTP status %s", resp.Status)
}
