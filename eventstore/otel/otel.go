// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package esotel provides OpenTelemetry instrumentation for the graveyard
// event store client. It implements [eventstore.CallHook] to add client
// spans, trace context propagation and call metrics.
//
// Usage:
//
//	client, _ := eventstore.NewClient(cfg)
//	esotel.InstrumentClient(client, esotel.DefaultConfig())
package esotel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Query-farm/graveyard-go/eventstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "graveyard"
	rpcSystem           = "graveyard"
)

// Config configures OpenTelemetry instrumentation for a client.
type Config struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// Propagator injects trace context into outgoing request headers.
	// Defaults to otel.GetTextMapPropagator().
	Propagator propagation.TextMapPropagator
	// EnableTracing enables span creation. Default true.
	EnableTracing bool
	// EnableMetrics enables counter and histogram recording. Default true.
	EnableMetrics bool
	// RecordExceptions calls RecordError on the span for failed calls.
	// Default true.
	RecordExceptions bool
	// ServiceName is the rpc.service attribute value. Defaults to "EventStore".
	ServiceName string
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig returns a Config with tracing, metrics and exception
// recording enabled. Providers are resolved from the global SDK when the
// client is instrumented.
func DefaultConfig() Config {
	return Config{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

// InstrumentClient installs the OpenTelemetry hook on client via
// [eventstore.Client.SetCallHook].
func InstrumentClient(client *eventstore.Client, cfg Config) {
	client.SetCallHook(NewHook(cfg))
}

// NewHook builds the hook without installing it, for use with
// [eventstore.WithCallHook].
func NewHook(cfg Config) eventstore.CallHook {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "EventStore"
	}

	h := &hook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}
	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		h.requestCounter, _ = meter.Int64Counter("rpc.client.requests",
			metric.WithUnit("{request}"),
			metric.WithDescription("Number of event store calls"),
		)
		h.durationHistogram, _ = meter.Float64Histogram("rpc.client.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of event store calls"),
		)
	}
	return h
}

type hook struct {
	cfg               Config
	tracer            trace.Tracer
	requestCounter    metric.Int64Counter
	durationHistogram metric.Float64Histogram
}

type spanToken struct {
	span      trace.Span
	startTime time.Time
}

// OnCallStart starts a client span and injects its context into the
// outgoing headers.
func (h *hook) OnCallStart(ctx context.Context, info eventstore.CallInfo) (context.Context, eventstore.HookToken) {
	tok := &spanToken{startTime: time.Now()}
	if h.cfg.EnableTracing {
		attrs := []attribute.KeyValue{
			attribute.String("rpc.system", rpcSystem),
			attribute.String("rpc.service", h.cfg.ServiceName),
			attribute.String("rpc.method", info.Method),
			attribute.String("rpc.graveyard.method_type", info.MethodType),
			attribute.String("rpc.graveyard.request_id", info.RequestID),
			attribute.String("server.address", info.Target),
		}
		attrs = append(attrs, h.cfg.CustomAttributes...)
		ctx, tok.span = h.tracer.Start(ctx, fmt.Sprintf("%s/%s", rpcSystem, info.Method),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...),
		)
	}
	if h.cfg.Propagator != nil && info.Header != nil {
		h.cfg.Propagator.Inject(ctx, propagation.HeaderCarrier(info.Header))
	}
	return ctx, tok
}

// OnCallEnd records metrics and ends the span.
func (h *hook) OnCallEnd(ctx context.Context, token eventstore.HookToken, info eventstore.CallInfo, stats *eventstore.CallStatistics, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	if h.cfg.EnableMetrics {
		attrs := metric.WithAttributes(
			attribute.String("rpc.system", rpcSystem),
			attribute.String("rpc.service", h.cfg.ServiceName),
			attribute.String("rpc.method", info.Method),
			attribute.String("rpc.graveyard.method_type", info.MethodType),
			attribute.String("status", status),
		)
		if h.requestCounter != nil {
			h.requestCounter.Add(ctx, 1, attrs)
		}
		if h.durationHistogram != nil {
			h.durationHistogram.Record(ctx, time.Since(st.startTime).Seconds(), attrs)
		}
	}

	if st.span == nil {
		return
	}
	defer st.span.End()
	if !st.span.IsRecording() {
		return
	}
	if stats != nil {
		st.span.SetAttributes(
			attribute.Int64("rpc.graveyard.request_batches", stats.RequestBatches),
			attribute.Int64("rpc.graveyard.response_batches", stats.ResponseBatches),
			attribute.Int64("rpc.graveyard.request_rows", stats.RequestRows),
			attribute.Int64("rpc.graveyard.response_rows", stats.ResponseRows),
			attribute.Int64("rpc.graveyard.request_bytes", stats.RequestBytes),
			attribute.Int64("rpc.graveyard.response_bytes", stats.ResponseBytes),
		)
	}
	if err == nil {
		st.span.SetStatus(codes.Ok, "")
		return
	}
	st.span.SetStatus(codes.Error, err.Error())
	if h.cfg.RecordExceptions {
		st.span.RecordError(err)
	}
	errType := fmt.Sprintf("%T", err)
	var rpcErr *eventstore.RpcError
	if errors.As(err, &rpcErr) {
		errType = rpcErr.Type
	}
	st.span.SetAttributes(attribute.String("rpc.graveyard.error_type", errType))
}
