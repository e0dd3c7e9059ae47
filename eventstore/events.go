// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package eventstore

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/google/uuid"
)

// Event is one entry of an event stream.
type Event struct {
	ID        string `rpc:"id"`
	StreamID  string `rpc:"stream_id"`
	EventType string `rpc:"event_type"`
	Payload   []byte `rpc:"payload"`
	// Timestamp is in milliseconds since the Unix epoch.
	Timestamp uint64 `rpc:"timestamp"`
}

// NewEvent returns an event with a fresh UUIDv7 ID and the current time.
func NewEvent(eventType string, payload []byte) Event {
	return Event{
		ID:        newEventID(),
		EventType: eventType,
		Payload:   payload,
		Timestamp: uint64(time.Now().UnixMilli()),
	}
}

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// prepareEvents copies events, binding them to streamID and filling in a
// missing ID or timestamp.
func prepareEvents(streamID string, events []Event) []Event {
	out := make([]Event, len(events))
	now := uint64(time.Now().UnixMilli())
	for i, e := range events {
		e.StreamID = streamID
		if e.ID == "" {
			e.ID = newEventID()
		}
		if e.Timestamp == 0 {
			e.Timestamp = now
		}
		out[i] = e
	}
	return out
}

// EventSchema returns the Arrow layout of an event batch.
func EventSchema() *arrow.Schema {
	sc, err := schemaFor[Event]()
	if err != nil {
		panic(fmt.Sprintf("eventstore: event layout: %v", err))
	}
	return sc
}

// EncodeEvents serializes events as an embedded IPC stream.
func EncodeEvents(events []Event) ([]byte, error) {
	rec, err := encodeRows(events, nil)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	var buf bytes.Buffer
	if err := writeStream(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeEvents reads every event batch in an IPC stream. A stream whose
// schema carries error metadata yields an *RpcError.
func DecodeEvents(r io.Reader) ([]Event, error) {
	events, _, err := decodeEventStream(r)
	return events, err
}

// decodeEventStream is DecodeEvents plus the number of batches read.
func decodeEventStream(r io.Reader) ([]Event, int64, error) {
	reader, err := ipc.NewReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("reading event IPC stream: %w", err)
	}
	defer reader.Release()

	if err := errorFromSchema(reader.Schema()); err != nil {
		return nil, 0, err
	}
	var (
		events  []Event
		batches int64
	)
	for reader.Next() {
		batch, err := decodeRows[Event](reader.Record())
		if err != nil {
			return nil, 0, fmt.Errorf("decoding events: %w", err)
		}
		events = append(events, batch...)
		batches++
	}
	if err := reader.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading event batch: %w", err)
	}
	return events, batches, nil
}

// EventStreamWriter writes events to a GetEvents response one batch at a
// time.
type EventStreamWriter struct {
	w       *ipc.Writer
	batches int64
	rows    int64
	meta    *arrow.Metadata
}

// NewEventStreamWriter starts an event stream on w.
func NewEventStreamWriter(w io.Writer, requestID string) *EventStreamWriter {
	md := arrow.NewMetadata([]string{MetaRequestID}, []string{requestID})
	sc := arrow.NewSchema(EventSchema().Fields(), &md)
	return &EventStreamWriter{
		w:    ipc.NewWriter(w, ipc.WithSchema(sc)),
		meta: &md,
	}
}

// Write appends one batch. Empty batches are skipped.
func (s *EventStreamWriter) Write(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	rec, err := encodeRows(events, s.meta)
	if err != nil {
		return err
	}
	defer rec.Release()
	if err := s.w.Write(rec); err != nil {
		return err
	}
	s.batches++
	s.rows += int64(len(events))
	return nil
}

// Batches returns the number of batches written.
func (s *EventStreamWriter) Batches() int64 { return s.batches }

// Rows returns the number of events written.
func (s *EventStreamWriter) Rows() int64 { return s.rows }

// Close ends the stream.
func (s *EventStreamWriter) Close() error {
	return s.w.Close()
}
