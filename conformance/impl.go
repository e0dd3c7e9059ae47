// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/Query-farm/graveyard-go/eventstore"
	"github.com/Query-farm/graveyard-go/schema"
)

// Checks returns the full suite in execution order.
func Checks() []Check {
	return []Check{
		// Append
		{"append/any_version", appendAnyVersion},
		{"append/empty_batch", appendEmptyBatch},
		{"append/expected_version_match", expectedVersionMatch},
		{"append/expected_version_conflict", expectedVersionConflict},

		// Read
		{"read/order", readOrder},
		{"read/missing_stream", readMissingStream},
		{"read/binary_payload", readBinaryPayload},
		{"read/large_stream", readLargeStream},
		{"read/interleaved_streams", readInterleaved},

		// Schema
		{"schema/round_trip", schemaRoundTrip},
		{"schema/replace", schemaReplace},
		{"schema/missing", schemaMissing},
	}
}

func appendAnyVersion(ctx context.Context, env *Env) error {
	ok, err := env.Client.AppendEventAny(ctx, env.Stream("any"), []eventstore.Event{
		eventstore.NewEvent("Created", []byte(`{}`)),
	})
	if err != nil {
		return err
	}
	return expect("success", ok, true)
}

func appendEmptyBatch(ctx context.Context, env *Env) error {
	ok, err := env.Client.AppendEventAny(ctx, env.Stream("empty"), []eventstore.Event{})
	if err != nil {
		return err
	}
	if err := expect("success", ok, true); err != nil {
		return err
	}
	events, err := env.Client.GetEvents(ctx, env.Stream("empty"))
	if err != nil {
		return err
	}
	return expect("events", len(events), 0)
}

func expectedVersionMatch(ctx context.Context, env *Env) error {
	stream := env.Stream("versioned")
	for version := int64(-1); version < 2; version++ {
		ok, err := env.Client.AppendEvent(ctx, stream, []eventstore.Event{
			eventstore.NewEvent("Step", nil),
		}, version)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("append at expected version %d was rejected", version)
		}
	}
	return nil
}

func expectedVersionConflict(ctx context.Context, env *Env) error {
	stream := env.Stream("conflict")
	if _, err := env.Client.AppendEventAny(ctx, stream, []eventstore.Event{eventstore.NewEvent("A", nil)}); err != nil {
		return err
	}
	for _, stale := range []int64{-2, 1, 5} {
		ok, err := env.Client.AppendEvent(ctx, stream, []eventstore.Event{eventstore.NewEvent("B", nil)}, stale)
		if err != nil {
			return fmt.Errorf("conflict must not be an error: %w", err)
		}
		if ok {
			return fmt.Errorf("append at stale version %d was accepted", stale)
		}
	}
	events, err := env.Client.GetEvents(ctx, stream)
	if err != nil {
		return err
	}
	return expect("events after conflicts", len(events), 1)
}

func readOrder(ctx context.Context, env *Env) error {
	stream := env.Stream("order")
	sent := []eventstore.Event{
		eventstore.NewEvent("First", []byte(`{"n":1}`)),
		eventstore.NewEvent("Second", []byte(`{"n":2}`)),
		eventstore.NewEvent("Third", []byte(`{"n":3}`)),
	}
	if _, err := env.Client.AppendEventAny(ctx, stream, sent[:2]); err != nil {
		return err
	}
	if _, err := env.Client.AppendEventAny(ctx, stream, sent[2:]); err != nil {
		return err
	}
	got, err := env.Client.GetEvents(ctx, stream)
	if err != nil {
		return err
	}
	return sameEvents(stream, sent, got)
}

func readMissingStream(ctx context.Context, env *Env) error {
	events, err := env.Client.GetEvents(ctx, env.Stream("never-written"))
	if err != nil {
		return err
	}
	if events == nil {
		return errors.New("missing stream returned nil, want empty slice")
	}
	return expect("events", len(events), 0)
}

func readBinaryPayload(ctx context.Context, env *Env) error {
	stream := env.Stream("binary")
	sent := []eventstore.Event{eventstore.NewEvent("Blob", []byte{0x00, 0xff, 0xfe, 0x80, 0x7f})}
	if _, err := env.Client.AppendEventAny(ctx, stream, sent); err != nil {
		return err
	}
	got, err := env.Client.GetEvents(ctx, stream)
	if err != nil {
		return err
	}
	return sameEvents(stream, sent, got)
}

func readLargeStream(ctx context.Context, env *Env) error {
	stream := env.Stream("large")
	sent := make([]eventstore.Event, largeStreamSize)
	for i := range sent {
		sent[i] = eventstore.NewEvent("Tick", fmt.Appendf(nil, `{"i":%d}`, i))
	}
	if _, err := env.Client.AppendEventAny(ctx, stream, sent); err != nil {
		return err
	}
	got, err := env.Client.GetEvents(ctx, stream)
	if err != nil {
		return err
	}
	return sameEvents(stream, sent, got)
}

func schemaRoundTrip(ctx context.Context, env *Env) error {
	want := conformanceSchema(env.Prefix+"_account", 3)
	if err := upsert(ctx, env, want); err != nil {
		return err
	}
	got, found, err := env.Client.GetSchema(ctx, want.Name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("schema %s not found after upsert", want.Name)
	}
	if !reflect.DeepEqual(want, got) {
		return fmt.Errorf("schema mismatch:\n got %+v\nwant %+v", got, want)
	}
	return nil
}

func schemaReplace(ctx context.Context, env *Env) error {
	name := env.Prefix + "_replaced"
	if err := upsert(ctx, env, conformanceSchema(name, 3)); err != nil {
		return err
	}
	latest := conformanceSchema(name, 8)
	if err := upsert(ctx, env, latest); err != nil {
		return err
	}
	got, found, err := env.Client.GetSchema(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("schema %s not found", name)
	}
	return expect("owner minLength", *got.Fields["owner"].Constraints.MinLength, int32(8))
}

func schemaMissing(ctx context.Context, env *Env) error {
	_, found, err := env.Client.GetSchema(ctx, env.Prefix+"_absent")
	if err != nil {
		return err
	}
	return expect("found", found, false)
}

// --- Helpers ---

type account struct{}

// conformanceSchema derives a schema through a private registry so runs
// never touch schema.Default.
func conformanceSchema(name string, ownerMin int32) *schema.Schema {
	reg := schema.NewRegistry()
	b := schema.For[account](reg).
		Entity(name).
		Field("owner", schema.ShapeString, schema.MinLength(ownerMin), schema.Regex("^[a-z]+$")).
		Field("balance", schema.ShapeNumber, schema.Min(0), schema.Nullable(false)).
		Field("tags", schema.ShapeSequence, schema.OverridesOnNull(true)).
		Field("active", schema.ShapeBoolean)
	if err := b.Err(); err != nil {
		panic(err)
	}
	s, err := schema.NewGenerator(reg).GenerateValue(account{})
	if err != nil {
		panic(err)
	}
	return s
}

func upsert(ctx context.Context, env *Env, s *schema.Schema) error {
	res, err := env.Client.UpsertSchemaValue(ctx, s)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("upsert of %s reported failure: %s", s.Name, res.Message)
	}
	return nil
}

func sameEvents(stream string, sent, got []eventstore.Event) error {
	if len(got) != len(sent) {
		return fmt.Errorf("got %d events, want %d", len(got), len(sent))
	}
	for i := range sent {
		want := sent[i]
		want.StreamID = stream
		if !reflect.DeepEqual(normalizePayload(want), normalizePayload(got[i])) {
			return fmt.Errorf("event %d: got %+v, want %+v", i, got[i], want)
		}
	}
	return nil
}

// normalizePayload treats nil and empty payloads as equal.
func normalizePayload(e eventstore.Event) eventstore.Event {
	if len(e.Payload) == 0 {
		e.Payload = nil
	}
	return e
}
