// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Query-farm/graveyard-go/eventstore"
	"github.com/Query-farm/graveyard-go/schema"
)

func TestFixtures(t *testing.T) {
	s, err := schema.NewGenerator(Registry()).GenerateValue(Order{})
	require.NoError(t, err)
	assert.Equal(t, "order", s.Name)
	assert.Len(t, s.Fields, 6)

	p := Payload(7, 256)
	assert.InDelta(t, 256, len(p), 1)
	assert.Empty(t, s.Validate(p))

	events := Events(3, 64)
	require.Len(t, events, 3)
	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestStartStore(t *testing.T) {
	st, err := StartStore(8, eventstore.CompressionZstd)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	_, err = st.Client.UpsertSchema(ctx, Order{})
	require.NoError(t, err)
	ok, err := st.Client.AppendEventAny(ctx, "orders", Events(20, 128))
	require.NoError(t, err)
	require.True(t, ok)
	got, err := st.Client.GetEvents(ctx, "orders")
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func BenchmarkGenerate(b *testing.B) {
	gen := schema.NewGenerator(Registry())
	b.ReportAllocs()
	for b.Loop() {
		if _, err := gen.GenerateValue(Order{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkValidate(b *testing.B) {
	s, err := schema.NewGenerator(Registry()).GenerateValue(Order{})
	if err != nil {
		b.Fatal(err)
	}
	p := Payload(1, 512)
	b.ReportAllocs()
	for b.Loop() {
		if errs := s.Validate(p); len(errs) > 0 {
			b.Fatal(errs)
		}
	}
}

func BenchmarkEncodeEvents(b *testing.B) {
	for _, n := range []int{1, 100, 10000} {
		events := Events(n, 256)
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := eventstore.EncodeEvents(events); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDecodeEvents(b *testing.B) {
	for _, n := range []int{1, 100, 10000} {
		data, err := eventstore.EncodeEvents(Events(n, 256))
		if err != nil {
			b.Fatal(err)
		}
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for b.Loop() {
				if _, err := eventstore.DecodeEvents(bytes.NewReader(data)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkAppendEvent(b *testing.B) {
	for _, compression := range []string{eventstore.CompressionNone, eventstore.CompressionZstd} {
		b.Run("compression="+compression, func(b *testing.B) {
			st, err := StartStore(64, compression)
			if err != nil {
				b.Fatal(err)
			}
			defer st.Close()
			events := Events(10, 256)
			ctx := context.Background()
			for b.Loop() {
				if _, err := st.Client.AppendEventAny(ctx, "bench", events); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkGetEvents(b *testing.B) {
	for _, batch := range []int{16, 256} {
		b.Run(fmt.Sprintf("batch=%d", batch), func(b *testing.B) {
			st, err := StartStore(batch, eventstore.CompressionNone)
			if err != nil {
				b.Fatal(err)
			}
			defer st.Close()
			ctx := context.Background()
			if _, err := st.Client.AppendEventAny(ctx, "bench", Events(1000, 128)); err != nil {
				b.Fatal(err)
			}
			for b.Loop() {
				if _, err := st.Client.GetEvents(ctx, "bench"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
