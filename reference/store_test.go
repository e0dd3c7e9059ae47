// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package reference

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Query-farm/graveyard-go/eventstore"
	"github.com/Query-farm/graveyard-go/schema"
)

func TestStoreAppendVersions(t *testing.T) {
	s := NewStore()
	assert.Equal(t, int64(-1), s.Version("a"))

	require.True(t, s.Append("a", []eventstore.Event{{ID: "1"}, {ID: "2"}}, -1))
	assert.Equal(t, int64(1), s.Version("a"))

	assert.False(t, s.Append("a", []eventstore.Event{{ID: "3"}}, 0))
	assert.True(t, s.Append("a", []eventstore.Event{{ID: "3"}}, 1))

	events := s.Events("a")
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, fmt.Sprint(i+1), e.ID)
		assert.Equal(t, "a", e.StreamID)
	}

	// Returned slices are copies.
	events[0].ID = "changed"
	assert.Equal(t, "1", s.Events("a")[0].ID)
}

func TestStoreStreamsSorted(t *testing.T) {
	s := NewStore()
	s.Append("b", []eventstore.Event{{}}, eventstore.AnyVersion)
	s.Append("a", []eventstore.Event{{}}, eventstore.AnyVersion)
	assert.Equal(t, []string{"a", "b"}, s.Streams())
}

func TestStoreConcurrentAppend(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			s.Append("c", []eventstore.Event{{}}, eventstore.AnyVersion)
		})
	}
	wg.Wait()
	assert.Len(t, s.Events("c"), 20)
}

func TestStoreSchemas(t *testing.T) {
	s := NewStore()
	_, ok := s.Schema("x")
	assert.False(t, ok)

	assert.Equal(t, int64(1), s.UpsertSchema(&schema.Schema{Name: "x"}))
	assert.Equal(t, int64(2), s.UpsertSchema(&schema.Schema{Name: "x", Fields: map[string]schema.Field{}}))

	got, ok := s.Schema("x")
	require.True(t, ok)
	assert.NotNil(t, got.Fields)
}
