// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package reference

import (
	"slices"
	"sync"

	"github.com/Query-farm/graveyard-go/eventstore"
	"github.com/Query-farm/graveyard-go/schema"
)

// Store is the in-memory state behind a Server. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	streams map[string][]eventstore.Event
	schemas map[string]storedSchema
}

type storedSchema struct {
	schema  *schema.Schema
	version int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		streams: make(map[string][]eventstore.Event),
		schemas: make(map[string]storedSchema),
	}
}

// Version returns the index of the last event in streamID, or -1 when the
// stream is empty.
func (s *Store) Version(streamID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.streams[streamID])) - 1
}

// Append adds events to streamID. Unless expectedVersion is
// eventstore.AnyVersion it must equal the current version, otherwise nothing
// is appended and Append returns false.
func (s *Store) Append(streamID string, events []eventstore.Event, expectedVersion int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := int64(len(s.streams[streamID])) - 1
	if expectedVersion != eventstore.AnyVersion && expectedVersion != current {
		return false
	}
	for _, e := range events {
		e.StreamID = streamID
		s.streams[streamID] = append(s.streams[streamID], e)
	}
	return true
}

// Events returns a copy of streamID in append order.
func (s *Store) Events(streamID string) []eventstore.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.streams[streamID])
}

// Streams returns the IDs of all non-empty streams, sorted.
func (s *Store) Streams() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// UpsertSchema stores sc under its name and returns the new version,
// starting at 1.
func (s *Store) UpsertSchema(sc *schema.Schema) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	version := s.schemas[sc.Name].version + 1
	s.schemas[sc.Name] = storedSchema{schema: sc, version: version}
	return version
}

// Schema returns the schema stored under name.
func (s *Store) Schema(name string) (*schema.Schema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.schemas[name]
	return stored.schema, ok
}
