// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package benchmark holds fixtures for measuring schema derivation, event
// encoding and client round trips.
package benchmark

import (
	"fmt"
	"strings"

	"github.com/Query-farm/graveyard-go/eventstore"
	"github.com/Query-farm/graveyard-go/schema"
)

// Order is a representative declared record type.
type Order struct {
	_        struct{} `graveyard:"_,entity=order"`
	ID       string   `graveyard:"id,minLength=1,maxLength=64"`
	Customer string   `graveyard:"customer,regex=^[a-z0-9_]+$"`
	Total    float64  `graveyard:"total,min=0,max=1000000"`
	Items    []string `graveyard:"items,overridesOnNull"`
	Paid     bool     `graveyard:"paid,nullable=false"`
	Note     *string  `graveyard:"note"`
}

// Registry returns a registry with Order declared.
func Registry() *schema.Registry {
	reg := schema.NewRegistry()
	schema.MustDeclare(reg, Order{})
	return reg
}

// Payload returns a valid Order document padded to roughly size bytes.
func Payload(i, size int) []byte {
	base := fmt.Sprintf(`{"id":"order-%d","customer":"c_%d","total":%d.5,"items":["a","b"],"paid":true,"note":"`, i, i%97, i%1000)
	pad := max(size-len(base)-2, 0)
	return []byte(base + strings.Repeat("x", pad) + `"}`)
}

// Events returns n OrderPlaced events with payloads of roughly size bytes.
func Events(n, size int) []eventstore.Event {
	events := make([]eventstore.Event, n)
	for i := range events {
		events[i] = eventstore.NewEvent("OrderPlaced", Payload(i, size))
	}
	return events
}
