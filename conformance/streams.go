// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"context"
	"fmt"

	"github.com/Query-farm/graveyard-go/eventstore"
)

// largeStreamSize is well above any sensible server batch size, so the read
// spans several batches.
const largeStreamSize = 500

// readInterleaved appends to two streams alternately and checks that each
// stream only sees its own events, in order.
func readInterleaved(ctx context.Context, env *Env) error {
	streams := []string{env.Stream("left"), env.Stream("right")}
	sent := make(map[string][]eventstore.Event, len(streams))

	for i := range 10 {
		stream := streams[i%len(streams)]
		version := int64(len(sent[stream])) - 1
		ev := eventstore.NewEvent("Tick", fmt.Appendf(nil, `{"i":%d}`, i))
		ok, err := env.Client.AppendEvent(ctx, stream, []eventstore.Event{ev}, version)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: append at version %d rejected", stream, version)
		}
		sent[stream] = append(sent[stream], ev)
	}

	for _, stream := range streams {
		got, err := env.Client.GetEvents(ctx, stream)
		if err != nil {
			return err
		}
		if err := sameEvents(stream, sent[stream], got); err != nil {
			return fmt.Errorf("%s: %w", stream, err)
		}
	}
	return nil
}
