// Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package conformance checks that an event store endpoint behaves the way the
// graveyard client expects: append success flags, optimistic concurrency,
// ordered reads, batched streams and schema registration.
//
// Every check works on streams and schemas under a fresh random prefix, so
// the suite can run against a shared store. [Run] executes all checks and
// returns a [Report]; `graveyard conformance` is the command line entry
// point.
package conformance
