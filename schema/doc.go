// Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package schema derives event-store schemas from metadata attached to Go
// record types.
//
// A record type is declared once, either with struct tags:
//
//	type User struct {
//		_        struct{} `graveyard:"_,entity=user"`
//		Username string   `graveyard:"username,nullable=false,minLength=3"`
//		Age      int      `graveyard:"age,min=18"`
//	}
//
//	schema.MustDeclare(reg, User{})
//
// or explicitly through a [Builder], or from a YAML document with
// [ParseDeclarations]. A [Generator] then turns the declaration into a
// [Schema] on demand.
//
// # Derivation rules
//
//   - Shapes map to field types: string to STRING, number to NUMBER,
//     boolean to BOOLEAN, array to ARRAY<STRING>. Anything else is STRING.
//   - Nullable defaults to true; overridesOnNull defaults to false.
//   - Constraints are present only when at least one bound was declared.
//   - A type without an entity descriptor fails with [MissingEntityError].
//
// Schemas are fresh values on every call and are never cached.
//
// # Struct tags
//
// The tag format is:
//
//	`graveyard:"name[,option[,option...]]"`
//
// Supported options:
//
//   - nullable=BOOL, overridesOnNull=BOOL (a bare option means true)
//   - min=N, max=N (numeric bounds)
//   - minLength=N, maxLength=N (string length bounds)
//   - regex=EXPR (must match the whole value; may not contain commas)
//   - shape=string|number|boolean|array (overrides Go type inference)
//   - entity=NAME (only on a blank _ field)
//
// A type may instead name its entity by implementing [EntityNamer].
package schema
