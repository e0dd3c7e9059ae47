// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Shape is a coarse classification of a field's declared value.
type Shape int

const (
	// ShapeUnknown is the zero value: nothing is known about the field.
	ShapeUnknown Shape = iota
	ShapeString
	ShapeNumber
	ShapeBoolean
	ShapeSequence
)

func (s Shape) String() string {
	switch s {
	case ShapeString:
		return "string"
	case ShapeNumber:
		return "number"
	case ShapeBoolean:
		return "boolean"
	case ShapeSequence:
		return "array"
	default:
		return "unknown"
	}
}

// ParseShape parses a shape name as used in tags and YAML declarations.
// The empty string is ShapeUnknown.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return ShapeUnknown, nil
	case "string":
		return ShapeString, nil
	case "number":
		return ShapeNumber, nil
	case "boolean", "bool":
		return ShapeBoolean, nil
	case "array", "sequence":
		return ShapeSequence, nil
	}
	return ShapeUnknown, fmt.Errorf("unknown shape %q", s)
}

// ResolveShape maps a shape onto a schema type. It never fails: unknown
// shapes resolve to STRING, and sequences always resolve to an array of
// STRING because element types are not introspected.
func ResolveShape(s Shape) FieldType {
	switch s {
	case ShapeNumber:
		return PrimitiveType(Number)
	case ShapeBoolean:
		return PrimitiveType(Boolean)
	case ShapeSequence:
		return ArrayOf(PrimitiveType(String))
	default:
		return PrimitiveType(String)
	}
}

// ShapeOf classifies a Go type. Pointers are dereferenced. []byte, structs,
// maps and interfaces are ShapeUnknown.
func ShapeOf(t reflect.Type) Shape {
	if t == nil {
		return ShapeUnknown
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return ShapeString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return ShapeNumber
	case reflect.Bool:
		return ShapeBoolean
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return ShapeUnknown
		}
		return ShapeSequence
	default:
		return ShapeUnknown
	}
}
