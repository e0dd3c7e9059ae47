// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
)

// Primitive is a scalar schema type.
type Primitive int

const (
	// String is the textual primitive. It is also the fallback for any
	// field whose shape could not be determined.
	String Primitive = iota
	// Number covers every integer and floating point kind.
	Number
	// Boolean is the true/false primitive.
	Boolean
)

// String returns the wire name of the primitive.
func (p Primitive) String() string {
	switch p {
	case String:
		return "STRING"
	case Number:
		return "NUMBER"
	case Boolean:
		return "BOOLEAN"
	default:
		return fmt.Sprintf("Primitive(%d)", int(p))
	}
}

// parsePrimitive is the inverse of Primitive.String.
func parsePrimitive(s string) (Primitive, error) {
	switch s {
	case "STRING":
		return String, nil
	case "NUMBER":
		return Number, nil
	case "BOOLEAN":
		return Boolean, nil
	}
	return 0, fmt.Errorf("unknown primitive %q", s)
}

// FieldType is a tagged union: either a primitive or an array of another
// FieldType. Exactly one of the two is meaningful, selected by Array being nil.
type FieldType struct {
	Primitive Primitive
	Array     *ArrayDef
}

// ArrayDef describes an array field.
type ArrayDef struct {
	ElementType FieldType
}

// PrimitiveType returns a primitive FieldType.
func PrimitiveType(p Primitive) FieldType {
	return FieldType{Primitive: p}
}

// ArrayOf returns an array FieldType with the given element type.
func ArrayOf(elem FieldType) FieldType {
	return FieldType{Array: &ArrayDef{ElementType: elem}}
}

// IsArray reports whether the type is an array.
func (ft FieldType) IsArray() bool {
	return ft.Array != nil
}

// String renders the type as STRING, NUMBER, BOOLEAN or ARRAY<...>.
func (ft FieldType) String() string {
	if ft.Array != nil {
		return "ARRAY<" + ft.Array.ElementType.String() + ">"
	}
	return ft.Primitive.String()
}

// ParseFieldType parses the output of FieldType.String.
func ParseFieldType(s string) (FieldType, error) {
	const prefix, suffix = "ARRAY<", ">"
	if len(s) > len(prefix)+len(suffix) && s[:len(prefix)] == prefix && s[len(s)-1:] == suffix {
		elem, err := ParseFieldType(s[len(prefix) : len(s)-1])
		if err != nil {
			return FieldType{}, err
		}
		return ArrayOf(elem), nil
	}
	p, err := parsePrimitive(s)
	if err != nil {
		return FieldType{}, err
	}
	return PrimitiveType(p), nil
}

// fieldTypeJSON is the JSON form: {"primitive":"STRING"} or
// {"arrayDef":{"elementType":{...}}}.
type fieldTypeJSON struct {
	Primitive *string       `json:"primitive,omitempty"`
	ArrayDef  *arrayDefJSON `json:"arrayDef,omitempty"`
}

type arrayDefJSON struct {
	ElementType FieldType `json:"elementType"`
}

// MarshalJSON implements json.Marshaler.
func (ft FieldType) MarshalJSON() ([]byte, error) {
	if ft.Array != nil {
		return json.Marshal(fieldTypeJSON{ArrayDef: &arrayDefJSON{ElementType: ft.Array.ElementType}})
	}
	p := ft.Primitive.String()
	return json.Marshal(fieldTypeJSON{Primitive: &p})
}

// UnmarshalJSON implements json.Unmarshaler.
func (ft *FieldType) UnmarshalJSON(data []byte) error {
	var raw fieldTypeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.ArrayDef != nil:
		*ft = ArrayOf(raw.ArrayDef.ElementType)
	case raw.Primitive != nil:
		p, err := parsePrimitive(*raw.Primitive)
		if err != nil {
			return err
		}
		*ft = PrimitiveType(p)
	default:
		return fmt.Errorf("field type has neither primitive nor arrayDef")
	}
	return nil
}

// FieldConstraints holds optional validation bounds. A nil *FieldConstraints
// means "no constraints", which is not the same as a record with no bounds.
type FieldConstraints struct {
	Required  bool     `json:"required"`
	MinValue  *float64 `json:"minValue,omitempty"`
	MaxValue  *float64 `json:"maxValue,omitempty"`
	MinLength *int32   `json:"minLength,omitempty"`
	MaxLength *int32   `json:"maxLength,omitempty"`
	Regex     *string  `json:"regex,omitempty"`
}

// Field is one derived schema field.
type Field struct {
	FieldType       FieldType         `json:"fieldType"`
	Nullable        bool              `json:"nullable"`
	OverridesOnNull bool              `json:"overridesOnNull"`
	Constraints     *FieldConstraints `json:"constraints,omitempty"`
}

// Schema is the derived, wire-ready description of a record type.
type Schema struct {
	Name   string           `json:"name"`
	Fields map[string]Field `json:"fields"`
}

// EntityDescriptor carries the logical schema name of a record type.
type EntityDescriptor struct {
	Name string `json:"name" yaml:"name"`
}

// EntityOptions is the record form of an entity declaration.
type EntityOptions struct {
	Name string
}

// NewEntity builds an EntityDescriptor from either a bare name (string) or an
// EntityOptions value.
func NewEntity(v any) (EntityDescriptor, error) {
	switch e := v.(type) {
	case string:
		return EntityDescriptor{Name: e}, nil
	case EntityOptions:
		return EntityDescriptor{Name: e.Name}, nil
	case *EntityOptions:
		if e == nil {
			return EntityDescriptor{}, fmt.Errorf("schema: nil entity options")
		}
		return EntityDescriptor{Name: e.Name}, nil
	case EntityDescriptor:
		return e, nil
	default:
		return EntityDescriptor{}, fmt.Errorf("schema: unsupported entity declaration %T", v)
	}
}

// FieldOptions is the declarative per-field metadata. Nil pointers are
// "not supplied". Shape is optional; ShapeUnknown falls back to STRING.
type FieldOptions struct {
	Shape           Shape
	Nullable        *bool
	OverridesOnNull *bool
	Min             *float64
	Max             *float64
	MinLength       *int32
	MaxLength       *int32
	Regex           *string
}
