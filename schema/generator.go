// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrMissingEntityDescriptor is a sentinel for use with errors.Is to detect a
// derivation attempted on a type without an entity descriptor.
var ErrMissingEntityDescriptor = errors.New("schema: missing entity descriptor")

// MissingEntityError reports the record type that has no entity descriptor.
type MissingEntityError struct {
	// TypeName is the Go type name, or the declaration label for
	// declarations that are not bound to a Go type.
	TypeName string
}

func (e *MissingEntityError) Error() string {
	return fmt.Sprintf("schema: %s has no entity descriptor", e.TypeName)
}

// Is supports errors.Is against ErrMissingEntityDescriptor.
func (e *MissingEntityError) Is(target error) bool {
	return target == ErrMissingEntityDescriptor
}

// Generator derives schemas from the declarations held by a Registry.
type Generator struct {
	reg *Registry
}

// NewGenerator returns a generator reading from reg. A nil reg uses Default.
func NewGenerator(reg *Registry) *Generator {
	if reg == nil {
		reg = Default
	}
	return &Generator{reg: reg}
}

// Registry returns the registry the generator reads from.
func (g *Generator) Registry() *Registry {
	return g.reg
}

// Generate derives the schema of t. It fails with a *MissingEntityError when
// t has no entity descriptor and never returns a partial schema.
func (g *Generator) Generate(t reflect.Type) (*Schema, error) {
	t = normalize(t)
	if t == nil {
		return nil, ErrNilType
	}
	decl, ok := g.reg.Lookup(t)
	if !ok || decl.Entity == nil {
		return nil, &MissingEntityError{TypeName: t.String()}
	}
	return derive(decl, t), nil
}

// GenerateValue derives the schema of v's type.
func (g *Generator) GenerateValue(v any) (*Schema, error) {
	return g.Generate(reflect.TypeOf(v))
}

// GenerateDeclaration derives a schema from a declaration that is not bound
// to a Go type, such as one loaded from YAML. Shapes come only from the
// declared options.
func GenerateDeclaration(decl Declaration) (*Schema, error) {
	if decl.Entity == nil {
		return nil, &MissingEntityError{TypeName: "declaration"}
	}
	return derive(decl, nil), nil
}

// derive builds one Field per declared field. t may be nil.
func derive(decl Declaration, t reflect.Type) *Schema {
	fields := make(map[string]Field, len(decl.Fields))
	for name, opts := range decl.Fields {
		shape := opts.Shape
		if shape == ShapeUnknown && t != nil {
			shape = ambientShape(t, name)
		}

		nullable := true
		if opts.Nullable != nil {
			nullable = *opts.Nullable
		}
		overridesOnNull := false
		if opts.OverridesOnNull != nil {
			overridesOnNull = *opts.OverridesOnNull
		}

		fields[name] = Field{
			FieldType:       ResolveShape(shape),
			Nullable:        nullable,
			OverridesOnNull: overridesOnNull,
			Constraints:     BuildConstraints(opts),
		}
	}
	return &Schema{
		Name:   decl.Entity.Name,
		Fields: fields,
	}
}

// ambientShape looks for a struct field named name (by graveyard tag, then by
// exact Go field name, then by case-folded Go field name) and classifies its
// type. Anything else is ShapeUnknown.
func ambientShape(t reflect.Type, name string) Shape {
	if t.Kind() != reflect.Struct {
		return ShapeUnknown
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if tag, ok := f.Tag.Lookup(tagKey); ok {
			if info, err := parseTag(tag); err == nil && info.Name == name {
				return ShapeOf(f.Type)
			}
		}
	}
	if f, ok := t.FieldByName(name); ok {
		return ShapeOf(f.Type)
	}
	if f, ok := t.FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, name) }); ok {
		return ShapeOf(f.Type)
	}
	return ShapeUnknown
}
