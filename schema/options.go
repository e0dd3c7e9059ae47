// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"reflect"
)

// Option is a functional option that mutates FieldOptions.
type Option func(*FieldOptions)

// Options builds FieldOptions from the given options. No options is
// equivalent to an empty declaration.
func Options(opts ...Option) FieldOptions {
	var fo FieldOptions
	for _, opt := range opts {
		opt(&fo)
	}
	return fo
}

// WithShape sets the declared shape.
func WithShape(s Shape) Option {
	return func(o *FieldOptions) { o.Shape = s }
}

// Nullable sets the nullable option.
func Nullable(v bool) Option {
	return func(o *FieldOptions) { o.Nullable = &v }
}

// OverridesOnNull sets whether a null overrides an existing value in
// partial updates.
func OverridesOnNull(v bool) Option {
	return func(o *FieldOptions) { o.OverridesOnNull = &v }
}

// Min sets the minimum numeric value.
func Min(v float64) Option {
	return func(o *FieldOptions) { o.Min = &v }
}

// Max sets the maximum numeric value.
func Max(v float64) Option {
	return func(o *FieldOptions) { o.Max = &v }
}

// MinLength sets the minimum string length.
func MinLength(v int32) Option {
	return func(o *FieldOptions) { o.MinLength = &v }
}

// MaxLength sets the maximum string length.
func MaxLength(v int32) Option {
	return func(o *FieldOptions) { o.MaxLength = &v }
}

// Regex sets the pattern string values must match.
func Regex(v string) Option {
	return func(o *FieldOptions) { o.Regex = &v }
}

// Builder declares a record type explicitly, without struct tags. Errors are
// collected and reported by Err.
//
//	err := schema.For[User](reg).
//		Entity("user").
//		Field("username", schema.ShapeString, schema.MinLength(3)).
//		Err()
type Builder struct {
	reg *Registry
	t   reflect.Type
	err error
}

// For starts a declaration of T in reg (Default if nil).
func For[T any](reg *Registry) *Builder {
	return ForType(reg, reflect.TypeOf((*T)(nil)).Elem())
}

// ForType starts a declaration of t in reg (Default if nil).
func ForType(reg *Registry, t reflect.Type) *Builder {
	if reg == nil {
		reg = Default
	}
	return &Builder{reg: reg, t: t}
}

// Entity declares the entity name.
func (b *Builder) Entity(name string) *Builder {
	b.err = errors.Join(b.err, b.reg.SetEntity(b.t, EntityDescriptor{Name: name}))
	return b
}

// Field declares one field with an explicit shape.
func (b *Builder) Field(name string, shape Shape, opts ...Option) *Builder {
	fo := Options(opts...)
	fo.Shape = shape
	b.err = errors.Join(b.err, b.reg.SetField(b.t, name, fo))
	return b
}

// Err returns every error collected while declaring.
func (b *Builder) Err() error {
	return b.err
}
