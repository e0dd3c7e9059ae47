// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"maps"
	"reflect"
	"sync"
)

var (
	// ErrNilType is returned when a nil reflect.Type is provided.
	ErrNilType = errors.New("schema: nil reflect.Type provided")
	// ErrEmptyFieldName is returned when a field is declared without a name.
	ErrEmptyFieldName = errors.New("schema: empty field name")
)

// Default is the registry used by Declare when no registry is given and by
// clients constructed without WithRegistry.
var Default = NewRegistry()

// Declaration is everything declared for one record type.
type Declaration struct {
	// Entity is nil until an entity descriptor is declared.
	Entity *EntityDescriptor
	// Fields maps field name to its options.
	Fields map[string]FieldOptions
}

// Registry associates entity and field metadata with record types. It is a
// plain data holder; derivation lives in Generator.
type Registry struct {
	mu    sync.RWMutex
	decls map[reflect.Type]*Declaration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{decls: make(map[reflect.Type]*Declaration)}
}

// normalize strips pointer indirections so T and *T share a declaration.
func normalize(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// SetEntity associates d with t, replacing any earlier descriptor.
func (r *Registry) SetEntity(t reflect.Type, d EntityDescriptor) error {
	t = normalize(t)
	if t == nil {
		return ErrNilType
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	decl := r.declLocked(t)
	decl.Entity = &d
	return nil
}

// Entity returns the entity descriptor of t, if any.
func (r *Registry) Entity(t reflect.Type) (EntityDescriptor, bool) {
	t = normalize(t)
	r.mu.RLock()
	defer r.mu.RUnlock()
	decl, ok := r.decls[t]
	if !ok || decl.Entity == nil {
		return EntityDescriptor{}, false
	}
	return *decl.Entity, true
}

// SetField reads the field mapping of t, sets name to opts and writes the
// mapping back. Re-declaring a name overwrites its options.
func (r *Registry) SetField(t reflect.Type, name string, opts FieldOptions) error {
	t = normalize(t)
	if t == nil {
		return ErrNilType
	}
	if name == "" {
		return ErrEmptyFieldName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	decl := r.declLocked(t)
	fields := maps.Clone(decl.Fields)
	if fields == nil {
		fields = make(map[string]FieldOptions)
	}
	fields[name] = opts
	decl.Fields = fields
	return nil
}

// Fields returns a copy of the field mapping of t. The result is never nil.
func (r *Registry) Fields(t reflect.Type) map[string]FieldOptions {
	t = normalize(t)
	r.mu.RLock()
	defer r.mu.RUnlock()
	decl, ok := r.decls[t]
	if !ok || len(decl.Fields) == 0 {
		return map[string]FieldOptions{}
	}
	return maps.Clone(decl.Fields)
}

// Lookup returns a snapshot of the declaration for t.
func (r *Registry) Lookup(t reflect.Type) (Declaration, bool) {
	t = normalize(t)
	r.mu.RLock()
	defer r.mu.RUnlock()
	decl, ok := r.decls[t]
	if !ok {
		return Declaration{}, false
	}
	out := Declaration{Fields: maps.Clone(decl.Fields)}
	if decl.Entity != nil {
		e := *decl.Entity
		out.Entity = &e
	}
	if out.Fields == nil {
		out.Fields = map[string]FieldOptions{}
	}
	return out, true
}

// Types returns every type with at least one declaration (order is unspecified).
func (r *Registry) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]reflect.Type, 0, len(r.decls))
	for t := range r.decls {
		types = append(types, t)
	}
	return types
}

// Reset clears all declarations.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decls = make(map[reflect.Type]*Declaration)
}

func (r *Registry) declLocked(t reflect.Type) *Declaration {
	decl, ok := r.decls[t]
	if !ok {
		decl = &Declaration{}
		r.decls[t] = decl
	}
	return decl
}
