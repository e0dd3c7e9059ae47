// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// tagKey is the struct tag read by Declare.
const tagKey = "graveyard"

// EntityNamer is implemented by record types that name their own entity.
type EntityNamer interface {
	EntityName() string
}

var entityNamerType = reflect.TypeOf((*EntityNamer)(nil)).Elem()

// TagError reports a malformed graveyard struct tag.
type TagError struct {
	Type  string
	Field string
	Err   error
}

func (e *TagError) Error() string {
	return fmt.Sprintf("schema: %s.%s: %v", e.Type, e.Field, e.Err)
}

func (e *TagError) Unwrap() error {
	return e.Err
}

// tagInfo holds parsed information from a `graveyard` struct tag.
type tagInfo struct {
	Name   string
	Entity string
	Opts   FieldOptions
	// ShapeSet is true when the tag carried an explicit shape option.
	ShapeSet bool
}

// parseTag parses a graveyard tag like "name", "name,nullable=false",
// "name,minLength=3,regex=^[a-z]+$" or "_,entity=user".
func parseTag(tag string) (tagInfo, error) {
	parts := strings.Split(tag, ",")
	info := tagInfo{Name: strings.TrimSpace(parts[0])}
	for _, part := range parts[1:] {
		key, val, hasVal := strings.Cut(strings.TrimSpace(part), "=")
		switch key {
		case "":
			continue
		case "entity":
			info.Entity = val
		case "nullable":
			b, err := parseBoolOption(key, val, hasVal)
			if err != nil {
				return info, err
			}
			info.Opts.Nullable = &b
		case "overridesOnNull":
			b, err := parseBoolOption(key, val, hasVal)
			if err != nil {
				return info, err
			}
			info.Opts.OverridesOnNull = &b
		case "min", "max":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return info, fmt.Errorf("parsing %s %q: %w", key, val, err)
			}
			if key == "min" {
				info.Opts.Min = &f
			} else {
				info.Opts.Max = &f
			}
		case "minLength", "maxLength":
			n, err := strconv.ParseInt(val, 10, 32)
			if err != nil {
				return info, fmt.Errorf("parsing %s %q: %w", key, val, err)
			}
			n32 := int32(n)
			if key == "minLength" {
				info.Opts.MinLength = &n32
			} else {
				info.Opts.MaxLength = &n32
			}
		case "regex":
			re := val
			info.Opts.Regex = &re
		case "shape":
			s, err := ParseShape(val)
			if err != nil {
				return info, err
			}
			info.Opts.Shape = s
			info.ShapeSet = true
		default:
			return info, fmt.Errorf("unknown option %q", key)
		}
	}
	return info, nil
}

// parseBoolOption accepts a bare flag ("nullable") as true.
func parseBoolOption(key, val string, hasVal bool) (bool, error) {
	if !hasVal {
		return true, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("parsing %s %q: %w", key, val, err)
	}
	return b, nil
}

// Declare records the entity and field metadata carried by v's struct type
// in reg (Default if nil). The entity name comes from EntityName() when the
// type implements EntityNamer, otherwise from an `entity=` option on a blank
// field. Only fields with a graveyard tag are declared; their shape is taken
// from the Go type unless the tag sets shape= explicitly.
func Declare(reg *Registry, v any) error {
	if reg == nil {
		reg = Default
	}
	t := normalize(reflect.TypeOf(v))
	if t == nil {
		return ErrNilType
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("schema: expected struct type, got %v", t.Kind())
	}

	type declaredField struct {
		name string
		opts FieldOptions
	}
	var fields []declaredField
	entity := ""

	for i := range t.NumField() {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup(tagKey)
		if !ok || tag == "-" {
			continue
		}
		info, err := parseTag(tag)
		if err != nil {
			return &TagError{Type: t.String(), Field: f.Name, Err: err}
		}
		if f.Name == "_" {
			if info.Entity != "" {
				entity = info.Entity
			}
			continue
		}
		name := info.Name
		if name == "" {
			name = f.Name
		}
		if !info.ShapeSet {
			info.Opts.Shape = ShapeOf(f.Type)
		}
		fields = append(fields, declaredField{name: name, opts: info.Opts})
	}

	if t.Implements(entityNamerType) {
		entity = reflect.Zero(t).Interface().(EntityNamer).EntityName()
	} else if reflect.PointerTo(t).Implements(entityNamerType) {
		entity = reflect.New(t).Interface().(EntityNamer).EntityName()
	}

	if entity != "" {
		if err := reg.SetEntity(t, EntityDescriptor{Name: entity}); err != nil {
			return err
		}
	}
	for _, f := range fields {
		if err := reg.SetField(t, f.name, f.opts); err != nil {
			return err
		}
	}
	return nil
}

// MustDeclare is like Declare but panics on error. It is intended for
// package-level var initialization of record types.
func MustDeclare(reg *Registry, v any) {
	if err := Declare(reg, v); err != nil {
		panic(fmt.Sprintf("graveyard: declaring %T: %v", v, err))
	}
}
