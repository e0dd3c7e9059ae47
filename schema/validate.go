// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"unicode/utf8"
)

// ViolationKind classifies a ValidationError.
type ViolationKind string

const (
	InvalidJSON  ViolationKind = "InvalidJson"
	MissingField ViolationKind = "MissingField"
	NullField    ViolationKind = "NullField"
	InvalidType  ViolationKind = "InvalidType"
	BelowMin     ViolationKind = "MinValue"
	AboveMax     ViolationKind = "MaxValue"
	TooShort     ViolationKind = "MinLength"
	TooLong      ViolationKind = "MaxLength"
	NoMatch      ViolationKind = "Regex"
)

// ValidationError is one violation found by Validate.
type ValidationError struct {
	Field   string
	Kind    ViolationKind
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Validate checks a JSON object payload against the schema and returns every
// violation, in field-name order. A nil result means the payload is valid.
// Fields that are absent from the schema are ignored.
func (s *Schema) Validate(payload []byte) []ValidationError {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return []ValidationError{{Kind: InvalidJSON, Message: fmt.Sprintf("payload is not a JSON object: %v", err)}}
	}

	var errs []ValidationError
	add := func(field string, kind ViolationKind, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Kind: kind, Message: fmt.Sprintf(format, args...)})
	}

	for _, name := range s.FieldNames() {
		f := s.Fields[name]
		val, present := doc[name]
		if !present || val == nil {
			switch {
			case f.Constraints != nil && f.Constraints.Required:
				add(name, MissingField, "field %s is required but missing", name)
			case present && !f.Nullable:
				add(name, NullField, "field %s is not nullable", name)
			}
			continue
		}

		if !matchesType(f.FieldType, val) {
			add(name, InvalidType, "field %s has invalid type, want %s", name, f.FieldType)
			continue
		}

		c := f.Constraints
		if c == nil {
			continue
		}
		switch v := val.(type) {
		case float64:
			if c.MinValue != nil && v < *c.MinValue {
				add(name, BelowMin, "field %s value %v is less than min %v", name, v, *c.MinValue)
			}
			if c.MaxValue != nil && v > *c.MaxValue {
				add(name, AboveMax, "field %s value %v is greater than max %v", name, v, *c.MaxValue)
			}
		case string:
			n := utf8.RuneCountInString(v)
			if c.MinLength != nil && n < int(*c.MinLength) {
				add(name, TooShort, "field %s length %d is less than min %d", name, n, *c.MinLength)
			}
			if c.MaxLength != nil && n > int(*c.MaxLength) {
				add(name, TooLong, "field %s length %d is greater than max %d", name, n, *c.MaxLength)
			}
			if c.Regex != nil {
				re, err := fullMatch(*c.Regex)
				if err != nil {
					add(name, NoMatch, "field %s has invalid regex %q: %v", name, *c.Regex, err)
				} else if !re.MatchString(v) {
					add(name, NoMatch, "field %s does not match regex %s", name, *c.Regex)
				}
			}
		}
	}
	return errs
}

type compiledRegex struct {
	re  *regexp.Regexp
	err error
}

// regexCache maps a constraint expression to its compiled full-match form.
var regexCache sync.Map

// fullMatch compiles expr so that it must match the whole value, and caches
// the result (including compile errors) by expr.
func fullMatch(expr string) (*regexp.Regexp, error) {
	if v, ok := regexCache.Load(expr); ok {
		c := v.(compiledRegex)
		return c.re, c.err
	}
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	v, _ := regexCache.LoadOrStore(expr, compiledRegex{re: re, err: err})
	c := v.(compiledRegex)
	return c.re, c.err
}

func matchesType(ft FieldType, val any) bool {
	if ft.Array != nil {
		items, ok := val.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if item != nil && !matchesType(ft.Array.ElementType, item) {
				return false
			}
		}
		return true
	}
	switch ft.Primitive {
	case Number:
		_, ok := val.(float64)
		return ok
	case Boolean:
		_, ok := val.(bool)
		return ok
	default:
		_, ok := val.(string)
		return ok
	}
}
