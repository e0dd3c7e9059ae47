// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

// BuildConstraints copies the bounds present in opts into a constraints
// record. It returns nil when no bound was supplied. Required is always
// false: nullability lives on the Field.
func BuildConstraints(opts FieldOptions) *FieldConstraints {
	c := &FieldConstraints{Required: false}
	set := false

	if opts.Min != nil {
		v := *opts.Min
		c.MinValue = &v
		set = true
	}
	if opts.Max != nil {
		v := *opts.Max
		c.MaxValue = &v
		set = true
	}
	if opts.MinLength != nil {
		v := *opts.MinLength
		c.MinLength = &v
		set = true
	}
	if opts.MaxLength != nil {
		v := *opts.MaxLength
		c.MaxLength = &v
		set = true
	}
	if opts.Regex != nil {
		v := *opts.Regex
		c.Regex = &v
		set = true
	}

	if !set {
		return nil
	}
	return c
}
