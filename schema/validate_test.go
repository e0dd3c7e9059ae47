// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(errs []ValidationError) []ViolationKind {
	out := make([]ViolationKind, len(errs))
	for i, e := range errs {
		out[i] = e.Kind
	}
	return out
}

func TestValidate(t *testing.T) {
	s := sampleSchema()
	s.Fields["code"] = Field{
		FieldType:   PrimitiveType(String),
		Nullable:    true,
		Constraints: &FieldConstraints{Required: true},
	}

	tests := []struct {
		name    string
		payload string
		want    []ViolationKind
	}{
		{"valid", `{"username":"alice","age":30,"code":"x","tags":["a"],"extra":1}`, nil},
		{"missing required", `{"username":"alice"}`, []ViolationKind{MissingField}},
		{"required null", `{"code":null}`, []ViolationKind{MissingField}},
		{"non-nullable null", `{"code":"x","username":null}`, []ViolationKind{NullField}},
		{"wrong type", `{"code":"x","age":"old","active":1}`, []ViolationKind{InvalidType, InvalidType}},
		{"array element type", `{"code":"x","tags":[1]}`, []ViolationKind{InvalidType}},
		{"below min", `{"code":"x","age":17}`, []ViolationKind{BelowMin}},
		{"too short and no match", `{"code":"x","username":"A1"}`, []ViolationKind{TooShort, NoMatch}},
		{"too long", `{"code":"x","username":"abcdefghijklmnopqrstuvwxyz"}`, []ViolationKind{TooLong}},
		{"not json", `nope`, []ViolationKind{InvalidJSON}},
		{"not an object", `[1,2]`, []ViolationKind{InvalidJSON}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := s.Validate([]byte(tt.payload))
			if tt.want == nil {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.want, kinds(errs))
		})
	}
}

func TestValidateMessages(t *testing.T) {
	errs := sampleSchema().Validate([]byte(`{"age":5}`))
	require.Len(t, errs, 1)
	assert.Equal(t, "age", errs[0].Field)
	assert.Equal(t, "field age value 5 is less than min 18", errs[0].Error())
}

func TestValidateUnicodeLength(t *testing.T) {
	s := &Schema{Name: "n", Fields: map[string]Field{
		"s": {FieldType: PrimitiveType(String), Nullable: true, Constraints: &FieldConstraints{MaxLength: i32(3)}},
	}}
	assert.Empty(t, s.Validate([]byte(`{"s":"äöü"}`)))
}

func TestValidateRegexMatchesWholeValue(t *testing.T) {
	schemaWith := func(expr string) *Schema {
		return &Schema{Name: "n", Fields: map[string]Field{
			"s": {FieldType: PrimitiveType(String), Nullable: true, Constraints: &FieldConstraints{Regex: &expr}},
		}}
	}

	tests := []struct {
		expr  string
		value string
		ok    bool
	}{
		{"[a-z]+", "abc", true},
		{"[a-z]+", "abc123", false},
		{"[a-z]+", "1abc", false},
		{"a|b", "a", true},
		{"a|b", "ab", false},
		{"^[a-z]+$", "abc", true},
	}
	for _, tt := range tests {
		errs := schemaWith(tt.expr).Validate([]byte(`{"s":"` + tt.value + `"}`))
		if tt.ok {
			assert.Empty(t, errs, "%s ~ %s", tt.expr, tt.value)
		} else {
			assert.Equal(t, []ViolationKind{NoMatch}, kinds(errs), "%s ~ %s", tt.expr, tt.value)
		}
	}
}

func TestFullMatchCompilesOnce(t *testing.T) {
	first, err := fullMatch("[0-9]{3}")
	require.NoError(t, err)
	second, err := fullMatch("[0-9]{3}")
	require.NoError(t, err)
	assert.Same(t, first, second)

	bad := "("
	s := &Schema{Name: "n", Fields: map[string]Field{
		"s": {FieldType: PrimitiveType(String), Nullable: true, Constraints: &FieldConstraints{Regex: &bad}},
	}}
	for range 2 {
		assert.Equal(t, []ViolationKind{NoMatch}, kinds(s.Validate([]byte(`{"s":"x"}`))))
	}
}
