// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSchema() *Schema {
	re := "^[a-z]+$"
	return &Schema{
		Name: "user_test",
		Fields: map[string]Field{
			"username": {
				FieldType:   PrimitiveType(String),
				Nullable:    false,
				Constraints: &FieldConstraints{MinLength: i32(3), MaxLength: i32(20), Regex: &re},
			},
			"age": {
				FieldType:   PrimitiveType(Number),
				Nullable:    true,
				Constraints: &FieldConstraints{MinValue: float(18)},
			},
			"active": {FieldType: PrimitiveType(Boolean), Nullable: true, OverridesOnNull: true},
			"tags":   {FieldType: ArrayOf(PrimitiveType(String)), Nullable: true},
			"empty":  {FieldType: PrimitiveType(String), Constraints: &FieldConstraints{}},
		},
	}
}

func TestMarshalArrowPreservesSchema(t *testing.T) {
	s := sampleSchema()
	data, err := s.MarshalArrow()
	require.NoError(t, err)

	got, err := UnmarshalArrow(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	// A constraints record with no bounds stays distinct from no constraints.
	require.NotNil(t, got.Fields["empty"].Constraints)
	assert.Nil(t, got.Fields["tags"].Constraints)
}

func TestMarshalArrowEmptySchema(t *testing.T) {
	data, err := (&Schema{Name: "bare", Fields: map[string]Field{}}).MarshalArrow()
	require.NoError(t, err)

	got, err := UnmarshalArrow(data)
	require.NoError(t, err)
	assert.Equal(t, "bare", got.Name)
	assert.Empty(t, got.Fields)
}

func TestUnmarshalArrowRejectsGarbage(t *testing.T) {
	_, err := UnmarshalArrow([]byte("not arrow"))
	assert.Error(t, err)
}

func TestArrowSchema(t *testing.T) {
	sc := sampleSchema().ArrowSchema()

	name, ok := sc.Metadata().GetValue(MetaSchemaName)
	require.True(t, ok)
	assert.Equal(t, "user_test", name)

	require.Equal(t, 5, sc.NumFields())
	assert.Equal(t, []string{"active", "age", "empty", "tags", "username"}, fieldNames(sc))

	assert.True(t, arrow.TypeEqual(arrow.FixedWidthTypes.Boolean, sc.Field(0).Type))
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Float64, sc.Field(1).Type))
	assert.True(t, arrow.TypeEqual(arrow.ListOf(arrow.BinaryTypes.String), sc.Field(3).Type))
	assert.True(t, arrow.TypeEqual(arrow.BinaryTypes.String, sc.Field(4).Type))
	assert.False(t, sc.Field(4).Nullable)
	assert.True(t, sc.Field(1).Nullable)
}

func fieldNames(sc *arrow.Schema) []string {
	names := make([]string, sc.NumFields())
	for i, f := range sc.Fields() {
		names[i] = f.Name
	}
	return names
}
