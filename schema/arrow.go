// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// MetaSchemaName is the Arrow schema metadata key carrying the schema name.
const MetaSchemaName = "graveyard.schema_name"

// fieldsSchema is the layout of an encoded Schema: one row per field.
var fieldsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "field_type", Type: arrow.BinaryTypes.String},
	{Name: "nullable", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "overrides_on_null", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "has_constraints", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "required", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "min_value", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "max_value", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "min_length", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: "max_length", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: "regex", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// FieldNames returns the field names in sorted order.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// MarshalArrow encodes the schema as a single-batch Arrow IPC stream.
func (s *Schema) MarshalArrow() ([]byte, error) {
	mem := memory.NewGoAllocator()
	sc := arrow.NewSchema(fieldsSchema.Fields(), metadataFor(s.Name))

	b := array.NewRecordBuilder(mem, sc)
	defer b.Release()

	for _, name := range s.FieldNames() {
		f := s.Fields[name]
		b.Field(0).(*array.StringBuilder).Append(name)
		b.Field(1).(*array.StringBuilder).Append(f.FieldType.String())
		b.Field(2).(*array.BooleanBuilder).Append(f.Nullable)
		b.Field(3).(*array.BooleanBuilder).Append(f.OverridesOnNull)

		c := f.Constraints
		b.Field(4).(*array.BooleanBuilder).Append(c != nil)
		if c == nil {
			c = &FieldConstraints{}
		}
		b.Field(5).(*array.BooleanBuilder).Append(c.Required)
		appendFloat(b.Field(6).(*array.Float64Builder), c.MinValue)
		appendFloat(b.Field(7).(*array.Float64Builder), c.MaxValue)
		appendInt32(b.Field(8).(*array.Int32Builder), c.MinLength)
		appendInt32(b.Field(9).(*array.Int32Builder), c.MaxLength)
		sb := b.Field(10).(*array.StringBuilder)
		if c.Regex != nil {
			sb.Append(*c.Regex)
		} else {
			sb.AppendNull()
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(sc), ipc.WithAllocator(mem))
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, fmt.Errorf("schema: writing arrow batch: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("schema: closing arrow stream: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalArrow decodes a schema written by MarshalArrow.
func UnmarshalArrow(data []byte) (*Schema, error) {
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("schema: reading arrow stream: %w", err)
	}
	defer r.Release()

	if r.Schema().NumFields() != fieldsSchema.NumFields() {
		return nil, fmt.Errorf("schema: unexpected arrow layout %s", r.Schema())
	}
	for i, f := range fieldsSchema.Fields() {
		if !arrow.TypeEqual(f.Type, r.Schema().Field(i).Type) {
			return nil, fmt.Errorf("schema: column %q has type %s, want %s", f.Name, r.Schema().Field(i).Type, f.Type)
		}
	}
	name, _ := r.Schema().Metadata().GetValue(MetaSchemaName)
	out := &Schema{Name: name, Fields: make(map[string]Field)}

	for r.Next() {
		rec := r.Record()
		names := rec.Column(0).(*array.String)
		types := rec.Column(1).(*array.String)
		nullable := rec.Column(2).(*array.Boolean)
		overrides := rec.Column(3).(*array.Boolean)
		hasConstraints := rec.Column(4).(*array.Boolean)
		required := rec.Column(5).(*array.Boolean)
		minValue := rec.Column(6).(*array.Float64)
		maxValue := rec.Column(7).(*array.Float64)
		minLength := rec.Column(8).(*array.Int32)
		maxLength := rec.Column(9).(*array.Int32)
		regex := rec.Column(10).(*array.String)

		for i := range int(rec.NumRows()) {
			ft, err := ParseFieldType(types.Value(i))
			if err != nil {
				return nil, fmt.Errorf("schema: field %q: %w", names.Value(i), err)
			}
			f := Field{
				FieldType:       ft,
				Nullable:        nullable.Value(i),
				OverridesOnNull: overrides.Value(i),
			}
			if hasConstraints.Value(i) {
				f.Constraints = &FieldConstraints{
					Required:  required.Value(i),
					MinValue:  floatAt(minValue, i),
					MaxValue:  floatAt(maxValue, i),
					MinLength: int32At(minLength, i),
					MaxLength: int32At(maxLength, i),
				}
				if regex.IsValid(i) {
					re := regex.Value(i)
					f.Constraints.Regex = &re
				}
			}
			out.Fields[names.Value(i)] = f
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("schema: reading arrow batch: %w", err)
	}
	return out, nil
}

// ArrowSchema maps the schema onto an Arrow record layout, one column per
// field in name order.
func (s *Schema) ArrowSchema() *arrow.Schema {
	names := s.FieldNames()
	fields := make([]arrow.Field, 0, len(names))
	for _, name := range names {
		f := s.Fields[name]
		fields = append(fields, arrow.Field{
			Name:     name,
			Type:     arrowType(f.FieldType),
			Nullable: f.Nullable,
		})
	}
	return arrow.NewSchema(fields, metadataFor(s.Name))
}

func arrowType(ft FieldType) arrow.DataType {
	if ft.Array != nil {
		return arrow.ListOf(arrowType(ft.Array.ElementType))
	}
	switch ft.Primitive {
	case Number:
		return arrow.PrimitiveTypes.Float64
	case Boolean:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

func metadataFor(name string) *arrow.Metadata {
	md := arrow.NewMetadata([]string{MetaSchemaName}, []string{name})
	return &md
}

func appendFloat(b *array.Float64Builder, v *float64) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

func appendInt32(b *array.Int32Builder, v *int32) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

func floatAt(a *array.Float64, i int) *float64 {
	if a.IsNull(i) {
		return nil
	}
	v := a.Value(i)
	return &v
}

func int32At(a *array.Int32, i int) *int32 {
	if a.IsNull(i) {
		return nil
	}
	v := a.Value(i)
	return &v
}
