// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package eventstore

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// rpcTag is the struct tag naming the Arrow column of a parameter or result
// field: `rpc:"column_name"`. Pointer fields are nullable columns.
const rpcTag = "rpc"

// columnInfo describes one tagged struct field.
type columnInfo struct {
	index    int
	name     string
	goType   reflect.Type // pointer stripped
	nullable bool
}

// rowLayout is the cached Arrow layout of a tagged struct type.
type rowLayout struct {
	schema  *arrow.Schema
	columns []columnInfo
}

var layouts sync.Map // reflect.Type -> *rowLayout

// goTypeToArrowType maps a Go reflect.Type to an Arrow DataType.
func goTypeToArrowType(t reflect.Type) (arrow.DataType, error) {
	switch t.Kind() {
	case reflect.String:
		return arrow.BinaryTypes.String, nil
	case reflect.Int64, reflect.Int:
		return arrow.PrimitiveTypes.Int64, nil
	case reflect.Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case reflect.Uint64:
		return arrow.PrimitiveTypes.Uint64, nil
	case reflect.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case reflect.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return arrow.BinaryTypes.Binary, nil
		}
	}
	return nil, fmt.Errorf("unsupported Go type: %v (kind: %v)", t, t.Kind())
}

// layoutOf builds (once) the Arrow layout of a struct type from its rpc tags.
func layoutOf(t reflect.Type) (*rowLayout, error) {
	if cached, ok := layouts.Load(t); ok {
		return cached.(*rowLayout), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct type, got %v", t.Kind())
	}
	var (
		fields  []arrow.Field
		columns []columnInfo
	)
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(rpcTag)
		if tag == "" || tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		col := columnInfo{index: i, name: name, goType: f.Type}
		if col.goType.Kind() == reflect.Ptr {
			col.nullable = true
			col.goType = col.goType.Elem()
		}
		dt, err := goTypeToArrowType(col.goType)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fields = append(fields, arrow.Field{Name: name, Type: dt, Nullable: col.nullable})
		columns = append(columns, col)
	}
	layout := &rowLayout{schema: arrow.NewSchema(fields, nil), columns: columns}
	actual, _ := layouts.LoadOrStore(t, layout)
	return actual.(*rowLayout), nil
}

// schemaFor returns the Arrow schema of T.
func schemaFor[T any]() (*arrow.Schema, error) {
	layout, err := layoutOf(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return layout.schema, nil
}

// encodeRows builds one record batch holding rows, with md attached to the
// batch schema.
func encodeRows[T any](rows []T, md *arrow.Metadata) (arrow.Record, error) {
	layout, err := layoutOf(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	sc := arrow.NewSchema(layout.schema.Fields(), md)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), sc)
	defer b.Release()

	for _, row := range rows {
		rv := reflect.ValueOf(row)
		for ci, col := range layout.columns {
			fv := rv.Field(col.index)
			if col.nullable {
				if fv.IsNil() {
					b.Field(ci).AppendNull()
					continue
				}
				fv = fv.Elem()
			}
			if err := appendValue(b.Field(ci), fv); err != nil {
				return nil, fmt.Errorf("column %s: %w", col.name, err)
			}
		}
	}
	return b.NewRecord(), nil
}

// appendValue appends a single Go value to an Arrow array builder.
func appendValue(b array.Builder, v reflect.Value) error {
	switch bb := b.(type) {
	case *array.StringBuilder:
		bb.Append(v.String())
	case *array.Int64Builder:
		bb.Append(v.Int())
	case *array.Int32Builder:
		bb.Append(int32(v.Int()))
	case *array.Uint64Builder:
		bb.Append(v.Uint())
	case *array.Float64Builder:
		bb.Append(v.Float())
	case *array.BooleanBuilder:
		bb.Append(v.Bool())
	case *array.BinaryBuilder:
		if v.IsNil() {
			bb.AppendNull()
		} else {
			bb.Append(v.Bytes())
		}
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

// decodeRows reads every row of rec into values of T. Columns are matched by
// name; columns missing from rec leave the field at its zero value.
func decodeRows[T any](rec arrow.Record) ([]T, error) {
	layout, err := layoutOf(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	colIdx := make([]int, len(layout.columns))
	for ci, col := range layout.columns {
		colIdx[ci] = -1
		idx := rec.Schema().FieldIndices(col.name)
		if len(idx) == 0 {
			continue
		}
		want := layout.schema.Field(ci).Type
		if got := rec.Schema().Field(idx[0]).Type; !arrow.TypeEqual(want, got) {
			return nil, fmt.Errorf("column %s: got %s, want %s", col.name, got, want)
		}
		colIdx[ci] = idx[0]
	}

	out := make([]T, rec.NumRows())
	for row := range out {
		rv := reflect.ValueOf(&out[row]).Elem()
		for ci, col := range layout.columns {
			if colIdx[ci] < 0 {
				continue
			}
			arr := rec.Column(colIdx[ci])
			if arr.IsNull(row) {
				continue
			}
			field := rv.Field(col.index)
			if col.nullable {
				ptr := reflect.New(col.goType)
				field.Set(ptr)
				field = ptr.Elem()
			}
			if err := setFromArrow(field, arr, row); err != nil {
				return nil, fmt.Errorf("column %s: %w", col.name, err)
			}
		}
	}
	return out, nil
}

// setFromArrow sets a struct field value from an Arrow array at index i.
func setFromArrow(field reflect.Value, arr arrow.Array, i int) error {
	switch c := arr.(type) {
	case *array.String:
		field.SetString(c.Value(i))
	case *array.Int64:
		field.SetInt(c.Value(i))
	case *array.Int32:
		field.SetInt(int64(c.Value(i)))
	case *array.Uint64:
		field.SetUint(c.Value(i))
	case *array.Float64:
		field.SetFloat(c.Value(i))
	case *array.Boolean:
		field.SetBool(c.Value(i))
	case *array.Binary:
		// Value aliases the record's buffer.
		field.SetBytes(append([]byte(nil), c.Value(i)...))
	default:
		return fmt.Errorf("unsupported Arrow array type: %T", arr)
	}
	return nil
}
