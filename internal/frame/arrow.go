// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frame

import (
	"fmt"
	"math"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

var mem = memory.NewGoAllocator()

// FromTable converts an Arrow table into a Frame. Integer and floating
// point columns of any width are widened to 64 bits; types without a
// native kind (dates, timestamps, decimals, nested values) become text.
func FromTable(tbl arrow.Table) (*Frame, error) {
	if tbl == nil {
		return nil, ErrNoDataset
	}

	schema := tbl.Schema()
	series := make([]*Series, 0, schema.NumFields())
	for i, field := range schema.Fields() {
		chunks := tbl.Column(i).Data().Chunks()

		var arr arrow.Array
		switch len(chunks) {
		case 0:
			arr = emptyArray(kindOf(field.Type.ID()))
		case 1:
			arr = chunks[0]
			arr.Retain()
		default:
			joined, err := array.Concatenate(chunks, mem)
			if err != nil {
				return nil, fmt.Errorf("failed to concatenate column %s: %w", field.Name, err)
			}
			arr = joined
		}

		s, err := seriesFromArray(field.Name, arr)
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}

	return newFrame(series)
}

// Table returns the frame as a single-chunk Arrow table.
func (f *Frame) Table() arrow.Table {
	f.check()
	fields := make([]arrow.Field, len(f.cols))
	columns := make([]arrow.Column, len(f.cols))
	for i, s := range f.cols {
		fields[i] = arrow.Field{Name: s.name, Type: s.arr.DataType(), Nullable: true}
		chunked := arrow.NewChunked(s.arr.DataType(), []arrow.Array{s.arr})
		columns[i] = *arrow.NewColumn(fields[i], chunked)
	}
	return array.NewTable(arrow.NewSchema(fields, nil), columns, int64(f.rows))
}

// seriesFromArray wraps an Arrow array, converting it to one of the four
// storage types when needed.
func seriesFromArray(name string, arr arrow.Array) (*Series, error) {
	kind := kindOf(arr.DataType().ID())
	switch arr.DataType().ID() {
	case arrow.INT64, arrow.FLOAT64, arrow.STRING, arrow.BOOL:
		return &Series{name: name, kind: kind, arr: arr}, nil
	}

	converted, err := buildArray(kind, arr.Len(), func(i int) any { return widen(arr, i) })
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", name, err)
	}
	return &Series{name: name, kind: kind, arr: converted}, nil
}

func emptyArray(kind Kind) arrow.Array {
	arr, _ := buildArray(kind, 0, nil)
	return arr
}

// buildArray appends n values produced by at into a fresh array of the
// given kind. A nil value, NaN or an infinity is stored as null.
func buildArray(kind Kind, n int, at func(i int) any) (arrow.Array, error) {
	switch kind {
	case KindInt:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.Reserve(n)
		for i := 0; i < n; i++ {
			v := at(i)
			if v == nil {
				b.AppendNull()
				continue
			}
			x, ok := toInt64(v)
			if !ok {
				return nil, fmt.Errorf("%w: cannot store %T in an int64 column", ErrTypeMismatch, v)
			}
			b.Append(x)
		}
		return b.NewArray(), nil

	case KindFloat:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.Reserve(n)
		for i := 0; i < n; i++ {
			v := at(i)
			if v == nil {
				b.AppendNull()
				continue
			}
			x, ok := toFloat64(v)
			if !ok {
				return nil, fmt.Errorf("%w: cannot store %T in a float64 column", ErrTypeMismatch, v)
			}
			if math.IsNaN(x) || math.IsInf(x, 0) {
				b.AppendNull()
				continue
			}
			b.Append(x)
		}
		return b.NewArray(), nil

	case KindBool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.Reserve(n)
		for i := 0; i < n; i++ {
			v := at(i)
			if v == nil {
				b.AppendNull()
				continue
			}
			x, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: cannot store %T in a bool column", ErrTypeMismatch, v)
			}
			b.Append(x)
		}
		return b.NewArray(), nil

	default:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.Reserve(n)
		for i := 0; i < n; i++ {
			v := at(i)
			if v == nil {
				b.AppendNull()
				continue
			}
			if s, ok := v.(string); ok {
				b.Append(s)
				continue
			}
			b.Append(formatScalar(v))
		}
		return b.NewArray(), nil
	}
}

// valueAt returns the cell at pos as int64, float64, string, bool or nil.
func valueAt(arr arrow.Array, pos int) any {
	if arr.IsNull(pos) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(pos)
	case *array.Float64:
		return a.Value(pos)
	case *array.String:
		return a.Value(pos)
	case *array.Boolean:
		return a.Value(pos)
	}
	return widen(arr, pos)
}

// widen returns the typed value of an arbitrary Arrow cell, mapped onto
// the frame's four storage types.
func widen(col arrow.Array, pos int) any {
	if col.IsNull(pos) {
		return nil
	}

	switch col.DataType().ID() {
	case arrow.STRING:
		return col.(*array.String).Value(pos)
	case arrow.LARGE_STRING:
		return col.(*array.LargeString).Value(pos)
	case arrow.BINARY:
		return string(col.(*array.Binary).Value(pos))
	case arrow.BOOL:
		return col.(*array.Boolean).Value(pos)
	case arrow.INT8:
		return int64(col.(*array.Int8).Value(pos))
	case arrow.INT16:
		return int64(col.(*array.Int16).Value(pos))
	case arrow.INT32:
		return int64(col.(*array.Int32).Value(pos))
	case arrow.INT64:
		return col.(*array.Int64).Value(pos)
	case arrow.UINT8:
		return int64(col.(*array.Uint8).Value(pos))
	case arrow.UINT16:
		return int64(col.(*array.Uint16).Value(pos))
	case arrow.UINT32:
		return int64(col.(*array.Uint32).Value(pos))
	case arrow.UINT64:
		return int64(col.(*array.Uint64).Value(pos))
	case arrow.FLOAT16:
		return float64(col.(*array.Float16).Value(pos).Float32())
	case arrow.FLOAT32:
		return float64(col.(*array.Float32).Value(pos))
	case arrow.FLOAT64:
		return col.(*array.Float64).Value(pos)
	case arrow.DATE32:
		return col.(*array.Date32).Value(pos).ToTime().Format("2006-01-02")
	case arrow.DATE64:
		return col.(*array.Date64).Value(pos).ToTime().Format("2006-01-02")
	case arrow.TIMESTAMP:
		ts := col.(*array.Timestamp)
		unit := ts.DataType().(*arrow.TimestampType).Unit
		return ts.Value(pos).ToTime(unit).Format("2006-01-02 15:04:05.999999999")
	case arrow.DECIMAL128:
		return col.(*array.Decimal128).Value(pos).BigInt().String()
	case arrow.STRUCT:
		b, _ := col.(*array.Struct).MarshalJSON()
		return string(b)
	default:
		return col.ValueStr(pos)
	}
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int64(x), true
		}
	case float32:
		if float64(x) == math.Trunc(float64(x)) {
			return int64(x), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// formatScalar renders a cell value the way it is shown in text output.
func formatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return FormatFloat(x)
	}
	return fmt.Sprintf("%v", v)
}

// FormatFloat renders a float with the fewest digits that round-trip,
// avoiding exponent notation for ordinary magnitudes.
func FormatFloat(x float64) string {
	if math.IsNaN(x) {
		return "NaN"
	}
	if a := math.Abs(x); a != 0 && (a >= 1e16 || a < 1e-6) {
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}
