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
	"errors"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *Frame {
	t.Helper()
	amount, err := NewSeries("amount", KindFloat, []any{10.5, nil, 3.25, 8.0})
	require.NoError(t, err)
	return New(
		Ints("id", 1, 2, 3, 4),
		Strings("name", "ann", "bob", "cid", "ann"),
		amount,
		Bools("active", true, false, true, true),
	)
}

func TestNewRejectsUnequalColumns(t *testing.T) {
	_, err := FromSeries(Ints("a", 1, 2), Ints("b", 1))
	require.ErrorIs(t, err, ErrLengthMismatch)

	_, err = FromSeries(Ints("a", 1), Ints("a", 2))
	require.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestColumnsAndKinds(t *testing.T) {
	f := sample(t)
	assert.Equal(t, []string{"id", "name", "amount", "active"}, f.Columns())
	assert.Equal(t, []string{"int64", "object", "float64", "bool"}, f.Dtypes())
	assert.Equal(t, 4, f.NumRows())
	assert.True(t, f.Col("amount").IsNull(1))
	assert.Nil(t, f.Cell(1, "amount"))
	assert.Equal(t, int64(3), f.Cell(2, "id"))
}

func TestColPanicsWithKeyError(t *testing.T) {
	f := sample(t)
	defer func() {
		r := recover()
		ke, ok := r.(*KeyError)
		require.True(t, ok, "expected *KeyError, got %T", r)
		assert.Equal(t, "missing", ke.Key)
		assert.True(t, errors.Is(ke, ErrColumnNotFound))
	}()
	f.Col("missing")
}

func TestSumOnTextPanicsWithTypeError(t *testing.T) {
	f := sample(t)
	assert.PanicsWithError(t, "unsupported operation Sum: column 'name' has non-numeric dtype object", func() {
		f.Col("name").Sum()
	})
}

func TestAggregates(t *testing.T) {
	f := sample(t)
	assert.Equal(t, 21.75, f.Col("amount").Sum())
	assert.InDelta(t, 7.25, f.Col("amount").Mean(), 1e-9)
	assert.Equal(t, int64(1), f.Col("id").Min())
	assert.Equal(t, 10.5, f.Col("amount").Max())
	assert.Equal(t, 3, f.Col("amount").Count())
	assert.Equal(t, []any{"ann", "bob", "cid"}, f.Col("name").Unique())
	assert.Equal(t, 3, f.Col("name").NUnique())
}

func TestDropNAAndFilter(t *testing.T) {
	f := sample(t)
	clean := f.DropNA()
	assert.Equal(t, 3, clean.NumRows())
	assert.Equal(t, []any{int64(1), int64(3), int64(4)}, clean.Col("id").Values())

	big := f.Filter(f.Col("amount").Gt(5).And(f.Col("active").Eq(true)))
	assert.Equal(t, []any{int64(1), int64(4)}, big.Col("id").Values())
}

func TestSetBumpsVersion(t *testing.T) {
	f := sample(t)
	before := f.Version()
	f.Set("double", f.Col("id").Add(f.Col("id")))
	assert.Greater(t, f.Version(), before)
	assert.Equal(t, KindInt, f.Col("double").Kind())
	assert.Equal(t, int64(8), f.Cell(3, "double"))

	assert.Panics(t, func() { f.Set("short", Ints("short", 1)) })
}

func TestDivIsFloatAndNullsOnZero(t *testing.T) {
	q := Ints("a", 6, 1).Div(Ints("b", 3, 0))
	assert.Equal(t, KindFloat, q.Kind())
	assert.Equal(t, 2.0, q.Value(0))
	assert.Nil(t, q.Value(1))
}

func TestSortByAndHead(t *testing.T) {
	f := sample(t)
	sorted := f.SortBy("amount", false)
	assert.Equal(t, []any{int64(1), int64(4), int64(3), int64(2)}, sorted.Col("id").Values())
	assert.Equal(t, 2, f.Head(2).NumRows())
	assert.Equal(t, []any{int64(4)}, f.Tail(1).Col("id").Values())
	assert.Equal(t, 4, f.Head(99).NumRows())
}

func TestQuery(t *testing.T) {
	f := sample(t)

	tests := []struct {
		name  string
		query string
		ids   []any
	}{
		{"numeric", "amount > 5", []any{int64(1), int64(4)}},
		{"equal text ignores case", "name = ANN", []any{int64(1), int64(4)}},
		{"and", "amount >= 3.25 AND name != ann", []any{int64(3)}},
		{"or", "id = 2 or id = 3", []any{int64(2), int64(3)}},
		{"contains", `name ~ "b"`, []any{int64(2)}},
		{"quoted keyword", `name = "and"`, []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Query(tt.query)
			assert.Equal(t, tt.ids, got.Col("id").Values())
		})
	}
}

func TestQueryErrors(t *testing.T) {
	_, err := ParseQuery("nope > 1", []string{"id"})
	var ke *KeyError
	require.ErrorAs(t, err, &ke)

	_, err = ParseQuery("id 1", []string{"id"})
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = ParseQuery("id > 1 AND", []string{"id"})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestGroupBy(t *testing.T) {
	f := sample(t)
	sums := f.GroupBy("name").Sum("amount")
	assert.Equal(t, []string{"name", "amount"}, sums.Columns())
	assert.Equal(t, []any{"ann", "bob", "cid"}, sums.Col("name").Values())
	assert.Equal(t, []any{18.5, 0.0, 3.25}, sums.Col("amount").Values())

	counts := f.GroupBy("active").Count()
	assert.Equal(t, []any{int64(3), int64(1)}, counts.Col("count").Values())
}

func TestSplitRoundTrip(t *testing.T) {
	f := sample(t)
	f.Set("big", Ints("big", math.MaxInt64, -1, 0, 7))

	payload, err := f.MarshalSplit()
	require.NoError(t, err)

	back, err := FromSplitJSON(payload)
	require.NoError(t, err)

	assert.Equal(t, f.Columns(), back.Columns())
	assert.Equal(t, f.Dtypes(), back.Dtypes())
	for r := 0; r < f.NumRows(); r++ {
		assert.Equal(t, f.Row(r), back.Row(r), "row %d", r)
	}
}

func TestSplitPayloadShape(t *testing.T) {
	f := New(Ints("a", 1, 2), Strings("b", "x", "y"))
	payload, err := f.MarshalSplit()
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"columns":["a","b"],"index":[0,1],"data":[[1,"x"],[2,"y"]],"dtypes":["int64","object"]}`,
		string(payload))
}

func TestFromTableWidensTypes(t *testing.T) {
	i32 := array.NewInt32Builder(mem)
	i32.AppendValues([]int32{1, 2}, nil)
	f32 := array.NewFloat32Builder(mem)
	f32.AppendValues([]float32{0.5, 1.5}, []bool{true, false})

	a, b := i32.NewArray(), f32.NewArray()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "n", Type: arrow.PrimitiveTypes.Int32},
		{Name: "x", Type: arrow.PrimitiveTypes.Float32, Nullable: true},
	}, nil)
	cols := []arrow.Column{
		*arrow.NewColumn(schema.Field(0), arrow.NewChunked(a.DataType(), []arrow.Array{a})),
		*arrow.NewColumn(schema.Field(1), arrow.NewChunked(b.DataType(), []arrow.Array{b})),
	}
	tbl := array.NewTable(schema, cols, 2)
	defer tbl.Release()

	f, err := FromTable(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"int64", "float64"}, f.Dtypes())
	assert.Equal(t, []any{0.5, nil}, f.Col("x").Values())

	out := f.Table()
	assert.Equal(t, int64(2), out.NumRows())
	assert.Equal(t, arrow.INT64, out.Schema().Field(0).Type.ID())
}

func TestStringRendersGrid(t *testing.T) {
	f := New(Ints("a", 1, 22), Strings("b", "x", ""))
	assert.Equal(t, "    a  b\n0   1  x\n1  22   \n[2 rows x 2 columns]", f.String())
}
