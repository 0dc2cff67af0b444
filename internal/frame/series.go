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
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Series is a named, typed column of values.
type Series struct {
	name string
	kind Kind
	arr  arrow.Array
}

// NewSeries builds a series of the given kind. Nil entries become nulls.
func NewSeries(name string, kind Kind, values []any) (*Series, error) {
	arr, err := buildArray(kind, len(values), func(i int) any { return values[i] })
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", name, err)
	}
	return &Series{name: name, kind: kind, arr: arr}, nil
}

func mustSeries(name string, kind Kind, n int, at func(i int) any) *Series {
	arr, err := buildArray(kind, n, at)
	if err != nil {
		panic(&TypeError{Op: "build " + name, Detail: err.Error()})
	}
	return &Series{name: name, kind: kind, arr: arr}
}

// Ints builds an int64 series.
func Ints(name string, values ...int64) *Series {
	return mustSeries(name, KindInt, len(values), func(i int) any { return values[i] })
}

// Floats builds a float64 series. NaN values are stored as nulls.
func Floats(name string, values ...float64) *Series {
	return mustSeries(name, KindFloat, len(values), func(i int) any { return values[i] })
}

// Strings builds a text series.
func Strings(name string, values ...string) *Series {
	return mustSeries(name, KindString, len(values), func(i int) any { return values[i] })
}

// Bools builds a boolean series.
func Bools(name string, values ...bool) *Series {
	return mustSeries(name, KindBool, len(values), func(i int) any { return values[i] })
}

// Name returns the column name.
func (s *Series) Name() string { return s.name }

// Kind returns the element kind.
func (s *Series) Kind() Kind { return s.kind }

// Dtype returns the dtype name of the element kind.
func (s *Series) Dtype() string { return s.kind.String() }

// Len returns the number of values, nulls included.
func (s *Series) Len() int { return s.arr.Len() }

// Value returns the value at i as int64, float64, string, bool or nil.
func (s *Series) Value(i int) any {
	if i < 0 || i >= s.arr.Len() {
		panic(fmt.Errorf("%w: %d (length %d)", ErrInvalidRow, i, s.arr.Len()))
	}
	return valueAt(s.arr, i)
}

// IsNull reports whether the value at i is null.
func (s *Series) IsNull(i int) bool { return s.arr.IsNull(i) }

// NullCount returns the number of null values.
func (s *Series) NullCount() int { return s.arr.NullN() }

// Count returns the number of non-null values.
func (s *Series) Count() int { return s.arr.Len() - s.arr.NullN() }

// Values returns all values in order.
func (s *Series) Values() []any {
	out := make([]any, s.arr.Len())
	for i := range out {
		out[i] = valueAt(s.arr, i)
	}
	return out
}

// Floats returns the values as float64, with NaN for nulls.
func (s *Series) Floats() []float64 {
	s.requireNumeric("Floats")
	out := make([]float64, s.arr.Len())
	for i := range out {
		v := valueAt(s.arr, i)
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i], _ = toFloat64(v)
	}
	return out
}

// Ints returns the values as int64, with zero for nulls.
func (s *Series) Ints() []int64 {
	if s.kind != KindInt {
		typeMismatch("Ints", "column '%s' has dtype %s", s.name, s.kind)
	}
	out := make([]int64, s.arr.Len())
	for i := range out {
		if v := valueAt(s.arr, i); v != nil {
			out[i] = v.(int64)
		}
	}
	return out
}

// Strings returns the values formatted as text, with "" for nulls.
func (s *Series) Strings() []string {
	out := make([]string, s.arr.Len())
	for i := range out {
		out[i] = formatScalar(valueAt(s.arr, i))
	}
	return out
}

// Rename returns a copy of the series under a new name.
func (s *Series) Rename(name string) *Series {
	return &Series{name: name, kind: s.kind, arr: s.arr}
}

func (s *Series) requireNumeric(op string) {
	if !s.kind.Numeric() {
		typeMismatch(op, "column '%s' has non-numeric dtype %s", s.name, s.kind)
	}
}

// numbers returns the non-null values as float64.
func (s *Series) numbers(op string) []float64 {
	s.requireNumeric(op)
	out := make([]float64, 0, s.Count())
	for i := 0; i < s.arr.Len(); i++ {
		if v := valueAt(s.arr, i); v != nil {
			f, _ := toFloat64(v)
			out = append(out, f)
		}
	}
	return out
}

// Sum returns the sum of the non-null values.
func (s *Series) Sum() float64 {
	var total float64
	for _, v := range s.numbers("Sum") {
		total += v
	}
	return total
}

// Mean returns the arithmetic mean of the non-null values, or NaN when empty.
func (s *Series) Mean() float64 {
	vals := s.numbers("Mean")
	if len(vals) == 0 {
		return math.NaN()
	}
	var total float64
	for _, v := range vals {
		total += v
	}
	return total / float64(len(vals))
}

// Std returns the sample standard deviation of the non-null values.
func (s *Series) Std() float64 {
	vals := s.numbers("Std")
	if len(vals) < 2 {
		return math.NaN()
	}
	mean := s.Mean()
	var ss float64
	for _, v := range vals {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}

// Min returns the smallest non-null value. Integer columns yield int64,
// float columns float64, text columns the lexically smallest string.
func (s *Series) Min() any {
	return s.extreme("Min", -1)
}

// Max returns the largest non-null value.
func (s *Series) Max() any {
	return s.extreme("Max", 1)
}

func (s *Series) extreme(op string, sign int) any {
	if s.kind == KindBool {
		typeMismatch(op, "column '%s' has dtype bool", s.name)
	}
	var best any
	for i := 0; i < s.arr.Len(); i++ {
		v := valueAt(s.arr, i)
		if v == nil {
			continue
		}
		if best == nil || compareValues(v, best)*sign > 0 {
			best = v
		}
	}
	return best
}

// Unique returns the distinct values in first-seen order. A null is
// included once if present.
func (s *Series) Unique() []any {
	seen := make(map[any]bool)
	out := make([]any, 0)
	for i := 0; i < s.arr.Len(); i++ {
		v := valueAt(s.arr, i)
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// NUnique returns the number of distinct non-null values.
func (s *Series) NUnique() int {
	n := 0
	for _, v := range s.Unique() {
		if v != nil {
			n++
		}
	}
	return n
}

// ValueCounts returns a frame of distinct values and their counts,
// most frequent first.
func (s *Series) ValueCounts() *Frame {
	counts := make(map[any]int64)
	order := make([]any, 0)
	for i := 0; i < s.arr.Len(); i++ {
		v := valueAt(s.arr, i)
		if v == nil {
			continue
		}
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })

	n := make([]int64, len(order))
	for i, v := range order {
		n[i] = counts[v]
	}
	keys := mustSeries(s.name, s.kind, len(order), func(i int) any { return order[i] })
	return mustFrame(keys, Ints("count", n...))
}

// String renders the series as a single-column listing.
func (s *Series) String() string {
	var sb strings.Builder
	for i := 0; i < s.arr.Len(); i++ {
		fmt.Fprintf(&sb, "%d    %s\n", i, displayValue(valueAt(s.arr, i)))
	}
	fmt.Fprintf(&sb, "Name: %s, dtype: %s", s.name, s.kind)
	return sb.String()
}

// compareValues orders two non-null values of the same kind.
func compareValues(a, b any) int {
	switch x := a.(type) {
	case int64:
		y := b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		return strings.Compare(x, b.(string))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	}
	return 0
}

func displayValue(v any) string {
	if v == nil {
		return "NaN"
	}
	return formatScalar(v)
}
