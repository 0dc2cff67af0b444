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
	"strings"
)

type arith func(a, b float64) float64

// Add returns the element-wise sum of two numeric series.
func (s *Series) Add(o *Series) *Series {
	return s.combine("Add", o, func(a, b float64) float64 { return a + b }, true)
}

// Sub returns the element-wise difference of two numeric series.
func (s *Series) Sub(o *Series) *Series {
	return s.combine("Sub", o, func(a, b float64) float64 { return a - b }, true)
}

// Mul returns the element-wise product of two numeric series.
func (s *Series) Mul(o *Series) *Series {
	return s.combine("Mul", o, func(a, b float64) float64 { return a * b }, true)
}

// Div returns the element-wise quotient of two numeric series as float64.
// Division by zero yields null.
func (s *Series) Div(o *Series) *Series {
	return s.combine("Div", o, func(a, b float64) float64 { return a / b }, false)
}

// Scale multiplies every value by f.
func (s *Series) Scale(f float64) *Series {
	s.requireNumeric("Scale")
	return mustSeries(s.name, KindFloat, s.Len(), func(i int) any {
		v := valueAt(s.arr, i)
		if v == nil {
			return nil
		}
		x, _ := toFloat64(v)
		return x * f
	})
}

// Offset adds f to every value.
func (s *Series) Offset(f float64) *Series {
	s.requireNumeric("Offset")
	return mustSeries(s.name, KindFloat, s.Len(), func(i int) any {
		v := valueAt(s.arr, i)
		if v == nil {
			return nil
		}
		x, _ := toFloat64(v)
		return x + f
	})
}

func (s *Series) combine(op string, o *Series, fn arith, keepInt bool) *Series {
	if o == nil {
		typeMismatch(op, "operand is nil")
	}
	if !s.kind.Numeric() || !o.kind.Numeric() {
		typeMismatch(op, "'%s' (%s) and '%s' (%s)", s.name, s.kind, o.name, o.kind)
	}
	if s.Len() != o.Len() {
		panic(fmt.Errorf("%w: %s has %d values, %s has %d", ErrLengthMismatch, s.name, s.Len(), o.name, o.Len()))
	}

	kind := KindFloat
	if keepInt && s.kind == KindInt && o.kind == KindInt {
		kind = KindInt
	}
	return mustSeries(s.name, kind, s.Len(), func(i int) any {
		a, b := valueAt(s.arr, i), valueAt(o.arr, i)
		if a == nil || b == nil {
			return nil
		}
		x, _ := toFloat64(a)
		y, _ := toFloat64(b)
		r := fn(x, y)
		if kind == KindInt {
			return int64(r)
		}
		return r
	})
}

// Apply maps fn over every value. The result kind is inferred from the
// first non-null value fn returns.
func (s *Series) Apply(fn func(v any) any) *Series {
	out := make([]any, s.Len())
	kind := s.kind
	inferred := false
	for i := range out {
		r := fn(valueAt(s.arr, i))
		out[i] = normalise(r)
		if !inferred && out[i] != nil {
			kind = kindOfValue(out[i])
			inferred = true
		}
	}
	return mustSeries(s.name, kind, len(out), func(i int) any { return out[i] })
}

func normalise(v any) any {
	if v == nil {
		return nil
	}
	switch v.(type) {
	case string, bool, float64, int64:
		return v
	case float32:
		f, _ := toFloat64(v)
		return f
	}
	if i, ok := toInt64(v); ok {
		return i
	}
	return fmt.Sprintf("%v", v)
}

func kindOfValue(v any) Kind {
	switch v.(type) {
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case bool:
		return KindBool
	}
	return KindString
}

// Gt returns a mask of values greater than v.
func (s *Series) Gt(v float64) Mask { return s.numericMask("Gt", func(x float64) bool { return x > v }) }

// Ge returns a mask of values greater than or equal to v.
func (s *Series) Ge(v float64) Mask { return s.numericMask("Ge", func(x float64) bool { return x >= v }) }

// Lt returns a mask of values less than v.
func (s *Series) Lt(v float64) Mask { return s.numericMask("Lt", func(x float64) bool { return x < v }) }

// Le returns a mask of values less than or equal to v.
func (s *Series) Le(v float64) Mask { return s.numericMask("Le", func(x float64) bool { return x <= v }) }

func (s *Series) numericMask(op string, pred func(x float64) bool) Mask {
	s.requireNumeric(op)
	m := make(Mask, s.Len())
	for i := range m {
		if v := valueAt(s.arr, i); v != nil {
			x, _ := toFloat64(v)
			m[i] = pred(x)
		}
	}
	return m
}

// Eq returns a mask of values equal to v. Numbers compare by value
// regardless of width.
func (s *Series) Eq(v any) Mask {
	m := make(Mask, s.Len())
	for i := range m {
		m[i] = equalValues(valueAt(s.arr, i), v)
	}
	return m
}

// Ne returns a mask of values not equal to v.
func (s *Series) Ne(v any) Mask { return s.Eq(v).Not() }

// Contains returns a mask of text values containing sub, ignoring case.
func (s *Series) Contains(sub string) Mask {
	needle := strings.ToLower(sub)
	m := make(Mask, s.Len())
	for i := range m {
		if v := valueAt(s.arr, i); v != nil {
			m[i] = strings.Contains(strings.ToLower(formatScalar(v)), needle)
		}
	}
	return m
}

// NotNull returns a mask of non-null values.
func (s *Series) NotNull() Mask {
	m := make(Mask, s.Len())
	for i := range m {
		m[i] = !s.arr.IsNull(i)
	}
	return m
}

func equalValues(cell, v any) bool {
	if cell == nil || v == nil {
		return cell == nil && v == nil
	}
	if x, ok := toFloat64(cell); ok {
		if y, ok := toFloat64(v); ok {
			return x == y
		}
		return false
	}
	return cell == v
}
