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
	"sort"

	"github.com/apache/arrow-go/v18/arrow/array"
)

// Frame is an ordered set of equally long named columns.
//
// Most methods return a new frame and leave the receiver untouched. Set is
// the only in-place mutation; it bumps Version so callers holding the same
// pointer can tell that the contents changed.
type Frame struct {
	cols    []*Series
	index   map[string]int
	rows    int
	version uint64
}

// New builds a frame from series of equal length. It panics when the
// lengths differ or a name repeats.
func New(series ...*Series) *Frame {
	return mustFrame(series...)
}

// FromSeries builds a frame from series of equal length.
func FromSeries(series ...*Series) (*Frame, error) {
	return newFrame(series)
}

func mustFrame(series ...*Series) *Frame {
	f, err := newFrame(series)
	if err != nil {
		panic(err)
	}
	return f
}

func newFrame(series []*Series) (*Frame, error) {
	f := &Frame{
		cols:  make([]*Series, 0, len(series)),
		index: make(map[string]int, len(series)),
	}
	for i, s := range series {
		if s == nil {
			return nil, fmt.Errorf("%w: column %d is nil", ErrTypeMismatch, i)
		}
		if _, dup := f.index[s.name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, s.name)
		}
		if i == 0 {
			f.rows = s.Len()
		} else if s.Len() != f.rows {
			return nil, fmt.Errorf("%w: column %s has %d rows, expected %d", ErrLengthMismatch, s.name, s.Len(), f.rows)
		}
		f.index[s.name] = len(f.cols)
		f.cols = append(f.cols, s)
	}
	return f, nil
}

func (f *Frame) check() {
	if f == nil {
		panic(ErrNoDataset)
	}
}

// Version returns the mutation counter of the frame.
func (f *Frame) Version() uint64 {
	if f == nil {
		return 0
	}
	return f.version
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	f.check()
	names := make([]string, len(f.cols))
	for i, s := range f.cols {
		names[i] = s.name
	}
	return names
}

// Dtypes returns the dtype name of every column in order.
func (f *Frame) Dtypes() []string {
	f.check()
	out := make([]string, len(f.cols))
	for i, s := range f.cols {
		out[i] = s.kind.String()
	}
	return out
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	f.check()
	return f.rows
}

// Len is an alias of NumRows.
func (f *Frame) Len() int { return f.NumRows() }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int {
	f.check()
	return len(f.cols)
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool {
	f.check()
	_, ok := f.index[name]
	return ok
}

// Col returns the named column. It panics with a *KeyError when the
// column does not exist.
func (f *Frame) Col(name string) *Series {
	f.check()
	i, ok := f.index[name]
	if !ok {
		missing(name)
	}
	return f.cols[i]
}

// Series returns the columns in order.
func (f *Frame) Series() []*Series {
	f.check()
	out := make([]*Series, len(f.cols))
	copy(out, f.cols)
	return out
}

// Cell returns the value at row in the named column.
func (f *Frame) Cell(row int, name string) any {
	return f.Col(name).Value(row)
}

// Row returns the values of one row in column order.
func (f *Frame) Row(row int) []any {
	f.check()
	if row < 0 || row >= f.rows {
		panic(fmt.Errorf("%w: %d (rows %d)", ErrInvalidRow, row, f.rows))
	}
	out := make([]any, len(f.cols))
	for i, s := range f.cols {
		out[i] = valueAt(s.arr, row)
	}
	return out
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	f.check()
	return f.slice(0, clamp(n, f.rows))
}

// Tail returns the last n rows.
func (f *Frame) Tail(n int) *Frame {
	f.check()
	n = clamp(n, f.rows)
	return f.slice(f.rows-n, f.rows)
}

func clamp(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}

func (f *Frame) slice(from, to int) *Frame {
	series := make([]*Series, len(f.cols))
	for i, s := range f.cols {
		series[i] = &Series{name: s.name, kind: s.kind, arr: array.NewSlice(s.arr, int64(from), int64(to))}
	}
	return mustFrame(series...)
}

// take returns the rows at idx, in that order.
func (f *Frame) take(idx []int) *Frame {
	series := make([]*Series, len(f.cols))
	for i, s := range f.cols {
		src := s.arr
		series[i] = mustSeries(s.name, s.kind, len(idx), func(j int) any { return valueAt(src, idx[j]) })
	}
	if len(series) == 0 {
		return &Frame{index: map[string]int{}}
	}
	return mustFrame(series...)
}

// Select returns a frame with only the named columns, in the given order.
func (f *Frame) Select(names ...string) *Frame {
	f.check()
	series := make([]*Series, len(names))
	for i, name := range names {
		series[i] = f.Col(name)
	}
	return mustFrame(series...)
}

// Drop returns a frame without the named columns.
func (f *Frame) Drop(names ...string) *Frame {
	f.check()
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if !f.Has(name) {
			missing(name)
		}
		drop[name] = true
	}
	series := make([]*Series, 0, len(f.cols))
	for _, s := range f.cols {
		if !drop[s.name] {
			series = append(series, s)
		}
	}
	return f.rebuild(series)
}

func (f *Frame) rebuild(series []*Series) *Frame {
	if len(series) == 0 {
		return &Frame{index: map[string]int{}, rows: f.rows}
	}
	return mustFrame(series...)
}

// DropNA returns the rows that contain no null value.
func (f *Frame) DropNA() *Frame {
	f.check()
	m := make(Mask, f.rows)
	for r := range m {
		m[r] = true
		for _, s := range f.cols {
			if s.arr.IsNull(r) {
				m[r] = false
				break
			}
		}
	}
	return f.Filter(m)
}

// Filter returns the rows selected by the mask.
func (f *Frame) Filter(m Mask) *Frame {
	f.check()
	if len(m) != f.rows {
		panic(fmt.Errorf("%w: mask has %d entries, frame has %d rows", ErrLengthMismatch, len(m), f.rows))
	}
	return f.take(m.indices())
}

// SortBy returns the rows ordered by a column. Nulls sort last.
func (f *Frame) SortBy(name string, ascending bool) *Frame {
	s := f.Col(name)
	idx := make([]int, f.rows)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := valueAt(s.arr, idx[a]), valueAt(s.arr, idx[b])
		if va == nil || vb == nil {
			return vb == nil && va != nil
		}
		c := compareValues(va, vb)
		if ascending {
			return c < 0
		}
		return c > 0
	})
	return f.take(idx)
}

// Set adds or replaces a column in place.
func (f *Frame) Set(name string, s *Series) {
	f.check()
	if s == nil {
		typeMismatch("Set", "column '%s' is nil", name)
	}
	if len(f.cols) > 0 && s.Len() != f.rows {
		panic(fmt.Errorf("%w: column %s has %d rows, frame has %d", ErrLengthMismatch, name, s.Len(), f.rows))
	}
	s = s.Rename(name)
	if i, ok := f.index[name]; ok {
		f.cols[i] = s
	} else {
		f.index[name] = len(f.cols)
		f.cols = append(f.cols, s)
		f.rows = s.Len()
	}
	f.version++
}

// WithColumn returns a copy of the frame with a column added or replaced.
func (f *Frame) WithColumn(name string, s *Series) *Frame {
	c := f.Copy()
	c.Set(name, s)
	c.version = 0
	return c
}

// Rename returns a copy of the frame with one column renamed.
func (f *Frame) Rename(from, to string) *Frame {
	f.check()
	series := make([]*Series, len(f.cols))
	for i, s := range f.cols {
		series[i] = s
	}
	i, ok := f.index[from]
	if !ok {
		missing(from)
	}
	series[i] = series[i].Rename(to)
	return mustFrame(series...)
}

// Copy returns a shallow copy sharing the immutable column data.
func (f *Frame) Copy() *Frame {
	f.check()
	c := &Frame{
		cols:  make([]*Series, len(f.cols)),
		index: make(map[string]int, len(f.index)),
		rows:  f.rows,
	}
	copy(c.cols, f.cols)
	for k, v := range f.index {
		c.index[k] = v
	}
	return c
}
