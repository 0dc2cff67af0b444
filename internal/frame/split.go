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
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Split is the column-oriented wire form of a frame: column names, row
// index, row-major cell values and one dtype per column.
type Split struct {
	Columns []string `json:"columns"`
	Index   []int    `json:"index"`
	Data    [][]any  `json:"data"`
	Dtypes  []string `json:"dtypes"`
}

// ToSplit returns the split form of the frame.
func (f *Frame) ToSplit() Split {
	f.check()
	out := Split{
		Columns: f.Columns(),
		Index:   make([]int, f.rows),
		Data:    make([][]any, f.rows),
		Dtypes:  f.Dtypes(),
	}
	for r := 0; r < f.rows; r++ {
		out.Index[r] = r
		out.Data[r] = f.Row(r)
	}
	return out
}

// MarshalSplit encodes the frame in split form.
func (f *Frame) MarshalSplit() ([]byte, error) {
	return json.Marshal(f.ToSplit())
}

// FromSplitJSON rebuilds a frame from its split form. Column kinds come
// from dtypes; integer cells are decoded without passing through float64.
func FromSplitJSON(data []byte) (*Frame, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var sp Split
	if err := dec.Decode(&sp); err != nil {
		return nil, fmt.Errorf("failed to decode split payload: %w", err)
	}
	if len(sp.Dtypes) != len(sp.Columns) {
		return nil, fmt.Errorf("%w: %d columns but %d dtypes", ErrLengthMismatch, len(sp.Columns), len(sp.Dtypes))
	}

	series := make([]*Series, len(sp.Columns))
	for c, name := range sp.Columns {
		kind, err := ParseKind(sp.Dtypes[c])
		if err != nil {
			return nil, err
		}
		values := make([]any, len(sp.Data))
		for r, row := range sp.Data {
			if c >= len(row) {
				return nil, fmt.Errorf("%w: row %d has %d cells", ErrLengthMismatch, r, len(row))
			}
			v, err := decodeCell(row[c], kind)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", r, name, err)
			}
			values[r] = v
		}
		s, err := NewSeries(name, kind, values)
		if err != nil {
			return nil, err
		}
		series[c] = s
	}
	return newFrame(series)
}

func decodeCell(v any, kind Kind) (any, error) {
	n, isNum := v.(json.Number)
	if v == nil {
		return nil, nil
	}
	switch kind {
	case KindInt:
		if !isNum {
			return nil, fmt.Errorf("%w: expected integer, got %T", ErrTypeMismatch, v)
		}
		return strconv.ParseInt(n.String(), 10, 64)
	case KindFloat:
		if !isNum {
			return nil, fmt.Errorf("%w: expected number, got %T", ErrTypeMismatch, v)
		}
		return strconv.ParseFloat(n.String(), 64)
	}
	if isNum {
		return n.String(), nil
	}
	return v, nil
}
