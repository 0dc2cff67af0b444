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

// Package profile derives the descriptive summary of a dataset that is
// returned to clients and handed to the code generation backend.
package profile

import (
	"github.com/magpierre/dsb-interpreter/internal/frame"
)

const (
	// SampleRows is the number of leading rows copied into a profile.
	SampleRows = 3
	// CategoricalCap is the number of distinct values listed per text column.
	CategoricalCap = 20
	// Ellipsis terminates a categorical value list that was capped.
	Ellipsis = "..."
)

// Range holds the extent of a numeric column. Min and Max are int64 for
// integer columns and float64 for floating-point columns.
type Range struct {
	Min any `json:"min"`
	Max any `json:"max"`
}

// Profile is a read-only snapshot of a dataset's shape and value ranges.
type Profile struct {
	Columns           []string        `json:"columns"`
	Dtypes            Ordered[string] `json:"dtypes"`
	SampleRows        []Ordered[any]  `json:"sample_rows"`
	NumericalRanges   Ordered[Range]  `json:"numerical_ranges"`
	CategoricalValues Ordered[[]any]  `json:"categorical_values"`
}

// Compute builds the profile of f. A nil frame has no profile.
func Compute(f *frame.Frame) *Profile {
	if f == nil {
		return nil
	}

	p := &Profile{
		Columns:    f.Columns(),
		SampleRows: make([]Ordered[any], 0, SampleRows),
	}

	series := f.Series()
	for _, s := range series {
		p.Dtypes.Set(s.Name(), s.Dtype())
	}

	head := f.Head(SampleRows)
	for r := 0; r < head.NumRows(); r++ {
		var row Ordered[any]
		for c, v := range head.Row(r) {
			row.Set(series[c].Name(), v)
		}
		p.SampleRows = append(p.SampleRows, row)
	}

	for _, s := range series {
		switch s.Kind() {
		case frame.KindInt, frame.KindFloat:
			lo, hi := s.Min(), s.Max()
			if lo == nil {
				continue
			}
			p.NumericalRanges.Set(s.Name(), Range{Min: lo, Max: hi})

		case frame.KindString:
			p.CategoricalValues.Set(s.Name(), capValues(s.Unique()))
		}
	}

	return p
}

func capValues(vals []any) []any {
	if len(vals) <= CategoricalCap {
		return vals
	}
	out := make([]any, 0, CategoricalCap+1)
	out = append(out, vals[:CategoricalCap]...)
	return append(out, Ellipsis)
}
