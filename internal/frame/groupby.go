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

import "math"

// Grouped is a frame partitioned by the distinct values of one column.
// Groups keep first-seen order; null keys form their own group.
type Grouped struct {
	frame  *Frame
	key    string
	keys   []any
	groups [][]int
}

// GroupBy partitions the rows by the values of a column.
func (f *Frame) GroupBy(name string) *Grouped {
	s := f.Col(name)
	g := &Grouped{frame: f, key: name}
	pos := make(map[any]int)
	for r := 0; r < f.rows; r++ {
		v := valueAt(s.arr, r)
		i, ok := pos[v]
		if !ok {
			i = len(g.keys)
			pos[v] = i
			g.keys = append(g.keys, v)
			g.groups = append(g.groups, nil)
		}
		g.groups[i] = append(g.groups[i], r)
	}
	return g
}

// Count returns the number of rows per group.
func (g *Grouped) Count() *Frame {
	n := make([]int64, len(g.groups))
	for i, rows := range g.groups {
		n[i] = int64(len(rows))
	}
	return mustFrame(g.keySeries(), Ints("count", n...))
}

// Sum returns the per-group sum of a numeric column.
func (g *Grouped) Sum(name string) *Frame {
	return g.reduce("Sum", name, func(vals []float64) float64 {
		var t float64
		for _, v := range vals {
			t += v
		}
		return t
	})
}

// Mean returns the per-group mean of a numeric column.
func (g *Grouped) Mean(name string) *Frame {
	return g.reduce("Mean", name, func(vals []float64) float64 {
		if len(vals) == 0 {
			return math.NaN()
		}
		var t float64
		for _, v := range vals {
			t += v
		}
		return t / float64(len(vals))
	})
}

// Min returns the per-group minimum of a numeric column.
func (g *Grouped) Min(name string) *Frame {
	return g.reduce("Min", name, func(vals []float64) float64 {
		m := math.NaN()
		for i, v := range vals {
			if i == 0 || v < m {
				m = v
			}
		}
		return m
	})
}

// Max returns the per-group maximum of a numeric column.
func (g *Grouped) Max(name string) *Frame {
	return g.reduce("Max", name, func(vals []float64) float64 {
		m := math.NaN()
		for i, v := range vals {
			if i == 0 || v > m {
				m = v
			}
		}
		return m
	})
}

func (g *Grouped) reduce(op, name string, fn func([]float64) float64) *Frame {
	s := g.frame.Col(name)
	s.requireNumeric(op)

	out := make([]float64, len(g.groups))
	for i, rows := range g.groups {
		vals := make([]float64, 0, len(rows))
		for _, r := range rows {
			if v := valueAt(s.arr, r); v != nil {
				f, _ := toFloat64(v)
				vals = append(vals, f)
			}
		}
		out[i] = fn(vals)
	}
	return mustFrame(g.keySeries(), Floats(name, out...))
}

func (g *Grouped) keySeries() *Series {
	s := g.frame.Col(g.key)
	return mustSeries(g.key, s.kind, len(g.keys), func(i int) any { return g.keys[i] })
}

// Describe returns count, mean, std, min and max for every numeric column.
func (f *Frame) Describe() *Frame {
	f.check()
	stats := []string{"count", "mean", "std", "min", "max"}
	series := []*Series{Strings("stat", stats...)}
	for _, s := range f.cols {
		if !s.kind.Numeric() {
			continue
		}
		minV, _ := toFloat64(orNaN(s.Min()))
		maxV, _ := toFloat64(orNaN(s.Max()))
		series = append(series, Floats(s.name,
			float64(s.Count()), s.Mean(), s.Std(), minV, maxV))
	}
	return mustFrame(series...)
}

func orNaN(v any) any {
	if v == nil {
		return math.NaN()
	}
	return v
}
