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

// Package num holds the numeric helpers available to snippets. Functions
// take and return []float64; NaN entries are skipped by the reductions.
package num

import (
	"math"
	"sort"
)

const (
	Pi = math.Pi
	E  = math.E
)

// NaN returns an IEEE 754 not-a-number value.
func NaN() float64 { return math.NaN() }

// IsNaN reports whether x is not-a-number.
func IsNaN(x float64) bool { return math.IsNaN(x) }

func clean(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Sum returns the sum of the values.
func Sum(xs []float64) float64 {
	var t float64
	for _, x := range clean(xs) {
		t += x
	}
	return t
}

// Mean returns the arithmetic mean, or NaN for no values.
func Mean(xs []float64) float64 {
	c := clean(xs)
	if len(c) == 0 {
		return math.NaN()
	}
	return Sum(c) / float64(len(c))
}

// Median returns the middle value.
func Median(xs []float64) float64 {
	return Percentile(xs, 50)
}

// Var returns the population variance.
func Var(xs []float64) float64 {
	c := clean(xs)
	if len(c) == 0 {
		return math.NaN()
	}
	m := Mean(c)
	var ss float64
	for _, x := range c {
		ss += (x - m) * (x - m)
	}
	return ss / float64(len(c))
}

// Std returns the population standard deviation.
func Std(xs []float64) float64 { return math.Sqrt(Var(xs)) }

// Min returns the smallest value, or NaN for no values.
func Min(xs []float64) float64 {
	c := clean(xs)
	if len(c) == 0 {
		return math.NaN()
	}
	m := c[0]
	for _, x := range c[1:] {
		m = math.Min(m, x)
	}
	return m
}

// Max returns the largest value, or NaN for no values.
func Max(xs []float64) float64 {
	c := clean(xs)
	if len(c) == 0 {
		return math.NaN()
	}
	m := c[0]
	for _, x := range c[1:] {
		m = math.Max(m, x)
	}
	return m
}

// Percentile returns the p-th percentile using linear interpolation
// between closest ranks.
func Percentile(xs []float64, p float64) float64 {
	c := clean(xs)
	if len(c) == 0 {
		return math.NaN()
	}
	sort.Float64s(c)
	if p <= 0 {
		return c[0]
	}
	if p >= 100 {
		return c[len(c)-1]
	}
	rank := p / 100 * float64(len(c)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return c[lo] + (c[hi]-c[lo])*frac
}

// Cumsum returns the running total. NaN entries carry the total forward.
func Cumsum(xs []float64) []float64 {
	out := make([]float64, len(xs))
	var t float64
	for i, x := range xs {
		if !math.IsNaN(x) {
			t += x
		}
		out[i] = t
	}
	return out
}

// Corr returns the Pearson correlation of two equally long samples,
// skipping pairs where either value is NaN.
func Corr(xs, ys []float64) float64 {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	var a, b []float64
	for i := 0; i < n; i++ {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		a = append(a, xs[i])
		b = append(b, ys[i])
	}
	if len(a) < 2 {
		return math.NaN()
	}
	ma, mb := Mean(a), Mean(b)
	var sab, saa, sbb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		sab += da * db
		saa += da * da
		sbb += db * db
	}
	return sab / math.Sqrt(saa*sbb)
}

// Arange returns values from start up to but excluding stop.
func Arange(start, stop, step float64) []float64 {
	if step == 0 || (stop-start)/step <= 0 {
		return []float64{}
	}
	n := int(math.Ceil((stop - start) / step))
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// Linspace returns n evenly spaced values over [start, stop].
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

func mapf(xs []float64, fn func(float64) float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = fn(x)
	}
	return out
}

// Round rounds every value to the given number of decimals.
func Round(xs []float64, decimals int) []float64 {
	p := math.Pow(10, float64(decimals))
	return mapf(xs, func(x float64) float64 { return math.Round(x*p) / p })
}

// Abs returns the absolute values.
func Abs(xs []float64) []float64 { return mapf(xs, math.Abs) }

// Sqrt returns the square roots.
func Sqrt(xs []float64) []float64 { return mapf(xs, math.Sqrt) }

// Log returns the natural logarithms.
func Log(xs []float64) []float64 { return mapf(xs, math.Log) }

// Exp returns e raised to each value.
func Exp(xs []float64) []float64 { return mapf(xs, math.Exp) }

// Pow raises every value to p.
func Pow(xs []float64, p float64) []float64 {
	return mapf(xs, func(x float64) float64 { return math.Pow(x, p) })
}

// FromInts converts integers to floats.
func FromInts(xs []int64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
