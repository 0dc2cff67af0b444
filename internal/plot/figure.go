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

package plot

import (
	"fmt"
	"math"

	"github.com/magpierre/dsb-interpreter/internal/frame"
)

const (
	defaultWidth  = 640
	defaultHeight = 480
	maxPixels     = 4096
)

// Figure is a chart canvas holding one or more panels.
type Figure struct {
	surface       *Surface
	title         string
	width, height int
	rows, cols    int
	axes          []*Axes
	cur           int
	closed        bool
}

func newFigure(s *Surface, rows, cols int) *Figure {
	fig := &Figure{
		surface: s,
		width:   clampPixels(defaultWidth * cols / min(cols, 2)),
		height:  clampPixels(defaultHeight * rows / min(rows, 2)),
		rows:    rows,
		cols:    cols,
	}
	fig.axes = make([]*Axes, rows*cols)
	for i := range fig.axes {
		fig.axes[i] = &Axes{fig: fig}
	}
	return fig
}

// Axes returns panel i in row-major order and makes it current.
func (f *Figure) Axes(i int) *Axes {
	if i < 0 || i >= len(f.axes) {
		panic(fmt.Errorf("plot: panel %d out of range (figure has %d)", i, len(f.axes)))
	}
	f.cur = i
	return f.axes[i]
}

// Current returns the current panel.
func (f *Figure) Current() *Axes { return f.axes[f.cur] }

// NumAxes returns the number of panels.
func (f *Figure) NumAxes() int { return len(f.axes) }

// SetTitle sets the figure title drawn above all panels.
func (f *Figure) SetTitle(t string) *Figure {
	f.title = t
	return f
}

// Title returns the figure title.
func (f *Figure) Title() string { return f.title }

// SetSize sets the rendered size in pixels.
func (f *Figure) SetSize(width, height int) *Figure {
	f.width = clampPixels(width)
	f.height = clampPixels(height)
	return f
}

// Size returns the rendered size in pixels.
func (f *Figure) Size() (int, int) { return f.width, f.height }

// Closed reports whether the figure was closed.
func (f *Figure) Closed() bool { return f.closed }

// Close removes the figure from its surface.
func (f *Figure) Close() {
	if f.surface != nil {
		f.surface.close(f)
		return
	}
	f.closed = true
}

func (f *Figure) String() string {
	return fmt.Sprintf("Figure(%dx%d, %d axes)", f.width, f.height, len(f.axes))
}

func clampPixels(n int) int {
	if n < 64 {
		return 64
	}
	if n > maxPixels {
		return maxPixels
	}
	return n
}

type layerKind int

const (
	lineLayer layerKind = iota
	scatterLayer
	barLayer
)

type layer struct {
	kind   layerKind
	xs, ys []float64
	labels []string
}

// Axes is a single chart panel inside a figure.
type Axes struct {
	fig                   *Figure
	title, xlabel, ylabel string
	layers                []layer
}

// Figure returns the figure the panel belongs to.
func (a *Axes) Figure() *Figure { return a.fig }

// Owner returns the figure the panel belongs to. Panels and their figure
// count as the same chart object.
func (a *Axes) Owner() any { return a.fig }

// Plot draws a line through the points (x[i], y[i]). A nil x uses the
// positions 0..n-1.
func (a *Axes) Plot(x, y any) *Axes {
	xs, ys := pairs("Plot", x, y)
	a.layers = append(a.layers, layer{kind: lineLayer, xs: xs, ys: ys})
	return a
}

// Scatter draws a marker at every point.
func (a *Axes) Scatter(x, y any) *Axes {
	xs, ys := pairs("Scatter", x, y)
	a.layers = append(a.layers, layer{kind: scatterLayer, xs: xs, ys: ys})
	return a
}

// Bar draws one bar per label.
func (a *Axes) Bar(labels, values any) *Axes {
	ls := Labels(labels)
	ys := Values(values)
	if len(ls) != len(ys) {
		panic(&frame.TypeError{Op: "Bar", Detail: fmt.Sprintf("%d labels for %d values", len(ls), len(ys))})
	}
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	a.layers = append(a.layers, layer{kind: barLayer, xs: xs, ys: ys, labels: ls})
	return a
}

// Hist draws a histogram with the given number of equal-width bins.
func (a *Axes) Hist(values any, bins int) *Axes {
	if bins < 1 {
		bins = 10
	}
	vals := Values(values)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	xs := make([]float64, bins)
	ys := make([]float64, bins)
	if lo > hi {
		a.layers = append(a.layers, layer{kind: barLayer, xs: xs, ys: ys, labels: make([]string, bins)})
		return a
	}
	width := (hi - lo) / float64(bins)
	if width == 0 {
		width = 1
	}
	for i := range xs {
		xs[i] = lo + width*(float64(i)+0.5)
	}
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		ys[b]++
	}
	labels := make([]string, bins)
	for i := range labels {
		labels[i] = frame.FormatFloat(math.Round((lo+width*float64(i))*100) / 100)
	}
	a.layers = append(a.layers, layer{kind: barLayer, xs: xs, ys: ys, labels: labels})
	return a
}

// SetTitle sets the panel title.
func (a *Axes) SetTitle(t string) *Axes {
	a.title = t
	return a
}

// SetXLabel sets the x-axis label.
func (a *Axes) SetXLabel(t string) *Axes {
	a.xlabel = t
	return a
}

// SetYLabel sets the y-axis label.
func (a *Axes) SetYLabel(t string) *Axes {
	a.ylabel = t
	return a
}

func (a *Axes) String() string {
	return fmt.Sprintf("Axes(%q, %d layers)", a.title, len(a.layers))
}

func pairs(op string, x, y any) ([]float64, []float64) {
	ys := Values(y)
	if x == nil {
		xs := make([]float64, len(ys))
		for i := range xs {
			xs[i] = float64(i)
		}
		return xs, ys
	}
	xs := Values(x)
	if len(xs) != len(ys) {
		panic(&frame.TypeError{Op: op, Detail: fmt.Sprintf("x has %d values, y has %d", len(xs), len(ys))})
	}
	return xs, ys
}
