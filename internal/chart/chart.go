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

// Package chart builds interactive chart documents. A document renders to
// an embeddable HTML fragment: an inline SVG with hover titles plus the
// chart configuration as a JSON script block for client-side libraries.
package chart

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/magpierre/dsb-interpreter/internal/frame"
	"github.com/magpierre/dsb-interpreter/internal/plot"
)

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name string       `json:"name"`
	Data []ChartPoint `json:"data"`
}

// ChartPoint is one labelled value. X is set for scatter charts.
type ChartPoint struct {
	Label string   `json:"label"`
	Value float64  `json:"value"`
	X     *float64 `json:"x,omitempty"`
}

// Document is an interactive chart.
type Document struct {
	id     string
	config ChartConfig
}

func newDocument(chartType, title string) *Document {
	return &Document{
		id: "chart-" + uuid.NewString(),
		config: ChartConfig{
			ChartType:  chartType,
			Title:      title,
			ShowLegend: true,
			ShowGrid:   chartType != "pie",
		},
	}
}

// Bar builds a bar chart with one series.
func Bar(title string, labels, values any) *Document {
	return newDocument("bar", title).AddSeries(title, labels, values)
}

// Line builds a line chart with one series.
func Line(title string, labels, values any) *Document {
	return newDocument("line", title).AddSeries(title, labels, values)
}

// Pie builds a pie chart with one series.
func Pie(title string, labels, values any) *Document {
	return newDocument("pie", title).AddSeries(title, labels, values)
}

// Scatter builds a scatter chart of (x, y) points.
func Scatter(title string, x, y any) *Document {
	xs, ys := plot.Values(x), plot.Values(y)
	if len(xs) != len(ys) {
		panic(&frame.TypeError{Op: "Scatter", Detail: fmt.Sprintf("x has %d values, y has %d", len(xs), len(ys))})
	}
	d := newDocument("scatter", title)
	points := make([]ChartPoint, 0, len(xs))
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		x := xs[i]
		points = append(points, ChartPoint{Label: frame.FormatFloat(x), Value: ys[i], X: &x})
	}
	d.config.Series = append(d.config.Series, ChartSeries{Name: title, Data: points})
	d.assignColors()
	return d
}

// AddSeries appends a named series of labelled values.
func (d *Document) AddSeries(name string, labels, values any) *Document {
	ls, vs := plot.Labels(labels), plot.Values(values)
	if len(ls) != len(vs) {
		panic(&frame.TypeError{Op: "AddSeries", Detail: fmt.Sprintf("%d labels for %d values", len(ls), len(vs))})
	}
	if name == "" {
		name = "Value"
	}
	// null values are left out of the series
	points := make([]ChartPoint, 0, len(ls))
	for i := range ls {
		if math.IsNaN(vs[i]) {
			continue
		}
		points = append(points, ChartPoint{Label: ls[i], Value: vs[i]})
	}
	d.config.Series = append(d.config.Series, ChartSeries{Name: name, Data: points})
	d.assignColors()
	return d
}

// SetAxes sets the axis titles.
func (d *Document) SetAxes(x, y string) *Document {
	d.config.XAxis = x
	d.config.YAxis = y
	return d
}

// Config returns a copy of the chart configuration.
func (d *Document) Config() ChartConfig { return d.config }

// ID returns the element id of the rendered fragment.
func (d *Document) ID() string { return d.id }

func (d *Document) String() string {
	return fmt.Sprintf("Chart(%s, %q, %d series)", d.config.ChartType, d.config.Title, len(d.config.Series))
}

func (d *Document) assignColors() {
	n := len(d.config.Series)
	if d.config.ChartType == "pie" && n > 0 {
		n = len(d.config.Series[0].Data)
	}
	colors := make([]string, n)
	for i := range colors {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	d.config.Colors = colors
}
