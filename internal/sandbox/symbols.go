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

package sandbox

import (
	"go/constant"
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/magpierre/dsb-interpreter/internal/chart"
	"github.com/magpierre/dsb-interpreter/internal/frame"
	"github.com/magpierre/dsb-interpreter/internal/num"
	"github.com/magpierre/dsb-interpreter/internal/plot"
)

// Import paths of the packages visible to snippets.
const (
	framePkg   = "frame"
	numPkg     = "num"
	plotPkg    = "plot"
	chartPkg   = "chart"
	runtimePkg = "sandbox/runtime"
	runtimeID  = "sandboxrt"
)

// Libraries lists the package names bound in every environment.
var Libraries = []string{framePkg, numPkg, plotPkg, chartPkg}

// Symbols holds the stateless library exports shared by all runs.
var Symbols = interp.Exports{
	"frame/frame": {
		// function, constant and variable definitions
		"New":         reflect.ValueOf(frame.New),
		"FromSeries":  reflect.ValueOf(frame.FromSeries),
		"NewSeries":   reflect.ValueOf(frame.NewSeries),
		"Ints":        reflect.ValueOf(frame.Ints),
		"Floats":      reflect.ValueOf(frame.Floats),
		"Strings":     reflect.ValueOf(frame.Strings),
		"Bools":       reflect.ValueOf(frame.Bools),
		"Combine":     reflect.ValueOf(frame.Combine),
		"ParseKind":   reflect.ValueOf(frame.ParseKind),
		"ParseQuery":  reflect.ValueOf(frame.ParseQuery),
		"FormatFloat": reflect.ValueOf(frame.FormatFloat),

		"KindString": reflect.ValueOf(frame.KindString),
		"KindInt":    reflect.ValueOf(frame.KindInt),
		"KindFloat":  reflect.ValueOf(frame.KindFloat),
		"KindBool":   reflect.ValueOf(frame.KindBool),
		"LogicAND":   reflect.ValueOf(frame.LogicAND),
		"LogicOR":    reflect.ValueOf(frame.LogicOR),

		"ErrColumnNotFound": reflect.ValueOf(&frame.ErrColumnNotFound).Elem(),
		"ErrTypeMismatch":   reflect.ValueOf(&frame.ErrTypeMismatch).Elem(),
		"ErrNoDataset":      reflect.ValueOf(&frame.ErrNoDataset).Elem(),

		// type definitions
		"Frame":      reflect.ValueOf((*frame.Frame)(nil)),
		"Series":     reflect.ValueOf((*frame.Series)(nil)),
		"Mask":       reflect.ValueOf((*frame.Mask)(nil)),
		"Grouped":    reflect.ValueOf((*frame.Grouped)(nil)),
		"Kind":       reflect.ValueOf((*frame.Kind)(nil)),
		"LogicOp":    reflect.ValueOf((*frame.LogicOp)(nil)),
		"Query":      reflect.ValueOf((*frame.Query)(nil)),
		"Expression": reflect.ValueOf((*frame.Expression)(nil)),
		"KeyError":   reflect.ValueOf((*frame.KeyError)(nil)),
		"TypeError":  reflect.ValueOf((*frame.TypeError)(nil)),
	},
	"num/num": {
		"Pi":         reflect.ValueOf(constant.MakeFloat64(num.Pi)),
		"E":          reflect.ValueOf(constant.MakeFloat64(num.E)),
		"NaN":        reflect.ValueOf(num.NaN),
		"IsNaN":      reflect.ValueOf(num.IsNaN),
		"Sum":        reflect.ValueOf(num.Sum),
		"Mean":       reflect.ValueOf(num.Mean),
		"Median":     reflect.ValueOf(num.Median),
		"Var":        reflect.ValueOf(num.Var),
		"Std":        reflect.ValueOf(num.Std),
		"Min":        reflect.ValueOf(num.Min),
		"Max":        reflect.ValueOf(num.Max),
		"Percentile": reflect.ValueOf(num.Percentile),
		"Cumsum":     reflect.ValueOf(num.Cumsum),
		"Corr":       reflect.ValueOf(num.Corr),
		"Arange":     reflect.ValueOf(num.Arange),
		"Linspace":   reflect.ValueOf(num.Linspace),
		"Round":      reflect.ValueOf(num.Round),
		"Abs":        reflect.ValueOf(num.Abs),
		"Sqrt":       reflect.ValueOf(num.Sqrt),
		"Log":        reflect.ValueOf(num.Log),
		"Exp":        reflect.ValueOf(num.Exp),
		"Pow":        reflect.ValueOf(num.Pow),
		"FromInts":   reflect.ValueOf(num.FromInts),
	},
	"chart/chart": {
		"Bar":     reflect.ValueOf(chart.Bar),
		"Line":    reflect.ValueOf(chart.Line),
		"Pie":     reflect.ValueOf(chart.Pie),
		"Scatter": reflect.ValueOf(chart.Scatter),

		"Document":    reflect.ValueOf((*chart.Document)(nil)),
		"ChartConfig": reflect.ValueOf((*chart.ChartConfig)(nil)),
		"ChartSeries": reflect.ValueOf((*chart.ChartSeries)(nil)),
		"ChartPoint":  reflect.ValueOf((*chart.ChartPoint)(nil)),
	},
}

// surfaceSymbols binds the plot package to one run's charting surface.
func surfaceSymbols(s *plot.Surface) interp.Exports {
	return interp.Exports{
		"plot/plot": {
			"New":      reflect.ValueOf(s.New),
			"Subplots": reflect.ValueOf(s.Subplots),
			"Gcf":      reflect.ValueOf(s.Gcf),
			"Gca":      reflect.ValueOf(s.Gca),
			"Plot":     reflect.ValueOf(s.Plot),
			"Scatter":  reflect.ValueOf(s.Scatter),
			"Bar":      reflect.ValueOf(s.Bar),
			"Hist":     reflect.ValueOf(s.Hist),
			"Title":    reflect.ValueOf(s.Title),
			"XLabel":   reflect.ValueOf(s.XLabel),
			"YLabel":   reflect.ValueOf(s.YLabel),
			"Close":    reflect.ValueOf(s.Close),
			"CloseAll": reflect.ValueOf(s.CloseAll),
			"Values":   reflect.ValueOf(plot.Values),
			"Labels":   reflect.ValueOf(plot.Labels),

			"Figure": reflect.ValueOf((*plot.Figure)(nil)),
			"Axes":   reflect.ValueOf((*plot.Axes)(nil)),
		},
	}
}

// datasetSymbols exposes the dataset bound to one run.
func datasetSymbols(df *frame.Frame) interp.Exports {
	return interp.Exports{
		runtimePkg + "/runtime": {
			"Dataset": reflect.ValueOf(func() *frame.Frame { return df }),
			"Value":   reflect.ValueOf(func(v any) any { return v }),
		},
	}
}
