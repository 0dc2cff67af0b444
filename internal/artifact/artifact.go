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

// Package artifact turns the values a snippet produced into typed,
// serialized output envelopes.
package artifact

// Kind is the closed set of artifact types.
type Kind string

const (
	KindTable  Kind = "table"
	KindPlot   Kind = "plot"
	KindPlotly Kind = "plotly"
	KindText   Kind = "text"
)

// NoOutput is the text emitted for a run that produced nothing to show.
const NoOutput = "Code executed successfully. No output to display."

// Artifact is one serialized result.
type Artifact struct {
	Type Kind   `json:"type"`
	Data string `json:"data"`
}

// Table is a tabular value with a split-orient JSON encoding.
type Table interface {
	MarshalSplit() ([]byte, error)
}

// Raster is a chart that renders to PNG.
type Raster interface {
	RenderPNG() ([]byte, error)
}

// Embeddable is an interactive chart that renders to an HTML fragment.
type Embeddable interface {
	HTML() (string, error)
}

// Owned values share identity with their owner, so a panel and its figure
// are emitted once.
type Owned interface {
	Owner() any
}

// Named is a value bound to a name by a snippet.
type Named struct {
	Name  string
	Value any
}

// Candidates are the values a run offers for collection.
type Candidates struct {
	// Result is the value of the trailing expression, if HasResult.
	Result    any
	HasResult bool
	// ResultName is set when the trailing expression was a bare identifier.
	ResultName string
	// Charts are the figures left open by the run, in creation order.
	Charts []any
	// Bindings are the names the run created, in binding order.
	Bindings []Named
}
