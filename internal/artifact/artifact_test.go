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

package artifact

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/dsb-interpreter/internal/chart"
	"github.com/magpierre/dsb-interpreter/internal/frame"
	"github.com/magpierre/dsb-interpreter/internal/plot"
)

type brokenChart struct{}

func (brokenChart) RenderPNG() ([]byte, error) { return nil, errors.New("no canvas") }

type point struct{ X, Y int }

func TestClassifyTable(t *testing.T) {
	c := NewClassifier(nil)
	f := frame.New(frame.Ints("a", 1, 2), frame.Strings("b", "x", "y"))

	a, ok := c.Classify(f)
	require.True(t, ok)
	assert.Equal(t, KindTable, a.Type)

	back, err := frame.FromSplitJSON([]byte(a.Data))
	require.NoError(t, err)
	assert.Equal(t, f.Columns(), back.Columns())
	assert.Equal(t, f.Row(1), back.Row(1))
}

func TestClassifyPlotIsBase64PNG(t *testing.T) {
	s := plot.NewSurface()
	s.Plot([]float64{0, 1, 2}, []float64{1, 3, 2})

	a, ok := NewClassifier(nil).Classify(s.Gcf())
	require.True(t, ok)
	assert.Equal(t, KindPlot, a.Type)

	raw, err := base64.StdEncoding.DecodeString(a.Data)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
}

func TestClassifyInteractiveChart(t *testing.T) {
	a, ok := NewClassifier(nil).Classify(chart.Bar("r", []string{"a"}, []int{1}))
	require.True(t, ok)
	assert.Equal(t, KindPlotly, a.Type)
	assert.True(t, strings.HasPrefix(a.Data, "<div "))
}

func TestClassifyScalars(t *testing.T) {
	c := NewClassifier(nil)
	tests := []struct {
		in   any
		want string
	}{
		{30.75, "30.75"},
		{int64(42), "42"},
		{true, "true"},
		{"hello", "hello"},
		{float32(0.1), "0.1"},
		{frame.KindFloat, "float64"},
	}
	for _, tt := range tests {
		a, ok := c.Classify(tt.in)
		require.True(t, ok)
		assert.Equal(t, KindText, a.Type)
		assert.Equal(t, tt.want, a.Data)
	}
}

func TestFallbackTruncates(t *testing.T) {
	long := make([]int, 1500)
	a, ok := NewClassifier(nil).Classify(long)
	require.True(t, ok)
	assert.Equal(t, KindText, a.Type)
	assert.Len(t, []rune(a.Data), MaxTextLength+3)
	assert.True(t, strings.HasSuffix(a.Data, "..."))

	a, _ = NewClassifier(nil).Classify(point{1, 2})
	assert.Equal(t, "{1 2}", a.Data)
}

func TestDeclinedValues(t *testing.T) {
	c := NewClassifier(nil)
	var nilFrame *frame.Frame
	for _, v := range []any{nil, nilFrame, func() {}} {
		_, ok := c.Classify(v)
		assert.False(t, ok)
	}
}

func TestRenderFailureBecomesText(t *testing.T) {
	a, ok := NewClassifier(nil).Classify(brokenChart{})
	require.True(t, ok)
	assert.Equal(t, KindText, a.Type)
	assert.Contains(t, a.Data, "no canvas")
}

func TestCustomRules(t *testing.T) {
	c := NewClassifier(nil, ScalarRule())
	_, ok := c.Classify([]int{1})
	assert.False(t, ok)
}

func TestCollectOrderAndDedup(t *testing.T) {
	s := plot.NewSurface()
	fig, axes := s.Subplots(1, 2)
	axes[0].Plot(nil, []float64{1, 2})

	cand := Candidates{
		Charts: []any{fig},
		Bindings: []Named{
			{Name: "fig", Value: fig},
			{Name: "same", Value: fig},
			{Name: "ax", Value: axes[0]},
			{Name: "total", Value: 12.5},
		},
	}
	out := NewClassifier(nil).Collect(cand)
	require.Len(t, out, 2)
	assert.Equal(t, KindPlot, out[0].Type)
	assert.Equal(t, Artifact{Type: KindText, Data: "12.5"}, out[1])
}

func TestCollectSkipsResultName(t *testing.T) {
	cand := Candidates{
		Result:     3.5,
		HasResult:  true,
		ResultName: "x",
		Bindings:   []Named{{Name: "x", Value: 3.5}, {Name: "y", Value: "t"}},
	}
	out := NewClassifier(nil).Collect(cand)
	assert.Equal(t, []Artifact{
		{Type: KindText, Data: "3.5"},
		{Type: KindText, Data: "t"},
	}, out)
}

func TestCollectDirectResultFirst(t *testing.T) {
	f := frame.New(frame.Ints("a", 1))
	cand := Candidates{
		Result:    f,
		HasResult: true,
		Bindings:  []Named{{Name: "g", Value: f}},
	}
	out := NewClassifier(nil).Collect(cand)
	require.Len(t, out, 1)
	assert.Equal(t, KindTable, out[0].Type)
}

func TestCollectEmpty(t *testing.T) {
	out := NewClassifier(nil).Collect(Candidates{Bindings: []Named{{Name: "f", Value: func() {}}}})
	assert.Equal(t, []Artifact{{Type: KindText, Data: NoOutput}}, out)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo", 5))
	assert.Equal(t, "hé...", Truncate("héllo", 2))
}

func TestCollectSkipsBindingEqualToResult(t *testing.T) {
	cand := Candidates{
		Result:     5,
		HasResult:  true,
		ResultName: "y",
		Bindings: []Named{
			{Name: "x", Value: 5},
			{Name: "y", Value: 5},
			{Name: "z", Value: int64(5)},
			{Name: "p", Value: point{1, 2}},
		},
	}
	out := NewClassifier(nil).Collect(cand)
	require.Len(t, out, 3)
	assert.Equal(t, Artifact{Type: KindText, Data: "5"}, out[0])
	assert.Equal(t, Artifact{Type: KindText, Data: "5"}, out[1])
	assert.Equal(t, KindText, out[2].Type)
}
