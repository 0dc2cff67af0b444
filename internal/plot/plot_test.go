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
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/dsb-interpreter/internal/frame"
)

func TestSurfaceTracksFiguresInOrder(t *testing.T) {
	s := NewSurface()
	a := s.New("first")
	b, axes := s.Subplots(1, 2)
	require.Len(t, axes, 2)

	assert.Equal(t, []*Figure{a, b}, s.Open())
	assert.Same(t, b, s.Gcf())

	s.Close()
	assert.Equal(t, []*Figure{a}, s.Open())
	assert.Same(t, a, s.Gcf())
	assert.True(t, b.Closed())
}

func TestDrainEmptiesSurface(t *testing.T) {
	s := NewSurface()
	s.Plot([]float64{1, 2, 3}, []int{3, 1, 2})
	s.New("second").Current().Bar([]string{"a", "b"}, []int64{4, 5})

	drained := s.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, s.Len())
	for _, f := range drained {
		assert.True(t, f.Closed())
	}
}

func TestGcfOpensFigureWhenEmpty(t *testing.T) {
	s := NewSurface()
	s.Title("implicit")
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "implicit", s.Gca().title)
}

func TestRenderPNG(t *testing.T) {
	s := NewSurface()
	fig, axes := s.Subplots(2, 1)
	fig.SetTitle("sales")
	axes[0].Plot(nil, frame.Floats("y", 1, 4, 2, 8)).SetTitle("trend").SetXLabel("t")
	axes[1].Hist([]float64{1, 1, 2, 3, 5, 8, 13}, 4).SetYLabel("count")
	fig.SetSize(400, 300)

	data, err := fig.RenderPNG()
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())

	panel, err := axes[1].RenderPNG()
	require.NoError(t, err)
	assert.NotEmpty(t, panel)
}

func TestMismatchedLengthsPanicWithTypeError(t *testing.T) {
	s := NewSurface()
	defer func() {
		_, ok := recover().(*frame.TypeError)
		assert.True(t, ok)
	}()
	s.Plot([]float64{1, 2}, []float64{1})
}

func TestAxesOwnerIsFigure(t *testing.T) {
	s := NewSurface()
	fig := s.New("")
	assert.Same(t, fig, fig.Axes(0).Owner())
}

func TestTicks(t *testing.T) {
	assert.Equal(t, []float64{0, 2, 4, 6, 8, 10}, ticks(0, 10, 5))
	assert.Nil(t, ticks(1, 1, 5))
}
