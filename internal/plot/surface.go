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

// Package plot is a small raster charting library. Figures are drawn with
// rasterx and encoded as PNG.
//
// A Surface tracks the figures opened since it was created, in creation
// order, and provides the "current figure" helpers (Plot, Bar, Title, ...)
// that operate on the most recently opened figure. One surface is created
// per snippet run and drained when the run ends.
package plot

import "sync"

// Surface holds the open figures of one run.
type Surface struct {
	mu      sync.Mutex
	figures []*Figure
	current *Figure
}

// NewSurface returns an empty surface.
func NewSurface() *Surface {
	return &Surface{}
}

// New opens a figure with a single panel and makes it current.
func (s *Surface) New(title string) *Figure {
	fig, _ := s.Subplots(1, 1)
	fig.title = title
	return fig
}

// Subplots opens a figure with a rows x cols grid of panels and makes it
// current. Panels are returned in row-major order.
func (s *Surface) Subplots(rows, cols int) (*Figure, []*Axes) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	fig := newFigure(s, rows, cols)

	s.mu.Lock()
	s.figures = append(s.figures, fig)
	s.current = fig
	s.mu.Unlock()

	axes := make([]*Axes, len(fig.axes))
	copy(axes, fig.axes)
	return fig, axes
}

// Gcf returns the current figure, opening one when none is open.
func (s *Surface) Gcf() *Figure {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil {
		return cur
	}
	return s.New("")
}

// Gca returns the current panel of the current figure.
func (s *Surface) Gca() *Axes {
	return s.Gcf().Current()
}

// Plot draws a line on the current panel.
func (s *Surface) Plot(x, y any) *Axes { return s.Gca().Plot(x, y) }

// Scatter draws markers on the current panel.
func (s *Surface) Scatter(x, y any) *Axes { return s.Gca().Scatter(x, y) }

// Bar draws a bar per label on the current panel.
func (s *Surface) Bar(labels, values any) *Axes { return s.Gca().Bar(labels, values) }

// Hist draws a histogram of values on the current panel.
func (s *Surface) Hist(values any, bins int) *Axes { return s.Gca().Hist(values, bins) }

// Title sets the title of the current panel.
func (s *Surface) Title(t string) { s.Gca().SetTitle(t) }

// XLabel sets the x-axis label of the current panel.
func (s *Surface) XLabel(t string) { s.Gca().SetXLabel(t) }

// YLabel sets the y-axis label of the current panel.
func (s *Surface) YLabel(t string) { s.Gca().SetYLabel(t) }

// Close closes the current figure.
func (s *Surface) Close() {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil {
		s.close(cur)
	}
}

func (s *Surface) close(fig *Figure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.figures {
		if f == fig {
			s.figures = append(s.figures[:i], s.figures[i+1:]...)
			break
		}
	}
	fig.closed = true
	if s.current == fig {
		s.current = nil
		if n := len(s.figures); n > 0 {
			s.current = s.figures[n-1]
		}
	}
}

// Open returns the open figures in creation order.
func (s *Surface) Open() []*Figure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Figure, len(s.figures))
	copy(out, s.figures)
	return out
}

// Len returns the number of open figures.
func (s *Surface) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.figures)
}

// CloseAll closes every open figure.
func (s *Surface) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.figures {
		f.closed = true
	}
	s.figures = nil
	s.current = nil
}

// Drain returns the open figures in creation order and closes them all.
func (s *Surface) Drain() []*Figure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.figures
	for _, f := range out {
		f.closed = true
	}
	s.figures = nil
	s.current = nil
	return out
}
