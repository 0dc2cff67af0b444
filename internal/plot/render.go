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
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/magpierre/dsb-interpreter/internal/frame"
)

// Default color palette for chart series.
var palette = []color.NRGBA{
	{0x4F, 0x46, 0xE5, 0xFF}, {0x10, 0xB9, 0x81, 0xFF}, {0xF5, 0x9E, 0x0B, 0xFF},
	{0xEF, 0x44, 0x44, 0xFF}, {0x8B, 0x5C, 0xF6, 0xFF}, {0x06, 0xB6, 0xD4, 0xFF},
	{0xEC, 0x48, 0x99, 0xFF}, {0x84, 0xCC, 0x16, 0xFF}, {0xF9, 0x73, 0x16, 0xFF},
	{0x63, 0x66, 0xF1, 0xFF},
}

var (
	inkColor  = color.NRGBA{0x33, 0x33, 0x33, 0xFF}
	gridColor = color.NRGBA{0xE5, 0xE7, 0xEB, 0xFF}
)

const (
	alignLeft = iota
	alignCenter
	alignRight
)

// RenderPNG draws the figure and encodes it as PNG.
func (f *Figure) RenderPNG() ([]byte, error) {
	c := newCanvas(f.width, f.height)

	top := 0
	if f.title != "" {
		c.text(f.width/2, 18, f.title, inkColor, alignCenter)
		top = 24
	}

	cellW := f.width / f.cols
	cellH := (f.height - top) / f.rows
	for i, ax := range f.axes {
		r, col := i/f.cols, i%f.cols
		rect := image.Rect(col*cellW, top+r*cellH, (col+1)*cellW, top+(r+1)*cellH)
		ax.draw(c, rect)
	}
	return c.encode()
}

// RenderPNG draws the single panel at the figure's panel size.
func (a *Axes) RenderPNG() ([]byte, error) {
	w, h := defaultWidth, defaultHeight
	if a.fig != nil {
		w, h = a.fig.width/a.fig.cols, a.fig.height/a.fig.rows
	}
	c := newCanvas(w, h)
	a.draw(c, image.Rect(0, 0, w, h))
	return c.encode()
}

type canvas struct {
	img    *image.RGBA
	filler *rasterx.Filler
	dasher *rasterx.Dasher
}

func newCanvas(w, h int) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	return &canvas{
		img:    img,
		filler: rasterx.NewFiller(w, h, scanner),
		dasher: rasterx.NewDasher(w, h, scanner),
	}
}

func (c *canvas) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *canvas) fillRect(x0, y0, x1, y1 float64, clr color.Color) {
	c.filler.Clear()
	c.filler.SetColor(clr)
	rasterx.AddRect(x0, y0, x1, y1, 0, c.filler)
	c.filler.Draw()
	c.filler.Clear()
}

func (c *canvas) fillCircle(cx, cy, r float64, clr color.Color) {
	c.filler.Clear()
	c.filler.SetColor(clr)
	rasterx.AddCircle(cx, cy, r, c.filler)
	c.filler.Draw()
	c.filler.Clear()
}

func (c *canvas) stroke(pts [][2]float64, width float64, clr color.Color, closed bool) {
	if len(pts) < 2 {
		return
	}
	c.dasher.Clear()
	c.dasher.SetStroke(fixed.Int26_6(width*64), 4<<6, rasterx.RoundCap, nil, rasterx.RoundGap, rasterx.Round, nil, 0)
	c.dasher.SetColor(clr)
	c.dasher.Start(rasterx.ToFixedP(pts[0][0], pts[0][1]))
	for _, p := range pts[1:] {
		c.dasher.Line(rasterx.ToFixedP(p[0], p[1]))
	}
	c.dasher.Stop(closed)
	c.dasher.Draw()
	c.dasher.Clear()
}

func (c *canvas) text(x, y int, s string, clr color.Color, align int) {
	d := &font.Drawer{Dst: c.img, Src: image.NewUniform(clr), Face: basicfont.Face7x13}
	w := d.MeasureString(s).Ceil()
	switch align {
	case alignCenter:
		x -= w / 2
	case alignRight:
		x -= w
	}
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// bounds returns the data extent of all layers, padded by 5%.
func (a *Axes) bounds() (x0, x1, y0, y1 float64) {
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	for _, l := range a.layers {
		for i := range l.xs {
			x, y := l.xs[i], l.ys[i]
			if math.IsNaN(x) || math.IsNaN(y) {
				continue
			}
			x0, x1 = math.Min(x0, x), math.Max(x1, x)
			y0, y1 = math.Min(y0, y), math.Max(y1, y)
		}
		if l.kind == barLayer {
			half := barWidth(l.xs) / 2
			x0, x1 = x0-half, x1+half
			y0, y1 = math.Min(y0, 0), math.Max(y1, 0)
		}
	}
	if math.IsInf(x0, 1) {
		return 0, 1, 0, 1
	}
	if x0 == x1 {
		x0, x1 = x0-1, x1+1
	}
	if y0 == y1 {
		y0, y1 = y0-1, y1+1
	}
	pad := (y1 - y0) * 0.05
	return x0, x1, y0 - pad, y1 + pad
}

// barWidth is 80% of the smallest gap between bar positions.
func barWidth(xs []float64) float64 {
	gap := math.Inf(1)
	for i := 1; i < len(xs); i++ {
		if d := math.Abs(xs[i] - xs[i-1]); d > 0 {
			gap = math.Min(gap, d)
		}
	}
	if math.IsInf(gap, 1) {
		gap = 1
	}
	return gap * 0.8
}

func (a *Axes) draw(c *canvas, rect image.Rectangle) {
	left := float64(rect.Min.X + 64)
	right := float64(rect.Max.X - 16)
	top := float64(rect.Min.Y + 30)
	bottom := float64(rect.Max.Y - 42)
	if right <= left || bottom <= top {
		return
	}

	x0, x1, y0, y1 := a.bounds()
	px := func(x float64) float64 { return left + (x-x0)/(x1-x0)*(right-left) }
	py := func(y float64) float64 { return bottom - (y-y0)/(y1-y0)*(bottom-top) }

	// grid and y ticks
	for _, t := range ticks(y0, y1, 5) {
		y := py(t)
		c.stroke([][2]float64{{left, y}, {right, y}}, 1, gridColor, false)
		c.text(int(left)-6, int(y)+4, tickLabel(t), inkColor, alignRight)
	}

	// x ticks: category labels when a bar layer carries them
	if labels, xs := a.categories(); labels != nil {
		step := int(math.Ceil(float64(len(labels)) / 10))
		for i := 0; i < len(labels); i += max(1, step) {
			c.text(int(px(xs[i])), int(bottom)+16, truncate(labels[i], 10), inkColor, alignCenter)
		}
	} else {
		for _, t := range ticks(x0, x1, 6) {
			c.text(int(px(t)), int(bottom)+16, tickLabel(t), inkColor, alignCenter)
		}
	}

	for i, l := range a.layers {
		clr := palette[i%len(palette)]
		switch l.kind {
		case lineLayer:
			pts := make([][2]float64, 0, len(l.xs))
			for j := range l.xs {
				if math.IsNaN(l.xs[j]) || math.IsNaN(l.ys[j]) {
					c.stroke(pts, 2, clr, false)
					pts = pts[:0]
					continue
				}
				pts = append(pts, [2]float64{px(l.xs[j]), py(l.ys[j])})
			}
			c.stroke(pts, 2, clr, false)
		case scatterLayer:
			for j := range l.xs {
				if math.IsNaN(l.xs[j]) || math.IsNaN(l.ys[j]) {
					continue
				}
				c.fillCircle(px(l.xs[j]), py(l.ys[j]), 3.5, clr)
			}
		case barLayer:
			half := barWidth(l.xs) / 2
			for j := range l.xs {
				if math.IsNaN(l.ys[j]) {
					continue
				}
				ya, yb := py(0), py(l.ys[j])
				c.fillRect(px(l.xs[j]-half), math.Min(ya, yb), px(l.xs[j]+half), math.Max(ya, yb), clr)
			}
		}
	}

	// axes box
	c.stroke([][2]float64{{left, top}, {right, top}, {right, bottom}, {left, bottom}}, 1, inkColor, true)

	if a.title != "" {
		c.text(int((left+right)/2), rect.Min.Y+20, a.title, inkColor, alignCenter)
	}
	if a.xlabel != "" {
		c.text(int((left+right)/2), rect.Max.Y-8, a.xlabel, inkColor, alignCenter)
	}
	if a.ylabel != "" {
		c.text(rect.Min.X+4, int(top)-6, a.ylabel, inkColor, alignLeft)
	}
}

func (a *Axes) categories() ([]string, []float64) {
	for _, l := range a.layers {
		if l.kind == barLayer && l.labels != nil {
			return l.labels, l.xs
		}
	}
	return nil, nil
}

// ticks returns roughly n evenly spaced round values within [lo, hi].
func ticks(lo, hi float64, n int) []float64 {
	span := hi - lo
	if span <= 0 || n < 1 {
		return nil
	}
	raw := span / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if m*mag >= raw {
			step = m * mag
			break
		}
	}
	out := make([]float64, 0, n+1)
	for t := math.Ceil(lo/step) * step; t <= hi+step*1e-9; t += step {
		out = append(out, t)
	}
	return out
}

func tickLabel(t float64) string {
	if math.Abs(t) < 1e-12 {
		t = 0
	}
	return frame.FormatFloat(math.Round(t*1e6) / 1e6)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
