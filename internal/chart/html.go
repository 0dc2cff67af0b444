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

package chart

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/goccy/go-json"

	"github.com/magpierre/dsb-interpreter/internal/frame"
)

const (
	svgWidth  = 640
	svgHeight = 360
	padLeft   = 56
	padRight  = 16
	padTop    = 36
	padBottom = 48
)

var fragment = template.Must(template.New("chart").Parse(
	`<div id="{{.ID}}" class="chart" data-chart-type="{{.Type}}">` +
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 {{.Width}} {{.Height}}" width="100%" role="img">` +
		`<text x="{{.TitleX}}" y="20" text-anchor="middle" font-weight="bold">{{.Title}}</text>` +
		`{{range .Lines}}<line x1="{{.X1}}" y1="{{.Y1}}" x2="{{.X2}}" y2="{{.Y2}}" stroke="{{.Stroke}}"/>{{end}}` +
		`{{range .Labels}}<text x="{{.X}}" y="{{.Y}}" text-anchor="{{.Anchor}}" font-size="11">{{.Text}}</text>{{end}}` +
		`{{range .Paths}}<path d="{{.D}}" fill="{{.Fill}}" stroke="{{.Stroke}}" stroke-width="2"><title>{{.Tip}}</title></path>{{end}}` +
		`{{range .Rects}}<rect x="{{.X}}" y="{{.Y}}" width="{{.W}}" height="{{.H}}" fill="{{.Fill}}"><title>{{.Tip}}</title></rect>{{end}}` +
		`{{range .Dots}}<circle cx="{{.X}}" cy="{{.Y}}" r="4" fill="{{.Fill}}"><title>{{.Tip}}</title></circle>{{end}}` +
		`</svg>` +
		`<script type="application/json" class="chart-spec">{{.Spec}}</script>` +
		`</div>`))

type svgLine struct {
	X1, Y1, X2, Y2 string
	Stroke         string
}

type svgText struct {
	X, Y   string
	Anchor string
	Text   string
}

type svgShape struct {
	X, Y, W, H string
	D          string
	Fill       string
	Stroke     string
	Tip        string
}

type view struct {
	ID, Type, Title string
	Width, Height   int
	TitleX          int
	Lines           []svgLine
	Labels          []svgText
	Paths           []svgShape
	Rects           []svgShape
	Dots            []svgShape
	Spec            template.JS
}

// HTML renders the document as a self-contained fragment with no page
// shell.
func (d *Document) HTML() (string, error) {
	spec, err := json.Marshal(d.config)
	if err != nil {
		return "", fmt.Errorf("failed to encode chart spec: %w", err)
	}

	v := &view{
		ID:     d.id,
		Type:   d.config.ChartType,
		Title:  d.config.Title,
		Width:  svgWidth,
		Height: svgHeight,
		TitleX: svgWidth / 2,
		Spec:   template.JS(escapeScript(spec)),
	}
	if d.config.ChartType == "pie" {
		d.layoutPie(v)
	} else {
		d.layoutCartesian(v)
	}

	var buf bytes.Buffer
	if err := fragment.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.String(), nil
}

// escapeScript keeps the chart config from closing its script element.
func escapeScript(b []byte) string {
	s := string(b)
	s = strings.ReplaceAll(s, "<", "\\u003c")
	s = strings.ReplaceAll(s, ">", "\\u003e")
	return strings.ReplaceAll(s, "&", "\\u0026")
}

func num(f float64) string {
	return frame.FormatFloat(math.Round(f*100) / 100)
}

func (d *Document) color(i int) string {
	return d.config.Colors[i%len(d.config.Colors)]
}

func (d *Document) layoutCartesian(v *view) {
	left, right := float64(padLeft), float64(svgWidth-padRight)
	top, bottom := float64(padTop), float64(svgHeight-padBottom)

	lo, hi := 0.0, 0.0
	xlo, xhi := math.Inf(1), math.Inf(-1)
	n := 0
	for _, s := range d.config.Series {
		n = max(n, len(s.Data))
		for _, p := range s.Data {
			if math.IsNaN(p.Value) {
				continue
			}
			lo, hi = math.Min(lo, p.Value), math.Max(hi, p.Value)
			if p.X != nil {
				xlo, xhi = math.Min(xlo, *p.X), math.Max(xhi, *p.X)
			}
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	if xhi <= xlo {
		xlo, xhi = xlo-1, xlo+1
	}
	py := func(y float64) float64 { return bottom - (y-lo)/(hi-lo)*(bottom-top) }
	slot := (right - left) / float64(max(n, 1))
	px := func(i int, p ChartPoint) float64 {
		if p.X != nil {
			return left + (*p.X-xlo)/(xhi-xlo)*(right-left)
		}
		return left + slot*(float64(i)+0.5)
	}

	for i := 0; i <= 4; i++ {
		val := lo + (hi-lo)*float64(i)/4
		y := num(py(val))
		if d.config.ShowGrid {
			v.Lines = append(v.Lines, svgLine{X1: num(left), Y1: y, X2: num(right), Y2: y, Stroke: "#E5E7EB"})
		}
		v.Labels = append(v.Labels, svgText{X: num(left - 6), Y: y, Anchor: "end", Text: num(val)})
	}
	v.Lines = append(v.Lines,
		svgLine{X1: num(left), Y1: num(bottom), X2: num(right), Y2: num(bottom), Stroke: "#333333"},
		svgLine{X1: num(left), Y1: num(top), X2: num(left), Y2: num(bottom), Stroke: "#333333"})

	if d.config.ChartType != "scatter" && len(d.config.Series) > 0 {
		for i, p := range d.config.Series[0].Data {
			v.Labels = append(v.Labels, svgText{X: num(px(i, p)), Y: num(bottom + 16), Anchor: "middle", Text: p.Label})
		}
	}
	if d.config.XAxis != "" {
		v.Labels = append(v.Labels, svgText{X: num((left + right) / 2), Y: num(svgHeight - 8), Anchor: "middle", Text: d.config.XAxis})
	}
	if d.config.YAxis != "" {
		v.Labels = append(v.Labels, svgText{X: num(4), Y: num(top - 10), Anchor: "start", Text: d.config.YAxis})
	}

	barW := slot * 0.8 / float64(max(len(d.config.Series), 1))
	for si, s := range d.config.Series {
		fill := d.color(si)
		var path strings.Builder
		for i, p := range s.Data {
			if math.IsNaN(p.Value) {
				continue
			}
			tip := fmt.Sprintf("%s: %s = %s", s.Name, p.Label, frame.FormatFloat(p.Value))
			x, y := px(i, p), py(p.Value)
			switch d.config.ChartType {
			case "bar":
				x0 := left + slot*float64(i) + slot*0.1 + barW*float64(si)
				y0 := math.Min(y, py(0))
				v.Rects = append(v.Rects, svgShape{X: num(x0), Y: num(y0), W: num(barW), H: num(math.Abs(py(0) - y)), Fill: fill, Tip: tip})
			case "scatter":
				v.Dots = append(v.Dots, svgShape{X: num(x), Y: num(y), Fill: fill, Tip: tip})
			default:
				if path.Len() == 0 {
					fmt.Fprintf(&path, "M%s %s", num(x), num(y))
				} else {
					fmt.Fprintf(&path, " L%s %s", num(x), num(y))
				}
				v.Dots = append(v.Dots, svgShape{X: num(x), Y: num(y), Fill: fill, Tip: tip})
			}
		}
		if path.Len() > 0 {
			v.Paths = append(v.Paths, svgShape{D: path.String(), Fill: "none", Stroke: fill, Tip: s.Name})
		}
	}
}

func (d *Document) layoutPie(v *view) {
	if len(d.config.Series) == 0 {
		return
	}
	s := d.config.Series[0]
	var total float64
	for _, p := range s.Data {
		if p.Value > 0 {
			total += p.Value
		}
	}
	if total == 0 {
		return
	}

	cx, cy := float64(svgWidth)/2, float64(svgHeight)/2+10
	r := float64(svgHeight)/2 - padTop
	angle := -math.Pi / 2
	for i, p := range s.Data {
		if p.Value <= 0 {
			continue
		}
		sweep := p.Value / total * 2 * math.Pi
		x0, y0 := cx+r*math.Cos(angle), cy+r*math.Sin(angle)
		x1, y1 := cx+r*math.Cos(angle+sweep), cy+r*math.Sin(angle+sweep)
		large := 0
		if sweep > math.Pi {
			large = 1
		}
		var path string
		if sweep >= 2*math.Pi-1e-9 {
			path = fmt.Sprintf("M%s %s A%s %s 0 1 1 %s %s A%s %s 0 1 1 %s %s Z",
				num(cx), num(cy-r), num(r), num(r), num(cx), num(cy+r), num(r), num(r), num(cx), num(cy-r))
		} else {
			path = fmt.Sprintf("M%s %s L%s %s A%s %s 0 %d 1 %s %s Z",
				num(cx), num(cy), num(x0), num(y0), num(r), num(r), large, num(x1), num(y1))
		}
		share := p.Value / total * 100
		v.Paths = append(v.Paths, svgShape{
			D:      path,
			Fill:   d.color(i),
			Stroke: "#FFFFFF",
			Tip:    fmt.Sprintf("%s: %s (%s%%)", p.Label, frame.FormatFloat(p.Value), num(share)),
		})
		angle += sweep
	}
}
