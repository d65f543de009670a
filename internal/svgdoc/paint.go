// seehuhn.de/go/vectorize - interactive raster to vector conversion
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package svgdoc

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/vectorize/raster"
)

// Shape is one painted element, with its inherited paint resolved.
type Shape struct {
	Path *path.Data

	// Transform maps path coordinates to the coordinates of the root
	// element's viewBox.
	Transform matrix.Matrix

	// Fill is the fill colour. A zero alpha means no fill.
	Fill     color.NRGBA
	FillRule raster.FillRule

	// Stroke is the stroke colour. A zero alpha or a zero Style.Width
	// means no stroke.
	Stroke color.NRGBA
	Style  raster.StrokeStyle
}

// paint holds the presentation properties while walking the tree.
type paint struct {
	fill          color.NRGBA
	fillOpacity   float64
	fillRule      raster.FillRule
	stroke        color.NRGBA
	strokeOpacity float64
	style         raster.StrokeStyle
	opacity       float64
}

// initialPaint is the SVG default: black fill, no stroke.
var initialPaint = paint{
	fill:          color.NRGBA{A: 255},
	fillOpacity:   1,
	strokeOpacity: 1,
	style:         raster.StrokeStyle{Width: 1, MiterLimit: 4},
	opacity:       1,
}

// Shapes returns the painted elements of the document in painter's order.
// Unsupported elements, such as text and images, are skipped.
// Path data with syntax errors contributes the part before the error.
func (d *Document) Shapes() []Shape {
	if d.Root == nil {
		return nil
	}
	var res []Shape
	walk(d.Root, matrix.Identity, initialPaint, &res)
	return res
}

// skipped lists container elements whose content is never rendered directly.
var skipped = map[string]bool{
	"defs": true, "title": true, "desc": true, "metadata": true,
	"style": true, "script": true, "clipPath": true, "mask": true,
	"symbol": true, "marker": true, "pattern": true,
	"linearGradient": true, "radialGradient": true,
	"text": true, "image": true, "foreignObject": true,
}

func walk(n *Node, ctm matrix.Matrix, inherited paint, out *[]Shape) {
	if n.IsText() || skipped[n.Local()] {
		return
	}
	props := properties(n)
	if props["display"] == "none" {
		return
	}

	pt := inherited
	pt.apply(props)
	if n.Local() != "svg" {
		if v, ok := n.Attr("transform"); ok {
			if m, err := ParseTransform(v); err == nil {
				ctm = Concat(m, ctm)
			}
		}
	}

	switch n.Local() {
	case "svg", "g", "a":
		for _, c := range n.Children {
			walk(c, ctm, pt, out)
		}
		return
	}

	if props["visibility"] == "hidden" {
		return
	}
	p := geometry(n)
	if p == nil || len(p.Cmds) == 0 {
		return
	}
	s := Shape{
		Path:      p,
		Transform: ctm,
		FillRule:  pt.fillRule,
		Style:     pt.style,
	}
	if n.Local() != "line" {
		s.Fill = withAlpha(pt.fill, pt.fillOpacity*pt.opacity)
	}
	s.Stroke = withAlpha(pt.stroke, pt.strokeOpacity*pt.opacity)
	if s.Fill.A == 0 && (s.Stroke.A == 0 || s.Style.Width <= 0) {
		return
	}
	*out = append(*out, s)
}

// properties collects the presentation attributes of n, with declarations
// in the style attribute taking precedence.
func properties(n *Node) map[string]string {
	props := make(map[string]string)
	for _, a := range n.Attrs {
		props[a.Name] = strings.TrimSpace(a.Value)
	}
	if style, ok := n.Attr("style"); ok {
		for _, decl := range strings.Split(style, ";") {
			name, value, ok := strings.Cut(decl, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
			props[strings.TrimSpace(name)] = value
		}
	}
	return props
}

func (p *paint) apply(props map[string]string) {
	if v, ok := props["fill"]; ok {
		if c, ok := parseColor(v, p.fill); ok {
			p.fill = c
		}
	}
	if v, ok := props["stroke"]; ok {
		if c, ok := parseColor(v, p.stroke); ok {
			p.stroke = c
		}
	}
	if v, ok := parseUnit(props["fill-opacity"]); ok {
		p.fillOpacity = v
	}
	if v, ok := parseUnit(props["stroke-opacity"]); ok {
		p.strokeOpacity = v
	}
	if v, ok := parseUnit(props["opacity"]); ok {
		p.opacity *= v
	}
	switch props["fill-rule"] {
	case "evenodd":
		p.fillRule = raster.EvenOdd
	case "nonzero":
		p.fillRule = raster.NonZero
	}
	if v, ok := props["stroke-width"]; ok {
		if w, err := parseLength(v); err == nil && w >= 0 {
			p.style.Width = w
		}
	}
	switch props["stroke-linecap"] {
	case "butt":
		p.style.Cap = raster.ButtCap
	case "round":
		p.style.Cap = raster.RoundCap
	case "square":
		p.style.Cap = raster.SquareCap
	}
	switch props["stroke-linejoin"] {
	case "miter", "miter-clip", "arcs":
		p.style.Join = raster.MiterJoin
	case "round":
		p.style.Join = raster.RoundJoin
	case "bevel":
		p.style.Join = raster.BevelJoin
	}
	if v, ok := props["stroke-miterlimit"]; ok {
		if m, err := strconv.ParseFloat(v, 64); err == nil && m >= 1 {
			p.style.MiterLimit = m
		}
	}
}

// parseUnit parses an opacity value, either a number or a percentage, and
// clamps it to [0, 1].
func parseUnit(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	scale := 1.0
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		s = pct
		scale = 0.01
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return min(max(v*scale, 0), 1), true
}

func withAlpha(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * opacity))
	return c
}

// parseColor parses an SVG paint value. The second result is false if
// the value is not understood, in which case the inherited value stays.
func parseColor(s string, current color.NRGBA) (color.NRGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "none" || s == "transparent":
		return color.NRGBA{}, true
	case s == "inherit":
		return current, true
	case s == "currentcolor":
		return color.NRGBA{A: 255}, true
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb"):
		return parseRGBFunc(s)
	case strings.HasPrefix(s, "url("):
		// paint servers are not supported; SVG falls back to the
		// colour after the reference, if any
		if _, fallback, ok := strings.Cut(s, ")"); ok && strings.TrimSpace(fallback) != "" {
			return parseColor(fallback, current)
		}
		return color.NRGBA{A: 255}, true
	}
	if c, ok := colornames.Map[s]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, true
	}
	return color.NRGBA{}, false
}

func parseHex(h string) (color.NRGBA, bool) {
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	switch len(h) {
	case 3:
		return color.NRGBA{
			R: uint8(v>>8&0xf) * 0x11,
			G: uint8(v>>4&0xf) * 0x11,
			B: uint8(v&0xf) * 0x11,
			A: 255,
		}, true
	case 4:
		return color.NRGBA{
			R: uint8(v>>12&0xf) * 0x11,
			G: uint8(v>>8&0xf) * 0x11,
			B: uint8(v>>4&0xf) * 0x11,
			A: uint8(v&0xf) * 0x11,
		}, true
	case 6:
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
	case 8:
		return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
	}
	return color.NRGBA{}, false
}

// parseRGBFunc parses rgb(r,g,b) and rgba(r,g,b,a). Channels may be given
// as numbers in [0, 255] or as percentages.
func parseRGBFunc(s string) (color.NRGBA, bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return color.NRGBA{}, false
	}
	args := strings.FieldsFunc(s[open+1:len(s)-1], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(args) != 3 && len(args) != 4 {
		return color.NRGBA{}, false
	}
	var ch [3]uint8
	for i := range ch {
		a := args[i]
		var v float64
		var err error
		if pct, ok := strings.CutSuffix(a, "%"); ok {
			v, err = strconv.ParseFloat(pct, 64)
			v = v * 255 / 100
		} else {
			v, err = strconv.ParseFloat(a, 64)
		}
		if err != nil {
			return color.NRGBA{}, false
		}
		ch[i] = uint8(math.Round(min(max(v, 0), 255)))
	}
	alpha := uint8(255)
	if len(args) == 4 {
		a, ok := parseUnit(args[3])
		if !ok {
			return color.NRGBA{}, false
		}
		alpha = uint8(math.Round(a * 255))
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: alpha}, true
}

// geometry returns the outline of a basic shape element in its own
// coordinate system.
func geometry(n *Node) *path.Data {
	num := func(name string) float64 {
		v, ok := n.Attr(name)
		if !ok {
			return 0
		}
		f, err := parseLength(v)
		if err != nil {
			return 0
		}
		return f
	}

	switch n.Local() {
	case "path":
		d, _ := n.Attr("d")
		p, _ := ParsePathData(d)
		return p

	case "rect":
		x, y, w, h := num("x"), num("y"), num("width"), num("height")
		if w <= 0 || h <= 0 {
			return nil
		}
		_, okX := n.Attr("rx")
		_, okY := n.Attr("ry")
		if !okX && !okY {
			return (&path.Data{}).
				MoveTo(vec.Vec2{X: x, Y: y}).
				LineTo(vec.Vec2{X: x + w, Y: y}).
				LineTo(vec.Vec2{X: x + w, Y: y + h}).
				LineTo(vec.Vec2{X: x, Y: y + h}).
				Close()
		}
		rxv, ryv := num("rx"), num("ry")
		if !okX {
			rxv = ryv
		}
		if !okY {
			ryv = rxv
		}
		return roundedRect(x, y, w, h, min(rxv, w/2), min(ryv, h/2))

	case "circle":
		r := num("r")
		if r <= 0 {
			return nil
		}
		return ellipse(num("cx"), num("cy"), r, r)

	case "ellipse":
		rx, ry := num("rx"), num("ry")
		if rx <= 0 || ry <= 0 {
			return nil
		}
		return ellipse(num("cx"), num("cy"), rx, ry)

	case "line":
		return (&path.Data{}).
			MoveTo(vec.Vec2{X: num("x1"), Y: num("y1")}).
			LineTo(vec.Vec2{X: num("x2"), Y: num("y2")})

	case "polyline", "polygon":
		v, _ := n.Attr("points")
		nums, err := parseNumberList(v)
		if err != nil || len(nums) < 4 {
			return nil
		}
		p := &path.Data{}
		p.MoveTo(vec.Vec2{X: nums[0], Y: nums[1]})
		for i := 2; i+1 < len(nums); i += 2 {
			p.LineTo(vec.Vec2{X: nums[i], Y: nums[i+1]})
		}
		if n.Local() == "polygon" {
			p.Close()
		}
		return p
	}
	return nil
}

func ellipse(cx, cy, rx, ry float64) *path.Data {
	p := &path.Data{}
	p.MoveTo(vec.Vec2{X: cx + rx, Y: cy})
	arcTo(p, vec.Vec2{X: cx + rx, Y: cy}, vec.Vec2{X: cx - rx, Y: cy}, rx, ry, 0, false, true)
	arcTo(p, vec.Vec2{X: cx - rx, Y: cy}, vec.Vec2{X: cx + rx, Y: cy}, rx, ry, 0, false, true)
	return p.Close()
}

func roundedRect(x, y, w, h, rx, ry float64) *path.Data {
	if rx <= 0 || ry <= 0 {
		rx, ry = 0, 0
	}
	p := &path.Data{}
	p.MoveTo(vec.Vec2{X: x + rx, Y: y})
	p.LineTo(vec.Vec2{X: x + w - rx, Y: y})
	arcTo(p, vec.Vec2{X: x + w - rx, Y: y}, vec.Vec2{X: x + w, Y: y + ry}, rx, ry, 0, false, true)
	p.LineTo(vec.Vec2{X: x + w, Y: y + h - ry})
	arcTo(p, vec.Vec2{X: x + w, Y: y + h - ry}, vec.Vec2{X: x + w - rx, Y: y + h}, rx, ry, 0, false, true)
	p.LineTo(vec.Vec2{X: x + rx, Y: y + h})
	arcTo(p, vec.Vec2{X: x + rx, Y: y + h}, vec.Vec2{X: x, Y: y + h - ry}, rx, ry, 0, false, true)
	p.LineTo(vec.Vec2{X: x, Y: y + ry})
	arcTo(p, vec.Vec2{X: x, Y: y + ry}, vec.Vec2{X: x + rx, Y: y}, rx, ry, 0, false, true)
	return p.Close()
}

// ParseTransform parses the value of a transform attribute.
func ParseTransform(s string) (matrix.Matrix, error) {
	m := matrix.Identity
	rest := strings.TrimSpace(s)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		end := strings.IndexByte(rest, ')')
		if open < 0 || end < open {
			return matrix.Identity, fmt.Errorf("invalid transform %q", s)
		}
		name := strings.TrimSpace(rest[:open])
		args, err := parseNumberList(rest[open+1 : end])
		if err != nil {
			return matrix.Identity, err
		}
		rest = strings.TrimLeft(rest[end+1:], " \t\r\n,")

		var t matrix.Matrix
		switch {
		case name == "matrix" && len(args) == 6:
			t = matrix.Matrix{args[0], args[1], args[2], args[3], args[4], args[5]}
		case name == "translate" && (len(args) == 1 || len(args) == 2):
			ty := 0.0
			if len(args) == 2 {
				ty = args[1]
			}
			t = matrix.Matrix{1, 0, 0, 1, args[0], ty}
		case name == "scale" && (len(args) == 1 || len(args) == 2):
			sy := args[0]
			if len(args) == 2 {
				sy = args[1]
			}
			t = matrix.Matrix{args[0], 0, 0, sy, 0, 0}
		case name == "rotate" && (len(args) == 1 || len(args) == 3):
			a := args[0] * math.Pi / 180
			sin, cos := math.Sincos(a)
			t = matrix.Matrix{cos, sin, -sin, cos, 0, 0}
			if len(args) == 3 {
				cx, cy := args[1], args[2]
				t = Concat(Concat(matrix.Matrix{1, 0, 0, 1, -cx, -cy}, t), matrix.Matrix{1, 0, 0, 1, cx, cy})
			}
		case name == "skewX" && len(args) == 1:
			t = matrix.Matrix{1, 0, math.Tan(args[0] * math.Pi / 180), 1, 0, 0}
		case name == "skewY" && len(args) == 1:
			t = matrix.Matrix{1, math.Tan(args[0] * math.Pi / 180), 0, 1, 0, 0}
		default:
			return matrix.Identity, fmt.Errorf("invalid transform function %s(%v)", name, args)
		}
		// the rightmost function applies first
		m = Concat(t, m)
	}
	return m, nil
}

// Concat returns the transform which applies first and then then.
func Concat(first, then matrix.Matrix) matrix.Matrix {
	a, b := first, then
	return matrix.Matrix{
		b[0]*a[0] + b[2]*a[1],
		b[1]*a[0] + b[3]*a[1],
		b[0]*a[2] + b[2]*a[3],
		b[1]*a[2] + b[3]*a[3],
		b[0]*a[4] + b[2]*a[5] + b[4],
		b[1]*a[4] + b[3]*a[5] + b[5],
	}
}

// Apply maps the point v through m.
func Apply(m matrix.Matrix, v vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: m[0]*v.X + m[2]*v.Y + m[4],
		Y: m[1]*v.X + m[3]*v.Y + m[5],
	}
}
