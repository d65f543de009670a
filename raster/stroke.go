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

package raster

import (
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// LineCap is the shape at the open ends of a stroked subpath.
type LineCap int

const (
	ButtCap LineCap = iota
	RoundCap
	SquareCap
)

// LineJoin is the shape at the corners of a stroked subpath.
type LineJoin int

const (
	MiterJoin LineJoin = iota
	RoundJoin
	BevelJoin
)

// StrokeStyle describes the outline drawn by Stroke.
type StrokeStyle struct {
	// Width is the line width in path coordinates.
	Width float64

	Cap  LineCap
	Join LineJoin

	// MiterLimit is the largest allowed ratio of miter length to line
	// width. Zero selects the SVG default of 4.
	MiterLimit float64
}

const (
	defaultMiterLimit = 4

	zeroLengthThreshold   = 1e-9
	collinearityThreshold = 1e-9

	// corners sharper than this (cos of the turn angle) are treated as
	// the path reversing direction
	cuspCosineThreshold = -1 + 1e-9
)

// polyline is a flattened subpath in path coordinates.
type polyline struct {
	pts    []vec.Vec2
	closed bool
	drawn  bool // false for a bare MoveTo
}

// Stroke rasterises the outline of p. The outline is assembled from one
// quadrilateral per segment, plus join and cap pieces, all with the same
// orientation, and filled with the nonzero rule so that overlaps are
// painted once.
func (r *Rasteriser) Stroke(p *path.Data, style StrokeStyle, emit func(y, xMin int, coverage []float32)) {
	if !(style.Width > 0) {
		return
	}
	if style.MiterLimit <= 0 {
		style.MiterLimit = defaultMiterLimit
	}

	outline := &path.Data{}
	for _, pl := range r.flattenPolylines(p) {
		r.strokePolyline(outline, pl, style)
	}
	if len(outline.Cmds) == 0 {
		return
	}
	r.Fill(outline, NonZero, emit)
}

// flattenPolylines splits p into subpaths and replaces curves by line
// segments. Repeated points are dropped.
func (r *Rasteriser) flattenPolylines(p *path.Data) []polyline {
	var res []polyline
	var cur *polyline
	var start vec.Vec2

	add := func(_, b vec.Vec2) {
		cur.drawn = true
		last := cur.pts[len(cur.pts)-1]
		if b.Sub(last).Length() > zeroLengthThreshold {
			cur.pts = append(cur.pts, b)
		}
	}
	begin := func(at vec.Vec2) {
		res = append(res, polyline{pts: []vec.Vec2{at}})
		cur = &res[len(res)-1]
	}

	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			start = p.Coords[k]
			begin(start)
			k++
		case path.CmdLineTo:
			if cur == nil {
				begin(start)
			}
			add(vec.Vec2{}, p.Coords[k])
			k++
		case path.CmdQuadTo:
			if cur == nil {
				begin(start)
			}
			r.flattenQuad(cur.pts[len(cur.pts)-1], p.Coords[k], p.Coords[k+1], add)
			k += 2
		case path.CmdCubeTo:
			if cur == nil {
				begin(start)
			}
			r.flattenCube(cur.pts[len(cur.pts)-1], p.Coords[k], p.Coords[k+1], p.Coords[k+2], add)
			k += 3
		case path.CmdClose:
			if cur != nil {
				cur.closed = true
				cur.drawn = true
				n := len(cur.pts)
				if n > 1 && cur.pts[n-1].Sub(cur.pts[0]).Length() <= zeroLengthThreshold {
					cur.pts = cur.pts[:n-1]
				}
			}
			// drawing after a close continues from the subpath start
			cur = nil
		}
	}
	return res
}

func (r *Rasteriser) strokePolyline(out *path.Data, pl polyline, style StrokeStyle) {
	d := style.Width / 2
	pts := pl.pts

	if len(pts) == 1 {
		if !pl.drawn {
			return
		}
		// a zero-length subpath only shows its caps, aligned with the x-axis
		switch style.Cap {
		case RoundCap:
			r.addDisc(out, pts[0], d)
		case SquareCap:
			c := pts[0]
			addPolygon(out,
				vec.Vec2{X: c.X - d, Y: c.Y - d}, vec.Vec2{X: c.X + d, Y: c.Y - d},
				vec.Vec2{X: c.X + d, Y: c.Y + d}, vec.Vec2{X: c.X - d, Y: c.Y + d})
		}
		return
	}

	n := len(pts)
	nSeg := n - 1
	if pl.closed && n > 2 {
		nSeg = n
	}
	tangent := func(i int) vec.Vec2 {
		a, b := pts[i], pts[(i+1)%n]
		v := b.Sub(a)
		return v.Mul(1 / v.Length())
	}

	for i := 0; i < nSeg; i++ {
		a, b := pts[i], pts[(i+1)%n]
		nv := normal(tangent(i)).Mul(d)
		addPolygon(out, a.Add(nv), b.Add(nv), b.Sub(nv), a.Sub(nv))
	}

	if pl.closed && n > 2 {
		for i := 0; i < n; i++ {
			r.addJoin(out, pts[i], tangent((i+n-1)%n), tangent(i), d, style)
		}
		return
	}

	for i := 1; i < n-1; i++ {
		r.addJoin(out, pts[i], tangent(i-1), tangent(i), d, style)
	}
	r.addCap(out, pts[0], tangent(0).Mul(-1), d, style.Cap)
	r.addCap(out, pts[n-1], tangent(n-2), d, style.Cap)
}

// addJoin fills the wedge on the outer side of the corner at p, where the
// direction changes from t1 to t2.
func (r *Rasteriser) addJoin(out *path.Data, p, t1, t2 vec.Vec2, d float64, style StrokeStyle) {
	cos := t1.X*t2.X + t1.Y*t2.Y
	sin := t1.X*t2.Y - t1.Y*t2.X

	if math.Abs(sin) < collinearityThreshold && cos > 0 {
		return
	}
	if cos < cuspCosineThreshold {
		// the path doubles back, cap both pieces instead
		r.addCap(out, p, t1, d, capForJoin(style.Join))
		r.addCap(out, p, t2.Mul(-1), d, capForJoin(style.Join))
		return
	}

	// a left turn has its outer side on the right
	side := 1.0
	if sin > 0 {
		side = -1
	}
	n1 := normal(t1).Mul(side * d)
	n2 := normal(t2).Mul(side * d)
	o1, o2 := p.Add(n1), p.Add(n2)

	switch style.Join {
	case RoundJoin:
		r.addDisc(out, p, d)
		return
	case MiterJoin:
		sinHalf := math.Sqrt((1 + cos) / 2)
		const miterEpsilon = 1e-10
		if sinHalf > 0 && 1/sinHalf <= style.MiterLimit+miterEpsilon {
			bisector := n1.Add(n2)
			if l := bisector.Length(); l > zeroLengthThreshold {
				m := p.Add(bisector.Mul(d / (sinHalf * l)))
				addPolygon(out, p, o1, m, o2)
				return
			}
		}
	}
	addPolygon(out, p, o1, o2)
}

func capForJoin(j LineJoin) LineCap {
	if j == RoundJoin {
		return RoundCap
	}
	return ButtCap
}

// addCap adds the cap at the end point p, where t points away from the
// line.
func (r *Rasteriser) addCap(out *path.Data, p, t vec.Vec2, d float64, c LineCap) {
	switch c {
	case RoundCap:
		r.addDisc(out, p, d)
	case SquareCap:
		nv := normal(t).Mul(d)
		ext := p.Add(t.Mul(d))
		addPolygon(out, p.Add(nv), ext.Add(nv), ext.Sub(nv), p.Sub(nv))
	}
}

// addDisc adds a polygon approximating the circle of radius d around c,
// with enough vertices to stay within Flatness in device space.
func (r *Rasteriser) addDisc(out *path.Data, c vec.Vec2, d float64) {
	devRadius := max(
		r.deviceLength(vec.Vec2{X: d}),
		r.deviceLength(vec.Vec2{Y: d}),
	)
	steps := 4
	if devRadius > r.Flatness {
		step := 2 * math.Acos(1-r.Flatness/devRadius)
		if step > 0 && !math.IsNaN(step) {
			steps = max(steps, int(math.Ceil(2*math.Pi/step)))
		}
	}
	pts := make([]vec.Vec2, steps)
	for i := range pts {
		phi := 2 * math.Pi * float64(i) / float64(steps)
		pts[i] = vec.Vec2{X: c.X + d*math.Cos(phi), Y: c.Y + d*math.Sin(phi)}
	}
	addPolygon(out, pts...)
}

// normal returns t rotated by 90° counter-clockwise.
func normal(t vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: -t.Y, Y: t.X}
}

// addPolygon appends the closed polygon pts to out, with positive
// orientation. Degenerate polygons are skipped.
func addPolygon(out *path.Data, pts ...vec.Vec2) {
	var area float64
	for i, a := range pts {
		b := pts[(i+1)%len(pts)]
		area += a.X*b.Y - b.X*a.Y
	}
	if math.Abs(area) < zeroLengthThreshold {
		return
	}
	if area < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	out.MoveTo(pts[0])
	for _, p := range pts[1:] {
		out.LineTo(p)
	}
	out.Close()
}
