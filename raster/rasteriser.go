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

// Package raster turns filled vector outlines into anti-aliased pixels.
//
// The Rasteriser computes exact area coverage for each pixel touched by a
// path, using a signed cover/area accumulation per scanline. A Canvas
// composites the coverage of successive paths onto an RGBA image; it is what
// the raster proxy and the PNG export use to turn traced vector markup back
// into a bitmap.
package raster

import (
	"cmp"
	"math"
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// FillRule decides which points are inside a path with overlapping or
// nested subpaths. The values mirror the SVG fill-rule property.
type FillRule int

const (
	// NonZero treats a point as inside when the winding number is non-zero.
	NonZero FillRule = iota
	// EvenOdd treats a point as inside when a ray crosses an odd number of edges.
	EvenOdd
)

func (f FillRule) String() string {
	if f == EvenOdd {
		return "evenodd"
	}
	return "nonzero"
}

// segment is a non-horizontal line segment in device coordinates.
type segment struct {
	x0, y0 float64
	x1, y1 float64
	dxdy   float64 // inverse slope, used to find x for a given y
}

func (s *segment) top() float64    { return min(s.y0, s.y1) }
func (s *segment) bottom() float64 { return max(s.y0, s.y1) }

// Rasteriser computes per-pixel coverage for filled paths.
// Buffers are kept between calls, so a single Rasteriser should be reused
// for all paths of one image.
//
// A Rasteriser is not safe for concurrent use.
type Rasteriser struct {
	// CTM maps path coordinates to device pixels. It must be invertible.
	CTM matrix.Matrix

	// Clip limits output to this device rectangle. Its coordinates must be
	// whole numbers.
	Clip rect.Rect

	// Flatness is the maximal distance, in device pixels, between a curve
	// and the polyline that replaces it.
	Flatness float64

	// denseLimit is the largest bounding box area, in pixels, which is
	// rasterised with a full 2D accumulation buffer. Larger paths are
	// processed one scanline at a time.
	denseLimit int

	segs   []segment
	active []int
	cover  []float32
	area   []float32
	rowHit []bool

	boxEmpty                   bool
	boxX0, boxX1, boxY0, boxY1 float64
}

// NewRasteriser returns a Rasteriser for the given clip rectangle, with
// the identity transform and the default flatness.
func NewRasteriser(clip rect.Rect) *Rasteriser {
	return &Rasteriser{
		CTM:        matrix.Identity,
		Clip:       clip,
		Flatness:   defaultFlatness,
		denseLimit: denseAreaLimit,
	}
}

// Reset restores the default parameters and installs a new clip rectangle.
// Internal buffers keep their capacity.
func (r *Rasteriser) Reset(clip rect.Rect) {
	r.CTM = matrix.Identity
	r.Clip = clip
	r.Flatness = defaultFlatness
	r.segs = r.segs[:0]
	r.active = r.active[:0]
	r.cover = r.cover[:0]
	r.area = r.area[:0]
	r.rowHit = r.rowHit[:0]
}

// Fill rasterises the interior of p. Coverage values in [0, 1] are passed
// to emit one scanline at a time, trimmed to the span of non-zero values.
// The slice is reused after emit returns.
func (r *Rasteriser) Fill(p *path.Data, rule FillRule, emit func(y, xMin int, coverage []float32)) {
	x0, x1, y0, y1, ok := r.buildSegments(p)
	if !ok {
		return
	}
	if (x1-x0)*(y1-y0) < r.denseLimit {
		r.fillDense(x0, x1, y0, y1, rule, emit)
	} else {
		r.fillSparse(x0, x1, y0, y1, rule, emit)
	}
}

// buildSegments flattens p into device space line segments and returns
// the integer bounding box of the result, intersected with the clip.
func (r *Rasteriser) buildSegments(p *path.Data) (x0, x1, y0, y1 int, ok bool) {
	r.segs = r.segs[:0]
	r.boxEmpty = true

	var cur, start vec.Vec2
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			// an open subpath is closed implicitly when filling
			if cur != start {
				r.addSegment(cur, start)
			}
			cur = p.Coords[k]
			start = cur
			k++
		case path.CmdLineTo:
			r.addSegment(cur, p.Coords[k])
			cur = p.Coords[k]
			k++
		case path.CmdQuadTo:
			r.flattenQuad(cur, p.Coords[k], p.Coords[k+1], r.addSegment)
			cur = p.Coords[k+1]
			k += 2
		case path.CmdCubeTo:
			r.flattenCube(cur, p.Coords[k], p.Coords[k+1], p.Coords[k+2], r.addSegment)
			cur = p.Coords[k+2]
			k += 3
		case path.CmdClose:
			if cur != start {
				r.addSegment(cur, start)
			}
			cur = start
		}
	}
	if cur != start {
		r.addSegment(cur, start)
	}

	if len(r.segs) == 0 {
		return 0, 0, 0, 0, false
	}

	x0 = max(int(math.Floor(r.boxX0)), int(r.Clip.LLx))
	x1 = min(int(math.Floor(r.boxX1))+1, int(r.Clip.URx))
	y0 = max(int(math.Floor(r.boxY0)), int(r.Clip.LLy))
	y1 = min(int(math.Floor(r.boxY1))+1, int(r.Clip.URy))
	if x0 >= x1 || y0 >= y1 {
		return 0, 0, 0, 0, false
	}
	return x0, x1, y0, y1, true
}

// addSegment maps a segment from path space to device space and records it.
func (r *Rasteriser) addSegment(a, b vec.Vec2) {
	m := r.CTM
	ax := m[0]*a.X + m[2]*a.Y + m[4]
	ay := m[1]*a.X + m[3]*a.Y + m[5]
	bx := m[0]*b.X + m[2]*b.Y + m[4]
	by := m[1]*b.X + m[3]*b.Y + m[5]

	dy := by - ay
	if math.Abs(dy) < horizontalEpsilon {
		// horizontal segments never change the winding number
		return
	}
	r.segs = append(r.segs, segment{x0: ax, y0: ay, x1: bx, y1: by, dxdy: (bx - ax) / dy})

	if r.boxEmpty {
		r.boxX0, r.boxX1 = min(ax, bx), max(ax, bx)
		r.boxY0, r.boxY1 = min(ay, by), max(ay, by)
		r.boxEmpty = false
		return
	}
	r.boxX0 = min(r.boxX0, ax, bx)
	r.boxX1 = max(r.boxX1, ax, bx)
	r.boxY0 = min(r.boxY0, ay, by)
	r.boxY1 = max(r.boxY1, ay, by)
}

// deviceLength returns the device space length of the path space vector v,
// ignoring the translation part of the CTM.
func (r *Rasteriser) deviceLength(v vec.Vec2) float64 {
	m := r.CTM
	return math.Hypot(m[0]*v.X+m[2]*v.Y, m[1]*v.X+m[3]*v.Y)
}

// flattenQuad replaces a quadratic Bézier curve by line segments. The
// number of segments is chosen so that the deviation, measured in device
// pixels, stays below Flatness.
func (r *Rasteriser) flattenQuad(p0, p1, p2 vec.Vec2, emit func(a, b vec.Vec2)) {
	dev := r.deviceLength(p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25))
	n := 1
	if dev > r.Flatness {
		n = int(math.Ceil(math.Sqrt(dev / r.Flatness)))
	}

	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		q := p0.Mul(s * s).Add(p1.Mul(2 * s * t)).Add(p2.Mul(t * t))
		emit(prev, q)
		prev = q
	}
}

// flattenCube replaces a cubic Bézier curve by line segments, using Wang's
// bound on the second differences to choose the segment count.
func (r *Rasteriser) flattenCube(p0, p1, p2, p3 vec.Vec2, emit func(a, b vec.Vec2)) {
	d := max(
		r.deviceLength(p0.Sub(p1.Mul(2)).Add(p2)),
		r.deviceLength(p1.Sub(p2.Mul(2)).Add(p3)),
	)
	n := 1
	if d > 0 {
		if f := math.Sqrt(3 * d / (4 * r.Flatness)); f > 1 {
			n = int(math.Ceil(f))
		}
	}

	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		q := p0.Mul(s * s * s).
			Add(p1.Mul(3 * s * s * t)).
			Add(p2.Mul(3 * s * t * t)).
			Add(p3.Mul(t * t * t))
		emit(prev, q)
		prev = q
	}
}

// The accumulation model keeps two numbers per pixel of a scanline:
//
//	cover: signed height of all segment pieces inside the pixel column
//	area:  the same heights, weighted by the uncovered fraction to the
//	       right of each crossing within the pixel
//
// Walking the scanline from left to right, the coverage of pixel i is
// (sum of cover[0..i-1]) + area[i]. The winding rule then folds this signed
// value into [0, 1].

// deposit adds the contribution of one segment to scanline y. The buffers
// are indexed relative to x0; pieces left of x0 are collapsed into the
// first pixel and pieces right of x1 are dropped.
func (r *Rasteriser) deposit(s *segment, y int, cover, area []float32, x0, x1 int) {
	yTop := max(float64(y), s.top())
	yBot := min(float64(y+1), s.bottom())
	if yBot <= yTop {
		return
	}

	dir := float32(1)
	if s.y1 < s.y0 {
		dir = -1
	}

	xa := s.x0 + s.dxdy*(yTop-s.y0)
	xb := s.x0 + s.dxdy*(yBot-s.y0)
	pa := int(math.Floor(min(xa, xb)))
	pb := int(math.Floor(max(xa, xb)))

	switch {
	case pb < x0:
		h := dir * float32(yBot-yTop)
		cover[0] += h
		area[0] += h
		return
	case pa >= x1:
		return
	case pa == pb:
		r.depositPiece(s, yTop, yBot, dir, pa, cover, area, x0, x1)
		return
	}

	// the segment crosses several pixel columns; cut it at each column boundary
	dydx := 1 / s.dxdy
	for px := pa; px <= pb; px++ {
		ya := s.y0 + dydx*(float64(px)-s.x0)
		yb := s.y0 + dydx*(float64(px+1)-s.x0)
		lo := max(min(ya, yb), yTop)
		hi := min(max(ya, yb), yBot)
		if hi <= lo {
			continue
		}
		r.depositPiece(s, lo, hi, dir, px, cover, area, x0, x1)
	}
}

// depositPiece records the part of s between yTop and yBot, which lies
// entirely in pixel column px.
func (r *Rasteriser) depositPiece(s *segment, yTop, yBot float64, dir float32, px int, cover, area []float32, x0, x1 int) {
	h := dir * float32(yBot-yTop)
	if px < x0 {
		cover[0] += h
		area[0] += h
		return
	}
	if px >= x1 {
		return
	}
	xm := s.x0 + s.dxdy*((yTop+yBot)/2-s.y0)
	frac := xm - float64(px)
	i := px - x0
	cover[i] += h
	area[i] += h * float32(1-frac)
}

// integrate converts one scanline of cover/area values into coverage,
// in place in cover.
func integrate(cover, area []float32, rule FillRule) {
	var acc float32
	for i := range cover {
		v := acc + area[i]
		acc += cover[i]
		if v < 0 {
			v = -v
		}
		if rule == EvenOdd {
			v -= 2 * float32(int(v/2))
			if v > 1 {
				v = 2 - v
			}
		} else if v > 1 {
			v = 1
		}
		cover[i] = v
	}
}

// nonZeroSpan returns the part of c between the first and last non-zero
// entry, together with its offset. It returns nil if c is all zero.
func nonZeroSpan(c []float32) ([]float32, int) {
	lo, hi := 0, len(c)
	for lo < hi && c[lo] == 0 {
		lo++
	}
	if lo == hi {
		return nil, 0
	}
	for c[hi-1] == 0 {
		hi--
	}
	return c[lo:hi], lo
}

// fillDense accumulates all scanlines of the bounding box at once, in a
// width×height buffer. This is the faster choice for small paths.
func (r *Rasteriser) fillDense(x0, x1, y0, y1 int, rule FillRule, emit func(y, xMin int, coverage []float32)) {
	w, h := x1-x0, y1-y0
	n := w * h
	r.cover = slices.Grow(r.cover[:0], n)[:n]
	r.area = slices.Grow(r.area[:0], n)[:n]
	r.rowHit = slices.Grow(r.rowHit[:0], h)[:h]
	clear(r.cover)
	clear(r.area)
	clear(r.rowHit)

	for i := range r.segs {
		s := &r.segs[i]
		first := max(int(math.Floor(s.top())), y0)
		last := min(int(math.Floor(s.bottom()))+1, y1)
		for y := first; y < last; y++ {
			row := y - y0
			off := row * w
			r.deposit(s, y, r.cover[off:off+w], r.area[off:off+w], x0, x1)
			r.rowHit[row] = true
		}
	}

	for row := range h {
		if !r.rowHit[row] {
			continue
		}
		off := row * w
		line := r.cover[off : off+w]
		integrate(line, r.area[off:off+w], rule)
		if span, dx := nonZeroSpan(line); span != nil {
			emit(y0+row, x0+dx, span)
		}
	}
}

// fillSparse walks the scanlines from top to bottom, keeping a list of the
// segments which intersect the current scanline. Memory use is linear in
// the bounding box width.
func (r *Rasteriser) fillSparse(x0, x1, y0, y1 int, rule FillRule, emit func(y, xMin int, coverage []float32)) {
	w := x1 - x0
	r.cover = slices.Grow(r.cover[:0], w)[:w]
	r.area = slices.Grow(r.area[:0], w)[:w]

	slices.SortFunc(r.segs, func(a, b segment) int {
		return cmp.Compare(a.top(), b.top())
	})

	r.active = r.active[:0]
	next := 0
	for y := y0; y < y1; y++ {
		top, bot := float64(y), float64(y+1)

		for next < len(r.segs) && r.segs[next].top() < bot {
			r.active = append(r.active, next)
			next++
		}
		if len(r.active) == 0 {
			continue
		}

		clear(r.cover)
		clear(r.area)
		touched := false
		for i := 0; i < len(r.active); {
			s := &r.segs[r.active[i]]
			if s.bottom() <= top {
				// done with this segment; swap-remove it
				last := len(r.active) - 1
				r.active[i] = r.active[last]
				r.active = r.active[:last]
				continue
			}
			r.deposit(s, y, r.cover, r.area, x0, x1)
			touched = true
			i++
		}
		if !touched {
			continue
		}

		integrate(r.cover, r.area, rule)
		if span, dx := nonZeroSpan(r.cover); span != nil {
			emit(y, x0+dx, span)
		}
	}
}

const (
	// defaultFlatness is a quarter pixel, which is below what the eye can
	// distinguish on screen.
	defaultFlatness = 0.25

	// horizontalEpsilon is the smallest vertical extent of a segment which
	// still contributes to coverage.
	horizontalEpsilon = 1e-10

	// denseAreaLimit separates fillDense from fillSparse.
	denseAreaLimit = 65536
)
