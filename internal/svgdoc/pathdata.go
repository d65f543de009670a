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
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// scanner reads numbers and flags from SVG attribute values.
type scanner struct {
	s   string
	pos int
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// skip moves past white space and at most one comma.
func (sc *scanner) skip() {
	for sc.pos < len(sc.s) && isSpace(sc.s[sc.pos]) {
		sc.pos++
	}
	if sc.pos < len(sc.s) && sc.s[sc.pos] == ',' {
		sc.pos++
		for sc.pos < len(sc.s) && isSpace(sc.s[sc.pos]) {
			sc.pos++
		}
	}
}

func (sc *scanner) done() bool {
	sc.skip()
	return sc.pos >= len(sc.s)
}

// startsNumber reports whether a number begins at the current position.
func (sc *scanner) startsNumber() bool {
	sc.skip()
	if sc.pos >= len(sc.s) {
		return false
	}
	c := sc.s[sc.pos]
	return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

func (sc *scanner) number() (float64, error) {
	sc.skip()
	start := sc.pos
	s := sc.s
	i := sc.pos
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, fmt.Errorf("expected number at offset %d", start)
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && s[j] >= '0' && s[j] <= '9' {
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			i = j
		}
	}
	v, err := strconv.ParseFloat(s[start:i], 64)
	if err != nil {
		return 0, err
	}
	sc.pos = i
	return v, nil
}

// flag reads an arc flag, which may be written without a separator.
func (sc *scanner) flag() (bool, error) {
	sc.skip()
	if sc.pos < len(sc.s) {
		switch sc.s[sc.pos] {
		case '0':
			sc.pos++
			return false, nil
		case '1':
			sc.pos++
			return true, nil
		}
	}
	return false, fmt.Errorf("expected flag at offset %d", sc.pos)
}

func (sc *scanner) point() (vec.Vec2, error) {
	x, err := sc.number()
	if err != nil {
		return vec.Vec2{}, err
	}
	y, err := sc.number()
	if err != nil {
		return vec.Vec2{}, err
	}
	return vec.Vec2{X: x, Y: y}, nil
}

// parseNumberList parses a list of numbers separated by white space or
// commas.
func parseNumberList(s string) ([]float64, error) {
	sc := &scanner{s: s}
	var res []float64
	for !sc.done() {
		v, err := sc.number()
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, nil
}

// parseLength parses a length in user units. A "px" suffix is accepted.
func parseLength(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "px")
	return strconv.ParseFloat(s, 64)
}

var errNoCommand = errors.New("path data must start with a command")

// ParsePathData converts the value of a "d" attribute into a path. All
// coordinates are made absolute, H/V become lines, T/S become explicit
// curves, and elliptical arcs are approximated by cubic Bézier curves.
//
// On a syntax error, the path up to the error is returned together with
// the error, which matches how SVG renderers treat broken path data.
func ParsePathData(d string) (*path.Data, error) {
	p := &path.Data{}
	sc := &scanner{s: d}

	var cur, start, ctrl vec.Vec2
	var cmd, prev byte
	open := false // a subpath has been started

	// drawing after 'z' without a new 'M' restarts at the subpath start
	ensureOpen := func() {
		if !open {
			p.MoveTo(start)
			open = true
		}
	}

	for !sc.done() {
		c := sc.s[sc.pos]
		if isCommand(c) {
			cmd = c
			sc.pos++
		} else if cmd == 0 {
			return p, errNoCommand
		} else if cmd == 'z' || cmd == 'Z' {
			return p, fmt.Errorf("unexpected data after close at offset %d", sc.pos)
		}

		rel := cmd >= 'a'
		base := cur
		if !rel {
			base = vec.Vec2{}
		}

		switch cmd {
		case 'M', 'm':
			pt, err := sc.point()
			if err != nil {
				return p, err
			}
			cur = base.Add(pt)
			start = cur
			p.MoveTo(cur)
			open = true
			// further coordinate pairs are implicit lines
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
			prev = 'M'
			continue

		case 'L', 'l':
			pt, err := sc.point()
			if err != nil {
				return p, err
			}
			ensureOpen()
			cur = base.Add(pt)
			p.LineTo(cur)

		case 'H', 'h':
			x, err := sc.number()
			if err != nil {
				return p, err
			}
			ensureOpen()
			if rel {
				cur.X += x
			} else {
				cur.X = x
			}
			p.LineTo(cur)

		case 'V', 'v':
			y, err := sc.number()
			if err != nil {
				return p, err
			}
			ensureOpen()
			if rel {
				cur.Y += y
			} else {
				cur.Y = y
			}
			p.LineTo(cur)

		case 'Q', 'q':
			c1, err := sc.point()
			if err != nil {
				return p, err
			}
			end, err := sc.point()
			if err != nil {
				return p, err
			}
			ensureOpen()
			ctrl = base.Add(c1)
			cur = base.Add(end)
			p.QuadTo(ctrl, cur)

		case 'T', 't':
			end, err := sc.point()
			if err != nil {
				return p, err
			}
			ensureOpen()
			if isQuad(prev) {
				ctrl = cur.Mul(2).Sub(ctrl)
			} else {
				ctrl = cur
			}
			cur = base.Add(end)
			p.QuadTo(ctrl, cur)

		case 'C', 'c':
			c1, err := sc.point()
			if err != nil {
				return p, err
			}
			c2, err := sc.point()
			if err != nil {
				return p, err
			}
			end, err := sc.point()
			if err != nil {
				return p, err
			}
			ensureOpen()
			ctrl = base.Add(c2)
			p.CubeTo(base.Add(c1), ctrl, base.Add(end))
			cur = base.Add(end)

		case 'S', 's':
			c2, err := sc.point()
			if err != nil {
				return p, err
			}
			end, err := sc.point()
			if err != nil {
				return p, err
			}
			ensureOpen()
			c1 := cur
			if isCubic(prev) {
				c1 = cur.Mul(2).Sub(ctrl)
			}
			ctrl = base.Add(c2)
			p.CubeTo(c1, ctrl, base.Add(end))
			cur = base.Add(end)

		case 'A', 'a':
			rx, err := sc.number()
			if err != nil {
				return p, err
			}
			ry, err := sc.number()
			if err != nil {
				return p, err
			}
			phi, err := sc.number()
			if err != nil {
				return p, err
			}
			large, err := sc.flag()
			if err != nil {
				return p, err
			}
			sweep, err := sc.flag()
			if err != nil {
				return p, err
			}
			end, err := sc.point()
			if err != nil {
				return p, err
			}
			ensureOpen()
			end = base.Add(end)
			arcTo(p, cur, end, rx, ry, phi, large, sweep)
			cur = end

		case 'Z', 'z':
			if open {
				p.Close()
			}
			cur = start
			open = false
		}
		prev = upper(cmd)
	}
	return p, nil
}

func isCommand(c byte) bool {
	return strings.IndexByte("MmLlHhVvQqTtCcSsAaZz", c) >= 0
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func isQuad(c byte) bool  { return c == 'Q' || c == 'T' }
func isCubic(c byte) bool { return c == 'C' || c == 'S' }

// arcTo appends an elliptical arc from p0 to p1, using the endpoint
// parametrisation of SVG, as a sequence of cubic curves spanning at most
// 90° each.
func arcTo(p *path.Data, p0, p1 vec.Vec2, rx, ry, phiDeg float64, large, sweep bool) {
	if p0 == p1 {
		return
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		p.LineTo(p1)
		return
	}

	phi := phiDeg * math.Pi / 180
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)

	// step 1: move the origin to the chord midpoint and unrotate
	dx := (p0.X - p1.X) / 2
	dy := (p0.Y - p1.Y) / 2
	x1 := cosPhi*dx + sinPhi*dy
	y1 := -sinPhi*dx + cosPhi*dy

	// scale up radii which are too small to span the chord
	if lambda := x1*x1/(rx*rx) + y1*y1/(ry*ry); lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}

	// step 2: centre in the unrotated frame
	num := rx*rx*ry*ry - rx*rx*y1*y1 - ry*ry*x1*x1
	den := rx*rx*y1*y1 + ry*ry*x1*x1
	coef := 0.0
	if den > 0 && num > 0 {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cxp := coef * rx * y1 / ry
	cyp := -coef * ry * x1 / rx

	// step 3: centre in user space
	cx := cosPhi*cxp - sinPhi*cyp + (p0.X+p1.X)/2
	cy := sinPhi*cxp + cosPhi*cyp + (p0.Y+p1.Y)/2

	// step 4: start angle and sweep
	angle := func(ux, uy, vx, vy float64) float64 {
		return math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
	}
	theta1 := angle(1, 0, (x1-cxp)/rx, (y1-cyp)/ry)
	dTheta := angle((x1-cxp)/rx, (y1-cyp)/ry, (-x1-cxp)/rx, (-y1-cyp)/ry)
	if !sweep && dTheta > 0 {
		dTheta -= 2 * math.Pi
	} else if sweep && dTheta < 0 {
		dTheta += 2 * math.Pi
	}

	n := int(math.Ceil(math.Abs(dTheta) / (math.Pi / 2)))
	n = max(n, 1)
	delta := dTheta / float64(n)
	k := 4.0 / 3.0 * math.Tan(delta/4)

	onEllipse := func(t float64) (pt, deriv vec.Vec2) {
		cosT, sinT := math.Cos(t), math.Sin(t)
		pt = vec.Vec2{
			X: cx + rx*cosT*cosPhi - ry*sinT*sinPhi,
			Y: cy + rx*cosT*sinPhi + ry*sinT*cosPhi,
		}
		deriv = vec.Vec2{
			X: -rx*sinT*cosPhi - ry*cosT*sinPhi,
			Y: -rx*sinT*sinPhi + ry*cosT*cosPhi,
		}
		return pt, deriv
	}

	t := theta1
	a, da := onEllipse(t)
	for i := 0; i < n; i++ {
		t += delta
		b, db := onEllipse(t)
		if i == n-1 {
			b = p1
		}
		p.CubeTo(a.Add(da.Mul(k)), b.Sub(db.Mul(k)), b)
		a, da = b, db
	}
}
