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

package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"seehuhn.de/go/vectorize/internal/pixels"
	"seehuhn.de/go/vectorize/internal/svgdoc"
	"seehuhn.de/go/vectorize/raster"
)

// psWriter emits PostScript path operators. The first write error is
// kept and all later output is dropped.
type psWriter struct {
	w   *bufio.Writer
	err error
}

func (p *psWriter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func num(v float64) string {
	v = math.Round(v*1000) / 1000
	if v == 0 {
		v = 0 // no negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (p *psWriter) MoveTo(x, y float64) {
	p.printf("%s %s m\n", num(x), num(y))
}

func (p *psWriter) LineTo(x, y float64) {
	p.printf("%s %s l\n", num(x), num(y))
}

func (p *psWriter) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	p.printf("%s %s %s %s %s %s c\n", num(x1), num(y1), num(x2), num(y2), num(x3), num(y3))
}

func (p *psWriter) ClosePath() {
	p.printf("h\n")
}

func (p *psWriter) setColor(c interface{ RGBA() (r, g, b, a uint32) }) {
	rgb := deviceRGB(c)
	p.printf("%s %s %s rg\n", num(rgb[0]), num(rgb[1]), num(rgb[2]))
}

// writeEPS writes an Encapsulated PostScript file whose bounding box is
// the natural size, one point per pixel. Colours are painted opaque.
func writeEPS(ctx context.Context, w io.Writer, doc *svgdoc.Document, size pixels.Size) error {
	m, err := pageMatrix(doc, size)
	if err != nil {
		return err
	}

	p := &psWriter{w: bufio.NewWriter(w)}
	p.printf("%%!PS-Adobe-3.0 EPSF-3.0\n")
	p.printf("%%%%BoundingBox: 0 0 %d %d\n", size.Width, size.Height)
	p.printf("%%%%HiResBoundingBox: 0 0 %d %d\n", size.Width, size.Height)
	p.printf("%%%%Creator: seehuhn.de/go/vectorize\n")
	p.printf("%%%%CreationDate: %s\n", time.Now().UTC().Format(time.RFC3339))
	p.printf("%%%%LanguageLevel: 2\n")
	p.printf("%%%%Pages: 1\n")
	p.printf("%%%%EndComments\n")
	p.printf("%%%%BeginProlog\n")
	p.printf("/m {moveto} bind def /l {lineto} bind def /c {curveto} bind def\n")
	p.printf("/h {closepath} bind def /rg {setrgbcolor} bind def\n")
	p.printf("%%%%EndProlog\n")
	p.printf("%%%%Page: 1 1\n")
	p.printf("gsave\n")
	// PostScript origin is bottom-left, the document's is top-left.
	p.printf("0 %d translate 1 -1 scale\n", size.Height)

	for _, s := range doc.Shapes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(s.Path.Cmds) == 0 {
			continue
		}
		full := svgdoc.Concat(s.Transform, m)

		if s.Fill.A > 0 {
			p.setColor(s.Fill)
			p.printf("newpath\n")
			emitPath(p, s.Path, full)
			if s.FillRule == raster.EvenOdd {
				p.printf("eofill\n")
			} else {
				p.printf("fill\n")
			}
		}
		if s.Stroke.A > 0 && s.Style.Width > 0 {
			p.setColor(s.Stroke)
			p.printf("%s setlinewidth %d setlinecap %d setlinejoin %s setmiterlimit\n",
				num(s.Style.Width*lineScale(full)), psCap(s.Style.Cap),
				psJoin(s.Style.Join), num(miterLimit(s.Style)))
			p.printf("newpath\n")
			emitPath(p, s.Path, full)
			p.printf("stroke\n")
		}
	}

	p.printf("grestore\n")
	p.printf("showpage\n")
	p.printf("%%%%Trailer\n")
	p.printf("%%%%EOF\n")
	if p.err != nil {
		return p.err
	}
	return p.w.Flush()
}

// psCap and psJoin return the operand values of setlinecap and
// setlinejoin.
func psCap(c raster.LineCap) int {
	switch c {
	case raster.RoundCap:
		return 1
	case raster.SquareCap:
		return 2
	default:
		return 0
	}
}

func psJoin(j raster.LineJoin) int {
	switch j {
	case raster.RoundJoin:
		return 1
	case raster.BevelJoin:
		return 2
	default:
		return 0
	}
}
