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
	"context"
	"io"
	"math"
	"os"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics"
	"seehuhn.de/go/pdf/graphics/color"

	"seehuhn.de/go/vectorize/internal/pixels"
	"seehuhn.de/go/vectorize/internal/svgdoc"
	"seehuhn.de/go/vectorize/raster"
)

// pathSink receives path construction operators in page coordinates.
type pathSink interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	CurveTo(x1, y1, x2, y2, x3, y3 float64)
	ClosePath()
}

// emitPath sends p, transformed by m, to out. Quadratic segments are
// raised to cubics.
func emitPath(out pathSink, p *path.Data, m matrix.Matrix) {
	for cmd, pts := range p.Iter().ToCubic() {
		switch cmd {
		case path.CmdMoveTo:
			a := svgdoc.Apply(m, pts[0])
			out.MoveTo(a.X, a.Y)
		case path.CmdLineTo:
			a := svgdoc.Apply(m, pts[0])
			out.LineTo(a.X, a.Y)
		case path.CmdCubeTo:
			a := svgdoc.Apply(m, pts[0])
			b := svgdoc.Apply(m, pts[1])
			c := svgdoc.Apply(m, pts[2])
			out.CurveTo(a.X, a.Y, b.X, b.Y, c.X, c.Y)
		case path.CmdClose:
			out.ClosePath()
		}
	}
}

// lineScale is the factor by which m scales lengths on average.
func lineScale(m matrix.Matrix) float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}

func miterLimit(s raster.StrokeStyle) float64 {
	if s.MiterLimit < 1 {
		return 4
	}
	return s.MiterLimit
}

// writePDF writes a single page of the natural size, one point per pixel.
// Colours are painted opaque.
func writePDF(ctx context.Context, w io.Writer, doc *svgdoc.Document, size pixels.Size) error {
	m, err := pageMatrix(doc, size)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "vectorize-*.pdf")
	if err != nil {
		return err
	}
	name := tmp.Name()
	tmp.Close()
	defer os.Remove(name)

	width, height := float64(size.Width), float64(size.Height)
	paper := &pdf.Rectangle{URx: width, URy: height}
	page, err := document.CreateSinglePage(name, paper, pdf.V1_7, nil)
	if err != nil {
		return err
	}

	// PDF origin is bottom-left, the document's is top-left.
	page.Transform(matrix.Matrix{1, 0, 0, -1, 0, height})

	for _, s := range doc.Shapes() {
		if err := ctx.Err(); err != nil {
			page.Close()
			return err
		}
		if len(s.Path.Cmds) == 0 {
			continue
		}
		full := svgdoc.Concat(s.Transform, m)

		if s.Fill.A > 0 {
			page.SetFillColor(deviceRGB(s.Fill))
			emitPath(page, s.Path, full)
			if s.FillRule == raster.EvenOdd {
				page.FillEvenOdd()
			} else {
				page.Fill()
			}
		}
		if s.Stroke.A > 0 && s.Style.Width > 0 {
			page.SetStrokeColor(deviceRGB(s.Stroke))
			page.SetLineWidth(s.Style.Width * lineScale(full))
			page.SetLineCap(pdfCap(s.Style.Cap))
			page.SetLineJoin(pdfJoin(s.Style.Join))
			page.SetMiterLimit(miterLimit(s.Style))
			emitPath(page, s.Path, full)
			page.Stroke()
		}
	}
	if err := page.Close(); err != nil {
		return err
	}

	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func deviceRGB(c interface{ RGBA() (r, g, b, a uint32) }) color.DeviceRGB {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return color.DeviceRGB{0, 0, 0}
	}
	// un-premultiply
	return color.DeviceRGB{
		float64(r) / float64(a),
		float64(g) / float64(a),
		float64(b) / float64(a),
	}
}

func pdfCap(c raster.LineCap) graphics.LineCapStyle {
	switch c {
	case raster.RoundCap:
		return graphics.LineCapRound
	case raster.SquareCap:
		return graphics.LineCapSquare
	default:
		return graphics.LineCapButt
	}
}

func pdfJoin(j raster.LineJoin) graphics.LineJoinStyle {
	switch j {
	case raster.RoundJoin:
		return graphics.LineJoinRound
	case raster.BevelJoin:
		return graphics.LineJoinBevel
	default:
		return graphics.LineJoinMiter
	}
}
