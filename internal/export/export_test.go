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
	"bytes"
	"context"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/vectorize/internal/pixels"
	"seehuhn.de/go/vectorize/internal/svgdoc"
)

const sample = `<svg xmlns="http://www.w3.org/2000/svg">` +
	`<path fill="#cc0000" d="M0 0H40V20H0Z"/>` +
	`<path fill="#0000ff" fill-rule="evenodd" stroke="#00ff00" stroke-width="2" stroke-linecap="round" d="M10 5H30V15H10Z"/>` +
	`</svg>`

func normalized(t *testing.T) (string, pixels.Size) {
	t.Helper()
	doc, err := svgdoc.Normalize(sample, 40, 20)
	require.NoError(t, err)
	return doc.String(), pixels.Size{Width: 40, Height: 20}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"svg": SVG, "PNG": PNG, ".pdf": PDF, " eps ": EPS,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("gif")
	assert.Error(t, err)
}

func TestFormatNames(t *testing.T) {
	assert.Equal(t, "photo.svg", SVG.Filename("photo.png"))
	assert.Equal(t, "archive.tar.eps", EPS.Filename("archive.tar.gz"))
	assert.Equal(t, "vectorized.pdf", PDF.Filename(""))
	assert.Equal(t, ".hidden.png", PNG.Filename(".hidden"))
	assert.Equal(t, "image/svg+xml", SVG.MIMEType())
	assert.Equal(t, "application/postscript", EPS.MIMEType())
}

func TestWriteSVG(t *testing.T) {
	markup, size := normalized(t)
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, SVG, markup, size))
	assert.Equal(t, markup, buf.String())
}

func TestWritePNGAtNaturalSize(t *testing.T) {
	markup, size := normalized(t)
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, PNG, markup, size))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())

	r, g, b, a := img.At(2, 2).RGBA()
	assert.Equal(t, color.RGBA64{R: 0xcccc, A: 0xffff}, color.RGBA64{R: uint16(r), G: uint16(g), B: uint16(b), A: uint16(a)})
	_, _, b, _ = img.At(20, 10).RGBA()
	assert.Equal(t, uint32(0xffff), b)
}

func TestWritePDF(t *testing.T) {
	markup, size := normalized(t)
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, PDF, markup, size))

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-1.7")), "%q", out[:min(len(out), 16)])
	assert.True(t, bytes.HasSuffix(bytes.TrimSpace(out), []byte("%%EOF")))
}

func TestWriteEPS(t *testing.T) {
	markup, size := normalized(t)
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, EPS, markup, size))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "%!PS-Adobe-3.0 EPSF-3.0\n"))
	assert.Contains(t, out, "%%BoundingBox: 0 0 40 20\n")
	assert.Contains(t, out, "0 20 translate 1 -1 scale\n")
	assert.Contains(t, out, "0.8 0 0 rg\nnewpath\n0 0 m\n40 0 l\n40 20 l\n0 20 l\nh\nfill\n")
	assert.Contains(t, out, "eofill\n")
	assert.Contains(t, out, "2 setlinewidth 1 setlinecap 0 setlinejoin 4 setmiterlimit\n")
	assert.Equal(t, 1, strings.Count(out, "stroke\n"))
	assert.True(t, strings.HasSuffix(out, "%%EOF\n"))
}

func TestWriteErrors(t *testing.T) {
	markup, size := normalized(t)

	err := Write(context.Background(), &bytes.Buffer{}, SVG, markup, pixels.Size{})
	assert.Error(t, err)

	err = Write(context.Background(), &bytes.Buffer{}, Format("gif"), markup, size)
	assert.Error(t, err)

	err = Write(context.Background(), &bytes.Buffer{}, SVG, "<svg", size)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, f := range []Format{PNG, EPS} {
		err = Write(ctx, &bytes.Buffer{}, f, markup, size)
		assert.ErrorIs(t, err, context.Canceled, f)
	}
}

func pt(x, y float64) vec.Vec2 {
	return vec.Vec2{X: x, Y: y}
}

type recorder []string

func (r *recorder) MoveTo(x, y float64) { *r = append(*r, "M"+num(x)+" "+num(y)) }
func (r *recorder) LineTo(x, y float64) { *r = append(*r, "L"+num(x)+" "+num(y)) }
func (r *recorder) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	*r = append(*r, "C"+strings.Join([]string{num(x1), num(y1), num(x2), num(y2), num(x3), num(y3)}, " "))
}
func (r *recorder) ClosePath() { *r = append(*r, "Z") }

func TestEmitPathTransformsAndRaisesQuadratics(t *testing.T) {
	p := (&path.Data{}).MoveTo(pt(0, 0)).QuadTo(pt(3, 3), pt(6, 0)).Close()

	var r recorder
	emitPath(&r, p, matrix.Matrix{2, 0, 0, 2, 1, 1})
	require.Len(t, r, 3)
	assert.Equal(t, "M1 1", r[0])
	// the cubic control points lie two thirds of the way to the quadratic one
	assert.Equal(t, "C5 5 9 5 13 1", r[1])
	assert.Equal(t, "Z", r[2])
}

func TestLineScale(t *testing.T) {
	assert.Equal(t, 1.0, lineScale(matrix.Identity))
	assert.InDelta(t, 3.0, lineScale(matrix.Matrix{3, 0, 0, -3, 5, 5}), 1e-12)
}
