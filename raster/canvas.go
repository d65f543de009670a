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
	"image"
	"image/color"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
)

// Canvas paints filled paths onto an RGBA image, in painter's order.
// Colours are composited with the source-over operator.
type Canvas struct {
	img *image.RGBA
	r   *Rasteriser
	ctm matrix.Matrix
}

// NewCanvas returns a transparent canvas of the given size.
func NewCanvas(width, height int) *Canvas {
	clip := rect.Rect{URx: float64(width), URy: float64(height)}
	return &Canvas{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
		r:   NewRasteriser(clip),
		ctm: matrix.Identity,
	}
}

// SetTransform sets the matrix which maps path coordinates to pixels for
// all following FillPath calls.
func (c *Canvas) SetTransform(m matrix.Matrix) {
	c.ctm = m
}

// Clear fills the whole canvas with col, replacing what was there.
func (c *Canvas) Clear(col color.Color) {
	r, g, b, a := col.RGBA()
	px := [4]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	for i := 0; i < len(c.img.Pix); i += 4 {
		copy(c.img.Pix[i:i+4], px[:])
	}
}

// FillPath paints the interior of p with col. The alpha channel of col
// is combined with the per-pixel coverage.
func (c *Canvas) FillPath(p *path.Data, rule FillRule, col color.NRGBA) {
	if col.A == 0 {
		return
	}
	c.r.CTM = c.ctm
	c.r.Fill(p, rule, c.painter(col))
}

// StrokePath paints the outline of p with col.
func (c *Canvas) StrokePath(p *path.Data, style StrokeStyle, col color.NRGBA) {
	if col.A == 0 {
		return
	}
	c.r.CTM = c.ctm
	c.r.Stroke(p, style, c.painter(col))
}

// painter returns a coverage callback which composites col onto the
// image.
func (c *Canvas) painter(col color.NRGBA) func(y, xMin int, coverage []float32) {
	sr := float32(col.R) / 255
	sg := float32(col.G) / 255
	sb := float32(col.B) / 255
	sa := float32(col.A) / 255

	pix := c.img.Pix
	stride := c.img.Stride
	return func(y, xMin int, coverage []float32) {
		row := pix[y*stride+4*xMin:]
		for i, cov := range coverage {
			a := sa * cov
			if a <= 0 {
				continue
			}
			keep := 1 - a
			o := 4 * i
			row[o+0] = blend(sr*a, row[o+0], keep)
			row[o+1] = blend(sg*a, row[o+1], keep)
			row[o+2] = blend(sb*a, row[o+2], keep)
			row[o+3] = blend(a, row[o+3], keep)
		}
	}
}

// blend computes src + dst*keep for premultiplied channel values, with src
// in [0, 1] and dst in [0, 255].
func blend(src float32, dst uint8, keep float32) uint8 {
	v := src*255 + float32(dst)*keep + 0.5
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// Image returns the canvas pixels. The image is shared with the canvas.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}
