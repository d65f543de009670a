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
	"fmt"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/vector"
	"seehuhn.de/go/geom/matrix"
)

func TestCanvasOpaqueFill(t *testing.T) {
	c := NewCanvas(16, 16)
	c.FillPath(rectangle(4, 4, 12, 12), NonZero, color.NRGBA{R: 255, A: 255})

	img := c.Image()
	if got := img.RGBAAt(8, 8); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("inside pixel = %v", got)
	}
	if got := img.RGBAAt(1, 1); got != (color.RGBA{}) {
		t.Errorf("outside pixel = %v", got)
	}
}

func TestCanvasSourceOver(t *testing.T) {
	c := NewCanvas(8, 8)
	c.Clear(color.White)
	c.FillPath(rectangle(0, 0, 8, 8), NonZero, color.NRGBA{B: 255, A: 128})

	got := c.Image().RGBAAt(3, 3)
	// half transparent blue over white
	if got.A != 255 {
		t.Errorf("alpha = %d, want 255", got.A)
	}
	if got.B != 255 {
		t.Errorf("blue = %d, want 255", got.B)
	}
	if got.R < 125 || got.R > 129 {
		t.Errorf("red = %d, want about 127", got.R)
	}
}

func TestCanvasTransform(t *testing.T) {
	c := NewCanvas(32, 32)
	c.SetTransform(matrix.Scale(4, 4))
	c.FillPath(rectangle(0, 0, 4, 4), NonZero, color.NRGBA{G: 255, A: 255})

	img := c.Image()
	if img.RGBAAt(15, 15).G != 255 {
		t.Errorf("pixel inside scaled square not painted")
	}
	if img.RGBAAt(16, 16).A != 0 {
		t.Errorf("pixel outside scaled square painted")
	}
}

func TestCanvasTransparentPaint(t *testing.T) {
	c := NewCanvas(4, 4)
	c.FillPath(rectangle(0, 0, 4, 4), NonZero, color.NRGBA{R: 255})
	for _, v := range c.Image().Pix {
		if v != 0 {
			t.Fatal("fully transparent paint changed the canvas")
		}
	}
}

// BenchmarkVectorCircle is the x/image/vector baseline for BenchmarkFillCircle.
func BenchmarkVectorCircle(b *testing.B) {
	for _, size := range []int{20, 200, 2000} {
		b.Run(fmt.Sprintf("%dx%d", size, size), func(b *testing.B) {
			r := vector.NewRasterizer(size, size)
			dst := image.NewAlpha(image.Rect(0, 0, size, size))
			src := image.NewUniform(color.Alpha{A: 255})
			c := float32(size) / 2

			b.ReportAllocs()
			for b.Loop() {
				r.Reset(size, size)
				vectorCircle(r, c, c, 0.45*float32(size), false)
				vectorCircle(r, c, c, 0.3*float32(size), true)
				r.Draw(dst, dst.Bounds(), src, image.Point{})
			}
		})
	}
}

func vectorCircle(r *vector.Rasterizer, cx, cy, radius float32, clockwise bool) {
	const kappa = float32(0.5522847498)
	k := kappa * radius
	r.MoveTo(cx, cy-radius)
	if clockwise {
		r.CubeTo(cx-k, cy-radius, cx-radius, cy-k, cx-radius, cy)
		r.CubeTo(cx-radius, cy+k, cx-k, cy+radius, cx, cy+radius)
		r.CubeTo(cx+k, cy+radius, cx+radius, cy+k, cx+radius, cy)
		r.CubeTo(cx+radius, cy-k, cx+k, cy-radius, cx, cy-radius)
	} else {
		r.CubeTo(cx+k, cy-radius, cx+radius, cy-k, cx+radius, cy)
		r.CubeTo(cx+radius, cy+k, cx+k, cy+radius, cx, cy+radius)
		r.CubeTo(cx-k, cy+radius, cx-radius, cy+k, cx-radius, cy)
		r.CubeTo(cx-radius, cy-k, cx-k, cy-radius, cx, cy-radius)
	}
	r.ClosePath()
}
