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

package pixels

import (
	"image"
	"image/draw"
	"math"
	"sync"
)

// scratch holds premultiplied float channels between the two blur passes.
var scratch = sync.Pool{
	New: func() any { return new([]float32) },
}

// gaussianKernel returns a normalised kernel of size 2*ceil(3σ)+1, but
// with at most maxHalf taps on either side. Taps further out than the
// image extent would only sample the repeated edge pixel.
func gaussianKernel(sigma float64, maxHalf int) []float32 {
	maxHalf = max(maxHalf, 0)
	half := maxHalf
	if r := math.Ceil(3 * sigma); r < float64(maxHalf) {
		half = int(r)
	}
	k := make([]float32, 2*half+1)
	var sum float64
	for i := range k {
		x := float64(i - half)
		v := math.Exp(-x * x / (2 * sigma * sigma))
		k[i] = float32(v)
		sum += v
	}
	for i := range k {
		k[i] /= float32(sum)
	}
	return k
}

// gaussianBlur blurs img with a separable Gaussian kernel. The blur works
// on premultiplied values, so transparent pixels do not bleed their colour
// into opaque neighbours. Pixels beyond the border repeat the edge pixel.
func gaussianBlur(img image.Image, sigma float64) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	src := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)

	k := gaussianKernel(sigma, max(w, h))
	half := len(k) / 2

	bufp := scratch.Get().(*[]float32)
	defer scratch.Put(bufp)
	n := 4 * w * h
	if cap(*bufp) < n {
		*bufp = make([]float32, n)
	}
	tmp := (*bufp)[:n]

	// horizontal pass: src -> tmp
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			var acc [4]float32
			for i, wt := range k {
				sx := min(max(x+i-half, 0), w-1)
				p := row[4*sx : 4*sx+4]
				acc[0] += wt * float32(p[0])
				acc[1] += wt * float32(p[1])
				acc[2] += wt * float32(p[2])
				acc[3] += wt * float32(p[3])
			}
			copy(tmp[4*(y*w+x):], acc[:])
		}
	}

	// vertical pass: tmp -> out, undoing the premultiplication
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [4]float32
			for i, wt := range k {
				sy := min(max(y+i-half, 0), h-1)
				p := tmp[4*(sy*w+x):]
				acc[0] += wt * p[0]
				acc[1] += wt * p[1]
				acc[2] += wt * p[2]
				acc[3] += wt * p[3]
			}
			o := out.Pix[y*out.Stride+4*x:]
			a := acc[3]
			if a < 0.5 {
				o[0], o[1], o[2], o[3] = 0, 0, 0, 0
				continue
			}
			scale := 255 / a
			o[0] = toByte(acc[0] * scale)
			o[1] = toByte(acc[1] * scale)
			o[2] = toByte(acc[2] * scale)
			o[3] = toByte(a)
		}
	}
	return out
}

func toByte(v float32) uint8 {
	v += 0.5
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
