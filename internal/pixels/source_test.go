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
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seehuhn.de/go/vectorize/internal/errx"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

func TestParseDataURL(t *testing.T) {
	data := encodePNG(t, checker(3, 2))
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	src, err := ParseDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", src.MIMEType)
	assert.Equal(t, data, src.Data)
}

func TestParseDataURLErrors(t *testing.T) {
	for _, in := range []string{
		"image/png;base64,AAAA",
		"data:image/png;base64",
		"data:image/png;base64,!!!",
	} {
		_, err := ParseDataURL(in)
		require.Error(t, err, in)
		assert.Equal(t, errx.KindDecode, errx.KindOf(err), in)
	}
}

func TestDecodeNaturalSize(t *testing.T) {
	src := Source{Data: encodePNG(t, checker(7, 5)), MIMEType: "image/png"}
	img, err := Decode(src, 0)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 7, Height: 5}, NaturalSize(img))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(1, 0))
}

func TestDecodeOffsetBounds(t *testing.T) {
	sub := checker(10, 10).SubImage(image.Rect(3, 4, 8, 6))
	img, err := Decode(Source{Data: encodePNG(t, sub)}, 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 2), img.Bounds())
}

func TestDecodeErrors(t *testing.T) {
	good := encodePNG(t, checker(2, 2))
	cases := map[string]Source{
		"empty":       {MIMEType: "image/png"},
		"corrupt":     {Data: []byte("not an image"), MIMEType: "image/png"},
		"unsupported": {Data: good, MIMEType: "application/pdf"},
		"truncated":   {Data: good[:len(good)/2]},
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(src, 0)
			var de *errx.DecodeError
			require.ErrorAs(t, err, &de)
		})
	}
}

func TestDecodeBlur(t *testing.T) {
	src := Source{Data: encodePNG(t, checker(8, 8))}
	img, err := Decode(src, 1.5)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 8, Height: 8}, NaturalSize(img))

	// a blurred checkerboard converges to mid grey
	c := img.NRGBAAt(4, 4)
	assert.InDelta(t, 127, int(c.R), 12)
	assert.Equal(t, uint8(255), c.A)
}

func TestBlurUniformImageUnchanged(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	fill := color.NRGBA{10, 200, 40, 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}
	out := gaussianBlur(img, 2)
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			assert.Equal(t, fill, out.NRGBAAt(x, y))
		}
	}
}

func TestGaussianKernel(t *testing.T) {
	k := gaussianKernel(1, 100)
	require.Len(t, k, 7)
	var sum float32
	for _, v := range k {
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-5)
	assert.Equal(t, k[0], k[6])
	assert.Greater(t, k[3], k[2])
}

func TestGaussianKernelBoundedByImage(t *testing.T) {
	for _, sigma := range []float64{1e5, 1e15, 1e300, math.Inf(1)} {
		k := gaussianKernel(sigma, 4)
		require.Len(t, k, 9, "sigma %g", sigma)
		var sum float32
		for _, v := range k {
			require.False(t, math.IsNaN(float64(v)), "sigma %g", sigma)
			sum += v
		}
		assert.InDelta(t, 1, sum, 1e-5)
	}
	assert.Len(t, gaussianKernel(0.2, 50), 3)
}

func TestDecodeHugeBlur(t *testing.T) {
	src := Source{Data: encodePNG(t, checker(4, 4)), MIMEType: "image/png"}
	for _, blur := range []float64{1e5, 1e15, 1e300, math.Inf(1)} {
		img, err := Decode(src, blur)
		require.NoError(t, err, "blur %g", blur)
		assert.Equal(t, Size{Width: 4, Height: 4}, NaturalSize(img))
		c := img.NRGBAAt(1, 2)
		assert.Equal(t, uint8(255), c.A, "blur %g", blur)
		assert.InDelta(t, 127, int(c.R), 30, "blur %g", blur)
	}

	img, err := Decode(src, math.NaN())
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(0, 0), "NaN means no blur")
}
