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

package proxy

import (
	"context"
	"encoding/base64"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/matrix"

	"seehuhn.de/go/vectorize/internal/svgdoc"
)

func normalized(t *testing.T, markup string, w, h int) *svgdoc.Document {
	t.Helper()
	doc, err := svgdoc.Normalize(markup, w, h)
	require.NoError(t, err)
	return doc
}

func TestFit(t *testing.T) {
	// a wide image is letterboxed vertically
	assert.Equal(t, matrix.Matrix{0.5, 0, 0, 0.5, 0, 25}, Fit(200, 100, 100, 100))
	// a tall image is pillarboxed
	assert.Equal(t, matrix.Matrix{2, 0, 0, 2, 25, 0}, Fit(25, 50, 100, 100))
}

func TestRasterizeCentred(t *testing.T) {
	doc := normalized(t, `<svg><rect width="200" height="100" fill="#00f"/></svg>`, 200, 100)
	img, err := Rasterize(context.Background(), doc, 100, 100)
	require.NoError(t, err)

	assert.Equal(t, uint8(0), img.RGBAAt(50, 10).A, "letterbox above")
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(50, 50))
	assert.Equal(t, uint8(0), img.RGBAAt(50, 90).A, "letterbox below")
}

func TestRasterizeStroke(t *testing.T) {
	doc := normalized(t, `<svg><path d="M0 5 L10 5" fill="none" stroke="red" stroke-width="2"/></svg>`, 10, 10)
	img, err := Rasterize(context.Background(), doc, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(5, 4))
	assert.Equal(t, uint8(0), img.RGBAAt(5, 7).A)
}

func TestRasterizeCancelled(t *testing.T) {
	doc := normalized(t, `<svg><rect width="1" height="1"/></svg>`, 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Rasterize(ctx, doc, 8, 8)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRasterizeWithoutViewBox(t *testing.T) {
	doc, err := svgdoc.Parse(`<svg><rect width="1" height="1"/></svg>`)
	require.NoError(t, err)
	_, err = Rasterize(context.Background(), doc, 8, 8)
	assert.Error(t, err)
}

func TestRenderDataURI(t *testing.T) {
	doc := normalized(t, `<svg><rect x="2" y="2" width="6" height="6" fill="green"/></svg>`, 10, 10)
	uri, err := New(40).Render(context.Background(), doc)
	require.NoError(t, err)

	payload, ok := strings.CutPrefix(uri, "data:image/png;base64,")
	require.True(t, ok)
	data, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	img, err := png.Decode(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())

	_, g, _, a := img.At(20, 20).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Greater(t, g, uint32(0))
}

func TestNewDefaultSize(t *testing.T) {
	assert.Equal(t, DefaultSize, New(0).Size)
}
