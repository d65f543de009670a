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

// Package proxy renders normalised vector documents back into bitmaps.
//
// The square proxy image stands in for the live vector layer while the
// viewer is being panned, zoomed or re-parameterised.
package proxy

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"

	"seehuhn.de/go/geom/matrix"

	"seehuhn.de/go/vectorize/internal/svgdoc"
	"seehuhn.de/go/vectorize/raster"
)

// DefaultSize is the edge length of the viewer frame, in pixels.
const DefaultSize = 500

var errNoViewBox = errors.New("document has no usable viewBox")

// Renderer renders documents into a fixed square target.
type Renderer struct {
	// Size is the edge length of the target, in pixels.
	Size int
}

// New returns a renderer for a size×size target. A non-positive size
// selects DefaultSize.
func New(size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{Size: size}
}

// Render rasterises doc into the square target, centred and scaled
// uniformly, and returns the result as a PNG data URI.
func (r *Renderer) Render(ctx context.Context, doc *svgdoc.Document) (string, error) {
	img, err := Rasterize(ctx, doc, r.Size, r.Size)
	if err != nil {
		return "", err
	}
	return EncodeDataURI(img)
}

// Rasterize renders doc into a transparent width×height image. The
// document's viewBox is fitted into the image, centred and scaled
// uniformly, which matches preserveAspectRatio="xMidYMid meet".
func Rasterize(ctx context.Context, doc *svgdoc.Document, width, height int) (img *image.RGBA, err error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	vb, ok := doc.ViewBox()
	if !ok {
		return nil, errNoViewBox
	}

	defer func() {
		if p := recover(); p != nil {
			img = nil
			err = fmt.Errorf("rasterize: %v", p)
		}
	}()

	fit := Fit(vb.URx-vb.LLx, vb.URy-vb.LLy, float64(width), float64(height))
	fit = svgdoc.Concat(matrix.Matrix{1, 0, 0, 1, -vb.LLx, -vb.LLy}, fit)

	c := raster.NewCanvas(width, height)
	for _, s := range doc.Shapes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.SetTransform(svgdoc.Concat(s.Transform, fit))
		c.FillPath(s.Path, s.FillRule, s.Fill)
		if s.Style.Width > 0 {
			c.StrokePath(s.Path, s.Style, s.Stroke)
		}
	}
	return c.Image(), nil
}

// Fit returns the transform which scales a w×h box uniformly to fit into
// a targetW×targetH box and centres it.
func Fit(w, h, targetW, targetH float64) matrix.Matrix {
	s := min(targetW/w, targetH/h)
	tx := (targetW - w*s) / 2
	ty := (targetH - h*s) / 2
	return matrix.Matrix{s, 0, 0, s, tx, ty}
}

// EncodeDataURI encodes img as a PNG data URI.
func EncodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
