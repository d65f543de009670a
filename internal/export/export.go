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

// Package export writes a conversion result to a file format.
//
// All formats render the normalised vector document at its natural size.
// PNG is rasterised at that size; the raster proxy is never exported.
package export

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"

	"seehuhn.de/go/geom/matrix"

	"seehuhn.de/go/vectorize/internal/pixels"
	"seehuhn.de/go/vectorize/internal/proxy"
	"seehuhn.de/go/vectorize/internal/svgdoc"
)

var errEmptySize = errors.New("natural size is empty")

// Write encodes the normalised markup in format f.
func Write(ctx context.Context, w io.Writer, f Format, markup string, size pixels.Size) error {
	if size.Width <= 0 || size.Height <= 0 {
		return errEmptySize
	}
	doc, err := svgdoc.Parse(markup)
	if err != nil {
		return fmt.Errorf("export %s: %w", f, err)
	}

	switch f {
	case SVG:
		_, err = doc.WriteTo(w)
	case PNG:
		err = writePNG(ctx, w, doc, size)
	case PDF:
		err = writePDF(ctx, w, doc, size)
	case EPS:
		err = writeEPS(ctx, w, doc, size)
	default:
		err = fmt.Errorf("unsupported export format %q", f)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", f, err)
	}
	return nil
}

func writePNG(ctx context.Context, w io.Writer, doc *svgdoc.Document, size pixels.Size) error {
	img, err := proxy.Rasterize(ctx, doc, size.Width, size.Height)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// pageMatrix maps viewBox coordinates to a page of the natural size with
// the origin at the top left.
func pageMatrix(doc *svgdoc.Document, size pixels.Size) (matrix.Matrix, error) {
	vb, ok := doc.ViewBox()
	if !ok {
		return matrix.Matrix{}, errors.New("document has no usable viewBox")
	}
	fit := proxy.Fit(vb.URx-vb.LLx, vb.URy-vb.LLy, float64(size.Width), float64(size.Height))
	return svgdoc.Concat(matrix.Matrix{1, 0, 0, 1, -vb.LLx, -vb.LLy}, fit), nil
}
