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

// Package pixels decodes uploaded images into pixel buffers for tracing.
package pixels

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"seehuhn.de/go/vectorize/internal/errx"
)

// Supported lists the MIME types accepted by Decode.
var Supported = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/tiff",
}

var errNoPayload = errors.New("empty image payload")

// Source is an encoded image payload.
type Source struct {
	// Data holds the encoded image bytes.
	Data []byte

	// MIMEType is the declared type of Data. An empty string means that
	// the format is detected from the data.
	MIMEType string

	// Name is the original file name, if known.
	Name string
}

// ParseDataURL extracts the payload of a "data:" URL, as produced by a
// browser file reader.
func ParseDataURL(s string) (Source, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return Source{}, &errx.DecodeError{Err: errors.New("not a data URL")}
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Source{}, &errx.DecodeError{Err: errors.New("data URL without payload")}
	}

	isBase64 := false
	mimeType := ""
	for i, part := range strings.Split(meta, ";") {
		switch {
		case i == 0:
			mimeType = strings.ToLower(strings.TrimSpace(part))
		case part == "base64":
			isBase64 = true
		}
	}

	var data []byte
	if isBase64 {
		var err error
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(payload)
		}
		if err != nil {
			return Source{}, &errx.DecodeError{MIMEType: mimeType, Err: fmt.Errorf("base64 payload: %w", err)}
		}
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return Source{}, &errx.DecodeError{MIMEType: mimeType, Err: err}
		}
		data = []byte(unescaped)
	}
	return Source{Data: data, MIMEType: mimeType}, nil
}

// Size is the pixel size of an image.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Decode decodes src into a pixel buffer of exactly the image's natural
// size. If blur is positive, a Gaussian blur with this standard deviation,
// in pixels, is applied before the pixels are returned.
//
// All failures are reported as *errx.DecodeError.
func Decode(src Source, blur float64) (*image.NRGBA, error) {
	if len(src.Data) == 0 {
		return nil, &errx.DecodeError{MIMEType: src.MIMEType, Err: errNoPayload}
	}
	if src.MIMEType != "" && !isSupported(src.MIMEType) {
		return nil, &errx.DecodeError{MIMEType: src.MIMEType, Err: errors.New("unsupported image type")}
	}
	if !(blur > 0) {
		blur = 0
	}

	img, format, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return nil, &errx.DecodeError{MIMEType: src.MIMEType, Err: err}
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, &errx.DecodeError{MIMEType: "image/" + format, Err: errors.New("image has no pixels")}
	}

	if blur > 0 {
		return gaussianBlur(img, blur), nil
	}

	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out, nil
}

// NaturalSize returns the size of a decoded buffer.
func NaturalSize(img image.Image) Size {
	b := img.Bounds()
	return Size{Width: b.Dx(), Height: b.Dy()}
}

func isSupported(mimeType string) bool {
	mimeType, _, _ = strings.Cut(strings.ToLower(mimeType), ";")
	if mimeType == "image/jpg" {
		return true
	}
	for _, m := range Supported {
		if m == mimeType {
			return true
		}
	}
	return false
}
