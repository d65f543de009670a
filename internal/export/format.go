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
	"fmt"
	"strings"
)

// Format is an export file format.
type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
	PDF Format = "pdf"
	EPS Format = "eps"
)

// Formats lists the supported formats in menu order.
var Formats = []Format{SVG, PNG, PDF, EPS}

// ParseFormat accepts a format name or file extension, in any case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) String() string {
	return string(f)
}

// Extension returns the file name extension, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// MIMEType returns the media type of files in this format.
func (f Format) MIMEType() string {
	switch f {
	case SVG:
		return "image/svg+xml"
	case PNG:
		return "image/png"
	case PDF:
		return "application/pdf"
	case EPS:
		return "application/postscript"
	default:
		return "application/octet-stream"
	}
}

// Filename replaces the extension of name by the one of f. An empty name
// becomes "vectorized".
func (f Format) Filename(name string) string {
	base := name
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		base = "vectorized"
	}
	return base + f.Extension()
}
