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

package svgdoc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/vectorize/internal/errx"
)

const (
	svgNamespace = "http://www.w3.org/2000/svg"

	// centred, uniform scaling
	aspectMeet = "xMidYMid meet"
)

// Normalize parses raw tracer output and patches its <svg> element so that
// the document is self-contained and sized to width×height pixels:
//
//   - viewBox is "0 0 width height"
//   - width and height equal the pixel size
//   - preserveAspectRatio centres the drawing and scales it uniformly
//   - the SVG namespace is declared
//
// If the <svg> element is nested inside other markup, it becomes the root
// of the returned document. Output without an <svg> element, or which is
// not well-formed, gives an *errx.MalformedVectorError.
func Normalize(markup string, width, height int) (*Document, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid natural size %dx%d", width, height)
	}

	doc, err := Parse(markup)
	if err != nil {
		return nil, &errx.MalformedVectorError{Err: err}
	}
	root, ancestors := doc.Root.findPath("svg", nil)
	if root == nil {
		return nil, &errx.MalformedVectorError{Err: errors.New("no <svg> element")}
	}
	inheritNamespaces(root, ancestors)
	doc.Root = root

	w := strconv.Itoa(width)
	h := strconv.Itoa(height)
	root.SetAttr("viewBox", "0 0 "+w+" "+h)
	root.SetAttr("width", w)
	root.SetAttr("height", h)
	root.SetAttr("preserveAspectRatio", aspectMeet)
	if _, ok := root.Attr("xmlns"); !ok && root.Name == "svg" {
		root.SetAttr("xmlns", svgNamespace)
	}
	return doc, nil
}

// inheritNamespaces copies the namespace declarations in scope at root
// onto root itself, so that it can stand alone without its ancestors.
func inheritNamespaces(root *Node, ancestors []*Node) {
	for i := len(ancestors) - 1; i >= 0; i-- {
		for _, a := range ancestors[i].Attrs {
			if a.Name != "xmlns" && !strings.HasPrefix(a.Name, "xmlns:") {
				continue
			}
			if _, ok := root.Attr(a.Name); !ok {
				root.SetAttr(a.Name, a.Value)
			}
		}
	}
}

// PathCount returns the number of <path> elements in the document.
func (d *Document) PathCount() int {
	if d.Root == nil {
		return 0
	}
	return d.Root.Count("path")
}

// ViewBox returns the viewBox of the root element. If the attribute is
// missing or invalid, the width and height attributes are used instead.
func (d *Document) ViewBox() (rect.Rect, bool) {
	if d.Root == nil {
		return rect.Rect{}, false
	}
	if v, ok := d.Root.Attr("viewBox"); ok {
		nums, err := parseNumberList(v)
		if err == nil && len(nums) == 4 && nums[2] > 0 && nums[3] > 0 {
			return rect.Rect{
				LLx: nums[0],
				LLy: nums[1],
				URx: nums[0] + nums[2],
				URy: nums[1] + nums[3],
			}, true
		}
	}
	w, okW := d.Root.Attr("width")
	h, okH := d.Root.Attr("height")
	if !okW || !okH {
		return rect.Rect{}, false
	}
	wf, errW := parseLength(w)
	hf, errH := parseLength(h)
	if errW != nil || errH != nil || wf <= 0 || hf <= 0 {
		return rect.Rect{}, false
	}
	return rect.Rect{URx: wf, URy: hf}, true
}
