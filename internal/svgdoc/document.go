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

// Package svgdoc parses traced SVG markup into a typed node tree, patches
// it into a canonical sized document, and extracts drawable shapes from
// it.
package svgdoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Attr is a single attribute. Name keeps its namespace prefix, if any.
type Attr struct {
	Name  string
	Value string
}

// Node is an element or a text node of a parsed document.
type Node struct {
	// Name is the qualified element name, e.g. "svg" or "xlink:href".
	// It is empty for text nodes.
	Name     string
	Attrs    []Attr
	Children []*Node

	// Text is the character data of a text node.
	Text string
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool {
	return n.Name == ""
}

// Local returns the element name without its namespace prefix.
func (n *Node) Local() string {
	if i := strings.IndexByte(n.Name, ':'); i >= 0 {
		return n.Name[i+1:]
	}
	return n.Name
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets the named attribute, replacing an existing value in place
// or appending a new attribute.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// RemoveAttr deletes the named attribute, if present.
func (n *Node) RemoveAttr(name string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return
		}
	}
}

// Find returns the first element, in document order, whose local name is
// local. The search includes n itself.
func (n *Node) Find(local string) *Node {
	if !n.IsText() && n.Local() == local {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(local); found != nil {
			return found
		}
	}
	return nil
}

// findPath is like Find, but also returns the ancestors of the match,
// outermost first.
func (n *Node) findPath(local string, above []*Node) (*Node, []*Node) {
	if !n.IsText() && n.Local() == local {
		return n, above
	}
	above = append(above, n)
	for _, c := range n.Children {
		if found, path := c.findPath(local, above); found != nil {
			return found, path
		}
	}
	return nil, nil
}

// Count returns the number of elements below and including n whose local
// name is local.
func (n *Node) Count(local string) int {
	count := 0
	if !n.IsText() && n.Local() == local {
		count++
	}
	for _, c := range n.Children {
		count += c.Count(local)
	}
	return count
}

// Document is a parsed SVG document.
type Document struct {
	// Root is the top-level element.
	Root *Node
}

var errNoElement = errors.New("no root element")

// Parse builds the node tree for markup. The XML declaration, comments,
// processing instructions and directives are dropped.
func Parse(markup string) (*Document, error) {
	dec := xml.NewDecoder(strings.NewReader(markup))
	dec.Entity = xml.HTMLEntity

	var root *Node
	var stack []*Node
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: qualified(t.Name)}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Name: qualified(a.Name), Value: a.Value})
			}
			switch {
			case len(stack) > 0:
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			case root == nil:
				root = n
			default:
				return nil, fmt.Errorf("second top-level element <%s>", n.Name)
			}
			stack = append(stack, n)

		case xml.EndElement:
			name := qualified(t.Name)
			if len(stack) == 0 || stack[len(stack)-1].Name != name {
				return nil, fmt.Errorf("unexpected </%s>", name)
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, errors.New("text outside of the root element")
				}
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &Node{Text: string(t)})
		}
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("unclosed <%s>", stack[len(stack)-1].Name)
	}
	if root == nil {
		return nil, errNoElement
	}
	return &Document{Root: root}, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// String serialises the document.
func (d *Document) String() string {
	var buf strings.Builder
	if d.Root != nil {
		writeNode(&buf, d.Root)
	}
	return buf.String()
}

// WriteTo writes the serialised document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.String())
	return int64(n), err
}

func writeNode(buf *strings.Builder, n *Node) {
	if n.IsText() {
		xml.EscapeText(buf, []byte(n.Text))
		return
	}
	buf.WriteByte('<')
	buf.WriteString(n.Name)
	for _, a := range n.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		xml.EscapeText(buf, []byte(a.Value))
		buf.WriteByte('"')
	}
	if len(n.Children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	for _, c := range n.Children {
		writeNode(buf, c)
	}
	buf.WriteString("</")
	buf.WriteString(n.Name)
	buf.WriteByte('>')
}
