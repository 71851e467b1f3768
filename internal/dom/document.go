// Package dom is the page runtime's document model: a parsed HTML tree with
// the small query and mutation surface feature code needs (class lists,
// attributes, inline styles, fragment insertion).
//
// There is no layout engine. The host reports the document height through
// SetHeight when it knows it.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Document is a parsed page. It is not safe for concurrent use; the page
// runtime only touches it from its event loop.
type Document struct {
	root      *html.Node
	nodes     map[*html.Node]*Node
	listeners listenerTable
	height    int
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &Document{root: root, nodes: make(map[*html.Node]*Node)}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// MustParse is ParseString for fixtures; it panics on error.
func MustParse(s string) *Document {
	d, err := ParseString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Document) wrap(n *html.Node) *Node {
	if n == nil {
		return nil
	}
	if w, ok := d.nodes[n]; ok {
		return w
	}
	w := &Node{doc: d, n: n}
	d.nodes[n] = w
	return w
}

// Body returns the <body> element.
func (d *Document) Body() *Node { return d.One("body") }

// Head returns the <head> element.
func (d *Document) Head() *Node { return d.One("head") }

// One returns the first element matching sel, or nil.
func (d *Document) One(sel string) *Node {
	found := findAll(d.root, MustCompile(sel), 1)
	if len(found) == 0 {
		return nil
	}
	return d.wrap(found[0])
}

// All returns every element matching sel in document order.
func (d *Document) All(sel string) []*Node {
	found := findAll(d.root, MustCompile(sel), 0)
	out := make([]*Node, 0, len(found))
	for _, n := range found {
		out = append(out, d.wrap(n))
	}
	return out
}

// ByID returns the element with the given id, or nil.
func (d *Document) ByID(id string) *Node {
	if id == "" {
		return nil
	}
	return d.One("#" + id)
}

// Height is the full document height in pixels as last reported by the host.
func (d *Document) Height() int { return d.height }

// SetHeight records the full document height.
func (d *Document) SetHeight(h int) { d.height = h }

// Render serializes the whole document.
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", fmt.Errorf("rendering document: %w", err)
	}
	return buf.String(), nil
}
