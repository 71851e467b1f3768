package dom

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Selector is a parsed selector list. Supported syntax:
//   - tag: "form", "select"
//   - #id: "#dialog-container"
//   - .class, repeatable: ".alert.alert-error"
//   - [attr] and [attr=val]: "input[type=submit]", "[data-validate]"
//   - descendant combinator: ".hd .close"
//   - groups: "input[data-validate], select[data-validate]"
type Selector struct {
	groups [][]compound
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	key    string
	val    string
	hasVal bool
}

var selectorCache sync.Map // string -> Selector

// MustCompile parses sel and panics on a syntax error. Selectors in this
// codebase are literals, so a bad one is a programming error.
func MustCompile(sel string) Selector {
	s, err := Compile(sel)
	if err != nil {
		panic(err)
	}
	return s
}

// Compile parses a selector list.
func Compile(sel string) (Selector, error) {
	if s, ok := selectorCache.Load(sel); ok {
		return s.(Selector), nil
	}
	var out Selector
	for _, group := range strings.Split(sel, ",") {
		parts := strings.Fields(group)
		if len(parts) == 0 {
			return Selector{}, fmt.Errorf("dom: empty selector group in %q", sel)
		}
		var chain []compound
		for _, p := range parts {
			c, err := parseCompound(p)
			if err != nil {
				return Selector{}, fmt.Errorf("dom: selector %q: %w", sel, err)
			}
			chain = append(chain, c)
		}
		out.groups = append(out.groups, chain)
	}
	selectorCache.Store(sel, out)
	return out, nil
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	readIdent := func() string {
		start := i
		for i < len(s) && s[i] != '.' && s[i] != '#' && s[i] != '[' {
			i++
		}
		return s[start:i]
	}

	c.tag = strings.ToLower(readIdent())
	for i < len(s) {
		switch s[i] {
		case '#':
			i++
			c.id = readIdent()
			if c.id == "" {
				return c, fmt.Errorf("empty id in %q", s)
			}
		case '.':
			i++
			cls := readIdent()
			if cls == "" {
				return c, fmt.Errorf("empty class in %q", s)
			}
			c.classes = append(c.classes, cls)
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute in %q", s)
			}
			body := s[i+1 : i+end]
			i += end + 1
			var m attrMatch
			if eq := strings.IndexByte(body, '='); eq >= 0 {
				m.key = body[:eq]
				m.val = strings.Trim(body[eq+1:], `"'`)
				m.hasVal = true
			} else {
				m.key = body
			}
			if m.key == "" {
				return c, fmt.Errorf("empty attribute name in %q", s)
			}
			c.attrs = append(c.attrs, m)
		default:
			return c, fmt.Errorf("unexpected %q in %q", s[i], s)
		}
	}
	return c, nil
}

// Match reports whether n matches any group of the selector.
func (s Selector) Match(n *html.Node) bool {
	for _, chain := range s.groups {
		if matchChain(n, chain) {
			return true
		}
	}
	return false
}

func matchChain(n *html.Node, chain []compound) bool {
	last := len(chain) - 1
	if !chain[last].match(n) {
		return false
	}
	i := last - 1
	for p := n.Parent; p != nil && i >= 0; p = p.Parent {
		if chain[i].match(p) {
			i--
		}
	}
	return i < 0
}

func (c compound) match(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" && getAttr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(getAttr(n, "class"))
		for _, want := range c.classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		if !hasAttr(n, a.key) {
			return false
		}
		if a.hasVal && getAttr(n, a.key) != a.val {
			return false
		}
	}
	return true
}

// findAll walks the subtree below root (root excluded) in document order.
func findAll(root *html.Node, s Selector, limit int) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if s.Match(c) {
				results = append(results, c)
				if limit > 0 && len(results) >= limit {
					return false
				}
			}
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(root)
	return results
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
