package dom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is an element of a Document. A nil *Node is valid: queries return
// zero values and mutations do nothing.
type Node struct {
	doc *Document
	n   *html.Node
}

// Tag returns the lower-case element name.
func (e *Node) Tag() string {
	if e == nil {
		return ""
	}
	return e.n.Data
}

// Document returns the owning document.
func (e *Node) Document() *Document {
	if e == nil {
		return nil
	}
	return e.doc
}

// Attr returns the attribute value, "" when absent.
func (e *Node) Attr(key string) string {
	if e == nil {
		return ""
	}
	return getAttr(e.n, key)
}

// HasAttr reports whether the attribute is present.
func (e *Node) HasAttr(key string) bool {
	if e == nil {
		return false
	}
	return hasAttr(e.n, key)
}

// SetAttr sets or adds an attribute.
func (e *Node) SetAttr(key, val string) {
	if e == nil {
		return
	}
	for i, a := range e.n.Attr {
		if a.Key == key {
			e.n.Attr[i].Val = val
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute.
func (e *Node) RemoveAttr(key string) {
	if e == nil {
		return
	}
	kept := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	e.n.Attr = kept
}

// ID returns the id attribute.
func (e *Node) ID() string { return e.Attr("id") }

// Data returns a data-* attribute, e.g. Data("item-key") reads data-item-key.
func (e *Node) Data(name string) string { return e.Attr("data-" + name) }

// ---------------------------------------------------------------------------
// Class list
// ---------------------------------------------------------------------------

// ClassName returns the raw class attribute.
func (e *Node) ClassName() string { return e.Attr("class") }

// SetClassName replaces the whole class attribute.
func (e *Node) SetClassName(s string) { e.SetAttr("class", s) }

// Classes returns the class list in attribute order.
func (e *Node) Classes() []string { return strings.Fields(e.ClassName()) }

// HasClass reports class membership.
func (e *Node) HasClass(cls string) bool { return contains(e.Classes(), cls) }

// AddClass appends cls unless already present.
func (e *Node) AddClass(cls string) {
	if e == nil || cls == "" {
		return
	}
	classes := e.Classes()
	if contains(classes, cls) {
		return
	}
	e.SetClassName(strings.Join(append(classes, cls), " "))
}

// RemoveClass drops every occurrence of cls.
func (e *Node) RemoveClass(cls string) {
	if e == nil {
		return
	}
	classes := e.Classes()
	kept := classes[:0]
	for _, c := range classes {
		if c != cls {
			kept = append(kept, c)
		}
	}
	e.SetClassName(strings.Join(kept, " "))
}

// ToggleClass adds cls if missing, removes it otherwise.
func (e *Node) ToggleClass(cls string) {
	if e.HasClass(cls) {
		e.RemoveClass(cls)
		return
	}
	e.AddClass(cls)
}

// ReplaceClass removes old and adds repl.
func (e *Node) ReplaceClass(old, repl string) {
	e.RemoveClass(old)
	e.AddClass(repl)
}

// ---------------------------------------------------------------------------
// Inline style
// ---------------------------------------------------------------------------

type declaration struct{ prop, val string }

func parseStyle(s string) []declaration {
	var out []declaration
	for _, part := range strings.Split(s, ";") {
		prop, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(strings.ToLower(prop))
		if prop == "" {
			continue
		}
		out = append(out, declaration{prop, strings.TrimSpace(val)})
	}
	return out
}

// Style returns an inline style property, "" when unset.
func (e *Node) Style(prop string) string {
	for _, d := range parseStyle(e.Attr("style")) {
		if d.prop == prop {
			return d.val
		}
	}
	return ""
}

// SetStyle sets an inline style property; an empty value removes it.
func (e *Node) SetStyle(prop, val string) {
	if e == nil {
		return
	}
	decls := parseStyle(e.Attr("style"))
	found := false
	kept := decls[:0]
	for _, d := range decls {
		if d.prop == prop {
			found = true
			if val == "" {
				continue
			}
			d.val = val
		}
		kept = append(kept, d)
	}
	if !found && val != "" {
		kept = append(kept, declaration{prop, val})
	}
	parts := make([]string, 0, len(kept))
	for _, d := range kept {
		parts = append(parts, d.prop+": "+d.val)
	}
	if len(parts) == 0 {
		e.RemoveAttr("style")
		return
	}
	e.SetAttr("style", strings.Join(parts, "; "))
}

// ---------------------------------------------------------------------------
// Traversal
// ---------------------------------------------------------------------------

// Parent returns the parent element, nil at the root.
func (e *Node) Parent() *Node {
	if e == nil {
		return nil
	}
	for p := e.n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return e.doc.wrap(p)
		}
	}
	return nil
}

// Ancestor returns the closest ancestor matching sel. The node itself is not considered.
func (e *Node) Ancestor(sel string) *Node {
	if e == nil {
		return nil
	}
	s := MustCompile(sel)
	for p := e.n.Parent; p != nil; p = p.Parent {
		if s.Match(p) {
			return e.doc.wrap(p)
		}
	}
	return nil
}

// Previous returns the closest preceding sibling element matching sel.
func (e *Node) Previous(sel string) *Node {
	if e == nil {
		return nil
	}
	s := MustCompile(sel)
	for p := e.n.PrevSibling; p != nil; p = p.PrevSibling {
		if s.Match(p) {
			return e.doc.wrap(p)
		}
	}
	return nil
}

// Matches reports whether the node matches sel.
func (e *Node) Matches(sel string) bool {
	if e == nil {
		return false
	}
	return MustCompile(sel).Match(e.n)
}

// One returns the first descendant matching sel.
func (e *Node) One(sel string) *Node {
	if e == nil {
		return nil
	}
	found := findAll(e.n, MustCompile(sel), 1)
	if len(found) == 0 {
		return nil
	}
	return e.doc.wrap(found[0])
}

// All returns every descendant matching sel.
func (e *Node) All(sel string) []*Node {
	if e == nil {
		return nil
	}
	found := findAll(e.n, MustCompile(sel), 0)
	out := make([]*Node, 0, len(found))
	for _, n := range found {
		out = append(out, e.doc.wrap(n))
	}
	return out
}

// Attached reports whether the node is still part of its document.
func (e *Node) Attached() bool {
	if e == nil {
		return false
	}
	for p := e.n; p != nil; p = p.Parent {
		if p == e.doc.root {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Content
// ---------------------------------------------------------------------------

// Text returns the concatenated text of the subtree.
func (e *Node) Text() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return b.String()
}

// InnerHTML serializes the children.
func (e *Node) InnerHTML() string {
	if e == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// SetContent replaces the children with the parsed markup.
func (e *Node) SetContent(markup string) error {
	if e == nil {
		return nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.n)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		e.n.AppendChild(n)
	}
	return nil
}

// SetText replaces the children with a single text node.
func (e *Node) SetText(text string) {
	if e == nil {
		return
	}
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Append parses markup and appends the resulting nodes as children.
func (e *Node) Append(markup string) error {
	if e == nil {
		return nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.n)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}
	for _, n := range nodes {
		e.n.AppendChild(n)
	}
	return nil
}

// InsertElementBefore creates a <tag> element with attrs and inserts it before e.
func (e *Node) InsertElementBefore(tag string, attrs map[string]string) *Node {
	if e == nil || e.n.Parent == nil {
		return nil
	}
	n := newElement(tag, attrs)
	e.n.Parent.InsertBefore(n, e.n)
	return e.doc.wrap(n)
}

// AppendElement creates a <tag> element with attrs as the last child of e.
func (e *Node) AppendElement(tag string, attrs map[string]string) *Node {
	if e == nil {
		return nil
	}
	n := newElement(tag, attrs)
	e.n.AppendChild(n)
	return e.doc.wrap(n)
}

func newElement(tag string, attrs map[string]string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for k, v := range attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: v})
	}
	return n
}

// Remove detaches the node from the document.
func (e *Node) Remove() {
	if e == nil || e.n.Parent == nil {
		return
	}
	e.n.Parent.RemoveChild(e.n)
}

// ---------------------------------------------------------------------------
// Form controls
// ---------------------------------------------------------------------------

// Value returns the current value of an input, textarea or select.
func (e *Node) Value() string {
	if e == nil {
		return ""
	}
	switch e.Tag() {
	case "textarea":
		return e.Text()
	case "select":
		opt := e.SelectedOption()
		if opt == nil {
			return ""
		}
		if opt.HasAttr("value") {
			return opt.Attr("value")
		}
		return strings.TrimSpace(opt.Text())
	default:
		return e.Attr("value")
	}
}

// SetValue updates the value of an input or textarea.
func (e *Node) SetValue(v string) {
	if e.Tag() == "textarea" {
		e.SetText(v)
		return
	}
	e.SetAttr("value", v)
}

// Disabled reports the disabled attribute.
func (e *Node) Disabled() bool { return e.HasAttr("disabled") }

// SetDisabled sets or clears the disabled attribute.
func (e *Node) SetDisabled(disabled bool) {
	if disabled {
		e.SetAttr("disabled", "disabled")
		return
	}
	e.RemoveAttr("disabled")
}

// Options returns the <option> children of a select.
func (e *Node) Options() []*Node { return e.All("option") }

// SelectedIndex returns the index of the selected option; the first option
// counts as selected when none is marked.
func (e *Node) SelectedIndex() int {
	opts := e.Options()
	for i, o := range opts {
		if o.HasAttr("selected") {
			return i
		}
	}
	if len(opts) > 0 {
		return 0
	}
	return -1
}

// SelectedOption returns the selected <option>, or nil.
func (e *Node) SelectedOption() *Node {
	opts := e.Options()
	i := e.SelectedIndex()
	if i < 0 || i >= len(opts) {
		return nil
	}
	return opts[i]
}

// SetSelectedIndex marks option i as the only selected option.
func (e *Node) SetSelectedIndex(i int) {
	for j, o := range e.Options() {
		if j == i {
			o.SetAttr("selected", "selected")
		} else {
			o.RemoveAttr("selected")
		}
	}
}
