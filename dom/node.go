// Package dom is a small mutable document tree: enough of the browser DOM
// for directives to read and write attributes, classes, styles and
// properties, insert and remove nodes, dispatch events and move focus.
package dom

import (
	"slices"
	"strings"
)

type NodeType uint8

const (
	ElementNode NodeType = iota + 1
	TextNode
	CommentNode
	DocumentNode
)

type Attr struct {
	Name  string
	Value string
}

// Node is an element, text, comment or the document root.
type Node struct {
	eventTarget

	Type NodeType
	// Tag is the lower-case tag name of an element.
	Tag string
	// Data is the content of a text or comment node.
	Data string

	doc      *Document
	parent   *Node
	children []*Node
	attrs    []Attr
	props    map[string]any
	values   map[any]any
	style    *Style
}

func (n *Node) Document() *Document {
	return n.doc
}

func (n *Node) IsElement() bool {
	return n.Type == ElementNode
}

func (n *Node) Parent() *Node {
	return n.parent
}

// ParentElement is the parent when it is an element.
func (n *Node) ParentElement() *Node {
	if n.parent != nil && n.parent.Type == ElementNode {
		return n.parent
	}
	return nil
}

// ChildNodes returns a copy of every child.
func (n *Node) ChildNodes() []*Node {
	return slices.Clone(n.children)
}

// Children returns the element children.
func (n *Node) Children() []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

func (n *Node) FirstChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

func (n *Node) index() int {
	if n.parent == nil {
		return -1
	}
	return slices.Index(n.parent.children, n)
}

func (n *Node) NextSibling() *Node {
	i := n.index()
	if i < 0 || i+1 >= len(n.parent.children) {
		return nil
	}
	return n.parent.children[i+1]
}

// Connected reports whether the node is attached to its document.
func (n *Node) Connected() bool {
	for p := n; p != nil; p = p.parent {
		if p.Type == DocumentNode {
			return true
		}
	}
	return false
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

func (n *Node) AppendChild(child *Node) *Node {
	return n.InsertBefore(child, nil)
}

// InsertBefore inserts child before ref, or at the end when ref is nil.
// A child attached elsewhere is moved.
func (n *Node) InsertBefore(child, ref *Node) *Node {
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	i := len(n.children)
	if ref != nil {
		if j := slices.Index(n.children, ref); j >= 0 {
			i = j
		}
	}
	n.children = slices.Insert(n.children, i, child)
	child.parent = n
	n.doc.touch()
	return child
}

func (n *Node) RemoveChild(child *Node) *Node {
	i := slices.Index(n.children, child)
	if i < 0 {
		return nil
	}
	n.children = slices.Delete(n.children, i, i+1)
	child.parent = nil
	if n.doc != nil && n.doc.active != nil && child.Contains(n.doc.active) {
		n.doc.active = nil
	}
	n.doc.touch()
	return child
}

// ReplaceChild puts next where old was.
func (n *Node) ReplaceChild(next, old *Node) *Node {
	if old.parent != n {
		return nil
	}
	if next == old {
		return old
	}
	n.InsertBefore(next, old)
	return n.RemoveChild(old)
}

// Remove detaches the node from its parent.
func (n *Node) Remove() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
}

func (n *Node) GetAttribute(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *Node) HasAttribute(name string) bool {
	_, ok := n.GetAttribute(name)
	return ok
}

func (n *Node) SetAttribute(name, value string) {
	name = strings.ToLower(name)
	n.setAttr(name, value)
	if name == "style" && n.style != nil {
		n.style.parse(value)
	}
}

func (n *Node) setAttr(name, value string) {
	defer n.doc.touch()
	for i, a := range n.attrs {
		if a.Name == name {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Name: name, Value: value})
}

func (n *Node) RemoveAttribute(name string) {
	name = strings.ToLower(name)
	n.attrs = slices.DeleteFunc(n.attrs, func(a Attr) bool { return a.Name == name })
	if name == "style" && n.style != nil {
		n.style.parse("")
	}
	n.doc.touch()
}

// AttributeNames lists attribute names in document order.
func (n *Node) AttributeNames() []string {
	names := make([]string, len(n.attrs))
	for i, a := range n.attrs {
		names[i] = a.Name
	}
	return names
}

func (n *Node) Attrs() []Attr {
	return slices.Clone(n.attrs)
}

// Value returns a host annotation stored on the node. Annotations are never
// cloned or rendered.
func (n *Node) Value(key any) any {
	return n.values[key]
}

func (n *Node) SetValue(key, value any) {
	if n.values == nil {
		n.values = map[any]any{}
	}
	n.values[key] = value
}

func (n *Node) DeleteValue(key any) {
	delete(n.values, key)
}

// Clone copies the node, and its subtree when deep is set. Listeners,
// annotations and the parent link are not copied.
func (n *Node) Clone(deep bool) *Node {
	c := &Node{
		Type:  n.Type,
		Tag:   n.Tag,
		Data:  n.Data,
		doc:   n.doc,
		attrs: slices.Clone(n.attrs),
	}
	for k, v := range n.props {
		if c.props == nil {
			c.props = map[string]any{}
		}
		c.props[k] = v
	}
	if deep {
		for _, child := range n.children {
			cc := child.Clone(true)
			cc.parent = c
			c.children = append(c.children, cc)
		}
	}
	return c
}

// TextContent concatenates the text of every descendant text node.
func (n *Node) TextContent() string {
	switch n.Type {
	case TextNode, CommentNode:
		return n.Data
	}
	var sb strings.Builder
	n.walk(func(d *Node) bool {
		if d.Type == TextNode {
			sb.WriteString(d.Data)
		}
		return true
	})
	return sb.String()
}

// SetTextContent replaces the children with a single text node.
func (n *Node) SetTextContent(text string) {
	switch n.Type {
	case TextNode, CommentNode:
		n.Data = text
		n.doc.touch()
		return
	}
	n.removeChildren()
	if text != "" {
		n.AppendChild(n.doc.CreateTextNode(text))
	}
}

func (n *Node) removeChildren() {
	for _, c := range slices.Clone(n.children) {
		n.RemoveChild(c)
	}
}

// walk visits descendants depth first in document order, skipping the
// subtree of any node for which fn returns false.
func (n *Node) walk(fn func(*Node) bool) {
	for _, c := range n.children {
		if fn(c) {
			c.walk(fn)
		}
	}
}

func (n *Node) String() string {
	switch n.Type {
	case TextNode:
		return "#text"
	case CommentNode:
		return "#comment"
	case DocumentNode:
		return "#document"
	}
	var sb strings.Builder
	sb.WriteString("<" + n.Tag)
	if id, ok := n.GetAttribute("id"); ok {
		sb.WriteString("#" + id)
	}
	sb.WriteString(">")
	return sb.String()
}
