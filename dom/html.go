package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse reads a full HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	d := newDocument(opts...)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.DoctypeNode {
			d.doctype = c.Data
			continue
		}
		if n := d.fromHTML(c); n != nil {
			d.AppendChild(n)
		}
	}
	return d, nil
}

func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

func (d *Document) fromHTML(h *html.Node) *Node {
	var n *Node
	switch h.Type {
	case html.ElementNode:
		n = d.CreateElement(h.Data)
		for _, a := range h.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			n.attrs = append(n.attrs, Attr{Name: name, Value: a.Val})
		}
	case html.TextNode:
		n = d.CreateTextNode(h.Data)
	case html.CommentNode:
		n = d.CreateComment(h.Data)
	default:
		return nil
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		if child := d.fromHTML(c); child != nil {
			child.parent = n
			n.children = append(n.children, child)
		}
	}
	return n
}

// toHTML converts the node, and its subtree when deep is set.
func (n *Node) toHTML(deep bool, visit func(*Node, *html.Node)) *html.Node {
	var h *html.Node
	switch n.Type {
	case ElementNode:
		h = &html.Node{Type: html.ElementNode, Data: n.Tag, DataAtom: atom.Lookup([]byte(n.Tag))}
		for _, a := range n.attrs {
			h.Attr = append(h.Attr, html.Attribute{Key: a.Name, Val: a.Value})
		}
	case TextNode:
		h = &html.Node{Type: html.TextNode, Data: n.Data}
	case CommentNode:
		h = &html.Node{Type: html.CommentNode, Data: n.Data}
	case DocumentNode:
		h = &html.Node{Type: html.DocumentNode}
	}
	if visit != nil {
		visit(n, h)
	}
	if deep {
		for _, c := range n.children {
			h.AppendChild(c.toHTML(true, visit))
		}
	}
	return h
}

// OuterHTML renders the node itself.
func (n *Node) OuterHTML() string {
	var sb strings.Builder
	if n.Type == DocumentNode {
		n.renderChildren(&sb)
		return sb.String()
	}
	html.Render(&sb, n.toHTML(true, nil))
	return sb.String()
}

// InnerHTML renders the children of the node.
func (n *Node) InnerHTML() string {
	var sb strings.Builder
	n.renderChildren(&sb)
	return sb.String()
}

func (n *Node) renderChildren(w io.Writer) error {
	parent := n.toHTML(false, nil)
	for _, c := range n.children {
		h := c.toHTML(true, nil)
		// rendering needs the parent for raw text elements such as script
		parent.AppendChild(h)
		if err := html.Render(w, h); err != nil {
			return err
		}
	}
	return nil
}

// SetInnerHTML replaces the children with the parsed fragment.
func (n *Node) SetInnerHTML(s string) error {
	context := n.toHTML(false, nil)
	if context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(s), context)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}
	n.removeChildren()
	for _, h := range nodes {
		if child := n.doc.fromHTML(h); child != nil {
			n.AppendChild(child)
		}
	}
	return nil
}

// Render writes the whole document as HTML.
func (d *Document) Render(w io.Writer) error {
	if d.doctype != "" {
		if _, err := io.WriteString(w, "<!DOCTYPE "+d.doctype+">"); err != nil {
			return err
		}
	}
	return d.renderChildren(w)
}
