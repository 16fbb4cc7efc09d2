package dom

import (
	"fmt"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var selectors sync.Map

func compile(sel string) (cascadia.SelectorGroup, error) {
	if v, ok := selectors.Load(sel); ok {
		return v.(cascadia.SelectorGroup), nil
	}
	g, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", sel, err)
	}
	selectors.Store(sel, g)
	return g, nil
}

// mirror is an x/net/html copy of a tree that selectors match against.
type mirror struct {
	version uint64
	nodes   map[*Node]*html.Node
}

func buildMirror(root *Node) *mirror {
	m := &mirror{nodes: map[*Node]*html.Node{}}
	root.toHTML(true, func(n *Node, h *html.Node) {
		m.nodes[n] = h
	})
	return m
}

// mirrorOf returns the mirror of the tree n belongs to. The document
// mirror is kept until the next mutation.
func (n *Node) mirrorOf() *mirror {
	root := n
	for root.parent != nil {
		root = root.parent
	}
	d := n.doc
	if root.Type != DocumentNode || d == nil {
		return buildMirror(root)
	}
	if d.mirror == nil || d.mirror.version != d.version {
		d.mirror = buildMirror(root)
		d.mirror.version = d.version
	}
	return d.mirror
}

// QuerySelectorAll returns the descendants of n matching sel in
// document order.
func (n *Node) QuerySelectorAll(sel string) ([]*Node, error) {
	g, err := compile(sel)
	if err != nil {
		return nil, err
	}
	m := n.mirrorOf()
	var out []*Node
	n.walk(func(d *Node) bool {
		if d.Type == ElementNode && g.Match(m.nodes[d]) {
			out = append(out, d)
		}
		return true
	})
	return out, nil
}

// QuerySelector returns the first descendant matching sel, or nil.
func (n *Node) QuerySelector(sel string) (*Node, error) {
	g, err := compile(sel)
	if err != nil {
		return nil, err
	}
	m := n.mirrorOf()
	var found *Node
	n.walk(func(d *Node) bool {
		if found == nil && d.Type == ElementNode && g.Match(m.nodes[d]) {
			found = d
		}
		return found == nil
	})
	return found, nil
}

func (n *Node) Matches(sel string) (bool, error) {
	if n.Type != ElementNode {
		return false, nil
	}
	g, err := compile(sel)
	if err != nil {
		return false, err
	}
	return g.Match(n.mirrorOf().nodes[n]), nil
}

// Closest returns n or its nearest ancestor element matching sel.
func (n *Node) Closest(sel string) (*Node, error) {
	g, err := compile(sel)
	if err != nil {
		return nil, err
	}
	m := n.mirrorOf()
	for p := n; p != nil; p = p.parent {
		if p.Type == ElementNode && g.Match(m.nodes[p]) {
			return p, nil
		}
	}
	return nil, nil
}
