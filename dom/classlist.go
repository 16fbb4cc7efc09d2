package dom

import (
	"slices"
	"strings"
)

// ClassList edits the class attribute of an element as a token set.
type ClassList struct {
	node *Node
}

func (n *Node) ClassList() ClassList {
	return ClassList{node: n}
}

// Values lists the class tokens in attribute order, without duplicates.
func (c ClassList) Values() []string {
	v, _ := c.node.GetAttribute("class")
	var out []string
	for _, f := range strings.Fields(v) {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func (c ClassList) Contains(name string) bool {
	return slices.Contains(c.Values(), name)
}

func (c ClassList) Add(names ...string) {
	vals := c.Values()
	for _, name := range names {
		if name != "" && !slices.Contains(vals, name) {
			vals = append(vals, name)
		}
	}
	c.write(vals)
}

func (c ClassList) Remove(names ...string) {
	vals := slices.DeleteFunc(c.Values(), func(v string) bool {
		return slices.Contains(names, v)
	})
	c.write(vals)
}

// Toggle flips name, or forces it on or off when force is given. It
// reports whether name is present afterwards.
func (c ClassList) Toggle(name string, force ...bool) bool {
	on := !c.Contains(name)
	if len(force) > 0 {
		on = force[0]
	}
	if on {
		c.Add(name)
	} else {
		c.Remove(name)
	}
	return on
}

func (c ClassList) write(vals []string) {
	if !c.node.HasAttribute("class") && len(vals) == 0 {
		return
	}
	c.node.setAttr("class", strings.Join(vals, " "))
}

func (c ClassList) String() string {
	return strings.Join(c.Values(), " ")
}
