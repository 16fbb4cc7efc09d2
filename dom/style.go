package dom

import (
	"slices"
	"strings"
)

type declaration struct {
	name      string
	value     string
	important bool
}

// Style is the inline style of an element, kept in sync with its style
// attribute.
type Style struct {
	node  *Node
	decls []declaration
}

// Style returns the inline style declarations of an element.
func (n *Node) Style() *Style {
	if n.style == nil {
		n.style = &Style{node: n}
		if v, ok := n.GetAttribute("style"); ok {
			n.style.parse(v)
		}
	}
	return n.style
}

func (s *Style) parse(text string) {
	s.decls = s.decls[:0]
	for _, part := range strings.Split(text, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if !strings.HasPrefix(name, "--") {
			name = strings.ToLower(name)
		}
		value = strings.TrimSpace(value)
		important := false
		if v, ok := cutImportant(value); ok {
			value, important = v, true
		}
		if name == "" {
			continue
		}
		s.put(declaration{name: name, value: value, important: important})
	}
}

func cutImportant(value string) (string, bool) {
	i := strings.LastIndex(value, "!")
	if i < 0 || strings.TrimSpace(strings.ToLower(value[i+1:])) != "important" {
		return value, false
	}
	return strings.TrimSpace(value[:i]), true
}

func (s *Style) put(d declaration) {
	for i := range s.decls {
		if s.decls[i].name == d.name {
			s.decls[i] = d
			return
		}
	}
	s.decls = append(s.decls, d)
}

func (s *Style) sync() {
	if len(s.decls) == 0 {
		if s.node.HasAttribute("style") {
			s.node.setAttr("style", "")
		}
		return
	}
	s.node.setAttr("style", s.CSSText())
}

// SetProperty sets a declaration. An empty value removes it; priority is
// either empty or "important".
func (s *Style) SetProperty(name, value, priority string) {
	if value == "" {
		s.RemoveProperty(name)
		return
	}
	if !strings.HasPrefix(name, "--") {
		name = strings.ToLower(name)
	}
	s.put(declaration{name: name, value: value, important: strings.EqualFold(priority, "important")})
	s.sync()
}

// RemoveProperty drops a declaration and returns its old value.
func (s *Style) RemoveProperty(name string) string {
	old := s.GetPropertyValue(name)
	n := len(s.decls)
	s.decls = slices.DeleteFunc(s.decls, func(d declaration) bool { return d.name == name })
	if len(s.decls) != n {
		s.sync()
	}
	return old
}

func (s *Style) GetPropertyValue(name string) string {
	for _, d := range s.decls {
		if d.name == name {
			return d.value
		}
	}
	return ""
}

func (s *Style) GetPropertyPriority(name string) string {
	for _, d := range s.decls {
		if d.name == name && d.important {
			return "important"
		}
	}
	return ""
}

// Len reports the number of declarations.
func (s *Style) Len() int {
	return len(s.decls)
}

// Names lists the declared properties in order.
func (s *Style) Names() []string {
	out := make([]string, len(s.decls))
	for i, d := range s.decls {
		out[i] = d.name
	}
	return out
}

func (s *Style) CSSText() string {
	parts := make([]string, 0, len(s.decls))
	for _, d := range s.decls {
		p := d.name + ": " + d.value
		if d.important {
			p += " !important"
		}
		parts = append(parts, p+";")
	}
	return strings.Join(parts, " ")
}
