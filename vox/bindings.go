package vox

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/vox/dom"
	"github.com/delaneyj/vox/expr"
	"github.com/delaneyj/vox/reactivity"
)

// entries lists the own key/value pairs of an object value.
func entries(v any) [][2]any {
	p, ok := reactivity.View(v).(*reactivity.Proxy)
	if !ok || !p.IsObject() {
		return nil
	}
	return p.Entries()
}

func (a *app) attr(el *dom.Node, st *state, d directive) error {
	key := d.key
	if key != "" && d.has("camel") {
		key = camelize(key)
	}
	prefix := ""
	if d.name != "attr" {
		prefix = d.name + "-"
	}
	get, err := a.evaluator(st, d.expr)
	if err != nil {
		return err
	}
	return a.reaction(st, get, func(v any) error {
		pairs := [][2]any{{key, v}}
		if key == "" {
			pairs = entries(v)
		}
		for _, kv := range pairs {
			name := prefix + expr.PropertyKey(kv[0])
			if kv[1] == nil {
				el.RemoveAttribute(name)
			} else {
				el.SetAttribute(name, expr.ToString(kv[1]))
			}
		}
		return nil
	})
}

func (a *app) bind(el *dom.Node, st *state, d directive, key string) error {
	get, err := a.evaluator(st, d.expr)
	if err != nil {
		return err
	}
	if key == "innerHTML" || key == "textContent" {
		st.content, st.hasContent = nil, true
	}
	return a.reaction(st, get, func(v any) error {
		return el.SetProperty(key, hostValue(key, v))
	})
}

// hostValue converts expression values for builtin element properties.
func hostValue(key string, v any) any {
	if !dom.IsBuiltinProperty(key) {
		return v
	}
	switch v := expr.Normalize(v).(type) {
	case nil, bool, float64, string:
		return v
	}
	return expr.ToString(v)
}

// classNames flattens strings, arrays and objects into class tokens.
func classNames(v any) []string {
	switch t := expr.Normalize(v).(type) {
	case nil:
		return nil
	case string:
		return strings.Fields(t)
	}
	p, ok := reactivity.View(v).(*reactivity.Proxy)
	if !ok {
		return []string{expr.ToString(v)}
	}
	var out []string
	switch {
	case p.IsArray():
		for _, item := range p.Items() {
			out = append(out, classNames(item)...)
		}
	case p.IsObject():
		for _, kv := range p.Entries() {
			name := expr.PropertyKey(kv[0])
			if name != "" && expr.Truthy(kv[1]) {
				out = append(out, name)
			}
		}
	}
	return out
}

func (a *app) class(el *dom.Node, st *state, d directive) error {
	key := d.key
	if key != "" && d.has("camel") {
		key = camelize(key)
	}
	get, err := a.evaluator(st, d.expr)
	if err != nil {
		return err
	}
	applied := mapset.NewThreadUnsafeSet[string]()
	return a.reaction(st, get, func(v any) error {
		cl := el.ClassList()
		if key != "" {
			cl.Toggle(key, expr.Truthy(v))
			return nil
		}
		names := classNames(v)
		next := mapset.NewThreadUnsafeSet(names...)
		cl.Remove(applied.Difference(next).ToSlice()...)
		cl.Add(names...)
		applied = next
		return nil
	})
}

// styleEntries turns a style value into property/value pairs. Object keys
// are hyphenated and prefixed: var gives custom properties, any other key
// names a shorthand family such as border.
func styleEntries(key string, v any) [][2]string {
	var out [][2]string
	if pairs := entries(v); pairs != nil {
		prefix := ""
		switch key {
		case "":
		case "var":
			prefix = "--"
		default:
			prefix = key + "-"
		}
		for _, kv := range pairs {
			out = append(out, [2]string{prefix + hyphenate(expr.PropertyKey(kv[0])), styleValue(kv[1])})
		}
		return out
	}
	if key != "" {
		return [][2]string{{key, styleValue(v)}}
	}
	if text, ok := v.(string); ok {
		for _, decl := range strings.Split(text, ";") {
			name, value, ok := strings.Cut(decl, ":")
			if name = strings.TrimSpace(name); ok && name != "" {
				out = append(out, [2]string{name, strings.TrimSpace(value)})
			}
		}
	}
	return out
}

func styleValue(v any) string {
	if v == nil {
		return ""
	}
	return expr.ToString(v)
}

func (a *app) style(el *dom.Node, st *state, d directive) error {
	get, err := a.evaluator(st, d.expr)
	if err != nil {
		return err
	}
	var applied []string
	return a.reaction(st, get, func(v any) error {
		style := el.Style()
		for _, name := range applied {
			style.RemoveProperty(name)
		}
		applied = applied[:0]
		for _, kv := range styleEntries(d.key, v) {
			name, value, priority := kv[0], kv[1], ""
			if strings.Contains(value, "important") {
				value = strings.TrimSpace(strings.Replace(value, "!important", "", 1))
				priority = "important"
			}
			style.SetProperty(name, value, priority)
			applied = append(applied, name)
		}
		return nil
	})
}

// focus moves focus to el while the expression holds and hands it back to
// the previously focused element afterwards.
func (a *app) focus(el *dom.Node, st *state, d directive) error {
	get, err := a.evaluator(st, "!!("+d.expr+")")
	if err != nil {
		return err
	}
	var (
		focused bool
		prev    *dom.Node
	)
	return a.reaction(st, get, func(v any) error {
		on := expr.Truthy(v)
		if on == focused {
			return nil
		}
		focused = on
		if on {
			prev = a.doc.ActiveElement()
			el.Focus()
		} else if prev != nil {
			prev.Focus()
		}
		return nil
	})
}

// run re-executes a statement body whenever what it read changes.
func (a *app) run(st *state, d directive) error {
	prog, err := expr.CompileFunc(d.expr)
	if err != nil {
		return err
	}
	return a.reaction(st, func() (any, error) {
		_, err := prog.Run(st.scope)
		return nil, err
	}, nil)
}
