package vox

import (
	"github.com/delaneyj/vox/dom"
	"github.com/delaneyj/vox/expr"
	"github.com/delaneyj/vox/reactivity"
)

type elementKey struct{}

// element is how expressions see a DOM element.
type element struct {
	node *dom.Node
	app  *app
}

func (a *app) element(n *dom.Node) *element {
	if e, ok := n.Value(elementKey{}).(*element); ok {
		return e
	}
	e := &element{node: n, app: a}
	n.SetValue(elementKey{}, e)
	return e
}

// nodeValue is element without the typed nil.
func (a *app) nodeValue(n *dom.Node) any {
	if n == nil {
		return nil
	}
	return a.element(n)
}

func (a *app) nodeList(nodes []*dom.Node) any {
	items := make([]any, len(nodes))
	for i, n := range nodes {
		items[i] = a.element(n)
	}
	return a.rs.Readonly(reactivity.NewArray(items...))
}

// targetValue exposes an event target: elements, the document or the
// window.
func (a *app) targetValue(t dom.EventTarget) any {
	switch t := t.(type) {
	case *dom.Node:
		if t == a.doc.Node {
			return t.String()
		}
		return a.nodeValue(t)
	case *dom.Window:
		return t.String()
	}
	return nil
}

func (e *element) String() string {
	return e.node.String()
}

func (e *element) GetMember(name string) (any, bool) {
	n, a := e.node, e.app
	switch name {
	case "classList":
		return &classList{node: n}, true
	case "style":
		return &style{node: n}, true
	case "dataset":
		return &dataset{node: n}, true
	case "parentElement", "parentNode":
		return a.nodeValue(n.ParentElement()), true
	case "children":
		return a.nodeList(n.Children()), true
	case "firstElementChild":
		if c := n.Children(); len(c) > 0 {
			return a.element(c[0]), true
		}
		return nil, true
	case "nextElementSibling":
		for s := n.NextSibling(); s != nil; s = s.NextSibling() {
			if s.IsElement() {
				return a.element(s), true
			}
		}
		return nil, true
	case "isConnected":
		return n.Connected(), true
	case "attributes":
		attrs := reactivity.NewObject()
		for _, at := range n.Attrs() {
			attrs.Set(at.Name, at.Value)
		}
		return a.rs.Readonly(attrs), true
	}
	return n.GetProperty(name)
}

func (e *element) SetMember(name string, value any) bool {
	switch name {
	case "classList", "dataset", "children", "parentElement", "parentNode":
		return false
	case "style":
		e.node.SetAttribute("style", expr.ToString(value))
		return true
	}
	if err := e.node.SetProperty(name, hostValue(name, value)); err != nil {
		e.app.report(err)
		return false
	}
	return true
}

func (e *element) InvokeMethod(name string, args []any) (any, bool, error) {
	n, a := e.node, e.app
	str := func(i int) string { return expr.ToString(argAt(args, i)) }
	switch name {
	case "getAttribute":
		if v, ok := n.GetAttribute(str(0)); ok {
			return v, true, nil
		}
		return nil, true, nil
	case "setAttribute":
		n.SetAttribute(str(0), str(1))
		return nil, true, nil
	case "removeAttribute":
		n.RemoveAttribute(str(0))
		return nil, true, nil
	case "hasAttribute":
		return n.HasAttribute(str(0)), true, nil
	case "toggleAttribute":
		attr := str(0)
		on := !n.HasAttribute(attr)
		if len(args) > 1 {
			on = expr.Truthy(args[1])
		}
		if on {
			n.SetAttribute(attr, "")
		} else {
			n.RemoveAttribute(attr)
		}
		return on, true, nil
	case "focus":
		n.Focus()
		return nil, true, nil
	case "blur":
		n.Blur()
		return nil, true, nil
	case "click":
		n.DispatchEvent(dom.NewEvent("click", dom.EventInit{Bubbles: true, Cancelable: true}))
		return nil, true, nil
	case "dispatchEvent":
		var ev *dom.Event
		switch t := argAt(args, 0).(type) {
		case *event:
			ev = t.ev
		default:
			ev = dom.NewEvent(expr.ToString(t), dom.EventInit{Bubbles: true, Cancelable: true})
		}
		return n.DispatchEvent(ev), true, nil
	case "querySelector":
		found, err := n.QuerySelector(str(0))
		return a.nodeValue(found), true, err
	case "querySelectorAll":
		found, err := n.QuerySelectorAll(str(0))
		if err != nil {
			return nil, true, err
		}
		return a.nodeList(found), true, nil
	case "closest":
		found, err := n.Closest(str(0))
		return a.nodeValue(found), true, err
	case "matches":
		ok, err := n.Matches(str(0))
		return ok, true, err
	case "contains":
		other, ok := argAt(args, 0).(*element)
		return ok && n.Contains(other.node), true, nil
	case "remove":
		n.Remove()
		return nil, true, nil
	}
	return nil, false, nil
}

func argAt(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

type classList struct {
	node *dom.Node
}

func (c *classList) String() string {
	return c.node.ClassList().String()
}

func (c *classList) GetMember(name string) (any, bool) {
	switch name {
	case "length":
		return float64(len(c.node.ClassList().Values())), true
	case "value":
		return c.String(), true
	}
	return nil, false
}

func (c *classList) InvokeMethod(name string, args []any) (any, bool, error) {
	cl := c.node.ClassList()
	names := make([]string, len(args))
	for i, v := range args {
		names[i] = expr.ToString(v)
	}
	switch name {
	case "add":
		cl.Add(names...)
	case "remove":
		cl.Remove(names...)
	case "contains":
		return len(names) > 0 && cl.Contains(names[0]), true, nil
	case "toggle":
		if len(args) == 0 {
			return false, true, nil
		}
		if len(args) > 1 {
			return cl.Toggle(names[0], expr.Truthy(args[1])), true, nil
		}
		return cl.Toggle(names[0]), true, nil
	default:
		return nil, false, nil
	}
	return nil, true, nil
}

type style struct {
	node *dom.Node
}

func (s *style) String() string {
	return s.node.Style().CSSText()
}

func (s *style) GetMember(name string) (any, bool) {
	st := s.node.Style()
	switch name {
	case "cssText":
		return st.CSSText(), true
	case "length":
		return float64(st.Len()), true
	}
	return st.GetPropertyValue(hyphenate(name)), true
}

func (s *style) SetMember(name string, value any) bool {
	if name == "cssText" {
		s.node.SetAttribute("style", expr.ToString(value))
		return true
	}
	s.node.Style().SetProperty(hyphenate(name), styleValue(value), "")
	return true
}

func (s *style) InvokeMethod(name string, args []any) (any, bool, error) {
	st := s.node.Style()
	str := func(i int) string { return expr.ToString(argAt(args, i)) }
	switch name {
	case "getPropertyValue":
		return st.GetPropertyValue(str(0)), true, nil
	case "getPropertyPriority":
		return st.GetPropertyPriority(str(0)), true, nil
	case "setProperty":
		priority := ""
		if len(args) > 2 {
			priority = str(2)
		}
		st.SetProperty(str(0), styleValue(argAt(args, 1)), priority)
		return nil, true, nil
	case "removeProperty":
		return st.RemoveProperty(str(0)), true, nil
	}
	return nil, false, nil
}

// dataset maps camelCase names onto data- attributes.
type dataset struct {
	node *dom.Node
}

func (d *dataset) GetMember(name string) (any, bool) {
	if v, ok := d.node.GetAttribute("data-" + hyphenate(name)); ok {
		return v, true
	}
	return nil, true
}

func (d *dataset) SetMember(name string, value any) bool {
	d.node.SetAttribute("data-"+hyphenate(name), expr.ToString(value))
	return true
}

// event is how expressions see a dispatched event.
type event struct {
	ev  *dom.Event
	app *app
}

func (a *app) eventValue(ev *dom.Event) *event {
	return &event{ev: ev, app: a}
}

func (e *event) String() string {
	return "[object Event " + e.ev.Type + "]"
}

func (e *event) GetMember(name string) (any, bool) {
	ev := e.ev
	switch name {
	case "type":
		return ev.Type, true
	case "target":
		return e.app.targetValue(ev.Target), true
	case "currentTarget":
		return e.app.targetValue(ev.CurrentTarget), true
	case "detail":
		return ev.Detail, true
	case "key":
		return ev.Key, true
	case "button":
		return float64(ev.Button), true
	case "altKey":
		return ev.AltKey, true
	case "ctrlKey":
		return ev.CtrlKey, true
	case "metaKey":
		return ev.MetaKey, true
	case "shiftKey":
		return ev.ShiftKey, true
	case "bubbles":
		return ev.Bubbles, true
	case "cancelable":
		return ev.Cancelable, true
	case "defaultPrevented":
		return ev.DefaultPrevented(), true
	case "eventPhase":
		return float64(ev.Phase), true
	}
	return nil, false
}

// eventFields exposes an event's members as a read-only scope source.
type eventFields struct {
	e *event
}

func (f eventFields) lookup(name string) (any, bool) {
	if v, ok := f.e.GetMember(name); ok {
		return v, true
	}
	switch name {
	case "preventDefault", "stopPropagation", "stopImmediatePropagation":
		return &expr.Builtin{Name: name, Fn: func(_ any, args []any) (any, error) {
			v, _, err := f.e.InvokeMethod(name, args)
			return v, err
		}}, true
	}
	return nil, false
}

func (f eventFields) Get(key any) any {
	v, _ := f.lookup(expr.PropertyKey(key))
	return v
}

func (f eventFields) Set(key, value any) bool {
	return false
}

func (f eventFields) HasOwn(key any) bool {
	_, ok := f.lookup(expr.PropertyKey(key))
	return ok
}

func (e *event) InvokeMethod(name string, _ []any) (any, bool, error) {
	switch name {
	case "preventDefault":
		e.ev.PreventDefault()
	case "stopPropagation":
		e.ev.StopPropagation()
	case "stopImmediatePropagation":
		e.ev.StopImmediatePropagation()
	default:
		return nil, false, nil
	}
	return nil, true, nil
}
