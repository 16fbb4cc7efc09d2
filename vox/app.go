package vox

import (
	"errors"

	"github.com/delaneyj/vox/dom"
	"github.com/delaneyj/vox/expr"
	"github.com/delaneyj/vox/reactivity"
	"github.com/delaneyj/vox/scope"
	"github.com/sirupsen/logrus"
)

type appKey struct{}

// app is the per-document runtime: one reactive system, the application
// scope and the api every scope can reach.
//
// Scope layout, innermost first:
//
//	{el}  [loop vars]  [component data]  layer{app, els, vox}  api{emit, vox, console}
type app struct {
	doc     *dom.Document
	rs      *reactivity.System
	api     *reactivity.Proxy
	scope   *scope.Scope
	root    *layer
	layers  map[scope.Source]*layer
	log     logrus.FieldLogger
	onError func(error)
}

// layer is the outermost per-component source. It names the application
// scope, the component's element registry and its vox function.
type layer struct {
	source scope.Source
	scope  *scope.Scope
	parent *layer
	els    *reactivity.Proxy
}

func appOf(doc *dom.Document) *app {
	if a, ok := doc.Value(appKey{}).(*app); ok {
		return a
	}
	a := &app{
		doc:    doc,
		layers: map[scope.Source]*layer{},
		log:    defaultLogger(),
	}
	a.rs = reactivity.CreateReactiveSystem(func(_ *reactivity.Effect, err error) {
		a.report(err)
	})
	a.api = a.rs.ReactiveObject(reactivity.ObjectOf(
		"emit", &expr.Builtin{Name: "emit", Fn: a.emit},
		"vox", &expr.Builtin{Name: "vox", Fn: a.voxAPI},
		"console", expr.NewConsole(a.log),
	))
	a.scope = scope.New(a.rs.ReadonlyObject(reactivity.ObjectOf("el", nil)))
	a.root = a.newLayer(a.scope, nil, false)
	a.scope.Push(a.root.source, a.api)
	doc.SetValue(appKey{}, a)
	return a
}

func (a *app) setLogger(log logrus.FieldLogger) {
	a.log = log
	a.api.Set("console", expr.NewConsole(log))
}

// newLayer builds the layer of a component scope. The application layer
// has no vox function so bare vox() calls reach the api. A layer's vox
// counts components outwards and hands selectors to the api.
func (a *app) newLayer(s *scope.Scope, parent *layer, withVox bool) *layer {
	l := &layer{scope: s, parent: parent, els: a.rs.ReactiveObject(reactivity.NewObject())}
	rec := reactivity.ObjectOf("app", a.scope, "els", a.rs.Readonly(l.els))
	if withVox {
		rec.Set("vox", &expr.Builtin{Name: "vox", Fn: func(this any, args []any) (any, error) {
			if len(args) > 0 {
				if _, ok := args[0].(string); ok {
					return a.voxAPI(this, args)
				}
			}
			n := 0
			if len(args) > 0 && args[0] != nil {
				f := expr.ToNumber(args[0])
				if f < 0 || f != float64(int(f)) {
					return nil, nil
				}
				n = int(f)
			}
			return l.up(n), nil
		}})
	}
	l.source = a.rs.ShallowReadonly(rec).(*reactivity.Proxy)
	a.layers[l.source] = l
	return l
}

// up returns the scope n components out, the application scope last.
func (l *layer) up(n int) any {
	for ; l != nil; l = l.parent {
		if n == 0 {
			return l.scope
		}
		n--
	}
	return nil
}

// layerOf finds the component layer of s.
func (a *app) layerOf(s *scope.Scope) (*layer, int) {
	for i := s.Len() - 1; i >= 0; i-- {
		if l, ok := a.layers[s.Source(i)]; ok {
			return l, i
		}
	}
	return a.root, -1
}

func (a *app) report(err error) {
	if err == nil {
		return
	}
	a.log.WithError(err).Error("vox")
	if a.onError != nil {
		a.onError(err)
	}
}

// elementOf reads the el binding of an expression receiver.
func elementOf(this any) *dom.Node {
	var v any
	switch t := this.(type) {
	case expr.Scope:
		v, _ = t.Lookup("el")
	case nil:
		return nil
	default:
		v, _ = expr.GetMember(t, "el")
	}
	if e, ok := v.(*element); ok {
		return e.node
	}
	return nil
}

// emit dispatches a bubbling, cancelable custom event from the current
// element, or from the document.
func (a *app) emit(this any, args []any) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("emit: event name required")
	}
	var detail any
	if len(args) > 1 {
		detail = args[1]
	}
	ev := dom.NewEvent(expr.ToString(args[0]), dom.EventInit{
		Bubbles:    true,
		Cancelable: true,
		Composed:   true,
		Detail:     detail,
	})
	if el := elementOf(this); el != nil {
		el.DispatchEvent(ev)
	} else {
		a.doc.DispatchEvent(ev)
	}
	return nil, nil
}

// voxAPI returns an enclosing component scope: by count of components out
// from the current element (0 is the nearest), or by selector.
func (a *app) voxAPI(this any, args []any) (any, error) {
	var index any
	if len(args) > 0 {
		index = expr.Normalize(args[0])
	}
	if index == nil {
		if s, ok := this.(*scope.Scope); ok && s == a.scope {
			return a.scope, nil
		}
		index = 0.0
	}
	el := elementOf(this)
	if sel, ok := index.(string); ok {
		if el == nil {
			return nil, nil
		}
		found, err := el.Closest(sel)
		if err != nil || found == nil {
			return nil, err
		}
		return a.componentScope(found), nil
	}
	f, ok := index.(float64)
	if !ok || f < 0 || f != float64(int(f)) {
		return nil, nil
	}
	n := int(f)
	for p := el; p != nil; p = p.ParentElement() {
		st := a.stateOf(a.template(p))
		if st == nil || !st.component {
			continue
		}
		if n == 0 {
			return st.scope, nil
		}
		n--
	}
	if n == 0 {
		return a.scope, nil
	}
	return nil, nil
}

// template maps clones made by for and if back to their template.
func (a *app) template(el *dom.Node) *dom.Node {
	st := a.stateOf(el)
	if st == nil {
		return el
	}
	if st.ifOf != nil && st.ifOf != el {
		el, st = st.ifOf, a.stateOf(st.ifOf)
		if st == nil {
			return el
		}
	}
	if st.forOf != nil && st.forOf != el {
		el = st.forOf
	}
	return el
}

func (a *app) componentScope(el *dom.Node) any {
	if st := a.stateOf(a.template(el)); st != nil {
		return st.scope
	}
	return nil
}

// System returns the reactive system shared by the document.
func (inst *Instance) System() *reactivity.System {
	return inst.app.rs
}

// Reactive wraps v in the document's reactive system.
func (inst *Instance) Reactive(v any) any {
	return inst.app.rs.Reactive(v)
}
