package vox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/delaneyj/vox/dom"
	"github.com/delaneyj/vox/expr"
	"github.com/delaneyj/vox/reactivity"
	"github.com/delaneyj/vox/scope"
	"github.com/sirupsen/logrus"
)

type stateKey struct{}

// state is everything vox keeps on a processed element.
type state struct {
	scope *scope.Scope
	// forOf and ifOf name the template of a clone; on a template they name
	// the element itself.
	forOf     *dom.Node
	ifOf      *dom.Node
	component bool
	// dirs are parsed once; clones share their template's.
	dirs []directive

	content    []*dom.Node
	hasContent bool
	cleanup    []func()
	init       []func() error
	exit       []func() error
}

func (a *app) stateOf(el *dom.Node) *state {
	if el == nil {
		return nil
	}
	st, _ := el.Value(stateKey{}).(*state)
	return st
}

func (a *app) elSource(el *dom.Node) scope.Source {
	return a.rs.ReadonlyObject(reactivity.ObjectOf("el", a.element(el)))
}

// parentScope is the scope children of el's parent inherit.
func (a *app) parentScope(el *dom.Node) *scope.Scope {
	if st := a.stateOf(el.Parent()); st != nil && st.scope != nil {
		return st.scope
	}
	return a.scope
}

func (a *app) fields(el *dom.Node, d directive) logrus.Fields {
	return logrus.Fields{"directive": d.name, "key": d.key, "tag": el.Tag}
}

// init processes el and then its children.
func (a *app) init(el *dom.Node) error {
	st := a.stateOf(el)
	if st == nil {
		st = &state{}
		el.SetValue(stateKey{}, st)
	}
	if st.scope == nil {
		sources := append([]scope.Source{a.elSource(el)}, a.parentScope(el).Sources(1)...)
		st.scope = scope.New(sources...)
	}
	if st.dirs == nil {
		st.dirs = parseDirectives(el)
	}
	for _, d := range st.dirs {
		a.log.WithFields(a.fields(el, d)).Debug("apply directive")
		stop, err := a.apply(el, st, d)
		if err != nil {
			return fmt.Errorf("%s %s=%q: %w", el, d.attr, d.expr, err)
		}
		if stop {
			return nil
		}
	}
	if !st.hasContent {
		st.content = el.Children()
		st.hasContent = true
	}
	for _, child := range st.content {
		if err := a.init(child); err != nil {
			return err
		}
	}
	return nil
}

// apply runs one directive. stop reports that the element's remaining
// directives and children are handled elsewhere.
func (a *app) apply(el *dom.Node, st *state, d directive) (stop bool, err error) {
	switch d.name {
	case "skip":
		if d.expr == "" {
			return true, a.exit(el)
		}
		v, err := a.eval(st, d.expr)
		if err != nil {
			return false, err
		}
		if expr.Truthy(v) {
			return true, a.exit(el)
		}
	case "vox":
		if st.forOf == nil && st.ifOf == nil {
			return false, a.component(el, st, d)
		}
	case "for":
		if st.forOf == nil {
			return true, a.forEach(el, st, d)
		}
	case "if":
		if st.ifOf == nil {
			return true, a.when(el, st, d)
		}
	case "el", "is":
		return false, a.register(el, st, d)
	case "init":
		prog, err := expr.CompileFunc(d.expr)
		if err != nil {
			return false, err
		}
		run := func() error {
			_, err := prog.Run(st.scope)
			return err
		}
		st.init = append(st.init, run)
		return false, run()
	case "attr", "aria", "data":
		return false, a.attr(el, st, d)
	case "class":
		return false, a.class(el, st, d)
	case "event":
		return false, a.event(el, st, d, d.key)
	case "focus":
		return false, a.focus(el, st, d)
	case "run":
		return false, a.run(st, d)
	case "style":
		return false, a.style(el, st, d)
	case "exit":
		prog, err := expr.CompileFunc(d.expr)
		if err != nil {
			return false, err
		}
		st.exit = append(st.exit, func() error {
			_, err := prog.Run(st.scope)
			return err
		})
	default:
		if strings.HasPrefix(d.name, "on") {
			return false, a.event(el, st, d, d.name[2:])
		}
		key := d.name
		if alias, ok := propertyAliases[key]; ok {
			key = alias
		}
		if el.HasProperty(key) {
			return false, a.bind(el, st, d, key)
		}
		a.log.WithFields(a.fields(el, d)).Debug("unknown directive")
	}
	return false, nil
}

// exit tears el down: children first, then cleanups, then exit callbacks.
func (a *app) exit(el *dom.Node) error {
	st := a.stateOf(el)
	if st == nil {
		return nil
	}
	var errs []error
	content := st.content
	st.content, st.hasContent = nil, false
	for _, child := range content {
		errs = append(errs, a.exit(child))
	}
	cleanup := st.cleanup
	st.cleanup = nil
	for _, fn := range cleanup {
		fn()
	}
	el.DeleteValue(stateKey{})
	for _, fn := range st.exit {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// refresh re-runs the init callbacks of el and its processed content.
func (a *app) refresh(el *dom.Node) error {
	st := a.stateOf(el)
	if st == nil {
		return nil
	}
	for _, fn := range st.init {
		if err := fn(); err != nil {
			return err
		}
	}
	for _, child := range st.content {
		if err := a.refresh(child); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) eval(st *state, src string) (any, error) {
	prog, err := expr.Compile(src)
	if err != nil {
		return nil, err
	}
	return prog.Run(st.scope)
}

// reaction installs a binding: getter re-evaluates when what it read
// changes and runner applies the value. The first run's error is returned.
func (a *app) reaction(st *state, getter func() (any, error), runner func(any) error) error {
	r := a.rs.Reaction(getter, runner)
	st.cleanup = append(st.cleanup, r.Cleanup)
	return r.Run()
}

// evaluator compiles src once and returns a getter evaluating it in st.
func (a *app) evaluator(st *state, src string) (func() (any, error), error) {
	prog, err := expr.Compile(src)
	if err != nil {
		return nil, err
	}
	return func() (any, error) {
		return prog.Run(st.scope)
	}, nil
}

// component installs the data returned by the expression as the element's
// local source, below a fresh layer.
func (a *app) component(el *dom.Node, st *state, d directive) error {
	prog, err := expr.Compile(d.expr)
	if err != nil {
		return err
	}
	v, err := prog.RunWith(st.scope, map[string]any{
		"api": a.rs.ShallowReadonly(reactivity.ObjectOf("app", a.api)),
		"app": a.api,
	})
	if err != nil {
		return err
	}
	if v == nil && d.expr == "" {
		v = reactivity.NewObject()
	}
	data, ok := a.rs.Reactive(v).(*reactivity.Proxy)
	if !ok || !data.IsObject() {
		return fmt.Errorf("component data must be an object, got %s", expr.TypeOf(v))
	}

	parent, at := a.layerOf(st.scope)
	if at < 0 {
		return fmt.Errorf("component scope has no layer")
	}
	st.scope.Splice(at, 1)
	st.scope.Splice(1, 0, data)
	l := a.newLayer(st.scope, parent, true)
	st.scope.Splice(at+1, 0, l.source)
	st.component = true
	st.cleanup = append(st.cleanup, func() {
		delete(a.layers, l.source)
	})

	if fn, ok := data.Get("init").(expr.Callable); ok {
		run := func() error {
			_, err := fn.Call(st.scope, nil)
			return err
		}
		st.init = append(st.init, run)
		if err := run(); err != nil {
			return err
		}
	}
	if fn, ok := data.Get("exit").(expr.Callable); ok {
		st.exit = append(st.exit, func() error {
			_, err := fn.Call(st.scope, nil)
			return err
		})
	}
	return nil
}

// register adds el to the nearest component's element registry.
func (a *app) register(el *dom.Node, st *state, d directive) error {
	v, err := a.eval(st, d.expr)
	if err != nil {
		return err
	}
	name := expr.PropertyKey(v)
	l, _ := a.layerOf(st.scope)
	l.els.Set(name, a.element(el))
	st.cleanup = append(st.cleanup, func() {
		l.els.Delete(name)
	})
	return nil
}
