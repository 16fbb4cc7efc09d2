package vox

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"unicode/utf8"

	"github.com/delaneyj/vox/dom"
	"github.com/delaneyj/vox/expr"
	"github.com/delaneyj/vox/reactivity"
	"github.com/delaneyj/vox/scope"
)

// forRE splits "item, key, index in source", parentheses optional.
var forRE = regexp.MustCompile(`^\(?\s*([A-Za-z_$][\w$]*)(?:\s*,\s*([A-Za-z_$][\w$]*))?(?:\s*,\s*([A-Za-z_$][\w$]*))?\s*\)?\s+(?:in|of)\s+([\s\S]+)$`)

type loopVars struct {
	value, key, index string
	source            string
}

func parseFor(src string) (loopVars, error) {
	m := forRE.FindStringSubmatch(src)
	if m == nil {
		return loopVars{}, fmt.Errorf("for: expected \"item[, key[, index]] in source\", got %q", src)
	}
	return loopVars{value: m[1], key: m[2], index: m[3], source: m[4]}, nil
}

// pairs normalises a for source into key/value pairs: arrays and strings
// by position, objects and maps by key, sets by position and positive
// integers n as 1..n.
func pairs(v any) [][2]any {
	switch t := expr.Normalize(v).(type) {
	case nil, bool:
		return nil
	case string:
		out := make([][2]any, 0, utf8.RuneCountInString(t))
		i := 0
		for _, r := range t {
			out = append(out, [2]any{float64(i), string(r)})
			i++
		}
		return out
	case float64:
		if t <= 0 || t >= math.MaxUint32 || t != math.Trunc(t) {
			return nil
		}
		out := make([][2]any, int(t))
		for i := range out {
			out[i] = [2]any{float64(i), float64(i + 1)}
		}
		return out
	}
	p, ok := reactivity.View(v).(*reactivity.Proxy)
	if !ok {
		return nil
	}
	switch {
	case p.IsArray():
		items := p.Items()
		out := make([][2]any, len(items))
		for i, item := range items {
			out[i] = [2]any{float64(i), item}
		}
		return out
	case p.IsSet():
		values := p.Values()
		out := make([][2]any, len(values))
		for i, item := range values {
			out[i] = [2]any{float64(i), item}
		}
		return out
	}
	return p.Entries()
}

// setVar writes a loop variable. Expressions inside the fragment cannot
// reassign it.
func setVar(vars *reactivity.Proxy, raw *reactivity.Object, name string, v any) {
	if name == "" {
		return
	}
	raw.Unlock(name)
	vars.Set(name, v)
	raw.Lock(name)
}

type fragment struct {
	node *dom.Node
	vars *reactivity.Proxy
	raw  *reactivity.Object
}

// replaceWithMarker swaps el for an empty text node that anchors the
// fragments rendered from it.
func replaceWithMarker(el *dom.Node) (*dom.Node, error) {
	parent := el.Parent()
	if parent == nil {
		return nil, ErrNoParent
	}
	marker := el.Document().CreateTextNode("")
	parent.ReplaceChild(marker, el)
	return marker, nil
}

func restore(marker, el *dom.Node) {
	if parent := marker.Parent(); parent != nil {
		parent.ReplaceChild(el, marker)
	}
}

// clone builds a fresh instance of a template that reuses its parsed
// directives.
func (a *app) clone(template *dom.Node, tst *state, sources ...scope.Source) (*dom.Node, *state) {
	node := template.Clone(true)
	st := &state{
		dirs:  tst.dirs,
		forOf: tst.forOf,
		scope: scope.New(append([]scope.Source{a.elSource(node)}, sources...)...),
	}
	node.SetValue(stateKey{}, st)
	return node, st
}

// forEach renders one clone of el per entry of the source, reconciling by
// position: existing clones get their loop variables updated in place,
// new trailing entries are cloned and surplus clones are torn down.
func (a *app) forEach(el *dom.Node, st *state, d directive) error {
	lv, err := parseFor(d.expr)
	if err != nil {
		return err
	}
	get, err := a.evaluator(st, lv.source)
	if err != nil {
		return err
	}
	st.forOf = el
	marker, err := replaceWithMarker(el)
	if err != nil {
		return err
	}

	var frags []fragment
	sync := func() {
		st.content = st.content[:0]
		for _, f := range frags {
			st.content = append(st.content, f.node)
		}
		st.hasContent = true
	}
	runner := func(v any) error {
		list, _ := v.([][2]any)
		i := 0
		for ; i < len(frags) && i < len(list); i++ {
			f := frags[i]
			setVar(f.vars, f.raw, lv.value, list[i][1])
			setVar(f.vars, f.raw, lv.key, list[i][0])
			setVar(f.vars, f.raw, lv.index, float64(i))
		}
		for ; i < len(list); i++ {
			parent := marker.Parent()
			if parent == nil {
				return ErrNoParent
			}
			raw := reactivity.NewObject()
			vars := a.rs.ReactiveObject(raw)
			setVar(vars, raw, lv.value, list[i][1])
			setVar(vars, raw, lv.key, list[i][0])
			setVar(vars, raw, lv.index, float64(i))
			node, _ := a.clone(el, st, append([]scope.Source{vars}, st.scope.Sources(1)...)...)
			parent.InsertBefore(node, marker)
			frags = append(frags, fragment{node: node, vars: vars, raw: raw})
			sync()
			if err := a.init(node); err != nil {
				return err
			}
		}
		if i >= len(frags) {
			return nil
		}
		var errs []error
		for _, f := range frags[i:] {
			errs = append(errs, a.exit(f.node))
			f.node.Remove()
			a.rs.Release(f.raw)
		}
		frags = frags[:i]
		sync()
		return errors.Join(errs...)
	}
	st.cleanup = append(st.cleanup, func() {
		for _, f := range frags {
			f.node.Remove()
			a.rs.Release(f.raw)
		}
		frags = nil
		restore(marker, el)
	})
	return a.reaction(st, func() (any, error) {
		v, err := get()
		if err != nil {
			return nil, err
		}
		return pairs(v), nil
	}, runner)
}

// when renders a clone of el while the condition holds.
func (a *app) when(el *dom.Node, st *state, d directive) error {
	get, err := a.evaluator(st, "!!("+d.expr+")")
	if err != nil {
		return err
	}
	st.ifOf = el
	marker, err := replaceWithMarker(el)
	if err != nil {
		return err
	}

	var shown *dom.Node
	runner := func(v any) error {
		on := expr.Truthy(v)
		if on == (shown != nil) {
			return nil
		}
		if on {
			parent := marker.Parent()
			if parent == nil {
				return ErrNoParent
			}
			node, cst := a.clone(el, st, st.scope.Sources(1)...)
			cst.ifOf = el
			parent.InsertBefore(node, marker)
			shown = node
			st.content, st.hasContent = []*dom.Node{node}, true
			return a.init(node)
		}
		node := shown
		shown = nil
		st.content = nil
		err := a.exit(node)
		node.Remove()
		return err
	}
	st.cleanup = append(st.cleanup, func() {
		if shown != nil {
			shown.Remove()
			shown = nil
		}
		restore(marker, el)
	})
	return a.reaction(st, get, runner)
}
