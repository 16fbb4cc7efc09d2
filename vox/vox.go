// Package vox binds reactive state to a dom.Document through directive
// attributes such as vox:text, vox:class:active, vox:for and
// vox:event:click.prevent.
//
//	doc, _ := dom.ParseString(page)
//	inst, _ := vox.New(doc)
//	if err := inst.Init(); err != nil {
//		...
//	}
package vox

import (
	"errors"
	"fmt"
	"os"

	"github.com/delaneyj/vox/dom"
	"github.com/delaneyj/vox/scope"
	"github.com/sirupsen/logrus"
)

// DefaultSelector finds the root elements an Instance processes.
const DefaultSelector = "[vox]"

var (
	// ErrNoParent is returned when a structural directive is applied to an
	// element that is not attached to a parent.
	ErrNoParent = errors.New("element has no parent")
	// ErrNotFound is returned when WithElementSelector matches nothing.
	ErrNotFound = errors.New("element not found")
)

type config struct {
	selector   string
	element    *dom.Node
	elementSel string
	log        logrus.FieldLogger
	onError    func(error)
}

type Option func(*config)

// WithSelector processes every element matching sel that is not nested in
// another match.
func WithSelector(sel string) Option {
	return func(c *config) {
		c.selector = sel
	}
}

// WithElement processes a single root element.
func WithElement(el *dom.Node) Option {
	return func(c *config) {
		c.element = el
	}
}

// WithElementSelector processes the first element matching sel.
func WithElementSelector(sel string) Option {
	return func(c *config) {
		c.elementSel = sel
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *config) {
		c.log = log
	}
}

// WithOnError receives errors raised outside of a direct call: effects
// re-run by a mutation, event handlers and timers.
func WithOnError(fn func(error)) Option {
	return func(c *config) {
		c.onError = fn
	}
}

func defaultLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	return l
}

// Instance processes a fixed set of root elements of one document.
type Instance struct {
	app   *app
	roots []*dom.Node
}

// New resolves the root elements of doc. All instances of a document share
// one reactive system and application scope; the logger and error handler
// of the latest instance that sets them win.
func New(doc *dom.Document, opts ...Option) (*Instance, error) {
	cfg := config{selector: DefaultSelector}
	for _, opt := range opts {
		opt(&cfg)
	}
	a := appOf(doc)
	if cfg.log != nil {
		a.setLogger(cfg.log)
	}
	if cfg.onError != nil {
		a.onError = cfg.onError
	}

	inst := &Instance{app: a}
	switch {
	case cfg.element != nil:
		inst.roots = []*dom.Node{cfg.element}
	case cfg.elementSel != "":
		el, err := doc.QuerySelector(cfg.elementSel)
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, cfg.elementSel)
		}
		inst.roots = []*dom.Node{el}
	default:
		roots, err := outermost(doc, cfg.selector)
		if err != nil {
			return nil, err
		}
		inst.roots = roots
	}
	return inst, nil
}

// outermost returns the matches of sel that have no matching ancestor.
func outermost(doc *dom.Document, sel string) ([]*dom.Node, error) {
	all, err := doc.QuerySelectorAll(sel)
	if err != nil {
		return nil, err
	}
	var out []*dom.Node
	for _, el := range all {
		parent := el.ParentElement()
		if parent == nil {
			out = append(out, el)
			continue
		}
		outer, err := parent.Closest(sel)
		if err != nil {
			return nil, err
		}
		if outer == nil {
			out = append(out, el)
		}
	}
	return out, nil
}

// Roots lists the elements the instance processes.
func (inst *Instance) Roots() []*dom.Node {
	return inst.roots
}

// Init processes every root that is not processed yet. The first error
// from a directive stops processing and is returned.
func (inst *Instance) Init() error {
	for _, el := range inst.roots {
		if inst.app.stateOf(el) != nil {
			continue
		}
		if err := inst.app.init(el); err != nil {
			return err
		}
	}
	return nil
}

// Exit tears down every processed root, restoring structural templates
// and running exit callbacks.
func (inst *Instance) Exit() error {
	var errs []error
	for _, el := range inst.roots {
		if inst.app.stateOf(el) == nil {
			continue
		}
		if err := inst.app.exit(el); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Refresh re-runs the init directives and component init methods of every
// processed element, parents first.
func (inst *Instance) Refresh() error {
	for _, el := range inst.roots {
		if err := inst.app.refresh(el); err != nil {
			return err
		}
	}
	return nil
}

// Scope returns the expression scope of a processed element, or nil.
func (inst *Instance) Scope(el *dom.Node) *scope.Scope {
	if st := inst.app.stateOf(el); st != nil {
		return st.scope
	}
	return nil
}

// App returns the application scope shared by the document.
func (inst *Instance) App() *scope.Scope {
	return inst.app.scope
}

// Eval evaluates src in the scope of a processed element.
func (inst *Instance) Eval(el *dom.Node, src string) (any, error) {
	st := inst.app.stateOf(el)
	if st == nil {
		return nil, fmt.Errorf("eval %q: element %s is not processed", src, el)
	}
	return inst.app.eval(st, src)
}
