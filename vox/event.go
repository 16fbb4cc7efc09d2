package vox

import (
	"fmt"
	"strconv"
	"time"

	"github.com/delaneyj/vox/dom"
	"github.com/delaneyj/vox/expr"
	"github.com/delaneyj/vox/scope"
	"golang.org/x/time/rate"
)

const defaultDelay = 250 * time.Millisecond

type handler func(ev *dom.Event)

// keyFilters are the modifiers that pass an event on only when it matches.
var keyFilters = map[string]func(ev *dom.Event) bool{
	"left": func(ev *dom.Event) bool {
		return ev.Button == 0 && ev.Key == "" || ev.Key == "ArrowLeft" || ev.Key == "Left"
	},
	"middle": func(ev *dom.Event) bool { return ev.Button == 1 },
	"right": func(ev *dom.Event) bool {
		return ev.Button == 2 || ev.Key == "ArrowRight" || ev.Key == "Right"
	},
	"up":     func(ev *dom.Event) bool { return ev.Key == "ArrowUp" || ev.Key == "Up" },
	"down":   func(ev *dom.Event) bool { return ev.Key == "ArrowDown" || ev.Key == "Down" },
	"delete": func(ev *dom.Event) bool { return ev.Key == "Backspace" || ev.Key == "Delete" || ev.Key == "Del" },
	"enter":  func(ev *dom.Event) bool { return ev.Key == "Enter" },
	"escape": func(ev *dom.Event) bool { return ev.Key == "Escape" || ev.Key == "Esc" },
	"space":  func(ev *dom.Event) bool { return ev.Key == " " || ev.Key == "Spacebar" },
	"tab":    func(ev *dom.Event) bool { return ev.Key == "Tab" },
	"alt":    func(ev *dom.Event) bool { return ev.AltKey },
	"ctrl":   func(ev *dom.Event) bool { return ev.CtrlKey },
	"meta":   func(ev *dom.Event) bool { return ev.MetaKey },
	"shift":  func(ev *dom.Event) bool { return ev.ShiftKey },
}

var flagAliases = map[string]string{
	"win": "window",
	"doc": "document",
	"out": "outside",
	"mid": "middle",
	"del": "delete",
	"esc": "escape",
	"deb": "debounce",
	"thr": "throttle",
}

func delayOf(value string) time.Duration {
	ms, err := strconv.ParseFloat(value, 64)
	if err != nil || ms < 0 {
		return defaultDelay
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// event attaches a listener for typ. Without a type the expression yields
// an object of event name to handler.
func (a *app) event(el *dom.Node, st *state, d directive, typ string) error {
	if typ == "" {
		return a.eventMap(el, st, d)
	}
	prog, err := expr.CompileFunc(d.expr, "event")
	if err != nil {
		return err
	}

	var (
		target dom.EventTarget = el
		opts   dom.ListenerOptions
		// chain[0] is the timing stage and chain[1] the outside filter;
		// guards follow in flag order and the handler comes last.
		chain = make([]handler, 2)
	)
	next := func(i int) handler {
		return func(ev *dom.Event) { chain[i](ev) }
	}
	guard := func(pass func(ev *dom.Event) bool) {
		call := next(len(chain) + 1)
		chain = append(chain, func(ev *dom.Event) {
			if pass(ev) {
				call(ev)
			}
		})
	}
	for _, f := range d.flags {
		name := f.name
		if alias, ok := flagAliases[name]; ok {
			name = alias
		}
		switch name {
		case "camel":
			typ = camelize(typ)
		case "window":
			target = a.doc.Window()
		case "document":
			target = a.doc
		case "outside":
			if target == dom.EventTarget(el) {
				target = a.doc
			}
			call := next(2)
			chain[1] = func(ev *dom.Event) {
				if n, ok := ev.Target.(*dom.Node); ok && el.Contains(n) {
					return
				}
				call(ev)
			}
		case "self":
			guard(func(ev *dom.Event) bool { return ev.Target == dom.EventTarget(el) })
		case "prevent":
			guard(func(ev *dom.Event) bool { ev.PreventDefault(); return true })
		case "stop":
			guard(func(ev *dom.Event) bool { ev.StopPropagation(); return true })
		case "immediate":
			guard(func(ev *dom.Event) bool { ev.StopImmediatePropagation(); return true })
		case "debounce":
			delay := delayOf(f.value)
			call := next(1)
			var timer dom.Timer
			chain[0] = func(ev *dom.Event) {
				if timer != nil {
					timer.Stop()
				}
				timer = a.doc.SetTimeout(delay, func() {
					timer = nil
					call(ev)
				})
			}
			st.cleanup = append(st.cleanup, func() {
				if timer != nil {
					timer.Stop()
				}
			})
		case "throttle":
			delay := delayOf(f.value)
			call := next(1)
			limiter := rate.NewLimiter(rate.Every(delay), 1)
			clock := a.doc.Clock()
			chain[0] = func(ev *dom.Event) {
				if limiter.AllowN(clock.Now(), 1) {
					call(ev)
				}
			}
		case "capture":
			opts.Capture = true
		case "once":
			opts.Once = true
		case "passive":
			opts.Passive = true
		default:
			if pass, ok := keyFilters[name]; ok {
				guard(pass)
			}
		}
	}
	chain = append(chain, func(ev *dom.Event) {
		e := a.eventValue(ev)
		// event fields resolve behind every other source
		sc := scope.New(append(st.scope.Sources(0), eventFields{e})...)
		if _, err := prog.Run(sc, e); err != nil {
			a.report(fmt.Errorf("%s %s: %w", el, d.attr, err))
		}
	})
	if chain[1] == nil {
		chain[1] = chain[2]
	}
	if chain[0] == nil {
		chain[0] = chain[1]
	}
	remove := target.AddEventListener(typ, chain[0], opts)
	st.cleanup = append(st.cleanup, remove)
	return nil
}

func (a *app) eventMap(el *dom.Node, st *state, d directive) error {
	v, err := a.eval(st, d.expr)
	if err != nil {
		return err
	}
	for _, kv := range entries(v) {
		name := expr.PropertyKey(kv[0])
		fn, ok := kv[1].(expr.Callable)
		if !ok {
			return fmt.Errorf("handler for %s is not a function", name)
		}
		remove := el.AddEventListener(name, func(ev *dom.Event) {
			if _, err := fn.Call(a.element(el), []any{a.eventValue(ev)}); err != nil {
				a.report(fmt.Errorf("%s %s: %w", el, name, err))
			}
		}, dom.ListenerOptions{})
		st.cleanup = append(st.cleanup, remove)
	}
	return nil
}
