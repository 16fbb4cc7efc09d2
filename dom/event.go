package dom

import "slices"

type EventPhase uint8

const (
	NoPhase EventPhase = iota
	CapturingPhase
	AtTarget
	BubblingPhase
)

// EventTarget is anything listeners can attach to: nodes and the window.
type EventTarget interface {
	AddEventListener(typ string, fn func(*Event), opts ListenerOptions) (remove func())
	DispatchEvent(ev *Event) bool
}

type ListenerOptions struct {
	Capture bool
	Once    bool
	Passive bool
}

// EventInit carries the optional fields of a new event.
type EventInit struct {
	Bubbles    bool
	Cancelable bool
	Composed   bool
	Detail     any

	Key      string
	Button   int
	AltKey   bool
	CtrlKey  bool
	MetaKey  bool
	ShiftKey bool
}

type Event struct {
	EventInit
	Type          string
	Target        EventTarget
	CurrentTarget EventTarget
	Phase         EventPhase

	path             []EventTarget
	defaultPrevented bool
	stopped          bool
	stoppedNow       bool
	inPassive        bool
}

func NewEvent(typ string, init EventInit) *Event {
	return &Event{Type: typ, EventInit: init}
}

// PreventDefault marks a cancelable event as handled. It has no effect
// inside passive listeners.
func (e *Event) PreventDefault() {
	if e.Cancelable && !e.inPassive {
		e.defaultPrevented = true
	}
}

func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// StopPropagation keeps the event from reaching further targets.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// StopImmediatePropagation also skips the remaining listeners of the
// current target.
func (e *Event) StopImmediatePropagation() {
	e.stopped = true
	e.stoppedNow = true
}

// ComposedPath lists the targets the event travels through, innermost
// first.
func (e *Event) ComposedPath() []EventTarget {
	return slices.Clone(e.path)
}

type listener struct {
	fn      func(*Event)
	opts    ListenerOptions
	removed bool
}

type eventTarget struct {
	listeners map[string][]*listener
}

func (t *eventTarget) add(typ string, fn func(*Event), opts ListenerOptions) func() {
	if t.listeners == nil {
		t.listeners = map[string][]*listener{}
	}
	l := &listener{fn: fn, opts: opts}
	t.listeners[typ] = append(t.listeners[typ], l)
	return func() {
		t.remove(typ, l)
	}
}

func (t *eventTarget) remove(typ string, l *listener) {
	l.removed = true
	t.listeners[typ] = slices.DeleteFunc(t.listeners[typ], func(x *listener) bool { return x == l })
	if len(t.listeners[typ]) == 0 {
		delete(t.listeners, typ)
	}
}

// ListenerCount reports how many listeners of typ are attached.
func (t *eventTarget) ListenerCount(typ string) int {
	return len(t.listeners[typ])
}

// invoke runs the listeners registered for phase. At the target both
// capturing and bubbling listeners run in registration order.
func (t *eventTarget) invoke(ev *Event, phase EventPhase) {
	for _, l := range slices.Clone(t.listeners[ev.Type]) {
		if l.removed {
			continue
		}
		switch phase {
		case CapturingPhase:
			if !l.opts.Capture {
				continue
			}
		case BubblingPhase:
			if l.opts.Capture {
				continue
			}
		}
		if l.opts.Once {
			t.remove(ev.Type, l)
		}
		ev.inPassive = l.opts.Passive
		l.fn(ev)
		ev.inPassive = false
		if ev.stoppedNow {
			return
		}
	}
}

func (n *Node) AddEventListener(typ string, fn func(*Event), opts ListenerOptions) func() {
	return n.add(typ, fn, opts)
}

// DispatchEvent fires ev at n: capture from the window down, the target,
// then bubbling back up when the event bubbles. It reports false when a
// listener prevented the default.
func (n *Node) DispatchEvent(ev *Event) bool {
	ev.Target = n
	ev.stopped, ev.stoppedNow = false, false

	var path []EventTarget
	for p := n; p != nil; p = p.parent {
		path = append(path, p)
	}
	if n.Connected() {
		path = append(path, n.doc.window)
	}
	ev.path = path

	targetOf := func(et EventTarget) *eventTarget {
		switch t := et.(type) {
		case *Node:
			return &t.eventTarget
		case *Window:
			return &t.eventTarget
		}
		return nil
	}

	for i := len(path) - 1; i > 0 && !ev.stopped; i-- {
		ev.Phase = CapturingPhase
		ev.CurrentTarget = path[i]
		targetOf(path[i]).invoke(ev, CapturingPhase)
	}
	if !ev.stopped {
		ev.Phase = AtTarget
		ev.CurrentTarget = n
		n.invoke(ev, AtTarget)
	}
	if ev.Bubbles {
		for i := 1; i < len(path) && !ev.stopped; i++ {
			ev.Phase = BubblingPhase
			ev.CurrentTarget = path[i]
			targetOf(path[i]).invoke(ev, BubblingPhase)
		}
	}
	ev.Phase = NoPhase
	ev.CurrentTarget = nil
	return !ev.defaultPrevented
}
