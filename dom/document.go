package dom

import (
	"strings"
	"time"
)

// Document owns a node tree, its window, focus state and clock. A document
// and everything reachable from it belong to one goroutine; timers and
// other goroutines hand work to it through Loop.
type Document struct {
	*Node

	window  *Window
	active  *Node
	clock   Clock
	loop    *Loop
	version uint64
	mirror  *mirror
	doctype string
}

type Option func(*Document)

// WithClock replaces the system clock, typically with a ManualClock.
func WithClock(c Clock) Option {
	return func(d *Document) {
		d.clock = c
	}
}

// WithLoop shares a task loop between documents.
func WithLoop(l *Loop) Option {
	return func(d *Document) {
		d.loop = l
	}
}

// NewDocument returns an empty document with html, head and body elements.
func NewDocument(opts ...Option) *Document {
	d := newDocument(opts...)
	html := d.CreateElement("html")
	html.AppendChild(d.CreateElement("head"))
	html.AppendChild(d.CreateElement("body"))
	d.AppendChild(html)
	return d
}

func newDocument(opts ...Option) *Document {
	d := &Document{}
	d.Node = &Node{Type: DocumentNode, doc: d}
	d.window = &Window{doc: d}
	for _, opt := range opts {
		opt(d)
	}
	if d.loop == nil {
		d.loop = NewLoop()
	}
	if d.clock == nil {
		d.clock = NewSystemClock(d.loop)
	}
	return d
}

func (d *Document) touch() {
	if d != nil {
		d.version++
	}
}

func (d *Document) Window() *Window {
	return d.window
}

func (d *Document) Clock() Clock {
	return d.clock
}

func (d *Document) Loop() *Loop {
	return d.loop
}

// SetTimeout runs fn once after delay on the document's clock.
func (d *Document) SetTimeout(delay time.Duration, fn func()) Timer {
	return d.clock.AfterFunc(delay, fn)
}

func (d *Document) CreateElement(tag string) *Node {
	return &Node{Type: ElementNode, Tag: strings.ToLower(tag), doc: d}
}

func (d *Document) CreateTextNode(text string) *Node {
	return &Node{Type: TextNode, Data: text, doc: d}
}

func (d *Document) CreateComment(text string) *Node {
	return &Node{Type: CommentNode, Data: text, doc: d}
}

// DocumentElement is the root html element.
func (d *Document) DocumentElement() *Node {
	for _, c := range d.children {
		if c.Type == ElementNode {
			return c
		}
	}
	return nil
}

func (d *Document) find(tag string) *Node {
	var found *Node
	d.walk(func(n *Node) bool {
		if found == nil && n.Type == ElementNode && n.Tag == tag {
			found = n
		}
		return found == nil
	})
	return found
}

func (d *Document) Body() *Node {
	return d.find("body")
}

func (d *Document) Head() *Node {
	return d.find("head")
}

// ActiveElement is the focused element, or the body when nothing is.
func (d *Document) ActiveElement() *Node {
	if d.active != nil && d.active.Connected() {
		return d.active
	}
	return d.Body()
}

// GetElementByID returns the first element with the given id.
func (d *Document) GetElementByID(id string) *Node {
	var found *Node
	d.walk(func(n *Node) bool {
		if found == nil && n.Type == ElementNode {
			if v, ok := n.GetAttribute("id"); ok && v == id {
				found = n
			}
		}
		return found == nil
	})
	return found
}

// Focus moves focus to n, firing blur on the previously focused element
// and focus on n.
func (n *Node) Focus() {
	d := n.doc
	if n.Type != ElementNode || !n.Connected() || d.active == n {
		return
	}
	prev := d.active
	d.active = n
	if prev != nil {
		prev.DispatchEvent(NewEvent("blur", EventInit{}))
	}
	n.DispatchEvent(NewEvent("focus", EventInit{}))
}

// Blur drops focus from n when it has it.
func (n *Node) Blur() {
	d := n.doc
	if d.active != n {
		return
	}
	d.active = nil
	n.DispatchEvent(NewEvent("blur", EventInit{}))
}

// Window is the event target above the document.
type Window struct {
	eventTarget
	doc *Document
}

func (w *Window) Document() *Document {
	return w.doc
}

func (w *Window) AddEventListener(typ string, fn func(*Event), opts ListenerOptions) func() {
	return w.add(typ, fn, opts)
}

// DispatchEvent fires ev at the window alone.
func (w *Window) DispatchEvent(ev *Event) bool {
	ev.Target = w
	ev.path = []EventTarget{w}
	ev.Phase = AtTarget
	ev.CurrentTarget = w
	w.invoke(ev, AtTarget)
	ev.CurrentTarget = nil
	ev.Phase = NoPhase
	return !ev.DefaultPrevented()
}

func (w *Window) String() string {
	return "#window"
}
