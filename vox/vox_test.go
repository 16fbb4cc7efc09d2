package vox_test

import (
	"strings"
	"testing"
	"time"

	"github.com/delaneyj/vox/dom"
	"github.com/delaneyj/vox/vox"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	doc    *dom.Document
	clock  *dom.ManualClock
	inst   *vox.Instance
	errors []error
}

func setup(t *testing.T, body string, opts ...vox.Option) *fixture {
	t.Helper()
	f := &fixture{clock: dom.NewManualClock(time.Unix(0, 0))}
	doc, err := dom.ParseString("<!DOCTYPE html><html><head></head><body>"+body+"</body></html>", dom.WithClock(f.clock))
	require.NoError(t, err)
	f.doc = doc
	opts = append([]vox.Option{vox.WithOnError(func(err error) {
		f.errors = append(f.errors, err)
	})}, opts...)
	f.inst, err = vox.New(doc, opts...)
	require.NoError(t, err)
	require.NoError(t, f.inst.Init())
	return f
}

func (f *fixture) query(t *testing.T, sel string) *dom.Node {
	t.Helper()
	n, err := f.doc.QuerySelector(sel)
	require.NoError(t, err)
	require.NotNil(t, n, sel)
	return n
}

func (f *fixture) eval(t *testing.T, el *dom.Node, src string) any {
	t.Helper()
	v, err := f.inst.Eval(el, src)
	require.NoError(t, err)
	return v
}

func click(n *dom.Node) {
	n.DispatchEvent(dom.NewEvent("click", dom.EventInit{Bubbles: true, Cancelable: true}))
}

// should only process the outermost matching roots
func TestRoots(t *testing.T) {
	f := setup(t, `<div id="a" vox><div id="b" vox></div></div><p id="c" vox></p>`)
	roots := f.inst.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "a", attr(roots[0], "id"))
	assert.Equal(t, "c", attr(roots[1], "id"))

	_, err := vox.New(f.doc, vox.WithElementSelector("#missing"))
	assert.ErrorIs(t, err, vox.ErrNotFound)

	inst, err := vox.New(f.doc, vox.WithElement(f.query(t, "#b")))
	require.NoError(t, err)
	assert.Len(t, inst.Roots(), 1)
}

func attr(n *dom.Node, name string) string {
	v, _ := n.GetAttribute(name)
	return v
}

// should bind text and rerender when the state changes
func TestText(t *testing.T) {
	f := setup(t, `<div vox="{count: 1}"><span vox:text="count"></span></div>`)
	span := f.query(t, "span")
	assert.Equal(t, "1", span.TextContent())

	f.eval(t, span, "count++")
	assert.Equal(t, "2", span.TextContent())
	assert.Empty(t, f.errors)
}

// should bind element properties and html
func TestBind(t *testing.T) {
	f := setup(t, `<div vox="{v: 'a', off: true}"><input vox:value="v" vox:disabled="off"><p vox:html="'<b>' + v + '</b>'"></p></div>`)
	input := f.query(t, "input")
	v, ok := input.GetProperty("value")
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.True(t, input.HasAttribute("disabled"))
	assert.Equal(t, "<b>a</b>", f.query(t, "p").InnerHTML())

	f.eval(t, input, "v = 'b', off = false")
	v, _ = input.GetProperty("value")
	assert.Equal(t, "b", v)
	assert.False(t, input.HasAttribute("disabled"))
	assert.Equal(t, "<b>b</b>", f.query(t, "p").InnerHTML())
}

// should keep attributes, classes and styles in sync
func TestAttrClassStyle(t *testing.T) {
	f := setup(t, `<div vox="{on: true, color: 'red', path: '/x'}">`+
		`<a vox:attr:href="path" vox:aria:label="'hi'" vox:class:active="on" vox:style:color="color"></a>`+
		`<b vox:attr="{title: path, hidden: on ? '' : null}" vox:class="['x', {y: on}]" vox:style="{fontSize: '2px'}" vox:style:var="{gap: '1px'}"></b>`+
		`</div>`)
	a := f.query(t, "a")
	b := f.query(t, "b")
	assert.Equal(t, "/x", attr(a, "href"))
	assert.Equal(t, "hi", attr(a, "aria-label"))
	assert.True(t, a.ClassList().Contains("active"))
	assert.Equal(t, "red", a.Style().GetPropertyValue("color"))

	assert.Equal(t, "/x", attr(b, "title"))
	assert.True(t, b.HasAttribute("hidden"))
	assert.Equal(t, []string{"x", "y"}, b.ClassList().Values())
	assert.Equal(t, "2px", b.Style().GetPropertyValue("font-size"))
	assert.Equal(t, "1px", b.Style().GetPropertyValue("--gap"))

	f.eval(t, a, "on = false, color = 'blue !important', path = '/y'")
	assert.Equal(t, "/y", attr(a, "href"))
	assert.False(t, a.ClassList().Contains("active"))
	assert.Equal(t, "blue", a.Style().GetPropertyValue("color"))
	assert.Equal(t, "important", a.Style().GetPropertyPriority("color"))
	assert.False(t, b.HasAttribute("hidden"))
	assert.Equal(t, []string{"x"}, b.ClassList().Values())
}

// should update loop variables in place and clone only new entries
func TestForInPlace(t *testing.T) {
	f := setup(t, `<ul vox="{items: [10, 20, 30]}"><li vox:for="v in items" vox:text="v"></li></ul>`)
	ul := f.query(t, "ul")
	lis := ul.Children()
	require.Len(t, lis, 3)
	assert.Equal(t, "102030", ul.TextContent())

	f.eval(t, ul, "items.splice(1, 2)")
	require.Len(t, ul.Children(), 1)
	assert.Same(t, lis[0], ul.Children()[0])
	assert.Equal(t, "10", ul.TextContent())

	f.eval(t, ul, "items = [99]")
	require.Len(t, ul.Children(), 1)
	assert.Same(t, lis[0], ul.Children()[0])
	assert.Equal(t, "99", ul.TextContent())

	f.eval(t, ul, "items.push(1, 2)")
	assert.Equal(t, "9912", ul.TextContent())
	assert.Empty(t, f.errors)
}

// should reconcile by position, so a reorder rewrites the variables
func TestForReorder(t *testing.T) {
	f := setup(t, `<ul vox="{items: ['a', 'b', 'c']}"><li vox:for="(v, k, i) in items" vox:text="i + ':' + v"></li></ul>`)
	ul := f.query(t, "ul")
	before := ul.Children()

	f.eval(t, ul, "items.reverse()")
	after := ul.Children()
	require.Len(t, after, 3)
	for i := range before {
		assert.Same(t, before[i], after[i])
	}
	assert.Equal(t, "0:c1:b2:a", ul.TextContent())
}

// should iterate objects, strings and counts
func TestForSources(t *testing.T) {
	f := setup(t, `<div vox="{o: {a: 1, b: 2}}">`+
		`<p vox:for="v, k in o" vox:text="k + v"></p>`+
		`<i vox:for="c in 'xy'" vox:text="c"></i>`+
		`<b vox:for="n in 3" vox:text="n"></b>`+
		`</div>`)
	text := func(sel string) string {
		all, err := f.doc.QuerySelectorAll(sel)
		require.NoError(t, err)
		var sb strings.Builder
		for _, n := range all {
			sb.WriteString(n.TextContent())
		}
		return sb.String()
	}
	assert.Equal(t, "a1b2", text("p"))
	assert.Equal(t, "xy", text("i"))
	assert.Equal(t, "123", text("b"))

	f.eval(t, f.query(t, "div"), "delete o.a, o.c = 3")
	assert.Equal(t, "b2c3", text("p"))
}

// should not let expressions reassign loop variables
func TestForLockedVars(t *testing.T) {
	f := setup(t, `<ul vox="{items: [1]}"><li vox:for="v in items" vox:text="v"></li></ul>`)
	li := f.query(t, "li")
	_, _ = f.inst.Eval(li, "v = 5")
	assert.Equal(t, "1", li.TextContent())
}

// should render a fresh clone on each true transition and ignore repeats
func TestIf(t *testing.T) {
	f := setup(t, `<div vox="{show: false}"><p vox:if="show">yes</p></div>`)
	div := f.query(t, "div")
	assert.Empty(t, div.Children())

	f.eval(t, div, "show = 1")
	first := div.Children()
	require.Len(t, first, 1)
	assert.Equal(t, "yes", div.TextContent())

	f.eval(t, div, "show = true")
	require.Len(t, div.Children(), 1)
	assert.Same(t, first[0], div.Children()[0])

	f.eval(t, div, "show = 0")
	assert.Empty(t, div.Children())
	f.eval(t, div, "show = false")
	assert.Empty(t, div.Children())

	f.eval(t, div, "show = true")
	require.Len(t, div.Children(), 1)
	assert.NotSame(t, first[0], div.Children()[0])
}

// should combine for and if on one element
func TestForIf(t *testing.T) {
	f := setup(t, `<ul vox="{items: [1, 2, 3, 4]}"><li vox:for="v in items" vox:if="v % 2 == 0" vox:text="v"></li></ul>`)
	ul := f.query(t, "ul")
	assert.Equal(t, "24", ul.TextContent())

	f.eval(t, ul, "items[0] = 6")
	assert.Equal(t, "624", ul.TextContent())
}

// should run handlers with the event and the element scope
func TestEvent(t *testing.T) {
	f := setup(t, `<div vox="{n: 0, last: ''}"><button vox:event:click="n++; last = event.type" vox:text="n"></button><i vox:onclick="n += 10"></i></div>`)
	button := f.query(t, "button")
	click(button)
	assert.Equal(t, "1", button.TextContent())
	assert.Equal(t, "click", f.eval(t, button, "last"))

	click(f.query(t, "i"))
	assert.Equal(t, "11", button.TextContent())
}

// should filter and shape events with modifiers
func TestEventModifiers(t *testing.T) {
	f := setup(t, `<div vox="{n: 0, keys: 0, out: 0}">`+
		`<form vox:event:submit.prevent="n++"><input vox:event:keydown.enter="keys++"></form>`+
		`<section vox:event:click.outside="out++"><span></span></section>`+
		`<p vox:event:ping.self="n += 100"><b></b></p>`+
		`</div>`)
	form := f.query(t, "form")
	ev := dom.NewEvent("submit", dom.EventInit{Bubbles: true, Cancelable: true})
	assert.False(t, form.DispatchEvent(ev))
	assert.True(t, ev.DefaultPrevented())

	input := f.query(t, "input")
	input.DispatchEvent(dom.NewEvent("keydown", dom.EventInit{Bubbles: true, Key: "a"}))
	input.DispatchEvent(dom.NewEvent("keydown", dom.EventInit{Bubbles: true, Key: "Enter"}))
	assert.Equal(t, 1.0, f.eval(t, input, "keys"))

	click(f.query(t, "span"))
	assert.Equal(t, 0.0, f.eval(t, form, "out"))
	click(form)
	assert.Equal(t, 1.0, f.eval(t, form, "out"))

	f.query(t, "b").DispatchEvent(dom.NewEvent("ping", dom.EventInit{Bubbles: true}))
	assert.Equal(t, 1.0, f.eval(t, form, "n"))
	f.query(t, "p").DispatchEvent(dom.NewEvent("ping", dom.EventInit{Bubbles: true}))
	assert.Equal(t, 101.0, f.eval(t, form, "n"))
}

// should delay debounced handlers until the events stop
func TestEventDebounce(t *testing.T) {
	f := setup(t, `<div vox="{n: 0}"><button vox:event:click.debounce:100="n++"></button></div>`)
	button := f.query(t, "button")
	click(button)
	f.clock.Advance(50 * time.Millisecond)
	click(button)
	click(button)
	f.clock.Advance(99 * time.Millisecond)
	assert.Equal(t, 0.0, f.eval(t, button, "n"))
	f.clock.Advance(time.Millisecond)
	assert.Equal(t, 1.0, f.eval(t, button, "n"))

	// a pending call is dropped on exit
	click(button)
	require.NoError(t, f.inst.Exit())
	assert.Zero(t, f.clock.Pending())
}

// should let one event through per throttle window
func TestEventThrottle(t *testing.T) {
	f := setup(t, `<div vox="{n: 0}"><button vox:event:click.throttle:100="n++"></button></div>`)
	button := f.query(t, "button")
	click(button)
	click(button)
	assert.Equal(t, 1.0, f.eval(t, button, "n"))

	f.clock.Advance(50 * time.Millisecond)
	click(button)
	assert.Equal(t, 1.0, f.eval(t, button, "n"))

	f.clock.Advance(50 * time.Millisecond)
	click(button)
	assert.Equal(t, 2.0, f.eval(t, button, "n"))
}

// should attach an object of handlers and listen on the window
func TestEventMapAndWindow(t *testing.T) {
	f := setup(t, `<div vox="{n: 0}"><p vox:event="{tap() { n++ }, hold() { n += 10 }}" vox:event:resize.window="n += 100"></p></div>`)
	p := f.query(t, "p")
	p.DispatchEvent(dom.NewEvent("tap", dom.EventInit{}))
	p.DispatchEvent(dom.NewEvent("hold", dom.EventInit{}))
	f.doc.Window().DispatchEvent(dom.NewEvent("resize", dom.EventInit{}))
	assert.Equal(t, 111.0, f.eval(t, p, "n"))
}

// should dispatch custom events with emit
func TestEmit(t *testing.T) {
	f := setup(t, `<div vox><button vox:event:click="emit('picked', 42)"></button></div>`)
	var detail any
	f.doc.AddEventListener("picked", func(ev *dom.Event) {
		detail = ev.Detail
	}, dom.ListenerOptions{})
	click(f.query(t, "button"))
	assert.Equal(t, 42.0, detail)
}

// should run component init and exit with the component scope as this
func TestComponentLifecycle(t *testing.T) {
	f := setup(t, `<div vox="{n: 0, init() { this.n = 5 }, exit() { emit('bye', this.n) }}"><span vox:text="n"></span></div>`)
	span := f.query(t, "span")
	assert.Equal(t, "5", span.TextContent())

	var got any
	f.doc.AddEventListener("bye", func(ev *dom.Event) {
		got = ev.Detail
	}, dom.ListenerOptions{})
	require.NoError(t, f.inst.Exit())
	assert.Equal(t, 5.0, got)
}

// should reject component data that is not an object
func TestComponentData(t *testing.T) {
	doc, err := dom.ParseString(`<div vox="[1, 2]"></div>`)
	require.NoError(t, err)
	inst, err := vox.New(doc)
	require.NoError(t, err)
	assert.ErrorContains(t, inst.Init(), "component data must be an object")
}

// should reach enclosing components and registered elements
func TestComponentScopes(t *testing.T) {
	f := setup(t, `<div id="outer" vox="{name: 'outer', n: 1}">`+
		`<div vox="{name: 'inner'}">`+
		`<span vox:el="'label'"></span>`+
		`<p vox:text="vox(1).name + '/' + vox(0).name + '/' + vox('#outer').name"></p>`+
		`<i vox:text="els.label.tagName + n"></i>`+
		`</div>`+
		`</div>`)
	assert.Equal(t, "outer/inner/outer", f.query(t, "p").TextContent())
	assert.Equal(t, "SPAN1", f.query(t, "i").TextContent())

	// inner writes fall through to the outer component
	f.eval(t, f.query(t, "i"), "n = 2")
	assert.Equal(t, "SPAN2", f.query(t, "i").TextContent())
	assert.Equal(t, 2.0, f.eval(t, f.query(t, "#outer"), "n"))
}

// should leave skipped subtrees untouched
func TestSkip(t *testing.T) {
	f := setup(t, `<div vox="{on: true}"><p vox:skip><span vox:text="'x'">orig</span></p><i vox:skip="!on" vox:text="'y'"></i></div>`)
	assert.Equal(t, "orig", f.query(t, "span").TextContent())
	assert.Equal(t, "y", f.query(t, "i").TextContent())
}

// should rerun init directives on refresh
func TestRefresh(t *testing.T) {
	f := setup(t, `<div vox="{n: 0}"><span vox:init="n++"></span></div>`)
	div := f.query(t, "div")
	assert.Equal(t, 1.0, f.eval(t, div, "n"))
	require.NoError(t, f.inst.Refresh())
	assert.Equal(t, 2.0, f.eval(t, div, "n"))
}

// should restore templates and stop bindings on exit
func TestExit(t *testing.T) {
	f := setup(t, `<ul vox="{items: [1, 2]}"><li vox:for="v in items" vox:text="v"></li><p vox:exit="emit('done')"></p></ul>`)
	ul := f.query(t, "ul")
	require.Len(t, ul.Children(), 3)

	done := 0
	f.doc.AddEventListener("done", func(*dom.Event) { done++ }, dom.ListenerOptions{})
	require.NoError(t, f.inst.Exit())
	assert.Equal(t, 1, done)
	assert.Len(t, ul.Children(), 2)
	li := ul.Children()[0]
	assert.Equal(t, "v in items", attr(li, "vox:for"))
	assert.Nil(t, f.inst.Scope(ul))

	// init again from the restored markup
	require.NoError(t, f.inst.Init())
	assert.Equal(t, "12", f.query(t, "ul").TextContent())
}

// should report errors from reruns to the error handler
func TestOnError(t *testing.T) {
	f := setup(t, `<div vox="{o: {a: {b: 'x'}}}"><span vox:text="o.a.b"></span></div>`)
	span := f.query(t, "span")
	assert.Equal(t, "x", span.TextContent())

	f.eval(t, span, "o.a = null")
	require.Len(t, f.errors, 1)
	assert.ErrorContains(t, f.errors[0], "cannot read properties")
}

// should fail init with the offending directive
func TestInitError(t *testing.T) {
	doc, err := dom.ParseString(`<div vox><span vox:text="1 +"></span></div>`)
	require.NoError(t, err)
	inst, err := vox.New(doc)
	require.NoError(t, err)
	err = inst.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `vox:text="1 +"`)
}

// should move focus while the expression holds
func TestFocus(t *testing.T) {
	f := setup(t, `<div vox="{on: false}"><button id="a"></button><input vox:focus="on"></div>`)
	a := f.query(t, "#a")
	input := f.query(t, "input")
	a.Focus()

	f.eval(t, input, "on = true")
	assert.Same(t, input, f.doc.ActiveElement())
	f.eval(t, input, "on = false")
	assert.Same(t, a, f.doc.ActiveElement())
}

// should rerun statements when what they read changes
func TestRun(t *testing.T) {
	f := setup(t, `<div vox="{n: 1, double: 0}"><p vox:run="double = n * 2" vox:text="double"></p></div>`)
	p := f.query(t, "p")
	assert.Equal(t, "2", p.TextContent())
	f.eval(t, p, "n = 4")
	assert.Equal(t, "8", p.TextContent())
}

// should expose element members to expressions
func TestElementMembers(t *testing.T) {
	f := setup(t, `<div vox><p id="p" class="a" data-user-id="7"><b></b></p></div>`)
	p := f.query(t, "#p")
	div := f.query(t, "div")
	assert.Equal(t, "7", f.eval(t, div, "el.querySelector('#p').dataset.userId"))
	assert.Equal(t, true, f.eval(t, div, "el.querySelector('b').closest('p').classList.contains('a')"))
	assert.Equal(t, 1.0, f.eval(t, div, "el.querySelectorAll('b').length"))

	f.eval(t, div, "el.querySelector('p').classList.toggle('z'), el.querySelector('p').style.color = 'red', el.querySelector('p').setAttribute('title', 't')")
	assert.True(t, p.ClassList().Contains("z"))
	assert.Equal(t, "red", p.Style().GetPropertyValue("color"))
	assert.Equal(t, "t", attr(p, "title"))
}

// should list directives in processing order
func TestDirectives(t *testing.T) {
	doc, err := dom.ParseString(`<p vox:text="a" vox:event:click.prevent.debounce:10="b" vox:if="c" vox:for="x in d"></p>`)
	require.NoError(t, err)
	p, err := doc.QuerySelector("p")
	require.NoError(t, err)
	dirs := vox.Directives(p)
	require.Len(t, dirs, 4)
	assert.Equal(t, "for", dirs[0].Name)
	assert.Equal(t, "if", dirs[1].Name)
	assert.Equal(t, "text", dirs[2].Name)
	assert.Equal(t, "event", dirs[3].Name)
	assert.Equal(t, "click", dirs[3].Key)
	assert.Equal(t, []string{"prevent", "debounce:10"}, dirs[3].Flags)
}

// should compile directive expressions with the parameters processing uses
func TestDirectiveCheck(t *testing.T) {
	doc, err := dom.ParseString(`<p vox:for="x, i in items" vox:onclick="event.preventDefault(); n++" vox:init="let a = 1; a++" vox:text="a +"></p><i vox:for="items"></i>`)
	require.NoError(t, err)
	p, err := doc.QuerySelector("p")
	require.NoError(t, err)
	for _, d := range vox.Directives(p) {
		if d.Name == "text" {
			assert.Error(t, d.Check())
			continue
		}
		assert.NoError(t, d.Check(), d.Attr)
	}
	i, err := doc.QuerySelector("i")
	require.NoError(t, err)
	assert.Error(t, vox.Directives(i)[0].Check())
}

// should resolve the event's own fields behind the scope's sources
func TestEventFields(t *testing.T) {
	f := setup(t, `<div vox="{seen: '', type: 'mine', hits: 0}">`+
		`<input vox:event:keydown="seen = key + ':' + type + ':' + shiftKey; hits++">`+
		`<a vox:event:click="preventDefault()"></a></div>`)
	input := f.query(t, "input")
	input.DispatchEvent(dom.NewEvent("keydown", dom.EventInit{Bubbles: true, Key: "Enter", ShiftKey: true}))
	assert.Equal(t, "Enter:mine:true", f.eval(t, input, "seen"))
	assert.Equal(t, 1.0, f.eval(t, input, "hits"))

	ev := dom.NewEvent("click", dom.EventInit{Bubbles: true, Cancelable: true})
	f.query(t, "a").DispatchEvent(ev)
	assert.True(t, ev.DefaultPrevented())
	assert.Empty(t, f.errors)
}

// should bind handlers written as arrows in an event map
func TestEventMapArrows(t *testing.T) {
	f := setup(t, `<div vox="{n: 0}"><button vox:event="{click: () => n++, dblclick: (e) => n += e.type.length}" vox:text="n"></button></div>`)
	button := f.query(t, "button")
	click(button)
	assert.Equal(t, "1", button.TextContent())
	button.DispatchEvent(dom.NewEvent("dblclick", dom.EventInit{}))
	assert.Equal(t, "9", button.TextContent())
	assert.Empty(t, f.errors)
}

// should log console output through the configured logger
func TestConsoleLogger(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	f := setup(t, `<div vox="{n: 2}"><p vox:init="console.warn('n is', n)"></p></div>`, vox.WithLogger(log))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "n is 2", hook.LastEntry().Message)
	assert.Equal(t, "console", hook.LastEntry().Data["source"])
	assert.Empty(t, f.errors)
}
