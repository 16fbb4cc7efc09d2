package dom_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/delaneyj/vox/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, body string) *dom.Document {
	t.Helper()
	d, err := dom.ParseString("<!DOCTYPE html><html><head></head><body>"+body+"</body></html>", dom.WithClock(dom.NewManualClock(time.Unix(0, 0))))
	require.NoError(t, err)
	return d
}

func query(t *testing.T, n *dom.Node, sel string) *dom.Node {
	t.Helper()
	found, err := n.QuerySelector(sel)
	require.NoError(t, err)
	require.NotNil(t, found, sel)
	return found
}

// should parse and render a document round trip
func TestParseRender(t *testing.T) {
	d := parse(t, `<div id="a" class="x y"><p>hi</p><!--note--></div>`)
	assert.Equal(t, `<div id="a" class="x y"><p>hi</p><!--note--></div>`, d.Body().InnerHTML())

	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))
	assert.Equal(t, `<!DOCTYPE html><html><head></head><body><div id="a" class="x y"><p>hi</p><!--note--></div></body></html>`, buf.String())

	div := d.GetElementByID("a")
	require.NotNil(t, div)
	assert.Equal(t, "hi", div.TextContent())
	assert.Equal(t, `<p>hi</p>`, div.Children()[0].OuterHTML())
}

// should replace children from an HTML fragment
func TestSetInnerHTML(t *testing.T) {
	d := parse(t, `<ul></ul>`)
	ul := query(t, d.Node, "ul")
	require.NoError(t, ul.SetInnerHTML(`<li>a</li><li>b</li>`))
	assert.Len(t, ul.Children(), 2)
	assert.Equal(t, "ab", ul.TextContent())

	ul.SetTextContent("<none>")
	assert.Equal(t, "&lt;none&gt;", ul.InnerHTML())
}

// should match selectors against the live tree
func TestSelectors(t *testing.T) {
	d := parse(t, `<section vox><p class="a">1</p><div><p class="a b">2</p></div></section>`)
	ps, err := d.QuerySelectorAll("p.a")
	require.NoError(t, err)
	assert.Len(t, ps, 2)

	section := query(t, d.Node, "[vox]")
	inner := ps[1]
	ok, err := inner.Matches(".b")
	require.NoError(t, err)
	assert.True(t, ok)

	c, err := inner.Closest("[vox]")
	require.NoError(t, err)
	assert.Same(t, section, c)

	// mutations are visible to the next query
	ps[0].ClassList().Remove("a")
	ps, err = d.QuerySelectorAll("p.a")
	require.NoError(t, err)
	assert.Len(t, ps, 1)

	_, err = d.QuerySelectorAll("p[")
	assert.Error(t, err)
}

// should query detached subtrees
func TestSelectorsDetached(t *testing.T) {
	d := dom.NewDocument()
	div := d.CreateElement("div")
	span := d.CreateElement("span")
	span.SetAttribute("vox:text", "x")
	div.AppendChild(span)
	found, err := div.QuerySelector("span")
	require.NoError(t, err)
	assert.Same(t, span, found)
}

// should edit classes as a token set
func TestClassList(t *testing.T) {
	d := dom.NewDocument()
	el := d.CreateElement("div")
	cl := el.ClassList()
	cl.Add("a", "b", "a")
	assert.Equal(t, []string{"a", "b"}, cl.Values())
	assert.False(t, cl.Toggle("a"))
	assert.True(t, cl.Toggle("c"))
	assert.True(t, cl.Toggle("c", true))
	assert.Equal(t, `<div class="b c"></div>`, el.OuterHTML())
	cl.Remove("b", "c")
	v, ok := el.GetAttribute("class")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

// should keep the style attribute and declarations in sync
func TestStyle(t *testing.T) {
	d := dom.NewDocument()
	el := d.CreateElement("div")
	el.SetAttribute("style", "margin: 0; COLOR: blue !important")
	s := el.Style()
	assert.Equal(t, "blue", s.GetPropertyValue("color"))
	assert.Equal(t, "important", s.GetPropertyPriority("color"))

	s.SetProperty("--primary", "red", "")
	s.RemoveProperty("margin")
	v, _ := el.GetAttribute("style")
	assert.Equal(t, "color: blue !important; --primary: red;", v)

	el.SetAttribute("style", "top: 1px")
	assert.Equal(t, []string{"top"}, s.Names())
}

// should reflect properties to attributes
func TestProperties(t *testing.T) {
	d := parse(t, `<input value="a" tabindex="3"><div></div>`)
	input := query(t, d.Node, "input")
	div := query(t, d.Node, "div")

	v, ok := input.GetProperty("value")
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	require.NoError(t, input.SetProperty("value", "b"))
	v, _ = input.GetProperty("value")
	assert.Equal(t, "b", v)
	attr, _ := input.GetAttribute("value")
	assert.Equal(t, "a", attr)

	v, _ = input.GetProperty("tabIndex")
	assert.Equal(t, 3.0, v)
	v, _ = div.GetProperty("tabIndex")
	assert.Equal(t, -1.0, v)

	require.NoError(t, div.SetProperty("hidden", true))
	assert.True(t, div.HasAttribute("hidden"))
	require.NoError(t, div.SetProperty("hidden", false))
	assert.False(t, div.HasAttribute("hidden"))

	require.NoError(t, div.SetProperty("className", "x"))
	assert.True(t, div.ClassList().Contains("x"))

	require.NoError(t, div.SetProperty("textContent", 42.0))
	assert.Equal(t, "42", div.TextContent())

	assert.True(t, div.HasProperty("innerHTML"))
	assert.False(t, div.HasProperty("bogus"))
	require.NoError(t, div.SetProperty("bogus", 1))
	assert.True(t, div.HasProperty("bogus"))
}

// should capture top down and bubble bottom up
func TestEventPropagation(t *testing.T) {
	d := parse(t, `<div><button></button></div>`)
	div := query(t, d.Node, "div")
	button := query(t, d.Node, "button")

	var order []string
	d.Window().AddEventListener("click", func(*dom.Event) { order = append(order, "window-capture") }, dom.ListenerOptions{Capture: true})
	div.AddEventListener("click", func(*dom.Event) { order = append(order, "div-capture") }, dom.ListenerOptions{Capture: true})
	div.AddEventListener("click", func(*dom.Event) { order = append(order, "div-bubble") }, dom.ListenerOptions{})
	button.AddEventListener("click", func(*dom.Event) { order = append(order, "target") }, dom.ListenerOptions{})
	d.Window().AddEventListener("click", func(*dom.Event) { order = append(order, "window-bubble") }, dom.ListenerOptions{})

	button.DispatchEvent(dom.NewEvent("click", dom.EventInit{Bubbles: true}))
	assert.Equal(t, []string{"window-capture", "div-capture", "target", "div-bubble", "window-bubble"}, order)

	order = nil
	button.DispatchEvent(dom.NewEvent("click", dom.EventInit{}))
	assert.Equal(t, []string{"window-capture", "div-capture", "target"}, order)
}

// should honour once, stop and passive listeners
func TestEventOptions(t *testing.T) {
	d := parse(t, `<div><button></button></div>`)
	div := query(t, d.Node, "div")
	button := query(t, d.Node, "button")

	once, bubbled := 0, 0
	button.AddEventListener("x", func(*dom.Event) { once++ }, dom.ListenerOptions{Once: true})
	div.AddEventListener("x", func(*dom.Event) { bubbled++ }, dom.ListenerOptions{})
	remove := button.AddEventListener("x", func(e *dom.Event) { e.StopPropagation() }, dom.ListenerOptions{})

	button.DispatchEvent(dom.NewEvent("x", dom.EventInit{Bubbles: true}))
	button.DispatchEvent(dom.NewEvent("x", dom.EventInit{Bubbles: true}))
	assert.Equal(t, 1, once)
	assert.Equal(t, 0, bubbled)

	remove()
	button.DispatchEvent(dom.NewEvent("x", dom.EventInit{Bubbles: true}))
	assert.Equal(t, 1, bubbled)

	button.AddEventListener("y", func(e *dom.Event) { e.PreventDefault() }, dom.ListenerOptions{Passive: true})
	assert.True(t, button.DispatchEvent(dom.NewEvent("y", dom.EventInit{Cancelable: true})))
	button.AddEventListener("y", func(e *dom.Event) { e.PreventDefault() }, dom.ListenerOptions{})
	assert.False(t, button.DispatchEvent(dom.NewEvent("y", dom.EventInit{Cancelable: true})))
	assert.Equal(t, 2, button.ListenerCount("y"))
	assert.Equal(t, 0, button.ListenerCount("x"))
}

// should move focus and fire blur on the previous element
func TestFocus(t *testing.T) {
	d := parse(t, `<input id="a"><input id="b">`)
	a, b := d.GetElementByID("a"), d.GetElementByID("b")
	assert.Same(t, d.Body(), d.ActiveElement())

	blurred := 0
	a.AddEventListener("blur", func(*dom.Event) { blurred++ }, dom.ListenerOptions{})
	a.Focus()
	assert.Same(t, a, d.ActiveElement())
	b.Focus()
	assert.Same(t, b, d.ActiveElement())
	assert.Equal(t, 1, blurred)

	b.Remove()
	assert.Same(t, d.Body(), d.ActiveElement())
}

// should clone attributes and children without listeners or values
func TestClone(t *testing.T) {
	d := parse(t, `<div a="1"><span>t</span></div>`)
	div := query(t, d.Node, "div")
	div.SetValue("k", 1)
	calls := 0
	div.AddEventListener("x", func(*dom.Event) { calls++ }, dom.ListenerOptions{})

	c := div.Clone(true)
	assert.Nil(t, c.Parent())
	assert.Equal(t, div.OuterHTML(), c.OuterHTML())
	assert.Nil(t, c.Value("k"))
	c.DispatchEvent(dom.NewEvent("x", dom.EventInit{}))
	assert.Equal(t, 0, calls)

	shallow := div.Clone(false)
	assert.Empty(t, shallow.ChildNodes())
}

// should fire manual timers in deadline order
func TestManualClock(t *testing.T) {
	c := dom.NewManualClock(time.Unix(0, 0))
	var fired []string
	c.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "100") })
	c.AfterFunc(50*time.Millisecond, func() {
		fired = append(fired, "50")
		c.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "60") })
	})
	stopped := c.AfterFunc(70*time.Millisecond, func() { fired = append(fired, "70") })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	c.Advance(80 * time.Millisecond)
	assert.Equal(t, []string{"50", "60"}, fired)
	assert.Equal(t, 1, c.Pending())
	c.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"50", "60", "100"}, fired)
	assert.Equal(t, time.Unix(0, 0).Add(100*time.Millisecond), c.Now())
}

// should run posted tasks on the loop goroutine
func TestLoop(t *testing.T) {
	l := dom.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	n := 0
	require.NoError(t, l.Do(ctx, func() { n++ }))
	require.NoError(t, l.Do(ctx, func() { n++ }))
	assert.Equal(t, 2, n)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

// should deliver system timers through the loop
func TestSystemClock(t *testing.T) {
	l := dom.NewLoop()
	d := dom.NewDocument(dom.WithLoop(l))
	fired := make(chan struct{})
	d.SetTimeout(time.Millisecond, func() { close(fired) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go l.Run(ctx)
	select {
	case <-fired:
	case <-ctx.Done():
		t.Fatal("timer did not fire")
	}
}
