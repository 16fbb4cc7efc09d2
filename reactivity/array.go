package reactivity

// Instrumented array methods. Mutators run with tracking paused: they read
// length internally and must not subscribe the calling effect to it. They
// also batch their writes so dependents run once per call.

func (p *Proxy) array() (*Array, bool) {
	t, ok := p.target.(*Array)
	return t, ok && !p.kind.readonly()
}

func (p *Proxy) mutate(fn func(t *Array)) {
	t, ok := p.array()
	if !ok {
		return
	}
	if p.kind == KindRaw {
		fn(t)
		return
	}
	p.sys.PauseTracking()
	p.sys.StartBatch()
	defer func() {
		p.sys.EndBatch()
		p.sys.ResetTracking()
	}()
	fn(t)
}

// rewrite replaces the contents slot by slot so only changed indices and the
// length notify.
func (p *Proxy) rewrite(t *Array, next []any) {
	for i, v := range next {
		p.setIndex(t, i, v)
	}
	if len(next) < t.Len() {
		p.setLength(t, len(next))
	}
}

func (p *Proxy) Push(items ...any) int {
	n := 0
	p.mutate(func(t *Array) {
		for _, item := range items {
			p.setIndex(t, t.Len(), p.incoming(item))
		}
		n = t.Len()
	})
	return n
}

func (p *Proxy) Pop() any {
	var last any
	p.mutate(func(t *Array) {
		if t.Len() == 0 {
			return
		}
		last = t.At(t.Len() - 1)
		p.setLength(t, t.Len()-1)
	})
	return p.result(last, true)
}

func (p *Proxy) Shift() any {
	var first any
	p.mutate(func(t *Array) {
		if t.Len() == 0 {
			return
		}
		first = t.At(0)
		p.rewrite(t, t.Items()[1:])
	})
	return p.result(first, true)
}

func (p *Proxy) Unshift(items ...any) int {
	n := 0
	p.mutate(func(t *Array) {
		next := make([]any, 0, t.Len()+len(items))
		for _, item := range items {
			next = append(next, p.incoming(item))
		}
		p.rewrite(t, append(next, t.items...))
		n = t.Len()
	})
	return n
}

// Splice removes deleteCount items at start, inserts items there and returns
// the removed items. Negative start counts from the end.
func (p *Proxy) Splice(start, deleteCount int, items ...any) []any {
	var removed []any
	p.mutate(func(t *Array) {
		n := t.Len()
		if start < 0 {
			start = max(n+start, 0)
		}
		start = min(start, n)
		deleteCount = max(min(deleteCount, n-start), 0)

		current := t.Items()
		removed = append(removed, current[start:start+deleteCount]...)
		next := make([]any, 0, n-deleteCount+len(items))
		next = append(next, current[:start]...)
		for _, item := range items {
			next = append(next, p.incoming(item))
		}
		next = append(next, current[start+deleteCount:]...)
		p.rewrite(t, next)
	})
	for i, v := range removed {
		removed[i] = p.result(v, true)
	}
	return removed
}

// Items is a tracked snapshot of the array, elements wrapped.
func (p *Proxy) Items() []any {
	if p.inner != nil {
		return p.wrapAll(p.inner.Items())
	}
	t, ok := p.target.(*Array)
	if !ok {
		return nil
	}
	items := make([]any, t.Len())
	if p.tracks() {
		p.sys.Track(t, lengthKey)
	}
	for i := range items {
		if p.tracks() {
			p.sys.Track(t, i)
		}
		items[i] = p.result(t.At(i), true)
	}
	return items
}

func (p *Proxy) Includes(v any) bool {
	return p.search(v, func(items []any, v any) int {
		for i, item := range items {
			if SameValue(item, v) {
				return i
			}
		}
		return -1
	}) >= 0
}

func (p *Proxy) IndexOf(v any) int {
	return p.search(v, func(items []any, v any) int {
		for i, item := range items {
			if strictEqual(item, v) {
				return i
			}
		}
		return -1
	})
}

func (p *Proxy) LastIndexOf(v any) int {
	return p.search(v, func(items []any, v any) int {
		for i := len(items) - 1; i >= 0; i-- {
			if strictEqual(items[i], v) {
				return i
			}
		}
		return -1
	})
}

// search tracks every slot, tries the argument as given and then its raw
// form: stored elements are raw and never equal their proxies.
func (p *Proxy) search(v any, find func(items []any, v any) int) int {
	var t *Array
	switch {
	case p.inner != nil:
		t, _ = p.inner.target.(*Array)
		p.inner.Items()
	default:
		t, _ = p.target.(*Array)
		if t != nil && p.tracks() {
			p.sys.Track(t, lengthKey)
			for i := 0; i < t.Len(); i++ {
				p.sys.Track(t, i)
			}
		}
	}
	if t == nil {
		return -1
	}
	if i := find(t.items, v); i >= 0 {
		return i
	}
	if raw := ToRaw(v); !SameValue(raw, v) {
		return find(t.items, raw)
	}
	return -1
}

func strictEqual(a, b any) bool {
	if fa, ok := a.(float64); ok {
		fb, ok := b.(float64)
		return ok && fa == fb
	}
	return SameValue(a, b)
}
