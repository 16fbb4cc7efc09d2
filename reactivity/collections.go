package reactivity

// Instrumentation for Map and Set proxies. Keys are always stored in raw form
// so a reactive key finds the entry written with its raw counterpart and the
// other way round.

func (p *Proxy) mapGet(t *Map, key any) any {
	k := ToRaw(key)
	if p.tracks() {
		p.sys.Track(t, slotKey(k))
	}
	v, _ := t.Get(k)
	return p.result(v, false)
}

func (p *Proxy) mapSet(t *Map, key, value any) {
	k := ToRaw(key)
	value = p.incoming(value)
	old, had := t.Get(k)
	t.Set(k, value)
	if !had {
		p.notify(t, opAdd, slotKey(k), 0)
	} else if hasChanged(old, value) {
		p.notify(t, opSet, slotKey(k), 0)
	}
}

// Add inserts a value into a Set proxy.
func (p *Proxy) Add(value any) {
	if p.kind.readonly() {
		return
	}
	t, ok := p.target.(*Set)
	if !ok {
		return
	}
	v := ToRaw(value)
	if t.Add(v) {
		p.notify(t, opAdd, slotKey(v), 0)
	}
}

// Clear empties a Map or Set proxy, notifying every dependent of it.
func (p *Proxy) Clear() {
	if p.kind.readonly() {
		return
	}
	switch t := p.target.(type) {
	case *Map:
		if t.Len() > 0 {
			t.Clear()
			p.notify(t, opClear, nil, 0)
		}
	case *Set:
		if t.Len() > 0 {
			t.Clear()
			p.notify(t, opClear, nil, 0)
		}
	}
}

// Size is the tracked entry count of a Map or Set. Weak collections report 0.
func (p *Proxy) Size() int {
	if p.inner != nil {
		return p.inner.Size()
	}
	switch t := p.target.(type) {
	case *Map:
		if t.weak {
			return 0
		}
		if p.tracks() {
			p.sys.Track(t, iterateKey)
		}
		return t.Len()
	case *Set:
		if t.weak {
			return 0
		}
		if p.tracks() {
			p.sys.Track(t, iterateKey)
		}
		return t.Len()
	}
	return 0
}

// Keys iterates map keys (tracking only key changes) or set values.
func (p *Proxy) Keys() []any {
	if p.inner != nil {
		return p.wrapAll(p.inner.Keys())
	}
	switch t := p.target.(type) {
	case *Map:
		if t.weak {
			return nil
		}
		if p.tracks() {
			p.sys.Track(t, mapKeyIterateKey)
		}
		return p.wrapAll(t.Keys())
	case *Set:
		return p.Values()
	}
	return nil
}

func (p *Proxy) Values() []any {
	if p.inner != nil {
		return p.wrapAll(p.inner.Values())
	}
	switch t := p.target.(type) {
	case *Map:
		if t.weak {
			return nil
		}
		if p.tracks() {
			p.sys.Track(t, iterateKey)
		}
		values := make([]any, 0, t.Len())
		for _, k := range t.keys {
			values = append(values, p.result(t.values[k], false))
		}
		return values
	case *Set:
		if t.weak {
			return nil
		}
		if p.tracks() {
			p.sys.Track(t, iterateKey)
		}
		return p.wrapAll(t.Values())
	case *Array:
		return p.Items()
	}
	return nil
}

// Entries returns key/value pairs; for sets both halves are the value.
func (p *Proxy) Entries() [][2]any {
	if p.inner != nil {
		entries := p.inner.Entries()
		for i := range entries {
			entries[i] = [2]any{p.result(entries[i][0], false), p.result(entries[i][1], false)}
		}
		return entries
	}
	switch t := p.target.(type) {
	case *Map:
		if t.weak {
			return nil
		}
		if p.tracks() {
			p.sys.Track(t, iterateKey)
		}
		entries := make([][2]any, 0, t.Len())
		for _, k := range t.keys {
			entries = append(entries, [2]any{p.result(k, false), p.result(t.values[k], false)})
		}
		return entries
	case *Set:
		values := p.Values()
		entries := make([][2]any, len(values))
		for i, v := range values {
			entries[i] = [2]any{v, v}
		}
		return entries
	case *Object:
		keys := p.OwnKeys()
		entries := make([][2]any, len(keys))
		for i, k := range keys {
			entries[i] = [2]any{k, p.Get(k)}
		}
		return entries
	case *Array:
		items := p.Items()
		entries := make([][2]any, len(items))
		for i, v := range items {
			entries[i] = [2]any{i, v}
		}
		return entries
	}
	return nil
}

// ForEach visits every entry, stopping at the first error.
func (p *Proxy) ForEach(fn func(value, key any) error) error {
	for _, entry := range p.Entries() {
		if err := fn(entry[1], entry[0]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Proxy) wrapAll(values []any) []any {
	for i, v := range values {
		values[i] = p.result(v, false)
	}
	return values
}
