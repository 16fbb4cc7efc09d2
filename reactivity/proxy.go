package reactivity

import "fmt"

// Kind selects how a Proxy intercepts reads and writes.
type Kind uint8

const (
	KindReactive Kind = iota
	KindReadonly
	KindShallowReadonly
	KindShallowReactive
	kindCount

	// KindRaw views a container without tracking or notifying. Raw views
	// are not cached.
	KindRaw = kindCount
)

func (k Kind) String() string {
	switch k {
	case KindReactive:
		return "reactive"
	case KindReadonly:
		return "readonly"
	case KindShallowReadonly:
		return "shallowReadonly"
	case KindShallowReactive:
		return "shallowReactive"
	case KindRaw:
		return "raw"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) readonly() bool { return k == KindReadonly || k == KindShallowReadonly }
func (k Kind) shallow() bool {
	return k == KindShallowReadonly || k == KindShallowReactive || k == KindRaw
}

// Observable is the access protocol shared by every Proxy regardless of the
// container it wraps. For maps and sets the keys are entry keys.
type Observable interface {
	Get(key any) any
	Set(key, value any) bool
	Has(key any) bool
	HasOwn(key any) bool
	Delete(key any) bool
	OwnKeys() []any
}

// Proxy observes one raw container. A readonly proxy over a reactive proxy
// keeps a reference to it in inner so reads still track.
type Proxy struct {
	sys    *System
	kind   Kind
	target container
	inner  *Proxy
}

var _ Observable = (*Proxy)(nil)

func (p *Proxy) Kind() Kind {
	return p.kind
}

func (p *Proxy) System() *System {
	return p.sys
}

// Target returns the raw container behind the proxy.
func (p *Proxy) Target() any {
	return p.target
}

func (p *Proxy) String() string {
	return fmt.Sprintf("%s(%T)", p.kind, p.target)
}

func (s *System) Reactive(v any) any {
	if p, ok := v.(*Proxy); ok && p.kind.readonly() {
		return v
	}
	return s.wrap(v, KindReactive)
}

func (s *System) ShallowReactive(v any) any {
	return s.wrap(v, KindShallowReactive)
}

func (s *System) Readonly(v any) any {
	return s.wrap(v, KindReadonly)
}

func (s *System) ShallowReadonly(v any) any {
	return s.wrap(v, KindShallowReadonly)
}

// ReactiveObject is Reactive for a record, typed for callers that need the
// Proxy API directly.
func (s *System) ReactiveObject(o *Object) *Proxy {
	return s.Reactive(o).(*Proxy)
}

func (s *System) ReadonlyObject(o *Object) *Proxy {
	return s.Readonly(o).(*Proxy)
}

func (s *System) wrap(v any, kind Kind) any {
	var (
		target container
		inner  *Proxy
		key    any
	)
	switch t := v.(type) {
	case *Proxy:
		if t.kind == KindRaw {
			target, key = t.target, t.target
			break
		}
		// only a readonly view over a mutable proxy creates something new
		if !(kind.readonly() && !t.kind.readonly()) {
			return v
		}
		inner, target, key = t, t.target, t
	case container:
		target, key = t, t
	default:
		return v
	}
	cache := s.proxies[kind]
	if p, ok := cache[key]; ok {
		return p
	}
	p := &Proxy{sys: s, kind: kind, target: target, inner: inner}
	cache[key] = p
	return p
}

// View gives untracked Proxy access to a raw container, the way plain
// objects behave before they are made reactive. Proxies are returned as is.
func View(v any) any {
	if t, ok := v.(container); ok {
		return &Proxy{kind: KindRaw, target: t}
	}
	return v
}

// ToRaw strips every proxy layer.
func ToRaw(v any) any {
	for {
		p, ok := v.(*Proxy)
		if !ok {
			return v
		}
		if p.inner != nil {
			v = p.inner
			continue
		}
		return p.target
	}
}

func IsProxy(v any) bool {
	_, ok := v.(*Proxy)
	return ok
}

// IsReactive is true for mutable proxies and for readonly views of them.
func IsReactive(v any) bool {
	p, ok := v.(*Proxy)
	if !ok || p.kind == KindRaw {
		return false
	}
	if p.kind.readonly() {
		return p.inner != nil
	}
	return true
}

func IsReadonly(v any) bool {
	p, ok := v.(*Proxy)
	return ok && p.kind.readonly()
}

func (p *Proxy) tracks() bool {
	return !p.kind.readonly() && p.kind != KindRaw
}

func (p *Proxy) notify(target any, op opType, key any, newLength int) {
	if p.kind == KindRaw {
		return
	}
	p.sys.trigger(target, op, key, newLength)
}

// result applies deep wrapping and ref unwrapping to a value read from the
// target. Refs stay boxed when read from an array by index.
func (p *Proxy) result(v any, arrayIndex bool) any {
	if p.kind.shallow() {
		return v
	}
	if r, ok := v.(*Ref); ok && !arrayIndex {
		return r.Value()
	}
	if IsContainer(v) {
		if p.kind.readonly() {
			return p.sys.Readonly(v)
		}
		return p.sys.Reactive(v)
	}
	return v
}

// incoming converts a value about to be stored.
func (p *Proxy) incoming(v any) any {
	if p.kind.shallow() || IsReadonly(v) {
		return v
	}
	return ToRaw(v)
}

func (p *Proxy) Get(key any) any {
	if p.inner != nil {
		return p.result(p.inner.Get(key), false)
	}
	switch t := p.target.(type) {
	case *Object:
		k := toPropertyKey(key)
		if p.tracks() {
			p.sys.Track(t, k)
		}
		v, _ := t.Get(k)
		return p.result(v, false)
	case *Array:
		if key == lengthKey {
			if p.tracks() {
				p.sys.Track(t, lengthKey)
			}
			return float64(t.Len())
		}
		i, ok := toIndex(key)
		if !ok {
			return nil
		}
		if p.tracks() {
			p.sys.Track(t, i)
		}
		return p.result(t.At(i), true)
	case *Map:
		return p.mapGet(t, key)
	case *Set:
		if key == "size" {
			return float64(p.Size())
		}
		return nil
	}
	return nil
}

// Set writes through the proxy. Readonly proxies accept and drop the write.
// A locked record key refuses the write and reports false, as does an
// array write growing the array by more than 65536 slots.
func (p *Proxy) Set(key, value any) bool {
	if p.kind.readonly() {
		return true
	}
	switch t := p.target.(type) {
	case *Object:
		k := toPropertyKey(key)
		if t.Locked(k) {
			return false
		}
		old, had := t.Get(k)
		value = p.incoming(value)
		if !p.kind.shallow() {
			if r, ok := old.(*Ref); ok {
				if _, isRef := value.(*Ref); !isRef {
					r.Set(value)
					return true
				}
			}
		}
		t.Set(k, value)
		if !had {
			p.notify(t, opAdd, k, 0)
		} else if hasChanged(old, value) {
			p.notify(t, opSet, k, 0)
		}
		return true
	case *Array:
		if key == lengthKey {
			n, ok := toIndex(value)
			if !ok || !t.canGrowTo(n) {
				return false
			}
			p.setLength(t, n)
			return true
		}
		i, ok := toIndex(key)
		if !ok || !t.canGrowTo(i+1) {
			return false
		}
		p.setIndex(t, i, p.incoming(value))
		return true
	case *Map:
		p.mapSet(t, key, value)
		return true
	case *Set:
		p.Add(key)
		return true
	}
	return false
}

func (p *Proxy) setIndex(t *Array, i int, value any) {
	had := i < t.Len()
	old := t.At(i)
	t.setAt(i, value)
	if !had {
		p.notify(t, opAdd, i, 0)
	} else if hasChanged(old, value) {
		p.notify(t, opSet, i, 0)
	}
}

func (p *Proxy) setLength(t *Array, n int) {
	if n == t.Len() {
		return
	}
	t.setLen(n)
	p.notify(t, opSet, lengthKey, n)
}

func (p *Proxy) Has(key any) bool {
	if p.inner != nil {
		return p.inner.Has(key)
	}
	switch t := p.target.(type) {
	case *Object:
		k := toPropertyKey(key)
		if p.tracks() {
			p.sys.Track(t, k)
		}
		return t.HasOwn(k)
	case *Array:
		if key == lengthKey {
			return true
		}
		i, ok := toIndex(key)
		if !ok {
			return false
		}
		if p.tracks() {
			p.sys.Track(t, i)
		}
		return i < t.Len()
	case *Map:
		k := ToRaw(key)
		if p.tracks() {
			p.sys.Track(t, slotKey(k))
		}
		return t.Has(k)
	case *Set:
		k := ToRaw(key)
		if p.tracks() {
			p.sys.Track(t, slotKey(k))
		}
		return t.Has(k)
	}
	return false
}

// HasOwn reports key ownership without recording a dependency.
func (p *Proxy) HasOwn(key any) bool {
	switch t := p.target.(type) {
	case *Object:
		return t.HasOwn(toPropertyKey(key))
	case *Array:
		if key == lengthKey {
			return true
		}
		i, ok := toIndex(key)
		return ok && i < t.Len()
	case *Map:
		return t.Has(ToRaw(key))
	case *Set:
		return t.Has(ToRaw(key))
	}
	return false
}

func (p *Proxy) Delete(key any) bool {
	if p.kind.readonly() {
		return true
	}
	switch t := p.target.(type) {
	case *Object:
		k := toPropertyKey(key)
		if t.Locked(k) {
			return false
		}
		if t.Delete(k) {
			p.notify(t, opDelete, k, 0)
		}
		return true
	case *Array:
		i, ok := toIndex(key)
		if !ok || i >= t.Len() {
			return true
		}
		old := t.At(i)
		t.items[i] = nil
		if old != nil {
			p.notify(t, opDelete, i, 0)
		}
		return true
	case *Map:
		k := ToRaw(key)
		if t.Delete(k) {
			p.notify(t, opDelete, slotKey(k), 0)
		}
		return true
	case *Set:
		k := ToRaw(key)
		if t.Delete(k) {
			p.notify(t, opDelete, slotKey(k), 0)
		}
		return true
	}
	return false
}

// OwnKeys enumerates the target and subscribes to its structure.
func (p *Proxy) OwnKeys() []any {
	if p.inner != nil {
		keys := p.inner.OwnKeys()
		for i, k := range keys {
			keys[i] = p.result(k, false)
		}
		return keys
	}
	switch t := p.target.(type) {
	case *Object:
		if p.tracks() {
			p.sys.Track(t, iterateKey)
		}
		keys := make([]any, 0, t.Len())
		for _, k := range t.keys {
			keys = append(keys, k)
		}
		return keys
	case *Array:
		if p.tracks() {
			p.sys.Track(t, lengthKey)
		}
		keys := make([]any, t.Len())
		for i := range keys {
			keys[i] = i
		}
		return keys
	case *Map:
		return p.Keys()
	case *Set:
		return p.Values()
	}
	return nil
}

// Len is the tracked size of any container.
func (p *Proxy) Len() int {
	if p.inner != nil {
		return p.inner.Len()
	}
	switch t := p.target.(type) {
	case *Object:
		if p.tracks() {
			p.sys.Track(t, iterateKey)
		}
		return t.Len()
	case *Array:
		if p.tracks() {
			p.sys.Track(t, lengthKey)
		}
		return t.Len()
	}
	return p.Size()
}

// IsArray, IsObject, IsMap and IsSet report the wrapped shape.
func (p *Proxy) IsArray() bool {
	_, ok := p.target.(*Array)
	return ok
}

func (p *Proxy) IsObject() bool {
	_, ok := p.target.(*Object)
	return ok
}

func (p *Proxy) IsMap() bool {
	_, ok := p.target.(*Map)
	return ok
}

func (p *Proxy) IsSet() bool {
	_, ok := p.target.(*Set)
	return ok
}
