package reactivity

// Ref is a reactive box around a single value. Records and maps read through
// a Proxy unwrap refs transparently; arrays read by index do not.
type Ref struct {
	sys   *System
	value any
}

func (s *System) Ref(v any) *Ref {
	if r, ok := v.(*Ref); ok {
		return r
	}
	return &Ref{sys: s, value: ToRaw(v)}
}

func (r *Ref) Value() any {
	r.sys.Track(r, "value")
	if IsContainer(r.value) {
		return r.sys.Reactive(r.value)
	}
	return r.value
}

func (r *Ref) Set(v any) {
	v = ToRaw(v)
	if !hasChanged(r.value, v) {
		return
	}
	r.value = v
	r.sys.trigger(r, opSet, "value", 0)
}

func IsRef(v any) bool {
	_, ok := v.(*Ref)
	return ok
}

// Unref returns the boxed value of a Ref and v otherwise.
func Unref(v any) any {
	if r, ok := v.(*Ref); ok {
		return r.Value()
	}
	return v
}
