package reactivity

import (
	"reflect"

	mapset "github.com/deckarep/golang-set/v2"
)

type OnErrorFunc func(from *Effect, err error)

// opType is the kind of mutation reported to trigger.
type opType uint8

const (
	opAdd opType = iota
	opSet
	opDelete
	opClear
)

func (op opType) String() string {
	switch op {
	case opAdd:
		return "add"
	case opSet:
		return "set"
	case opDelete:
		return "delete"
	case opClear:
		return "clear"
	}
	return "unknown"
}

type sentinel string

const (
	// iterateKey is tracked by anything that enumerates a record or collection.
	iterateKey sentinel = "iterate"
	// mapKeyIterateKey is tracked by key-only iteration of a Map.
	mapKeyIterateKey sentinel = "map-key-iterate"
	lengthKey               = "length"
)

// maxMarkerBits is the deepest effect nesting that still uses the
// generation bitmarks; deeper runs fall back to a full dependency reset.
const maxMarkerBits = 30

// dep is the ordered set of effects subscribed to one (target, key) pair.
// w marks "tracked before this run", n marks "tracked during this run",
// one bit per nesting depth.
type dep struct {
	effects []*Effect
	members mapset.Set[*Effect]
	w, n    uint32
}

func newDep() *dep {
	return &dep{members: mapset.NewThreadUnsafeSet[*Effect]()}
}

func (d *dep) wasTracked(bit uint32) bool { return d.w&bit != 0 }
func (d *dep) newTracked(bit uint32) bool { return d.n&bit != 0 }

func (d *dep) add(e *Effect) {
	if d.members.Add(e) {
		d.effects = append(d.effects, e)
	}
}

func (d *dep) remove(e *Effect) {
	if !d.members.Contains(e) {
		return
	}
	d.members.Remove(e)
	for i, other := range d.effects {
		if other == e {
			d.effects = append(d.effects[:i], d.effects[i+1:]...)
			return
		}
	}
}

// keyDeps is the per-target key → dep table, kept in creation order so a
// clear triggers effects deterministically.
type keyDeps struct {
	keys []any
	deps map[any]*dep
}

func (k *keyDeps) get(key any) *dep {
	return k.deps[key]
}

func (k *keyDeps) getOrCreate(key any) *dep {
	d, ok := k.deps[key]
	if !ok {
		d = newDep()
		k.deps[key] = d
		k.keys = append(k.keys, key)
	}
	return d
}

// System owns the dependency graph: the target map, the proxy identity
// caches, the active effect and the scheduling queue. Everything that shares
// reactive state must share a System.
type System struct {
	targetMap map[any]*keyDeps
	proxies   [kindCount]map[any]*Proxy

	activeEffect *Effect
	shouldTrack  bool
	trackStack   []bool
	trackDepth   int
	trackOpBit   uint32

	batchDepth int
	flushing   bool
	queue      []*Effect
	queued     mapset.Set[*Effect]

	onError OnErrorFunc
}

func CreateReactiveSystem(onError OnErrorFunc) *System {
	s := &System{
		targetMap:   map[any]*keyDeps{},
		shouldTrack: true,
		trackOpBit:  1,
		queued:      mapset.NewThreadUnsafeSet[*Effect](),
		onError:     onError,
	}
	for i := range s.proxies {
		s.proxies[i] = map[any]*Proxy{}
	}
	return s
}

func (s *System) SetOnError(onError OnErrorFunc) {
	s.onError = onError
}

func (s *System) reportError(e *Effect, err error) {
	if s.onError != nil {
		s.onError(e, err)
		return
	}
	panic(err)
}

// ActiveEffect returns the effect currently collecting dependencies.
func (s *System) ActiveEffect() *Effect {
	return s.activeEffect
}

func (s *System) PauseTracking() {
	s.trackStack = append(s.trackStack, s.shouldTrack)
	s.shouldTrack = false
}

func (s *System) EnableTracking() {
	s.trackStack = append(s.trackStack, s.shouldTrack)
	s.shouldTrack = true
}

func (s *System) ResetTracking() {
	last := len(s.trackStack) - 1
	if last < 0 {
		s.shouldTrack = true
		return
	}
	s.shouldTrack = s.trackStack[last]
	s.trackStack = s.trackStack[:last]
}

// Untracked runs fn without recording dependencies for the active effect.
func (s *System) Untracked(fn func() error) error {
	s.PauseTracking()
	defer s.ResetTracking()
	return fn()
}

func (s *System) StartBatch() {
	s.batchDepth++
}

func (s *System) EndBatch() {
	s.batchDepth--
	if s.batchDepth == 0 {
		s.flush()
	}
}

// Batch defers every re-run triggered inside cb until cb returns.
func (s *System) Batch(cb func()) {
	s.StartBatch()
	defer s.EndBatch()
	cb()
}

// Track subscribes the active effect to (target, key).
func (s *System) Track(target, key any) {
	if !s.shouldTrack || s.activeEffect == nil {
		return
	}
	deps, ok := s.targetMap[target]
	if !ok {
		deps = &keyDeps{deps: map[any]*dep{}}
		s.targetMap[target] = deps
	}
	s.trackEffects(deps.getOrCreate(key))
}

func (s *System) trackEffects(d *dep) {
	e := s.activeEffect
	shouldTrack := false
	if s.trackDepth <= maxMarkerBits {
		if !d.newTracked(s.trackOpBit) {
			d.n |= s.trackOpBit
			shouldTrack = !d.wasTracked(s.trackOpBit)
		}
	} else {
		shouldTrack = !d.members.Contains(e)
	}
	if shouldTrack {
		d.add(e)
		e.deps = append(e.deps, d)
	}
}

// trigger collects the deps affected by a mutation of target and schedules
// their effects. newLength is only consulted when an array length changes.
func (s *System) trigger(target any, op opType, key any, newLength int) {
	deps, ok := s.targetMap[target]
	if !ok {
		return
	}
	_, isArray := target.(*Array)
	_, isMap := target.(*Map)

	var collected []*dep
	push := func(d *dep) {
		if d != nil {
			collected = append(collected, d)
		}
	}

	switch {
	case op == opClear:
		for _, k := range deps.keys {
			push(deps.get(k))
		}
	case isArray && key == lengthKey:
		for _, k := range deps.keys {
			if k == lengthKey {
				push(deps.get(k))
			} else if i, ok := k.(int); ok && i >= newLength {
				push(deps.get(k))
			}
		}
	default:
		if key != nil {
			push(deps.get(key))
		}
		switch op {
		case opAdd:
			if !isArray {
				push(deps.get(iterateKey))
				if isMap {
					push(deps.get(mapKeyIterateKey))
				}
			} else if _, ok := key.(int); ok {
				push(deps.get(lengthKey))
			}
		case opDelete:
			if !isArray {
				push(deps.get(iterateKey))
				if isMap {
					push(deps.get(mapKeyIterateKey))
				}
			}
		case opSet:
			if isMap {
				push(deps.get(iterateKey))
			}
		}
	}

	if len(collected) == 0 {
		return
	}

	seen := mapset.NewThreadUnsafeSet[*Effect]()
	for _, d := range collected {
		// copy: running an effect rewrites the dep it came from
		effects := append([]*Effect(nil), d.effects...)
		for _, e := range effects {
			if !seen.Add(e) {
				continue
			}
			if e != s.activeEffect || e.AllowRecurse {
				s.enqueue(e)
			}
		}
	}
	s.flush()
}

func (s *System) enqueue(e *Effect) {
	if s.queued.Add(e) {
		s.queue = append(s.queue, e)
	}
}

// flush drains the queue. Triggers raised while draining append to the queue
// so every direct dependent of one mutation runs before any cascade.
func (s *System) flush() {
	if s.batchDepth > 0 || s.flushing {
		return
	}
	s.flushing = true
	completed := false
	defer func() {
		if !completed {
			s.queue = nil
			s.queued.Clear()
		}
		s.flushing = false
	}()

	for len(s.queue) > 0 {
		e := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.queued.Remove(e)
		if !e.active {
			continue
		}
		var err error
		if e.Scheduler != nil {
			err = e.Scheduler()
		} else {
			err = e.Run()
		}
		if err != nil {
			s.reportError(e, err)
		}
	}
	completed = true
}

// Release forgets every dependency and proxy recorded for raw. Effects that
// still hold a reference to a released dep simply stop being notified.
func (s *System) Release(raw any) {
	raw = ToRaw(raw)
	delete(s.targetMap, raw)
	for _, cache := range s.proxies {
		if p, ok := cache[raw]; ok {
			delete(cache, raw)
			for _, other := range s.proxies {
				delete(other, p)
			}
		}
	}
}

// TrackedTargets is the number of targets with recorded dependencies.
func (s *System) TrackedTargets() int {
	return len(s.targetMap)
}

// SameValue compares by identity with NaN equal to itself.
func SameValue(a, b any) bool {
	if fa, ok := a.(float64); ok {
		fb, ok := b.(float64)
		return ok && (fa == fb || (fa != fa && fb != fb))
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	if ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Func, reflect.Map, reflect.Slice, reflect.Pointer, reflect.Chan:
		return va.Pointer() == vb.Pointer()
	}
	return false
}

func hasChanged(a, b any) bool {
	return !SameValue(a, b)
}
