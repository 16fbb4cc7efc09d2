package reactivity

import (
	"math"
	"strconv"
)

// container is the closed set of raw shapes a Proxy can observe: records,
// sequences, maps and sets.
type container interface {
	isContainer()
}

// Object is an insertion ordered string keyed record. Keys can be locked,
// after which writes through a Proxy are refused until the key is unlocked.
type Object struct {
	keys   []string
	values map[string]any
	locked map[string]bool
}

func (o *Object) isContainer() {}

func NewObject() *Object {
	return &Object{values: map[string]any{}}
}

// ObjectOf builds an Object from alternating key/value pairs.
func ObjectOf(kv ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1])
	}
	return o
}

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set writes the raw value and reports whether the key was added.
func (o *Object) Set(key string, value any) (added bool) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
		added = true
	}
	o.values[key] = value
	return added
}

func (o *Object) Delete(key string) bool {
	if _, ok := o.values[key]; !ok {
		return false
	}
	delete(o.values, key)
	delete(o.locked, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

func (o *Object) HasOwn(key string) bool {
	_, ok := o.values[key]
	return ok
}

func (o *Object) Keys() []string {
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

func (o *Object) Len() int {
	return len(o.keys)
}

func (o *Object) Lock(key string) {
	if o.locked == nil {
		o.locked = map[string]bool{}
	}
	o.locked[key] = true
}

func (o *Object) Unlock(key string) {
	delete(o.locked, key)
}

func (o *Object) Locked(key string) bool {
	return o.locked[key]
}

// Array is a growable sequence. Holes read as nil.
type Array struct {
	items []any
}

func (a *Array) isContainer() {}

func NewArray(items ...any) *Array {
	return &Array{items: append([]any(nil), items...)}
}

func (a *Array) Len() int {
	return len(a.items)
}

func (a *Array) At(i int) any {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

func (a *Array) Items() []any {
	items := make([]any, len(a.items))
	copy(items, a.items)
	return items
}

// maxGrowth bounds how far one write may extend an array past its end.
const maxGrowth = 1 << 16

func (a *Array) canGrowTo(n int) bool {
	return n <= len(a.items)+maxGrowth
}

func (a *Array) setAt(i int, v any) {
	if i >= len(a.items) {
		a.setLen(i + 1)
	}
	a.items[i] = v
}

func (a *Array) setLen(n int) {
	switch {
	case n < len(a.items):
		clear(a.items[n:])
		a.items = a.items[:n]
	case n > len(a.items):
		a.items = append(a.items, make([]any, n-len(a.items))...)
	}
}

// Map is an insertion ordered map keyed by comparable values. Numeric keys
// are normalised to float64 so 1 and 1.0 address the same entry. A weak map
// refuses iteration, mirroring hosts where weakly held keys are not
// enumerable.
type Map struct {
	keys   []any
	values map[any]any
	weak   bool
}

func (m *Map) isContainer() {}

func NewMap() *Map {
	return &Map{values: map[any]any{}}
}

func NewWeakMap() *Map {
	return &Map{values: map[any]any{}, weak: true}
}

func (m *Map) Weak() bool {
	return m.weak
}

func (m *Map) Get(key any) (any, bool) {
	v, ok := m.values[slotKey(key)]
	return v, ok
}

func (m *Map) Has(key any) bool {
	_, ok := m.values[slotKey(key)]
	return ok
}

func (m *Map) Set(key, value any) (added bool) {
	key = normalizeKey(key)
	slot := slotKey(key)
	if _, ok := m.values[slot]; !ok {
		m.keys = append(m.keys, key)
		added = true
	}
	m.values[slot] = value
	return added
}

func (m *Map) Delete(key any) bool {
	key = normalizeKey(key)
	slot := slotKey(key)
	if _, ok := m.values[slot]; !ok {
		return false
	}
	delete(m.values, slot)
	m.keys = removeKey(m.keys, key)
	return true
}

func (m *Map) Clear() {
	m.keys = nil
	clear(m.values)
}

func (m *Map) Len() int {
	return len(m.keys)
}

func (m *Map) Keys() []any {
	keys := make([]any, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Set is an insertion ordered set of comparable values.
type Set struct {
	items   []any
	members map[any]struct{}
	weak    bool
}

func (s *Set) isContainer() {}

func NewSet(items ...any) *Set {
	s := &Set{members: map[any]struct{}{}}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

func NewWeakSet() *Set {
	return &Set{members: map[any]struct{}{}, weak: true}
}

func (s *Set) Weak() bool {
	return s.weak
}

func (s *Set) Has(v any) bool {
	_, ok := s.members[slotKey(v)]
	return ok
}

func (s *Set) Add(v any) (added bool) {
	v = normalizeKey(v)
	slot := slotKey(v)
	if _, ok := s.members[slot]; ok {
		return false
	}
	s.members[slot] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func (s *Set) Delete(v any) bool {
	v = normalizeKey(v)
	slot := slotKey(v)
	if _, ok := s.members[slot]; !ok {
		return false
	}
	delete(s.members, slot)
	s.items = removeKey(s.items, v)
	return true
}

func (s *Set) Clear() {
	s.items = nil
	clear(s.members)
}

func (s *Set) Len() int {
	return len(s.items)
}

func (s *Set) Values() []any {
	items := make([]any, len(s.items))
	copy(items, s.items)
	return items
}

func removeKey(keys []any, key any) []any {
	for i, k := range keys {
		if SameValue(k, key) {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}

func normalizeKey(key any) any {
	switch k := key.(type) {
	case int:
		return float64(k)
	case int64:
		return float64(k)
	case int32:
		return float64(k)
	case float32:
		return normalizeKey(float64(k))
	case float64:
		if k == 0 {
			return 0.0
		}
	}
	return key
}

// nanKey stands in for NaN, which never equals itself as a Go map key.
type nanKey struct{}

// slotKey is the map key a normalised value is stored under.
func slotKey(key any) any {
	key = normalizeKey(key)
	if f, ok := key.(float64); ok && f != f {
		return nanKey{}
	}
	return key
}

// toIndex reports whether key addresses an array slot.
func toIndex(key any) (int, bool) {
	switch k := key.(type) {
	case int:
		return k, k >= 0
	case int64:
		return int(k), k >= 0
	case float64:
		if k >= 0 && k == math.Trunc(k) && k < math.MaxInt32 {
			return int(k), true
		}
	case string:
		i, err := strconv.Atoi(k)
		if err == nil && i >= 0 && strconv.Itoa(i) == k {
			return i, true
		}
	}
	return 0, false
}

// toPropertyKey renders any key as a record key.
func toPropertyKey(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case int:
		return strconv.Itoa(k)
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(k)
	case nil:
		return "null"
	}
	return ""
}

// IsContainer reports whether v is a raw container or a Proxy.
func IsContainer(v any) bool {
	switch v.(type) {
	case *Object, *Array, *Map, *Set, *Proxy:
		return true
	}
	return false
}
