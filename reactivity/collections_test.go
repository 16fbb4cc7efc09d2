package reactivity_test

import (
	"math"
	"testing"

	"github.com/delaneyj/vox/reactivity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// should notify length and iteration dependents once per push
func TestArrayPushTriggersOnce(t *testing.T) {
	rs := newSystem(t)
	arr := rs.Reactive(reactivity.NewArray(1.0, 2.0)).(*reactivity.Proxy)

	lengthRuns, iterRuns := 0, 0
	_, err := rs.Effect(func() error {
		lengthRuns++
		arr.Get("length")
		return nil
	})
	require.NoError(t, err)
	_, err = rs.Effect(func() error {
		iterRuns++
		arr.OwnKeys()
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 3, arr.Push(3.0))
	assert.Equal(t, 2, lengthRuns)
	assert.Equal(t, 2, iterRuns)

	arr.Push(4.0, 5.0)
	assert.Equal(t, 3, lengthRuns)
	assert.Equal(t, 3, iterRuns)
}

// should not subscribe the calling effect to length while pushing
func TestArrayPushInsideEffectDoesNotSelfSubscribe(t *testing.T) {
	rs := newSystem(t)
	arr := rs.Reactive(reactivity.NewArray()).(*reactivity.Proxy)
	other := rs.Reactive(reactivity.NewArray()).(*reactivity.Proxy)

	runs := 0
	_, err := rs.Effect(func() error {
		runs++
		arr.Push(1.0)
		return nil
	})
	require.NoError(t, err)

	// a second effect pushing must not ping-pong with the first
	_, err = rs.Effect(func() error {
		arr.Push(2.0)
		other.Push(1.0)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 2, arr.Len())
}

// should notify index dependents past the new length on truncation
func TestArrayLengthTruncation(t *testing.T) {
	rs := newSystem(t)
	arr := rs.Reactive(reactivity.NewArray(1.0, 2.0, 3.0)).(*reactivity.Proxy)

	firstRuns, lastRuns := 0, 0
	_, err := rs.Effect(func() error {
		firstRuns++
		arr.Get(0)
		return nil
	})
	require.NoError(t, err)
	_, err = rs.Effect(func() error {
		lastRuns++
		arr.Get(2)
		return nil
	})
	require.NoError(t, err)

	arr.Set("length", 1)
	assert.Equal(t, 1, firstRuns)
	assert.Equal(t, 2, lastRuns)
	assert.Nil(t, arr.Get(2))
}

// should support pop, shift, unshift and splice
func TestArrayMutators(t *testing.T) {
	rs := newSystem(t)
	arr := rs.Reactive(reactivity.NewArray(1.0, 2.0, 3.0)).(*reactivity.Proxy)

	assert.Equal(t, 3.0, arr.Pop())
	assert.Equal(t, 1.0, arr.Shift())
	assert.Equal(t, 3, arr.Unshift(0.0, 1.0))
	assert.Equal(t, []any{0.0, 1.0, 2.0}, arr.Items())

	removed := arr.Splice(1, 1, "a", "b")
	assert.Equal(t, []any{1.0}, removed)
	assert.Equal(t, []any{0.0, "a", "b", 2.0}, arr.Items())

	removed = arr.Splice(-1, 5)
	assert.Equal(t, []any{2.0}, removed)
	assert.Equal(t, 3, arr.Len())
}

// should find raw elements when searching with their proxies
func TestArraySearchUnwraps(t *testing.T) {
	rs := newSystem(t)
	item := reactivity.ObjectOf("id", 1.0)
	arr := rs.Reactive(reactivity.NewArray(item)).(*reactivity.Proxy)

	wrapped := arr.Get(0)
	assert.True(t, reactivity.IsProxy(wrapped))
	assert.True(t, arr.Includes(wrapped))
	assert.Equal(t, 0, arr.IndexOf(wrapped))
	assert.Equal(t, 0, arr.LastIndexOf(item))
	assert.Equal(t, -1, arr.IndexOf(reactivity.NewObject()))
}

// should match map entries regardless of key wrapping
func TestMapKeysUnwrapped(t *testing.T) {
	rs := newSystem(t)
	key := reactivity.NewObject()
	m := rs.Reactive(reactivity.NewMap()).(*reactivity.Proxy)

	m.Set(rs.Reactive(key), "v")
	assert.Equal(t, "v", m.Get(key))
	assert.True(t, m.Has(rs.Reactive(key)))
	assert.Equal(t, 1, m.Size())
}

// should track map keys separately from values
func TestMapKeyIteration(t *testing.T) {
	rs := newSystem(t)
	m := rs.Reactive(reactivity.NewMap()).(*reactivity.Proxy)
	m.Set("a", 1.0)

	keyRuns, valueRuns := 0, 0
	_, err := rs.Effect(func() error {
		keyRuns++
		m.Keys()
		return nil
	})
	require.NoError(t, err)
	_, err = rs.Effect(func() error {
		valueRuns++
		m.Values()
		return nil
	})
	require.NoError(t, err)

	m.Set("a", 2.0)
	assert.Equal(t, 1, keyRuns)
	assert.Equal(t, 2, valueRuns)

	m.Set("b", 1.0)
	assert.Equal(t, 2, keyRuns)
	assert.Equal(t, 3, valueRuns)

	m.Delete("a")
	assert.Equal(t, 3, keyRuns)
	assert.Equal(t, 4, valueRuns)
}

// should track set membership and size
func TestSetInstrumentation(t *testing.T) {
	rs := newSystem(t)
	s := rs.Reactive(reactivity.NewSet()).(*reactivity.Proxy)

	hasRuns, sizeRuns := 0, 0
	_, err := rs.Effect(func() error {
		hasRuns++
		s.Has("x")
		return nil
	})
	require.NoError(t, err)
	_, err = rs.Effect(func() error {
		sizeRuns++
		s.Size()
		return nil
	})
	require.NoError(t, err)

	s.Add("y")
	assert.Equal(t, 1, hasRuns)
	assert.Equal(t, 2, sizeRuns)

	s.Add("x")
	s.Add("x")
	assert.Equal(t, 2, hasRuns)
	assert.Equal(t, 3, sizeRuns)

	s.Clear()
	assert.Equal(t, 3, hasRuns)
	assert.Equal(t, 4, sizeRuns)
	assert.Equal(t, 0, s.Size())
}

// should refuse to enumerate weak collections
func TestWeakCollections(t *testing.T) {
	rs := newSystem(t)
	key := reactivity.NewObject()
	wm := rs.Reactive(reactivity.NewWeakMap()).(*reactivity.Proxy)
	wm.Set(key, 1.0)

	assert.Equal(t, 1.0, wm.Get(key))
	assert.Zero(t, wm.Size())
	assert.Nil(t, wm.Keys())

	ws := rs.Reactive(reactivity.NewWeakSet()).(*reactivity.Proxy)
	ws.Add(key)
	assert.True(t, ws.Has(key))
	assert.Nil(t, ws.Values())
}

// should treat NaN as one key and -0 as 0 in maps and sets
func TestCollectionKeysSameValueZero(t *testing.T) {
	rs := newSystem(t)
	nan := math.NaN()

	m := rs.Reactive(reactivity.NewMap()).(*reactivity.Proxy)
	runs := 0
	_, err := rs.Effect(func() error {
		runs++
		m.Get(nan)
		return nil
	})
	require.NoError(t, err)
	m.Set(nan, 1.0)
	m.Set(nan, 2.0)
	assert.Equal(t, 1, m.Size())
	assert.Equal(t, 2.0, m.Get(nan))
	assert.Equal(t, 3, runs)
	assert.True(t, m.Delete(nan))
	assert.Equal(t, 0, m.Size())

	m.Set(math.Copysign(0, -1), "zero")
	assert.Equal(t, "zero", m.Get(0.0))

	s := reactivity.NewSet(nan, nan, 1.0, 1)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(nan))
}

// should refuse writes that would grow an array far past its end
func TestArraySparseWriteRefused(t *testing.T) {
	rs := newSystem(t)
	arr := rs.Reactive(reactivity.NewArray(1.0)).(*reactivity.Proxy)
	assert.False(t, arr.Set(2_000_000_000.0, 1.0))
	assert.False(t, arr.Set("length", 2_000_000_000.0))
	assert.Equal(t, 1, arr.Len())

	assert.True(t, arr.Set(10.0, 2.0))
	assert.Equal(t, 11, arr.Len())
	assert.Nil(t, arr.Get(5.0))
}
