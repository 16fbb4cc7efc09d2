package reactivity_test

import (
	"errors"
	"testing"

	"github.com/delaneyj/vox/reactivity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystem(t *testing.T) *reactivity.System {
	return reactivity.CreateReactiveSystem(func(from *reactivity.Effect, err error) {
		assert.FailNow(t, err.Error())
	})
}

// should run an effect once per trigger even when it reads the key twice
func TestEffectRunsOncePerTrigger(t *testing.T) {
	rs := newSystem(t)
	state := rs.ReactiveObject(reactivity.ObjectOf("count", 1.0))

	runs := 0
	_, err := rs.Effect(func() error {
		runs++
		state.Get("count")
		state.Get("count")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, runs)

	state.Set("count", 2.0)
	assert.Equal(t, 2, runs)

	// same value does not trigger
	state.Set("count", 2.0)
	assert.Equal(t, 2, runs)
}

// should dedupe an effect reached through several keys of one clear
func TestEffectDedupedAcrossDeps(t *testing.T) {
	rs := newSystem(t)
	m := rs.Reactive(reactivity.NewMap()).(*reactivity.Proxy)
	m.Set("a", 1.0)
	m.Set("b", 2.0)

	runs := 0
	_, err := rs.Effect(func() error {
		runs++
		m.Get("a")
		m.Get("b")
		m.Size()
		return nil
	})
	require.NoError(t, err)

	m.Clear()
	assert.Equal(t, 2, runs)
}

// should stop reacting to a branch that is no longer read
func TestStaleDependencyPruning(t *testing.T) {
	rs := newSystem(t)
	state := rs.ReactiveObject(reactivity.ObjectOf("flag", true, "a", 1.0, "b", 1.0))

	runs := 0
	_, err := rs.Effect(func() error {
		runs++
		if state.Get("flag") == true {
			state.Get("a")
		} else {
			state.Get("b")
		}
		return nil
	})
	require.NoError(t, err)

	state.Set("b", 2.0)
	assert.Equal(t, 1, runs)

	state.Set("flag", false)
	assert.Equal(t, 2, runs)

	state.Set("a", 5.0)
	assert.Equal(t, 2, runs)

	state.Set("b", 3.0)
	assert.Equal(t, 3, runs)
}

// should not trigger after stop
func TestEffectStop(t *testing.T) {
	rs := newSystem(t)
	state := rs.ReactiveObject(reactivity.ObjectOf("count", 0.0))

	runs := 0
	stop, err := rs.Effect(func() error {
		runs++
		state.Get("count")
		return nil
	})
	require.NoError(t, err)

	stop()
	stop()
	state.Set("count", 1.0)
	assert.Equal(t, 1, runs)
}

// should defer stopping an effect that stops itself mid-run
func TestEffectStopDuringRun(t *testing.T) {
	rs := newSystem(t)
	state := rs.ReactiveObject(reactivity.ObjectOf("count", 0.0))

	var e *reactivity.Effect
	runs := 0
	e = rs.NewEffect(func() error {
		runs++
		state.Get("count")
		if runs == 2 {
			e.Stop()
			assert.True(t, e.Active())
		}
		return nil
	}, nil)
	require.NoError(t, e.Run())

	state.Set("count", 1.0)
	assert.Equal(t, 2, runs)
	assert.False(t, e.Active())
	assert.Zero(t, e.DepCount())

	state.Set("count", 2.0)
	assert.Equal(t, 2, runs)
}

// should not re-enter itself when it writes what it reads
func TestEffectNoSelfRetrigger(t *testing.T) {
	rs := newSystem(t)
	state := rs.ReactiveObject(reactivity.ObjectOf("count", 0.0))

	runs := 0
	_, err := rs.Effect(func() error {
		runs++
		n := state.Get("count").(float64)
		state.Set("count", n+1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1.0, state.Get("count"))
}

// should hand triggered runs to the scheduler
func TestEffectScheduler(t *testing.T) {
	rs := newSystem(t)
	state := rs.ReactiveObject(reactivity.ObjectOf("count", 0.0))

	scheduled := 0
	e := rs.NewEffect(func() error {
		state.Get("count")
		return nil
	}, func() error {
		scheduled++
		return nil
	})
	require.NoError(t, e.Run())

	state.Set("count", 1.0)
	assert.Equal(t, 1, scheduled)
}

// should restore tracking state when an effect body fails
func TestEffectErrorRestoresTracking(t *testing.T) {
	rs := newSystem(t)
	state := rs.ReactiveObject(reactivity.ObjectOf("count", 0.0))
	boom := errors.New("boom")

	failing := rs.NewEffect(func() error {
		state.Get("count")
		return boom
	}, nil)
	assert.ErrorIs(t, failing.Run(), boom)
	assert.Nil(t, rs.ActiveEffect())

	assert.Panics(t, func() {
		rs.NewEffect(func() error {
			panic("kaboom")
		}, nil).Run()
	})
	assert.Nil(t, rs.ActiveEffect())

	// reads outside any effect record nothing
	other := rs.ReactiveObject(reactivity.ObjectOf("x", 1.0))
	other.Get("x")
	assert.Equal(t, 1, rs.TrackedTargets())
}

// should route errors of triggered runs to OnError
func TestTriggeredErrorsGoToOnError(t *testing.T) {
	var got error
	rs := reactivity.CreateReactiveSystem(func(from *reactivity.Effect, err error) {
		got = err
	})
	state := rs.ReactiveObject(reactivity.ObjectOf("count", 0.0))
	boom := errors.New("boom")

	_, err := rs.Effect(func() error {
		if state.Get("count").(float64) > 0 {
			return boom
		}
		return nil
	})
	require.NoError(t, err)

	state.Set("count", 1.0)
	assert.ErrorIs(t, got, boom)
}

// should run direct dependents before the effects they cascade into
func TestTriggerOrderDirectBeforeCascade(t *testing.T) {
	rs := newSystem(t)
	state := rs.ReactiveObject(reactivity.ObjectOf("a", 0.0, "b", 0.0))
	order := []string{}

	_, err := rs.Effect(func() error {
		v := state.Get("a").(float64)
		order = append(order, "first")
		state.Set("b", v)
		return nil
	})
	require.NoError(t, err)
	_, err = rs.Effect(func() error {
		state.Get("a")
		order = append(order, "second")
		return nil
	})
	require.NoError(t, err)
	_, err = rs.Effect(func() error {
		state.Get("b")
		order = append(order, "cascade")
		return nil
	})
	require.NoError(t, err)

	order = order[:0]
	state.Set("a", 1.0)
	assert.Equal(t, []string{"first", "second", "cascade"}, order)
}

// should defer re-runs until the batch ends
func TestBatch(t *testing.T) {
	rs := newSystem(t)
	state := rs.ReactiveObject(reactivity.ObjectOf("a", 0.0, "b", 0.0))

	runs := 0
	_, err := rs.Effect(func() error {
		runs++
		state.Get("a")
		state.Get("b")
		return nil
	})
	require.NoError(t, err)

	rs.Batch(func() {
		state.Set("a", 1.0)
		state.Set("b", 1.0)
		assert.Equal(t, 1, runs)
	})
	assert.Equal(t, 2, runs)
}

// should pass the getter value to the runner outside tracking
func TestReaction(t *testing.T) {
	rs := newSystem(t)
	state := rs.ReactiveObject(reactivity.ObjectOf("count", 1.0, "other", 0.0))

	seen := []any{}
	r := rs.Reaction(func() (any, error) {
		return state.Get("count"), nil
	}, func(value any) error {
		state.Get("other")
		seen = append(seen, value)
		return nil
	})
	require.NoError(t, r.Run())

	state.Set("count", 2.0)
	state.Set("other", 1.0)
	assert.Equal(t, []any{1.0, 2.0}, seen)

	r.Cleanup()
	state.Set("count", 3.0)
	assert.Equal(t, []any{1.0, 2.0}, seen)
}

// should keep tracking correct past the bitmark depth
func TestDeepNesting(t *testing.T) {
	rs := newSystem(t)
	state := rs.ReactiveObject(reactivity.ObjectOf("count", 0.0))

	runs := make([]int, 40)
	var nest func(depth int) error
	nest = func(depth int) error {
		if depth == len(runs) {
			return nil
		}
		_, err := rs.Effect(func() error {
			runs[depth]++
			state.Get("count")
			return nest(depth + 1)
		})
		return err
	}
	require.NoError(t, nest(0))
	assert.Equal(t, 1, runs[39])
	assert.Equal(t, 1, runs[0])
}
