package reactivity

type ErrFn func() error

// Effect is a re-executable computation. Every Run re-records the
// dependencies read by fn; deps that were not read again are dropped.
type Effect struct {
	sys *System
	fn  ErrFn

	// Scheduler, when set, is called by trigger instead of Run.
	Scheduler ErrFn
	// AllowRecurse lets a running effect be re-queued by its own writes.
	AllowRecurse bool
	// OnStop runs once when the effect is stopped.
	OnStop func()

	active    bool
	deferStop bool
	deps      []*dep
	parent    *Effect
}

// NewEffect creates an active effect without running it.
func (s *System) NewEffect(fn ErrFn, scheduler ErrFn) *Effect {
	return &Effect{
		sys:       s,
		fn:        fn,
		Scheduler: scheduler,
		active:    true,
	}
}

// Effect creates an effect, runs it once and returns the stop function.
func (s *System) Effect(fn ErrFn) (stop func(), err error) {
	e := s.NewEffect(fn, nil)
	if err := e.Run(); err != nil {
		e.Stop()
		return e.Stop, err
	}
	return e.Stop, nil
}

func (e *Effect) Active() bool {
	return e.active
}

// DepCount is the number of dependency sets the effect belongs to.
func (e *Effect) DepCount() int {
	return len(e.deps)
}

// Run executes the body while tracking. Errors and panics from the body reach
// the caller; tracking state is restored either way.
func (e *Effect) Run() error {
	if !e.active {
		return e.fn()
	}
	s := e.sys
	for p := s.activeEffect; p != nil; p = p.parent {
		if p == e {
			return nil
		}
	}

	e.parent = s.activeEffect
	lastShouldTrack := s.shouldTrack
	s.activeEffect = e
	s.shouldTrack = true
	s.trackDepth++
	s.trackOpBit = 1 << uint(s.trackDepth)

	if s.trackDepth <= maxMarkerBits {
		e.initDepMarkers()
	} else {
		e.cleanupDeps()
	}

	defer func() {
		if s.trackDepth <= maxMarkerBits {
			e.finalizeDepMarkers()
		}
		s.trackDepth--
		s.trackOpBit = 1 << uint(s.trackDepth)
		s.activeEffect = e.parent
		s.shouldTrack = lastShouldTrack
		e.parent = nil
		if e.deferStop {
			e.Stop()
		}
	}()

	return e.fn()
}

// Stop unsubscribes the effect from every dep. Stopping a running effect is
// deferred until its run returns.
func (e *Effect) Stop() {
	if e.sys.activeEffect == e {
		e.deferStop = true
		return
	}
	if !e.active {
		return
	}
	e.cleanupDeps()
	if e.OnStop != nil {
		e.OnStop()
	}
	e.active = false
}

func (e *Effect) initDepMarkers() {
	bit := e.sys.trackOpBit
	for _, d := range e.deps {
		d.w |= bit
	}
}

func (e *Effect) finalizeDepMarkers() {
	bit := e.sys.trackOpBit
	kept := 0
	for _, d := range e.deps {
		if d.wasTracked(bit) && !d.newTracked(bit) {
			d.remove(e)
		} else {
			e.deps[kept] = d
			kept++
		}
		d.w &^= bit
		d.n &^= bit
	}
	clear(e.deps[kept:])
	e.deps = e.deps[:kept]
}

func (e *Effect) cleanupDeps() {
	for _, d := range e.deps {
		d.remove(e)
	}
	e.deps = e.deps[:0]
}

// Reaction pairs a tracked getter with an untracked runner. Each time a
// dependency of the getter changes the getter is re-evaluated and the runner
// receives the fresh value.
type Reaction struct {
	sys    *System
	effect *Effect
	runner func(value any) error
	value  any
}

func (s *System) Reaction(getter func() (any, error), runner func(value any) error) *Reaction {
	r := &Reaction{sys: s, runner: runner}
	r.effect = s.NewEffect(func() error {
		v, err := getter()
		if err != nil {
			return err
		}
		r.value = v
		return nil
	}, nil)
	r.effect.Scheduler = r.Run
	return r
}

// Run evaluates the getter and hands its value to the runner.
func (r *Reaction) Run() error {
	if err := r.effect.Run(); err != nil {
		return err
	}
	if r.runner == nil {
		return nil
	}
	r.sys.PauseTracking()
	defer r.sys.ResetTracking()
	return r.runner(r.value)
}

func (r *Reaction) Cleanup() {
	r.effect.Stop()
}

func (r *Reaction) Effect() *Effect {
	return r.effect
}
