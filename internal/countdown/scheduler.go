package countdown

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Tick is what a display receives on every refresh.
type Tick struct {
	At    time.Time
	Value Decomposed
	Text  string
	Valid bool
}

// OptionsFunc configures a scheduler started with Start.
type OptionsFunc func(*Options)

// Options are the settings a scheduler runs with.
type Options struct {
	Clock Clock
	Mode  Mode
}

// WithClock sets the time source. Default: RealClock.
func WithClock(c Clock) OptionsFunc {
	return func(o *Options) {
		o.Clock = c
	}
}

// WithMode sets how ticks are decomposed and rendered. Default: ModeCoarse.
func WithMode(m Mode) OptionsFunc {
	return func(o *Options) {
		o.Mode = m
	}
}

// Handle controls a running refresh cycle. The owner of the display must
// call Cancel when the display goes away.
type Handle struct {
	options  Options
	target   Target
	onTick   func(Tick)
	interval time.Duration
	started  time.Time
	n        int64

	live atomic.Bool
	// inTick is set while onTick runs, so Cancel can tell a call made from
	// inside the callback from one that has to wait for it.
	inTick atomic.Bool

	// tickMu serialises ticks; timerMu guards timer.
	tickMu  sync.Mutex
	timerMu sync.Mutex
	timer   Timer
}

// Start emits a tick for target right away and then once per interval
// until the returned handle is cancelled. A non-positive interval uses the
// mode's default.
func Start(target Target, onTick func(Tick), interval time.Duration, options ...OptionsFunc) *Handle {
	setup := Options{Clock: RealClock{}, Mode: ModeCoarse}
	for _, o := range options {
		o(&setup)
	}
	if interval <= 0 {
		interval = setup.Mode.Interval()
	}

	h := &Handle{
		options:  setup,
		target:   target,
		onTick:   onTick,
		interval: interval,
		started:  setup.Clock.Now(),
	}
	h.live.Store(true)
	h.fire()

	return h
}

// Cancel stops the cycle. No tick starts after Cancel returns. It is safe to
// call more than once, from any goroutine, including from inside onTick.
// Called from another goroutine while a tick is being prepared, it waits for
// that tick to finish.
func (h *Handle) Cancel() {
	if !h.live.CompareAndSwap(true, false) {
		return
	}

	// A tick that already checked live either is inside onTick or still holds
	// tickMu; in the second case wait it out.
	if !h.inTick.Load() {
		h.tickMu.Lock()
		h.tickMu.Unlock()
	}

	h.timerMu.Lock()
	defer h.timerMu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// Active reports whether the cycle is still running.
func (h *Handle) Active() bool {
	return h.live.Load()
}

func (h *Handle) fire() {
	h.tickMu.Lock()
	defer h.tickMu.Unlock()

	if !h.live.Load() {
		return
	}

	now := h.options.Clock.Now()
	t := h.tick(now)
	if !h.live.Load() {
		return
	}

	h.inTick.Store(true)
	h.onTick(t)
	h.inTick.Store(false)
	h.scheduleNext(now)
}

func (h *Handle) tick(now time.Time) Tick {
	t := Tick{At: now}
	at, ok := h.target.Time()
	if !ok {
		t.Text = InvalidDate
		return t
	}
	t.Valid = true
	t.Value = h.options.Mode.Compute(at, now)
	t.Text = h.options.Mode.Render(t.Value)
	return t
}

// scheduleNext arms the timer for the next interval boundary after now,
// skipping boundaries that were missed.
func (h *Handle) scheduleNext(now time.Time) {
	h.n++
	if boundary := h.started.Add(time.Duration(h.n) * h.interval); !boundary.After(now) {
		h.n = int64(now.Sub(h.started)/h.interval) + 1
	}
	delay := h.started.Add(time.Duration(h.n) * h.interval).Sub(now)

	h.timerMu.Lock()
	defer h.timerMu.Unlock()
	if !h.live.Load() {
		return
	}
	h.timer = h.options.Clock.AfterFunc(delay, h.fire)
}
