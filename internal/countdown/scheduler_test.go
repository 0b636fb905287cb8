package countdown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type recorder struct {
	mu    sync.Mutex
	ticks []Tick
}

func (r *recorder) onTick(t Tick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, t)
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.ticks))
	for _, t := range r.ticks {
		out = append(out, t.Text)
	}
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ticks)
}

func TestStartTicksImmediately(t *testing.T) {
	clock := newFakeClock(base)
	rec := &recorder{}

	h := Start(At(base.Add(90061*time.Second)), rec.onTick, time.Minute, WithClock(clock))
	defer h.Cancel()

	require.Equal(t, 1, rec.len())
	assert.Equal(t, "1 Day: 1 Hours: 1 Mins left", rec.ticks[0].Text)
	assert.True(t, rec.ticks[0].Valid)
	assert.Equal(t, Decomposed{Days: 1, Hours: 1, Minutes: 1, Seconds: 1}, rec.ticks[0].Value)
	assert.Equal(t, base, rec.ticks[0].At)
}

func TestCoarseRefreshEveryMinute(t *testing.T) {
	clock := newFakeClock(base)
	rec := &recorder{}

	h := Start(At(base.Add(3*time.Minute+30*time.Second)), rec.onTick, 0, WithClock(clock))
	defer h.Cancel()

	clock.Advance(59 * time.Second)
	assert.Equal(t, 1, rec.len())

	clock.Advance(5 * time.Minute)
	assert.Equal(t, []string{
		"0 Day: 0 Hours: 3 Mins left",
		"0 Day: 0 Hours: 2 Mins left",
		"0 Day: 0 Hours: 1 Mins left",
		"0 Day: 0 Hours: 0 Mins left",
		"0 Day: 0 Hours: 0 Mins left",
		"0 Day: 0 Hours: 0 Mins left",
	}, rec.texts())
}

func TestFineRefreshEverySecond(t *testing.T) {
	clock := newFakeClock(base)
	rec := &recorder{}

	h := Start(At(base.Add(50*time.Second)), rec.onTick, ModeFine.Interval(), WithClock(clock), WithMode(ModeFine))
	defer h.Cancel()

	clock.Advance(2 * time.Second)
	assert.Equal(t, []string{
		"Hours: 0 Minutes: 0 Seconds: 50",
		"Hours: 0 Minutes: 0 Seconds: 49",
		"Hours: 0 Minutes: 0 Seconds: 48",
	}, rec.texts())
	assert.Equal(t, Decomposed{Seconds: 48}, rec.ticks[2].Value)
}

func TestTicksAreTimeOrdered(t *testing.T) {
	clock := newFakeClock(base)
	rec := &recorder{}

	h := Start(At(base.Add(time.Hour)), rec.onTick, time.Second, WithClock(clock))
	defer h.Cancel()

	clock.Advance(30 * time.Second)
	require.Len(t, rec.ticks, 31)
	for i := 1; i < len(rec.ticks); i++ {
		assert.True(t, rec.ticks[i].At.After(rec.ticks[i-1].At))
		assert.Equal(t, base.Add(time.Duration(i)*time.Second), rec.ticks[i].At)
	}
}

func TestCancelStopsTicks(t *testing.T) {
	clock := newFakeClock(base)
	rec := &recorder{}

	h := Start(At(base.Add(time.Hour)), rec.onTick, time.Minute, WithClock(clock))
	clock.Advance(2 * time.Minute)
	require.Equal(t, 3, rec.len())

	h.Cancel()
	assert.False(t, h.Active())
	assert.Zero(t, clock.Pending())

	clock.Advance(24 * time.Hour)
	assert.Equal(t, 3, rec.len())

	assert.NotPanics(t, h.Cancel)
	assert.Equal(t, 3, rec.len())
}

func TestCancelFromInsideTick(t *testing.T) {
	clock := newFakeClock(base)
	var (
		h     *Handle
		count int
	)

	h = Start(At(base.Add(time.Hour)), func(Tick) {
		count++
		if count == 2 {
			h.Cancel()
		}
	}, time.Second, WithClock(clock))

	clock.Advance(10 * time.Second)
	assert.Equal(t, 2, count)
	assert.False(t, h.Active())
}

func TestInvalidTargetTicksInvalid(t *testing.T) {
	clock := newFakeClock(base)
	rec := &recorder{}

	h := Start(ParseTarget("soon-ish"), rec.onTick, time.Second, WithClock(clock), WithMode(ModeFine))
	defer h.Cancel()

	clock.Advance(2 * time.Second)
	require.Equal(t, 3, rec.len())
	for _, tick := range rec.ticks {
		assert.False(t, tick.Valid)
		assert.Equal(t, InvalidDate, tick.Text)
		assert.True(t, tick.Value.IsZero())
	}
}

func TestMissedBoundariesAreSkipped(t *testing.T) {
	clock := &slowClock{fakeClock: newFakeClock(base)}
	rec := &recorder{}

	h := Start(At(base.Add(time.Hour)), rec.onTick, time.Second, WithClock(clock))
	defer h.Cancel()

	// Every Now() call costs 2.5s, so the scheduler falls behind and has to
	// catch up to the next boundary that is still in the future.
	clock.lag = 2500 * time.Millisecond
	clock.Advance(10 * time.Second)

	for i := 1; i < rec.len(); i++ {
		assert.True(t, rec.ticks[i].At.After(rec.ticks[i-1].At))
	}
	assert.Less(t, rec.len(), 11)
}

type slowClock struct {
	*fakeClock
	lag time.Duration
}

func (c *slowClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.lag)
	return c.now
}

func TestRealClockCancel(t *testing.T) {
	var count atomic.Int64
	h := Start(At(time.Now().Add(time.Hour)), func(Tick) { count.Inc() }, 5*time.Millisecond)

	require.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, time.Millisecond)
	h.Cancel()

	time.Sleep(20 * time.Millisecond)
	settled := count.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, count.Load())
}

// gateClock parks the n-th Now() call until release is closed.
type gateClock struct {
	*fakeClock
	n       int64
	calls   atomic.Int64
	entered chan struct{}
	release chan struct{}
}

func newGateClock(c *fakeClock, n int64) *gateClock {
	return &gateClock{fakeClock: c, n: n, entered: make(chan struct{}), release: make(chan struct{})}
}

func (c *gateClock) Now() time.Time {
	if c.calls.Inc() == c.n {
		close(c.entered)
		<-c.release
	}
	return c.fakeClock.Now()
}

func TestCancelWaitsForTickInProgress(t *testing.T) {
	// Now() calls: Start, first tick, second tick.
	clock := newGateClock(newFakeClock(base), 3)
	var (
		count     atomic.Int64
		late      atomic.Int64
		cancelled atomic.Bool
	)

	h := Start(At(base.Add(time.Hour)), func(Tick) {
		count.Inc()
		if cancelled.Load() {
			late.Inc()
		}
	}, time.Second, WithClock(clock))
	require.EqualValues(t, 1, count.Load())

	advanced := make(chan struct{})
	go func() {
		defer close(advanced)
		clock.Advance(time.Second)
	}()
	<-clock.entered

	done := make(chan struct{})
	go func() {
		h.Cancel()
		cancelled.Store(true)
		close(done)
	}()
	require.Eventually(t, func() bool { return !h.Active() }, time.Second, time.Millisecond)

	select {
	case <-done:
		t.Fatal("Cancel returned while a tick was still in progress")
	default:
	}

	close(clock.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Cancel did not return after the tick finished")
	}
	<-advanced

	assert.Zero(t, late.Load())
	assert.EqualValues(t, 1, count.Load())
	assert.Zero(t, clock.Pending())
}
