package inactivity

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	warnings []time.Duration
	ticks    []time.Duration
	expires  atomic.Int32
}

func (r *recorder) config(clock clockwork.Clock) Config {
	return Config{
		Timeout: 5 * time.Second,
		Warning: 2 * time.Second,
		Clock:   clock,
		OnWarning: func(d time.Duration) {
			r.mu.Lock()
			r.warnings = append(r.warnings, d)
			r.mu.Unlock()
		},
		OnTick: func(d time.Duration) {
			r.mu.Lock()
			r.ticks = append(r.ticks, d)
			r.mu.Unlock()
		},
		OnExpire: func() { r.expires.Add(1) },
	}
}

func (r *recorder) warningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warnings)
}

func waitState(t *testing.T, m *Monitor, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return m.State() == want }, time.Second, time.Millisecond)
}

func waitRemaining(t *testing.T, m *Monitor, want time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool { return m.Remaining() == want }, time.Second, time.Millisecond)
}

func TestIdleEntersWarningAfterTimeoutMinusLead(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	m := New(rec.config(clock))
	t.Cleanup(m.Stop)

	m.Enable()
	assert.Equal(t, StateIdle, m.State())

	clock.Advance(3*time.Second - time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, StateIdle, m.State())

	clock.Advance(time.Millisecond)
	waitState(t, m, StateWarning)
	assert.Equal(t, 2*time.Second, m.Remaining())
	require.Eventually(t, func() bool { return rec.warningCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.warnings)
}

func TestStayLoggedInCancelsPendingExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	m := New(rec.config(clock))
	t.Cleanup(m.Stop)

	m.Enable()
	clock.Advance(3 * time.Second)
	waitState(t, m, StateWarning)

	clock.Advance(time.Second)
	waitRemaining(t, m, time.Second)

	m.StayLoggedIn()
	assert.Equal(t, StateIdle, m.State())

	// Past the original expiry instant.
	clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, int32(0), rec.expires.Load())
}

func TestWarningRunsOutWithExactlyOneExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	m := New(rec.config(clock))
	t.Cleanup(m.Stop)

	m.Enable()
	clock.Advance(3 * time.Second)
	waitState(t, m, StateWarning)
	clock.Advance(time.Second)
	waitRemaining(t, m, time.Second)

	// The countdown reaching zero and the backing timer fire together.
	clock.Advance(time.Second)
	waitState(t, m, StateExpired)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), rec.expires.Load())

	rec.mu.Lock()
	assert.Equal(t, []time.Duration{time.Second}, rec.ticks)
	rec.mu.Unlock()
}

func TestActivityIgnoredDuringWarning(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	m := New(rec.config(clock))
	t.Cleanup(m.Stop)

	m.Enable()
	clock.Advance(2 * time.Second)
	m.Activity()
	clock.Advance(2 * time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, StateIdle, m.State(), "activity in idle re-arms the warning timer")

	clock.Advance(time.Second)
	waitState(t, m, StateWarning)

	m.Activity()
	assert.Equal(t, StateWarning, m.State())
	clock.Advance(time.Second)
	waitRemaining(t, m, time.Second)
	clock.Advance(time.Second)
	waitState(t, m, StateExpired)
	require.Eventually(t, func() bool { return rec.expires.Load() == 1 }, time.Second, time.Millisecond)
}

func TestEnableDisableAreIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	m := New(rec.config(clock))
	t.Cleanup(m.Stop)

	m.Disable()
	assert.Equal(t, StateDisabled, m.State())

	m.Enable()
	clock.Advance(2 * time.Second)
	m.Enable()
	clock.Advance(time.Second)
	waitState(t, m, StateWarning)

	m.Disable()
	m.Disable()
	assert.Equal(t, StateDisabled, m.State())
	clock.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), rec.expires.Load())
}

func TestStopClearsTimersAndSubscriptions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	m := New(rec.config(clock))

	events, unsubscribe := m.Subscribe()
	defer unsubscribe()
	assert.Equal(t, Event{State: StateDisabled}, <-events)

	m.Enable()
	assert.Equal(t, Event{State: StateIdle}, <-events)

	m.Stop()
	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), rec.expires.Load())
	assert.Equal(t, 0, rec.warningCount())

	assert.Equal(t, Event{State: StateDisabled}, <-events)
	_, open := <-events
	assert.False(t, open)

	m.Enable()
	assert.Equal(t, StateDisabled, m.State())
}

func TestSubscribersSeeWarningCountdown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := New((&recorder{}).config(clock))
	t.Cleanup(m.Stop)

	m.Enable()
	events, unsubscribe := m.Subscribe()
	defer unsubscribe()
	assert.Equal(t, Event{State: StateIdle}, <-events)

	clock.Advance(3 * time.Second)
	assert.Equal(t, Event{State: StateWarning, Remaining: 2}, <-events)
	clock.Advance(time.Second)
	assert.Equal(t, Event{State: StateWarning, Remaining: 1}, <-events)
	clock.Advance(time.Second)
	assert.Equal(t, Event{State: StateExpired}, <-events)
}

func TestNewAppliesDefaults(t *testing.T) {
	m := New(Config{})
	assert.Equal(t, DefaultTimeout, m.cfg.Timeout)
	assert.Equal(t, DefaultWarning, m.cfg.Warning)

	m = New(Config{Timeout: time.Second, Warning: time.Minute})
	assert.Equal(t, time.Second, m.cfg.Warning)
}
