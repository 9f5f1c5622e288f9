// Package inactivity signs out idle sessions after a visible warning.
package inactivity

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Defaults applied when Config leaves a duration unset.
const (
	DefaultTimeout = 5 * time.Minute
	DefaultWarning = 30 * time.Second
	tickInterval   = time.Second
	eventBuffer    = 8
)

// State is the position of a Monitor in its lifecycle.
type State int

// Monitor states.
const (
	StateDisabled State = iota
	StateIdle
	StateWarning
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWarning:
		return "warning"
	case StateExpired:
		return "expired"
	default:
		return "disabled"
	}
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Event is published on every state change and countdown tick.
type Event struct {
	State     State `json:"state"`
	Remaining int   `json:"remaining"`
}

// Config parameterises a Monitor. Callbacks run outside the monitor lock and
// may call back into it.
type Config struct {
	Timeout   time.Duration
	Warning   time.Duration
	Clock     clockwork.Clock
	OnWarning func(remaining time.Duration)
	OnTick    func(remaining time.Duration)
	OnExpire  func()
	Logger    *slog.Logger
}

// Monitor is the Idle → Warning → Expired state machine. Every re-arm bumps
// a generation counter; timer callbacks carrying an older generation are
// ignored.
type Monitor struct {
	cfg Config

	mu          sync.Mutex
	state       State
	generation  uint64
	remaining   time.Duration
	idleTimer   clockwork.Timer
	expireTimer clockwork.Timer
	tickTimer   clockwork.Timer
	stopped     bool
	subscribers map[chan Event]struct{}
}

// New constructs a disabled Monitor.
func New(cfg Config) *Monitor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Warning <= 0 {
		cfg.Warning = DefaultWarning
	}
	if cfg.Warning > cfg.Timeout {
		cfg.Warning = cfg.Timeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Monitor{cfg: cfg, subscribers: make(map[chan Event]struct{})}
}

// Enable arms the monitor from Idle. Enabling an armed monitor is a no-op.
func (m *Monitor) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || (m.state != StateDisabled && m.state != StateExpired) {
		return
	}
	m.armIdleLocked()
}

// Disable clears every timer. Disabling a disabled monitor is a no-op.
func (m *Monitor) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDisabled {
		return
	}
	m.resetLocked(StateDisabled)
}

// Activity re-arms the idle timer. It is ignored once the warning is showing.
func (m *Monitor) Activity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.state != StateIdle {
		return
	}
	m.armIdleLocked()
}

// StayLoggedIn dismisses a pending warning and re-arms from Idle.
func (m *Monitor) StayLoggedIn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || (m.state != StateIdle && m.state != StateWarning) {
		return
	}
	m.armIdleLocked()
}

// Stop tears the monitor down for good and closes every subscription.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.resetLocked(StateDisabled)
	m.stopped = true
	for ch := range m.subscribers {
		delete(m.subscribers, ch)
		close(ch)
	}
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Remaining returns the countdown while in Warning and zero otherwise.
func (m *Monitor) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateWarning {
		return 0
	}
	return m.remaining
}

// Subscribe returns a channel of events and a function that ends the
// subscription. Slow subscribers miss events rather than block the monitor.
func (m *Monitor) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, eventBuffer)
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	m.subscribers[ch] = struct{}{}
	ch <- m.eventLocked()
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.subscribers[ch]; ok {
				delete(m.subscribers, ch)
				close(ch)
			}
		})
	}
}

func (m *Monitor) armIdleLocked() {
	m.stopTimersLocked()
	m.generation++
	generation := m.generation
	m.state = StateIdle
	m.remaining = 0
	m.idleTimer = m.cfg.Clock.AfterFunc(m.cfg.Timeout-m.cfg.Warning, func() {
		m.enterWarning(generation)
	})
	m.publishLocked()
}

func (m *Monitor) resetLocked(state State) {
	m.stopTimersLocked()
	m.generation++
	m.state = state
	m.remaining = 0
	m.publishLocked()
}

func (m *Monitor) enterWarning(generation uint64) {
	m.mu.Lock()
	if generation != m.generation || m.state != StateIdle {
		m.mu.Unlock()
		return
	}
	m.state = StateWarning
	m.remaining = m.cfg.Warning
	m.expireTimer = m.cfg.Clock.AfterFunc(m.cfg.Warning, func() {
		m.expire(generation)
	})
	m.tickTimer = m.cfg.Clock.AfterFunc(tickInterval, func() {
		m.tick(generation)
	})
	remaining := m.remaining
	m.publishLocked()
	onWarning := m.cfg.OnWarning
	m.mu.Unlock()

	m.cfg.Logger.Debug("inactivity warning", slog.Duration("remaining", remaining))
	if onWarning != nil {
		onWarning(remaining)
	}
}

func (m *Monitor) tick(generation uint64) {
	m.mu.Lock()
	if generation != m.generation || m.state != StateWarning {
		m.mu.Unlock()
		return
	}
	m.remaining -= tickInterval
	if m.remaining <= 0 {
		m.mu.Unlock()
		m.expire(generation)
		return
	}
	m.tickTimer = m.cfg.Clock.AfterFunc(tickInterval, func() {
		m.tick(generation)
	})
	remaining := m.remaining
	m.publishLocked()
	onTick := m.cfg.OnTick
	m.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
}

// expire is reached from both the countdown and the backing timer; the state
// check under the lock lets only the first one through.
func (m *Monitor) expire(generation uint64) {
	m.mu.Lock()
	if generation != m.generation || m.state != StateWarning {
		m.mu.Unlock()
		return
	}
	m.resetLocked(StateExpired)
	onExpire := m.cfg.OnExpire
	m.mu.Unlock()

	m.cfg.Logger.Info("session expired after inactivity")
	if onExpire != nil {
		onExpire()
	}
}

func (m *Monitor) stopTimersLocked() {
	for _, t := range []clockwork.Timer{m.idleTimer, m.expireTimer, m.tickTimer} {
		if t != nil {
			t.Stop()
		}
	}
	m.idleTimer, m.expireTimer, m.tickTimer = nil, nil, nil
}

func (m *Monitor) eventLocked() Event {
	ev := Event{State: m.state}
	if m.state == StateWarning {
		ev.Remaining = int(m.remaining / time.Second)
	}
	return ev
}

func (m *Monitor) publishLocked() {
	ev := m.eventLocked()
	for ch := range m.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
