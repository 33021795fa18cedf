package gesture

import "time"

// Debouncer owns one State and feeds events through Transition.
// It is not safe for concurrent use; the session engine is its only writer.
type Debouncer struct {
	cfg   Config
	state State
}

// NewDebouncer creates a debouncer. Zero timings fall back to the defaults.
func NewDebouncer(cfg Config) *Debouncer {
	if cfg.Hold <= 0 {
		cfg.Hold = DefaultHold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Debouncer{cfg: cfg}
}

// Observe applies one event and returns its outcome.
func (d *Debouncer) Observe(ev Event, last string) Outcome {
	var out Outcome
	d.state, out = Transition(d.cfg, d.state, ev, last)
	return out
}

// Reset returns to Idle.
func (d *Debouncer) Reset() {
	d.state = State{}
}

// State returns a copy of the current state.
func (d *Debouncer) State() State {
	return d.state
}

// Cooling reports whether the cooldown is still running at t.
func (d *Debouncer) Cooling(t time.Time) bool {
	return d.state.Phase == Cooldown && t.Sub(d.state.CooldownStart) < d.cfg.Cooldown
}

// Config returns the timings in use.
func (d *Debouncer) Config() Config {
	return d.cfg
}
