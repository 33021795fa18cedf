// Package gesture debounces the per-frame classifier stream into confirmed
// symbols. The state machine is a pure function over an explicit State value.
package gesture

import (
	"encoding/json"
	"fmt"
	"time"
)

// Default timings used by both recognition modes.
const (
	DefaultHold     = 1500 * time.Millisecond
	DefaultCooldown = 1000 * time.Millisecond
)

// Phase is the debouncer's tagged state.
type Phase int

const (
	// Idle has no tracked label.
	Idle Phase = iota
	// Tracking holds one confident label seen contiguously since State.Since.
	Tracking
	// Cooldown blocks confirmations until State.CooldownStart + Config.Cooldown.
	Cooldown
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	case Cooldown:
		return "cooldown"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText renders the phase name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is everything the debouncer remembers between events.
type State struct {
	Phase         Phase     `json:"phase"`
	Label         string    `json:"label,omitempty"`
	Since         time.Time `json:"since"`
	CooldownStart time.Time `json:"cooldown_start"`
}

// Config holds debouncer timings.
type Config struct {
	Hold     time.Duration
	Cooldown time.Duration
	// AllowRepeats lets a held label confirm again after cooldown even when it
	// equals the last symbol in the sequence.
	AllowRepeats bool
}

// DefaultConfig returns the standard hold and cooldown.
func DefaultConfig() Config {
	return Config{Hold: DefaultHold, Cooldown: DefaultCooldown}
}

// EventKind distinguishes debouncer inputs.
type EventKind int

const (
	// NoHand means the frame had no hand at all.
	NoHand EventKind = iota
	// HandSeen is a frame with hands that was not classified. It only
	// advances cooldown accounting.
	HandSeen
	// Classified carries a classifier result. An empty Label is a
	// low-confidence result.
	Classified
)

// Event is one input to Transition.
type Event struct {
	Kind       EventKind
	Label      string
	Confidence float32
	At         time.Time
}

// StatusKind identifies the progress report for the presentation layer.
type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusNoHand
	StatusCooldown
	StatusSearching
	StatusTracking
	StatusHolding
	StatusConfirmed
)

var statusNames = map[StatusKind]string{
	StatusNone:      "none",
	StatusNoHand:    "no_hand",
	StatusCooldown:  "cooldown",
	StatusSearching: "searching",
	StatusTracking:  "tracking",
	StatusHolding:   "holding",
	StatusConfirmed: "confirmed",
}

func (k StatusKind) String() string {
	if s, ok := statusNames[k]; ok {
		return s
	}
	return fmt.Sprintf("status(%d)", int(k))
}

// MarshalText renders the status name in JSON.
func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Status is a progress report emitted with every transition.
type Status struct {
	Kind      StatusKind
	Label     string
	Remaining time.Duration
}

// MarshalJSON renders the status with its display message.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind        StatusKind `json:"kind"`
		Label       string     `json:"label,omitempty"`
		RemainingMs int64      `json:"remaining_ms,omitempty"`
		Message     string     `json:"message"`
	}{s.Kind, s.Label, s.Remaining.Milliseconds(), s.Message()})
}

// Message renders the status the way the recognition screen shows it.
func (s Status) Message() string {
	switch s.Kind {
	case StatusNoHand:
		return "Show your hand to camera"
	case StatusCooldown:
		return fmt.Sprintf("Next gesture: %dms", s.Remaining.Milliseconds())
	case StatusSearching:
		return "Hold gesture steady and clear..."
	case StatusTracking:
		return s.Label + " - Hold steady..."
	case StatusHolding:
		return fmt.Sprintf("%s - Hold: %dms", s.Label, s.Remaining.Milliseconds())
	case StatusConfirmed:
		return "✓ Added: " + s.Label
	default:
		return ""
	}
}

// Outcome is what one transition emits. Confirmed is the symbol to append,
// or empty.
type Outcome struct {
	Status    Status
	Confirmed string
}

// Transition applies one event. last is the sequence's current last symbol
// ("" when empty); it drives the repeat guard.
func Transition(cfg Config, s State, ev Event, last string) (State, Outcome) {
	if ev.Kind == NoHand {
		return State{}, Outcome{Status: Status{Kind: StatusNoHand}}
	}

	if s.Phase == Cooldown {
		elapsed := ev.At.Sub(s.CooldownStart)
		if elapsed < cfg.Cooldown {
			return s, Outcome{Status: Status{Kind: StatusCooldown, Remaining: cfg.Cooldown - elapsed}}
		}
		// Cooldown over: forget the label and evaluate this event from Idle.
		s = State{}
	}

	if ev.Kind != Classified {
		return s, Outcome{Status: Status{Kind: StatusNone}}
	}

	if ev.Label == "" {
		return State{}, Outcome{Status: Status{Kind: StatusSearching}}
	}

	if s.Phase != Tracking || s.Label != ev.Label {
		return State{Phase: Tracking, Label: ev.Label, Since: ev.At},
			Outcome{Status: Status{Kind: StatusTracking, Label: ev.Label}}
	}

	held := ev.At.Sub(s.Since)
	if held < cfg.Hold {
		return s, Outcome{Status: Status{Kind: StatusHolding, Label: ev.Label, Remaining: cfg.Hold - held}}
	}

	if !cfg.AllowRepeats && last == ev.Label {
		// Already the last symbol: restart the hold without cooling down.
		s.Since = ev.At
		return s, Outcome{Status: Status{Kind: StatusHolding, Label: ev.Label, Remaining: cfg.Hold}}
	}

	return State{Phase: Cooldown, Label: ev.Label, CooldownStart: ev.At},
		Outcome{Status: Status{Kind: StatusConfirmed, Label: ev.Label}, Confirmed: ev.Label}
}
