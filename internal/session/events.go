package session

import (
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/predictor"
)

// Mode selects the recognition screen.
type Mode string

const (
	// ModeWord debounces symbols into a sequence and proposes words.
	ModeWord Mode = "word"
	// ModeLetter speaks every confirmed symbol on its own.
	ModeLetter Mode = "letter"
)

// EventType names what changed.
type EventType string

const (
	EventStatus   EventType = "status"
	EventSequence EventType = "sequence"
	EventSpeak    EventType = "speak"
	EventSpoken   EventType = "spoken"
	EventSettings EventType = "settings"
	// EventSnapshot carries the full state; sent to new listeners.
	EventSnapshot EventType = "snapshot"
)

// Event is published to subscribers after every engine change.
type Event struct {
	Type      EventType       `json:"type"`
	At        time.Time       `json:"at"`
	Status    *gesture.Status `json:"status,omitempty"`
	Confirmed string          `json:"confirmed,omitempty"`
	Snapshot  *Snapshot       `json:"snapshot,omitempty"`
	Utterance *Utterance      `json:"utterance,omitempty"`
}

// Utterance is a request to speak, and later its result.
type Utterance struct {
	Text    string    `json:"text"`
	Trigger string    `json:"trigger"`
	At      time.Time `json:"at"`
	Error   string    `json:"error,omitempty"`
}

// Snapshot is the presentation view of a session.
type Snapshot struct {
	SessionID     string                 `json:"session_id"`
	Mode          Mode                   `json:"mode"`
	Symbols       []string               `json:"symbols"`
	Text          string                 `json:"text"`
	Suggestions   []predictor.Suggestion `json:"suggestions"`
	Status        gesture.Status         `json:"status"`
	Phase         gesture.Phase          `json:"phase"`
	SpeechEnabled bool                   `json:"speech_enabled"`
}
