package tray

import (
	"testing"

	"github.com/ayusman/mudra/internal/session"
)

func TestTray_Apply(t *testing.T) {
	tr := New(true)

	tests := []struct {
		name       string
		event      session.Event
		wantText   string
		wantLast   string
		wantSpeech bool
	}{
		{
			name: "initial snapshot",
			event: session.Event{Type: session.EventSnapshot, Snapshot: &session.Snapshot{
				Symbols: []string{"അ"}, Text: "അ", SpeechEnabled: true,
			}},
			wantText: "അ", wantLast: "അ", wantSpeech: true,
		},
		{
			name: "confirmed symbol",
			event: session.Event{Type: session.EventSequence, Confirmed: "മ", Snapshot: &session.Snapshot{
				Symbols: []string{"അ", "മ"}, Text: "അമ", SpeechEnabled: true,
			}},
			wantText: "അമ", wantLast: "മ", wantSpeech: true,
		},
		{
			name: "speech disabled",
			event: session.Event{Type: session.EventSettings, Snapshot: &session.Snapshot{
				Symbols: []string{"അ", "മ"}, Text: "അമ",
			}},
			wantText: "അമ", wantLast: "മ", wantSpeech: false,
		},
		{
			name:     "status events are ignored",
			event:    session.Event{Type: session.EventStatus},
			wantText: "അമ", wantLast: "മ", wantSpeech: false,
		},
		{
			name:     "cleared",
			event:    session.Event{Type: session.EventSequence, Snapshot: &session.Snapshot{Symbols: []string{}}},
			wantText: "", wantLast: "", wantSpeech: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr.Apply(tt.event)
			if tr.Text() != tt.wantText {
				t.Errorf("Text() = %q, want %q", tr.Text(), tt.wantText)
			}
			if tr.LastSymbol() != tt.wantLast {
				t.Errorf("LastSymbol() = %q, want %q", tr.LastSymbol(), tt.wantLast)
			}
			if tr.SpeechEnabled() != tt.wantSpeech {
				t.Errorf("SpeechEnabled() = %v, want %v", tr.SpeechEnabled(), tt.wantSpeech)
			}
		})
	}
}

func TestTray_Watch(t *testing.T) {
	tr := New(false)
	events := make(chan session.Event, 2)
	events <- session.Event{Type: session.EventSettings, Snapshot: &session.Snapshot{SpeechEnabled: true}}
	close(events)

	tr.Watch(events)

	if !tr.SpeechEnabled() {
		t.Error("expected speech to be enabled after watching events")
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New(true)

	var got []string
	tr.OnSpeechToggle(func(enabled bool) {
		if enabled {
			got = append(got, "on")
		} else {
			got = append(got, "off")
		}
	})
	tr.OnUndo(func() { got = append(got, "undo") })
	tr.OnClear(func() { got = append(got, "clear") })

	tr.handleSpeech()
	tr.call(func(t *Tray) func() { return t.onUndo })
	tr.call(func(t *Tray) func() { return t.onClear })
	tr.call(func(t *Tray) func() { return t.onOpen }) // unset

	want := []string{"off", "undo", "clear"}
	if len(got) != len(want) {
		t.Fatalf("callbacks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("callback %d = %q, want %q", i, got[i], want[i])
		}
	}
	// The menu only follows the session, not the click.
	if !tr.SpeechEnabled() {
		t.Error("speech state should not change until the session reports it")
	}
}

func TestTitles(t *testing.T) {
	for enabled, want := range map[bool]string{true: "● Speech on", false: "○ Speech off"} {
		if got := speechTitle(enabled); got != want {
			t.Errorf("speechTitle(%v) = %q, want %q", enabled, got, want)
		}
	}
	if lastTitle("") != "Last: none" || lastTitle("ക") != "Last: ക" {
		t.Error("unexpected last symbol titles")
	}
	if textTitle("") != "Text: -" {
		t.Error("unexpected empty text title")
	}
}
