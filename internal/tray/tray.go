// Package tray provides the system tray menu for the Mudra sign recognizer.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/session"
)

// Tray is the system tray menu. Callbacks run on the menu goroutine.
type Tray struct {
	onSpeech func(enabled bool)
	onUndo   func()
	onClear  func()
	onOpen   func()
	onQuit   func()

	mu     sync.RWMutex
	speech bool
	last   string
	text   string

	// Menu items stored for later updates
	menuSpeech *systray.MenuItem
	menuLast   *systray.MenuItem
	menuText   *systray.MenuItem
}

// New creates a Tray reflecting the initial speech state.
func New(speechEnabled bool) *Tray {
	return &Tray{speech: speechEnabled}
}

// OnSpeechToggle sets the callback for the speech menu item.
func (t *Tray) OnSpeechToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSpeech = fn
}

// OnUndo sets the callback for removing the last symbol.
func (t *Tray) OnUndo(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUndo = fn
}

// OnClear sets the callback for clearing the sequence.
func (t *Tray) OnClear(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClear = fn
}

// OnOpen sets the callback for opening the web interface.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra - Malayalam sign recognition")

	t.mu.Lock()
	t.menuText = systray.AddMenuItem(textTitle(t.text), "Current sequence")
	t.menuText.Disable()
	t.menuLast = systray.AddMenuItem(lastTitle(t.last), "Last confirmed symbol")
	t.menuLast.Disable()
	systray.AddSeparator()

	t.menuSpeech = systray.AddMenuItem(speechTitle(t.speech), "Toggle speech output")
	t.mu.Unlock()

	menuUndo := systray.AddMenuItem("Undo", "Remove the last symbol")
	menuClear := systray.AddMenuItem("Clear", "Clear the sequence")
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Mudra...", "Open the interface in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuSpeech.ClickedCh:
				t.handleSpeech()
			case <-menuUndo.ClickedCh:
				t.call(func(t *Tray) func() { return t.onUndo })
			case <-menuClear.ClickedCh:
				t.call(func(t *Tray) func() { return t.onClear })
			case <-menuOpen.ClickedCh:
				t.call(func(t *Tray) func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func(t *Tray) func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// handleSpeech flips the speech state and reports it. The menu title follows
// once the session confirms the change.
func (t *Tray) handleSpeech() {
	t.mu.RLock()
	enabled := !t.speech
	callback := t.onSpeech
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) call(pick func(*Tray) func()) {
	t.mu.RLock()
	callback := pick(t)
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// Watch applies session events to the menu until events is closed.
func (t *Tray) Watch(events <-chan session.Event) {
	for ev := range events {
		t.Apply(ev)
	}
}

// Apply updates the menu from one session event.
func (t *Tray) Apply(ev session.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Type {
	case session.EventSequence, session.EventSnapshot:
		if ev.Snapshot == nil {
			return
		}
		t.text = ev.Snapshot.Text
		t.speech = ev.Snapshot.SpeechEnabled
		t.last = ""
		if n := len(ev.Snapshot.Symbols); n > 0 {
			t.last = ev.Snapshot.Symbols[n-1]
		}
	case session.EventSettings:
		if ev.Snapshot != nil {
			t.speech = ev.Snapshot.SpeechEnabled
		}
	default:
		return
	}
	t.refresh()
}

// refresh pushes the state into the menu items; callers hold t.mu.
func (t *Tray) refresh() {
	if t.menuSpeech == nil {
		return
	}
	t.menuSpeech.SetTitle(speechTitle(t.speech))
	t.menuLast.SetTitle(lastTitle(t.last))
	t.menuText.SetTitle(textTitle(t.text))
}

// SpeechEnabled returns the speech state shown in the menu.
func (t *Tray) SpeechEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.speech
}

// LastSymbol returns the last symbol of the sequence shown in the menu.
func (t *Tray) LastSymbol() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// Text returns the sequence shown in the menu.
func (t *Tray) Text() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.text
}

func speechTitle(enabled bool) string {
	if enabled {
		return "● Speech on"
	}
	return "○ Speech off"
}

func lastTitle(symbol string) string {
	if symbol == "" {
		return "Last: none"
	}
	return "Last: " + symbol
}

func textTitle(text string) string {
	if text == "" {
		return "Text: -"
	}
	return "Text: " + text
}
