// Package speech decides when recognized words are spoken and hands them to
// an output plugin.
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/observability"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/predictor"
)

// Triggers recorded with each utterance.
const (
	TriggerAuto   = "auto"
	TriggerManual = "manual"
	TriggerLetter = "letter"
)

// Speaker speaks text. Implementations block until playback finishes or fails.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Policy holds the auto-speak thresholds.
type Policy struct {
	// MinScore is the exclusive score a non-exact top suggestion must beat.
	MinScore int
	// MinSymbols is the sequence length a non-exact top suggestion needs.
	MinSymbols int
}

// DefaultPolicy returns the thresholds used by the word screen.
func DefaultPolicy() Policy {
	return Policy{MinScore: 40, MinSymbols: 2}
}

// ShouldAutoSpeak reports whether the top suggestion should be spoken without
// an explicit selection: speech must be enabled, the debouncer must not be
// cooling down, and the top suggestion must be an exact match or score above
// MinScore with at least MinSymbols symbols entered.
func ShouldAutoSpeak(p Policy, suggestions []predictor.Suggestion, seqLen int, enabled, cooling bool) bool {
	if !enabled || cooling || len(suggestions) == 0 {
		return false
	}
	top := suggestions[0]
	return top.ExactMatch || (seqLen >= p.MinSymbols && top.Score > p.MinScore)
}

// PluginSpeaker hands text to an output plugin. It speaks by default; a
// typist sends the same text with the type action instead.
type PluginSpeaker struct {
	manager  *plugin.Manager
	executor *plugin.Executor
	name     string
	action   string
	language string
	log      zerolog.Logger
}

// NewPluginSpeaker creates a speaker that prefers the named plugin.
func NewPluginSpeaker(manager *plugin.Manager, executor *plugin.Executor, name, language string) *PluginSpeaker {
	return &PluginSpeaker{
		manager:  manager,
		executor: executor,
		name:     name,
		action:   plugin.ActionSpeak,
		language: language,
		log:      observability.Logger("speech"),
	}
}

// NewPluginTypist creates a Speaker that types text through the named
// plugin, e.g. into the focused application.
func NewPluginTypist(manager *plugin.Manager, executor *plugin.Executor, name string) *PluginSpeaker {
	s := NewPluginSpeaker(manager, executor, name, "")
	s.action = plugin.ActionType
	return s
}

// Speak runs the plugin. A plugin-reported failure is returned as an error.
func (s *PluginSpeaker) Speak(ctx context.Context, text string) error {
	p, err := s.manager.Find(s.name, s.action)
	if err != nil {
		return fmt.Errorf("%s plugin %q: %w", s.action, s.name, err)
	}

	start := time.Now()
	resp, err := s.executor.Execute(ctx, p, &plugin.Request{
		Action:   s.action,
		Text:     text,
		Language: s.language,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s plugin %s: %s", s.action, p.Manifest.Name, resp.Error)
	}
	s.log.Debug().Str("plugin", p.Manifest.Name).Str("action", s.action).Dur("took", time.Since(start)).Msg("delivered")
	return nil
}

// Multi delivers text to every Speaker in order. All are tried; their
// errors are joined.
type Multi []Speaker

// Speak implements Speaker.
func (m Multi) Speak(ctx context.Context, text string) error {
	var errs []error
	for _, s := range m {
		if err := s.Speak(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder is a Speaker that remembers what it was asked to say. It is used
// when no audio output is configured and by tests.
type Recorder struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

// Speak records text.
func (r *Recorder) Speak(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
	return r.err
}

// SetError makes later calls fail with err after recording.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Spoken returns a copy of everything spoken so far.
func (r *Recorder) Spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.spoken))
	copy(out, r.spoken)
	return out
}
