// Package session drives one authoring session: classified frames go through
// the debouncer into the symbol sequence, every sequence change re-ranks the
// dictionary, and the speech policy decides what gets spoken.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observability"
	"github.com/ayusman/mudra/internal/predictor"
	"github.com/ayusman/mudra/internal/sequence"
	"github.com/ayusman/mudra/internal/speech"
	"github.com/ayusman/mudra/internal/store"
)

var (
	// ErrEmptyWord is returned when a blank word is added or selected.
	ErrEmptyWord = errors.New("empty word")
	// ErrNoRecognizer is returned by HandleFrame when no classifier is wired.
	ErrNoRecognizer = errors.New("no recognizer configured")
)

// Options configures an Engine.
type Options struct {
	Mode          Mode
	Gesture       gesture.Config
	Policy        speech.Policy
	SpeechEnabled bool
	// Journal records the session when set.
	Journal *store.Store
	// SessionID defaults to a random UUID.
	SessionID string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine is the single writer of the debouncer state and the symbol sequence.
// It is not safe for concurrent use; Runner serializes access.
type Engine struct {
	id       string
	mode     Mode
	deb      *gesture.Debouncer
	seq      *sequence.Sequence
	pred     *predictor.Predictor
	rec      *Recognizer
	policy   speech.Policy
	speechOn bool
	journal  *store.Store
	now      func() time.Time

	suggestions []predictor.Suggestion
	status      gesture.Status
	lastSeq     uint64
	confidence  float32
	sink        func(Event)
	log         zerolog.Logger
}

// NewEngine creates an engine. rec may be nil when frames are classified
// elsewhere and only HandleResult is used.
func NewEngine(pred *predictor.Predictor, rec *Recognizer, opts Options) (*Engine, error) {
	if pred == nil {
		return nil, fmt.Errorf("session needs a predictor")
	}
	switch opts.Mode {
	case "":
		opts.Mode = ModeWord
	case ModeWord, ModeLetter:
	default:
		return nil, fmt.Errorf("unknown mode %q", opts.Mode)
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Policy == (speech.Policy{}) {
		opts.Policy = speech.DefaultPolicy()
	}

	e := &Engine{
		id:       opts.SessionID,
		mode:     opts.Mode,
		deb:      gesture.NewDebouncer(opts.Gesture),
		seq:      sequence.New(),
		pred:     pred,
		rec:      rec,
		policy:   opts.Policy,
		speechOn: opts.SpeechEnabled,
		journal:  opts.Journal,
		now:      opts.Now,
		status:   gesture.Status{Kind: gesture.StatusNoHand},
		sink:     func(Event) {},
		log:      observability.WithSession(observability.Logger("session"), opts.SessionID),
	}

	if e.journal != nil {
		err := e.journal.Sessions().Create(context.Background(), &store.Session{
			ID:        e.id,
			Mode:      string(e.mode),
			StartedAt: e.now().UTC(),
		})
		e.journalErr(err, "start session")
	}
	e.log.Info().Str("mode", string(e.mode)).Bool("speech", e.speechOn).Msg("session started")
	return e, nil
}

// SetSink installs the event callback. It runs on the engine's goroutine.
func (e *Engine) SetSink(fn func(Event)) {
	if fn == nil {
		fn = func(Event) {}
	}
	e.sink = fn
}

// ID returns the session ID.
func (e *Engine) ID() string {
	return e.id
}

// Mode returns the recognition mode.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Recognizer returns the recognizer, or nil.
func (e *Engine) Recognizer() *Recognizer {
	return e.rec
}

// HandleFrame classifies f on the calling goroutine and applies the result.
func (e *Engine) HandleFrame(ctx context.Context, f detector.Frame) error {
	if e.rec == nil {
		return ErrNoRecognizer
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = e.now()
	}
	e.HandleResult(e.rec.Recognize(ctx, 0, f))
	return nil
}

// HandleResult feeds one observation through the debouncer. Sequenced
// observations older than the last one handled are dropped.
func (e *Engine) HandleResult(obs Observation) {
	if obs.Seq != 0 {
		if obs.Seq <= e.lastSeq {
			observability.RecordDropped("stale_result")
			return
		}
		e.lastSeq = obs.Seq
	}
	if obs.At.IsZero() {
		obs.At = e.now()
	}

	ev := gesture.Event{Kind: gesture.HandSeen, At: obs.At}
	switch {
	case obs.Hands == 0:
		ev.Kind = gesture.NoHand
	case obs.Err != nil:
		e.log.Warn().Err(obs.Err).Msg("inference failed, frame dropped")
		observability.RecordDropped("inference_error")
	case obs.Classified:
		ev.Kind = gesture.Classified
		ev.Label = obs.Result.Label
		ev.Confidence = obs.Result.Confidence
	}

	out := e.deb.Observe(ev, e.seq.Last())
	e.syncCooldown()
	if out.Status.Kind != gesture.StatusNone {
		e.status = out.Status
		st := out.Status
		e.sink(Event{Type: EventStatus, At: obs.At, Status: &st})
	}
	if ev.Kind == gesture.Classified {
		e.confidence = ev.Confidence
	}
	if out.Confirmed != "" {
		e.confirm(out.Confirmed, obs.At)
	}
}

func (e *Engine) confirm(symbol string, at time.Time) {
	e.seq.Append(symbol)
	observability.RecordSymbol()
	e.log.Info().Str("symbol", symbol).Float32("confidence", e.confidence).Int("length", e.seq.Len()).Msg("symbol confirmed")

	if e.journal != nil {
		err := e.journal.Symbols().Append(context.Background(), &store.Symbol{
			SessionID:   e.id,
			Symbol:      symbol,
			Confidence:  float64(e.confidence),
			ConfirmedAt: at.UTC(),
		})
		e.journalErr(err, "append symbol")
	}

	e.recompute()
	e.publishSequence(at, symbol)

	if e.mode == ModeLetter {
		if e.speechOn {
			e.requestSpeech(symbol, speech.TriggerLetter, at)
		}
		return
	}
	// The cooldown has only just started; the policy sees the state from
	// before the confirmation.
	e.autoSpeak(false, at)
}

// Undo removes the last symbol. It reports the removed symbol, or false when
// the sequence was empty.
func (e *Engine) Undo() (string, bool) {
	at := e.now()
	symbol, ok := e.seq.RemoveLast()
	if !ok {
		return "", false
	}
	if e.journal != nil {
		e.journalErr(e.journal.Symbols().RemoveLast(context.Background(), e.id, at.UTC()), "remove symbol")
	}
	e.log.Debug().Str("symbol", symbol).Msg("symbol removed")

	e.recompute()
	e.publishSequence(at, "")
	if e.mode == ModeWord {
		e.autoSpeak(e.deb.Cooling(at), at)
	}
	return symbol, true
}

// Clear empties the sequence and returns how many symbols were removed.
// The debouncer keeps its state.
func (e *Engine) Clear() int {
	at := e.now()
	n := e.seq.Clear()
	if n == 0 {
		return 0
	}
	if e.journal != nil {
		_, err := e.journal.Symbols().Clear(context.Background(), e.id, at.UTC())
		e.journalErr(err, "clear symbols")
	}
	e.log.Debug().Int("removed", n).Msg("sequence cleared")

	e.recompute()
	e.publishSequence(at, "")
	return n
}

// Select speaks a word the user picked. It reports whether a speech request
// was issued, which only happens while speech is enabled.
func (e *Engine) Select(word string) (bool, error) {
	word = predictor.NormalizeWord(word)
	if word == "" {
		return false, ErrEmptyWord
	}
	if !e.speechOn {
		return false, nil
	}
	e.requestSpeech(word, speech.TriggerManual, e.now())
	return true, nil
}

// AddWord adds a custom dictionary word for this process. It reports whether
// the dictionary changed; suggestions are re-ranked when it did.
func (e *Engine) AddWord(word string) (bool, error) {
	if predictor.NormalizeWord(word) == "" {
		return false, ErrEmptyWord
	}
	if !e.pred.Dictionary().AddCustomWord(word) {
		return false, nil
	}
	if e.seq.Len() > 0 && e.mode == ModeWord {
		e.recompute()
		e.publishSequence(e.now(), "")
	}
	return true, nil
}

// SetSpeech enables or disables speech output.
func (e *Engine) SetSpeech(enabled bool) {
	if e.speechOn == enabled {
		return
	}
	e.speechOn = enabled
	e.log.Info().Bool("speech", enabled).Msg("speech toggled")
	snap := e.Snapshot()
	e.sink(Event{Type: EventSettings, At: e.now(), Snapshot: &snap})
}

// SpeechEnabled reports whether speech output is on.
func (e *Engine) SpeechEnabled() bool {
	return e.speechOn
}

// RecordSpoken stores the outcome of a speech request. Failures are logged
// and never interrupt the session.
func (e *Engine) RecordSpoken(u Utterance, err error) {
	if err != nil {
		u.Error = err.Error()
		e.log.Warn().Err(err).Str("text", u.Text).Msg("speech failed")
	}
	observability.RecordUtterance(u.Trigger, err == nil)

	if e.journal != nil {
		rerr := e.journal.Utterances().Record(context.Background(), &store.Utterance{
			SessionID: e.id,
			Text:      u.Text,
			Trigger:   u.Trigger,
			Success:   err == nil,
			SpokenAt:  u.At.UTC(),
		})
		e.journalErr(rerr, "record utterance")
	}
	e.sink(Event{Type: EventSpoken, At: e.now(), Utterance: &u})
}

// Snapshot returns the presentation view.
func (e *Engine) Snapshot() Snapshot {
	suggestions := make([]predictor.Suggestion, len(e.suggestions))
	copy(suggestions, e.suggestions)
	return Snapshot{
		SessionID:     e.id,
		Mode:          e.mode,
		Symbols:       e.seq.Symbols(),
		Text:          e.seq.String(),
		Suggestions:   suggestions,
		Status:        e.status,
		Phase:         e.deb.State().Phase,
		SpeechEnabled: e.speechOn,
	}
}

// Close ends the session in the journal.
func (e *Engine) Close() {
	if e.journal != nil {
		e.journalErr(e.journal.Sessions().End(context.Background(), e.id, e.now().UTC()), "end session")
	}
	e.log.Info().Int("symbols", e.seq.Len()).Msg("session ended")
}

// syncCooldown tells the recognizer when the current cooldown ends so no
// classification slot is spent inside it.
func (e *Engine) syncCooldown() {
	if e.rec == nil {
		return
	}
	st := e.deb.State()
	if st.Phase != gesture.Cooldown {
		e.rec.SetCooldown(time.Time{})
		return
	}
	e.rec.SetCooldown(st.CooldownStart.Add(e.deb.Config().Cooldown))
}

func (e *Engine) recompute() {
	if e.mode != ModeWord {
		e.suggestions = nil
		return
	}
	e.suggestions = e.pred.Predict(e.seq.Symbols())
}

func (e *Engine) publishSequence(at time.Time, confirmed string) {
	snap := e.Snapshot()
	e.sink(Event{Type: EventSequence, At: at, Confirmed: confirmed, Snapshot: &snap})
}

func (e *Engine) autoSpeak(cooling bool, at time.Time) {
	if speech.ShouldAutoSpeak(e.policy, e.suggestions, e.seq.Len(), e.speechOn, cooling) {
		e.requestSpeech(e.suggestions[0].Word, speech.TriggerAuto, at)
	}
}

func (e *Engine) requestSpeech(text, trigger string, at time.Time) {
	e.log.Debug().Str("text", text).Str("trigger", trigger).Msg("speech requested")
	e.sink(Event{Type: EventSpeak, At: at, Utterance: &Utterance{Text: text, Trigger: trigger, At: at}})
}

func (e *Engine) journalErr(err error, op string) {
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		e.log.Error().Err(err).Str("op", op).Msg("journal write failed")
	}
}
