package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observability"
)

// Observation is one frame after the classifier call site: either classified,
// skipped by the throttle, or without hands.
type Observation struct {
	// Seq orders observations. Zero means unsequenced.
	Seq        uint64
	At         time.Time
	Hands      int
	Classified bool
	Result     classifier.Result
	Err        error
}

// Recognizer turns frames into observations, invoking the classifier at most
// once per interval and never while the debouncer cools down.
type Recognizer struct {
	cls      *classifier.Classifier
	throttle *gesture.Throttle
	// coolUntil is the cooldown deadline in Unix nanoseconds, zero when
	// not cooling. The engine writes it; the inference worker reads it.
	coolUntil atomic.Int64
	log       zerolog.Logger
}

// NewRecognizer creates a recognizer. A nil classifier never classifies,
// so the debouncer only sees hand presence.
func NewRecognizer(cls *classifier.Classifier, interval time.Duration) *Recognizer {
	return &Recognizer{
		cls:      cls,
		throttle: gesture.NewThrottle(interval),
		log:      observability.Logger("recognizer"),
	}
}

// Recognize builds the feature vector for f and classifies it when allowed.
// Inference errors are carried on the observation, not returned.
func (r *Recognizer) Recognize(ctx context.Context, seq uint64, f detector.Frame) Observation {
	obs := Observation{Seq: seq, At: f.Timestamp, Hands: len(f.Hands)}
	observability.RecordFrame(obs.Hands > 0)

	if obs.Hands == 0 || r.cls == nil {
		return obs
	}
	if r.Cooling(f.Timestamp) {
		// Frames inside the cooldown only advance its clock.
		return obs
	}
	if !r.throttle.Allow(f.Timestamp) {
		return obs
	}

	vec, skipped := features.Build(f.Hands)
	if skipped > 0 {
		r.log.Debug().Int("skipped", skipped).Int("hands", obs.Hands).Msg("malformed hands zero-filled")
	}

	obs.Classified = true
	obs.Result, obs.Err = r.cls.Classify(ctx, vec)
	return obs
}

// SetCooldown records when the debouncer's cooldown ends. A zero time clears
// it.
func (r *Recognizer) SetCooldown(until time.Time) {
	if until.IsZero() {
		r.coolUntil.Store(0)
		return
	}
	r.coolUntil.Store(until.UnixNano())
}

// Cooling reports whether t falls before the recorded cooldown deadline.
func (r *Recognizer) Cooling(t time.Time) bool {
	until := r.coolUntil.Load()
	return until != 0 && t.UnixNano() < until
}
