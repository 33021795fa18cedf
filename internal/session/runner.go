package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/mailbox"
	"github.com/ayusman/mudra/internal/observability"
	"github.com/ayusman/mudra/internal/speech"
)

// ErrStopped is returned by Do once Run has returned.
var ErrStopped = errors.New("session runner stopped")

type frameJob struct {
	seq   uint64
	frame detector.Frame
}

type command struct {
	fn   func(*Engine)
	done chan struct{}
}

// Runner owns an Engine and the goroutines around it: an inference worker
// fed through a single-slot frame mailbox, a consumer loop that alone calls
// the engine, and an optional speech worker that keeps only the latest
// request.
type Runner struct {
	eng     *Engine
	speaker speech.Speaker

	frames  *mailbox.Slot[frameJob]
	results *mailbox.Slot[Observation]
	speak   *mailbox.Slot[Utterance]
	cmds    chan command

	frameSeq atomic.Uint64
	snap     atomic.Pointer[Snapshot]
	running  atomic.Bool
	done     chan struct{}

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int

	log zerolog.Logger
}

// NewRunner wraps eng. A nil speaker turns speech requests into events only.
func NewRunner(eng *Engine, speaker speech.Speaker) *Runner {
	r := &Runner{
		eng:     eng,
		speaker: speaker,
		frames:  mailbox.New[frameJob](),
		results: mailbox.New[Observation](),
		speak:   mailbox.New[Utterance](),
		cmds:    make(chan command),
		done:    make(chan struct{}),
		subs:    make(map[int]chan Event),
		log:     observability.Logger("runner"),
	}
	snap := eng.Snapshot()
	r.snap.Store(&snap)
	eng.SetSink(r.publish)
	return r
}

// Run starts the workers and blocks until ctx is cancelled. It may be called
// once.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return errors.New("session runner already started")
	}
	defer close(r.done)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.inferenceLoop(ctx)
	}()
	if r.speaker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.speechLoop(ctx)
		}()
	}

	r.log.Info().Str("session", r.eng.ID()).Msg("session runner started")
	r.consumeLoop(ctx)
	wg.Wait()

	r.eng.Close()
	r.closeSubscribers()
	r.log.Info().Msg("session runner stopped")
	return ctx.Err()
}

// SubmitFrame hands a frame to the inference worker, replacing any frame it
// has not picked up yet. It never blocks and returns the frame's sequence
// number.
func (r *Runner) SubmitFrame(f detector.Frame) uint64 {
	if f.Timestamp.IsZero() {
		f.Timestamp = r.eng.now()
	}
	seq := r.frameSeq.Add(1)
	if r.frames.Put(frameJob{seq: seq, frame: f}) {
		observability.RecordDropped("superseded_frame")
	}
	return seq
}

// Do runs fn on the consumer goroutine and waits for it to finish.
func (r *Runner) Do(ctx context.Context, fn func(*Engine)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case r.cmds <- cmd:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the state as of the last engine change. It does not wait
// for the consumer goroutine.
func (r *Runner) Snapshot() Snapshot {
	return *r.snap.Load()
}

// Subscribe registers for events. Slow subscribers miss events rather than
// stall the session. The returned func unsubscribes.
func (r *Runner) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	r.subMu.Lock()
	id := r.nextID
	r.nextID++
	if r.subs == nil {
		close(ch)
	} else {
		r.subs[id] = ch
	}
	r.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.subMu.Lock()
			defer r.subMu.Unlock()
			if c, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(c)
			}
		})
	}
}

func (r *Runner) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.results.Ready():
			if obs, ok := r.results.Take(); ok {
				r.eng.HandleResult(obs)
				r.storeSnapshot()
			}
		case cmd := <-r.cmds:
			cmd.fn(r.eng)
			r.storeSnapshot()
			close(cmd.done)
		}
	}
}

func (r *Runner) inferenceLoop(ctx context.Context) {
	rec := r.eng.Recognizer()
	if rec == nil {
		rec = NewRecognizer(nil, 0)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.frames.Ready():
		}
		job, ok := r.frames.Take()
		if !ok {
			continue
		}
		obs := rec.Recognize(ctx, job.seq, job.frame)
		if r.results.Put(obs) {
			observability.RecordDropped("superseded_result")
		}
	}
}

func (r *Runner) speechLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.speak.Ready():
		}
		u, ok := r.speak.Take()
		if !ok {
			continue
		}
		err := r.speaker.Speak(ctx, u.Text)
		if ctx.Err() != nil {
			return
		}
		if derr := r.Do(ctx, func(e *Engine) { e.RecordSpoken(u, err) }); derr != nil {
			return
		}
	}
}

// publish runs on the consumer goroutine via the engine sink.
func (r *Runner) publish(ev Event) {
	if ev.Type == EventSpeak && r.speaker != nil && ev.Utterance != nil {
		if r.speak.Put(*ev.Utterance) {
			observability.RecordDropped("superseded_speech")
		}
	}

	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (r *Runner) storeSnapshot() {
	snap := r.eng.Snapshot()
	r.snap.Store(&snap)
}

func (r *Runner) closeSubscribers() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
	r.subs = nil
}
