package app

import (
	"context"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

// runCamera reads frames, finds hands and submits every frame to the
// session. The capture rate follows capture.Pacer: idle until motion or a
// hand shows up, active while either lasts.
func (a *App) runCamera(ctx context.Context) {
	pacer := capture.NewPacer(a.cfg.Camera.IdleFPS, a.cfg.Camera.ActiveFPS, a.cfg.Camera.IdleTimeout)
	fps := a.cfg.Camera.IdleFPS
	a.camera.SetFPS(fps)

	timer := time.NewTimer(capture.Interval(fps))
	defer timer.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			failures++
			// Log the first failure and then once a second's worth at idle rate.
			if failures == 1 || failures%a.cfg.Camera.IdleFPS == 0 {
				a.log.Warn().Err(err).Int("failures", failures).Msg("camera read failed")
			}
			timer.Reset(capture.Interval(fps))
			continue
		}
		failures = 0

		now := time.Now()
		motion, hands := a.processFrame(frame, now)
		frame.Close()

		if next := pacer.Observe(now, motion, hands); next != fps {
			a.log.Debug().Int("from", fps).Int("to", next).Msg("capture rate changed")
			fps = next
			a.camera.SetFPS(fps)
		}
		timer.Reset(capture.Interval(fps))
	}
}

// processFrame runs motion and hand detection on one frame and submits the
// result. It reports whether there was motion and whether a hand was found.
// Frames whose detection fails are not submitted.
func (a *App) processFrame(frame *gocv.Mat, at time.Time) (motion, hands bool) {
	if a.motion != nil {
		motion, _ = a.motion.Detect(frame)
	}
	a.preview.update(frame)

	found, err := a.detector.Detect(frame)
	if err != nil {
		a.log.Warn().Err(err).Msg("hand detection failed, frame dropped")
		return motion, false
	}

	a.runner.SubmitFrame(detector.NewFrame(found, frame.Cols(), frame.Rows(), at))
	return motion, len(found) > 0
}

// preview keeps the most recent frame encoded for the MJPEG stream.
type preview struct {
	mu    sync.Mutex
	jpeg  []byte
	count uint64
}

func (p *preview) update(frame *gocv.Mat) {
	buf, err := capture.EncodeJPEG(frame)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.jpeg = buf
	p.count++
	p.mu.Unlock()
}

func (p *preview) latest() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.count
}
