package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// blurSize is the Gaussian kernel applied before differencing.
	blurSize = 21
	// diffLevel is the per-pixel intensity change that counts as motion.
	diffLevel = 25
	// sampleWidth is the width frames are shrunk to before comparison.
	sampleWidth = 160
)

// MotionDetector measures how much of the picture changed since the previous
// frame. It only paces the camera; it never decides whether a frame is
// classified, since a held sign does not move.
type MotionDetector struct {
	threshold float64
	prev      gocv.Mat
	hasPrev   bool
	mu        sync.Mutex
}

// NewMotionDetector creates a detector. threshold is the percentage of
// pixels that must change, e.g. 1.0 for 1%.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect compares frame with the previous one and returns whether the
// changed share exceeds the threshold, and the share itself in percent.
// The first frame only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	cur := prepare(frame)
	if !m.hasPrev {
		m.prev.Close()
		m.prev = cur
		m.hasPrev = true
		return false, 0
	}
	defer func() {
		m.prev.Close()
		m.prev = cur
	}()

	if cur.Rows() != m.prev.Rows() || cur.Cols() != m.prev.Cols() {
		// Resolution changed; treat it as motion and rebase.
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(cur, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, diffLevel, 255, gocv.ThresholdBinary)

	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return false, 0
	}
	changed := float64(gocv.CountNonZero(mask)) / float64(total) * 100
	return changed > m.threshold, changed
}

// prepare returns a shrunk, blurred grayscale copy of frame.
func prepare(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	if gray.Cols() > sampleWidth {
		small := gocv.NewMat()
		h := gray.Rows() * sampleWidth / gray.Cols()
		gocv.Resize(gray, &small, image.Point{X: sampleWidth, Y: h}, 0, 0, gocv.InterpolationArea)
		gray.Close()
		gray = small
	}

	out := gocv.NewMat()
	gocv.GaussianBlur(gray, &out, image.Point{X: blurSize, Y: blurSize}, 0, 0, gocv.BorderDefault)
	gray.Close()
	return out
}

// Reset drops the baseline so the next frame starts over.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prev.Close()
	m.prev = gocv.NewMat()
	m.hasPrev = false
}

// Close releases the baseline frame. The detector stays usable.
func (m *MotionDetector) Close() {
	m.Reset()
}

// SetThreshold changes the change percentage; values <= 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = threshold
}

// Pacer chooses the capture rate. It stays at the active rate while there
// is motion or a hand in view and falls back to the idle rate once neither
// has been seen for the idle timeout. Not safe for concurrent use.
type Pacer struct {
	idle, active int
	timeout      time.Duration
	lastActive   time.Time
}

// NewPacer creates a pacer. active is raised to idle when lower.
func NewPacer(idleFPS, activeFPS int, idleTimeout time.Duration) *Pacer {
	if idleFPS <= 0 {
		idleFPS = DefaultFPS
	}
	if activeFPS < idleFPS {
		activeFPS = idleFPS
	}
	return &Pacer{idle: idleFPS, active: activeFPS, timeout: idleTimeout}
}

// Observe records what the latest frame showed and returns the rate to
// capture at next.
func (p *Pacer) Observe(now time.Time, motion, hands bool) int {
	if motion || hands {
		p.lastActive = now
	}
	if !p.lastActive.IsZero() && now.Sub(p.lastActive) < p.timeout {
		return p.active
	}
	return p.idle
}

// Interval converts a rate into the delay between captures.
func Interval(fps int) time.Duration {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}
