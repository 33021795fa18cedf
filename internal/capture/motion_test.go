package capture

import (
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestNewMotionDetector(t *testing.T) {
	for _, threshold := range []float64{0.5, 1.0, 5.0} {
		md := NewMotionDetector(threshold)
		if md.threshold != threshold {
			t.Errorf("threshold = %f, want %f", md.threshold, threshold)
		}
		if md.hasPrev {
			t.Error("motion detector should start without a baseline")
		}
		md.Close()
	}
}

func TestMotionDetector_Detect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	t.Run("first frame sets baseline", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		detected, changed := md.Detect(&black)
		if detected || changed != 0 {
			t.Errorf("Detect() = %v, %f; want false, 0", detected, changed)
		}
		if !md.hasPrev {
			t.Error("expected baseline after first frame")
		}
	})

	t.Run("identical frames", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		md.Detect(&black)
		if detected, changed := md.Detect(&black); detected {
			t.Errorf("identical frames should not detect motion, changed = %f", changed)
		}
	})

	t.Run("black to white", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		md.Detect(&black)
		detected, changed := md.Detect(&white)
		if !detected {
			t.Errorf("black to white should detect motion, changed = %f", changed)
		}
		if changed < 50 {
			t.Errorf("changed = %f, expected > 50%%", changed)
		}
	})

	t.Run("resolution change", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		small := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
		defer small.Close()

		md.Detect(&black)
		if detected, _ := md.Detect(&small); !detected {
			t.Error("expected a resolution change to count as motion")
		}
	})

	t.Run("reset drops baseline", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		md.Detect(&black)
		md.Reset()
		if detected, _ := md.Detect(&white); detected {
			t.Error("first frame after Reset should not detect motion")
		}
	})
}

func TestMotionDetector_Detect_Empty(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	if detected, _ := md.Detect(nil); detected {
		t.Error("nil frame should not detect motion")
	}
	empty := gocv.NewMat()
	defer empty.Close()
	if detected, _ := md.Detect(&empty); detected {
		t.Error("empty frame should not detect motion")
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	md.SetThreshold(5.0)
	if md.threshold != 5.0 {
		t.Errorf("threshold = %f, want 5.0", md.threshold)
	}

	md.SetThreshold(-1.0)
	if md.threshold != 5.0 {
		t.Errorf("negative threshold should be ignored, got %f", md.threshold)
	}
}

func TestMotionDetector_Close_Multiple(t *testing.T) {
	md := NewMotionDetector(1.0)
	md.Close()
	md.Close()
}

func TestPacer(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	p := NewPacer(5, 15, 2*time.Second)

	steps := []struct {
		name   string
		offset time.Duration
		motion bool
		hands  bool
		want   int
	}{
		{"still at start", 0, false, false, 5},
		{"motion wakes", 100 * time.Millisecond, true, false, 15},
		{"held sign stays active", 3 * time.Second, false, true, 15},
		{"within timeout", 4 * time.Second, false, false, 15},
		{"timeout elapsed", 5 * time.Second, false, false, 5},
	}

	for _, s := range steps {
		if got := p.Observe(base.Add(s.offset), s.motion, s.hands); got != s.want {
			t.Errorf("%s: Observe() = %d, want %d", s.name, got, s.want)
		}
	}
}

func TestNewPacer_Clamps(t *testing.T) {
	p := NewPacer(0, 1, time.Second)
	if p.idle != DefaultFPS || p.active != DefaultFPS {
		t.Errorf("NewPacer(0, 1) = idle %d active %d, want %d/%d", p.idle, p.active, DefaultFPS, DefaultFPS)
	}
}

func TestInterval(t *testing.T) {
	tests := []struct {
		fps  int
		want time.Duration
	}{
		{5, 200 * time.Millisecond},
		{15, time.Second / 15},
		{0, 200 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := Interval(tt.fps); got != tt.want {
			t.Errorf("Interval(%d) = %s, want %s", tt.fps, got, tt.want)
		}
	}
}
