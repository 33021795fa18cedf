package detector

import (
	"errors"
	"math"
	"testing"
	"time"
)

const epsilon = 1e-9

func TestHandLandmarks_WristRelative(t *testing.T) {
	t.Run("wrist at origin and offsets preserved", func(t *testing.T) {
		hand := HandLandmarks{Handedness: "Left", Score: 0.8}
		for i := 0; i < NumLandmarks; i++ {
			hand.Points[i] = Point3D{X: 0.3 + float64(i)*0.01, Y: 0.6 - float64(i)*0.02, Z: float64(i) * 0.001}
		}

		rel := hand.WristRelative()

		if rel.Points[Wrist] != (Point3D{}) {
			t.Errorf("expected wrist at origin, got %+v", rel.Points[Wrist])
		}
		want := hand.Points[IndexTip].Sub(hand.Points[Wrist])
		got := rel.Points[IndexTip]
		if math.Abs(got.X-want.X) > epsilon || math.Abs(got.Y-want.Y) > epsilon || math.Abs(got.Z-want.Z) > epsilon {
			t.Errorf("index tip = %+v, want %+v", got, want)
		}
		if rel.Handedness != "Left" || rel.Score != 0.8 {
			t.Errorf("metadata not preserved: %+v", rel)
		}
	})

	t.Run("nil receiver", func(t *testing.T) {
		var h *HandLandmarks
		if h.WristRelative() != nil {
			t.Error("expected nil for nil receiver")
		}
		if h.Slice() != nil {
			t.Error("expected nil slice for nil receiver")
		}
	})
}

func TestNewFrame(t *testing.T) {
	palm := OpenPalmLandmarks()
	ts := time.Unix(100, 0)
	f := NewFrame([]HandLandmarks{palm}, 640, 480, ts)

	if !f.HasHands() {
		t.Fatal("expected frame to carry hands")
	}
	if len(f.Hands[0]) != NumLandmarks {
		t.Fatalf("expected %d points, got %d", NumLandmarks, len(f.Hands[0]))
	}
	if f.Hands[0][IndexTip] != palm.Points[IndexTip] {
		t.Error("points not copied in order")
	}

	// Mutating the frame must not touch the source hand.
	f.Hands[0][Wrist].X = 99
	if palm.Points[Wrist].X == 99 {
		t.Error("frame aliases detector output")
	}

	empty := NewFrame(nil, 0, 0, ts)
	if empty.HasHands() {
		t.Error("expected empty frame")
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{ThumbsUpLandmarks()})

		hands, err := mock.Detect(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
	})

	t.Run("queue drains before steady hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands(nil)
		mock.Enqueue(OpenPalmLandmarks(), FistLandmarks())
		mock.Enqueue()

		first, _ := mock.Detect(nil)
		second, _ := mock.Detect(nil)
		third, _ := mock.Detect(nil)

		if len(first) != 2 {
			t.Errorf("expected 2 hands first, got %d", len(first))
		}
		if len(second) != 0 || len(third) != 0 {
			t.Errorf("expected no hands afterwards, got %d and %d", len(second), len(third))
		}
		if mock.Calls() != 3 {
			t.Errorf("expected 3 calls, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		want := errors.New("camera gone")
		mock.SetError(want)

		if _, err := mock.Detect(nil); !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	})

	t.Run("close", func(t *testing.T) {
		mock := NewMockDetector()
		if err := mock.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if !mock.Closed() {
			t.Error("expected closed")
		}
	})
}

func TestSyntheticHands(t *testing.T) {
	tests := []struct {
		name     string
		hand     HandLandmarks
		extended bool // index finger
	}{
		{"thumbs up", ThumbsUpLandmarks(), false},
		{"open palm", OpenPalmLandmarks(), true},
		{"fist", FistLandmarks(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrist := tt.hand.Points[Wrist]
			mcp := tt.hand.Points[IndexMCP]
			tip := tt.hand.Points[IndexTip]

			// Image y grows downwards: an extended finger ends above its knuckle.
			if got := tip.Y < mcp.Y; got != tt.extended {
				t.Errorf("index extended = %v, want %v", got, tt.extended)
			}
			if mcp.Y >= wrist.Y {
				t.Error("knuckles should sit above the wrist")
			}
		})
	}

	thumbs := ThumbsUpLandmarks()
	if thumbs.Points[ThumbTip].Y >= thumbs.Points[ThumbMCP].Y {
		t.Error("thumb should be extended for thumbs up")
	}
}

func TestDecodeResponse(t *testing.T) {
	good := `{"x":0.1,"y":0.2,"z":0}`
	points := good
	for i := 1; i < NumLandmarks; i++ {
		points += "," + good
	}

	tests := []struct {
		name    string
		line    string
		want    int
		wantErr bool
	}{
		{"no hands", `{"hands":[]}`, 0, false},
		{"one hand", `{"hands":[{"points":[` + points + `],"handedness":"Right","score":0.9}]}`, 1, false},
		{"short hand dropped", `{"hands":[{"points":[` + good + `]}]}`, 0, false},
		{"service error", `{"error":"model missing"}`, 0, true},
		{"garbage", `not json`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hands, err := decodeResponse([]byte(tt.line))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(hands) != tt.want {
				t.Errorf("expected %d hands, got %d", tt.want, len(hands))
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxHands != MaxHands {
		t.Errorf("MaxHands = %d, want %d", cfg.MaxHands, MaxHands)
	}
	if cfg.MinConfidence != 0.7 || cfg.MinTrackingConf != 0.5 {
		t.Errorf("unexpected confidences: %+v", cfg)
	}
}
