// Package detector provides hand landmark types and the hand detection
// collaborators that feed the recognition pipeline.
package detector

import "time"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// MaxHands is the number of hand slots the pipeline tracks per frame.
const MaxHands = 2

// Point3D is a single landmark: x and y normalized to the image, z a unitless depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns p - o component-wise.
func (p Point3D) Sub(o Point3D) Point3D {
	return Point3D{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Slice returns the landmarks as a freshly allocated slice.
func (h *HandLandmarks) Slice() []Point3D {
	if h == nil {
		return nil
	}
	out := make([]Point3D, NumLandmarks)
	copy(out, h.Points[:])
	return out
}

// WristRelative returns a copy of the hand translated so the wrist sits at the origin.
// Unlike a full normalization it does not rescale; the sign model is trained on
// raw wrist offsets.
func (h *HandLandmarks) WristRelative() *HandLandmarks {
	if h == nil {
		return nil
	}
	out := &HandLandmarks{Handedness: h.Handedness, Score: h.Score}
	wrist := h.Points[Wrist]
	for i := range h.Points {
		out.Points[i] = h.Points[i].Sub(wrist)
	}
	return out
}

// Frame is one processed camera frame as delivered by the landmark collaborator.
// Hands holds the raw per-hand landmark lists; a well-formed hand has exactly
// NumLandmarks points, anything else is treated as absent downstream.
type Frame struct {
	Hands     [][]Point3D `json:"hands"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Timestamp time.Time   `json:"-"`
}

// NewFrame builds a Frame from detector output.
func NewFrame(hands []HandLandmarks, width, height int, ts time.Time) Frame {
	f := Frame{
		Hands:     make([][]Point3D, 0, len(hands)),
		Width:     width,
		Height:    height,
		Timestamp: ts,
	}
	for i := range hands {
		f.Hands = append(f.Hands, hands[i].Slice())
	}
	return f
}

// HasHands reports whether the frame carries any hand at all.
func (f Frame) HasHands() bool {
	return len(f.Hands) > 0
}
