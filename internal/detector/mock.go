package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// Queued results are returned in order; once the queue drains the last
// configured hands are repeated.
type MockDetector struct {
	mu     sync.Mutex
	queue  [][]HandLandmarks
	hands  []HandLandmarks
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// Enqueue appends one detection result to be returned before the steady hands.
func (m *MockDetector) Enqueue(hands ...HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, hands)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next queued result, the configured hands, or the error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.hands, nil
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// fingerBases are the MCP joints of thumb, index, middle, ring and pinky
// relative to the wrist for a right hand facing the camera.
var fingerBases = [5]Point3D{
	{X: 0.05, Y: -0.05, Z: 0.02},
	{X: 0.05, Y: -0.12},
	{X: 0.00, Y: -0.14},
	{X: -0.05, Y: -0.12},
	{X: -0.10, Y: -0.10},
}

// SyntheticHand builds a plausible right hand anchored at wrist. extended
// selects which fingers (thumb first) point outwards; the rest curl back
// towards the palm.
func SyntheticHand(wrist Point3D, extended [5]bool) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}
	h.Points[Wrist] = wrist

	for f, base := range fingerBases {
		dir := Point3D{X: base.X * 0.4, Y: -0.04, Z: 0}
		if f == 0 {
			dir = Point3D{X: 0.04, Y: -0.03, Z: 0.01}
		}
		if !extended[f] {
			dir = Point3D{X: -dir.X * 0.5, Y: 0.03, Z: -0.03}
		}
		first := 1 + f*4
		p := Point3D{X: wrist.X + base.X, Y: wrist.Y + base.Y, Z: wrist.Z + base.Z}
		for j := 0; j < 4; j++ {
			h.Points[first+j] = p
			p = Point3D{X: p.X + dir.X, Y: p.Y + dir.Y, Z: p.Z + dir.Z}
		}
	}
	return h
}

// ThumbsUpLandmarks returns a right hand with only the thumb extended.
func ThumbsUpLandmarks() HandLandmarks {
	return SyntheticHand(Point3D{X: 0.5, Y: 0.8}, [5]bool{true, false, false, false, false})
}

// OpenPalmLandmarks returns a right hand with every finger extended.
func OpenPalmLandmarks() HandLandmarks {
	return SyntheticHand(Point3D{X: 0.5, Y: 0.8}, [5]bool{true, true, true, true, true})
}

// FistLandmarks returns a right hand with every finger curled.
func FistLandmarks() HandLandmarks {
	return SyntheticHand(Point3D{X: 0.5, Y: 0.8}, [5]bool{})
}
