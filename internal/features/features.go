// Package features turns per-frame hand landmarks into the fixed-length,
// wrist-relative vector the sign classifier consumes.
package features

import "github.com/ayusman/mudra/internal/detector"

const (
	// HandSlots is the number of hands encoded per vector.
	HandSlots = detector.MaxHands
	// SegmentLen is the width of one coordinate segment (one value per landmark).
	SegmentLen = detector.NumLandmarks
	// HandLen is the width of one hand block: x, y and z segments back to back.
	HandLen = 3 * SegmentLen
	// Len is the total vector length.
	Len = HandSlots * HandLen
)

// Vector is one frame's encoded landmarks. Layout per hand slot h:
//
//	[h*63 + 0  .. h*63 + 20]  x offsets from the wrist
//	[h*63 + 21 .. h*63 + 41]  y offsets
//	[h*63 + 42 .. h*63 + 62]  z offsets
//
// Absent hands are all zeros.
type Vector [Len]float32

// Slice returns a copy of the vector as a slice.
func (v Vector) Slice() []float32 {
	out := make([]float32, Len)
	copy(out, v[:])
	return out
}

// At returns the (x, y, z) triplet for landmark i of hand slot h.
func (v *Vector) At(h, i int) (x, y, z float32) {
	base := h * HandLen
	return v[base+i], v[base+SegmentLen+i], v[base+2*SegmentLen+i]
}

// Build encodes up to HandSlots hands. A hand keeps its input position as its
// slot; hands without exactly NumLandmarks points leave their slot zeroed and
// hands past the last slot are ignored. skipped counts both cases so callers
// can log malformed input.
func Build(hands [][]detector.Point3D) (v Vector, skipped int) {
	for h, pts := range hands {
		if h >= HandSlots || len(pts) != detector.NumLandmarks {
			skipped++
			continue
		}
		var hand detector.HandLandmarks
		copy(hand.Points[:], pts)
		writeHand(&v, h, &hand)
	}
	return v, skipped
}

// FromHands encodes detector output directly.
func FromHands(hands []detector.HandLandmarks) Vector {
	var v Vector
	for h := range hands {
		if h >= HandSlots {
			break
		}
		writeHand(&v, h, &hands[h])
	}
	return v
}

func writeHand(v *Vector, slot int, hand *detector.HandLandmarks) {
	base := slot * HandLen
	for i, p := range hand.WristRelative().Points {
		v[base+i] = float32(p.X)
		v[base+SegmentLen+i] = float32(p.Y)
		v[base+2*SegmentLen+i] = float32(p.Z)
	}
}

// FromFlat reshapes an arbitrary-length raw vector to Len, truncating extra
// values and zero-padding missing ones. ok is false when a reshape happened.
func FromFlat(raw []float32) (v Vector, ok bool) {
	copy(v[:], raw)
	return v, len(raw) == Len
}
