// Package classifier wraps an opaque sign model behind a small capability
// interface and turns its probability output into a thresholded label.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/observability"
)

// DefaultThreshold is the minimum probability (exclusive) for a confident label.
const DefaultThreshold = 0.75

var (
	// ErrOutputSize is returned when the model output does not match the label map.
	ErrOutputSize = errors.New("classifier output size does not match label map")
	// ErrNotInitialized is returned by inferencers used after Close or before setup.
	ErrNotInitialized = errors.New("inferencer is not initialized")
)

// Inferencer runs the sign model: a scaled feature vector in, one probability
// per class out.
type Inferencer interface {
	Infer(ctx context.Context, input []float32) ([]float32, error)
}

// InferFunc adapts a plain function to Inferencer.
type InferFunc func(ctx context.Context, input []float32) ([]float32, error)

// Infer calls f.
func (f InferFunc) Infer(ctx context.Context, input []float32) ([]float32, error) {
	return f(ctx, input)
}

// Result is one classification. Label is empty when the best probability did
// not clear the threshold; Confidence is reported either way.
type Result struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
}

// Empty reports whether the result carries no confident label.
func (r Result) Empty() bool {
	return r.Label == ""
}

// Classifier applies scaling, inference, argmax and the confidence threshold.
type Classifier struct {
	inf       Inferencer
	scaler    *Scaler
	labels    *LabelMap
	threshold float32
}

// New creates a classifier. A nil scaler means identity scaling and a
// non-positive threshold selects DefaultThreshold.
func New(inf Inferencer, scaler *Scaler, labels *LabelMap, threshold float64) (*Classifier, error) {
	if inf == nil {
		return nil, ErrNotInitialized
	}
	if labels == nil {
		return nil, fmt.Errorf("classifier needs a label map")
	}
	if scaler == nil {
		scaler = IdentityScaler()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Classifier{
		inf:       inf,
		scaler:    scaler,
		labels:    labels,
		threshold: float32(threshold),
	}, nil
}

// Labels returns the label map in use.
func (c *Classifier) Labels() *LabelMap {
	return c.labels
}

// Classify scores one feature vector.
func (c *Classifier) Classify(ctx context.Context, v features.Vector) (Result, error) {
	start := time.Now()
	scaled := c.scaler.Transform(v)

	probs, err := c.inf.Infer(ctx, scaled[:])
	if err != nil {
		observability.RecordClassification("error", time.Since(start))
		return Result{}, fmt.Errorf("infer: %w", err)
	}
	if len(probs) != c.labels.Len() {
		observability.RecordClassification("error", time.Since(start))
		return Result{}, fmt.Errorf("%w: got %d, want %d", ErrOutputSize, len(probs), c.labels.Len())
	}

	idx, conf := Argmax(probs)
	res := Result{Confidence: conf}
	if conf > c.threshold {
		res.Label = c.labels.Label(idx)
		observability.RecordClassification("accepted", time.Since(start))
	} else {
		observability.RecordClassification("rejected", time.Since(start))
	}
	return res, nil
}

// Argmax returns the index and value of the largest element. The lowest index
// wins ties. An empty slice yields (-1, 0).
func Argmax(values []float32) (int, float32) {
	if len(values) == 0 {
		return -1, 0
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best, values[best]
}
