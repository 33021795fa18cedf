package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/features"
)

// Sample is one labeled recording of a sign: either a feature vector or the
// raw hand landmarks it is built from.
type Sample struct {
	Label  string              `json:"label"`
	Vector []float32           `json:"vector,omitempty"`
	Hands  [][]detector.Point3D `json:"hands,omitempty"`
}

// Template is the averaged vector for one label.
type Template struct {
	Label  string          `json:"label"`
	Vector features.Vector `json:"vector"`
}

// TrainTemplates averages samples per label, in label order of first appearance.
// Sample vectors are padded or truncated to features.Len.
func TrainTemplates(samples []Sample) ([]Template, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	var order []string
	sums := make(map[string]*[features.Len]float64)
	counts := make(map[string]int)

	for i, s := range samples {
		if s.Label == "" {
			return nil, fmt.Errorf("sample %d has no label", i)
		}
		var v features.Vector
		switch {
		case len(s.Vector) > 0:
			v, _ = features.FromFlat(s.Vector)
		case len(s.Hands) > 0:
			v, _ = features.Build(s.Hands)
		default:
			return nil, fmt.Errorf("sample %d has no vector or hands", i)
		}

		sum, ok := sums[s.Label]
		if !ok {
			sum = new([features.Len]float64)
			sums[s.Label] = sum
			order = append(order, s.Label)
		}
		for j := range v {
			sum[j] += float64(v[j])
		}
		counts[s.Label]++
	}

	templates := make([]Template, 0, len(order))
	for _, label := range order {
		n := float64(counts[label])
		t := Template{Label: label}
		for j, total := range sums[label] {
			t.Vector[j] = float32(total / n)
		}
		templates = append(templates, t)
	}
	return templates, nil
}

// LoadSamples reads labeled samples from a JSON array file.
func LoadSamples(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("parse samples: %w", err)
	}
	return samples, nil
}

// SaveTemplates writes templates as a JSON array, creating the directory.
func SaveTemplates(path string, ts []Template) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create template dir: %w", err)
	}
	data, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("encode templates: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write templates: %w", err)
	}
	return nil
}

// LoadTemplates reads templates from a JSON array file.
func LoadTemplates(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	var ts []Template
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return ts, nil
}

// TemplateInferencer is a nearest-mean classifier used when no model runtime
// is available. Each class scores 1/(1+d) where d is the euclidean distance
// to its template; scores are normalized to sum to 1. Classes with no
// template score 0.
type TemplateInferencer struct {
	// vectors[i] is the template for class i, nil when missing.
	vectors   []*features.Vector
	sharpness float64
}

// NewTemplateInferencer aligns templates with the label map indices.
func NewTemplateInferencer(templates []Template, labels *LabelMap) (*TemplateInferencer, error) {
	if labels == nil {
		return nil, fmt.Errorf("template inferencer needs a label map")
	}
	size := labels.max + 1
	t := &TemplateInferencer{vectors: make([]*features.Vector, size), sharpness: 8}

	matched := 0
	for i := range templates {
		idx := labels.Index(templates[i].Label)
		if idx < 0 {
			return nil, fmt.Errorf("template label %q is not in the label map", templates[i].Label)
		}
		v := templates[i].Vector
		t.vectors[idx] = &v
		matched++
	}
	if matched == 0 {
		return nil, fmt.Errorf("no templates provided")
	}
	// Output width must equal the label count even when indices have gaps.
	if size != labels.Len() {
		return nil, fmt.Errorf("template inferencer needs contiguous label indices")
	}
	return t, nil
}

// Infer scores input against every template. Scaling is expected to have
// been applied consistently to templates and input.
func (t *TemplateInferencer) Infer(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, _ := features.FromFlat(input)

	scores := make([]float64, len(t.vectors))
	var total float64
	for i, tpl := range t.vectors {
		if tpl == nil {
			continue
		}
		// Raising to a power sharpens the distribution so a close match can
		// clear the confidence threshold.
		s := math.Pow(1/(1+distance(&v, tpl)), t.sharpness)
		scores[i] = s
		total += s
	}

	probs := make([]float32, len(scores))
	if total == 0 {
		return probs, nil
	}
	for i, s := range scores {
		probs[i] = float32(s / total)
	}
	return probs, nil
}

func distance(a, b *features.Vector) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// ScaleTemplates returns copies of templates passed through s, so raw
// recorded templates line up with scaled classifier input.
func ScaleTemplates(ts []Template, s *Scaler) []Template {
	out := make([]Template, len(ts))
	for i, t := range ts {
		out[i] = Template{Label: t.Label, Vector: s.Transform(t.Vector)}
	}
	return out
}
