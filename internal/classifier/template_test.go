package classifier

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/features"
)

func sampleOf(label string, hand detector.HandLandmarks, jitter float32) Sample {
	v := features.FromHands([]detector.HandLandmarks{hand})
	out := v.Slice()
	for i := range out {
		if out[i] != 0 {
			out[i] += jitter
		}
	}
	return Sample{Label: label, Vector: out}
}

func TestTrainTemplates(t *testing.T) {
	t.Run("averages per label", func(t *testing.T) {
		samples := []Sample{
			{Label: "a", Vector: []float32{1, 2}},
			{Label: "b", Vector: []float32{5}},
			{Label: "a", Vector: []float32{3, 4}},
		}
		ts, err := TrainTemplates(samples)
		if err != nil {
			t.Fatalf("train: %v", err)
		}
		if len(ts) != 2 || ts[0].Label != "a" || ts[1].Label != "b" {
			t.Fatalf("unexpected templates: %+v", ts)
		}
		if ts[0].Vector[0] != 2 || ts[0].Vector[1] != 3 {
			t.Errorf("a = %v %v, want 2 3", ts[0].Vector[0], ts[0].Vector[1])
		}
		if ts[1].Vector[0] != 5 || ts[1].Vector[1] != 0 {
			t.Errorf("b not padded: %v", ts[1].Vector[:2])
		}
	})

	t.Run("errors", func(t *testing.T) {
		if _, err := TrainTemplates(nil); err == nil {
			t.Error("expected error for no samples")
		}
		if _, err := TrainTemplates([]Sample{{Vector: []float32{1}}}); err == nil {
			t.Error("expected error for missing label")
		}
		if _, err := TrainTemplates([]Sample{{Label: "a"}}); err == nil {
			t.Error("expected error for empty vector")
		}
	})

	t.Run("landmark samples", func(t *testing.T) {
		hand := detector.FistLandmarks()
		ts, err := TrainTemplates([]Sample{{Label: "fist", Hands: [][]detector.Point3D{hand.Slice()}}})
		if err != nil {
			t.Fatalf("train: %v", err)
		}
		if want := features.FromHands([]detector.HandLandmarks{hand}); ts[0].Vector != want {
			t.Error("landmark sample not encoded like detector output")
		}
	})
}

func TestSamplesAndTemplateFiles(t *testing.T) {
	dir := t.TempDir()
	samplesPath := filepath.Join(dir, "samples.json")
	hand := detector.OpenPalmLandmarks()
	data, err := json.Marshal([]Sample{
		{Label: "open", Hands: [][]detector.Point3D{hand.Slice()}},
		{Label: "flat", Vector: []float32{0.5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(samplesPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	samples, err := LoadSamples(samplesPath)
	if err != nil {
		t.Fatalf("LoadSamples() error = %v", err)
	}
	ts, err := TrainTemplates(samples)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	out := filepath.Join(dir, "assets", "templates.json")
	if err := SaveTemplates(out, ts); err != nil {
		t.Fatalf("SaveTemplates() error = %v", err)
	}
	loaded, err := LoadTemplates(out)
	if err != nil {
		t.Fatalf("LoadTemplates() error = %v", err)
	}
	if len(loaded) != 2 || loaded[0].Label != "open" || loaded[1].Vector[0] != 0.5 {
		t.Errorf("unexpected templates: %+v", loaded)
	}

	if _, err := LoadSamples(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing samples file")
	}
}

func TestTemplateInferencer(t *testing.T) {
	labels := mustLabels(t, "open", "fist", "thumb")
	ts, err := TrainTemplates([]Sample{
		sampleOf("open", detector.OpenPalmLandmarks(), 0),
		sampleOf("open", detector.OpenPalmLandmarks(), 0.002),
		sampleOf("fist", detector.FistLandmarks(), 0),
		sampleOf("thumb", detector.ThumbsUpLandmarks(), 0),
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	inf, err := NewTemplateInferencer(ts, labels)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	c, err := New(inf, nil, labels, DefaultThreshold)
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}

	tests := []struct {
		name string
		hand detector.HandLandmarks
		want string
	}{
		{"open palm", detector.OpenPalmLandmarks(), "open"},
		{"fist", detector.FistLandmarks(), "fist"},
		{"thumbs up", detector.ThumbsUpLandmarks(), "thumb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := features.FromHands([]detector.HandLandmarks{tt.hand})
			res, err := c.Classify(context.Background(), v)
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if res.Label != tt.want {
				t.Errorf("label = %q (%.3f), want %q", res.Label, res.Confidence, tt.want)
			}
		})
	}

	t.Run("probabilities sum to one", func(t *testing.T) {
		probs, err := inf.Infer(context.Background(), make([]float32, features.Len))
		if err != nil {
			t.Fatalf("infer: %v", err)
		}
		var sum float32
		for _, p := range probs {
			sum += p
		}
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("sum = %v", sum)
		}
	})

	t.Run("unknown template label", func(t *testing.T) {
		_, err := NewTemplateInferencer([]Template{{Label: "nope"}}, labels)
		if err == nil {
			t.Error("expected error")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := inf.Infer(ctx, nil); err == nil {
			t.Error("expected context error")
		}
	})
}

func TestScaleTemplates(t *testing.T) {
	mean := make([]float32, features.Len)
	scale := make([]float32, features.Len)
	for i := range scale {
		mean[i] = 1
		scale[i] = 2
	}
	s, _ := NewScaler(mean, scale)

	var v features.Vector
	v[0] = 3
	out := ScaleTemplates([]Template{{Label: "a", Vector: v}}, s)
	if out[0].Vector[0] != 1 {
		t.Errorf("scaled = %v, want 1", out[0].Vector[0])
	}
	if v[0] != 3 {
		t.Error("input mutated")
	}
}
