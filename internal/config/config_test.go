package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mudra.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MUDRA_DATA_DIR", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Mode != ModeWord {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	if cfg.Gesture.Interval != 800*time.Millisecond {
		t.Errorf("word mode interval = %s", cfg.Gesture.Interval)
	}
	if cfg.Gesture.Hold != 1500*time.Millisecond || cfg.Gesture.Cooldown != time.Second {
		t.Errorf("hold/cooldown = %s/%s", cfg.Gesture.Hold, cfg.Gesture.Cooldown)
	}
	if cfg.Classifier.Threshold != 0.75 {
		t.Errorf("Threshold = %v", cfg.Classifier.Threshold)
	}
	if cfg.Speech.AutoMinScore != 40 || cfg.Speech.AutoMinSymbols != 2 {
		t.Errorf("auto-speak policy = %d/%d", cfg.Speech.AutoMinScore, cfg.Speech.AutoMinSymbols)
	}
	if !strings.HasPrefix(cfg.Assets.LabelMap, cfg.DataDir) || filepath.Base(cfg.Assets.LabelMap) != "label_map.json" {
		t.Errorf("LabelMap = %q", cfg.Assets.LabelMap)
	}
	if cfg.Store.Path != filepath.Join(cfg.DataDir, "mudra.db") {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	path := writeFile(t, `
mode: letter
http:
  addr: ":9000"
gesture:
  hold: 2s
  allow_repeats: true
speech:
  enabled: false
assets:
  dir: /opt/mudra
  dictionary: /usr/share/words.txt
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Mode != ModeLetter || cfg.Gesture.Interval != 1500*time.Millisecond {
		t.Errorf("letter preset not applied: mode=%q interval=%s", cfg.Mode, cfg.Gesture.Interval)
	}
	if cfg.HTTP.Addr != ":9000" || cfg.Gesture.Hold != 2*time.Second || !cfg.Gesture.AllowRepeats {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.Gesture.Cooldown != time.Second {
		t.Errorf("unset yaml value should keep default, got %s", cfg.Gesture.Cooldown)
	}
	if cfg.Speech.Enabled {
		t.Error("speech should be disabled")
	}
	set := cfg.AssetSet()
	if set.Dictionary != "/usr/share/words.txt" || set.Model != filepath.Join("/opt/mudra", "sign_model.onnx") {
		t.Errorf("asset set = %+v", set)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "http:\n  addr: \":9000\"\n")
	t.Setenv("MUDRA_HTTP_ADDR", ":9100")
	t.Setenv("MUDRA_GESTURE_INTERVAL", "250ms")
	t.Setenv("MUDRA_CLASSIFIER_BACKEND", "template")
	t.Setenv("MUDRA_SPEECH_LANGUAGE", "en")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.HTTP.Addr != ":9100" {
		t.Errorf("env should win over yaml, got %q", cfg.HTTP.Addr)
	}
	if cfg.Gesture.Interval != 250*time.Millisecond {
		t.Errorf("Interval = %s", cfg.Gesture.Interval)
	}
	if cfg.Classifier.Backend != BackendTemplate || cfg.Speech.Language != "en" {
		t.Errorf("env overrides not applied: %+v", cfg.Classifier)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown mode", "mode: sentence\n", "mode must be"},
		{"bad threshold", "classifier:\n  threshold: 1.5\n", "threshold"},
		{"bad backend", "classifier:\n  backend: tflite\n", "backend"},
		{"zero hold", "gesture:\n  hold: 0s\n", "gesture.hold"},
		{"too many hands", "detector:\n  max_hands: 3\n", "max_hands"},
		{"too many suggestions", "predictor:\n  max_suggestions: 20\n", "max_suggestions"},
		{"invalid yaml", "mode: [\n", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestModeInterval(t *testing.T) {
	if ModeInterval(ModeWord) != 800*time.Millisecond || ModeInterval(ModeLetter) != 1500*time.Millisecond {
		t.Error("unexpected mode presets")
	}
}
