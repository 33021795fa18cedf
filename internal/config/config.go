// Package config loads runtime settings: built-in defaults, then an optional
// YAML file, then MUDRA_* environment variables (a .env file is honoured).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/assets"
)

// EnvPrefix prefixes every environment override, e.g. MUDRA_HTTP_ADDR.
const EnvPrefix = "MUDRA"

// Recognition modes.
const (
	ModeWord   = "word"
	ModeLetter = "letter"
)

// Classifier backends.
const (
	BackendONNX     = "onnx"
	BackendTemplate = "template"
)

type HTTPConfig struct {
	Addr      string `yaml:"addr" split_words:"true"`
	StaticDir string `yaml:"static_dir" split_words:"true"`
}

type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Pretty bool   `yaml:"pretty" split_words:"true"`
}

type AssetsConfig struct {
	Dir        string `yaml:"dir" split_words:"true"`
	Model      string `yaml:"model" split_words:"true"`
	Landmarker string `yaml:"landmarker" split_words:"true"`
	LabelMap   string `yaml:"label_map" split_words:"true"`
	Scaler     string `yaml:"scaler" split_words:"true"`
	Dictionary string `yaml:"dictionary" split_words:"true"`
	// Templates feeds the template backend.
	Templates string `yaml:"templates" split_words:"true"`
}

type ClassifierConfig struct {
	Backend    string  `yaml:"backend" split_words:"true"`
	Threshold  float64 `yaml:"threshold" split_words:"true"`
	OrtLibrary string  `yaml:"ort_library" split_words:"true"`
	InputName  string  `yaml:"input_name" split_words:"true"`
	OutputName string  `yaml:"output_name" split_words:"true"`
}

type GestureConfig struct {
	Hold     time.Duration `yaml:"hold" split_words:"true"`
	Cooldown time.Duration `yaml:"cooldown" split_words:"true"`
	// Interval is the minimum time between classifier calls. Zero picks the
	// mode's preset.
	Interval     time.Duration `yaml:"interval" split_words:"true"`
	AllowRepeats bool          `yaml:"allow_repeats" split_words:"true"`
}

type PredictorConfig struct {
	MaxSuggestions int `yaml:"max_suggestions" split_words:"true"`
	CacheSize      int `yaml:"cache_size" split_words:"true"`
}

type SpeechConfig struct {
	Enabled        bool          `yaml:"enabled" split_words:"true"`
	Plugin         string        `yaml:"plugin" split_words:"true"`
	Language       string        `yaml:"language" split_words:"true"`
	Timeout        time.Duration `yaml:"timeout" split_words:"true"`
	AutoMinScore   int           `yaml:"auto_min_score" split_words:"true"`
	AutoMinSymbols int           `yaml:"auto_min_symbols" split_words:"true"`
	// Typist names a plugin that also types every utterance. Empty disables
	// typing.
	Typist string `yaml:"typist" split_words:"true"`
}

type CameraConfig struct {
	Enabled         bool          `yaml:"enabled" split_words:"true"`
	DeviceID        int           `yaml:"device_id" split_words:"true"`
	IdleFPS         int           `yaml:"idle_fps" split_words:"true"`
	ActiveFPS       int           `yaml:"active_fps" split_words:"true"`
	MotionThreshold float64       `yaml:"motion_threshold" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	Mirror          bool          `yaml:"mirror" split_words:"true"`
}

type DetectorConfig struct {
	MaxHands        int     `yaml:"max_hands" split_words:"true"`
	MinConfidence   float64 `yaml:"min_confidence" split_words:"true"`
	MinTrackingConf float64 `yaml:"min_tracking_confidence" split_words:"true"`
	PythonPath      string  `yaml:"python" split_words:"true"`
	ScriptPath      string  `yaml:"script" split_words:"true"`
}

type PluginsConfig struct {
	Dir     string        `yaml:"dir" split_words:"true"`
	Timeout time.Duration `yaml:"timeout" split_words:"true"`
}

type StoreConfig struct {
	Enabled bool   `yaml:"enabled" split_words:"true"`
	Path    string `yaml:"path" split_words:"true"`
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled" split_words:"true"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" split_words:"true"`
}

// Config is the complete runtime configuration.
type Config struct {
	Mode       string           `yaml:"mode" split_words:"true"`
	DataDir    string           `yaml:"data_dir" split_words:"true"`
	HTTP       HTTPConfig       `yaml:"http" split_words:"true"`
	Log        LogConfig        `yaml:"log" split_words:"true"`
	Assets     AssetsConfig     `yaml:"assets" split_words:"true"`
	Classifier ClassifierConfig `yaml:"classifier" split_words:"true"`
	Gesture    GestureConfig    `yaml:"gesture" split_words:"true"`
	Predictor  PredictorConfig  `yaml:"predictor" split_words:"true"`
	Speech     SpeechConfig     `yaml:"speech" split_words:"true"`
	Camera     CameraConfig     `yaml:"camera" split_words:"true"`
	Detector   DetectorConfig   `yaml:"detector" split_words:"true"`
	Plugins    PluginsConfig    `yaml:"plugins" split_words:"true"`
	Store      StoreConfig      `yaml:"store" split_words:"true"`
	Tray       TrayConfig       `yaml:"tray" split_words:"true"`
	Metrics    MetricsConfig    `yaml:"metrics" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mode:    ModeWord,
		DataDir: defaultDataDir(),
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:7420",
		},
		Log: LogConfig{
			Level: "info",
		},
		Classifier: ClassifierConfig{
			Backend:    BackendONNX,
			Threshold:  0.75,
			InputName:  "input",
			OutputName: "output",
		},
		Gesture: GestureConfig{
			Hold:     1500 * time.Millisecond,
			Cooldown: 1000 * time.Millisecond,
		},
		Predictor: PredictorConfig{
			MaxSuggestions: 10,
			CacheSize:      256,
		},
		Speech: SpeechConfig{
			Enabled:        true,
			Plugin:         "speech",
			Language:       "ml",
			Timeout:        10 * time.Second,
			AutoMinScore:   40,
			AutoMinSymbols: 2,
		},
		Camera: CameraConfig{
			Enabled:         true,
			IdleFPS:         5,
			ActiveFPS:       15,
			MotionThreshold: 1.0,
			IdleTimeout:     2 * time.Second,
			Mirror:          true,
		},
		Detector: DetectorConfig{
			MaxHands:        2,
			MinConfidence:   0.7,
			MinTrackingConf: 0.5,
		},
		Plugins: PluginsConfig{
			Dir:     "plugins",
			Timeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Enabled: true,
		},
		Tray: TrayConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mudra"
	}
	return filepath.Join(home, ".mudra")
}

// Load builds the configuration. An empty path skips the YAML file; a
// missing .env file is ignored.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to apply environment: %w", err)
	}

	cfg.Resolve()
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ModeInterval returns the classifier interval preset for a mode.
func ModeInterval(mode string) time.Duration {
	if mode == ModeLetter {
		return 1500 * time.Millisecond
	}
	return 800 * time.Millisecond
}

// Resolve fills values derived from other settings. Load calls it; callers
// building a Config by hand call it before use.
func (c *Config) Resolve() {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Gesture.Interval == 0 {
		c.Gesture.Interval = ModeInterval(c.Mode)
	}

	if c.Assets.Dir == "" {
		c.Assets.Dir = filepath.Join(c.DataDir, "assets")
	}
	defaults := assets.InDir(c.Assets.Dir)
	fill(&c.Assets.Model, defaults.Model)
	fill(&c.Assets.Landmarker, defaults.Landmarker)
	fill(&c.Assets.LabelMap, defaults.LabelMap)
	fill(&c.Assets.Scaler, defaults.Scaler)
	fill(&c.Assets.Dictionary, defaults.Dictionary)
	fill(&c.Assets.Templates, filepath.Join(c.Assets.Dir, "templates.json"))
	fill(&c.Store.Path, filepath.Join(c.DataDir, "mudra.db"))
}

func fill(target *string, value string) {
	if *target == "" {
		*target = value
	}
}

// AssetSet returns the files the recognition pipeline requires.
func (c Config) AssetSet() assets.Set {
	return assets.Set{
		Model:      c.Assets.Model,
		Landmarker: c.Assets.Landmarker,
		LabelMap:   c.Assets.LabelMap,
		Scaler:     c.Assets.Scaler,
		Dictionary: c.Assets.Dictionary,
	}
}

func validate(cfg Config) error {
	if cfg.Mode != ModeWord && cfg.Mode != ModeLetter {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeWord, ModeLetter, cfg.Mode)
	}
	if cfg.HTTP.Addr == "" {
		return errors.New("http.addr must not be empty")
	}
	if cfg.Classifier.Backend != BackendONNX && cfg.Classifier.Backend != BackendTemplate {
		return fmt.Errorf("classifier.backend must be %q or %q", BackendONNX, BackendTemplate)
	}
	if cfg.Classifier.Threshold <= 0 || cfg.Classifier.Threshold >= 1 {
		return errors.New("classifier.threshold must be between 0 and 1")
	}
	if cfg.Gesture.Hold <= 0 || cfg.Gesture.Cooldown <= 0 {
		return errors.New("gesture.hold and gesture.cooldown must be positive")
	}
	if cfg.Gesture.Interval < 0 {
		return errors.New("gesture.interval must not be negative")
	}
	if cfg.Predictor.MaxSuggestions < 1 || cfg.Predictor.MaxSuggestions > 10 {
		return errors.New("predictor.max_suggestions must be between 1 and 10")
	}
	if cfg.Predictor.CacheSize < 0 {
		return errors.New("predictor.cache_size must not be negative")
	}
	if cfg.Speech.AutoMinSymbols < 1 {
		return errors.New("speech.auto_min_symbols must be at least 1")
	}
	if cfg.Detector.MaxHands < 1 || cfg.Detector.MaxHands > 2 {
		return errors.New("detector.max_hands must be 1 or 2")
	}
	if cfg.Camera.IdleFPS <= 0 || cfg.Camera.ActiveFPS < cfg.Camera.IdleFPS {
		return errors.New("camera fps must be positive with active_fps >= idle_fps")
	}
	return nil
}
