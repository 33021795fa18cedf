// Package app wires the camera, hand detector, sign classifier and session
// runner into the running Mudra application.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/assets"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observability"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/predictor"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/speech"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds configuration options for the application. Only Settings is
// required; the other fields replace the collaborators built from it.
type Config struct {
	Settings config.Config
	Store    *store.Store

	Camera     capture.Camera
	Detector   detector.Detector
	Inferencer classifier.Inferencer
	Speaker    speech.Speaker
}

// App owns the session runner and the camera loop feeding it.
type App struct {
	cfg  config.Config
	log  zerolog.Logger
	dict *predictor.Dictionary

	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor
	speaker    speech.Speaker

	inferencer classifier.Inferencer
	runner     *session.Runner
	pipeline   server.PipelineState

	camera   capture.Camera
	detector detector.Detector
	motion   *capture.MotionDetector
	preview  preview

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the application. Missing recognition assets do not fail New:
// the session runs without a classifier and the problem is reported by
// Pipeline.
func New(cfg Config) (*App, error) {
	s := cfg.Settings
	a := &App{
		cfg:        s,
		log:        observability.Logger("app"),
		pluginMgr:  plugin.NewManager(s.Plugins.Dir),
		pluginExec: plugin.NewExecutor(s.Speech.Timeout),
		camera:     cfg.Camera,
		detector:   cfg.Detector,
	}

	if err := a.pluginMgr.Discover(); err != nil {
		a.log.Warn().Err(err).Str("dir", s.Plugins.Dir).Msg("plugin discovery failed")
	}
	a.log.Info().Int("plugins", len(a.pluginMgr.List())).Msg("plugins discovered")

	dict, err := predictor.LoadDictionary(s.Assets.Dictionary)
	if err != nil {
		a.log.Warn().Err(err).Int("words", dict.Len()).Msg("dictionary unavailable, using fallback words")
	}
	a.dict = dict

	a.speaker = cfg.Speaker
	if a.speaker == nil {
		a.speaker = a.buildSpeaker()
	}

	cls, err := a.buildClassifier(cfg.Inferencer)
	if err != nil {
		a.pipeline = pipelineError(err)
		a.log.Error().Err(err).Msg("recognition pipeline disabled")
	} else {
		a.pipeline.Active = true
	}

	pred := predictor.New(dict, predictor.Options{
		MaxSuggestions: s.Predictor.MaxSuggestions,
		CacheSize:      s.Predictor.CacheSize,
	})
	eng, err := session.NewEngine(pred, session.NewRecognizer(cls, s.Gesture.Interval), session.Options{
		Mode: session.Mode(s.Mode),
		Gesture: gesture.Config{
			Hold:         s.Gesture.Hold,
			Cooldown:     s.Gesture.Cooldown,
			AllowRepeats: s.Gesture.AllowRepeats,
		},
		Policy: speech.Policy{
			MinScore:   s.Speech.AutoMinScore,
			MinSymbols: s.Speech.AutoMinSymbols,
		},
		SpeechEnabled: s.Speech.Enabled,
		Journal:       cfg.Store,
	})
	if err != nil {
		a.closeInferencer()
		return nil, fmt.Errorf("create session: %w", err)
	}
	a.runner = session.NewRunner(eng, a.speaker)
	return a, nil
}

// buildSpeaker picks the configured speech plugin, or a recorder when no
// plugin can speak. A configured typist receives every utterance too.
func (a *App) buildSpeaker() speech.Speaker {
	var speaker speech.Speaker
	p, err := a.pluginMgr.Find(a.cfg.Speech.Plugin, plugin.ActionSpeak)
	if err != nil {
		a.log.Warn().Err(err).Msg("no speech plugin, utterances are only recorded")
		speaker = &speech.Recorder{}
	} else {
		a.log.Info().Str("plugin", p.Manifest.Name).Msg("speech output ready")
		speaker = speech.NewPluginSpeaker(a.pluginMgr, a.pluginExec, p.Manifest.Name, a.cfg.Speech.Language)
	}

	if a.cfg.Speech.Typist == "" {
		return speaker
	}
	tp, err := a.pluginMgr.Find(a.cfg.Speech.Typist, plugin.ActionType)
	if err != nil {
		a.log.Warn().Err(err).Str("plugin", a.cfg.Speech.Typist).Msg("typing plugin unavailable")
		return speaker
	}
	a.log.Info().Str("plugin", tp.Manifest.Name).Msg("typing output ready")
	return speech.Multi{speaker, speech.NewPluginTypist(a.pluginMgr, a.pluginExec, tp.Manifest.Name)}
}

// buildClassifier validates the assets and loads the configured backend.
// inf, when set, replaces the backend.
func (a *App) buildClassifier(inf classifier.Inferencer) (*classifier.Classifier, error) {
	set := a.cfg.AssetSet()
	if inf == nil && a.cfg.Classifier.Backend == config.BackendTemplate {
		// The template backend reads recorded templates instead of the model.
		set.Model = a.cfg.Assets.Templates
	}
	if err := assets.Validate(set); err != nil {
		return nil, err
	}

	labels, err := classifier.LoadLabelMap(set.LabelMap)
	if err != nil {
		return nil, err
	}
	scaler, err := classifier.LoadScaler(set.Scaler)
	if err != nil {
		return nil, err
	}

	if inf == nil {
		switch a.cfg.Classifier.Backend {
		case config.BackendTemplate:
			templates, err := classifier.LoadTemplates(set.Model)
			if err != nil {
				return nil, err
			}
			inf, err = classifier.NewTemplateInferencer(classifier.ScaleTemplates(templates, scaler), labels)
			if err != nil {
				return nil, err
			}
		default:
			ort, err := classifier.NewOrtInferencer(classifier.OrtConfig{
				LibraryPath: a.cfg.Classifier.OrtLibrary,
				ModelPath:   set.Model,
				InputName:   a.cfg.Classifier.InputName,
				OutputName:  a.cfg.Classifier.OutputName,
				Classes:     labels.Len(),
			})
			if err != nil {
				return nil, err
			}
			inf = ort
		}
	}
	a.inferencer = inf

	cls, err := classifier.New(inf, scaler, labels, a.cfg.Classifier.Threshold)
	if err != nil {
		a.closeInferencer()
		return nil, err
	}
	a.log.Info().
		Str("backend", a.cfg.Classifier.Backend).
		Int("labels", labels.Len()).
		Float64("threshold", a.cfg.Classifier.Threshold).
		Msg("sign classifier loaded")
	return cls, nil
}

func pipelineError(err error) server.PipelineState {
	state := server.PipelineState{Error: err.Error()}
	var missing *assets.MissingAssetsError
	if errors.As(err, &missing) {
		state.Missing = missing.Files
	}
	return state
}

// Start runs the session and, when enabled and possible, the camera loop.
// It returns once both are running.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)

	if a.cfg.Camera.Enabled && a.pipeline.Active {
		if err := a.openCamera(); err != nil {
			// Frames can still arrive over HTTP.
			a.log.Warn().Err(err).Msg("camera unavailable, waiting for external frames")
		} else {
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				a.runCamera(ctx)
			}()
		}
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.runner.Run(ctx)
	}()

	a.cancel = cancel
	a.log.Info().Bool("pipeline", a.pipeline.Active).Str("mode", a.cfg.Mode).Msg("application started")
	return nil
}

// openCamera prepares the frame source and detector.
func (a *App) openCamera() error {
	if a.detector == nil {
		d, err := detector.NewMediaPipeDetector(detector.Config{
			MaxHands:        a.cfg.Detector.MaxHands,
			MinConfidence:   a.cfg.Detector.MinConfidence,
			MinTrackingConf: a.cfg.Detector.MinTrackingConf,
			ModelPath:       a.cfg.Assets.Landmarker,
			ScriptPath:      a.cfg.Detector.ScriptPath,
			PythonPath:      a.cfg.Detector.PythonPath,
		})
		if err != nil {
			return fmt.Errorf("hand detector: %w", err)
		}
		a.detector = d
	}
	if a.camera == nil {
		a.camera = capture.NewCamera(capture.Config{
			DeviceID: a.cfg.Camera.DeviceID,
			FPS:      a.cfg.Camera.IdleFPS,
			Mirror:   a.cfg.Camera.Mirror,
		})
	}
	if err := a.camera.Open(); err != nil {
		return err
	}
	a.motion = capture.NewMotionDetector(a.cfg.Camera.MotionThreshold)
	return nil
}

// Stop halts the camera loop and the session, then releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	a.wg.Wait()

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing camera")
		}
	}
	if a.motion != nil {
		a.motion.Close()
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing detector")
		}
	}
	a.closeInferencer()
	a.log.Info().Msg("application stopped")
}

func (a *App) closeInferencer() {
	if c, ok := a.inferencer.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing inferencer")
		}
	}
	a.inferencer = nil
}

// Runner returns the session runner.
func (a *App) Runner() *session.Runner {
	return a.runner
}

// Dictionary returns the word list used for prediction.
func (a *App) Dictionary() *predictor.Dictionary {
	return a.dict
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Pipeline reports whether recognition is available.
func (a *App) Pipeline() server.PipelineState {
	return a.pipeline
}

// LatestJPEG returns the latest camera frame for the preview stream.
func (a *App) LatestJPEG() ([]byte, uint64) {
	return a.preview.latest()
}
