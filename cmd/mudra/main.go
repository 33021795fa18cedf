package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/observability"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

var version = "dev"

func main() {
	var (
		configPath  string
		showVersion bool
		noTray      bool
		trainPath   string
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.BoolVar(&noTray, "no-tray", false, "Run without the system tray menu")
	flag.StringVar(&trainPath, "train-templates", "", "Train sign templates from a labeled samples JSON file and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("mudra", version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if noTray {
		cfg.Tray.Enabled = false
	}

	observability.InitLogger(cfg.Log.Level, cfg.Log.Pretty)

	if trainPath != "" {
		n, err := trainTemplates(trainPath, cfg.Assets.Templates)
		if err != nil {
			log.Fatal().Err(err).Msg("template training failed")
		}
		log.Info().Int("templates", n).Str("path", cfg.Assets.Templates).Msg("templates written")
		return
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("mudra stopped")
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if cfg.Store.Enabled {
		s, err := store.New(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer s.Close()
		st = s
		log.Info().Str("path", s.Path()).Msg("journal opened")
	}

	a, err := app.New(app.Config{Settings: cfg, Store: st})
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer a.Stop()

	if p := a.Pipeline(); !p.Active {
		log.Warn().Str("error", p.Error).Int("missing", len(p.Missing)).Msg("recognition disabled")
	}

	webDir := cfg.HTTP.StaticDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		log.Info().Str("dir", webDir).Msg("serving static files")
	}

	srvCfg := server.Config{
		StaticDir:  webDir,
		Session:    a.Runner(),
		Dictionary: a.Dictionary(),
		Store:      st,
		Pipeline:   a.Pipeline,
		Metrics:    cfg.Metrics.Enabled,
	}
	if cfg.Camera.Enabled {
		srvCfg.Preview = a
	}
	srv := server.New(srvCfg)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("starting server")
		errCh <- srv.ListenAndServe(ctx, cfg.HTTP.Addr)
	}()

	if cfg.Tray.Enabled {
		runTray(ctx, stop, a.Runner(), cfg)
	} else {
		<-ctx.Done()
	}
	stop()

	log.Info().Msg("shutting down")
	if err := <-errCh; err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// trainTemplates averages the samples at samplesPath into per-label
// templates for the template classifier backend.
func trainTemplates(samplesPath, out string) (int, error) {
	samples, err := classifier.LoadSamples(samplesPath)
	if err != nil {
		return 0, err
	}
	ts, err := classifier.TrainTemplates(samples)
	if err != nil {
		return 0, fmt.Errorf("train templates: %w", err)
	}
	if err := classifier.SaveTemplates(out, ts); err != nil {
		return 0, err
	}
	return len(ts), nil
}

// runTray blocks on the tray menu until ctx ends or Quit is chosen.
func runTray(ctx context.Context, cancel context.CancelFunc, runner *session.Runner, cfg config.Config) {
	t := tray.New(cfg.Speech.Enabled)

	do := func(op string, fn func(*session.Engine)) {
		reqCtx, done := context.WithTimeout(ctx, 2*time.Second)
		defer done()
		if err := runner.Do(reqCtx, fn); err != nil {
			log.Warn().Err(err).Str("op", op).Msg("tray action failed")
		}
	}
	t.OnSpeechToggle(func(enabled bool) {
		do("speech", func(e *session.Engine) { e.SetSpeech(enabled) })
	})
	t.OnUndo(func() {
		do("undo", func(e *session.Engine) { e.Undo() })
	})
	t.OnClear(func() {
		do("clear", func(e *session.Engine) { e.Clear() })
	})
	t.OnOpen(func() {
		if err := openBrowser(browserURL(cfg.HTTP.Addr)); err != nil {
			log.Warn().Err(err).Msg("failed to open browser")
		}
	})
	t.OnQuit(cancel)

	events, unsubscribe := runner.Subscribe(16)
	defer unsubscribe()
	go t.Watch(events)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	// systray needs the main goroutine.
	t.Run()
}

func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	if dataDir == "" {
		return ""
	}
	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
