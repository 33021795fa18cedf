// Package server provides the HTTP server for the Mudra sign recognizer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/assets"
	"github.com/ayusman/mudra/internal/observability"
	"github.com/ayusman/mudra/internal/predictor"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

// Session is the live session the server drives.
type Session interface {
	api.Session
	Subscribe(buffer int) (<-chan session.Event, func())
}

// PipelineState reports whether recognition is running.
type PipelineState struct {
	Active  bool                 `json:"active"`
	Error   string               `json:"error,omitempty"`
	Missing []assets.MissingFile `json:"missing,omitempty"`
}

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Session    Session
	Dictionary *predictor.Dictionary
	Store      *store.Store
	Preview    Preview
	Pipeline   func() PipelineState
	Metrics    bool
}

// Server represents the HTTP server for the Mudra application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Session != nil {
		sessionHandler := api.NewSessionHandler(s.config.Session, s.config.Dictionary)
		s.mux.Handle("/api/session", sessionHandler)
		s.mux.Handle("/api/session/", sessionHandler)
		s.mux.HandleFunc("/api/suggestions", sessionHandler.Suggestions)
		s.mux.HandleFunc("/api/speak", sessionHandler.Speak)
		s.mux.HandleFunc("/api/frames", sessionHandler.Frames)
		if s.config.Dictionary != nil {
			s.mux.HandleFunc("/api/words", sessionHandler.Words)
		}
		s.mux.Handle("/api/events", NewEventsHandler(s.config.Session))
	} else {
		for _, p := range []string{"/api/session", "/api/session/", "/api/suggestions", "/api/speak", "/api/frames", "/api/words", "/api/events"} {
			s.mux.HandleFunc(p, s.handleUnavailable)
		}
	}

	if s.config.Store != nil {
		journalHandler := api.NewJournalHandler(s.config.Store)
		s.mux.Handle("/api/sessions", journalHandler)
		s.mux.Handle("/api/sessions/", journalHandler)
	}

	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview))
	}

	if s.config.Metrics {
		s.mux.Handle("/metrics", observability.Handler())
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Pipeline != nil {
		state := s.config.Pipeline()
		response["pipeline"] = state
		if !state.Active {
			response["status"] = "degraded"
		}
	}
	if s.config.Session != nil {
		snap := s.config.Session.Snapshot()
		response["session_id"] = snap.SessionID
		response["mode"] = snap.Mode
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

func (s *Server) handleUnavailable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(map[string]string{"error": "No session is running"})
}

// shutdownTimeout bounds how long open streams may delay a shutdown.
const shutdownTimeout = 5 * time.Second

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// Long-lived streams keep Shutdown waiting; drop them.
		srv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
