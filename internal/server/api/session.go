package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/predictor"
	"github.com/ayusman/mudra/internal/session"
)

// Session is the running session as seen by the handlers.
type Session interface {
	Snapshot() session.Snapshot
	Do(ctx context.Context, fn func(*session.Engine)) error
	SubmitFrame(f detector.Frame) uint64
}

// SessionHandler serves the live session: its state, edits, speech and
// landmark ingestion.
type SessionHandler struct {
	session Session
	dict    *predictor.Dictionary
}

// NewSessionHandler creates a handler over s. dict serves word lookups.
func NewSessionHandler(s Session, dict *predictor.Dictionary) *SessionHandler {
	return &SessionHandler{session: s, dict: dict}
}

// ServeHTTP routes /api/session and its sub-resources.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/session")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.session.Snapshot())
	case "undo":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.undo(w, r)
	case "clear":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.clear(w, r)
	case "speech":
		if r.Method != http.MethodPut && r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.speech(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type undoResponse struct {
	Removed  bool             `json:"removed"`
	Symbol   string           `json:"symbol,omitempty"`
	Snapshot session.Snapshot `json:"snapshot"`
}

type clearResponse struct {
	Removed  int              `json:"removed"`
	Snapshot session.Snapshot `json:"snapshot"`
}

type speechRequest struct {
	Enabled *bool `json:"enabled"`
}

type speakRequest struct {
	Word string `json:"word"`
}

type speakResponse struct {
	Spoken bool   `json:"spoken"`
	Word   string `json:"word"`
}

type suggestionsResponse struct {
	Symbols     []string               `json:"symbols"`
	Suggestions []predictor.Suggestion `json:"suggestions"`
}

type wordsResponse struct {
	Count   int      `json:"count"`
	Prefix  string   `json:"prefix"`
	Matches []string `json:"matches"`
}

type addWordRequest struct {
	Word string `json:"word"`
}

type addWordResponse struct {
	Word  string `json:"word"`
	Added bool   `json:"added"`
	Count int    `json:"count"`
}

type frameRequest struct {
	Hands       [][]detector.Point3D `json:"hands"`
	Width       int                  `json:"width"`
	Height      int                  `json:"height"`
	TimestampMs int64                `json:"timestamp_ms"`
}

type frameResponse struct {
	Seq uint64 `json:"seq"`
}

// do runs fn on the session goroutine and maps failures to a response.
func (h *SessionHandler) do(w http.ResponseWriter, r *http.Request, fn func(*session.Engine)) bool {
	if err := h.session.Do(r.Context(), fn); err != nil {
		if errors.Is(err, session.ErrStopped) {
			writeError(w, http.StatusServiceUnavailable, "Session is not running")
			return false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return false
	}
	return true
}

func (h *SessionHandler) undo(w http.ResponseWriter, r *http.Request) {
	var resp undoResponse
	ok := h.do(w, r, func(e *session.Engine) {
		resp.Symbol, resp.Removed = e.Undo()
		resp.Snapshot = e.Snapshot()
	})
	if ok {
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *SessionHandler) clear(w http.ResponseWriter, r *http.Request) {
	var resp clearResponse
	ok := h.do(w, r, func(e *session.Engine) {
		resp.Removed = e.Clear()
		resp.Snapshot = e.Snapshot()
	})
	if ok {
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *SessionHandler) speech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	var snap session.Snapshot
	ok := h.do(w, r, func(e *session.Engine) {
		e.SetSpeech(*req.Enabled)
		snap = e.Snapshot()
	})
	if ok {
		writeJSON(w, http.StatusOK, snap)
	}
}

// Suggestions handles GET /api/suggestions.
func (h *SessionHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := h.session.Snapshot()
	writeJSON(w, http.StatusOK, suggestionsResponse{Symbols: snap.Symbols, Suggestions: snap.Suggestions})
}

// Speak handles POST /api/speak, the explicit selection of a word.
func (h *SessionHandler) Speak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req speakRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		spoken bool
		err    error
	)
	if !h.do(w, r, func(e *session.Engine) { spoken, err = e.Select(req.Word) }) {
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Speech runs asynchronously; disabled speech is not an error.
	status := http.StatusOK
	if spoken {
		status = http.StatusAccepted
	}
	writeJSON(w, status, speakResponse{Spoken: spoken, Word: predictor.NormalizeWord(req.Word)})
}

// Words handles GET and POST /api/words.
func (h *SessionHandler) Words(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		prefix := predictor.NormalizeWord(r.URL.Query().Get("prefix"))
		matches := h.dict.PartialMatches(prefix)
		if matches == nil {
			matches = []string{}
		}
		writeJSON(w, http.StatusOK, wordsResponse{Count: h.dict.Len(), Prefix: prefix, Matches: matches})
	case http.MethodPost:
		h.addWord(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SessionHandler) addWord(w http.ResponseWriter, r *http.Request) {
	var req addWordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		added bool
		err   error
	)
	if !h.do(w, r, func(e *session.Engine) { added, err = e.AddWord(req.Word) }) {
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, addWordResponse{Word: predictor.NormalizeWord(req.Word), Added: added, Count: h.dict.Len()})
}

// Frames handles POST /api/frames: landmarks from an external detector.
func (h *SessionHandler) Frames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req frameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Extra or malformed hands are zero-filled or dropped when the frame is
	// encoded, not rejected here.
	ts := time.Now()
	if req.TimestampMs > 0 {
		ts = time.UnixMilli(req.TimestampMs)
	}
	seq := h.session.SubmitFrame(detector.Frame{
		Hands:     req.Hands,
		Width:     req.Width,
		Height:    req.Height,
		Timestamp: ts,
	})
	writeJSON(w, http.StatusAccepted, frameResponse{Seq: seq})
}
