package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/store"
)

const defaultSessionLimit = 50

// JournalHandler serves past sessions from the journal.
type JournalHandler struct {
	store *store.Store
}

// NewJournalHandler creates a new JournalHandler with the given store.
func NewJournalHandler(s *store.Store) *JournalHandler {
	return &JournalHandler{store: s}
}

type sessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type sessionDetailResponse struct {
	Session    *store.Session     `json:"session"`
	Symbols    []*store.Symbol    `json:"symbols"`
	Utterances []*store.Utterance `json:"utterances"`
}

// ServeHTTP routes requests under /api/sessions.
func (h *JournalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		h.list(w, r)
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	h.get(w, r, path)
}

func (h *JournalHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, sessionsResponse{Sessions: sessions})
}

func (h *JournalHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	symbols, err := h.store.Symbols().List(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list symbols")
		return
	}
	utterances, err := h.store.Utterances().List(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list utterances")
		return
	}
	if symbols == nil {
		symbols = []*store.Symbol{}
	}
	if utterances == nil {
		utterances = []*store.Utterance{}
	}

	writeJSON(w, http.StatusOK, sessionDetailResponse{Session: sess, Symbols: symbols, Utterances: utterances})
}
