package delivery

import (
	"net/http"
	"strconv"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// TranscriptHandler serves stored transcription history. repo may be nil,
// in which case every lookup is a 404.
type TranscriptHandler struct {
	repo ports.TranscriptRepository
	log  *logger.ZapLogger
}

func NewTranscriptHandler(repo ports.TranscriptRepository, log *logger.ZapLogger) *TranscriptHandler {
	return &TranscriptHandler{repo: repo, log: log}
}

// GET /api/transcriptions/{id}
func (h *TranscriptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeBadRequest(w, "missing id")
		return
	}
	if h.repo == nil {
		writeError(w, models.ErrNotFound)
		return
	}

	t, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GET /api/transcriptions?limit=N
func (h *TranscriptHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	if h.repo == nil {
		writeError(w, models.ErrNotFound)
		return
	}

	items, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "transcription history fetched",
		Fields:  map[string]any{"count": len(items), "limit": limit},
	})
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
