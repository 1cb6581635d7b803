package delivery

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
)

type TranscribeHandler struct {
	svc      ports.Transcriber
	maxBytes int64
	log      *logger.ZapLogger
}

func NewTranscribeHandler(svc ports.Transcriber, maxBytes int64, log *logger.ZapLogger) *TranscribeHandler {
	return &TranscribeHandler{svc: svc, maxBytes: maxBytes, log: log}
}

type transcribeResponse struct {
	Success  bool   `json:"success"`
	Text     string `json:"text"`
	Language string `json:"language"`
	Model    string `json:"model"`
	ID       string `json:"id"`
}

// POST /transcribe  multipart: file, language (optional, form or query)
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "too_large", Detail: err.Error()})
			return
		}
		writeBadRequest(w, "missing multipart field \"file\": "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeBadRequest(w, "read upload: "+err.Error())
		return
	}

	language := strings.TrimSpace(r.FormValue("language"))
	if language == "" {
		language = strings.TrimSpace(r.URL.Query().Get("language"))
	}

	t, err := h.svc.Transcribe(r.Context(), &models.Upload{
		Filename: header.Filename,
		Language: language,
		Data:     data,
	})
	if err != nil {
		h.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "transcription failed",
			Error:   err,
			Fields:  map[string]any{"file": header.Filename, "bytes": len(data)},
		})
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{
		Success:  true,
		Text:     t.Text,
		Language: t.Language,
		Model:    t.Model,
		ID:       t.ID,
	})
}
