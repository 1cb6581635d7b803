package delivery

import (
	"net/http"

	"github.com/awais2281/rizqa-ai/internal/ports"
	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(
	r chi.Router,
	auth ports.AdminAuth,
	hModel *ModelHandler,
	hTranscribe *TranscribeHandler,
	hHistory *TranscriptHandler,
	hWS http.HandlerFunc,
) {
	r.Get("/", hModel.Root)
	r.Get("/health", hModel.Health)

	r.Post("/transcribe", hTranscribe.Transcribe)

	// operator reload
	r.With(AdminOnly(auth)).Post("/reload-model", hModel.Reload)

	// history
	r.Get("/api/transcriptions", hHistory.List)
	r.Get("/api/transcriptions/{id}", hHistory.Get)

	if hWS != nil {
		r.Get("/ws", hWS)
	}
}
