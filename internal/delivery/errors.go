package delivery

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/awais2281/rizqa-ai/internal/models"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

// errorCodes maps the failure taxonomy onto status codes; first match wins.
var errorCodes = []struct {
	target error
	code   string
	status int
}{
	{models.ErrUnsupportedExtension, "unsupported_extension", http.StatusBadRequest},
	{models.ErrUnsupportedFormat, "unsupported_format", http.StatusUnsupportedMediaType},
	{models.ErrModelNotLoaded, "model_not_loaded", http.StatusServiceUnavailable},
	{models.ErrNotFound, "not_found", http.StatusNotFound},
	{models.ErrSourceUnresolvable, "source_unresolvable", http.StatusInternalServerError},
	{models.ErrTransferFailed, "transfer_failed", http.StatusBadGateway},
	{models.ErrValidationFailed, "validation_failed", http.StatusBadGateway},
	{models.ErrSizeTooSmall, "size_too_small", http.StatusBadGateway},
	{models.ErrNoMatchingEntry, "no_matching_entry", http.StatusUnprocessableEntity},
	{models.ErrCorruptContainer, "corrupt_container", http.StatusUnprocessableEntity},
}

func classify(err error) (string, int) {
	for _, c := range errorCodes {
		if errors.Is(err, c.target) {
			return c.code, c.status
		}
	}
	return "internal", http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	writeJSON(w, status, errorResponse{Error: code, Detail: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
