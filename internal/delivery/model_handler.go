package delivery

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/ports"
)

const (
	serviceName = "rizqa-ai transcription"

	// reloadTimeout bounds an operator reload, which may download the artifact.
	reloadTimeout = 30 * time.Minute
)

type ModelHandler struct {
	models   ports.ModelManager
	cacheDir string
	log      *logger.ZapLogger
}

func NewModelHandler(models ports.ModelManager, cacheDir string, log *logger.ZapLogger) *ModelHandler {
	return &ModelHandler{models: models, cacheDir: cacheDir, log: log}
}

// GET /
func (h *ModelHandler) Root(w http.ResponseWriter, r *http.Request) {
	st := h.models.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "online",
		"service":      serviceName,
		"model_loaded": st.Loaded,
		"model_id":     st.ModelID,
	})
}

type healthResponse struct {
	Status       string     `json:"status"`
	ModelLoaded  bool       `json:"model_loaded"`
	ModelID      string     `json:"model_id"`
	CacheDir     string     `json:"cache_dir"`
	ArtifactPath string     `json:"artifact_path,omitempty"`
	Blake3       string     `json:"blake3,omitempty"`
	LoadedAt     *time.Time `json:"loaded_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// GET /health  always 200; status is "degraded" while no model is loaded.
func (h *ModelHandler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.models.Status()
	resp := healthResponse{
		Status:       "healthy",
		ModelLoaded:  st.Loaded,
		ModelID:      st.ModelID,
		CacheDir:     h.cacheDir,
		ArtifactPath: st.ArtifactPath,
		Blake3:       st.Blake3,
		LastError:    st.LastError,
	}
	if !st.Loaded {
		resp.Status = "degraded"
	}
	if !st.LoadedAt.IsZero() {
		resp.LoadedAt = &st.LoadedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /reload-model[?refresh=true]
func (h *ModelHandler) Reload(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	// the reload outlives a dropped operator connection
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), reloadTimeout)
	defer cancel()

	st, err := h.models.Reload(ctx, refresh)
	if err != nil {
		writeError(w, err)
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "model reloaded",
		Fields:  map[string]any{"model": st.ModelID, "path": st.ArtifactPath, "refresh": refresh},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Model reloaded successfully",
		"model_id":      st.ModelID,
		"artifact_path": st.ArtifactPath,
	})
}
