package domain

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/domain/artifact"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
)

// ModelSource says which artifact to serve and where to look for it.
type ModelSource struct {
	ModelID     string
	Filename    string
	DownloadURL string
	Candidates  []string
}

// ModelService owns the process-wide model. Requests lease the current
// handle; a reload swaps in a new one and the old one is closed when its
// last lease is released.
type ModelService struct {
	src      ModelSource
	cache    ports.ArtifactResolver
	backend  ports.InferenceBackend
	events   ports.EventPublisher
	log      *logger.ZapLogger
	current  atomic.Pointer[modelHandle]
	reloadMu sync.Mutex

	statusMu sync.RWMutex
	status   models.ModelStatus
}

func NewModelService(
	src ModelSource,
	cache ports.ArtifactResolver,
	backend ports.InferenceBackend,
	events ports.EventPublisher,
	log *logger.ZapLogger,
) *ModelService {
	return &ModelService{
		src:     src,
		cache:   cache,
		backend: backend,
		events:  events,
		log:     log,
		status:  models.ModelStatus{ModelID: src.ModelID},
	}
}

var _ ports.ModelManager = (*ModelService)(nil)
var _ ports.ModelProvider = (*ModelService)(nil)

// Acquire leases the current model. It fails with ErrModelNotLoaded until
// the first successful load.
func (s *ModelService) Acquire() (ports.ModelLease, error) {
	for {
		h := s.current.Load()
		if h == nil {
			return nil, models.ErrModelNotLoaded
		}
		if h.acquire() {
			return &modelLease{h: h}, nil
		}
		// h was retired between Load and acquire; its successor is already installed.
	}
}

func (s *ModelService) Status() models.ModelStatus {
	s.statusMu.RLock()
	st := s.status
	s.statusMu.RUnlock()
	st.Loaded = s.current.Load() != nil
	return st
}

// LoadInBackground runs the first load without blocking startup. Failure
// leaves the service degraded and is visible through Status.
func (s *ModelService) LoadInBackground(ctx context.Context) {
	go func() {
		if _, err := s.Reload(ctx, false); err != nil {
			s.log.Log(logger.LogEntry{
				Level:   "error",
				Message: "[model][STARTUP] model not loaded, serving degraded",
				Error:   err,
			})
		}
	}()
}

// Reload resolves (or, with refresh, re-downloads) the artifact, loads it and
// swaps it in. On any failure the previous model keeps serving.
func (s *ModelService) Reload(ctx context.Context, refresh bool) (models.ModelStatus, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[model][RELOAD][START]",
		Fields:  map[string]any{"model": s.src.ModelID, "refresh": refresh},
	})

	path, err := s.resolve(ctx, refresh)
	if err != nil {
		return s.failed(fmt.Errorf("resolve artifact: %w", err))
	}

	m, err := s.backend.Load(ctx, path)
	if err != nil {
		return s.failed(fmt.Errorf("load %s with %s backend: %w", path, s.backend.Name(), err))
	}

	h := &modelHandle{model: m, id: s.src.ModelID, path: path, log: s.log}
	if old := s.current.Swap(h); old != nil {
		old.retire()
	}

	s.statusMu.Lock()
	s.status = models.ModelStatus{
		ModelID:      s.src.ModelID,
		ArtifactPath: path,
		Blake3:       s.digest(path),
		LoadedAt:     time.Now().UTC(),
	}
	st := s.status
	s.statusMu.Unlock()
	st.Loaded = true

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[model][RELOAD][OK]",
		Fields:  map[string]any{"model": s.src.ModelID, "path": path, "dur": time.Since(start).String()},
	})
	s.publish(models.Event{Type: models.EventModelLoaded, Payload: st})
	return st, nil
}

// Close retires the current model; it is closed once in-flight leases end.
func (s *ModelService) Close() {
	if h := s.current.Swap(nil); h != nil {
		h.retire()
	}
}

func (s *ModelService) resolve(ctx context.Context, refresh bool) (string, error) {
	if refresh && s.src.DownloadURL != "" {
		return s.cache.Refetch(ctx, s.src.Filename, s.src.DownloadURL)
	}
	return s.cache.Resolve(ctx, s.src.Filename, s.src.Candidates, s.src.DownloadURL)
}

// digest prefers the hash recorded at fetch time.
func (s *ModelService) digest(path string) string {
	if m, ok := s.cache.Manifest(s.src.Filename); ok && m.LocalPath == path && m.Blake3 != "" {
		return m.Blake3
	}
	sum, err := artifact.Digest(path)
	if err != nil {
		return ""
	}
	return sum
}

func (s *ModelService) failed(err error) (models.ModelStatus, error) {
	s.statusMu.Lock()
	s.status.LastError = err.Error()
	st := s.status
	s.statusMu.Unlock()
	st.Loaded = s.current.Load() != nil

	s.log.Log(logger.LogEntry{
		Level:   "error",
		Message: "[model][RELOAD][ERR]",
		Error:   err,
		Fields:  map[string]any{"model": s.src.ModelID, "still_serving": st.Loaded},
	})
	s.publish(models.Event{Type: models.EventModelLoadFailed, Payload: map[string]any{
		"model_id": s.src.ModelID,
		"error":    err.Error(),
	}})
	return st, err
}

func (s *ModelService) publish(ev models.Event) {
	if s.events != nil {
		s.events.Publish(models.RoomModel, ev)
	}
}

// modelHandle reference-counts one loaded model.
type modelHandle struct {
	model ports.Model
	id    string
	path  string
	log   *logger.ZapLogger

	mu      sync.Mutex
	refs    int
	retired bool
	closed  bool
}

func (h *modelHandle) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.retired {
		return false
	}
	h.refs++
	return true
}

func (h *modelHandle) release() {
	h.mu.Lock()
	h.refs--
	closeNow := h.retired && h.refs == 0 && !h.closed
	if closeNow {
		h.closed = true
	}
	h.mu.Unlock()
	if closeNow {
		h.close()
	}
}

func (h *modelHandle) retire() {
	h.mu.Lock()
	h.retired = true
	closeNow := h.refs == 0 && !h.closed
	if closeNow {
		h.closed = true
	}
	h.mu.Unlock()
	if closeNow {
		h.close()
	}
}

func (h *modelHandle) close() {
	if err := h.model.Close(); err != nil {
		h.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: "[model][CLOSE][ERR]",
			Error:   err,
			Fields:  map[string]any{"path": h.path},
		})
	}
}

type modelLease struct {
	h    *modelHandle
	once sync.Once
}

func (l *modelLease) Model() ports.Model { return l.h.model }
func (l *modelLease) ModelID() string    { return l.h.id }
func (l *modelLease) Release()           { l.once.Do(l.h.release) }
