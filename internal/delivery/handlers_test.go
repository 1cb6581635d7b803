package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/domain"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTranscriber struct {
	got *models.Upload
	err error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, up *models.Upload) (*models.Transcription, error) {
	f.got = up
	if f.err != nil {
		return nil, f.err
	}
	return &models.Transcription{ID: "t-1", Text: "مرحبا", Language: up.Language, Model: "tiny"}, nil
}

type fakeManager struct {
	status    models.ModelStatus
	reloadErr error
	reloads   int
	refreshed bool

	// context state observed while Reload ran
	ctxErr      error
	ctxDeadline bool
}

func (f *fakeManager) Status() models.ModelStatus { return f.status }

func (f *fakeManager) Reload(ctx context.Context, refresh bool) (models.ModelStatus, error) {
	f.reloads++
	f.refreshed = refresh
	f.ctxErr = ctx.Err()
	_, f.ctxDeadline = ctx.Deadline()
	if f.reloadErr != nil {
		return models.ModelStatus{}, f.reloadErr
	}
	f.status.Loaded = true
	return f.status, nil
}

type memHistory struct {
	items []models.Transcription
}

func (m *memHistory) Save(_ context.Context, t *models.Transcription) error {
	m.items = append(m.items, *t)
	return nil
}

func (m *memHistory) Get(_ context.Context, id string) (*models.Transcription, error) {
	for _, t := range m.items {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memHistory) ListRecent(_ context.Context, limit int) ([]models.Transcription, error) {
	return m.items[:min(limit, len(m.items))], nil
}

type testServer struct {
	router     chi.Router
	transcribe *fakeTranscriber
	manager    *fakeManager
	history    *memHistory
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()
	log := logger.NewZapLogger(zap.NewNop().Sugar())

	ts := &testServer{
		router:     chi.NewRouter(),
		transcribe: &fakeTranscriber{},
		manager:    &fakeManager{status: models.ModelStatus{Loaded: true, ModelID: "tiny", ArtifactPath: "/cache/tiny.pt"}},
		history:    &memHistory{},
	}
	RegisterRoutes(ts.router,
		domain.NewAdminAuth(secret),
		NewModelHandler(ts.manager, "/cache", log),
		NewTranscribeHandler(ts.transcribe, 1<<20, log),
		NewTranscriptHandler(ts.history, log),
		nil,
	)
	return ts
}

func multipartUpload(t *testing.T, filename string, data []byte, language string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	if language != "" {
		require.NoError(t, mw.WriteField("language", language))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestTranscribe_OK(t *testing.T) {
	ts := newTestServer(t, "")
	body, ct := multipartUpload(t, "clip.wav", []byte("RIFF...."), "ar")

	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "مرحبا", out["text"])
	assert.Equal(t, "ar", out["language"])
	assert.Equal(t, "tiny", out["model"])
	assert.Equal(t, "t-1", out["id"])
	assert.Equal(t, "clip.wav", ts.transcribe.got.Filename)
}

func TestTranscribe_LanguageFromQuery(t *testing.T) {
	ts := newTestServer(t, "")
	body, ct := multipartUpload(t, "clip.wav", []byte("x"), "")

	req := httptest.NewRequest(http.MethodPost, "/transcribe?language=en", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "en", ts.transcribe.got.Language)
}

func TestTranscribe_MissingFile(t *testing.T) {
	ts := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewBufferString("nothing"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode(t, rec)["error"])
}

func TestTranscribe_TooLarge(t *testing.T) {
	ts := newTestServer(t, "")
	body, ct := multipartUpload(t, "clip.wav", bytes.Repeat([]byte{1}, 2<<20), "")

	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestTranscribe_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{models.ErrUnsupportedExtension, http.StatusBadRequest, "unsupported_extension"},
		{models.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, "unsupported_format"},
		{models.ErrModelNotLoaded, http.StatusServiceUnavailable, "model_not_loaded"},
		{fmt.Errorf("[S1] %w", models.ErrUnsupportedFormat), http.StatusUnsupportedMediaType, "unsupported_format"},
		{fmt.Errorf("backend exploded"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			ts := newTestServer(t, "")
			ts.transcribe.err = tc.err
			body, ct := multipartUpload(t, "clip.wav", []byte("x"), "")

			req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			ts.router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			out := decode(t, rec)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tc.code, out["error"])
			assert.NotEmpty(t, out["detail"])
		})
	}
}

func TestClassify_ArtifactFailures(t *testing.T) {
	code, status := classify(&models.NoMatchingEntryError{Container: "a.zip", Suffixes: []string{".pt"}})
	assert.Equal(t, "no_matching_entry", code)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	code, status = classify(fmt.Errorf("fetch: %w", models.ErrSizeTooSmall))
	assert.Equal(t, "size_too_small", code)
	assert.Equal(t, http.StatusBadGateway, status)

	code, status = classify(models.ErrSourceUnresolvable)
	assert.Equal(t, "source_unresolvable", code)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestRootAndHealth(t *testing.T) {
	ts := newTestServer(t, "")

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "online", out["status"])
	assert.Equal(t, true, out["model_loaded"])

	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	ts.manager.status = models.ModelStatus{ModelID: "tiny", LastError: "download failed"}
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out = decode(t, rec)
	assert.Equal(t, "degraded", out["status"])
	assert.Equal(t, false, out["model_loaded"])
	assert.Equal(t, "download failed", out["last_error"])
}

func TestReload_RequiresToken(t *testing.T) {
	ts := newTestServer(t, "s3cret")

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload-model", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/reload-model", nil)
	req.Header.Set("X-Auth", "wrong")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, ts.manager.reloads)

	req = httptest.NewRequest(http.MethodPost, "/reload-model?refresh=true", nil)
	req.Header.Set("X-Auth", "s3cret")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Model reloaded successfully", out["message"])
	assert.Equal(t, "/cache/tiny.pt", out["artifact_path"])
	assert.True(t, ts.manager.refreshed)
}

func TestReload_OpenWithoutSecret(t *testing.T) {
	ts := newTestServer(t, "")
	ts.manager.reloadErr = fmt.Errorf("fetch: %w", models.ErrTransferFailed)

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload-model", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "transfer_failed", decode(t, rec)["error"])
	assert.Equal(t, 1, ts.manager.reloads)
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t, "")
	now := time.Now().UTC()
	ts.history.items = []models.Transcription{
		{ID: "b", Text: "two", CreatedAt: now},
		{ID: "a", Text: "one", CreatedAt: now.Add(-time.Minute)},
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcriptions?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	assert.Len(t, items, 1)

	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcriptions/a", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "one", decode(t, rec)["text"])

	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcriptions/zzz", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcriptions?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReload_SurvivesClientDisconnect(t *testing.T) {
	ts := newTestServer(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/reload-model", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ts.manager.reloads)
	assert.NoError(t, ts.manager.ctxErr)
	assert.True(t, ts.manager.ctxDeadline)
}
