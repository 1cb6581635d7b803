package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
	"github.com/google/uuid"
)

// HTTPInference drives a recognizer sidecar that owns the actual weights.
// The sidecar exposes POST /load, /transcribe and /unload.
type HTTPInference struct {
	baseURL string
	client  *http.Client
	log     *logger.ZapLogger

	// live counts open models per sidecar handle; /unload is sent only
	// when the last one closes.
	mu   sync.Mutex
	live map[string]int
}

func NewHTTPInference(baseURL string, timeout time.Duration, log *logger.ZapLogger) *HTTPInference {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPInference{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log,
		live:    make(map[string]int),
	}
}

func (b *HTTPInference) Name() string { return "http" }

type loadRequest struct {
	ArtifactPath string `json:"artifact_path"`
	Handle       string `json:"handle"`
}

type loadResponse struct {
	Handle string `json:"handle"`
	Error  string `json:"error"`
}

type transcribeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (b *HTTPInference) Load(ctx context.Context, artifactPath string) (ports.Model, error) {
	requested := uuid.NewString()
	body, _ := json.Marshal(loadRequest{ArtifactPath: artifactPath, Handle: requested})
	raw, err := b.post(ctx, "/load", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var parsed loadResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("inference load: decode response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("inference load: %s", parsed.Error)
	}
	if parsed.Handle == "" {
		parsed.Handle = requested
	}

	b.mu.Lock()
	b.live[parsed.Handle]++
	b.mu.Unlock()

	b.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[inference][LOAD]",
		Fields:  map[string]any{"artifact": artifactPath, "handle": parsed.Handle},
	})
	return &remoteModel{backend: b, handle: parsed.Handle}, nil
}

func (b *HTTPInference) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference %s request: %w", path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return raw, fmt.Errorf("inference %s http %d: %s", path, resp.StatusCode, preview(string(raw)))
	}
	return raw, nil
}

type remoteModel struct {
	backend *HTTPInference
	handle  string
	once    sync.Once
}

// Transcribe ships the canonical signal as a 16 kHz WAV. The temp file is
// removed on every path.
func (m *remoteModel) Transcribe(ctx context.Context, sig *models.CanonicalSignal, language string) (string, error) {
	tmp := filepath.Join(os.TempDir(), "canonical-"+uuid.NewString()+".wav")
	if err := WriteCanonicalWAV(tmp, sig); err != nil {
		os.Remove(tmp)
		return "", err
	}
	defer os.Remove(tmp)

	wavBytes, err := os.ReadFile(tmp)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("handle", m.handle)
	_ = mw.WriteField("language", language)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(wavBytes); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	raw, err := m.backend.post(ctx, "/transcribe", mw.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}

	var parsed transcribeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("inference transcribe: decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("inference transcribe: %s", parsed.Error)
	}
	return parsed.Text, nil
}

// Close unloads the handle unless another open model still shares it.
func (m *remoteModel) Close() error {
	last := false
	m.once.Do(func() { last = m.backend.release(m.handle) })
	if !last {
		return nil
	}

	body, _ := json.Marshal(map[string]string{"handle": m.handle})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := m.backend.post(ctx, "/unload", "application/json", bytes.NewReader(body))
	return err
}

func (b *HTTPInference) release(handle string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live[handle]--
	if b.live[handle] > 0 {
		return false
	}
	delete(b.live, handle)
	return true
}
