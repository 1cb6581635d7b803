package domain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *logger.ZapLogger {
	return logger.NewZapLogger(zap.NewNop().Sugar())
}

type fakeResolver struct {
	path      string
	err       error
	resolves  atomic.Int32
	refetches atomic.Int32
}

func (r *fakeResolver) Resolve(context.Context, string, []string, string) (string, error) {
	r.resolves.Add(1)
	return r.path, r.err
}

func (r *fakeResolver) Refetch(context.Context, string, string) (string, error) {
	r.refetches.Add(1)
	return r.path, r.err
}

func (r *fakeResolver) Manifest(string) (*models.ArtifactManifest, bool) { return nil, false }

type fakeModel struct {
	name   string
	text   string
	err    error
	closes atomic.Int32
}

func (m *fakeModel) Transcribe(ctx context.Context, _ *models.CanonicalSignal, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.text, m.err
}

func (m *fakeModel) Close() error {
	m.closes.Add(1)
	return nil
}

// fakeBackend hands out a fresh fakeModel per load unless err is set.
type fakeBackend struct {
	mu     sync.Mutex
	err    error
	text   string
	loaded []*fakeModel
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Load(_ context.Context, path string) (ports.Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	m := &fakeModel{name: path, text: b.text}
	b.loaded = append(b.loaded, m)
	return m, nil
}

func (b *fakeBackend) setErr(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

func (b *fakeBackend) models() []*fakeModel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*fakeModel(nil), b.loaded...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]models.Event
}

func (p *recordingPublisher) Publish(room string, ev models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]models.Event{}
	}
	p.events[room] = append(p.events[room], ev)
}

func (p *recordingPublisher) types(room string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events[room] {
		out = append(out, ev.Type)
	}
	return out
}

type fakeLoader struct {
	sig   *models.RawSignal
	err   error
	calls atomic.Int32
}

func (l *fakeLoader) Load(context.Context, string, []byte) (*models.RawSignal, error) {
	l.calls.Add(1)
	return l.sig, l.err
}

type memRepo struct {
	mu    sync.Mutex
	saved []*models.Transcription
	err   error
}

func (r *memRepo) Save(_ context.Context, t *models.Transcription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, t)
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (*models.Transcription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.saved {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memRepo) ListRecent(context.Context, int) ([]models.Transcription, error) {
	return nil, errors.New("not used")
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "m.pt")
	require.NoError(t, os.WriteFile(p, []byte{0x80, 0x02, 0x01, 0x02}, 0o644))
	return p
}
