package infra

import (
	"context"
	"fmt"
	"os"

	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
)

// StubInference accepts any readable artifact and answers with a fixed text.
// It lets the server run end to end without a recognizer sidecar.
type StubInference struct {
	Text string
}

func NewStubInference(text string) *StubInference {
	return &StubInference{Text: text}
}

func (s *StubInference) Name() string { return "stub" }

func (s *StubInference) Load(_ context.Context, artifactPath string) (ports.Model, error) {
	st, err := os.Stat(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("stub load: %w", err)
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("stub load: %s is not a file", artifactPath)
	}
	return &stubModel{text: s.Text}, nil
}

type stubModel struct {
	text string
}

func (m *stubModel) Transcribe(ctx context.Context, sig *models.CanonicalSignal, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if sig == nil || sig.SampleRate != models.CanonicalSampleRate {
		return "", fmt.Errorf("stub transcribe: signal is not canonical")
	}
	return m.text, nil
}

func (m *stubModel) Close() error { return nil }
