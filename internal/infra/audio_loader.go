package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
	"github.com/google/uuid"
)

// signalDecoder is one strategy for turning an audio file into samples.
type signalDecoder interface {
	Name() string
	Decode(ctx context.Context, path string) (*models.RawSignal, error)
}

// AudioLoader spools an upload to disk and tries each decoder in turn.
type AudioLoader struct {
	decoders []signalDecoder
	tmpDir   string
	log      *logger.ZapLogger
}

func NewAudioLoader(ffmpegPath, ffprobePath string, log *logger.ZapLogger) ports.SignalLoader {
	return &AudioLoader{
		decoders: []signalDecoder{
			&WAVDecoder{},
			NewFFmpegDecoder(ffmpegPath, ffprobePath),
		},
		tmpDir: os.TempDir(),
		log:    log,
	}
}

func (l *AudioLoader) Load(ctx context.Context, filename string, data []byte) (*models.RawSignal, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", models.ErrUnsupportedFormat)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	tmp := filepath.Join(l.tmpDir, "upload-"+uuid.NewString()+ext)
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	defer os.Remove(tmp)

	var reasons []string
	for _, d := range l.decoders {
		sig, err := d.Decode(ctx, tmp)
		if err == nil {
			l.log.Log(logger.LogEntry{
				Level:   "info",
				Message: "[decode][OK]",
				Fields: map[string]any{
					"file":    filename,
					"decoder": d.Name(),
					"rate":    sig.SampleRate,
					"samples": len(sig.Samples),
				},
			})
			return sig, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		reasons = append(reasons, d.Name()+": "+err.Error())
	}

	err := fmt.Errorf("%w: %s (%s)", models.ErrUnsupportedFormat, filename, strings.Join(reasons, "; "))
	l.log.Log(logger.LogEntry{
		Level:   "warn",
		Message: "[decode][ERR]",
		Error:   err,
		Fields:  map[string]any{"file": filename},
	})
	return nil, err
}
