package infra

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/awais2281/rizqa-ai/internal/models"
)

const maxStderrPreview = 180

// FFmpegDecoder handles every container ffmpeg understands. The native sample
// rate is kept when ffprobe can report it.
type FFmpegDecoder struct {
	ffmpeg  string
	ffprobe string
}

func NewFFmpegDecoder(ffmpegPath, ffprobePath string) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegDecoder{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (d *FFmpegDecoder) Name() string { return "ffmpeg" }

func (d *FFmpegDecoder) Decode(ctx context.Context, path string) (*models.RawSignal, error) {
	if _, err := exec.LookPath(d.ffmpeg); err != nil {
		return nil, fmt.Errorf("ffmpeg unavailable: %w", err)
	}

	rate, err := d.probeRate(ctx, path)
	if err != nil {
		rate = models.CanonicalSampleRate
	}

	cmd := exec.CommandContext(ctx, d.ffmpeg,
		"-loglevel", "error",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-f", "f32le",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %v: %s", err, preview(stderr.String()))
	}

	raw := stdout.Bytes()
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return &models.RawSignal{Samples: samples, SampleRate: rate}, nil
}

func (d *FFmpegDecoder) probeRate(ctx context.Context, path string) (int, error) {
	out, err := exec.CommandContext(ctx, d.ffprobe,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, err
	}
	rate, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("ffprobe sample rate %q", strings.TrimSpace(string(out)))
	}
	return rate, nil
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxStderrPreview {
		return s
	}
	return s[:maxStderrPreview] + "…"
}
