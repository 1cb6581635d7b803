package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration. Values come from an optional YAML
// file (CONFIG_FILE) overlaid by environment variables.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	ModelID          string        `yaml:"model_id"`
	ModelDownloadURL string        `yaml:"model_download_url"`
	ModelFilename    string        `yaml:"model_filename"`
	ModelCacheDir    string        `yaml:"model_cache_dir"`
	ModelSearchDirs  []string      `yaml:"model_search_dirs"`
	ArtifactSuffixes []string      `yaml:"artifact_suffixes"`
	MinArtifactBytes int64         `yaml:"min_artifact_bytes"`
	DownloadTimeout  time.Duration `yaml:"download_timeout"`

	InferenceBackend string        `yaml:"inference_backend"`
	InferenceURL     string        `yaml:"inference_url"`
	InferenceTimeout time.Duration `yaml:"inference_timeout"`

	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	ReloadToken     string   `yaml:"reload_token"`
	CORSOrigins     []string `yaml:"cors_origins"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes"`
	DefaultLanguage string   `yaml:"default_language"`

	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

func defaults() Config {
	return Config{
		Host:             "0.0.0.0",
		Port:             8000,
		ModelID:          "whisper-small-ar",
		ModelFilename:    "model.pt",
		ModelCacheDir:    "./model_cache",
		ArtifactSuffixes: []string{".pt", ".pth", ".bin", ".safetensors", ".gguf", ".ggml", ".onnx"},
		MinArtifactBytes: 1 << 20,
		DownloadTimeout:  30 * time.Minute,
		InferenceBackend: "http",
		InferenceURL:     "http://127.0.0.1:9000",
		InferenceTimeout: 5 * time.Minute,
		CORSOrigins:      []string{"*"},
		MaxUploadBytes:   100 << 20,
		DefaultLanguage:  "ar",
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
	}
}

// Load builds the config: defaults, then CONFIG_FILE, then environment.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	var errs []error
	cfg.Host = envOr("HOST", cfg.Host)
	cfg.Port = envInt("PORT", cfg.Port, &errs)
	cfg.ModelID = envOr("MODEL_ID", cfg.ModelID)
	cfg.ModelDownloadURL = envOr("MODEL_DOWNLOAD_URL", cfg.ModelDownloadURL)
	cfg.ModelFilename = envOr("MODEL_FILENAME", cfg.ModelFilename)
	cfg.ModelCacheDir = envOr("MODEL_CACHE_DIR", cfg.ModelCacheDir)
	cfg.ModelSearchDirs = envList("MODEL_SEARCH_DIRS", cfg.ModelSearchDirs)
	cfg.ArtifactSuffixes = envList("ARTIFACT_SUFFIXES", cfg.ArtifactSuffixes)
	cfg.MinArtifactBytes = envInt64("MIN_ARTIFACT_BYTES", cfg.MinArtifactBytes, &errs)
	cfg.DownloadTimeout = envDuration("DOWNLOAD_TIMEOUT", cfg.DownloadTimeout, &errs)
	cfg.InferenceBackend = envOr("INFERENCE_BACKEND", cfg.InferenceBackend)
	cfg.InferenceURL = envOr("INFERENCE_URL", cfg.InferenceURL)
	cfg.InferenceTimeout = envDuration("INFERENCE_TIMEOUT", cfg.InferenceTimeout, &errs)
	cfg.DatabaseURL = envOr("DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLitePath = envOr("SQLITE_PATH", cfg.SQLitePath)
	cfg.ReloadToken = envOr("RELOAD_TOKEN", cfg.ReloadToken)
	cfg.CORSOrigins = envList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes, &errs)
	cfg.DefaultLanguage = envOr("DEFAULT_LANGUAGE", cfg.DefaultLanguage)
	cfg.FFmpegPath = envOr("FFMPEG_PATH", cfg.FFmpegPath)
	cfg.FFprobePath = envOr("FFPROBE_PATH", cfg.FFprobePath)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.ModelFilename) == "" {
		errs = append(errs, errors.New("model filename is empty"))
	}
	if c.ModelCacheDir == "" {
		errs = append(errs, errors.New("model cache dir is empty"))
	}
	if len(c.ArtifactSuffixes) == 0 {
		errs = append(errs, errors.New("no artifact suffixes"))
	}
	if c.MinArtifactBytes < 0 {
		errs = append(errs, fmt.Errorf("min artifact bytes %d is negative", c.MinArtifactBytes))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max upload bytes %d must be positive", c.MaxUploadBytes))
	}
	switch c.InferenceBackend {
	case "http":
		if c.InferenceURL == "" {
			errs = append(errs, errors.New("inference url is required for the http backend"))
		}
	case "stub":
	default:
		errs = append(errs, fmt.Errorf("unknown inference backend %q", c.InferenceBackend))
	}
	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func envInt64(key string, def int64, errs *[]error) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func envDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

// envList splits a comma separated value, dropping blanks.
func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
