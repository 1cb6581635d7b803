package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/config"
	"github.com/awais2281/rizqa-ai/internal/delivery"
	ws "github.com/awais2281/rizqa-ai/internal/delivery/ws"
	"github.com/awais2281/rizqa-ai/internal/domain"
	"github.com/awais2281/rizqa-ai/internal/domain/artifact"
	"github.com/awais2281/rizqa-ai/internal/domain/stations"
	"github.com/awais2281/rizqa-ai/internal/infra"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func main() {

	// LOGGER
	zcore, _ := zap.NewProduction()
	defer zcore.Sync()
	zl := logger.NewZapLogger(zcore.Sugar())

	// CONFIG
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// HISTORY
	repo, closeRepo := openRepo(ctx, cfg, zl)
	defer closeRepo()

	// WS HUB
	hub := ws.NewHub(zl)

	// ARTIFACTS
	if err := os.MkdirAll(cfg.ModelCacheDir, 0o755); err != nil {
		panic("cache dir: " + err.Error())
	}
	extractor := artifact.NewExtractor(cfg.ArtifactSuffixes, zl)
	fetcher := artifact.NewFetcher(cfg.ModelCacheDir, extractor, zl,
		artifact.WithHTTPClient(&http.Client{Timeout: cfg.DownloadTimeout}),
		artifact.WithMinSize(cfg.MinArtifactBytes),
		artifact.WithProgress(func(p models.DownloadProgress) {
			hub.Publish(models.RoomModel, models.Event{Type: models.EventDownloadProgress, Payload: p})
		}),
	)
	cache := artifact.NewCache(cfg.ModelCacheDir, fetcher, zl)

	// MODEL
	var backend ports.InferenceBackend
	switch cfg.InferenceBackend {
	case "stub":
		backend = infra.NewStubInference("")
	default:
		backend = infra.NewHTTPInference(cfg.InferenceURL, cfg.InferenceTimeout, zl)
	}

	modelService := domain.NewModelService(
		domain.ModelSource{
			ModelID:     cfg.ModelID,
			Filename:    cfg.ModelFilename,
			DownloadURL: cfg.ModelDownloadURL,
			Candidates:  artifact.DefaultCandidates(cfg.ModelFilename, cfg.ModelCacheDir, cfg.ModelSearchDirs),
		},
		cache, backend, hub, zl,
	)
	defer modelService.Close()
	modelService.LoadInBackground(ctx)

	// STATIONS
	s1 := stations.NewS1DecodeAudio(infra.NewAudioLoader(cfg.FFmpegPath, cfg.FFprobePath, zl), zl)
	s2 := stations.NewS2Normalize(zl)
	s3 := stations.NewS3Recognize(zl)

	transcriptionService := domain.NewTranscriptionService(
		modelService, repo, hub,
		s1, s2, s3,
		cfg.DefaultLanguage, zl,
	)

	// HANDLERS
	hModel := delivery.NewModelHandler(modelService, cfg.ModelCacheDir, zl)
	hTranscribe := delivery.NewTranscribeHandler(transcriptionService, cfg.MaxUploadBytes, zl)
	hHistory := delivery.NewTranscriptHandler(repo, zl)

	// ROUTER
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Auth"},
		AllowCredentials: true,
	}))

	delivery.RegisterRoutes(r,
		domain.NewAdminAuth(cfg.ReloadToken),
		hModel, hTranscribe, hHistory,
		ws.WSHandler(hub, modelService),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "server started",
		Fields: map[string]any{
			"addr":      cfg.Addr(),
			"model":     cfg.ModelID,
			"backend":   cfg.InferenceBackend,
			"cache_dir": cfg.ModelCacheDir,
		},
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Log(logger.LogEntry{
			Level:   "error",
			Message: "server crashed",
			Error:   err,
		})
		return
	}

	zl.Log(logger.LogEntry{Level: "info", Message: "server stopped"})
}

// openRepo prefers postgres, then sqlite. History is optional; with neither
// configured transcriptions are served but not stored.
func openRepo(ctx context.Context, cfg *config.Config, zl *logger.ZapLogger) (ports.TranscriptRepository, func()) {
	switch {
	case cfg.DatabaseURL != "":
		pool, err := infra.NewPgxPool(ctx, cfg.DatabaseURL)
		if err != nil {
			panic("postgres: " + err.Error())
		}
		if err := infra.EnsureTranscriptSchema(ctx, pool); err != nil {
			panic("postgres schema: " + err.Error())
		}
		return infra.NewPostgresTranscriptRepo(pool), pool.Close

	case cfg.SQLitePath != "":
		db, err := infra.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			panic("sqlite: " + err.Error())
		}
		repo, err := infra.NewSQLiteTranscriptRepo(db)
		if err != nil {
			panic("sqlite schema: " + err.Error())
		}
		return repo, func() { _ = db.Close() }
	}

	zl.Log(logger.LogEntry{
		Level:   "warn",
		Message: "no DATABASE_URL or SQLITE_PATH; transcription history disabled",
	})
	return nil, func() {}
}
