package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresTranscriptRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTranscriptRepo(pool *pgxpool.Pool) ports.TranscriptRepository {
	return &PostgresTranscriptRepo{pool: pool}
}

// EnsureTranscriptSchema creates the transcriptions table when missing.
func EnsureTranscriptSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transcriptions (
			id          TEXT PRIMARY KEY,
			filename    TEXT NOT NULL,
			language    TEXT NOT NULL,
			model       TEXT NOT NULL,
			text        TEXT NOT NULL,
			samples     INTEGER NOT NULL,
			duration_ms BIGINT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_transcriptions_created ON transcriptions(created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure transcriptions schema: %w", err)
	}
	return nil
}

func (r *PostgresTranscriptRepo) Save(ctx context.Context, t *models.Transcription) error {
	query := `
		INSERT INTO transcriptions (id, filename, language, model, text, samples, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		t.ID, t.Filename, t.Language, t.Model, t.Text, t.Samples, t.DurationMS, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transcription: %w", err)
	}
	return nil
}

func (r *PostgresTranscriptRepo) Get(ctx context.Context, id string) (*models.Transcription, error) {
	query := `
		SELECT id, filename, language, model, text, samples, duration_ms, created_at
		FROM transcriptions
		WHERE id = $1
	`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get transcription: %w", err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Transcription])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transcription %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transcription: %w", err)
	}
	return &t, nil
}

func (r *PostgresTranscriptRepo) ListRecent(ctx context.Context, limit int) ([]models.Transcription, error) {
	query := `
		SELECT id, filename, language, model, text, samples, duration_ms, created_at
		FROM transcriptions
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list transcriptions: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Transcription])
	if err != nil {
		return nil, fmt.Errorf("list transcriptions: %w", err)
	}
	return out, nil
}
