package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
	_ "modernc.org/sqlite"
)

var _ ports.TranscriptRepository = (*SQLiteTranscriptRepo)(nil)

// sqliteTime has a fixed width so text order matches time order.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// OpenSQLite opens (or creates) a SQLite database at path in WAL mode.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type SQLiteTranscriptRepo struct {
	db *sql.DB
}

func NewSQLiteTranscriptRepo(db *sql.DB) (*SQLiteTranscriptRepo, error) {
	r := &SQLiteTranscriptRepo{db: db}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transcriptions (
			id          TEXT PRIMARY KEY,
			filename    TEXT NOT NULL,
			language    TEXT NOT NULL,
			model       TEXT NOT NULL,
			text        TEXT NOT NULL,
			samples     INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			created_at  TEXT NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("create transcriptions table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_transcriptions_created ON transcriptions(created_at)`); err != nil {
		return nil, fmt.Errorf("create transcriptions index: %w", err)
	}
	return r, nil
}

func (r *SQLiteTranscriptRepo) Save(ctx context.Context, t *models.Transcription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transcriptions (id, filename, language, model, text, samples, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Filename, t.Language, t.Model, t.Text, t.Samples, t.DurationMS,
		t.CreatedAt.UTC().Format(sqliteTime),
	)
	if err != nil {
		return fmt.Errorf("insert transcription: %w", err)
	}
	return nil
}

func (r *SQLiteTranscriptRepo) Get(ctx context.Context, id string) (*models.Transcription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, filename, language, model, text, samples, duration_ms, created_at
		FROM transcriptions WHERE id = ?`, id)
	t, err := scanSQLiteTranscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transcription %s: %w", id, models.ErrNotFound)
	}
	return t, err
}

func (r *SQLiteTranscriptRepo) ListRecent(ctx context.Context, limit int) ([]models.Transcription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, filename, language, model, text, samples, duration_ms, created_at
		FROM transcriptions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transcriptions: %w", err)
	}
	defer rows.Close()

	out := []models.Transcription{}
	for rows.Next() {
		t, err := scanSQLiteTranscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTranscription(row rowScanner) (*models.Transcription, error) {
	var (
		t       models.Transcription
		created string
	)
	if err := row.Scan(&t.ID, &t.Filename, &t.Language, &t.Model, &t.Text, &t.Samples, &t.DurationMS, &created); err != nil {
		return nil, err
	}
	ts, err := time.Parse(sqliteTime, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	t.CreatedAt = ts
	return &t, nil
}
