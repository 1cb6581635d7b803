package models

import "time"

type Transcription struct {
	ID         string    `db:"id" json:"id"`
	Filename   string    `db:"filename" json:"filename"`
	Language   string    `db:"language" json:"language"`
	Model      string    `db:"model" json:"model"`
	Text       string    `db:"text" json:"text"`
	Samples    int       `db:"samples" json:"samples"`
	DurationMS int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Upload is one inbound audio file. Each request owns its bytes.
type Upload struct {
	Filename string
	Language string
	Data     []byte
}
