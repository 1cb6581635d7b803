package models

import "time"

type ModelStatus struct {
	Loaded       bool      `json:"model_loaded"`
	ModelID      string    `json:"model_id"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	Blake3       string    `json:"blake3,omitempty"`
	LoadedAt     time.Time `json:"loaded_at"`
	LastError    string    `json:"last_error,omitempty"`
}
