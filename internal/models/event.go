package models

// Event rooms.
const (
	RoomModel          = "model"
	RoomTranscriptions = "transcriptions"
)

// Event types.
const (
	EventDownloadProgress = "download_progress"
	EventModelLoaded      = "model_loaded"
	EventModelLoadFailed  = "model_load_failed"
	EventTranscribed      = "transcribed"
	EventStatus           = "status"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
