package models

import "time"

// Classification is the format of a byte stream as seen from its first bytes.
type Classification int

const (
	Unknown Classification = iota
	RawBinary
	Zip
	Tar
	TarGz
	Gzip
	Zstd
	Lz4
	HtmlPage
)

func (c Classification) String() string {
	switch c {
	case RawBinary:
		return "raw-binary"
	case Zip:
		return "zip"
	case Tar:
		return "tar"
	case TarGz:
		return "tar-gz"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case Lz4:
		return "lz4"
	case HtmlPage:
		return "html-page"
	default:
		return "unknown"
	}
}

// IsContainer reports whether the classification wraps another payload.
func (c Classification) IsContainer() bool {
	switch c {
	case Zip, Tar, TarGz, Gzip, Zstd, Lz4:
		return true
	}
	return false
}

// ArtifactReference names a model artifact and where to get it.
// At least one of SourceURL/LocalPath must be set before a fetch.
type ArtifactReference struct {
	LogicalName string `json:"logical_name"`
	SourceURL   string `json:"source_url,omitempty"`
	LocalPath   string `json:"local_path,omitempty"`
}

type ExtractionResult struct {
	ExtractedPath          string `json:"extracted_path"`
	SourceContainerRemoved bool   `json:"source_container_removed"`
}

// ArtifactManifest is the sidecar record written after a successful fetch.
type ArtifactManifest struct {
	LogicalName string    `json:"logical_name" cbor:"1,keyasint"`
	SourceURL   string    `json:"source_url" cbor:"2,keyasint"`
	LocalPath   string    `json:"local_path" cbor:"3,keyasint"`
	Size        int64     `json:"size" cbor:"4,keyasint"`
	Blake3      string    `json:"blake3" cbor:"5,keyasint"`
	FetchedAt   time.Time `json:"fetched_at" cbor:"6,keyasint"`
}

// DownloadProgress is reported at coarse milestones during a transfer.
// It is never persisted.
type DownloadProgress struct {
	LogicalName string `json:"logical_name"`
	URL         string `json:"url"`
	Bytes       int64  `json:"bytes"`
	Total       int64  `json:"total"` // -1 when the server sent no length
	Percent     int    `json:"percent"`
}
