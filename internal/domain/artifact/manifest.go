package artifact

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

const manifestDir = ".manifests"

type manifestStore struct {
	dir string
}

func newManifestStore(cacheDir string) *manifestStore {
	return &manifestStore{dir: filepath.Join(cacheDir, manifestDir)}
}

func (s *manifestStore) path(logicalName string) string {
	return filepath.Join(s.dir, filepath.Base(logicalName)+".cbor")
}

func (s *manifestStore) load(logicalName string) (*models.ArtifactManifest, error) {
	raw, err := os.ReadFile(s.path(logicalName))
	if err != nil {
		return nil, err
	}
	var m models.ArtifactManifest
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", logicalName, err)
	}
	return &m, nil
}

func (s *manifestStore) save(m *models.ArtifactManifest) error {
	raw, err := cbor.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.dir, err)
	}
	tmp, err := os.CreateTemp(s.dir, ".manifest-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(m.LogicalName))
}

// Digest returns the hex BLAKE3 hash of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
