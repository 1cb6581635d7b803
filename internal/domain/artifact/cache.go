package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/models"
	"golang.org/x/sync/singleflight"
)

// ArtifactFetcher is what the cache falls back to when nothing local is usable.
type ArtifactFetcher interface {
	Fetch(ctx context.Context, ref *models.ArtifactReference) error
}

// Cache resolves a logical artifact name to a local file, fetching at most
// once per name even under concurrent callers.
type Cache struct {
	dir       string
	fetcher   ArtifactFetcher
	manifests *manifestStore
	group     singleflight.Group
	log       *logger.ZapLogger
}

func NewCache(dir string, fetcher ArtifactFetcher, log *logger.ZapLogger) *Cache {
	return &Cache{
		dir:       dir,
		fetcher:   fetcher,
		manifests: newManifestStore(dir),
		log:       log,
	}
}

func (c *Cache) Dir() string { return c.dir }

// DefaultCandidates lists where a pre-provisioned artifact may already sit:
// the working directory, ./models, each search dir, then the cache dir.
func DefaultCandidates(logicalName, cacheDir string, searchDirs []string) []string {
	name := filepath.Base(logicalName)
	dirs := append([]string{".", "models"}, searchDirs...)
	dirs = append(dirs, cacheDir)

	seen := make(map[string]bool, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d == "" {
			continue
		}
		p := filepath.Clean(filepath.Join(d, name))
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Resolve returns the first existing candidate, then the path recorded by a
// previous fetch, and only then downloads sourceURL.
func (c *Cache) Resolve(ctx context.Context, logicalName string, candidates []string, sourceURL string) (string, error) {
	v, err, shared := c.group.Do(logicalName, func() (any, error) {
		return c.resolve(ctx, logicalName, candidates, sourceURL)
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.log.Log(logger.LogEntry{
			Level:   "debug",
			Message: "[cache][SHARED]",
			Fields:  map[string]any{"name": logicalName},
		})
	}
	return v.(string), nil
}

// Refetch skips local candidates and downloads again. The cached copy and its
// manifest are replaced only when the new download validates. Refetches share
// a flight with each other, never with a plain Resolve.
func (c *Cache) Refetch(ctx context.Context, logicalName, sourceURL string) (string, error) {
	v, err, _ := c.group.Do("refetch:"+logicalName, func() (any, error) {
		return c.fetch(ctx, logicalName, sourceURL)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Manifest returns the record of the last fetch for logicalName, if any.
func (c *Cache) Manifest(logicalName string) (*models.ArtifactManifest, bool) {
	m, err := c.manifests.load(logicalName)
	if err != nil {
		return nil, false
	}
	return m, true
}

func (c *Cache) resolve(ctx context.Context, logicalName string, candidates []string, sourceURL string) (string, error) {
	for _, p := range candidates {
		if isRegular(p) {
			c.log.Log(logger.LogEntry{
				Level:   "info",
				Message: "[cache][HIT]",
				Fields:  map[string]any{"name": logicalName, "path": p},
			})
			return p, nil
		}
	}

	if m, err := c.manifests.load(logicalName); err == nil {
		if st, err := os.Stat(m.LocalPath); err == nil && st.Mode().IsRegular() && st.Size() == m.Size {
			c.log.Log(logger.LogEntry{
				Level:   "info",
				Message: "[cache][HIT]",
				Fields:  map[string]any{"name": logicalName, "path": m.LocalPath, "source": "manifest"},
			})
			return m.LocalPath, nil
		}
	}

	if sourceURL == "" {
		return "", fmt.Errorf("%w: %s not found in %v and no download url configured",
			models.ErrSourceUnresolvable, logicalName, candidates)
	}
	return c.fetch(ctx, logicalName, sourceURL)
}

func (c *Cache) fetch(ctx context.Context, logicalName, sourceURL string) (string, error) {
	if sourceURL == "" {
		return "", fmt.Errorf("%w: no download url for %s", models.ErrSourceUnresolvable, logicalName)
	}
	ref := &models.ArtifactReference{LogicalName: logicalName, SourceURL: sourceURL}
	if err := c.fetcher.Fetch(ctx, ref); err != nil {
		return "", err
	}

	m := &models.ArtifactManifest{
		LogicalName: logicalName,
		SourceURL:   sourceURL,
		LocalPath:   ref.LocalPath,
		FetchedAt:   time.Now().UTC(),
	}
	if st, err := os.Stat(ref.LocalPath); err == nil {
		m.Size = st.Size()
	}
	if sum, err := Digest(ref.LocalPath); err == nil {
		m.Blake3 = sum
	}
	if err := c.manifests.save(m); err != nil {
		c.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: "[cache][MANIFEST]",
			Error:   err,
			Fields:  map[string]any{"name": logicalName},
		})
	}
	return ref.LocalPath, nil
}

func isRegular(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
