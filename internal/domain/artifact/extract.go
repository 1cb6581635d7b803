package artifact

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// DefaultMaxDepth bounds nested container unwrapping.
const DefaultMaxDepth = 3

// DefaultSuffixes are accepted artifact file endings when none are configured.
var DefaultSuffixes = []string{".pt", ".pth", ".bin", ".safetensors", ".gguf", ".ggml", ".onnx"}

// Extractor pulls the first artifact-looking entry out of a container.
type Extractor struct {
	suffixes []string
	maxDepth int
	log      *logger.ZapLogger
}

func NewExtractor(suffixes []string, log *logger.ZapLogger) *Extractor {
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	norm := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		norm = append(norm, s)
	}
	return &Extractor{suffixes: norm, maxDepth: DefaultMaxDepth, log: log}
}

func (e *Extractor) Suffixes() []string { return e.suffixes }

// Extract unwraps path into targetDir until a non-container remains.
// The source container and every intermediate container are removed on success.
// Nothing is written into targetDir when no entry matches.
func (e *Extractor) Extract(path string, class models.Classification, targetDir string) (*models.ExtractionResult, error) {
	res := &models.ExtractionResult{ExtractedPath: path}
	current := path

	// drop removes an intermediate we produced; the caller owns the original.
	drop := func() {
		if current != path {
			_ = os.Remove(current)
		}
	}

	if class == models.Gzip {
		refined, err := SniffFile(current)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrCorruptContainer, err)
		}
		class = refined
	}

	for depth := 0; class.IsContainer(); depth++ {
		if depth == e.maxDepth {
			drop()
			return nil, fmt.Errorf("%w: containers nested deeper than %d in %s",
				models.ErrCorruptContainer, e.maxDepth, filepath.Base(path))
		}

		next, err := e.extractOnce(current, class, targetDir)
		if err != nil {
			drop()
			return nil, err
		}
		res.SourceContainerRemoved = true
		current = next

		class, err = SniffFile(current)
		if err != nil {
			drop()
			return nil, fmt.Errorf("%w: %v", models.ErrCorruptContainer, err)
		}
	}

	if class != models.RawBinary {
		drop()
		return nil, fmt.Errorf("%w: extracted entry %s is %s, not an artifact",
			models.ErrCorruptContainer, filepath.Base(current), class)
	}

	res.ExtractedPath = current
	e.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[extract][ok]",
		Fields: map[string]any{
			"container": filepath.Base(path),
			"artifact":  current,
		},
	})
	return res, nil
}

func (e *Extractor) extractOnce(path string, class models.Classification, targetDir string) (string, error) {
	switch class {
	case models.Zip:
		return e.extractZip(path, targetDir)
	case models.Tar, models.TarGz:
		return e.extractTar(path, class == models.TarGz, targetDir)
	case models.Gzip, models.Zstd, models.Lz4:
		return e.extractStream(path, class, targetDir)
	}
	return "", fmt.Errorf("%w: %s is not a container", models.ErrCorruptContainer, class)
}

func (e *Extractor) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range e.suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// pick returns the lexicographically first matching entry.
func (e *Extractor) pick(container string, entries []string) (string, error) {
	var matched []string
	for _, name := range entries {
		if e.matches(name) {
			matched = append(matched, name)
		}
	}
	if len(matched) == 0 {
		return "", &models.NoMatchingEntryError{
			Container: filepath.Base(container),
			Suffixes:  e.suffixes,
			Entries:   entries,
		}
	}
	sort.Strings(matched)
	return matched[0], nil
}

func (e *Extractor) extractZip(path, targetDir string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: open zip: %v", models.ErrCorruptContainer, err)
	}

	var entries []string
	byName := make(map[string]*zip.File)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, f.Name)
		byName[f.Name] = f
	}

	name, err := e.pick(path, entries)
	if err != nil {
		zr.Close()
		return "", err
	}

	rc, err := byName[name].Open()
	if err != nil {
		zr.Close()
		return "", fmt.Errorf("%w: open entry %s: %v", models.ErrCorruptContainer, name, err)
	}
	staged, err := stage(targetDir, name, rc)
	rc.Close()
	zr.Close()
	if err != nil {
		return "", err
	}
	return staged.commit(path)
}

func (e *Extractor) extractTar(path string, gzipped bool, targetDir string) (string, error) {
	var entries []string
	err := walkTar(path, gzipped, func(h *tar.Header, _ io.Reader) (bool, error) {
		if h.Typeflag == tar.TypeReg {
			entries = append(entries, h.Name)
		}
		return false, nil
	})
	if err != nil {
		return "", err
	}

	name, err := e.pick(path, entries)
	if err != nil {
		return "", err
	}

	var staged *stagedFile
	err = walkTar(path, gzipped, func(h *tar.Header, r io.Reader) (bool, error) {
		if h.Typeflag != tar.TypeReg || h.Name != name {
			return false, nil
		}
		s, err := stage(targetDir, name, r)
		if err != nil {
			return true, err
		}
		staged = s
		return true, nil
	})
	if err != nil {
		return "", err
	}
	if staged == nil {
		return "", fmt.Errorf("%w: entry %s vanished on second pass", models.ErrCorruptContainer, name)
	}
	return staged.commit(path)
}

// walkTar calls fn per header until fn reports done or the archive ends.
func walkTar(path string, gzipped bool, fn func(*tar.Header, io.Reader) (bool, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrCorruptContainer, err)
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: open gzip: %v", models.ErrCorruptContainer, err)
		}
		defer zr.Close()
		r = zr
	}

	tr := tar.NewReader(r)
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read tar: %v", models.ErrCorruptContainer, err)
		}
		done, err := fn(h, tr)
		if err != nil || done {
			return err
		}
	}
}

// Entries lists the regular files inside a zip or tar container without
// extracting anything. Single-payload streams report their one inferred name.
func Entries(path string, class models.Classification) ([]string, error) {
	switch class {
	case models.Zip:
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("%w: open zip: %v", models.ErrCorruptContainer, err)
		}
		defer zr.Close()
		var out []string
		for _, f := range zr.File {
			if !f.FileInfo().IsDir() {
				out = append(out, f.Name)
			}
		}
		return out, nil
	case models.Tar, models.TarGz:
		var out []string
		err := walkTar(path, class == models.TarGz, func(h *tar.Header, _ io.Reader) (bool, error) {
			if h.Typeflag == tar.TypeReg {
				out = append(out, h.Name)
			}
			return false, nil
		})
		return out, err
	case models.Gzip, models.Zstd, models.Lz4:
		return []string{trimStreamExt(filepath.Base(path))}, nil
	}
	return nil, fmt.Errorf("%w: %s is not a container", models.ErrUnsupportedFormat, class)
}

// extractStream handles single-payload compressors. The payload name comes
// from the gzip header when present, otherwise from the file name.
func (e *Extractor) extractStream(path string, class models.Classification, targetDir string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrCorruptContainer, err)
	}
	defer f.Close()

	name := trimStreamExt(filepath.Base(path))
	var r io.Reader
	switch class {
	case models.Gzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("%w: open gzip: %v", models.ErrCorruptContainer, err)
		}
		defer zr.Close()
		if zr.Name != "" {
			name = filepath.Base(zr.Name)
		}
		r = zr
	case models.Zstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("%w: open zstd: %v", models.ErrCorruptContainer, err)
		}
		defer zr.Close()
		r = zr
	case models.Lz4:
		r = lz4.NewReader(f)
	}

	if _, err := e.pick(path, []string{name}); err != nil {
		return "", err
	}
	staged, err := stage(targetDir, name, r)
	if err != nil {
		return "", err
	}
	f.Close()
	return staged.commit(path)
}

func trimStreamExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".gz", ".gzip", ".zst", ".zstd", ".lz4"} {
		if strings.HasSuffix(lower, ext) && len(name) > len(ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// stagedFile is an extracted payload waiting under a temporary name.
type stagedFile struct {
	tmp  string
	dest string
}

func stage(targetDir, entryName string, r io.Reader) (*stagedFile, error) {
	dest, err := safeJoin(targetDir, entryName)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(dest), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".extract-*")
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("%w: decompress %s: %v", models.ErrCorruptContainer, entryName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	return &stagedFile{tmp: tmp.Name(), dest: dest}, nil
}

// commit removes the container and moves the payload into place. The
// destination may be the container's own path.
func (s *stagedFile) commit(container string) (string, error) {
	if err := os.Remove(container); err != nil && !errors.Is(err, os.ErrNotExist) {
		os.Remove(s.tmp)
		return "", fmt.Errorf("remove container %s: %w", container, err)
	}
	if err := os.Rename(s.tmp, s.dest); err != nil {
		os.Remove(s.tmp)
		return "", fmt.Errorf("rename %s: %w", s.dest, err)
	}
	return s.dest, nil
}

func safeJoin(dir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: entry %q escapes target directory", models.ErrCorruptContainer, name)
	}
	return filepath.Join(dir, clean), nil
}
