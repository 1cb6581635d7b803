package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/models"
)

const (
	// DefaultMinSize rejects payloads that cannot plausibly be model weights.
	DefaultMinSize int64 = 1 << 20

	// unknownLengthStep is the progress interval when no Content-Length is sent.
	unknownLengthStep int64 = 16 << 20

	// pageScanLen is how much of an HTML interstitial is kept for token scraping.
	pageScanLen = 64 << 10

	userAgent = "rizqa-ai/1.0"
)

// Fetcher downloads a remote artifact, unwraps containers and validates the
// result before anything appears under the cache directory.
type Fetcher struct {
	client    *http.Client
	cacheDir  string
	minSize   int64
	extractor *Extractor
	progress  func(models.DownloadProgress)
	log       *logger.ZapLogger
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

func WithMinSize(n int64) FetcherOption {
	return func(f *Fetcher) { f.minSize = n }
}

func WithProgress(fn func(models.DownloadProgress)) FetcherOption {
	return func(f *Fetcher) { f.progress = fn }
}

func NewFetcher(cacheDir string, extractor *Extractor, log *logger.ZapLogger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: 30 * time.Minute},
		cacheDir:  cacheDir,
		minSize:   DefaultMinSize,
		extractor: extractor,
		log:       log,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// resolutionStrategy yields the reference to try given the interstitial page
// from the previous attempt (nil on the first attempt). ok=false skips it.
type resolutionStrategy struct {
	name    string
	resolve func(direct string, page []byte) (string, bool)
}

var strategies = []resolutionStrategy{
	{
		name: "direct",
		resolve: func(direct string, _ []byte) (string, bool) {
			return direct, true
		},
	},
	{
		name: "consent-bypass",
		resolve: func(direct string, page []byte) (string, bool) {
			if page == nil {
				return "", false
			}
			return ConsentBypass(direct, page), true
		},
	},
}

// Fetch fills ref.LocalPath with a validated raw artifact under the cache
// directory. A reference that already points at a valid file is left alone.
func (f *Fetcher) Fetch(ctx context.Context, ref *models.ArtifactReference) error {
	if ref.LocalPath != "" {
		if class, err := SniffFile(ref.LocalPath); err == nil && class == models.RawBinary {
			return nil
		}
	}
	if ref.SourceURL == "" {
		return fmt.Errorf("%w: %s has no local copy and no source url", models.ErrSourceUnresolvable, ref.LogicalName)
	}
	name := filepath.Base(ref.LogicalName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return fmt.Errorf("%w: invalid logical name %q", models.ErrSourceUnresolvable, ref.LogicalName)
	}

	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", f.cacheDir, err)
	}
	work, err := os.MkdirTemp(f.cacheDir, ".fetch-*")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(work)

	f.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[fetch][START]",
		Fields:  map[string]any{"name": ref.LogicalName, "url": ref.SourceURL},
	})

	staging := filepath.Join(work, name)
	class, err := f.download(ctx, ref, staging)
	if err != nil {
		f.fail(ref, err)
		return err
	}

	st, err := os.Stat(staging)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransferFailed, err)
	}
	if st.Size() < f.minSize {
		err := fmt.Errorf("%w: %s is %d bytes, need at least %d", models.ErrSizeTooSmall, name, st.Size(), f.minSize)
		f.fail(ref, err)
		return err
	}

	// unpack and validate inside work; only a verified file replaces the cached copy
	verified := staging
	if class.IsContainer() {
		res, err := f.extractor.Extract(staging, class, work)
		if err != nil {
			f.fail(ref, err)
			return err
		}
		verified = res.ExtractedPath
	}

	if got, err := SniffFile(verified); err != nil || got != models.RawBinary {
		err := fmt.Errorf("%w: %s classified as %s after fetch", models.ErrValidationFailed, filepath.Base(verified), got)
		f.fail(ref, err)
		return err
	}

	final := filepath.Join(f.cacheDir, filepath.Base(verified))
	if err := os.Rename(verified, final); err != nil {
		return fmt.Errorf("move %s into cache: %w", filepath.Base(verified), err)
	}

	ref.LocalPath = final
	f.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[fetch][OK]",
		Fields:  map[string]any{"name": ref.LogicalName, "path": final, "format": class.String()},
	})
	return nil
}

// download walks the strategy list. Transport errors and non-2xx statuses end
// the fetch at once; an HTML body moves on to the next strategy.
func (f *Fetcher) download(ctx context.Context, ref *models.ArtifactReference, dest string) (models.Classification, error) {
	direct, rules := NormalizeLink(ref.SourceURL)
	if len(rules) > 0 {
		f.log.Log(logger.LogEntry{
			Level:   "info",
			Message: "[fetch][REWRITE]",
			Fields:  map[string]any{"from": ref.SourceURL, "to": direct, "rules": rules},
		})
	}

	var (
		page     []byte
		failures []string
	)
	for _, s := range strategies {
		target, ok := s.resolve(direct, page)
		if !ok {
			continue
		}
		if err := f.transfer(ctx, ref.LogicalName, target, dest); err != nil {
			return models.Unknown, err
		}

		class, err := SniffFile(dest)
		if err != nil {
			return models.Unknown, fmt.Errorf("%w: %v", models.ErrTransferFailed, err)
		}
		if class != models.HtmlPage {
			return class, nil
		}

		page = readHead(dest, pageScanLen)
		failures = append(failures, fmt.Sprintf("%s: %s served an HTML page", s.name, target))
		f.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: "[fetch][HTML]",
			Fields:  map[string]any{"strategy": s.name, "url": target},
		})
	}

	return models.Unknown, fmt.Errorf("%w: every strategy returned a web page (%s)",
		models.ErrValidationFailed, strings.Join(failures, "; "))
}

func (f *Fetcher) transfer(ctx context.Context, name, target, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrSourceUnresolvable, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned http %d", models.ErrTransferFailed, target, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	pr := &progressReporter{
		fetcher: f,
		p:       models.DownloadProgress{LogicalName: name, URL: target, Total: resp.ContentLength},
	}
	if pr.p.Total <= 0 {
		pr.p.Total = -1
	}

	if _, err := io.Copy(io.MultiWriter(out, pr), resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("%w: %v", models.ErrTransferFailed, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	pr.finish()
	return nil
}

func (f *Fetcher) fail(ref *models.ArtifactReference, err error) {
	f.log.Log(logger.LogEntry{
		Level:   "error",
		Message: "[fetch][ERR]",
		Error:   err,
		Fields:  map[string]any{"name": ref.LogicalName, "url": ref.SourceURL},
	})
}

func (f *Fetcher) report(p models.DownloadProgress) {
	f.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "[fetch][PROGRESS]",
		Fields: map[string]any{
			"name":    p.LogicalName,
			"bytes":   p.Bytes,
			"total":   p.Total,
			"percent": p.Percent,
		},
	})
	if f.progress != nil {
		f.progress(p)
	}
}

// progressReporter emits at every 10% when the length is known, otherwise
// every unknownLengthStep bytes.
type progressReporter struct {
	fetcher *Fetcher
	p       models.DownloadProgress
	next    int64
}

func (r *progressReporter) Write(b []byte) (int, error) {
	r.p.Bytes += int64(len(b))
	if r.p.Total > 0 {
		pct := int(r.p.Bytes * 100 / r.p.Total)
		if pct >= int(r.next) && pct < 100 {
			r.p.Percent = pct - pct%10
			r.next = int64(r.p.Percent + 10)
			r.fetcher.report(r.p)
		}
		return len(b), nil
	}
	if r.p.Bytes >= r.next+unknownLengthStep {
		r.next = r.p.Bytes - r.p.Bytes%unknownLengthStep
		r.p.Percent = -1
		r.fetcher.report(r.p)
	}
	return len(b), nil
}

func (r *progressReporter) finish() {
	if r.p.Total > 0 {
		r.p.Percent = 100
	} else {
		r.p.Percent = -1
	}
	r.fetcher.report(r.p)
}

func readHead(path string, n int) []byte {
	fh, err := os.Open(path)
	if err != nil {
		return []byte{}
	}
	defer fh.Close()
	buf := make([]byte, n)
	got, _ := io.ReadFull(fh, buf)
	return buf[:got]
}
