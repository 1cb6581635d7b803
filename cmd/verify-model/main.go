// verify-model inspects model artifacts on disk: what kind of file each one
// is, how big, its blake3 digest, and optionally unwraps containers the same
// way the server does.
//
//	verify-model [--extract DIR] [--suffix .pt --suffix .bin] FILE...
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/domain/artifact"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	var extractDir string
	var suffixes []string
	var verbose bool

	flagSet := pflag.NewFlagSet("verify-model", pflag.ContinueOnError)
	flagSet.StringVar(&extractDir, "extract", "", "unwrap containers into this directory")
	flagSet.StringSliceVar(&suffixes, "suffix", artifact.DefaultSuffixes, "accepted weight file suffixes")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log extraction steps")

	if err := flagSet.Parse(argv); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	files := flagSet.Args()
	if len(files) == 0 {
		return fmt.Errorf("usage: verify-model [--extract DIR] [--suffix S]... FILE...")
	}

	zcore := zap.NewNop()
	if verbose {
		zcore, _ = zap.NewDevelopment()
	}
	extractor := artifact.NewExtractor(suffixes, logger.NewZapLogger(zcore.Sugar()))

	failed := 0
	for _, path := range files {
		if err := inspect(path, extractDir, extractor); err != nil {
			fmt.Printf("[FAIL] %s: %v\n", path, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d artifacts failed", failed, len(files))
	}
	return nil
}

func inspect(path, extractDir string, extractor *artifact.Extractor) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	class, err := artifact.SniffFile(path)
	if err != nil {
		return err
	}
	digest, err := artifact.Digest(path)
	if err != nil {
		return err
	}

	fmt.Printf("[OK] %s\n  class:  %s\n  size:   %d\n  blake3: %s\n", path, class, st.Size(), digest)

	switch {
	case class == models.HtmlPage || class == models.Unknown:
		return fmt.Errorf("%w: not model weights (%s)", models.ErrValidationFailed, class)
	case !class.IsContainer():
		return nil
	}

	entries, err := artifact.Entries(path, class)
	if err != nil {
		return err
	}
	fmt.Printf("  entries (%d):\n", len(entries))
	for _, name := range entries {
		fmt.Printf("    %s\n", name)
	}
	if extractDir == "" {
		return nil
	}

	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return err
	}
	// Extract consumes its input; work on a copy.
	work, err := copyInto(path, extractDir)
	if err != nil {
		return err
	}
	res, err := extractor.Extract(work, class, extractDir)
	if err != nil {
		_ = os.Remove(work)
		return err
	}
	fmt.Printf("  extracted: %s\n", res.ExtractedPath)
	return nil
}

func copyInto(path, dir string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp(dir, ".verify-*-"+filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), dst.Close()
}
