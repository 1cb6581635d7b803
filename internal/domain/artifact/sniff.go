package artifact

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/klauspost/compress/gzip"
)

// sniffLen covers the tar header magic at offset 257.
const sniffLen = 512

var (
	magicZip  = []byte("PK")
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLz4  = []byte{0x04, 0x22, 0x4d, 0x18}
	magicTar  = []byte("ustar")
	utf8BOM   = []byte{0xef, 0xbb, 0xbf}
)

// Classify inspects a byte prefix. It never fails and never looks at a file name.
// Only Tar needs more than ten bytes; shorter prefixes simply cannot be Tar.
func Classify(prefix []byte) models.Classification {
	if len(prefix) == 0 {
		return models.Unknown
	}
	switch {
	case bytes.HasPrefix(prefix, magicZip):
		return models.Zip
	case bytes.HasPrefix(prefix, magicGzip):
		return models.Gzip
	case bytes.HasPrefix(prefix, magicZstd):
		return models.Zstd
	case bytes.HasPrefix(prefix, magicLz4):
		return models.Lz4
	case looksLikeHTML(prefix):
		return models.HtmlPage
	case isTarHeader(prefix):
		return models.Tar
	}
	return models.RawBinary
}

// looksLikeHTML matches a document opening with '<' once a BOM and leading
// whitespace are skipped. "<html" and "<!doctype" both start with '<'.
func looksLikeHTML(prefix []byte) bool {
	p := bytes.TrimPrefix(prefix, utf8BOM)
	p = bytes.TrimLeft(p, " \t\r\n")
	return len(p) > 0 && p[0] == '<'
}

func isTarHeader(prefix []byte) bool {
	return len(prefix) >= 257+len(magicTar) && bytes.Equal(prefix[257:257+len(magicTar)], magicTar)
}

// SniffFile classifies the file at path. Gzip streams get a second pass:
// if the decompressed payload opens with a tar header the result is TarGz.
func SniffFile(path string) (models.Classification, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Unknown, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	prefix := make([]byte, sniffLen)
	n, err := io.ReadFull(f, prefix)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return models.Unknown, fmt.Errorf("read %s: %w", path, err)
	}
	class := Classify(prefix[:n])
	if class != models.Gzip {
		return class, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return models.Unknown, fmt.Errorf("seek %s: %w", path, err)
	}
	if gzipHoldsTar(f) {
		return models.TarGz, nil
	}
	return models.Gzip, nil
}

func gzipHoldsTar(r io.Reader) bool {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return false
	}
	defer zr.Close()

	inner := make([]byte, sniffLen)
	n, _ := io.ReadFull(zr, inner)
	return isTarHeader(inner[:n])
}
