package packager

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/open-edge-platform/firmware-packager/internal/utils/security"
)

// Supported archive compression types.
const (
	CompressionGzip = "gz"
	CompressionXZ   = "xz"
	CompressionZstd = "zst"
)

// Archive is a fully read package container, keyed by member path.
type Archive struct {
	Path  string
	Files map[string][]byte
}

// Member returns the bytes of one archive member.
func (a *Archive) Member(path string) ([]byte, bool) {
	data, ok := a.Files[path]
	return data, ok
}

// WriteArchive writes members into a single compressed tar file at path.
// The write goes through a temporary file promoted by rename so a failed
// write never leaves a partial archive at the final path.
func WriteArchive(path, compression string, members map[string][]byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pkg-*")
	if err != nil {
		return fmt.Errorf("creating staging file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := writeTar(tmp, compression, members); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing staging file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("promoting archive: %w", err)
	}
	tmpPath = ""
	return nil
}

func writeTar(w io.Writer, compression string, members map[string][]byte) error {
	var (
		cw  io.WriteCloser
		err error
	)
	switch compression {
	case CompressionGzip:
		cw = gzip.NewWriter(w)
	case CompressionXZ:
		cw, err = xz.NewWriter(w)
	case CompressionZstd:
		cw, err = zstd.NewWriter(w)
	default:
		return fmt.Errorf("unsupported compression type: %s", compression)
	}
	if err != nil {
		return fmt.Errorf("creating %s writer: %w", compression, err)
	}

	tw := tar.NewWriter(cw)

	paths := make([]string, 0, len(members))
	for p := range members {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		data := members[p]
		hdr := &tar.Header{
			Name:    p,
			Mode:    0o644,
			Size:    int64(len(data)),
			ModTime: time.Unix(0, 0).UTC(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing tar header for %s: %w", p, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("writing tar member %s: %w", p, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar stream: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("closing %s stream: %w", compression, err)
	}
	return nil
}

// ReadArchive reads a package container fully into memory. Compression is
// detected from the file name.
func ReadArchive(path string) (*Archive, error) {
	if _, err := security.CheckSymlink(path, security.RejectSymlinks); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	var cr io.Reader
	switch {
	case strings.HasSuffix(path, ".tar.gz"), strings.HasSuffix(path, ".tgz"):
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzr.Close()
		cr = gzr
	case strings.HasSuffix(path, ".tar.xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating xz reader: %w", err)
		}
		cr = xzr
	case strings.HasSuffix(path, ".tar.zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		defer zr.Close()
		cr = zr
	default:
		return nil, fmt.Errorf("unsupported archive extension: %s", path)
	}

	ar := &Archive{Path: path, Files: make(map[string][]byte)}
	tr := tar.NewReader(cr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar stream: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("reading tar member %s: %w", hdr.Name, err)
		}
		ar.Files[hdr.Name] = data
	}
	return ar, nil
}
