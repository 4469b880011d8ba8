// Package artifact persists fitted objects to disk.
//
// Objects are gob-encoded and written atomically: the bytes go to a temp file
// in the destination directory, are synced, and then renamed over the target.
// A reader never observes a partially written artifact.
package artifact

import (
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"
)

// Permissions of written artifacts and the directories created for them.
// Artifacts are read by inference processes that may run as another user.
const (
	FileMode os.FileMode = 0o644
	DirMode  os.FileMode = 0o755
)

// Info describes a written artifact.
type Info struct {
	Path     string
	Size     int64
	Checksum string
}

// Save gob-encodes v and writes it to path, creating parent directories.
func Save(path string, v any) (Info, error) {
	if path == "" {
		return Info{}, fmt.Errorf("artifact path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return Info{}, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return Info{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	h := xxh3.New()
	cw := &countingWriter{w: io.MultiWriter(tmp, h)}
	if err := gob.NewEncoder(cw).Encode(v); err != nil {
		return Info{}, fmt.Errorf("failed to encode artifact: %w", err)
	}
	// CreateTemp opens the file 0600 and rename keeps the mode.
	if err := tmp.Chmod(FileMode); err != nil {
		return Info{}, fmt.Errorf("failed to set artifact permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return Info{}, fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Info{}, fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		committed = true
		return Info{}, fmt.Errorf("failed to move artifact into place: %w", err)
	}
	committed = true

	return Info{Path: path, Size: cw.n, Checksum: digest(h)}, nil
}

// Load decodes the artifact at path into v, which must be a pointer.
func Load(path string, v any) error {
	f, err := os.Open(path) //nolint:gosec // path is user-provided
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := gob.NewDecoder(f).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("artifact %s is empty", path)
		}
		return fmt.Errorf("failed to decode artifact %s: %w", path, err)
	}
	return nil
}

// Checksum returns the xxh3 digest of the file at path as hex.
func Checksum(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path is user-provided
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	return digest(h), nil
}

func digest(h *xxh3.Hasher) string {
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:])
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
