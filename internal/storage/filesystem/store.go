// Package filesystem stores uploaded photos in a local directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/storage/imagecheck"
)

// Store writes images as <dir>/<uuid>.<ext>.
type Store struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// New creates a filesystem store rooted at dir. The directory is created on first write.
func New(dir string, maxBytes int64, logger *zap.Logger) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir %q: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: abs, maxBytes: maxBytes, logger: logger}, nil
}

// Dir returns the absolute upload directory.
func (s *Store) Dir() string { return s.dir }

// Store validates and persists an image, returning its absolute path.
func (s *Store) Store(ctx context.Context, data []byte) (string, error) {
	format, err := imagecheck.Detect(data, s.maxBytes)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("prepare upload dir: %w", err)
	}

	path := filepath.Join(s.dir, uuid.NewString()+"."+format.Ext)
	if err := writeFile(path, data); err != nil {
		return "", err
	}

	s.logger.Debug("Image stored", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

// Delete removes an image previously returned by Store. Paths outside the
// upload directory are refused; an already missing file is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	clean := filepath.Clean(path)
	if filepath.Dir(clean) != s.dir {
		return fmt.Errorf("delete image: %q is outside %q", path, s.dir)
	}
	if err := os.Remove(clean); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	s.logger.Debug("Image deleted", zap.String("path", clean))
	return nil
}

// writeFile writes through a temp file so readers never see a partial image.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename image: %w", err)
	}
	return nil
}
