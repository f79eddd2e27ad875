package lazysheet

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TempStorage holds local copies of non-local sources so a decoder can open
// them by path.
type TempStorage interface {
	// Materialize copies r to a new local file whose extension matches name.
	Materialize(name string, r io.Reader) (string, error)
	// Remove deletes a file returned by Materialize. Removing a missing file is not an error.
	Remove(path string) error
}

// DirStorage materialises into a directory on the local filesystem.
type DirStorage struct {
	Dir string
}

// Materialize writes r to Dir/lazysheet-<uuid><ext>. A partial file is
// removed when the copy fails.
func (s DirStorage) Materialize(name string, r io.Reader) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	p := filepath.Join(dir, "lazysheet-"+uuid.NewString()+strings.ToLower(filepath.Ext(name)))

	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return "", err
	}
	return p, nil
}

// Remove deletes path, ignoring a file that is already gone.
func (s DirStorage) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// TempResource tracks the temp copy of one session's source. The copy is
// created on first Materialize and deleted by Release.
type TempResource struct {
	storage  TempStorage
	logger   *slog.Logger
	path     string
	released bool
}

// NewTempResource creates an empty resource backed by storage.
func NewTempResource(storage TempStorage, logger *slog.Logger) *TempResource {
	if logger == nil {
		logger = slog.Default()
	}
	return &TempResource{storage: storage, logger: logger}
}

// Materialize copies src to temp storage once and returns the local path.
func (t *TempResource) Materialize(src Source) (string, error) {
	if t.released {
		return "", fmt.Errorf("%w: temp resource already released", ErrDecoderState)
	}
	if t.path != "" {
		return t.path, nil
	}

	rc, err := src.open()
	if err != nil {
		return "", &IOError{Op: "materialize", Path: src.Name(), Err: err}
	}
	defer rc.Close()

	p, err := t.storage.Materialize(src.Name(), rc)
	if err != nil {
		return "", &IOError{Op: "materialize", Path: src.Name(), Err: err}
	}
	t.path = p
	t.logger.Debug("materialized source", "source", src.Name(), "path", p)
	return p, nil
}

// Path returns the temp path, empty when nothing was materialised.
func (t *TempResource) Path() string {
	return t.path
}

// Release removes the temp file. It is idempotent and a no-op when no file
// was created; a failed removal is retried by the next call.
func (t *TempResource) Release() error {
	if t.path == "" {
		t.released = true
		return nil
	}
	if err := t.storage.Remove(t.path); err != nil {
		return &IOError{Op: "remove", Path: t.path, Err: err}
	}
	t.logger.Debug("removed temp file", "path", t.path)
	t.path = ""
	t.released = true
	return nil
}
