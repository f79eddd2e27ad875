package lazysheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
)

// Upload is an uploaded or in-memory file that has no decoder-readable path
// of its own. Filename carries the client-side name used as the format hint.
type Upload interface {
	Filename() string
	Open() (io.ReadCloser, error)
}

// Source is the input of an import session: either a local path or content
// that must be materialised to a temp file before a decoder can read it.
type Source struct {
	path string
	name string
	fsys fs.FS
	open func() (io.ReadCloser, error)
}

// FromPath reads a local file directly; no temp copy is made.
func FromPath(p string) Source {
	return Source{path: p, name: filepath.Base(p)}
}

// FromUpload materialises an upload into the temp directory for each session.
func FromUpload(u Upload) Source {
	return Source{name: u.Filename(), open: u.Open}
}

// FromFileHeader adapts a multipart form file.
func FromFileHeader(fh *multipart.FileHeader) Source {
	return Source{
		name: fh.Filename,
		open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// FromBytes imports in-memory content; name supplies the extension hint.
func FromBytes(name string, data []byte) Source {
	return Source{
		name: name,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromReader imports a stream. The reader can back a single session only;
// later sessions fail with ErrSourceConsumed.
func FromReader(name string, r io.Reader) Source {
	used := false
	return Source{
		name: name,
		open: func() (io.ReadCloser, error) {
			if used {
				return nil, ErrSourceConsumed
			}
			used = true
			return io.NopCloser(r), nil
		},
	}
}

// FromFS copies name out of fsys into the temp directory for each session.
func FromFS(fsys fs.FS, name string) Source {
	return Source{
		path: name,
		name: path.Base(name),
		fsys: fsys,
		open: func() (io.ReadCloser, error) { return fsys.Open(name) },
	}
}

// Name is the file name used for format resolution and display.
func (s Source) Name() string {
	return s.name
}

// IsZero reports whether no input was bound.
func (s Source) IsZero() bool {
	return s.path == "" && s.open == nil
}

// Local reports whether the source is already a decoder-readable path.
func (s Source) Local() bool {
	return s.fsys == nil && s.open == nil && s.path != ""
}

// check verifies a path-backed source exists before any decoder is involved.
func (s Source) check() error {
	if s.IsZero() {
		return fmt.Errorf("%w: no file bound", ErrMissingSource)
	}

	var (
		info fs.FileInfo
		err  error
	)
	switch {
	case s.fsys != nil:
		info, err = fs.Stat(s.fsys, s.path)
	case s.Local():
		info, err = os.Stat(s.path)
	default:
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissingSource, s.path)
	}
	if err != nil {
		return &IOError{Op: "stat", Path: s.path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrMissingSource, s.path)
	}
	return nil
}
