package lazysheet

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempResourceLifecycle(t *testing.T) {
	dir := t.TempDir()
	tr := NewTempResource(DirStorage{Dir: dir}, discardLogger())

	p, err := tr.Materialize(FromBytes("Data.CSV", []byte("a,b\n")))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(p))
	assert.Equal(t, ".csv", filepath.Ext(p))
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))

	again, err := tr.Materialize(FromBytes("Data.CSV", []byte("other")))
	require.NoError(t, err)
	assert.Equal(t, p, again)
	assert.Equal(t, p, tr.Path())

	require.NoError(t, tr.Release())
	assert.NoFileExists(t, p)
	assert.Empty(t, tr.Path())
	require.NoError(t, tr.Release())

	_, err = tr.Materialize(FromBytes("Data.CSV", nil))
	assert.ErrorIs(t, err, ErrDecoderState)
}

func TestTempResourceReleaseWithoutFile(t *testing.T) {
	tr := NewTempResource(DirStorage{Dir: t.TempDir()}, nil)
	assert.NoError(t, tr.Release())
	assert.NoError(t, tr.Release())
	assert.Empty(t, tr.Path())
}

type flakyStorage struct {
	DirStorage
	removeErr error
	removes   int
}

func (s *flakyStorage) Remove(path string) error {
	s.removes++
	if s.removeErr != nil {
		return s.removeErr
	}
	return s.DirStorage.Remove(path)
}

func TestTempResourceRetriesFailedRemove(t *testing.T) {
	storage := &flakyStorage{DirStorage: DirStorage{Dir: t.TempDir()}, removeErr: errors.New("busy")}
	tr := NewTempResource(storage, discardLogger())

	p, err := tr.Materialize(FromBytes("in.xlsx", []byte("x")))
	require.NoError(t, err)

	err = tr.Release()
	require.ErrorIs(t, err, ErrIO)
	assert.FileExists(t, p)
	assert.Equal(t, p, tr.Path())

	storage.removeErr = nil
	require.NoError(t, tr.Release())
	assert.NoFileExists(t, p)
	assert.Equal(t, 2, storage.removes)

	require.NoError(t, tr.Release())
	assert.Equal(t, 2, storage.removes)
}

func TestTempResourceCopyFailure(t *testing.T) {
	dir := t.TempDir()
	tr := NewTempResource(DirStorage{Dir: dir}, discardLogger())

	_, err := tr.Materialize(FromReader("in.csv", iotest.ErrReader(errors.New("connection reset"))))
	require.ErrorIs(t, err, ErrIO)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "materialize", ioErr.Op)
	assert.Empty(t, dirEntries(t, dir))
	assert.Empty(t, tr.Path())
}

func TestDirStorageRemoveMissing(t *testing.T) {
	s := DirStorage{Dir: t.TempDir()}
	assert.NoError(t, s.Remove(filepath.Join(s.Dir, "gone.csv")))

	p, err := s.Materialize("x.ods", io.LimitReader(zeroReader{}, 16))
	require.NoError(t, err)
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, int64(16), info.Size())
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
