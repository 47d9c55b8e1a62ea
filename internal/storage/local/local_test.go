package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/dev-tams/dirkit/internal/fsutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDirNames(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/data", 0o755))
	for _, name := range []string{"b.log", "a.log", "c.log"} {
		require.NoError(t, afero.WriteFile(fsys, filepath.Join("/data", name), []byte("x"), 0o644))
	}

	b := NewWithFs("mem", fsys)
	names, err := b.ReadDirNames(context.Background(), "/data")
	require.NoError(t, err)

	sort.Strings(names)
	assert.Equal(t, []string{"a.log", "b.log", "c.log"}, names)
}

func TestReadDirNamesMissingDirectory(t *testing.T) {
	b := New("os")
	_, err := b.ReadDirNames(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReadDirNamesOnFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := New("os").ReadDirNames(context.Background(), file)
	require.Error(t, err)
	assert.Equal(t, fsutil.KindNotADirectory, fsutil.KindOf(err))
}

func TestLstat(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(file, mtime, mtime))
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(file, link))

	b := New("os")

	info, err := b.Lstat(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.True(t, info.ModTime.Equal(mtime))
	assert.False(t, info.IsSymlink)

	info, err = b.Lstat(context.Background(), link)
	require.NoError(t, err)
	assert.True(t, info.IsSymlink)
}

func TestRemove(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/x.txt", []byte("x"), 0o644))

	b := NewWithFs("mem", fsys)
	require.NoError(t, b.Remove(context.Background(), "/x.txt"))

	ok, err := afero.Exists(fsys, "/x.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	err = b.Remove(context.Background(), "/x.txt")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWithFs("mem", afero.NewMemMapFs()).ReadDirNames(ctx, "/")
	assert.ErrorIs(t, err, context.Canceled)
}
