package local

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dev-tams/dirkit/internal/storage"
	"github.com/spf13/afero"
)

type Backend struct {
	name string
	fs   afero.Fs
}

// New returns a Backend over the host filesystem.
func New(name string) *Backend {
	return NewWithFs(name, afero.NewOsFs())
}

func NewWithFs(name string, fsys afero.Fs) *Backend {
	return &Backend{name: name, fs: fsys}
}

func (b *Backend) Name() string { return b.name }

// Fs exposes the underlying filesystem for the file helpers in fsutil.
func (b *Backend) Fs() afero.Fs { return b.fs }

func (b *Backend) ReadDirNames(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := b.fs.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.Readdirnames(-1)
}

func (b *Backend) Lstat(ctx context.Context, path string) (storage.EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return storage.EntryInfo{}, err
	}

	var (
		info os.FileInfo
		err  error
	)
	if ls, ok := b.fs.(afero.Lstater); ok {
		info, _, err = ls.LstatIfPossible(path)
	} else {
		info, err = b.fs.Stat(path)
	}
	if err != nil {
		return storage.EntryInfo{}, err
	}

	return storage.EntryInfo{
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		IsSymlink: info.Mode()&os.ModeSymlink != 0,
	}, nil
}

func (b *Backend) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.fs.Remove(path)
}

func (b *Backend) Join(elem ...string) string { return filepath.Join(elem...) }
