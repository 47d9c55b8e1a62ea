package storage

import (
	"context"
	"time"
)

// EntryInfo is the metadata a Backend reports for a single entry. Symlinks
// are described, not followed.
type EntryInfo struct {
	Size      int64
	ModTime   time.Time
	IsSymlink bool
}

type Backend interface {
	Name() string
	// ReadDirNames returns the names directly under dir, in no particular order.
	ReadDirNames(ctx context.Context, dir string) ([]string, error)
	Lstat(ctx context.Context, path string) (EntryInfo, error)
	Remove(ctx context.Context, path string) error
	// Join builds a full path the way this backend addresses entries.
	Join(elem ...string) string
}
