// Package fsutil holds the error taxonomy shared by the listing and pruning
// packages and a handful of file helpers built on afero.
package fsutil

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// EnsurePath creates dir and any missing parents. An existing directory, or a
// symlink resolving to one, is not an error.
func EnsurePath(fsys afero.Fs, dir string) error {
	if dir == "" {
		return InvalidArgument("path")
	}
	return fsys.MkdirAll(dir, dirPerm)
}

// Exists reports whether anything is present at path. Symlinks are not
// followed, so a dangling link still exists.
func Exists(fsys afero.Fs, path string) bool {
	if path == "" {
		return false
	}
	_, err := lstat(fsys, path)
	return err == nil
}

func lstat(fsys afero.Fs, path string) (os.FileInfo, error) {
	if ls, ok := fsys.(afero.Lstater); ok {
		info, _, err := ls.LstatIfPossible(path)
		return info, err
	}
	return fsys.Stat(path)
}

// ReadFile streams the whole file at path into memory.
func ReadFile(fsys afero.Fs, path string) ([]byte, error) {
	if path == "" {
		return nil, InvalidArgument("path")
	}
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// OpenWriter returns a writer whose content only appears at path once Close
// succeeds. The parent directory must already exist.
func OpenWriter(fsys afero.Fs, path string) (io.WriteCloser, error) {
	if path == "" {
		return nil, InvalidArgument("path")
	}
	tmpPath := path + ".tmp"
	f, err := fsys.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, err
	}
	return &Writer{fsys: fsys, f: f, tmpPath: tmpPath, finalPath: path}, nil
}

// Writer writes into a temp file next to the destination and renames it into
// place on Close.
type Writer struct {
	fsys      afero.Fs
	f         afero.File
	tmpPath   string
	finalPath string
	closed    bool
}

func (w *Writer) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.f.Close(); err != nil {
		_ = w.fsys.Remove(w.tmpPath)
		return err
	}
	if err := w.fsys.Rename(w.tmpPath, w.finalPath); err != nil {
		_ = w.fsys.Remove(w.tmpPath)
		return err
	}
	return nil
}

// Abort drops the temp file without touching the destination.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.f.Close()
	return w.fsys.Remove(w.tmpPath)
}

// WriteFile replaces the file at path with data.
func WriteFile(fsys afero.Fs, path string, data []byte) error {
	return WriteFrom(fsys, path, bytes.NewReader(data))
}

// WriteFrom streams r into the file at path.
func WriteFrom(fsys afero.Fs, path string, r io.Reader) error {
	wc, err := OpenWriter(fsys, path)
	if err != nil {
		return err
	}
	w := wc.(*Writer)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Abort()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return w.Close()
}

// AppendFile appends data to path, creating the file when missing. The
// parent directory is not created.
func AppendFile(fsys afero.Fs, path string, data []byte) error {
	if path == "" {
		return InvalidArgument("path")
	}
	f, err := fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteResult carries the outcome of TryWriteFile.
type WriteResult struct {
	Err error
}

func (r WriteResult) OK() bool { return r.Err == nil }

// TryWriteFile is WriteFile for callers that treat the write as best effort:
// the failure, if any, is captured in the result.
func TryWriteFile(fsys afero.Fs, path string, data []byte) WriteResult {
	return WriteResult{Err: WriteFile(fsys, path, data)}
}
