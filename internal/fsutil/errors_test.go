package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgumentErrorMessage(t *testing.T) {
	assert.Equal(t, "path is invalid", InvalidArgument("path").Error())
	assert.Equal(t, "retainCount is invalid", InvalidArgument("retainCount").Error())

	err := &ArgumentError{Name: "glob", Reason: "syntax error in pattern"}
	assert.Equal(t, "glob is invalid: syntax error in pattern", err.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "argument", err: InvalidArgument("path"), want: KindInvalidArgument},
		{name: "wrapped argument", err: fmt.Errorf("job: %w", InvalidArgument("path")), want: KindInvalidArgument},
		{name: "not exist", err: &fs.PathError{Op: "open", Path: "/x", Err: syscall.ENOENT}, want: KindNotFound},
		{name: "not exist sentinel", err: fs.ErrNotExist, want: KindNotFound},
		{name: "not a directory", err: &os.PathError{Op: "readdirent", Path: "/x", Err: syscall.ENOTDIR}, want: KindNotADirectory},
		{name: "exists", err: &fs.PathError{Op: "mkdir", Path: "/x", Err: syscall.EEXIST}, want: KindAlreadyExists},
		{name: "permission", err: &fs.PathError{Op: "unlink", Path: "/x", Err: syscall.EACCES}, want: KindIOFailure},
		{name: "other", err: errors.New("disk on fire"), want: KindIOFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
