//go:build !windows

package cas

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/docuverse/internal/errors"
)

// openFileNoFollow opens a file for writing with O_NOFOLLOW so an exported page
// never writes through a symlink planted in the staging directory.
// O_CLOEXEC prevents FD leaks across exec.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink: " + path)
		}
		return nil, errors.NewInternal(err)
	}
	return os.NewFile(uintptr(fd), path), nil
}
