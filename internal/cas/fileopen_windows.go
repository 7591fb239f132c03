//go:build windows

package cas

import (
	"os"

	"github.com/hpungsan/docuverse/internal/errors"
)

// openFileNoFollow opens a file for writing.
// O_NOFOLLOW is not available on Windows; symlinks there need elevated privileges.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return f, nil
}
