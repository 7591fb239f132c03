package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/docuverse/internal/config"
	"github.com/hpungsan/docuverse/internal/errors"
)

// ValidateOutputDir checks a site export directory and returns it absolute.
// It rejects:
// 1. Empty paths and directory traversal (.. sequences)
// 2. The filesystem root and the home directory itself
// 3. Symlinked directories (export writes with O_NOFOLLOW below it)
// 4. Existing non-directories
func ValidateOutputDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.NewInvalidRequest("output directory is required")
	}
	if containsTraversal(dir) {
		return "", errors.NewInvalidRequest("output directory must not contain directory traversal (..)")
	}

	expanded, err := config.ExpandHome(dir)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	abs, err := filepath.Abs(filepath.Clean(expanded))
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid output directory: %v", err))
	}

	if abs == filepath.VolumeName(abs)+string(filepath.Separator) {
		return "", errors.NewInvalidRequest("output directory must not be the filesystem root")
	}
	if home, err := os.UserHomeDir(); err == nil && abs == filepath.Clean(home) {
		return "", errors.NewInvalidRequest("output directory must not be the home directory")
	}

	info, err := os.Lstat(abs)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		return "", errors.NewInvalidRequest("output directory must not be a symlink")
	case err == nil && !info.IsDir():
		return "", errors.NewInvalidRequest(fmt.Sprintf("%s exists and is not a directory", dir))
	case err != nil && !os.IsNotExist(err):
		return "", errors.NewInternal(err)
	}

	return abs, nil
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Also check for forward slashes on all platforms (e.g., user input)
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
