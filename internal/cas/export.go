package cas

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/docuverse/internal/errors"
)

// Export replaces dir with the tree. The tree is written to a staging
// directory next to dir and swapped in only once complete, so a failed export
// leaves the previous contents untouched and files absent from the tree do not
// survive a successful one.
func (s *Store) Export(ctx context.Context, id ID, dir string) error {
	dir = filepath.Clean(dir)
	if info, err := os.Lstat(dir); err == nil && !info.IsDir() {
		return errors.NewInvalidRequest(fmt.Sprintf("export target is not a directory: %s", dir))
	}

	parent, base := filepath.Split(dir)
	if parent == "" {
		parent = "."
	}
	if err := os.MkdirAll(parent, 0755); err != nil {
		return errors.NewInternal(err)
	}

	staging, err := os.MkdirTemp(parent, "."+base+".export-*")
	if err != nil {
		return errors.NewInternal(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()
	if err := os.Chmod(staging, 0755); err != nil {
		return errors.NewInternal(err)
	}

	if err := s.exportTree(ctx, id, staging); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var previous string
	if _, err := os.Lstat(dir); err == nil {
		previous = staging + ".old"
		if err := os.Rename(dir, previous); err != nil {
			return errors.NewInternal(err)
		}
	}
	if err := os.Rename(staging, dir); err != nil {
		if previous != "" {
			_ = os.Rename(previous, dir)
		}
		return errors.NewInternal(err)
	}
	committed = true

	if previous != "" {
		if err := os.RemoveAll(previous); err != nil {
			return errors.NewInternal(fmt.Errorf("remove previous export: %w", err))
		}
	}
	return nil
}

// exportTree writes the tree into dir, which must already exist.
func (s *Store) exportTree(ctx context.Context, id ID, dir string) error {
	entries, err := s.ReadTree(ctx, id)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := validateName(e.Name); err != nil {
			return err
		}
		target := filepath.Join(dir, e.Name)

		switch e.Kind {
		case KindTree:
			if err := os.Mkdir(target, 0755); err != nil {
				return errors.NewInternal(err)
			}
			if err := s.exportTree(ctx, e.ID, target); err != nil {
				return err
			}
		case KindBlob:
			data, err := s.ReadBlob(ctx, e.ID)
			if err != nil {
				return err
			}
			if err := writeFile(target, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	f, err := openFileNoFollow(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.NewInternal(err)
	}
	if err := f.Close(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
