// Package cas is a content-addressable object store backed by SQLite.
//
// Blobs hold file contents; trees hold a sorted list of named entries pointing
// at blobs or other trees. Object ids are the sha256 of kind and data, so the
// same directory stored twice yields the same id.
package cas

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hpungsan/docuverse/internal/db"
	"github.com/hpungsan/docuverse/internal/errors"
)

// ID identifies a stored object.
type ID string

// Object kinds.
const (
	KindBlob = "blob"
	KindTree = "tree"
)

// Entry is one named child of a tree.
type Entry struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	ID   ID     `json:"id"`
}

// Store reads and writes objects in the objects table.
type Store struct {
	db *sql.DB
}

// New returns a Store over an initialized database.
func New(sqlDB *sql.DB) *Store {
	return &Store{db: sqlDB}
}

func objectID(kind string, data []byte) ID {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(data)
	return ID(hex.EncodeToString(h.Sum(nil)))
}

// PutBlob stores file contents.
func (s *Store) PutBlob(ctx context.Context, data []byte) (ID, error) {
	id := objectID(KindBlob, data)
	if err := db.PutObject(ctx, s.db, db.Object{ID: string(id), Kind: KindBlob, Data: data}); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) putTree(ctx context.Context, entries []Entry) (ID, error) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	data, err := json.Marshal(entries)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	id := objectID(KindTree, data)
	if err := db.PutObject(ctx, s.db, db.Object{ID: string(id), Kind: KindTree, Data: data}); err != nil {
		return "", err
	}
	return id, nil
}

// StoreDirectory stores a flat directory of files and returns its tree id.
func (s *Store) StoreDirectory(ctx context.Context, files map[string][]byte) (ID, error) {
	entries := make([]Entry, 0, len(files))
	for name, data := range files {
		if err := validateName(name); err != nil {
			return "", err
		}
		id, err := s.PutBlob(ctx, data)
		if err != nil {
			return "", err
		}
		entries = append(entries, Entry{Name: name, Kind: KindBlob, ID: id})
	}
	return s.putTree(ctx, entries)
}

// MergeTrees unions the given trees into one. On a name clash the later tree
// wins, except that two subtrees with the same name are merged recursively.
func (s *Store) MergeTrees(ctx context.Context, ids []ID) (ID, error) {
	merged := map[string]Entry{}
	for _, id := range ids {
		entries, err := s.ReadTree(ctx, id)
		if err != nil {
			return "", err
		}
		for _, e := range entries {
			prev, ok := merged[e.Name]
			if ok && prev.Kind == KindTree && e.Kind == KindTree && prev.ID != e.ID {
				sub, err := s.MergeTrees(ctx, []ID{prev.ID, e.ID})
				if err != nil {
					return "", err
				}
				e.ID = sub
			}
			merged[e.Name] = e
		}
	}

	entries := make([]Entry, 0, len(merged))
	for _, e := range merged {
		entries = append(entries, e)
	}
	return s.putTree(ctx, entries)
}

// ReadTree returns the entries of a tree, sorted by name.
func (s *Store) ReadTree(ctx context.Context, id ID) ([]Entry, error) {
	obj, err := db.GetObject(ctx, s.db, string(id))
	if err != nil {
		return nil, err
	}
	if obj.Kind != KindTree {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("object %s is a %s, not a tree", id, obj.Kind))
	}
	var entries []Entry
	if err := json.Unmarshal(obj.Data, &entries); err != nil {
		return nil, errors.NewDecodeFailed("tree "+string(id), err)
	}
	return entries, nil
}

// ReadBlob returns the contents of a blob.
func (s *Store) ReadBlob(ctx context.Context, id ID) ([]byte, error) {
	obj, err := db.GetObject(ctx, s.db, string(id))
	if err != nil {
		return nil, err
	}
	if obj.Kind != KindBlob {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("object %s is a %s, not a blob", id, obj.Kind))
	}
	return obj.Data, nil
}

// validateName rejects entry names that could escape the export directory.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid entry name %q", name))
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return errors.NewInvalidRequest(fmt.Sprintf("entry name must not contain path separators: %q", name))
	}
	return nil
}
