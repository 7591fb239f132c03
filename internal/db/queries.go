package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/hpungsan/docuverse/internal/errors"
)

// Object is a stored content-addressed blob or tree.
type Object struct {
	ID   string
	Kind string
	Data []byte
}

// PutObject stores an object. Re-putting an existing id is a no-op.
func PutObject(ctx context.Context, db *sql.DB, obj Object) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO objects (id, kind, data, size, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, obj.ID, obj.Kind, obj.Data, len(obj.Data), time.Now().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetObject retrieves an object by id.
func GetObject(ctx context.Context, db *sql.DB, id string) (*Object, error) {
	obj := &Object{}
	err := db.QueryRowContext(ctx, `SELECT id, kind, data FROM objects WHERE id = ?`, id).
		Scan(&obj.ID, &obj.Kind, &obj.Data)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFound(id)
		}
		return nil, errors.NewInternal(err)
	}
	return obj, nil
}

// ActionEntry is one cached fetch key result.
type ActionEntry struct {
	ID      string
	KeyType string
	Version int
	KeyJSON string
	Value   []byte
}

// GetAction returns the cached value for a fetch key id.
// The bool is false on a cache miss.
func GetAction(ctx context.Context, db *sql.DB, id string) ([]byte, bool, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM action_cache WHERE id = ?`, id).Scan(&value)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.NewInternal(err)
	}
	return value, true, nil
}

// PutAction stores a fetch key result, replacing any previous value.
func PutAction(ctx context.Context, db *sql.DB, e ActionEntry) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO action_cache (id, key_type, version, key_json, value, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.KeyType, e.Version, e.KeyJSON, e.Value, time.Now().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Build status values.
const (
	BuildStatusPublished = "published"
	BuildStatusEmpty     = "empty"
	BuildStatusFailed    = "failed"
)

// Build is one recorded publish run.
type Build struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	TreeID     *string `json:"tree_id,omitempty"`
	Pages      int     `json:"pages"`
	OutputDir  string  `json:"output_dir"`
	Status     string  `json:"status"`
	Error      *string `json:"error,omitempty"`
	StartedAt  int64   `json:"started_at"`
	FinishedAt int64   `json:"finished_at"`
}

// InsertBuild records a publish run.
func InsertBuild(ctx context.Context, db *sql.DB, b *Build) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO builds (id, source, tree_id, pages, output_dir, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.Source, toNullString(b.TreeID), b.Pages, b.OutputDir, b.Status,
		toNullString(b.Error), b.StartedAt, b.FinishedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetBuild retrieves a build by its ULID.
func GetBuild(ctx context.Context, db *sql.DB, id string) (*Build, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, source, tree_id, pages, output_dir, status, error, started_at, finished_at
		FROM builds WHERE id = ?
	`, id)
	b, err := scanBuild(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFound(id)
		}
		return nil, errors.NewInternal(err)
	}
	return b, nil
}

// ListBuilds returns the most recent builds, newest first.
// Ties on started_at are broken by id (ULIDs sort by creation time).
func ListBuilds(ctx context.Context, db *sql.DB, limit int) ([]Build, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, source, tree_id, pages, output_dir, status, error, started_at, finished_at
		FROM builds ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		builds = append(builds, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return builds, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(s scanner) (*Build, error) {
	var b Build
	var treeID, errMsg sql.NullString
	if err := s.Scan(&b.ID, &b.Source, &treeID, &b.Pages, &b.OutputDir, &b.Status,
		&errMsg, &b.StartedAt, &b.FinishedAt); err != nil {
		return nil, err
	}
	b.TreeID = fromNullString(treeID)
	b.Error = fromNullString(errMsg)
	return &b, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
