package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hpungsan/docuverse/internal/errors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func stringPtr(s string) *string {
	return &s
}

func TestPutAndGetObject(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	obj := Object{ID: "abc", Kind: "blob", Data: []byte("hello")}
	if err := PutObject(ctx, db, obj); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	// Second put is ignored
	if err := PutObject(ctx, db, Object{ID: "abc", Kind: "blob", Data: []byte("other")}); err != nil {
		t.Fatalf("second PutObject failed: %v", err)
	}

	got, err := GetObject(ctx, db, "abc")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if string(got.Data) != "hello" || got.Kind != "blob" {
		t.Errorf("GetObject = %+v, want blob hello", got)
	}
}

func TestGetObject_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := GetObject(context.Background(), db, "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetObject error = %v, want NOT_FOUND", err)
	}
}

func TestActionCache(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, ok, err := GetAction(ctx, db, "k1"); err != nil || ok {
		t.Fatalf("GetAction on empty cache = ok %v, err %v", ok, err)
	}

	entry := ActionEntry{ID: "k1", KeyType: "FetchHTTP", Version: 5, KeyJSON: `{"url":"x"}`, Value: []byte(`{"data":""}`)}
	if err := PutAction(ctx, db, entry); err != nil {
		t.Fatalf("PutAction failed: %v", err)
	}
	entry.Value = []byte(`{"data":"bmV3"}`)
	if err := PutAction(ctx, db, entry); err != nil {
		t.Fatalf("PutAction replace failed: %v", err)
	}

	value, ok, err := GetAction(ctx, db, "k1")
	if err != nil || !ok {
		t.Fatalf("GetAction = ok %v, err %v", ok, err)
	}
	if string(value) != `{"data":"bmV3"}` {
		t.Errorf("value = %s, want replaced value", value)
	}
}

func TestInsertAndListBuilds(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	builds := []*Build{
		{ID: "01A", Source: "manifest", OutputDir: "/tmp/a", Status: BuildStatusEmpty, StartedAt: 100, FinishedAt: 101},
		{ID: "01B", Source: "manifest", TreeID: stringPtr("t1"), Pages: 3, OutputDir: "/tmp/a", Status: BuildStatusPublished, StartedAt: 200, FinishedAt: 205},
		{ID: "01C", Source: "feed:alice", OutputDir: "/tmp/a", Status: BuildStatusFailed, Error: stringPtr("boom"), StartedAt: 300, FinishedAt: 301},
	}
	for _, b := range builds {
		if err := InsertBuild(ctx, db, b); err != nil {
			t.Fatalf("InsertBuild(%s) failed: %v", b.ID, err)
		}
	}

	listed, err := ListBuilds(ctx, db, 2)
	if err != nil {
		t.Fatalf("ListBuilds failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("ListBuilds len = %d, want 2", len(listed))
	}
	if listed[0].ID != "01C" || listed[1].ID != "01B" {
		t.Errorf("order = [%s %s], want [01C 01B]", listed[0].ID, listed[1].ID)
	}
	if listed[0].Error == nil || *listed[0].Error != "boom" {
		t.Errorf("Error = %v, want boom", listed[0].Error)
	}
	if listed[1].TreeID == nil || *listed[1].TreeID != "t1" {
		t.Errorf("TreeID = %v, want t1", listed[1].TreeID)
	}
}

func TestGetBuild(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	b := &Build{ID: "01X", Source: "manifest", Pages: 1, OutputDir: "/out", Status: BuildStatusPublished, StartedAt: 1, FinishedAt: 2}
	if err := InsertBuild(ctx, db, b); err != nil {
		t.Fatalf("InsertBuild failed: %v", err)
	}

	got, err := GetBuild(ctx, db, "01X")
	if err != nil {
		t.Fatalf("GetBuild failed: %v", err)
	}
	if got.Pages != 1 || got.TreeID != nil {
		t.Errorf("GetBuild = %+v", got)
	}

	if _, err := GetBuild(ctx, db, "nope"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetBuild missing error = %v, want NOT_FOUND", err)
	}
}
