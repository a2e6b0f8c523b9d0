/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := OpenIndex(t.TempDir())
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestOpenIndexCreatesSchema(t *testing.T) {
	root := t.TempDir()
	ix, err := OpenIndex(root)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer ix.Close()
	if _, err := os.Stat(IndexPath(root)); err != nil {
		t.Fatalf("index file missing: %v", err)
	}
	ctx := context.Background()
	v, err := ix.SchemaVersion(ctx)
	if err != nil || v != schemaVersion {
		t.Fatalf("schema version: %d %v", v, err)
	}
	for _, tbl := range []string{"history_snapshots", "previews", "print_jobs"} {
		var n int
		if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, tbl).Scan(&n); err != nil || n != 1 {
			t.Fatalf("table %s missing: %v", tbl, err)
		}
	}
	if _, err := OpenIndex(" "); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestMigrationsUpgradeV1(t *testing.T) {
	root := t.TempDir()
	idx := IndexPath(root)
	if err := os.MkdirAll(filepath.Dir(idx), 0o755); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)", filepath.ToSlash(idx)))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for _, q := range []string{
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version VALUES(1, 1, 'test', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z');`,
	} {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	_ = db.Close()

	ix, err := OpenIndex(root)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer ix.Close()
	if v, _ := ix.SchemaVersion(ctx); v != 2 {
		t.Fatalf("expected schema 2, got %d", v)
	}
	var n int
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_print_jobs_printer'`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("migration index missing: %d %v", n, err)
	}
}

func TestDetectAndRebuildIndex(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ix, err := OpenIndex(root)
	if err != nil {
		t.Fatal(err)
	}
	_ = ix.Close()
	rebuilt, err := DetectAndRebuildIndex(ctx, root)
	if err != nil || rebuilt {
		t.Fatalf("healthy index rebuilt=%v err=%v", rebuilt, err)
	}

	if err := os.WriteFile(IndexPath(root), []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{IndexPath(root) + "-wal", IndexPath(root) + "-shm"} {
		_ = os.Remove(p)
	}
	rebuilt, err = DetectAndRebuildIndex(ctx, root)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild")
	}
	entries, _ := os.ReadDir(filepath.Join(root, IndexDirName, "backups"))
	if len(entries) == 0 {
		t.Fatalf("expected a backup of the corrupt index")
	}
	ix, err = OpenIndex(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = ix.Close()
}
