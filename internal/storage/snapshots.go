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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"photolayout/internal/domain"
)

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO history_snapshots(action, ts, state_blob) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotTSSQL = `SELECT ts FROM history_snapshots ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT id, action, ts, state_blob FROM history_snapshots ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM history_snapshots WHERE id NOT IN (
	SELECT id FROM history_snapshots ORDER BY ts DESC, id DESC LIMIT ?
)`

// tsLayout has fixed width so timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Snapshot is a persisted session history entry.
type Snapshot struct {
	ID     int64
	Action string
	At     time.Time
	State  domain.SessionState
}

// SaveSnapshot persists one history entry.
func (ix *Index) SaveSnapshot(ctx context.Context, e domain.HistoryEntry) error {
	blob, err := json.Marshal(e.State)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = ix.db.ExecContext(ctx, insertSnapshotSQL, e.Action, e.At.UTC().Format(tsLayout), blob)
	return err
}

// SyncHistory stores the entries newer than the newest persisted one and
// then prunes to keepLast. It returns how many entries were written.
func (ix *Index) SyncHistory(ctx context.Context, entries []domain.HistoryEntry, keepLast int) (int, error) {
	var latest time.Time
	var tsStr string
	err := ix.db.QueryRowContext(ctx, selectLatestSnapshotTSSQL).Scan(&tsStr)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return 0, err
	default:
		latest, _ = time.Parse(tsLayout, tsStr)
	}
	n := 0
	for _, e := range entries {
		if !latest.IsZero() && !e.At.After(latest) {
			continue
		}
		if err := ix.SaveSnapshot(ctx, e); err != nil {
			return n, err
		}
		n++
	}
	if keepLast > 0 {
		if _, err := ix.PruneSnapshots(ctx, keepLast); err != nil {
			return n, err
		}
	}
	return n, nil
}

// LatestSnapshot returns the newest snapshot, or nil when there is none.
func (ix *Index) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	list, err := ix.ListSnapshots(ctx, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListSnapshots returns up to limit snapshots, newest first.
func (ix *Index) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = domain.MaxHistory
	}
	rows, err := ix.db.QueryContext(ctx, listSnapshotsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var tsStr string
		var blob []byte
		if err := rows.Scan(&s.ID, &s.Action, &tsStr, &blob); err != nil {
			return nil, err
		}
		s.At, _ = time.Parse(tsLayout, tsStr)
		if err := json.Unmarshal(blob, &s.State); err != nil {
			return nil, fmt.Errorf("decode snapshot %d: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSnapshots keeps the newest keepLast snapshots.
func (ix *Index) PruneSnapshots(ctx context.Context, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := ix.db.ExecContext(ctx, pruneOldSnapshotsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
