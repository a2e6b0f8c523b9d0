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
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PreviewKindThumb is a PNG thumbnail of a page. Rows are keyed by kind so
// other variants can share the table.
const PreviewKindThumb = "thumb"

// DefaultPreviewCacheBytes caps the preview cache when no limit is configured.
const DefaultPreviewCacheBytes int64 = 32 << 20

// PreviewKey identifies one cached variant of a page preview.
type PreviewKey struct {
	Page int
	Kind string
	W, H int
}

// ContentHash returns a hex digest used to detect stale previews.
func ContentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// GetPreview returns the cached blob for key when its hash matches, and
// refreshes its access time. A miss or stale entry yields nil, nil.
func (ix *Index) GetPreview(ctx context.Context, key PreviewKey, hash string) ([]byte, error) {
	var blob []byte
	var stored string
	err := ix.db.QueryRowContext(ctx, `SELECT hash, blob FROM previews WHERE page_id=? AND kind=? AND w=? AND h=?`,
		key.Page, key.Kind, key.W, key.H).Scan(&stored, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	if stored != hash {
		return nil, nil
	}
	now := time.Now().UTC().Format(tsLayout)
	_, _ = ix.db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE page_id=? AND kind=? AND w=? AND h=?`,
		now, key.Page, key.Kind, key.W, key.H)
	return blob, nil
}

// PutPreview upserts a preview and evicts least recently used entries until
// the cache fits capBytes. A capBytes of zero or less disables eviction.
func (ix *Index) PutPreview(ctx context.Context, key PreviewKey, hash string, blob []byte, capBytes int64) error {
	if key.Kind != PreviewKindThumb {
		return fmt.Errorf("invalid preview kind: %s", key.Kind)
	}
	now := time.Now().UTC().Format(tsLayout)
	_, err := ix.db.ExecContext(ctx, `INSERT INTO previews(page_id,kind,w,h,hash,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?,?)
		ON CONFLICT(page_id,kind,w,h) DO UPDATE SET hash=excluded.hash, blob=excluded.blob, size=excluded.size,
			updated_at=excluded.updated_at, last_access=excluded.last_access`,
		key.Page, key.Kind, key.W, key.H, hash, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	if capBytes > 0 {
		return ix.EvictPreviewsToFit(ctx, capBytes)
	}
	return nil
}

// GetOrCreatePreview serves a cached preview or generates, stores and returns a new one.
func (ix *Index) GetOrCreatePreview(ctx context.Context, key PreviewKey, hash string, capBytes int64, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := ix.GetPreview(ctx, key, hash); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil || data == nil {
		return nil, err
	}
	if err := ix.PutPreview(ctx, key, hash, data, capBytes); err != nil {
		return nil, err
	}
	return data, nil
}

// InvalidatePreviews drops every cached variant for a page, or for all pages when page is 0.
func (ix *Index) InvalidatePreviews(ctx context.Context, page int) error {
	var err error
	if page == 0 {
		_, err = ix.db.ExecContext(ctx, `DELETE FROM previews`)
	} else {
		_, err = ix.db.ExecContext(ctx, `DELETE FROM previews WHERE page_id=?`, page)
	}
	return err
}

// EvictPreviewsToFit deletes least recently used rows until the total size is within capBytes.
func (ix *Index) EvictPreviewsToFit(ctx context.Context, capBytes int64) error {
	total, err := ix.TotalPreviewBytes(ctx)
	if err != nil {
		return err
	}
	if total <= capBytes {
		return nil
	}
	rows, err := ix.db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() && cur > capBytes {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// The cursor must be closed before writing on a single connection.
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM previews WHERE id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(victims)), ",") + `)`
	if _, err := ix.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	ix.log.Debug("previews evicted", "count", len(victims), "cap", capBytes)
	return nil
}

// TotalPreviewBytes sums the cached preview sizes.
func (ix *Index) TotalPreviewBytes(ctx context.Context) (int64, error) {
	var total int64
	err := ix.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total)
	return total, err
}
