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
	"fmt"
	"time"

	"photolayout/internal/printing"
)

// RecordPrintJob stores or replaces a finished print job.
func (ix *Index) RecordPrintJob(ctx context.Context, j printing.Job) error {
	settings, err := json.Marshal(j.Settings)
	if err != nil {
		return fmt.Errorf("encode job settings: %w", err)
	}
	var errs sql.NullString
	if len(j.Errors) > 0 {
		b, _ := json.Marshal(j.Errors)
		errs = sql.NullString{String: string(b), Valid: true}
	}
	var ended sql.NullString
	if !j.EndedAt.IsZero() {
		ended = sql.NullString{String: j.EndedAt.UTC().Format(tsLayout), Valid: true}
	}
	_, err = ix.db.ExecContext(ctx, `INSERT OR REPLACE INTO print_jobs(id, printer, state, pages, settings, errors, reason, output, started_at, ended_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		j.ID, j.Printer, string(j.State), j.Pages, string(settings), errs,
		nullIfEmpty(j.Reason), nullIfEmpty(j.Output), j.StartedAt.UTC().Format(tsLayout), ended)
	if err != nil {
		return fmt.Errorf("record print job: %w", err)
	}
	return nil
}

// ListPrintJobs returns up to limit jobs, newest first.
func (ix *Index) ListPrintJobs(ctx context.Context, limit int) ([]printing.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := ix.db.QueryContext(ctx, `SELECT id, printer, state, pages, settings, errors, reason, output, started_at, ended_at
		FROM print_jobs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []printing.Job
	for rows.Next() {
		var j printing.Job
		var state, settings, started string
		var errs, reason, output, ended sql.NullString
		if err := rows.Scan(&j.ID, &j.Printer, &state, &j.Pages, &settings, &errs, &reason, &output, &started, &ended); err != nil {
			return nil, err
		}
		j.State = printing.JobState(state)
		if err := json.Unmarshal([]byte(settings), &j.Settings); err != nil {
			return nil, fmt.Errorf("decode job %s settings: %w", j.ID, err)
		}
		if errs.Valid {
			_ = json.Unmarshal([]byte(errs.String), &j.Errors)
		}
		j.Reason, j.Output = reason.String, output.String
		j.StartedAt, _ = time.Parse(tsLayout, started)
		if ended.Valid {
			j.EndedAt, _ = time.Parse(tsLayout, ended.String)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
