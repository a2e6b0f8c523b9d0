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
	"testing"
	"time"

	"photolayout/internal/domain"
)

func TestSyncHistoryAndPrune(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := domain.NewSession()
	var entries []domain.HistoryEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, domain.HistoryEntry{
			Action: "Add Page",
			At:     base.Add(time.Duration(i) * time.Second),
			State:  s.State(),
		})
	}
	n, err := ix.SyncHistory(ctx, entries[:3], 0)
	if err != nil || n != 3 {
		t.Fatalf("first sync: n=%d err=%v", n, err)
	}
	n, err = ix.SyncHistory(ctx, entries, 4)
	if err != nil || n != 2 {
		t.Fatalf("second sync should write only new entries: n=%d err=%v", n, err)
	}
	list, err := ix.ListSnapshots(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 after prune, got %d", len(list))
	}
	if !list[0].At.Equal(entries[4].At) {
		t.Fatalf("newest first: %v", list[0].At)
	}
	latest, err := ix.LatestSnapshot(ctx)
	if err != nil || latest == nil || len(latest.State.Pages) != 1 {
		t.Fatalf("LatestSnapshot: %+v %v", latest, err)
	}
}

func TestLatestSnapshotEmpty(t *testing.T) {
	ix := openTestIndex(t)
	got, err := ix.LatestSnapshot(context.Background())
	if err != nil || got != nil {
		t.Fatalf("expected nil, got %+v %v", got, err)
	}
}
