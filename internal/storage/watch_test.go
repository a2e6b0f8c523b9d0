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
	"path/filepath"
	"testing"
	"time"

	"photolayout/internal/domain"
)

func TestWatchLayoutReloadsOnSave(t *testing.T) {
	root := t.TempDir()
	ws, err := Init(root, sampleSession(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *domain.Session, 8)
	done := make(chan error, 1)
	go func() {
		done <- WatchLayout(ctx, root, 20*time.Millisecond, func(s *domain.Session, err error) {
			if err == nil {
				got <- s
			}
		})
	}()

	if _, err := ws.Session.AddPage("100x150"); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case s := <-got:
			if len(s.Pages) != 2 {
				t.Fatalf("reloaded session has %d pages", len(s.Pages))
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("watch returned %v", err)
			}
			return
		case <-tick.C:
			// the watcher may not be registered yet; keep saving until it sees one
			if err := Save(ws); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestWatchLayoutRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	if err := WatchLayout(ctx, t.TempDir(), 0, nil); err == nil {
		t.Fatal("expected error for nil callback")
	}
	missing := filepath.Join(t.TempDir(), "missing")
	if err := WatchLayout(ctx, missing, 0, func(*domain.Session, error) {}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
