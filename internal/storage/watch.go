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
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"photolayout/internal/domain"
	applog "photolayout/internal/log"
)

const defaultWatchDebounce = 250 * time.Millisecond

// WatchLayout reloads root/layout.json whenever it changes on disk and hands
// the result to fn. Bursts of events within debounce collapse into one
// reload. It blocks until ctx is cancelled.
func WatchLayout(ctx context.Context, root string, debounce time.Duration, fn func(*domain.Session, error)) error {
	if fn == nil {
		return errors.New("watch callback is required")
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	// The directory is watched because atomic saves replace the file.
	if err := w.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	l := applog.WithComponent("storage.watch")
	target := filepath.Join(root, LayoutFileName)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		s, err := ReadLayoutFile(target)
		if ctx.Err() != nil {
			return
		}
		fn(s, err)
	}
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, reload)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				l.Debug("layout changed", slog.String("op", ev.Op.String()))
				schedule()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Warn("watch error", slog.Any("err", err))
		}
	}
}
