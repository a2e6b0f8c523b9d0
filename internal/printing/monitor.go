/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package printing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"photolayout/internal/domain"
	applog "photolayout/internal/log"
)

// DefaultPollInterval is how often the monitor refreshes while running.
const DefaultPollInterval = 30 * time.Second

// MonitorOptions configure a Monitor.
type MonitorOptions struct {
	Interval time.Duration
	// Seed is the list served before the first successful refresh.
	Seed     []PrinterInfo
	OnUpdate func([]PrinterInfo)
	Logger   *slog.Logger
}

// Monitor caches the printer list. It is refreshed on demand and, between
// Start and Stop, on a fixed schedule.
type Monitor struct {
	enum     Enumerator
	interval time.Duration
	onUpdate func([]PrinterInfo)
	log      *slog.Logger

	mu          sync.RWMutex
	printers    []PrinterInfo
	refreshedAt time.Time
	lastErr     error

	runMu  sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewMonitor builds a stopped monitor over enum.
func NewMonitor(enum Enumerator, opts MonitorOptions) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("printers")
	}
	return &Monitor{
		enum:     enum,
		interval: opts.Interval,
		onUpdate: opts.OnUpdate,
		log:      l,
		printers: append([]PrinterInfo(nil), opts.Seed...),
	}
}

// Refresh replaces the cached list with a fresh enumeration. On failure the
// previous list is kept and the error is returned as an ExternalIOError.
func (m *Monitor) Refresh(ctx context.Context) error {
	list, err := m.enum.Printers(ctx)
	if err != nil {
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
		m.log.Warn("printer refresh failed; keeping cached list", slog.String("err", err.Error()))
		return domain.ExternalIO("enumerate printers", err)
	}
	m.mu.Lock()
	m.printers = list
	m.refreshedAt = time.Now()
	m.lastErr = nil
	m.mu.Unlock()
	m.log.Debug("printers refreshed", slog.Int("count", len(list)))
	if m.onUpdate != nil {
		m.onUpdate(append([]PrinterInfo(nil), list...))
	}
	return nil
}

// Start schedules periodic refreshes. Calling Start on a running monitor is
// a no-op. The schedule ends with Stop or when ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cron != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	c := cron.New()
	spec := fmt.Sprintf("@every %s", m.interval)
	if _, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		_ = m.Refresh(ctx)
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule printer poll %q: %w", spec, err)
	}
	c.Start()
	m.cron = c
	m.cancel = cancel
	m.log.Info("printer polling started", slog.Duration("interval", m.interval))
	go func() {
		<-ctx.Done()
		m.stop(c)
	}()
	return nil
}

// Stop cancels the schedule and any in-flight refresh. Safe to call repeatedly.
func (m *Monitor) Stop() { m.stop(nil) }

// stop halts the running schedule; a non-nil only restricts it to that schedule.
func (m *Monitor) stop(only *cron.Cron) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cron == nil || (only != nil && m.cron != only) {
		return
	}
	m.cron.Stop()
	m.cancel()
	m.cron = nil
	m.cancel = nil
	m.log.Info("printer polling stopped")
}

// Running reports whether periodic polling is active.
func (m *Monitor) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.cron != nil
}

// Snapshot returns a copy of the cached list.
func (m *Monitor) Snapshot() []PrinterInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PrinterInfo(nil), m.printers...)
}

// Sorted returns the cached list in dropdown order.
func (m *Monitor) Sorted() []PrinterInfo { return SortForDropdown(m.Snapshot()) }

// Filter returns cached printers matching term in dropdown order.
func (m *Monitor) Filter(term string) []PrinterInfo {
	return SortForDropdown(FilterPrinters(m.Snapshot(), term))
}

// LastRefresh reports when the list was last replaced and the most recent
// refresh error, if any.
func (m *Monitor) LastRefresh() (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshedAt, m.lastErr
}
