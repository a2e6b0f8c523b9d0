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
	"errors"
	"sync"
	"testing"
	"time"

	"photolayout/internal/domain"
)

// swapEnumerator returns whatever list or error is currently set.
type swapEnumerator struct {
	mu    sync.Mutex
	list  []PrinterInfo
	err   error
	calls int
}

func (s *swapEnumerator) set(list []PrinterInfo, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list, s.err = list, err
}

func (s *swapEnumerator) Printers(context.Context) ([]PrinterInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]PrinterInfo(nil), s.list...), nil
}

func TestMonitorRefreshReplacesWholesale(t *testing.T) {
	enum := &swapEnumerator{}
	enum.set([]PrinterInfo{NewPrinterInfo("A", 0), NewPrinterInfo("B", 0)}, nil)
	var updates int
	m := NewMonitor(enum, MonitorOptions{OnUpdate: func([]PrinterInfo) { updates++ }})
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	enum.set([]PrinterInfo{NewPrinterInfo("C", 8)}, nil)
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := m.Snapshot()
	if len(got) != 1 || got[0].Name != "C" || got[0].Ready {
		t.Fatalf("list not replaced: %+v", got)
	}
	if updates != 2 {
		t.Fatalf("OnUpdate calls: %d", updates)
	}
}

func TestMonitorRefreshFailureKeepsList(t *testing.T) {
	enum := &swapEnumerator{}
	enum.set([]PrinterInfo{NewPrinterInfo("A", 0)}, nil)
	m := NewMonitor(enum, MonitorOptions{})
	_ = m.Refresh(context.Background())
	enum.set(nil, errors.New("spooler down"))
	err := m.Refresh(context.Background())
	var ioErr *domain.ExternalIOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected ExternalIOError, got %v", err)
	}
	if got := m.Snapshot(); len(got) != 1 || got[0].Name != "A" {
		t.Fatalf("cached list lost: %+v", got)
	}
	if _, last := m.LastRefresh(); last == nil {
		t.Fatalf("LastRefresh should report the failure")
	}
}

func TestMonitorSeedAndSnapshotIsolation(t *testing.T) {
	enum := &swapEnumerator{}
	m := NewMonitor(enum, MonitorOptions{Seed: Builtins()})
	snap := m.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("seed not served: %+v", snap)
	}
	snap[0].Name = "mutated"
	enum.set([]PrinterInfo{NewPrinterInfo("X", 0)}, nil)
	_ = m.Refresh(context.Background())
	if snap[1].Name != TestPrinterName {
		t.Fatalf("snapshot changed under refresh: %+v", snap)
	}
	if m.Snapshot()[0].Name != "X" {
		t.Fatalf("snapshot mutation leaked into cache")
	}
}

func TestMonitorStartStop(t *testing.T) {
	m := NewMonitor(&swapEnumerator{}, MonitorOptions{Interval: time.Hour})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !m.Running() {
		t.Fatalf("expected running")
	}
	m.Stop()
	m.Stop()
	if m.Running() {
		t.Fatalf("expected stopped")
	}
}

func TestMonitorStopsWhenContextCancelled(t *testing.T) {
	m := NewMonitor(&swapEnumerator{}, MonitorOptions{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for m.Running() {
		if time.Now().After(deadline) {
			t.Fatalf("monitor still running after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMonitorPolls(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a poll tick")
	}
	enum := &swapEnumerator{}
	m := NewMonitor(enum, MonitorOptions{Interval: time.Second})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()
	deadline := time.Now().Add(5 * time.Second)
	for {
		enum.mu.Lock()
		calls := enum.calls
		enum.mu.Unlock()
		if calls > 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no poll within deadline")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
