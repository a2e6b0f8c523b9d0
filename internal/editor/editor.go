/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is the long-lived controller behind the layout window. It
// owns the Session and routes typed actions through the undo Stack, and it
// wires the preview Controller, the print Dialog and workspace persistence
// together. Nothing here is global: one Editor is built at startup and
// passed to whoever needs it.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"photolayout/internal/domain"
	applog "photolayout/internal/log"
	"photolayout/internal/preview"
	"photolayout/internal/printing"
	"photolayout/internal/storage"
	"photolayout/internal/telemetry"
	"photolayout/internal/undo"
)

// ErrDragActive is returned by Dispatch while an image drag is in progress.
var ErrDragActive = errors.New("editor: image drag in progress")

// Options wire an Editor to its collaborators. Everything is optional; a
// missing Workspace or Index just disables persistence.
type Options struct {
	Workspace *storage.Workspace
	Index     *storage.Index
	Monitor   *printing.Monitor
	Submitter printing.Submitter
	Notifier  printing.Notifier
	Telemetry *telemetry.Client

	Capture preview.CaptureOptions
	Preview preview.Options

	MaxUndo int
	// SnapshotsKept bounds the history snapshots mirrored into the index.
	SnapshotsKept int
	// PreviewCacheBytes caps the thumbnail cache; 0 uses the storage default.
	PreviewCacheBytes int64
	Logger            *slog.Logger
}

type Editor struct {
	mu      sync.Mutex
	session *domain.Session
	stack   *undo.Stack
	drag    *dragState

	preview *preview.Controller
	dialog  *printing.Dialog
	monitor *printing.Monitor

	ws          *storage.Workspace
	index       *storage.Index
	tel         *telemetry.Client
	capture     preview.CaptureOptions
	snapshots   int
	previewCap  int64
	baseDir     string
	log         *slog.Logger
	outcomeHook func(printing.Job)
}

// New builds an editor over s. When opts.Workspace is set its session wins.
func New(s *domain.Session, opts Options) *Editor {
	if opts.Workspace != nil && opts.Workspace.Session != nil {
		s = opts.Workspace.Session
	}
	if s == nil {
		s = domain.NewSession()
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("editor")
	}
	mon := opts.Monitor
	if mon == nil {
		mon = printing.NewMonitor(printing.WithBuiltins(nil), printing.MonitorOptions{})
	}
	sub := opts.Submitter
	if sub == nil {
		sub = printing.Router{Test: printing.TestSubmitter{}}
	}
	snapshots := opts.SnapshotsKept
	if snapshots <= 0 {
		snapshots = domain.MaxHistory
	}
	cacheCap := opts.PreviewCacheBytes
	if cacheCap <= 0 {
		cacheCap = storage.DefaultPreviewCacheBytes
	}
	e := &Editor{
		session:    s,
		stack:      undo.NewStack(s, undo.Config{MaxDepth: opts.MaxUndo}),
		preview:    preview.NewController(opts.Preview),
		monitor:    mon,
		ws:         opts.Workspace,
		index:      opts.Index,
		tel:        opts.Telemetry,
		capture:    opts.Capture,
		snapshots:  snapshots,
		previewCap: cacheCap,
		log:        l,
	}
	if opts.Workspace != nil {
		e.baseDir = opts.Workspace.Root
		opts.Workspace.Session = s
	}
	e.dialog = printing.NewDialog(mon, sub, printing.DialogOptions{
		Notifier:  opts.Notifier,
		OnOutcome: e.recordOutcome,
		Logger:    l.With(slog.String("sub", "print")),
	})
	return e
}

// Session returns the live document. Callers must not mutate it directly.
func (e *Editor) Session() *domain.Session { return e.session }

// Stack exposes undo state for menus (CanUndo, Names).
func (e *Editor) Stack() *undo.Stack { return e.stack }

func (e *Editor) Preview() *preview.Controller { return e.preview }

func (e *Editor) Dialog() *printing.Dialog { return e.dialog }

// Save writes the workspace and mirrors the session history into the index.
func (e *Editor) Save(ctx context.Context) error {
	if e.ws == nil {
		return errors.New("editor: no workspace to save to")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ws.Session = e.session
	if err := storage.Save(e.ws); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	if e.index != nil {
		n, err := e.index.SyncHistory(ctx, e.session.History, e.snapshots)
		if err != nil {
			e.log.WarnContext(ctx, "history snapshot sync failed", slog.Any("err", err))
		} else {
			e.log.DebugContext(ctx, "history synced", slog.Int("written", n))
		}
	}
	return nil
}

// Reset starts the project over with one empty page. The undo stack and the
// cached page previews are cleared, so a reset cannot be undone.
func (e *Editor) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag != nil {
		return ErrDragActive
	}
	e.session.Reset()
	e.stack.Reset(e.session)
	if e.index != nil {
		if err := e.index.InvalidatePreviews(ctx, 0); err != nil {
			e.log.WarnContext(ctx, "preview cache not cleared", slog.Any("err", err))
		}
	}
	e.log.InfoContext(ctx, "project reset")
	return nil
}

// Close stops background work: printer polling and the print dialog.
func (e *Editor) Close() error {
	return e.dialog.Close()
}
