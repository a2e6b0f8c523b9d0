/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"log/slog"
	"time"

	"photolayout/internal/preview"
	"photolayout/internal/printing"
	"photolayout/internal/render"
)

// OpenPreview captures every page and shows the first in the preview
// controller. The session's current page is unchanged afterwards.
func (e *Editor) OpenPreview(ctx context.Context) error {
	pages, err := e.capturePages(ctx)
	if err != nil {
		return err
	}
	e.preview.SetPages(pages)
	return nil
}

// OpenPrint opens the print dialog, which refreshes and starts polling printers.
func (e *Editor) OpenPrint(ctx context.Context) error {
	return e.dialog.Open(ctx)
}

// ClosePrint closes the print dialog and stops polling.
func (e *Editor) ClosePrint() error {
	return e.dialog.Close()
}

// Print captures the document and hands it to the dialog, which validates
// settings and submits. Rejected and failed jobs leave the dialog open.
func (e *Editor) Print(ctx context.Context, settings printing.Settings) (printing.Job, error) {
	pages, err := e.capturePages(ctx)
	if err != nil {
		return printing.Job{}, err
	}
	html := preview.Documents(pages, render.TargetPrint)
	return e.dialog.Print(ctx, settings, html, printedPages(settings, len(pages)))
}

// PrintDocument renders the print document without submitting it.
func (e *Editor) PrintDocument(ctx context.Context) (string, int, error) {
	pages, err := e.capturePages(ctx)
	if err != nil {
		return "", 0, err
	}
	return preview.Documents(pages, render.TargetPrint), len(pages), nil
}

// capturePages holds the editor lock for the whole capture: it moves the
// current page, so no edit may interleave.
func (e *Editor) capturePages(ctx context.Context) ([]preview.CapturedPage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag != nil {
		return nil, ErrDragActive
	}
	return preview.Capture(ctx, e.session, e.capture)
}

// printedPages is the number of sheets a job covers, before copies.
func printedPages(s printing.Settings, total int) int {
	opts, err := s.Resolve()
	if err != nil || opts.Ranges == nil {
		return total
	}
	return len(printing.SelectPages(opts.Ranges, total))
}

// OnOutcome registers a hook called after every finished print job.
func (e *Editor) OnOutcome(fn func(printing.Job)) {
	e.mu.Lock()
	e.outcomeHook = fn
	e.mu.Unlock()
}

func (e *Editor) recordOutcome(job printing.Job) {
	if e.index != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := e.index.RecordPrintJob(ctx, job); err != nil {
			e.log.Warn("print job not logged", slog.String("job", job.ID), slog.Any("err", err))
		}
		cancel()
	}
	if e.tel != nil {
		e.tel.PrintOutcome(job)
	}
	e.mu.Lock()
	hook := e.outcomeHook
	e.mu.Unlock()
	if hook != nil {
		hook(job)
	}
}
