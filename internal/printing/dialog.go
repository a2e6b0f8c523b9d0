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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"photolayout/internal/domain"
	applog "photolayout/internal/log"
)

// Notifier shows transient messages (toasts) to the user.
type Notifier interface {
	Notify(level slog.Level, msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level slog.Level, msg string)

func (f NotifierFunc) Notify(level slog.Level, msg string) { f(level, msg) }

// DialogOptions configure a Dialog.
type DialogOptions struct {
	Notifier Notifier
	// OnOutcome is called with every finished job, rejected ones included.
	OnOutcome func(Job)
	Logger    *slog.Logger
	Now       func() time.Time
}

// Dialog owns the print dialog lifecycle: it polls printers while open,
// validates against a snapshot of the cached list and submits.
type Dialog struct {
	monitor   *Monitor
	submitter Submitter
	notifier  Notifier
	onOutcome func(Job)
	log       *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	state    JobState
	settings Settings
	last     *Job
}

// NewDialog builds a closed dialog in state Idle.
func NewDialog(m *Monitor, sub Submitter, opts DialogOptions) *Dialog {
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("print")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dialog{
		monitor:   m,
		submitter: sub,
		notifier:  opts.Notifier,
		onOutcome: opts.OnOutcome,
		log:       l,
		now:       opts.Now,
		state:     StateIdle,
		settings:  DefaultSettings(),
	}
}

// State returns the current lifecycle state.
func (d *Dialog) State() JobState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Settings returns the settings the dialog shows; they survive failures.
func (d *Dialog) Settings() Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// LastJob returns the most recent finished job, if any.
func (d *Dialog) LastJob() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return Job{}, false
	}
	return *d.last, true
}

// Printers returns the cached list in dropdown order.
func (d *Dialog) Printers() []PrinterInfo { return d.monitor.Sorted() }

func (d *Dialog) moveLocked(to JobState, trace *[]JobState) error {
	if !d.state.CanTransitionTo(to) {
		return &TransitionError{From: d.state, To: to}
	}
	d.state = to
	if trace != nil {
		*trace = append(*trace, to)
	}
	return nil
}

// Open shows the dialog: it refreshes the printer list once and starts
// polling. A failed refresh keeps the cached list and does not block opening.
func (d *Dialog) Open(ctx context.Context) error {
	d.mu.Lock()
	if err := d.moveLocked(StateDialogOpen, nil); err != nil {
		d.mu.Unlock()
		return err
	}
	d.mu.Unlock()
	if err := d.monitor.Refresh(ctx); err != nil {
		d.notify(slog.LevelWarn, "Could not refresh printers: "+err.Error())
	}
	if err := d.monitor.Start(ctx); err != nil {
		return err
	}
	d.log.DebugContext(ctx, "print dialog opened", slog.Int("printers", len(d.monitor.Snapshot())))
	return nil
}

// Close hides the dialog and stops polling.
func (d *Dialog) Close() error {
	d.monitor.Stop()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateClosed || d.state == StateIdle {
		return nil
	}
	return d.moveLocked(StateClosed, nil)
}

// Print validates settings against a snapshot of the cached printers and,
// if valid, submits html. Rejections return a *domain.ValidationError and
// failures a *domain.ExternalIOError; both leave the dialog open with the
// settings retained. On success the dialog closes.
func (d *Dialog) Print(ctx context.Context, settings Settings, html string, pages int) (Job, error) {
	d.mu.Lock()
	if d.state != StateDialogOpen {
		from := d.state
		d.mu.Unlock()
		return Job{}, &TransitionError{From: from, To: StateValidating}
	}
	d.settings = settings
	job := Job{
		ID:        uuid.NewString(),
		Printer:   settings.Printer,
		Settings:  settings,
		Pages:     pages,
		StartedAt: d.now(),
		Trace:     []JobState{StateDialogOpen},
	}
	_ = d.moveLocked(StateValidating, &job.Trace)
	d.mu.Unlock()

	ctx = applog.ContextWithJob(ctx, job.ID)
	res := Validate(settings, d.monitor.Snapshot())
	opts, rerr := settings.Resolve()
	if res.IsValid && rerr != nil {
		res = Result{Errors: []string{rerr.Error()}}
	}
	if !res.IsValid {
		job.Errors = res.Errors
		d.finish(&job, StateRejected)
		d.log.InfoContext(ctx, "print rejected", slog.Int("errors", len(res.Errors)))
		return job, &domain.ValidationError{Messages: res.Errors}
	}

	d.mu.Lock()
	_ = d.moveLocked(StateSubmitting, &job.Trace)
	d.mu.Unlock()
	d.log.InfoContext(ctx, "submitting print job",
		slog.String("printer", opts.Printer), slog.Int("copies", opts.Copies), slog.Int("pages", pages))

	receipt, err := d.submitter.Submit(ctx, Request{JobID: job.ID, HTML: html, Pages: pages, Settings: settings, Options: opts})
	if err != nil {
		job.Reason = err.Error()
		d.finish(&job, StateFailed)
		d.log.WarnContext(ctx, "print failed", slog.String("err", err.Error()))
		d.notify(slog.LevelError, "Print failed: "+err.Error())
		if errors.Is(err, context.Canceled) {
			return job, domain.ExternalIO("print", fmt.Errorf("%w: %v", domain.ErrCancelled, err))
		}
		return job, domain.ExternalIO("print", err)
	}
	job.Output = receipt.Output
	d.finish(&job, StateSucceeded)
	d.monitor.Stop()
	if receipt.Output != "" {
		d.notify(slog.LevelInfo, "Saved PDF: "+receipt.Output)
	} else {
		d.notify(slog.LevelInfo, "Successfully sent to printer: "+settings.Printer)
	}
	return job, nil
}

// finish records the terminal outcome and moves back to DialogOpen
// (rejected, failed) or Closed (succeeded).
func (d *Dialog) finish(job *Job, outcome JobState) {
	d.mu.Lock()
	_ = d.moveLocked(outcome, &job.Trace)
	job.State = outcome
	job.EndedAt = d.now()
	next := StateDialogOpen
	if outcome == StateSucceeded {
		next = StateClosed
	}
	_ = d.moveLocked(next, &job.Trace)
	j := *job
	d.last = &j
	d.mu.Unlock()
	if d.onOutcome != nil {
		d.onOutcome(j)
	}
}

func (d *Dialog) notify(level slog.Level, msg string) {
	if d.notifier != nil {
		d.notifier.Notify(level, msg)
	}
}
