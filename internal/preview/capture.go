/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"photolayout/internal/domain"
	applog "photolayout/internal/log"
	"photolayout/internal/render"
)

// CapturedPage is an independent snapshot of one page. Later edits to the
// session do not reach it.
type CapturedPage struct {
	Page   *domain.Page
	Layout render.PageLayout
	Markup string
}

// CaptureOptions control how long each page is given to settle.
type CaptureOptions struct {
	// Delay is waited after each page becomes current.
	Delay time.Duration
	// Settled, when set, replaces Delay with an explicit render-complete signal.
	Settled func(ctx context.Context, index int) error
}

// Capture makes each page current in turn and snapshots it. The session's
// CurrentPage is restored on every return path, including cancellation.
func Capture(ctx context.Context, s *domain.Session, opts CaptureOptions) (pages []CapturedPage, err error) {
	l := applog.WithOperation(applog.WithComponent("preview"), "capture")
	prev := s.CurrentPage
	defer func() { s.CurrentPage = prev }()

	pages = make([]CapturedPage, 0, len(s.Pages))
	for i := range s.Pages {
		if err := s.SetCurrentPage(i); err != nil {
			return nil, err
		}
		if err := settle(ctx, i, opts); err != nil {
			l.InfoContext(ctx, "capture aborted", slog.Int("page", i+1), slog.Any("err", err))
			return nil, err
		}
		snap := s.Pages[i].Clone()
		layout := render.RenderPage(snap, true)
		pages = append(pages, CapturedPage{Page: snap, Layout: layout, Markup: render.PageMarkup(layout)})
	}
	l.DebugContext(ctx, "captured pages", slog.Int("count", len(pages)))
	return pages, nil
}

func settle(ctx context.Context, index int, opts CaptureOptions) error {
	if opts.Settled != nil {
		if err := opts.Settled(ctx, index); err != nil {
			return fmt.Errorf("page %d: %w", index+1, err)
		}
		return nil
	}
	if opts.Delay <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("page %d: %w: %w", index+1, domain.ErrCancelled, err)
		}
		return nil
	}
	t := time.NewTimer(opts.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("page %d: %w: %w", index+1, domain.ErrCancelled, ctx.Err())
	case <-t.C:
		return nil
	}
}

// Documents wraps captured pages into a standalone document for a target.
func Documents(pages []CapturedPage, t render.Target) string {
	layouts := make([]render.PageLayout, len(pages))
	for i, p := range pages {
		layouts[i] = p.Layout
	}
	return render.Document(layouts, t)
}
