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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"photolayout/internal/geometry"
	applog "photolayout/internal/log"
)

const defaultChromeTimeout = 30 * time.Second

// PDFOptions control a single HTML to PDF conversion.
type PDFOptions struct {
	Landscape  bool
	PageRanges string
	WidthMM    float64
	HeightMM   float64
}

// PDFRenderer turns a complete HTML document into PDF bytes.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string, opts PDFOptions) ([]byte, error)
}

// ChromeConfig configures ChromeRenderer.
type ChromeConfig struct {
	// RemoteURL attaches to a running browser instead of launching one.
	RemoteURL string
	Timeout   time.Duration
	NoSandbox bool
	Logger    *slog.Logger
}

// ChromeRenderer prints HTML through a headless Chrome. The browser is
// started on first use and shut down by Close.
type ChromeRenderer struct {
	cfg ChromeConfig
	log *slog.Logger

	once        sync.Once
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeRenderer returns a renderer; no browser is started yet.
func NewChromeRenderer(cfg ChromeConfig) *ChromeRenderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultChromeTimeout
	}
	l := cfg.Logger
	if l == nil {
		l = applog.WithComponent("print.chrome")
	}
	return &ChromeRenderer{cfg: cfg, log: l}
}

func (r *ChromeRenderer) allocator() context.Context {
	r.once.Do(func() {
		if r.cfg.RemoteURL != "" {
			r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), r.cfg.RemoteURL)
			return
		}
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-first-run", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("font-render-hinting", "none"),
		)
		if r.cfg.NoSandbox {
			opts = append(opts, chromedp.Flag("no-sandbox", true))
		}
		r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	})
	return r.allocCtx
}

// RenderPDF loads html into a blank tab and prints it with zero margins.
func (r *ChromeRenderer) RenderPDF(ctx context.Context, html string, opts PDFOptions) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, errors.New("empty document")
	}
	browserCtx, cancelBrowser := chromedp.NewContext(r.allocator(),
		chromedp.WithLogf(func(format string, args ...any) {
			r.log.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer cancelBrowser()
	runCtx, cancel := context.WithTimeout(browserCtx, r.cfg.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	params := PrintParams(opts)
	var data []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := params.Do(ctx)
			data = out
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("pdf rendering timed out after %v: %w", r.cfg.Timeout, err)
		}
		return nil, fmt.Errorf("chrome print: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("chrome produced an empty pdf")
	}
	r.log.Debug("pdf rendered", slog.Int("bytes", len(data)))
	return data, nil
}

// Close shuts the browser down.
func (r *ChromeRenderer) Close() {
	if r.allocCancel != nil {
		r.allocCancel()
	}
}

// PrintParams builds the DevTools print call: background on, zero margins,
// paper in inches.
func PrintParams(opts PDFOptions) *page.PrintToPDFParams {
	w, h := opts.WidthMM, opts.HeightMM
	if w <= 0 || h <= 0 {
		w, h = geometry.A4WidthMM, geometry.A4HeightMM
	}
	p := page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(mmToInches(w)).
		WithPaperHeight(mmToInches(h)).
		WithMarginTop(0).
		WithMarginRight(0).
		WithMarginBottom(0).
		WithMarginLeft(0).
		WithLandscape(opts.Landscape).
		WithPreferCSSPageSize(true)
	if opts.PageRanges != "" {
		p = p.WithPageRanges(opts.PageRanges)
	}
	return p
}

func mmToInches(mm float64) float64 { return mm / 25.4 }

// PDFSubmitter serves the "Save as PDF" destination.
type PDFSubmitter struct {
	Renderer PDFRenderer
	// OutputDir receives print-output-<job>.pdf; defaults to the working directory.
	OutputDir string
	Logger    *slog.Logger
}

func (p PDFSubmitter) Submit(ctx context.Context, req Request) (Receipt, error) {
	if p.Renderer == nil {
		return Receipt{}, fmt.Errorf("%w: no pdf renderer", ErrNoBackend)
	}
	data, err := p.Renderer.RenderPDF(ctx, req.HTML, PDFOptions{
		Landscape:  req.Options.Landscape,
		PageRanges: RangesString(req.Options.Ranges),
	})
	if err != nil {
		return Receipt{}, err
	}
	dir := p.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Receipt{}, fmt.Errorf("create output dir: %w", err)
	}
	name := "print-output.pdf"
	if req.JobID != "" {
		name = fmt.Sprintf("print-output-%s.pdf", shortID(req.JobID))
	}
	out := filepath.Join(dir, name)
	tmp := out + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return Receipt{}, fmt.Errorf("write pdf: %w", err)
	}
	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return Receipt{}, fmt.Errorf("write pdf: %w", err)
	}
	if p.Logger != nil {
		p.Logger.InfoContext(ctx, "pdf saved", slog.String("path", out), slog.Int("bytes", len(data)))
	}
	return Receipt{Printer: PDFPrinterName, Output: out}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
