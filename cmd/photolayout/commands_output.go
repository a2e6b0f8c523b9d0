/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"photolayout/internal/crash"
	"photolayout/internal/domain"
	"photolayout/internal/editor"
	"photolayout/internal/export"
	"photolayout/internal/preview"
	"photolayout/internal/printing"
	"photolayout/internal/render"
	"photolayout/internal/storage"
	"photolayout/internal/telemetry"
)

func buildRenderCmd(a *app) *cobra.Command {
	var (
		target string
		out    string
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the layout as an HTML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := render.ParseTarget(target)
			if err != nil {
				return err
			}
			root, err := a.root()
			if err != nil {
				return err
			}
			ws, err := storage.Open(root)
			if err != nil {
				return err
			}
			defer crash.Recover(ws)
			if err := writeDocument(cmd.OutOrStdout(), out, render.Document(render.Render(ws.Session), t)); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			a.log.Info("watching layout", slog.String("root", root))
			return storage.WatchLayout(cmd.Context(), root, 0, func(s *domain.Session, err error) {
				if err != nil {
					a.log.Warn("layout reload failed", slog.Any("err", err))
					return
				}
				ws.Session = s
				if err := writeDocument(cmd.OutOrStdout(), out, render.Document(render.Render(s), t)); err != nil {
					a.log.Warn("render failed", slog.Any("err", err))
					return
				}
				a.log.Info("re-rendered", slog.Int("pages", len(s.Pages)))
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", "editor", "editor, preview or print")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-render whenever layout.json changes")
	return cmd
}

func writeDocument(stdout io.Writer, path, doc string) error {
	if path == "" {
		_, err := io.WriteString(stdout, doc)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.ExternalIO("write document", err)
	}
	return domain.ExternalIO("write document", os.WriteFile(path, []byte(doc), 0o644))
}

func buildPreviewCmd(a *app) *cobra.Command {
	var (
		page int
		out  string
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Capture every page as the print preview sees it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withWorkspace(ctx, func(s *session) error {
				if err := s.ed.OpenPreview(ctx); err != nil {
					return err
				}
				pc := s.ed.Preview()
				for i := 1; i < page; i++ {
					if !pc.NavigatePage(1) {
						break
					}
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, pc.PageIndicator(), "at", pc.ZoomLabel())
				if cur, ok := pc.Current(); ok {
					fmt.Fprintf(w, "Page %d: %gx%g mm, %d cards\n", cur.Layout.Number, cur.Layout.Size.W, cur.Layout.Size.H, len(cur.Layout.Cards))
				}
				if out == "" {
					return nil
				}
				return writeDocument(w, out, preview.Documents(pc.Pages(), render.TargetPreview))
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	cmd.Flags().StringVarP(&out, "out", "o", "", "also write the preview document to this file")
	return cmd
}

func buildThumbnailCmd(a *app) *cobra.Command {
	var (
		dpi int
		out string
	)
	cmd := &cobra.Command{
		Use:   "thumbnail <page>",
		Short: "Write a cached PNG thumbnail of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := pageArg(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withWorkspace(ctx, func(s *session) error {
				png, err := s.ed.Thumbnail(ctx, page, dpi)
				if err != nil {
					return err
				}
				if out == "" {
					out = filepath.Join(s.ws.Root, "exports", fmt.Sprintf("thumb-%d.png", page))
				}
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(out, png, 0o644); err != nil {
					return domain.ExternalIO("write thumbnail", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&dpi, "dpi", editor.DefaultThumbDPI, "thumbnail resolution")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: exports/thumb-<page>.png)")
	return cmd
}

// exportFlags are shared by the export subcommands.
type exportFlags struct {
	out    string
	pages  string
	guides bool
	dpi    int
	strict bool
}

func (f *exportFlags) register(cmd *cobra.Command, raster bool) {
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output path")
	cmd.Flags().StringVar(&f.pages, "pages", "", "page ranges such as 1-3, 5 (default: all)")
	cmd.Flags().BoolVar(&f.guides, "guides", false, "outline cards")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail on unreadable images instead of skipping them")
	if raster {
		cmd.Flags().IntVar(&f.dpi, "dpi", export.DefaultRasterDPI, "raster resolution")
	}
}

// selection resolves --pages against the session's page count.
func (f *exportFlags) selection(s *domain.Session) ([]int, error) {
	if strings.TrimSpace(f.pages) == "" {
		return nil, nil
	}
	ranges, err := printing.ParsePageRanges(f.pages)
	if err != nil {
		return nil, err
	}
	sel := printing.SelectPages(ranges, len(s.Pages))
	if len(sel) == 0 {
		return nil, &domain.ValidationError{Messages: []string{fmt.Sprintf("no pages in %q", f.pages)}}
	}
	return sel, nil
}

func (f *exportFlags) path(root, def string) string {
	if f.out != "" {
		return f.out
	}
	return filepath.Join(root, "exports", def)
}

func buildExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the layout to files",
	}
	cmd.AddCommand(
		buildExportPDFCmd(a),
		buildExportPNGCmd(a),
		buildExportSVGCmd(a),
		buildExportZipCmd(a),
		buildExportBatchCmd(a),
	)
	return cmd
}

// exported reports written files and sends the anonymous export event.
func (a *app) exported(w io.Writer, format string, start time.Time, files ...string) {
	for _, f := range files {
		fmt.Fprintln(w, f)
	}
	a.tel.Event(telemetry.EventExport, map[string]any{
		"format":      format,
		"files":       len(files),
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func buildExportPDFCmd(a *app) *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Export a vector PDF with one sheet per page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), func(s *session) error {
				start := time.Now()
				sess := s.ed.Session()
				pages, err := f.selection(sess)
				if err != nil {
					return err
				}
				out := f.path(s.ws.Root, "layout.pdf")
				opt := export.PDFOptions{IncludeGuides: f.guides, Pages: pages, BaseDir: s.ws.Root, Title: filepath.Base(s.ws.Root), Strict: f.strict}
				if err := export.ExportPDF(sess, out, opt); err != nil {
					return err
				}
				a.exported(cmd.OutOrStdout(), "pdf", start, out)
				return nil
			})
		},
	}
	f.register(cmd, false)
	return cmd
}

func buildExportPNGCmd(a *app) *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "png",
		Short: "Export one PNG per page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), func(s *session) error {
				start := time.Now()
				sess := s.ed.Session()
				pages, err := f.selection(sess)
				if err != nil {
					return err
				}
				files, err := export.ExportPNGPages(sess, f.path(s.ws.Root, "png"), export.PNGOptions{
					IncludeGuides: f.guides, DPI: f.dpi, Pages: pages, BaseDir: s.ws.Root, Strict: f.strict,
				})
				if err != nil {
					return err
				}
				a.exported(cmd.OutOrStdout(), "png", start, files...)
				return nil
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func buildExportSVGCmd(a *app) *cobra.Command {
	var (
		f     exportFlags
		embed bool
	)
	cmd := &cobra.Command{
		Use:   "svg",
		Short: "Export one SVG per page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), func(s *session) error {
				start := time.Now()
				sess := s.ed.Session()
				pages, err := f.selection(sess)
				if err != nil {
					return err
				}
				files, err := export.ExportSVGPages(sess, f.path(s.ws.Root, "svg"), export.SVGOptions{
					IncludeGuides: f.guides, Embed: embed, Pages: pages, BaseDir: s.ws.Root, Strict: f.strict,
				})
				if err != nil {
					return err
				}
				a.exported(cmd.OutOrStdout(), "svg", start, files...)
				return nil
			})
		},
	}
	f.register(cmd, false)
	cmd.Flags().BoolVar(&embed, "embed", false, "inline images as data URIs")
	return cmd
}

func buildExportZipCmd(a *app) *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "zip",
		Short: "Export page PNGs and layout.json as a zip archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), func(s *session) error {
				start := time.Now()
				sess := s.ed.Session()
				pages, err := f.selection(sess)
				if err != nil {
					return err
				}
				out := f.path(s.ws.Root, "layout.zip")
				if !strings.HasSuffix(strings.ToLower(out), ".zip") {
					out += ".zip"
				}
				err = export.ExportArchive(sess, out, export.ArchiveOptions{
					PNG:           export.PNGOptions{IncludeGuides: f.guides, DPI: f.dpi, Pages: pages, BaseDir: s.ws.Root, Strict: f.strict},
					IncludeLayout: true,
				})
				if err != nil {
					return err
				}
				a.exported(cmd.OutOrStdout(), "zip", start, out)
				return nil
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func buildExportBatchCmd(a *app) *cobra.Command {
	var (
		f       exportFlags
		preset  string
		formats []string
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Export several formats with a web or print preset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), func(s *session) error {
				start := time.Now()
				sess := s.ed.Session()
				pages, err := f.selection(sess)
				if err != nil {
					return err
				}
				opt := export.BatchOptions{
					Preset:  export.PresetName(preset),
					Formats: formats,
					Pages:   pages,
					OutDir:  f.out,
					Root:    s.ws.Root,
					Strict:  f.strict,
				}
				if cmd.Flags().Changed("dpi") {
					opt.DPIOverride = f.dpi
				}
				if cmd.Flags().Changed("guides") {
					opt.IncludeGuides = &f.guides
				}
				res, err := export.Batch(sess, opt)
				if err != nil {
					return err
				}
				a.exported(cmd.OutOrStdout(), "batch:"+preset, start, res.Files...)
				return nil
			})
		},
	}
	f.register(cmd, true)
	cmd.Flags().StringVar(&preset, "preset", string(export.PresetPrint), "web or print")
	cmd.Flags().StringSliceVar(&formats, "formats", nil, "pdf, png, svg, zip (default: preset formats)")
	return cmd
}
