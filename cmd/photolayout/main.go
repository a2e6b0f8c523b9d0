/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command photolayout edits photo layouts from the command line: pages of
// positioned cards holding framed images, rendered for the editor, print
// preview and print, exported to PDF, PNG, SVG or a zip archive, and
// printed through the configured printer helpers.
//
// # Basic Usage
//
//	photolayout init ./album --size 210x297
//	photolayout -w ./album fill-grid 1 --width 90 --height 60
//	photolayout -w ./album set-image 1 card-1-0 ./images/beach.jpg
//	photolayout -w ./album image 1 card-1-0 --rotate 90 --zoom 25
//	photolayout -w ./album export pdf --out album.pdf
//	photolayout -w ./album print --printer "Save as PDF"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"photolayout/internal/config"
	"photolayout/internal/crash"
	"photolayout/internal/domain"
	"photolayout/internal/editor"
	applog "photolayout/internal/log"
	"photolayout/internal/preview"
	"photolayout/internal/printing"
	"photolayout/internal/storage"
	"photolayout/internal/telemetry"
	"photolayout/internal/version"
)

func main() {
	defer crash.Recover(nil)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := buildRootCmd(&app{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps validation errors to 2 and everything else to 1.
func exitCode(err error) int {
	if domain.IsValidation(err) {
		return 2
	}
	return 1
}

// app carries the state shared by all commands once the root pre-run has
// loaded configuration.
type app struct {
	workspace  string
	configPath string
	cfg        config.AppConfig
	tel        *telemetry.Client
	log        *slog.Logger
}

func buildRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "photolayout",
		Short:         "Photo layout editor and print renderer",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.workspace, "workspace", "w", "", "workspace directory (default: config or current directory)")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: per-user config.yaml)")

	rootCmd.AddCommand(
		buildVersionCmd(),
		buildInitCmd(a),
		buildAddPageCmd(a),
		buildDeletePageCmd(a),
		buildResetCmd(a),
		buildPageSizeCmd(a),
		buildFillGridCmd(a),
		buildAddCardCmd(a),
		buildSetImageCmd(a),
		buildClearImageCmd(a),
		buildImageCmd(a),
		buildHistoryCmd(a),
		buildRenderCmd(a),
		buildPreviewCmd(a),
		buildThumbnailCmd(a),
		buildExportCmd(a),
		buildPrintersCmd(a),
		buildPrintCmd(a),
		buildJobsCmd(a),
	)
	return rootCmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "photolayout", version.String())
		},
	}
}

// setup loads configuration, then logging and telemetry from it. A broken
// config file is reported and the defaults are used.
func (a *app) setup() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	applog.Init(applog.Options{
		Level:     a.cfg.Logging.Level,
		Format:    a.cfg.Logging.Format,
		AddSource: a.cfg.Logging.Source,
		File:      a.cfg.Logging.File,
	})
	a.log = applog.WithComponent("cli")
	if err != nil {
		a.log.Warn("config not loaded, using defaults", slog.Any("err", err))
	}
	telemetry.NewDefault(telemetry.FromConfig(a.cfg.General))
	a.tel = telemetry.Default()
	a.tel.Event(telemetry.EventStarted, nil)
	return nil
}

func (a *app) teardown() {
	if a.tel == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	a.tel.Flush(ctx)
	a.tel.Close()
}

// root resolves the workspace directory.
func (a *app) root() (string, error) {
	dir := strings.TrimSpace(a.workspace)
	if dir == "" {
		dir = a.cfg.General.DefaultWorkspace
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(dir)
}

// session is a workspace opened for one command, with its editor and the
// print collaborators built from config.
type session struct {
	ws     *storage.Workspace
	index  *storage.Index
	ed     *editor.Editor
	chrome *printing.ChromeRenderer
}

func (s *session) close() {
	if s.ed != nil {
		_ = s.ed.Close()
	}
	if s.chrome != nil {
		s.chrome.Close()
	}
	if s.index != nil {
		_ = s.index.Close()
	}
}

// withWorkspace opens the workspace and runs fn. Panics inside fn write a
// crash report and autosave the in-memory layout.
func (a *app) withWorkspace(ctx context.Context, fn func(*session) error) error {
	root, err := a.root()
	if err != nil {
		return err
	}
	ws, err := storage.Open(root)
	if err != nil {
		return err
	}
	defer crash.Recover(ws)
	ws.BackupsKept = a.cfg.Storage.BackupsKept
	ws.Session.SetDefaults(domain.PageDefaults{Margin: a.cfg.Layout.MarginMM, Spacing: a.cfg.Layout.SpacingMM})

	ctx = applog.ContextWithWorkspace(ctx, root)
	s := &session{ws: ws}
	defer s.close()
	if rebuilt, err := storage.DetectAndRebuildIndex(ctx, root); err != nil {
		a.log.WarnContext(ctx, "index check failed", slog.Any("err", err))
	} else if rebuilt {
		a.log.InfoContext(ctx, "index rebuilt")
	}
	if ix, err := storage.OpenIndex(root); err != nil {
		a.log.WarnContext(ctx, "index unavailable; print log and thumbnails disabled", slog.Any("err", err))
	} else {
		s.index = ix
	}

	monitor := a.monitor()
	s.chrome = printing.NewChromeRenderer(printing.ChromeConfig{
		RemoteURL: a.cfg.Print.ChromeRemoteURL,
		Timeout:   a.cfg.Print.ChromeTimeout(),
	})
	pdfDir := a.cfg.Print.PDFOutputDir
	if pdfDir == "" {
		pdfDir = filepath.Join(root, "exports")
	}
	router := printing.Router{
		PDF:  printing.PDFSubmitter{Renderer: s.chrome, OutputDir: pdfDir, Logger: applog.WithComponent("print.pdf")},
		Test: printing.TestSubmitter{},
	}
	if len(a.cfg.Print.SubmitCommand) > 0 {
		router.Default = printing.CommandSubmitter{Command: a.cfg.Print.SubmitCommand}
	}

	s.ed = editor.New(nil, editor.Options{
		Workspace: ws,
		Index:     s.index,
		Monitor:   monitor,
		Submitter: router,
		Notifier: printing.NotifierFunc(func(level slog.Level, msg string) {
			fmt.Fprintln(os.Stderr, msg)
		}),
		Telemetry:         a.tel,
		Capture:           preview.CaptureOptions{Delay: a.cfg.Print.SettleDelay()},
		SnapshotsKept:     a.cfg.Storage.SnapshotsPerSession,
		PreviewCacheBytes: a.cfg.Storage.PreviewCacheMaxBytes,
	})
	return fn(s)
}

// monitor caches the configured printers plus the built-in destinations.
func (a *app) monitor() *printing.Monitor {
	var enum printing.Enumerator
	if len(a.cfg.Print.EnumerateCommand) > 0 {
		enum = printing.CommandEnumerator{Command: a.cfg.Print.EnumerateCommand}
	}
	return printing.NewMonitor(printing.WithBuiltins(enum), printing.MonitorOptions{
		Interval: a.cfg.Print.PollInterval(),
		Logger:   applog.WithComponent("print.monitor"),
	})
}

// edit runs actions through the editor and saves once all of them applied.
func (a *app) edit(ctx context.Context, actions ...editor.Action) error {
	return a.withWorkspace(ctx, func(s *session) error {
		for _, act := range actions {
			if err := s.ed.Dispatch(act); err != nil {
				return err
			}
		}
		return s.ed.Save(ctx)
	})
}
