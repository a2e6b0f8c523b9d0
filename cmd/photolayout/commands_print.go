/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"photolayout/internal/domain"
	"photolayout/internal/printing"
)

// printTimeout bounds a whole print including capture and submission.
const printTimeout = 5 * time.Minute

func buildPrintersCmd(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "printers",
		Short: "List available printers, physical ones first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.monitor()
			if err := m.Refresh(cmd.Context()); err != nil {
				a.log.Warn("printer refresh failed", slog.Any("err", err))
			}
			list := m.Filter(filter)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRINTER\tSTATUS\tREADY\tKIND")
			for _, p := range list {
				kind := "physical"
				if p.Virtual {
					kind = "virtual"
				}
				name := p.Label()
				if p.IsDefault {
					name += " (default)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", name, p.StatusText, p.Ready, kind)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "case-insensitive name filter")
	return cmd
}

func buildPrintCmd(a *app) *cobra.Command {
	settings := printing.DefaultSettings()
	var dryRun string
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Validate print settings and submit the layout",
		Long: "Validate print settings and submit the layout. \"Save as PDF\" renders through " +
			"headless Chrome, \"Test Printer\" only logs, other printers go to the configured submit command.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("page-ranges") && !cmd.Flags().Changed("pages") {
				settings.Pages = "custom"
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), printTimeout)
			defer cancel()
			return a.withWorkspace(ctx, func(s *session) error {
				if dryRun != "" {
					html, n, err := s.ed.PrintDocument(ctx)
					if err != nil {
						return err
					}
					if err := writeDocument(cmd.OutOrStdout(), dryRun, html); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote print document with %d pages to %s\n", n, dryRun)
					return nil
				}
				if err := s.ed.OpenPrint(ctx); err != nil {
					return err
				}
				defer func() { _ = s.ed.ClosePrint() }()
				job, err := s.ed.Print(ctx, settings)
				var verr *domain.ValidationError
				if errors.As(err, &verr) {
					for _, m := range verr.Messages {
						fmt.Fprintln(cmd.ErrOrStderr(), "-", m)
					}
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s %s: %d pages to %s in %s\n",
					job.ID, job.State, job.Pages, job.Printer, job.Duration().Round(time.Millisecond))
				if job.Output != "" {
					fmt.Fprintln(cmd.OutOrStdout(), job.Output)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&settings.Printer, "printer", "p", "", "printer name")
	f.StringVar(&settings.Copies, "copies", settings.Copies, "number of copies, 1 to 999")
	f.StringVar(&settings.Layout, "layout", settings.Layout, "portrait or landscape")
	f.StringVar(&settings.Pages, "pages", settings.Pages, "all or custom")
	f.StringVar(&settings.PageRanges, "page-ranges", "", "ranges such as 1-5, 8, 11-13; implies --pages custom")
	f.StringVar(&settings.Quality, "quality", settings.Quality, "150, 300 or 600 dpi")
	f.StringVar(&settings.PaperType, "paper", settings.PaperType, "plain, glossy or photo")
	f.StringVar(&dryRun, "dry-run", "", "write the print document to this file instead of submitting")
	return cmd
}

func buildJobsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recorded print jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withWorkspace(ctx, func(s *session) error {
				if s.index == nil {
					return fmt.Errorf("jobs need the workspace index")
				}
				jobs, err := s.index.ListPrintJobs(ctx, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "STARTED\tPRINTER\tSTATE\tPAGES\tDETAIL")
				for _, j := range jobs {
					detail := j.Reason
					if len(j.Errors) > 0 {
						detail = strings.Join(j.Errors, "; ")
					}
					if detail == "" {
						detail = j.Output
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
						j.StartedAt.Local().Format("2006-01-02 15:04:05"), j.Printer, j.State, j.Pages, detail)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of jobs to list")
	return cmd
}
