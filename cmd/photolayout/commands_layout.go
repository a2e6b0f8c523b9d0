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
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"photolayout/internal/domain"
	"photolayout/internal/editor"
	"photolayout/internal/imagesrc"
	"photolayout/internal/render"
	"photolayout/internal/storage"
)

func buildInitCmd(a *app) *cobra.Command {
	var size string
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a workspace with one empty page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.workspace = args[0]
			}
			root, err := a.root()
			if err != nil {
				return err
			}
			s := domain.NewSessionWithDefaults(domain.PageDefaults{Margin: a.cfg.Layout.MarginMM, Spacing: a.cfg.Layout.SpacingMM})
			if size != "" {
				if err := s.SetPageSize(1, size); err != nil {
					return err
				}
			}
			if _, err := storage.Init(root, s); err != nil {
				return err
			}
			if _, err := storage.DetectAndRebuildIndex(cmd.Context(), root); err != nil {
				a.log.Warn("index not created", slog.Any("err", err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Created workspace at", root)
			return nil
		},
	}
	cmd.Flags().StringVar(&size, "size", "", "size of the first page as WxH in mm")
	return cmd
}

func buildAddPageCmd(a *app) *cobra.Command {
	var size string
	cmd := &cobra.Command{
		Use:   "add-page",
		Short: "Append a page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd.Context(), editor.Action{Kind: editor.AddPage, Size: size})
		},
	}
	cmd.Flags().StringVar(&size, "size", "", "page size as WxH in mm")
	return cmd
}

func buildDeletePageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-page <page>",
		Short: "Delete a page; later pages and their cards are renumbered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := pageArg(args[0])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), editor.Action{Kind: editor.DeletePage, Page: page})
		},
	}
}

func buildResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every page and start over with one empty page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset deletes all pages and cannot be undone; pass --yes to confirm")
			}
			ctx := cmd.Context()
			return a.withWorkspace(ctx, func(s *session) error {
				if err := s.ed.Reset(ctx); err != nil {
					return err
				}
				if err := s.ed.Save(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Project reset")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func buildPageSizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "page-size <page> <WxH>",
		Short: "Set a page's size in mm",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := pageArg(args[0])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), editor.Action{Kind: editor.SetPageSize, Page: page, Size: args[1]})
		},
	}
}

func buildFillGridCmd(a *app) *cobra.Command {
	var w, h float64
	cmd := &cobra.Command{
		Use:   "fill-grid <page>",
		Short: "Replace a page's cards with a grid of equal placeholders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := pageArg(args[0])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), editor.Action{Kind: editor.FillGrid, Page: page, W: w, H: h})
		},
	}
	cmd.Flags().Float64Var(&w, "width", 0, "card width in mm")
	cmd.Flags().Float64Var(&h, "height", 0, "card height in mm")
	_ = cmd.MarkFlagRequired("width")
	_ = cmd.MarkFlagRequired("height")
	return cmd
}

func buildAddCardCmd(a *app) *cobra.Command {
	var x, y, w, h float64
	cmd := &cobra.Command{
		Use:   "add-card <page>",
		Short: "Place a card inside the page's available area",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := pageArg(args[0])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), editor.Action{Kind: editor.AddCard, Page: page, X: x, Y: y, W: w, H: h})
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "left edge in mm from the page origin")
	cmd.Flags().Float64Var(&y, "y", 0, "top edge in mm from the page origin")
	cmd.Flags().Float64Var(&w, "width", 0, "width in mm")
	cmd.Flags().Float64Var(&h, "height", 0, "height in mm")
	return cmd
}

func buildSetImageCmd(a *app) *cobra.Command {
	var embed bool
	cmd := &cobra.Command{
		Use:   "set-image <page> <card-id> <path>",
		Short: "Assign an image file to a card",
		Long: "Assign an image file to a card. Framing starts at the defaults. " +
			"Without --embed the path is stored relative to the workspace when it lies inside it.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := pageArg(args[0])
			if err != nil {
				return err
			}
			act := editor.Action{Kind: editor.SetImage, Page: page, CardID: args[1]}
			if embed {
				uri, info, err := imagesrc.EmbedFile(args[2])
				if err != nil {
					return err
				}
				act.Src, act.W, act.H = uri, float64(info.Width), float64(info.Height)
			} else {
				root, err := a.root()
				if err != nil {
					return err
				}
				act.Src, err = workspacePath(root, args[2])
				if err != nil {
					return err
				}
			}
			return a.edit(cmd.Context(), act)
		},
	}
	cmd.Flags().BoolVar(&embed, "embed", false, "store the image inline as a data URI")
	return cmd
}

func buildClearImageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-image <page> <card-id>",
		Short: "Remove a card's image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := pageArg(args[0])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), editor.Action{Kind: editor.ClearImage, Page: page, CardID: args[1]})
		},
	}
}

func buildImageCmd(a *app) *cobra.Command {
	var (
		rotate, zoom, panX, panY float64
		reset                    bool
	)
	cmd := &cobra.Command{
		Use:   "image <page> <card-id>",
		Short: "Adjust an image's framing",
		Long: "Adjust an image's framing. --reset runs first, then rotate, zoom and pan. " +
			"Rotation turns clockwise in degrees, zoom is in percent points, pan in pixels.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := pageArg(args[0])
			if err != nil {
				return err
			}
			base := editor.Action{Page: page, CardID: args[1]}
			var acts []editor.Action
			add := func(k editor.Kind, f func(*editor.Action)) {
				act := base
				act.Kind = k
				f(&act)
				acts = append(acts, act)
			}
			if reset {
				add(editor.ResetImage, func(*editor.Action) {})
			}
			if cmd.Flags().Changed("rotate") {
				add(editor.RotateImage, func(act *editor.Action) { act.Delta = rotate })
			}
			if cmd.Flags().Changed("zoom") {
				add(editor.ZoomImage, func(act *editor.Action) { act.Delta = zoom })
			}
			if cmd.Flags().Changed("pan-x") || cmd.Flags().Changed("pan-y") {
				add(editor.PanImage, func(act *editor.Action) { act.DX, act.DY = panX, panY })
			}
			if len(acts) == 0 {
				return fmt.Errorf("nothing to do: pass --rotate, --zoom, --pan-x/--pan-y or --reset")
			}
			return a.edit(cmd.Context(), acts...)
		},
	}
	cmd.Flags().Float64Var(&rotate, "rotate", 0, "rotate by degrees")
	cmd.Flags().Float64Var(&zoom, "zoom", 0, "change zoom by percent points")
	cmd.Flags().Float64Var(&panX, "pan-x", 0, "move horizontally by pixels")
	cmd.Flags().Float64Var(&panY, "pan-y", 0, "move vertically by pixels")
	cmd.Flags().BoolVar(&reset, "reset", false, "restore default framing")
	return cmd
}

func buildHistoryCmd(a *app) *cobra.Command {
	var (
		limit   int
		restore int64
		show    int64
		out     string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved layout snapshots or restore one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withWorkspace(ctx, func(s *session) error {
				if s.index == nil {
					return fmt.Errorf("history needs the workspace index")
				}
				if restore > 0 {
					return restoreSnapshot(ctx, s, restore)
				}
				if show > 0 {
					return showSnapshot(ctx, cmd, s, show, out)
				}
				list, err := s.index.ListSnapshots(ctx, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tWHEN\tACTION\tPAGES")
				for _, sn := range list {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", sn.ID, sn.At.Local().Format("2006-01-02 15:04:05"), sn.Action, len(sn.State.Pages))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of snapshots to list")
	cmd.Flags().Int64Var(&restore, "restore", 0, "restore the snapshot with this id")
	cmd.Flags().Int64Var(&show, "show", 0, "render the snapshot with this id as a preview document")
	cmd.Flags().StringVarP(&out, "out", "o", "", "preview output file (default stdout)")
	cmd.MarkFlagsMutuallyExclusive("restore", "show")
	return cmd
}

func findSnapshot(ctx context.Context, s *session, id int64) (*storage.Snapshot, error) {
	list, err := s.index.ListSnapshots(ctx, 0)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("snapshot %d not found", id)
}

// showSnapshot renders a snapshot without touching the layout.
func showSnapshot(ctx context.Context, cmd *cobra.Command, s *session, id int64, out string) error {
	sn, err := findSnapshot(ctx, s, id)
	if err != nil {
		return err
	}
	doc := render.Document(render.RenderState(sn.State), render.TargetPreview)
	return writeDocument(cmd.OutOrStdout(), out, doc)
}

func restoreSnapshot(ctx context.Context, s *session, id int64) error {
	sn, err := findSnapshot(ctx, s, id)
	if err != nil {
		return err
	}
	sess := s.ed.Session()
	sess.Restore(sn.State)
	sess.AddToHistory("Restore Snapshot")
	return s.ed.Save(ctx)
}

func pageArg(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page number %q", s)
	}
	return n, nil
}

// workspacePath stores p relative to root when it lies inside it.
func workspacePath(root, p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(abs), nil
	}
	return filepath.ToSlash(rel), nil
}
