/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"

	"photolayout/internal/domain"
	"photolayout/internal/imagesrc"
	"photolayout/internal/undo"
)

// Kind names a user gesture. The renderer emits data only; the host maps
// its events to these kinds and calls Dispatch.
type Kind string

const (
	AddPage          Kind = "page.add"
	DeletePage       Kind = "page.delete"
	SelectPage       Kind = "page.select"
	SetPageSize      Kind = "page.size"
	FillGrid         Kind = "grid.fill"
	AddCard          Kind = "card.add"
	SetImage         Kind = "image.set"
	ClearImage       Kind = "image.clear"
	RotateImage      Kind = "image.rotate"
	ZoomImage        Kind = "image.zoom"
	PanImage         Kind = "image.pan"
	ResetImage       Kind = "image.reset"
	SetImageSettings Kind = "image.settings"
	Undo             Kind = "history.undo"
	Redo             Kind = "history.redo"
)

// Action is a typed UI event. Only the fields its Kind reads are used.
type Action struct {
	Kind     Kind
	Page     int    // 1-based page number
	CardID   string // card-<page>-<index>
	Size     string // "WxH" in mm
	X, Y     float64
	W, H     float64 // mm for cards, natural pixels for images
	Src      string
	Delta    float64 // degrees for rotate, percent for zoom
	DX, DY   float64 // device pixels
	Settings domain.ImageSettings
}

// commandFunc turns an action into a command for the stack.
type commandFunc func(e *Editor, a Action) (undo.Command, error)

// table maps each undoable kind to its command builder. SelectPage, Undo and
// Redo are handled in Dispatch because they are not document edits.
var table = map[Kind]commandFunc{
	AddPage: func(_ *Editor, a Action) (undo.Command, error) {
		return &undo.AddPage{Size: a.Size}, nil
	},
	DeletePage: func(_ *Editor, a Action) (undo.Command, error) {
		return &undo.DeletePage{Number: a.Page}, nil
	},
	SetPageSize: func(_ *Editor, a Action) (undo.Command, error) {
		return &undo.SetPageSize{Page: a.Page, Size: a.Size}, nil
	},
	FillGrid: func(_ *Editor, a Action) (undo.Command, error) {
		return &undo.FillGrid{Page: a.Page, Width: a.W, Height: a.H}, nil
	},
	AddCard: func(_ *Editor, a Action) (undo.Command, error) {
		return &undo.AddCard{Page: a.Page, X: a.X, Y: a.Y, Width: a.W, Height: a.H}, nil
	},
	SetImage: func(e *Editor, a Action) (undo.Command, error) {
		w, h := a.W, a.H
		if w <= 0 || h <= 0 {
			info, err := imagesrc.Probe(a.Src, e.baseDir)
			if err != nil {
				return nil, fmt.Errorf("image size: %w", err)
			}
			w, h = float64(info.Width), float64(info.Height)
		}
		return &undo.SetImage{Page: a.Page, CardID: a.CardID, Src: a.Src, Width: w, Height: h}, nil
	},
	ClearImage: func(_ *Editor, a Action) (undo.Command, error) {
		return &undo.ClearImage{Page: a.Page, CardID: a.CardID}, nil
	},
	RotateImage: func(e *Editor, a Action) (undo.Command, error) {
		return undo.Rotate(e.session, a.Page, a.CardID, a.Delta)
	},
	ZoomImage: func(e *Editor, a Action) (undo.Command, error) {
		return undo.Zoom(e.session, a.Page, a.CardID, a.Delta)
	},
	PanImage: func(e *Editor, a Action) (undo.Command, error) {
		return undo.Pan(e.session, a.Page, a.CardID, a.DX, a.DY)
	},
	ResetImage: func(_ *Editor, a Action) (undo.Command, error) {
		return undo.Reset(a.Page, a.CardID), nil
	},
	SetImageSettings: func(_ *Editor, a Action) (undo.Command, error) {
		return &undo.SetImageSettings{Page: a.Page, CardID: a.CardID, Settings: a.Settings}, nil
	},
}

// Kinds lists every action Dispatch accepts.
func Kinds() []Kind {
	out := []Kind{SelectPage, Undo, Redo}
	for k := range table {
		out = append(out, k)
	}
	return out
}

// Dispatch routes one action. Document edits go through the undo stack; a
// failed edit leaves the session and the stack untouched.
func (e *Editor) Dispatch(a Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag != nil {
		return ErrDragActive
	}
	l := e.log.With(slog.String("action", string(a.Kind)))
	switch a.Kind {
	case SelectPage:
		return e.session.SetCurrentPage(a.Page - 1)
	case Undo:
		ok, err := e.stack.Undo()
		if err == nil && ok {
			l.Debug("undone", slog.Int("index", e.stack.Index()))
		}
		return err
	case Redo:
		ok, err := e.stack.Redo()
		if err == nil && ok {
			l.Debug("redone", slog.Int("index", e.stack.Index()))
		}
		return err
	}
	build, ok := table[a.Kind]
	if !ok {
		return fmt.Errorf("editor: unknown action %q", a.Kind)
	}
	cmd, err := build(e, a)
	if err != nil {
		return err
	}
	if err := e.stack.Execute(cmd); err != nil {
		l.Info("action rejected", slog.Any("err", err))
		return err
	}
	l.Debug("applied", slog.String("command", cmd.Name()))
	return nil
}
