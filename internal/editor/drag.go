/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"log/slog"

	"photolayout/internal/domain"
	"photolayout/internal/undo"
)

// dragState is an image drag between mouse-down and mouse-up. Intermediate
// positions are applied live without history; EndDrag records one edit.
type dragState struct {
	page   int
	cardID string
	start  domain.ImageSettings
	last   domain.ImageSettings
	label  string
}

// BeginDrag starts a live edit of a card's image framing.
func (e *Editor) BeginDrag(page int, cardID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag != nil {
		return ErrDragActive
	}
	_, card, err := e.session.FindCard(page, cardID)
	if err != nil {
		return err
	}
	if card.Image == nil {
		return &domain.ValidationError{Messages: []string{"card " + cardID + " has no image"}}
	}
	st := card.Image.Settings
	e.drag = &dragState{page: page, cardID: cardID, start: st, last: st, label: "Pan Image"}
	return nil
}

// DragTo applies absolute settings live.
func (e *Editor) DragTo(st domain.ImageSettings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.drag
	if d == nil {
		return errors.New("editor: no drag in progress")
	}
	if err := e.session.ApplyLiveImageSettings(d.page, d.cardID, st); err != nil {
		return err
	}
	if st.Rotation != d.start.Rotation || st.Zoom != d.start.Zoom {
		d.label = "Update Image Settings"
	}
	_, card, _ := e.session.FindCard(d.page, d.cardID)
	d.last = card.Image.Settings
	return nil
}

// DragBy moves the image by (dx, dy) device pixels from where the drag began.
func (e *Editor) DragBy(dx, dy float64) error {
	e.mu.Lock()
	d := e.drag
	e.mu.Unlock()
	if d == nil {
		return errors.New("editor: no drag in progress")
	}
	st := d.start
	st.TranslateX += dx
	st.TranslateY += dy
	return e.DragTo(st)
}

// EndDrag commits the drag as a single undoable edit. A drag that ends
// where it started records nothing.
func (e *Editor) EndDrag() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.drag
	if d == nil {
		return errors.New("editor: no drag in progress")
	}
	e.drag = nil
	if d.last == d.start {
		return nil
	}
	// rewind so the command captures the pre-drag image for undo
	if err := e.session.ApplyLiveImageSettings(d.page, d.cardID, d.start); err != nil {
		return err
	}
	cmd := &undo.SetImageSettings{Page: d.page, CardID: d.cardID, Settings: d.last, Label: d.label}
	if err := e.stack.Execute(cmd); err != nil {
		e.log.Info("drag not recorded", slog.Any("err", err))
		return err
	}
	return nil
}

// CancelDrag restores the framing the drag started from.
func (e *Editor) CancelDrag() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.drag
	if d == nil {
		return nil
	}
	e.drag = nil
	return e.session.ApplyLiveImageSettings(d.page, d.cardID, d.start)
}

// Dragging reports whether a drag is in progress.
func (e *Editor) Dragging() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drag != nil
}
