/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain is the authoritative document model of a photo layout:
// a Session of Pages, each holding positioned Cards that may carry a
// CardImage framed by ImageSettings. It serializes to the layout JSON
// persisted by the storage package.
package domain

import (
	"fmt"
	"time"

	"photolayout/internal/geometry"
)

const (
	// MaxHistory bounds both the session snapshot log and each image's edit history.
	MaxHistory = 50

	DefaultMargin  = 5.0
	DefaultSpacing = 10.0
)

// Session is the root aggregate. CurrentPage is a 0-based index into Pages.
type Session struct {
	Pages       []*Page        `json:"pages"`
	CurrentPage int            `json:"currentPage"`
	History     []HistoryEntry `json:"-"`

	defaults PageDefaults
}

// PageDefaults are applied to every new page.
type PageDefaults struct {
	Margin  float64
	Spacing float64
}

// SessionState is the document part of a Session, without its history log.
type SessionState struct {
	Pages       []*Page `json:"pages"`
	CurrentPage int     `json:"currentPage"`
}

// HistoryEntry is one deep-copied snapshot in the session log.
type HistoryEntry struct {
	Action string       `json:"action"`
	At     time.Time    `json:"at"`
	State  SessionState `json:"state"`
}

// Margins in millimetres.
type Margins struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// Page is one physical sheet. PageNumber is 1-based and always matches
// the page's position in the session.
type Page struct {
	PageNumber int          `json:"pageNumber"`
	PageSize   string       `json:"pageSize,omitempty"`
	Margins    Margins      `json:"margins"`
	Spacing    float64      `json:"spacing"`
	CardSize   string       `json:"cardSize,omitempty"`
	Cards      []*Card      `json:"cards"`
	Preview    *PagePreview `json:"-"`
}

// PagePreview is a regenerable thumbnail of a page.
type PagePreview struct {
	Image       string // data URI
	Scale       float64
	LastUpdated time.Time
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Card is a placeholder slot. ID is positional: card-<pageNumber>-<index>.
type Card struct {
	ID        string     `json:"id"`
	Position  Position   `json:"position"`
	Size      Size       `json:"size"`
	Image     *CardImage `json:"image,omitempty"`
	Draggable bool       `json:"draggable"`
}

// CardImage is an image assigned to a card.
type CardImage struct {
	Src            string              `json:"src"`
	OriginalWidth  float64             `json:"originalWidth"`
	OriginalHeight float64             `json:"originalHeight"`
	Settings       ImageSettings       `json:"imageSettings"`
	EditHistory    []ImageHistoryEntry `json:"imageHistory,omitempty"`
}

// ImageHistoryEntry records the settings an image had before an edit.
type ImageHistoryEntry struct {
	Src       string        `json:"src"`
	Settings  ImageSettings `json:"imageSettings"`
	Timestamp time.Time     `json:"timestamp"`
}

// ImageSettings holds the four independent framing values. Scale, fit and
// the rendered size are derived on every render and never stored.
type ImageSettings struct {
	Rotation   float64 `json:"rotation"`
	Zoom       float64 `json:"zoom"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
}

func DefaultImageSettings() ImageSettings { return ImageSettings{Zoom: 100} }

// Framing converts to the geometry representation used by renderers.
func (s ImageSettings) Framing() geometry.Framing {
	return geometry.Framing{Rotation: s.Rotation, Zoom: s.Zoom, TranslateX: s.TranslateX, TranslateY: s.TranslateY}
}

// Scale is zoom/100.
func (s ImageSettings) Scale() float64 { return s.Framing().ScaleFactor() }

// Transform is the CSS transform chain for these settings.
func (s ImageSettings) Transform() string { return geometry.TransformChain(s.Framing()) }

// CardID formats the positional id of the index-th card on a page.
func CardID(pageNumber, index int) string { return fmt.Sprintf("card-%d-%d", pageNumber, index) }

// Size returns the page's nominal size; ok is false when unset or malformed.
func (p *Page) Size() (geometry.Size, bool) {
	if p.PageSize == "" {
		return geometry.Size{}, false
	}
	sz, err := geometry.ParseSize(p.PageSize)
	if err != nil {
		return geometry.Size{}, false
	}
	return sz, true
}

// EffectiveSize is the nominal size or A4 when unset.
func (p *Page) EffectiveSize() geometry.Size {
	if sz, ok := p.Size(); ok {
		return sz
	}
	return geometry.A4
}

// AvailableWidth is page width minus left and right margins. ok is false
// when the page size is unset.
func (p *Page) AvailableWidth() (float64, bool) {
	sz, ok := p.Size()
	if !ok {
		return 0, false
	}
	return sz.W - p.Margins.Left - p.Margins.Right, true
}

// AvailableHeight is page height minus top and bottom margins.
func (p *Page) AvailableHeight() (float64, bool) {
	sz, ok := p.Size()
	if !ok {
		return 0, false
	}
	return sz.H - p.Margins.Top - p.Margins.Bottom, true
}

// AvailableArea is the rectangle cards must lie in, computed on the effective size.
func (p *Page) AvailableArea() geometry.Rect {
	sz := p.EffectiveSize()
	return geometry.Rect{
		X: p.Margins.Left,
		Y: p.Margins.Top,
		W: sz.W - p.Margins.Left - p.Margins.Right,
		H: sz.H - p.Margins.Top - p.Margins.Bottom,
	}
}

// Grid describes the page's placeholder grid area.
func (p *Page) Grid() geometry.GridSpec {
	a := p.AvailableArea()
	return geometry.GridSpec{
		Available: geometry.Size{W: a.W, H: a.H},
		Origin:    geometry.Pt{X: a.X, Y: a.Y},
		Spacing:   p.Spacing,
	}
}

// Card returns the card with id, or nil.
func (p *Page) Card(id string) *Card {
	for _, c := range p.Cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (p *Page) invalidate() { p.Preview = nil }

// renumber rewrites card ids to match page number and position.
func (p *Page) renumber() {
	for i, c := range p.Cards {
		c.ID = CardID(p.PageNumber, i)
	}
}

// Rect is the card's placeholder rectangle in millimetres.
func (c *Card) Rect() geometry.Rect {
	return geometry.Rect{X: c.Position.X, Y: c.Position.Y, W: c.Size.Width, H: c.Size.Height}
}

// normalizeZoom replaces an unset zoom, here and in the edit history, so
// that stored images stay editable.
func (ci *CardImage) normalizeZoom() {
	if ci.Settings.Zoom <= 0 {
		ci.Settings.Zoom = DefaultImageSettings().Zoom
	}
	for i := range ci.EditHistory {
		if ci.EditHistory[i].Settings.Zoom <= 0 {
			ci.EditHistory[i].Settings.Zoom = DefaultImageSettings().Zoom
		}
	}
}

// addEditHistory snapshots the current settings before an edit.
func (ci *CardImage) addEditHistory(at time.Time) {
	ci.EditHistory = append(ci.EditHistory, ImageHistoryEntry{Src: ci.Src, Settings: ci.Settings, Timestamp: at})
	if n := len(ci.EditHistory); n > MaxHistory {
		ci.EditHistory = append([]ImageHistoryEntry(nil), ci.EditHistory[n-MaxHistory:]...)
	}
}
