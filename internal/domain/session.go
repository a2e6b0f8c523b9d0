/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"math"
	"time"

	"photolayout/internal/geometry"
)

// now is swapped in tests to get stable timestamps.
var now = time.Now

// NewSession returns a session with one page of unset size and default margins.
func NewSession() *Session {
	return NewSessionWithDefaults(PageDefaults{Margin: DefaultMargin, Spacing: DefaultSpacing})
}

// NewSessionWithDefaults is NewSession with configured page defaults.
func NewSessionWithDefaults(d PageDefaults) *Session {
	if d.Margin < 0 {
		d.Margin = DefaultMargin
	}
	if d.Spacing < 0 {
		d.Spacing = DefaultSpacing
	}
	s := &Session{defaults: d}
	s.Pages = []*Page{s.newPage(1, "")}
	return s
}

func (s *Session) pageDefaults() PageDefaults {
	if s.defaults == (PageDefaults{}) {
		return PageDefaults{Margin: DefaultMargin, Spacing: DefaultSpacing}
	}
	return s.defaults
}

func (s *Session) newPage(number int, size string) *Page {
	d := s.pageDefaults()
	return &Page{
		PageNumber: number,
		PageSize:   size,
		Margins:    Margins{Top: d.Margin, Bottom: d.Margin, Left: d.Margin, Right: d.Margin},
		Spacing:    d.Spacing,
		Cards:      []*Card{},
	}
}

// ValidatePageSize enforces 0 < w <= 210 and 0 < h <= 297.
func ValidatePageSize(w, h float64) error {
	if !geometry.WithinA4(w, h) {
		return invalid("page size %sx%s outside A4 bounds (0 < w <= %s, 0 < h <= %s)",
			geometry.FormatNumber(w), geometry.FormatNumber(h),
			geometry.FormatNumber(geometry.A4WidthMM), geometry.FormatNumber(geometry.A4HeightMM))
	}
	return nil
}

func normalizeSize(size string) (string, error) {
	if size == "" {
		return "", nil
	}
	sz, err := geometry.ParseSize(size)
	if err != nil {
		return "", invalid("%v", err)
	}
	if err := ValidatePageSize(sz.W, sz.H); err != nil {
		return "", err
	}
	return geometry.FormatSize(sz), nil
}

// Page returns the page with the given 1-based number.
func (s *Session) Page(number int) (*Page, error) {
	if number < 1 || number > len(s.Pages) {
		return nil, invalid("page %d does not exist", number)
	}
	return s.Pages[number-1], nil
}

// Current returns the active page, or nil for an empty session.
func (s *Session) Current() *Page {
	if s.CurrentPage < 0 || s.CurrentPage >= len(s.Pages) {
		return nil
	}
	return s.Pages[s.CurrentPage]
}

// FindCard returns the card with id on the given page.
func (s *Session) FindCard(pageNumber int, id string) (*Page, *Card, error) {
	p, err := s.Page(pageNumber)
	if err != nil {
		return nil, nil, err
	}
	c := p.Card(id)
	if c == nil {
		return nil, nil, invalid("card %q not found on page %d", id, pageNumber)
	}
	return p, c, nil
}

// SetCurrentPage selects the active page by 0-based index.
func (s *Session) SetCurrentPage(index int) error {
	if index < 0 || index >= len(s.Pages) {
		return invalid("page index %d out of range [0,%d)", index, len(s.Pages))
	}
	s.CurrentPage = index
	return nil
}

// AddPage appends a page. An empty size leaves the page size unset.
func (s *Session) AddPage(size string) (*Page, error) {
	norm, err := normalizeSize(size)
	if err != nil {
		return nil, err
	}
	p := s.newPage(len(s.Pages)+1, norm)
	s.Pages = append(s.Pages, p)
	s.AddToHistory("Add Page")
	return p, nil
}

// InsertPage puts p at the 0-based index and renumbers every page.
func (s *Session) InsertPage(index int, p *Page) error {
	if p == nil {
		return invalid("nil page")
	}
	if index < 0 || index > len(s.Pages) {
		return invalid("insert index %d out of range [0,%d]", index, len(s.Pages))
	}
	s.Pages = append(s.Pages, nil)
	copy(s.Pages[index+1:], s.Pages[index:])
	s.Pages[index] = p
	s.renumberPages()
	if index <= s.CurrentPage && len(s.Pages) > 1 {
		s.CurrentPage++
	}
	s.clampCurrent()
	s.AddToHistory("Insert Page")
	return nil
}

// DeletePage removes a page, renumbers the rest and keeps CurrentPage valid.
// The last remaining page cannot be deleted.
func (s *Session) DeletePage(number int) error {
	if _, err := s.Page(number); err != nil {
		return err
	}
	if len(s.Pages) <= 1 {
		return invalid("cannot delete the last page")
	}
	idx := number - 1
	s.Pages = append(s.Pages[:idx], s.Pages[idx+1:]...)
	s.renumberPages()
	if s.CurrentPage > idx {
		s.CurrentPage--
	}
	s.clampCurrent()
	s.AddToHistory("Delete Page")
	return nil
}

func (s *Session) renumberPages() {
	for i, p := range s.Pages {
		if p.PageNumber != i+1 {
			p.PageNumber = i + 1
			p.invalidate()
		}
		p.renumber()
	}
}

func (s *Session) clampCurrent() {
	if s.CurrentPage >= len(s.Pages) {
		s.CurrentPage = len(s.Pages) - 1
	}
	if s.CurrentPage < 0 {
		s.CurrentPage = 0
	}
}

// SetPageSize sets or, with "", clears a page's nominal size.
func (s *Session) SetPageSize(number int, size string) error {
	p, err := s.Page(number)
	if err != nil {
		return err
	}
	norm, err := normalizeSize(size)
	if err != nil {
		return err
	}
	p.PageSize = norm
	p.invalidate()
	s.AddToHistory("Set Page Size")
	return nil
}

func validCardRect(p *Page, r geometry.Rect) error {
	if !finite(r.X, r.Y, r.W, r.H) || r.W <= 0 || r.H <= 0 {
		return invalid("card size must be positive, got %sx%s", geometry.FormatNumber(r.W), geometry.FormatNumber(r.H))
	}
	if !p.AvailableArea().ContainsRect(r, 1e-9) {
		return invalid("card at (%s,%s) size %sx%s exceeds the available area of page %d",
			geometry.FormatNumber(r.X), geometry.FormatNumber(r.Y),
			geometry.FormatNumber(r.W), geometry.FormatNumber(r.H), p.PageNumber)
	}
	return nil
}

// AddCard places a single placeholder. It must lie inside the page's available area.
func (s *Session) AddCard(pageNumber int, x, y, w, h float64) (*Card, error) {
	p, err := s.Page(pageNumber)
	if err != nil {
		return nil, err
	}
	if err := validCardRect(p, geometry.R(x, y, w, h)); err != nil {
		return nil, err
	}
	c := &Card{
		ID:        CardID(p.PageNumber, len(p.Cards)),
		Position:  Position{X: x, Y: y},
		Size:      Size{Width: w, Height: h},
		Draggable: true,
	}
	p.Cards = append(p.Cards, c)
	p.invalidate()
	s.AddToHistory("Add Card")
	return c, nil
}

// RemoveCard deletes a card and renumbers the remaining card ids.
func (s *Session) RemoveCard(pageNumber int, id string) error {
	p, _, err := s.FindCard(pageNumber, id)
	if err != nil {
		return err
	}
	out := p.Cards[:0]
	for _, c := range p.Cards {
		if c.ID != id {
			out = append(out, c)
		}
	}
	p.Cards = out
	p.renumber()
	p.invalidate()
	s.AddToHistory("Remove Card")
	return nil
}

// FillGrid replaces the page's cards with a grid of w x h placeholders.
// A card size that does not fit gives an empty page, not an error.
func (s *Session) FillGrid(pageNumber int, w, h float64) ([]*Card, error) {
	p, err := s.Page(pageNumber)
	if err != nil {
		return nil, err
	}
	if !finite(w, h) || w <= 0 || h <= 0 {
		return nil, invalid("card size must be positive, got %sx%s", geometry.FormatNumber(w), geometry.FormatNumber(h))
	}
	rects := geometry.GridPlacement(p.Grid(), geometry.Size{W: w, H: h})
	cards := make([]*Card, 0, len(rects))
	for i, r := range rects {
		cards = append(cards, &Card{
			ID:        CardID(p.PageNumber, i),
			Position:  Position{X: r.X, Y: r.Y},
			Size:      Size{Width: r.W, Height: r.H},
			Draggable: true,
		})
	}
	p.Cards = cards
	p.CardSize = geometry.FormatSize(geometry.Size{W: w, H: h})
	p.invalidate()
	s.AddToHistory("Fill Grid")
	return cards, nil
}

// ReplaceCards swaps in a previously captured card list and card size.
func (s *Session) ReplaceCards(pageNumber int, cards []*Card, cardSize string) error {
	p, err := s.Page(pageNumber)
	if err != nil {
		return err
	}
	if cards == nil {
		cards = []*Card{}
	}
	p.Cards = cards
	p.CardSize = cardSize
	p.renumber()
	p.invalidate()
	s.AddToHistory("Replace Cards")
	return nil
}

// SetImage assigns an image to a card with default framing.
func (s *Session) SetImage(pageNumber int, cardID, src string, w, h float64) error {
	p, c, err := s.FindCard(pageNumber, cardID)
	if err != nil {
		return err
	}
	ve := &ValidationError{}
	if src == "" {
		ve.Add("image source is empty")
	}
	if !finite(w, h) || w <= 0 || h <= 0 {
		ve.Add("image dimensions must be positive, got %sx%s", geometry.FormatNumber(w), geometry.FormatNumber(h))
	}
	if err := ve.OrNil(); err != nil {
		return err
	}
	c.Image = &CardImage{Src: src, OriginalWidth: w, OriginalHeight: h, Settings: DefaultImageSettings()}
	p.invalidate()
	s.AddToHistory("Set Image")
	return nil
}

// ClearImage removes a card's image. Clearing an empty card is a no-op.
func (s *Session) ClearImage(pageNumber int, cardID string) error {
	p, c, err := s.FindCard(pageNumber, cardID)
	if err != nil {
		return err
	}
	if c.Image == nil {
		return nil
	}
	c.Image = nil
	p.invalidate()
	s.AddToHistory("Clear Image")
	return nil
}

// ValidateImageSettings checks that every value is finite and zoom is positive.
func ValidateImageSettings(st ImageSettings) error {
	ve := &ValidationError{}
	if !finite(st.Rotation, st.Zoom, st.TranslateX, st.TranslateY) {
		ve.Add("image settings must be finite numbers")
	} else if st.Zoom <= 0 {
		ve.Add("zoom must be positive, got %s", geometry.FormatNumber(st.Zoom))
	}
	return ve.OrNil()
}

// SetImageSettings replaces the framing of a card's image. The previous
// settings are appended to the image's edit history.
func (s *Session) SetImageSettings(pageNumber int, cardID string, st ImageSettings) error {
	p, c, err := s.FindCard(pageNumber, cardID)
	if err != nil {
		return err
	}
	if c.Image == nil {
		return invalid("card %q has no image", cardID)
	}
	if err := ValidateImageSettings(st); err != nil {
		return err
	}
	st.Rotation = geometry.NormalizeDegrees(st.Rotation)
	c.Image.addEditHistory(now())
	c.Image.Settings = st
	p.invalidate()
	s.AddToHistory("Update Image Settings")
	return nil
}

// RestoreImage puts a captured image (or nil) back on a card verbatim.
func (s *Session) RestoreImage(pageNumber int, cardID string, img *CardImage) error {
	p, c, err := s.FindCard(pageNumber, cardID)
	if err != nil {
		return err
	}
	c.Image = img
	p.invalidate()
	s.AddToHistory("Restore Image")
	return nil
}

// AddToHistory appends a deep-copied snapshot of the document, evicting the
// oldest entry beyond MaxHistory.
func (s *Session) AddToHistory(action string) {
	s.History = append(s.History, HistoryEntry{Action: action, At: now(), State: s.State()})
	if n := len(s.History); n > MaxHistory {
		s.History = append([]HistoryEntry(nil), s.History[n-MaxHistory:]...)
	}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Normalize repairs a session decoded from JSON: page numbers and card ids
// are made positional, nil card lists become empty, a missing or
// non-positive image zoom becomes the default, CurrentPage is clamped and an
// empty session gets one page.
func (s *Session) Normalize() {
	if len(s.Pages) == 0 {
		s.Pages = []*Page{s.newPage(1, "")}
	}
	for _, p := range s.Pages {
		if p.Cards == nil {
			p.Cards = []*Card{}
		}
		for _, c := range p.Cards {
			if c.Image != nil {
				c.Image.normalizeZoom()
			}
		}
	}
	s.renumberPages()
	s.clampCurrent()
}

// Reset discards every page and the history log, leaving one fresh page
// and a single "Reset Project" entry. Page defaults are kept.
func (s *Session) Reset() {
	s.Pages = []*Page{s.newPage(1, "")}
	s.CurrentPage = 0
	s.History = nil
	s.AddToHistory("Reset Project")
}

// SetDefaults changes the margins and spacing used for pages created later.
func (s *Session) SetDefaults(d PageDefaults) { s.defaults = d }

// ApplyLiveImageSettings updates framing without recording any history.
// It backs live feedback during a drag; the drag is committed as one edit.
func (s *Session) ApplyLiveImageSettings(pageNumber int, cardID string, st ImageSettings) error {
	p, c, err := s.FindCard(pageNumber, cardID)
	if err != nil {
		return err
	}
	if c.Image == nil {
		return invalid("card %q has no image", cardID)
	}
	if err := ValidateImageSettings(st); err != nil {
		return err
	}
	st.Rotation = geometry.NormalizeDegrees(st.Rotation)
	c.Image.Settings = st
	p.invalidate()
	return nil
}
