/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"fmt"

	"photolayout/internal/domain"
)

// Command is a reversible edit. The set of commands is closed: every
// kind lives in this file and carries the state it needs to revert itself.
type Command interface {
	Name() string
	apply(s *domain.Session) error
	revert(s *domain.Session) error
}

var (
	_ Command = (*AddPage)(nil)
	_ Command = (*DeletePage)(nil)
	_ Command = (*SetPageSize)(nil)
	_ Command = (*FillGrid)(nil)
	_ Command = (*AddCard)(nil)
	_ Command = (*SetImage)(nil)
	_ Command = (*ClearImage)(nil)
	_ Command = (*SetImageSettings)(nil)
)

// AddPage appends a page of Size ("" leaves it unset).
type AddPage struct {
	Size string

	number      int
	prevCurrent int
}

func (c *AddPage) Name() string { return "Add Page" }

func (c *AddPage) apply(s *domain.Session) error {
	prev := s.CurrentPage
	p, err := s.AddPage(c.Size)
	if err != nil {
		return err
	}
	c.number, c.prevCurrent = p.PageNumber, prev
	return nil
}

func (c *AddPage) revert(s *domain.Session) error {
	if err := s.DeletePage(c.number); err != nil {
		return err
	}
	return s.SetCurrentPage(c.prevCurrent)
}

// DeletePage removes page Number; the removed page is kept for revert.
type DeletePage struct {
	Number int

	removed     *domain.Page
	prevCurrent int
}

func (c *DeletePage) Name() string { return fmt.Sprintf("Delete Page %d", c.Number) }

func (c *DeletePage) apply(s *domain.Session) error {
	p, err := s.Page(c.Number)
	if err != nil {
		return err
	}
	removed, prev := p.Clone(), s.CurrentPage
	if err := s.DeletePage(c.Number); err != nil {
		return err
	}
	c.removed, c.prevCurrent = removed, prev
	return nil
}

func (c *DeletePage) revert(s *domain.Session) error {
	if err := s.InsertPage(c.Number-1, c.removed.Clone()); err != nil {
		return err
	}
	return s.SetCurrentPage(c.prevCurrent)
}

// SetPageSize changes a page's nominal size.
type SetPageSize struct {
	Page int
	Size string

	prev string
}

func (c *SetPageSize) Name() string { return "Set Page Size" }

func (c *SetPageSize) apply(s *domain.Session) error {
	p, err := s.Page(c.Page)
	if err != nil {
		return err
	}
	prev := p.PageSize
	if err := s.SetPageSize(c.Page, c.Size); err != nil {
		return err
	}
	c.prev = prev
	return nil
}

func (c *SetPageSize) revert(s *domain.Session) error { return s.SetPageSize(c.Page, c.prev) }

// FillGrid replaces a page's cards with a grid of Width x Height placeholders.
type FillGrid struct {
	Page          int
	Width, Height float64

	prevCards    []*domain.Card
	prevCardSize string
}

func (c *FillGrid) Name() string { return "Fill Grid" }

func (c *FillGrid) apply(s *domain.Session) error {
	p, err := s.Page(c.Page)
	if err != nil {
		return err
	}
	cards, size := domain.CloneCards(p.Cards), p.CardSize
	if _, err := s.FillGrid(c.Page, c.Width, c.Height); err != nil {
		return err
	}
	c.prevCards, c.prevCardSize = cards, size
	return nil
}

func (c *FillGrid) revert(s *domain.Session) error {
	return s.ReplaceCards(c.Page, domain.CloneCards(c.prevCards), c.prevCardSize)
}

// AddCard places one placeholder at (X, Y) sized Width x Height.
type AddCard struct {
	Page                int
	X, Y, Width, Height float64

	id string
}

func (c *AddCard) Name() string { return "Add Card" }

func (c *AddCard) apply(s *domain.Session) error {
	card, err := s.AddCard(c.Page, c.X, c.Y, c.Width, c.Height)
	if err != nil {
		return err
	}
	c.id = card.ID
	return nil
}

func (c *AddCard) revert(s *domain.Session) error { return s.RemoveCard(c.Page, c.id) }

// imageEdit captures a card's image before and after the first apply.
// Later applies restore the captured result so redo reproduces it exactly,
// timestamps included.
type imageEdit struct {
	before, after *domain.CardImage
	done          bool
}

func (e *imageEdit) run(s *domain.Session, page int, cardID string, op func() error) error {
	if e.done {
		return s.RestoreImage(page, cardID, e.after.Clone())
	}
	_, card, err := s.FindCard(page, cardID)
	if err != nil {
		return err
	}
	before := card.Image.Clone()
	if err := op(); err != nil {
		return err
	}
	_, card, err = s.FindCard(page, cardID)
	if err != nil {
		return err
	}
	e.before, e.after, e.done = before, card.Image.Clone(), true
	return nil
}

func (e *imageEdit) undo(s *domain.Session, page int, cardID string) error {
	return s.RestoreImage(page, cardID, e.before.Clone())
}

// SetImage assigns an image source with its natural pixel size.
type SetImage struct {
	Page          int
	CardID        string
	Src           string
	Width, Height float64

	edit imageEdit
}

func (c *SetImage) Name() string { return "Set Image" }

func (c *SetImage) apply(s *domain.Session) error {
	return c.edit.run(s, c.Page, c.CardID, func() error {
		return s.SetImage(c.Page, c.CardID, c.Src, c.Width, c.Height)
	})
}

func (c *SetImage) revert(s *domain.Session) error { return c.edit.undo(s, c.Page, c.CardID) }

// ClearImage removes a card's image.
type ClearImage struct {
	Page   int
	CardID string

	edit imageEdit
}

func (c *ClearImage) Name() string { return "Clear Image" }

func (c *ClearImage) apply(s *domain.Session) error {
	return c.edit.run(s, c.Page, c.CardID, func() error { return s.ClearImage(c.Page, c.CardID) })
}

func (c *ClearImage) revert(s *domain.Session) error { return c.edit.undo(s, c.Page, c.CardID) }

// SetImageSettings replaces an image's framing. Label names the user
// gesture (rotate, zoom, pan, reset) for the history list.
type SetImageSettings struct {
	Page     int
	CardID   string
	Settings domain.ImageSettings
	Label    string

	edit imageEdit
}

func (c *SetImageSettings) Name() string {
	if c.Label != "" {
		return c.Label
	}
	return "Update Image Settings"
}

func (c *SetImageSettings) apply(s *domain.Session) error {
	return c.edit.run(s, c.Page, c.CardID, func() error {
		return s.SetImageSettings(c.Page, c.CardID, c.Settings)
	})
}

func (c *SetImageSettings) revert(s *domain.Session) error { return c.edit.undo(s, c.Page, c.CardID) }

// Rotate builds a command turning the card's image by delta degrees.
func Rotate(s *domain.Session, page int, cardID string, delta float64) (*SetImageSettings, error) {
	st, err := currentSettings(s, page, cardID)
	if err != nil {
		return nil, err
	}
	st.Rotation += delta
	return &SetImageSettings{Page: page, CardID: cardID, Settings: st, Label: "Rotate Image"}, nil
}

// Zoom builds a command changing the card's image zoom by delta percent.
func Zoom(s *domain.Session, page int, cardID string, delta float64) (*SetImageSettings, error) {
	st, err := currentSettings(s, page, cardID)
	if err != nil {
		return nil, err
	}
	st.Zoom += delta
	return &SetImageSettings{Page: page, CardID: cardID, Settings: st, Label: "Zoom Image"}, nil
}

// Pan builds a command moving the card's image by (dx, dy) device pixels.
func Pan(s *domain.Session, page int, cardID string, dx, dy float64) (*SetImageSettings, error) {
	st, err := currentSettings(s, page, cardID)
	if err != nil {
		return nil, err
	}
	st.TranslateX += dx
	st.TranslateY += dy
	return &SetImageSettings{Page: page, CardID: cardID, Settings: st, Label: "Pan Image"}, nil
}

// Reset builds a command restoring default framing.
func Reset(page int, cardID string) *SetImageSettings {
	return &SetImageSettings{Page: page, CardID: cardID, Settings: domain.DefaultImageSettings(), Label: "Reset Image"}
}

func currentSettings(s *domain.Session, page int, cardID string) (domain.ImageSettings, error) {
	_, card, err := s.FindCard(page, cardID)
	if err != nil {
		return domain.ImageSettings{}, err
	}
	if card.Image == nil {
		return domain.ImageSettings{}, &domain.ValidationError{Messages: []string{fmt.Sprintf("card %q has no image", cardID)}}
	}
	return card.Image.Settings, nil
}
