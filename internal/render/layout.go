/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render turns a Session into page geometry and HTML markup. The
// same markup is produced for the live editor, the print preview and the
// print/export path; targets differ only in the stylesheet around it.
package render

import (
	"photolayout/internal/domain"
	"photolayout/internal/geometry"
)

// PageLayout is the resolved geometry of one page.
type PageLayout struct {
	Number  int           // 1-based page number
	Current bool          // the session's active page
	Size    geometry.Size // sheet size in mm
	Cards   []CardLayout
}

// CardLayout is a placeholder and, when filled, its framed image.
type CardLayout struct {
	ID    string
	Rect  geometry.Rect // mm, page coordinates
	Image *ImageLayout
}

// ImageLayout carries everything a renderer needs to draw an image into its card.
type ImageLayout struct {
	Src       string
	Natural   geometry.Size     // source pixels
	Container geometry.Size     // card size in device pixels
	Fit       geometry.FitMode  // intrinsic fit before transforming
	Rendered  geometry.Size     // untransformed image size in device pixels
	Framing   geometry.Framing  // the four independent settings
	Transform string            // CSS transform chain
	Matrix    geometry.Affine2D // image px -> container px
}

// Render resolves every page of the session. It does not modify s.
func Render(s *domain.Session) []PageLayout {
	return RenderPages(s.Pages, s.CurrentPage)
}

// RenderState resolves a history snapshot, e.g. for a ghost preview.
func RenderState(st domain.SessionState) []PageLayout {
	return RenderPages(st.Pages, st.CurrentPage)
}

// RenderPages resolves pages with current as the active index.
func RenderPages(pages []*domain.Page, current int) []PageLayout {
	out := make([]PageLayout, 0, len(pages))
	for i, p := range pages {
		out = append(out, RenderPage(p, i == current))
	}
	return out
}

// RenderPage resolves a single page.
func RenderPage(p *domain.Page, current bool) PageLayout {
	pl := PageLayout{
		Number:  p.PageNumber,
		Current: current,
		Size:    p.EffectiveSize(),
		Cards:   make([]CardLayout, 0, len(p.Cards)),
	}
	for _, c := range p.Cards {
		pl.Cards = append(pl.Cards, RenderCard(c))
	}
	return pl
}

// RenderCard resolves a card's placeholder and image geometry.
func RenderCard(c *domain.Card) CardLayout {
	cl := CardLayout{ID: c.ID, Rect: c.Rect()}
	if c.Image == nil {
		return cl
	}
	container := geometry.Size{W: geometry.MMToPx(c.Size.Width), H: geometry.MMToPx(c.Size.Height)}
	natural := geometry.Size{W: c.Image.OriginalWidth, H: c.Image.OriginalHeight}
	fit, rendered := geometry.Fit(container, natural)
	f := c.Image.Settings.Framing()
	f.Rotation = geometry.NormalizeDegrees(f.Rotation)
	cl.Image = &ImageLayout{
		Src:       c.Image.Src,
		Natural:   natural,
		Container: container,
		Fit:       fit,
		Rendered:  rendered,
		Framing:   f,
		Transform: geometry.TransformChain(f),
		Matrix:    geometry.ImageMatrix(container, rendered, f),
	}
	return cl
}

// Page returns the layout with the given page number.
func Page(pages []PageLayout, number int) (PageLayout, bool) {
	for _, p := range pages {
		if p.Number == number {
			return p, true
		}
	}
	return PageLayout{}, false
}
