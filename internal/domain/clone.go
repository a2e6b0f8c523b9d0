/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// State returns a deep copy of the document part of the session.
func (s *Session) State() SessionState {
	return SessionState{Pages: clonePages(s.Pages), CurrentPage: s.CurrentPage}
}

// Restore replaces the document with a copy of st. History is kept.
func (s *Session) Restore(st SessionState) {
	s.Pages = clonePages(st.Pages)
	s.CurrentPage = st.CurrentPage
	s.clampCurrent()
}

// Clone deep-copies the whole session including its history log.
func (s *Session) Clone() *Session {
	out := &Session{
		Pages:       clonePages(s.Pages),
		CurrentPage: s.CurrentPage,
		defaults:    s.defaults,
	}
	if s.History != nil {
		out.History = make([]HistoryEntry, len(s.History))
		for i, h := range s.History {
			out.History[i] = HistoryEntry{Action: h.Action, At: h.At, State: h.State.Clone()}
		}
	}
	return out
}

// Clone deep-copies the state.
func (st SessionState) Clone() SessionState {
	return SessionState{Pages: clonePages(st.Pages), CurrentPage: st.CurrentPage}
}

func clonePages(in []*Page) []*Page {
	if in == nil {
		return nil
	}
	out := make([]*Page, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// Clone deep-copies a page.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Cards != nil {
		cp.Cards = make([]*Card, len(p.Cards))
		for i, c := range p.Cards {
			cp.Cards[i] = c.Clone()
		}
	}
	if p.Preview != nil {
		pv := *p.Preview
		cp.Preview = &pv
	}
	return &cp
}

// Clone deep-copies a card.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Image = c.Image.Clone()
	return &cp
}

// Clone deep-copies an image including its edit history.
func (ci *CardImage) Clone() *CardImage {
	if ci == nil {
		return nil
	}
	cp := *ci
	if ci.EditHistory != nil {
		cp.EditHistory = append([]ImageHistoryEntry(nil), ci.EditHistory...)
	}
	return &cp
}

// CloneCards deep-copies a card list.
func CloneCards(in []*Card) []*Card {
	if in == nil {
		return nil
	}
	out := make([]*Card, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
