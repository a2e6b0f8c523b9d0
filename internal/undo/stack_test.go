/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"errors"
	"reflect"
	"testing"

	"photolayout/internal/domain"
)

// hook is a test-only command that runs arbitrary code.
type hook struct {
	name     string
	onApply  func(*domain.Session) error
	onRevert func(*domain.Session) error
}

func (h *hook) Name() string { return h.name }
func (h *hook) apply(s *domain.Session) error {
	if h.onApply == nil {
		return nil
	}
	return h.onApply(s)
}
func (h *hook) revert(s *domain.Session) error {
	if h.onRevert == nil {
		return nil
	}
	return h.onRevert(s)
}

func named(n string) *hook { return &hook{name: n} }

func TestEmptyStackIsNoop(t *testing.T) {
	st := NewStack(domain.NewSession(), Config{})
	if st.Index() != -1 || st.CanUndo() || st.CanRedo() {
		t.Fatalf("fresh stack: index %d", st.Index())
	}
	if ok, err := st.Undo(); ok || err != nil {
		t.Fatalf("undo on empty: %v %v", ok, err)
	}
	if ok, err := st.Redo(); ok || err != nil {
		t.Fatalf("redo on empty: %v %v", ok, err)
	}
}

func TestBranchDiscard(t *testing.T) {
	st := NewStack(domain.NewSession(), Config{})
	for _, c := range []Command{named("A"), named("B")} {
		if err := st.Execute(c); err != nil {
			t.Fatal(err)
		}
	}
	if ok, _ := st.Undo(); !ok {
		t.Fatalf("undo B failed")
	}
	if err := st.Execute(named("C")); err != nil {
		t.Fatal(err)
	}
	if got := st.Names(); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Fatalf("history: got %v want [A C]", got)
	}
	if st.CanRedo() {
		t.Fatalf("B must not be reachable via redo")
	}
	if ok, _ := st.Redo(); ok {
		t.Fatalf("redo at ceiling should be a no-op")
	}
}

func TestFailedApplyNotRecorded(t *testing.T) {
	st := NewStack(domain.NewSession(), Config{})
	boom := errors.New("boom")
	if err := st.Execute(&hook{name: "bad", onApply: func(*domain.Session) error { return boom }}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if st.Len() != 0 || st.Index() != -1 {
		t.Fatalf("failed command was recorded")
	}
	if err := st.Execute(&AddPage{Size: "300x300"}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if st.Len() != 0 {
		t.Fatalf("invalid AddPage was recorded")
	}
}

func TestReentrantExecuteRejected(t *testing.T) {
	st := NewStack(domain.NewSession(), Config{})
	var inner error
	outer := &hook{name: "outer", onApply: func(*domain.Session) error {
		inner = st.Execute(named("inner"))
		return nil
	}}
	if err := st.Execute(outer); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(inner, ErrBusy) {
		t.Fatalf("inner execute: got %v want ErrBusy", inner)
	}
	if got := st.Names(); !reflect.DeepEqual(got, []string{"outer"}) {
		t.Fatalf("history: %v", got)
	}
}

func TestMaxDepthDropsOldest(t *testing.T) {
	st := NewStack(domain.NewSession(), Config{MaxDepth: 2})
	for _, n := range []string{"A", "B", "C"} {
		if err := st.Execute(named(n)); err != nil {
			t.Fatal(err)
		}
	}
	if got := st.Names(); !reflect.DeepEqual(got, []string{"B", "C"}) || st.Index() != 1 {
		t.Fatalf("history: %v index %d", got, st.Index())
	}
}

func TestRoundTripRestoresDocument(t *testing.T) {
	s := domain.NewSession()
	st := NewStack(s, Config{})
	pre := s.State()

	cmds := []Command{
		&SetPageSize{Page: 1, Size: "200x280"},
		&FillGrid{Page: 1, Width: 90, Height: 60},
		&SetImage{Page: 1, CardID: "card-1-0", Src: "a.jpg", Width: 4000, Height: 3000},
		&SetImageSettings{Page: 1, CardID: "card-1-0", Settings: domain.ImageSettings{Rotation: 90, Zoom: 130, TranslateX: 5}},
		&AddPage{Size: "100x150"},
		&AddCard{Page: 2, X: 5, Y: 5, Width: 40, Height: 40},
		&SetImage{Page: 2, CardID: "card-2-0", Src: "b.png", Width: 100, Height: 200},
		&ClearImage{Page: 1, CardID: "card-1-0"},
		&AddPage{},
		&DeletePage{Number: 1},
	}
	for i, c := range cmds {
		if err := st.Execute(c); err != nil {
			t.Fatalf("execute %d (%s): %v", i, c.Name(), err)
		}
	}
	post := s.State()
	if len(post.Pages) != 2 || post.Pages[0].PageSize != "100x150" {
		t.Fatalf("unexpected post state: %d pages", len(post.Pages))
	}

	for range cmds {
		if ok, err := st.Undo(); !ok || err != nil {
			t.Fatalf("undo: %v %v", ok, err)
		}
	}
	if !reflect.DeepEqual(pre, s.State()) {
		t.Fatalf("undo x N did not restore the initial document")
	}
	for range cmds {
		if ok, err := st.Redo(); !ok || err != nil {
			t.Fatalf("redo: %v %v", ok, err)
		}
	}
	if !reflect.DeepEqual(post, s.State()) {
		t.Fatalf("redo x N did not restore the final document")
	}
}

func TestSettingsHelpers(t *testing.T) {
	s := domain.NewSession()
	st := NewStack(s, Config{})
	if err := st.Execute(&AddCard{Page: 1, X: 5, Y: 5, Width: 50, Height: 50}); err != nil {
		t.Fatal(err)
	}
	if _, err := Rotate(s, 1, "card-1-0", 90); !domain.IsValidation(err) {
		t.Fatalf("rotate without image: got %v", err)
	}
	if err := st.Execute(&SetImage{Page: 1, CardID: "card-1-0", Src: "x.png", Width: 10, Height: 10}); err != nil {
		t.Fatal(err)
	}
	rot, err := Rotate(s, 1, "card-1-0", -90)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Execute(rot); err != nil {
		t.Fatal(err)
	}
	zoom, _ := Zoom(s, 1, "card-1-0", 25)
	if err := st.Execute(zoom); err != nil {
		t.Fatal(err)
	}
	pan, _ := Pan(s, 1, "card-1-0", 3, -4)
	if err := st.Execute(pan); err != nil {
		t.Fatal(err)
	}
	got := s.Pages[0].Cards[0].Image.Settings
	want := domain.ImageSettings{Rotation: 270, Zoom: 125, TranslateX: 3, TranslateY: -4}
	if got != want {
		t.Fatalf("settings: got %+v want %+v", got, want)
	}
	if err := st.Execute(Reset(1, "card-1-0")); err != nil {
		t.Fatal(err)
	}
	if s.Pages[0].Cards[0].Image.Settings != domain.DefaultImageSettings() {
		t.Fatalf("reset failed")
	}
	names := st.Names()
	if names[len(names)-1] != "Reset Image" || names[2] != "Rotate Image" {
		t.Fatalf("names: %v", names)
	}
	if ok, _ := st.Undo(); !ok {
		t.Fatal("undo reset")
	}
	if s.Pages[0].Cards[0].Image.Settings != want {
		t.Fatalf("undo reset: got %+v", s.Pages[0].Cards[0].Image.Settings)
	}
}
