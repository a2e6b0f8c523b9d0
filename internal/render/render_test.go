/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"reflect"
	"strings"
	"testing"

	"photolayout/internal/domain"
	"photolayout/internal/geometry"
)

func sampleSession(t *testing.T) *domain.Session {
	t.Helper()
	s := domain.NewSession()
	if err := s.SetPageSize(1, "210x297"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.FillGrid(1, 90, 60); err != nil {
		t.Fatal(err)
	}
	if err := s.SetImage(1, "card-1-0", "data:image/png;base64,AAAA", 400, 400); err != nil {
		t.Fatal(err)
	}
	if err := s.SetImageSettings(1, "card-1-0", domain.ImageSettings{Rotation: 90, Zoom: 150, TranslateX: 10, TranslateY: -5}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetImage(1, "card-1-1", `a"b<c>.jpg`, 300, 900); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddPage("100x150"); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRenderGeometry(t *testing.T) {
	s := sampleSession(t)
	pages := Render(s)
	if len(pages) != 2 {
		t.Fatalf("pages: %d", len(pages))
	}
	p := pages[0]
	if !p.Current || pages[1].Current || p.Size != geometry.A4 || len(p.Cards) != 8 {
		t.Fatalf("page 1: %+v", p)
	}
	if pages[1].Size != (geometry.Size{W: 100, H: 150}) {
		t.Fatalf("page 2 size: %+v", pages[1].Size)
	}
	img := p.Cards[0].Image
	if img == nil {
		t.Fatalf("card 0 should have an image")
	}
	// 90x60 container is wider than a square image: fit by height
	if img.Fit != geometry.FitHeight {
		t.Fatalf("fit: got %v", img.Fit)
	}
	if img.Transform != "translate(-50%, -50%) translate(10px, -5px) rotate(90deg) scale(1.5)" {
		t.Fatalf("transform: %q", img.Transform)
	}
	// tall image in a wide container also fits by height; a 1:3 image never fits by width here
	if p.Cards[1].Image.Fit != geometry.FitHeight {
		t.Fatalf("card 1 fit: %v", p.Cards[1].Image.Fit)
	}
	if p.Cards[2].Image != nil {
		t.Fatalf("card 2 should be empty")
	}
}

func TestRenderDoesNotMutate(t *testing.T) {
	s := sampleSession(t)
	before := s.State()
	hist := len(s.History)
	_ = Render(s)
	_ = Document(Render(s), TargetPrint)
	if !reflect.DeepEqual(before, s.State()) || hist != len(s.History) {
		t.Fatalf("render mutated the session")
	}
}

func TestRenderDeterministic(t *testing.T) {
	s := sampleSession(t)
	a := Markup(Render(s))
	b := Markup(Render(s.Clone()))
	if a != b {
		t.Fatalf("markup differs between identical sessions")
	}
}

func TestTargetsShareMarkup(t *testing.T) {
	s := sampleSession(t)
	pages := Render(s)
	body := Markup(pages)
	docs := map[Target]string{}
	for _, tg := range []Target{TargetEditor, TargetPreview, TargetPrint} {
		doc := Document(pages, tg)
		if !strings.Contains(doc, body) {
			t.Fatalf("%s document does not embed the shared markup", tg)
		}
		if !strings.Contains(doc, "@page { size: A4; margin: 0; }") || !strings.Contains(doc, "transform-origin: center") {
			t.Fatalf("%s document missing print css", tg)
		}
		docs[tg] = doc
	}
	if docs[TargetEditor] == docs[TargetPrint] {
		t.Fatalf("targets should differ in their stylesheet")
	}
}

func TestMarkupContent(t *testing.T) {
	s := sampleSession(t)
	page := PageMarkup(Render(s)[0])
	for _, want := range []string{
		`<div class="a4-page" data-page="1" style="width: 210mm; height: 297mm;">`,
		`<div class="photo-placeholder" id="card-1-0" data-card="card-1-0" style="left: 5mm; top: 5mm; width: 90mm; height: 60mm;">`,
		`style="width: auto; height: 100%; transform: translate(-50%, -50%) translate(10px, -5px) rotate(90deg) scale(1.5);"`,
		`<div class="photo-placeholder empty" id="card-1-2"`,
		`src="a&#34;b&lt;c&gt;.jpg"`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("page markup missing %q\n%s", want, page)
		}
	}
	if strings.Contains(page, "onclick") {
		t.Fatalf("markup must not embed handlers")
	}
}

func TestRenderStateOfHistory(t *testing.T) {
	s := sampleSession(t)
	first := s.History[0].State
	pages := RenderState(first)
	if len(pages) != 1 || len(pages[0].Cards) != 0 {
		t.Fatalf("ghost render of first snapshot: %+v", pages)
	}
}

func TestMatrixAgreesWithTransform(t *testing.T) {
	s := sampleSession(t)
	img := Render(s)[0].Cards[0].Image
	c := img.Matrix.Apply(geometry.Pt{X: img.Rendered.W / 2, Y: img.Rendered.H / 2})
	wantX := img.Container.W/2 + 10
	wantY := img.Container.H/2 - 5
	if d := c.X - wantX; d > 1e-6 || d < -1e-6 {
		t.Fatalf("center x: got %v want %v", c.X, wantX)
	}
	if d := c.Y - wantY; d > 1e-6 || d < -1e-6 {
		t.Fatalf("center y: got %v want %v", c.Y, wantY)
	}
}

func TestParseTarget(t *testing.T) {
	for _, tg := range []Target{TargetEditor, TargetPreview, TargetPrint} {
		got, err := ParseTarget(tg.String())
		if err != nil || got != tg {
			t.Fatalf("ParseTarget(%q): %v %v", tg, got, err)
		}
	}
	if _, err := ParseTarget("pdf"); err == nil {
		t.Fatalf("expected error")
	}
}
