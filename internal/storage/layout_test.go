/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"strings"
	"testing"

	"photolayout/internal/domain"
	"photolayout/internal/undo"
)

func TestMarshalledLayoutConformsToSchema(t *testing.T) {
	data, err := MarshalLayout(sampleSession(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidateLayout(data); err != nil {
		t.Fatalf("layout does not conform: %v", err)
	}
	for _, key := range []string{`"pageNumber": 1`, `"imageSettings"`, `"translateX"`, `"currentPage": 0`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("missing %s in %s", key, data)
		}
	}
	if strings.Contains(string(data), "history") {
		t.Fatalf("session history must not be persisted")
	}
}

func TestValidateLayoutRejects(t *testing.T) {
	cases := map[string]string{
		"no pages":      `{"currentPage":0}`,
		"bad size":      `{"pages":[{"pageSize":"big","cards":[]}]}`,
		"zero width":    `{"pages":[{"cards":[{"position":{"x":0,"y":0},"size":{"width":0,"height":5}}]}]}`,
		"empty src":     `{"pages":[{"cards":[{"position":{"x":0,"y":0},"size":{"width":5,"height":5},"image":{"src":""}}]}]}`,
		"not an object": `[1,2]`,
	}
	for name, doc := range cases {
		err := ValidateLayout([]byte(doc))
		if !domain.IsValidation(err) {
			t.Errorf("%s: expected ValidationError, got %v", name, err)
		}
	}
}

func TestUnmarshalLayoutNormalizes(t *testing.T) {
	doc := `{
		"pages": [
			{"pageNumber": 7, "pageSize": "210x297", "margins": {"top":5,"bottom":5,"left":5,"right":5}, "spacing": 10,
			 "cards": [{"id": "x", "position": {"x": 5, "y": 5}, "size": {"width": 90, "height": 60},
			            "image": {"src": "a.jpg", "originalWidth": 800, "originalHeight": 600,
			                      "imageSettings": {"rotation": 90, "zoom": 120, "translateX": 4, "translateY": -2}}}]},
			{"pageNumber": 9}
		],
		"currentPage": 5
	}`
	s, err := UnmarshalLayout([]byte(doc))
	if err != nil {
		t.Fatalf("UnmarshalLayout: %v", err)
	}
	if s.Pages[0].PageNumber != 1 || s.Pages[1].PageNumber != 2 {
		t.Fatalf("pages not renumbered: %d %d", s.Pages[0].PageNumber, s.Pages[1].PageNumber)
	}
	if s.Pages[0].Cards[0].ID != "card-1-0" {
		t.Fatalf("card id: %q", s.Pages[0].Cards[0].ID)
	}
	if s.CurrentPage != 1 {
		t.Fatalf("current page not clamped: %d", s.CurrentPage)
	}
	if s.Pages[1].Cards == nil {
		t.Fatalf("nil cards should become empty")
	}
	if got := s.Pages[0].Cards[0].Image.Settings; got.Zoom != 120 || got.Rotation != 90 {
		t.Fatalf("settings: %+v", got)
	}
}

func TestLoadedImagesWithoutZoomStayEditable(t *testing.T) {
	doc := `{"pages": [{"cards": [
		{"position": {"x": 5, "y": 5}, "size": {"width": 90, "height": 60},
		 "image": {"src": "a.jpg", "originalWidth": 800, "originalHeight": 600, "imageSettings": {"rotation": 0},
		           "imageHistory": [{"src": "a.jpg", "imageSettings": {"rotation": 45}, "timestamp": "2025-01-02T03:04:05Z"}]}},
		{"position": {"x": 105, "y": 5}, "size": {"width": 90, "height": 60},
		 "image": {"src": "b.jpg", "originalWidth": 800, "originalHeight": 600}}
	]}]}`
	if err := ValidateLayout([]byte(doc)); err != nil {
		t.Fatalf("layout should conform: %v", err)
	}
	s, err := UnmarshalLayout([]byte(doc))
	if err != nil {
		t.Fatalf("UnmarshalLayout: %v", err)
	}
	first := s.Pages[0].Cards[0].Image
	if first.Settings.Zoom != 100 || first.EditHistory[0].Settings.Zoom != 100 {
		t.Fatalf("zoom not defaulted: %+v / %+v", first.Settings, first.EditHistory[0].Settings)
	}
	st := undo.NewStack(s, undo.Config{})
	for _, id := range []string{"card-1-0", "card-1-1"} {
		cmd, err := undo.Rotate(s, 1, id, 90)
		if err != nil {
			t.Fatalf("%s: Rotate: %v", id, err)
		}
		if err := st.Execute(cmd); err != nil {
			t.Fatalf("%s: rotate after load: %v", id, err)
		}
		_, c, _ := s.FindCard(1, id)
		if got := c.Image.Settings; got.Rotation != 90 || got.Zoom != 100 {
			t.Fatalf("%s: settings after rotate: %+v", id, got)
		}
	}
}
