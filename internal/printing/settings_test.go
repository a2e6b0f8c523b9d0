/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package printing

import (
	"reflect"
	"strings"
	"testing"
)

func validSettings() Settings {
	s := DefaultSettings()
	s.Printer = "HP LaserJet"
	return s
}

func TestValidateReportsEveryMissingField(t *testing.T) {
	res := Validate(Settings{Layout: "portrait", PaperType: "plain"}, nil)
	if res.IsValid {
		t.Fatalf("expected invalid")
	}
	want := []string{"Printer is required", "Copies is required", "Quality is required"}
	if !reflect.DeepEqual(res.Errors, want) {
		t.Fatalf("errors: got %q want %q", res.Errors, want)
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	res := Validate(validSettings(), []PrinterInfo{NewPrinterInfo("HP LaserJet", 0)})
	if !res.IsValid || len(res.Errors) != 0 {
		t.Fatalf("expected valid, got %q", res.Errors)
	}
}

func TestValidatePageRanges(t *testing.T) {
	cases := []struct {
		ranges string
		ok     bool
	}{
		{"1-5, 8, 11-13", true},
		{"3", true},
		{"1-5,", false},
		{"a-b", false},
		{"abc", false},
		{"", false},
		{"5-1", false},
		{"0-2", false},
	}
	for _, c := range cases {
		s := validSettings()
		s.Pages = "custom"
		s.PageRanges = c.ranges
		res := Validate(s, nil)
		if res.IsValid != c.ok {
			t.Errorf("ranges %q: valid=%v want %v (%q)", c.ranges, res.IsValid, c.ok, res.Errors)
		}
	}
}

func TestValidateCopiesAndQuality(t *testing.T) {
	s := validSettings()
	s.Copies = "0"
	s.Quality = "200"
	res := Validate(s, nil)
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %q", res.Errors)
	}
	s.Copies = "two"
	s.Quality = "300"
	if res := Validate(s, nil); len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "Copies") {
		t.Fatalf("non-numeric copies: %q", res.Errors)
	}
}

func TestValidateNotReadyPrinter(t *testing.T) {
	res := Validate(validSettings(), []PrinterInfo{NewPrinterInfo("HP LaserJet", 5)})
	if res.IsValid || len(res.Errors) != 1 {
		t.Fatalf("expected one readiness error, got %q", res.Errors)
	}
	if !strings.Contains(res.Errors[0], "HP LaserJet") || !strings.Contains(res.Errors[0], "Paper Out") {
		t.Fatalf("error should name printer and status: %q", res.Errors[0])
	}
	s := validSettings()
	s.Printer = "Microsoft Print to PDF"
	if res := Validate(s, []PrinterInfo{NewPrinterInfo("Microsoft Print to PDF", 8)}); !res.IsValid {
		t.Fatalf("virtual printer rejected: %q", res.Errors)
	}
}

func TestResolve(t *testing.T) {
	s := validSettings()
	s.Printer = PDFPrinterName
	s.Copies = "3"
	s.Layout = "landscape"
	s.Pages = "custom"
	s.PageRanges = "1-2, 4"
	s.Quality = "300"
	o, err := s.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if o.Copies != 1 || !o.Landscape || o.DPI != 300 {
		t.Fatalf("unexpected options: %+v", o)
	}
	if got := RangesString(o.Ranges); got != "1-2, 4" {
		t.Fatalf("ranges: %q", got)
	}
}

func TestSelectPages(t *testing.T) {
	r, err := ParsePageRanges("3-5, 1, 4, 9-12")
	if err != nil {
		t.Fatal(err)
	}
	got := SelectPages(r, 10)
	want := []int{1, 3, 4, 5, 9, 10}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SelectPages: got %v want %v", got, want)
	}
}

func TestValidateCopiesAcceptsWholeNumbers(t *testing.T) {
	cases := []struct {
		copies string
		ok     bool
		want   int
	}{
		{"2", true, 2},
		{"2.0", true, 2},
		{" 3 ", true, 3},
		{"1.5", false, 0},
		{"-1", false, 0},
	}
	for _, c := range cases {
		s := validSettings()
		s.Copies = c.copies
		res := Validate(s, nil)
		if res.IsValid != c.ok {
			t.Errorf("copies %q: valid=%v want %v (%q)", c.copies, res.IsValid, c.ok, res.Errors)
			continue
		}
		if !c.ok {
			continue
		}
		o, err := s.Resolve()
		if err != nil || o.Copies != c.want {
			t.Errorf("copies %q: resolved %d, err %v", c.copies, o.Copies, err)
		}
	}
}

func TestValidateMessagesNameTheField(t *testing.T) {
	s := validSettings()
	s.Layout = "diagonal"
	s.Pages = "custom"
	res := Validate(s, nil)
	want := []string{
		`Layout must be portrait or landscape, got "diagonal"`,
		"Page ranges are required when printing custom pages",
	}
	if !reflect.DeepEqual(res.Errors, want) {
		t.Fatalf("errors: got %q want %q", res.Errors, want)
	}
}

func TestValidateIgnoresRangesUnlessCustom(t *testing.T) {
	s := validSettings()
	s.PageRanges = "not a range"
	if res := Validate(s, nil); !res.IsValid {
		t.Fatalf("ranges checked for all pages: %q", res.Errors)
	}
}

func TestParsePageRangesRejectsOverflow(t *testing.T) {
	if _, err := ParsePageRanges("1-99999999999999999999"); err == nil {
		t.Fatalf("expected overflow error")
	}
}
