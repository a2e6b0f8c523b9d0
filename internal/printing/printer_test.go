/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package printing

import "testing"

func TestVirtualPrinterAlwaysReady(t *testing.T) {
	pdf := NewPrinterInfo("Microsoft Print to PDF", 8)
	if !pdf.Ready || !pdf.Virtual {
		t.Fatalf("virtual printer should be ready: %+v", pdf)
	}
	hp := NewPrinterInfo("HP LaserJet", 8)
	if hp.Ready || hp.Virtual {
		t.Fatalf("offline physical printer should not be ready: %+v", hp)
	}
	if hp.StatusText != "Offline" {
		t.Fatalf("StatusText: got %q want Offline", hp.StatusText)
	}
}

func TestStatusTable(t *testing.T) {
	cases := []struct {
		code  int
		text  string
		ready bool
	}{
		{0, "Ready", true},
		{1, "Paused", false},
		{4, "Paper Jam", false},
		{11, "Printing", true},
		{18, "Toner Low", true},
		{19, "No Toner", false},
		{99, "Unknown (99)", false},
	}
	for _, c := range cases {
		text, ready := StatusText(c.code)
		if text != c.text || ready != c.ready {
			t.Errorf("StatusText(%d) = %q,%v want %q,%v", c.code, text, ready, c.text, c.ready)
		}
	}
}

func TestSortForDropdown(t *testing.T) {
	in := []PrinterInfo{
		NewPrinterInfo("Fax", 0),
		NewPrinterInfo("zebra", 8),
		NewPrinterInfo("Adobe PDF", 0),
		NewPrinterInfo("alpha", 0),
		NewPrinterInfo("HP", 2),
	}
	got := SortForDropdown(in)
	want := []string{"alpha", "HP", "zebra", "Adobe PDF", "Fax"}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("order at %d: got %q want %q (%v)", i, got[i].Name, name, got)
		}
	}
	if in[0].Name != "Fax" {
		t.Fatalf("input was reordered")
	}
}

func TestFilterPrinters(t *testing.T) {
	in := []PrinterInfo{NewPrinterInfo("HP LaserJet", 0), NewPrinterInfo("Canon Pixma", 0), NewPrinterInfo("OneNote", 0)}
	if got := FilterPrinters(in, "  laser "); len(got) != 1 || got[0].Name != "HP LaserJet" {
		t.Fatalf("filter laser: %v", got)
	}
	if got := FilterPrinters(in, ""); len(got) != 3 {
		t.Fatalf("empty filter should keep all: %v", got)
	}
}

func TestBuiltinsAreReady(t *testing.T) {
	for _, p := range Builtins() {
		if !p.Ready || !p.Virtual {
			t.Fatalf("builtin %q not ready", p.Name)
		}
	}
	if Builtins()[1].Label() != "Test Printer (Debug)" {
		t.Fatalf("test printer label: %q", Builtins()[1].Label())
	}
}
