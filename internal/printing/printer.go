/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package printing gates physical output: it caches printer readiness,
// validates print settings and drives a print job from the dialog to the
// print collaborator.
package printing

import (
	"fmt"
	"sort"
	"strings"
)

// Built-in destinations that are always offered.
const (
	PDFPrinterName  = "Save as PDF"
	TestPrinterName = "Test Printer"
)

// virtualPrinters are reported ready whatever their numeric status.
var virtualPrinters = map[string]bool{
	"Microsoft Print to PDF":        true,
	"Microsoft XPS Document Writer": true,
	"OneNote":                       true,
	"OneNote for Windows 10":        true,
	"Fax":                           true,
	"Adobe PDF":                     true,
	PDFPrinterName:                  true,
	TestPrinterName:                 true,
}

type statusEntry struct {
	text  string
	ready bool
}

// statusTable maps spooler status codes to a label and readiness.
var statusTable = map[int]statusEntry{
	0:  {"Ready", true},
	1:  {"Paused", false},
	2:  {"Error", false},
	3:  {"Pending Deletion", false},
	4:  {"Paper Jam", false},
	5:  {"Paper Out", false},
	6:  {"Manual Feed Required", false},
	7:  {"Paper Problem", false},
	8:  {"Offline", false},
	9:  {"I/O Active", true},
	10: {"Busy", true},
	11: {"Printing", true},
	12: {"Output Bin Full", false},
	13: {"Not Available", false},
	14: {"Waiting", true},
	15: {"Processing", true},
	16: {"Initializing", true},
	17: {"Warming Up", true},
	18: {"Toner Low", true},
	19: {"No Toner", false},
	20: {"Page Punt", false},
	21: {"User Intervention Required", false},
	22: {"Out of Memory", false},
	23: {"Door Open", false},
	24: {"Server Unknown", false},
	25: {"Power Save", true},
}

// StatusText returns the label and readiness for a status code.
// Unknown codes are not ready.
func StatusText(code int) (string, bool) {
	if e, ok := statusTable[code]; ok {
		return e.text, e.ready
	}
	return fmt.Sprintf("Unknown (%d)", code), false
}

// IsVirtual reports whether name is a virtual (non-physical) printer.
func IsVirtual(name string) bool { return virtualPrinters[name] }

// PrinterInfo is one cached printer with its derived readiness.
type PrinterInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	IsDefault   bool   `json:"isDefault,omitempty"`
	Status      int    `json:"status"`
	StatusText  string `json:"statusText"`
	Ready       bool   `json:"ready"`
	Virtual     bool   `json:"virtual"`
}

// NewPrinterInfo derives text and readiness from the status table.
// Virtual printers are always ready.
func NewPrinterInfo(name string, status int) PrinterInfo {
	text, ready := StatusText(status)
	v := IsVirtual(name)
	return PrinterInfo{Name: name, Status: status, StatusText: text, Ready: ready || v, Virtual: v}
}

// Label is the text shown in the printer dropdown.
func (p PrinterInfo) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// Builtins are the destinations handled without a spooler.
func Builtins() []PrinterInfo {
	pdf := NewPrinterInfo(PDFPrinterName, 0)
	test := NewPrinterInfo(TestPrinterName, 0)
	test.DisplayName = "Test Printer (Debug)"
	return []PrinterInfo{pdf, test}
}

// SortForDropdown orders physical printers before virtual ones,
// alphabetically within each group. The input is not modified.
func SortForDropdown(in []PrinterInfo) []PrinterInfo {
	out := append([]PrinterInfo(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Virtual != out[j].Virtual {
			return !out[i].Virtual
		}
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// FilterPrinters keeps printers whose name contains term, case-insensitively.
func FilterPrinters(in []PrinterInfo, term string) []PrinterInfo {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return append([]PrinterInfo(nil), in...)
	}
	var out []PrinterInfo
	for _, p := range in {
		if strings.Contains(strings.ToLower(p.Name), term) {
			out = append(out, p)
		}
	}
	return out
}

// FindPrinter returns the printer called name.
func FindPrinter(in []PrinterInfo, name string) (PrinterInfo, bool) {
	for _, p := range in {
		if p.Name == name {
			return p, true
		}
	}
	return PrinterInfo{}, false
}
