/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package printing

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Settings are the print dialog values as entered. Layout is portrait or
// landscape, Pages is all or custom, PageRanges reads like "1-5, 8, 11-13",
// Quality is a dpi and PaperType one of plain, glossy or photo.
type Settings struct {
	Printer    string `json:"printer" validate:"required"`
	Copies     string `json:"copies" validate:"required,copies"`
	Layout     string `json:"layout" validate:"required,oneof=portrait landscape"`
	Pages      string `json:"pages" validate:"omitempty,oneof=all custom"`
	PageRanges string `json:"pageRanges" validate:"required_if=Pages custom,pageranges"`
	Quality    string `json:"quality" validate:"required,oneof=150 300 600"`
	PaperType  string `json:"paperType" validate:"required"`
}

// DefaultSettings are the dialog's initial values.
func DefaultSettings() Settings {
	return Settings{Copies: "1", Layout: "portrait", Pages: "all", Quality: "600", PaperType: "plain"}
}

var pageRangesRE = regexp.MustCompile(`^\d+(-\d+)?(,\s*\d+(-\d+)?)*$`)

// Result is the outcome of Validate. IsValid is exactly len(Errors) == 0.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

var fieldLabels = map[string]string{
	"printer":    "Printer",
	"copies":     "Copies",
	"layout":     "Layout",
	"pages":      "Pages",
	"pageRanges": "Page ranges",
	"quality":    "Quality",
	"paperType":  "Paper type",
}

var settingsValidator = newSettingsValidator()

func newSettingsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("copies", validCopies); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("pageranges", validPageRanges); err != nil {
		panic(err)
	}
	return v
}

// parseCopies accepts any number that is a whole value of at least 1, so
// "2" and "2.0" both mean two copies.
func parseCopies(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("copies must be a whole number of at least 1, got %q", s)
	}
	return int(f), nil
}

func validCopies(fl validator.FieldLevel) bool {
	_, err := parseCopies(fl.Field().String())
	return err == nil
}

// validPageRanges only applies while custom pages are selected.
func validPageRanges(fl validator.FieldLevel) bool {
	if fl.Parent().FieldByName("Pages").String() != "custom" {
		return true
	}
	_, err := ParsePageRanges(fl.Field().String())
	return err == nil
}

func (s Settings) trimmed() Settings {
	return Settings{
		Printer:    strings.TrimSpace(s.Printer),
		Copies:     strings.TrimSpace(s.Copies),
		Layout:     strings.TrimSpace(s.Layout),
		Pages:      strings.TrimSpace(s.Pages),
		PageRanges: strings.TrimSpace(s.PageRanges),
		Quality:    strings.TrimSpace(s.Quality),
		PaperType:  strings.TrimSpace(s.PaperType),
	}
}

// Validate runs every check and reports all violations at once. printers is
// the cached list as of the start of validation.
func Validate(s Settings, printers []PrinterInfo) Result {
	s = s.trimmed()
	var errs []string
	if err := settingsValidator.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs = append(errs, err.Error())
		}
		for _, e := range verrs {
			errs = append(errs, validationMessage(e))
		}
	}
	if p, ok := FindPrinter(printers, s.Printer); ok && !p.Ready {
		errs = append(errs, fmt.Sprintf("Printer %q is not ready: %s", p.Name, p.StatusText))
	}
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// validationMessage returns a human-readable message for a failed rule.
func validationMessage(e validator.FieldError) string {
	label, ok := fieldLabels[e.Field()]
	if !ok {
		label = e.Field()
	}
	value := fmt.Sprint(e.Value())
	switch e.Tag() {
	case "required":
		return label + " is required"
	case "required_if":
		return "Page ranges are required when printing custom pages"
	case "copies":
		return "Copies must be a whole number of at least 1"
	case "oneof":
		opts := strings.Fields(e.Param())
		if e.Field() == "quality" {
			return "Quality must be one of 150, 300 or 600 DPI"
		}
		return fmt.Sprintf("%s must be %s, got %q", label, strings.Join(opts, " or "), value)
	case "pageranges":
		if _, err := ParsePageRanges(value); err != nil {
			return "Page ranges: " + err.Error()
		}
		return "Page ranges are invalid"
	default:
		return fmt.Sprintf("%s is invalid (%s)", label, e.Tag())
	}
}

// PageRange is an inclusive 1-based range.
type PageRange struct{ From, To int }

// ParsePageRanges parses "1-5, 8, 11-13". Pages are numbered from 1 and a
// range must not run backwards, so "0" and "5-1" are rejected.
func ParsePageRanges(s string) ([]PageRange, error) {
	s = strings.TrimSpace(s)
	if !pageRangesRE.MatchString(s) {
		return nil, fmt.Errorf("invalid page range format %q (use e.g. 1-5, 8, 11-13)", s)
	}
	var out []PageRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		from, to, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(from)
		if err != nil {
			return nil, fmt.Errorf("invalid page range %q: %w", part, err)
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(to); err != nil {
				return nil, fmt.Errorf("invalid page range %q: %w", part, err)
			}
		}
		if a < 1 || b < a {
			return nil, fmt.Errorf("invalid page range %q", part)
		}
		out = append(out, PageRange{From: a, To: b})
	}
	return out, nil
}

// SelectPages expands ranges into sorted unique page numbers within [1, total].
func SelectPages(ranges []PageRange, total int) []int {
	seen := map[int]bool{}
	var out []int
	for _, r := range ranges {
		for p := r.From; p <= r.To && p <= total; p++ {
			if p >= 1 && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Ints(out)
	return out
}

// JobOptions are validated settings in typed form.
type JobOptions struct {
	Printer   string
	Copies    int
	Landscape bool
	DPI       int
	PaperType string
	Ranges    []PageRange // nil means all pages
}

// Resolve converts settings that passed Validate. Saving as PDF always
// produces a single copy.
func (s Settings) Resolve() (JobOptions, error) {
	copies, err := parseCopies(s.Copies)
	if err != nil {
		return JobOptions{}, fmt.Errorf("copies: %w", err)
	}
	dpi, err := strconv.Atoi(strings.TrimSpace(s.Quality))
	if err != nil {
		return JobOptions{}, fmt.Errorf("quality: %w", err)
	}
	o := JobOptions{
		Printer:   s.Printer,
		Copies:    copies,
		Landscape: strings.TrimSpace(s.Layout) == "landscape",
		DPI:       dpi,
		PaperType: s.PaperType,
	}
	if strings.TrimSpace(s.Pages) == "custom" {
		if o.Ranges, err = ParsePageRanges(s.PageRanges); err != nil {
			return JobOptions{}, err
		}
	}
	if o.Printer == PDFPrinterName {
		o.Copies = 1
	}
	return o, nil
}

// RangesString formats ranges back to "1-5, 8".
func RangesString(ranges []PageRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		if r.From == r.To {
			parts[i] = strconv.Itoa(r.From)
		} else {
			parts[i] = fmt.Sprintf("%d-%d", r.From, r.To)
		}
	}
	return strings.Join(parts, ", ")
}
