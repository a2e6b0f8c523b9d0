/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"photolayout/internal/domain"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls export across several formats at once.
//
// Path semantics:
//   - OutDir defaults to <preset>/ and is resolved against Root when relative.
//   - The PDF is written as layout.pdf, the archive as layout.zip.
//   - PNG and SVG pages go into png/ and svg/ subfolders.
type BatchOptions struct {
	Preset        PresetName
	Formats       []string // pdf, png, svg, zip; empty means preset defaults
	Pages         []int    // 1-based page numbers; empty means all pages
	DPIOverride   int
	IncludeGuides *bool // overrides the preset default when set
	OutDir        string
	Root          string // workspace root; image paths resolve against it
	Strict        bool
}

// BatchResult lists the files written.
type BatchResult struct {
	Files []string
}

// Batch runs exports according to the given preset.
func Batch(s *domain.Session, opt BatchOptions) (BatchResult, error) {
	var res BatchResult
	if s == nil || len(s.Pages) == 0 {
		return res, fmt.Errorf("session has no pages")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(opt.Root, "exports", baseOut)
	}

	guides := presetIncludeGuides(opt.Preset)
	if opt.IncludeGuides != nil {
		guides = *opt.IncludeGuides
	}
	dpi := presetDPI(opt.Preset)
	if opt.DPIOverride > 0 {
		dpi = opt.DPIOverride
	}
	pngOpt := PNGOptions{IncludeGuides: guides, DPI: dpi, Pages: opt.Pages, BaseDir: opt.Root, Strict: opt.Strict}

	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "pdf":
			out := filepath.Join(baseOut, "layout.pdf")
			if err := ExportPDF(s, out, PDFOptions{IncludeGuides: guides, Pages: opt.Pages, BaseDir: opt.Root, Strict: opt.Strict}); err != nil {
				return res, fmt.Errorf("pdf: %w", err)
			}
			res.Files = append(res.Files, out)
		case "png":
			files, err := ExportPNGPages(s, filepath.Join(baseOut, "png"), pngOpt)
			res.Files = append(res.Files, files...)
			if err != nil {
				return res, fmt.Errorf("png: %w", err)
			}
		case "svg":
			so := SVGOptions{IncludeGuides: guides, Embed: true, Pages: opt.Pages, BaseDir: opt.Root, Strict: opt.Strict}
			files, err := ExportSVGPages(s, filepath.Join(baseOut, "svg"), so)
			res.Files = append(res.Files, files...)
			if err != nil {
				return res, fmt.Errorf("svg: %w", err)
			}
		case "zip":
			out := filepath.Join(baseOut, "layout.zip")
			if err := ExportArchive(s, out, ArchiveOptions{PNG: pngOpt, IncludeLayout: true}); err != nil {
				return res, fmt.Errorf("zip: %w", err)
			}
			res.Files = append(res.Files, out)
		default:
			return res, fmt.Errorf("unknown format: %s", f)
		}
	}
	return res, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg", "zip"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"pdf"}
	}
}

func presetIncludeGuides(p PresetName) bool {
	return p != PresetWeb && p != PresetPrint
}

func presetDPI(p PresetName) int {
	if p == PresetPrint {
		return 300
	}
	return DefaultRasterDPI
}
