/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"photolayout/internal/domain"
	"photolayout/internal/geometry"
	"photolayout/internal/imagesrc"
	"photolayout/internal/render"
)

// SVGOptions controls SVG export. The viewBox is in millimetres so the file
// prints at true size. Images are referenced by their source; with Embed,
// file paths are inlined as data URIs and the SVG stands alone.
type SVGOptions struct {
	IncludeGuides bool
	Embed         bool
	Pages         []int
	BaseDir       string
	Strict        bool
}

// ExportSVGPages writes page-<n>.svg for each selected page into outDir.
func ExportSVGPages(s *domain.Session, outDir string, opt SVGOptions) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	src := newSourceCache(opt.BaseDir)
	var written []string
	for _, pl := range selectPages(render.Render(s), opt.Pages) {
		var buf bytes.Buffer
		if err := writeSVG(&buf, pl, opt, src); err != nil {
			return written, err
		}
		name := filepath.Join(outDir, fmt.Sprintf("page-%d.svg", pl.Number))
		if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
			return written, domain.ExternalIO("write svg", err)
		}
		written = append(written, name)
	}
	return written, nil
}

// WritePageSVG writes one resolved page as SVG.
func WritePageSVG(w io.Writer, pl render.PageLayout, opt SVGOptions) error {
	return writeSVG(w, pl, opt, newSourceCache(opt.BaseDir))
}

func writeSVG(w io.Writer, pl render.PageLayout, opt SVGOptions, src *sourceCache) error {
	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}
	n := geometry.FormatNumber
	pw, ph := n(pl.Size.W), n(pl.Size.H)
	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" xmlns:xlink=\"http://www.w3.org/1999/xlink\" version=\"1.1\" width=\"%smm\" height=\"%smm\" viewBox=\"0 0 %s %s\">\n", pw, ph, pw, ph)
	wf("  <rect x=\"0\" y=\"0\" width=\"%s\" height=\"%s\" fill=\"#ffffff\"/>\n", pw, ph)

	for _, c := range pl.Cards {
		r := c.Rect
		if c.Image != nil {
			href, err := svgHref(c.Image.Src, opt, src)
			if err != nil {
				if err := src.skip(opt.Strict, c.ID, err); err != nil {
					return err
				}
			} else {
				clip := "clip-" + c.ID
				m := geometry.Translate(r.X, r.Y).
					Mul(geometry.Scale(1/geometry.PxPerMM, 1/geometry.PxPerMM)).
					Mul(c.Image.Matrix)
				wf("  <clipPath id=\"%s\"><rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\"/></clipPath>\n",
					escAttr(clip), n(r.X), n(r.Y), n(r.W), n(r.H))
				wf("  <g clip-path=\"url(#%s)\">\n", escAttr(clip))
				wf("    <image x=\"0\" y=\"0\" width=\"%s\" height=\"%s\" preserveAspectRatio=\"none\" transform=\"matrix(%s %s %s %s %s %s)\" xlink:href=\"%s\"/>\n",
					n(c.Image.Rendered.W), n(c.Image.Rendered.H),
					mat(m.A), mat(m.B), mat(m.C), mat(m.D), mat(m.E), mat(m.F), escAttr(href))
				wf("  </g>\n")
			}
		}
		if opt.IncludeGuides {
			dash := ""
			if c.Image == nil {
				dash = " stroke-dasharray=\"1 1\""
			}
			wf("  <rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" fill=\"none\" stroke=\"#a0a0a0\" stroke-width=\"0.2\"%s/>\n",
				n(r.X), n(r.Y), n(r.W), n(r.H), dash)
		}
	}
	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func svgHref(s string, opt SVGOptions, src *sourceCache) (string, error) {
	if imagesrc.IsDataURI(s) || !opt.Embed {
		return s, nil
	}
	r, err := src.embeddable(s)
	if err != nil {
		return "", err
	}
	return imagesrc.DataURI(imagesrc.MediaType(r.format), r.data), nil
}

// mat keeps more precision than FormatNumber; matrix terms are sub-millimetre.
func mat(v float64) string {
	v = geometry.FloatRound(v, 6)
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escAttr(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
