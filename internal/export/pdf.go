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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"photolayout/internal/domain"
	"photolayout/internal/geometry"
	"photolayout/internal/render"
)

// PDFOptions controls PDF export. Units are millimetres.
//
// Coordinates:
// - Page origin is top-left, matching the layout model.
// - Each card clips its image to the card rectangle.
// - Images are placed with the same translate, rotate and scale the editor shows.
type PDFOptions struct {
	IncludeGuides bool   // outline every card, dashed when empty
	Pages         []int  // 1-based page numbers; empty exports all
	BaseDir       string // resolves relative image paths
	Title         string
	Strict        bool // fail on unreadable images instead of skipping them
}

// ExportPDF writes the session to a single multi-page PDF at outPath.
func ExportPDF(s *domain.Session, outPath string, opt PDFOptions) error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}
	var buf bytes.Buffer
	if err := WritePDF(&buf, render.Render(s), opt); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return domain.ExternalIO("write pdf", err)
	}
	return nil
}

// WritePDF renders resolved pages as PDF to w.
func WritePDF(w io.Writer, pages []render.PageLayout, opt PDFOptions) error {
	pages = selectPages(pages, opt.Pages)
	if len(pages) == 0 {
		return fmt.Errorf("no pages to export")
	}
	first := pages[0].Size
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: first.W, Ht: first.H},
		OrientationStr: "P",
	})
	title := opt.Title
	if title == "" {
		title = "Photo layout"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("photolayout", true)
	pdf.SetAutoPageBreak(false, 0)

	src := newSourceCache(opt.BaseDir)
	registered := map[string]string{}
	for _, pl := range pages {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: pl.Size.W, Ht: pl.Size.H})
		for _, c := range pl.Cards {
			if c.Image != nil {
				name, typ, err := registerImage(pdf, src, registered, c.Image.Src)
				if err != nil {
					if err := src.skip(opt.Strict, c.ID, err); err != nil {
						return err
					}
				} else {
					drawPDFImage(pdf, c.Rect, c.Image, name, typ)
				}
			}
			if opt.IncludeGuides {
				drawPDFGuide(pdf, c)
			}
		}
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("page %d: %w", pl.Number, err)
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func registerImage(pdf *gofpdf.Fpdf, src *sourceCache, registered map[string]string, s string) (string, string, error) {
	r, err := src.embeddable(s)
	if err != nil {
		return "", "", err
	}
	typ := strings.ToUpper(r.format)
	if typ == "JPEG" {
		typ = "JPG"
	}
	if name, ok := registered[s]; ok {
		return name, typ, nil
	}
	sum := sha256.Sum256(r.data)
	name := "img-" + hex.EncodeToString(sum[:8])
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: typ}, bytes.NewReader(r.data))
	if err := pdf.Error(); err != nil {
		return "", "", err
	}
	registered[s] = name
	return name, typ, nil
}

// drawPDFImage mirrors the CSS chain: the image is centred on the card,
// shifted by the translate, then rotated clockwise and scaled about its centre.
func drawPDFImage(pdf *gofpdf.Fpdf, r geometry.Rect, il *render.ImageLayout, name, typ string) {
	f := il.Framing
	cx := r.X + r.W/2 + geometry.PxToMM(f.TranslateX)
	cy := r.Y + r.H/2 + geometry.PxToMM(f.TranslateY)
	w := geometry.PxToMM(il.Rendered.W)
	h := geometry.PxToMM(il.Rendered.H)
	s := f.ScaleFactor() * 100

	pdf.ClipRect(r.X, r.Y, r.W, r.H, false)
	pdf.TransformBegin()
	// gofpdf rotates counter-clockwise
	if f.Rotation != 0 {
		pdf.TransformRotate(-f.Rotation, cx, cy)
	}
	if s != 100 {
		pdf.TransformScale(s, s, cx, cy)
	}
	pdf.ImageOptions(name, cx-w/2, cy-h/2, w, h, false, gofpdf.ImageOptions{ImageType: typ}, 0, "")
	pdf.TransformEnd()
	pdf.ClipEnd()
}

func drawPDFGuide(pdf *gofpdf.Fpdf, c render.CardLayout) {
	pdf.SetDrawColor(160, 160, 160)
	pdf.SetLineWidth(0.2)
	if c.Image == nil {
		pdf.SetDashPattern([]float64{1, 1}, 0)
	}
	pdf.Rect(c.Rect.X, c.Rect.Y, c.Rect.W, c.Rect.H, "D")
	pdf.SetDashPattern(nil, 0)
}
