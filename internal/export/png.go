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
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"photolayout/internal/domain"
	"photolayout/internal/geometry"
	"photolayout/internal/render"
)

// DefaultRasterDPI is used when PNGOptions.DPI is not set.
const DefaultRasterDPI = 150

// PNGOptions controls raster export.
// - DPI: output resolution; the page is W/25.4*DPI pixels wide
// - IncludeGuides: outline cards in grey
// - Pages: 1-based page numbers; empty exports all
type PNGOptions struct {
	IncludeGuides bool
	DPI           int
	Pages         []int
	BaseDir       string
	Strict        bool
}

func (o PNGOptions) dpi() int {
	if o.DPI > 0 {
		return o.DPI
	}
	return DefaultRasterDPI
}

var (
	white     = color.RGBA{255, 255, 255, 255}
	guideGrey = color.RGBA{160, 160, 160, 255}
)

// ExportPNGPages writes page-<n>.png for each selected page into outDir and
// returns the written paths.
func ExportPNGPages(s *domain.Session, outDir string, opt PNGOptions) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	src := newSourceCache(opt.BaseDir)
	var written []string
	for _, pl := range selectPages(render.Render(s), opt.Pages) {
		img, err := rasterize(pl, opt, src)
		if err != nil {
			return written, err
		}
		name := filepath.Join(outDir, fmt.Sprintf("page-%d.png", pl.Number))
		f, err := os.Create(name)
		if err != nil {
			return written, domain.ExternalIO("create png", err)
		}
		err = png.Encode(f, img)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return written, fmt.Errorf("write png: %w", err)
		}
		written = append(written, name)
	}
	return written, nil
}

// WritePagePNG encodes a single resolved page.
func WritePagePNG(w io.Writer, pl render.PageLayout, opt PNGOptions) error {
	img, err := RenderPage(pl, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// RenderPage rasterizes one page at opt.DPI.
func RenderPage(pl render.PageLayout, opt PNGOptions) (*image.RGBA, error) {
	return rasterize(pl, opt, newSourceCache(opt.BaseDir))
}

func rasterize(pl render.PageLayout, opt PNGOptions, src *sourceCache) (*image.RGBA, error) {
	k := float64(opt.dpi()) / 25.4 // output pixels per mm
	pixW := int(math.Round(pl.Size.W * k))
	pixH := int(math.Round(pl.Size.H * k))
	if pixW <= 0 || pixH <= 0 {
		return nil, fmt.Errorf("page %d has no area", pl.Number)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: white}, image.Point{}, draw.Src)

	for _, c := range pl.Cards {
		cell := pixelRect(c.Rect, k)
		if c.Image != nil {
			img, err := src.image(c.Image.Src)
			if err != nil {
				if err := src.skip(opt.Strict, c.ID, err); err != nil {
					return nil, err
				}
			} else {
				drawFramed(canvas, cell, c.Rect, k, c.Image, img)
			}
		}
		if opt.IncludeGuides {
			strokeRect(canvas, cell.Min.X, cell.Min.Y, cell.Max.X-1, cell.Max.Y-1, guideGrey)
		}
	}
	return canvas, nil
}

func pixelRect(r geometry.Rect, k float64) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X*k)), int(math.Round(r.Y*k)),
		int(math.Round((r.X+r.W)*k)), int(math.Round((r.Y+r.H)*k)),
	)
}

// drawFramed maps source pixels to canvas pixels through the card's image
// matrix and draws into the card cell only.
func drawFramed(canvas *image.RGBA, cell image.Rectangle, r geometry.Rect, k float64, il *render.ImageLayout, img image.Image) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || il.Rendered.W <= 0 || il.Rendered.H <= 0 {
		return
	}
	m := SourceToPage(r, k, il, b)
	dst, ok := canvas.SubImage(cell).(*image.RGBA)
	if !ok {
		return
	}
	s2d := f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
	draw.BiLinear.Transform(dst, s2d, img, b, draw.Over, nil)
}

// SourceToPage composes the transform from source image pixels to output
// pixels at k pixels per millimetre.
func SourceToPage(r geometry.Rect, k float64, il *render.ImageLayout, b image.Rectangle) geometry.Affine2D {
	pxPerDevice := k / geometry.PxPerMM
	return geometry.Translate(r.X*k, r.Y*k).
		Mul(geometry.Scale(pxPerDevice, pxPerDevice)).
		Mul(il.Matrix).
		Mul(geometry.Scale(il.Rendered.W/float64(b.Dx()), il.Rendered.H/float64(b.Dy()))).
		Mul(geometry.Translate(-float64(b.Min.X), -float64(b.Min.Y)))
}

func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, c)
		img.SetRGBA(x, y1, c)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, c)
		img.SetRGBA(x1, y, c)
	}
}
