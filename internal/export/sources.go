/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes a photo layout to files: one multi-page PDF, one PNG
// or SVG per page, or a zip archive of page PNGs. Every exporter draws from
// the same render.PageLayout geometry the editor and print path use.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"photolayout/internal/imagesrc"
	applog "photolayout/internal/log"
	"photolayout/internal/render"
)

// sourceCache reads and decodes each distinct image source once per export.
type sourceCache struct {
	baseDir string
	raw     map[string]rawImage
	decoded map[string]image.Image
	log     *slog.Logger
}

type rawImage struct {
	data   []byte
	format string
}

func newSourceCache(baseDir string) *sourceCache {
	return &sourceCache{
		baseDir: baseDir,
		raw:     map[string]rawImage{},
		decoded: map[string]image.Image{},
		log:     applog.WithComponent("export"),
	}
}

func (c *sourceCache) bytes(src string) (rawImage, error) {
	if r, ok := c.raw[src]; ok {
		return r, nil
	}
	b, err := imagesrc.Read(src, c.baseDir)
	if err != nil {
		return rawImage{}, err
	}
	info, err := imagesrc.ProbeReader(src, bytes.NewReader(b))
	if err != nil {
		return rawImage{}, err
	}
	r := rawImage{data: b, format: info.Format}
	c.raw[src] = r
	return r, nil
}

func (c *sourceCache) image(src string) (image.Image, error) {
	if img, ok := c.decoded[src]; ok {
		return img, nil
	}
	r, err := c.bytes(src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(r.data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	c.decoded[src] = img
	return img, nil
}

// embeddable returns bytes a PDF or browser can consume directly: PNG, JPEG
// and GIF pass through, other formats are re-encoded as PNG.
func (c *sourceCache) embeddable(src string) (rawImage, error) {
	r, err := c.bytes(src)
	if err != nil {
		return rawImage{}, err
	}
	switch r.format {
	case "png", "jpeg", "gif":
		return r, nil
	}
	img, err := c.image(src)
	if err != nil {
		return rawImage{}, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return rawImage{}, fmt.Errorf("encode png: %w", err)
	}
	return rawImage{data: buf.Bytes(), format: "png"}, nil
}

// skip logs an image that could not be drawn. strict turns it into an error.
func (c *sourceCache) skip(strict bool, card string, err error) error {
	if strict {
		return fmt.Errorf("card %s: %w", card, err)
	}
	c.log.Warn("image skipped", slog.String("card", card), slog.Any("err", err))
	return nil
}

// selectPages keeps the layouts whose page numbers are listed; none means all.
func selectPages(pages []render.PageLayout, numbers []int) []render.PageLayout {
	if len(numbers) == 0 {
		return pages
	}
	out := make([]render.PageLayout, 0, len(numbers))
	for _, n := range numbers {
		if pl, ok := render.Page(pages, n); ok {
			out = append(out, pl)
		}
	}
	return out
}
