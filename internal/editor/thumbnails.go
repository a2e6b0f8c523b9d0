/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"bytes"
	"context"
	"math"
	"time"

	"photolayout/internal/domain"
	"photolayout/internal/export"
	"photolayout/internal/geometry"
	"photolayout/internal/imagesrc"
	"photolayout/internal/render"
	"photolayout/internal/storage"
)

// DefaultThumbDPI renders an A4 page about 250 pixels wide.
const DefaultThumbDPI = 30

// Thumbnail returns a PNG of page number at dpi and stores it on the page as
// its regenerable preview. With an index the PNG is cached by page content,
// so an unchanged page is never rasterized twice.
func (e *Editor) Thumbnail(ctx context.Context, number, dpi int) ([]byte, error) {
	if dpi <= 0 {
		dpi = DefaultThumbDPI
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.session.Page(number)
	if err != nil {
		return nil, err
	}
	layout := render.RenderPage(p, number-1 == e.session.CurrentPage)
	k := float64(dpi) / 25.4
	key := storage.PreviewKey{
		Page: number,
		Kind: storage.PreviewKindThumb,
		W:    int(math.Round(layout.Size.W * k)),
		H:    int(math.Round(layout.Size.H * k)),
	}
	gen := func(context.Context) ([]byte, error) {
		var buf bytes.Buffer
		if err := export.WritePagePNG(&buf, layout, export.PNGOptions{DPI: dpi, BaseDir: e.baseDir}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	var png []byte
	if e.index != nil {
		hash := storage.ContentHash([]byte(render.PageMarkup(layout)))
		png, err = e.index.GetOrCreatePreview(ctx, key, hash, e.previewCap, gen)
	} else {
		png, err = gen(ctx)
	}
	if err != nil {
		return nil, err
	}
	p.Preview = &domain.PagePreview{
		Image:       imagesrc.DataURI("image/png", png),
		Scale:       k / geometry.PxPerMM,
		LastUpdated: time.Now(),
	}
	return png, nil
}
