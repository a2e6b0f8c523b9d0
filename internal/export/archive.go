/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photolayout/internal/domain"
	"photolayout/internal/render"
	"photolayout/internal/storage"
)

// ArchiveOptions controls zip export: one PNG per page plus the layout
// document, so the archive can be reopened as a workspace layout.
type ArchiveOptions struct {
	PNG           PNGOptions
	IncludeLayout bool
}

// ExportArchive packages the selected pages as PNGs into a zip at outPath.
func ExportArchive(s *domain.Session, outPath string, opt ArchiveOptions) error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}
	if !strings.HasSuffix(strings.ToLower(outPath), ".zip") {
		outPath += ".zip"
	}
	pages := selectPages(render.Render(s), opt.PNG.Pages)
	if len(pages) == 0 {
		return fmt.Errorf("no pages to export")
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	pad := len(fmt.Sprint(len(pages)))
	src := newSourceCache(opt.PNG.BaseDir)
	imgBuf := &bytes.Buffer{}
	for i, pl := range pages {
		img, err := rasterize(pl, opt.PNG, src)
		if err != nil {
			return err
		}
		imgBuf.Reset()
		if err := png.Encode(imgBuf, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		name := fmt.Sprintf("page-%0*d.png", pad, i+1)
		if err := addZipFile(zw, name, imgBuf.Bytes()); err != nil {
			return fmt.Errorf("zip add image: %w", err)
		}
	}
	if opt.IncludeLayout {
		b, err := storage.MarshalLayout(s)
		if err != nil {
			return err
		}
		if err := addZipFile(zw, storage.LayoutFileName, b); err != nil {
			return fmt.Errorf("zip add layout: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, out.Bytes(), 0o644); err != nil {
		return domain.ExternalIO("write archive", err)
	}
	return nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
	hdr.Modified = time.Now()
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
