/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imagesrc

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestProbeDataURI(t *testing.T) {
	src := DataURI("image/png", pngBytes(t, 40, 30))
	info, err := Probe(src, "")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Width != 40 || info.Height != 30 || info.Format != "png" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestProbeRelativeFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "images"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "images", "a.png"), pngBytes(t, 8, 12), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := Probe("images/a.png", dir)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Width != 8 || info.Height != 12 {
		t.Fatalf("unexpected info: %+v", info)
	}
	img, format, err := Decode("images/a.png", dir)
	if err != nil || format != "png" || img.Bounds().Dx() != 8 {
		t.Fatalf("Decode: %v %q", err, format)
	}
}

func TestParseDataURIPlain(t *testing.T) {
	mt, b, err := ParseDataURI("data:,hello%20world")
	if err != nil {
		t.Fatal(err)
	}
	if mt != "text/plain" || string(b) != "hello world" {
		t.Fatalf("got %q %q", mt, b)
	}
	if _, _, err := ParseDataURI("data:image/png;base64"); err == nil {
		t.Fatalf("expected missing payload error")
	}
}

func TestRemoteRejected(t *testing.T) {
	if _, err := Read("https://example.com/a.png", ""); !errors.Is(err, ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
}

func TestEmbedFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.png")
	if err := os.WriteFile(p, pngBytes(t, 3, 5), 0o644); err != nil {
		t.Fatal(err)
	}
	uri, info, err := EmbedFile(p)
	if err != nil {
		t.Fatalf("EmbedFile: %v", err)
	}
	if !IsDataURI(uri) || info.Src != uri || info.Height != 5 {
		t.Fatalf("unexpected: %q %+v", uri[:20], info)
	}
	if MediaType("jpeg") != "image/jpeg" || MediaType("webp") != "image/webp" {
		t.Fatalf("MediaType mismatch")
	}
}
