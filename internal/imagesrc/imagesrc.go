/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imagesrc resolves card image sources. A source is either a data URI
// or a file path (optionally file://) relative to the workspace root. Remote
// URLs are not fetched.
package imagesrc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"photolayout/internal/domain"
)

// ErrRemote is returned for http(s) sources.
var ErrRemote = errors.New("remote image sources are not supported")

// Info describes a decoded source.
type Info struct {
	Src    string
	Format string // decoder name: png, jpeg, gif, bmp, tiff, webp
	Width  int
	Height int
}

// IsDataURI reports whether src is an inline data URI.
func IsDataURI(src string) bool { return strings.HasPrefix(src, "data:") }

// ParseDataURI splits a data URI into its media type and payload.
func ParseDataURI(src string) (string, []byte, error) {
	if !IsDataURI(src) {
		return "", nil, fmt.Errorf("not a data uri")
	}
	meta, payload, ok := strings.Cut(src[len("data:"):], ",")
	if !ok {
		return "", nil, fmt.Errorf("data uri: missing payload")
	}
	isBase64 := false
	if strings.HasSuffix(meta, ";base64") {
		isBase64 = true
		meta = strings.TrimSuffix(meta, ";base64")
	}
	mediaType := "text/plain"
	if meta != "" {
		mt, _, err := mime.ParseMediaType(meta)
		if err != nil {
			return "", nil, fmt.Errorf("data uri: %w", err)
		}
		mediaType = mt
	}
	if isBase64 {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("data uri: %w", err)
		}
		return mediaType, b, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("data uri: %w", err)
	}
	return mediaType, []byte(s), nil
}

// DataURI encodes b as a base64 data URI.
func DataURI(mediaType string, b []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(b)
}

// Resolve maps a non-data source to a local path under baseDir.
func Resolve(src, baseDir string) (string, error) {
	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return "", ErrRemote
	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return "", fmt.Errorf("file uri: %w", err)
		}
		return filepath.FromSlash(u.Path), nil
	}
	p := filepath.FromSlash(src)
	if !filepath.IsAbs(p) && baseDir != "" {
		p = filepath.Join(baseDir, p)
	}
	return p, nil
}

// Read returns the raw bytes of a source.
func Read(src, baseDir string) ([]byte, error) {
	if IsDataURI(src) {
		_, b, err := ParseDataURI(src)
		return b, err
	}
	p, err := Resolve(src, baseDir)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, domain.ExternalIO("read image", err)
	}
	return b, nil
}

// Probe reads only the header to learn the natural dimensions.
func Probe(src, baseDir string) (Info, error) {
	b, err := Read(src, baseDir)
	if err != nil {
		return Info{}, err
	}
	return ProbeReader(src, bytes.NewReader(b))
}

// ProbeReader is Probe over an already opened stream.
func ProbeReader(src string, r io.Reader) (Info, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Info{}, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("image has no dimensions")
	}
	return Info{Src: src, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Decode fully decodes a source.
func Decode(src, baseDir string) (image.Image, string, error) {
	b, err := Read(src, baseDir)
	if err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// EmbedFile reads a local image and returns it as a data URI plus its info.
func EmbedFile(path string) (string, Info, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", Info{}, domain.ExternalIO("read image", err)
	}
	info, err := ProbeReader(path, bytes.NewReader(b))
	if err != nil {
		return "", Info{}, err
	}
	uri := DataURI(MediaType(info.Format), b)
	info.Src = uri
	return uri, info, nil
}

// MediaType maps a decoder name to its MIME type.
func MediaType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "":
		return "application/octet-stream"
	}
	return "image/" + format
}
