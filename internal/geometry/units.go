/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// PxPerMM is the fixed CSS reference ratio (96dpi / 25.4).
const PxPerMM = 3.7795275591

// A4 bounds in millimetres. Page sizes may never exceed them.
const (
	A4WidthMM  = 210.0
	A4HeightMM = 297.0
)

// A4 is the sheet size used when a page has no explicit size.
var A4 = Size{W: A4WidthMM, H: A4HeightMM}

func MMToPx(mm float64) float64 { return mm * PxPerMM }
func PxToMM(px float64) float64 { return px / PxPerMM }

// MMToPt converts millimetres to PDF points.
func MMToPt(mm float64) float64 { return mm * 72 / 25.4 }

// FormatNumber renders v with up to four decimals and no trailing zeros.
// All markup and persisted sizes go through it so output stays byte-stable.
func FormatNumber(v float64) string {
	v = FloatRound(v, 4)
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseSize parses a "<width>x<height>" pair in millimetres.
func ParseSize(s string) (Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Size{}, fmt.Errorf("size %q: expected <width>x<height>", s)
	}
	fw, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
	if err != nil {
		return Size{}, fmt.Errorf("size %q: width: %w", s, err)
	}
	fh, err := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if err != nil {
		return Size{}, fmt.Errorf("size %q: height: %w", s, err)
	}
	return Size{W: fw, H: fh}, nil
}

// FormatSize is the inverse of ParseSize.
func FormatSize(sz Size) string { return FormatNumber(sz.W) + "x" + FormatNumber(sz.H) }

// WithinA4 reports whether 0 < w <= 210 and 0 < h <= 297.
func WithinA4(w, h float64) bool {
	return w > 0 && h > 0 && w <= A4WidthMM && h <= A4HeightMM
}
