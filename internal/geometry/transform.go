/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"math"
	"strings"
)

// Framing is the four independent image framing parameters. Everything else
// about an image's presentation is derived from these.
type Framing struct {
	Rotation   float64 // degrees
	Zoom       float64 // percent, 100 = natural fit
	TranslateX float64 // device pixels from container center
	TranslateY float64
}

// DefaultFraming is an unrotated, unzoomed, centered image.
var DefaultFraming = Framing{Zoom: 100}

// NormalizeDegrees maps d into [0, 360).
func NormalizeDegrees(d float64) float64 {
	r := math.Mod(d, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 || r == 0 {
		return 0
	}
	return r
}

// ScaleFactor is zoom/100; a non-positive zoom counts as 100%.
func (f Framing) ScaleFactor() float64 {
	if f.Zoom <= 0 {
		return 1
	}
	return f.Zoom / 100
}

// TransformChain renders the CSS transform for an image centered in its
// container: re-center, user translate, rotate, scale, in exactly that order.
// Identity translate and rotate steps are left out; order is never changed.
func TransformChain(f Framing) string {
	var b strings.Builder
	b.WriteString("translate(-50%, -50%)")
	if f.TranslateX != 0 || f.TranslateY != 0 {
		b.WriteString(" translate(")
		b.WriteString(FormatNumber(f.TranslateX))
		b.WriteString("px, ")
		b.WriteString(FormatNumber(f.TranslateY))
		b.WriteString("px)")
	}
	if r := NormalizeDegrees(f.Rotation); r != 0 {
		b.WriteString(" rotate(")
		b.WriteString(FormatNumber(r))
		b.WriteString("deg)")
	}
	b.WriteString(" scale(")
	b.WriteString(FormatNumber(f.ScaleFactor()))
	b.WriteString(")")
	return b.String()
}

// ImageMatrix maps image-local pixel coordinates (0..rendered.W, 0..rendered.H)
// to container pixel coordinates. It is the matrix form of TransformChain for
// an image whose top-left sits at the container center before transforming.
func ImageMatrix(container, rendered Size, f Framing) Affine2D {
	s := f.ScaleFactor()
	rad := NormalizeDegrees(f.Rotation) * math.Pi / 180
	return Translate(container.W/2+f.TranslateX, container.H/2+f.TranslateY).
		Mul(Rotate(rad)).
		Mul(Scale(s, s)).
		Mul(Translate(-rendered.W/2, -rendered.H/2))
}

// FitMode selects which image dimension fills the container.
type FitMode int

const (
	// FitWidth: width:100%; height:auto.
	FitWidth FitMode = iota
	// FitHeight: width:auto; height:100%.
	FitHeight
)

func (m FitMode) String() string {
	if m == FitHeight {
		return "height"
	}
	return "width"
}

// CSS returns the intrinsic size declarations for the mode.
func (m FitMode) CSS() string {
	if m == FitHeight {
		return "width: auto; height: 100%;"
	}
	return "width: 100%; height: auto;"
}

// Fit chooses the fit mode and the untransformed rendered image size.
// A container wider (relative to its height) than the image fits by height,
// otherwise by width. Unknown image dimensions fall back to fit-by-width with
// the container's own aspect.
func Fit(container, image Size) (FitMode, Size) {
	if container.W <= 0 || container.H <= 0 {
		return FitWidth, Size{}
	}
	if image.W <= 0 || image.H <= 0 {
		return FitWidth, container
	}
	containerAspect := container.W / container.H
	imageAspect := image.W / image.H
	if containerAspect > imageAspect {
		return FitHeight, Size{W: container.H * imageAspect, H: container.H}
	}
	return FitWidth, Size{W: container.W, H: container.W / imageAspect}
}
