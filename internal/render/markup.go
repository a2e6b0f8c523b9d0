/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"bytes"
	"fmt"
	"html"

	"photolayout/internal/geometry"
)

func mm(v float64) string { return geometry.FormatNumber(v) + "mm" }

// PageMarkup renders one page. The output is identical for every target and
// carries data attributes only; event wiring belongs to the host. Which page
// is current is a stylesheet concern, see Document.
func PageMarkup(p PageLayout) string {
	var b bytes.Buffer
	writePage(&b, p)
	return b.String()
}

// Markup renders all pages in order.
func Markup(pages []PageLayout) string {
	var b bytes.Buffer
	for _, p := range pages {
		writePage(&b, p)
	}
	return b.String()
}

func writePage(b *bytes.Buffer, p PageLayout) {
	fmt.Fprintf(b, `<div class="a4-page" data-page="%d" style="width: %s; height: %s;">`+"\n",
		p.Number, mm(p.Size.W), mm(p.Size.H))
	for _, c := range p.Cards {
		writeCard(b, c)
	}
	b.WriteString("</div>\n")
}

func writeCard(b *bytes.Buffer, c CardLayout) {
	class := "photo-placeholder"
	if c.Image == nil {
		class += " empty"
	}
	id := html.EscapeString(c.ID)
	fmt.Fprintf(b, `<div class="%s" id="%s" data-card="%s" style="left: %s; top: %s; width: %s; height: %s;">`,
		class, id, id, mm(c.Rect.X), mm(c.Rect.Y), mm(c.Rect.W), mm(c.Rect.H))
	if img := c.Image; img != nil {
		fmt.Fprintf(b, `<div class="image-container"><img src="%s" alt="" data-fit="%s" style="%s transform: %s;"></div>`,
			html.EscapeString(img.Src), img.Fit, img.Fit.CSS(), img.Transform)
	}
	b.WriteString("</div>\n")
}
