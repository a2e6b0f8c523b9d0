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
)

// Target selects the stylesheet wrapped around the page markup.
type Target int

const (
	TargetEditor Target = iota
	TargetPreview
	TargetPrint
)

func (t Target) String() string {
	switch t {
	case TargetPreview:
		return "preview"
	case TargetPrint:
		return "print"
	default:
		return "editor"
	}
}

// ParseTarget maps a name to a Target.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "editor", "":
		return TargetEditor, nil
	case "preview":
		return TargetPreview, nil
	case "print":
		return TargetPrint, nil
	}
	return TargetEditor, fmt.Errorf("unknown render target %q", s)
}

// PrintCSS is shared by every target. Sheets are absolutely laid out in mm
// and images transform around their own center.
const PrintCSS = `@page { size: A4; margin: 0; }
html, body { margin: 0; padding: 0; }
.a4-page { position: relative; overflow: hidden; margin: 0 auto; padding: 0; background: #fff; page-break-after: always; break-after: page; }
.photo-placeholder { position: absolute; box-sizing: border-box; overflow: hidden; }
.photo-placeholder .image-container { position: relative; width: 100%; height: 100%; overflow: hidden; }
.photo-placeholder img { position: absolute; left: 50%; top: 50%; max-width: none; transform-origin: center; }
`

var targetCSS = map[Target]string{
	TargetEditor: `body { background: #f0f0f0; }
.a4-page { box-shadow: 0 0 10px rgba(0,0,0,0.1); margin-bottom: 10mm; }
.photo-placeholder { border: 1px dashed #bbb; background: #fafafa; }
`,
	TargetPreview: `body { background: #808080; }
.a4-page { box-shadow: 0 0 10px rgba(0,0,0,0.3); margin-bottom: 10mm; transform-origin: top center; }
.photo-placeholder.empty { visibility: hidden; }
`,
	TargetPrint: `body { background: none; }
.photo-placeholder { border: none; }
.photo-placeholder.empty { visibility: hidden; }
@media print { .a4-page { margin: 0; box-shadow: none; } }
`,
}

// Stylesheet returns the complete CSS for a target.
func Stylesheet(t Target) string { return PrintCSS + targetCSS[t] }

// currentPageCSS hides every page but the current one in the editor.
func currentPageCSS(pages []PageLayout) string {
	for _, p := range pages {
		if p.Current {
			return fmt.Sprintf(".a4-page:not([data-page=\"%d\"]) { display: none; }\n", p.Number)
		}
	}
	return ""
}

// Document wraps the page markup into a standalone HTML document.
func Document(pages []PageLayout, t Target) string {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Photo Layout</title>\n<style>\n")
	b.WriteString(Stylesheet(t))
	if t == TargetEditor {
		b.WriteString(currentPageCSS(pages))
	}
	fmt.Fprintf(&b, "</style>\n</head>\n<body class=\"target-%s\">\n", t)
	b.WriteString(Markup(pages))
	b.WriteString("</body>\n</html>\n")
	return b.String()
}
