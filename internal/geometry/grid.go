/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// GridSpec describes the area a placeholder grid is laid into.
type GridSpec struct {
	Available Size    // page size minus margins
	Origin    Pt      // first placeholder corner, normally (left margin, top margin)
	Spacing   float64 // gap between placeholders
}

// GridDims returns how many columns and rows of card fit into the grid area.
func GridDims(g GridSpec, card Size) (cols, rows int) {
	if card.W <= 0 || card.H <= 0 || g.Available.W <= 0 || g.Available.H <= 0 {
		return 0, 0
	}
	cols = int(math.Floor((g.Available.W + g.Spacing) / (card.W + g.Spacing)))
	rows = int(math.Floor((g.Available.H + g.Spacing) / (card.H + g.Spacing)))
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	return cols, rows
}

// GridPlacement lays out card-sized placeholders row by row starting at the
// origin. A card that does not fit yields an empty result, not an error.
func GridPlacement(g GridSpec, card Size) []Rect {
	cols, rows := GridDims(g, card)
	if cols == 0 || rows == 0 {
		return nil
	}
	out := make([]Rect, 0, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			out = append(out, Rect{
				X: g.Origin.X + float64(col)*(card.W+g.Spacing),
				Y: g.Origin.Y + float64(row)*(card.H+g.Spacing),
				W: card.W,
				H: card.H,
			})
		}
	}
	return out
}
