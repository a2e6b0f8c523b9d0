/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package preview drives the print preview: captured page snapshots,
// page navigation, zoom and fit-to-screen.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"photolayout/internal/geometry"
	applog "photolayout/internal/log"
)

const (
	MinZoom = 25.0
	MaxZoom = 200.0
	// DefaultPadding is subtracted from the container width before fitting.
	DefaultPadding = 40.0
)

// pageWidthPx is the A4 sheet width in device pixels.
var pageWidthPx = geometry.MMToPx(geometry.A4WidthMM)

// State is a read-only view of the controller.
type State struct {
	Auto           bool    // fit-to-screen mode
	Zoom           float64 // explicit percent; meaningless while Auto
	Scale          float64 // scale applied to the shown page
	Index          int     // shown page, 0-based
	Count          int
	ContainerWidth float64
}

// Options configure a Controller.
type Options struct {
	// Padding is removed from the container width when fitting; negative means none.
	Padding float64
	// OnChange, when set, is called after every state change outside the lock.
	OnChange func(State)
	Logger   *slog.Logger
}

// Controller is the print-preview state machine. It is safe for use from
// the UI goroutine and a resize watcher at the same time.
type Controller struct {
	padding  float64
	onChange func(State)
	log      *slog.Logger

	mu             sync.Mutex
	pages          []CapturedPage
	index          int
	auto           bool
	zoom           float64
	scale          float64
	containerWidth float64
}

func NewController(opts Options) *Controller {
	pad := opts.Padding
	if pad == 0 {
		pad = DefaultPadding
	}
	if pad < 0 {
		pad = 0
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("preview")
	}
	return &Controller{padding: pad, onChange: opts.OnChange, log: l, zoom: 100, scale: 1}
}

func (c *Controller) stateLocked() State {
	return State{
		Auto:           c.auto,
		Zoom:           c.zoom,
		Scale:          c.scale,
		Index:          c.index,
		Count:          len(c.pages),
		ContainerWidth: c.containerWidth,
	}
}

// State returns a snapshot of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) notify(st State) {
	if c.onChange != nil {
		c.onChange(st)
	}
}

// SetPages replaces the captured pages and shows the first one.
func (c *Controller) SetPages(pages []CapturedPage) {
	c.mu.Lock()
	c.pages = append([]CapturedPage(nil), pages...)
	c.index = 0
	c.showLocked()
	st := c.stateLocked()
	c.mu.Unlock()
	c.log.Debug("preview pages set", slog.Int("count", st.Count))
	c.notify(st)
}

// Pages returns the captured pages.
func (c *Controller) Pages() []CapturedPage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CapturedPage(nil), c.pages...)
}

// Current returns the shown page.
func (c *Controller) Current() (CapturedPage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index < 0 || c.index >= len(c.pages) {
		return CapturedPage{}, false
	}
	return c.pages[c.index], true
}

// showLocked re-applies the current zoom or fit to the shown page only.
func (c *Controller) showLocked() {
	if c.auto {
		c.fitLocked()
		return
	}
	c.scale = c.zoom / 100
}

// NavigatePage moves by dir pages. Moves outside [0, count-1] are ignored.
func (c *Controller) NavigatePage(dir int) bool {
	c.mu.Lock()
	next := c.index + dir
	if dir == 0 || next < 0 || next >= len(c.pages) {
		c.mu.Unlock()
		return false
	}
	c.index = next
	c.showLocked()
	st := c.stateLocked()
	c.mu.Unlock()
	c.notify(st)
	return true
}

func (c *Controller) CanPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index > 0
}

func (c *Controller) CanNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index < len(c.pages)-1
}

// PageIndicator is the "Page i of n" label.
func (c *Controller) PageIndicator() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.pages)
	i := c.index + 1
	if n == 0 {
		i, n = 1, 1
	}
	return fmt.Sprintf("Page %d of %d", i, n)
}

// ZoomLabel is the applied scale as a rounded percentage.
func (c *Controller) ZoomLabel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%d%%", int(math.Round(c.scale*100)))
}

// Zoom changes the explicit zoom by delta percent, clamped to [25,200].
// Leaving fit-to-screen first adopts the scale that is currently shown.
func (c *Controller) Zoom(delta float64) {
	c.mu.Lock()
	if c.auto {
		c.zoom = math.Round(c.scale * 100)
		c.auto = false
	}
	cur := c.zoom
	if cur <= 0 {
		cur = 100
	}
	next := math.Max(MinZoom, math.Min(MaxZoom, cur+delta))
	changed := next != c.zoom || c.scale != next/100
	c.zoom = next
	c.scale = next / 100
	st := c.stateLocked()
	c.mu.Unlock()
	if changed {
		c.notify(st)
	}
}

// SetZoom selects an explicit zoom percent, clamped to [25,200].
func (c *Controller) SetZoom(percent float64) {
	c.mu.Lock()
	c.auto = false
	c.zoom = math.Max(MinZoom, math.Min(MaxZoom, percent))
	c.scale = c.zoom / 100
	st := c.stateLocked()
	c.mu.Unlock()
	c.notify(st)
}

// FitToScreen switches to auto mode and scales one page width to the container.
func (c *Controller) FitToScreen() {
	c.mu.Lock()
	c.auto = true
	c.fitLocked()
	st := c.stateLocked()
	c.mu.Unlock()
	c.notify(st)
}

func (c *Controller) fitLocked() {
	w := c.containerWidth - c.padding
	if w <= 0 {
		return
	}
	c.scale = w / pageWidthPx
}

// OnResize records a new container width and re-fits when in auto mode.
func (c *Controller) OnResize(width float64) {
	c.mu.Lock()
	c.containerWidth = width
	refit := c.auto
	if refit {
		c.fitLocked()
	}
	st := c.stateLocked()
	c.mu.Unlock()
	if refit {
		c.notify(st)
	}
}

// Watch feeds container widths from resizes into OnResize until ctx is done
// or the channel closes.
func (c *Controller) Watch(ctx context.Context, resizes <-chan float64) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case w, ok := <-resizes:
			if !ok {
				return nil
			}
			c.OnResize(w)
		}
	}
}
