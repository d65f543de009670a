// seehuhn.de/go/vectorize - interactive raster to vector conversion
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package viewport implements the pan and zoom state of the preview.
//
// The content is a square of the frame's size, scaled by the zoom factor
// and shifted by the pan offset, with its origin at the frame's top left
// corner. The pan offset is clamped after every change so that the
// content always overlaps the frame by the border margin.
package viewport

import (
	"math"
	"sync"
	"time"

	"seehuhn.de/go/geom/matrix"

	"seehuhn.de/go/vectorize/internal/debounce"
)

const (
	MinZoom  = 0.2
	MaxZoom  = 5.0
	ZoomStep = 0.1

	// DefaultFrameSize is the edge length of the square preview frame.
	DefaultFrameSize = 500.0

	// DefaultBorder is the minimum overlap between content and frame.
	DefaultBorder = 50.0

	// RenderDelay is the pause after the last gesture event before the
	// vector layer is laid out again.
	RenderDelay = 200 * time.Millisecond
)

// Point is a position or offset in frame pixels.
type Point struct {
	X, Y float64
}

// State is the zoom and pan of the viewer.
type State struct {
	Zoom float64
	Pan  Point
}

// Home is the state after a reset.
var Home = State{Zoom: 1}

// Matrix returns the transform from content coordinates to frame
// coordinates.
func (s State) Matrix() matrix.Matrix {
	return matrix.Matrix{s.Zoom, 0, 0, s.Zoom, s.Pan.X, s.Pan.Y}
}

// Mode is the gesture state of the controller.
type Mode int

const (
	Idle Mode = iota
	Dragging
)

func (m Mode) String() string {
	if m == Dragging {
		return "dragging"
	}
	return "idle"
}

// Config holds the geometry and timing of a Controller.
type Config struct {
	FrameSize   float64
	Border      float64
	RenderDelay time.Duration

	// Clock drives the delayed re-render. Nil means the wall clock.
	Clock debounce.Clock
}

func (c *Config) setDefaults() {
	if c.FrameSize <= 0 {
		c.FrameSize = DefaultFrameSize
	}
	if c.Border < 0 {
		c.Border = 0
	} else if c.Border == 0 {
		c.Border = DefaultBorder
	}
	if c.RenderDelay <= 0 {
		c.RenderDelay = RenderDelay
	}
	if c.Clock == nil {
		c.Clock = debounce.RealClock{}
	}
}

// Controller owns the viewport state. It is safe for concurrent use.
type Controller struct {
	cfg Config

	mu     sync.Mutex
	state  State
	mode   Mode
	anchor Point // pointer position minus pan, while dragging

	render   *debounce.Debouncer
	onRender func(State)
}

// New returns a controller in the home state. onRender, if not nil, is
// called with the current state once gestures have paused for the render
// delay.
func New(cfg Config, onRender func(State)) *Controller {
	cfg.setDefaults()
	c := &Controller{
		cfg:      cfg,
		state:    Home,
		onRender: onRender,
	}
	c.render = debounce.New(cfg.RenderDelay, c.fireRender, debounce.WithClock(cfg.Clock))
	return c
}

func (c *Controller) fireRender() {
	if c.onRender == nil {
		return
	}
	c.onRender(c.State())
}

// State returns the current zoom and pan.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the current gesture state.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// RenderPending reports whether a delayed re-render is scheduled.
func (c *Controller) RenderPending() bool {
	return c.render.Pending()
}

// Interacting reports whether a drag is active or the vector layer is
// waiting for its delayed re-render.
func (c *Controller) Interacting() bool {
	return c.Mode() == Dragging || c.RenderPending()
}

// Config returns the controller's geometry and timing.
func (c *Controller) Config() Config {
	return c.cfg
}

// PointerDown starts a drag at frame position p.
func (c *Controller) PointerDown(p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = Dragging
	c.anchor = Point{X: p.X - c.state.Pan.X, Y: p.Y - c.state.Pan.Y}
}

// PointerMove moves the content with the pointer, if a drag is active.
func (c *Controller) PointerMove(p Point) {
	c.mu.Lock()
	if c.mode != Dragging {
		c.mu.Unlock()
		return
	}
	pan := c.clamp(Point{X: p.X - c.anchor.X, Y: p.Y - c.anchor.Y}, c.state.Zoom)
	changed := pan != c.state.Pan
	c.state.Pan = pan
	c.mu.Unlock()

	if changed {
		c.render.Trigger()
	}
}

// PointerUp ends a drag.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = Idle
}

// PointerLeave ends a drag when the pointer leaves the frame.
func (c *Controller) PointerLeave() {
	c.PointerUp()
}

// Wheel zooms by one step per event. A negative deltaY, scrolling up,
// zooms in.
func (c *Controller) Wheel(deltaY float64) {
	switch {
	case deltaY < 0:
		c.ZoomBy(ZoomStep)
	case deltaY > 0:
		c.ZoomBy(-ZoomStep)
	}
}

// ZoomBy changes the zoom by delta, clamped to [MinZoom, MaxZoom], and
// re-clamps the pan for the new zoom.
func (c *Controller) ZoomBy(delta float64) {
	c.mu.Lock()
	changed := c.zoomLocked(c.state.Zoom + delta)
	c.mu.Unlock()

	if changed {
		c.render.Trigger()
	}
}

// SetZoom sets the zoom, clamped to [MinZoom, MaxZoom] and rounded to the
// step size, and re-clamps the pan.
func (c *Controller) SetZoom(z float64) {
	c.mu.Lock()
	changed := c.zoomLocked(z)
	c.mu.Unlock()

	if changed {
		c.render.Trigger()
	}
}

func (c *Controller) zoomLocked(z float64) bool {
	z = ClampZoom(z)
	next := State{Zoom: z, Pan: c.clamp(c.state.Pan, z)}
	changed := next != c.state
	c.state = next
	return changed
}

// Reset returns to the home state from any state. It ends an active drag
// and cancels a pending re-render, without calling onRender.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.state = Home
	c.mode = Idle
	c.anchor = Point{}
	c.mu.Unlock()

	c.render.Cancel()
}

// ClampZoom limits z to [MinZoom, MaxZoom] and rounds it to one decimal,
// so that repeated steps do not accumulate rounding errors.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	z = math.Round(z*10) / 10
	return min(max(z, MinZoom), MaxZoom)
}

// clamp limits both pan coordinates for the given zoom.
func (c *Controller) clamp(p Point, zoom float64) Point {
	return Point{
		X: ClampPan(p.X, c.cfg.FrameSize, c.cfg.FrameSize*zoom, c.cfg.Border),
		Y: ClampPan(p.Y, c.cfg.FrameSize, c.cfg.FrameSize*zoom, c.cfg.Border),
	}
}

// ClampPan limits one pan coordinate to [frame-scaled-border, border].
// When the scaled content is so small that this interval is empty, the
// bounds swap and the content is kept inside the frame with the border
// margin.
func ClampPan(v, frame, scaled, border float64) float64 {
	lo := frame - scaled - border
	hi := border
	if lo > hi {
		lo, hi = hi, lo
	}
	if math.IsNaN(v) {
		return min(max(0, lo), hi)
	}
	return min(max(v, lo), hi)
}
