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

// Package debounce collapses bursts of events into a single action which
// runs once the events have stopped for a quiet period.
package debounce

import (
	"sync"
	"time"
)

// QuietPeriod is the pause after the last parameter edit before the
// parameters count as settled.
const QuietPeriod = 300 * time.Millisecond

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock makes the Debouncer use c instead of the wall clock.
func WithClock(c Clock) Option {
	return func(d *Debouncer) {
		d.clock = c
	}
}

// Debouncer runs a function once no Trigger call has happened for the
// quiet period. Each Trigger restarts the period.
//
// A Debouncer is safe for concurrent use. The function runs on the
// clock's callback goroutine, without any lock held.
type Debouncer struct {
	quiet time.Duration
	fn    func()
	clock Clock

	mu    sync.Mutex
	timer Timer
	gen   uint64
}

// New returns a Debouncer which calls fn after the quiet period.
func New(quiet time.Duration, fn func(), opts ...Option) *Debouncer {
	d := &Debouncer{
		quiet: quiet,
		fn:    fn,
		clock: RealClock{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Trigger (re)starts the quiet period. Any earlier scheduled call is
// dropped.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.quiet, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.timer == nil {
		// superseded by a later Trigger or Cancel
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

// Cancel drops the scheduled call, if any, and reports whether there was
// one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
