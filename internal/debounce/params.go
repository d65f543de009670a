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

package debounce

import (
	"sync"
	"time"
)

// Params holds a parameter set which the user edits interactively.
//
// Every edit is applied immediately and marks the parameters as
// adjusting. Once no edit has happened for the quiet period, the
// parameters are settled again. A burst of edits therefore causes exactly
// one transition to adjusting and one transition back.
//
// Settling never starts a conversion; the adjusting flag only selects
// which layer the viewer shows.
type Params[T any] struct {
	mu        sync.Mutex
	value     T
	adjusting bool
	onChange  func(adjusting bool)

	deb *Debouncer
}

// NewParams returns a settled parameter set. If onChange is not nil, it is
// called for every change of the adjusting flag.
func NewParams[T any](initial T, quiet time.Duration, onChange func(adjusting bool), opts ...Option) *Params[T] {
	p := &Params[T]{
		value:    initial,
		onChange: onChange,
	}
	p.deb = New(quiet, p.settle, opts...)
	return p
}

// Apply runs mutate on the working value.
func (p *Params[T]) Apply(mutate func(*T)) {
	p.mu.Lock()
	mutate(&p.value)
	started := !p.adjusting
	p.adjusting = true
	p.deb.Trigger()
	p.mu.Unlock()

	if started && p.onChange != nil {
		p.onChange(true)
	}
}

// Set replaces the working value.
func (p *Params[T]) Set(v T) {
	p.Apply(func(t *T) { *t = v })
}

// Value returns a copy of the working value.
func (p *Params[T]) Value() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Adjusting reports whether an edit happened within the quiet period.
func (p *Params[T]) Adjusting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.adjusting
}

// Reset replaces the value and settles immediately, without a
// notification. It is used when a new image is loaded.
func (p *Params[T]) Reset(v T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deb.Cancel()
	p.value = v
	p.adjusting = false
}

func (p *Params[T]) settle() {
	p.mu.Lock()
	// An edit may have slipped in after the timer fired.
	if !p.adjusting || p.deb.Pending() {
		p.mu.Unlock()
		return
	}
	p.adjusting = false
	p.mu.Unlock()

	if p.onChange != nil {
		p.onChange(false)
	}
}
