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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDebouncerCoalescesBurst(t *testing.T) {
	clock := NewManualClock(epoch)
	var calls int
	d := New(QuietPeriod, func() { calls++ }, WithClock(clock))

	for i := 0; i < 10; i++ {
		d.Trigger()
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 0, calls)
	assert.True(t, d.Pending())

	clock.Advance(199 * time.Millisecond)
	assert.Equal(t, 0, calls)
	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.False(t, d.Pending())

	clock.Advance(time.Hour)
	assert.Equal(t, 1, calls)
}

func TestDebouncerCancel(t *testing.T) {
	clock := NewManualClock(epoch)
	var calls int
	d := New(QuietPeriod, func() { calls++ }, WithClock(clock))

	assert.False(t, d.Cancel())
	d.Trigger()
	assert.True(t, d.Cancel())
	assert.False(t, d.Pending())
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(time.Second)
	assert.Equal(t, 0, calls)

	d.Trigger()
	clock.Advance(time.Second)
	assert.Equal(t, 1, calls)
}

func TestDebouncerStaleFireIgnored(t *testing.T) {
	// a clock whose Stop never succeeds, like a timer that already fired
	clock := &leakyClock{ManualClock: NewManualClock(epoch)}
	var calls int
	d := New(QuietPeriod, func() { calls++ }, WithClock(clock))

	d.Trigger()
	clock.Advance(100 * time.Millisecond)
	d.Trigger()
	clock.Advance(QuietPeriod)
	assert.Equal(t, 1, calls)
}

type leakyClock struct {
	*ManualClock
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (c *leakyClock) AfterFunc(d time.Duration, f func()) Timer {
	c.ManualClock.AfterFunc(d, f)
	return leakyTimer{}
}

func TestDebouncerRealClock(t *testing.T) {
	done := make(chan struct{})
	d := New(5*time.Millisecond, func() { close(done) })
	d.Trigger()
	d.Trigger()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced function did not run")
	}
}

func TestManualClockOrder(t *testing.T) {
	clock := NewManualClock(epoch)
	var order []int
	clock.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	clock.AfterFunc(time.Second, func() {
		order = append(order, 1)
		clock.AfterFunc(500*time.Millisecond, func() { order = append(order, 15) })
	})
	clock.Advance(3 * time.Second)
	assert.Equal(t, []int{1, 15, 2}, order)
	assert.Equal(t, epoch.Add(3*time.Second), clock.Now())
}

type record struct {
	Colors int
	Blur   float64
}

func TestParamsSingleSettleAfterBurst(t *testing.T) {
	clock := NewManualClock(epoch)
	var transitions []bool
	p := NewParams(record{Colors: 16}, QuietPeriod, func(adjusting bool) {
		transitions = append(transitions, adjusting)
	}, WithClock(clock))

	const n = 25
	for i := 0; i < n; i++ {
		p.Apply(func(r *record) { r.Colors = 2 + i })
		assert.True(t, p.Adjusting())
		assert.Equal(t, 2+i, p.Value().Colors, "edits apply immediately")
		clock.Advance(50 * time.Millisecond)
	}
	clock.Advance(QuietPeriod)

	assert.False(t, p.Adjusting())
	assert.Equal(t, []bool{true, false}, transitions)
	assert.Equal(t, 2+n-1, p.Value().Colors)
}

func TestParamsSeparateBursts(t *testing.T) {
	clock := NewManualClock(epoch)
	var falls atomic.Int32
	p := NewParams(0, QuietPeriod, func(adjusting bool) {
		if !adjusting {
			falls.Add(1)
		}
	}, WithClock(clock))

	p.Set(1)
	clock.Advance(QuietPeriod)
	p.Set(2)
	p.Set(3)
	clock.Advance(QuietPeriod)
	assert.Equal(t, int32(2), falls.Load())
	assert.Equal(t, 3, p.Value())
}

func TestParamsReset(t *testing.T) {
	clock := NewManualClock(epoch)
	var calls int
	p := NewParams(1, QuietPeriod, func(bool) { calls++ }, WithClock(clock))

	p.Set(5)
	require.Equal(t, 1, calls)
	p.Reset(7)
	assert.False(t, p.Adjusting())
	assert.Equal(t, 7, p.Value())

	clock.Advance(time.Second)
	assert.Equal(t, 1, calls, "reset settles silently")
}

func TestParamsLateSettleAfterNewEdit(t *testing.T) {
	clock := NewManualClock(epoch)
	var transitions []bool
	p := NewParams(0, QuietPeriod, func(adjusting bool) {
		transitions = append(transitions, adjusting)
	}, WithClock(clock))

	// A timer callback which has already passed the generation check
	// runs settle only after the next edit rescheduled the timer.
	p.Set(1)
	p.Set(2)
	p.settle()
	assert.True(t, p.Adjusting())
	assert.Equal(t, []bool{true}, transitions)

	clock.Advance(QuietPeriod)
	assert.False(t, p.Adjusting())
	assert.Equal(t, []bool{true, false}, transitions)
}
