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

package pipeline

// State is a step of a conversion run.
type State int

const (
	Idle State = iota
	Decoding
	Tracing
	Normalizing
	Rasterizing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Decoding:
		return "decoding"
	case Tracing:
		return "tracing"
	case Normalizing:
		return "normalizing"
	case Rasterizing:
		return "rasterizing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "invalid"
	}
}

// Percent returns the progress shown on entry to s.
func (s State) Percent() int {
	switch s {
	case Decoding:
		return 10
	case Tracing:
		return 30
	case Normalizing:
		return 70
	case Rasterizing:
		return 85
	case Ready:
		return 100
	default:
		return 0
	}
}

// Progress is reported to the observer on every state change of a run.
// Err is set for the Failed state only.
type Progress struct {
	State   State
	Percent int
	Err     error
}
