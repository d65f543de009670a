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

// Package tracer describes the contract of the external vector tracer:
// the option schema, its validation, and adapters which invoke a tracer.
package tracer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Options is the immutable parameter set of a single trace.
type Options struct {
	// PathOmit drops paths with fewer than this many points.
	PathOmit int `json:"pathomit"`

	// NumberOfColors is the palette size used for colour quantisation.
	NumberOfColors int `json:"numberofcolors"`

	// LTres and QTres are the error tolerances for straight line and
	// quadratic spline fitting.
	LTres float64 `json:"ltres"`
	QTres float64 `json:"qtres"`

	// MinColorRatio drops palette colours covering less than this fraction
	// of the image area.
	MinColorRatio float64 `json:"mincolorratio"`

	// LineFilter merges near-duplicate line segments.
	LineFilter bool `json:"linefilter"`

	// RightAngleEnhance snaps corners which are nearly right angles.
	RightAngleEnhance bool `json:"rightangleenhance"`

	// Blur is the pre-trace blur radius in pixels. It is applied while
	// decoding and passed to the tracer only for bookkeeping.
	Blur float64 `json:"blur"`
}

// DefaultOptions returns the option set used when the user has not
// changed any parameter.
func DefaultOptions() Options {
	return Options{
		PathOmit:          8,
		NumberOfColors:    16,
		LTres:             1,
		QTres:             1,
		MinColorRatio:     0.02,
		LineFilter:        false,
		RightAngleEnhance: true,
		Blur:              0,
	}
}

// InvalidOptionError reports an option outside its domain.
type InvalidOptionError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option %s=%v: %s", e.Name, e.Value, e.Reason)
}

// Validate checks every option against its domain. All violations are
// reported, joined into a single error.
func (o Options) Validate() error {
	var errs []error
	if o.PathOmit < 0 {
		errs = append(errs, &InvalidOptionError{"pathomit", o.PathOmit, "must be non-negative"})
	}
	if o.NumberOfColors < 2 {
		errs = append(errs, &InvalidOptionError{"numberofcolors", o.NumberOfColors, "must be at least 2"})
	}
	if !(o.LTres > 0) || math.IsInf(o.LTres, 0) {
		errs = append(errs, &InvalidOptionError{"ltres", o.LTres, "must be positive"})
	}
	if !(o.QTres > 0) || math.IsInf(o.QTres, 0) {
		errs = append(errs, &InvalidOptionError{"qtres", o.QTres, "must be positive"})
	}
	if !(o.MinColorRatio >= 0 && o.MinColorRatio <= 1) {
		errs = append(errs, &InvalidOptionError{"mincolorratio", o.MinColorRatio, "must be in [0, 1]"})
	}
	if !(o.Blur >= 0) || math.IsInf(o.Blur, 0) {
		errs = append(errs, &InvalidOptionError{"blur", o.Blur, "must be non-negative"})
	}
	return errors.Join(errs...)
}

// Args renders the options as "--name=value" command line flags, in a
// fixed order.
func (o Options) Args() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		"--pathomit=" + strconv.Itoa(o.PathOmit),
		"--numberofcolors=" + strconv.Itoa(o.NumberOfColors),
		"--ltres=" + f(o.LTres),
		"--qtres=" + f(o.QTres),
		"--mincolorratio=" + f(o.MinColorRatio),
		"--linefilter=" + strconv.FormatBool(o.LineFilter),
		"--rightangleenhance=" + strconv.FormatBool(o.RightAngleEnhance),
		"--blur=" + f(o.Blur),
	}
}

// Set assigns the option called name from its string form. It is used
// for command line overrides.
func (o *Options) Set(name, value string) error {
	var err error
	switch name {
	case "pathomit":
		o.PathOmit, err = strconv.Atoi(value)
	case "numberofcolors":
		o.NumberOfColors, err = strconv.Atoi(value)
	case "ltres":
		o.LTres, err = strconv.ParseFloat(value, 64)
	case "qtres":
		o.QTres, err = strconv.ParseFloat(value, 64)
	case "mincolorratio":
		o.MinColorRatio, err = strconv.ParseFloat(value, 64)
	case "linefilter":
		o.LineFilter, err = strconv.ParseBool(value)
	case "rightangleenhance":
		o.RightAngleEnhance, err = strconv.ParseBool(value)
	case "blur":
		o.Blur, err = strconv.ParseFloat(value, 64)
	default:
		return fmt.Errorf("unknown option %q", name)
	}
	if err != nil {
		return &InvalidOptionError{Name: name, Value: value, Reason: err.Error()}
	}
	return nil
}
