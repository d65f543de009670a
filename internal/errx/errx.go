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

// Package errx defines the error taxonomy shared by the conversion
// pipeline, the quota coordinator and the workbench.
package errx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for user-facing reporting.
type Kind int

const (
	KindUnknown Kind = iota
	KindDecode
	KindMalformedVector
	KindQuotaExceeded
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindMalformedVector:
		return "malformed-vector"
	case KindQuotaExceeded:
		return "quota-exceeded"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// DecodeError reports an image payload which could not be decoded.
type DecodeError struct {
	MIMEType string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.MIMEType != "" {
		return fmt.Sprintf("decode %s image: %v", e.MIMEType, e.Err)
	}
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MalformedVectorError reports tracer output without a usable root element.
// Retrying with the same parameters gives the same result.
type MalformedVectorError struct {
	Err error
}

func (e *MalformedVectorError) Error() string {
	return fmt.Sprintf("malformed vector markup: %v", e.Err)
}

func (e *MalformedVectorError) Unwrap() error { return e.Err }

// QuotaExceededError reports an exhausted daily allowance. It is never
// retried automatically.
type QuotaExceededError struct {
	// Action is "export" or "conversion".
	Action     string
	UserType   string
	DailyLimit int
	Remaining  int
}

func (e *QuotaExceededError) Error() string {
	action := e.Action
	if action == "" {
		action = "export"
	}
	if e.DailyLimit > 0 {
		return fmt.Sprintf("daily %s limit of %d reached for %s account (%d remaining)",
			action, e.DailyLimit, e.UserType, e.Remaining)
	}
	return fmt.Sprintf("daily %s limit reached for %s account (%d remaining)",
		action, e.UserType, e.Remaining)
}

// Status returns the HTTP status code the backend used for this condition.
func (e *QuotaExceededError) Status() int { return http.StatusTooManyRequests }

// NetworkError reports a failed call to the quota backend.
type NetworkError struct {
	Op     string
	Status int // zero if no response was received
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UnknownError wraps any other failure of a conversion step.
type UnknownError struct {
	Step string
	Err  error
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *UnknownError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var (
		decode    *DecodeError
		malformed *MalformedVectorError
		quota     *QuotaExceededError
		network   *NetworkError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &quota):
		return KindQuotaExceeded
	case errors.As(err, &decode):
		return KindDecode
	case errors.As(err, &malformed):
		return KindMalformedVector
	case errors.As(err, &network):
		return KindNetwork
	default:
		return KindUnknown
	}
}

// Message renders err as the single message shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindDecode:
		return "The image could not be read. Please upload a PNG, JPEG, GIF, WebP, BMP or TIFF file."
	case KindMalformedVector:
		return "The conversion failed. Try different settings."
	case KindQuotaExceeded:
		var q *QuotaExceededError
		errors.As(err, &q)
		return q.Error()
	case KindNetwork:
		return "The server could not be reached. Some information may be out of date."
	default:
		return "Something went wrong during conversion."
	}
}
