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

package errx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("boom")
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", cause, KindUnknown},
		{"decode", &DecodeError{Err: cause}, KindDecode},
		{"wrapped decode", fmt.Errorf("step: %w", &DecodeError{Err: cause}), KindDecode},
		{"malformed", &MalformedVectorError{Err: cause}, KindMalformedVector},
		{"quota", &QuotaExceededError{UserType: "guest"}, KindQuotaExceeded},
		{"network", &NetworkError{Op: "fetch", Err: cause}, KindNetwork},
		{"unknown", &UnknownError{Step: "trace", Err: cause}, KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	for _, err := range []error{
		&DecodeError{Err: cause},
		&MalformedVectorError{Err: cause},
		&NetworkError{Op: "op", Err: cause},
		&UnknownError{Step: "s", Err: cause},
	} {
		assert.ErrorIs(t, err, cause)
	}
}

func TestQuotaMessage(t *testing.T) {
	err := &QuotaExceededError{UserType: "guest", DailyLimit: 3, Remaining: 0}
	msg := Message(fmt.Errorf("export: %w", err))
	require.Contains(t, msg, "3")
	require.Contains(t, msg, "guest")
	require.Contains(t, msg, "0 remaining")
}

func TestMessageEmptyForNil(t *testing.T) {
	assert.Empty(t, Message(nil))
	assert.NotEmpty(t, Message(errors.New("x")))
}
