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

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seehuhn.de/go/vectorize/internal/quota"
)

func TestParseArgs(t *testing.T) {
	a, err := parseArgs([]string{"-in", "logo.png", "-format", "pdf", "-colors", "8", "-set", "pathomit=4"})
	require.NoError(t, err)
	assert.Equal(t, "logo.png", a.in)
	assert.Equal(t, "pdf", a.format)
	assert.Equal(t, 8, a.opts.NumberOfColors)
	assert.Equal(t, 4, a.opts.PathOmit)

	_, err = parseArgs(nil)
	assert.Error(t, err, "missing input")

	a, err = parseArgs([]string{"-quota"})
	require.NoError(t, err)
	assert.True(t, a.quotaOnly)

	_, err = parseArgs([]string{"-in", "x.png", "-set", "pathomit"})
	assert.Error(t, err)
}

func TestSniff(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, "image/png", sniff(png))
	assert.Equal(t, "", sniff([]byte("II*\x00")))
}

func TestGuestStore(t *testing.T) {
	ctx := context.Background()

	_, _, err := guestStore(ctx, &AppConfig{GuestStore: "redis"})
	assert.Error(t, err, "redis store without a URL")

	_, _, err = guestStore(ctx, &AppConfig{GuestStore: "cloud"})
	assert.Error(t, err)

	s, done, err := guestStore(ctx, &AppConfig{GuestStore: "memory"})
	require.NoError(t, err)
	done()
	require.NoError(t, s.Save(ctx, "g-1"))
	id, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "g-1", id)

	file := filepath.Join(t.TempDir(), "guest.json")
	s, _, err = guestStore(ctx, &AppConfig{GuestStore: "file", GuestStoreFile: file})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "g-2"))
	assert.FileExists(t, file)
}

func TestPrintQuota(t *testing.T) {
	var buf bytes.Buffer
	printQuota(&buf, quota.Fallback(quota.Guest))
	assert.Equal(t, "exports: quota unknown (guest)\n", buf.String())

	buf.Reset()
	printQuota(&buf, quota.Quota{UserType: quota.User, DailyLimit: 10, UsedToday: 4, Remaining: 6})
	assert.Equal(t, "exports: 6 of 10 left today (user)\n", buf.String())
}
