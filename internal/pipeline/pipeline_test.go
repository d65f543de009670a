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

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seehuhn.de/go/vectorize/internal/errx"
	"seehuhn.de/go/vectorize/internal/pixels"
	"seehuhn.de/go/vectorize/internal/tracer"
	logx "seehuhn.de/go/vectorize/pkg/logger"
)

func TestMain(m *testing.M) {
	logx.Disable()
	os.Exit(m.Run())
}

func pngSource(t *testing.T, w, h int) pixels.Source {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return pixels.Source{Data: buf.Bytes(), MIMEType: "image/png", Name: "test.png"}
}

// boxes returns a tracer which emits one rectangle per palette colour and
// ignores the image content.
func boxes() tracer.Func {
	return func(_ context.Context, img image.Image, opts tracer.Options) (string, error) {
		b := img.Bounds()
		var sb strings.Builder
		sb.WriteString(`<svg xmlns="http://www.w3.org/2000/svg">`)
		for i := 0; i < opts.NumberOfColors; i++ {
			fmt.Fprintf(&sb, `<path fill="#%02x0000" d="M0 0H%dV%dH0Z"/>`, i*10, b.Dx()-i, b.Dy())
		}
		sb.WriteString(`</svg>`)
		return sb.String(), nil
	}
}

func request(t *testing.T) Request {
	opts := tracer.DefaultOptions()
	opts.NumberOfColors = 4
	return Request{Source: pngSource(t, 40, 20), Options: opts}
}

func TestGenerateProducesResult(t *testing.T) {
	var seen []Progress
	p := New(Config{
		Tracer:   boxes(),
		Observer: func(pr Progress) { seen = append(seen, pr) },
	})

	res, err := p.Generate(context.Background(), request(t))
	require.NoError(t, err)

	assert.Equal(t, pixels.Size{Width: 40, Height: 20}, res.NaturalSize)
	assert.Equal(t, 4, res.PathCount)
	assert.Contains(t, res.VectorMarkup, `viewBox="0 0 40 20"`)
	assert.True(t, strings.HasPrefix(res.RasterProxy, "data:image/png;base64,"))
	assert.Same(t, res, p.Current())
	assert.Equal(t, 1, p.Completed())
	assert.Equal(t, Idle, p.State())

	var states []State
	var percents []int
	for _, pr := range seen {
		states = append(states, pr.State)
		percents = append(percents, pr.Percent)
		assert.NoError(t, pr.Err)
	}
	assert.Equal(t, []State{Decoding, Tracing, Normalizing, Rasterizing, Ready, Idle}, states)
	assert.Equal(t, []int{10, 30, 70, 85, 100, 0}, percents)
}

func TestOverlappingGenerateIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slow := tracer.Func(func(ctx context.Context, img image.Image, opts tracer.Options) (string, error) {
		close(started)
		<-release
		return boxes()(ctx, img, opts)
	})
	p := New(Config{Tracer: slow})
	req := request(t)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = p.Generate(context.Background(), req)
	}()

	<-started
	assert.True(t, p.Busy())
	assert.Equal(t, Tracing, p.State())
	for i := 0; i < 5; i++ {
		res, err := p.Generate(context.Background(), req)
		assert.ErrorIs(t, err, ErrRunInFlight)
		assert.Nil(t, res)
	}
	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, 1, p.Completed())
	assert.False(t, p.Busy())

	// a non-overlapping call runs again
	fast := New(Config{Tracer: boxes()})
	for i := 0; i < 3; i++ {
		_, err := fast.Generate(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fast.Completed())
}

func TestFailureKeepsPreviousResult(t *testing.T) {
	var markup string
	tr := tracer.Func(func(ctx context.Context, img image.Image, opts tracer.Options) (string, error) {
		if markup != "" {
			return markup, nil
		}
		return boxes()(ctx, img, opts)
	})
	var last Progress
	p := New(Config{Tracer: tr, Observer: func(pr Progress) {
		if pr.State == Failed {
			last = pr
		}
	}})

	good, err := p.Generate(context.Background(), request(t))
	require.NoError(t, err)

	markup = "<not svg"
	_, err = p.Generate(context.Background(), request(t))
	require.Error(t, err)
	assert.Equal(t, errx.KindMalformedVector, errx.KindOf(err))
	assert.Equal(t, Failed, last.State)
	assert.ErrorIs(t, last.Err, err)
	assert.Same(t, good, p.Current())

	req := request(t)
	req.Source.Data = req.Source.Data[:10]
	_, err = p.Generate(context.Background(), req)
	assert.Equal(t, errx.KindDecode, errx.KindOf(err))
	assert.Same(t, good, p.Current())
	assert.Equal(t, 1, p.Completed())
	assert.Equal(t, Idle, p.State())
}

func TestTracerErrorIsUnknown(t *testing.T) {
	boom := errors.New("boom")
	p := New(Config{Tracer: tracer.Func(func(context.Context, image.Image, tracer.Options) (string, error) {
		return "", boom
	})})
	_, err := p.Generate(context.Background(), request(t))

	var unknown *errx.UnknownError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "trace", unknown.Step)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, p.Current())
}

func TestInvalidOptionsRejected(t *testing.T) {
	var states []State
	gated := 0
	p := New(Config{
		Tracer:   boxes(),
		Observer: func(pr Progress) { states = append(states, pr.State) },
		Gate: gateFunc(func(context.Context, string, int) error {
			gated++
			return nil
		}),
	})
	req := request(t)
	req.Options.NumberOfColors = 1
	_, err := p.Generate(context.Background(), req)
	assert.Equal(t, errx.KindUnknown, errx.KindOf(err))

	var opt *tracer.InvalidOptionError
	assert.ErrorAs(t, err, &opt)
	assert.Equal(t, []State{Decoding, Failed, Idle}, states, "failure is entered from a running state")
	assert.Zero(t, gated, "nothing is logged for a request that cannot run")

	states = nil
	_, err = New(Config{Observer: func(pr Progress) { states = append(states, pr.State) }}).
		Generate(context.Background(), request(t))
	assert.Equal(t, errx.KindUnknown, errx.KindOf(err))
	assert.Equal(t, []State{Decoding, Failed, Idle}, states)
}

type gateFunc func(ctx context.Context, filename string, size int) error

func (f gateFunc) AllowConversion(ctx context.Context, filename string, size int) error {
	return f(ctx, filename, size)
}

func TestGateBlocksConversion(t *testing.T) {
	traced := 0
	tr := tracer.Func(func(ctx context.Context, img image.Image, opts tracer.Options) (string, error) {
		traced++
		return boxes()(ctx, img, opts)
	})

	var gotName string
	var gotSize int
	exceeded := &errx.QuotaExceededError{Action: "conversion", UserType: "user", Remaining: 0}
	p := New(Config{Tracer: tr, Gate: gateFunc(func(_ context.Context, name string, size int) error {
		gotName, gotSize = name, size
		return exceeded
	})})

	req := request(t)
	_, err := p.Generate(context.Background(), req)
	assert.Equal(t, errx.KindQuotaExceeded, errx.KindOf(err))
	assert.Zero(t, traced)
	assert.Equal(t, "test.png", gotName)
	assert.Equal(t, len(req.Source.Data), gotSize)
}

func TestProxyFailureIsSoft(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the context is cancelled after tracing, so only rasterisation sees it
	tr := tracer.Func(func(c context.Context, img image.Image, opts tracer.Options) (string, error) {
		cancel()
		return boxes()(c, img, opts)
	})
	p := New(Config{Tracer: tr})

	res, err := p.Generate(ctx, request(t))
	require.NoError(t, err)
	assert.Empty(t, res.RasterProxy)
	assert.NotEmpty(t, res.VectorMarkup)
	assert.Same(t, res, p.Current())
}

func TestStateStrings(t *testing.T) {
	for s := Idle; s <= Failed; s++ {
		assert.NotEqual(t, "invalid", s.String())
	}
	assert.Equal(t, "invalid", State(42).String())
}
