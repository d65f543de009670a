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

// Package pipeline turns an uploaded image and a parameter set into a
// conversion result.
//
// A run decodes the image, calls the tracer, normalises the markup and
// renders the raster proxy. At most one run is in flight; a failed run
// leaves the previous result in place.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"seehuhn.de/go/vectorize/internal/errx"
	"seehuhn.de/go/vectorize/internal/pixels"
	"seehuhn.de/go/vectorize/internal/proxy"
	"seehuhn.de/go/vectorize/internal/svgdoc"
	"seehuhn.de/go/vectorize/internal/tracer"
	logx "seehuhn.de/go/vectorize/pkg/logger"
)

// ErrRunInFlight is returned by Generate while another run is active.
// The call has no other effect.
var ErrRunInFlight = errors.New("a conversion is already running")

// Request is the input of one run.
type Request struct {
	Source  pixels.Source
	Options tracer.Options
}

// Result is the output of a successful run. It is never modified after
// it has been returned.
type Result struct {
	VectorMarkup string
	// RasterProxy is a PNG data URI, or empty if the proxy could not be
	// rendered.
	RasterProxy string
	NaturalSize pixels.Size
	PathCount   int
}

// Gate decides whether a conversion may start. It returns a
// *errx.QuotaExceededError when the daily allowance is used up.
type Gate interface {
	AllowConversion(ctx context.Context, filename string, fileSize int) error
}

// Config holds the collaborators of a Pipeline. Tracer is required.
type Config struct {
	Tracer tracer.Tracer

	// Proxy renders the raster proxy. Nil means a renderer of
	// proxy.DefaultSize.
	Proxy *proxy.Renderer

	// Gate, if not nil, is consulted before every run.
	Gate Gate

	// Observer, if not nil, is called synchronously on every state change.
	Observer func(Progress)
}

// Pipeline runs conversions. It is safe for concurrent use.
type Pipeline struct {
	tracer   tracer.Tracer
	proxy    *proxy.Renderer
	gate     Gate
	observer func(Progress)

	sem       *semaphore.Weighted
	running   atomic.Bool
	state     atomic.Int32
	current   atomic.Pointer[Result]
	completed atomic.Int64
}

// New returns an idle pipeline without a result.
func New(cfg Config) *Pipeline {
	if cfg.Proxy == nil {
		cfg.Proxy = proxy.New(proxy.DefaultSize)
	}
	return &Pipeline{
		tracer:   cfg.Tracer,
		proxy:    cfg.Proxy,
		gate:     cfg.Gate,
		observer: cfg.Observer,
		sem:      semaphore.NewWeighted(1),
	}
}

// State returns the step of the active run, or Idle.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Busy reports whether a run is in flight.
func (p *Pipeline) Busy() bool {
	return p.running.Load()
}

// Current returns the result of the last successful run, or nil.
func (p *Pipeline) Current() *Result {
	return p.current.Load()
}

// Completed returns the number of successful runs.
func (p *Pipeline) Completed() int {
	return int(p.completed.Load())
}

// Generate performs one conversion run. If another run is in flight it
// returns ErrRunInFlight immediately. On success the result replaces the
// current one. On failure the current result is kept and the error is one
// of the errx types.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	if !p.sem.TryAcquire(1) {
		logx.Debug().Msg("generate ignored, conversion in flight")
		return nil, ErrRunInFlight
	}
	defer p.sem.Release(1)
	p.running.Store(true)
	defer p.running.Store(false)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.Generate",
		trace.WithAttributes(
			attribute.String("source.name", req.Source.Name),
			attribute.String("source.mime", req.Source.MIMEType),
			attribute.Int("source.bytes", len(req.Source.Data)),
		))
	defer span.End()

	res, err := p.run(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errx.KindOf(err).String())
		p.enter(Failed, err)
		p.enter(Idle, nil)
		return nil, err
	}

	p.current.Store(res)
	p.completed.Add(1)
	span.SetAttributes(attribute.Int("result.paths", res.PathCount))
	p.enter(Ready, nil)
	p.enter(Idle, nil)
	return res, nil
}

const tracerName = "seehuhn.de/go/vectorize/internal/pipeline"

func (p *Pipeline) run(ctx context.Context, req Request) (*Result, error) {
	sctx, span := p.stage(ctx, Decoding)
	if err := p.check(req); err != nil {
		endStage(span, err)
		return nil, err
	}
	if p.gate != nil {
		if err := p.gate.AllowConversion(sctx, req.Source.Name, len(req.Source.Data)); err != nil {
			endStage(span, err)
			return nil, err
		}
	}
	img, err := pixels.Decode(req.Source, req.Options.Blur)
	endStage(span, err)
	if err != nil {
		return nil, err
	}
	size := pixels.NaturalSize(img)

	sctx, span = p.stage(ctx, Tracing)
	markup, err := p.tracer.Trace(sctx, img, req.Options)
	if err != nil {
		err = &errx.UnknownError{Step: "trace", Err: err}
	}
	endStage(span, err)
	if err != nil {
		return nil, err
	}

	_, span = p.stage(ctx, Normalizing)
	doc, err := svgdoc.Normalize(markup, size.Width, size.Height)
	endStage(span, err)
	if err != nil {
		return nil, err
	}
	res := &Result{
		VectorMarkup: doc.String(),
		NaturalSize:  size,
		PathCount:    doc.PathCount(),
	}

	sctx, span = p.stage(ctx, Rasterizing)
	uri, err := p.proxy.Render(sctx, doc)
	endStage(span, err)
	if err != nil {
		logx.Warn().Err(err).Str("source", req.Source.Name).Msg("raster proxy failed, continuing without it")
	} else {
		res.RasterProxy = uri
	}
	return res, nil
}

// check rejects requests which cannot be traced.
func (p *Pipeline) check(req Request) error {
	if p.tracer == nil {
		return &errx.UnknownError{Step: "trace", Err: errors.New("no tracer configured")}
	}
	if err := req.Options.Validate(); err != nil {
		return &errx.UnknownError{Step: "options", Err: err}
	}
	return nil
}

// stage enters s and opens a child span for it.
func (p *Pipeline) stage(ctx context.Context, s State) (context.Context, trace.Span) {
	p.enter(s, nil)
	return otel.Tracer(tracerName).Start(ctx, "pipeline."+s.String())
}

func endStage(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (p *Pipeline) enter(s State, err error) {
	p.state.Store(int32(s))
	logx.Debug().Stringer("state", s).Msg("pipeline")
	if p.observer != nil {
		p.observer(Progress{State: s, Percent: s.Percent(), Err: err})
	}
}
