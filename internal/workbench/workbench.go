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

// Package workbench is the model behind the conversion screen: the loaded
// image, the trace parameters, the current result, the viewer and the
// export actions.
package workbench

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"seehuhn.de/go/vectorize/internal/debounce"
	"seehuhn.de/go/vectorize/internal/errx"
	"seehuhn.de/go/vectorize/internal/export"
	"seehuhn.de/go/vectorize/internal/pipeline"
	"seehuhn.de/go/vectorize/internal/pixels"
	"seehuhn.de/go/vectorize/internal/quota"
	"seehuhn.de/go/vectorize/internal/tracer"
	"seehuhn.de/go/vectorize/internal/viewport"
	logx "seehuhn.de/go/vectorize/pkg/logger"
)

var (
	// ErrNoSource is returned by Generate before an image has been loaded.
	ErrNoSource = errors.New("no image loaded")

	// ErrNoResult is returned by Export before a conversion has succeeded.
	ErrNoResult = errors.New("no conversion result to export")
)

// Layer is the layer the viewer shows.
type Layer int

const (
	LayerNone Layer = iota
	LayerProxy
	LayerVector
)

func (l Layer) String() string {
	switch l {
	case LayerProxy:
		return "proxy"
	case LayerVector:
		return "vector"
	default:
		return "none"
	}
}

// Config holds the collaborators of a Workbench. Pipeline is required.
type Config struct {
	Pipeline *pipeline.Pipeline

	// Quota gates exports. Nil allows every export without logging.
	Quota *quota.Coordinator

	Viewport viewport.Config

	// QuietPeriod is the settle time of parameter edits. Zero means
	// debounce.QuietPeriod.
	QuietPeriod time.Duration

	// Clock drives the parameter debouncer. The viewport uses its own
	// Config.Clock. Nil means the wall clock.
	Clock debounce.Clock

	// OnChange, if not nil, is called whenever the visible layer may have
	// changed.
	OnChange func()
}

// Workbench is safe for concurrent use.
type Workbench struct {
	pipe     *pipeline.Pipeline
	quota    *quota.Coordinator
	params   *debounce.Params[tracer.Options]
	view     *viewport.Controller
	onChange func()

	mu     sync.Mutex
	source *pixels.Source
}

// New returns a workbench with default trace options and no image.
func New(cfg Config) *Workbench {
	w := &Workbench{
		pipe:     cfg.Pipeline,
		quota:    cfg.Quota,
		onChange: cfg.OnChange,
	}

	quiet := cfg.QuietPeriod
	if quiet <= 0 {
		quiet = debounce.QuietPeriod
	}
	var opts []debounce.Option
	if cfg.Clock != nil {
		opts = append(opts, debounce.WithClock(cfg.Clock))
	}
	w.params = debounce.NewParams(tracer.DefaultOptions(), quiet, func(bool) { w.changed() }, opts...)
	w.view = viewport.New(cfg.Viewport, func(viewport.State) { w.changed() })
	return w
}

func (w *Workbench) changed() {
	if w.onChange != nil {
		w.onChange()
	}
}

// Params returns the trace parameters. Edits apply immediately; they are
// only used by the next Generate.
func (w *Workbench) Params() *debounce.Params[tracer.Options] {
	return w.params
}

// Viewport returns the pan and zoom controller of the viewer.
func (w *Workbench) Viewport() *viewport.Controller {
	return w.view
}

// Load makes src the image of the next conversion. The view is reset and
// pending parameter edits are settled.
func (w *Workbench) Load(src pixels.Source) {
	w.mu.Lock()
	w.source = &src
	w.mu.Unlock()

	w.params.Reset(w.params.Value())
	w.view.Reset()
	logx.Info().Str("name", src.Name).Str("mime", src.MIMEType).Int("bytes", len(src.Data)).Msg("image loaded")
	w.changed()
}

// LoadDataURL parses an uploaded data URL and loads it.
func (w *Workbench) LoadDataURL(dataURL, name string) error {
	src, err := pixels.ParseDataURL(dataURL)
	if err != nil {
		return err
	}
	src.Name = name
	w.Load(src)
	return nil
}

// Source returns the loaded image.
func (w *Workbench) Source() (pixels.Source, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.source == nil {
		return pixels.Source{}, false
	}
	return *w.source, true
}

// Generate converts the loaded image with the current parameters. While
// another conversion runs it returns pipeline.ErrRunInFlight. A new
// result resets the view.
func (w *Workbench) Generate(ctx context.Context) (*pipeline.Result, error) {
	src, ok := w.Source()
	if !ok {
		return nil, ErrNoSource
	}
	res, err := w.pipe.Generate(ctx, pipeline.Request{
		Source:  src,
		Options: w.params.Value(),
	})
	if err != nil {
		if !errors.Is(err, pipeline.ErrRunInFlight) {
			logx.Warn().Err(err).Stringer("kind", errx.KindOf(err)).Msg("conversion failed")
		}
		return nil, err
	}
	w.view.Reset()
	w.changed()
	return res, nil
}

// Result returns the current conversion result, or nil.
func (w *Workbench) Result() *pipeline.Result {
	return w.pipe.Current()
}

// VisibleLayer selects what the viewer shows. The live vector layer is
// shown unless parameters are being adjusted or the view is moving; then
// the raster proxy stands in, if there is one.
func (w *Workbench) VisibleLayer() Layer {
	res := w.Result()
	if res == nil {
		return LayerNone
	}
	if !w.params.Adjusting() && !w.view.Interacting() {
		return LayerVector
	}
	if res.RasterProxy != "" {
		return LayerProxy
	}
	return LayerNone
}

// Export writes the current result to out in format f.
//
// Every attempt is logged with the quota backend first, the exempt format
// included. For a counted format an exhausted allowance stops the export
// with a *errx.QuotaExceededError; the exempt format is never stopped. An
// unreachable backend does not stop an export either. The returned quota
// is the snapshot read after logging.
func (w *Workbench) Export(ctx context.Context, f export.Format, filename string, out io.Writer) (quota.Quota, error) {
	res := w.Result()
	if res == nil {
		return quota.Quota{}, ErrNoResult
	}

	var q quota.Quota
	if w.quota != nil {
		var err error
		q, err = w.quota.LogAttempt(ctx, f.String(), filename)
		switch errx.KindOf(err) {
		case errx.KindQuotaExceeded:
			logx.Info().Err(err).Str("format", f.String()).Msg("export blocked")
			return q, err
		case errx.KindNetwork:
			logx.Warn().Err(err).Str("format", f.String()).Msg("exporting without quota record")
		}
	}

	if err := export.Write(ctx, out, f, res.VectorMarkup, res.NaturalSize); err != nil {
		return q, err
	}
	logx.Info().Str("format", f.String()).Str("filename", filename).Msg("exported")
	return q, nil
}
