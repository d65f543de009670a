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

// Command vectorize converts a raster image into vector graphics and
// exports the result, metered by the export quota of the backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"seehuhn.de/go/vectorize/internal/core"
	"seehuhn.de/go/vectorize/internal/errx"
	"seehuhn.de/go/vectorize/internal/export"
	"seehuhn.de/go/vectorize/internal/pipeline"
	"seehuhn.de/go/vectorize/internal/pixels"
	"seehuhn.de/go/vectorize/internal/proxy"
	"seehuhn.de/go/vectorize/internal/quota"
	"seehuhn.de/go/vectorize/internal/tracer"
	"seehuhn.de/go/vectorize/internal/viewport"
	"seehuhn.de/go/vectorize/internal/workbench"
	logx "seehuhn.de/go/vectorize/pkg/logger"
	pkgredis "seehuhn.de/go/vectorize/pkg/redis"
)

// AppConfig holds the settings read from the environment, after loading
// a .env file if there is one.
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Quota backend
	BackendURL  string        `envconfig:"BACKEND_URL" default:"http://localhost:8000/api"`
	AuthToken   string        `envconfig:"AUTH_TOKEN"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`

	// Guest identity: memory, file or redis
	GuestStore     string `envconfig:"GUEST_STORE" default:"file"`
	GuestStoreFile string `envconfig:"GUEST_STORE_FILE"`
	SessionName    string `envconfig:"SESSION_NAME" default:"default"`
	Redis          pkgredis.Config

	// Conversion
	TracerCommand string   `envconfig:"TRACER_COMMAND" default:"imagetracer"`
	TracerArgs    []string `envconfig:"TRACER_ARGS"`
	ProxySize     int      `envconfig:"PROXY_SIZE" default:"500"`

	// Quiet periods of parameter edits and viewer gestures
	QuietPeriod time.Duration `envconfig:"QUIET_PERIOD" default:"300ms"`
	RenderDelay time.Duration `envconfig:"RENDER_DELAY" default:"200ms"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "vectorize:", err)
		os.Exit(1)
	}
}

type cliArgs struct {
	in        string
	out       string
	format    string
	quotaOnly bool
	opts      tracer.Options
}

func parseArgs(args []string) (*cliArgs, error) {
	a := &cliArgs{opts: tracer.DefaultOptions()}
	fs := flag.NewFlagSet("vectorize", flag.ContinueOnError)
	fs.StringVar(&a.in, "in", "", "input image (png, jpeg, gif, webp, bmp or tiff)")
	fs.StringVar(&a.out, "out", "", "output file (default: input name with the format's extension)")
	fs.StringVar(&a.format, "format", "svg", "export format: svg, png, pdf or eps")
	fs.BoolVar(&a.quotaOnly, "quota", false, "print the export quota and exit")
	fs.IntVar(&a.opts.NumberOfColors, "colors", a.opts.NumberOfColors, "palette size")
	fs.Float64Var(&a.opts.Blur, "blur", a.opts.Blur, "pre-trace blur radius in pixels")
	fs.Func("set", "tracer option `name=value`, may be repeated", func(s string) error {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("expected name=value, got %q", s)
		}
		return a.opts.Set(name, value)
	})
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if !a.quotaOnly && a.in == "" {
		return nil, errors.New("missing -in")
	}
	return a, nil
}

func loadConfig() (*AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		logx.Warn().Err(err).Msg("could not load .env file")
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("environment config: %w", err)
	}
	return &cfg, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	a, err := parseArgs(args)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(a.format)
	if err != nil {
		return err
	}

	store, closeStore, err := guestStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	coord := quota.NewCoordinator(
		quota.NewClient(cfg.BackendURL, cfg.HTTPTimeout),
		quota.SessionContext{Token: cfg.AuthToken, Store: store},
	)
	q, err := coord.FetchQuota(ctx)
	if err != nil {
		fmt.Fprintln(stdout, errx.Message(err))
	}
	printQuota(stdout, q)
	if a.quotaOnly {
		return nil
	}

	data, err := os.ReadFile(a.in)
	if err != nil {
		return err
	}
	src := pixels.Source{Data: data, MIMEType: sniff(data), Name: filepath.Base(a.in)}

	pipe := pipeline.New(pipeline.Config{
		Tracer: &tracer.Command{Path: cfg.TracerCommand, Args: cfg.TracerArgs},
		Proxy:  proxy.New(cfg.ProxySize),
		Gate:   coord,
		Observer: func(p pipeline.Progress) {
			logx.Debug().Stringer("state", p.State).Int("percent", p.Percent).Msg("progress")
		},
	})
	wb := workbench.New(workbench.Config{
		Pipeline:    pipe,
		Quota:       coord,
		Viewport:    viewport.Config{FrameSize: float64(cfg.ProxySize), RenderDelay: cfg.RenderDelay},
		QuietPeriod: cfg.QuietPeriod,
	})
	wb.Load(src)
	wb.Params().Reset(a.opts)

	res, err := wb.Generate(ctx)
	if err != nil {
		return errors.New(errx.Message(err))
	}
	fmt.Fprintf(stdout, "%s: %dx%d, %d paths\n", src.Name, res.NaturalSize.Width, res.NaturalSize.Height, res.PathCount)

	out := a.out
	if out == "" {
		out = format.Filename(a.in)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	q, err = wb.Export(ctx, format, filepath.Base(out), f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		if errx.KindOf(err) == errx.KindQuotaExceeded {
			return errors.New(errx.Message(err))
		}
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", out)
	printQuota(stdout, q)
	return nil
}

func guestStore(ctx context.Context, cfg *AppConfig) (quota.Store, func(), error) {
	noop := func() {}
	switch cfg.GuestStore {
	case "memory":
		return &quota.MemoryStore{}, noop, nil
	case "redis":
		if !cfg.Redis.Enabled() {
			return nil, noop, errors.New("GUEST_STORE=redis needs REDIS_URL")
		}
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("redis: %w", err)
		}
		return quota.NewRedisStore(rdb, cfg.SessionName), func() { rdb.Close() }, nil
	case "file", "":
		file := cfg.GuestStoreFile
		if file == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, noop, err
			}
			file = filepath.Join(dir, "vectorize", cfg.SessionName+".json")
		}
		return &quota.FileStore{Path: file}, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown guest store %q", cfg.GuestStore)
	}
}

// sniff returns the media type of an image payload, or "" to let the
// decoder find out.
func sniff(data []byte) string {
	t := http.DetectContentType(data)
	if slices.Contains(pixels.Supported, t) {
		return t
	}
	return ""
}

func printQuota(w io.Writer, q quota.Quota) {
	if q.IsUnlimited {
		fmt.Fprintf(w, "exports: unlimited (%s)\n", q.UserType)
		return
	}
	if !q.Known() {
		fmt.Fprintf(w, "exports: quota unknown (%s)\n", q.UserType)
		return
	}
	fmt.Fprintf(w, "exports: %d of %d left today (%s)\n", q.Remaining, q.DailyLimit, q.UserType)
}
