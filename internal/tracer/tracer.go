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

package tracer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"
)

// Tracer converts a pixel buffer into vector markup. Implementations must
// be deterministic for identical inputs. The returned markup carries no
// guarantees about its viewBox or size attributes.
type Tracer interface {
	Trace(ctx context.Context, img image.Image, opts Options) (string, error)
}

// Func adapts an ordinary function to the Tracer interface.
type Func func(ctx context.Context, img image.Image, opts Options) (string, error)

// Trace calls f(ctx, img, opts).
func (f Func) Trace(ctx context.Context, img image.Image, opts Options) (string, error) {
	return f(ctx, img, opts)
}

// Command runs an external tracing program. The pixel buffer is written
// to the program's standard input as PNG, the options follow any fixed
// arguments as "--name=value" flags, and the SVG markup is read from
// standard output.
type Command struct {
	// Path is the executable, looked up in $PATH if it contains no slash.
	Path string

	// Args are passed before the option flags.
	Args []string
}

// ExitError reports a tracing program which did not finish successfully.
type ExitError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("tracer %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("tracer %s: %v: %s", e.Path, e.Err, msg)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Trace implements the Tracer interface.
func (c *Command) Trace(ctx context.Context, img image.Image, opts Options) (string, error) {
	if c.Path == "" {
		return "", errors.New("tracer command not configured")
	}
	if err := opts.Validate(); err != nil {
		return "", err
	}

	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return "", fmt.Errorf("encode tracer input: %w", err)
	}

	args := append(append([]string(nil), c.Args...), opts.Args()...)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Stdin = &in
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &ExitError{Path: c.Path, Stderr: stderr.String(), Err: err}
	}
	return out.String(), nil
}
