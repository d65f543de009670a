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

package quota

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shouni/go-http-kit/pkg/httpkit"

	"seehuhn.de/go/vectorize/internal/errx"
)

const (
	exportLimitsPath  = "/export-limits/"
	logExportPath     = "/log-export/"
	logConversionPath = "/log-conversion/"

	maxBody = 1 << 20
)

// Client talks to the quota backend.
//
// Reads go through Limits. The log calls use HTTP directly, since their
// 429 answer carries a body which httpkit.ClientInterface does not return.
type Client struct {
	BaseURL string
	Limits  httpkit.ClientInterface
	HTTP    *http.Client

	// MaxTries bounds the attempts of idempotent reads. Zero means 3.
	MaxTries uint

	// RetryInterval is the first pause between attempts. Zero means the
	// backoff package default.
	RetryInterval time.Duration
}

// NewClient returns a client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Limits:  httpkit.New(timeout),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// credentials select the identity header of a request. A token wins over
// a guest id.
type credentials struct {
	Token   string
	GuestID string
}

func (c credentials) apply(req *http.Request) {
	switch {
	case c.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.Token)
	case c.GuestID != "":
		req.Header.Set("X-Guest-ID", c.GuestID)
	}
}

// ExportLog is the success response of POST /log-export/.
type ExportLog struct {
	RemainingExports int    `json:"remaining_exports"`
	GuestID          string `json:"guest_id,omitempty"`
}

type exportRequest struct {
	Format   string `json:"format"`
	Filename string `json:"filename"`
	GuestID  string `json:"guest_id,omitempty"`
}

type conversionRequest struct {
	Filename string `json:"filename"`
	FileSize int    `json:"file_size"`
}

type exceededBody struct {
	UserType   UserType `json:"user_type"`
	DailyLimit int      `json:"daily_limit"`
	Remaining  int      `json:"remaining"`
}

type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// ExportLimits reads the current quota. Failed reads are retried with
// exponential backoff, except for client errors with a known status.
func (c *Client) ExportLimits(ctx context.Context, cred credentials) (Quota, error) {
	const op = "GET " + exportLimitsPath

	b := backoff.NewExponentialBackOff()
	if c.RetryInterval > 0 {
		b.InitialInterval = c.RetryInterval
	}
	tries := c.MaxTries
	if tries == 0 {
		tries = 3
	}

	return backoff.Retry(ctx, func() (Quota, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+exportLimitsPath, nil)
		if err != nil {
			return Quota{}, backoff.Permanent(&errx.NetworkError{Op: op, Err: err})
		}
		req.Header.Set("Accept", "application/json")
		cred.apply(req)

		body, err := c.Limits.DoRequest(req)
		if err != nil {
			status := statusOf(err)
			netErr := &errx.NetworkError{Op: op, Status: status, Err: err}
			if status >= 400 && status < 500 {
				return Quota{}, backoff.Permanent(netErr)
			}
			return Quota{}, netErr
		}
		var q Quota
		if err := json.Unmarshal(body, &q); err != nil {
			return Quota{}, backoff.Permanent(&errx.NetworkError{Op: op, Err: err})
		}
		return q, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
}

// statusOf returns the HTTP status carried by err, or 0.
func statusOf(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// LogExport records an export attempt. An exhausted allowance is reported
// as *errx.QuotaExceededError.
func (c *Client) LogExport(ctx context.Context, cred credentials, format, filename string) (ExportLog, error) {
	const op = "POST " + logExportPath

	in := exportRequest{Format: format, Filename: filename}
	if cred.Token == "" {
		in.GuestID = cred.GuestID
	}
	resp, err := c.do(ctx, http.MethodPost, logExportPath, cred, in)
	if err != nil {
		return ExportLog{}, &errx.NetworkError{Op: op, Err: err}
	}

	switch {
	case resp.status == http.StatusTooManyRequests:
		var body exceededBody
		_ = json.Unmarshal(resp.body, &body)
		return ExportLog{}, &errx.QuotaExceededError{
			Action:     "export",
			UserType:   string(body.UserType),
			DailyLimit: body.DailyLimit,
			Remaining:  body.Remaining,
		}
	case !resp.ok():
		return ExportLog{}, statusError(op, resp)
	}

	var out ExportLog
	if len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, &out); err != nil {
			return ExportLog{}, &errx.NetworkError{Op: op, Status: resp.status, Err: err}
		}
	}
	return out, nil
}

// LogConversion records a conversion by an authenticated user. An
// exhausted allowance is reported as *errx.QuotaExceededError.
func (c *Client) LogConversion(ctx context.Context, cred credentials, filename string, fileSize int) error {
	const op = "POST " + logConversionPath

	resp, err := c.do(ctx, http.MethodPost, logConversionPath, cred,
		conversionRequest{Filename: filename, FileSize: fileSize})
	if err != nil {
		return &errx.NetworkError{Op: op, Err: err}
	}
	switch {
	case resp.status == http.StatusTooManyRequests:
		var body exceededBody
		_ = json.Unmarshal(resp.body, &body)
		userType := body.UserType
		if userType == "" {
			userType = User
		}
		return &errx.QuotaExceededError{
			Action:     "conversion",
			UserType:   string(userType),
			DailyLimit: body.DailyLimit,
			Remaining:  body.Remaining,
		}
	case !resp.ok():
		return statusError(op, resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, cred credentials, in any) (*response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cred.apply(req)

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	res, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, err
	}
	return &response{status: res.StatusCode, body: data}, nil
}

func statusError(op string, resp *response) error {
	msg := strings.TrimSpace(string(resp.body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = http.StatusText(resp.status)
	}
	return &errx.NetworkError{Op: op, Status: resp.status, Err: errors.New(msg)}
}

