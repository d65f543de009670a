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
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"seehuhn.de/go/vectorize/internal/errx"
	logx "seehuhn.de/go/vectorize/pkg/logger"
)

// Coordinator owns the guest identity and the quota snapshot. It is safe
// for concurrent use; mutating calls are serialised so that the re-read
// after a log call never overlaps with it.
type Coordinator struct {
	client  *Client
	session SessionContext

	op sync.Mutex // serialises backend round trips

	mu       sync.Mutex
	guestID  string
	snapshot Quota
}

// NewCoordinator returns a coordinator acting for session. A nil Store
// keeps the guest id in memory.
func NewCoordinator(client *Client, session SessionContext) *Coordinator {
	if session.Store == nil {
		session.Store = &MemoryStore{}
	}
	return &Coordinator{
		client:   client,
		session:  session,
		snapshot: Fallback(fallbackType(session)),
	}
}

func fallbackType(s SessionContext) UserType {
	if s.Guest() {
		return Guest
	}
	return User
}

// GuestID returns the persisted guest id, creating and saving a new one
// on first use. Authenticated sessions have no guest id.
func (c *Coordinator) GuestID(ctx context.Context) (string, error) {
	if !c.session.Guest() {
		return "", nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.guestID != "" {
		return c.guestID, nil
	}

	id, err := c.session.Store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load guest id: %w", err)
	}
	if id == "" {
		id = uuid.NewString()
		if err := c.session.Store.Save(ctx, id); err != nil {
			return "", fmt.Errorf("save guest id: %w", err)
		}
		logx.Info().Str("guest_id", id).Msg("created guest identity")
	}
	c.guestID = id
	return id, nil
}

// adoptGuestID replaces the guest id by a server-issued one.
func (c *Coordinator) adoptGuestID(ctx context.Context, id string) {
	if id == "" || !c.session.Guest() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == c.guestID {
		return
	}
	if err := c.session.Store.Save(ctx, id); err != nil {
		logx.Warn().Err(err).Msg("could not persist server-issued guest id")
	}
	logx.Info().Str("old", c.guestID).Str("new", id).Msg("replaced guest identity")
	c.guestID = id
}

func (c *Coordinator) credentials(ctx context.Context) (credentials, error) {
	if !c.session.Guest() {
		return credentials{Token: c.session.Token}, nil
	}
	id, err := c.GuestID(ctx)
	if err != nil {
		return credentials{}, err
	}
	return credentials{GuestID: id}, nil
}

// FetchQuota reads the quota from the backend and makes it the current
// snapshot. If the backend cannot be reached, the conservative fallback
// becomes the snapshot and is returned together with a
// *errx.NetworkError.
func (c *Coordinator) FetchQuota(ctx context.Context) (Quota, error) {
	c.op.Lock()
	defer c.op.Unlock()
	return c.fetchLocked(ctx)
}

func (c *Coordinator) fetchLocked(ctx context.Context) (Quota, error) {
	cred, err := c.credentials(ctx)
	if err == nil {
		var q Quota
		q, err = c.client.ExportLimits(ctx, cred)
		if err == nil {
			c.adoptGuestID(ctx, q.GuestID)
			if q.UserType.Unlimited() {
				q.IsUnlimited = true
			}
			if !q.Consistent() {
				logx.Warn().Int("limit", q.DailyLimit).Int("used", q.UsedToday).
					Int("remaining", q.Remaining).Msg("inconsistent quota from backend")
			}
			c.store(q)
			return q, nil
		}
	}

	var netErr *errx.NetworkError
	if !errors.As(err, &netErr) {
		err = &errx.NetworkError{Op: "fetch quota", Err: err}
	}
	q := Fallback(fallbackType(c.session))
	logx.Warn().Err(err).Msg("quota unavailable, using fallback")
	c.store(q)
	return q, err
}

func (c *Coordinator) store(q Quota) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = q
}

// Snapshot returns the current quota without contacting the backend.
func (c *Coordinator) Snapshot() Quota {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// CanExport reports whether the current snapshot allows an export in
// format. It is advisory; LogAttempt has the final word.
func (c *Coordinator) CanExport(format string) bool {
	if Exempt(format) {
		return true
	}
	q := c.Snapshot()
	return q.IsUnlimited || q.Remaining > 0
}

// LogAttempt records an export in format and then re-reads the quota.
//
// For a format which counts against the quota, an exhausted allowance is
// returned as *errx.QuotaExceededError and the export must not happen. A
// failed log call is returned as *errx.NetworkError; the export may go
// ahead. The exempt format and unlimited tiers never fail with
// QuotaExceededError.
//
// The returned quota is the snapshot read after the log call.
func (c *Coordinator) LogAttempt(ctx context.Context, format, filename string) (Quota, error) {
	c.op.Lock()
	defer c.op.Unlock()

	cred, err := c.credentials(ctx)
	var logErr error
	if err != nil {
		logErr = &errx.NetworkError{Op: "log export", Err: err}
	} else {
		var res ExportLog
		res, logErr = c.client.LogExport(ctx, cred, format, filename)
		if logErr == nil {
			c.adoptGuestID(ctx, res.GuestID)
			logx.Info().Str("format", format).Str("filename", filename).
				Int("remaining_hint", res.RemainingExports).Msg("export logged")
		}
	}

	var exceeded *errx.QuotaExceededError
	if errors.As(logErr, &exceeded) {
		if Exempt(format) || c.Snapshot().IsUnlimited || UserType(exceeded.UserType).Unlimited() {
			logx.Debug().Str("format", format).Msg("quota exceeded ignored for exempt export")
			logErr = nil
		}
	} else if logErr != nil {
		logx.Warn().Err(logErr).Str("format", format).Msg("export not logged")
		if Exempt(format) {
			logErr = nil
		}
	}

	q, fetchErr := c.fetchLocked(ctx)
	if fetchErr != nil {
		logx.Warn().Err(fetchErr).Msg("quota refresh after export failed")
	}
	if exceeded != nil && logErr != nil && exceeded.DailyLimit == 0 && q.DailyLimit > 0 {
		exceeded.DailyLimit = q.DailyLimit
	}
	return q, logErr
}

// AllowConversion consults the conversion counter of an authenticated
// user. Guests are not limited here. An unreachable backend does not
// block the conversion.
func (c *Coordinator) AllowConversion(ctx context.Context, filename string, fileSize int) error {
	if c.session.Guest() {
		return nil
	}
	err := c.client.LogConversion(ctx, credentials{Token: c.session.Token}, filename, fileSize)

	var exceeded *errx.QuotaExceededError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &exceeded):
		return err
	default:
		logx.Warn().Err(err).Str("filename", filename).Msg("conversion not logged, continuing")
		return nil
	}
}
