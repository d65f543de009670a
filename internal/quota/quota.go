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

// Package quota tracks the daily export allowance of the current user.
//
// The backend counter is authoritative. Every mutating call is followed by
// a fresh read of the quota, and the number embedded in a mutation
// response is only used for logging.
package quota

import "strings"

// UserType is the account tier reported by the backend.
type UserType string

const (
	Guest     UserType = "guest"
	User      UserType = "user"
	Admin     UserType = "admin"
	Superuser UserType = "superuser"
)

// Unlimited reports whether the tier bypasses all quota checks.
func (u UserType) Unlimited() bool {
	return u == Admin || u == Superuser
}

// Quota is a snapshot of the export allowance.
type Quota struct {
	UserType    UserType `json:"user_type"`
	IsUnlimited bool     `json:"is_unlimited"`
	DailyLimit  int      `json:"daily_limit"`
	UsedToday   int      `json:"used_today"`
	Remaining   int      `json:"remaining"`
	GuestID     string   `json:"guest_id,omitempty"`
}

// Consistent reports whether used and remaining exports add up to the
// daily limit. Unlimited snapshots are always consistent.
func (q Quota) Consistent() bool {
	return q.IsUnlimited || q.UsedToday+q.Remaining == q.DailyLimit
}

// Fallback returns the conservative snapshot used while the backend is
// unreachable: the limit is unknown and no counted export is left. The
// exempt format stays available.
func Fallback(u UserType) Quota {
	if u == "" {
		u = Guest
	}
	if u.Unlimited() {
		return Quota{UserType: u, IsUnlimited: true}
	}
	return Quota{UserType: u}
}

// Known reports whether q carries a limit read from the backend.
func (q Quota) Known() bool {
	return q.IsUnlimited || q.DailyLimit > 0
}

// ExemptFormat is the export format which is never counted against the
// quota.
const ExemptFormat = "png"

// Exempt reports whether exports in format are allowed at zero remaining.
func Exempt(format string) bool {
	return strings.EqualFold(format, ExemptFormat)
}
