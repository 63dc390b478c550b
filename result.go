// go-winnsen
// Copyright (c) 2025 The ParcelKiosk Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-winnsen.
//
// go-winnsen is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-winnsen is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-winnsen; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package winnsen

import "time"

// LockStatus is the tri-state open/closed state of a lock. Unknown is
// reported when a transaction failed or timed out; it is never coerced
// to Closed.
type LockStatus int

const (
	// StatusUnknown means the state could not be determined.
	StatusUnknown LockStatus = iota
	// StatusOpen means the solenoid reported the door open.
	StatusOpen
	// StatusClosed means the solenoid reported the door closed.
	StatusClosed
)

// String implements fmt.Stringer.
func (s LockStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// LockOperationResult is the outcome of one unlock or status operation
// after its full retry sequence. It is plain immutable data: expected
// failure modes (timeouts, bad frames) land in Err, they are never
// raised as panics. The core does not persist results; audit logging is
// a collaborator concern.
type LockOperationResult struct {
	// Err is the final error after retries were exhausted, nil on
	// success.
	Err error
	// Lock is the protocol lock number (1..TotalLocks).
	Lock int
	// Attempts is the number of transactions tried, including the
	// successful one.
	Attempts int
	// Elapsed is the total wall-clock time across all attempts.
	Elapsed time.Duration
	// Status is the reported lock state, StatusUnknown on failure.
	Status LockStatus
	// Success is true if the operation completed with a matching
	// response and, for unlocks, the board acknowledged the release.
	Success bool
}

// Message returns a human-readable failure description, empty on
// success.
func (r LockOperationResult) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
