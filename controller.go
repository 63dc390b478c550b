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

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/parcelkiosk/go-winnsen/internal/frame"
)

// Controller is the human-facing facade over a Device: it maps locker
// identifiers to protocol lock numbers, runs unlock and status
// operations, and aggregates per-lock results. Operations return a
// LockOperationResult value for expected failure modes; only caller
// contract violations (a lock number out of range) surface as a typed
// error inside the result without any I/O attempted.
type Controller struct {
	device     *Device
	supervisor *Supervisor
}

// NewController creates a Controller over a fixed transport. Use
// NewSupervisedController when a Supervisor manages the connection.
func NewController(transport Transport, opts ...Option) (*Controller, error) {
	device, err := New(transport, opts...)
	if err != nil {
		return nil, err
	}
	return &Controller{device: device}, nil
}

// NewSupervisedController creates a Controller whose transactions are
// gated on the supervisor's connection state: while the link is not
// Connected every operation fails fast with ErrNotConnected, it never
// blocks waiting for a connection.
func NewSupervisedController(supervisor *Supervisor) (*Controller, error) {
	if supervisor == nil {
		return nil, fmt.Errorf("%w: nil supervisor", ErrInvalidConfig)
	}
	return &Controller{supervisor: supervisor}, nil
}

// currentDevice resolves the device to transact on, failing fast when
// not connected.
func (c *Controller) currentDevice() (*Device, error) {
	if c.supervisor != nil {
		return c.supervisor.Device()
	}
	return c.device, nil
}

// config returns the effective configuration.
func (c *Controller) config() *Config {
	if c.supervisor != nil {
		return c.supervisor.config
	}
	return c.device.config
}

// Unlock fires the solenoid of one lock.
func (c *Controller) Unlock(lock int) LockOperationResult {
	return c.UnlockContext(context.Background(), lock)
}

// UnlockContext is Unlock with cancellation support.
func (c *Controller) UnlockContext(ctx context.Context, lock int) LockOperationResult {
	return c.operate(ctx, frame.FuncUnlock, lock)
}

// Status queries the open/closed state of one lock. It is a pure read:
// repeated calls never change the reported state except via actual
// hardware state.
func (c *Controller) Status(lock int) LockOperationResult {
	return c.StatusContext(context.Background(), lock)
}

// StatusContext is Status with cancellation support.
func (c *Controller) StatusContext(ctx context.Context, lock int) LockOperationResult {
	return c.operate(ctx, frame.FuncStatus, lock)
}

// StatusAll queries every lock sequentially. Each lock is independent:
// a failure on one never aborts the checks for the rest. The returned
// map always has TotalLocks entries.
func (c *Controller) StatusAll() map[int]LockOperationResult {
	return c.StatusAllContext(context.Background())
}

// StatusAllContext is StatusAll with cancellation support.
func (c *Controller) StatusAllContext(ctx context.Context) map[int]LockOperationResult {
	return c.operateAll(ctx, frame.FuncStatus)
}

// EmergencyUnlockAll fires every lock sequentially regardless of
// intermediate failures. Operator override: all TotalLocks locks are
// always attempted.
func (c *Controller) EmergencyUnlockAll() map[int]LockOperationResult {
	return c.EmergencyUnlockAllContext(context.Background())
}

// EmergencyUnlockAllContext is EmergencyUnlockAll with cancellation
// support.
func (c *Controller) EmergencyUnlockAllContext(ctx context.Context) map[int]LockOperationResult {
	return c.operateAll(ctx, frame.FuncUnlock)
}

// operate runs one transaction and folds the outcome into a result
// value.
func (c *Controller) operate(ctx context.Context, function byte, lock int) LockOperationResult {
	started := time.Now()
	cfg := c.config()

	if lock < frame.MinLock || lock > cfg.TotalLocks {
		return LockOperationResult{
			Lock:   lock,
			Status: StatusUnknown,
			Err:    fmt.Errorf("%w: %d", ErrInvalidLock, lock),
		}
	}

	device, err := c.currentDevice()
	if err != nil {
		return LockOperationResult{
			Lock:    lock,
			Status:  StatusUnknown,
			Err:     err,
			Elapsed: time.Since(started),
		}
	}

	var cmd frame.Command
	switch function {
	case frame.FuncUnlock:
		cmd, err = frame.Unlock(cfg.Station, byte(lock))
	case frame.FuncStatus:
		cmd, err = frame.Status(cfg.Station, byte(lock))
	default:
		err = fmt.Errorf("%w: %#02x", frame.ErrUnknownFunction, function)
	}
	if err != nil {
		return LockOperationResult{
			Lock:    lock,
			Status:  StatusUnknown,
			Err:     err,
			Elapsed: time.Since(started),
		}
	}

	resp, attempts, err := device.transact(ctx, cmd)
	if err != nil {
		return LockOperationResult{
			Lock:     lock,
			Attempts: attempts,
			Status:   StatusUnknown,
			Err:      err,
			Elapsed:  time.Since(started),
		}
	}

	result := LockOperationResult{
		Lock:     lock,
		Attempts: attempts,
		Elapsed:  time.Since(started),
	}
	if frame.Open(resp.Status) {
		result.Status = StatusOpen
	} else {
		result.Status = StatusClosed
	}
	switch function {
	case frame.FuncUnlock:
		// The board acknowledges a successful release with the open
		// status byte.
		result.Success = result.Status == StatusOpen
		if !result.Success {
			result.Err = fmt.Errorf("lock %d did not release", lock)
		}
	default:
		result.Success = true
	}
	return result
}

// operateAll runs one operation per lock for locks 1..TotalLocks.
func (c *Controller) operateAll(ctx context.Context, function byte) map[int]LockOperationResult {
	cfg := c.config()
	results := make(map[int]LockOperationResult, cfg.TotalLocks)
	for lock := frame.MinLock; lock <= cfg.TotalLocks; lock++ {
		results[lock] = c.operate(ctx, function, lock)
	}
	return results
}

// MapLockerID extracts the protocol lock number from a human-facing
// locker identifier such as "M7". The numeric suffix must parse and
// lie within 1..TotalLocks; anything else is a descriptive error, never
// a silent default.
func (c *Controller) MapLockerID(id string) (int, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty locker id", ErrInvalidLock)
	}

	digits := strings.TrimLeftFunc(trimmed, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if digits == "" {
		return 0, fmt.Errorf("%w: locker id %q has no numeric suffix", ErrInvalidLock, id)
	}

	lock, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: locker id %q: %w", ErrInvalidLock, id, err)
	}
	if lock < frame.MinLock || lock > c.config().TotalLocks {
		return 0, fmt.Errorf("%w: locker id %q maps to lock %d outside 1..%d",
			ErrInvalidLock, id, lock, c.config().TotalLocks)
	}
	return lock, nil
}

// UnlockByID resolves a locker identifier and unlocks it.
func (c *Controller) UnlockByID(id string) LockOperationResult {
	return c.UnlockByIDContext(context.Background(), id)
}

// UnlockByIDContext is UnlockByID with cancellation support.
func (c *Controller) UnlockByIDContext(ctx context.Context, id string) LockOperationResult {
	lock, err := c.MapLockerID(id)
	if err != nil {
		return LockOperationResult{Lock: lock, Status: StatusUnknown, Err: err}
	}
	return c.UnlockContext(ctx, lock)
}
