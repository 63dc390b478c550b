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
	"fmt"
	"time"

	"github.com/parcelkiosk/go-winnsen/internal/frame"
)

// Production defaults. Timeout and retry count follow the shipped
// controller firmware pairing: 800ms per transaction, 2 retries, 100ms
// bus settle time between attempts.
const (
	DefaultTotalLocks = 16
	DefaultBaudRate   = 9600
	DefaultTimeout    = 800 * time.Millisecond
	DefaultMaxRetries = 2
	DefaultRetryDelay = 100 * time.Millisecond
)

// maxTimeout bounds the per-transaction deadline. Anything longer
// indicates a configuration mistake, not a slow board.
const maxTimeout = 30 * time.Second

// maxConfigRetries bounds the transaction retry count.
const maxConfigRetries = 10

// Config is the immutable configuration of a locker controller.
// Validated once at construction and read-only thereafter.
type Config struct {
	// TotalLocks is the number of locks on the board (1..16).
	TotalLocks int `yaml:"total_locks" json:"totalLocks"`
	// Station is the controller board address. The production
	// single-board deployment uses 0; other values are rejected.
	Station byte `yaml:"station" json:"station"`
	// BaudRate of the RS485 link (8N1 framing is fixed).
	BaudRate int `yaml:"baud_rate" json:"baudRate"`
	// Timeout is the per-transaction deadline covering the full
	// write+read cycle of one attempt.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// MaxRetries is the number of additional attempts after the first
	// failed one.
	MaxRetries int `yaml:"max_retries" json:"maxRetries"`
	// RetryDelay is the bus settle time between attempts.
	RetryDelay time.Duration `yaml:"retry_delay" json:"retryDelay"`
}

// DefaultConfig returns the production configuration.
func DefaultConfig() *Config {
	return &Config{
		TotalLocks: DefaultTotalLocks,
		Station:    frame.StationSingle,
		BaudRate:   DefaultBaudRate,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// Validate range-checks every field. A non-nil error is fatal at
// construction; the library never runs with a partially valid Config.
func (c *Config) Validate() error {
	if c.TotalLocks < frame.MinLock || c.TotalLocks > frame.MaxLock {
		return fmt.Errorf("%w: total locks %d outside %d..%d",
			ErrInvalidConfig, c.TotalLocks, frame.MinLock, frame.MaxLock)
	}
	if c.Station != frame.StationSingle {
		return fmt.Errorf("%w: station %d (only single-board station %d is supported)",
			ErrInvalidConfig, c.Station, frame.StationSingle)
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("%w: baud rate %d", ErrInvalidConfig, c.BaudRate)
	}
	if c.Timeout <= 0 || c.Timeout > maxTimeout {
		return fmt.Errorf("%w: timeout %v outside (0, %v]", ErrInvalidConfig, c.Timeout, maxTimeout)
	}
	if c.MaxRetries < 0 || c.MaxRetries > maxConfigRetries {
		return fmt.Errorf("%w: max retries %d outside 0..%d",
			ErrInvalidConfig, c.MaxRetries, maxConfigRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: negative retry delay %v", ErrInvalidConfig, c.RetryDelay)
	}
	return nil
}

// clone returns a copy so a caller-held Config cannot mutate a running
// device.
func (c *Config) clone() *Config {
	dup := *c
	return &dup
}
