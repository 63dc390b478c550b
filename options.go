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

// Option is a functional option for configuring a Device.
type Option func(*Device) error

// WithConfig replaces the whole configuration. The config is validated
// when the Device is constructed.
func WithConfig(config *Config) Option {
	return func(d *Device) error {
		if config != nil {
			d.config = config.clone()
		}
		return nil
	}
}

// WithTimeout sets the per-transaction deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		d.config.Timeout = timeout
		return nil
	}
}

// WithMaxRetries sets the number of additional attempts after the
// first failed transaction.
func WithMaxRetries(maxRetries int) Option {
	return func(d *Device) error {
		d.config.MaxRetries = maxRetries
		return nil
	}
}

// WithRetryDelay sets the bus settle time between attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(d *Device) error {
		d.config.RetryDelay = delay
		return nil
	}
}

// WithTotalLocks sets the number of locks on the board for
// installations wired with fewer than 16 doors.
func WithTotalLocks(n int) Option {
	return func(d *Device) error {
		d.config.TotalLocks = n
		return nil
	}
}
