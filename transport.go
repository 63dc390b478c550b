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

// Transport is one exclusively-owned open connection to the locker
// controller board: purely bytes in, bytes out, with a hard wall-clock
// bound per read. No retry or protocol awareness lives at this layer.
//
// The RS485 link behind the USB-CDC port is half-duplex, so a Transport
// must only ever be driven by one transaction at a time; the Device
// enforces that.
type Transport interface {
	// Write writes p to the link, returning the number of bytes
	// written. Short writes are errors at this layer.
	Write(p []byte) (int, error)

	// Read reads whatever bytes arrive within the configured read
	// timeout into p. It may return fewer bytes than len(p), and
	// returns 0 with a nil error when the timeout window elapses with
	// no data. It never pads and never blocks indefinitely.
	Read(p []byte) (int, error)

	// SetReadTimeout sets the per-Read wall-clock bound.
	SetReadTimeout(timeout time.Duration) error

	// Flush discards any bytes sitting in the receive buffer, for
	// example leftovers of a prior aborted exchange.
	Flush() error

	// Close closes the connection. Idempotent: closing an already
	// closed transport returns nil.
	Close() error

	// IsConnected returns true while the transport is open.
	IsConnected() bool

	// Type returns the transport type.
	Type() TransportType

	// Port returns a human-readable identifier of the underlying
	// port, used in error messages.
	Port() string
}

// TransportType represents the type of transport.
type TransportType string

const (
	// TransportSerial is the USB-CDC serial transport used in
	// production.
	TransportSerial TransportType = "serial"
	// TransportMock is an in-memory transport for testing.
	TransportMock TransportType = "mock"
)
