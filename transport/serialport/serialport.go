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

// Package serialport implements the winnsen.Transport interface on a
// real serial port. The locker controller presents as a USB-CDC port
// in front of the RS485 bus; framing is fixed at 8N1.
package serialport

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	winnsen "github.com/parcelkiosk/go-winnsen"
)

// defaultReadTimeout bounds a single Read before the transaction
// engine tunes it.
const defaultReadTimeout = 50 * time.Millisecond

// Transport implements winnsen.Transport for a serial port.
type Transport struct {
	port     serial.Port
	portName string
	mu       sync.Mutex
	closed   bool
}

// Open opens portName at the given baud rate with 8N1 framing and
// returns an exclusively owned transport.
func Open(portName string, baudRate int) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		if isPermissionError(err) {
			return nil, fmt.Errorf("open %s: %w: %w", portName, winnsen.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(defaultReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	return &Transport{
		port:     port,
		portName: portName,
	}, nil
}

// isPermissionError recognizes access failures so the supervisor can
// report PermissionDenied instead of retrying forever.
func isPermissionError(err error) bool {
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PermissionDenied {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "permission denied")
}

// Write writes p to the port and drains the OS buffer so the frame is
// actually on the wire before the response window starts.
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, winnsen.ErrTransportClosed
	}

	n, err := t.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("serial write on %s failed: %w", t.portName, err)
	}
	if err := t.drainWithRetry("write"); err != nil {
		return n, err
	}
	return n, nil
}

// Read reads whatever bytes arrive within the configured read timeout.
// It returns 0 with a nil error when the window elapses silently.
func (t *Transport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, winnsen.ErrTransportClosed
	}

	n, err := t.port.Read(p)
	if err != nil {
		return n, fmt.Errorf("serial read on %s failed: %w", t.portName, err)
	}
	return n, nil
}

// SetReadTimeout sets the per-Read wall-clock bound.
func (t *Transport) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return winnsen.ErrTransportClosed
	}
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("serial set read timeout on %s failed: %w", t.portName, err)
	}
	return nil
}

// Flush discards bytes buffered on the receive side.
func (t *Transport) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return winnsen.ErrTransportClosed
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("serial input flush on %s failed: %w", t.portName, err)
	}
	return nil
}

// Close closes the port. Idempotent; a second Close returns nil and
// never blocks shutdown.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("serial close on %s failed: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true while the port is open.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Type returns TransportSerial.
func (*Transport) Type() winnsen.TransportType {
	return winnsen.TransportSerial
}

// Port returns the port name.
func (t *Transport) Port() string {
	return t.portName
}

// drainWithRetry drains the port, retrying interrupted system calls
// with a short exponential backoff.
func (t *Transport) drainWithRetry(operation string) error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := t.port.Drain()
		if err == nil {
			return nil
		}

		if isInterruptedSystemCall(err) && attempt < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<attempt))
			continue
		}
		return fmt.Errorf("serial %s drain on %s failed: %w", operation, t.portName, err)
	}

	return fmt.Errorf("serial %s drain on %s failed after %d retries", operation, t.portName, maxRetries)
}

// isInterruptedSystemCall checks for EINTR-style failures.
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// Ensure Transport implements winnsen.Transport
var _ winnsen.Transport = (*Transport)(nil)
