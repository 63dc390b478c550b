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
	"errors"
	"fmt"
)

// Sentinel errors returned by the library. Use errors.Is to test for them.
var (
	// ErrTimeout indicates a transaction deadline elapsed with no bytes
	// received at all.
	ErrTimeout = errors.New("transaction timeout")

	// ErrIncompleteResponse indicates the deadline elapsed after some
	// bytes arrived but no valid matching frame was assembled. Distinct
	// from ErrTimeout because it usually points at wiring or bus noise
	// rather than a dead board.
	ErrIncompleteResponse = errors.New("incomplete response")

	// ErrNotConnected is returned immediately when an operation is
	// attempted while the link is not in the Connected state.
	ErrNotConnected = errors.New("not connected")

	// ErrInvalidLock indicates a caller passed a lock number outside
	// 1..TotalLocks. Caught before any I/O.
	ErrInvalidLock = errors.New("invalid lock number")

	// ErrInvalidStation indicates a station address other than the
	// production single-board address.
	ErrInvalidStation = errors.New("invalid station address")

	// ErrInvalidConfig indicates an out-of-range configuration value.
	// Fatal at construction, never recovered at runtime.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTransportRead indicates a transport-level read failure.
	ErrTransportRead = errors.New("transport read failed")

	// ErrTransportWrite indicates a transport-level write failure.
	ErrTransportWrite = errors.New("transport write failed")

	// ErrTransportClosed indicates an operation on a closed transport.
	ErrTransportClosed = errors.New("transport closed")

	// ErrPortNotFound indicates the controller's USB serial port could
	// not be located.
	ErrPortNotFound = errors.New("controller port not found")

	// ErrPermissionDenied indicates the port exists but could not be
	// opened for access reasons.
	ErrPermissionDenied = errors.New("port permission denied")

	// ErrReconnectExhausted indicates the supervisor gave up
	// reconnecting after its bounded attempt budget.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

// ErrorType classifies errors for retry decisions.
type ErrorType string

const (
	// ErrorTypeTransient marks errors worth retrying (timeouts, noise).
	ErrorTypeTransient ErrorType = "transient"
	// ErrorTypePermanent marks errors retries cannot fix (bad
	// parameters, closed ports, configuration).
	ErrorTypePermanent ErrorType = "permanent"
)

// TransportError wraps a transport-level failure with the operation and
// port it occurred on plus a retryability classification.
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a TransportError with an explicit type.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient,
	}
}

// NewTimeoutError creates a transient timeout error for op on port.
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTimeout, ErrorTypeTransient)
}

// NewIncompleteResponseError creates a transient error recording how
// many bytes had arrived when the deadline elapsed.
func NewIncompleteResponseError(op, port string, got int) *TransportError {
	return NewTransportError(op, port,
		fmt.Errorf("%w: %d bytes before deadline", ErrIncompleteResponse, got),
		ErrorTypeTransient)
}

// NewTransportReadError creates a permanent read failure for op on port.
func NewTransportReadError(op, port string, err error) *TransportError {
	return NewTransportError(op, port, fmt.Errorf("%w: %w", ErrTransportRead, err), ErrorTypePermanent)
}

// NewTransportWriteError creates a permanent write failure for op on port.
func NewTransportWriteError(op, port string, err error) *TransportError {
	return NewTransportError(op, port, fmt.Errorf("%w: %w", ErrTransportWrite, err), ErrorTypePermanent)
}

// GetErrorType returns the classification of err, defaulting to
// permanent for unknown errors.
func GetErrorType(err error) ErrorType {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}
	if IsRetryable(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}

// IsRetryable reports whether err is worth retrying at the transaction
// level. Frame-level rejections and timeouts are retryable: the next
// exchange may yield a clean frame. Transport I/O failures are not;
// those propagate to the connection supervisor instead.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrIncompleteResponse):
		return true
	default:
		return false
	}
}

// isIOError reports whether err is a transport I/O failure that must be
// escalated to the connection supervisor rather than retried locally.
func isIOError(err error) bool {
	return errors.Is(err, ErrTransportRead) ||
		errors.Is(err, ErrTransportWrite) ||
		errors.Is(err, ErrTransportClosed)
}
