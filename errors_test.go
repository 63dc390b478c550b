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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "Nil", err: nil, want: false},
		{name: "Timeout_Sentinel", err: ErrTimeout, want: true},
		{name: "Incomplete_Sentinel", err: ErrIncompleteResponse, want: true},
		{name: "Wrapped_Timeout", err: fmt.Errorf("attempt 1: %w", ErrTimeout), want: true},
		{name: "Timeout_TransportError", err: NewTimeoutError("transact", "/dev/ttyUSB0"), want: true},
		{name: "Incomplete_TransportError", err: NewIncompleteResponseError("transact", "/dev/ttyUSB0", 3), want: true},
		{name: "Read_Failure", err: NewTransportReadError("transact", "/dev/ttyUSB0", errors.New("unplugged")), want: false},
		{name: "Write_Failure", err: NewTransportWriteError("transact", "/dev/ttyUSB0", errors.New("unplugged")), want: false},
		{name: "Not_Connected", err: ErrNotConnected, want: false},
		{name: "Invalid_Lock", err: ErrInvalidLock, want: false},
		{name: "Permission_Denied", err: ErrPermissionDenied, want: false},
		{name: "Generic", err: errors.New("something else"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want ErrorType
	}{
		{name: "Timeout", err: NewTimeoutError("transact", ""), want: ErrorTypeTransient},
		{
			name: "Read_Failure",
			err:  NewTransportReadError("transact", "", errors.New("gone")),
			want: ErrorTypePermanent,
		},
		{name: "Bare_Timeout", err: ErrTimeout, want: ErrorTypeTransient},
		{name: "Unknown", err: errors.New("mystery"), want: ErrorTypePermanent},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	t.Parallel()

	err := NewTransportReadError("transact", "/dev/ttyUSB0", errors.New("unplugged"))
	assert.ErrorIs(t, err, ErrTransportRead)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "transact", te.Op)
	assert.Equal(t, "/dev/ttyUSB0", te.Port)
	assert.False(t, te.Retryable)
}

func TestTransportError_Message(t *testing.T) {
	t.Parallel()

	withPort := NewTimeoutError("transact", "/dev/ttyUSB0")
	assert.Equal(t, "transact on /dev/ttyUSB0: transaction timeout", withPort.Error())

	withoutPort := NewTimeoutError("transact", "")
	assert.Equal(t, "transact: transaction timeout", withoutPort.Error())
}

func TestIncompleteResponseError_RecordsByteCount(t *testing.T) {
	t.Parallel()

	err := NewIncompleteResponseError("transact", "mock", 5)
	assert.ErrorIs(t, err, ErrIncompleteResponse)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "5 bytes")
}

func TestIsIOError(t *testing.T) {
	t.Parallel()

	assert.True(t, isIOError(NewTransportReadError("transact", "", errors.New("x"))))
	assert.True(t, isIOError(NewTransportWriteError("transact", "", errors.New("x"))))
	assert.True(t, isIOError(ErrTransportClosed))
	assert.False(t, isIOError(ErrTimeout))
	assert.False(t, isIOError(NewIncompleteResponseError("transact", "", 2)))
	assert.False(t, isIOError(nil))
}
