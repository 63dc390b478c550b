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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickRetryConfig(maxAttempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       maxAttempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        4 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetryWithConfig_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryWithConfig(context.Background(), quickRetryConfig(5), func() error {
		calls++
		if calls < 3 {
			return NewTimeoutError("connect", "")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithConfig_StopsOnPermanentError(t *testing.T) {
	t.Parallel()

	permanent := NewTransportError("connect", "", ErrPermissionDenied, ErrorTypePermanent)
	calls := 0
	err := RetryWithConfig(context.Background(), quickRetryConfig(5), func() error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 1, calls)
}

func TestRetryWithConfig_ExhaustsBudget(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryWithConfig(context.Background(), quickRetryConfig(4), func() error {
		calls++
		return NewTimeoutError("connect", "")
	})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 4, calls)
}

func TestRetryWithConfig_RespectsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithConfig(ctx, &RetryConfig{
		MaxAttempts:       100,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 1.0,
	}, func() error {
		calls++
		cancel()
		return NewTimeoutError("connect", "")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryWithConfig_NilConfigUsesDefaults(t *testing.T) {
	t.Parallel()

	err := RetryWithConfig(context.Background(), nil, func() error {
		return nil
	})
	require.NoError(t, err)
}

func TestRetryWithConfig_BackoffIsCapped(t *testing.T) {
	t.Parallel()

	started := time.Now()
	calls := 0
	err := RetryWithConfig(context.Background(), &RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 10.0,
	}, func() error {
		calls++
		return NewTimeoutError("connect", "")
	})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 5, calls)
	// Four sleeps of at most 2ms each; generous ceiling for slow CI.
	assert.Less(t, time.Since(started), time.Second)
}
