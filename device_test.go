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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelkiosk/go-winnsen/internal/frame"
)

// fastOptions keeps retry/timeout tests quick without changing the
// engine's behavior.
func fastOptions(timeout time.Duration, maxRetries int) []Option {
	return []Option{
		WithTimeout(timeout),
		WithMaxRetries(maxRetries),
		WithRetryDelay(10 * time.Millisecond),
	}
}

func mustUnlockCmd(t *testing.T, lock byte) frame.Command {
	t.Helper()
	cmd, err := frame.Unlock(0, lock)
	require.NoError(t, err)
	return cmd
}

func mustStatusCmd(t *testing.T, lock byte) frame.Command {
	t.Helper()
	cmd, err := frame.Status(0, lock)
	require.NoError(t, err)
	return cmd
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		transport Transport
		name      string
		opts      []Option
		wantErr   bool
	}{
		{
			name:      "Valid_MockTransport",
			transport: NewMockTransport(),
			wantErr:   false,
		},
		{
			name:      "Nil_Transport",
			transport: nil,
			wantErr:   true,
		},
		{
			name:      "Invalid_Timeout",
			transport: NewMockTransport(),
			opts:      []Option{WithTimeout(-time.Second)},
			wantErr:   true,
		},
		{
			name:      "Invalid_Retries",
			transport: NewMockTransport(),
			opts:      []Option{WithMaxRetries(-1)},
			wantErr:   true,
		},
		{
			name:      "Invalid_TotalLocks",
			transport: NewMockTransport(),
			opts:      []Option{WithTotalLocks(17)},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, err := New(tt.transport, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, device)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, device)
				assert.Equal(t, tt.transport, device.Transport())
			}
		})
	}
}

func TestTransact_UnlockSuccess(t *testing.T) {
	t.Parallel()

	mock := NewMockTransportWithFunc(func(cmd []byte) [][]byte {
		return [][]byte{BuildUnlockResponse(0, cmd[4], frame.StatusOpen)}
	})
	device, err := New(mock, fastOptions(100*time.Millisecond, 0)...)
	require.NoError(t, err)

	resp, err := device.Transact(mustUnlockCmd(t, 1))
	require.NoError(t, err)
	assert.Equal(t, byte(1), resp.Lock)
	assert.Equal(t, byte(frame.StatusOpen), resp.Status)

	writes := mock.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte{0x90, 0x06, 0x05, 0x00, 0x01, 0x03}, writes[0])
}

func TestTransact_ChunkedResponse(t *testing.T) {
	t.Parallel()

	// Responses arrive in arbitrary pieces over the serial link; the
	// engine must accumulate partial reads.
	mock := NewMockTransportWithFunc(func(_ []byte) [][]byte {
		full := BuildStatusResponse(0, 5, frame.StatusClosed)
		return [][]byte{full[:3], full[3:5], full[5:]}
	})
	device, err := New(mock, fastOptions(100*time.Millisecond, 0)...)
	require.NoError(t, err)

	resp, err := device.Transact(mustStatusCmd(t, 5))
	require.NoError(t, err)
	assert.Equal(t, byte(5), resp.Lock)
	assert.Equal(t, byte(frame.StatusClosed), resp.Status)
}

func TestTransact_NoiseBeforeResponse(t *testing.T) {
	t.Parallel()

	// Spurious bytes preceding the real frame are noise, not a
	// failure, while the deadline has budget left.
	mock := NewMockTransportWithFunc(func(_ []byte) [][]byte {
		return [][]byte{
			{0x00, 0x11, 0x22},
			BuildUnlockResponse(0, 4, frame.StatusOpen),
		}
	})
	device, err := New(mock, fastOptions(200*time.Millisecond, 0)...)
	require.NoError(t, err)

	resp, err := device.Transact(mustUnlockCmd(t, 4))
	require.NoError(t, err)
	assert.Equal(t, byte(4), resp.Lock)
}

func TestTransact_MismatchedFrameIsNoise(t *testing.T) {
	t.Parallel()

	// A well-formed frame for the wrong lock must not satisfy the
	// pending command.
	mock := NewMockTransportWithFunc(func(_ []byte) [][]byte {
		return [][]byte{BuildUnlockResponse(0, 9, frame.StatusOpen)}
	})
	device, err := New(mock, fastOptions(80*time.Millisecond, 0)...)
	require.NoError(t, err)

	_, err = device.Transact(mustUnlockCmd(t, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteResponse)
}

func TestTransact_Timeout(t *testing.T) {
	t.Parallel()

	const (
		timeout = 60 * time.Millisecond
		retries = 2
	)
	mock := NewMockTransport() // never answers
	device, err := New(mock, fastOptions(timeout, retries)...)
	require.NoError(t, err)

	started := time.Now()
	_, attempts, err := device.transact(context.Background(), mustUnlockCmd(t, 3))
	elapsed := time.Since(started)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, retries+1, attempts)
	// The deadline is cumulative per attempt, so the total is about
	// attempts x timeout plus the settle delays.
	assert.GreaterOrEqual(t, elapsed, time.Duration(retries+1)*timeout)
	assert.Less(t, elapsed, 10*time.Duration(retries+1)*timeout)

	stats := device.Stats()
	assert.Equal(t, uint64(retries+1), stats.Timeouts)
	assert.Equal(t, uint64(retries), stats.Retries)
}

func TestTransact_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	const retries = 2

	var mu sync.Mutex
	calls := 0
	mock := NewMockTransportWithFunc(func(cmd []byte) [][]byte {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls <= retries {
			return nil // silence for the first attempts
		}
		return [][]byte{BuildUnlockResponse(0, cmd[4], frame.StatusOpen)}
	})
	device, err := New(mock, fastOptions(60*time.Millisecond, retries)...)
	require.NoError(t, err)

	resp, attempts, err := device.transact(context.Background(), mustUnlockCmd(t, 2))
	require.NoError(t, err)
	assert.Equal(t, retries+1, attempts)
	assert.Equal(t, byte(2), resp.Lock)
}

func TestTransact_IncompleteResponse(t *testing.T) {
	t.Parallel()

	// Partial bytes followed by silence: distinct from a pure timeout
	// because it points at wiring or noise.
	mock := NewMockTransportWithFunc(func(_ []byte) [][]byte {
		return [][]byte{{0x90, 0x07, 0x85}}
	})
	device, err := New(mock, fastOptions(60*time.Millisecond, 1)...)
	require.NoError(t, err)

	_, attempts, err := device.transact(context.Background(), mustUnlockCmd(t, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteResponse)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, uint64(2), device.Stats().Incomplete)
}

func TestTransact_IOErrorNotRetried(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetReadError(errors.New("device detached"))
	device, err := New(mock, fastOptions(100*time.Millisecond, 3)...)
	require.NoError(t, err)

	var notified error
	device.setIOErrorHandler(func(err error) { notified = err })

	_, attempts, err := device.transact(context.Background(), mustUnlockCmd(t, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportRead)
	assert.Equal(t, 1, attempts, "I/O errors must not be retried locally")
	require.Error(t, notified)
	assert.ErrorIs(t, notified, ErrTransportRead)
	assert.Equal(t, uint64(1), device.Stats().IOErrors)
}

func TestTransact_WriteErrorNotRetried(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetWriteError(errors.New("port gone"))
	device, err := New(mock, fastOptions(100*time.Millisecond, 3)...)
	require.NoError(t, err)

	_, attempts, err := device.transact(context.Background(), mustUnlockCmd(t, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportWrite)
	assert.Equal(t, 1, attempts)
}

func TestTransact_RejectsOutOfRangeBeforeIO(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	device, err := New(mock)
	require.NoError(t, err)

	_, _, err = device.transact(context.Background(), frame.Command{
		Function: frame.FuncUnlock, Station: 0, Lock: 17,
	})
	require.ErrorIs(t, err, ErrInvalidLock)

	_, _, err = device.transact(context.Background(), frame.Command{
		Function: frame.FuncUnlock, Station: 2, Lock: 1,
	})
	require.ErrorIs(t, err, ErrInvalidStation)

	assert.Empty(t, mock.Writes(), "invalid parameters must never reach the wire")
}

func TestTransact_NotConnected(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	device, err := New(mock)
	require.NoError(t, err)
	require.NoError(t, mock.Close())

	_, err = device.Transact(mustUnlockCmd(t, 1))
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestTransact_FlushesStaleBytes(t *testing.T) {
	t.Parallel()

	mock := NewMockTransportWithFunc(func(cmd []byte) [][]byte {
		return [][]byte{BuildUnlockResponse(0, cmd[4], frame.StatusOpen)}
	})
	// Leftovers of a previous aborted exchange.
	mock.EnqueueRead([]byte{0x90, 0x07, 0x85})

	device, err := New(mock, fastOptions(100*time.Millisecond, 0)...)
	require.NoError(t, err)

	resp, err := device.Transact(mustUnlockCmd(t, 6))
	require.NoError(t, err)
	assert.Equal(t, byte(6), resp.Lock)
	assert.GreaterOrEqual(t, mock.Flushes(), 1)
}

func TestTransact_Cancelled(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	device, err := New(mock, fastOptions(time.Second, 0)...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = device.TransactContext(ctx, mustUnlockCmd(t, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestTransact_MutualExclusion verifies the half-duplex invariant:
// concurrent callers never interleave bytes on the wire — the mock
// observes each complete 6-byte write followed by its read before the
// next write begins.
func TestTransact_MutualExclusion(t *testing.T) {
	t.Parallel()

	mock := NewMockTransportWithFunc(func(cmd []byte) [][]byte {
		switch cmd[2] {
		case frame.FuncUnlock:
			return [][]byte{BuildUnlockResponse(0, cmd[4], frame.StatusOpen)}
		case frame.FuncStatus:
			return [][]byte{BuildStatusResponse(0, cmd[4], frame.StatusClosed)}
		default:
			return nil
		}
	})
	device, err := New(mock, fastOptions(200*time.Millisecond, 0)...)
	require.NoError(t, err)

	const iterations = 25
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_, err := device.Transact(mustUnlockCmd(t, 3))
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_, err := device.Transact(mustStatusCmd(t, 5))
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	assert.False(t, mock.Interleaved(), "writes interleaved with pending responses")
	writes := mock.Writes()
	assert.Len(t, writes, 2*iterations)
	for _, w := range writes {
		assert.Len(t, w, frame.CommandSize)
	}
}
