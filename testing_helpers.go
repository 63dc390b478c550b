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
	"sync"
	"time"

	"github.com/parcelkiosk/go-winnsen/internal/frame"
)

// MockTransport is an in-memory Transport for tests and simulation.
// The original Android controller toggled a "simulate" flag inside the
// driver; here simulation is a transport swap instead, keeping the
// transaction engine free of test-only branches.
//
// Reads are served from a queue of chunks so tests can exercise
// partial-read accumulation, injected noise and silent (timed out)
// polls. A ResponseFunc, when set, enqueues the chunks to serve after
// each complete command write.
type MockTransport struct {
	// ResponseFunc maps a written command frame to the read chunks to
	// queue. A nil return or nil entries model silence.
	ResponseFunc func(cmd []byte) [][]byte

	writeErr    error
	readErr     error
	writes      [][]byte
	rx          [][]byte
	readTimeout time.Duration
	flushes     int
	mu          sync.Mutex
	closed      bool
	interleaved bool
}

// NewMockTransport creates a mock transport with no scripted
// responses.
func NewMockTransport() *MockTransport {
	return &MockTransport{readTimeout: readPollInterval}
}

// NewMockTransportWithFunc creates a mock transport serving responses
// from fn.
func NewMockTransportWithFunc(fn func(cmd []byte) [][]byte) *MockTransport {
	m := NewMockTransport()
	m.ResponseFunc = fn
	return m
}

// Write records the command frame and queues the scripted response.
func (m *MockTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrTransportClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	if len(m.rx) > 0 {
		// A new command hit the bus while the previous response was
		// still pending: the half-duplex discipline was violated.
		m.interleaved = true
	}

	cmd := append([]byte(nil), p...)
	m.writes = append(m.writes, cmd)

	if m.ResponseFunc != nil {
		for _, chunk := range m.ResponseFunc(cmd) {
			m.rx = append(m.rx, append([]byte(nil), chunk...))
		}
	}
	return len(p), nil
}

// Read serves the next queued chunk, or returns 0 after the read
// timeout window when nothing is queued.
func (m *MockTransport) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrTransportClosed
	}
	if m.readErr != nil {
		err := m.readErr
		m.mu.Unlock()
		return 0, err
	}
	if len(m.rx) == 0 {
		timeout := m.readTimeout
		m.mu.Unlock()
		time.Sleep(timeout)
		return 0, nil
	}

	chunk := m.rx[0]
	if len(chunk) == 0 {
		// An explicit empty chunk models one silent poll.
		m.rx = m.rx[1:]
		timeout := m.readTimeout
		m.mu.Unlock()
		time.Sleep(timeout)
		return 0, nil
	}

	n := copy(p, chunk)
	if n < len(chunk) {
		m.rx[0] = chunk[n:]
	} else {
		m.rx = m.rx[1:]
	}
	m.mu.Unlock()
	return n, nil
}

// SetReadTimeout sets the simulated per-Read bound.
func (m *MockTransport) SetReadTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readTimeout = timeout
	return nil
}

// Flush discards all queued read chunks.
func (m *MockTransport) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrTransportClosed
	}
	m.flushes++
	m.rx = nil
	return nil
}

// Close marks the transport closed. Idempotent.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected returns true until Close is called.
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock.
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Port returns a fixed identifier for error messages.
func (*MockTransport) Port() string {
	return "mock"
}

// EnqueueRead queues a chunk to be served before any scripted
// response, e.g. stale bytes a flush should discard.
func (m *MockTransport) EnqueueRead(chunk []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx = append(m.rx, append([]byte(nil), chunk...))
}

// SetWriteError makes subsequent writes fail with err.
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SetReadError makes subsequent reads fail with err.
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// Writes returns a copy of all command frames written so far.
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	writes := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		writes[i] = append([]byte(nil), w...)
	}
	return writes
}

// Flushes returns how often the receive buffer was flushed.
func (m *MockTransport) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

// Interleaved reports whether a write arrived while a previous
// response was still pending, i.e. whether two transactions overlapped
// on the simulated bus.
func (m *MockTransport) Interleaved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interleaved
}

// BuildUnlockResponse renders the 7-byte wire form of an unlock
// response for tests.
func BuildUnlockResponse(station, lock, status byte) []byte {
	return []byte{frame.Header, frame.ResponseLength, frame.FuncUnlockResp, station, lock, status, frame.FrameEnd}
}

// BuildStatusResponse renders the 7-byte wire form of a status
// response for tests. Note the status byte precedes the lock number,
// unlike unlock responses.
func BuildStatusResponse(station, lock, status byte) []byte {
	return []byte{frame.Header, frame.ResponseLength, frame.FuncStatusResp, station, status, lock, frame.FrameEnd}
}
