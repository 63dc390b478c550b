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
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parcelkiosk/go-winnsen/internal/frame"
)

// readPollInterval is the per-Read bound used inside a transaction. The
// overall deadline is enforced cumulatively across reads, so the poll
// interval only controls how often the loop re-checks it.
const readPollInterval = 25 * time.Millisecond

// Device drives request/response transactions against one Winnsen
// locker controller board over a Transport.
//
// All transactions on a Device serialize on an internal mutex: the
// RS485 link is half-duplex and unframed concurrent writes corrupt the
// bus. Concurrent callers are safe; their frames never interleave on
// the wire.
type Device struct {
	transport Transport
	config    *Config
	onIOError func(error)
	mu        sync.Mutex
	stats     deviceStats
}

type deviceStats struct {
	transactions atomic.Uint64
	retries      atomic.Uint64
	timeouts     atomic.Uint64
	incomplete   atomic.Uint64
	ioErrors     atomic.Uint64
}

// DeviceStats is a read-only snapshot of accumulated error counters.
// Repeated timeouts on a healthy link are worth surfacing to an
// operator; the counters carry that signal without coupling the core
// to a metrics system.
type DeviceStats struct {
	Transactions uint64
	Retries      uint64
	Timeouts     uint64
	Incomplete   uint64
	IOErrors     uint64
}

// New creates a Device on the given transport. The default
// configuration is the production one (16 locks, station 0, 800ms
// timeout, 2 retries); options override it and the result is validated
// once here.
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidConfig)
	}

	device := &Device{
		transport: transport,
		config:    DefaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	if err := device.config.Validate(); err != nil {
		return nil, err
	}
	return device, nil
}

// Transport returns the underlying transport.
func (d *Device) Transport() Transport {
	return d.transport
}

// Config returns a copy of the device configuration.
func (d *Device) Config() Config {
	return *d.config
}

// Stats returns a snapshot of the accumulated counters.
func (d *Device) Stats() DeviceStats {
	return DeviceStats{
		Transactions: d.stats.transactions.Load(),
		Retries:      d.stats.retries.Load(),
		Timeouts:     d.stats.timeouts.Load(),
		Incomplete:   d.stats.incomplete.Load(),
		IOErrors:     d.stats.ioErrors.Load(),
	}
}

// Close closes the underlying transport.
func (d *Device) Close() error {
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

// setIOErrorHandler registers a callback invoked whenever a transaction
// fails with a transport I/O error. The supervisor uses it to drive
// reconnection. The callback must not issue transactions.
func (d *Device) setIOErrorHandler(fn func(error)) {
	d.onIOError = fn
}

// Transact runs one full transaction including the retry sequence and
// returns the matching response.
func (d *Device) Transact(cmd frame.Command) (frame.Response, error) {
	return d.TransactContext(context.Background(), cmd)
}

// TransactContext is Transact with cancellation support. Cancellation
// stops scheduling further reads and attempts; it never interrupts a
// write already handed to the transport, so the bus is left clean.
func (d *Device) TransactContext(ctx context.Context, cmd frame.Command) (frame.Response, error) {
	resp, _, err := d.transact(ctx, cmd)
	return resp, err
}

// transact serializes on the device mutex and runs up to
// 1+MaxRetries attempts. It reports how many attempts ran.
func (d *Device) transact(ctx context.Context, cmd frame.Command) (frame.Response, int, error) {
	if err := d.checkCommand(cmd); err != nil {
		return frame.Response{}, 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.transport.IsConnected() {
		return frame.Response{}, 0, ErrNotConnected
	}

	d.stats.transactions.Add(1)

	var lastErr error
	for attempt := 0; attempt <= d.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return frame.Response{}, attempt, fmt.Errorf("transaction cancelled: %w", err)
		}
		if attempt > 0 {
			d.stats.retries.Add(1)
			// Let the half-duplex bus settle before transmitting
			// again.
			select {
			case <-ctx.Done():
				return frame.Response{}, attempt, fmt.Errorf("transaction cancelled: %w", ctx.Err())
			case <-time.After(d.config.RetryDelay):
			}
		}

		resp, err := d.attempt(ctx, cmd)
		if err == nil {
			return resp, attempt + 1, nil
		}
		lastErr = err
		debugf("attempt %d/%d for lock %d failed: %v",
			attempt+1, d.config.MaxRetries+1, cmd.Lock, err)

		if isIOError(err) {
			// Port-level failures are never retried here; the
			// supervisor owns recovery.
			d.stats.ioErrors.Add(1)
			if d.onIOError != nil {
				d.onIOError(err)
			}
			return frame.Response{}, attempt + 1, err
		}
		if !IsRetryable(err) {
			return frame.Response{}, attempt + 1, err
		}
	}

	return frame.Response{}, d.config.MaxRetries + 1, lastErr
}

// checkCommand rejects out-of-range parameters before they reach the
// wire. Values are never clamped.
func (d *Device) checkCommand(cmd frame.Command) error {
	if cmd.Station != d.config.Station {
		return fmt.Errorf("%w: %d", ErrInvalidStation, cmd.Station)
	}
	if int(cmd.Lock) < frame.MinLock || int(cmd.Lock) > d.config.TotalLocks {
		return fmt.Errorf("%w: %d", ErrInvalidLock, cmd.Lock)
	}
	return nil
}

// attempt performs a single flush, write, read-until-match exchange
// under one cumulative deadline.
func (d *Device) attempt(ctx context.Context, cmd frame.Command) (frame.Response, error) {
	port := d.transport.Port()

	// The deadline covers the whole write+read cycle; it is computed
	// once and checked cumulatively across short reads.
	deadline := time.Now().Add(d.config.Timeout)

	// Discard stale bytes a prior aborted exchange may have left in
	// the receive buffer.
	if err := d.transport.Flush(); err != nil {
		return frame.Response{}, NewTransportReadError("flush", port, err)
	}

	poll := readPollInterval
	if d.config.Timeout < poll {
		poll = d.config.Timeout
	}
	if err := d.transport.SetReadTimeout(poll); err != nil {
		return frame.Response{}, NewTransportReadError("setReadTimeout", port, err)
	}

	wire := cmd.Encode()
	n, err := d.transport.Write(wire)
	if err != nil {
		return frame.Response{}, NewTransportWriteError("write", port, err)
	}
	if n != len(wire) {
		return frame.Response{}, NewTransportWriteError("write", port, io.ErrShortWrite)
	}

	return d.readResponse(ctx, cmd, deadline)
}

// readResponse accumulates bytes into a response buffer until a frame
// matching cmd is assembled or the deadline elapses. Truncated or
// spurious bytes are treated as noise, not as failure, while time
// budget remains: the buffer is resynchronized on the next header byte
// and accumulation continues.
func (d *Device) readResponse(ctx context.Context, cmd frame.Command, deadline time.Time) (frame.Response, error) {
	port := d.transport.Port()
	rx := make([]byte, 0, frame.ResponseSize)
	scratch := make([]byte, frame.ResponseSize)
	seen := 0

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return frame.Response{}, fmt.Errorf("transaction cancelled: %w", err)
		}

		n, err := d.transport.Read(scratch[:frame.ResponseSize-len(rx)])
		if err != nil {
			return frame.Response{}, NewTransportReadError("read", port, err)
		}
		if n == 0 {
			continue
		}
		seen += n
		rx = append(rx, scratch[:n]...)
		if len(rx) < frame.ResponseSize {
			continue
		}

		resp, decErr := frame.Decode(rx)
		if decErr == nil && frame.Matches(cmd, resp) {
			return resp, nil
		}
		debugf("discarding noise on %s: % 02X (%v)", port, rx, decErr)
		rx = resync(rx)
	}

	if seen == 0 {
		d.stats.timeouts.Add(1)
		return frame.Response{}, NewTimeoutError("readResponse", port)
	}
	d.stats.incomplete.Add(1)
	return frame.Response{}, NewIncompleteResponseError("readResponse", port, seen)
}

// resync drops bytes up to the next header byte after position zero so
// accumulation can recover from a partial or foreign frame.
func resync(rx []byte) []byte {
	for i := 1; i < len(rx); i++ {
		if rx[i] == frame.Header {
			return append(rx[:0], rx[i:]...)
		}
	}
	return rx[:0]
}
