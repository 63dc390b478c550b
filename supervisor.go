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
	"fmt"
	"sync"
	"sync/atomic"
)

// ConnectionState is the state of the link to the controller board.
// Only StateConnected permits transactions; every other state makes
// operations fail fast with ErrNotConnected.
type ConnectionState int

const (
	// StateDisconnected means no transport is open and no connect is
	// in progress.
	StateDisconnected ConnectionState = iota
	// StateConnecting means a connect or reconnect sequence is
	// running.
	StateConnecting
	// StateConnected means a transport is open and transactions are
	// permitted.
	StateConnected
	// StatePermissionDenied means the port exists but access was
	// refused; manual intervention is required.
	StatePermissionDenied
	// StateError means the link failed; a reconnect is scheduled
	// until the attempt budget is exhausted.
	StateError
)

// String implements fmt.Stringer.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StatePermissionDenied:
		return "permission denied"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// TransportOpener opens a fresh transport to the controller board,
// typically by locating the USB port via the detection package and
// opening it with transport/serialport.
type TransportOpener func(ctx context.Context) (Transport, error)

// StateListener is notified of connection state changes. Listeners are
// called synchronously after each transition and must return quickly.
type StateListener func(ConnectionState)

// Supervisor manages the physical connection lifecycle: discovery,
// connect, reconnect with capped backoff, and state publication. It
// owns at most one Transport at a time; a reconnect always fully closes
// the prior transport before opening a new one.
type Supervisor struct {
	opener       TransportOpener
	config       *Config
	retry        *RetryConfig
	lifecycle    context.Context
	cancel       context.CancelFunc
	transport    Transport
	device       *Device
	subs         map[int]StateListener
	mu           sync.RWMutex
	nextSub      int
	state        ConnectionState
	reconnecting atomic.Bool
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithDeviceConfig sets the configuration used for devices created on
// each successful connect.
func WithDeviceConfig(config *Config) SupervisorOption {
	return func(s *Supervisor) {
		if config != nil {
			s.config = config.clone()
		}
	}
}

// WithReconnectPolicy sets the backoff policy for connect and
// reconnect attempts.
func WithReconnectPolicy(retry *RetryConfig) SupervisorOption {
	return func(s *Supervisor) {
		if retry != nil {
			s.retry = retry
		}
	}
}

// NewSupervisor creates a Supervisor in the Disconnected state. Call
// Connect to bring the link up.
func NewSupervisor(opener TransportOpener, opts ...SupervisorOption) (*Supervisor, error) {
	if opener == nil {
		return nil, fmt.Errorf("%w: nil transport opener", ErrInvalidConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		opener:    opener,
		config:    DefaultConfig(),
		retry:     DefaultRetryConfig(),
		lifecycle: ctx,
		cancel:    cancel,
		subs:      make(map[int]StateListener),
		state:     StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.config.Validate(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// State returns the current connection state.
func (s *Supervisor) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers a listener for state changes and returns an
// unsubscribe function. The listener is immediately called with the
// current state so subscribers never miss the initial value.
func (s *Supervisor) Subscribe(listener StateListener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = listener
	state := s.state
	s.mu.Unlock()

	listener(state)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Device returns the current device while Connected, or
// ErrNotConnected. Callers must not retain the device across
// reconnects.
func (s *Supervisor) Device() (*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateConnected || s.device == nil {
		return nil, ErrNotConnected
	}
	return s.device, nil
}

// Connect brings the link up, retrying with capped backoff up to the
// configured attempt budget. A permission failure stops immediately:
// retrying cannot fix it.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.setState(StateConnecting)

	err := RetryWithConfig(ctx, s.retry, func() error {
		return s.connectOnce(ctx)
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrPermissionDenied) {
		s.setState(StatePermissionDenied)
		return err
	}
	s.setState(StateError)
	return fmt.Errorf("%w: %w", ErrReconnectExhausted, err)
}

// connectOnce performs one open attempt and adopts the transport on
// success.
func (s *Supervisor) connectOnce(ctx context.Context) error {
	transport, err := s.opener(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return NewTransportError("connect", "", err, ErrorTypePermanent)
		}
		// Open failures are transient for the reconnect loop: the
		// board may re-enumerate after a replug.
		return NewTransportError("connect", "", err, ErrorTypeTransient)
	}

	device, err := New(transport, WithConfig(s.config))
	if err != nil {
		_ = transport.Close()
		return err
	}
	device.setIOErrorHandler(s.handleIOError)

	s.mu.Lock()
	// Exactly one owned transport at a time: fully close the prior
	// one before adopting the new one.
	if s.transport != nil {
		_ = s.transport.Close()
	}
	s.transport = transport
	s.device = device
	s.mu.Unlock()

	s.setState(StateConnected)
	debugf("connected on %s", transport.Port())
	return nil
}

// handleIOError is invoked by the device when a transaction hits a
// transport I/O failure. It tears the link down and schedules an
// asynchronous reconnect.
func (s *Supervisor) handleIOError(err error) {
	debugf("transport failure, scheduling reconnect: %v", err)
	s.teardown()
	s.setState(StateError)

	if !s.reconnecting.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.reconnecting.Store(false)
		if s.lifecycle.Err() != nil {
			return
		}
		_ = s.Connect(s.lifecycle)
	}()
}

// teardown closes and forgets the current transport.
func (s *Supervisor) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transport != nil {
		_ = s.transport.Close()
		s.transport = nil
	}
	s.device = nil
}

// Close shuts the supervisor down: pending reconnects are cancelled,
// the transport is closed, and the state becomes Disconnected. Safe to
// call more than once.
func (s *Supervisor) Close() error {
	s.cancel()
	s.teardown()
	s.setState(StateDisconnected)
	return nil
}

// setState transitions the state and notifies subscribers. Listeners
// are called outside the lock.
func (s *Supervisor) setState(state ConnectionState) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	listeners := make([]StateListener, 0, len(s.subs))
	for _, l := range s.subs {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	debugf("connection state: %s", state)
	for _, l := range listeners {
		l(state)
	}
}
