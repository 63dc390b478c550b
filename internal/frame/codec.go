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

package frame

import (
	"errors"
	"fmt"
)

// Codec errors. Decode failures are reported as distinct variants so
// callers can tell line noise apart from a well-formed but unexpected
// frame.
var (
	// ErrMalformed indicates wrong frame size or corrupt header,
	// length or trailer bytes.
	ErrMalformed = errors.New("malformed frame")

	// ErrUnknownFunction indicates a structurally valid frame carrying
	// a function code outside the known set. Unknown frames are
	// rejected, never interpreted.
	ErrUnknownFunction = errors.New("unknown function code")

	// ErrLockOutOfRange indicates a lock number outside 1..16.
	ErrLockOutOfRange = errors.New("lock number out of range")

	// ErrStationOutOfRange indicates a station address other than the
	// single-board production address 0.
	ErrStationOutOfRange = errors.New("station address out of range")
)

// Command is an immutable command frame prior to encoding.
type Command struct {
	Function byte
	Station  byte
	Lock     byte
}

// Response is a decoded, validated response frame.
type Response struct {
	Function byte
	Station  byte
	Lock     byte
	Status   byte
}

// Unlock builds an unlock command for the given station and lock.
// Preconditions are checked, never clamped.
func Unlock(station, lock byte) (Command, error) {
	return newCommand(FuncUnlock, station, lock)
}

// Status builds a status query command for the given station and lock.
func Status(station, lock byte) (Command, error) {
	return newCommand(FuncStatus, station, lock)
}

func newCommand(function, station, lock byte) (Command, error) {
	if station != StationSingle {
		return Command{}, fmt.Errorf("%w: %d", ErrStationOutOfRange, station)
	}
	if lock < MinLock || lock > MaxLock {
		return Command{}, fmt.Errorf("%w: %d", ErrLockOutOfRange, lock)
	}
	return Command{Function: function, Station: station, Lock: lock}, nil
}

// Encode renders the command as its 6-byte wire form.
func (c Command) Encode() []byte {
	return []byte{Header, CommandLength, c.Function, c.Station, c.Lock, FrameEnd}
}

// Decode validates and decodes a 7-byte response frame.
//
// The two response kinds carry their payload bytes in different orders:
// an unlock response is [station, lock, status] while a status response
// is [station, status, lock]. The swap is a quirk of the controller
// firmware and is decoded as two distinct paths on purpose.
func Decode(buf []byte) (Response, error) {
	if len(buf) != ResponseSize {
		return Response{}, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformed, len(buf), ResponseSize)
	}
	if buf[0] != Header {
		return Response{}, fmt.Errorf("%w: bad header byte %#02x", ErrMalformed, buf[0])
	}
	if buf[1] != ResponseLength {
		return Response{}, fmt.Errorf("%w: bad length byte %#02x", ErrMalformed, buf[1])
	}
	if buf[6] != FrameEnd {
		return Response{}, fmt.Errorf("%w: bad trailer byte %#02x", ErrMalformed, buf[6])
	}

	resp := Response{Function: buf[2], Station: buf[3]}
	switch buf[2] {
	case FuncUnlockResp:
		resp.Lock = buf[4]
		resp.Status = buf[5]
	case FuncStatusResp:
		resp.Status = buf[4]
		resp.Lock = buf[5]
	default:
		return Response{}, fmt.Errorf("%w: %#02x", ErrUnknownFunction, buf[2])
	}

	if resp.Lock < MinLock || resp.Lock > MaxLock {
		return Response{}, fmt.Errorf("%w: %d", ErrLockOutOfRange, resp.Lock)
	}
	return resp, nil
}

// Matches reports whether resp legitimately answers cmd: the response
// function must pair with the command function and station and lock
// must match. A delayed or spurious frame from an earlier exchange
// fails this check and is treated as noise by the transaction engine.
func Matches(cmd Command, resp Response) bool {
	var want byte
	switch cmd.Function {
	case FuncUnlock:
		want = FuncUnlockResp
	case FuncStatus:
		want = FuncStatusResp
	default:
		return false
	}
	return resp.Function == want && resp.Station == cmd.Station && resp.Lock == cmd.Lock
}

// Open reports whether a status byte indicates an open lock.
func Open(status byte) bool {
	return status == StatusOpen
}
