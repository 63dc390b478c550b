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

// Package frame provides encoding, decoding and correlation of Winnsen
// locker-controller frames. The wire format is fixed-layout with no
// checksum: a 6-byte command and a 7-byte response delimited by constant
// header and trailer bytes.
package frame

// Frame markers and control bytes
const (
	Header   = 0x90 // First byte of every frame
	FrameEnd = 0x03 // Last byte of every frame

	CommandLength  = 0x06 // Length byte carried in command frames
	ResponseLength = 0x07 // Length byte carried in response frames
)

// Function codes
const (
	FuncUnlock     = 0x05 // Fire the solenoid for one lock
	FuncStatus     = 0x12 // Query open/closed state of one lock
	FuncUnlockResp = 0x85 // Response to FuncUnlock
	FuncStatusResp = 0x92 // Response to FuncStatus
)

// Frame sizes in bytes on the wire
const (
	CommandSize  = 6
	ResponseSize = 7
)

// Lock number range on a single controller board
const (
	MinLock = 1
	MaxLock = 16
)

// StationSingle is the station address of the production single-board
// deployment. Multi-station DIP-switch addressing is not supported.
const StationSingle = 0x00

// Status byte values reported by the board
const (
	StatusClosed = 0x00
	StatusOpen   = 0x01
)
