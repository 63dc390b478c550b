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

/*
Package winnsen provides a pure Go library for driving Winnsen parcel
locker controller boards over their RS485 request/response protocol.

The controller is an STM32-based 16-lock board reached through a
USB-serial CDC converter (9600 baud, 8N1, half-duplex RS485 behind it).
Commands are fixed 6-byte frames, responses fixed 7-byte frames; the
library owns framing, response correlation, retry and timeout policy,
and the one-transaction-in-flight discipline the half-duplex bus
requires.

Features:
  - Frame codec for the unlock and status commands, including the
    payload-order difference between the two response kinds
  - Byte-oriented Transport abstraction with a production serial
    implementation and an in-memory mock
  - Transaction engine with cumulative deadlines, noise-tolerant
    response accumulation and configurable retries
  - Controller facade: unlock, status, bulk status, emergency unlock,
    locker-identifier mapping
  - Connection supervisor with USB port discovery, capped-backoff
    reconnection and state change notifications

Basic usage:

	import (
	    "github.com/parcelkiosk/go-winnsen"
	    "github.com/parcelkiosk/go-winnsen/detection"
	    "github.com/parcelkiosk/go-winnsen/transport/serialport"
	)

	port, err := detection.FindPort(detection.DefaultSelector())
	if err != nil {
	    log.Fatal(err)
	}

	transport, err := serialport.Open(port, winnsen.DefaultBaudRate)
	if err != nil {
	    log.Fatal(err)
	}
	defer transport.Close()

	controller, err := winnsen.NewController(transport)
	if err != nil {
	    log.Fatal(err)
	}

	result := controller.Unlock(7)
	if !result.Success {
	    log.Printf("lock %d: %s", result.Lock, result.Message())
	}

For unattended kiosk deployments wrap the transport in a Supervisor so
USB detach/reattach is handled automatically:

	sup, err := winnsen.NewSupervisor(func(ctx context.Context) (winnsen.Transport, error) {
	    port, err := detection.FindPort(detection.DefaultSelector())
	    if err != nil {
	        return nil, err
	    }
	    return serialport.Open(port, winnsen.DefaultBaudRate)
	})
	if err != nil {
	    log.Fatal(err)
	}
	if err := sup.Connect(ctx); err != nil {
	    log.Fatal(err)
	}
	controller, err := winnsen.NewSupervisedController(sup)
*/
package winnsen
