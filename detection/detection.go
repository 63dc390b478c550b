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

// Package detection locates the locker controller's USB serial port by
// its vendor/product identity. The production converter is a composite
// CDC device exposing several ports; the controller sits behind a
// fixed port index, so discovery is a deterministic lookup, not a
// probe.
package detection

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"

	winnsen "github.com/parcelkiosk/go-winnsen"
)

// Production converter identity: vendor 0x04E2, product 0x1414, with
// the RS485 bridge on the third CDC port of the composite device.
const (
	DefaultVendorID  = 0x04E2
	DefaultProductID = 0x1414
	DefaultPortIndex = 2
)

// Selector identifies a physical port by a fixed vendor/product/index
// triple.
type Selector struct {
	// VendorID is the USB vendor id of the serial converter.
	VendorID uint16 `yaml:"vendor_id" json:"vendorId"`
	// ProductID is the USB product id of the serial converter.
	ProductID uint16 `yaml:"product_id" json:"productId"`
	// PortIndex selects among the device's ports, ordered by name.
	PortIndex int `yaml:"port_index" json:"portIndex"`
	// Blocklist lists VID:PID pairs that must never be opened, e.g.
	// adapters known to wedge when probed.
	Blocklist []string `yaml:"blocklist" json:"blocklist"`
}

// DefaultSelector returns the production device identity.
func DefaultSelector() Selector {
	return Selector{
		VendorID:  DefaultVendorID,
		ProductID: DefaultProductID,
		PortIndex: DefaultPortIndex,
	}
}

// FindPort returns the name of the port matching sel. It fails with
// winnsen.ErrPortNotFound when the device is absent or the index is
// out of range; it never falls back to an arbitrary port.
func FindPort(sel Selector) (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		// Enumeration can fail on stripped-down systems; fall back to
		// the platform port listing before giving up.
		return findPortFallback(sel, err)
	}
	return selectPort(sel, ports)
}

// selectPort applies sel against an enumerated port list.
func selectPort(sel Selector, ports []*enumerator.PortDetails) (string, error) {
	wantVID := fmt.Sprintf("%04X", sel.VendorID)
	wantPID := fmt.Sprintf("%04X", sel.ProductID)

	var matches []string
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		if !strings.EqualFold(port.VID, wantVID) || !strings.EqualFold(port.PID, wantPID) {
			continue
		}
		if IsBlocked(port.VID+":"+port.PID, sel.Blocklist) {
			continue
		}
		matches = append(matches, port.Name)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no USB serial port with id %s:%s",
			winnsen.ErrPortNotFound, wantVID, wantPID)
	}

	// Composite devices enumerate in nondeterministic order; sort by
	// name so the port index is stable across boots.
	sort.Strings(matches)

	if sel.PortIndex < 0 || sel.PortIndex >= len(matches) {
		return "", fmt.Errorf("%w: device %s:%s has %d port(s), index %d requested",
			winnsen.ErrPortNotFound, wantVID, wantPID, len(matches), sel.PortIndex)
	}
	return matches[sel.PortIndex], nil
}
