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

//go:build windows

package detection

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sys/windows/registry"

	winnsen "github.com/parcelkiosk/go-winnsen"
)

// findPortFallback resolves the selector through the USB device tree
// in the registry when go.bug.st enumeration fails. Composite devices
// register one instance per interface (VID_xxxx&PID_xxxx&MI_xx), each
// carrying its COM port name under Device Parameters.
func findPortFallback(sel Selector, enumErr error) (string, error) {
	usbKey, err := registry.OpenKey(registry.LOCAL_MACHINE,
		`SYSTEM\CurrentControlSet\Enum\USB`, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return "", fmt.Errorf("%w: enumeration failed (%v) and registry fallback failed: %w",
			winnsen.ErrPortNotFound, enumErr, err)
	}
	defer usbKey.Close()

	deviceKeys, err := usbKey.ReadSubKeyNames(-1)
	if err != nil {
		return "", fmt.Errorf("%w: enumeration failed (%v) and registry scan failed: %w",
			winnsen.ErrPortNotFound, enumErr, err)
	}

	wantPrefix := fmt.Sprintf("VID_%04X&PID_%04X", sel.VendorID, sel.ProductID)
	if IsBlocked(fmt.Sprintf("%04X:%04X", sel.VendorID, sel.ProductID), sel.Blocklist) {
		return "", fmt.Errorf("%w: device %s is blocklisted", winnsen.ErrPortNotFound, wantPrefix)
	}

	var matches []string
	for _, deviceKey := range deviceKeys {
		if !strings.HasPrefix(strings.ToUpper(deviceKey), wantPrefix) {
			continue
		}
		matches = append(matches, collectPortNames(usbKey, deviceKey)...)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no registry entry for %s", winnsen.ErrPortNotFound, wantPrefix)
	}

	sort.Strings(matches)
	if sel.PortIndex < 0 || sel.PortIndex >= len(matches) {
		return "", fmt.Errorf("%w: device %s has %d port(s), index %d requested",
			winnsen.ErrPortNotFound, wantPrefix, len(matches), sel.PortIndex)
	}
	return matches[sel.PortIndex], nil
}

// collectPortNames gathers the PortName values of every instance of
// one device key.
func collectPortNames(usbKey registry.Key, deviceKey string) []string {
	instanceParent, err := registry.OpenKey(usbKey, deviceKey, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return nil
	}
	defer instanceParent.Close()

	instances, err := instanceParent.ReadSubKeyNames(-1)
	if err != nil {
		return nil
	}

	var ports []string
	for _, instance := range instances {
		params, err := registry.OpenKey(instanceParent,
			instance+`\Device Parameters`, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		portName, _, err := params.GetStringValue("PortName")
		params.Close()
		if err != nil || portName == "" {
			continue
		}
		ports = append(ports, portName)
	}
	return ports
}
