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

//go:build !windows

package detection

import (
	"fmt"

	winnsen "github.com/parcelkiosk/go-winnsen"
)

// findPortFallback has no secondary discovery path outside Windows;
// go.bug.st enumeration reads sysfs/IOKit directly.
func findPortFallback(_ Selector, enumErr error) (string, error) {
	return "", fmt.Errorf("%w: port enumeration failed: %w", winnsen.ErrPortNotFound, enumErr)
}
