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
	"log"
	"os"
)

// Debug logging is off by default and enabled with WINNSEN_DEBUG=1.
// Output goes to the standard logger so applications keep control of
// the destination.
var debugEnabled = os.Getenv("WINNSEN_DEBUG") != ""

func debugf(format string, args ...any) {
	if debugEnabled {
		log.Printf("winnsen: "+format, args...)
	}
}

func debugln(args ...any) {
	if debugEnabled {
		log.Println(append([]any{"winnsen:"}, args...)...)
	}
}
