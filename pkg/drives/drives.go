// Unplug Core
// Copyright (c) 2025 The Unplug Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Unplug Core.
//
// Unplug Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Unplug Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Unplug Core.  If not, see <http://www.gnu.org/licenses/>.

// Package drives enumerates mounted removable drives and watches the set for
// arrivals and removals.
package drives

import (
	"context"
)

// Drive describes one mounted removable volume and, when resolvable, the
// physical disk behind it.
type Drive struct {
	// Root is the drive root path, like "E:\".
	Root string

	// Label is the volume label, empty for unlabeled media.
	Label string

	// Filesystem is the volume's filesystem name, like "exFAT".
	Filesystem string

	// Model is the physical disk's model string, when the disk resolves.
	Model string

	// Bus is the disk's interface type, like "USB".
	Bus string

	// Letter is the upper-case drive letter.
	Letter byte

	// Serial is the volume serial number.
	Serial uint32

	// Size is the physical disk's capacity in bytes, when known.
	Size uint64

	// Total and Free are the filesystem's byte counts.
	Total uint64
	Free  uint64
}

// List returns every mounted removable drive, letters ascending. Volumes
// whose media does not answer information queries are still listed with
// whatever could be read.
func List(ctx context.Context) ([]Drive, error) {
	return listDrives(ctx)
}
