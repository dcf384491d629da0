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

package volume

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDriveLetter is returned before any device I/O when a drive
	// letter is outside A-Z.
	ErrInvalidDriveLetter = errors.New("invalid drive letter")

	// ErrInvalidPath is returned when a volume path cannot be reduced to a
	// drive letter.
	ErrInvalidPath = errors.New("invalid volume path")

	// ErrInvalidFilesystem is returned for a filesystem selector the format
	// utility does not accept.
	ErrInvalidFilesystem = errors.New("unsupported filesystem")

	// ErrLabelTooLong is returned when a volume label exceeds the 11
	// character limit of FAT and FAT32.
	ErrLabelTooLong = errors.New("volume label too long")

	// ErrNotRemovable is returned when an operation requiring removable
	// media is invoked on a fixed drive.
	ErrNotRemovable = errors.New("drive is not removable")

	// ErrNoDeviceNumber is returned when a volume's storage device number
	// cannot be queried.
	ErrNoDeviceNumber = errors.New("device number not found")

	// ErrDeviceNotFound is returned when no disk-class device interface
	// matches a volume's device number.
	ErrDeviceNotFound = errors.New("device instance not found")

	// ErrClosed is returned by every operation on a Volume after Close.
	ErrClosed = errors.New("volume is closed")

	// ErrUnsupported is returned by device operations on non-Windows hosts.
	ErrUnsupported = errors.New("volume control is only supported on windows")
)

// VetoError reports a failed device-tree eject request. Status carries the
// raw CONFIGRET code; when the request was vetoed, VetoType and VetoName
// identify the vetoing party.
type VetoError struct {
	VetoName string
	Status   uint32
	VetoType uint32
}

// PNP_VETO_TYPE names, in value order.
var vetoTypeNames = []string{
	"unknown",
	"legacy device",
	"pending close",
	"windows app",
	"windows service",
	"outstanding open",
	"device",
	"driver",
	"illegal device request",
	"insufficient power",
	"non-disableable device",
	"legacy driver",
	"insufficient rights",
}

func (e *VetoError) Error() string {
	if e.VetoName != "" || e.VetoType > 0 {
		name := e.VetoName
		if name == "" {
			name = "unnamed"
		}
		kind := "unknown"
		if int(e.VetoType) < len(vetoTypeNames) {
			kind = vetoTypeNames[e.VetoType]
		}
		return fmt.Sprintf("device eject vetoed by %s (%s)", name, kind)
	}
	return fmt.Sprintf("device eject request failed with status %#x", e.Status)
}

// ExitError reports a format utility run that exited nonzero.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("format process exited with code %d", e.Code)
}
