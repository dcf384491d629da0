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

// deviceHandle is an open handle to a volume's block device. One Volume
// owns at most one at a time; closing the handle releases any volume lock
// held through it.
type deviceHandle interface {
	// LockVolume takes the exclusive volume lock (FSCTL_LOCK_VOLUME).
	LockVolume() error

	// UnlockVolume releases the volume lock (FSCTL_UNLOCK_VOLUME).
	UnlockVolume() error

	// DismountVolume detaches the filesystem (FSCTL_DISMOUNT_VOLUME).
	DismountVolume() error

	// PreventRemoval sets or clears the media removal prevention flag
	// (IOCTL_STORAGE_MEDIA_REMOVAL).
	PreventRemoval(prevent bool) error

	// EjectMedia powers off the storage media (IOCTL_STORAGE_EJECT_MEDIA).
	EjectMedia() error

	// Close releases the OS handle.
	Close() error
}

// opener opens the device behind a volume device path, shared or exclusive.
// The production opener lives in the platform file; tests inject fakes.
type opener func(devicePath string, exclusive bool) (deviceHandle, error)

// DeviceNumber identifies the physical disk backing a volume. Transient:
// used only to correlate a volume with its device-tree node during eject.
type DeviceNumber struct {
	DeviceType uint32
	Number     uint32
	Partition  uint32
}

// Matches reports whether two device numbers refer to the same physical
// device. Partition numbers differ between a volume and its whole-disk
// device, so they are not compared.
func (n DeviceNumber) Matches(other DeviceNumber) bool {
	return n.DeviceType == other.DeviceType && n.Number == other.Number
}

// QueryDeviceNumber reports the storage device number of the volume behind a
// device path like `\\.\E:`. The query opens with zero access rights, so it
// works even while another handle holds the volume exclusively.
func QueryDeviceNumber(devicePath string) (DeviceNumber, error) {
	return newDeviceTree().DeviceNumber(devicePath)
}

// deviceTree resolves volumes to device-tree nodes and drives tree-level
// eject. Implemented over SetupAPI/CfgMgr32 on Windows; faked in tests.
type deviceTree interface {
	// DeviceNumber opens devicePath information-only and queries the
	// storage device number of the disk behind it.
	DeviceNumber(devicePath string) (DeviceNumber, error)

	// FindDiskInstance scans disk-class device interfaces for the one
	// whose device number matches target and returns its device instance
	// handle. Returns ErrDeviceNotFound when the scan exhausts without a
	// match. Enumeration order is OS-defined; first match wins.
	FindDiskInstance(target DeviceNumber) (uint32, error)

	// Parent returns the device instance of the node's parent in the
	// device tree.
	Parent(devInst uint32) (uint32, error)

	// RequestEject asks the device tree to eject the node. A veto or
	// other failure comes back as a *VetoError.
	RequestEject(devInst uint32) error
}
