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
	"golang.org/x/sys/windows"
)

// Volume and storage control codes, from winioctl.h.
const (
	fsctlLockVolume             = 0x00090018
	fsctlUnlockVolume           = 0x0009001C
	fsctlDismountVolume         = 0x00090020
	ioctlStorageMediaRemoval    = 0x002D4804
	ioctlStorageEjectMedia      = 0x002D4808
	ioctlStorageGetDeviceNumber = 0x002D1080
)

// winHandle is the production deviceHandle over a Win32 volume handle.
type winHandle struct {
	h windows.Handle
}

// openDevice opens the block device behind devicePath. Exclusive mode opens
// with no sharing; shared mode allows concurrent read/write opens.
func openDevice(devicePath string, exclusive bool) (deviceHandle, error) {
	p, err := windows.UTF16PtrFromString(devicePath)
	if err != nil {
		//nolint:wrapcheck // caller adds the device path context
		return nil, err
	}

	var share uint32
	if !exclusive {
		share = windows.FILE_SHARE_READ | windows.FILE_SHARE_WRITE
	}

	h, err := windows.CreateFile(
		p,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		share,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		//nolint:wrapcheck // caller adds the device path context
		return nil, err
	}
	return &winHandle{h: h}, nil
}

// ioctl issues a control code with an optional input buffer and no output.
//
//nolint:wrapcheck // callers add the volume context
func (w *winHandle) ioctl(code uint32, in *byte, inSize uint32) error {
	var returned uint32
	return windows.DeviceIoControl(w.h, code, in, inSize, nil, 0, &returned, nil)
}

func (w *winHandle) LockVolume() error {
	return w.ioctl(fsctlLockVolume, nil, 0)
}

func (w *winHandle) UnlockVolume() error {
	return w.ioctl(fsctlUnlockVolume, nil, 0)
}

func (w *winHandle) DismountVolume() error {
	return w.ioctl(fsctlDismountVolume, nil, 0)
}

func (w *winHandle) PreventRemoval(prevent bool) error {
	// PREVENT_MEDIA_REMOVAL is a single BOOLEAN.
	var in byte
	if prevent {
		in = 1
	}
	return w.ioctl(ioctlStorageMediaRemoval, &in, 1)
}

func (w *winHandle) EjectMedia() error {
	return w.ioctl(ioctlStorageEjectMedia, nil, 0)
}

//nolint:wrapcheck // callers add the volume context
func (w *winHandle) Close() error {
	return windows.CloseHandle(w.h)
}

// isRemovableRoot reports whether the drive at root is removable media.
func isRemovableRoot(root string) (bool, error) {
	p, err := windows.UTF16PtrFromString(root)
	if err != nil {
		//nolint:wrapcheck // caller adds the root context
		return false, err
	}
	return windows.GetDriveType(p) == windows.DRIVE_REMOVABLE, nil
}

// volumeReady reports whether the volume at root currently answers volume
// information queries, which requires mounted, ready media.
func volumeReady(root string) (bool, error) {
	p, err := windows.UTF16PtrFromString(root)
	if err != nil {
		//nolint:wrapcheck // caller adds the root context
		return false, err
	}
	err = windows.GetVolumeInformation(p, nil, 0, nil, nil, nil, nil, 0)
	return err == nil, nil
}
