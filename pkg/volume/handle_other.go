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

//go:build !windows

package volume

// Stubs keep the package loadable off Windows so portable callers and tests
// build; every device operation reports ErrUnsupported.

func openDevice(_ string, _ bool) (deviceHandle, error) {
	return nil, ErrUnsupported
}

func newDeviceTree() deviceTree {
	return unsupportedTree{}
}

func isRemovableRoot(_ string) (bool, error) {
	return false, ErrUnsupported
}

func volumeReady(_ string) (bool, error) {
	return false, ErrUnsupported
}

type unsupportedTree struct{}

func (unsupportedTree) DeviceNumber(_ string) (DeviceNumber, error) {
	return DeviceNumber{}, ErrUnsupported
}

func (unsupportedTree) FindDiskInstance(_ DeviceNumber) (uint32, error) {
	return 0, ErrUnsupported
}

func (unsupportedTree) Parent(_ uint32) (uint32, error) {
	return 0, ErrUnsupported
}

func (unsupportedTree) RequestEject(_ uint32) error {
	return ErrUnsupported
}
