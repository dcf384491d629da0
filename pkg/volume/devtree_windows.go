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
	"unsafe"

	"golang.org/x/sys/windows"
)

// GUID_DEVINTERFACE_DISK, the device interface class of disk devices.
//
//nolint:gochecknoglobals
var guidDevInterfaceDisk = windows.GUID{
	Data1: 0x53F56307,
	Data2: 0xB6BF,
	Data3: 0x11D0,
	Data4: [8]byte{0x94, 0xF2, 0x00, 0xA0, 0xC9, 0x1E, 0xFB, 0x8B},
}

// setupapi wraps most of the device information set API, but not interface
// enumeration; cfgmgr32 device tree walking is not wrapped at all.
//
//nolint:gochecknoglobals
var (
	modsetupapi = windows.NewLazySystemDLL("setupapi.dll")
	modcfgmgr32 = windows.NewLazySystemDLL("cfgmgr32.dll")

	procSetupDiEnumDeviceInterfaces      = modsetupapi.NewProc("SetupDiEnumDeviceInterfaces")
	procSetupDiGetDeviceInterfaceDetailW = modsetupapi.NewProc("SetupDiGetDeviceInterfaceDetailW")
	procCMGetParent                      = modcfgmgr32.NewProc("CM_Get_Parent")
	procCMRequestDeviceEjectW            = modcfgmgr32.NewProc("CM_Request_Device_EjectW")
)

// CONFIGRET status codes from cfgmgr32.h.
const (
	crSuccess      = 0x00
	crRemoveVetoed = 0x17
)

// SP_DEVICE_INTERFACE_DATA.
type spDevInterfaceData struct {
	cbSize             uint32
	interfaceClassGUID windows.GUID
	flags              uint32
	reserved           uintptr
}

// SP_DEVINFO_DATA.
type spDevInfoData struct {
	cbSize    uint32
	classGUID windows.GUID
	devInst   uint32
	reserved  uintptr
}

// SP_DEVICE_INTERFACE_DETAIL_DATA_W header. The device path extends past the
// declared array; callers allocate the full buffer reported by the size query.
type spDevInterfaceDetailData struct {
	cbSize     uint32
	devicePath [1]uint16
}

// detailDataSize is the cbSize SetupDiGetDeviceInterfaceDetailW expects: the
// header size under the SDK's packing, which differs from Go's layout.
func detailDataSize() uint32 {
	if unsafe.Sizeof(uintptr(0)) == 8 {
		return 8
	}
	return 6
}

// STORAGE_DEVICE_NUMBER.
type storageDeviceNumber struct {
	deviceType      uint32
	deviceNumber    uint32
	partitionNumber uint32
}

// sysDeviceTree is the production deviceTree over setupapi and cfgmgr32.
type sysDeviceTree struct{}

func newDeviceTree() deviceTree {
	return sysDeviceTree{}
}

// DeviceNumber answers the storage device number of the device behind
// devicePath. The query open requests no access rights, so it succeeds
// even while another handle holds the volume exclusively.
func (sysDeviceTree) DeviceNumber(devicePath string) (DeviceNumber, error) {
	return queryDeviceNumber(devicePath)
}

func queryDeviceNumber(devicePath string) (DeviceNumber, error) {
	p, err := windows.UTF16PtrFromString(devicePath)
	if err != nil {
		return DeviceNumber{}, fmt.Errorf("device path: %w", err)
	}

	h, err := windows.CreateFile(
		p,
		0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return DeviceNumber{}, fmt.Errorf("open %s: %w", devicePath, err)
	}
	defer func() {
		_ = windows.CloseHandle(h)
	}()

	var sdn storageDeviceNumber
	var returned uint32
	err = windows.DeviceIoControl(
		h,
		ioctlStorageGetDeviceNumber,
		nil, 0,
		(*byte)(unsafe.Pointer(&sdn)), uint32(unsafe.Sizeof(sdn)),
		&returned, nil,
	)
	if err != nil {
		return DeviceNumber{}, fmt.Errorf("query device number: %w", err)
	}

	return DeviceNumber{
		DeviceType: sdn.deviceType,
		Number:     sdn.deviceNumber,
		Partition:  sdn.partitionNumber,
	}, nil
}

// FindDiskInstance scans every present disk-class device interface and
// returns the device instance whose storage device number matches target.
func (sysDeviceTree) FindDiskInstance(target DeviceNumber) (uint32, error) {
	devInfo, err := windows.SetupDiGetClassDevsEx(
		&guidDevInterfaceDisk,
		"",
		0,
		windows.DIGCF_PRESENT|windows.DIGCF_DEVICEINTERFACE,
		0,
		"",
	)
	if err != nil {
		return 0, fmt.Errorf("get disk device list: %w", err)
	}
	defer func() {
		_ = windows.SetupDiDestroyDeviceInfoList(devInfo)
	}()

	for index := uint32(0); ; index++ {
		var ifc spDevInterfaceData
		ifc.cbSize = uint32(unsafe.Sizeof(ifc))

		ret, _, errno := procSetupDiEnumDeviceInterfaces.Call(
			uintptr(devInfo),
			0,
			uintptr(unsafe.Pointer(&guidDevInterfaceDisk)),
			uintptr(index),
			uintptr(unsafe.Pointer(&ifc)),
		)
		if ret == 0 {
			if errors.Is(errno, windows.ERROR_NO_MORE_ITEMS) {
				break
			}
			return 0, fmt.Errorf("enum disk interfaces: %w", errno)
		}

		path, devInst, err := deviceInterfaceDetail(devInfo, &ifc)
		if err != nil {
			// A transient interface is no reason to abort the scan.
			continue
		}

		num, err := queryDeviceNumber(path)
		if err != nil {
			continue
		}
		if num.Matches(target) {
			return devInst, nil
		}
	}

	return 0, ErrDeviceNotFound
}

// deviceInterfaceDetail resolves the device path and device instance of one
// enumerated interface. Two calls: the first sizes the variable-length
// detail data, the second fills it.
func deviceInterfaceDetail(devInfo windows.DevInfo, ifc *spDevInterfaceData) (string, uint32, error) {
	var required uint32
	ret, _, errno := procSetupDiGetDeviceInterfaceDetailW.Call(
		uintptr(devInfo),
		uintptr(unsafe.Pointer(ifc)),
		0,
		0,
		uintptr(unsafe.Pointer(&required)),
		0,
	)
	if ret == 0 && !errors.Is(errno, windows.ERROR_INSUFFICIENT_BUFFER) {
		return "", 0, fmt.Errorf("size interface detail: %w", errno)
	}
	if required < uint32(unsafe.Sizeof(spDevInterfaceDetailData{})) {
		return "", 0, fmt.Errorf("interface detail size %d too small", required)
	}

	buf := make([]byte, required)
	detail := (*spDevInterfaceDetailData)(unsafe.Pointer(&buf[0]))
	detail.cbSize = detailDataSize()

	var devData spDevInfoData
	devData.cbSize = uint32(unsafe.Sizeof(devData))

	ret, _, errno = procSetupDiGetDeviceInterfaceDetailW.Call(
		uintptr(devInfo),
		uintptr(unsafe.Pointer(ifc)),
		uintptr(unsafe.Pointer(detail)),
		uintptr(required),
		0,
		uintptr(unsafe.Pointer(&devData)),
	)
	if ret == 0 {
		return "", 0, fmt.Errorf("interface detail: %w", errno)
	}

	return windows.UTF16PtrToString(&detail.devicePath[0]), devData.devInst, nil
}

// Parent returns the device instance of the parent node in the device tree.
// For a disk that is the device stack the disk sits on, usually the USB mass
// storage device.
func (sysDeviceTree) Parent(devInst uint32) (uint32, error) {
	var parent uint32
	ret, _, _ := procCMGetParent.Call(
		uintptr(unsafe.Pointer(&parent)),
		uintptr(devInst),
		0,
	)
	if ret != crSuccess {
		return 0, fmt.Errorf("device parent lookup failed with status %#x", ret)
	}
	return parent, nil
}

// RequestEject asks the PnP manager to eject the device instance. A refusal
// carries the vetoing component's name and veto class when the system
// provides them.
func (sysDeviceTree) RequestEject(devInst uint32) error {
	var vetoType uint32
	vetoName := make([]uint16, windows.MAX_PATH)

	ret, _, _ := procCMRequestDeviceEjectW.Call(
		uintptr(devInst),
		uintptr(unsafe.Pointer(&vetoType)),
		uintptr(unsafe.Pointer(&vetoName[0])),
		uintptr(len(vetoName)),
		0,
	)
	if ret != crSuccess {
		return &VetoError{
			VetoName: windows.UTF16ToString(vetoName),
			Status:   uint32(ret),
			VetoType: vetoType,
		}
	}
	return nil
}
