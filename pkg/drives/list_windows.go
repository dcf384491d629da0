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

package drives

import (
	"context"
	"fmt"
	"strings"

	"github.com/UnplugProject/unplug-core/pkg/volume"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/yusufpapurcu/wmi"
	"golang.org/x/sys/windows"
)

// win32DiskDrive is the slice of Win32_DiskDrive the disk query selects.
// Size is NULL for card readers without media, so it must be a pointer.
type win32DiskDrive struct {
	Model         string
	InterfaceType string
	Size          *uint64
	Index         uint32
}

func listDrives(ctx context.Context) ([]Drive, error) {
	if err := ctx.Err(); err != nil {
		//nolint:wrapcheck // cancellation must surface unwrapped
		return nil, err
	}

	bitmap, err := windows.GetLogicalDrives()
	if err != nil {
		return nil, fmt.Errorf("get logical drives: %w", err)
	}

	disks := queryPhysicalDisks()

	var out []Drive
	for i := range 26 {
		if bitmap&(1<<uint(i)) == 0 {
			continue
		}
		letter := byte('A' + i)
		removable, err := volume.IsRemovableDrive(letter)
		if err != nil || !removable {
			continue
		}
		out = append(out, describeDrive(ctx, letter, disks))
	}
	return out, nil
}

// probeDrive describes a single drive, resolving its physical disk fresh.
// Used on arrival events where no shared disk snapshot exists.
func probeDrive(ctx context.Context, letter byte) Drive {
	return describeDrive(ctx, letter, queryPhysicalDisks())
}

func describeDrive(ctx context.Context, letter byte, disks map[uint32]win32DiskDrive) Drive {
	root := string(letter) + `:\`
	d := Drive{Letter: letter, Root: root}

	if label, serial, fsname, err := volumeInfo(root); err == nil {
		d.Label = label
		d.Serial = serial
		d.Filesystem = fsname
	}

	if usage, err := disk.UsageWithContext(ctx, root); err == nil {
		d.Total = usage.Total
		d.Free = usage.Free
	}

	num, err := volume.QueryDeviceNumber(`\\.\` + string(letter) + ":")
	if err != nil {
		log.Debug().Err(err).Str("drive", root).Msg("device number query failed")
		return d
	}
	dd, ok := disks[num.Number]
	if !ok {
		return d
	}
	d.Model = strings.TrimSpace(dd.Model)
	d.Bus = dd.InterfaceType
	if dd.Size != nil {
		d.Size = *dd.Size
	}
	return d
}

func volumeInfo(root string) (label string, serial uint32, fsname string, err error) {
	p, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return "", 0, "", fmt.Errorf("root path: %w", err)
	}

	var nameBuf [windows.MAX_PATH + 1]uint16
	var fsBuf [windows.MAX_PATH + 1]uint16
	var serialNum, maxComponent, fsFlags uint32

	err = windows.GetVolumeInformation(
		p,
		&nameBuf[0], uint32(len(nameBuf)),
		&serialNum, &maxComponent, &fsFlags,
		&fsBuf[0], uint32(len(fsBuf)),
	)
	if err != nil {
		return "", 0, "", fmt.Errorf("volume information for %s: %w", root, err)
	}
	return windows.UTF16ToString(nameBuf[:]), serialNum, windows.UTF16ToString(fsBuf[:]), nil
}

// queryPhysicalDisks maps disk index to Win32_DiskDrive. A failed query is
// not fatal to a listing; volumes are then reported without disk details.
func queryPhysicalDisks() map[uint32]win32DiskDrive {
	var dd []win32DiskDrive
	if err := wmi.Query("SELECT Model, InterfaceType, Size, Index FROM Win32_DiskDrive", &dd); err != nil {
		log.Debug().Err(err).Msg("physical disk query failed")
		return nil
	}
	m := make(map[uint32]win32DiskDrive, len(dd))
	for _, d := range dd {
		m[d.Index] = d
	}
	return m
}
