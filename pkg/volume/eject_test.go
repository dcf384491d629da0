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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTree scripts the enumerator and the device-tree eject request.
type fakeTree struct {
	num       DeviceNumber
	numErr    error
	inst      uint32
	instErr   error
	parent    uint32
	parentErr error
	ejectErr  error

	numCalls int
	finds    []DeviceNumber
	parents  []uint32
	ejected  []uint32
}

func (f *fakeTree) DeviceNumber(_ string) (DeviceNumber, error) {
	f.numCalls++
	if f.numErr != nil {
		return DeviceNumber{}, f.numErr
	}
	return f.num, nil
}

func (f *fakeTree) FindDiskInstance(target DeviceNumber) (uint32, error) {
	f.finds = append(f.finds, target)
	if f.instErr != nil {
		return 0, f.instErr
	}
	return f.inst, nil
}

func (f *fakeTree) Parent(devInst uint32) (uint32, error) {
	f.parents = append(f.parents, devInst)
	if f.parentErr != nil {
		return 0, f.parentErr
	}
	return f.parent, nil
}

func (f *fakeTree) RequestEject(devInst uint32) error {
	f.ejected = append(f.ejected, devInst)
	return f.ejectErr
}

func TestVolume_Eject_FullSequence(t *testing.T) {
	t.Parallel()

	open := &fakeOpener{}
	tree := &fakeTree{
		num:    DeviceNumber{DeviceType: 7, Number: 2, Partition: 1},
		inst:   40,
		parent: 41,
	}
	v := newTestVolume(t, open)
	v.tree = tree

	require.NoError(t, v.Eject())

	// Dismounted first, then enumerated, then the parent node was ejected.
	require.Len(t, open.opened, 1)
	assert.Equal(t,
		[]string{"lock", "dismount", "prevent:false", "eject-media", "close"},
		open.opened[0].calls)
	assert.Equal(t, []DeviceNumber{tree.num}, tree.finds)
	assert.Equal(t, []uint32{40}, tree.parents, "parent of the disk node")
	assert.Equal(t, []uint32{41}, tree.ejected, "eject targets the parent")

	// Terminal: handle gone, instance dead.
	assert.Nil(t, v.handle)
	assert.ErrorIs(t, v.Lock(), ErrClosed)
}

func TestVolume_Eject_SkipsDismountWhenAlreadyDismounted(t *testing.T) {
	t.Parallel()

	open := &fakeOpener{}
	tree := &fakeTree{inst: 8, parent: 9}
	v := newTestVolume(t, open)
	v.tree = tree
	v.mounted = false

	require.NoError(t, v.Eject())
	assert.Empty(t, open.opened, "no dismount, no handle")
	assert.Equal(t, []uint32{9}, tree.ejected)
}

func TestVolume_Eject_AbortsWhenDismountFails(t *testing.T) {
	t.Parallel()

	errLock := errors.New("volume busy")
	open := &fakeOpener{queue: []*fakeHandle{{lockErr: errLock}}}
	tree := &fakeTree{}
	v := newTestVolume(t, open)
	v.tree = tree

	err := v.Eject()
	require.ErrorIs(t, err, errLock)
	assert.Zero(t, tree.numCalls, "no enumeration after a failed dismount")
	assert.Empty(t, tree.ejected)
}

func TestVolume_Eject_DeviceNumberFailure(t *testing.T) {
	t.Parallel()

	errQuery := errors.New("ioctl failed")
	tree := &fakeTree{numErr: errQuery}
	v := newTestVolume(t, &fakeOpener{})
	v.tree = tree

	err := v.Eject()
	require.ErrorIs(t, err, ErrNoDeviceNumber)
	require.ErrorIs(t, err, errQuery)
	assert.Empty(t, tree.finds, "no scan without a device number")
	assert.False(t, v.closed, "a failed eject leaves the volume usable")
}

func TestVolume_Eject_InstanceNotFound(t *testing.T) {
	t.Parallel()

	tree := &fakeTree{instErr: ErrDeviceNotFound}
	v := newTestVolume(t, &fakeOpener{})
	v.tree = tree

	err := v.Eject()
	require.ErrorIs(t, err, ErrDeviceNotFound)
	assert.Empty(t, tree.parents)
	assert.Empty(t, tree.ejected)
}

func TestVolume_Eject_ParentFailure(t *testing.T) {
	t.Parallel()

	errParent := errors.New("no parent")
	tree := &fakeTree{inst: 3, parentErr: errParent}
	v := newTestVolume(t, &fakeOpener{})
	v.tree = tree

	err := v.Eject()
	require.ErrorIs(t, err, errParent)
	assert.Empty(t, tree.ejected)
}

func TestVolume_Eject_Vetoed(t *testing.T) {
	t.Parallel()

	veto := &VetoError{VetoName: "svchost.exe", Status: 0x17, VetoType: 5}
	tree := &fakeTree{inst: 3, parent: 4, ejectErr: veto}
	v := newTestVolume(t, &fakeOpener{})
	v.tree = tree

	err := v.Eject()

	var vetoErr *VetoError
	require.ErrorAs(t, err, &vetoErr)
	assert.Equal(t, "svchost.exe", vetoErr.VetoName)
	assert.False(t, v.closed, "a vetoed eject can be retried")
	assert.False(t, v.Mounted(), "the dismount still happened")
}

func TestVetoError_Messages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  VetoError
		want string
	}{
		{
			name: "named_veto",
			err:  VetoError{VetoName: "svchost.exe", Status: 0x17, VetoType: 5},
			want: "device eject vetoed by svchost.exe (outstanding open)",
		},
		{
			name: "unnamed_veto",
			err:  VetoError{Status: 0x17, VetoType: 6},
			want: "device eject vetoed by unnamed (device)",
		},
		{
			name: "unknown_veto_type",
			err:  VetoError{VetoName: "driver.sys", Status: 0x17, VetoType: 99},
			want: "device eject vetoed by driver.sys (unknown)",
		},
		{
			name: "plain_failure",
			err:  VetoError{Status: 0x1c},
			want: "device eject request failed with status 0x1c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestDeviceNumber_Matches(t *testing.T) {
	t.Parallel()

	disk := DeviceNumber{DeviceType: 7, Number: 2, Partition: 0}
	part := DeviceNumber{DeviceType: 7, Number: 2, Partition: 1}
	other := DeviceNumber{DeviceType: 7, Number: 3, Partition: 1}

	assert.True(t, disk.Matches(part), "partition number must not affect identity")
	assert.True(t, part.Matches(disk))
	assert.False(t, part.Matches(other))
	assert.False(t, disk.Matches(DeviceNumber{DeviceType: 2, Number: 2}))
}
