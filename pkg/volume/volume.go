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

// Package volume safely removes removable storage: it locks, dismounts and
// ejects volumes, powers down the physical device through the device tree,
// and drives the external format utility.
//
// A Volume is single-owner: its handle and protocol flags are not safe for
// concurrent use. Callers serialize all operations against one instance.
package volume

import (
	"context"
	"fmt"
	"strings"

	"github.com/UnplugProject/unplug-core/pkg/helpers/command"
	"github.com/rs/zerolog/log"
)

// Volume identifies one removable drive and owns the protocol state used to
// dismount and eject it. Identity (letter, root, device path) is immutable;
// the handle is opened lazily and survives until the mode changes, the
// volume is closed, or a format run needs it gone.
type Volume struct {
	exec   command.Executor
	tree   deviceTree
	open   opener
	handle deviceHandle
	diag   func(string)

	root       string
	devicePath string
	letter     byte

	exclusive bool
	locked    bool
	prevented bool
	mounted   bool
	closed    bool
}

// New creates a Volume for a drive letter. The device is not touched until
// the first operation needs a handle.
func New(letter byte) (*Volume, error) {
	if !IsDriveLetterValid(letter) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDriveLetter, letter)
	}
	u := upperLetter(letter)
	return &Volume{
		exec:       &command.RealExecutor{},
		tree:       newDeviceTree(),
		open:       openDevice,
		letter:     u,
		root:       string(u) + `:\`,
		devicePath: `\\.\` + string(u) + ":",
		mounted:    true,
	}, nil
}

// NewFromPath creates a Volume from any path on the drive: a root like
// "E:\", a file path, or a device path like "\\.\E:".
func NewFromPath(path string) (*Volume, error) {
	letter, err := driveLetterFromPath(path)
	if err != nil {
		return nil, err
	}
	return New(letter)
}

// NewFromRoot creates a Volume from a drive root as the OS reports it, like
// "E:\". Convenient for callers holding a drive listing entry.
func NewFromRoot(root string) (*Volume, error) {
	return NewFromPath(root)
}

// IsDriveLetterValid reports whether letter is in A-Z (either case). 'C' is
// a valid letter here; removability is a separate check.
func IsDriveLetterValid(letter byte) bool {
	return (letter >= 'A' && letter <= 'Z') || (letter >= 'a' && letter <= 'z')
}

// IsRemovableDrive reports whether the drive behind letter is removable
// media, validating the letter first.
func IsRemovableDrive(letter byte) (bool, error) {
	if !IsDriveLetterValid(letter) {
		return false, fmt.Errorf("%w: %q", ErrInvalidDriveLetter, letter)
	}
	return isRemovableRoot(string(upperLetter(letter)) + `:\`)
}

// OnDiagnostic registers a callback receiving progress messages as
// operations proceed. Fire-and-forget; one consumer at a time.
func (v *Volume) OnDiagnostic(fn func(msg string)) {
	v.diag = fn
}

func (v *Volume) emit(msg string) {
	log.Debug().Str("volume", v.root).Msg(msg)
	if v.diag != nil {
		v.diag(msg)
	}
}

// Letter returns the upper-case drive letter.
func (v *Volume) Letter() byte { return v.letter }

// Root returns the drive root path, like "E:\".
func (v *Volume) Root() string { return v.root }

// DevicePath returns the block device path, like "\\.\E:".
func (v *Volume) DevicePath() string { return v.devicePath }

// Mounted reports the tracked mount state. Volumes start mounted; Dismount
// clears it and Refresh re-probes it.
func (v *Volume) Mounted() bool { return v.mounted }

// Locked reports whether the volume lock is held through the open handle.
func (v *Volume) Locked() bool { return v.locked }

// ExclusiveMode reports whether handles are opened with no sharing.
func (v *Volume) ExclusiveMode() bool { return v.exclusive }

// acquire returns the open handle, opening one lazily in the current mode.
func (v *Volume) acquire() (deviceHandle, error) {
	if v.handle != nil {
		return v.handle, nil
	}
	h, err := v.open(v.devicePath, v.exclusive)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", v.devicePath, err)
	}
	v.handle = h
	return h, nil
}

// CloseHandle closes the device handle, releasing any volume lock held
// through it, and resets the lock, exclusive and prevent-removal flags.
// The next operation that needs a handle reopens one.
func (v *Volume) CloseHandle() {
	if v.handle != nil {
		if err := v.handle.Close(); err != nil {
			log.Warn().Err(err).Str("volume", v.root).Msg("failed to close device handle")
		}
		v.handle = nil
	}
	v.locked = false
	v.exclusive = false
	v.prevented = false
}

// SetExclusiveMode switches the share mode for the device handle. Changing
// mode closes the current handle; the replacement opens lazily.
func (v *Volume) SetExclusiveMode(exclusive bool) error {
	if v.closed {
		return ErrClosed
	}
	if v.exclusive == exclusive {
		return nil
	}
	v.CloseHandle()
	v.exclusive = exclusive
	return nil
}

// Lock takes the exclusive volume lock. The handle opens lazily in the
// current mode if needed. Failure leaves all state unchanged.
func (v *Volume) Lock() error {
	if v.closed {
		return ErrClosed
	}
	h, err := v.acquire()
	if err != nil {
		v.emit("cannot lock " + v.root + ": no device handle")
		return err
	}
	if err := h.LockVolume(); err != nil {
		v.emit("failed to lock " + v.root)
		return fmt.Errorf("lock %s: %w", v.root, err)
	}
	v.locked = true
	v.emit("locked " + v.root)
	return nil
}

// Unlock releases the volume lock. Succeeds as a no-op if never locked.
func (v *Volume) Unlock() error {
	if v.closed {
		return ErrClosed
	}
	if !v.locked {
		return nil
	}
	// locked implies an open handle
	if err := v.handle.UnlockVolume(); err != nil {
		v.emit("failed to unlock " + v.root)
		return fmt.Errorf("unlock %s: %w", v.root, err)
	}
	v.locked = false
	v.emit("unlocked " + v.root)
	return nil
}

// PreventRemoval sets or clears the media removal prevention flag. Clearing
// with no open handle is treated as already satisfied.
func (v *Volume) PreventRemoval(prevent bool) error {
	if v.closed {
		return ErrClosed
	}
	if v.handle == nil && !prevent {
		v.prevented = false
		return nil
	}
	h, err := v.acquire()
	if err != nil {
		return err
	}
	if err := h.PreventRemoval(prevent); err != nil {
		v.emit("failed to set removal prevention on " + v.root)
		return fmt.Errorf("set removal prevention on %s: %w", v.root, err)
	}
	v.prevented = prevent
	return nil
}

// Dismount detaches the filesystem and powers down the media. It forces
// exclusive mode and takes the lock first; on any failure it unwinds to the
// caller's prior mode and lock state, unless the caller had already locked
// the volume itself. Succeeds as a no-op if not mounted.
func (v *Volume) Dismount() error {
	if v.closed {
		return ErrClosed
	}
	if !v.mounted {
		return nil
	}

	wasExclusive := v.exclusive
	wasLocked := v.locked

	unwind := func() {
		if wasLocked {
			return
		}
		_ = v.SetExclusiveMode(wasExclusive)
		_ = v.Unlock()
	}

	if err := v.SetExclusiveMode(true); err != nil {
		return err
	}
	if err := v.Lock(); err != nil {
		unwind()
		return err
	}

	if err := v.handle.DismountVolume(); err != nil {
		v.emit("failed to dismount " + v.root)
		unwind()
		return fmt.Errorf("dismount %s: %w", v.root, err)
	}
	v.mounted = false
	v.emit("dismounted " + v.root)

	if err := v.PreventRemoval(false); err != nil {
		v.emit("failed to clear removal prevention on " + v.root)
	}

	if err := v.handle.EjectMedia(); err != nil {
		v.emit("failed to power off media for " + v.root)
		unwind()
		return fmt.Errorf("eject media %s: %w", v.root, err)
	}
	v.emit("powered off media for " + v.root)
	return nil
}

// Eject performs the full removal: dismount if still mounted, resolve the
// physical disk's device-tree node, and request a tree-level eject of its
// parent. Ejecting the disk node itself only detaches the logical volume;
// the parent node is the physical device that powers down.
//
// Eject is terminal: on success the handle is released and the Volume is
// closed. A veto from the OS comes back as a *VetoError.
func (v *Volume) Eject() error {
	if v.closed {
		return ErrClosed
	}
	if v.mounted {
		if err := v.Dismount(); err != nil {
			v.emit("eject aborted: dismount failed for " + v.root)
			return err
		}
	}

	num, err := v.tree.DeviceNumber(v.devicePath)
	if err != nil {
		v.emit("device number not found for " + v.root)
		return fmt.Errorf("%w: %w", ErrNoDeviceNumber, err)
	}

	inst, err := v.tree.FindDiskInstance(num)
	if err != nil {
		v.emit("device instance not found for " + v.root)
		return err
	}

	parent, err := v.tree.Parent(inst)
	if err != nil {
		v.emit("cannot resolve parent device for " + v.root)
		return fmt.Errorf("get parent device: %w", err)
	}

	if err := v.tree.RequestEject(parent); err != nil {
		v.emit("device eject request failed for " + v.root)
		return err
	}

	v.emit("ejected device for " + v.root)
	v.CloseHandle()
	v.closed = true
	return nil
}

// IsRemovable reports whether the volume is removable media. While a handle
// is open the OS probe is unavailable, so the tracked flags answer instead:
// any of exclusive mode, mounted, or locked counts.
func (v *Volume) IsRemovable() bool {
	if v.closed {
		return false
	}
	if v.handle != nil {
		return v.exclusive || v.mounted || v.locked
	}
	removable, err := isRemovableRoot(v.root)
	if err != nil {
		return false
	}
	return removable
}

// Refresh re-probes the volume's mounted state from the OS. Meaningful only
// while no exclusive handle is held elsewhere.
func (v *Volume) Refresh() error {
	if v.closed {
		return ErrClosed
	}
	ready, err := volumeReady(v.root)
	if err != nil {
		return err
	}
	v.mounted = ready
	return nil
}

// Format runs the external format utility against this volume. Any held
// handle is closed first: format and volume locking are mutually exclusive.
func (v *Volume) Format(ctx context.Context, opts FormatOptions, logger Logger) error {
	if v.closed {
		return ErrClosed
	}
	v.CloseHandle()
	return formatWith(ctx, v.exec, v.letter, opts, logger)
}

// Close releases the handle and permanently disposes the Volume. Every
// operation afterwards fails with ErrClosed. Safe to call more than once.
func (v *Volume) Close() error {
	if v.closed {
		return nil
	}
	v.CloseHandle()
	v.closed = true
	return nil
}

// DismountVolume is the one-shot dismount: it opens, dismounts and closes
// internally, and reports the real protocol outcome.
func DismountVolume(letter byte) error {
	v, err := newRemovable(letter)
	if err != nil {
		return err
	}
	defer func() { _ = v.Close() }()
	return v.Dismount()
}

// Eject is the one-shot full eject of the drive behind letter.
func Eject(letter byte) error {
	v, err := newRemovable(letter)
	if err != nil {
		return err
	}
	defer func() { _ = v.Close() }()
	return v.Eject()
}

// EjectPath ejects the drive that path lives on.
func EjectPath(path string) error {
	letter, err := driveLetterFromPath(path)
	if err != nil {
		return err
	}
	return Eject(letter)
}

// newRemovable builds a Volume and refuses fixed drives.
func newRemovable(letter byte) (*Volume, error) {
	v, err := New(letter)
	if err != nil {
		return nil, err
	}
	removable, err := IsRemovableDrive(letter)
	if err != nil {
		_ = v.Close()
		return nil, err
	}
	if !removable {
		_ = v.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotRemovable, v.root)
	}
	return v, nil
}

func upperLetter(letter byte) byte {
	if letter >= 'a' && letter <= 'z' {
		return letter - ('a' - 'A')
	}
	return letter
}

// driveLetterFromPath reduces a root, file or device path to its drive
// letter.
func driveLetterFromPath(path string) (byte, error) {
	p := strings.TrimPrefix(path, `\\.\`)
	if len(p) >= 2 && p[1] == ':' && IsDriveLetterValid(p[0]) {
		return p[0], nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPath, path)
}
