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

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/UnplugProject/unplug-core/pkg/config"
	"github.com/UnplugProject/unplug-core/pkg/drives"
	"github.com/UnplugProject/unplug-core/pkg/volume"
	"github.com/rs/zerolog/log"
)

// DriveOps defines the drive operations the CLI dispatches.
// This allows mocking in tests to avoid touching real devices.
type DriveOps interface {
	List(ctx context.Context) ([]drives.Drive, error)
	NewWatcher(rescanEvery time.Duration) (drives.Watcher, error)
	Eject(letter byte) error
	Dismount(letter byte) error
	Format(ctx context.Context, letter byte, opts volume.FormatOptions, logger volume.Logger) error
}

// DefaultDriveOps implements DriveOps using the real volume and drives packages.
type DefaultDriveOps struct{}

func (DefaultDriveOps) List(ctx context.Context) ([]drives.Drive, error) {
	//nolint:wrapcheck // Thin wrapper, error context added by caller
	return drives.List(ctx)
}

func (DefaultDriveOps) NewWatcher(rescanEvery time.Duration) (drives.Watcher, error) {
	//nolint:wrapcheck // Thin wrapper, error context added by caller
	return drives.NewWatcher(nil, rescanEvery)
}

func (DefaultDriveOps) Eject(letter byte) error {
	//nolint:wrapcheck // Thin wrapper, error context added by caller
	return volume.Eject(letter)
}

func (DefaultDriveOps) Dismount(letter byte) error {
	//nolint:wrapcheck // Thin wrapper, error context added by caller
	return volume.DismountVolume(letter)
}

func (DefaultDriveOps) Format(
	ctx context.Context,
	letter byte,
	opts volume.FormatOptions,
	logger volume.Logger,
) error {
	//nolint:wrapcheck // Thin wrapper, error context added by caller
	return volume.Format(ctx, letter, opts, logger)
}

// defaultDriveOps is the package-level implementation used by the Handle
// functions. It can be replaced in tests to avoid side effects.
var defaultDriveOps DriveOps = DefaultDriveOps{}

// parseDriveArg extracts the drive letter from a CLI argument: a bare
// letter ("e"), a drive ("E:") or a root path ("E:\"). The letter is
// returned upper-case.
func parseDriveArg(arg string) (byte, error) {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(arg), `\`), ":")
	if len(trimmed) != 1 || !volume.IsDriveLetterValid(trimmed[0]) {
		return 0, fmt.Errorf(`invalid drive %q (want a letter like E, E: or E:\)`, arg)
	}
	letter := trimmed[0]
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	return letter, nil
}

// HandleEject safely ejects the drive named by arg: dismounts the volume
// and powers off or ejects the device behind it.
func HandleEject(arg string) error {
	letter, err := parseDriveArg(arg)
	if err != nil {
		return err
	}

	if err := defaultDriveOps.Eject(letter); err != nil {
		return fmt.Errorf("drive %c: %w", letter, err)
	}
	_, _ = fmt.Printf("Drive %c: safely ejected\n", letter)
	return nil
}

// HandleDismount locks and dismounts the drive named by arg without
// ejecting the device.
func HandleDismount(arg string) error {
	letter, err := parseDriveArg(arg)
	if err != nil {
		return err
	}

	if err := defaultDriveOps.Dismount(letter); err != nil {
		return fmt.Errorf("drive %c: %w", letter, err)
	}
	_, _ = fmt.Printf("Drive %c: dismounted\n", letter)
	return nil
}

// HandleFormat runs the external format utility against the drive named by
// the format flag, combining the fs/quick/label/unit flags with the config
// defaults.
func HandleFormat(ctx context.Context, cfg *config.Instance, f *Flags) error {
	letter, err := parseDriveArg(*f.Format)
	if err != nil {
		return err
	}

	fsName := *f.FS
	if fsName == "" {
		fsName = cfg.DefaultFilesystem()
	}
	if fsName == "" {
		return errors.New("no filesystem given: pass -fs or set format.default_filesystem")
	}
	fs, err := volume.ParseFilesystem(fsName)
	if err != nil {
		//nolint:wrapcheck // Already carries the rejected name
		return err
	}

	if timeout := cfg.FormatTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	opts := volume.FormatOptions{
		Filesystem: fs,
		Label:      *f.Label,
		UnitSize:   *f.Unit,
		Quick:      *f.Quick,
	}

	if err := defaultDriveOps.Format(ctx, letter, opts, consoleLogger{}); err != nil {
		return fmt.Errorf("drive %c: %w", letter, err)
	}
	_, _ = fmt.Printf("Drive %c: formatted as %s\n", letter, fs)
	return nil
}

// consoleLogger forwards the format utility's output to the terminal and
// the log file.
type consoleLogger struct{}

func (consoleLogger) Info(msg string) {
	log.Info().Msg(msg)
	_, _ = fmt.Println(msg)
}

func (consoleLogger) Error(msg string) {
	log.Error().Msg(msg)
	_, _ = fmt.Fprintln(os.Stderr, msg)
}
