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
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/UnplugProject/unplug-core/pkg/helpers/command"
	"golang.org/x/sync/errgroup"
)

// Logger receives the format utility's output, one line per call, plus one
// summary line before the process starts. Implementations decide transport.
type Logger interface {
	Info(msg string)
	Error(msg string)
}

// Filesystem selects the target filesystem for a format run.
type Filesystem string

const (
	FilesystemFAT   Filesystem = "FAT"
	FilesystemFAT32 Filesystem = "FAT32"
	FilesystemExFAT Filesystem = "exFAT"
	FilesystemNTFS  Filesystem = "NTFS"
	FilesystemUDF   Filesystem = "UDF"
	FilesystemReFS  Filesystem = "ReFS"
)

// formatExe is the external utility driving the actual format.
const formatExe = "format.com"

// maxFATLabelLen is the volume label limit on FAT and FAT32.
const maxFATLabelLen = 11

// FormatOptions are the parameters of one format run.
type FormatOptions struct {
	// Filesystem to create on the volume.
	Filesystem Filesystem
	// Label is the optional volume label. At most 11 characters for FAT
	// and FAT32.
	Label string
	// ExtraArgs are appended verbatim before the force flag and target.
	ExtraArgs []string
	// UnitSize is the allocation unit size in bytes; 0 uses the default.
	UnitSize int
	// Quick requests a quick format.
	Quick bool
}

// ParseFilesystem maps a user-supplied name to a Filesystem selector,
// case-insensitively.
func ParseFilesystem(name string) (Filesystem, error) {
	for _, fs := range []Filesystem{
		FilesystemFAT, FilesystemFAT32, FilesystemExFAT,
		FilesystemNTFS, FilesystemUDF, FilesystemReFS,
	} {
		if strings.EqualFold(name, string(fs)) {
			return fs, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFilesystem, name)
}

// validateFormat runs every check that must fail before a process spawns.
func validateFormat(letter byte, opts FormatOptions) error {
	if !IsDriveLetterValid(letter) {
		return fmt.Errorf("%w: %q", ErrInvalidDriveLetter, letter)
	}
	switch opts.Filesystem {
	case FilesystemFAT, FilesystemFAT32, FilesystemExFAT,
		FilesystemNTFS, FilesystemUDF, FilesystemReFS:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFilesystem, opts.Filesystem)
	}
	if opts.Filesystem == FilesystemFAT || opts.Filesystem == FilesystemFAT32 {
		if len(opts.Label) > maxFATLabelLen {
			return fmt.Errorf("%w: %q is over %d characters",
				ErrLabelTooLong, opts.Label, maxFATLabelLen)
		}
	}
	return nil
}

// buildFormatArgs assembles the utility's argument list:
// /FS:<fs> [/Q] [/A:<n>] [/V:<label>] [extra...] /Y <letter>:
func buildFormatArgs(letter byte, opts FormatOptions) []string {
	args := []string{"/FS:" + string(opts.Filesystem)}
	if opts.Quick {
		args = append(args, "/Q")
	}
	if opts.UnitSize > 0 {
		args = append(args, "/A:"+strconv.Itoa(opts.UnitSize))
	}
	if opts.Label != "" {
		args = append(args, "/V:"+opts.Label)
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, "/Y", string(upperLetter(letter))+":")
	return args
}

// Format runs the external format utility against the drive behind letter.
// No Volume instance or device handle is involved; the subprocess owns the
// device for the duration.
//
// Cancellation is honored before the spawn (no process starts) and during
// the run (the process is killed and ctx's error is returned, never a
// generic failure). A nonzero exit becomes a *ExitError.
func Format(ctx context.Context, letter byte, opts FormatOptions, logger Logger) error {
	return formatWith(ctx, &command.RealExecutor{}, letter, opts, logger)
}

func formatWith(
	ctx context.Context,
	exec command.Executor,
	letter byte,
	opts FormatOptions,
	logger Logger,
) error {
	if err := validateFormat(letter, opts); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		//nolint:wrapcheck // cancellation must surface unwrapped
		return err
	}

	args := buildFormatArgs(letter, opts)
	logInfo(logger, "running: "+formatExe+" "+strings.Join(args, " "))

	proc, err := exec.Stream(ctx, command.StartOptions{HideWindow: true}, formatExe, args...)
	if err != nil {
		return fmt.Errorf("start %s: %w", formatExe, err)
	}

	// Both pipes must be drained before reaping the process.
	var pumps errgroup.Group
	pumps.Go(func() error {
		forwardLines(proc.Stdout(), func(line string) { logInfo(logger, line) })
		return nil
	})
	pumps.Go(func() error {
		forwardLines(proc.Stderr(), func(line string) { logError(logger, line) })
		return nil
	})
	_ = pumps.Wait()

	code, waitErr := proc.Wait()
	if err := ctx.Err(); err != nil {
		//nolint:wrapcheck // cancellation must surface unwrapped
		return err
	}
	if waitErr != nil {
		return fmt.Errorf("wait for %s: %w", formatExe, waitErr)
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func forwardLines(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		emit(scanner.Text())
	}
}

func logInfo(logger Logger, msg string) {
	if logger != nil {
		logger.Info(msg)
	}
}

func logError(logger Logger, msg string) {
	if logger != nil {
		logger.Error(msg)
	}
}
