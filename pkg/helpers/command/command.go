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

// Package command provides an abstraction over exec.Command for testability.
package command

import (
	"context"
	"errors"
	"io"
	"os/exec"
)

// StartOptions configures command startup behavior.
type StartOptions struct {
	// HideWindow prevents a console window from appearing (Windows-only).
	// On non-Windows platforms, this field is ignored.
	HideWindow bool
}

// Process is a started command whose output streams and exit status the
// caller owns. The caller must consume Stdout/Stderr and call Wait exactly
// once, regardless of outcome.
type Process interface {
	// Stdout returns the command's standard output stream.
	Stdout() io.Reader

	// Stderr returns the command's standard error stream.
	Stderr() io.Reader

	// Wait waits for the command to exit and returns its exit code.
	// A nonzero exit code is not an error at this level; the error return
	// covers infrastructure failures (I/O, wait on a killed process owner).
	Wait() (int, error)

	// Kill terminates the process immediately.
	Kill() error
}

// Executor provides an abstraction over exec.Command for testability.
// This allows commands to be mocked in tests without executing real system commands.
type Executor interface {
	// Run executes a command and waits for it to complete.
	// Returns an error if the command fails to start or exits with non-zero status.
	Run(ctx context.Context, name string, args ...string) error

	// Output runs a command and returns its standard output.
	// Returns the output bytes and an error if the command fails.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// Stream starts a command with stdout/stderr piped and returns the
	// running Process. The context kills the process when cancelled.
	Stream(ctx context.Context, opts StartOptions, name string, args ...string) (Process, error)
}

// RealExecutor uses actual exec.Command to execute system commands.
// This is the production implementation used in normal operation.
type RealExecutor struct{}

// Run executes a system command using exec.CommandContext.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Output runs a command and returns its standard output.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Stream starts a command with piped output streams.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Stream(
	ctx context.Context,
	opts StartOptions,
	name string,
	args ...string,
) (Process, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	applyStartOptions(cmd, opts)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &realProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type realProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader
}

func (p *realProcess) Stdout() io.Reader { return p.stdout }
func (p *realProcess) Stderr() io.Reader { return p.stderr }

// Wait reaps the process. A nonzero exit status is reported through the
// code return, not the error.
func (p *realProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	//nolint:wrapcheck // Wrapping exec errors loses important context
	return -1, err
}

//nolint:wrapcheck // Wrapping os.Process errors loses important context
func (p *realProcess) Kill() error {
	return p.cmd.Process.Kill()
}
