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

package mocks

import (
	"context"
	"io"

	"github.com/UnplugProject/unplug-core/pkg/helpers/command"
	"github.com/stretchr/testify/mock"
)

// MockCommandExecutor is a testify mock for command.Executor.
// It allows testing code that executes system commands without actually running them.
type MockCommandExecutor struct {
	mock.Mock
}

var _ command.Executor = (*MockCommandExecutor)(nil)

// Run mocks the execution of a system command.
// Use On() to set expectations and Return() to control the mock behavior.
//
// Example:
//
//	mockCmd := &MockCommandExecutor{}
//	mockCmd.On("Run", mock.Anything, "mountvol", mock.Anything).Return(nil)
func (m *MockCommandExecutor) Run(ctx context.Context, name string, args ...string) error {
	called := m.Called(ctx, name, args)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return called.Error(0)
}

// Output mocks running a command and capturing its standard output.
func (m *MockCommandExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	called := m.Called(ctx, name, args)
	var out []byte
	if raw := called.Get(0); raw != nil {
		out, _ = raw.([]byte)
	}
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return out, called.Error(1)
}

// Stream mocks starting a command with piped output streams.
// Return a *MockProcess as the first value to script the process behavior.
func (m *MockCommandExecutor) Stream(
	ctx context.Context,
	opts command.StartOptions,
	name string,
	args ...string,
) (command.Process, error) {
	called := m.Called(ctx, opts, name, args)
	var proc command.Process
	if raw := called.Get(0); raw != nil {
		proc, _ = raw.(command.Process)
	}
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return proc, called.Error(1)
}

// MockProcess is a testify mock for command.Process, the handle returned by
// Executor.Stream.
type MockProcess struct {
	mock.Mock
}

var _ command.Process = (*MockProcess)(nil)

// Stdout mocks the process standard output stream.
func (m *MockProcess) Stdout() io.Reader {
	called := m.Called()
	reader, _ := called.Get(0).(io.Reader)
	return reader
}

// Stderr mocks the process standard error stream.
func (m *MockProcess) Stderr() io.Reader {
	called := m.Called()
	reader, _ := called.Get(0).(io.Reader)
	return reader
}

// Wait mocks waiting for the process to exit.
func (m *MockProcess) Wait() (int, error) {
	called := m.Called()
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return called.Int(0), called.Error(1)
}

// Kill mocks terminating the process.
func (m *MockProcess) Kill() error {
	called := m.Called()
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return called.Error(0)
}
