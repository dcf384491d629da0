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

package helpers

import (
	"strings"

	"github.com/UnplugProject/unplug-core/pkg/testing/mocks"
	"github.com/stretchr/testify/mock"
)

// NewMockCommandExecutor creates a MockCommandExecutor that succeeds by default.
// All Run(), Output(), and Stream() calls will return success unless explicitly overridden with On().
//
// This provides sensible defaults for tests where command execution details don't matter.
// Override specific commands in tests that need to verify exact behavior:
//
//	cmd := helpers.NewMockCommandExecutor()
//	// Clear defaults first
//	cmd.ExpectedCalls = nil
//	// Set specific expectations (note: args is []string not variadic in mock)
//	cmd.On("Run", mock.Anything, "mountvol", []string{"E:", "/D"}).Return(nil)
//	cmd.On("Output", mock.Anything, "fsutil", mock.Anything).Return([]byte("output"), nil)
func NewMockCommandExecutor() *mocks.MockCommandExecutor {
	cmd := &mocks.MockCommandExecutor{}
	// Match any command with any arguments - all succeed by default
	cmd.On("Run", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil).Maybe()
	cmd.On("Output", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return([]byte{}, nil).Maybe()
	cmd.On(
		"Stream", mock.Anything, mock.Anything, mock.AnythingOfType("string"), mock.Anything,
	).Return(NewMockProcess("", "", 0), nil).Maybe()
	return cmd
}

// NewMockProcess creates a MockProcess that yields the given output streams
// and exit code. Wait() and Kill() succeed by default.
func NewMockProcess(stdout, stderr string, code int) *mocks.MockProcess {
	proc := &mocks.MockProcess{}
	proc.On("Stdout").Return(strings.NewReader(stdout)).Maybe()
	proc.On("Stderr").Return(strings.NewReader(stderr)).Maybe()
	proc.On("Wait").Return(code, nil).Maybe()
	proc.On("Kill").Return(nil).Maybe()
	return proc
}
