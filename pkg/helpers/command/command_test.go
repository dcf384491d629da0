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

package command

import (
	"bufio"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealExecutor_Run(t *testing.T) {
	t.Parallel()

	executor := &RealExecutor{}

	t.Run("executes_successful_command", func(t *testing.T) {
		t.Parallel()

		err := executor.Run(context.Background(), "true")

		assert.NoError(t, err)
	})

	t.Run("returns_error_for_failed_command", func(t *testing.T) {
		t.Parallel()

		err := executor.Run(context.Background(), "false")

		assert.Error(t, err)
	})

	t.Run("returns_error_for_nonexistent_command", func(t *testing.T) {
		t.Parallel()

		err := executor.Run(context.Background(), "nonexistent_command_that_should_not_exist_12345")

		require.Error(t, err)
	})
}

func TestRealExecutor_Output(t *testing.T) {
	t.Parallel()

	executor := &RealExecutor{}

	t.Run("captures_standard_output", func(t *testing.T) {
		t.Parallel()

		out, err := executor.Output(context.Background(), "echo", "hello")

		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(out))
	})
}

func TestRealExecutor_Stream(t *testing.T) {
	t.Parallel()

	executor := &RealExecutor{}

	t.Run("streams_output_and_reports_exit_code", func(t *testing.T) {
		t.Parallel()

		proc, err := executor.Stream(
			context.Background(), StartOptions{},
			"sh", "-c", "echo one; echo two 1>&2; exit 3",
		)
		require.NoError(t, err)

		var outLines, errLines []string
		outScanner := bufio.NewScanner(proc.Stdout())
		for outScanner.Scan() {
			outLines = append(outLines, outScanner.Text())
		}
		errScanner := bufio.NewScanner(proc.Stderr())
		for errScanner.Scan() {
			errLines = append(errLines, errScanner.Text())
		}

		code, err := proc.Wait()
		require.NoError(t, err)
		assert.Equal(t, 3, code)
		assert.Equal(t, []string{"one"}, outLines)
		assert.Equal(t, []string{"two"}, errLines)
	})

	t.Run("returns_error_for_nonexistent_command", func(t *testing.T) {
		t.Parallel()

		_, err := executor.Stream(
			context.Background(), StartOptions{},
			"nonexistent_command_that_should_not_exist_12345",
		)

		require.Error(t, err)
	})

	t.Run("context_cancellation_kills_process", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		proc, err := executor.Stream(ctx, StartOptions{}, "sleep", "30")
		require.NoError(t, err)

		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		done := make(chan struct{})
		var code int
		go func() {
			code, _ = proc.Wait()
			close(done)
		}()

		select {
		case <-done:
			assert.NotEqual(t, 0, code)
		case <-time.After(5 * time.Second):
			t.Fatal("process was not killed on context cancellation")
		}
	})
}

func TestExecutor_Interface(t *testing.T) {
	t.Parallel()

	// Verify that RealExecutor implements Executor
	var _ Executor = (*RealExecutor)(nil)
}
