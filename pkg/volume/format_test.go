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
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/UnplugProject/unplug-core/pkg/helpers/command"
	testhelpers "github.com/UnplugProject/unplug-core/pkg/testing/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	stdout  io.Reader
	stderr  io.Reader
	code    int
	waitErr error
	onWait  func()
	killed  bool
}

func newFakeProcess(stdout, stderr string, code int) *fakeProcess {
	return &fakeProcess{
		stdout: strings.NewReader(stdout),
		stderr: strings.NewReader(stderr),
		code:   code,
	}
}

func (p *fakeProcess) Stdout() io.Reader { return p.stdout }
func (p *fakeProcess) Stderr() io.Reader { return p.stderr }

func (p *fakeProcess) Wait() (int, error) {
	if p.onWait != nil {
		p.onWait()
	}
	return p.code, p.waitErr
}

func (p *fakeProcess) Kill() error {
	p.killed = true
	return nil
}

type streamCall struct {
	name string
	args []string
	opts command.StartOptions
}

type fakeExecutor struct {
	proc     command.Process
	startErr error
	streams  []streamCall
}

func (f *fakeExecutor) Run(_ context.Context, _ string, _ ...string) error {
	return nil
}

func (f *fakeExecutor) Output(_ context.Context, _ string, _ ...string) ([]byte, error) {
	return nil, nil
}

func (f *fakeExecutor) Stream(
	_ context.Context,
	opts command.StartOptions,
	name string,
	args ...string,
) (command.Process, error) {
	f.streams = append(f.streams, streamCall{name: name, args: args, opts: opts})
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.proc, nil
}

type recLogger struct {
	infos []string
	errs  []string
}

func (l *recLogger) Info(msg string)  { l.infos = append(l.infos, msg) }
func (l *recLogger) Error(msg string) { l.errs = append(l.errs, msg) }

func TestParseFilesystem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Filesystem
		wantErr bool
	}{
		{in: "FAT", want: FilesystemFAT},
		{in: "fat32", want: FilesystemFAT32},
		{in: "EXFAT", want: FilesystemExFAT},
		{in: "exFAT", want: FilesystemExFAT},
		{in: "ntfs", want: FilesystemNTFS},
		{in: "udf", want: FilesystemUDF},
		{in: "refs", want: FilesystemReFS},
		{in: "ext4", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			fs, err := ParseFilesystem(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidFilesystem)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, fs)
		})
	}
}

func TestBuildFormatArgs(t *testing.T) {
	t.Parallel()

	t.Run("minimal", func(t *testing.T) {
		t.Parallel()
		args := buildFormatArgs('E', FormatOptions{Filesystem: FilesystemNTFS})
		assert.Equal(t, []string{"/FS:NTFS", "/Y", "E:"}, args)
	})

	t.Run("everything", func(t *testing.T) {
		t.Parallel()
		args := buildFormatArgs('f', FormatOptions{
			Filesystem: FilesystemExFAT,
			Quick:      true,
			UnitSize:   4096,
			Label:      "BACKUP",
			ExtraArgs:  []string{"/X"},
		})
		assert.Equal(t,
			[]string{"/FS:exFAT", "/Q", "/A:4096", "/V:BACKUP", "/X", "/Y", "F:"},
			args)
	})
}

func TestFormat_ValidationFailsBeforeSpawn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		letter  byte
		opts    FormatOptions
		wantErr error
	}{
		{
			name:    "invalid_letter",
			letter:  '1',
			opts:    FormatOptions{Filesystem: FilesystemNTFS},
			wantErr: ErrInvalidDriveLetter,
		},
		{
			name:    "invalid_filesystem",
			letter:  'E',
			opts:    FormatOptions{Filesystem: Filesystem("EXT4")},
			wantErr: ErrInvalidFilesystem,
		},
		{
			name:    "missing_filesystem",
			letter:  'E',
			opts:    FormatOptions{},
			wantErr: ErrInvalidFilesystem,
		},
		{
			name:    "fat_label_too_long",
			letter:  'E',
			opts:    FormatOptions{Filesystem: FilesystemFAT, Label: "TWELVECHARSX"},
			wantErr: ErrLabelTooLong,
		},
		{
			name:    "fat32_label_too_long",
			letter:  'E',
			opts:    FormatOptions{Filesystem: FilesystemFAT32, Label: "HOLIDAY_2025"},
			wantErr: ErrLabelTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exec := &fakeExecutor{proc: newFakeProcess("", "", 0)}
			err := formatWith(context.Background(), exec, tt.letter, tt.opts, nil)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, exec.streams, "validation failures must not spawn")
		})
	}
}

func TestFormat_LongLabelAllowedOutsideFAT(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{proc: newFakeProcess("", "", 0)}
	opts := FormatOptions{Filesystem: FilesystemNTFS, Label: "A_MUCH_LONGER_VOLUME_LABEL"}

	require.NoError(t, formatWith(context.Background(), exec, 'E', opts, nil))
	assert.Len(t, exec.streams, 1)
}

func TestFormat_ForwardsOutputToLogger(t *testing.T) {
	t.Parallel()

	proc := newFakeProcess(
		"Formatting 28.9 GB\nFormat complete.\n",
		"low level warning\n",
		0,
	)
	exec := &fakeExecutor{proc: proc}
	logger := &recLogger{}

	opts := FormatOptions{Filesystem: FilesystemExFAT, Quick: true, Label: "UNPLUG"}
	require.NoError(t, formatWith(context.Background(), exec, 'e', opts, logger))

	require.Len(t, exec.streams, 1)
	call := exec.streams[0]
	assert.Equal(t, "format.com", call.name)
	assert.Equal(t, []string{"/FS:exFAT", "/Q", "/V:UNPLUG", "/Y", "E:"}, call.args)
	assert.True(t, call.opts.HideWindow)

	require.NotEmpty(t, logger.infos)
	assert.Equal(t, "running: format.com /FS:exFAT /Q /V:UNPLUG /Y E:", logger.infos[0])
	assert.Contains(t, logger.infos, "Formatting 28.9 GB")
	assert.Contains(t, logger.infos, "Format complete.")
	assert.Equal(t, []string{"low level warning"}, logger.errs)
}

func TestFormat_NonzeroExit(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{proc: newFakeProcess("", "The volume is in use.\n", 11)}
	err := formatWith(context.Background(), exec, 'E',
		FormatOptions{Filesystem: FilesystemFAT32}, nil)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 11, exitErr.Code)
}

func TestFormat_StartFailure(t *testing.T) {
	t.Parallel()

	errStart := errors.New("executable file not found")
	exec := &fakeExecutor{startErr: errStart}

	err := formatWith(context.Background(), exec, 'E',
		FormatOptions{Filesystem: FilesystemNTFS}, nil)
	require.ErrorIs(t, err, errStart)
}

func TestFormat_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExecutor{proc: newFakeProcess("", "", 0)}
	err := formatWith(ctx, exec, 'E', FormatOptions{Filesystem: FilesystemNTFS}, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, exec.streams, "no process may spawn after cancellation")
}

func TestFormat_CancelledWhileRunning(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The run is cancelled while waiting; the reaped exit code must lose to
	// the cancellation.
	proc := newFakeProcess("", "", 1)
	proc.onWait = cancel
	exec := &fakeExecutor{proc: proc}

	err := formatWith(ctx, exec, 'E', FormatOptions{Filesystem: FilesystemNTFS}, nil)

	require.ErrorIs(t, err, context.Canceled)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr), "cancellation must not surface as an exit failure")
}

func TestFormat_WaitInfrastructureFailure(t *testing.T) {
	t.Parallel()

	errWait := errors.New("wait: no child processes")
	proc := newFakeProcess("", "", -1)
	proc.waitErr = errWait
	exec := &fakeExecutor{proc: proc}

	err := formatWith(context.Background(), exec, 'E',
		FormatOptions{Filesystem: FilesystemNTFS}, nil)
	require.ErrorIs(t, err, errWait)
}

func TestFormat_NilLoggerSafe(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{proc: newFakeProcess("output\n", "errors\n", 0)}
	require.NoError(t, formatWith(context.Background(), exec, 'E',
		FormatOptions{Filesystem: FilesystemUDF}, nil))
}

func TestVolume_Format_ClosesHandleBeforeRunning(t *testing.T) {
	t.Parallel()

	open := &fakeOpener{}
	exec := &fakeExecutor{proc: newFakeProcess("", "", 0)}
	v := newTestVolume(t, open)
	v.exec = exec

	require.NoError(t, v.Lock())
	require.NoError(t, v.Format(context.Background(),
		FormatOptions{Filesystem: FilesystemExFAT, Quick: true}, nil))

	assert.Contains(t, open.opened[0].calls, "close",
		"format and volume locking are mutually exclusive")
	assert.Nil(t, v.handle)
	assert.False(t, v.Locked())
	require.Len(t, exec.streams, 1)
	assert.Equal(t, []string{"/FS:exFAT", "/Q", "/Y", "E:"}, exec.streams[0].args)
}

func TestFormat_HidesConsoleWindow(t *testing.T) {
	t.Parallel()

	mockCmd := testhelpers.NewMockCommandExecutor()
	mockCmd.ExpectedCalls = nil
	opts := command.StartOptions{HideWindow: true}
	args := []string{"/FS:NTFS", "/V:ARCHIVE", "/Y", "G:"}
	mockCmd.On("Stream", mock.Anything, opts, "format.com", args).
		Return(testhelpers.NewMockProcess("Format complete.\n", "", 0), nil)

	err := formatWith(context.Background(), mockCmd, 'G',
		FormatOptions{Filesystem: FilesystemNTFS, Label: "ARCHIVE"}, nil)

	require.NoError(t, err)
	mockCmd.AssertExpectations(t)
}
