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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/UnplugProject/unplug-core/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogging(t *testing.T) {
	// Note: Cannot use t.Parallel() because InitLogging modifies global log.Logger

	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	t.Setenv("TMP", tmp)

	var buf bytes.Buffer
	require.NoError(t, InitLogging(&buf))

	log.Info().Msg("logging pipeline check")

	assert.Contains(t, buf.String(), "logging pipeline check",
		"extra writers should receive log output")
	assert.NotNil(t, LogWriter(), "file writer should be exposed after init")
}

func TestInitLoggingFileOnly(t *testing.T) {
	// Note: Cannot use t.Parallel() because InitLogging modifies global log.Logger

	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	t.Setenv("TMP", tmp)

	require.NoError(t, InitLogging())

	log.Info().Msg("rotated file check")

	// lumberjack creates the log file lazily, on the first write.
	data, err := os.ReadFile(filepath.Join(LogDir(), config.LogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotated file check")
}
