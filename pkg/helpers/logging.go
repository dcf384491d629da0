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
	"io"
	"os"
	"path/filepath"

	"github.com/UnplugProject/unplug-core/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var logFileWriter io.Writer

// InitLogging points the global logger at a rotated file in LogDir plus any
// extra writers (a console writer, typically).
func InitLogging(writers ...io.Writer) error {
	if err := os.MkdirAll(LogDir(), 0o750); err != nil {
		//nolint:wrapcheck // caller reports the path context
		return err
	}

	logFileWriter = &lumberjack.Logger{
		Filename:   filepath.Join(LogDir(), config.LogFile),
		MaxSize:    1,
		MaxBackups: 2,
	}

	logWriters := append([]io.Writer{logFileWriter}, writers...)

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	log.Logger = log.Output(io.MultiWriter(logWriters...)).
		With().Timestamp().Caller().Logger()

	return nil
}

// LogWriter returns the rotating file writer so other sinks can be layered
// on top of it after init. Nil until InitLogging has run.
func LogWriter() io.Writer {
	return logFileWriter
}
