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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/UnplugProject/unplug-core/internal/telemetry"
	"github.com/UnplugProject/unplug-core/pkg/cli"
	"github.com/UnplugProject/unplug-core/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	defer telemetry.Close()
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %v\n%s\n", r, stack)
			log.Error().
				Interface("panic", r).
				Bytes("stack", stack).
				Msg("recovered from panic")
			telemetry.Flush()
			os.Exit(1)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// An interrupt cancels in-flight work. Lock waits and format runs
	// unwind through their contexts; watch mode exits its event loop.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sigs
		cancel()
	}()

	flags := cli.SetupFlags()
	flags.Pre()

	// Pretty-print log output when stderr is an interactive console.
	logWriters := []io.Writer{os.Stderr}
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		logWriters = []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	}

	cfg := cli.Setup(
		config.BaseDefaults,
		logWriters,
	)

	flags.Post(ctx, cfg)

	// No action flag given: list drives, the most common ask.
	if err := cli.HandleList(ctx, os.Stdout); err != nil {
		log.Error().Err(err).Msg("error listing drives")
		return fmt.Errorf("error listing drives: %w", err)
	}

	return nil
}
