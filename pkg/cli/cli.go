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

// Package cli implements the unplug command line front-end. All argv
// parsing lives here; the core packages never read flags.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/UnplugProject/unplug-core/internal/telemetry"
	"github.com/UnplugProject/unplug-core/pkg/config"
	"github.com/UnplugProject/unplug-core/pkg/helpers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Flags struct {
	Eject    *string
	Dismount *string
	Format   *string
	FS       *string
	Label    *string
	Unit     *int
	List     *bool
	Watch    *bool
	Quick    *bool
	Version  *bool
	Config   *bool
}

// SetupFlags defines all common CLI flags. Add any custom flags before
// running Pre.
func SetupFlags() *Flags {
	return &Flags{
		List: flag.Bool(
			"list",
			false,
			"list mounted removable drives",
		),
		Watch: flag.Bool(
			"watch",
			false,
			"print drive arrivals and removals until interrupted",
		),
		Eject: flag.String(
			"eject",
			"",
			"safely eject the drive with this letter",
		),
		Dismount: flag.String(
			"dismount",
			"",
			"lock and dismount the drive with this letter",
		),
		Format: flag.String(
			"format",
			"",
			"format the drive with this letter",
		),
		FS: flag.String(
			"fs",
			"",
			"filesystem for -format (FAT, FAT32, exFAT, NTFS, UDF, ReFS)",
		),
		Quick: flag.Bool(
			"quick",
			false,
			"quick format",
		),
		Label: flag.String(
			"label",
			"",
			"volume label for -format",
		),
		Unit: flag.Int(
			"unit",
			0,
			"allocation unit size in bytes for -format (0 = default)",
		),
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
		Config: flag.Bool(
			"config",
			false,
			"print the active config file location and values",
		),
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Pre runs flag parsing and actions any immediate flags that don't
// require environment setup. Add any custom flags before running this.
func (f *Flags) Pre() {
	flag.Parse()

	if *f.Version {
		_, _ = fmt.Printf("Unplug v%s (%s)\n", config.AppVersion, runtime.GOOS)
		os.Exit(0)
	}
}

// Post actions all remaining common flags that require the environment to be
// set up. Logging is allowed. Returns without exiting only when no action
// flag was passed.
func (f *Flags) Post(ctx context.Context, cfg *config.Instance) {
	switch {
	case *f.List:
		if err := HandleList(ctx, os.Stdout); err != nil {
			log.Error().Err(err).Msg("error listing drives")
			_, _ = fmt.Fprintf(os.Stderr, "Error listing drives: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	case *f.Watch:
		if err := HandleWatch(ctx, os.Stdout, cfg.WatcherRescan()); err != nil {
			log.Error().Err(err).Msg("error watching drives")
			_, _ = fmt.Fprintf(os.Stderr, "Error watching drives: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	case isFlagPassed("eject"):
		if *f.Eject == "" {
			_, _ = fmt.Fprint(os.Stderr, "Error: eject flag requires a drive letter\n")
			os.Exit(1)
		}
		if err := HandleEject(*f.Eject); err != nil {
			log.Error().Err(err).Msg("error ejecting drive")
			_, _ = fmt.Fprintf(os.Stderr, "Error ejecting: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	case isFlagPassed("dismount"):
		if *f.Dismount == "" {
			_, _ = fmt.Fprint(os.Stderr, "Error: dismount flag requires a drive letter\n")
			os.Exit(1)
		}
		if err := HandleDismount(*f.Dismount); err != nil {
			log.Error().Err(err).Msg("error dismounting drive")
			_, _ = fmt.Fprintf(os.Stderr, "Error dismounting: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	case isFlagPassed("format"):
		if *f.Format == "" {
			_, _ = fmt.Fprint(os.Stderr, "Error: format flag requires a drive letter\n")
			os.Exit(1)
		}
		if err := HandleFormat(ctx, cfg, f); err != nil {
			log.Error().Err(err).Msg("error formatting drive")
			_, _ = fmt.Fprintf(os.Stderr, "Error formatting: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	case *f.Config:
		HandleConfig(cfg, os.Stdout)
		os.Exit(0)
	}
}

// HandleConfig prints the active config file location and effective values.
func HandleConfig(cfg *config.Instance, w io.Writer) {
	fs := cfg.DefaultFilesystem()
	if fs == "" {
		fs = "(not set)"
	}
	timeout := "none"
	if t := cfg.FormatTimeout(); t > 0 {
		timeout = t.String()
	}

	_, _ = fmt.Fprintf(w, "Config file: %s\n\n", cfg.Path())
	_, _ = fmt.Fprintf(w, "  debug_logging       %t\n", cfg.DebugLogging())
	_, _ = fmt.Fprintf(w, "  error_reporting     %t\n", cfg.ErrorReporting())
	_, _ = fmt.Fprintf(w, "  device_id           %s\n", cfg.DeviceID())
	_, _ = fmt.Fprintf(w, "  default_filesystem  %s\n", fs)
	_, _ = fmt.Fprintf(w, "  format_timeout      %s\n", timeout)
	_, _ = fmt.Fprintf(w, "  watcher_rescan      %s\n", cfg.WatcherRescan())
}

// Setup initializes directories, logging, the user config and error
// reporting, in that order. Returns a user config object.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaults config.Values, writers []io.Writer) *config.Instance {
	// Ensure directories exist before logging initialization
	err := helpers.EnsureDirectories()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error creating directories: %v\n", err)
		os.Exit(1)
	}

	err = helpers.InitLogging(writers...)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(), defaults)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Initialize error reporting (opt-in)
	if err := telemetry.Init(
		cfg.ErrorReporting(),
		cfg.DeviceID(),
		config.AppVersion,
	); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg
}
