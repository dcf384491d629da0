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

// Package helpers holds shared app plumbing: directories and logging setup.
package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/UnplugProject/unplug-core/pkg/config"
	"github.com/adrg/xdg"
)

var (
	userDirCache       string
	userDirCacheExists bool
	userDirOnce        sync.Once
)

// HasUserDir checks if a "user" directory exists next to the binary and
// returns the absolute path to it. When present it becomes the parent for
// config and data, for a portable install carried on the stick itself.
// The result is cached after the first call. Safe for concurrent use.
func HasUserDir() (string, bool) {
	userDirOnce.Do(func() {
		exePath := os.Getenv(config.AppEnv)
		if exePath == "" {
			var err error
			exePath, err = os.Executable()
			if err != nil {
				userDirCacheExists = false
				return
			}
		}

		userDir := filepath.Join(filepath.Dir(exePath), config.UserDir)

		info, err := os.Stat(userDir)
		if err != nil || !info.IsDir() {
			userDirCacheExists = false
			return
		}

		userDirCache = userDir
		userDirCacheExists = true
	})

	if !userDirCacheExists {
		return "", false
	}
	return userDirCache, true
}

func ExeDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}

	return filepath.Dir(exe)
}

func ConfigDir() string {
	if v, ok := HasUserDir(); ok {
		return v
	}
	return filepath.Join(xdg.ConfigHome, config.AppName)
}

func DataDir() string {
	if v, ok := HasUserDir(); ok {
		return v
	}
	return filepath.Join(xdg.DataHome, config.AppName)
}

// LogDir is where rotated log files live. Not overridden by a portable
// install; writing logs back to the watched media defeats the purpose.
func LogDir() string {
	return filepath.Join(os.TempDir(), config.AppName)
}

// EnsureDirectories creates every directory the app writes into.
func EnsureDirectories() error {
	for _, dir := range []string{ConfigDir(), DataDir(), LogDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
