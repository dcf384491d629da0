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

package drives

import (
	"context"
	"testing"

	"github.com/UnplugProject/unplug-core/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := List(context.Background())
	require.ErrorIs(t, err, volume.ErrUnsupported)
}

func TestNewWatcher_Unsupported(t *testing.T) {
	t.Parallel()

	w, err := NewWatcher(nil, 0)
	require.ErrorIs(t, err, volume.ErrUnsupported)
	assert.Nil(t, w)
}
