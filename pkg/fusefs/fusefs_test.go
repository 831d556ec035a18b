/*
   MediaDrive - removable media resolution for PC emulators
   Copyright (c) 2025, Alexander Vollschwitz

   This file is part of MediaDrive.

   MediaDrive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   MediaDrive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with MediaDrive. If not, see <http://www.gnu.org/licenses/>.
*/

package fusefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelalexv/mediadrive/pkg/fat"
	"github.com/xelalexv/mediadrive/pkg/format"
	"github.com/xelalexv/mediadrive/pkg/media/base"
)

//
func find(n *node, name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func TestScan(t *testing.T) {

	data, err := fat.Format(fat.FormatOptions{Geometry: format.GeometryByName("720K")})
	require.NoError(t, err)
	v, err := fat.Mount(base.NewBuffer(data, nil), true, fat.Options{})
	require.NoError(t, err)

	require.NoError(t, v.Mkdir("/GAMES"))
	require.NoError(t, v.Mkdir("/GAMES/DOOM"))
	require.NoError(t, v.WriteFile("/GAMES/DOOM/DOOM.WAD", []byte("IWAD")))
	require.NoError(t, v.WriteFile("/AUTOEXEC.BAT", []byte("@echo off\r\n")))

	root := scan(v, 32)
	require.Len(t, root.children, 2)

	bat := find(root, "AUTOEXEC.BAT")
	require.NotNil(t, bat)
	assert.False(t, bat.dir)
	assert.Equal(t, 11, bat.size)

	games := find(root, "GAMES")
	require.NotNil(t, games)
	require.True(t, games.dir)
	doom := find(games, "DOOM")
	require.NotNil(t, doom)
	wad := find(doom, "DOOM.WAD")
	require.NotNil(t, wad)
	assert.Equal(t, "/GAMES/DOOM/DOOM.WAD", wad.path)

	// depth limit
	root = scan(v, 1)
	games = find(root, "GAMES")
	require.NotNil(t, games)
	assert.Empty(t, games.children)
}
