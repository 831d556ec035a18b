//go:build js && wasm

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

package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebCodecs(t *testing.T) {
	caps := DefaultCapabilities()
	assert.Equal(t, []string{"deflate", "deflate64", "lzma", "store"}, caps.List())
	// 7z folders may use bzip2 or zstd internally
	assert.False(t, caps.Has(Codec7z))
	assert.Equal(t, []string{"deflate"}, caps.Narrow([]string{"deflate", "7z", "zstd"}).List())
}
