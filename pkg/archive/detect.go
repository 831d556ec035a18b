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
	"bytes"
)

// Container is the kind of archive wrapping an image.
type Container string

const (
	ContainerNone Container = ""
	ContainerZip  Container = "zip"
	Container7z   Container = "7z"
	ContainerGzip Container = "gzip"
	ContainerRar  Container = "rar"
)

type signature struct {
	container Container
	magic     []byte
}

var signatures = []signature{
	{ContainerZip, []byte("PK\x03\x04")},
	{ContainerZip, []byte("PK\x05\x06")},
	{Container7z, []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}},
	{ContainerGzip, []byte{0x1f, 0x8b}},
	{ContainerRar, []byte("Rar!\x1a\x07")},
}

// Detect reports the container format of data by its leading signature.
func Detect(data []byte) Container {
	for _, s := range signatures {
		if bytes.HasPrefix(data, s.magic) {
			return s.container
		}
	}
	return ContainerNone
}

// IsArchive reports whether data starts with a known container signature.
func IsArchive(data []byte) bool {
	return Detect(data) != ContainerNone
}
