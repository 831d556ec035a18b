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

package base

// RangeAccess is a bounds checked byte window onto a medium, consumed directly
// by emulated disk controllers.
type RangeAccess interface {

	// Size returns the size of the window in bytes
	Size() int

	// ReadRange returns a copy of n bytes starting at off, or an OutOfBounds
	// error if the range is not fully inside the window
	ReadRange(off, n int) ([]byte, error)

	// WriteRange writes data at off; ReadOnly or OutOfBounds on failure, in
	// which case nothing is written
	WriteRange(off int, data []byte) error
}

// FileSystem gives access to the logical contents of a filesystem backed
// medium. Paths are slash separated, and resolved case-insensitively.
type FileSystem interface {

	//
	List(path string) ([]*DirectoryEntry, error)

	//
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the contents of the file at path, creating it if
	// necessary. Either the whole write commits, or the medium stays as it was.
	WriteFile(path string, data []byte) error

	//
	CreateFile(path string) error

	//
	DeleteFile(path string) error

	//
	Mkdir(path string) error

	//
	Stats() (*FsStats, error)

	// Label returns the volume label, if any
	Label() string
}

// Image is implemented by every adapter, and gives the orchestrator what it
// needs for flushing a medium back to its host.
type Image interface {

	// Format returns the classification the adapter was mounted for
	Format() ImageFormat

	// Snapshot returns a copy of the current image bytes
	Snapshot() []byte

	//
	IsWritable() bool

	//
	IsModified() bool

	//
	SetModified(m bool)
}
