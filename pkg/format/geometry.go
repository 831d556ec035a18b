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

package format

import (
	"fmt"
	"strings"
)

// Geometry describes a standard PC floppy layout, together with the BPB
// parameters DOS used when formatting it.
type Geometry struct {
	Name              string
	Cylinders         int
	Heads             int
	SectorsPerTrack   int
	SectorSize        int
	Media             byte
	SectorsPerCluster int
	RootEntries       int
}

// Size returns the image size in bytes.
func (g *Geometry) Size() int {
	return g.Cylinders * g.Heads * g.SectorsPerTrack * g.SectorSize
}

// Sectors returns the total number of sectors.
func (g *Geometry) Sectors() int {
	return g.Cylinders * g.Heads * g.SectorsPerTrack
}

// Offset returns the byte offset of the sector at cylinder c, head h, and
// sector s. Sectors are numbered from 1.
func (g *Geometry) Offset(c, h, s int) (int, error) {
	if c < 0 || c >= g.Cylinders || h < 0 || h >= g.Heads ||
		s < 1 || s > g.SectorsPerTrack {
		return 0, fmt.Errorf("invalid address c=%d h=%d s=%d for %s", c, h, s, g.Name)
	}
	return ((c*g.Heads+h)*g.SectorsPerTrack + s - 1) * g.SectorSize, nil
}

//
func (g *Geometry) String() string {
	return fmt.Sprintf("%s (%d/%d/%d)", g.Name, g.Cylinders, g.Heads, g.SectorsPerTrack)
}

var geometries = []*Geometry{
	{"160K", 40, 1, 8, 512, 0xfe, 1, 64},
	{"180K", 40, 1, 9, 512, 0xfc, 1, 64},
	{"320K", 40, 2, 8, 512, 0xff, 2, 112},
	{"360K", 40, 2, 9, 512, 0xfd, 2, 112},
	{"720K", 80, 2, 9, 512, 0xf9, 2, 112},
	{"1.2M", 80, 2, 15, 512, 0xf9, 1, 224},
	{"1.44M", 80, 2, 18, 512, 0xf0, 1, 224},
	{"2.88M", 80, 2, 36, 512, 0xf0, 2, 240},
}

// Geometries lists the known floppy geometries, smallest first.
func Geometries() []*Geometry {
	ret := make([]*Geometry, len(geometries))
	copy(ret, geometries)
	return ret
}

// GeometryForSize returns the floppy geometry with exactly the given image
// size, nil if there is none.
func GeometryForSize(size int) *Geometry {
	for _, g := range geometries {
		if g.Size() == size {
			return g
		}
	}
	return nil
}

// GeometryByName looks up a geometry by its name, e.g. "1.44M". Case and a
// trailing "B" are ignored.
func GeometryByName(name string) *Geometry {
	n := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(name)), "B")
	for _, g := range geometries {
		if strings.ToUpper(g.Name) == n {
			return g
		}
	}
	return nil
}
