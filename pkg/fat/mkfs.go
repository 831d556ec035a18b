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

package fat

import (
	"encoding/binary"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/format"
	"github.com/xelalexv/mediadrive/pkg/media/base"
	"github.com/xelalexv/mediadrive/pkg/util"
)

const (
	maxFAT12Clusters = 4084
	maxFAT16Clusters = 65524
)

// FormatOptions describe a blank volume to create. Either Geometry or Size
// has to be given. Unset values are filled in with defaults matching the
// geometry or size.
type FormatOptions struct {
	Geometry          *format.Geometry
	Size              int
	Type              Type
	Label             string
	SectorsPerCluster int
	RootEntries       int
}

// layout is the computed arrangement of a new volume.
type layout struct {
	typ          Type
	total        int
	spc          int
	reserved     int
	numFATs      int
	rootEntries  int
	fatSize      int
	clusterCount int
	media        byte
	spt          int
	heads        int
}

// Format creates a blank, unpartitioned FAT image.
func Format(opts FormatOptions) ([]byte, error) {

	size := opts.Size
	if opts.Geometry != nil {
		size = opts.Geometry.Size()
	}

	if size < 64*format.SectorSize || size%format.SectorSize != 0 {
		return nil, base.Errorf(base.KindInvalidPath, "format", "",
			"invalid image size %d", size)
	}

	label, err := encodeLabel(opts.Label)
	if err != nil {
		return nil, err
	}

	l, err := planLayout(size, opts)
	if err != nil {
		return nil, err
	}

	data := make([]byte, size)
	writeBootSector(data, l, label, opts.Label != "")

	fatStart := l.reserved * format.SectorSize
	for n := 0; n < l.numFATs; n++ {
		writeFATHead(data[fatStart+n*l.fatSize*format.SectorSize:], l)
	}

	if l.typ == FAT32 {
		writeFSInfo(data[format.SectorSize:], l.clusterCount-1, 3)
		// backup boot sector and FSInfo
		copy(data[6*format.SectorSize:], data[:2*format.SectorSize])
	}

	if opts.Label != "" {
		// first slot of the root directory, for FAT32 that is cluster 2
		off := (l.reserved + l.numFATs*l.fatSize) * format.SectorSize
		entry := util.NewBlock(dirEntryIndex, data[off:off+dirEntrySize])
		entry.SetSlice("name", label[:])
		entry.SetByte("attr", attrVolumeID|attrArchive)
		date, tm := dosTime(now())
		entry.SetInt("wrtTime", tm)
		entry.SetInt("wrtDate", date)
	}

	log.WithFields(log.Fields{
		"type":     l.typ,
		"size":     size,
		"clusters": l.clusterCount,
		"label":    opts.Label}).Debug("formatted blank volume")

	return data, nil
}

// planLayout picks cluster size and FAT size for a volume of size bytes. The
// resulting cluster count has to fall into the range of the requested type,
// since that is how the type is recognized when mounting.
func planLayout(size int, opts FormatOptions) (*layout, error) {

	l := &layout{
		total:    size / format.SectorSize,
		numFATs:  2,
		reserved: 1,
		media:    0xf8,
		spt:      63,
		heads:    16,
		typ:      opts.Type,
	}

	spc := opts.SectorsPerCluster
	l.rootEntries = opts.RootEntries

	if g := opts.Geometry; g != nil {
		l.media = g.Media
		l.spt = g.SectorsPerTrack
		l.heads = g.Heads
		if spc == 0 {
			spc = g.SectorsPerCluster
		}
		if l.rootEntries == 0 {
			l.rootEntries = g.RootEntries
		}
		if l.typ == TypeAuto {
			l.typ = FAT12
		}
	}

	if l.typ == FAT32 {
		l.reserved = 32
		l.rootEntries = 0
	} else if l.rootEntries == 0 {
		l.rootEntries = 512
	}

	if spc == 0 {
		spc = 1
	}

	for ; spc <= 128; spc *= 2 {

		l.spc = spc
		l.computeFATSize()

		switch {
		case l.clusterCount < 1:
			return nil, base.Errorf(base.KindInvalidPath, "format", "",
				"image of %d bytes too small", size)

		case l.typ == FAT32:
			return l, nil

		case l.clusterCount <= maxFAT12Clusters:
			if l.typ == FAT16 {
				return nil, base.Errorf(base.KindInvalidPath, "format", "",
					"image of %d bytes too small for FAT16", size)
			}
			l.typ = FAT12
			return l, nil

		case l.clusterCount <= maxFAT16Clusters:
			if l.typ != FAT12 {
				l.typ = FAT16
				return l, nil
			}
		}

		if opts.SectorsPerCluster != 0 {
			break
		}
	}

	return nil, base.NewError(base.KindInvalidPath, "format", "",
		fmt.Errorf("no suitable cluster size for %s volume of %d bytes",
			opts.Type, size))
}

// computeFATSize iterates to the smallest FAT that covers all clusters.
func (l *layout) computeFATSize() {

	bits := 12
	switch l.typ {
	case FAT16:
		bits = 16
	case FAT32:
		bits = 32
	case TypeAuto:
		bits = 16
	}

	rootSectors := (l.rootEntries*dirEntrySize + format.SectorSize - 1) / format.SectorSize
	l.fatSize = 1

	for {
		data := l.total - l.reserved - l.numFATs*l.fatSize - rootSectors
		l.clusterCount = data / l.spc
		if l.clusterCount < 0 {
			l.clusterCount = 0
		}
		need := ((l.clusterCount+2)*bits/8 + format.SectorSize) / format.SectorSize
		if need <= l.fatSize {
			return
		}
		l.fatSize = need
	}
}

//
func writeBootSector(data []byte, l *layout, label shortName, hasLabel bool) {

	b := util.NewBlock(format.BPBIndex, data[:format.SectorSize])

	b.SetSlice("oem", []byte("MEDIADRV"))
	b.SetInt("bytesPerSector", format.SectorSize)
	b.SetInt("sectorsPerCluster", l.spc)
	b.SetInt("reservedSectors", l.reserved)
	b.SetInt("numFATs", l.numFATs)
	b.SetInt("rootEntries", l.rootEntries)
	if l.total < 0x10000 && l.typ != FAT32 {
		b.SetInt("totalSectors16", l.total)
	} else {
		b.SetInt("totalSectors32", l.total)
	}
	b.SetByte("media", l.media)
	b.SetInt("sectorsPerTrack", l.spt)
	b.SetInt("heads", l.heads)

	drive := byte(0x80)
	if l.media != 0xf8 {
		drive = 0x00
	}

	if !hasLabel {
		label = dotName("NO NAME")
	}
	id := int(uint32(now().Unix()))

	if l.typ == FAT32 {
		b.SetSlice("jump", []byte{0xeb, 0x58, 0x90})
		b.SetInt("fatSize32", l.fatSize)
		b.SetInt("rootCluster", firstCluster)
		b.SetInt("fsInfo", 1)
		b.SetInt("backupBoot", 6)
		b.SetByte("drive32", drive)
		b.SetByte("bootSig32", 0x29)
		b.SetInt("volumeID32", id)
		b.SetSlice("label32", label[:])
		b.SetSlice("fsType32", []byte("FAT32   "))
	} else {
		b.SetSlice("jump", []byte{0xeb, 0x3c, 0x90})
		b.SetInt("fatSize16", l.fatSize)
		b.SetByte("drive16", drive)
		b.SetByte("bootSig16", 0x29)
		b.SetInt("volumeID16", id)
		b.SetSlice("label16", label[:])
		b.SetSlice("fsType16", []byte(fmt.Sprintf("%-8s", l.typ)))
	}

	b.SetInt("signature", format.BootSignature)
}

// writeFATHead writes the two reserved entries at the start of a FAT, and
// for FAT32 the end of chain marker of the root directory cluster.
func writeFATHead(fat []byte, l *layout) {
	switch l.typ {
	case FAT12:
		fat[0] = l.media
		fat[1] = 0xff
		fat[2] = 0xff
	case FAT16:
		binary.LittleEndian.PutUint16(fat[0:], 0xff00|uint16(l.media))
		binary.LittleEndian.PutUint16(fat[2:], 0xffff)
	default:
		binary.LittleEndian.PutUint32(fat[0:], 0x0fffff00|uint32(l.media))
		binary.LittleEndian.PutUint32(fat[4:], 0x0fffffff)
		binary.LittleEndian.PutUint32(fat[8:], 0x0fffffff)
	}
}

//
func writeFSInfo(sector []byte, free int, next uint32) {
	b := util.NewBlock(fsInfoIndex, sector[:format.SectorSize])
	b.SetInt("leadSig", fsInfoLeadSig)
	b.SetInt("strucSig", fsInfoStrucSig)
	b.SetInt("freeCount", free)
	b.SetInt("nextFree", int(next))
	b.SetInt("trailSig", fsInfoTrailSig)
}
