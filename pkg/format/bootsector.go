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
	"encoding/binary"
	"fmt"

	"github.com/xelalexv/mediadrive/pkg/util"
)

// SectorSize is the sector size assumed for partition tables.
const SectorSize = 512

// BPBIndex gives the fields of a FAT boot sector and BIOS parameter block.
// Fields from fatSize32 on are only valid for FAT32.
var BPBIndex = util.BlockIndex{
	"jump":              {0, 3},
	"oem":               {3, 8},
	"bytesPerSector":    {11, 2},
	"sectorsPerCluster": {13, 1},
	"reservedSectors":   {14, 2},
	"numFATs":           {16, 1},
	"rootEntries":       {17, 2},
	"totalSectors16":    {19, 2},
	"media":             {21, 1},
	"fatSize16":         {22, 2},
	"sectorsPerTrack":   {24, 2},
	"heads":             {26, 2},
	"hiddenSectors":     {28, 4},
	"totalSectors32":    {32, 4},
	// FAT12/16 extended boot record
	"drive16":     {36, 1},
	"bootSig16":   {38, 1},
	"volumeID16":  {39, 4},
	"label16":     {43, 11},
	"fsType16":    {54, 8},
	// FAT32
	"fatSize32":   {36, 4},
	"extFlags":    {40, 2},
	"fsVersion":   {42, 2},
	"rootCluster": {44, 4},
	"fsInfo":      {48, 2},
	"backupBoot":  {50, 2},
	"drive32":     {64, 1},
	"bootSig32":   {66, 1},
	"volumeID32":  {67, 4},
	"label32":     {71, 11},
	"fsType32":    {82, 8},
	//
	"signature": {510, 2},
}

// BootSignature is the value expected in the last two bytes of a boot sector.
const BootSignature = 0xaa55

// FAT partition type identifiers in an MBR
var fatPartitionTypes = map[byte]bool{
	0x01: true, // FAT12
	0x04: true, // FAT16 < 32M
	0x06: true, // FAT16
	0x0b: true, // FAT32 CHS
	0x0c: true, // FAT32 LBA
	0x0e: true, // FAT16 LBA
}

// CheckBootSector checks whether sector looks like a FAT boot sector with a
// plausible BPB, for a volume of at most avail bytes.
func CheckBootSector(sector []byte, avail int) error {

	if len(sector) < SectorSize {
		return fmt.Errorf("boot sector too short")
	}

	b := util.NewBlock(BPBIndex, sector)

	if b.GetInt("signature") != BootSignature {
		return fmt.Errorf("no boot signature")
	}

	switch bps := b.GetInt("bytesPerSector"); bps {
	case 512, 1024, 2048, 4096:
	default:
		return fmt.Errorf("implausible bytes per sector: %d", bps)
	}

	spc := b.GetInt("sectorsPerCluster")
	if spc == 0 || spc&(spc-1) != 0 {
		return fmt.Errorf("implausible sectors per cluster: %d", spc)
	}

	if b.GetInt("reservedSectors") < 1 {
		return fmt.Errorf("no reserved sectors")
	}

	if n := b.GetInt("numFATs"); n != 1 && n != 2 {
		return fmt.Errorf("implausible number of FATs: %d", n)
	}

	if m := b.GetByte("media"); m != 0xf0 && m < 0xf8 {
		return fmt.Errorf("implausible media descriptor: 0x%02x", m)
	}

	total := TotalSectors(b)
	if total == 0 {
		return fmt.Errorf("zero total sectors")
	}

	fatSize := b.GetInt("fatSize16")
	if fatSize == 0 {
		fatSize = b.GetInt("fatSize32")
	}
	if fatSize == 0 {
		return fmt.Errorf("zero FAT size")
	}

	if size := total * b.GetInt("bytesPerSector"); size > avail {
		return fmt.Errorf("volume size %d exceeds available %d bytes", size, avail)
	}

	return nil
}

// TotalSectors returns the sector count from either of the two BPB fields.
func TotalSectors(b *util.Block) int {
	if t := b.GetInt("totalSectors16"); t != 0 {
		return t
	}
	return b.GetInt("totalSectors32")
}

// FindVolume locates a FAT volume in data, either directly at offset 0 or in
// the first FAT partition of an MBR partitioned disk. It returns the byte
// offset of the volume.
func FindVolume(data []byte) (int, error) {

	if len(data) < SectorSize {
		return 0, fmt.Errorf("image too short")
	}

	errDirect := CheckBootSector(data[:SectorSize], len(data))
	if errDirect == nil {
		return 0, nil
	}

	if binary.LittleEndian.Uint16(data[510:]) != BootSignature {
		return 0, errDirect
	}

	for p := 0; p < 4; p++ {
		entry := data[446+p*16 : 446+(p+1)*16]
		if !fatPartitionTypes[entry[4]] {
			continue
		}
		off := int(binary.LittleEndian.Uint32(entry[8:])) * SectorSize
		if off == 0 || off+SectorSize > len(data) {
			continue
		}
		if err := CheckBootSector(data[off:off+SectorSize], len(data)-off); err != nil {
			return 0, fmt.Errorf("partition %d: %v", p, err)
		}
		return off, nil
	}

	return 0, errDirect
}
