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
	"bytes"

	"github.com/xelalexv/mediadrive/pkg/media/base"
	"github.com/xelalexv/mediadrive/pkg/util"
)

// vhdFooterSize is the size of the footer a fixed VHD appends to raw data.
const vhdFooterSize = 512

// Result is the outcome of identifying an image, with details for display.
type Result struct {
	Format    base.ImageFormat
	Rule      string
	Geometry  *Geometry // raw sector images of a known floppy size
	FatOffset int       // FAT volumes
	FatType   string    // FAT volumes
	Label     string    // FAT volumes
	DataSize  int       // raw sector images, excluding any VHD footer
}

type rule struct {
	name   string
	format base.ImageFormat
	match  func(data []byte, res *Result) bool
}

// rules are evaluated in order, first match wins
var rules = []rule{
	{"supercard-pro", base.FormatFluxLevel, prefix([]byte("SCP"))},
	{"hxc-hfe", base.FormatFluxLevel, prefix([]byte("HXCPICFE"))},
	{"hxc-hfe-v3", base.FormatFluxLevel, prefix([]byte("HXCHFEV3"))},
	{"hxc-mfm", base.FormatFluxLevel, prefix([]byte("HXCMFM"))},
	{"86box-86f", base.FormatFluxLevel, prefix([]byte("86BF"))},
	{"pce-pri", base.FormatFluxLevel, prefix([]byte("PRI "))},
	{"pce-pfi", base.FormatFluxLevel, prefix([]byte("PFI "))},
	{"fat", base.FormatFatVolume, matchFAT},
	{"floppy-geometry", base.FormatRawSector, matchGeometry},
	{"fixed-vhd", base.FormatRawSector, matchVHD},
}

//
func prefix(magic []byte) func([]byte, *Result) bool {
	return func(data []byte, _ *Result) bool {
		return bytes.HasPrefix(data, magic)
	}
}

//
func matchFAT(data []byte, res *Result) bool {

	off, err := FindVolume(data)
	if err != nil {
		return false
	}

	b := util.NewBlock(BPBIndex, data[off:off+SectorSize])
	res.FatOffset = off
	res.FatType = FatTypeOf(b)

	if res.FatType == "FAT32" {
		if b.GetByte("bootSig32") == 0x29 {
			res.Label = string(bytes.TrimRight(b.GetSlice("label32"), " \x00"))
		}
	} else if b.GetByte("bootSig16") == 0x29 {
		res.Label = string(bytes.TrimRight(b.GetSlice("label16"), " \x00"))
	}

	return true
}

//
func matchGeometry(data []byte, res *Result) bool {
	if g := GeometryForSize(len(data)); g != nil {
		res.Geometry = g
		res.DataSize = len(data)
		return true
	}
	return false
}

//
func matchVHD(data []byte, res *Result) bool {
	if len(data) < vhdFooterSize {
		return false
	}
	footer := data[len(data)-vhdFooterSize:]
	if !bytes.HasPrefix(footer, []byte("conectix")) {
		return false
	}
	res.DataSize = len(data) - vhdFooterSize
	res.Geometry = GeometryForSize(res.DataSize)
	return true
}

// FatTypeOf determines the FAT type of a plausible boot sector. FAT32 is
// indicated by a zero 16-bit FAT size together with a zero root entry count,
// FAT12 and FAT16 are told apart by cluster count.
func FatTypeOf(b *util.Block) string {

	if b.GetInt("fatSize16") == 0 && b.GetInt("rootEntries") == 0 {
		return "FAT32"
	}

	bps := b.GetInt("bytesPerSector")
	spc := b.GetInt("sectorsPerCluster")
	if bps == 0 || spc == 0 {
		return "FAT12"
	}

	rootSectors := (b.GetInt("rootEntries")*32 + bps - 1) / bps
	dataSectors := TotalSectors(b) - b.GetInt("reservedSectors") -
		b.GetInt("numFATs")*b.GetInt("fatSize16") - rootSectors

	if dataSectors/spc < 4085 {
		return "FAT12"
	}
	return "FAT16"
}

// Identify classifies data and reports which rule matched. It never fails,
// does not modify data, and always gives the same result for the same bytes.
func Identify(data []byte) Result {
	for _, r := range rules {
		res := Result{}
		if r.match(data, &res) {
			res.Format = r.format
			res.Rule = r.name
			return res
		}
	}
	return Result{Format: base.FormatUnknown, Rule: "none"}
}

// Classify returns the image format of data.
func Classify(data []byte) base.ImageFormat {
	return Identify(data).Format
}
