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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelalexv/mediadrive/pkg/media/base"
	"github.com/xelalexv/mediadrive/pkg/util"
)

//
func bootSector(g *Geometry, fatSize int, label string) []byte {
	s := make([]byte, SectorSize)
	b := util.NewBlock(BPBIndex, s)
	b.SetSlice("jump", []byte{0xeb, 0x3c, 0x90})
	b.SetSlice("oem", []byte("MSDOS5.0"))
	b.SetInt("bytesPerSector", g.SectorSize)
	b.SetInt("sectorsPerCluster", g.SectorsPerCluster)
	b.SetInt("reservedSectors", 1)
	b.SetInt("numFATs", 2)
	b.SetInt("rootEntries", g.RootEntries)
	b.SetInt("totalSectors16", g.Sectors())
	b.SetByte("media", g.Media)
	b.SetInt("fatSize16", fatSize)
	b.SetInt("sectorsPerTrack", g.SectorsPerTrack)
	b.SetInt("heads", g.Heads)
	b.SetByte("bootSig16", 0x29)
	b.SetSlice("label16", []byte("TESTDISK   "))
	if label != "" {
		b.SetSlice("label16", []byte(label))
	}
	b.SetInt("signature", BootSignature)
	return s
}

//
func TestClassify(t *testing.T) {

	g := GeometryByName("1.44M")
	require.NotNil(t, g)

	fatFloppy := make([]byte, g.Size())
	copy(fatFloppy, bootSector(g, 9, ""))

	scp := make([]byte, 4096)
	copy(scp, "SCP")

	hfe := make([]byte, 4096)
	copy(hfe, "HXCPICFE")

	vhd := make([]byte, 10*SectorSize+vhdFooterSize)
	copy(vhd[10*SectorSize:], "conectix")

	tests := []struct {
		name string
		data []byte
		want base.ImageFormat
		rule string
	}{
		{"blank 1.44M", make([]byte, g.Size()), base.FormatRawSector, "floppy-geometry"},
		{"blank 360K", make([]byte, 368640), base.FormatRawSector, "floppy-geometry"},
		{"FAT floppy", fatFloppy, base.FormatFatVolume, "fat"},
		{"SCP", scp, base.FormatFluxLevel, "supercard-pro"},
		{"HFE", hfe, base.FormatFluxLevel, "hxc-hfe"},
		{"VHD", vhd, base.FormatRawSector, "fixed-vhd"},
		{"odd size", make([]byte, 1000), base.FormatUnknown, "none"},
		{"empty", nil, base.FormatUnknown, "none"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Identify(tc.data)
			assert.Equal(t, tc.want, res.Format)
			assert.Equal(t, tc.rule, res.Rule)
			assert.Equal(t, tc.want, Classify(tc.data))
		})
	}
}

//
func TestClassifyIsPure(t *testing.T) {

	g := GeometryByName("720K")
	data := make([]byte, g.Size())
	copy(data, bootSector(g, 3, "PURE       "))
	orig := bytes.Clone(data)

	first := Identify(data)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Identify(data))
	}
	assert.Equal(t, orig, data)
	assert.Equal(t, "FAT12", first.FatType)
	assert.Equal(t, "PURE", first.Label)
}

//
func TestFatInPartition(t *testing.T) {

	const lba = 63
	g := &Geometry{Name: "hd", Cylinders: 20, Heads: 4, SectorsPerTrack: 63,
		SectorSize: 512, Media: 0xf8, SectorsPerCluster: 4, RootEntries: 512}

	data := make([]byte, g.Size()+lba*SectorSize)

	entry := data[446:462]
	entry[4] = 0x06
	binary.LittleEndian.PutUint32(entry[8:], lba)
	binary.LittleEndian.PutUint32(entry[12:], uint32(g.Sectors()))
	binary.LittleEndian.PutUint16(data[510:], BootSignature)

	copy(data[lba*SectorSize:], bootSector(g, 20, ""))

	res := Identify(data)
	assert.Equal(t, base.FormatFatVolume, res.Format)
	assert.Equal(t, lba*SectorSize, res.FatOffset)
	assert.Equal(t, "FAT12", res.FatType)
}

//
func TestImplausibleBPB(t *testing.T) {

	g := GeometryByName("1.44M")

	tests := map[string]func(b *util.Block){
		"bytes per sector": func(b *util.Block) { b.SetInt("bytesPerSector", 500) },
		"cluster size":     func(b *util.Block) { b.SetInt("sectorsPerCluster", 3) },
		"reserved":         func(b *util.Block) { b.SetInt("reservedSectors", 0) },
		"FAT count":        func(b *util.Block) { b.SetInt("numFATs", 3) },
		"media":            func(b *util.Block) { b.SetByte("media", 0x12) },
		"too large":        func(b *util.Block) { b.SetInt("totalSectors16", 5000) },
		"no signature":     func(b *util.Block) { b.SetInt("signature", 0) },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			data := make([]byte, g.Size())
			copy(data, bootSector(g, 9, ""))
			mutate(util.NewBlock(BPBIndex, data[:SectorSize]))
			res := Identify(data)
			assert.NotEqual(t, base.FormatFatVolume, res.Format)
			assert.Equal(t, base.FormatRawSector, res.Format)
		})
	}
}

//
func TestGeometryOffset(t *testing.T) {
	g := GeometryByName("1.44mb")
	require.NotNil(t, g)

	off, err := g.Offset(0, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, off)

	off, err = g.Offset(1, 1, 18)
	require.NoError(t, err)
	assert.Equal(t, (3*18+17)*512, off)

	_, err = g.Offset(80, 0, 1)
	assert.Error(t, err)
	_, err = g.Offset(0, 0, 0)
	assert.Error(t, err)
}
