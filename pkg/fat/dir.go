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
	"strings"
	"time"
	"unicode/utf16"

	"github.com/xelalexv/mediadrive/pkg/media/base"
	"github.com/xelalexv/mediadrive/pkg/util"
)

const dirEntrySize = 32

// attribute bits
const (
	attrReadOnly  = 0x01
	attrHidden    = 0x02
	attrSystem    = 0x04
	attrVolumeID  = 0x08
	attrDirectory = 0x10
	attrArchive   = 0x20
	attrLFN       = 0x0f
)

const (
	slotEnd     = 0x00
	slotDeleted = 0xe5
)

// layout of a short directory entry
var dirEntryIndex = util.BlockIndex{
	"name":      {0, 11},
	"attr":      {11, 1},
	"ntRes":     {12, 1},
	"crtTenth":  {13, 1},
	"crtTime":   {14, 2},
	"crtDate":   {16, 2},
	"accDate":   {18, 2},
	"clusterHi": {20, 2},
	"wrtTime":   {22, 2},
	"wrtDate":   {24, 2},
	"clusterLo": {26, 2},
	"size":      {28, 4},
}

// layout of a long name entry
var lfnEntryIndex = util.BlockIndex{
	"ord":      {0, 1},
	"name1":    {1, 10},
	"attr":     {11, 1},
	"type":     {12, 1},
	"checksum": {13, 1},
	"name2":    {14, 12},
	"cluster":  {26, 2},
	"name3":    {28, 4},
}

// now is the clock used for directory time stamps.
var now = time.Now

// dir identifies a directory: the fixed root region of FAT12/16 when root is
// set, a cluster chain otherwise.
type dir struct {
	root    bool
	cluster uint32
}

// dirEntry is a decoded short entry, plus the long name entries preceding
// it, if any.
type dirEntry struct {
	v        *Volume
	slot     int   // absolute offset of the short entry
	lfnSlots []int // absolute offsets of long name entries
	short    string
	long     string
	attr     byte
	cluster  uint32
	size     int
}

//
func (e *dirEntry) block() *util.Block {
	return util.NewBlock(dirEntryIndex, e.v.data[e.slot:e.slot+dirEntrySize])
}

//
func (e *dirEntry) rawName() []byte {
	return e.v.data[e.slot : e.slot+11]
}

//
func (e *dirEntry) name() string {
	if e.long != "" {
		return e.long
	}
	return e.short
}

//
func (e *dirEntry) isDir() bool {
	return e.attr&attrDirectory != 0
}

//
func (e *dirEntry) isDot() bool {
	return e.short == "." || e.short == ".."
}

//
func (e *dirEntry) matches(name string) bool {
	return strings.EqualFold(e.short, name) ||
		(e.long != "" && strings.EqualFold(e.long, name))
}

//
func (e *dirEntry) asDir() dir {
	if e.cluster == 0 {
		return e.v.rootDir()
	}
	return dir{cluster: e.cluster}
}

//
func (e *dirEntry) toDirectoryEntry() *base.DirectoryEntry {
	ret := base.NewDirectoryEntry(e.name(), e.size, e.isDir(), e.cluster)
	ret.Annotate(base.AnnotationShortName, e.short)
	ret.Annotate(base.AnnotationReadOnly, e.attr&attrReadOnly != 0)
	ret.Annotate(base.AnnotationHidden, e.attr&attrHidden != 0)
	ret.Annotate(base.AnnotationSystem, e.attr&attrSystem != 0)
	ret.Annotate(base.AnnotationArchive, e.attr&attrArchive != 0)
	return ret
}

//
func (v *Volume) rootDir() dir {
	if v.fatType == FAT32 {
		return dir{cluster: v.rootCluster}
	}
	return dir{root: true}
}

// slots returns the absolute offsets of all entry slots of directory d.
func (v *Volume) slots(d dir) ([]int, error) {

	var ret []int

	if d.root {
		for off := 0; off < v.rootDirSize; off += dirEntrySize {
			ret = append(ret, v.rootDirOffset+off)
		}
		return ret, nil
	}

	clusters, err := v.chain(d.cluster)
	if err != nil {
		return nil, err
	}

	for _, c := range clusters {
		start := v.clusterOffset(c)
		for off := 0; off < v.clusterSize; off += dirEntrySize {
			ret = append(ret, start+off)
		}
	}

	return ret, nil
}

// readDir decodes the entries of directory d. Deleted entries are skipped,
// long names are attached to their short entry when the checksum matches.
func (v *Volume) readDir(d dir) ([]*dirEntry, error) {

	slots, err := v.slots(d)
	if err != nil {
		return nil, err
	}

	var ret []*dirEntry
	var lfnSlots []int
	var lfnParts []string
	var lfnSum byte

	for _, off := range slots {

		raw := v.data[off : off+dirEntrySize]

		if raw[0] == slotEnd {
			break
		}
		if raw[0] == slotDeleted {
			lfnSlots, lfnParts = nil, nil
			continue
		}

		if raw[11] == attrLFN {
			b := util.NewBlock(lfnEntryIndex, raw)
			ord := b.GetByte("ord")
			if ord&0x40 != 0 {
				lfnSlots, lfnParts = nil, nil
				lfnSum = b.GetByte("checksum")
			}
			lfnSlots = append(lfnSlots, off)
			lfnParts = append(lfnParts, decodeLFNPart(b))
			continue
		}

		b := util.NewBlock(dirEntryIndex, raw)
		e := &dirEntry{
			v:     v,
			slot:  off,
			short: decodeShortName(raw[:11], b.GetByte("ntRes")),
			attr:  b.GetByte("attr"),
			size:  b.GetInt("size"),
			cluster: uint32(b.GetInt("clusterLo")) |
				uint32(b.GetInt("clusterHi"))<<16,
		}

		if v.fatType != FAT32 {
			e.cluster &= 0xffff
		}

		if len(lfnParts) > 0 && lfnSum == shortNameChecksum(raw) {
			var sb strings.Builder
			for ix := len(lfnParts) - 1; ix >= 0; ix-- {
				sb.WriteString(lfnParts[ix])
			}
			e.long = sb.String()
			e.lfnSlots = lfnSlots
		}
		lfnSlots, lfnParts = nil, nil

		ret = append(ret, e)
	}

	return ret, nil
}

//
func decodeLFNPart(b *util.Block) string {

	var units []uint16
	for _, f := range []string{"name1", "name2", "name3"} {
		s := b.GetSlice(f)
		for ix := 0; ix+1 < len(s); ix += 2 {
			units = append(units, binary.LittleEndian.Uint16(s[ix:]))
		}
	}

	for ix, u := range units {
		if u == 0x0000 {
			units = units[:ix]
			break
		}
	}

	return string(utf16.Decode(units))
}

// lookup finds name in directory d.
func (v *Volume) lookup(d dir, name string) (*dirEntry, error) {
	entries, err := v.readDir(d)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.attr&attrVolumeID != 0 {
			continue
		}
		if e.matches(name) {
			return e, nil
		}
	}
	return nil, nil
}

// freeSlot returns a slot for a new entry in directory d, growing the
// directory by a cluster if necessary. The fixed root directory of FAT12/16
// cannot grow.
func (v *Volume) freeSlot(d dir) (int, error) {

	slots, err := v.slots(d)
	if err != nil {
		return 0, err
	}

	for ix, off := range slots {
		switch v.data[off] {
		case slotDeleted:
			return off, nil
		case slotEnd:
			// keep the end marker behind the new entry
			if ix+1 < len(slots) && v.data[slots[ix+1]] != slotEnd {
				v.write(slots[ix+1], []byte{slotEnd})
			}
			return off, nil
		}
	}

	if d.root {
		return 0, base.Errorf(base.KindNoSpace, "add entry", "",
			"root directory full")
	}

	clusters, err := v.chain(d.cluster)
	if err != nil {
		return 0, err
	}
	c, err := v.extend(clusters[len(clusters)-1])
	if err != nil {
		return 0, err
	}
	return v.clusterOffset(c), nil
}

// addEntry creates a short entry in directory d.
func (v *Volume) addEntry(d dir, name shortName, attr byte, cluster uint32,
	size int) (*dirEntry, error) {

	off, err := v.freeSlot(d)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, dirEntrySize)
	b := util.NewBlock(dirEntryIndex, raw)
	b.SetSlice("name", name[:])
	b.SetByte("attr", attr)

	date, tm := dosTime(now())
	b.SetInt("crtTime", tm)
	b.SetInt("crtDate", date)
	b.SetInt("accDate", date)
	b.SetInt("wrtTime", tm)
	b.SetInt("wrtDate", date)
	b.SetInt("clusterHi", int(cluster>>16))
	b.SetInt("clusterLo", int(cluster&0xffff))
	b.SetInt("size", size)

	v.write(off, raw)

	return &dirEntry{
		v:       v,
		slot:    off,
		short:   decodeShortName(name[:], 0),
		attr:    attr,
		cluster: cluster,
		size:    size,
	}, nil
}

// setContent points entry e to a new cluster chain and size, and touches its
// modification time.
func (v *Volume) setContent(e *dirEntry, cluster uint32, size int) {

	raw := make([]byte, dirEntrySize)
	copy(raw, v.data[e.slot:e.slot+dirEntrySize])

	b := util.NewBlock(dirEntryIndex, raw)
	b.SetInt("clusterHi", int(cluster>>16))
	b.SetInt("clusterLo", int(cluster&0xffff))
	b.SetInt("size", size)
	b.SetByte("attr", b.GetByte("attr")|attrArchive)
	date, tm := dosTime(now())
	b.SetInt("wrtTime", tm)
	b.SetInt("wrtDate", date)

	v.write(e.slot, raw)

	e.cluster = cluster
	e.size = size
}

// removeEntry marks e and its long name entries deleted.
func (v *Volume) removeEntry(e *dirEntry) {
	for _, off := range e.lfnSlots {
		v.write(off, []byte{slotDeleted})
	}
	v.write(e.slot, []byte{slotDeleted})
}

// dosTime converts t into DOS date and time words.
func dosTime(t time.Time) (date, tm int) {
	y := t.Year() - 1980
	if y < 0 {
		y = 0
	} else if y > 127 {
		y = 127
	}
	date = y<<9 | int(t.Month())<<5 | t.Day()
	tm = t.Hour()<<11 | t.Minute()<<5 | t.Second()/2
	return date, tm
}
