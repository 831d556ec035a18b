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
	"bytes"
	"encoding/binary"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/format"
	"github.com/xelalexv/mediadrive/pkg/media/base"
	"github.com/xelalexv/mediadrive/pkg/util"
)

// Type is the FAT variant of a volume.
type Type int

const (
	TypeAuto Type = iota
	FAT12
	FAT16
	FAT32
)

//
func (t Type) String() string {
	switch t {
	case FAT12:
		return "FAT12"
	case FAT16:
		return "FAT16"
	case FAT32:
		return "FAT32"
	}
	return "auto"
}

// DefaultMaxDepth bounds directory nesting for path resolution and walks.
const DefaultMaxDepth = 32

// Options tune a mount.
type Options struct {
	MaxDepth int
}

// FSInfo sector layout
var fsInfoIndex = util.BlockIndex{
	"leadSig":   {0, 4},
	"strucSig":  {484, 4},
	"freeCount": {488, 4},
	"nextFree":  {492, 4},
	"trailSig":  {508, 4},
}

const (
	fsInfoLeadSig  = 0x41615252
	fsInfoStrucSig = 0x61417272
	fsInfoTrailSig = 0xaa550000
	fsInfoUnknown  = 0xffffffff
)

// Volume is a mounted FAT volume. The image buffer is owned by the volume, and
// all structures are located by offset arithmetic into it.
type Volume struct {
	mu sync.RWMutex

	data     []byte
	offset   int // start of the volume within data
	fatType  Type
	writable bool
	modified bool
	maxDepth int

	// set when FSInfo disagrees with the allocation table
	inconsistent bool

	bytesPerSector    int
	sectorsPerCluster int
	clusterSize       int
	reservedSectors   int
	numFATs           int
	fatSize           int // in sectors
	rootEntries       int
	totalSectors      int

	fatOffset     int // first FAT, absolute
	rootDirOffset int // FAT12/16 fixed root directory, absolute
	rootDirSize   int
	rootCluster   uint32 // FAT32
	dataOffset    int    // cluster 2, absolute
	clusterCount  int
	fsInfoOffset  int // absolute, -1 if none

	bpbLabel string

	txn *txn
}

// Mount mounts the FAT volume in buf. On success, the volume takes ownership
// of the buffer's bytes. A volume whose FSInfo free count disagrees with the
// allocation table is mounted, but refuses allocating mutations.
func Mount(buf *base.Buffer, writable bool, opts Options) (*Volume, error) {

	if buf == nil || buf.IsReleased() {
		return nil, base.Errorf(base.KindFormat, "mount", "", "no image data")
	}

	data := buf.Bytes()
	off, err := format.FindVolume(data)
	if err != nil {
		return nil, base.NewError(base.KindFormat, "mount", "", err)
	}

	v, err := newVolume(data, off, writable, opts)
	if err != nil {
		return nil, err
	}

	v.data = buf.Release()
	return v, nil
}

//
func newVolume(data []byte, off int, writable bool, opts Options) (*Volume, error) {

	v := &Volume{
		data:         data,
		offset:       off,
		writable:     writable,
		maxDepth:     opts.MaxDepth,
		fsInfoOffset: -1,
	}

	if v.maxDepth <= 0 {
		v.maxDepth = DefaultMaxDepth
	}

	b := util.NewBlock(format.BPBIndex, data[off:off+format.SectorSize])

	v.bytesPerSector = b.GetInt("bytesPerSector")
	v.sectorsPerCluster = b.GetInt("sectorsPerCluster")
	v.clusterSize = v.bytesPerSector * v.sectorsPerCluster
	v.reservedSectors = b.GetInt("reservedSectors")
	v.numFATs = b.GetInt("numFATs")
	v.rootEntries = b.GetInt("rootEntries")
	v.totalSectors = format.TotalSectors(b)

	switch format.FatTypeOf(b) {
	case "FAT32":
		v.fatType = FAT32
		v.fatSize = b.GetInt("fatSize32")
		v.rootCluster = uint32(b.GetInt("rootCluster"))
		if b.GetByte("bootSig32") == 0x29 {
			v.bpbLabel = trimLabel(b.GetSlice("label32"))
		}
	case "FAT16":
		v.fatType = FAT16
		v.fatSize = b.GetInt("fatSize16")
	default:
		v.fatType = FAT12
		v.fatSize = b.GetInt("fatSize16")
	}

	if v.fatType != FAT32 && b.GetByte("bootSig16") == 0x29 {
		v.bpbLabel = trimLabel(b.GetSlice("label16"))
	}

	v.fatOffset = off + v.reservedSectors*v.bytesPerSector
	v.rootDirOffset = v.fatOffset + v.numFATs*v.fatSize*v.bytesPerSector
	v.rootDirSize = v.rootEntries * dirEntrySize
	rootSectors := (v.rootDirSize + v.bytesPerSector - 1) / v.bytesPerSector
	v.dataOffset = v.rootDirOffset + rootSectors*v.bytesPerSector

	dataSectors := v.totalSectors - (v.dataOffset-off)/v.bytesPerSector
	if dataSectors <= 0 {
		return nil, base.Errorf(base.KindFormat, "mount", "",
			"no room for data region")
	}
	v.clusterCount = dataSectors / v.sectorsPerCluster

	if need := (v.clusterCount + 2) * v.entryBits() / 8; need > v.fatSize*v.bytesPerSector {
		return nil, base.Errorf(base.KindFormat, "mount", "",
			"FAT of %d sectors too small for %d clusters", v.fatSize, v.clusterCount)
	}

	if v.fatType == FAT32 {
		if !v.isValidCluster(v.rootCluster) {
			return nil, base.Errorf(base.KindFormat, "mount", "",
				"invalid root cluster %d", v.rootCluster)
		}
		if sec := b.GetInt("fsInfo"); sec > 0 && sec < v.reservedSectors {
			v.fsInfoOffset = off + sec*v.bytesPerSector
		}
	}

	v.checkFSInfo()

	log.WithFields(log.Fields{
		"type":         v.fatType,
		"offset":       off,
		"clusters":     v.clusterCount,
		"cluster-size": v.clusterSize,
		"writable":     writable,
		"consistent":   !v.inconsistent}).Debug("FAT volume mounted")

	return v, nil
}

//
func trimLabel(b []byte) string {
	l := string(bytes.TrimRight(b, " \x00"))
	if l == "NO NAME" {
		return ""
	}
	return l
}

// checkFSInfo compares the free count recorded in FSInfo against the actual
// number of free clusters.
func (v *Volume) checkFSInfo() {

	fsi := v.fsInfo()
	if fsi == nil {
		return
	}

	recorded := fsi.GetInt("freeCount")
	if uint32(recorded) == fsInfoUnknown {
		return
	}

	if recorded > v.clusterCount {
		log.WithField("recorded", recorded).Warn(
			"ignoring invalid FSInfo free cluster count")
		return
	}

	if actual := v.countFree(); actual != recorded {
		log.WithFields(log.Fields{
			"recorded": recorded,
			"actual":   actual}).Warn(
			"FSInfo free cluster count does not match allocation table, " +
				"volume marked inconsistent")
		v.inconsistent = true
	}
}

// fsInfo returns the FSInfo sector, nil if the volume has none or its
// signatures are wrong.
func (v *Volume) fsInfo() *util.Block {
	if v.fsInfoOffset < 0 || v.fsInfoOffset+format.SectorSize > len(v.data) {
		return nil
	}
	b := util.NewBlock(fsInfoIndex, v.data[v.fsInfoOffset:v.fsInfoOffset+format.SectorSize])
	if uint32(b.GetInt("leadSig")) != fsInfoLeadSig ||
		uint32(b.GetInt("strucSig")) != fsInfoStrucSig {
		return nil
	}
	return b
}

// updateFSInfo records the current free count and allocation hint.
func (v *Volume) updateFSInfo(next uint32) {
	if v.inconsistent || v.fsInfo() == nil {
		return
	}
	var b [8]byte
	binary.LittleEndian.PutUint32(b[0:], uint32(v.countFree()))
	binary.LittleEndian.PutUint32(b[4:], next)
	v.write(v.fsInfoOffset+488, b[:])
}

//
func (v *Volume) Type() Type {
	return v.fatType
}

// Inconsistent reports whether the volume was found inconsistent at mount.
func (v *Volume) Inconsistent() bool {
	return v.inconsistent
}

//
func (v *Volume) Offset() int {
	return v.offset
}

//
func (v *Volume) Format() base.ImageFormat {
	return base.FormatFatVolume
}

//
func (v *Volume) Snapshot() []byte {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return bytes.Clone(v.data)
}

//
func (v *Volume) IsWritable() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.writable
}

// SetWritable toggles write protection. Making a volume writable that was
// mounted read-only is allowed, the orchestrator decides whether that is
// permitted.
func (v *Volume) SetWritable(w bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.writable = w
}

//
func (v *Volume) IsModified() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.modified
}

//
func (v *Volume) SetModified(m bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.modified = m
}

// Label returns the volume label from the root directory, falling back to the
// one in the boot sector.
func (v *Volume) Label() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if entries, err := v.readDir(v.rootDir()); err == nil {
		for _, e := range entries {
			if e.attr&attrVolumeID != 0 && e.attr != attrLFN {
				return trimLabel(e.rawName())
			}
		}
	}
	return v.bpbLabel
}

//
func (v *Volume) Stats() (*base.FsStats, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return base.NewFsStats(v.clusterCount, v.countFree(), v.clusterSize), nil
}

//
func (v *Volume) Size() int {
	return len(v.data)
}

// ReadRange reads from the raw image, including anything before the volume
// such as a partition table.
func (v *Volume) ReadRange(off, n int) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if off < 0 || n < 0 || off+n > len(v.data) {
		return nil, base.Errorf(base.KindOutOfBounds, "read range", "",
			"range %d+%d outside image of %d bytes", off, n, len(v.data))
	}
	return bytes.Clone(v.data[off : off+n]), nil
}

//
func (v *Volume) WriteRange(off int, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.writable {
		return base.Errorf(base.KindReadOnly, "write range", "", "volume is read-only")
	}
	if off < 0 || off+len(data) > len(v.data) {
		return base.Errorf(base.KindOutOfBounds, "write range", "",
			"range %d+%d outside image of %d bytes", off, len(data), len(v.data))
	}
	copy(v.data[off:], data)
	v.modified = true
	return nil
}
