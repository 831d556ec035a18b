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

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

const (
	clusterFree  = 0
	firstCluster = 2
)

//
func (v *Volume) entryBits() int {
	switch v.fatType {
	case FAT12:
		return 12
	case FAT16:
		return 16
	}
	return 32
}

// endOfChain is the marker value written for the last cluster of a chain.
func (v *Volume) endOfChain() uint32 {
	switch v.fatType {
	case FAT12:
		return 0xfff
	case FAT16:
		return 0xffff
	}
	return 0x0fffffff
}

//
func (v *Volume) isEndOfChain(e uint32) bool {
	switch v.fatType {
	case FAT12:
		return e >= 0xff8
	case FAT16:
		return e >= 0xfff8
	}
	return e >= 0x0ffffff8
}

//
func (v *Volume) isValidCluster(c uint32) bool {
	return c >= firstCluster && int(c) < v.clusterCount+firstCluster
}

// clusterOffset returns the absolute offset of cluster c.
func (v *Volume) clusterOffset(c uint32) int {
	return v.dataOffset + int(c-firstCluster)*v.clusterSize
}

// entry reads the allocation table entry for cluster c from the first FAT.
func (v *Volume) entry(c uint32) uint32 {

	switch v.fatType {

	case FAT12:
		off := v.fatOffset + int(c) + int(c)/2
		e := uint32(binary.LittleEndian.Uint16(v.data[off:]))
		if c&1 == 1 {
			return e >> 4
		}
		return e & 0xfff

	case FAT16:
		return uint32(binary.LittleEndian.Uint16(v.data[v.fatOffset+int(c)*2:]))
	}

	return binary.LittleEndian.Uint32(v.data[v.fatOffset+int(c)*4:]) & 0x0fffffff
}

// setEntry updates the allocation table entry for cluster c in all FAT
// copies.
func (v *Volume) setEntry(c, value uint32) {

	fatBytes := v.fatSize * v.bytesPerSector

	for n := 0; n < v.numFATs; n++ {

		start := v.fatOffset + n*fatBytes

		switch v.fatType {

		case FAT12:
			off := start + int(c) + int(c)/2
			e := binary.LittleEndian.Uint16(v.data[off:])
			if c&1 == 1 {
				e = e&0x000f | uint16(value<<4)
			} else {
				e = e&0xf000 | uint16(value&0xfff)
			}
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], e)
			v.write(off, b[:])

		case FAT16:
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(value))
			v.write(start+int(c)*2, b[:])

		default:
			off := start + int(c)*4
			e := binary.LittleEndian.Uint32(v.data[off:])
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], e&0xf0000000|value&0x0fffffff)
			v.write(off, b[:])
		}
	}
}

// chain returns the clusters of the chain starting at c. Walks are bounded by
// the cluster count, so a loop in the table is reported instead of followed.
func (v *Volume) chain(c uint32) ([]uint32, error) {

	var ret []uint32

	for {
		if !v.isValidCluster(c) {
			return nil, base.Errorf(base.KindFormat, "chain", "",
				"invalid cluster %d in chain", c)
		}
		if len(ret) >= v.clusterCount {
			return nil, base.Errorf(base.KindFormat, "chain", "",
				"cluster chain loops")
		}
		ret = append(ret, c)

		next := v.entry(c)
		if v.isEndOfChain(next) {
			return ret, nil
		}
		if next == clusterFree {
			return nil, base.Errorf(base.KindFormat, "chain", "",
				"chain runs into free cluster after %d", c)
		}
		c = next
	}
}

// countFree counts the free clusters in the first FAT.
func (v *Volume) countFree() int {
	free := 0
	for c := uint32(firstCluster); v.isValidCluster(c); c++ {
		if v.entry(c) == clusterFree {
			free++
		}
	}
	return free
}

// allocHint returns the cluster to start searching for free ones.
func (v *Volume) allocHint() uint32 {
	if fsi := v.fsInfo(); fsi != nil {
		if h := uint32(fsi.GetInt("nextFree")); v.isValidCluster(h) {
			return h
		}
	}
	return firstCluster
}

// allocate links n free clusters into a new chain and returns it. Cluster
// contents are zeroed. Nothing is changed if there are not enough free
// clusters.
func (v *Volume) allocate(n int) ([]uint32, error) {

	if n == 0 {
		return nil, nil
	}

	if v.inconsistent {
		return nil, base.Errorf(base.KindFormat, "allocate", "",
			"free cluster count inconsistent, refusing to allocate")
	}

	var found []uint32
	start := v.allocHint()
	c := start

	for len(found) < n {
		if v.entry(c) == clusterFree {
			found = append(found, c)
		}
		c++
		if !v.isValidCluster(c) {
			c = firstCluster
		}
		if c == start {
			break
		}
	}

	if len(found) < n {
		return nil, base.Errorf(base.KindNoSpace, "allocate", "",
			"need %d clusters, %d free", n, len(found))
	}

	zero := make([]byte, v.clusterSize)
	for ix, cl := range found {
		if ix < len(found)-1 {
			v.setEntry(cl, found[ix+1])
		} else {
			v.setEntry(cl, v.endOfChain())
		}
		v.write(v.clusterOffset(cl), zero)
	}

	v.updateFSInfo(c)
	return found, nil
}

// extend appends one zeroed cluster to the chain ending in last.
func (v *Volume) extend(last uint32) (uint32, error) {
	cl, err := v.allocate(1)
	if err != nil {
		return 0, err
	}
	v.setEntry(last, cl[0])
	return cl[0], nil
}

// release marks all clusters of a chain free.
func (v *Volume) release(clusters []uint32) {
	if len(clusters) == 0 {
		return
	}
	for _, c := range clusters {
		v.setEntry(c, clusterFree)
	}
	v.updateFSInfo(v.allocHint())
}
