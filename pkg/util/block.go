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

package util

import (
	"encoding/binary"
	"fmt"
)

// BlockIndex maps field names to {offset, length} within a block. Multi-byte
// fields are little endian, as found in all PC disk structures.
type BlockIndex map[string][2]int

// NewBlock creates a block view onto data. The block does not copy data, so
// setters write through to the underlying buffer.
func NewBlock(index BlockIndex, data []byte) *Block {
	return &Block{index: index, data: data}
}

//
type Block struct {
	index BlockIndex
	data  []byte
}

//
func (b *Block) Data() []byte {
	return b.data
}

//
func (b *Block) field(name string) []byte {
	ix, ok := b.index[name]
	if !ok {
		panic(fmt.Sprintf("unknown block field: %s", name))
	}
	if ix[0]+ix[1] > len(b.data) {
		return nil
	}
	return b.data[ix[0] : ix[0]+ix[1]]
}

//
func (b *Block) GetByte(name string) byte {
	if f := b.field(name); len(f) > 0 {
		return f[0]
	}
	return 0
}

// GetInt returns the named field as unsigned little endian integer. Fields of
// length 1, 2 and 4 are supported, anything else yields 0.
func (b *Block) GetInt(name string) int {
	f := b.field(name)
	switch len(f) {
	case 1:
		return int(f[0])
	case 2:
		return int(binary.LittleEndian.Uint16(f))
	case 4:
		return int(binary.LittleEndian.Uint32(f))
	}
	return 0
}

//
func (b *Block) GetSlice(name string) []byte {
	return b.field(name)
}

//
func (b *Block) GetString(name string) string {
	return string(b.field(name))
}

//
func (b *Block) SetByte(name string, v byte) {
	if f := b.field(name); len(f) > 0 {
		f[0] = v
	}
}

//
func (b *Block) SetInt(name string, v int) {
	f := b.field(name)
	switch len(f) {
	case 1:
		f[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(f, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(f, uint32(v))
	}
}

//
func (b *Block) SetSlice(name string, v []byte) {
	copy(b.field(name), v)
}
