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

package archive

import (
	"errors"
	"fmt"
	"io"
)

/*
	Deflate64 is Deflate with a 64KiB window. Length code 285 carries 16 extra
	bits on top of a base of 3, and distance codes 30 and 31 are in use. None
	of the Go deflate packages decode it, so we bring our own canonical Huffman
	inflater, operating on the complete packed entry.
*/

const (
	d64MaxBits   = 15
	d64MaxLCodes = 286
	d64MaxDCodes = 32
	d64FixLCodes = 288
)

var (
	d64LengthBase = [29]int{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
		35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 3}
	d64LengthExtra = [29]uint{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 16}
	d64DistBase = [32]int{
		1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
		257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289,
		16385, 24577, 32769, 49153}
	d64DistExtra = [32]uint{
		0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
		7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13, 14, 14}
	d64CodeOrder = [19]int{
		16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}
)

var errD64Truncated = errors.New("deflate64 stream truncated")

// huffman is a canonical code given by the number of codes per length, and
// the symbols ordered by code.
type huffman struct {
	count  [d64MaxBits + 1]int
	symbol []int
}

// build sets up the code for the given code lengths. Incomplete codes are
// accepted, running into an unused code fails at decode time.
func (h *huffman) build(lengths []int) error {

	h.count = [d64MaxBits + 1]int{}
	for _, l := range lengths {
		h.count[l]++
	}
	if h.count[0] == len(lengths) {
		h.symbol = nil
		return nil
	}

	left := 1
	for l := 1; l <= d64MaxBits; l++ {
		left <<= 1
		left -= h.count[l]
		if left < 0 {
			return fmt.Errorf("over-subscribed Huffman code")
		}
	}

	var offs [d64MaxBits + 1]int
	for l := 1; l < d64MaxBits; l++ {
		offs[l+1] = offs[l] + h.count[l]
	}

	h.symbol = make([]int, len(lengths))
	for sym, l := range lengths {
		if l != 0 {
			h.symbol[offs[l]] = sym
			offs[l]++
		}
	}

	return nil
}

type inflater64 struct {
	in     []byte
	pos    int
	bitbuf uint32
	bitcnt uint
	out    []byte
	limit  int
}

// inflate64 decodes a complete Deflate64 stream. Output beyond limit bytes is
// an error.
func inflate64(r io.Reader, limit int64) ([]byte, error) {

	in, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	s := &inflater64{in: in, limit: int(limit), out: make([]byte, 0, limit)}

	for {
		last, err := s.bits(1)
		if err != nil {
			return nil, err
		}
		typ, err := s.bits(2)
		if err != nil {
			return nil, err
		}

		switch typ {
		case 0:
			err = s.stored()
		case 1:
			err = s.fixed()
		case 2:
			err = s.dynamic()
		default:
			err = fmt.Errorf("invalid deflate64 block type")
		}

		if err != nil {
			return nil, err
		}
		if last == 1 {
			return s.out, nil
		}
	}
}

// bits takes need bits from the input, least significant bit first.
func (s *inflater64) bits(need uint) (int, error) {
	val := s.bitbuf
	for s.bitcnt < need {
		if s.pos >= len(s.in) {
			return 0, errD64Truncated
		}
		val |= uint32(s.in[s.pos]) << s.bitcnt
		s.pos++
		s.bitcnt += 8
	}
	s.bitbuf = val >> need
	s.bitcnt -= need
	return int(val & (1<<need - 1)), nil
}

//
func (s *inflater64) decode(h *huffman) (int, error) {

	code, first, index := 0, 0, 0

	for l := 1; l <= d64MaxBits; l++ {
		b, err := s.bits(1)
		if err != nil {
			return 0, err
		}
		code |= b
		count := h.count[l]
		if code-count < first {
			return h.symbol[index+code-first], nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}

	return 0, fmt.Errorf("invalid Huffman code")
}

//
func (s *inflater64) stored() error {

	s.bitbuf, s.bitcnt = 0, 0

	if s.pos+4 > len(s.in) {
		return errD64Truncated
	}
	n := int(s.in[s.pos]) | int(s.in[s.pos+1])<<8
	cmp := int(s.in[s.pos+2]) | int(s.in[s.pos+3])<<8
	s.pos += 4

	if n != ^cmp&0xffff {
		return fmt.Errorf("stored block length check failed")
	}
	if s.pos+n > len(s.in) {
		return errD64Truncated
	}
	if len(s.out)+n > s.limit {
		return fmt.Errorf("deflate64 output exceeds %d bytes", s.limit)
	}

	s.out = append(s.out, s.in[s.pos:s.pos+n]...)
	s.pos += n
	return nil
}

//
func (s *inflater64) fixed() error {

	var lengths [d64FixLCodes]int
	for sym := range lengths {
		switch {
		case sym < 144:
			lengths[sym] = 8
		case sym < 256:
			lengths[sym] = 9
		case sym < 280:
			lengths[sym] = 7
		default:
			lengths[sym] = 8
		}
	}

	var lit, dist huffman
	if err := lit.build(lengths[:]); err != nil {
		return err
	}

	var dlengths [d64MaxDCodes]int
	for sym := range dlengths {
		dlengths[sym] = 5
	}
	if err := dist.build(dlengths[:]); err != nil {
		return err
	}

	return s.codes(&lit, &dist)
}

//
func (s *inflater64) dynamic() error {

	nlen, err := s.bits(5)
	if err != nil {
		return err
	}
	nlen += 257

	ndist, err := s.bits(5)
	if err != nil {
		return err
	}
	ndist++

	ncode, err := s.bits(4)
	if err != nil {
		return err
	}
	ncode += 4

	if nlen > d64MaxLCodes || ndist > d64MaxDCodes {
		return fmt.Errorf("bad dynamic block code counts")
	}

	var lengths [d64MaxLCodes + d64MaxDCodes]int
	for ix := 0; ix < ncode; ix++ {
		if lengths[d64CodeOrder[ix]], err = s.bits(3); err != nil {
			return err
		}
	}

	var lencode huffman
	if err := lencode.build(lengths[:19]); err != nil {
		return err
	}

	for ix := 0; ix < nlen+ndist; {

		sym, err := s.decode(&lencode)
		if err != nil {
			return err
		}

		if sym < 16 {
			lengths[ix] = sym
			ix++
			continue
		}

		val, rep := 0, 0
		switch sym {
		case 16:
			if ix == 0 {
				return fmt.Errorf("repeat with no previous length")
			}
			val = lengths[ix-1]
			rep, err = s.bits(2)
			rep += 3
		case 17:
			rep, err = s.bits(3)
			rep += 3
		default:
			rep, err = s.bits(7)
			rep += 11
		}
		if err != nil {
			return err
		}

		if ix+rep > nlen+ndist {
			return fmt.Errorf("too many code lengths")
		}
		for ; rep > 0; rep-- {
			lengths[ix] = val
			ix++
		}
	}

	if lengths[256] == 0 {
		return fmt.Errorf("no end-of-block code")
	}

	var lit, dist huffman
	if err := lit.build(lengths[:nlen]); err != nil {
		return err
	}
	if err := dist.build(lengths[nlen : nlen+ndist]); err != nil {
		return err
	}

	return s.codes(&lit, &dist)
}

// codes decodes literals and matches up to the end-of-block code.
func (s *inflater64) codes(lit, dist *huffman) error {

	for {
		sym, err := s.decode(lit)
		if err != nil {
			return err
		}

		if sym < 256 {
			if len(s.out) >= s.limit {
				return fmt.Errorf("deflate64 output exceeds %d bytes", s.limit)
			}
			s.out = append(s.out, byte(sym))
			continue
		}

		if sym == 256 {
			return nil
		}

		sym -= 257
		if sym >= len(d64LengthBase) {
			return fmt.Errorf("invalid length code")
		}
		extra, err := s.bits(d64LengthExtra[sym])
		if err != nil {
			return err
		}
		length := d64LengthBase[sym] + extra

		dsym, err := s.decode(dist)
		if err != nil {
			return err
		}
		if dsym >= len(d64DistBase) {
			return fmt.Errorf("invalid distance code")
		}
		if extra, err = s.bits(d64DistExtra[dsym]); err != nil {
			return err
		}
		distance := d64DistBase[dsym] + extra

		if distance > len(s.out) {
			return fmt.Errorf("distance %d too far back", distance)
		}
		if len(s.out)+length > s.limit {
			return fmt.Errorf("deflate64 output exceeds %d bytes", s.limit)
		}

		from := len(s.out) - distance
		for ix := 0; ix < length; ix++ {
			s.out = append(s.out, s.out[from+ix])
		}
	}
}
