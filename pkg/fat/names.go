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
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

const (
	nameLen = 8
	extLen  = 3
)

// characters not allowed in short names, in addition to control characters
const reservedChars = "\"*+,/:;<=>?[\\]| ."

// shortName is the 11 byte, space padded on-disk form of an 8.3 name.
type shortName [nameLen + extLen]byte

// encodeShortName turns a user supplied name into its on-disk 8.3 form. Names
// are upper-cased, and have to be representable in CP437.
func encodeShortName(name string) (shortName, error) {

	var ret shortName

	if name == "" || name == "." || name == ".." {
		return ret, base.Errorf(base.KindInvalidPath, "name", name, "invalid name")
	}

	stem, ext := name, ""
	if ix := strings.LastIndex(name, "."); ix >= 0 {
		stem, ext = name[:ix], name[ix+1:]
	}

	enc := charmap.CodePage437.NewEncoder()

	bStem, err := enc.Bytes([]byte(strings.ToUpper(stem)))
	if err != nil {
		return ret, base.NewError(base.KindInvalidPath, "name", name, err)
	}
	bExt, err := enc.Bytes([]byte(strings.ToUpper(ext)))
	if err != nil {
		return ret, base.NewError(base.KindInvalidPath, "name", name, err)
	}

	if len(bStem) == 0 || len(bStem) > nameLen || len(bExt) > extLen {
		return ret, base.Errorf(base.KindInvalidPath, "name", name,
			"not a valid 8.3 name")
	}

	for _, c := range append(bStem, bExt...) {
		if c < 0x20 || c == 0x7f || strings.IndexByte(reservedChars, c) >= 0 {
			return ret, base.Errorf(base.KindInvalidPath, "name", name,
				"invalid character 0x%02x", c)
		}
	}

	copy(ret[:], bytes.Repeat([]byte{' '}, len(ret)))
	copy(ret[:nameLen], bStem)
	copy(ret[nameLen:], bExt)

	if ret[0] == 0xe5 {
		ret[0] = 0x05
	}

	return ret, nil
}

// decodeShortName renders an on-disk 8.3 name for display. The lower case
// flags in the reserved byte are honoured.
func decodeShortName(raw []byte, ntRes byte) string {

	b := make([]byte, len(raw))
	copy(b, raw)
	if b[0] == 0x05 {
		b[0] = 0xe5
	}

	stem := decodeCP437(bytes.TrimRight(b[:nameLen], " "))
	ext := decodeCP437(bytes.TrimRight(b[nameLen:nameLen+extLen], " "))

	if ntRes&0x08 != 0 {
		stem = strings.ToLower(stem)
	}
	if ntRes&0x10 != 0 {
		ext = strings.ToLower(ext)
	}

	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

//
func decodeCP437(b []byte) string {
	if s, err := charmap.CodePage437.NewDecoder().Bytes(b); err == nil {
		return string(s)
	}
	return string(b)
}

// shortNameChecksum is the checksum long name entries carry for their short
// name entry.
func shortNameChecksum(raw []byte) byte {
	var sum byte
	for _, c := range raw[:nameLen+extLen] {
		sum = (sum&1)<<7 + sum>>1 + c
	}
	return sum
}

// encodeLabel turns a volume label into its 11 byte form. Labels follow the
// short name rules, except that spaces are allowed and there is no extension.
func encodeLabel(label string) (shortName, error) {

	var ret shortName
	copy(ret[:], bytes.Repeat([]byte{' '}, len(ret)))

	b, err := charmap.CodePage437.NewEncoder().Bytes([]byte(strings.ToUpper(label)))
	if err != nil {
		return ret, base.NewError(base.KindInvalidPath, "label", label, err)
	}
	if len(b) > len(ret) {
		return ret, base.Errorf(base.KindInvalidPath, "label", label, "label too long")
	}
	for _, c := range b {
		if c < 0x20 || c == 0x7f || (c != ' ' && strings.IndexByte(reservedChars, c) >= 0) {
			return ret, base.Errorf(base.KindInvalidPath, "label", label,
				"invalid character 0x%02x", c)
		}
	}

	copy(ret[:], b)
	return ret, nil
}
