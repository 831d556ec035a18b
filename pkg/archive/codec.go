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
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Codec names a decompression method, or a container whose codecs are handled
// internally by its reader.
type Codec string

const (
	CodecStore     Codec = "store"
	CodecDeflate   Codec = "deflate"
	CodecDeflate64 Codec = "deflate64"
	CodecBzip2     Codec = "bzip2"
	CodecLZMA      Codec = "lzma"
	CodecZstd      Codec = "zstd"
	CodecXZ        Codec = "xz"
	Codec7z        Codec = "7z"
	CodecRar       Codec = "rar"
)

// zip compression method identifiers
const (
	methodStore     = 0
	methodDeflate   = 8
	methodDeflate64 = 9
	methodBzip2     = 12
	methodLZMA      = 14
	methodZstd      = 93
	methodXZ        = 95
)

//
func codecForMethod(m uint16) Codec {
	switch m {
	case methodStore:
		return CodecStore
	case methodDeflate:
		return CodecDeflate
	case methodDeflate64:
		return CodecDeflate64
	case methodBzip2:
		return CodecBzip2
	case methodLZMA:
		return CodecLZMA
	case methodZstd:
		return CodecZstd
	case methodXZ:
		return CodecXZ
	}
	return Codec("method-" + strconv.Itoa(int(m)))
}

// Capabilities is the set of codecs a build target can decode. The set for a
// target is fixed at build time, configuration can only narrow it.
type Capabilities map[Codec]bool

// DefaultCapabilities returns a fresh copy of the build target's codec set.
func DefaultCapabilities() Capabilities {
	ret := Capabilities{}
	for _, c := range platformCodecs {
		ret[c] = true
	}
	return ret
}

//
func (c Capabilities) Has(codec Codec) bool {
	return c[codec]
}

// Narrow intersects the capabilities with the codecs named in names. Names the
// build target cannot decode are dropped with a warning. An empty list leaves
// the set as is.
func (c Capabilities) Narrow(names []string) Capabilities {

	if len(names) == 0 {
		return c
	}

	ret := Capabilities{}
	for _, n := range names {
		codec := Codec(strings.ToLower(strings.TrimSpace(n)))
		if c.Has(codec) {
			ret[codec] = true
		} else {
			log.WithField("codec", codec).Warn(
				"codec not available on this build target, ignoring")
		}
	}
	return ret
}

//
func (c Capabilities) List() []string {
	var ret []string
	for k, v := range c {
		if v {
			ret = append(ret, string(k))
		}
	}
	sort.Strings(ret)
	return ret
}
