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
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// gzipReader presents a gzip stream as an archive with a single entry. The
// entry is named by the gzip header, or else by the source name without its
// compressor extension.
type gzipReader struct {
	data  []byte
	entry *Entry
}

//
func newGzipReader(data []byte, origin *base.Source) (*gzipReader, error) {

	gzr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gzr.Close()

	if len(data) < 18 {
		return nil, fmt.Errorf("gzip stream too short")
	}

	name := gzr.Name
	if name == "" && origin != nil {
		name = origin.Name()
		if ext := strings.ToLower(pathExt(name)); ext == ".gz" || ext == ".gzip" {
			name = name[:len(name)-len(ext)]
		}
	}
	if name == "" {
		name = "image"
	}

	// ISIZE trailer holds the uncompressed size modulo 2^32
	size := int64(binary.LittleEndian.Uint32(data[len(data)-4:]))

	return &gzipReader{
		data: data,
		entry: &Entry{
			Name:           name,
			Offset:         0,
			CompressedSize: int64(len(data)),
			Size:           size,
			Codec:          CodecDeflate,
		},
	}, nil
}

//
func pathExt(name string) string {
	if ix := strings.LastIndex(name, "."); ix > 0 {
		return name[ix:]
	}
	return ""
}

//
func (r *gzipReader) entries() ([]*Entry, error) {
	return []*Entry{r.entry}, nil
}

//
func (r *gzipReader) open(e *Entry) (io.ReadCloser, error) {
	if e != r.entry {
		return nil, fmt.Errorf("entry '%s' vanished", e.Name)
	}
	return gzip.NewReader(bytes.NewReader(r.data))
}
