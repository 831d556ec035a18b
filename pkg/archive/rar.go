//go:build !(js && wasm)

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
	"fmt"
	"io"

	"github.com/javi11/rardecode/v2"
)

type rarReader struct {
	data []byte
}

//
func newRarReader(data []byte) (*rarReader, error) {
	return &rarReader{data: data}, nil
}

//
func (r *rarReader) entries() ([]*Entry, error) {

	rr, err := rardecode.NewReader(bytes.NewReader(r.data))
	if err != nil {
		return nil, err
	}

	var ret []*Entry
	for {
		h, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if h.IsDir {
			continue
		}
		ret = append(ret, &Entry{
			Name:           h.Name,
			CompressedSize: h.PackedSize,
			Size:           h.UnPackedSize,
			Codec:          CodecRar,
		})
	}

	return ret, nil
}

// open scans the archive up to the wanted entry, rar being a sequential
// format.
func (r *rarReader) open(e *Entry) (io.ReadCloser, error) {

	rr, err := rardecode.NewReader(bytes.NewReader(r.data))
	if err != nil {
		return nil, err
	}

	for {
		h, err := rr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("entry '%s' vanished", e.Name)
		}
		if err != nil {
			return nil, err
		}
		if h.Name == e.Name && !h.IsDir {
			return io.NopCloser(rr), nil
		}
	}
}
