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

	"github.com/bodgit/sevenzip"
)

type sevenZipReader struct {
	zr    *sevenzip.Reader
	files map[string]*sevenzip.File
}

//
func new7zReader(data []byte) (*sevenZipReader, error) {
	zr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &sevenZipReader{zr: zr, files: map[string]*sevenzip.File{}}, nil
}

//
func (r *sevenZipReader) entries() ([]*Entry, error) {

	var ret []*Entry

	for _, f := range r.zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if _, dup := r.files[f.Name]; !dup {
			r.files[f.Name] = f
		}
		ret = append(ret, &Entry{
			Name:  f.Name,
			Size:  int64(f.UncompressedSize),
			Codec: Codec7z,
		})
	}

	return ret, nil
}

//
func (r *sevenZipReader) open(e *Entry) (io.ReadCloser, error) {
	f, ok := r.files[e.Name]
	if !ok {
		return nil, fmt.Errorf("entry '%s' vanished", e.Name)
	}
	return f.Open()
}
