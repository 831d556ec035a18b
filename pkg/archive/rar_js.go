//go:build js && wasm

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
	"fmt"
	"io"
)

type rarReader struct{}

//
func newRarReader(data []byte) (*rarReader, error) {
	return nil, fmt.Errorf("rar archives not supported on this target")
}

//
func (r *rarReader) entries() ([]*Entry, error) {
	return nil, nil
}

//
func (r *rarReader) open(e *Entry) (io.ReadCloser, error) {
	return nil, fmt.Errorf("rar archives not supported on this target")
}
