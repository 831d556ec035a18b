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
	"path"
	"strings"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

var imageTypes = map[string]bool{
	"img": true,
	"ima": true,
	"dsk": true,
	"vfd": true,
	"flp": true,
	"bin": true,
	"vhd": true,
	"hdd": true,
	"hdf": true,
	"scp": true,
	"hfe": true,
	"mfm": true,
	"86f": true,
	"pri": true,
	"pfi": true,
}

var compressors = map[string]Container{
	"gz":   ContainerGzip,
	"gzip": ContainerGzip,
	"zip":  ContainerZip,
	"imz":  ContainerZip,
	"7z":   Container7z,
	"rar":  ContainerRar,
}

// SplitNameTypeCompressor splits a file name into its base name, the image
// type suggested by its extension, and the suggested compressor. Type and
// compressor are hints only, the contents decide.
func SplitNameTypeCompressor(file string) (name, typ, compressor string) {

	n := path.Base(strings.ReplaceAll(file, "\\", "/"))

	for {
		ext := path.Ext(n)
		if ext == "" || ext == n {
			name = n
			break
		}

		lower := strings.ToLower(strings.TrimPrefix(ext, "."))

		if _, ok := compressors[lower]; ok && compressor == "" {
			compressor = lower
		} else if imageTypes[lower] && typ == "" {
			typ = lower
		} else {
			name = n
			break
		}
		n = strings.TrimSuffix(n, ext)
	}

	return name, typ, compressor
}

//
func isImageName(name string) bool {
	_, typ, _ := SplitNameTypeCompressor(name)
	return typ != ""
}

// IsMediaName reports whether a file name suggests an image or an archive
// that may contain one.
func IsMediaName(name string) bool {
	_, typ, comp := SplitNameTypeCompressor(name)
	return typ != "" || comp != ""
}

// FirstImage picks the entry to mount when the source names none: the first
// entry with a known image extension, or else the only entry.
func FirstImage(ix *Index) (string, error) {

	entries := ix.Entries()

	for _, e := range entries {
		if isImageName(e.Name) {
			return e.Name, nil
		}
	}

	switch len(entries) {
	case 0:
		return "", base.Errorf(base.KindArchive, "select", "", "archive is empty")
	case 1:
		return entries[0].Name, nil
	}

	return "", base.Errorf(base.KindFormat, "select", "",
		"ambiguous archive, %d entries and none looks like a disk image",
		len(entries))
}
