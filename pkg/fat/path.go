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
	"path"
	"strings"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// characters neither short nor long names can hold, besides the separators
const pathReserved = "\"*:<>?|"

// splitPath cleans p and splits it into its components. The leading slash is
// optional, backslashes are accepted as separators. Components with characters
// that cannot occur in any name are rejected.
func (v *Volume) splitPath(op, p string) ([]string, error) {

	clean := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	if clean == "/" {
		return nil, nil
	}

	parts := strings.Split(clean[1:], "/")
	if len(parts) > v.maxDepth {
		return nil, base.Errorf(base.KindInvalidPath, op, p,
			"path exceeds maximum depth of %d", v.maxDepth)
	}

	for _, part := range parts {
		for _, c := range part {
			if c < 0x20 || c == 0x7f || strings.ContainsRune(pathReserved, c) {
				return nil, base.Errorf(base.KindInvalidPath, op, p,
					"invalid character %q in '%s'", c, part)
			}
		}
	}

	return parts, nil
}

// resolve returns the entry at p, and nil for the root directory.
func (v *Volume) resolve(op, p string) (*dirEntry, error) {

	parts, err := v.splitPath(op, p)
	if err != nil {
		return nil, err
	}

	d := v.rootDir()
	var e *dirEntry

	for ix, name := range parts {
		if e, err = v.lookup(d, name); err != nil {
			return nil, base.Wrap(base.KindFormat, op, p, err)
		}
		if e == nil {
			return nil, base.Errorf(base.KindNotFound, op, p,
				"'%s' not found", name)
		}
		if ix < len(parts)-1 {
			if !e.isDir() {
				return nil, base.Errorf(base.KindInvalidPath, op, p,
					"'%s' is not a directory", name)
			}
			d = e.asDir()
		}
	}

	return e, nil
}

// resolveDir returns the directory at p.
func (v *Volume) resolveDir(op, p string) (dir, error) {
	e, err := v.resolve(op, p)
	if err != nil {
		return dir{}, err
	}
	if e == nil {
		return v.rootDir(), nil
	}
	if !e.isDir() {
		return dir{}, base.Errorf(base.KindInvalidPath, op, p, "not a directory")
	}
	return e.asDir(), nil
}

// resolveParent returns the directory containing p, and the last component
// of p.
func (v *Volume) resolveParent(op, p string) (dir, string, error) {

	parts, err := v.splitPath(op, p)
	if err != nil {
		return dir{}, "", err
	}
	if len(parts) == 0 {
		return dir{}, "", base.Errorf(base.KindInvalidPath, op, p,
			"root directory not allowed")
	}

	d, err := v.resolveDir(op, strings.Join(parts[:len(parts)-1], "/"))
	if err != nil {
		return dir{}, "", err
	}

	return d, parts[len(parts)-1], nil
}

// dirCluster gives the cluster number by which entries refer to d, 0 for the
// root directory.
func (v *Volume) dirCluster(d dir) uint32 {
	if d.root || (v.fatType == FAT32 && d.cluster == v.rootCluster) {
		return 0
	}
	return d.cluster
}
