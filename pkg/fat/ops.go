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

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// List returns the entries of the directory at p, without dot entries and
// volume labels.
func (v *Volume) List(p string) ([]*base.DirectoryEntry, error) {

	v.mu.RLock()
	defer v.mu.RUnlock()

	d, err := v.resolveDir("list", p)
	if err != nil {
		return nil, err
	}

	entries, err := v.readDir(d)
	if err != nil {
		return nil, base.Wrap(base.KindFormat, "list", p, err)
	}

	ret := []*base.DirectoryEntry{}
	for _, e := range entries {
		if e.isDot() || e.attr&attrVolumeID != 0 {
			continue
		}
		ret = append(ret, e.toDirectoryEntry())
	}

	return ret, nil
}

// Walk calls fn for every entry below the directory at p, depth first. Walks
// descending into directories deeper than the configured maximum fail, as that
// indicates a loop in the directory structure.
func (v *Volume) Walk(p string, fn func(path string, e *base.DirectoryEntry) error) error {

	v.mu.RLock()
	defer v.mu.RUnlock()

	parts, err := v.splitPath("walk", p)
	if err != nil {
		return err
	}

	d, err := v.resolveDir("walk", p)
	if err != nil {
		return err
	}

	return v.walk(path.Clean("/"+p), d, len(parts), fn)
}

//
func (v *Volume) walk(p string, d dir, depth int,
	fn func(path string, e *base.DirectoryEntry) error) error {

	if depth > v.maxDepth {
		return base.Errorf(base.KindFormat, "walk", p,
			"directory nesting exceeds maximum depth of %d", v.maxDepth)
	}

	entries, err := v.readDir(d)
	if err != nil {
		return base.Wrap(base.KindFormat, "walk", p, err)
	}

	for _, e := range entries {
		if e.isDot() || e.attr&attrVolumeID != 0 {
			continue
		}
		child := path.Join(p, e.name())
		if err := fn(child, e.toDirectoryEntry()); err != nil {
			return err
		}
		if e.isDir() {
			if err := v.walk(child, e.asDir(), depth+1, fn); err != nil {
				return err
			}
		}
	}

	return nil
}

// ReadFile returns the contents of the file at p.
func (v *Volume) ReadFile(p string) ([]byte, error) {

	v.mu.RLock()
	defer v.mu.RUnlock()

	e, err := v.resolve("read", p)
	if err != nil {
		return nil, err
	}
	if e == nil || e.isDir() {
		return nil, base.Errorf(base.KindInvalidPath, "read", p, "is a directory")
	}

	ret, err := v.content(e)
	if err != nil {
		return nil, base.Wrap(base.KindFormat, "read", p, err)
	}
	return ret, nil
}

// content reads the data of a file entry.
func (v *Volume) content(e *dirEntry) ([]byte, error) {

	ret := make([]byte, e.size)
	if e.size == 0 {
		return ret, nil
	}

	clusters, err := v.chain(e.cluster)
	if err != nil {
		return nil, err
	}

	if need := v.clustersFor(e.size); need > len(clusters) {
		return nil, base.Errorf(base.KindFormat, "read", e.name(),
			"file of %d bytes needs %d clusters, chain has %d",
			e.size, need, len(clusters))
	}

	pos := 0
	for _, c := range clusters {
		if pos >= e.size {
			break
		}
		off := v.clusterOffset(c)
		pos += copy(ret[pos:], v.data[off:off+v.clusterSize])
	}

	return ret, nil
}

//
func (v *Volume) clustersFor(size int) int {
	return (size + v.clusterSize - 1) / v.clusterSize
}

// WriteFile replaces the contents of the file at p, creating it if it does not
// exist yet. The parent directory has to exist.
func (v *Volume) WriteFile(p string, data []byte) error {

	return v.mutate("write", p, func() error {

		parent, name, err := v.resolveParent("write", p)
		if err != nil {
			return err
		}

		e, err := v.lookup(parent, name)
		if err != nil {
			return err
		}

		var sn shortName
		if e == nil {
			if sn, err = encodeShortName(name); err != nil {
				return err
			}
		} else if e.isDir() {
			return base.Errorf(base.KindInvalidPath, "write", p, "is a directory")
		}

		need := v.clustersFor(len(data))
		if need > 0 && v.inconsistent {
			return base.Errorf(base.KindFormat, "write", p,
				"free cluster count inconsistent, refusing to allocate")
		}

		var old []uint32
		if e != nil && e.cluster != 0 {
			if old, err = v.chain(e.cluster); err != nil {
				return err
			}
		}

		if free := v.countFree() + len(old); need > free {
			return base.Errorf(base.KindNoSpace, "write", p,
				"need %d clusters, %d available", need, free)
		}

		v.release(old)

		clusters, err := v.allocate(need)
		if err != nil {
			return err
		}

		for ix, c := range clusters {
			start := ix * v.clusterSize
			end := start + v.clusterSize
			if end > len(data) {
				end = len(data)
			}
			v.write(v.clusterOffset(c), data[start:end])
		}

		var first uint32
		if len(clusters) > 0 {
			first = clusters[0]
		}

		if e == nil {
			_, err = v.addEntry(parent, sn, attrArchive, first, len(data))
			return err
		}

		v.setContent(e, first, len(data))
		return nil
	})
}

// CreateFile creates an empty file at p.
func (v *Volume) CreateFile(p string) error {

	return v.mutate("create", p, func() error {

		parent, name, err := v.resolveParent("create", p)
		if err != nil {
			return err
		}

		if e, err := v.lookup(parent, name); err != nil {
			return err
		} else if e != nil {
			return base.Errorf(base.KindExists, "create", p, "already exists")
		}

		sn, err := encodeShortName(name)
		if err != nil {
			return err
		}

		_, err = v.addEntry(parent, sn, attrArchive, 0, 0)
		return err
	})
}

// DeleteFile removes the file or empty directory at p.
func (v *Volume) DeleteFile(p string) error {

	return v.mutate("delete", p, func() error {

		e, err := v.resolve("delete", p)
		if err != nil {
			return err
		}
		if e == nil {
			return base.Errorf(base.KindInvalidPath, "delete", p,
				"cannot delete root directory")
		}

		if e.isDir() {
			children, err := v.readDir(e.asDir())
			if err != nil {
				return err
			}
			for _, c := range children {
				if !c.isDot() {
					return base.Errorf(base.KindNotEmpty, "delete", p,
						"directory not empty")
				}
			}
		}

		if e.cluster != 0 {
			clusters, err := v.chain(e.cluster)
			if err != nil {
				return err
			}
			v.release(clusters)
		}

		v.removeEntry(e)
		return nil
	})
}

// Mkdir creates a directory at p. The parent has to exist.
func (v *Volume) Mkdir(p string) error {

	return v.mutate("mkdir", p, func() error {

		parent, name, err := v.resolveParent("mkdir", p)
		if err != nil {
			return err
		}

		if e, err := v.lookup(parent, name); err != nil {
			return err
		} else if e != nil {
			return base.Errorf(base.KindExists, "mkdir", p, "already exists")
		}

		sn, err := encodeShortName(name)
		if err != nil {
			return err
		}

		clusters, err := v.allocate(1)
		if err != nil {
			return err
		}
		c := clusters[0]

		d := dir{cluster: c}
		if _, err := v.addEntry(d, dotName("."), attrDirectory, c, 0); err != nil {
			return err
		}
		if _, err := v.addEntry(d, dotName(".."), attrDirectory,
			v.dirCluster(parent), 0); err != nil {
			return err
		}

		_, err = v.addEntry(parent, sn, attrDirectory, c, 0)
		return err
	})
}

//
func dotName(n string) shortName {
	var ret shortName
	for ix := range ret {
		ret[ix] = ' '
	}
	copy(ret[:], n)
	return ret
}
