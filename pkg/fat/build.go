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
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/xelalexv/mediadrive/pkg/format"
	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// BuildOptions describe a floppy to build from a directory tree.
type BuildOptions struct {
	// Geometry of the floppy; if nil, the smallest standard floppy the tree
	// fits on is used
	Geometry *format.Geometry
	Label    string
	MaxDepth int
}

/*
	Build creates a FAT floppy image holding the files and directories of tree.
	Host names that are not valid 8.3 names get an alias, like "LONGFI~1.TXT"
	for "long file name.txt". Entries other than regular files and
	directories are skipped.
*/
func Build(tree afero.Fs, opts BuildOptions) ([]byte, error) {

	candidates := format.Geometries()
	if opts.Geometry != nil {
		candidates = []*format.Geometry{opts.Geometry}
	}

	var err error

	for _, g := range candidates {
		var data []byte
		if data, err = buildOn(tree, g, opts); err == nil {
			return data, nil
		}
		if !errors.Is(err, base.ErrNoSpace) {
			return nil, err
		}
		log.WithField("geometry", g.Name).Debug("tree does not fit, trying next")
	}

	return nil, err
}

//
func buildOn(tree afero.Fs, g *format.Geometry, opts BuildOptions) ([]byte, error) {

	data, err := Format(FormatOptions{Geometry: g, Label: opts.Label})
	if err != nil {
		return nil, err
	}

	v, err := Mount(base.NewBuffer(data, nil), true, Options{MaxDepth: opts.MaxDepth})
	if err != nil {
		return nil, err
	}

	b := &builder{
		tree: tree,
		v:    v,
		dirs: map[string]string{"/": "/"},
		used: map[string]map[string]bool{},
	}
	if err := afero.Walk(tree, "/", b.add); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"geometry": g.Name,
		"files":    b.files,
		"dirs":     b.subdirs}).Info("floppy built from directory")

	return v.Snapshot(), nil
}

type builder struct {
	tree    afero.Fs
	v       *Volume
	dirs    map[string]string          // host directory to volume path
	used    map[string]map[string]bool // short names in use per volume directory
	files   int
	subdirs int
}

//
func (b *builder) add(p string, info os.FileInfo, err error) error {

	if err != nil {
		return base.Wrap(base.KindIo, "build", p, err)
	}

	p = path.Clean("/" + p)
	if p == "/" {
		return nil
	}

	parent, ok := b.dirs[path.Dir(p)]
	if !ok {
		return nil
	}

	mode := info.Mode()
	if !mode.IsDir() && !mode.IsRegular() {
		log.WithField("path", p).Warn("not a regular file, skipping")
		return nil
	}

	alias, err := b.alias(parent, path.Base(p))
	if err != nil {
		return err
	}
	target := path.Join(parent, alias)

	if mode.IsDir() {
		if err := b.v.Mkdir(target); err != nil {
			return err
		}
		b.dirs[p] = target
		b.subdirs++
		return nil
	}

	content, err := afero.ReadFile(b.tree, p)
	if err != nil {
		return base.Wrap(base.KindIo, "build", p, err)
	}
	if err := b.v.WriteFile(target, content); err != nil {
		return err
	}
	b.files++
	return nil
}

// alias picks a short name for host name in volume directory dir, unique
// within that directory.
func (b *builder) alias(dir, name string) (string, error) {

	used := b.used[dir]
	if used == nil {
		used = map[string]bool{}
		b.used[dir] = used
	}

	stem, ext, lossy := shortParts(name)
	candidate := stem
	if ext != "" {
		candidate += "." + ext
	}

	if !lossy && !used[candidate] {
		used[candidate] = true
		return candidate, nil
	}

	for n := 1; n < 1000000; n++ {
		tail := fmt.Sprintf("~%d", n)
		s := stem
		if len(s)+len(tail) > nameLen {
			s = s[:nameLen-len(tail)]
		}
		candidate = s + tail
		if ext != "" {
			candidate += "." + ext
		}
		if !used[candidate] {
			used[candidate] = true
			return candidate, nil
		}
	}

	return "", base.Errorf(base.KindNoSpace, "build", name,
		"no short name left in directory '%s'", dir)
}

// shortParts maps a host name onto the stem and extension of an 8.3 name,
// limited to printable ASCII. lossy is set if anything besides case got lost
// on the way.
func shortParts(name string) (stem, ext string, lossy bool) {

	upper := strings.ToUpper(name)
	s, e := upper, ""
	if ix := strings.LastIndex(upper, "."); ix > 0 {
		s, e = upper[:ix], upper[ix+1:]
	}

	clean := func(in string, limit int) string {
		var sb strings.Builder
		for _, r := range in {
			switch {
			case r == ' ' || r == '.':
				lossy = true
				continue
			case r < 0x20 || r >= 0x7f || strings.ContainsRune(reservedChars, r):
				lossy = true
				r = '_'
			}
			if sb.Len() == limit {
				lossy = true
				break
			}
			sb.WriteRune(r)
		}
		return sb.String()
	}

	stem = clean(s, nameLen)
	ext = clean(e, extLen)
	if stem == "" {
		stem = "_"
		lossy = true
	}
	return stem, ext, lossy
}
