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

package fusefs

import (
	"path"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// node is an entry of the exported tree.
type node struct {
	name     string
	path     string
	size     int
	dir      bool
	children []*node
}

// scan reads the directory tree of fsys, down to maxDepth levels. Directories
// that cannot be listed are exported empty.
func scan(fsys base.FileSystem, maxDepth int) *node {
	root := &node{name: "", path: "/", dir: true}
	scanDir(fsys, root, 0, maxDepth)
	return root
}

//
func scanDir(fsys base.FileSystem, dir *node, depth, maxDepth int) {

	if depth >= maxDepth {
		log.WithField("path", dir.path).Warn("directory too deep, not exported")
		return
	}

	entries, err := fsys.List(dir.path)
	if err != nil {
		log.WithField("path", dir.path).Errorf("cannot list directory: %v", err)
		return
	}

	for _, e := range entries {
		n := &node{
			name: e.Name(),
			path: path.Join(dir.path, e.Name()),
			size: e.Size(),
			dir:  e.IsDir(),
		}
		if n.dir {
			scanDir(fsys, n, depth+1, maxDepth)
		}
		dir.children = append(dir.children, n)
	}
}
