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

package base

import (
	"github.com/xelalexv/mediadrive/pkg/util"
)

// annotation keys used on directory entries
const (
	AnnotationShortName = "short-name"
	AnnotationReadOnly  = "read-only"
	AnnotationHidden    = "hidden"
	AnnotationSystem    = "system"
	AnnotationArchive   = "archive"
)

//
func NewDirectoryEntry(name string, size int, dir bool, ref uint32) *DirectoryEntry {
	return &DirectoryEntry{name: name, size: size, dir: dir, ref: ref}
}

// DirectoryEntry is a listing entry. It is only valid for the lifetime of the
// mounted medium it was listed from.
type DirectoryEntry struct {
	name string
	size int
	dir  bool
	ref  uint32
	util.Annotations
}

//
func (e *DirectoryEntry) Name() string {
	return e.name
}

//
func (e *DirectoryEntry) Size() int {
	return e.size
}

//
func (e *DirectoryEntry) IsDir() bool {
	return e.dir
}

// Ref is an opaque reference into the medium, e.g. the first cluster.
func (e *DirectoryEntry) Ref() uint32 {
	return e.ref
}

//
func NewFsStats(clusters, free, clusterSize int) *FsStats {
	return &FsStats{clusters: clusters, free: free, clusterSize: clusterSize}
}

//
type FsStats struct {
	clusters    int
	free        int
	clusterSize int
}

//
func (s *FsStats) Clusters() int {
	return s.clusters
}

//
func (s *FsStats) Free() int {
	return s.free
}

//
func (s *FsStats) ClusterSize() int {
	return s.clusterSize
}

//
func (s *FsStats) FreeBytes() int {
	return s.free * s.clusterSize
}
