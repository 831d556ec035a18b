//go:build linux || darwin

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
	"context"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// Root is the root of a read-only FUSE export of a mounted file system.
type Root struct {
	fs.Inode
	fsys base.FileSystem
	tree *node
}

var _ = (fs.NodeOnAdder)((*Root)(nil))

// NewRoot creates the export root for fsys. The tree is read once, changes
// made to the medium afterwards are not reflected.
func NewRoot(fsys base.FileSystem, maxDepth int) *Root {
	return &Root{fsys: fsys, tree: scan(fsys, maxDepth)}
}

//
func (r *Root) OnAdd(ctx context.Context) {
	ino := uint64(2)
	r.add(ctx, &r.Inode, r.tree, &ino)
}

//
func (r *Root) add(ctx context.Context, parent *fs.Inode, dir *node, ino *uint64) {

	for _, n := range dir.children {

		*ino++
		var child *fs.Inode

		if n.dir {
			child = parent.NewPersistentInode(ctx, &fs.Inode{},
				fs.StableAttr{Mode: fuse.S_IFDIR, Ino: *ino})
			r.add(ctx, child, n, ino)

		} else {
			child = parent.NewPersistentInode(ctx,
				&file{fsys: r.fsys, path: n.path, size: n.size},
				fs.StableAttr{Mode: fuse.S_IFREG, Ino: *ino})
		}

		parent.AddChild(n.name, child, true)
	}
}

//
type file struct {
	fs.Inode
	fsys base.FileSystem
	path string
	size int
	//
	once    sync.Once
	content []byte
	err     error
}

var _ = (fs.FileReader)((*file)(nil))
var _ = (fs.NodeOpener)((*file)(nil))
var _ = (fs.NodeGetattrer)((*file)(nil))

//
func (f *file) Open(ctx context.Context, openFlags uint32) (fs.FileHandle,
	uint32, syscall.Errno) {
	if openFlags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	return f, fuse.FOPEN_KEEP_CACHE, 0
}

//
func (f *file) Getattr(ctx context.Context, fh fs.FileHandle,
	out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0o444
	out.Size = uint64(f.size)
	return 0
}

//
func (f *file) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult,
	syscall.Errno) {

	f.once.Do(func() {
		f.content, f.err = f.fsys.ReadFile(f.path)
	})

	if f.err != nil {
		log.WithField("path", f.path).Errorf("cannot read file: %v", f.err)
		return nil, syscall.EIO
	}

	if off >= int64(len(f.content)) {
		return fuse.ReadResultData(nil), 0
	}

	end := off + int64(len(dest))
	if end > int64(len(f.content)) {
		end = int64(len(f.content))
	}

	return fuse.ReadResultData(f.content[off:end]), 0
}

// Mount exports fsys read-only at mountpoint. The returned server needs to be
// unmounted by the caller.
func Mount(mountpoint string, fsys base.FileSystem, maxDepth int,
	debug bool) (*fuse.Server, error) {

	opts := &fs.Options{}
	opts.Debug = debug
	opts.FsName = "mediadrive"
	opts.Name = "fat"
	opts.Options = append(opts.Options, "ro")

	server, err := fs.Mount(mountpoint, NewRoot(fsys, maxDepth), opts)
	if err != nil {
		return nil, err
	}

	log.WithField("mountpoint", mountpoint).Info("file system exported")
	return server, nil
}
