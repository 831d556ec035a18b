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

package hostio

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// Native is the bridge for hosts with a file system. Local files are read
// and written through afero, remote images are fetched via HTTP, and browser
// storage keys are served from an optional store.
type Native struct {
	fs      afero.Fs
	http    *HTTPFetcher
	store   Store
	prints  *Fingerprints
	maxSize int64
}

//
func NewNative(cfg Config) *Native {
	cfg = cfg.withDefaults()
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	return &Native{
		fs:      cfg.Fs,
		http:    NewHTTPFetcher(cfg.HTTPTimeout, cfg.MaxSize),
		store:   cfg.Store,
		prints:  cfg.Fingerprints,
		maxSize: cfg.MaxSize,
	}
}

//
func (n *Native) Name() string {
	return "native"
}

//
func (n *Native) Fetch(ctx context.Context, src *base.Source) (*base.Buffer, error) {

	if err := canceled(ctx, "fetch", src); err != nil {
		return nil, err
	}

	var data []byte
	var err error

	switch src.Type() {

	case base.SourceLocalPath:
		data, err = n.readFile(src)

	case base.SourceRemoteURL:
		data, err = n.http.Fetch(ctx, src)

	case base.SourceStorage:
		if n.store == nil {
			return nil, base.Errorf(base.KindIo, "fetch", src.String(),
				"no browser storage available")
		}
		data, err = fetchStored(ctx, n.store, src, n.maxSize)

	case base.SourceDirectory:
		return nil, base.Errorf(base.KindInvalidPath, "fetch", src.String(),
			"directories are built into images, not fetched")

	default:
		return nil, base.Errorf(base.KindIo, "fetch", src.String(),
			"archive entries are fetched through their archive")
	}

	if err != nil {
		return nil, err
	}

	// a cancellation arriving during a local read still wins
	if err := canceled(ctx, "fetch", src); err != nil {
		return nil, err
	}

	buf := base.NewBuffer(data, src)

	log.WithFields(log.Fields{
		"source": src,
		"size":   buf.Len(),
		"bridge": n.Name()}).Debug("image fetched")

	return buf, nil
}

//
func (n *Native) readFile(src *base.Source) ([]byte, error) {

	path := src.Path()

	f, err := n.fs.Open(path)
	if err != nil {
		return nil, fsError("fetch", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fsError("fetch", path, err)
	}
	if info.IsDir() {
		return nil, base.Errorf(base.KindInvalidPath, "fetch", path, "is a directory")
	}
	if info.Size() > n.maxSize {
		return nil, base.Errorf(base.KindIo, "fetch", path,
			"image of %d bytes exceeds limit of %d", info.Size(), n.maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, n.maxSize+1))
	if err != nil {
		return nil, fsError("fetch", path, err)
	}
	if int64(len(data)) > n.maxSize {
		return nil, base.Errorf(base.KindIo, "fetch", path,
			"image exceeds limit of %d bytes", n.maxSize)
	}

	return data, nil
}

// Directory returns a read-only view of the host directory src points to.
func (n *Native) Directory(src *base.Source) (afero.Fs, error) {

	if src.Type() != base.SourceDirectory {
		return nil, base.Errorf(base.KindInvalidPath, "directory", src.String(),
			"not a directory source")
	}

	path := src.Path()
	info, err := n.fs.Stat(path)
	if err != nil {
		return nil, fsError("directory", path, err)
	}
	if !info.IsDir() {
		return nil, base.Errorf(base.KindInvalidPath, "directory", path,
			"not a directory")
	}

	return afero.NewReadOnlyFs(afero.NewBasePathFs(n.fs, path)), nil
}

//
func (n *Native) CanPersist(src *base.Source) bool {
	switch src.Type() {
	case base.SourceLocalPath:
		return true
	case base.SourceStorage:
		return n.store != nil
	}
	return false
}

//
func (n *Native) Persist(ctx context.Context, src *base.Source, data []byte,
	opts PersistOptions) error {

	if err := canceled(ctx, "persist", src); err != nil {
		return err
	}

	switch src.Type() {
	case base.SourceLocalPath:
	case base.SourceStorage:
		if n.store == nil {
			return base.Errorf(base.KindIo, "persist", src.String(),
				"no browser storage available")
		}
		return persistStored(ctx, n.store, n.prints, src, data, opts)
	default:
		return base.Errorf(base.KindReadOnlyMedium, "persist", src.String(),
			"%s sources cannot be written back", src.Type())
	}

	path := src.Path()

	return n.prints.Guard(src.Key(), func(known *base.Fingerprint) (base.Fingerprint, error) {

		if !opts.Force {
			current, err := afero.ReadFile(n.fs, path)
			exists := err == nil
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return base.Fingerprint{}, fsError("persist", path, err)
			}
			if err := checkConflict("persist", src, opts.expected(known),
				current, exists); err != nil {
				return base.Fingerprint{}, err
			}
		}

		if err := n.writeAtomic(path, data); err != nil {
			return base.Fingerprint{}, err
		}

		log.WithFields(log.Fields{
			"path":  path,
			"size":  len(data),
			"force": opts.Force}).Info("image persisted")

		return base.ComputeFingerprint(data), nil
	})
}

// writeAtomic writes data to a temporary file next to path, and renames it
// into place. The original file is either fully replaced or left alone.
func (n *Native) writeAtomic(path string, data []byte) error {

	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	mode := os.FileMode(0o644)
	if info, err := n.fs.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := afero.TempFile(n.fs, dir, "."+name+".tmp-")
	if err != nil {
		return fsError("persist", path, err)
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		if rmErr := n.fs.Remove(tmpName); rmErr != nil {
			log.Warnf("could not remove temporary file '%s': %v", tmpName, rmErr)
		}
		return fsError("persist", path, err)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := n.fs.Chmod(tmpName, mode); err != nil {
		log.Warnf("could not set mode on '%s': %v", tmpName, err)
	}
	if err := n.fs.Rename(tmpName, path); err != nil {
		if rmErr := n.fs.Remove(tmpName); rmErr != nil {
			log.Warnf("could not remove temporary file '%s': %v", tmpName, rmErr)
		}
		return fsError("persist", path, err)
	}

	return nil
}

// fsError maps file system errors to error kinds.
func fsError(op, path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return base.NewError(base.KindNotFound, op, path, err)
	case errors.Is(err, fs.ErrPermission):
		return base.NewError(base.KindReadOnlyMedium, op, path, err)
	}
	return base.NewError(base.KindIo, op, path, err)
}
