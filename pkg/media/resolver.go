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

package media

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/archive"
	"github.com/xelalexv/mediadrive/pkg/fat"
	"github.com/xelalexv/mediadrive/pkg/format"
	"github.com/xelalexv/mediadrive/pkg/hostio"
	"github.com/xelalexv/mediadrive/pkg/media/base"
	"github.com/xelalexv/mediadrive/pkg/sector"
)

// Options configure a resolver.
type Options struct {
	// Capabilities are the codecs available for unpacking; nil selects the
	// build target's defaults
	Capabilities archive.Capabilities
	// MaxSize caps fetched and extracted images
	MaxSize int64
	// MaxDepth bounds directory nesting on FAT volumes
	MaxDepth int
	// BaseDir replaces the base directory token in source paths
	BaseDir string
	// Watcher, if set, flags media stale when their host file changes
	Watcher *hostio.Watcher
	// Registry keeps track of writable mounts; nil selects the shared one
	Registry *Registry
	// BuildGeometry is the size of floppies built from directories; nil picks
	// the smallest one the directory fits on
	BuildGeometry *format.Geometry
}

// MountOptions tune a single resolution.
type MountOptions struct {
	Writable bool
}

// Resolver turns media sources into mounted media. Through its registry, it
// keeps a source from being mounted writable more than once.
type Resolver struct {
	bridge   hostio.Bridge
	opts     Options
	registry *Registry
}

//
func NewResolver(bridge hostio.Bridge, opts Options) *Resolver {
	if opts.Capabilities == nil {
		opts.Capabilities = archive.DefaultCapabilities()
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = hostio.DefaultMaxSize
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = fat.DefaultMaxDepth
	}
	if opts.Registry == nil {
		opts.Registry = SharedRegistry()
	}
	return &Resolver{bridge: bridge, opts: opts, registry: opts.Registry}
}

//
func (r *Resolver) Bridge() hostio.Bridge {
	return r.bridge
}

// Options returns the effective options, with defaults filled in.
func (r *Resolver) Options() Options {
	return r.opts
}

// ResolveString parses s as a source reference and resolves it.
func (r *Resolver) ResolveString(ctx context.Context, s string,
	mo MountOptions) (*Mounted, error) {
	src, err := base.ParseSource(s, r.opts.BaseDir)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, src, mo)
}

/*
	Resolve runs the pipeline for src: fetch, unpack if the image is inside an
	archive, classify, and mount with the matching adapter. The context only
	affects fetching. Images of unknown format are mounted without any
	capabilities.

	A writable mount claims the source before anything is fetched, so that of
	several concurrent writable attempts exactly one proceeds. The claim is
	released if resolution fails, or when the media are ejected.
*/
func (r *Resolver) Resolve(ctx context.Context, src *base.Source,
	mo MountOptions) (*Mounted, error) {

	m := &Mounted{
		id:       uuid.NewString(),
		src:      src,
		persist:  src,
		resolver: r,
		writable: mo.Writable,
	}
	m.enter(StateUnresolved, src.String())

	if mo.Writable {
		if err := r.registry.claim(src.Key(), m.id); err != nil {
			m.enter(StateFailed, err.Error())
			return nil, err
		}
		m.claimed = true
	}

	if err := r.resolve(ctx, m); err != nil {
		m.enter(StateFailed, err.Error())
		m.releaseClaim()
		return nil, err
	}

	return m, nil
}

//
func (r *Resolver) resolve(ctx context.Context, m *Mounted) error {

	src := m.src
	fetchSrc := src
	if src.IsArchiveEntry() {
		fetchSrc = src.Archive()
	}

	var buf *base.Buffer
	var err error

	if src.Type() == base.SourceDirectory {
		if buf, err = r.build(src); err != nil {
			return err
		}
	} else {
		if buf, err = r.bridge.Fetch(ctx, fetchSrc); err != nil {
			return base.Wrap(base.KindIo, "fetch", fetchSrc.String(), err)
		}
		fp := buf.Fingerprint()
		m.loaded.Store(&fp)
	}
	m.enter(StateFetched, fetchSrc.String())

	var res format.Result

	if src.IsArchiveEntry() {
		if buf, err = r.unpack(buf, src.Entry(), m); err != nil {
			return err
		}
		res = format.Identify(buf.Bytes())

	} else {
		res = format.Identify(buf.Bytes())
		if isArchiveCandidate(buf, res) {
			if buf, err = r.unpack(buf, "", m); err != nil {
				return err
			}
			// what came out of an archive cannot be written back in place
			m.persist = base.NewArchiveEntrySource(src, m.entry)
			res = format.Identify(buf.Bytes())
		}
	}

	if isArchiveCandidate(buf, res) {
		return base.Errorf(base.KindFormat, "unpack", src.String(),
			"nested archives are not supported")
	}

	m.res = res
	m.enter(StateClassified, res.Rule)

	m.size = buf.Len()

	switch res.Format {

	case base.FormatFatVolume:
		v, err := fat.Mount(buf, m.writable, fat.Options{MaxDepth: r.opts.MaxDepth})
		if err != nil {
			return err
		}
		m.image, m.fs, m.ranges = v, v, v

	case base.FormatRawSector, base.FormatFluxLevel:
		img, err := sector.Mount(buf, m.writable, res.Format)
		if err != nil {
			return err
		}
		m.image, m.ranges, m.sectors = img, img, img

	default:
		buf.Release()
		log.WithField("source", src).Warn("media present, but format not recognized")
	}

	r.watch(m, fetchSrc)
	m.enter(StateMounted, res.Format.String())

	return nil
}

// build creates a floppy image from the host directory src points to.
func (r *Resolver) build(src *base.Source) (*base.Buffer, error) {

	db, ok := r.bridge.(hostio.DirectoryBridge)
	if !ok {
		return nil, base.Errorf(base.KindIo, "build", src.String(),
			"%s bridge has no access to directories", r.bridge.Name())
	}

	tree, err := db.Directory(src)
	if err != nil {
		return nil, err
	}

	data, err := fat.Build(tree, fat.BuildOptions{
		Geometry: r.opts.BuildGeometry,
		MaxDepth: r.opts.MaxDepth,
	})
	if err != nil {
		return nil, err
	}

	return base.NewBuffer(data, src), nil
}

// isArchiveCandidate reports whether a buffer should go through the archive
// selector. Images that merely happen to have a floppy size are included.
func isArchiveCandidate(buf *base.Buffer, res format.Result) bool {
	switch res.Format {
	case base.FormatFatVolume, base.FormatFluxLevel:
		return false
	}
	return archive.IsArchive(buf.Bytes())
}

// unpack extracts entry from the archive in buf, or the first image if entry
// is empty.
func (r *Resolver) unpack(buf *base.Buffer, entry string,
	m *Mounted) (*base.Buffer, error) {

	ix, err := archive.Open(buf, r.opts.Capabilities, r.opts.MaxSize)
	if err != nil {
		return nil, err
	}

	if entry == "" {
		if entry, err = archive.FirstImage(ix); err != nil {
			return nil, err
		}
	}

	out, err := ix.Extract(entry)
	if err != nil {
		return nil, err
	}

	m.entry = entry
	m.enter(StateDecompressed, entry)
	return out, nil
}

//
func (r *Resolver) watch(m *Mounted, src *base.Source) {
	if r.opts.Watcher == nil || src.Type() != base.SourceLocalPath {
		return
	}
	stop, err := r.opts.Watcher.Watch(src, func(current *base.Fingerprint) {
		loaded := m.loaded.Load()
		m.stale.Store(current == nil || loaded == nil || *current != *loaded)
	})
	if err != nil {
		log.WithField("source", src).Warnf("cannot watch host file: %v", err)
		return
	}
	m.unwatch = stop
}

// Holder returns the ID of the writable mount of src, if there is one.
func (r *Resolver) Holder(src *base.Source) (string, bool) {
	return r.registry.Holder(src.Key())
}

//
func logTransition(m *Mounted, t Transition) {
	entry := log.WithFields(log.Fields{
		"id":     m.id,
		"source": m.src,
		"state":  t.State,
		"detail": t.Detail})
	if t.State == StateFailed {
		entry.Warn("media resolution failed")
	} else {
		entry.Debug("media state transition")
	}
}

var clock = time.Now
