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
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/format"
	"github.com/xelalexv/mediadrive/pkg/hostio"
	"github.com/xelalexv/mediadrive/pkg/media/base"
	"github.com/xelalexv/mediadrive/pkg/sector"
)

// writeProtect is implemented by adapters that support toggling write access
// after mounting.
type writeProtect interface {
	SetWritable(w bool)
}

// Mounted is a resolved medium, ready for use by the emulator core. Which
// capabilities it offers depends on the format it was classified as.
type Mounted struct {
	id       string
	src      *base.Source
	persist  *base.Source
	entry    string
	resolver *Resolver

	res     format.Result
	size    int
	image   base.Image
	fs      base.FileSystem
	ranges  base.RangeAccess
	sectors *sector.Image

	mu        sync.Mutex
	history   []Transition
	writable  bool
	protected bool
	claimed   bool
	ejected   bool
	unwatch   func()
	stale     atomic.Bool
	loaded    atomic.Pointer[base.Fingerprint] // host copy the image derives from
}

//
func (m *Mounted) enter(s State, detail string) {
	t := Transition{State: s, At: clock(), Detail: detail}
	m.mu.Lock()
	m.history = append(m.history, t)
	m.mu.Unlock()
	logTransition(m, t)
}

// ID uniquely identifies this mount.
func (m *Mounted) ID() string {
	return m.id
}

// Source returns the source the medium was resolved from, or was last saved
// to with FlushTo.
func (m *Mounted) Source() *base.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

// Entry returns the archive entry the image was extracted from, if any.
func (m *Mounted) Entry() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entry
}

//
func (m *Mounted) Format() base.ImageFormat {
	return m.res.Format
}

// Identification returns details on how the medium was classified.
func (m *Mounted) Identification() format.Result {
	return m.res
}

// Size returns the size of the image in bytes.
func (m *Mounted) Size() int {
	return m.size
}

// History returns the state transitions this medium went through.
func (m *Mounted) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transition{}, m.history...)
}

// State returns the current resolution state.
func (m *Mounted) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return StateUnresolved
	}
	return m.history[len(m.history)-1].State
}

// FS returns the filesystem view of the medium, if it has one.
func (m *Mounted) FS() (base.FileSystem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ejected || m.fs == nil {
		return nil, false
	}
	return m.fs, true
}

// Ranges returns raw byte access to the medium, if it has one.
func (m *Mounted) Ranges() (base.RangeAccess, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ejected || m.ranges == nil {
		return nil, false
	}
	return m.ranges, true
}

// Sectors returns CHS sector access for sector images with known geometry.
func (m *Mounted) Sectors() (*sector.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ejected || m.sectors == nil || m.sectors.Geometry() == nil {
		return nil, false
	}
	return m.sectors, true
}

//
func (m *Mounted) IsWritable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.image != nil && m.writable && !m.protected
}

// IsWriteProtected reports whether the write protect tab is set.
func (m *Mounted) IsWriteProtected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.protected
}

//
func (m *Mounted) IsModified() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.image != nil && m.image.IsModified()
}

// IsEjected reports whether the medium has been ejected.
func (m *Mounted) IsEjected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ejected
}

// Stale reports whether the host file changed after the medium was fetched.
func (m *Mounted) Stale() bool {
	return m.stale.Load()
}

// CanPersist reports whether a flush could write the medium back to its host.
func (m *Mounted) CanPersist() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolver.bridge.CanPersist(m.persist)
}

/*
	SetWriteProtected sets or clears the write protect tab. While set, all
	mutating calls fail with a ReadOnly error. Media mounted read-only cannot
	be made writable this way.
*/
func (m *Mounted) SetWriteProtected(p bool) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ejected {
		return base.Errorf(base.KindNotFound, "write-protect", m.src.String(),
			"medium ejected")
	}
	if !m.writable {
		if p {
			return nil
		}
		return base.Errorf(base.KindReadOnly, "write-protect", m.src.String(),
			"medium mounted read-only")
	}

	if wp, ok := m.image.(writeProtect); ok {
		wp.SetWritable(!p)
	}
	m.protected = p

	log.WithFields(log.Fields{
		"id":        m.id,
		"protected": p}).Info("write protection changed")
	return nil
}

/*
	Flush writes the medium back to where it came from, if it was modified.
	Sources that cannot be written back, like remote files or archive entries,
	fail with a ReadOnlyMedium error. Unless forced, a conflict is reported if
	the host copy changed in the meantime.
*/
func (m *Mounted) Flush(ctx context.Context, force bool) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.flush(ctx, force)
}

//
func (m *Mounted) flush(ctx context.Context, force bool) error {

	if m.ejected {
		return base.Errorf(base.KindNotFound, "flush", m.src.String(),
			"medium ejected")
	}

	if m.image == nil || !m.image.IsModified() {
		return nil
	}

	bridge := m.resolver.bridge
	if !bridge.CanPersist(m.persist) {
		return base.Errorf(base.KindReadOnlyMedium, "flush", m.persist.String(),
			"source cannot be written back")
	}

	data := m.image.Snapshot()
	if err := bridge.Persist(ctx, m.persist, data, hostio.PersistOptions{
		Force: force, Expected: m.loaded.Load()}); err != nil {
		return err
	}

	fp := base.ComputeFingerprint(data)
	m.loaded.Store(&fp)
	m.image.SetModified(false)
	m.stale.Store(false)

	log.WithFields(log.Fields{
		"id":     m.id,
		"source": m.persist}).Info("medium flushed")
	return nil
}

/*
	FlushTo writes the medium to dst, which from then on is where it belongs:
	later flushes go there, and the claim of a writable mount moves along.
	This is how media that cannot be written back in place, like archive
	entries or floppies built from a directory, get saved. The medium is
	written even if it was not modified.
*/
func (m *Mounted) FlushTo(ctx context.Context, dst *base.Source, force bool) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ejected {
		return base.Errorf(base.KindNotFound, "save", m.src.String(),
			"medium ejected")
	}
	if m.image == nil {
		return base.Errorf(base.KindFormat, "save", m.src.String(),
			"medium has no image that could be saved")
	}

	if dst.Key() == m.persist.Key() {
		return m.flush(ctx, force)
	}

	bridge := m.resolver.bridge
	if !bridge.CanPersist(dst) {
		return base.Errorf(base.KindReadOnlyMedium, "save", dst.String(),
			"target cannot be written")
	}

	reg := m.resolver.registry
	if m.writable {
		if err := reg.claim(dst.Key(), m.id); err != nil {
			return err
		}
	} else if holder, held := reg.Holder(dst.Key()); held {
		return base.Errorf(base.KindAlreadyMounted, "save", dst.String(),
			"mounted writable by %s", holder)
	}

	data := m.image.Snapshot()
	if err := bridge.Persist(ctx, dst, data,
		hostio.PersistOptions{Force: force}); err != nil {
		if m.writable {
			reg.release(dst.Key(), m.id)
		}
		return err
	}

	m.releaseClaimLocked()
	m.claimed = m.writable

	from := m.src
	m.src, m.persist, m.entry = dst, dst, ""

	fp := base.ComputeFingerprint(data)
	m.loaded.Store(&fp)
	m.image.SetModified(false)
	m.stale.Store(false)

	if m.unwatch != nil {
		m.unwatch()
		m.unwatch = nil
	}
	m.resolver.watch(m, dst)

	log.WithFields(log.Fields{
		"id":   m.id,
		"from": from,
		"to":   dst}).Info("medium saved to new location")
	return nil
}

/*
	Eject releases the medium, optionally flushing it first. If that flush
	fails, the medium stays mounted. Ejecting an ejected medium does nothing.
*/
func (m *Mounted) Eject(ctx context.Context, flush bool) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ejected {
		return nil
	}

	if flush {
		if err := m.flush(ctx, false); err != nil {
			return err
		}
	}

	if m.unwatch != nil {
		m.unwatch()
		m.unwatch = nil
	}
	m.ejected = true
	m.releaseClaimLocked()

	log.WithFields(log.Fields{
		"id":     m.id,
		"source": m.src}).Info("medium ejected")
	return nil
}

//
func (m *Mounted) releaseClaim() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseClaimLocked()
}

//
func (m *Mounted) releaseClaimLocked() {
	if m.claimed {
		m.resolver.registry.release(m.src.Key(), m.id)
		m.claimed = false
	}
}
