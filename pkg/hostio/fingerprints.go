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
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

var sharedFingerprints = NewFingerprints()

// SharedFingerprints returns the process wide fingerprint table.
func SharedFingerprints() *Fingerprints {
	return sharedFingerprints
}

// Fingerprints records the fingerprint of the host copy of each source, as of
// its last persist. Fetches do not record anything, since the host copy a
// medium was loaded from is tracked by the medium itself. Each key has its own
// lock, so a check followed by an update is atomic with respect to other
// persists of the same source.
type Fingerprints struct {
	mu      sync.Mutex
	entries map[string]*printEntry
}

type printEntry struct {
	mu    sync.Mutex
	fp    base.Fingerprint
	known bool
}

//
func NewFingerprints() *Fingerprints {
	return &Fingerprints{entries: map[string]*printEntry{}}
}

//
func (f *Fingerprints) entry(key string) *printEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	if !ok {
		e = &printEntry{}
		f.entries[key] = e
	}
	return e
}

// Get returns the recorded fingerprint for key, if any.
func (f *Fingerprints) Get(key string) (base.Fingerprint, bool) {
	e := f.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fp, e.known
}

/*
	Guard runs fn while holding the lock for key. fn receives the recorded
	fingerprint, nil if there is none, and returns the fingerprint to record
	when it succeeds. Nothing is recorded when fn fails.
*/
func (f *Fingerprints) Guard(key string,
	fn func(known *base.Fingerprint) (base.Fingerprint, error)) error {

	e := f.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	var known *base.Fingerprint
	if e.known {
		fp := e.fp
		known = &fp
	}

	fp, err := fn(known)
	if err != nil {
		return err
	}

	e.fp = fp
	e.known = true

	log.WithFields(log.Fields{
		"key":         key,
		"fingerprint": fp.String()[:16]}).Trace("fingerprint updated")

	return nil
}

// checkConflict compares the current host content against the expected
// fingerprint.
func checkConflict(op string, src *base.Source, expected *base.Fingerprint,
	current []byte, exists bool) error {

	if expected == nil {
		return nil
	}
	if !exists {
		return base.Errorf(base.KindConflict, op, src.String(),
			"host copy was removed since it was loaded")
	}
	if base.ComputeFingerprint(current) != *expected {
		return base.Errorf(base.KindConflict, op, src.String(),
			"host copy was modified since it was loaded")
	}
	return nil
}
