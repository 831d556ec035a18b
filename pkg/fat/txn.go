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
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// undo holds the original contents of a region written during a transaction.
type undo struct {
	off  int
	orig []byte
}

// txn is the undo log of a running mutation.
type txn struct {
	op   string
	path string
	log  []undo
}

// write copies data into the image at off. During a transaction, the bytes
// being overwritten are logged first.
func (v *Volume) write(off int, data []byte) {
	if v.txn != nil {
		orig := make([]byte, len(data))
		copy(orig, v.data[off:off+len(data)])
		v.txn.log = append(v.txn.log, undo{off: off, orig: orig})
	}
	copy(v.data[off:off+len(data)], data)
}

// rollback replays the undo log in reverse, restoring the image to the state
// it had when the transaction started.
func (t *txn) rollback(data []byte) {
	for ix := len(t.log) - 1; ix >= 0; ix-- {
		u := t.log[ix]
		copy(data[u.off:], u.orig)
	}
}

// mutate runs fn as a transaction. Either all of its writes persist, or, on
// error or panic, none do. Panics are turned into format errors, since they
// indicate structures that violate assumptions about the volume.
func (v *Volume) mutate(op, path string, fn func() error) (err error) {

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.writable {
		return base.Errorf(base.KindReadOnly, op, path, "volume is read-only")
	}

	t := &txn{op: op, path: path}
	v.txn = t

	defer func() {
		if r := recover(); r != nil {
			err = base.NewError(base.KindFormat, op, path,
				fmt.Errorf("internal error: %v", r))
		}
		v.txn = nil
		if err != nil {
			t.rollback(v.data)
			log.WithFields(log.Fields{
				"op":      op,
				"path":    path,
				"regions": len(t.log),
				"error":   err}).Debug("mutation rolled back")
			return
		}
		if len(t.log) > 0 {
			v.modified = true
		}
	}()

	return fn()
}
