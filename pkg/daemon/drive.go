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

package daemon

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/media"
)

// DriveKind distinguishes floppy from hard disk drives.
type DriveKind int

const (
	Floppy DriveKind = iota
	HardDisk
)

//
func (k DriveKind) String() string {
	if k == HardDisk {
		return "hd"
	}
	return "fd"
}

// drive is a slot in the drive bay. Its lock is held while media in the slot
// are in use, in the manner of a cartridge lock.
type drive struct {
	number int
	kind   DriveKind
	unit   int
	media  *media.Mounted
	lock   chan bool
}

//
func newDrive(number int, kind DriveKind, unit int) *drive {
	return &drive{
		number: number,
		kind:   kind,
		unit:   unit,
		lock:   make(chan bool, 1),
	}
}

//
func (d *drive) Name() string {
	return fmt.Sprintf("%s%d", d.kind, d.unit)
}

//
func (d *drive) Lock(ctx context.Context) bool {
	select {
	case d.lock <- true:
		log.WithField("drive", d.Name()).Trace("drive locked")
		return true
	case <-ctx.Done():
		log.WithField("drive", d.Name()).Debug("drive lock timed out")
		return false
	}
}

//
func (d *drive) Unlock() {
	select {
	case <-d.lock:
		log.WithField("drive", d.Name()).Trace("drive unlocked")
	default:
		log.WithField("drive", d.Name()).Debug("drive was already unlocked")
	}
}

//
func (d *drive) IsLocked() bool {
	return len(d.lock) > 0
}

// ParseDrive accepts a drive number, or a drive name such as "fd0" or "hd1".
func (d *Daemon) ParseDrive(s string) (int, error) {

	s = strings.ToLower(strings.TrimSpace(s))

	if n, err := strconv.Atoi(s); err == nil {
		if err := d.validateDrive(n); err != nil {
			return -1, err
		}
		return n, nil
	}

	for _, dr := range d.drives {
		if dr.Name() == s {
			return dr.number, nil
		}
	}

	return -1, fmt.Errorf("%w: %s", ErrInvalidDrive, s)
}

//
func (d *Daemon) validateDrive(n int) error {
	if n < 0 || n >= len(d.drives) {
		return fmt.Errorf("%w: %d", ErrInvalidDrive, n)
	}
	return nil
}
