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
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/media"
	"github.com/xelalexv/mediadrive/pkg/media/base"
)

//
const DefaultFloppyDrives = 2
const DefaultHardDrives = 2

// LockTimeout is how long operations wait for a busy drive.
var LockTimeout = 2 * time.Second

var (
	ErrInvalidDrive = errors.New("invalid drive")
	ErrBusy         = errors.New("drive busy")
	ErrEmpty        = errors.New("no media in drive")
	ErrModified     = errors.New("media in drive is modified")
)

// Daemon is the drive bay of the emulated machine. Each drive holds at most
// one mounted medium.
type Daemon struct {
	resolver *media.Resolver
	drives   []*drive
}

// NewDaemon creates a drive bay with the given number of floppy and hard disk
// drives. Floppy drives are numbered first.
func NewDaemon(resolver *media.Resolver, floppies, hardDisks int) *Daemon {

	d := &Daemon{resolver: resolver}

	for ix := 0; ix < floppies; ix++ {
		d.drives = append(d.drives, newDrive(len(d.drives), Floppy, ix))
	}
	for ix := 0; ix < hardDisks; ix++ {
		d.drives = append(d.drives, newDrive(len(d.drives), HardDisk, ix))
	}

	return d
}

//
func (d *Daemon) Resolver() *media.Resolver {
	return d.resolver
}

//
func (d *Daemon) DriveCount() int {
	return len(d.drives)
}

// lockDrive locks drive n, waiting at most LockTimeout.
func (d *Daemon) lockDrive(n int) (*drive, error) {
	return d.lockDriveWithin(n, LockTimeout)
}

//
func (d *Daemon) lockDriveWithin(n int, timeout time.Duration) (*drive, error) {

	if err := d.validateDrive(n); err != nil {
		return nil, err
	}

	dr := d.drives[n]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if !dr.Lock(ctx) {
		return nil, fmt.Errorf("%w: could not lock drive %s", ErrBusy, dr.Name())
	}
	return dr, nil
}

// Load resolves source and places the result into drive n. If the drive
// holds modified media, loading fails unless forced.
func (d *Daemon) Load(ctx context.Context, n int, source string, writable,
	force bool) (*media.Mounted, error) {

	if err := d.validateDrive(n); err != nil {
		return nil, err
	}

	m, err := d.resolver.ResolveString(ctx, source,
		media.MountOptions{Writable: writable})
	if err != nil {
		return nil, err
	}

	if err := d.SetMedia(n, m, force); err != nil {
		if e := m.Eject(context.Background(), false); e != nil {
			log.Errorf("error releasing media: %v", e)
		}
		return nil, err
	}

	return m, nil
}

// SetMedia places m into drive n, ejecting what was in there before without
// flushing. Modified media are only replaced when forced.
func (d *Daemon) SetMedia(n int, m *media.Mounted, force bool) error {

	dr, err := d.lockDrive(n)
	if err != nil {
		return err
	}
	defer dr.Unlock()

	if prev := dr.media; prev != nil {
		if prev.IsModified() && !force {
			return fmt.Errorf("%w: %s", ErrModified, dr.Name())
		}
		if err := prev.Eject(context.Background(), false); err != nil {
			return err
		}
	}

	dr.media = m

	log.WithFields(log.Fields{
		"drive":  dr.Name(),
		"source": m.Source(),
		"format": m.Format()}).Info("media loaded")

	return nil
}

// GetMedia returns the media in drive n with the drive locked. Callers need
// to call the returned release function when done.
func (d *Daemon) GetMedia(n int) (*media.Mounted, func(), error) {

	dr, err := d.lockDrive(n)
	if err != nil {
		return nil, nil, err
	}

	if dr.media == nil {
		dr.Unlock()
		return nil, nil, fmt.Errorf("%w: %s", ErrEmpty, dr.Name())
	}

	return dr.media, dr.Unlock, nil
}

// Eject removes the media from drive n, flushing them first if requested.
// When the flush fails, the media stay in the drive.
func (d *Daemon) Eject(ctx context.Context, n int, flush bool) error {

	dr, err := d.lockDrive(n)
	if err != nil {
		return err
	}
	defer dr.Unlock()

	if dr.media == nil {
		return fmt.Errorf("%w: %s", ErrEmpty, dr.Name())
	}

	if err := dr.media.Eject(ctx, flush); err != nil {
		return err
	}
	dr.media = nil

	log.WithField("drive", dr.Name()).Info("media ejected")
	return nil
}

// Flush writes the media in drive n back to their source.
func (d *Daemon) Flush(ctx context.Context, n int, force bool) error {
	m, release, err := d.GetMedia(n)
	if err != nil {
		return err
	}
	defer release()
	return m.Flush(ctx, force)
}

// SaveAs writes the media in drive n to target, which becomes their new
// source.
func (d *Daemon) SaveAs(ctx context.Context, n int, target string,
	force bool) error {

	dst, err := base.ParseSource(target, d.resolver.Options().BaseDir)
	if err != nil {
		return err
	}

	m, release, err := d.GetMedia(n)
	if err != nil {
		return err
	}
	defer release()

	return m.FlushTo(ctx, dst, force)
}

// Stop ejects all media, flushing modified ones. Errors are logged, and the
// media concerned are ejected without flushing.
func (d *Daemon) Stop(ctx context.Context) {

	for _, dr := range d.drives {

		if !dr.Lock(ctx) {
			log.WithField("drive", dr.Name()).Warn("drive busy during shutdown")
			continue
		}

		if m := dr.media; m != nil {
			if err := m.Eject(ctx, m.IsModified() && m.CanPersist()); err != nil {
				log.WithField("drive", dr.Name()).Errorf(
					"flushing media failed, changes are lost: %v", err)
				if err := m.Eject(ctx, false); err != nil {
					log.Errorf("error ejecting media: %v", err)
				}
			}
			dr.media = nil
		}

		dr.Unlock()
	}
}
