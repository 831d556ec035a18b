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
	"fmt"
	"strings"
	"time"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

//
const flagLoaded = 1
const flagFormatted = 2
const flagReadonly = 4
const flagModified = 8
const flagStale = 16

// DriveStatus describes the state of a drive and its media.
type DriveStatus struct {
	Drive     int    `json:"drive"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	State     string `json:"state"`
	Flags     byte   `json:"flags"`
	ID        string `json:"id,omitempty"`
	Source    string `json:"source,omitempty"`
	Format    string `json:"format,omitempty"`
	Rule      string `json:"rule,omitempty"`
	Label     string `json:"label,omitempty"`
	Size      int    `json:"size,omitempty"`
	Writable  bool   `json:"writable"`
	Protected bool   `json:"protected"`
	Modified  bool   `json:"modified"`
	Stale     bool   `json:"stale"`
}

//
func (s *DriveStatus) String() string {

	if s.State != "loaded" {
		return fmt.Sprintf("%-4s%s", s.Name, s.State)
	}

	var attrs []string
	if !s.Writable {
		attrs = append(attrs, "read-only")
	}
	if s.Protected {
		attrs = append(attrs, "write protected")
	}
	if s.Modified {
		attrs = append(attrs, "modified")
	}
	if s.Stale {
		attrs = append(attrs, "changed on host")
	}

	msg := fmt.Sprintf("%-4s%-10s %s", s.Name, s.Format, s.Source)
	if s.Label != "" {
		msg += fmt.Sprintf(" [%s]", s.Label)
	}
	if len(attrs) > 0 {
		msg += fmt.Sprintf(" (%s)", strings.Join(attrs, ", "))
	}
	return msg
}

// Status returns the state of drive n. A drive that is busy is reported as
// such, without details on its media.
func (d *Daemon) Status(n int) (*DriveStatus, error) {

	if err := d.validateDrive(n); err != nil {
		return nil, err
	}

	dr := d.drives[n]
	ret := &DriveStatus{
		Drive: n,
		Name:  dr.Name(),
		Kind:  dr.kind.String(),
		State: "empty",
	}

	if _, err := d.lockDriveWithin(n, 50*time.Millisecond); err != nil {
		ret.State = "busy"
		return ret, nil
	}
	defer dr.Unlock()

	m := dr.media
	if m == nil {
		return ret, nil
	}

	ret.State = "loaded"
	ret.Flags = flagLoaded
	ret.ID = m.ID()
	ret.Source = m.Source().String()
	ret.Format = m.Format().String()
	ret.Rule = m.Identification().Rule
	ret.Label = m.Identification().Label
	ret.Size = m.Size()
	ret.Writable = m.IsWritable()
	ret.Protected = m.IsWriteProtected()
	ret.Modified = m.IsModified()
	ret.Stale = m.Stale()

	if fs, ok := m.FS(); ok {
		ret.Flags |= flagFormatted
		if l := fs.Label(); l != "" {
			ret.Label = l
		}
	}
	if !ret.Writable {
		ret.Flags |= flagReadonly
	}
	if ret.Modified {
		ret.Flags |= flagModified
	}
	if ret.Stale {
		ret.Flags |= flagStale
	}
	if m.Format() == base.FormatUnknown {
		ret.Format = "unknown"
	}

	return ret, nil
}

// Statuses returns the status of all drives.
func (d *Daemon) Statuses() []*DriveStatus {
	var ret []*DriveStatus
	for n := range d.drives {
		if s, err := d.Status(n); err == nil {
			ret = append(ret, s)
		}
	}
	return ret
}
