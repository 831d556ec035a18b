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

package run

import (
	"fmt"
	"io"
	"net/url"
	"os"
)

//
func NewLoad() *Load {

	l := &Load{}
	l.Runner = *NewRunner(
		"load -d|--drive {drive} -s|--source {source} [-w|--writable] [-f|--force]",
		"load media into a drive of the daemon",
		`
Use the load command to load media into a drive of the daemon. The source is
resolved by the daemon, so paths refer to the daemon's host. Search hits from
the media library can be loaded with their library: reference.`,
		"", runnerHelpEpilogue, l.Run)

	l.AddBaseSettings()
	l.AddSetting(&l.Drive, "drive", "d", "", nil, "drive, e.g. fd0", true)
	l.AddSetting(&l.Source, "source", "s", "", nil, "media source", true)
	l.AddSetting(&l.Writable, "writable", "w", "", false, "load writable", false)
	l.AddSetting(&l.Force, "force", "f", "", false,
		"replace media in the drive even if modified", false)

	return l
}

//
type Load struct {
	Runner
	//
	Drive    string
	Source   string
	Writable bool
	Force    bool
}

//
func (l *Load) Run() error {
	return printReply(l.apiCall("PUT", fmt.Sprintf(
		"/drive/%s?source=%s&writable=%v&force=%v", l.Drive,
		url.QueryEscape(l.Source), l.Writable, l.Force), false, nil))
}

//
func NewEject() *Eject {

	e := &Eject{}
	e.Runner = *NewRunner(
		"eject -d|--drive {drive} [--flush]",
		"eject media from a drive of the daemon",
		`
Use the eject command to remove media from a drive. With --flush, modified media
are written back first, and stay in the drive if that fails.`,
		"", runnerHelpEpilogue, e.Run)

	e.AddBaseSettings()
	e.AddSetting(&e.Drive, "drive", "d", "", nil, "drive, e.g. fd0", true)
	e.AddSetting(&e.Flush, "flush", "", "", false, "write back modified media", false)

	return e
}

//
type Eject struct {
	Runner
	//
	Drive string
	Flush bool
}

//
func (e *Eject) Run() error {
	return printReply(e.apiCall("DELETE",
		fmt.Sprintf("/drive/%s?flush=%v", e.Drive, e.Flush), false, nil))
}

//
func NewFlush() *Flush {

	f := &Flush{}
	f.Runner = *NewRunner(
		"flush -d|--drive {drive} [-f|--force]",
		"write media in a drive of the daemon back to their source",
		"\nUse the flush command to write modified media back to their source.",
		"", runnerHelpEpilogue, f.Run)

	f.AddBaseSettings()
	f.AddSetting(&f.Drive, "drive", "d", "", nil, "drive, e.g. fd0", true)
	f.AddSetting(&f.Force, "force", "f", "", false,
		"write back even if the source was changed by someone else", false)

	return f
}

//
type Flush struct {
	Runner
	//
	Drive string
	Force bool
}

//
func (f *Flush) Run() error {
	return printReply(f.apiCall("POST",
		fmt.Sprintf("/drive/%s/flush?force=%v", f.Drive, f.Force), false, nil))
}

//
func NewStatus() *Status {
	s := &Status{}
	s.Runner = *NewRunner("status", "show the drives of the daemon",
		"\nUse the status command to see which media are loaded into which drive.",
		"", runnerHelpEpilogue, s.Run)
	s.AddBaseSettings()
	return s
}

//
type Status struct {
	Runner
}

//
func (s *Status) Run() error {
	return printReply(s.apiCall("GET", "/status", false, nil))
}

//
func printReply(resp io.ReadCloser, err error) error {
	if err != nil {
		return err
	}
	defer resp.Close()
	fmt.Println()
	if _, err := io.Copy(os.Stdout, resp); err != nil {
		return err
	}
	fmt.Println()
	return nil
}
