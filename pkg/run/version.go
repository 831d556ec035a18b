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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/xelalexv/mediadrive/pkg/archive"
	"github.com/xelalexv/mediadrive/pkg/control"
)

//
func NewVersion() *Version {
	v := &Version{}
	v.Runner = *NewRunner(
		"version",
		"show build info of mediactl and the daemon",
		`
Use the version command to see the release, build target, and available archive
codecs of mediactl and, if reachable, the daemon.`,
		"", runnerHelpEpilogue, v.Run)
	v.AddBaseSettings()
	return v
}

//
type Version struct {
	Runner
}

//
func (v *Version) Run() error {

	local := control.NewBuild(archive.DefaultCapabilities().List())

	var daemon *control.Build
	if resp, err := v.apiCall("GET", "/version", true, nil); err == nil {
		defer resp.Close()
		daemon = &control.Build{}
		if err := json.NewDecoder(resp).Decode(daemon); err != nil {
			return fmt.Errorf("invalid version reply: %v", err)
		}
	}

	fmt.Println()
	printBuilds(os.Stdout, local, daemon)
	fmt.Println()
	return nil
}

//
func printBuilds(out io.Writer, local, daemon *control.Build) {
	fmt.Fprintf(out, "mediactl  %s\n", local)
	if daemon == nil {
		fmt.Fprintln(out, "daemon    not reachable")
	} else {
		fmt.Fprintf(out, "daemon    %s\n", daemon)
	}
}
