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
	"github.com/spf13/cobra"
)

// Commands returns all commands available on this platform.
func Commands() []*cobra.Command {
	ret := []*cobra.Command{
		NewLs().Cmd(),
		NewCat().Cmd(),
		NewDump().Cmd(),
		NewPut().Cmd(),
		NewRm().Cmd(),
		NewMkdir().Cmd(),
		NewClassify().Cmd(),
		NewFormat().Cmd(),
		NewServe().Cmd(),
		NewLoad().Cmd(),
		NewEject().Cmd(),
		NewFlush().Cmd(),
		NewSaveAs().Cmd(),
		NewStatus().Cmd(),
		NewSearch().Cmd(),
		NewVersion().Cmd(),
	}
	return append(ret, platformCommands()...)
}
