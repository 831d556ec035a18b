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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xelalexv/mediadrive/pkg/run"
)

//
func main() {

	root := &cobra.Command{
		Use:   "mediactl",
		Short: "removable media for PC emulators",
		Long: `
mediactl opens floppy and hard disk images for PC emulators, also from inside
archives or from remote locations, gives access to the files on them, and runs
the drive daemon that emulators load their media from.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(run.Commands()...)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\nerror: %v\n\n", err)
		os.Exit(1)
	}
}
