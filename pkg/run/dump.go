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
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
)

//
func NewDump() *Dump {

	d := &Dump{}
	d.Runner = *NewRunner(
		"dump [-s|--source {source}] [-d|--drive {drive}] [-f|--file {file}] [-o|--offset {offset}] [-l|--length {length}]",
		"hex dump media from source or daemon",
		`
Use the dump command to output a hex dump of a range of raw media, or of a file
on media. Media are given either as a source, or as a drive of the daemon.`,
		"", runnerHelpEpilogue, d.Run)

	d.AddBaseSettings()
	d.AddMediaSettings(&d.Media)
	d.AddSetting(&d.Source, "source", "s", "", "", "media source", false)
	d.AddSetting(&d.Drive, "drive", "d", "", "", "daemon drive, e.g. fd0", false)
	d.AddSetting(&d.File, "file", "f", "", "", "file on media to dump", false)
	d.AddSetting(&d.Offset, "offset", "o", "", 0, "start of range to dump", false)
	d.AddSetting(&d.Length, "length", "l", "", 512, "length of range to dump", false)

	return d
}

//
type Dump struct {
	Runner
	Media MediaSettings
	//
	Source string
	Drive  string
	File   string
	Offset int
	Length int
}

//
func (d *Dump) Run() error {

	var data []byte

	if d.Source != "" {
		m, err := d.Media.mount(context.Background(), d.Source, false)
		if err != nil {
			return err
		}
		defer m.Eject(context.Background(), false)

		if d.File != "" {
			fs, err := requireFS(m)
			if err != nil {
				return err
			}
			if data, err = fs.ReadFile(d.File); err != nil {
				return err
			}

		} else {
			ra, ok := m.Ranges()
			if !ok {
				return fmt.Errorf("media format not recognized, no raw access")
			}
			if data, err = ra.ReadRange(d.Offset, d.Length); err != nil {
				return err
			}
		}

	} else if d.Drive != "" {
		resp, err := d.apiCall("GET",
			fmt.Sprintf("/drive/%s/dump?raw&file=%s&offset=%d&length=%d",
				d.Drive, url.QueryEscape(d.File), d.Offset, d.Length), false, nil)
		if err != nil {
			return err
		}
		defer resp.Close()
		if data, err = io.ReadAll(resp); err != nil {
			return err
		}

	} else {
		return fmt.Errorf("no source or drive given")
	}

	dumper := hex.Dumper(os.Stdout)
	defer dumper.Close()
	_, err := dumper.Write(data)
	return err
}
