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
	"fmt"
	"io"
	"net/url"
	"os"
)

//
func NewCat() *Cat {

	c := &Cat{}
	c.Runner = *NewRunner(
		"cat -s|--source {source} -p|--path {file} | -d|--drive {drive} -p|--path {file}",
		"print a file from media",
		"\nUse the cat command to write the contents of a file on media to stdout.",
		"", runnerHelpEpilogue, c.Run)

	c.AddBaseSettings()
	c.AddMediaSettings(&c.Media)
	c.AddSetting(&c.Source, "source", "s", "", "", "media source", false)
	c.AddSetting(&c.Drive, "drive", "d", "", "", "daemon drive, e.g. fd0", false)
	c.AddSetting(&c.Path, "path", "p", "", nil, "file to print", true)

	return c
}

//
type Cat struct {
	Runner
	Media MediaSettings
	//
	Source string
	Drive  string
	Path   string
}

//
func (c *Cat) Run() error {

	if c.Drive != "" {
		resp, err := c.apiCall("GET", fmt.Sprintf("/drive/%s/file?path=%s",
			c.Drive, url.QueryEscape(c.Path)), false, nil)
		if err != nil {
			return err
		}
		defer resp.Close()
		_, err = io.Copy(os.Stdout, resp)
		return err
	}

	if c.Source == "" {
		return fmt.Errorf("no source or drive given")
	}

	m, err := c.Media.mount(context.Background(), c.Source, false)
	if err != nil {
		return err
	}
	defer m.Eject(context.Background(), false)

	fs, err := requireFS(m)
	if err != nil {
		return err
	}

	data, err := fs.ReadFile(c.Path)
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(data)
	return err
}
