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

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// Edit is the base of commands that change files on media. On a source, the
// media are mounted writable, changed, and flushed. On a daemon drive, the
// change is made through the control API.
type Edit struct {
	Runner
	Media MediaSettings
	//
	Source string
	Drive  string
	Path   string
	Force  bool
}

//
func (e *Edit) addEditSettings(pathUsage string) {
	e.AddBaseSettings()
	e.AddMediaSettings(&e.Media)
	e.AddSetting(&e.Source, "source", "s", "", "", "media source", false)
	e.AddSetting(&e.Drive, "drive", "d", "", "", "daemon drive, e.g. fd0", false)
	e.AddSetting(&e.Path, "path", "p", "", nil, pathUsage, true)
	e.AddSetting(&e.Force, "force", "f", "", false,
		"write back even if the source was changed by someone else", false)
}

// edit applies fn to the file system on the source and flushes the result.
func (e *Edit) edit(fn func(fs base.FileSystem) error) error {

	ctx := context.Background()

	m, err := e.Media.mount(ctx, e.Source, true)
	if err != nil {
		return err
	}
	defer m.Eject(ctx, false)

	fs, err := requireFS(m)
	if err != nil {
		return err
	}

	if err := fn(fs); err != nil {
		return err
	}

	if err := m.Flush(ctx, e.Force); err != nil {
		if base.KindOf(err) == base.KindConflict {
			return fmt.Errorf("%v; use --force to overwrite", err)
		}
		return err
	}

	log.WithField("source", m.Source()).Debug("media updated")
	return nil
}

// remote sends an edit to the daemon.
func (e *Edit) remote(method, resource string, body io.Reader) error {
	resp, err := e.apiCall(method, fmt.Sprintf("/drive/%s/%s?path=%s",
		e.Drive, resource, url.QueryEscape(e.Path)), false, body)
	if err != nil {
		return err
	}
	defer resp.Close()
	_, err = io.Copy(os.Stdout, resp)
	fmt.Println()
	return err
}

//
func (e *Edit) checkTarget() error {
	if (e.Source == "") == (e.Drive == "") {
		return fmt.Errorf("give either a source or a drive")
	}
	return nil
}

//
func NewPut() *Put {

	p := &Put{}
	p.Runner = *NewRunner(
		"put -s|--source {source} | -d|--drive {drive} -p|--path {file} [-i|--input {file}]",
		"write a file to media",
		`
Use the put command to write a file to FAT formatted media. The file is read
from the input file, or stdin if none is given. An existing file is replaced.`,
		"", runnerHelpEpilogue, p.Run)

	p.addEditSettings("file on media to write")
	p.AddSetting(&p.Input, "input", "i", "", "", "input file (default: stdin)", false)

	return p
}

//
type Put struct {
	Edit
	Input string
}

//
func (p *Put) Run() error {

	if err := p.checkTarget(); err != nil {
		return err
	}

	in := os.Stdin
	if p.Input != "" {
		f, err := os.Open(p.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	if p.Drive != "" {
		return p.remote("PUT", "file", in)
	}

	data, err := io.ReadAll(io.LimitReader(in, p.Media.MaxSize+1))
	if err != nil {
		return err
	}
	if int64(len(data)) > p.Media.MaxSize {
		return fmt.Errorf("input exceeds maximum size of %d bytes", p.Media.MaxSize)
	}

	return p.edit(func(fs base.FileSystem) error {
		return fs.WriteFile(p.Path, data)
	})
}

//
func NewRm() *Rm {
	r := &Rm{}
	r.Runner = *NewRunner(
		"rm -s|--source {source} | -d|--drive {drive} -p|--path {file}",
		"delete a file or empty directory from media",
		"\nUse the rm command to delete a file or an empty directory from FAT formatted media.",
		"", runnerHelpEpilogue, r.Run)
	r.addEditSettings("file or directory to delete")
	return r
}

//
type Rm struct {
	Edit
}

//
func (r *Rm) Run() error {
	if err := r.checkTarget(); err != nil {
		return err
	}
	if r.Drive != "" {
		return r.remote("DELETE", "file", nil)
	}
	return r.edit(func(fs base.FileSystem) error {
		return fs.DeleteFile(r.Path)
	})
}

//
func NewMkdir() *Mkdir {
	m := &Mkdir{}
	m.Runner = *NewRunner(
		"mkdir -s|--source {source} | -d|--drive {drive} -p|--path {dir}",
		"create a directory on media",
		"\nUse the mkdir command to create a directory on FAT formatted media.",
		"", runnerHelpEpilogue, m.Run)
	m.addEditSettings("directory to create")
	return m
}

//
type Mkdir struct {
	Edit
}

//
func (m *Mkdir) Run() error {
	if err := m.checkTarget(); err != nil {
		return err
	}
	if m.Drive != "" {
		return m.remote("PUT", "dir", nil)
	}
	return m.edit(func(fs base.FileSystem) error {
		return fs.Mkdir(m.Path)
	})
}
