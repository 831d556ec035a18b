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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/xelalexv/mediadrive/pkg/control"
	"github.com/xelalexv/mediadrive/pkg/media"
	"github.com/xelalexv/mediadrive/pkg/media/base"
)

//
func NewLs() *Ls {

	l := &Ls{}
	l.Runner = *NewRunner(
		"ls [-s|--source {source}]... [-d|--drive {drive}] [-p|--path {dir}] [-r|--recursive]",
		"list files on media",
		`
Use the ls command to list the contents of a directory on FAT formatted media.
Media are either given as one or more sources, which are opened directly, or
as a drive of a running daemon.`,
		"", runnerHelpEpilogue, l.Run)

	l.AddBaseSettings()
	l.AddMediaSettings(&l.Media)
	l.AddSetting(&l.Sources, "source", "s", "", nil, "media source(s)", false)
	l.AddSetting(&l.Drive, "drive", "d", "", "", "daemon drive, e.g. fd0", false)
	l.AddSetting(&l.Path, "path", "p", "", "/", "directory to list", false)
	l.AddSetting(&l.Recursive, "recursive", "r", "", false,
		"list sub-directories as well (sources only)", false)

	return l
}

//
type Ls struct {
	Runner
	Media MediaSettings
	//
	Sources   []string
	Drive     string
	Path      string
	Recursive bool
}

//
func (l *Ls) Run() error {

	if l.Drive != "" {
		resp, err := l.apiCall("GET", fmt.Sprintf("/drive/%s/ls?path=%s",
			l.Drive, url.QueryEscape(l.Path)), false, nil)
		if err != nil {
			return err
		}
		defer resp.Close()
		_, err = io.Copy(os.Stdout, resp)
		return err
	}

	if len(l.Sources) == 0 {
		return fmt.Errorf("no source or drive given")
	}

	// sources are listed concurrently, output keeps their order
	out := make([]bytes.Buffer, len(l.Sources))
	g, ctx := errgroup.WithContext(context.Background())

	for ix := range l.Sources {
		ix := ix
		g.Go(func() error {
			return l.list(ctx, l.Sources[ix], &out[ix])
		})
	}

	err := g.Wait()
	for ix := range out {
		if _, e := out[ix].WriteTo(os.Stdout); e != nil {
			return e
		}
	}
	return err
}

//
func (l *Ls) list(ctx context.Context, source string, w io.Writer) error {

	m, err := l.Media.mount(ctx, source, false)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	defer m.Eject(context.Background(), false)

	fs, err := requireFS(m)
	if err != nil {
		return err
	}

	stats, err := fs.Stats()
	if err != nil {
		return err
	}

	if len(l.Sources) > 1 {
		fmt.Fprintf(w, "\n%s:", source)
	}

	if !l.Recursive {
		entries, err := fs.List(l.Path)
		if err != nil {
			return err
		}
		control.WriteFileList(w, fs.Label(), l.Path, entries, stats)
		return nil
	}

	walker, ok := fs.(interface {
		Walk(p string, fn func(path string, e *base.DirectoryEntry) error) error
	})
	if !ok {
		return fmt.Errorf("%s: recursive listing not supported", source)
	}

	fmt.Fprintln(w)
	return walker.Walk(l.Path, func(p string, e *base.DirectoryEntry) error {
		if e.IsDir() {
			fmt.Fprintf(w, "%-50s  %10s  %s\n", p, "<DIR>", control.Attributes(e))
		} else {
			fmt.Fprintf(w, "%-50s  %10d  %s\n", p, e.Size(), control.Attributes(e))
		}
		return nil
	})
}

// requireFS returns the file system of m, or an error if there is none.
func requireFS(m *media.Mounted) (base.FileSystem, error) {
	fs, ok := m.FS()
	if !ok {
		return nil, fmt.Errorf("%s: media have no file system (format: %s)",
			m.Source(), m.Format())
	}
	return fs, nil
}
