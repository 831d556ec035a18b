//go:build linux || darwin

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
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/fusefs"
)

//
func NewFuse() *Fuse {

	f := &Fuse{}
	f.Runner = *NewRunner(
		"fuse -s|--source {source} -m|--mountpoint {dir} [--debug]",
		"export the files on media via FUSE",
		`
Use the fuse command to make the files on FAT formatted media available in the
host file system, read-only. The export ends when the command is interrupted.`,
		"", runnerHelpEpilogue, f.Run)

	f.AddMediaSettings(&f.Media)
	f.AddSetting(&f.Source, "source", "s", "", nil, "media source", true)
	f.AddSetting(&f.Mountpoint, "mountpoint", "m", "", nil, "where to mount", true)
	f.AddSetting(&f.Debug, "debug", "", "", false, "print FUSE debug information", false)

	return f
}

//
type Fuse struct {
	Runner
	Media MediaSettings
	//
	Source     string
	Mountpoint string
	Debug      bool
}

//
func (f *Fuse) Run() error {

	m, err := f.Media.mount(context.Background(), f.Source, false)
	if err != nil {
		return err
	}
	defer m.Eject(context.Background(), false)

	fs, err := requireFS(m)
	if err != nil {
		return err
	}

	server, err := fusefs.Mount(f.Mountpoint, fs, f.Media.MaxDepth, f.Debug)
	if err != nil {
		return fmt.Errorf("cannot mount: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("unmounting")
		if err := server.Unmount(); err != nil {
			log.Errorf("unmount failed: %v", err)
		}
	}()

	server.Wait()
	return nil
}
