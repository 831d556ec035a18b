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
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/xelalexv/mediadrive/pkg/control"
	"github.com/xelalexv/mediadrive/pkg/daemon"
	"github.com/xelalexv/mediadrive/pkg/hostio"
	"github.com/xelalexv/mediadrive/pkg/library"
)

//
func NewServe() *Serve {

	s := &Serve{}
	s.Runner = *NewRunner(
		`serve [-l|--listen {address}] [--floppies {n}] [--harddisks {n}]
      [--library {dir}] [--index {dir}] [-m|--mount {drive}={source}]...`,
		"start the media drive daemon",
		`
Use the serve command to start the daemon. It manages a bay of floppy and hard
disk drives that media can be loaded into, and offers a control API for loading,
ejecting, and inspecting them. When a library directory is given, the media
files therein are indexed and can be searched and loaded by reference.`,
		"", `- On shutdown, modified media are written back to their sources where
  possible. Changes to media that cannot be written back are lost.

`+runnerHelpEpilogue, s.Run)

	s.AddMediaSettings(&s.Media)
	s.AddSetting(&s.Listen, "listen", "l", "", ":8888", "address to listen on", false)
	s.AddSetting(&s.Floppies, "floppies", "", "", daemon.DefaultFloppyDrives,
		"number of floppy drives", false)
	s.AddSetting(&s.HardDisks, "harddisks", "", "", daemon.DefaultHardDrives,
		"number of hard disk drives", false)
	s.AddSetting(&s.Library, "library", "", "", "", "media library directory", false)
	s.AddSetting(&s.Index, "index", "", "", ".mediadrive-index",
		"directory for the library search index", false)
	s.AddSetting(&s.Mounts, "mount", "m", "", nil,
		"media to load at start, as {drive}={source}", false)
	s.AddSetting(&s.Writable, "writable", "w", "", false,
		"load start-up media writable", false)

	return s
}

//
type Serve struct {
	Runner
	Media MediaSettings
	//
	Listen    string
	Floppies  int
	HardDisks int
	Library   string
	Index     string
	Mounts    []string
	Writable  bool
}

//
func (s *Serve) Run() error {

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := hostio.NewWatcher()
	if err != nil {
		log.Warnf("cannot watch host files, stale media will go unnoticed: %v", err)
		watcher = nil
	} else {
		defer watcher.Close()
	}

	d := daemon.NewDaemon(s.Media.newResolver(watcher), s.Floppies, s.HardDisks)
	defer d.Stop(context.Background())

	for _, m := range s.Mounts {
		if err := s.load(ctx, d, m); err != nil {
			log.Errorf("cannot load start-up media %s: %v", m, err)
		}
	}

	var index *library.Index
	if s.Library != "" {
		if index, err = library.NewIndex(s.Index, s.Library); err != nil {
			return err
		}
		defer index.Stop()
	}

	api := control.NewAPI(s.Listen, d, index)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(api.Serve)

	if index != nil {
		g.Go(index.Start)
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return api.Stop()
	})

	return g.Wait()
}

//
func (s *Serve) load(ctx context.Context, d *daemon.Daemon, mount string) error {

	drive, source, ok := cutMount(mount)
	if !ok {
		return errInvalidMount
	}

	n, err := d.ParseDrive(drive)
	if err != nil {
		return err
	}

	_, err = d.Load(ctx, n, source, s.Writable, false)
	return err
}
