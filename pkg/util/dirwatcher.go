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

package util

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

/*
	NewDirWatcher creates a file system watcher for the given directories. When
	recursive is set, whole directory trees are watched, and directories created
	within them are added to the watch as they appear. More directories can be
	added later on with Watch. The watcher does not deliver events until Start
	has been called.
*/
func NewDirWatcher(recursive bool, dirs ...string) (*DirWatcher, error) {

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ret := &DirWatcher{
		watcher:   w,
		recursive: recursive,
		refs:      map[string]int{},
		release:   make(chan bool),
	}

	for _, d := range dirs {
		if err := ret.Watch(d); err != nil {
			w.Close()
			return nil, err
		}
	}

	return ret, nil
}

//
type DirWatcher struct {
	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	recursive bool
	refs      map[string]int
	release   chan bool
	running   bool
}

// Watch adds dir to the watch. Directories are reference counted, so the
// same directory may be watched on behalf of several clients.
func (dw *DirWatcher) Watch(dir string) error {

	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.watcher == nil {
		return fmt.Errorf("directory watcher stopped")
	}

	dir = filepath.Clean(dir)
	if dw.refs[dir] > 0 {
		dw.refs[dir]++
		return nil
	}

	if dw.recursive {
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return dw.add(p)
			}
			return nil
		})
		if err != nil {
			log.Errorf("error walking directory '%s': %v", dir, err)
			return err
		}
	} else if err := dw.add(dir); err != nil {
		return err
	}

	dw.refs[dir] = 1
	return nil
}

// Unwatch drops one reference to dir, and stops watching it when there are
// none left.
func (dw *DirWatcher) Unwatch(dir string) error {

	dw.mu.Lock()
	defer dw.mu.Unlock()

	dir = filepath.Clean(dir)
	if dw.watcher == nil || dw.refs[dir] == 0 {
		return nil
	}

	if dw.refs[dir]--; dw.refs[dir] > 0 {
		return nil
	}
	delete(dw.refs, dir)

	if err := dw.watcher.Remove(dir); err != nil {
		log.Errorf("error removing watch for directory '%s': %v", dir, err)
		return err
	}
	log.WithField("path", dir).Debug("stopping directory watch")
	return nil
}

//
func (dw *DirWatcher) add(dir string) error {
	if err := dw.watcher.Add(dir); err != nil {
		log.Errorf("error adding watch for directory '%s': %v", dir, err)
		return err
	}
	log.WithField("path", dir).Debug("starting directory watch")
	return nil
}

/*
	Start starts this directory watcher. Whenever there is a change in a watched
	directory, handler is called.

	If flush is not nil, a timer is set to expire after backoff time with each
	change. If there were no further changes by the time the timer expires, flush
	is called. Otherwise the timer is set again. Handler and flush are always
	called from the same go routine, so clients do not have to be thread safe.
*/
func (dw *DirWatcher) Start(backoff time.Duration,
	handler func(fsnotify.Event) error, flush func() error) error {

	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.watcher == nil {
		return fmt.Errorf("directory watcher not initialized or stopped")
	}

	if dw.running {
		return fmt.Errorf("directory watcher already started")
	}

	dw.running = true
	events := dw.watcher.Events
	errors := dw.watcher.Errors

	go func() {

		timer := time.NewTimer(backoff)
		timer.Stop()

		for {
			select {

			case evt, ok := <-events:

				if !ok {
					log.Debug("directory watcher routine exiting")
					timer.Stop()
					dw.release <- true
					return
				}

				timer.Stop()
				dw.handleEvent(evt)
				if err := handler(evt); err != nil {
					log.Errorf("error in watch event handler: %v", err)
				}
				if flush != nil {
					timer.Reset(backoff)
				}

			case err, ok := <-errors:
				if ok {
					log.Errorf("directory watcher error: %v", err)
				}

			case <-timer.C:
				if flush == nil {
					continue
				}
				if err := flush(); err != nil {
					log.Errorf("error flushing: %v", err)
				}
			}
		}
	}()

	return nil
}

/*
	Stop signals this directory watcher to stop, and waits until it has stopped.
	A stopped directory watcher cannot be started again.
*/
func (dw *DirWatcher) Stop() {

	dw.mu.Lock()
	w := dw.watcher
	running := dw.running
	dw.watcher = nil
	dw.running = false
	dw.mu.Unlock()

	if w == nil {
		return
	}

	log.Debug("closing directory watcher")
	if err := w.Close(); err != nil {
		log.Errorf("could not close file watcher: %v", err)
	}
	if running {
		<-dw.release
	}
}

// handleEvent extends a recursive watch to newly created directories.
func (dw *DirWatcher) handleEvent(evt fsnotify.Event) {

	log.WithFields(
		log.Fields{"path": evt.Name, "op": evt.Op}).Debug("handling event")

	if !dw.recursive || !evt.Has(fsnotify.Create) {
		return
	}

	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.watcher == nil {
		return
	}

	if info, err := os.Lstat(evt.Name); err == nil && info.IsDir() {
		dw.add(evt.Name)
	}
}
