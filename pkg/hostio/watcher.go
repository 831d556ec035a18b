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

package hostio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/media/base"
	"github.com/xelalexv/mediadrive/pkg/util"
)

// Watcher notices changes to the host files of mounted media, so that a UI can
// offer a reload before a flush runs into a conflict. Subscribers receive the
// fingerprint of the file as it is after the change, and decide themselves
// whether that differs from the copy they hold.
type Watcher struct {
	dw   *util.DirWatcher
	mu   sync.Mutex
	subs map[string]map[int]ChangeFunc
	next int
}

// ChangeFunc is called with the fingerprint of a changed host file, nil if the
// file is gone or unreadable.
type ChangeFunc func(current *base.Fingerprint)

//
func NewWatcher() (*Watcher, error) {

	dw, err := util.NewDirWatcher(false)
	if err != nil {
		return nil, err
	}

	w := &Watcher{dw: dw, subs: map[string]map[int]ChangeFunc{}}
	if err := dw.Start(0, w.handle, nil); err != nil {
		dw.Stop()
		return nil, err
	}

	return w, nil
}

// Watch calls onChange whenever the host file behind src changes. Only local
// files can be watched. The returned function ends the subscription.
func (w *Watcher) Watch(src *base.Source, onChange ChangeFunc) (func(), error) {

	if src.Type() != base.SourceLocalPath {
		return nil, fmt.Errorf("cannot watch %s sources", src.Type())
	}

	path, err := filepath.Abs(src.Path())
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)

	// the directory is watched, since editors often replace files by rename
	if err := w.dw.Watch(dir); err != nil {
		return nil, err
	}

	w.mu.Lock()
	id := w.next
	w.next++
	if w.subs[path] == nil {
		w.subs[path] = map[int]ChangeFunc{}
	}
	w.subs[path][id] = onChange
	w.mu.Unlock()

	log.WithField("path", path).Debug("watching host file")

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			if subs, ok := w.subs[path]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(w.subs, path)
				}
			}
			w.mu.Unlock()
			w.dw.Unwatch(dir)
		})
	}, nil
}

//
func (w *Watcher) handle(evt fsnotify.Event) error {

	if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) &&
		!evt.Has(fsnotify.Rename) && !evt.Has(fsnotify.Remove) {
		return nil
	}

	path := filepath.Clean(evt.Name)

	w.mu.Lock()
	var callbacks []ChangeFunc
	for _, cb := range w.subs[path] {
		callbacks = append(callbacks, cb)
	}
	w.mu.Unlock()

	if len(callbacks) == 0 {
		return nil
	}

	var current *base.Fingerprint
	if data, err := os.ReadFile(path); err == nil {
		fp := base.ComputeFingerprint(data)
		current = &fp
	}

	log.WithFields(log.Fields{
		"path":    path,
		"op":      evt.Op,
		"present": current != nil}).Debug("host file of mounted media changed")

	for _, cb := range callbacks {
		cb(current)
	}

	return nil
}

//
func (w *Watcher) Close() {
	w.dw.Stop()
}
