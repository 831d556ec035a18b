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

package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/archive"
	"github.com/xelalexv/mediadrive/pkg/util"
)

// key under which the time of the last completed library scan is kept
var scanKey = []byte("last-scan")

// settle time for watcher events before pending changes get committed
const settleTime = 5 * time.Second

// Entry is what gets indexed for each media file.
type Entry struct {
	Name       string    `json:"name"`
	Dir        string    `json:"dir"`
	Type       string    `json:"type"`
	Compressor string    `json:"compressor"`
	Size       int64     `json:"size"`
	Modified   time.Time `json:"modified"`
}

// Index is a search index over the image and archive files below a library
// directory. Once started, it follows changes to the library.
type Index struct {
	path    string
	lib     string
	fresh   bool
	stopped atomic.Bool
	index   bleve.Index
	pending *batcher
	watcher *util.DirWatcher
}

// NewIndex opens the search index at path for the media library at lib, or
// creates it if it does not exist yet.
func NewIndex(path, lib string) (*Index, error) {

	i := &Index{}

	var err error
	if i.path, err = filepath.Abs(path); err != nil {
		return nil, err
	}
	if i.lib, err = filepath.Abs(lib); err != nil {
		return nil, err
	}

	if i.index, i.fresh, err = openStore(i.path); err != nil {
		log.WithField("index", i.path).Errorf("cannot open library index: %v", err)
		return nil, err
	}

	i.pending = newBatcher(i.index)
	return i, nil
}

// openStore opens the bleve store at path, creating it when missing.
func openStore(path string) (bleve.Index, bool, error) {

	logger := log.WithField("index", path)

	ix, err := bleve.Open(path)
	if err == nil {
		logger.Info("library index opened")
		return ix, false, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, false, err
	}

	if ix, err = bleve.New(path, entryMapping()); err != nil {
		return nil, false, err
	}
	logger.Info("library index created")
	return ix, true, nil
}

// entryMapping indexes names as text, and type and compressor as keywords so
// that queries like "type:img" work.
func entryMapping() mapping.IndexMapping {

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("name", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("dir", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("type", bleve.NewKeywordFieldMapping())
	doc.AddFieldMappingsAt("compressor", bleve.NewKeywordFieldMapping())
	doc.AddFieldMappingsAt("size", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("modified", bleve.NewDateTimeFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Library returns the absolute path of the library directory.
func (i *Index) Library() string {
	return i.lib
}

// Start brings the index up to date with the library and starts watching it.
func (i *Index) Start() error {

	t := time.Now()
	removed, err := i.prune()
	if err != nil {
		return fmt.Errorf("error pruning library index: %v", err)
	}
	added, err := i.scan()
	if err != nil {
		return fmt.Errorf("error scanning library: %v", err)
	}
	if err := i.pending.commit(); err != nil {
		return err
	}
	if err := i.index.SetInternal(scanKey, []byte(t.Format(time.RFC3339Nano))); err != nil {
		log.Warnf("cannot record library scan time: %v", err)
	}

	log.WithFields(log.Fields{
		"removed":  removed,
		"added":    added,
		"duration": time.Since(t)}).Info("library index synchronized")

	if i.watcher, err = util.NewDirWatcher(true, i.lib); err != nil {
		return fmt.Errorf("error creating library watcher: %v", err)
	}
	return i.watcher.Start(settleTime, i.onChange, i.pending.commit)
}

//
func (i *Index) Stop() {
	if i.stopped.Swap(true) {
		return
	}
	if i.watcher != nil {
		i.watcher.Stop()
	}
	i.pending.close()
}

// prune drops entries whose files are gone from the library.
func (i *Index) prune() (int, error) {

	if i.fresh {
		return 0, nil
	}

	const page = 500
	var gone []string

	for from := 0; ; from += page {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), page, from, false)
		res, err := i.index.Search(req)
		if err != nil {
			return 0, err
		}
		for _, h := range res.Hits {
			if _, err := os.Stat(i.abs(h.ID)); errors.Is(err, fs.ErrNotExist) {
				gone = append(gone, h.ID)
			}
		}
		if len(res.Hits) < page {
			break
		}
	}

	for _, id := range gone {
		i.pending.remove(id)
	}
	return len(gone), nil
}

// scan adds media files modified since the last completed scan.
func (i *Index) scan() (int, error) {

	var since time.Time
	if !i.fresh {
		if raw, err := i.index.GetInternal(scanKey); err == nil && raw != nil {
			since, _ = time.Parse(time.RFC3339Nano, string(raw))
		}
	}
	log.WithField("since", since).Debug("scanning library")

	count := 0
	err := filepath.WalkDir(i.lib, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			log.WithField("path", p).Warnf("skipping: %v", err)
			return nil
		}
		if i.stopped.Load() {
			return fs.SkipAll
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil && info.ModTime().After(since) {
			if i.add(i.rel(p), info) {
				count++
			}
		}
		return nil
	})

	i.fresh = false
	return count, err
}

// onChange keeps the index in line with the library while watching.
func (i *Index) onChange(evt fsnotify.Event) error {

	rel := i.rel(evt.Name)
	logger := log.WithFields(log.Fields{"path": rel, "op": evt.Op})

	if evt.Has(fsnotify.Rename) || evt.Has(fsnotify.Remove) {
		logger.Debug("library file gone")
		i.pending.remove(rel)
		return nil
	}

	if evt.Has(fsnotify.Create) || evt.Has(fsnotify.Write) {
		info, err := os.Stat(evt.Name)
		if err != nil {
			logger.Warnf("cannot stat library file: %v", err)
		} else if !info.IsDir() {
			i.add(rel, info)
		}
	}

	return nil
}

// add queues rel for indexing and reports whether it names an image or
// archive.
func (i *Index) add(rel string, info fs.FileInfo) bool {

	name, typ, comp := archive.SplitNameTypeCompressor(filepath.Base(rel))
	if typ == "" && comp == "" {
		return false
	}

	dir := filepath.ToSlash(filepath.Dir(rel))
	if dir == "." {
		dir = ""
	}

	i.pending.add(rel, Entry{
		Name:       searchable(name),
		Dir:        searchable(dir),
		Type:       typ,
		Compressor: comp,
		Size:       info.Size(),
		Modified:   info.ModTime(),
	})
	return true
}

// searchable turns punctuation in names into blanks, so that the parts of
// names like Monkey_Island-disk1 become separate terms.
func searchable(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune("`~!@#$%^&*_-+=()[]{}|;:',.<>?/\\", r) {
			return ' '
		}
		return r
	}, s)
}

//
func (i *Index) rel(p string) string {
	if r, err := filepath.Rel(i.lib, p); err == nil && !strings.HasPrefix(r, "..") {
		return r
	}
	return p
}

//
func (i *Index) abs(rel string) string {
	return filepath.Join(i.lib, rel)
}
