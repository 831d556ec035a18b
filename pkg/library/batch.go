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
	"sync"

	"github.com/blevesearch/bleve/v2"
	log "github.com/sirupsen/logrus"
)

// number of queued changes that triggers a commit
const batchLimit = 100

// batcher collects index changes and commits them in bulk.
type batcher struct {
	mu     sync.Mutex
	index  bleve.Index
	batch  *bleve.Batch
	count  int
	closed bool
}

//
func newBatcher(ix bleve.Index) *batcher {
	return &batcher{index: ix, batch: ix.NewBatch()}
}

//
func (b *batcher) add(id string, e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if err := b.batch.Index(id, e); err != nil {
		log.WithField("file", id).Errorf("cannot queue index entry: %v", err)
		return
	}
	b.queued()
}

//
func (b *batcher) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.batch.Delete(id)
	b.queued()
}

// queued commits once the limit is exceeded. Caller holds the lock.
func (b *batcher) queued() {
	if b.count++; b.count > batchLimit {
		if err := b.commitLocked(); err != nil {
			log.Errorf("cannot commit index changes: %v", err)
		}
	}
}

//
func (b *batcher) commit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	return b.commitLocked()
}

//
func (b *batcher) commitLocked() error {
	if b.count == 0 {
		return nil
	}
	log.WithField("changes", b.count).Debug("committing index changes")
	if err := b.index.Batch(b.batch); err != nil {
		return err
	}
	b.batch = b.index.NewBatch()
	b.count = 0
	return nil
}

// close commits what is pending and closes the index.
func (b *batcher) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if err := b.commitLocked(); err != nil {
		log.Errorf("cannot commit index changes: %v", err)
	}
	if err := b.index.Close(); err != nil {
		log.Errorf("cannot close library index: %v", err)
	}
	b.closed = true
}
