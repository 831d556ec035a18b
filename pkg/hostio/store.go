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
	"bytes"
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// Store is a key value store for images, standing in for browser storage.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

//
func NewMemStore() *MemStore {
	return &MemStore{data: map[string][]byte{}}
}

//
func (s *MemStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[key]
	if !ok {
		return nil, base.Errorf(base.KindNotFound, "get", key, "no such key")
	}
	return bytes.Clone(d), nil
}

//
func (s *MemStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = bytes.Clone(data)
	return nil
}

//
func fetchStored(ctx context.Context, s Store, src *base.Source,
	maxSize int64) ([]byte, error) {

	data, err := s.Get(ctx, src.Path())
	if err != nil {
		return nil, base.Wrap(base.KindIo, "fetch", src.String(), err)
	}
	if int64(len(data)) > maxSize {
		return nil, base.Errorf(base.KindIo, "fetch", src.String(),
			"image of %d bytes exceeds limit of %d", len(data), maxSize)
	}
	return data, nil
}

// persistStored writes to a store. A single Put replaces the value as a
// whole, so there is no partial write.
func persistStored(ctx context.Context, s Store, prints *Fingerprints,
	src *base.Source, data []byte, opts PersistOptions) error {

	return prints.Guard(src.Key(), func(known *base.Fingerprint) (base.Fingerprint, error) {

		if !opts.Force {
			current, err := s.Get(ctx, src.Path())
			exists := err == nil
			if err != nil && base.KindOf(err) != base.KindNotFound {
				return base.Fingerprint{}, base.Wrap(base.KindIo, "persist", src.String(), err)
			}
			if err := checkConflict("persist", src, opts.expected(known),
				current, exists); err != nil {
				return base.Fingerprint{}, err
			}
		}

		if err := s.Put(ctx, src.Path(), data); err != nil {
			return base.Fingerprint{}, base.Wrap(base.KindIo, "persist", src.String(), err)
		}

		log.WithFields(log.Fields{
			"key":  src.Path(),
			"size": len(data)}).Info("image stored")

		return base.ComputeFingerprint(data), nil
	})
}
