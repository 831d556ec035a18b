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

package media

import (
	"sync"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// Registry tracks writable mounts by source key, so that a source is mounted
// writable at most once. Resolvers share the process wide registry, unless
// given one of their own.
type Registry struct {
	mu     sync.Mutex
	claims map[string]string
}

var shared = NewRegistry()

// SharedRegistry returns the process wide registry.
func SharedRegistry() *Registry {
	return shared
}

//
func NewRegistry() *Registry {
	return &Registry{claims: map[string]string{}}
}

// claim registers id as the writable user of key.
func (r *Registry) claim(key, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if holder, ok := r.claims[key]; ok {
		return base.Errorf(base.KindAlreadyMounted, "mount", key,
			"already mounted writable by %s", holder)
	}
	r.claims[key] = id
	return nil
}

// release drops the claim on key, if it is held by id.
func (r *Registry) release(key, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claims[key] == id {
		delete(r.claims, key)
	}
}

// Holder returns the ID of the writable mount holding key, if any.
func (r *Registry) Holder(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.claims[key]
	return id, ok
}
