//go:build js && wasm

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
	"context"
	"encoding/base64"
	"fmt"
	"syscall/js"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// DefaultStoragePrefix is put in front of storage keys, to keep images apart
// from whatever else the page keeps in local storage.
const DefaultStoragePrefix = "mediadrive:"

/*
	LocalStorage is a Store on top of the browser's window.localStorage. The
	storage only holds strings, so images are kept base64 encoded. Browsers cap
	local storage at a few megabytes per origin, which is plenty for floppies
	but not for hard disk images. Writes beyond the quota fail with an Io
	error.
*/
type LocalStorage struct {
	prefix  string
	storage js.Value
}

// NewLocalStorage returns a store using the page's local storage, with keys
// prefixed by prefix.
func NewLocalStorage(prefix string) (ls *LocalStorage, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("accessing local storage: %v", r)
		}
	}()

	storage := js.Global().Get("localStorage")
	if storage.IsUndefined() || storage.IsNull() {
		return nil, fmt.Errorf("no local storage in this environment")
	}

	return &LocalStorage{prefix: prefix, storage: storage}, nil
}

//
func (s *LocalStorage) Get(ctx context.Context, key string) (data []byte, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = base.Errorf(base.KindIo, "get", key, "local storage: %v", r)
		}
	}()

	item := s.storage.Call("getItem", s.prefix+key)
	if item.IsNull() || item.IsUndefined() {
		return nil, base.Errorf(base.KindNotFound, "get", key, "no such key")
	}

	data, err = base64.StdEncoding.DecodeString(item.String())
	if err != nil {
		return nil, base.NewError(base.KindFormat, "get", key, err)
	}
	return data, nil
}

// Put stores data under key. A failing write, e.g. for exceeding the quota,
// leaves the previous value in place.
func (s *LocalStorage) Put(ctx context.Context, key string, data []byte) (err error) {

	defer func() {
		if r := recover(); r != nil {
			err = base.Errorf(base.KindIo, "put", key, "local storage: %v", r)
		}
	}()

	s.storage.Call("setItem", s.prefix+key, base64.StdEncoding.EncodeToString(data))
	return nil
}

// Remove deletes key from the storage.
func (s *LocalStorage) Remove(key string) {
	s.storage.Call("removeItem", s.prefix+key)
}
