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
	log "github.com/sirupsen/logrus"
)

// DefaultBridge returns the bridge for this build target. Images are stored
// in the browser's local storage, if the page has one.
func DefaultBridge(cfg Config) Bridge {
	if cfg.Store == nil {
		if ls, err := NewLocalStorage(DefaultStoragePrefix); err != nil {
			log.Warnf("browser storage not available, images are kept in memory: %v", err)
		} else {
			cfg.Store = ls
		}
	}
	return NewWeb(cfg)
}
