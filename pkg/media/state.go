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
	"time"
)

// State is a stage of media resolution.
type State int

const (
	StateUnresolved State = iota
	StateFetched
	StateDecompressed
	StateClassified
	StateMounted
	StateFailed
)

//
func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateFetched:
		return "fetched"
	case StateDecompressed:
		return "decompressed"
	case StateClassified:
		return "classified"
	case StateMounted:
		return "mounted"
	case StateFailed:
		return "failed"
	}
	return "invalid"
}

// Transition records entering a state.
type Transition struct {
	State  State
	At     time.Time
	Detail string
}
