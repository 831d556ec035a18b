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

package control

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/xelalexv/mediadrive/pkg/util"
)

// Build describes a MediaDrive binary: its release, the toolchain and target
// it was built with, and the archive codecs it can unpack.
type Build struct {
	Release  string   `json:"release"`
	Go       string   `json:"go"`
	Platform string   `json:"platform"`
	Bridge   string   `json:"bridge,omitempty"`
	Codecs   []string `json:"codecs"`
	Library  bool     `json:"library"`
}

// NewBuild describes the running binary, with the given codecs.
func NewBuild(codecs []string) *Build {
	return &Build{
		Release:  util.MediaDriveVersion,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Codecs:   codecs,
	}
}

//
func (b *Build) String() string {
	ret := fmt.Sprintf("%s, %s %s, codecs %s",
		b.Release, b.Go, b.Platform, strings.Join(b.Codecs, " "))
	if b.Bridge != "" {
		ret += fmt.Sprintf(", %s bridge", b.Bridge)
	}
	if b.Library {
		ret += ", library"
	}
	return ret
}

//
func (a *api) version(w http.ResponseWriter, req *http.Request) {

	r := a.daemon.Resolver()
	b := NewBuild(r.Options().Capabilities.List())
	b.Bridge = r.Bridge().Name()
	b.Library = a.index != nil

	if wantsJSON(req) {
		sendJSONReply(b, http.StatusOK, w)
	} else {
		sendReply([]byte(b.String()+"\n"), http.StatusOK, w)
	}
}
