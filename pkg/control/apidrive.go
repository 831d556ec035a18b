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
	"strings"

	"github.com/xelalexv/mediadrive/pkg/library"
)

//
func (a *api) status(w http.ResponseWriter, req *http.Request) {

	stats := a.daemon.Statuses()

	if wantsJSON(req) {
		sendJSONReply(stats, http.StatusOK, w)
		return
	}

	var sb strings.Builder
	for _, s := range stats {
		sb.WriteString(fmt.Sprintf("%s\n", s))
	}
	sendReply([]byte(sb.String()), http.StatusOK, w)
}

//
func (a *api) load(w http.ResponseWriter, req *http.Request) {

	drive := a.getDrive(w, req)
	if drive == -1 {
		return
	}

	source := getArg(req, "source")
	if source == "" {
		handleError(fmt.Errorf("no source given"), http.StatusBadRequest, w)
		return
	}

	if library.IsRef(source) {
		if a.index == nil {
			handleError(fmt.Errorf("media library not available"),
				http.StatusServiceUnavailable, w)
			return
		}
		var err error
		if source, err = a.index.Resolve(source); handleError(
			err, http.StatusBadRequest, w) {
			return
		}
	}

	m, err := a.daemon.Load(req.Context(), drive, source,
		isFlagSet(req, "writable"), isFlagSet(req, "force"))
	if handleError(err, http.StatusInternalServerError, w) {
		return
	}

	if wantsJSON(req) {
		stat, err := a.daemon.Status(drive)
		if handleError(err, http.StatusInternalServerError, w) {
			return
		}
		sendJSONReply(stat, http.StatusOK, w)
		return
	}

	sendReply([]byte(fmt.Sprintf("loaded %s (%s) into drive %s",
		m.Source(), m.Format(), driveArg(req))), http.StatusOK, w)
}

//
func (a *api) eject(w http.ResponseWriter, req *http.Request) {

	drive := a.getDrive(w, req)
	if drive == -1 {
		return
	}

	if handleError(a.daemon.Eject(req.Context(), drive, isFlagSet(req, "flush")),
		http.StatusInternalServerError, w) {
		return
	}

	sendReply([]byte(fmt.Sprintf("ejected media from drive %s", driveArg(req))),
		http.StatusOK, w)
}

//
func (a *api) flush(w http.ResponseWriter, req *http.Request) {

	drive := a.getDrive(w, req)
	if drive == -1 {
		return
	}

	if handleError(a.daemon.Flush(req.Context(), drive, isFlagSet(req, "force")),
		http.StatusInternalServerError, w) {
		return
	}

	sendReply([]byte(fmt.Sprintf("flushed media in drive %s", driveArg(req))),
		http.StatusOK, w)
}

//
func (a *api) saveAs(w http.ResponseWriter, req *http.Request) {

	drive := a.getDrive(w, req)
	if drive == -1 {
		return
	}

	target := getArg(req, "target")
	if target == "" {
		handleError(fmt.Errorf("no target given"), http.StatusBadRequest, w)
		return
	}

	if handleError(a.daemon.SaveAs(req.Context(), drive, target,
		isFlagSet(req, "force")), http.StatusInternalServerError, w) {
		return
	}

	sendReply([]byte(fmt.Sprintf("saved media in drive %s to %s",
		driveArg(req), target)), http.StatusOK, w)
}

//
func (a *api) protect(w http.ResponseWriter, req *http.Request) {

	drive := a.getDrive(w, req)
	if drive == -1 {
		return
	}

	m, release, err := a.daemon.GetMedia(drive)
	if handleError(err, http.StatusInternalServerError, w) {
		return
	}
	defer release()

	on := getArg(req, "on") != "false"
	if handleError(m.SetWriteProtected(on), http.StatusInternalServerError, w) {
		return
	}

	state := "off"
	if on {
		state = "on"
	}
	sendReply([]byte(fmt.Sprintf("write protection %s for drive %s",
		state, driveArg(req))), http.StatusOK, w)
}
