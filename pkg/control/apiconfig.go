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
)

// Config describes the media handling settings of the daemon.
type Config struct {
	Bridge   string   `json:"bridge"`
	Codecs   []string `json:"codecs"`
	MaxSize  int64    `json:"maxSize"`
	MaxDepth int      `json:"maxDepth"`
	Drives   int      `json:"drives"`
	Library  bool     `json:"library"`
}

//
func (a *api) getConfig(w http.ResponseWriter, req *http.Request) {

	r := a.daemon.Resolver()
	opts := r.Options()

	conf := &Config{
		Bridge:   r.Bridge().Name(),
		Codecs:   opts.Capabilities.List(),
		MaxSize:  opts.MaxSize,
		MaxDepth: opts.MaxDepth,
		Drives:   a.daemon.DriveCount(),
		Library:  a.index != nil,
	}

	if item := getArg(req, "item"); item != "" {
		var val interface{}
		switch item {
		case "bridge":
			val = conf.Bridge
		case "codecs":
			val = conf.Codecs
		case "maxsize":
			val = conf.MaxSize
		case "maxdepth":
			val = conf.MaxDepth
		default:
			handleError(fmt.Errorf("unknown config item: %s", item),
				http.StatusUnprocessableEntity, w)
			return
		}
		if wantsJSON(req) {
			sendJSONReply(map[string]interface{}{item: val}, http.StatusOK, w)
		} else {
			sendReply([]byte(fmt.Sprintf("%v", val)), http.StatusOK, w)
		}
		return
	}

	if wantsJSON(req) {
		sendJSONReply(conf, http.StatusOK, w)
		return
	}

	sendReply([]byte(fmt.Sprintf(
		"bridge:    %s\ncodecs:    %s\nmax size:  %d\nmax depth: %d\ndrives:    %d\nlibrary:   %v\n",
		conf.Bridge, strings.Join(conf.Codecs, ", "), conf.MaxSize,
		conf.MaxDepth, conf.Drives, conf.Library)), http.StatusOK, w)
}
