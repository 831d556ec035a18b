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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/daemon"
	"github.com/xelalexv/mediadrive/pkg/library"
	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// MaxUploadSize caps file uploads to mounted media.
const MaxUploadSize = 64 * 1024 * 1024

//
type API interface {
	Serve() error
	Stop() error
	Handler() http.Handler
}

// NewAPI creates the control API for d. index may be nil, in which case
// search is not available.
func NewAPI(addr string, d *daemon.Daemon, index *library.Index) API {
	a := &api{address: addr, daemon: d, index: index}
	a.router = a.routes()
	return a
}

//
type api struct {
	address string
	server  *http.Server
	daemon  *daemon.Daemon
	index   *library.Index
	router  *mux.Router
}

//
func (a *api) routes() *mux.Router {

	router := mux.NewRouter().StrictSlash(true)

	addRoute(router, "status", "GET", "/status", a.status)
	addRoute(router, "load", "PUT", "/drive/{drive}", a.load)
	addRoute(router, "eject", "DELETE", "/drive/{drive}", a.eject)
	addRoute(router, "flush", "POST", "/drive/{drive}/flush", a.flush)
	addRoute(router, "saveas", "POST", "/drive/{drive}/saveas", a.saveAs)
	addRoute(router, "protect", "PUT", "/drive/{drive}/protect", a.protect)
	addRoute(router, "ls", "GET", "/drive/{drive}/ls", a.driveList)
	addRoute(router, "get", "GET", "/drive/{drive}/file", a.getFile)
	addRoute(router, "put", "PUT", "/drive/{drive}/file", a.putFile)
	addRoute(router, "rm", "DELETE", "/drive/{drive}/file", a.deleteFile)
	addRoute(router, "mkdir", "PUT", "/drive/{drive}/dir", a.mkdir)
	addRoute(router, "dump", "GET", "/drive/{drive}/dump", a.dump)
	addRoute(router, "search", "GET", "/search", a.search)
	addRoute(router, "config", "GET", "/config", a.getConfig)
	addRoute(router, "version", "GET", "/version", a.version)

	return router
}

//
func (a *api) Handler() http.Handler {
	return a.router
}

//
func (a *api) Serve() error {

	log.WithField("address", a.address).Info("control API starting")

	a.server = &http.Server{
		Addr:              a.address,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := a.server.ListenAndServe(); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Info("control API stopped")
	return nil
}

//
func (a *api) Stop() error {
	if a.server == nil {
		return nil
	}
	log.Info("control API stopping")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}

//
func addRoute(r *mux.Router, name, method, pattern string,
	handler http.HandlerFunc) {
	r.Methods(method).Path(pattern).Name(name).Handler(logged(handler, name))
}

//
func logged(h http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, req)
		log.WithFields(log.Fields{
			"method":   req.Method,
			"uri":      req.RequestURI,
			"route":    name,
			"duration": time.Since(start)}).Debug("API call")
	})
}

// getDrive determines the drive addressed by the request. On error, a reply
// has already been sent and -1 is returned.
func (a *api) getDrive(w http.ResponseWriter, req *http.Request) int {
	drive, err := a.daemon.ParseDrive(mux.Vars(req)["drive"])
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return -1
	}
	return drive
}

//
func driveArg(req *http.Request) string {
	return mux.Vars(req)["drive"]
}

//
func getArg(req *http.Request, arg string) string {
	return req.URL.Query().Get(arg)
}

//
func getIntArg(req *http.Request, arg string, def int) (int, error) {
	val := getArg(req, arg)
	if val == "" {
		return def, nil
	}
	ret, err := strconv.Atoi(val)
	if err != nil {
		return def, fmt.Errorf("invalid value for '%s': %v", arg, err)
	}
	return ret, nil
}

//
func isFlagSet(req *http.Request, flag string) bool {
	val, ok := req.URL.Query()[flag]
	if !ok {
		return false
	}
	return len(val) == 0 || val[0] == "" || val[0] == "true" || val[0] == "1"
}

//
func wantsJSON(req *http.Request) bool {
	return req.Header.Get("Accept") == "application/json"
}

// handleError sends an error reply if err is not nil. The status for errors
// of the media layer and the daemon is derived from their kind, status is
// used for all others. Returns whether err was not nil.
func handleError(e error, status int, w http.ResponseWriter) bool {

	if e == nil {
		return false
	}

	status = statusFor(e, status)

	if status >= http.StatusInternalServerError {
		log.Errorf("API error: %v", e)
	} else {
		log.Debugf("API error: %v", e)
	}

	sendReply([]byte(e.Error()), status, w)
	return true
}

//
func statusFor(e error, def int) int {

	switch {
	case errors.Is(e, daemon.ErrInvalidDrive):
		return http.StatusUnprocessableEntity
	case errors.Is(e, daemon.ErrBusy):
		return http.StatusLocked
	case errors.Is(e, daemon.ErrEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(e, daemon.ErrModified):
		return http.StatusConflict
	}

	switch base.KindOf(e) {
	case base.KindNotFound:
		return http.StatusNotFound
	case base.KindInvalidPath, base.KindOutOfBounds:
		return http.StatusBadRequest
	case base.KindReadOnly, base.KindReadOnlyMedium:
		return http.StatusForbidden
	case base.KindConflict, base.KindAlreadyMounted, base.KindExists,
		base.KindNotEmpty:
		return http.StatusConflict
	case base.KindNoSpace:
		return http.StatusInsufficientStorage
	case base.KindFormat, base.KindArchive:
		return http.StatusUnprocessableEntity
	case base.KindUnsupportedCodec:
		return http.StatusNotImplemented
	case base.KindIo:
		return http.StatusBadGateway
	case base.KindCanceled:
		return http.StatusRequestTimeout
	}

	return def
}

//
func sendReply(body []byte, status int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendJSONReply(obj interface{}, status int, w http.ResponseWriter) {
	body, err := json.Marshal(obj)
	if err != nil {
		handleError(err, http.StatusInternalServerError, w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendStreamReply(r io.Reader, status int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(status)
	if _, err := io.Copy(w, r); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}
