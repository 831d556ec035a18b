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
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/xelalexv/mediadrive/pkg/media"
	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// FileInfo is the JSON form of a directory entry.
type FileInfo struct {
	Name       string `json:"name"`
	ShortName  string `json:"shortName,omitempty"`
	Size       int    `json:"size"`
	Dir        bool   `json:"dir"`
	Attributes string `json:"attributes,omitempty"`
}

// Listing is the JSON form of a directory listing.
type Listing struct {
	Label string      `json:"label,omitempty"`
	Path  string      `json:"path"`
	Files []*FileInfo `json:"files"`
	Free  int         `json:"free"`
	Total int         `json:"total"`
}

//
func (a *api) driveList(w http.ResponseWriter, req *http.Request) {
	a.withFS(w, req, func(fs base.FileSystem, p string) {

		entries, err := fs.List(p)
		if handleError(err, http.StatusInternalServerError, w) {
			return
		}
		stats, err := fs.Stats()
		if handleError(err, http.StatusInternalServerError, w) {
			return
		}

		if wantsJSON(req) {
			l := &Listing{
				Label: fs.Label(),
				Path:  p,
				Free:  stats.FreeBytes(),
				Total: stats.Clusters() * stats.ClusterSize(),
			}
			for _, e := range entries {
				l.Files = append(l.Files, &FileInfo{
					Name:       e.Name(),
					ShortName:  e.GetAnnotation(base.AnnotationShortName).String(),
					Size:       e.Size(),
					Dir:        e.IsDir(),
					Attributes: Attributes(e),
				})
			}
			sendJSONReply(l, http.StatusOK, w)
			return
		}

		read, write := io.Pipe()
		go func() {
			WriteFileList(write, fs.Label(), p, entries, stats)
			write.Close()
		}()
		sendStreamReply(read, http.StatusOK, w)
	})
}

//
func (a *api) getFile(w http.ResponseWriter, req *http.Request) {
	a.withFS(w, req, func(fs base.FileSystem, p string) {
		data, err := fs.ReadFile(p)
		if handleError(err, http.StatusInternalServerError, w) {
			return
		}
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", path.Base(p)))
		sendStreamReply(bytes.NewReader(data), http.StatusOK, w)
	})
}

//
func (a *api) putFile(w http.ResponseWriter, req *http.Request) {
	a.withFS(w, req, func(fs base.FileSystem, p string) {

		data, err := io.ReadAll(http.MaxBytesReader(w, req.Body, MaxUploadSize))
		if handleError(err, http.StatusRequestEntityTooLarge, w) {
			return
		}
		if handleError(fs.WriteFile(p, data), http.StatusInternalServerError, w) {
			return
		}
		sendReply([]byte(fmt.Sprintf("wrote %d bytes to %s", len(data), p)),
			http.StatusOK, w)
	})
}

//
func (a *api) deleteFile(w http.ResponseWriter, req *http.Request) {
	a.withFS(w, req, func(fs base.FileSystem, p string) {
		if handleError(fs.DeleteFile(p), http.StatusInternalServerError, w) {
			return
		}
		sendReply([]byte(fmt.Sprintf("deleted %s", p)), http.StatusOK, w)
	})
}

//
func (a *api) mkdir(w http.ResponseWriter, req *http.Request) {
	a.withFS(w, req, func(fs base.FileSystem, p string) {
		if handleError(fs.Mkdir(p), http.StatusInternalServerError, w) {
			return
		}
		sendReply([]byte(fmt.Sprintf("created %s", p)), http.StatusOK, w)
	})
}

// dump sends a hex dump of a range of the raw medium, or of a file if the
// file argument is given.
func (a *api) dump(w http.ResponseWriter, req *http.Request) {
	a.withMedia(w, req, func(m *media.Mounted) {

		var data []byte

		if file := getArg(req, "file"); file != "" {
			fs, ok := m.FS()
			if !ok {
				handleError(fmt.Errorf("media in drive %s have no file system",
					driveArg(req)), http.StatusUnprocessableEntity, w)
				return
			}
			var err error
			if data, err = fs.ReadFile(file); handleError(
				err, http.StatusInternalServerError, w) {
				return
			}

		} else {
			ra, ok := m.Ranges()
			if !ok {
				handleError(fmt.Errorf("media in drive %s have unknown format",
					driveArg(req)), http.StatusUnprocessableEntity, w)
				return
			}

			offset, err := getIntArg(req, "offset", 0)
			if handleError(err, http.StatusBadRequest, w) {
				return
			}
			length, err := getIntArg(req, "length", 512)
			if handleError(err, http.StatusBadRequest, w) {
				return
			}
			if data, err = ra.ReadRange(offset, length); handleError(
				err, http.StatusInternalServerError, w) {
				return
			}
		}

		if isFlagSet(req, "raw") {
			sendStreamReply(bytes.NewReader(data), http.StatusOK, w)
			return
		}

		read, write := io.Pipe()
		go func() {
			d := hex.Dumper(write)
			d.Write(data)
			d.Close()
			write.Close()
		}()
		sendStreamReply(read, http.StatusOK, w)
	})
}

// withMedia runs fn with the media in the addressed drive, keeping the drive
// locked meanwhile.
func (a *api) withMedia(w http.ResponseWriter, req *http.Request,
	fn func(m *media.Mounted)) {

	drive := a.getDrive(w, req)
	if drive == -1 {
		return
	}

	m, release, err := a.daemon.GetMedia(drive)
	if handleError(err, http.StatusInternalServerError, w) {
		return
	}
	defer release()

	fn(m)
}

//
func (a *api) withFS(w http.ResponseWriter, req *http.Request,
	fn func(fs base.FileSystem, path string)) {

	a.withMedia(w, req, func(m *media.Mounted) {
		fs, ok := m.FS()
		if !ok {
			handleError(fmt.Errorf("media in drive %s (%s) have no file system",
				driveArg(req), m.Format()), http.StatusUnprocessableEntity, w)
			return
		}
		p := getArg(req, "path")
		if p == "" {
			p = "/"
		}
		fn(fs, p)
	})
}

// Attributes renders the DOS attributes of an entry in the usual RHSA form.
func Attributes(e *base.DirectoryEntry) string {
	ret := []byte("----")
	for ix, a := range []string{base.AnnotationReadOnly, base.AnnotationHidden,
		base.AnnotationSystem, base.AnnotationArchive} {
		if e.HasAnnotation(a) && e.GetAnnotation(a).Bool() {
			ret[ix] = "RHSA"[ix]
		}
	}
	return string(ret)
}

//
func WriteFileList(w io.Writer, label, dir string, entries []*base.DirectoryEntry,
	stats *base.FsStats) {

	if label == "" {
		label = "NO NAME"
	}
	fmt.Fprintf(w, "\n Volume %s\n Directory of %s\n\n", label, dir)

	files, bytes := 0, 0
	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintf(w, "%-40s  %10s  %s\n", e.Name(), "<DIR>", Attributes(e))
		} else {
			fmt.Fprintf(w, "%-40s  %10d  %s\n", e.Name(), e.Size(), Attributes(e))
			files++
			bytes += e.Size()
		}
	}

	fmt.Fprintf(w, "\n%10d file(s) %12d bytes\n%23d bytes free\n\n",
		files, bytes, stats.FreeBytes())
}
