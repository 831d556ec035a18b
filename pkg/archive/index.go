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

package archive

import (
	"bytes"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// DefaultMaxSize caps the size of an extracted entry.
const DefaultMaxSize = 256 * 1024 * 1024

// Entry describes one file inside an archive.
type Entry struct {
	Name           string
	Offset         int64
	CompressedSize int64
	Size           int64
	Codec          Codec
}

// reader is implemented once per container format.
type reader interface {
	entries() ([]*Entry, error)
	open(e *Entry) (io.ReadCloser, error)
}

// Index is the table of contents of an opened archive. Entry names are case
// sensitive.
type Index struct {
	container Container
	origin    *base.Source
	caps      Capabilities
	maxSize   int64
	rd        reader
	entries   []*Entry
	byName    map[string]*Entry
}

// Open reads the table of contents of the archive in buf. The archive buffer
// is only read, and stays with the caller. A maxSize <= 0 selects
// DefaultMaxSize.
func Open(buf *base.Buffer, caps Capabilities, maxSize int64) (*Index, error) {

	if buf == nil || buf.IsReleased() {
		return nil, base.Errorf(base.KindArchive, "open", "", "no archive data")
	}

	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	name := ""
	if buf.Origin() != nil {
		name = buf.Origin().String()
	}

	data := buf.Bytes()
	container := Detect(data)

	log.WithFields(log.Fields{
		"source":    name,
		"container": container,
		"size":      len(data)}).Debug("opening archive")

	var rd reader
	var err error

	switch container {

	case ContainerZip:
		rd, err = newZipReader(data)

	case Container7z:
		if !caps.Has(Codec7z) {
			return nil, base.Errorf(base.KindUnsupportedCodec, "open", name,
				"7z archives not supported on this target")
		}
		rd, err = new7zReader(data)

	case ContainerGzip:
		rd, err = newGzipReader(data, buf.Origin())

	case ContainerRar:
		if !caps.Has(CodecRar) {
			return nil, base.Errorf(base.KindUnsupportedCodec, "open", name,
				"rar archives not supported on this target")
		}
		rd, err = newRarReader(data)

	default:
		return nil, base.Errorf(base.KindArchive, "open", name,
			"not an archive")
	}

	if err != nil {
		return nil, base.Wrap(base.KindArchive, "open", name, err)
	}

	ret := &Index{
		container: container,
		origin:    buf.Origin(),
		caps:      caps,
		maxSize:   maxSize,
		rd:        rd,
		byName:    map[string]*Entry{},
	}

	entries, err := rd.entries()
	if err != nil {
		return nil, base.Wrap(base.KindArchive, "open", name, err)
	}

	for _, e := range entries {
		if _, dup := ret.byName[e.Name]; dup {
			return nil, base.Errorf(base.KindFormat, "open", name,
				"duplicate entry '%s'", e.Name)
		}
		ret.byName[e.Name] = e
		ret.entries = append(ret.entries, e)
	}

	log.WithFields(log.Fields{
		"source":    name,
		"container": container,
		"entries":   len(ret.entries)}).Debug("archive opened")

	return ret, nil
}

//
func (ix *Index) Container() Container {
	return ix.container
}

// Entries returns the file entries in archive order. Directories are not
// included.
func (ix *Index) Entries() []*Entry {
	ret := make([]*Entry, len(ix.entries))
	copy(ret, ix.entries)
	return ret
}

//
func (ix *Index) Lookup(name string) (*Entry, bool) {
	e, ok := ix.byName[name]
	return e, ok
}

// Extract decompresses the named entry into a new buffer. The decompressed
// length has to match the size recorded in the archive.
func (ix *Index) Extract(name string) (*base.Buffer, error) {

	e, ok := ix.byName[name]
	if !ok {
		return nil, base.Errorf(base.KindNotFound, "extract", name,
			"no such entry in archive")
	}

	if !ix.caps.Has(e.Codec) {
		return nil, base.Errorf(base.KindUnsupportedCodec, "extract", name,
			"codec '%s' not available", e.Codec)
	}

	if e.Size > ix.maxSize {
		return nil, base.Errorf(base.KindArchive, "extract", name,
			"entry size %d exceeds limit of %d", e.Size, ix.maxSize)
	}

	rc, err := ix.rd.open(e)
	if err != nil {
		return nil, base.Wrap(base.KindArchive, "extract", name, err)
	}
	defer rc.Close()

	var sponge bytes.Buffer
	if e.Size >= 0 {
		sponge.Grow(int(e.Size))
	}

	n, err := io.Copy(&sponge, io.LimitReader(rc, ix.maxSize+1))
	if err != nil {
		return nil, base.Wrap(base.KindArchive, "extract", name, err)
	}

	if n > ix.maxSize {
		return nil, base.Errorf(base.KindArchive, "extract", name,
			"decompressed data exceeds limit of %d", ix.maxSize)
	}

	if n != e.Size {
		return nil, base.NewError(base.KindArchive, "extract", name,
			fmt.Errorf("decompressed %d bytes, expected %d", n, e.Size))
	}

	log.WithFields(log.Fields{
		"entry": name,
		"codec": e.Codec,
		"size":  n}).Debug("entry extracted")

	var origin *base.Source
	if ix.origin != nil {
		origin = base.NewArchiveEntrySource(ix.origin, name)
	}

	return base.NewBuffer(sponge.Bytes(), origin), nil
}
