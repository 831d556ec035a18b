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
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// zip flag bit signalling an LZMA end-of-stream marker
const flagLZMAEOS = 0x2

type zipReader struct {
	zr    *zip.Reader
	files map[string]*zip.File
}

//
func newZipReader(data []byte) (*zipReader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &zipReader{zr: zr, files: map[string]*zip.File{}}, nil
}

//
func (r *zipReader) entries() ([]*Entry, error) {

	var ret []*Entry

	for _, f := range r.zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		off, err := f.DataOffset()
		if err != nil {
			return nil, err
		}
		if _, dup := r.files[f.Name]; !dup {
			r.files[f.Name] = f
		}
		ret = append(ret, &Entry{
			Name:           f.Name,
			Offset:         off,
			CompressedSize: int64(f.CompressedSize64),
			Size:           int64(f.UncompressedSize64),
			Codec:          codecForMethod(f.Method),
		})
	}

	return ret, nil
}

// open decodes the raw entry data with our own decoder table, so that codec
// availability does not depend on what archive/zip registers globally. The
// CRC is checked when the stream reaches its end.
func (r *zipReader) open(e *Entry) (io.ReadCloser, error) {

	f, ok := r.files[e.Name]
	if !ok {
		return nil, fmt.Errorf("entry '%s' vanished", e.Name)
	}

	raw, err := f.OpenRaw()
	if err != nil {
		return nil, err
	}

	var rc io.ReadCloser

	switch f.Method {

	case methodStore:
		rc = io.NopCloser(raw)

	case methodDeflate:
		rc = flate.NewReader(raw)

	case methodDeflate64:
		var out []byte
		if out, err = inflate64(raw, int64(f.UncompressedSize64)); err == nil {
			rc = io.NopCloser(bytes.NewReader(out))
		}

	case methodBzip2:
		rc = io.NopCloser(bzip2.NewReader(raw))

	case methodLZMA:
		rc, err = newZipLZMAReader(raw, f.UncompressedSize64,
			f.Flags&flagLZMAEOS != 0)

	case methodZstd:
		var d *zstd.Decoder
		if d, err = zstd.NewReader(raw, zstd.WithDecoderConcurrency(1)); err == nil {
			rc = d.IOReadCloser()
		}

	case methodXZ:
		var xr *xz.Reader
		if xr, err = xz.NewReader(raw); err == nil {
			rc = io.NopCloser(xr)
		}

	default:
		return nil, fmt.Errorf("no decoder for zip method %d", f.Method)
	}

	if err != nil {
		return nil, err
	}

	return &crcReader{rc: rc, hash: crc32.NewIEEE(), want: f.CRC32}, nil
}

// newZipLZMAReader turns the zip flavour of an LZMA stream into the classic
// one. Zip prepends a 2 byte version and a 2 byte properties size to the 5
// properties bytes, and leaves out the uncompressed size.
func newZipLZMAReader(raw io.Reader, size uint64, eos bool) (io.ReadCloser, error) {

	var hdr [4]byte
	if _, err := io.ReadFull(raw, hdr[:]); err != nil {
		return nil, fmt.Errorf("reading LZMA header: %w", err)
	}

	propSize := int(binary.LittleEndian.Uint16(hdr[2:]))
	if propSize != 5 {
		return nil, fmt.Errorf("unexpected LZMA properties size %d", propSize)
	}

	classic := make([]byte, 13)
	if _, err := io.ReadFull(raw, classic[:5]); err != nil {
		return nil, fmt.Errorf("reading LZMA properties: %w", err)
	}

	if eos {
		binary.LittleEndian.PutUint64(classic[5:], ^uint64(0))
	} else {
		binary.LittleEndian.PutUint64(classic[5:], size)
	}

	lr, err := lzma.NewReader(io.MultiReader(bytes.NewReader(classic), raw))
	if err != nil {
		return nil, err
	}
	return io.NopCloser(lr), nil
}

type crcReader struct {
	rc   io.ReadCloser
	hash hash.Hash32
	want uint32
}

//
func (r *crcReader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	r.hash.Write(p[:n])
	if err == io.EOF && r.hash.Sum32() != r.want {
		return n, fmt.Errorf("checksum mismatch")
	}
	return n, err
}

//
func (r *crcReader) Close() error {
	return r.rc.Close()
}
