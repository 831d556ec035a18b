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

package sector

import (
	"bytes"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/format"
	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// Image gives bounds checked byte access to a raw sector or flux level image.
// It does not interpret the contents.
type Image struct {
	mu       sync.RWMutex
	data     []byte
	format   base.ImageFormat
	geometry *format.Geometry
	window   int // accessible size, excluding any trailing footer
	writable bool
	modified bool
}

// Mount takes ownership of the bytes in buf. Geometry is determined for raw
// sector images of a standard floppy size, flux images have none. A fixed VHD
// footer is kept in the image but is outside the accessible window.
func Mount(buf *base.Buffer, writable bool, f base.ImageFormat) (*Image, error) {

	if buf == nil || buf.IsReleased() {
		return nil, base.Errorf(base.KindFormat, "mount", "", "no image data")
	}

	img := &Image{format: f, writable: writable}

	if f == base.FormatRawSector {
		res := format.Identify(buf.Bytes())
		img.geometry = res.Geometry
		if res.Format == base.FormatRawSector && res.DataSize > 0 {
			img.window = res.DataSize
		}
	}

	img.data = buf.Release()
	if img.window == 0 {
		img.window = len(img.data)
	}

	log.WithFields(log.Fields{
		"format":   f,
		"size":     img.window,
		"geometry": img.geometry,
		"writable": writable}).Debug("sector image mounted")

	return img, nil
}

//
func (i *Image) Format() base.ImageFormat {
	return i.format
}

// Geometry returns the floppy geometry of the image, nil if unknown.
func (i *Image) Geometry() *format.Geometry {
	return i.geometry
}

//
func (i *Image) Size() int {
	return i.window
}

//
func (i *Image) ReadRange(off, n int) ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if err := i.check("read range", off, n); err != nil {
		return nil, err
	}
	return bytes.Clone(i.data[off : off+n]), nil
}

//
func (i *Image) WriteRange(off int, data []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.writable {
		return base.Errorf(base.KindReadOnly, "write range", "", "image is read-only")
	}
	if err := i.check("write range", off, len(data)); err != nil {
		return err
	}
	copy(i.data[off:], data)
	i.modified = true
	return nil
}

// check rejects any range not fully inside the window. Ranges are never
// clamped.
func (i *Image) check(op string, off, n int) error {
	if off < 0 || n < 0 || off > i.window || n > i.window-off {
		return base.Errorf(base.KindOutOfBounds, op, "",
			"range %d+%d outside image of %d bytes", off, n, i.window)
	}
	return nil
}

// ReadSector reads the sector at cylinder c, head h, sector s (1 based).
func (i *Image) ReadSector(c, h, s int) ([]byte, error) {
	off, err := i.sectorOffset("read sector", c, h, s)
	if err != nil {
		return nil, err
	}
	return i.ReadRange(off, i.geometry.SectorSize)
}

// WriteSector writes a full sector at cylinder c, head h, sector s.
func (i *Image) WriteSector(c, h, s int, data []byte) error {
	off, err := i.sectorOffset("write sector", c, h, s)
	if err != nil {
		return err
	}
	if len(data) != i.geometry.SectorSize {
		return base.Errorf(base.KindOutOfBounds, "write sector", "",
			"sector data has %d bytes, expected %d", len(data), i.geometry.SectorSize)
	}
	return i.WriteRange(off, data)
}

//
func (i *Image) sectorOffset(op string, c, h, s int) (int, error) {
	if i.geometry == nil {
		return 0, base.Errorf(base.KindOutOfBounds, op, "",
			"image has no known geometry")
	}
	off, err := i.geometry.Offset(c, h, s)
	if err != nil {
		return 0, base.NewError(base.KindOutOfBounds, op, "", err)
	}
	return off, nil
}

// Snapshot returns a copy of the complete image, including any footer.
func (i *Image) Snapshot() []byte {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return bytes.Clone(i.data)
}

//
func (i *Image) IsWritable() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.writable
}

//
func (i *Image) SetWritable(w bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.writable = w
}

//
func (i *Image) IsModified() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.modified
}

//
func (i *Image) SetModified(m bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.modified = m
}
