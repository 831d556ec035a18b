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
	"context"
	"time"

	"github.com/spf13/afero"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// DefaultMaxSize caps the size of a fetched image.
const DefaultMaxSize = 256 * 1024 * 1024

// DefaultHTTPTimeout bounds a single remote fetch.
const DefaultHTTPTimeout = 60 * time.Second

// Bridge moves image bytes between the host and the media layer. There is one
// implementation per host environment, selected at build time.
type Bridge interface {

	// Name identifies the bridge in logs
	Name() string

	// Fetch loads the complete contents of src. Archive entries are not
	// fetched directly; fetch their archive instead.
	Fetch(ctx context.Context, src *base.Source) (*base.Buffer, error)

	// Persist writes data back to src, all-or-nothing. Unless forced, it fails
	// with a conflict if the host copy is not the one data was derived from.
	Persist(ctx context.Context, src *base.Source, data []byte, opts PersistOptions) error

	// CanPersist reports whether src can be written back at all
	CanPersist(src *base.Source) bool
}

// DirectoryBridge is implemented by bridges with access to host directories,
// which can then serve as the content of a floppy built on the fly.
type DirectoryBridge interface {
	// Directory returns a read-only view of the directory src points to
	Directory(src *base.Source) (afero.Fs, error)
}

// PersistOptions modify a persist.
type PersistOptions struct {
	// Force skips the check for external modification
	Force bool
	// Expected is the fingerprint of the host copy the data was derived from,
	// usually that of the fetched buffer or of the last persist. If nil, the
	// fingerprint recorded at the last persist of the source is used, and
	// without one there is no check.
	Expected *base.Fingerprint
}

// expected returns the fingerprint to check the host copy against.
func (o PersistOptions) expected(recorded *base.Fingerprint) *base.Fingerprint {
	if o.Expected != nil {
		return o.Expected
	}
	return recorded
}

// Config holds the settings for creating a bridge.
type Config struct {
	MaxSize      int64
	HTTPTimeout  time.Duration
	Fs           afero.Fs
	Store        Store
	Fingerprints *Fingerprints
}

//
func (c Config) withDefaults() Config {
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Fingerprints == nil {
		c.Fingerprints = SharedFingerprints()
	}
	return c
}

// canceled maps a context error to a Canceled kind error.
func canceled(ctx context.Context, op string, src *base.Source) error {
	if err := ctx.Err(); err != nil {
		return base.NewError(base.KindCanceled, op, src.String(), err)
	}
	return nil
}
