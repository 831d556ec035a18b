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

package base

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint is a BLAKE2b-256 digest of a byte buffer.
type Fingerprint [blake2b.Size256]byte

//
func ComputeFingerprint(data []byte) Fingerprint {
	return Fingerprint(blake2b.Sum256(data))
}

//
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

//
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// Buffer is an owned, contiguous image buffer together with the fingerprint
// computed when it was loaded. Ownership passes to exactly one adapter via
// Release; afterwards the buffer is empty.
type Buffer struct {
	data        []byte
	fingerprint Fingerprint
	origin      *Source
}

// NewBuffer takes ownership of data and fingerprints it. Callers must not
// retain data.
func NewBuffer(data []byte, origin *Source) *Buffer {
	return &Buffer{
		data:        data,
		fingerprint: ComputeFingerprint(data),
		origin:      origin,
	}
}

//
func (b *Buffer) Len() int {
	return len(b.data)
}

// Bytes gives read access to the buffer contents for inspection, e.g. by the
// format identifier. Callers must not modify or retain the returned slice.
func (b *Buffer) Bytes() []byte {
	return b.data
}

//
func (b *Buffer) Fingerprint() Fingerprint {
	return b.fingerprint
}

// Origin returns the source the buffer was loaded from, may be nil.
func (b *Buffer) Origin() *Source {
	return b.origin
}

// Verify recomputes the fingerprint and compares it against the one taken at
// load time.
func (b *Buffer) Verify() bool {
	return ComputeFingerprint(b.data) == b.fingerprint
}

// Release transfers ownership of the bytes to the caller. The buffer is empty
// afterwards.
func (b *Buffer) Release() []byte {
	ret := b.data
	b.data = nil
	return ret
}

//
func (b *Buffer) IsReleased() bool {
	return b.data == nil
}
