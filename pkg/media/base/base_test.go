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
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
func TestParseSource(t *testing.T) {

	tests := []struct {
		in      string
		typ     SourceType
		path    string
		entry   string
		archive SourceType
	}{
		{"/images/dos.img", SourceLocalPath, "/images/dos.img", "", 0},
		{"$basedir$/floppy/a.ima", SourceLocalPath, "/base/floppy/a.ima", "", 0},
		{"https://host/disks/b.img", SourceRemoteURL, "https://host/disks/b.img", "", 0},
		{"storage:games/c.img", SourceStorage, "games/c.img", "", 0},
		{"/images/set.zip!DISK1.IMG", SourceArchiveEntry, "/images/set.zip", "DISK1.IMG", SourceLocalPath},
		{"http://h/set.zip!d.img", SourceArchiveEntry, "http://h/set.zip", "d.img", SourceRemoteURL},
		{"/images/Games!.img", SourceLocalPath, "/images/Games!.img", "", 0},
		{"/images/Hits!/a.img", SourceLocalPath, "/images/Hits!/a.img", "", 0},
		{"/images/set.ZIP!Wow!.img", SourceArchiveEntry, "/images/set.ZIP", "Wow!.img", SourceLocalPath},
		{"/images/set.7z!", SourceArchiveEntry, "/images/set.7z", "", SourceLocalPath},
		{"dir:$basedir$/games", SourceDirectory, "/base/games", "", 0},
	}

	for _, tc := range tests {
		s, err := ParseSource(tc.in, "/base")
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.typ, s.Type(), tc.in)
		assert.Equal(t, filepath.FromSlash(tc.path), filepath.FromSlash(s.Path()), tc.in)
		assert.Equal(t, tc.entry, s.Entry(), tc.in)
		if tc.typ == SourceArchiveEntry {
			assert.Equal(t, tc.archive, s.Archive().Type(), tc.in)
		}
	}
}

//
func TestParseSourceInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"/images/$basedir$/a.img",
		"$basedir$/a/$basedir$/b.img",
		"storage:",
		"dir:",
		"/a.zip!b.zip!c.img",
	} {
		_, err := ParseSource(in, "/base")
		assert.ErrorIs(t, err, ErrInvalidPath, in)
	}

	_, err := ParseSource("$basedir$/a.img", "")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

//
func TestSourceKey(t *testing.T) {
	a, err := ParseSource("/images/./set.zip!A.IMG", "")
	require.NoError(t, err)
	b, err := ParseSource("/images/set.zip!A.IMG", "")
	require.NoError(t, err)
	c, err := ParseSource("/images/set.zip!a.img", "")
	require.NoError(t, err)

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, b.Key(), c.Key())
	assert.Equal(t, "A.IMG", a.Name())
}

//
func TestErrorKinds(t *testing.T) {

	err := Errorf(KindNoSpace, "write", "/GAME.EXE", "need %d clusters", 3)
	assert.True(t, errors.Is(err, ErrNoSpace))
	assert.False(t, errors.Is(err, ErrIo))
	assert.Equal(t, KindNoSpace, KindOf(err))

	wrapped := fmt.Errorf("mount failed: %w", err)
	assert.ErrorIs(t, wrapped, ErrNoSpace)
	assert.Equal(t, KindNoSpace, KindOf(wrapped))

	assert.Equal(t, err, Wrap(KindIo, "x", "", err))
	assert.Equal(t, KindIo, KindOf(Wrap(KindIo, "x", "", errors.New("boom"))))
	assert.Nil(t, Wrap(KindIo, "x", "", nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

//
func TestBufferOwnership(t *testing.T) {

	data := []byte("some image bytes")
	buf := NewBuffer(data, NewLocalSource("/a.img"))

	assert.Equal(t, ComputeFingerprint([]byte("some image bytes")), buf.Fingerprint())
	assert.True(t, buf.Verify())
	assert.Equal(t, len(data), buf.Len())

	owned := buf.Release()
	assert.Equal(t, data, owned)
	assert.True(t, buf.IsReleased())
	assert.Equal(t, 0, buf.Len())
	assert.False(t, buf.Fingerprint().IsZero())
}
