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

package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
func touch(t *testing.T, path string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestIndex(t *testing.T) {

	lib := t.TempDir()
	touch(t, filepath.Join(lib, "games", "Monkey_Island-disk1.img"))
	touch(t, filepath.Join(lib, "games", "Monkey_Island-disk2.img.zip"))
	touch(t, filepath.Join(lib, "dos", "msdos622.ima"))
	touch(t, filepath.Join(lib, "notes.txt"))

	ix, err := NewIndex(filepath.Join(t.TempDir(), "index"), lib)
	require.NoError(t, err)
	require.NoError(t, ix.Start())
	defer ix.Stop()

	res, err := ix.Search(Query{Term: "monkey", Limit: 10})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"games/Monkey_Island-disk1.img",
		"games/Monkey_Island-disk2.img.zip",
	}, res.Refs())
	assert.True(t, res.Complete)

	res, err = ix.Search(Query{Term: "monkey", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 1)
	assert.False(t, res.Complete)

	res, err = ix.Search(Query{Term: "notes", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	_, err = ix.Search(Query{Term: "  ", Limit: 10})
	assert.Error(t, err)

	touch(t, filepath.Join(lib, "dos", "win311.img"))
	assert.Eventually(t, func() bool {
		res, err := ix.Search(Query{Term: "win311", Limit: 10})
		return err == nil && len(res.Hits) == 1
	}, 15*time.Second, 100*time.Millisecond)
}

func TestSearchByType(t *testing.T) {

	lib := t.TempDir()
	touch(t, filepath.Join(lib, "games", "Monkey_Island-disk1.img"))
	touch(t, filepath.Join(lib, "games", "Monkey_Island-disk2.IMG.zip"))
	touch(t, filepath.Join(lib, "games", "Monkey_Island-hd.vhd"))

	ix, err := NewIndex(filepath.Join(t.TempDir(), "index"), lib)
	require.NoError(t, err)
	require.NoError(t, ix.Start())
	defer ix.Stop()

	res, err := ix.Search(Query{Term: "monkey", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 3)

	res, err = ix.Search(Query{Term: "monkey", Type: "IMG", Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)

	hits := map[string]Hit{}
	for _, h := range res.Hits {
		hits[h.Ref] = h
	}
	assert.Equal(t, Hit{Ref: "games/Monkey_Island-disk1.img", Type: "img", Size: 1},
		hits["games/Monkey_Island-disk1.img"])
	assert.Equal(t, Hit{Ref: "games/Monkey_Island-disk2.IMG.zip", Type: "img",
		Compressor: "zip", Size: 1}, hits["games/Monkey_Island-disk2.IMG.zip"])

	res, err = ix.Search(Query{Term: "monkey", Type: "ima", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.True(t, res.Complete)
}

func TestResolve(t *testing.T) {

	lib := t.TempDir()
	ix, err := NewIndex(filepath.Join(t.TempDir(), "index"), lib)
	require.NoError(t, err)
	defer ix.Stop()

	p, err := ix.Resolve("library:dos/a.img")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ix.Library(), "dos", "a.img"), p)

	p, err = ix.Resolve("games/b.img")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ix.Library(), "games", "b.img"), p)

	for _, ref := range []string{"library:../etc/passwd", "/etc/passwd", "library:", ".."} {
		_, err := ix.Resolve(ref)
		assert.Error(t, err, ref)
	}

	assert.True(t, IsRef("library:a.img"))
	assert.False(t, IsRef("/a.img"))
}
