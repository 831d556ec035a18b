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

package util

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
func TestBlock(t *testing.T) {

	index := BlockIndex{
		"byte":  {0, 1},
		"word":  {1, 2},
		"dword": {3, 4},
		"text":  {7, 4},
		"far":   {100, 2},
	}

	data := make([]byte, 16)
	b := NewBlock(index, data)

	b.SetByte("byte", 0xf0)
	b.SetInt("word", 0x1234)
	b.SetInt("dword", 0xdeadbeef)
	b.SetSlice("text", []byte("ABCD"))

	assert.Equal(t, byte(0xf0), b.GetByte("byte"))
	assert.Equal(t, 0x1234, b.GetInt("word"))
	assert.Equal(t, 0xdeadbeef, b.GetInt("dword"))
	assert.Equal(t, "ABCD", b.GetString("text"))
	assert.Equal(t, []byte{0x34, 0x12}, data[1:3])

	assert.Nil(t, b.GetSlice("far"))
	assert.Equal(t, 0, b.GetInt("far"))
	assert.Panics(t, func() { b.GetInt("unknown") })
}

//
func TestAnnotations(t *testing.T) {

	var a Annotations
	a.Annotate("flag", true)
	a.Annotate("count", 42)
	a.Annotate("name", "DISK1")

	assert.True(t, a.HasAnnotation("flag"))
	assert.True(t, a.GetAnnotation("flag").Bool())
	assert.Equal(t, 42, a.GetAnnotation("count").Int())
	assert.Equal(t, "DISK1", a.GetAnnotation("name").String())
	assert.Equal(t, []string{"count", "flag", "name"}, a.Keys())

	missing := a.GetAnnotation("missing")
	assert.False(t, a.HasAnnotation("missing"))
	assert.False(t, missing.Bool())
	assert.Equal(t, "", missing.String())
}

//
func TestDirWatcher(t *testing.T) {

	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	dw, err := NewDirWatcher(true, root)
	require.NoError(t, err)

	var mu sync.Mutex
	seen := map[string]bool{}

	require.NoError(t, dw.Start(10*time.Millisecond,
		func(evt fsnotify.Event) error {
			mu.Lock()
			defer mu.Unlock()
			seen[evt.Name] = true
			return nil
		}, nil))
	defer dw.Stop()

	assert.Error(t, dw.Start(time.Second, nil, nil))

	file := filepath.Join(sub, "disk.img")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[file]
	}, 5*time.Second, 10*time.Millisecond)
}

//
func TestDirWatcherRefCount(t *testing.T) {

	dir := t.TempDir()
	dw, err := NewDirWatcher(false)
	require.NoError(t, err)
	defer dw.Stop()

	require.NoError(t, dw.Watch(dir))
	require.NoError(t, dw.Watch(dir))
	assert.Equal(t, 2, dw.refs[filepath.Clean(dir)])

	require.NoError(t, dw.Unwatch(dir))
	assert.Equal(t, 1, dw.refs[filepath.Clean(dir)])
	require.NoError(t, dw.Unwatch(dir))
	assert.Equal(t, 0, dw.refs[filepath.Clean(dir)])
}
