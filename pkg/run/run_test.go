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

package run

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelalexv/mediadrive/pkg/control"
	"github.com/xelalexv/mediadrive/pkg/fat"
	"github.com/xelalexv/mediadrive/pkg/library"
	"github.com/xelalexv/mediadrive/pkg/media/base"
)

//
func mountFile(t *testing.T, path string) *fat.Volume {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	v, err := fat.Mount(base.NewBuffer(data, nil), false, fat.Options{})
	require.NoError(t, err)
	return v
}

func TestFormatPutRm(t *testing.T) {

	dir := t.TempDir()
	img := filepath.Join(dir, "new.img")

	f := NewFormat()
	cmd := f.Cmd()
	cmd.SetArgs([]string{"-o", img, "-g", "720K", "--label", "blank"})
	require.NoError(t, cmd.Execute())

	v := mountFile(t, img)
	assert.Equal(t, "BLANK", v.Label())
	assert.Equal(t, 737280, v.Size())

	// no accidental overwrite
	cmd = NewFormat().Cmd()
	cmd.SetArgs([]string{"-o", img})
	assert.Error(t, cmd.Execute())

	input := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(input, []byte("hello"), 0o644))

	cmd = NewPut().Cmd()
	cmd.SetArgs([]string{"-s", img, "-p", "/HELLO.TXT", "-i", input})
	require.NoError(t, cmd.Execute())

	cmd = NewMkdir().Cmd()
	cmd.SetArgs([]string{"-s", img, "-p", "/DOCS"})
	require.NoError(t, cmd.Execute())

	v = mountFile(t, img)
	data, err := v.ReadFile("/HELLO.TXT")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
	entries, err := v.List("/")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	cmd = NewRm().Cmd()
	cmd.SetArgs([]string{"-s", img, "-p", "/HELLO.TXT"})
	require.NoError(t, cmd.Execute())

	v = mountFile(t, img)
	_, err = v.ReadFile("/HELLO.TXT")
	assert.ErrorIs(t, err, base.ErrNotFound)

	// source and drive are mutually exclusive
	cmd = NewRm().Cmd()
	cmd.SetArgs([]string{"-s", img, "-d", "fd0", "-p", "/X"})
	assert.Error(t, cmd.Execute())
}

func TestSettingsFromEnv(t *testing.T) {

	img := filepath.Join(t.TempDir(), "env.img")
	t.Setenv("MEDIADRIVE_LABEL", "fromenv")
	t.Setenv("MEDIADRIVE_GEOMETRY", "360K")

	cmd := NewFormat().Cmd()
	cmd.SetArgs([]string{"-o", img})
	require.NoError(t, cmd.Execute())

	v := mountFile(t, img)
	assert.Equal(t, "FROMENV", v.Label())
	assert.Equal(t, 368640, v.Size())
}

func TestRequiredSetting(t *testing.T) {
	cmd := NewFormat().Cmd()
	cmd.SetArgs([]string{"-g", "720K"})
	assert.Error(t, cmd.Execute())
}

func TestCutMount(t *testing.T) {

	tests := []struct {
		in     string
		drive  string
		source string
		ok     bool
	}{
		{"fd0=/a.img", "fd0", "/a.img", true},
		{" hd1 = games.zip!c.img ", "hd1", "games.zip!c.img", true},
		{"http://x/a.img", "", "", false},
		{"fd0=", "", "", false},
	}

	for _, tt := range tests {
		d, s, ok := cutMount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.drive, d)
			assert.Equal(t, tt.source, s)
		}
	}
}

func TestSaveAsFromDirectory(t *testing.T) {

	dir := t.TempDir()
	tree := filepath.Join(dir, "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(tree, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tree, "docs", "manual.txt"),
		[]byte("manual"), 0o644))

	img := filepath.Join(dir, "auto.img")

	cmd := NewSaveAs().Cmd()
	cmd.SetArgs([]string{"-s", "dir:" + tree, "-t", img, "--floppysize", "720K"})
	require.NoError(t, cmd.Execute())

	v := mountFile(t, img)
	assert.Equal(t, 737280, v.Size())
	data, err := v.ReadFile("/DOCS/MANUAL.TXT")
	require.NoError(t, err)
	assert.Equal(t, []byte("manual"), data)

	cmd = NewSaveAs().Cmd()
	cmd.SetArgs([]string{"-t", img})
	assert.Error(t, cmd.Execute())
}

func TestPrintHits(t *testing.T) {

	var out bytes.Buffer
	printHits(&out, &library.SearchResult{
		Hits: []library.Hit{
			{Ref: "games/monkey1.img", Type: "img", Size: 737280},
			{Ref: "games/monkey2.img.zip", Type: "img", Compressor: "zip", Size: 10},
		},
		Total: 5,
	})
	assert.Equal(t, `  1  library:games/monkey1.img      img      720 KiB
  2  library:games/monkey2.img.zip  img/zip  1 KiB

3 more not shown, raise --items or refine the term
`, out.String())

	out.Reset()
	printHits(&out, &library.SearchResult{Complete: true})
	assert.Equal(t, "nothing found\n", out.String())
}

func TestPrintBuilds(t *testing.T) {

	local := &control.Build{Release: "1.0", Go: "go1.25.1", Platform: "linux/amd64",
		Codecs: []string{"deflate", "store"}}
	daemon := &control.Build{Release: "1.0", Go: "go1.25.1", Platform: "linux/arm64",
		Bridge: "native", Codecs: []string{"rar"}, Library: true}

	var out bytes.Buffer
	printBuilds(&out, local, daemon)
	assert.Equal(t, `mediactl  1.0, go1.25.1 linux/amd64, codecs deflate store
daemon    1.0, go1.25.1 linux/arm64, codecs rar, native bridge, library
`, out.String())

	out.Reset()
	printBuilds(&out, local, nil)
	assert.Contains(t, out.String(), "daemon    not reachable\n")
}
