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

package media

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelalexv/mediadrive/pkg/fat"
	"github.com/xelalexv/mediadrive/pkg/format"
	"github.com/xelalexv/mediadrive/pkg/hostio"
	"github.com/xelalexv/mediadrive/pkg/media/base"
)

//
func newTestResolver(t *testing.T) (*Resolver, afero.Fs) {
	fs := afero.NewMemMapFs()
	bridge := hostio.NewNative(hostio.Config{
		Fs:           fs,
		Fingerprints: hostio.NewFingerprints(),
	})
	return NewResolver(bridge, Options{Registry: NewRegistry()}), fs
}

//
func fileOnHost(t *testing.T, fs afero.Fs, image, name string) []byte {
	onHost, err := afero.ReadFile(fs, image)
	require.NoError(t, err)
	v, err := fat.Mount(base.NewBuffer(onHost, nil), false, fat.Options{})
	require.NoError(t, err)
	data, err := v.ReadFile(name)
	require.NoError(t, err)
	return data
}

//
func floppy(t *testing.T, files map[string][]byte) []byte {
	data, err := fat.Format(fat.FormatOptions{
		Geometry: format.GeometryByName("1.44M"), Label: "TEST"})
	require.NoError(t, err)
	if len(files) == 0 {
		return data
	}
	v, err := fat.Mount(base.NewBuffer(data, nil), true, fat.Options{})
	require.NoError(t, err)
	for name, content := range files {
		require.NoError(t, v.WriteFile(name, content))
	}
	return v.Snapshot()
}

//
func zipped(t *testing.T, name string, data []byte) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

//
func states(m *Mounted) []State {
	var ret []State
	for _, t := range m.History() {
		ret = append(ret, t.State)
	}
	return ret
}

func TestResolveFatVolume(t *testing.T) {

	r, fs := newTestResolver(t)
	img := floppy(t, map[string][]byte{"/BOOT.SYS": []byte("0123456789")})
	require.NoError(t, afero.WriteFile(fs, "/disks/a.img", img, 0o644))

	m, err := r.ResolveString(context.Background(), "/disks/a.img", MountOptions{})
	require.NoError(t, err)

	assert.Equal(t, base.FormatFatVolume, m.Format())
	assert.Equal(t, "fat", m.Identification().Rule)
	assert.Equal(t, []State{StateUnresolved, StateFetched, StateClassified,
		StateMounted}, states(m))
	assert.Equal(t, StateMounted, m.State())

	fsys, ok := m.FS()
	require.True(t, ok)
	data, err := fsys.ReadFile("boot.sys")
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), data)

	err = fsys.WriteFile("/NEW.TXT", []byte("x"))
	assert.ErrorIs(t, err, base.ErrReadOnly)

	_, ok = m.Ranges()
	assert.True(t, ok)
	assert.False(t, m.IsWritable())
}

func TestResolveArchiveEntry(t *testing.T) {

	r, fs := newTestResolver(t)
	img := floppy(t, map[string][]byte{"/BOOT.SYS": []byte("0123456789")})
	require.NoError(t, afero.WriteFile(fs, "/archive.zip", zipped(t, "disk.img", img), 0o644))

	m, err := r.ResolveString(context.Background(), "/archive.zip!disk.img",
		MountOptions{})
	require.NoError(t, err)
	assert.Equal(t, "disk.img", m.Entry())
	assert.Contains(t, states(m), StateDecompressed)

	fsys, ok := m.FS()
	require.True(t, ok)
	entries, err := fsys.List("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "BOOT.SYS", entries[0].Name())
	assert.Equal(t, 10, entries[0].Size())

	data, err := fsys.ReadFile("/BOOT.SYS")
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), data)

	_, err = r.ResolveString(context.Background(), "/archive.zip!DISK.IMG",
		MountOptions{})
	assert.ErrorIs(t, err, base.ErrNotFound)
}

func TestResolveUnwrapsArchive(t *testing.T) {

	r, fs := newTestResolver(t)
	img := floppy(t, nil)

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err := w.Write(img)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, afero.WriteFile(fs, "/a.img.gz", gz.Bytes(), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/b.zip", zipped(t, "b.img", img), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/nested.zip",
		zipped(t, "inner.zip", zipped(t, "c.img", img)), 0o644))

	for _, p := range []string{"/a.img.gz", "/b.zip"} {
		m, err := r.ResolveString(context.Background(), p,
			MountOptions{Writable: true})
		require.NoError(t, err, p)
		assert.Equal(t, base.FormatFatVolume, m.Format(), p)

		// the image can be changed in memory, but not written back
		fsys, ok := m.FS()
		require.True(t, ok)
		require.NoError(t, fsys.WriteFile("/X.TXT", []byte("x")))
		assert.False(t, m.CanPersist())
		assert.ErrorIs(t, m.Flush(context.Background(), false),
			base.ErrReadOnlyMedium)
		require.NoError(t, m.Eject(context.Background(), false))
	}

	_, err = r.ResolveString(context.Background(), "/nested.zip", MountOptions{})
	assert.ErrorIs(t, err, base.ErrFormat)
}

func TestResolveRawSector(t *testing.T) {

	r, fs := newTestResolver(t)
	img := make([]byte, 1474560)
	img[0] = 0x42
	require.NoError(t, afero.WriteFile(fs, "/raw.img", img, 0o644))

	m, err := r.ResolveString(context.Background(), "/raw.img", MountOptions{})
	require.NoError(t, err)
	assert.Equal(t, base.FormatRawSector, m.Format())

	_, ok := m.FS()
	assert.False(t, ok)

	ra, ok := m.Ranges()
	require.True(t, ok)
	data, err := ra.ReadRange(0, 512)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), data[0])

	sec, ok := m.Sectors()
	require.True(t, ok)
	assert.Equal(t, 18, sec.Geometry().SectorsPerTrack)
}

func TestResolveUnknown(t *testing.T) {

	r, fs := newTestResolver(t)
	require.NoError(t, afero.WriteFile(fs, "/readme.txt", []byte("hello"), 0o644))

	m, err := r.ResolveString(context.Background(), "/readme.txt", MountOptions{})
	require.NoError(t, err)
	assert.Equal(t, base.FormatUnknown, m.Format())
	assert.Equal(t, 5, m.Size())

	_, ok := m.FS()
	assert.False(t, ok)
	_, ok = m.Ranges()
	assert.False(t, ok)
	assert.NoError(t, m.Flush(context.Background(), false))
}

func TestResolveFailure(t *testing.T) {

	r, _ := newTestResolver(t)
	src := base.NewLocalSource("/missing.img")

	_, err := r.Resolve(context.Background(), src, MountOptions{Writable: true})
	assert.ErrorIs(t, err, base.ErrNotFound)

	// the claim of a failed resolution is released
	_, held := r.Holder(src)
	assert.False(t, held)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Resolve(ctx, src, MountOptions{})
	assert.ErrorIs(t, err, base.ErrCanceled)
}

func TestWriteExclusivity(t *testing.T) {

	r, fs := newTestResolver(t)
	require.NoError(t, afero.WriteFile(fs, "/a.img", floppy(t, nil), 0o644))

	var wg sync.WaitGroup
	results := make([]error, 2)
	mounted := make([]*Mounted, 2)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mounted[i], results[i] = r.ResolveString(context.Background(),
				"/a.img", MountOptions{Writable: true})
		}(i)
	}
	wg.Wait()

	var ok, already int
	var winner *Mounted
	for i, err := range results {
		switch {
		case err == nil:
			ok++
			winner = mounted[i]
		case base.KindOf(err) == base.KindAlreadyMounted:
			already++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, already)

	// read-only mounts may share the source
	ro, err := r.ResolveString(context.Background(), "/a.img", MountOptions{})
	require.NoError(t, err)
	require.NoError(t, ro.Eject(context.Background(), false))

	require.NoError(t, winner.Eject(context.Background(), false))
	require.NoError(t, winner.Eject(context.Background(), false))
	assert.True(t, winner.IsEjected())

	m, err := r.ResolveString(context.Background(), "/a.img",
		MountOptions{Writable: true})
	require.NoError(t, err)
	require.NoError(t, m.Eject(context.Background(), false))
}

func TestFlush(t *testing.T) {

	r, fs := newTestResolver(t)
	require.NoError(t, afero.WriteFile(fs, "/a.img", floppy(t, nil), 0o644))

	m, err := r.ResolveString(context.Background(), "/a.img",
		MountOptions{Writable: true})
	require.NoError(t, err)

	fsys, ok := m.FS()
	require.True(t, ok)
	require.NoError(t, fsys.WriteFile("/HELLO.TXT", []byte("hello")))
	assert.True(t, m.IsModified())

	require.NoError(t, m.Flush(context.Background(), false))
	assert.False(t, m.IsModified())

	onHost, err := afero.ReadFile(fs, "/a.img")
	require.NoError(t, err)
	v, err := fat.Mount(base.NewBuffer(onHost, nil), false, fat.Options{})
	require.NoError(t, err)
	data, err := v.ReadFile("/HELLO.TXT")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	// external modification
	require.NoError(t, afero.WriteFile(fs, "/a.img", floppy(t, nil), 0o644))
	require.NoError(t, fsys.WriteFile("/HELLO.TXT", []byte("again")))

	err = m.Flush(context.Background(), false)
	assert.ErrorIs(t, err, base.ErrConflict)
	assert.True(t, m.IsModified())

	// a failing flush keeps the medium in the drive
	assert.Error(t, m.Eject(context.Background(), true))
	assert.False(t, m.IsEjected())

	require.NoError(t, m.Flush(context.Background(), true))
	require.NoError(t, m.Eject(context.Background(), true))
	assert.ErrorIs(t, m.Flush(context.Background(), false), base.ErrNotFound)
}

func TestWriteProtect(t *testing.T) {

	r, fs := newTestResolver(t)
	require.NoError(t, afero.WriteFile(fs, "/a.img", floppy(t, nil), 0o644))

	m, err := r.ResolveString(context.Background(), "/a.img",
		MountOptions{Writable: true})
	require.NoError(t, err)
	fsys, _ := m.FS()

	require.NoError(t, m.SetWriteProtected(true))
	assert.True(t, m.IsWriteProtected())
	assert.ErrorIs(t, fsys.CreateFile("/A.TXT"), base.ErrReadOnly)

	require.NoError(t, m.SetWriteProtected(false))
	assert.NoError(t, fsys.CreateFile("/A.TXT"))

	ro, err := r.ResolveString(context.Background(), "/a.img", MountOptions{})
	require.NoError(t, err)
	assert.ErrorIs(t, ro.SetWriteProtected(false), base.ErrReadOnly)
	assert.NoError(t, ro.SetWriteProtected(true))
}

func TestReadOnlyMountDoesNotHideConflict(t *testing.T) {

	r, fs := newTestResolver(t)
	require.NoError(t, afero.WriteFile(fs, "/a.img", floppy(t, nil), 0o644))

	m, err := r.ResolveString(context.Background(), "/a.img",
		MountOptions{Writable: true})
	require.NoError(t, err)

	external := floppy(t, map[string][]byte{"/EXT.TXT": []byte("external")})
	require.NoError(t, afero.WriteFile(fs, "/a.img", external, 0o644))

	// fetching the changed host copy elsewhere must not count as the state
	// the writable mount derives from
	ro, err := r.ResolveString(context.Background(), "/a.img", MountOptions{})
	require.NoError(t, err)
	require.NoError(t, ro.Eject(context.Background(), false))

	fsys, _ := m.FS()
	require.NoError(t, fsys.WriteFile("/MINE.TXT", []byte("mine")))

	assert.ErrorIs(t, m.Flush(context.Background(), false), base.ErrConflict)
	assert.Equal(t, []byte("external"), fileOnHost(t, fs, "/a.img", "/EXT.TXT"))

	require.NoError(t, m.Flush(context.Background(), true))
	assert.Equal(t, []byte("mine"), fileOnHost(t, fs, "/a.img", "/MINE.TXT"))

	// after a flush, the flushed state is the reference
	require.NoError(t, fsys.WriteFile("/MINE.TXT", []byte("again")))
	require.NoError(t, m.Flush(context.Background(), false))
	require.NoError(t, m.Eject(context.Background(), false))
}

func TestRegistrySharedAcrossResolvers(t *testing.T) {

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.img", floppy(t, nil), 0o644))

	reg := NewRegistry()
	newResolver := func() *Resolver {
		return NewResolver(hostio.NewNative(hostio.Config{
			Fs: fs, Fingerprints: hostio.NewFingerprints()}),
			Options{Registry: reg})
	}
	r1, r2 := newResolver(), newResolver()

	m, err := r1.ResolveString(context.Background(), "/a.img",
		MountOptions{Writable: true})
	require.NoError(t, err)

	_, err = r2.ResolveString(context.Background(), "/a.img",
		MountOptions{Writable: true})
	assert.ErrorIs(t, err, base.ErrAlreadyMounted)

	id, held := r2.Holder(base.NewLocalSource("/a.img"))
	assert.True(t, held)
	assert.Equal(t, m.ID(), id)

	require.NoError(t, m.Eject(context.Background(), false))
	m, err = r2.ResolveString(context.Background(), "/a.img",
		MountOptions{Writable: true})
	require.NoError(t, err)
	require.NoError(t, m.Eject(context.Background(), false))

	assert.Same(t, SharedRegistry(), NewResolver(nil, Options{}).Options().Registry)
}

func TestFlushTo(t *testing.T) {

	r, fs := newTestResolver(t)
	img := floppy(t, map[string][]byte{"/BOOT.SYS": []byte("0123456789")})
	require.NoError(t, afero.WriteFile(fs, "/archive.zip", zipped(t, "disk.img", img), 0o644))

	m, err := r.ResolveString(context.Background(), "/archive.zip!disk.img",
		MountOptions{Writable: true})
	require.NoError(t, err)
	fsys, _ := m.FS()
	require.NoError(t, fsys.WriteFile("/NEW.TXT", []byte("new")))
	assert.ErrorIs(t, m.Flush(context.Background(), false), base.ErrReadOnlyMedium)

	remote, err := base.ParseSource("https://example.com/disk.img", "")
	require.NoError(t, err)
	assert.ErrorIs(t, m.FlushTo(context.Background(), remote, false),
		base.ErrReadOnlyMedium)

	saved := base.NewLocalSource("/saved.img")
	require.NoError(t, m.FlushTo(context.Background(), saved, false))
	assert.False(t, m.IsModified())
	assert.Equal(t, saved.Key(), m.Source().Key())
	assert.Empty(t, m.Entry())
	assert.True(t, m.CanPersist())
	assert.Equal(t, []byte("new"), fileOnHost(t, fs, "/saved.img", "/NEW.TXT"))

	// the writable claim moved along
	id, held := r.Holder(saved)
	assert.True(t, held)
	assert.Equal(t, m.ID(), id)
	_, held = r.Holder(base.NewArchiveEntrySource(
		base.NewLocalSource("/archive.zip"), "disk.img"))
	assert.False(t, held)
	_, err = r.ResolveString(context.Background(), "/saved.img",
		MountOptions{Writable: true})
	assert.ErrorIs(t, err, base.ErrAlreadyMounted)

	// later flushes go to the new location
	require.NoError(t, fsys.WriteFile("/NEW.TXT", []byte("newer")))
	require.NoError(t, m.Flush(context.Background(), false))
	assert.Equal(t, []byte("newer"), fileOnHost(t, fs, "/saved.img", "/NEW.TXT"))

	require.NoError(t, m.Eject(context.Background(), false))
	assert.ErrorIs(t, m.FlushTo(context.Background(), saved, false),
		base.ErrNotFound)
}

func TestResolveDirectory(t *testing.T) {

	r, fs := newTestResolver(t)
	require.NoError(t, afero.WriteFile(fs, "/tree/readme.txt", []byte("hi"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/tree/games/long name.exe",
		[]byte("game"), 0o644))

	m, err := r.ResolveString(context.Background(), "dir:/tree",
		MountOptions{Writable: true})
	require.NoError(t, err)
	assert.Equal(t, base.FormatFatVolume, m.Format())
	assert.Equal(t, format.GeometryByName("160K").Size(), m.Size())

	fsys, ok := m.FS()
	require.True(t, ok)
	data, err := fsys.ReadFile("/README.TXT")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), data)
	data, err = fsys.ReadFile("/GAMES/LONGNA~1.EXE")
	require.NoError(t, err)
	assert.Equal(t, []byte("game"), data)

	// the directory itself is never written to
	require.NoError(t, fsys.WriteFile("/SAVE.DAT", []byte("x")))
	assert.False(t, m.CanPersist())
	assert.ErrorIs(t, m.Flush(context.Background(), false), base.ErrReadOnlyMedium)

	require.NoError(t, m.FlushTo(context.Background(),
		base.NewLocalSource("/auto.img"), false))
	assert.Equal(t, []byte("x"), fileOnHost(t, fs, "/auto.img", "/SAVE.DAT"))
	require.NoError(t, m.Eject(context.Background(), false))

	_, err = r.ResolveString(context.Background(), "dir:/missing", MountOptions{})
	assert.ErrorIs(t, err, base.ErrNotFound)
	_, err = r.ResolveString(context.Background(), "dir:/tree/readme.txt",
		MountOptions{})
	assert.ErrorIs(t, err, base.ErrInvalidPath)
}
