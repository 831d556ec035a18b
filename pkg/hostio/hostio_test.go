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
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

//
func newNative(t *testing.T) (*Native, afero.Fs) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/images", 0o755))
	return NewNative(Config{Fs: fs, Fingerprints: NewFingerprints()}), fs
}

//
func TestNativeFetchAndPersist(t *testing.T) {

	n, fs := newNative(t)
	require.NoError(t, afero.WriteFile(fs, "/images/a.img", []byte("original"), 0o600))
	src := base.NewLocalSource("/images/a.img")
	ctx := context.Background()

	buf, err := n.Fetch(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), buf.Bytes())
	assert.True(t, n.CanPersist(src))

	require.NoError(t, n.Persist(ctx, src, []byte("changed"), PersistOptions{}))
	data, err := afero.ReadFile(fs, "/images/a.img")
	require.NoError(t, err)
	assert.Equal(t, []byte("changed"), data)

	info, err := fs.Stat("/images/a.img")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// a second persist is checked against the bytes of the first
	require.NoError(t, n.Persist(ctx, src, []byte("changed again"), PersistOptions{}))

	entries, err := afero.ReadDir(fs, "/images")
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files left behind")
}

//
func TestNativeConflict(t *testing.T) {

	n, fs := newNative(t)
	require.NoError(t, afero.WriteFile(fs, "/images/b.img", []byte("v1"), 0o644))
	src := base.NewLocalSource("/images/b.img")
	ctx := context.Background()

	buf, err := n.Fetch(ctx, src)
	require.NoError(t, err)
	loaded := buf.Fingerprint()

	// someone else modifies the host copy, and it gets fetched again
	require.NoError(t, afero.WriteFile(fs, "/images/b.img", []byte("v2"), 0o644))
	_, err = n.Fetch(ctx, src)
	require.NoError(t, err)

	err = n.Persist(ctx, src, []byte("mine"), PersistOptions{Expected: &loaded})
	assert.ErrorIs(t, err, base.ErrConflict)
	data, _ := afero.ReadFile(fs, "/images/b.img")
	assert.Equal(t, []byte("v2"), data)

	require.NoError(t, n.Persist(ctx, src, []byte("mine"),
		PersistOptions{Force: true, Expected: &loaded}))
	data, _ = afero.ReadFile(fs, "/images/b.img")
	assert.Equal(t, []byte("mine"), data)

	// without an expected fingerprint, the last persist counts
	require.NoError(t, afero.WriteFile(fs, "/images/b.img", []byte("v3"), 0o644))
	assert.ErrorIs(t, n.Persist(ctx, src, []byte("x"), PersistOptions{}),
		base.ErrConflict)
	require.NoError(t, n.Persist(ctx, src, []byte("mine"), PersistOptions{Force: true}))

	// host copy removed
	require.NoError(t, fs.Remove("/images/b.img"))
	err = n.Persist(ctx, src, []byte("again"), PersistOptions{})
	assert.ErrorIs(t, err, base.ErrConflict)
}

//
func TestNativeConcurrentPersists(t *testing.T) {

	n, fs := newNative(t)
	require.NoError(t, afero.WriteFile(fs, "/images/c.img", []byte("start"), 0o644))
	src := base.NewLocalSource("/images/c.img")
	ctx := context.Background()

	_, err := n.Fetch(ctx, src)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for ix := range errs {
		wg.Add(1)
		go func(ix int) {
			defer wg.Done()
			errs[ix] = n.Persist(ctx, src, []byte{byte(ix)}, PersistOptions{})
		}(ix)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	data, err := afero.ReadFile(fs, "/images/c.img")
	require.NoError(t, err)
	require.Len(t, data, 1)
	fp, ok := n.prints.Get(src.Key())
	require.True(t, ok)
	assert.Equal(t, base.ComputeFingerprint(data), fp)
}

//
func TestNativeFetchErrors(t *testing.T) {

	n, fs := newNative(t)
	ctx := context.Background()

	_, err := n.Fetch(ctx, base.NewLocalSource("/images/missing.img"))
	assert.ErrorIs(t, err, base.ErrNotFound)

	_, err = n.Fetch(ctx, base.NewLocalSource("/images"))
	assert.ErrorIs(t, err, base.ErrInvalidPath)

	small := NewNative(Config{Fs: fs, MaxSize: 4, Fingerprints: NewFingerprints()})
	require.NoError(t, afero.WriteFile(fs, "/images/big.img", []byte("12345"), 0o644))
	_, err = small.Fetch(ctx, base.NewLocalSource("/images/big.img"))
	assert.ErrorIs(t, err, base.ErrIo)

	canceledCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = n.Fetch(canceledCtx, base.NewLocalSource("/images/big.img"))
	assert.ErrorIs(t, err, base.ErrCanceled)

	entry := base.NewArchiveEntrySource(base.NewLocalSource("/images/x.zip"), "a.img")
	_, err = n.Fetch(ctx, entry)
	assert.ErrorIs(t, err, base.ErrIo)
	assert.False(t, n.CanPersist(entry))
	assert.ErrorIs(t, n.Persist(ctx, entry, []byte{1}, PersistOptions{}),
		base.ErrReadOnlyMedium)
}

//
func TestRemoteFetch(t *testing.T) {

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Path {
		case "/disk.img":
			time.Sleep(100 * time.Millisecond)
			w.Write([]byte("remote image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	n, _ := newNative(t)
	src := base.NewRemoteSource(srv.URL + "/disk.img")
	ctx := context.Background()

	var wg sync.WaitGroup
	bufs := make([]*base.Buffer, 5)
	for ix := range bufs {
		wg.Add(1)
		go func(ix int) {
			defer wg.Done()
			b, err := n.Fetch(ctx, src)
			assert.NoError(t, err)
			bufs[ix] = b
		}(ix)
	}
	wg.Wait()

	assert.Less(t, atomic.LoadInt32(&hits), int32(5))
	for _, b := range bufs {
		require.NotNil(t, b)
		assert.Equal(t, "remote image", string(b.Bytes()))
	}
	// every caller owns its copy
	bufs[0].Bytes()[0] = 'X'
	assert.Equal(t, byte('r'), bufs[1].Bytes()[0])

	assert.False(t, n.CanPersist(src))
	assert.ErrorIs(t, n.Persist(ctx, src, []byte("x"), PersistOptions{}),
		base.ErrReadOnlyMedium)

	_, err := n.Fetch(ctx, base.NewRemoteSource(srv.URL+"/nope.img"))
	assert.ErrorIs(t, err, base.ErrNotFound)
}

//
func TestRemoteFetchCancel(t *testing.T) {

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(5 * time.Second):
		}
		w.Write([]byte("late"))
	}))
	defer srv.Close()
	defer close(release)

	n, _ := newNative(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := n.Fetch(ctx, base.NewRemoteSource(srv.URL+"/slow.img"))
	assert.ErrorIs(t, err, base.ErrCanceled)
}

//
func TestWebBridge(t *testing.T) {

	store := NewMemStore()
	w := NewWeb(Config{Store: store, Fingerprints: NewFingerprints()})
	ctx := context.Background()

	_, err := w.Fetch(ctx, base.NewLocalSource("/images/a.img"))
	assert.ErrorIs(t, err, base.ErrIo)
	assert.False(t, w.CanPersist(base.NewLocalSource("/images/a.img")))

	src := base.NewStorageSource("floppy-a")
	_, err = w.Fetch(ctx, src)
	assert.ErrorIs(t, err, base.ErrNotFound)

	require.True(t, w.CanPersist(src))
	require.NoError(t, w.Persist(ctx, src, []byte("saved"), PersistOptions{}))

	buf, err := w.Fetch(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "saved", string(buf.Bytes()))

	// another tab wrote to the same key
	require.NoError(t, store.Put(ctx, "floppy-a", []byte("other")))
	assert.ErrorIs(t, w.Persist(ctx, src, []byte("mine"), PersistOptions{}),
		base.ErrConflict)

	assert.ErrorIs(t, w.Persist(ctx, base.NewRemoteSource("http://h/a.img"),
		[]byte("x"), PersistOptions{}), base.ErrReadOnlyMedium)
}

//
func TestWatcher(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "watched.img")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	var changed int32
	var last atomic.Pointer[base.Fingerprint]
	stop, err := w.Watch(base.NewLocalSource(path), func(fp *base.Fingerprint) {
		last.Store(fp)
		atomic.AddInt32(&changed, 1)
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.img"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("b"), 0o644))

	want := base.ComputeFingerprint([]byte("b"))
	assert.Eventually(t, func() bool {
		fp := last.Load()
		return atomic.LoadInt32(&changed) > 0 && fp != nil && *fp == want
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		return last.Load() == nil
	}, 5*time.Second, 10*time.Millisecond)

	stop()
	stop()

	_, err = w.Watch(base.NewRemoteSource("http://h/a.img"), func(*base.Fingerprint) {})
	assert.Error(t, err)
}
