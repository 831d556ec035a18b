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
	"compress/flate"
	"compress/gzip"
	"hash/crc32"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// BLAKE2b-256 of payload(20000), the content of all archives under testdata
const payloadFingerprint = "66e061c61715c89193b92ee6e53601d03137b5944903a2601d92c106c8171d03"

//
func payload(n int) []byte {
	ret := make([]byte, n)
	for ix := range ret {
		ret[ix] = byte(ix*7 + ix/256)
	}
	return ret
}

type rawEntry struct {
	name   string
	method uint16
	data   []byte // uncompressed
	packed []byte // compressed, if nil computed from method
	size   int64  // recorded size override, if > 0
}

//
func compress(t *testing.T, method uint16, data []byte) []byte {

	var buf bytes.Buffer

	switch method {

	case methodStore:
		return data

	case methodDeflate:
		w, err := flate.NewWriter(&buf, flate.BestCompression)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())

	case methodLZMA:
		w, err := lzma.WriterConfig{
			SizeInHeader: true, Size: int64(len(data))}.NewWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		classic := buf.Bytes()
		ret := []byte{0x10, 0x02, 0x05, 0x00}
		ret = append(ret, classic[:5]...)
		return append(ret, classic[13:]...)

	case methodZstd:
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		defer enc.Close()
		return enc.EncodeAll(data, nil)

	case methodXZ:
		w, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())

	default:
		t.Fatalf("no test compressor for method %d", method)
	}

	return buf.Bytes()
}

//
func buildZip(t *testing.T, entries ...rawEntry) []byte {

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range entries {
		packed := e.packed
		if packed == nil {
			packed = compress(t, e.method, e.data)
		}
		size := int64(len(e.data))
		if e.size > 0 {
			size = e.size
		}
		w, err := zw.CreateRaw(&zip.FileHeader{
			Name:               e.name,
			Method:             e.method,
			CRC32:              crc32.ChecksumIEEE(e.data),
			CompressedSize64:   uint64(len(packed)),
			UncompressedSize64: uint64(size),
		})
		require.NoError(t, err)
		_, err = w.Write(packed)
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

//
func archiveBuffer(data []byte, name string) *base.Buffer {
	return base.NewBuffer(data, base.NewLocalSource("/tmp/"+name))
}

//
func TestExtractEveryCodec(t *testing.T) {

	data := payload(20000)
	ref := base.ComputeFingerprint(data)

	tests := []struct {
		name   string
		method uint16
		codec  Codec
	}{
		{"store.img", methodStore, CodecStore},
		{"deflate.img", methodDeflate, CodecDeflate},
		{"lzma.img", methodLZMA, CodecLZMA},
		{"zstd.img", methodZstd, CodecZstd},
		{"xz.img", methodXZ, CodecXZ},
	}

	var entries []rawEntry
	for _, tc := range tests {
		entries = append(entries, rawEntry{name: tc.name, method: tc.method, data: data})
	}

	ix, err := Open(archiveBuffer(buildZip(t, entries...), "all.zip"),
		DefaultCapabilities(), 0)
	require.NoError(t, err)
	assert.Equal(t, ContainerZip, ix.Container())
	require.Len(t, ix.Entries(), len(tests))

	for _, tc := range tests {
		t.Run(string(tc.codec), func(t *testing.T) {
			e, ok := ix.Lookup(tc.name)
			require.True(t, ok)
			assert.Equal(t, tc.codec, e.Codec)

			buf, err := ix.Extract(tc.name)
			require.NoError(t, err)
			assert.Equal(t, len(data), buf.Len())
			assert.Equal(t, ref, buf.Fingerprint())
			assert.True(t, buf.Origin().IsArchiveEntry())
			assert.Equal(t, tc.name, buf.Origin().Entry())
		})
	}
}

//
func TestExtractFixtures(t *testing.T) {

	tests := []struct {
		file      string
		container Container
		entry     string
		codec     Codec
	}{
		{"bzip2.zip", ContainerZip, "bzip2.img", CodecBzip2},
		{"codecs.7z", Container7z, "deflate.img", Codec7z},
		{"codecs.7z", Container7z, "bzip2.img", Codec7z},
		{"store.rar", ContainerRar, "GAMES/store.img", CodecRar},
	}

	for _, tc := range tests {
		t.Run(tc.file+"/"+tc.entry, func(t *testing.T) {

			data, err := os.ReadFile(filepath.Join("testdata", tc.file))
			require.NoError(t, err)

			ix, err := Open(archiveBuffer(data, tc.file), DefaultCapabilities(), 0)
			require.NoError(t, err)
			assert.Equal(t, tc.container, ix.Container())

			e, ok := ix.Lookup(tc.entry)
			require.True(t, ok)
			assert.Equal(t, tc.codec, e.Codec)
			assert.Equal(t, int64(20000), e.Size)

			buf, err := ix.Extract(tc.entry)
			require.NoError(t, err)
			assert.Equal(t, payloadFingerprint, buf.Fingerprint().String())
			assert.Equal(t, tc.entry, buf.Origin().Entry())
		})
	}
}

// bitWriter emits a deflate bit stream, least significant bit first.
type bitWriter struct {
	out []byte
	acc uint32
	n   uint
}

//
func (w *bitWriter) bits(v int, n uint) {
	w.acc |= uint32(v) << w.n
	w.n += n
	for w.n >= 8 {
		w.out = append(w.out, byte(w.acc))
		w.acc >>= 8
		w.n -= 8
	}
}

// code emits a Huffman code, which goes out most significant bit first.
func (w *bitWriter) code(c int, n uint) {
	r := 0
	for ix := uint(0); ix < n; ix++ {
		r = r<<1 | (c>>ix)&1
	}
	w.bits(r, n)
}

// literal emits a symbol of the fixed literal/length code.
func (w *bitWriter) literal(sym int) {
	switch {
	case sym < 144:
		w.code(0x30+sym, 8)
	case sym < 256:
		w.code(0x190+sym-144, 9)
	case sym < 280:
		w.code(sym-256, 7)
	default:
		w.code(0xc0+sym-280, 8)
	}
}

// long emits a match using the 16 bit extra length of code 285, and one of
// the two distance codes beyond the 32KiB window.
func (w *bitWriter) long(length, distance int) {
	w.literal(285)
	w.bits(length-3, 16)
	if distance >= 49153 {
		w.code(31, 5)
		w.bits(distance-49153, 14)
	} else {
		w.code(30, 5)
		w.bits(distance-32769, 14)
	}
}

//
func (w *bitWriter) align() {
	if w.n > 0 {
		w.out = append(w.out, byte(w.acc))
		w.acc, w.n = 0, 0
	}
}

//
func appendMatch(data []byte, length, distance int) []byte {
	from := len(data) - distance
	for ix := 0; ix < length; ix++ {
		data = append(data, data[from+ix])
	}
	return data
}

//
func TestDeflate64(t *testing.T) {

	src := payload(33000)

	w := &bitWriter{}

	// stored block
	w.bits(0, 1)
	w.bits(0, 2)
	w.align()
	w.bits(1000, 16)
	w.bits(1000^0xffff, 16)
	for _, b := range src[:1000] {
		w.bits(int(b), 8)
	}

	// final block with fixed codes
	w.bits(1, 1)
	w.bits(1, 2)
	for _, b := range src[1000:] {
		w.literal(int(b))
	}
	w.long(20000, 33000)
	w.long(300, 50000)
	w.literal(256)
	w.align()

	want := append([]byte{}, src...)
	want = appendMatch(want, 20000, 33000)
	want = appendMatch(want, 300, 50000)
	require.Len(t, want, 53300)

	ix, err := Open(archiveBuffer(buildZip(t,
		rawEntry{name: "d64.img", method: methodDeflate64, data: want,
			packed: w.out}), "d64.zip"), DefaultCapabilities(), 0)
	require.NoError(t, err)

	e, ok := ix.Lookup("d64.img")
	require.True(t, ok)
	assert.Equal(t, CodecDeflate64, e.Codec)

	buf, err := ix.Extract("d64.img")
	require.NoError(t, err)
	assert.Equal(t, base.ComputeFingerprint(want), buf.Fingerprint())

	// a recorded size smaller than the stream is refused
	ix, err = Open(archiveBuffer(buildZip(t,
		rawEntry{name: "d64.img", method: methodDeflate64, data: want,
			packed: w.out, size: 53000}), "short.zip"), DefaultCapabilities(), 0)
	require.NoError(t, err)
	_, err = ix.Extract("d64.img")
	assert.ErrorIs(t, err, base.ErrArchive)
}

// Deflate streams without 258 byte matches decode identically as Deflate64.
func TestDeflate64DynamicBlocks(t *testing.T) {

	rnd := rand.New(rand.NewPCG(1, 2))
	data := make([]byte, 30000)
	for ix := range data {
		data[ix] = "ACGT"[rnd.IntN(4)]
	}

	out, err := inflate64(bytes.NewReader(compress(t, methodDeflate, data)),
		int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

//
func TestDeflate64Corrupt(t *testing.T) {

	tests := []struct {
		name   string
		stream func(w *bitWriter)
	}{
		{"distance too far back", func(w *bitWriter) {
			w.bits(1, 1)
			w.bits(1, 2)
			w.literal('a')
			w.long(10, 40000)
			w.literal(256)
		}},
		{"reserved block type", func(w *bitWriter) {
			w.bits(1, 1)
			w.bits(3, 2)
		}},
		{"truncated", func(w *bitWriter) {
			w.bits(1, 1)
			w.bits(1, 2)
			w.literal('a')
		}},
		{"stored length check", func(w *bitWriter) {
			w.bits(1, 1)
			w.bits(0, 2)
			w.align()
			w.bits(4, 16)
			w.bits(4, 16)
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := &bitWriter{}
			tc.stream(w)
			w.align()
			_, err := inflate64(bytes.NewReader(w.out), 1024)
			assert.Error(t, err)
		})
	}
}

//
func TestNamesAreCaseSensitive(t *testing.T) {

	data := []byte("0123456789")
	ix, err := Open(archiveBuffer(buildZip(t,
		rawEntry{name: "Disk.img", method: methodStore, data: data}), "a.zip"),
		DefaultCapabilities(), 0)
	require.NoError(t, err)

	_, err = ix.Extract("disk.img")
	assert.ErrorIs(t, err, base.ErrNotFound)

	buf, err := ix.Extract("Disk.img")
	require.NoError(t, err)
	assert.Equal(t, data, buf.Bytes())
}

//
func TestDuplicateEntries(t *testing.T) {

	data := []byte("abc")
	_, err := Open(archiveBuffer(buildZip(t,
		rawEntry{name: "x.img", method: methodStore, data: data},
		rawEntry{name: "x.img", method: methodStore, data: data}), "dup.zip"),
		DefaultCapabilities(), 0)
	assert.ErrorIs(t, err, base.ErrFormat)
}

//
func TestUnsupportedCodec(t *testing.T) {

	data := payload(100)

	zipped := buildZip(t,
		rawEntry{name: "ppmd.img", method: 98, data: data,
			packed: []byte{1, 2, 3, 4}},
		rawEntry{name: "xz.img", method: methodXZ, data: data},
	)

	ix, err := Open(archiveBuffer(zipped, "c.zip"), DefaultCapabilities(), 0)
	require.NoError(t, err)

	e, ok := ix.Lookup("ppmd.img")
	require.True(t, ok)
	assert.Equal(t, Codec("method-98"), e.Codec)

	_, err = ix.Extract("ppmd.img")
	assert.ErrorIs(t, err, base.ErrUnsupportedCodec)

	narrowed := DefaultCapabilities().Narrow([]string{"store", "deflate"})
	ix, err = Open(archiveBuffer(zipped, "c.zip"), narrowed, 0)
	require.NoError(t, err)

	_, err = ix.Extract("xz.img")
	assert.ErrorIs(t, err, base.ErrUnsupportedCodec)
}

//
func TestNarrowCannotWiden(t *testing.T) {
	caps := Capabilities{CodecStore: true}
	n := caps.Narrow([]string{"store", "zstd"})
	assert.Equal(t, []string{"store"}, n.List())
	assert.Equal(t, caps, caps.Narrow(nil))
}

//
func TestSizeMismatch(t *testing.T) {

	data := []byte("0123456789")
	ix, err := Open(archiveBuffer(buildZip(t,
		rawEntry{name: "short.img", method: methodStore, data: data, size: 12}),
		"m.zip"), DefaultCapabilities(), 0)
	require.NoError(t, err)

	_, err = ix.Extract("short.img")
	assert.ErrorIs(t, err, base.ErrArchive)
}

//
func TestSizeLimit(t *testing.T) {

	data := payload(4096)
	ix, err := Open(archiveBuffer(buildZip(t,
		rawEntry{name: "big.img", method: methodDeflate, data: data}),
		"l.zip"), DefaultCapabilities(), 1024)
	require.NoError(t, err)

	_, err = ix.Extract("big.img")
	assert.ErrorIs(t, err, base.ErrArchive)
}

//
func TestCorruptedData(t *testing.T) {

	data := payload(1000)
	packed := compress(t, methodStore, data)
	bad := append([]byte{}, packed...)
	bad[10] ^= 0xff

	ix, err := Open(archiveBuffer(buildZip(t,
		rawEntry{name: "bad.img", method: methodStore, data: data, packed: bad}),
		"bad.zip"), DefaultCapabilities(), 0)
	require.NoError(t, err)

	_, err = ix.Extract("bad.img")
	assert.ErrorIs(t, err, base.ErrArchive)
}

//
func TestGzip(t *testing.T) {

	data := payload(3000)

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	ix, err := Open(archiveBuffer(buf.Bytes(), "floppy.img.gz"),
		DefaultCapabilities(), 0)
	require.NoError(t, err)
	assert.Equal(t, ContainerGzip, ix.Container())

	entries := ix.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "floppy.img", entries[0].Name)

	name, err := FirstImage(ix)
	require.NoError(t, err)
	assert.Equal(t, "floppy.img", name)

	out, err := ix.Extract(name)
	require.NoError(t, err)
	assert.Equal(t, data, out.Bytes())
}

//
func TestNotAnArchive(t *testing.T) {
	_, err := Open(archiveBuffer(make([]byte, 512), "x.img"),
		DefaultCapabilities(), 0)
	assert.ErrorIs(t, err, base.ErrArchive)
}

//
func TestDetect(t *testing.T) {
	tests := []struct {
		data []byte
		want Container
	}{
		{[]byte("PK\x03\x04rest"), ContainerZip},
		{[]byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c, 0, 4}, Container7z},
		{[]byte{0x1f, 0x8b, 8, 0}, ContainerGzip},
		{[]byte("Rar!\x1a\x07\x01\x00"), ContainerRar},
		{[]byte{0xeb, 0x3c, 0x90}, ContainerNone},
		{nil, ContainerNone},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Detect(tc.data))
		assert.Equal(t, tc.want != ContainerNone, IsArchive(tc.data))
	}
}

//
func TestFirstImage(t *testing.T) {

	data := []byte("x")

	ix, err := Open(archiveBuffer(buildZip(t,
		rawEntry{name: "README.TXT", method: methodStore, data: data},
		rawEntry{name: "GAME.IMA", method: methodStore, data: data}),
		"g.zip"), DefaultCapabilities(), 0)
	require.NoError(t, err)
	name, err := FirstImage(ix)
	require.NoError(t, err)
	assert.Equal(t, "GAME.IMA", name)

	ix, err = Open(archiveBuffer(buildZip(t,
		rawEntry{name: "a.txt", method: methodStore, data: data},
		rawEntry{name: "b.txt", method: methodStore, data: data}),
		"h.zip"), DefaultCapabilities(), 0)
	require.NoError(t, err)
	_, err = FirstImage(ix)
	assert.ErrorIs(t, err, base.ErrFormat)
}

//
func TestSplitNameTypeCompressor(t *testing.T) {
	tests := []struct {
		file, name, typ, comp string
	}{
		{"/games/disk.img.gz", "disk", "img", "gz"},
		{"C:\\images\\dos622.IMA", "dos622", "ima", ""},
		{"collection.zip", "collection", "", "zip"},
		{"my.game.vhd", "my.game", "vhd", ""},
		{"noext", "noext", "", ""},
	}
	for _, tc := range tests {
		name, typ, comp := SplitNameTypeCompressor(tc.file)
		assert.Equal(t, tc.name, name, tc.file)
		assert.Equal(t, tc.typ, typ, tc.file)
		assert.Equal(t, tc.comp, comp, tc.file)
	}
}
