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

package control

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelalexv/mediadrive/pkg/daemon"
	"github.com/xelalexv/mediadrive/pkg/hostio"
	"github.com/xelalexv/mediadrive/pkg/library"
	"github.com/xelalexv/mediadrive/pkg/media"
)

func TestSearch(t *testing.T) {

	lib := t.TempDir()
	for name, size := range map[string]int{
		"games/Monkey_Island-disk1.img":     737280,
		"games/Monkey_Island-disk2.img.zip": 2000,
		"dos/msdos622.ima":                  1474560,
	} {
		p := filepath.Join(lib, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, make([]byte, size), 0o644))
	}

	ix, err := library.NewIndex(filepath.Join(t.TempDir(), "index"), lib)
	require.NoError(t, err)
	require.NoError(t, ix.Start())
	t.Cleanup(ix.Stop)

	d := daemon.NewDaemon(media.NewResolver(
		hostio.NewNative(hostio.Config{}), media.Options{Registry: media.NewRegistry()}), 1, 0)
	srv := httptest.NewServer(NewAPI("", d, ix).Handler())
	t.Cleanup(srv.Close)

	get := func(path string, asJSON bool) (int, []byte) {
		req, err := http.NewRequest("GET", srv.URL+path, nil)
		require.NoError(t, err)
		if asJSON {
			req.Header.Add("Accept", "application/json")
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, body
	}

	status, body := get("/search?term=monkey", false)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `SIZE  TYPE  PACKED  REFERENCE
720K  img   -       library:games/Monkey_Island-disk1.img
2K    img   zip     library:games/Monkey_Island-disk2.img.zip

2 hit(s)
`, string(body))

	status, body = get("/search?term=monkey&items=1", false)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "2 hit(s), showing first 1\n")

	status, body = get("/search?term=monkey&type=ima", false)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "no matching media\n", string(body))

	status, body = get("/search?term=msdos622&type=ima", true)
	require.Equal(t, http.StatusOK, status)
	var res library.SearchResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, []library.Hit{{Ref: "dos/msdos622.ima", Type: "ima", Size: 1474560}},
		res.Hits)
	assert.True(t, res.Complete)

	status, _ = get("/search?term=monkey&items=many", false)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}
