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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// HTTPFetcher loads remote images. Concurrent fetches of the same URL are
// collapsed into a single request, each caller gets its own copy of the data.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
	group   singleflight.Group
}

//
func NewHTTPFetcher(timeout time.Duration, maxSize int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: maxSize,
	}
}

// Fetch gets the resource at src. The calling go routine blocks until the
// data is there or ctx is done. A canceled caller does not abort a request
// other callers are waiting for.
func (h *HTTPFetcher) Fetch(ctx context.Context, src *base.Source) ([]byte, error) {

	url := src.Path()

	ch := h.group.DoChan(url, func() (interface{}, error) {
		return h.get(context.WithoutCancel(ctx), src)
	})

	select {
	case <-ctx.Done():
		return nil, canceled(ctx, "fetch", src)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.WithField("url", url).Debug("shared remote fetch")
		}
		return bytes.Clone(res.Val.([]byte)), nil
	}
}

//
func (h *HTTPFetcher) get(ctx context.Context, src *base.Source) ([]byte, error) {

	url := src.Path()
	log.WithField("url", url).Info("fetching remote image")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, base.NewError(base.KindInvalidPath, "fetch", url, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, base.NewError(base.KindIo, "fetch", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, base.Errorf(base.KindNotFound, "fetch", url, "%s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, base.Errorf(base.KindIo, "fetch", url, "%s", resp.Status)
	case resp.ContentLength > h.maxSize:
		return nil, base.Errorf(base.KindIo, "fetch", url,
			"image of %d bytes exceeds limit of %d", resp.ContentLength, h.maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxSize+1))
	if err != nil {
		return nil, base.NewError(base.KindIo, "fetch", url, err)
	}
	if int64(len(data)) > h.maxSize {
		return nil, base.Errorf(base.KindIo, "fetch", url,
			"image exceeds limit of %d bytes", h.maxSize)
	}
	if resp.ContentLength >= 0 && int64(len(data)) != resp.ContentLength {
		return nil, base.NewError(base.KindIo, "fetch", url,
			fmt.Errorf("short read, got %d of %d bytes", len(data), resp.ContentLength))
	}

	log.WithFields(log.Fields{"url": url, "size": len(data)}).Debug("remote image fetched")
	return data, nil
}
