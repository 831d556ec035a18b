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

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

// Web is the bridge for the browser sandbox. There is no file system, remote
// images are fetched via HTTP (backed by the browser's fetch API on js/wasm),
// and persistence goes to browser storage.
type Web struct {
	http    *HTTPFetcher
	store   Store
	prints  *Fingerprints
	maxSize int64
}

//
func NewWeb(cfg Config) *Web {
	cfg = cfg.withDefaults()
	if cfg.Store == nil {
		cfg.Store = NewMemStore()
	}
	return &Web{
		http:    NewHTTPFetcher(cfg.HTTPTimeout, cfg.MaxSize),
		store:   cfg.Store,
		prints:  cfg.Fingerprints,
		maxSize: cfg.MaxSize,
	}
}

//
func (w *Web) Name() string {
	return "web"
}

//
func (w *Web) Fetch(ctx context.Context, src *base.Source) (*base.Buffer, error) {

	if err := canceled(ctx, "fetch", src); err != nil {
		return nil, err
	}

	var data []byte
	var err error

	switch src.Type() {
	case base.SourceRemoteURL:
		data, err = w.http.Fetch(ctx, src)
	case base.SourceStorage:
		data, err = fetchStored(ctx, w.store, src, w.maxSize)
	case base.SourceLocalPath, base.SourceDirectory:
		return nil, base.Errorf(base.KindIo, "fetch", src.String(),
			"no file system access in browser sandbox")
	default:
		return nil, base.Errorf(base.KindIo, "fetch", src.String(),
			"archive entries are fetched through their archive")
	}

	if err != nil {
		return nil, err
	}

	buf := base.NewBuffer(data, src)

	log.WithFields(log.Fields{
		"source": src,
		"size":   buf.Len(),
		"bridge": w.Name()}).Debug("image fetched")

	return buf, nil
}

//
func (w *Web) CanPersist(src *base.Source) bool {
	return src.Type() == base.SourceStorage
}

//
func (w *Web) Persist(ctx context.Context, src *base.Source, data []byte,
	opts PersistOptions) error {

	if err := canceled(ctx, "persist", src); err != nil {
		return err
	}

	switch src.Type() {
	case base.SourceStorage:
		return persistStored(ctx, w.store, w.prints, src, data, opts)
	case base.SourceLocalPath:
		return base.Errorf(base.KindIo, "persist", src.String(),
			"no file system access in browser sandbox")
	}

	return base.Errorf(base.KindReadOnlyMedium, "persist", src.String(),
		"%s sources cannot be written back", src.Type())
}
