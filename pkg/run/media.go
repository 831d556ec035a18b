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
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/archive"
	"github.com/xelalexv/mediadrive/pkg/fat"
	"github.com/xelalexv/mediadrive/pkg/format"
	"github.com/xelalexv/mediadrive/pkg/hostio"
	"github.com/xelalexv/mediadrive/pkg/media"
)

// MediaSettings are the settings for resolving media.
type MediaSettings struct {
	BaseDir    string
	Codecs     []string
	MaxDepth   int
	MaxSize    int64
	Timeout    time.Duration
	FloppySize string
}

// AddMediaSettings adds the settings for resolving media to the runner.
func (r *Runner) AddMediaSettings(m *MediaSettings) {
	r.AddSetting(&m.BaseDir, "basedir", "", "", "",
		"directory to substitute for $basedir$ in source paths", false)
	r.AddSetting(&m.Codecs, "codecs", "", "", []string{},
		"restrict archive codecs to these (default: all available)", false)
	r.AddSetting(&m.MaxDepth, "maxdepth", "", "", fat.DefaultMaxDepth,
		"maximum directory depth on FAT volumes", false)
	r.AddSetting(&m.MaxSize, "maxsize", "", "", int64(hostio.DefaultMaxSize),
		"maximum size of images, also after decompression", false)
	r.AddSetting(&m.Timeout, "timeout", "", "", hostio.DefaultHTTPTimeout,
		"timeout for fetching remote images", false)
	r.AddSetting(&m.FloppySize, "floppysize", "", "", "",
		"size of floppies built from directories, e.g. 1.44M (default: smallest fitting)",
		false)
}

// newResolver creates a resolver on top of the default bridge of this build.
// watcher may be nil.
func (m *MediaSettings) newResolver(watcher *hostio.Watcher) *media.Resolver {

	bridge := hostio.DefaultBridge(hostio.Config{
		MaxSize:     m.MaxSize,
		HTTPTimeout: m.Timeout,
	})

	caps := archive.DefaultCapabilities()
	if len(m.Codecs) > 0 {
		caps = caps.Narrow(m.Codecs)
	}

	var geo *format.Geometry
	if m.FloppySize != "" {
		if geo = format.GeometryByName(m.FloppySize); geo == nil {
			log.WithField("size", m.FloppySize).Warn(
				"unknown floppy size, using smallest fitting")
		}
	}

	return media.NewResolver(bridge, media.Options{
		Capabilities:  caps,
		MaxSize:       m.MaxSize,
		MaxDepth:      m.MaxDepth,
		BaseDir:       m.BaseDir,
		Watcher:       watcher,
		BuildGeometry: geo,
	})
}

// mount resolves source with the settings in m.
func (m *MediaSettings) mount(ctx context.Context, source string,
	writable bool) (*media.Mounted, error) {
	return m.newResolver(nil).ResolveString(ctx, source,
		media.MountOptions{Writable: writable})
}
