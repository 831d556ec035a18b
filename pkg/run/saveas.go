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
	"fmt"
	"net/url"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/media/base"
)

//
func NewSaveAs() *SaveAs {

	s := &SaveAs{}
	s.Runner = *NewRunner(
		"saveas -s|--source {source} | -d|--drive {drive} -t|--target {path} [-f|--force]",
		"save media to a new location",
		`
Use the saveas command to write media to a new location. With --drive, the
media in a drive of the daemon are saved, and from then on belong to the target,
i.e. later flushes go there. This is how changes to media that cannot be
written back in place, like archive entries, are kept.

With --source, the source is resolved locally and written to the target. Use a
directory source like dir:/path/to/tree to turn a directory into a floppy image,
or an archive entry to extract an image.`,
		"", runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddMediaSettings(&s.Media)
	s.AddSetting(&s.Source, "source", "s", "", "", "media source", false)
	s.AddSetting(&s.Drive, "drive", "d", "", "", "daemon drive, e.g. fd0", false)
	s.AddSetting(&s.Target, "target", "t", "", nil, "where to save the media", true)
	s.AddSetting(&s.Force, "force", "f", "", false,
		"overwrite the target even if it was changed by someone else", false)

	return s
}

//
type SaveAs struct {
	Runner
	Media MediaSettings
	//
	Source string
	Drive  string
	Target string
	Force  bool
}

//
func (s *SaveAs) Run() error {

	if (s.Source == "") == (s.Drive == "") {
		return fmt.Errorf("give either a source or a drive")
	}

	if s.Drive != "" {
		return printReply(s.apiCall("POST", fmt.Sprintf(
			"/drive/%s/saveas?target=%s&force=%v", s.Drive,
			url.QueryEscape(s.Target), s.Force), false, nil))
	}

	target, err := base.ParseSource(s.Target, s.Media.BaseDir)
	if err != nil {
		return err
	}

	ctx := context.Background()

	m, err := s.Media.mount(ctx, s.Source, false)
	if err != nil {
		return err
	}
	defer m.Eject(ctx, false)

	if err := m.FlushTo(ctx, target, s.Force); err != nil {
		if base.KindOf(err) == base.KindConflict {
			return fmt.Errorf("%v; use --force to overwrite", err)
		}
		return err
	}

	log.WithFields(log.Fields{
		"source": s.Source,
		"target": target}).Info("media saved")
	return nil
}
