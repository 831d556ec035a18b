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
	"os"
	"text/tabwriter"

	"github.com/xelalexv/mediadrive/pkg/archive"
	"github.com/xelalexv/mediadrive/pkg/hostio"
	"github.com/xelalexv/mediadrive/pkg/media/base"
)

//
func NewClassify() *Classify {

	c := &Classify{}
	c.Runner = *NewRunner(
		"classify -s|--source {source}... [-e|--entries]",
		"identify the format of media",
		`
Use the classify command to find out how media would be treated when mounted:
whether they are inside an archive, which format they have, and for FAT volumes
and sector images, their layout.`,
		"", runnerHelpEpilogue, c.Run)

	c.AddMediaSettings(&c.Media)
	c.AddSetting(&c.Sources, "source", "s", "", nil, "media source(s)", true)
	c.AddSetting(&c.Entries, "entries", "e", "", false,
		"list archive entries of sources that are archives", false)

	return c
}

//
type Classify struct {
	Runner
	Media MediaSettings
	//
	Sources []string
	Entries bool
}

//
func (c *Classify) Run() error {

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "SOURCE\tFORMAT\tRULE\tDETAILS")

	var failed int
	for _, s := range c.Sources {

		m, err := c.Media.mount(context.Background(), s, false)
		if err != nil {
			fmt.Fprintf(w, "%s\terror\t-\t%v\n", s, err)
			failed++
			continue
		}

		res := m.Identification()
		var details string
		switch {
		case res.FatType != "":
			details = fmt.Sprintf("%s at offset %d, label '%s'",
				res.FatType, res.FatOffset, res.Label)
		case res.Geometry != nil:
			details = res.Geometry.String()
		}
		if m.Entry() != "" {
			details = fmt.Sprintf("%s (archive entry %s)", details, m.Entry())
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s, m.Format(), res.Rule, details)
		m.Eject(context.Background(), false)

		if c.Entries {
			c.listEntries(w, s)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sources could not be classified",
			failed, len(c.Sources))
	}
	return nil
}

// listEntries lists the entries of s if it is an archive.
func (c *Classify) listEntries(w *tabwriter.Writer, s string) {

	src, err := base.ParseSource(s, c.Media.BaseDir)
	if err != nil || src.IsArchiveEntry() {
		return
	}

	bridge := hostio.DefaultBridge(hostio.Config{
		MaxSize: c.Media.MaxSize, HTTPTimeout: c.Media.Timeout})
	buf, err := bridge.Fetch(context.Background(), src)
	if err != nil || !archive.IsArchive(buf.Bytes()) {
		return
	}

	ix, err := archive.Open(buf, archive.DefaultCapabilities(), c.Media.MaxSize)
	if err != nil {
		fmt.Fprintf(w, "  \terror\t-\t%v\n", err)
		return
	}

	for _, e := range ix.Entries() {
		fmt.Fprintf(w, "  !%s\t%s\t-\t%d bytes, %d compressed\n",
			e.Name, e.Codec, e.Size, e.CompressedSize)
	}
}
