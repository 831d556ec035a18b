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
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/xelalexv/mediadrive/pkg/library"
)

//
func NewSearch() *Search {

	s := &Search{}
	s.Runner = *NewRunner(
		"search -t|--term {term} [--type {image type}] [-i|--items {max hits}] [-l|--load {drive}]",
		"search for media in the daemon's library",
		`
Use the search command to find media in the daemon's library, if enabled. The
term may use field queries such as compressor:zip, and --type restricts hits to
one image type, e.g. img or vhd. With --load, a search that yields exactly one
hit loads it read-only into the given drive.`,
		"", runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddSetting(&s.Term, "term", "t", "", nil, "search term", true)
	s.AddSetting(&s.Type, "type", "", "", "", "image type of hits", false)
	s.AddSetting(&s.Items, "items", "i", "", 100, "max number of hits to list", false)
	s.AddSetting(&s.Load, "load", "l", "", "",
		"drive to load a single hit into", false)

	return s
}

//
type Search struct {
	Runner
	//
	Term  string
	Type  string
	Items int
	Load  string
}

//
func (s *Search) Run() error {

	resp, err := s.apiCall("GET", fmt.Sprintf("/search?items=%d&term=%s&type=%s",
		s.Items, url.QueryEscape(s.Term), url.QueryEscape(s.Type)), true, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	var res library.SearchResult
	if err := json.NewDecoder(resp).Decode(&res); err != nil {
		return fmt.Errorf("invalid search reply: %v", err)
	}

	fmt.Println()
	printHits(os.Stdout, &res)

	if s.Load == "" {
		return nil
	}
	if res.Total != 1 {
		return fmt.Errorf("%d hits, need exactly one to load", res.Total)
	}

	return printReply(s.apiCall("PUT", fmt.Sprintf("/drive/%s?source=%s",
		s.Load, url.QueryEscape(library.RefPrefix+res.Hits[0].Ref)), false, nil))
}

//
func printHits(out io.Writer, res *library.SearchResult) {

	if res.Total == 0 {
		fmt.Fprintln(out, "nothing found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for ix, h := range res.Hits {
		kind := h.Type
		if h.Compressor != "" {
			kind += "/" + h.Compressor
		}
		fmt.Fprintf(w, "%3d\t%s%s\t%s\t%d KiB\n",
			ix+1, library.RefPrefix, h.Ref, kind, (h.Size+1023)/1024)
	}
	w.Flush()

	if !res.Complete {
		fmt.Fprintf(out, "\n%d more not shown, raise --items or refine the term\n",
			res.Total-uint64(len(res.Hits)))
	}
}
