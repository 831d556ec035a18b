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
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/xelalexv/mediadrive/pkg/library"
)

// search answers library queries. Arguments are term, an optional image type,
// and items for the maximum number of hits.
func (a *api) search(w http.ResponseWriter, req *http.Request) {

	if a.index == nil {
		handleError(fmt.Errorf("media library not available"),
			http.StatusServiceUnavailable, w)
		return
	}

	limit, err := getIntArg(req, "items", 100)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	res, err := a.index.Search(library.Query{
		Term:  getArg(req, "term"),
		Type:  getArg(req, "type"),
		Limit: limit,
	})
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	if wantsJSON(req) {
		sendJSONReply(res, http.StatusOK, w)
		return
	}

	sendReply([]byte(renderHits(res)), http.StatusOK, w)
}

// renderHits lays out search hits as a table, one library reference per row.
func renderHits(res *library.SearchResult) string {

	var sb strings.Builder

	if len(res.Hits) > 0 {
		tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
		fmt.Fprint(tw, "SIZE\tTYPE\tPACKED\tREFERENCE\n")
		for _, h := range res.Hits {
			packed := h.Compressor
			if packed == "" {
				packed = "-"
			}
			fmt.Fprintf(tw, "%dK\t%s\t%s\t%s%s\n",
				(h.Size+1023)/1024, h.Type, packed, library.RefPrefix, h.Ref)
		}
		tw.Flush()
		sb.WriteString("\n")
	}

	switch {
	case res.Total == 0:
		sb.WriteString("no matching media\n")
	case res.Complete:
		fmt.Fprintf(&sb, "%d hit(s)\n", res.Total)
	default:
		fmt.Fprintf(&sb, "%d hit(s), showing first %d\n", res.Total, len(res.Hits))
	}

	return sb.String()
}
