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

package library

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	log "github.com/sirupsen/logrus"
)

// RefPrefix marks media references that point into the library.
const RefPrefix = "library:"

// Query selects library entries. Term uses the query string syntax of the
// index, e.g. "monkey compressor:zip". A non-empty Type restricts hits to
// images of that type.
type Query struct {
	Term  string
	Type  string
	Limit int
}

// Hit is a single library entry matching a query.
type Hit struct {
	Ref        string `json:"ref"`
	Type       string `json:"type,omitempty"`
	Compressor string `json:"compressor,omitempty"`
	Size       int64  `json:"size"`
}

//
type SearchResult struct {
	Hits     []Hit  `json:"hits"`
	Total    uint64 `json:"total"`
	Complete bool   `json:"complete"`
}

// Refs returns the library references of all hits.
func (r *SearchResult) Refs() []string {
	ret := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		ret = append(ret, h.Ref)
	}
	return ret
}

// Search returns up to q.Limit entries matching q. Hits are ordered by
// relevance, then path.
func (i *Index) Search(q Query) (*SearchResult, error) {

	term := strings.TrimSpace(q.Term)
	if term == "" {
		return nil, fmt.Errorf("no search term")
	}
	limit := min(max(q.Limit, 1), 1000)

	log.WithFields(log.Fields{
		"term": term, "type": q.Type, "limit": limit}).Debug("library search")

	var bq query.Query = bleve.NewQueryStringQuery(term)
	if q.Type != "" {
		tq := bleve.NewTermQuery(strings.ToLower(q.Type))
		tq.SetField("type")
		bq = bleve.NewConjunctionQuery(bq, tq)
	}

	req := bleve.NewSearchRequestOptions(bq, limit, 0, false)
	req.Fields = []string{"type", "compressor", "size"}
	req.SortBy([]string{"-_score", "_id"})

	res, err := i.index.Search(req)
	if err != nil {
		return nil, err
	}

	ret := &SearchResult{
		Hits:     make([]Hit, 0, len(res.Hits)),
		Total:    res.Total,
		Complete: res.Total <= uint64(len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit := Hit{Ref: filepath.ToSlash(h.ID)}
		hit.Type, _ = h.Fields["type"].(string)
		hit.Compressor, _ = h.Fields["compressor"].(string)
		if size, ok := h.Fields["size"].(float64); ok {
			hit.Size = int64(size)
		}
		ret.Hits = append(ret.Hits, hit)
	}

	return ret, nil
}

// Resolve turns a library reference, i.e. a search hit with or without the
// library prefix, into the path of the file on the host. References must not
// leave the library.
func (i *Index) Resolve(ref string) (string, error) {

	rel := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(ref, RefPrefix)))
	if rel == "." || filepath.IsAbs(rel) ||
		rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid library reference: %s", ref)
	}

	return filepath.Join(i.lib, rel), nil
}

// IsRef reports whether s is a library reference.
func IsRef(s string) bool {
	return strings.HasPrefix(s, RefPrefix)
}
