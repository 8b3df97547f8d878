// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/repurposing-engine/internal/httputil"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// arxivBase is the arXiv search endpoint.
var arxivBase = "https://export.arxiv.org/api/query"

// Arxiv queries arXiv for preprints, restricted to the quantitative
// biology categories.
type Arxiv struct {
	Client *http.Client
}

// Name returns the source identifier.
func (s *Arxiv) Name() string { return "arxiv" }

// Search returns preprints in arXiv relevance order.
func (s *Arxiv) Search(ctx context.Context, q Query, cfg types.SourcesConfig) ([]types.EvidenceItem, error) {
	sq := arxivQuery(q)
	if sq == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	params := url.Values{
		"search_query": {sq},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults(cfg, 100))},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}

	var feed arxivFeed
	err := httputil.GetXML(ctx, client(s.Client, cfg), "arXiv",
		arxivBase+"?"+params.Encode(), baseHeader(cfg), cfg.MaxRetries, &feed)
	if err != nil {
		return nil, err
	}

	items := make([]types.EvidenceItem, 0, len(feed.Entries))
	for i, entry := range feed.Entries {
		id := arxivID(entry.ID)
		if id == "" {
			continue
		}
		var authors []string
		for _, a := range entry.Authors {
			authors = append(authors, strings.TrimSpace(a.Name))
		}
		data := map[string]any{
			"authors":  authors,
			"source":   "arxiv",
			"preprint": true,
		}
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			data["pubdate"] = t.Format("2006-01-02")
			data["year"] = t.Year()
		}
		if entry.DOI != "" {
			data["doi"] = entry.DOI
		}

		items = append(items, types.EvidenceItem{
			SourceType:     types.SourceLiterature,
			SourceID:       "arXiv:" + id,
			SourceURL:      "https://arxiv.org/abs/" + id,
			Title:          collapseSpace(entry.Title),
			Abstract:       collapseSpace(entry.Summary),
			RelevanceScore: types.Score(positionScore(i, len(feed.Entries))),
			ExtractedData:  data,
		})
	}
	return items, nil
}

// arxivQuery ANDs every search term and limits the search to q-bio.
func arxivQuery(q Query) string {
	terms := strings.Fields(q.Terms())
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, 0, len(terms)+1)
	for _, t := range terms {
		t = strings.Trim(t, "?!.,;:\"'()")
		if t == "" {
			continue
		}
		parts = append(parts, "all:"+t)
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " AND ") + ") AND cat:q-bio*"
}

// arxivID pulls the versionless id from an entry URL such as
// http://arxiv.org/abs/2301.07041v2.
func arxivID(idURL string) string {
	const marker = "/abs/"
	i := strings.Index(idURL, marker)
	if i < 0 {
		return ""
	}
	id := idURL[i+len(marker):]
	if v := strings.LastIndex(id, "v"); v > 0 {
		if _, err := strconv.Atoi(id[v+1:]); err == nil {
			id = id[:v]
		}
	}
	return id
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// arXiv Atom feed structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	DOI       string `xml:"http://arxiv.org/schemas/atom doi"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}
