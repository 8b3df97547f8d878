// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/repurposing-engine/internal/httputil"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,venue,citationCount"

// SemanticScholar queries the Semantic Scholar Graph API.
type SemanticScholar struct {
	Client *http.Client
	APIKey string
}

// Name returns the source identifier.
func (s *SemanticScholar) Name() string { return "semantic_scholar" }

// Search returns papers matching the query, most relevant first.
func (s *SemanticScholar) Search(ctx context.Context, q Query, cfg types.SourcesConfig) ([]types.EvidenceItem, error) {
	if q.IsEmpty() {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	params := url.Values{
		"query":  {q.Terms()},
		"limit":  {strconv.Itoa(maxResults(cfg, 100))},
		"fields": {semanticFields},
	}

	header := baseHeader(cfg)
	if s.APIKey != "" {
		header.Set("x-api-key", s.APIKey)
	}

	var sr semanticResponse
	err := httputil.GetJSON(ctx, client(s.Client, cfg), "Semantic Scholar",
		semanticAPIBase+"?"+params.Encode(), header, cfg.MaxRetries, &sr)
	if err != nil {
		return nil, err
	}

	total := len(sr.Data)
	items := make([]types.EvidenceItem, 0, total)
	for i, paper := range sr.Data {
		var authors []string
		for _, a := range paper.Authors {
			authors = append(authors, a.Name)
		}
		data := map[string]any{
			"year":           paper.Year,
			"venue":          paper.Venue,
			"citation_count": paper.CitationCount,
			"authors":        authors,
			"source":         "semantic_scholar",
		}
		if paper.ExternalIDs.DOI != "" {
			data["doi"] = paper.ExternalIDs.DOI
		}
		if paper.ExternalIDs.PubMed != "" {
			data["pmid"] = paper.ExternalIDs.PubMed
		}

		items = append(items, types.EvidenceItem{
			SourceType:     types.SourceLiterature,
			SourceID:       "S2:" + paper.PaperID,
			SourceURL:      "https://www.semanticscholar.org/paper/" + paper.PaperID,
			Title:          paper.Title,
			Abstract:       paper.Abstract,
			RelevanceScore: types.Score(positionScore(i, total)),
			ExtractedData:  data,
		})
	}
	return items, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Abstract      string              `json:"abstract"`
	Year          int                 `json:"year"`
	Venue         string              `json:"venue"`
	CitationCount int                 `json:"citationCount"`
	Authors       []semanticAuthor    `json:"authors"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI    string `json:"DOI"`
	PubMed string `json:"PubMed"`
}
