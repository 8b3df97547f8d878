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

// europePMCBase is the Europe PMC REST search endpoint.
var europePMCBase = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"

// EuropePMC queries the Europe PMC literature index, which also covers
// preprints and patents not in PubMed.
type EuropePMC struct {
	Client *http.Client
}

// Name returns the source identifier.
func (s *EuropePMC) Name() string { return "europe_pmc" }

// Search returns records in the order Europe PMC ranks them.
func (s *EuropePMC) Search(ctx context.Context, q Query, cfg types.SourcesConfig) ([]types.EvidenceItem, error) {
	if q.IsEmpty() {
		return nil, fmt.Errorf("empty Europe PMC query")
	}

	params := url.Values{
		"query":      {q.Terms()},
		"format":     {"json"},
		"resultType": {"core"},
		"pageSize":   {strconv.Itoa(maxResults(cfg, 1000))},
	}

	var r europePMCResponse
	err := httputil.GetJSON(ctx, client(s.Client, cfg), "Europe PMC",
		europePMCBase+"?"+params.Encode(), baseHeader(cfg), cfg.MaxRetries, &r)
	if err != nil {
		return nil, err
	}

	results := r.ResultList.Result
	items := make([]types.EvidenceItem, 0, len(results))
	for i, rec := range results {
		data := map[string]any{
			"journal": rec.JournalTitle,
			"year":    rec.PubYear,
			"authors": rec.AuthorString,
			"source":  "europe_pmc",
		}
		if rec.DOI != "" {
			data["doi"] = rec.DOI
		}
		if rec.PMID != "" {
			data["pmid"] = rec.PMID
		}

		link := fmt.Sprintf("https://europepmc.org/article/%s/%s", rec.Source, rec.ID)
		items = append(items, types.EvidenceItem{
			SourceType:     types.SourceLiterature,
			SourceID:       rec.Source + ":" + rec.ID,
			SourceURL:      link,
			Title:          rec.Title,
			Abstract:       rec.AbstractText,
			RelevanceScore: types.Score(positionScore(i, len(results))),
			ExtractedData:  data,
		})
	}
	return items, nil
}

// Europe PMC JSON structures.
type europePMCResponse struct {
	HitCount   int `json:"hitCount"`
	ResultList struct {
		Result []europePMCRecord `json:"result"`
	} `json:"resultList"`
}

type europePMCRecord struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	PMID         string `json:"pmid"`
	DOI          string `json:"doi"`
	Title        string `json:"title"`
	AuthorString string `json:"authorString"`
	JournalTitle string `json:"journalTitle"`
	PubYear      string `json:"pubYear"`
	AbstractText string `json:"abstractText"`
}
