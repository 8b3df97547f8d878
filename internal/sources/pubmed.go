// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/repurposing-engine/internal/httputil"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// pubMedBase is the NCBI E-utilities root. Declared as a var so tests can
// substitute an httptest server.
var pubMedBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// PubMed queries PubMed through the E-utilities esearch and esummary endpoints.
type PubMed struct {
	Client *http.Client
	APIKey string
}

// Name returns the source identifier.
func (s *PubMed) Name() string { return "pubmed" }

// Search finds matching PMIDs and fetches their summaries.
func (s *PubMed) Search(ctx context.Context, q Query, cfg types.SourcesConfig) ([]types.EvidenceItem, error) {
	if q.IsEmpty() {
		return nil, fmt.Errorf("empty PubMed query")
	}
	c := client(s.Client, cfg)

	params := url.Values{
		"db":      {"pubmed"},
		"term":    {q.Terms()},
		"retmode": {"json"},
		"retmax":  {strconv.Itoa(maxResults(cfg, 100))},
		"sort":    {"relevance"},
	}
	if s.APIKey != "" {
		params.Set("api_key", s.APIKey)
	}

	var sr pubMedSearchResponse
	if err := httputil.GetJSON(ctx, c, "PubMed", pubMedBase+"/esearch.fcgi?"+params.Encode(), baseHeader(cfg), cfg.MaxRetries, &sr); err != nil {
		return nil, err
	}
	ids := sr.Result.IDList
	if len(ids) == 0 {
		return nil, nil
	}

	params = url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"json"},
	}
	if s.APIKey != "" {
		params.Set("api_key", s.APIKey)
	}

	var sum pubMedSummaryResponse
	if err := httputil.GetJSON(ctx, c, "PubMed", pubMedBase+"/esummary.fcgi?"+params.Encode(), baseHeader(cfg), cfg.MaxRetries, &sum); err != nil {
		return nil, err
	}

	var items []types.EvidenceItem
	for i, id := range ids {
		raw, ok := sum.Result[id]
		if !ok {
			continue
		}
		var doc pubMedDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}

		var authors []string
		for _, a := range doc.Authors {
			authors = append(authors, a.Name)
		}
		data := map[string]any{
			"pmid":    id,
			"journal": doc.FullJournalName,
			"pubdate": doc.PubDate,
			"authors": authors,
			"source":  "pubmed",
		}
		for _, aid := range doc.ArticleIDs {
			if aid.IDType == "doi" && aid.Value != "" {
				data["doi"] = aid.Value
			}
		}

		items = append(items, types.EvidenceItem{
			SourceType:     types.SourceLiterature,
			SourceID:       "PMID:" + id,
			SourceURL:      "https://pubmed.ncbi.nlm.nih.gov/" + id + "/",
			Title:          doc.Title,
			RelevanceScore: types.Score(positionScore(i, len(ids))),
			ExtractedData:  data,
		})
	}
	return items, nil
}

// E-utilities JSON structures.
type pubMedSearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubMedSummaryResponse struct {
	// Result is keyed by PMID, plus a "uids" entry listing them.
	Result map[string]json.RawMessage `json:"result"`
}

type pubMedDoc struct {
	UID             string            `json:"uid"`
	Title           string            `json:"title"`
	PubDate         string            `json:"pubdate"`
	FullJournalName string            `json:"fulljournalname"`
	Authors         []pubMedAuthor    `json:"authors"`
	ArticleIDs      []pubMedArticleID `json:"articleids"`
}

type pubMedAuthor struct {
	Name string `json:"name"`
}

type pubMedArticleID struct {
	IDType string `json:"idtype"`
	Value  string `json:"value"`
}
