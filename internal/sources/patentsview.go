// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/repurposing-engine/internal/httputil"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// patentsViewSearchBase is the PatentsView patent search endpoint. Declared
// as a var so tests can substitute an httptest server.
var patentsViewSearchBase = "https://search.patentsview.org/api/v1/patent/"

const patentsViewFields = `["patent_id","patent_title","patent_abstract","patent_date","patent_type","assignees.assignee_organization"]`

// PatentTerm is the statutory term of a US utility patent, counted here
// from the grant date.
const PatentTerm = 20

// Patent status values recorded in extracted data.
const (
	PatentActive  = "active"
	PatentExpired = "expired"
)

// now is swapped in tests to pin patent status.
var now = time.Now

// PatentsView queries the USPTO PatentsView search API.
type PatentsView struct {
	Client *http.Client
	APIKey string
}

// Name returns the source identifier.
func (s *PatentsView) Name() string { return "patentsview" }

// Search returns granted patents whose title or abstract mentions the query
// terms. Each item carries grant_date, expiry_date, and status.
func (s *PatentsView) Search(ctx context.Context, q Query, cfg types.SourcesConfig) ([]types.EvidenceItem, error) {
	pq := buildPatentsViewQuery(q)
	if pq == "" {
		return nil, fmt.Errorf("empty PatentsView query")
	}

	n := maxResults(cfg, 1000)
	params := url.Values{
		"q": {pq},
		"f": {patentsViewFields},
		"o": {fmt.Sprintf(`{"size":%d}`, n)},
	}

	header := baseHeader(cfg)
	if s.APIKey != "" {
		header.Set("X-Api-Key", s.APIKey)
	}

	var pvr patentsViewResponse
	err := httputil.GetJSON(ctx, client(s.Client, cfg), "PatentsView",
		patentsViewSearchBase+"?"+params.Encode(), header, cfg.MaxRetries, &pvr)
	if err != nil {
		return nil, err
	}

	today := now()
	total := len(pvr.Patents)
	items := make([]types.EvidenceItem, 0, total)
	for i, p := range pvr.Patents {
		id := "US" + p.PatentID
		data := map[string]any{
			"patent_number": id,
			"patent_type":   p.PatentType,
		}

		var assignees []string
		for _, a := range p.Assignees {
			if a.Organization != "" {
				assignees = append(assignees, a.Organization)
			}
		}
		data["assignees"] = assignees

		if granted, perr := time.Parse("2006-01-02", p.PatentDate); perr == nil {
			expiry := granted.AddDate(PatentTerm, 0, 0)
			data["grant_date"] = p.PatentDate
			data["expiry_date"] = expiry.Format("2006-01-02")
			if expiry.After(today) {
				data["status"] = PatentActive
			} else {
				data["status"] = PatentExpired
			}
		}

		items = append(items, types.EvidenceItem{
			SourceType:     types.SourcePatent,
			SourceID:       id,
			SourceURL:      "https://patents.google.com/patent/" + id,
			Title:          p.PatentTitle,
			Abstract:       p.PatentAbstract,
			RelevanceScore: types.Score(positionScore(i, total)),
			ExtractedData:  data,
		})
	}
	return items, nil
}

// buildPatentsViewQuery matches any query term in the title or abstract,
// and requires the molecule name when one is known.
func buildPatentsViewQuery(q Query) string {
	text := strings.TrimSpace(q.Text)
	var conditions []string
	if q.Molecule != "" {
		m := escapeJSON(q.Molecule)
		conditions = append(conditions,
			fmt.Sprintf(`{"_or":[{"_text_all":{"patent_title":"%s"}},{"_text_all":{"patent_abstract":"%s"}}]}`, m, m))
	}
	if text != "" {
		t := escapeJSON(text)
		conditions = append(conditions,
			fmt.Sprintf(`{"_or":[{"_text_any":{"patent_title":"%s"}},{"_text_any":{"patent_abstract":"%s"}}]}`, t, t))
	}

	switch len(conditions) {
	case 0:
		return ""
	case 1:
		return conditions[0]
	default:
		return fmt.Sprintf(`{"_and":[%s]}`, strings.Join(conditions, ","))
	}
}

// escapeJSON escapes a string for safe inclusion in a JSON string value.
func escapeJSON(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// PatentsView API JSON structures.
type patentsViewResponse struct {
	Patents []patentsViewPatent `json:"patents"`
	Count   int                 `json:"count"`
	Total   int                 `json:"total_hits"`
}

type patentsViewPatent struct {
	PatentID       string `json:"patent_id"`
	PatentTitle    string `json:"patent_title"`
	PatentAbstract string `json:"patent_abstract"`
	PatentDate     string `json:"patent_date"`
	PatentType     string `json:"patent_type"`
	Assignees      []struct {
		Organization string `json:"assignee_organization"`
	} `json:"assignees"`
}
