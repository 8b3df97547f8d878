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

// clinicalTrialsBase is the ClinicalTrials.gov v2 studies endpoint.
var clinicalTrialsBase = "https://clinicaltrials.gov/api/v2/studies"

// ClinicalTrials queries the ClinicalTrials.gov registry.
type ClinicalTrials struct {
	Client *http.Client
}

// Name returns the source identifier.
func (s *ClinicalTrials) Name() string { return "clinicaltrials_gov" }

// Search returns registered studies whose condition matches the query.
// Items are scored by word overlap with the question text, since the
// registry does not rank by relevance.
func (s *ClinicalTrials) Search(ctx context.Context, q Query, cfg types.SourcesConfig) ([]types.EvidenceItem, error) {
	if q.IsEmpty() {
		return nil, fmt.Errorf("empty ClinicalTrials.gov query")
	}

	params := url.Values{
		"query.cond": {q.Terms()},
		"pageSize":   {strconv.Itoa(maxResults(cfg, 1000))},
		"format":     {"json"},
	}

	var r ctResponse
	err := httputil.GetJSON(ctx, client(s.Client, cfg), "ClinicalTrials.gov",
		clinicalTrialsBase+"?"+params.Encode(), baseHeader(cfg), cfg.MaxRetries, &r)
	if err != nil {
		return nil, err
	}

	items := make([]types.EvidenceItem, 0, len(r.Studies))
	for _, study := range r.Studies {
		p := study.Protocol
		nct := p.Identification.NCTID

		var interventions []string
		for _, iv := range p.ArmsInterventions.Interventions {
			interventions = append(interventions, iv.Name)
		}

		items = append(items, types.EvidenceItem{
			SourceType:     types.SourceTrial,
			SourceID:       nct,
			SourceURL:      "https://clinicaltrials.gov/study/" + nct,
			Title:          p.Identification.BriefTitle,
			Abstract:       p.Description.BriefSummary,
			RelevanceScore: types.Score(RelevanceScore(p.Identification.BriefTitle+" "+p.Description.BriefSummary, q.Text)),
			ExtractedData: map[string]any{
				"nct_id":        nct,
				"status":        p.Status.OverallStatus,
				"phase":         p.Design.Phases,
				"conditions":    p.Conditions.Conditions,
				"interventions": interventions,
			},
		})
	}
	return items, nil
}

// ClinicalTrials.gov v2 JSON structures.
type ctResponse struct {
	Studies       []ctStudy `json:"studies"`
	NextPageToken string    `json:"nextPageToken"`
}

type ctStudy struct {
	Protocol struct {
		Identification struct {
			NCTID      string `json:"nctId"`
			BriefTitle string `json:"briefTitle"`
		} `json:"identificationModule"`
		Status struct {
			OverallStatus string `json:"overallStatus"`
		} `json:"statusModule"`
		Description struct {
			BriefSummary string `json:"briefSummary"`
		} `json:"descriptionModule"`
		Design struct {
			Phases []string `json:"phases"`
		} `json:"designModule"`
		Conditions struct {
			Conditions []string `json:"conditions"`
		} `json:"conditionsModule"`
		ArmsInterventions struct {
			Interventions []struct {
				Type string `json:"type"`
				Name string `json:"name"`
			} `json:"interventions"`
		} `json:"armsInterventionsModule"`
	} `json:"protocolSection"`
}
