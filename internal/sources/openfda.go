// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/repurposing-engine/internal/httputil"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// openFDALabelBase is the openFDA drug label endpoint.
var openFDALabelBase = "https://api.fda.gov/drug/label.json"

// OpenFDA looks up approved drug labels. It needs a molecule name; a query
// without one returns no items.
type OpenFDA struct {
	Client *http.Client
}

// Name returns the source identifier.
func (s *OpenFDA) Name() string { return "openfda" }

// Search returns the labels whose generic name matches the molecule.
func (s *OpenFDA) Search(ctx context.Context, q Query, cfg types.SourcesConfig) ([]types.EvidenceItem, error) {
	if q.Molecule == "" {
		return nil, nil
	}

	params := url.Values{
		"search": {fmt.Sprintf(`openfda.generic_name:"%s"`, q.Molecule)},
		"limit":  {strconv.Itoa(maxResults(cfg, 100))},
	}

	var r openFDAResponse
	err := httputil.GetJSON(ctx, client(s.Client, cfg), "openFDA",
		openFDALabelBase+"?"+params.Encode(), baseHeader(cfg), cfg.MaxRetries, &r)
	var se *httputil.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		// openFDA answers 404 when nothing matches.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items := make([]types.EvidenceItem, 0, len(r.Results))
	for i, label := range r.Results {
		brand := first(label.OpenFDA.BrandName)
		title := "FDA label: " + q.Molecule
		if brand != "" {
			title += " (" + brand + ")"
		}
		indications := strings.Join(label.IndicationsAndUsage, " ")

		items = append(items, types.EvidenceItem{
			SourceType:     types.SourceRegulatory,
			SourceID:       "FDA-LABEL-" + label.SetID,
			SourceURL:      "https://dailymed.nlm.nih.gov/dailymed/lookup.cfm?setid=" + label.SetID,
			Title:          title,
			Abstract:       indications,
			RelevanceScore: types.Score(positionScore(i, len(r.Results))),
			ExtractedData: map[string]any{
				"agency":         "FDA",
				"document_type":  "label",
				"application":    first(label.OpenFDA.ApplicationNumber),
				"manufacturer":   first(label.OpenFDA.ManufacturerName),
				"effective_time": label.EffectiveTime,
			},
		})
	}
	return items, nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

// openFDA JSON structures.
type openFDAResponse struct {
	Results []openFDALabel `json:"results"`
}

type openFDALabel struct {
	SetID               string   `json:"set_id"`
	EffectiveTime       string   `json:"effective_time"`
	IndicationsAndUsage []string `json:"indications_and_usage"`
	OpenFDA             struct {
		BrandName         []string `json:"brand_name"`
		ApplicationNumber []string `json:"application_number"`
		ManufacturerName  []string `json:"manufacturer_name"`
	} `json:"openfda"`
}
