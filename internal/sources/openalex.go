// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/repurposing-engine/internal/httputil"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlex queries the OpenAlex Works API.
type OpenAlex struct {
	Client *http.Client
	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// Name returns the source identifier.
func (s *OpenAlex) Name() string { return "openalex" }

// Search returns works matching the query. OpenAlex sorts by relevance when
// a search term is given.
func (s *OpenAlex) Search(ctx context.Context, q Query, cfg types.SourcesConfig) ([]types.EvidenceItem, error) {
	if q.IsEmpty() {
		return nil, fmt.Errorf("empty OpenAlex query")
	}

	params := url.Values{
		"search":   {q.Terms()},
		"per_page": {strconv.Itoa(maxResults(cfg, 200))},
		"page":     {"1"},
	}
	if s.Email != "" {
		params.Set("mailto", s.Email)
	}

	var oar openAlexResponse
	err := httputil.GetJSON(ctx, client(s.Client, cfg), "OpenAlex",
		openAlexSearchBase+"?"+params.Encode(), baseHeader(cfg), cfg.MaxRetries, &oar)
	if err != nil {
		return nil, err
	}

	total := len(oar.Results)
	items := make([]types.EvidenceItem, 0, total)
	for i, work := range oar.Results {
		data := map[string]any{
			"year":   work.PublicationYear,
			"is_oa":  work.OpenAccess.IsOA,
			"source": "openalex",
		}
		var authors []string
		for _, a := range work.Authorships {
			if a.Author.DisplayName != "" {
				authors = append(authors, a.Author.DisplayName)
			}
		}
		data["authors"] = authors

		link := work.ID
		if work.DOI != "" {
			data["doi"] = strings.TrimPrefix(work.DOI, "https://doi.org/")
			link = work.DOI
		}

		items = append(items, types.EvidenceItem{
			SourceType:     types.SourceLiterature,
			SourceID:       strings.TrimPrefix(work.ID, "https://openalex.org/"),
			SourceURL:      link,
			Title:          work.Title,
			Abstract:       reconstructAbstract(work.AbstractInvertedIndex),
			RelevanceScore: types.Score(positionScore(i, total)),
			ExtractedData:  data,
		})
	}
	return items, nil
}

// reconstructAbstract rebuilds plain text from OpenAlex's
// abstract_inverted_index, which maps each word to its positions.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range index {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            struct {
		IsOA bool `json:"is_oa"`
	} `json:"open_access"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}
