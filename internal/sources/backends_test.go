// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/repurposing-engine/internal/httputil"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

// serve starts an httptest server and points *base at it for the duration
// of the test.
func serve(t *testing.T, base *string, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	old := *base
	*base = ts.URL
	t.Cleanup(func() {
		*base = old
		ts.Close()
	})
}

func testConfig() types.SourcesConfig {
	return types.SourcesConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "repurposing-engine/test", MaxRetries: 1},
		MaxResults: 10,
	}
}

func TestPubMed_Search(t *testing.T) {
	serve(t, &pubMedBase, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "repurposing-engine/test", r.Header.Get("User-Agent"))
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		switch {
		case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
			assert.Equal(t, "metformin cancer", r.URL.Query().Get("term"))
			assert.Equal(t, "10", r.URL.Query().Get("retmax"))
			fmt.Fprint(w, `{"esearchresult":{"count":"2","idlist":["111","222"]}}`)
		case strings.HasSuffix(r.URL.Path, "/esummary.fcgi"):
			assert.Equal(t, "111,222", r.URL.Query().Get("id"))
			fmt.Fprint(w, `{"result":{"uids":["111","222"],
				"111":{"uid":"111","title":"Metformin in oncology","pubdate":"2021 Mar","fulljournalname":"Oncology",
					"authors":[{"name":"Smith J"}],"articleids":[{"idtype":"doi","value":"10.1/m"}]},
				"222":{"uid":"222","title":"Second","pubdate":"2020","fulljournalname":"J","authors":[],"articleids":[]}}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	src := &PubMed{APIKey: "key"}
	items, err := src.Search(context.Background(), Query{Text: "cancer", Molecule: "metformin"}, testConfig())
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, types.SourceLiterature, first.SourceType)
	assert.Equal(t, "PMID:111", first.SourceID)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/111/", first.SourceURL)
	assert.Equal(t, "Metformin in oncology", first.Title)
	assert.Equal(t, "10.1/m", first.ExtractedData["doi"])
	assert.Equal(t, "111", first.ExtractedData["pmid"])
	assert.Equal(t, 1.0, *first.RelevanceScore)
	assert.InDelta(t, 0.1, *items[1].RelevanceScore, 1e-9)
}

func TestPubMed_NoHits(t *testing.T) {
	calls := 0
	serve(t, &pubMedBase, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, `{"esearchresult":{"count":"0","idlist":[]}}`)
	})
	items, err := (&PubMed{}).Search(context.Background(), Query{Text: "nothing"}, testConfig())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, calls, "esummary is skipped when esearch finds nothing")
}

func TestSemanticScholar_Search(t *testing.T) {
	serve(t, &semanticAPIBase, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "s2key", r.Header.Get("x-api-key"))
		assert.Equal(t, "sitagliptin heart failure", r.URL.Query().Get("query"))
		fmt.Fprint(w, `{"total":1,"data":[{"paperId":"abc","title":"DPP-4 and HF","abstract":"text",
			"year":2019,"venue":"NEJM","citationCount":12,"authors":[{"name":"Lee"}],
			"externalIds":{"DOI":"10.2/x","PubMed":"999"}}]}`)
	})

	items, err := (&SemanticScholar{APIKey: "s2key"}).Search(context.Background(),
		Query{Text: "heart failure", Molecule: "sitagliptin"}, testConfig())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "S2:abc", items[0].SourceID)
	assert.Equal(t, "text", items[0].Abstract)
	assert.Equal(t, "999", items[0].ExtractedData["pmid"])
	assert.Equal(t, "semantic_scholar", items[0].ExtractedData["source"])
}

func TestSemanticScholar_HTTPError(t *testing.T) {
	serve(t, &semanticAPIBase, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := (&SemanticScholar{}).Search(context.Background(), Query{Text: "x"}, testConfig())
	assert.EqualError(t, err, "Semantic Scholar API returned HTTP 403")
}

func TestEuropePMC_Search(t *testing.T) {
	serve(t, &europePMCBase, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		fmt.Fprint(w, `{"hitCount":1,"resultList":{"result":[{"id":"123","source":"MED","pmid":"123",
			"title":"Statins in sepsis","authorString":"A, B.","journalTitle":"Crit Care","pubYear":"2018",
			"abstractText":"abstract"}]}}`)
	})

	items, err := (&EuropePMC{}).Search(context.Background(), Query{Text: "statins sepsis"}, testConfig())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "MED:123", items[0].SourceID)
	assert.Equal(t, "https://europepmc.org/article/MED/123", items[0].SourceURL)
	assert.Equal(t, "123", items[0].ExtractedData["pmid"])
	assert.NotContains(t, items[0].ExtractedData, "doi")
}

func TestOpenAlex_Search(t *testing.T) {
	serve(t, &openAlexSearchBase, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "me@example.org", r.URL.Query().Get("mailto"))
		fmt.Fprint(w, `{"results":[{"id":"https://openalex.org/W1","title":"Aspirin","doi":"https://doi.org/10.3/a",
			"publication_year":2022,"authorships":[{"author":{"display_name":"Kim"}}],
			"abstract_inverted_index":{"prevents":[1],"Aspirin":[0],"cancer":[2]},"open_access":{"is_oa":true}}]}`)
	})

	items, err := (&OpenAlex{Email: "me@example.org"}).Search(context.Background(), Query{Text: "aspirin"}, testConfig())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "W1", items[0].SourceID)
	assert.Equal(t, "https://doi.org/10.3/a", items[0].SourceURL)
	assert.Equal(t, "10.3/a", items[0].ExtractedData["doi"])
	assert.Equal(t, "Aspirin prevents cancer", items[0].Abstract)
}

func TestReconstructAbstract(t *testing.T) {
	assert.Equal(t, "", reconstructAbstract(nil))
	idx := map[string][]int{"the": {0, 2}, "cat": {1}, "mat": {3}}
	assert.Equal(t, "the cat the mat", reconstructAbstract(idx))
}

func TestClinicalTrials_Search(t *testing.T) {
	serve(t, &clinicalTrialsBase, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "metformin cancer prevention", r.URL.Query().Get("query.cond"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		fmt.Fprint(w, `{"studies":[{"protocolSection":{
			"identificationModule":{"nctId":"NCT0001","briefTitle":"Metformin for cancer prevention"},
			"statusModule":{"overallStatus":"RECRUITING"},
			"descriptionModule":{"briefSummary":"A phase 2 study"},
			"designModule":{"phases":["PHASE2"]},
			"conditionsModule":{"conditions":["Breast Cancer","Obesity"]},
			"armsInterventionsModule":{"interventions":[{"type":"DRUG","name":"Metformin"}]}}}]}`)
	})

	items, err := (&ClinicalTrials{}).Search(context.Background(),
		Query{Text: "cancer prevention", Molecule: "metformin"}, testConfig())
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, types.SourceTrial, it.SourceType)
	assert.Equal(t, "NCT0001", it.SourceID)
	assert.Equal(t, "https://clinicaltrials.gov/study/NCT0001", it.SourceURL)
	assert.Equal(t, "RECRUITING", it.ExtractedData["status"])
	assert.Equal(t, []string{"PHASE2"}, it.ExtractedData["phase"])
	assert.Equal(t, []string{"Breast Cancer", "Obesity"}, it.ExtractedData["conditions"])
	assert.Equal(t, []string{"Metformin"}, it.ExtractedData["interventions"])
	assert.Equal(t, 1.0, *it.RelevanceScore)
}

func TestPatentsView_Search(t *testing.T) {
	oldNow := now
	now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = oldNow })

	serve(t, &patentsViewSearchBase, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pvkey", r.Header.Get("X-Api-Key"))
		assert.Contains(t, r.URL.Query().Get("q"), `"patent_title":"rivaroxaban"`)
		fmt.Fprint(w, `{"count":2,"total_hits":2,"patents":[
			{"patent_id":"7157456","patent_title":"Substituted oxazolidinones","patent_date":"2007-01-02",
			 "patent_type":"utility","assignees":[{"assignee_organization":"Bayer"}]},
			{"patent_id":"5000001","patent_title":"Old compound","patent_date":"1991-03-19","patent_type":"utility"}]}`)
	})

	items, err := (&PatentsView{APIKey: "pvkey"}).Search(context.Background(),
		Query{Text: "anticoagulant", Molecule: "rivaroxaban"}, testConfig())
	require.NoError(t, err)
	require.Len(t, items, 2)

	active := items[0]
	assert.Equal(t, types.SourcePatent, active.SourceType)
	assert.Equal(t, "US7157456", active.SourceID)
	assert.Equal(t, PatentActive, active.ExtractedData["status"])
	assert.Equal(t, "2027-01-02", active.ExtractedData["expiry_date"])
	assert.Equal(t, []string{"Bayer"}, active.ExtractedData["assignees"])

	assert.Equal(t, PatentExpired, items[1].ExtractedData["status"])
}

func TestBuildPatentsViewQuery(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want string
	}{
		{
			name: "text only",
			q:    Query{Text: "heart failure"},
			want: `{"_or":[{"_text_any":{"patent_title":"heart failure"}},{"_text_any":{"patent_abstract":"heart failure"}}]}`,
		},
		{
			name: "molecule and text",
			q:    Query{Text: "sepsis", Molecule: "atorvastatin"},
			want: `{"_and":[{"_or":[{"_text_all":{"patent_title":"atorvastatin"}},{"_text_all":{"patent_abstract":"atorvastatin"}}]},{"_or":[{"_text_any":{"patent_title":"sepsis"}},{"_text_any":{"patent_abstract":"sepsis"}}]}]}`,
		},
		{
			name: "quotes escaped",
			q:    Query{Text: `say "hi"`},
			want: `{"_or":[{"_text_any":{"patent_title":"say \"hi\""}},{"_text_any":{"patent_abstract":"say \"hi\""}}]}`,
		},
		{name: "empty", q: Query{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildPatentsViewQuery(tt.q))
		})
	}
}

func TestOpenFDA_Search(t *testing.T) {
	serve(t, &openFDALabelBase, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `openfda.generic_name:"metformin"`, r.URL.Query().Get("search"))
		fmt.Fprint(w, `{"results":[{"set_id":"abc-123","effective_time":"20230101",
			"indications_and_usage":["Type 2 diabetes mellitus."],
			"openfda":{"brand_name":["Glucophage"],"application_number":["NDA020357"],"manufacturer_name":["BMS"]}}]}`)
	})

	items, err := (&OpenFDA{}).Search(context.Background(), Query{Text: "x", Molecule: "metformin"}, testConfig())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.SourceRegulatory, items[0].SourceType)
	assert.Equal(t, "FDA-LABEL-abc-123", items[0].SourceID)
	assert.Equal(t, "FDA label: metformin (Glucophage)", items[0].Title)
	assert.Equal(t, "FDA", items[0].ExtractedData["agency"])
	assert.Equal(t, "NDA020357", items[0].ExtractedData["application"])
}

func TestOpenFDA_NotFoundIsEmpty(t *testing.T) {
	serve(t, &openFDALabelBase, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	items, err := (&OpenFDA{}).Search(context.Background(), Query{Molecule: "unknownium"}, testConfig())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOpenFDA_NoMoleculeSkipsRequest(t *testing.T) {
	serve(t, &openFDALabelBase, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})
	items, err := (&OpenFDA{}).Search(context.Background(), Query{Text: "regulatory pathway"}, testConfig())
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestArxiv_Search(t *testing.T) {
	serve(t, &arxivBase, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "(all:metformin AND all:glioma) AND cat:q-bio*", r.URL.Query().Get("search_query"))
		assert.Equal(t, "10", r.URL.Query().Get("max_results"))
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <published>2023-01-17T18:00:00Z</published>
    <title>Metformin and
      glioma growth</title>
    <summary> Modeling study. </summary>
    <author><name>Ada Lovelace</name></author>
    <arxiv:doi>10.1000/xyz</arxiv:doi>
  </entry>
  <entry>
    <id>not-an-arxiv-url</id>
    <title>Skipped</title>
  </entry>
</feed>`)
	})

	items, err := (&Arxiv{}).Search(context.Background(), Query{Text: "glioma?", Molecule: "metformin"}, testConfig())
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.Equal(t, "arXiv:2301.07041", got.SourceID)
	assert.Equal(t, "https://arxiv.org/abs/2301.07041", got.SourceURL)
	assert.Equal(t, "Metformin and glioma growth", got.Title)
	assert.Equal(t, "Modeling study.", got.Abstract)
	assert.Equal(t, "10.1000/xyz", got.ExtractedData["doi"])
	assert.Equal(t, 2023, got.ExtractedData["year"])
	assert.Equal(t, []string{"Ada Lovelace"}, got.ExtractedData["authors"])
}

func TestArxivID(t *testing.T) {
	assert.Equal(t, "2301.07041", arxivID("http://arxiv.org/abs/2301.07041v1"))
	assert.Equal(t, "q-bio/0601001", arxivID("http://arxiv.org/abs/q-bio/0601001v1"))
	assert.Equal(t, "", arxivID("http://example.com/x"))
}
