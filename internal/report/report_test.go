// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

var fixedTime = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func sampleResult() types.Result {
	return types.Result{
		Response:            "## Drug Repurposing Analysis",
		AgentsUsed:          []string{"literature", "patent"},
		ConfidenceScore:     0.7,
		RegulatoryReadiness: types.Score(0.9),
		PatentRisk:          types.PatentRiskHigh,
		Evidence: []types.EvidenceItem{
			{SourceType: types.SourcePatent, SourceID: "US1234567", Title: "Biguanide use"},
		},
	}
}

// fakeStore records saved versions in memory.
type fakeStore struct {
	mu       sync.Mutex
	versions map[int]any
	types    map[int]string
	reportID string
	saveErr  error
}

func (f *fakeStore) SaveReportVersion(_ context.Context, _ string, version int, reportType string, content any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.versions == nil {
		f.versions = map[int]any{}
		f.types = map[int]string{}
	}
	f.versions[version] = content
	f.types[version] = reportType
	return nil
}

func (f *fakeStore) SetReportID(_ context.Context, _, reportID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportID = reportID
	return nil
}

func TestRender_Executive(t *testing.T) {
	g := &Generator{Now: func() time.Time { return fixedTime }}
	reports := g.Render(sampleResult())
	require.Len(t, reports, 3)

	var got []Type
	for _, r := range reports {
		got = append(got, r.Type)
	}
	assert.Equal(t, Types, got)

	exec := reports[0]
	assert.Equal(t, "Executive Summary", exec.Title)
	assert.Equal(t, 1, exec.Version)
	assert.Equal(t, fixedTime, exec.GeneratedAt)
	require.Len(t, exec.Sections, 2)
	assert.Equal(t, "Overview", exec.Sections[0].Title)
	assert.Equal(t, "## Drug Repurposing Analysis", exec.Sections[0].Content)

	metrics, ok := exec.Sections[1].Content.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.7, metrics["confidence_score"])
	assert.Equal(t, "high", metrics["patent_risk"])
	assert.Equal(t, []string{"literature", "patent"}, metrics["agents_used"])
}

func TestRender_Defaults(t *testing.T) {
	g := &Generator{}
	reports := g.Render(types.Result{})

	exec := reports[0]
	assert.Equal(t, DefaultOverview, exec.Sections[0].Content)
	metrics := exec.Sections[1].Content.(map[string]any)
	assert.Equal(t, []string{}, metrics["agents_used"])
	assert.Equal(t, DefaultPatentRisk, metrics["patent_risk"])

	detail := reports[1]
	assert.Equal(t, "Detailed Analysis Report", detail.Title)
	assert.Equal(t, []types.EvidenceItem{}, detail.Sections[1].Content)
	assert.Equal(t, "See audit trail for detailed agent actions", detail.Sections[2].Content)

	reg := reports[2]
	assert.Equal(t, "Regulatory Readiness Report", reg.Title)
	assert.Equal(t, DefaultReadiness, reg.Sections[0].Content)
	assert.Equal(t, DefaultPatentRisk, reg.Sections[1].Content)
	assert.Contains(t, reg.Sections[2].Content, "consult regulatory experts")
}

func TestRender_RegulatoryUsesResultScore(t *testing.T) {
	reports := (&Generator{}).Render(sampleResult())
	reg := reports[2]
	assert.Equal(t, 0.9, reg.Sections[0].Content)
	assert.Equal(t, "high", reg.Sections[1].Content)
}

func TestRender_ExecutiveJSONHasNullReadiness(t *testing.T) {
	reports := (&Generator{}).Render(types.Result{Response: "x"})
	data, err := json.Marshal(reports[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"regulatory_readiness":null`)
}

func TestSave(t *testing.T) {
	store := &fakeStore{}
	g := &Generator{Store: store, Now: func() time.Time { return fixedTime }}

	id, err := g.Save(context.Background(), "audit-1", sampleResult())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, store.reportID)
	assert.Equal(t, map[int]string{1: "executive", 2: "detailed", 3: "regulatory"}, store.types)
}

func TestSave_Errors(t *testing.T) {
	_, err := (&Generator{}).Save(context.Background(), "a", types.Result{})
	assert.Error(t, err)

	store := &fakeStore{saveErr: errors.New("disk full")}
	_, err = (&Generator{Store: store}).Save(context.Background(), "a", types.Result{})
	assert.ErrorContains(t, err, "saving executive report: disk full")
	assert.Empty(t, store.reportID)
}

// saverFunc adapts a function to Saver.
type saverFunc func(ctx context.Context, auditID string, res types.Result) (string, error)

func (f saverFunc) Save(ctx context.Context, auditID string, res types.Result) (string, error) {
	return f(ctx, auditID, res)
}

func TestQueue_RunsJobsInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	var (
		mu   sync.Mutex
		seen []string
	)
	saver := saverFunc(func(_ context.Context, auditID string, _ types.Result) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, auditID)
		return "r-" + auditID, nil
	})

	var outcomes []Outcome
	q := NewQueue(saver, 2, WithOnDone(func(o Outcome) { outcomes = append(outcomes, o) }))
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, q.Enqueue(context.Background(), id, types.Result{}))
	}
	require.NoError(t, q.Close(context.Background()))

	assert.Equal(t, []string{"a", "b", "c", "d"}, seen)
	require.Len(t, outcomes, 4)
	assert.Equal(t, Outcome{AuditID: "d", ReportID: "r-d"}, outcomes[3])
}

func TestQueue_JobOutlivesCallerContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	var jobErr error
	saver := saverFunc(func(ctx context.Context, _ string, _ types.Result) (string, error) {
		<-release
		jobErr = ctx.Err()
		return "r", nil
	})

	q := NewQueue(saver, 1)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Enqueue(ctx, "a", types.Result{}))
	cancel()
	close(release)
	require.NoError(t, q.Close(context.Background()))

	assert.NoError(t, jobErr, "caller cancellation must not reach the job")
}

func TestQueue_FailuresAndPanics(t *testing.T) {
	defer goleak.VerifyNone(t)

	saver := saverFunc(func(_ context.Context, auditID string, _ types.Result) (string, error) {
		if auditID == "panic" {
			panic("boom")
		}
		return "", errors.New("store offline")
	})

	var outcomes []Outcome
	q := NewQueue(saver, 4, WithOnDone(func(o Outcome) { outcomes = append(outcomes, o) }))
	require.NoError(t, q.Enqueue(context.Background(), "fail", types.Result{}))
	require.NoError(t, q.Enqueue(context.Background(), "panic", types.Result{}))
	require.NoError(t, q.Close(context.Background()))

	require.Len(t, outcomes, 2)
	assert.EqualError(t, outcomes[0].Err, "store offline")
	assert.Error(t, outcomes[1].Err)
}

func TestQueue_EnqueueAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewQueue(saverFunc(func(context.Context, string, types.Result) (string, error) { return "", nil }), 0)
	require.NoError(t, q.Close(context.Background()))
	require.NoError(t, q.Close(context.Background()), "Close is idempotent")

	err := q.Enqueue(context.Background(), "a", types.Result{})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_EnqueueRespectsContextWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	saver := saverFunc(func(context.Context, string, types.Result) (string, error) {
		started <- struct{}{}
		<-release
		return "", nil
	})
	q := NewQueue(saver, 0)

	require.NoError(t, q.Enqueue(context.Background(), "busy", types.Result{}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, "blocked", types.Result{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, q.Close(context.Background()))
}

func TestQueue_JobTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	var jobErr error
	saver := saverFunc(func(ctx context.Context, _ string, _ types.Result) (string, error) {
		<-ctx.Done()
		jobErr = ctx.Err()
		return "", ctx.Err()
	})
	q := NewQueue(saver, 1, WithJobTimeout(10*time.Millisecond))
	require.NoError(t, q.Enqueue(context.Background(), "slow", types.Result{}))
	require.NoError(t, q.Close(context.Background()))
	assert.ErrorIs(t, jobErr, context.DeadlineExceeded)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"yaml": FormatYAML, "YML": FormatYAML, "": FormatYAML, "json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	reports := (&Generator{Now: func() time.Time { return fixedTime }}).Render(sampleResult())

	path, err := WriteFile(dir, "audit-1", FormatJSON, reports)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "audit-1.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "Regulatory Readiness Report", decoded[2]["title"])

	path, err = WriteFile(dir, "audit-1", FormatYAML, reports)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "- title: Executive Summary"), string(data))
}

func TestToCSLItem(t *testing.T) {
	tests := []struct {
		name string
		in   types.EvidenceItem
		want CSLItem
	}{
		{
			name: "patent",
			in: types.EvidenceItem{
				SourceType: types.SourcePatent,
				SourceID:   "US7654321",
				Title:      "Method for treating cancer",
				ExtractedData: map[string]any{
					"assignees":  []string{"Bayer AG"},
					"grant_date": "2010-03-14",
				},
			},
			want: CSLItem{
				ID: "US7654321", Type: "patent", Title: "Method for treating cancer",
				Author:    []CSLName{{Literal: "Bayer AG"}},
				Issued:    &CSLDate{DateParts: [][]int{{2010, 3, 14}}},
				Number:    "US7654321",
				Authority: usptoAuthority,
			},
		},
		{
			name: "patent detected by number",
			in:   types.EvidenceItem{SourceType: types.SourceInternal, SourceID: "US20230012345A1", Title: "Application"},
			want: CSLItem{ID: "US20230012345A1", Type: "patent", Title: "Application", Number: "US20230012345A1", Authority: usptoAuthority},
		},
		{
			name: "pubmed article",
			in: types.EvidenceItem{
				SourceType: types.SourceLiterature,
				SourceID:   "PMID:123",
				SourceURL:  "https://pubmed.ncbi.nlm.nih.gov/123/",
				Title:      "Metformin and cancer",
				ExtractedData: map[string]any{
					"pmid": "123", "journal": "Lancet", "pubdate": "2020 Mar 15",
					"authors": []any{"Smith JA", "Jane Doe"}, "doi": "10.1/xyz",
				},
			},
			want: CSLItem{
				ID: "PMID:123", Type: "article-journal", Title: "Metformin and cancer",
				Author:         []CSLName{{Family: "Smith", Given: "JA"}, {Given: "Jane", Family: "Doe"}},
				ContainerTitle: "Lancet",
				Issued:         &CSLDate{DateParts: [][]int{{2020, 3, 15}}},
				DOI:            "10.1/xyz",
				PMID:           "123",
				URL:            "https://pubmed.ncbi.nlm.nih.gov/123/",
			},
		},
		{
			name: "europe pmc article",
			in: types.EvidenceItem{
				SourceType:    types.SourceLiterature,
				SourceID:      "MED:99",
				Title:         "Aspirin",
				ExtractedData: map[string]any{"authors": "Lee K, Park S.", "year": "2018", "journal": "BMJ"},
			},
			want: CSLItem{
				ID: "MED:99", Type: "article-journal", Title: "Aspirin",
				Author:         []CSLName{{Family: "Lee", Given: "K"}, {Family: "Park", Given: "S"}},
				ContainerTitle: "BMJ",
				Issued:         &CSLDate{DateParts: [][]int{{2018}}},
			},
		},
		{
			name: "trial",
			in: types.EvidenceItem{
				SourceType:    types.SourceTrial,
				SourceID:      "NCT01",
				Title:         "Trial",
				ExtractedData: map[string]any{"nct_id": "NCT01"},
			},
			want: CSLItem{ID: "NCT01", Type: "report", Title: "Trial", Number: "NCT01", Publisher: "ClinicalTrials.gov"},
		},
		{
			name: "regulatory label",
			in: types.EvidenceItem{
				SourceType:    types.SourceRegulatory,
				SourceID:      "FDA-LABEL-1",
				Title:         "FDA label: metformin",
				ExtractedData: map[string]any{"agency": "FDA", "effective_time": "20230101"},
			},
			want: CSLItem{
				ID: "FDA-LABEL-1", Type: "report", Title: "FDA label: metformin", Publisher: "FDA",
				Issued: &CSLDate{DateParts: [][]int{{2023, 1, 1}}},
			},
		},
		{
			name: "market",
			in:   types.EvidenceItem{SourceType: types.SourceMarket, SourceID: "MARKET-metformin", Title: "Market"},
			want: CSLItem{ID: "MARKET-metformin", Type: "document", Title: "Market"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ToCSLItem(tt.in)); diff != "" {
				t.Errorf("ToCSLItem mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("n.d."))
	assert.Equal(t, [][]int{{2021}}, parseDate("2021 Spring").DateParts)
	assert.Equal(t, [][]int{{2021, 4}}, parseDate("2021 Apr").DateParts)
	assert.Equal(t, [][]int{{2019}}, yearOnly(2019).DateParts)
	assert.Equal(t, [][]int{{2019}}, yearOnly(float64(2019)).DateParts)
	assert.Nil(t, yearOnly(0))
}

func TestWriteBibliography(t *testing.T) {
	var buf bytes.Buffer
	err := WriteBibliography(&buf, sampleResult().Evidence)
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "patent", items[0]["type"])
	assert.Equal(t, "US1234567", items[0]["number"])
	assert.Equal(t, usptoAuthority, items[0]["authority"])
}
