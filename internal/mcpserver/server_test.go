// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/repurposing-engine/internal/audit"
	"github.com/pdiddy/repurposing-engine/internal/predict"
	"github.com/pdiddy/repurposing-engine/internal/service"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeAnalyzer struct {
	lastReq service.Request
	resp    service.Response
	err     error
	trails  map[string]audit.Trail
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req service.Request) (service.Response, error) {
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeAnalyzer) Status(_ context.Context, id string) (audit.QueryStatus, error) {
	tr, ok := f.trails[id]
	if !ok {
		return audit.QueryStatus{}, audit.ErrNotFound
	}
	return audit.QueryStatus{
		ID:            id,
		Status:        tr.Query.Status,
		CreatedAt:     tr.Query.CreatedAt,
		CompletedAt:   tr.Query.CompletedAt,
		AgentsUsed:    []string{"literature"},
		EvidenceCount: len(tr.Evidence),
	}, nil
}

func (f *fakeAnalyzer) Trail(_ context.Context, id string) (audit.Trail, error) {
	tr, ok := f.trails[id]
	if !ok {
		return audit.Trail{}, audit.ErrNotFound
	}
	return tr, nil
}

// setupServerClient connects a client to a server over in-memory
// transports.
func setupServerClient(t *testing.T, a Analyzer) *mcp.ClientSession {
	t.Helper()

	h := NewHandlers(a, nil, nil)
	h.now = func() time.Time { return t0 }
	server := New(h, "test")

	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any, out any) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, result.IsError, "%s returned an error: %v", name, result.Content)
	require.NotNil(t, result.StructuredContent)

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func requireToolError(t *testing.T, session *mcp.ClientSession, name string, args any) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return
	}
	assert.True(t, result.IsError, "%s should fail", name)
}

func TestListTools(t *testing.T) {
	session := setupServerClient(t, &fakeAnalyzer{})

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		ToolAnalyzeQuery,
		ToolForecastMarket,
		ToolAuditTrail,
		ToolQueryStatus,
		ToolPatentExpiryImpact,
		ToolPredictSuccess,
	}, names)
}

func TestAnalyzeQuery(t *testing.T) {
	readiness := 0.8
	a := &fakeAnalyzer{resp: service.Response{
		AuditID:        "audit-1",
		ConversationID: "conv-1",
		Result: types.Result{
			Response:            "## Summary",
			AgentsUsed:          []string{"literature", "patent"},
			ConfidenceScore:     0.7,
			RegulatoryReadiness: &readiness,
			PatentRisk:          types.PatentRiskHigh,
			Intent:              types.IntentDrugRepurposing,
			Evidence: []types.EvidenceItem{
				{SourceType: types.SourceLiterature, SourceID: "123", Title: "Metformin and cancer"},
			},
		},
	}}
	session := setupServerClient(t, a)

	var out AnalyzeOutput
	callTool(t, session, ToolAnalyzeQuery, map[string]any{
		"query":   "Can metformin be repurposed?",
		"user_id": "u-1",
		"context": map[string]any{"molecule": "metformin"},
	}, &out)

	assert.Equal(t, "audit-1", out.AuditID)
	assert.Equal(t, "drug_repurposing", out.Intent)
	assert.Equal(t, "high", out.PatentRisk)
	assert.Equal(t, []string{"literature", "patent"}, out.AgentsUsed)
	require.NotNil(t, out.RegulatoryReadiness)
	assert.InDelta(t, 0.8, *out.RegulatoryReadiness, 1e-9)
	require.Len(t, out.Evidence, 1)
	assert.Equal(t, "123", out.Evidence[0].SourceID)

	assert.Equal(t, "u-1", a.lastReq.UserID)
	assert.Equal(t, "metformin", a.lastReq.Context["molecule"])
}

func TestAnalyzeQuery_Errors(t *testing.T) {
	a := &fakeAnalyzer{err: errors.New("analysis audit-9: pipeline cancelled")}
	session := setupServerClient(t, a)

	requireToolError(t, session, ToolAnalyzeQuery, map[string]any{"query": "   "})
	requireToolError(t, session, ToolAnalyzeQuery, map[string]any{"query": "Can aspirin help?"})
}

func TestQueryStatusAndTrail(t *testing.T) {
	done := t0.Add(time.Minute)
	score := 0.7
	a := &fakeAnalyzer{trails: map[string]audit.Trail{
		"audit-1": {
			Query: audit.Query{
				ID:              "audit-1",
				UserID:          "u",
				QueryText:       "q",
				Status:          audit.StatusCompleted,
				CreatedAt:       t0,
				CompletedAt:     &done,
				ConfidenceScore: &score,
			},
			Actions:  []audit.Action{{ID: "a1", AgentName: "literature", Success: true}},
			Evidence: []audit.Evidence{{ID: "e1", AgentName: "literature"}},
		},
	}}
	session := setupServerClient(t, a)

	var st StatusOutput
	callTool(t, session, ToolQueryStatus, map[string]any{"audit_id": "audit-1"}, &st)
	assert.Equal(t, StatusOutput{
		AuditID:       "audit-1",
		Status:        "completed",
		CreatedAt:     "2026-03-01T12:00:00Z",
		CompletedAt:   "2026-03-01T12:01:00Z",
		AgentsUsed:    []string{"literature"},
		EvidenceCount: 1,
	}, st)

	var tr TrailOutput
	callTool(t, session, ToolAuditTrail, map[string]any{"audit_id": "audit-1"}, &tr)
	assert.Equal(t, "audit-1", tr.AuditID)
	query, ok := tr.Trail["query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", query["status"])
	actions, ok := tr.Trail["agent_actions"].([]any)
	require.True(t, ok)
	assert.Len(t, actions, 1)

	requireToolError(t, session, ToolQueryStatus, map[string]any{"audit_id": "missing"})
	requireToolError(t, session, ToolAuditTrail, map[string]any{"audit_id": "missing"})
}

func TestPredictionTools(t *testing.T) {
	session := setupServerClient(t, &fakeAnalyzer{})

	var p predict.SuccessPrediction
	callTool(t, session, ToolPredictSuccess, map[string]any{
		"molecule":             "metformin",
		"indication":           "oncology",
		"therapy_area":         "oncology",
		"market_size":          1000,
		"competition_level":    0.5,
		"patent_risk":          "low",
		"clinical_evidence":    0.7,
		"existing_indications": 1,
	}, &p)
	assert.Equal(t, "metformin", p.Molecule)
	assert.GreaterOrEqual(t, p.SuccessProbability, 0.0)
	assert.LessOrEqual(t, p.SuccessProbability, 1.0)
	assert.NotEmpty(t, p.Recommendation)

	var f predict.Forecast
	callTool(t, session, ToolForecastMarket, map[string]any{
		"molecule":            "metformin",
		"indication":          "oncology",
		"current_market_size": 1000,
		"cagr":                10,
		"years":               2,
		"volatility":          0.1,
	}, &f)
	require.Len(t, f.Years, 2)
	assert.Equal(t, 2027, f.Years[0].CalendarYear)
	assert.InDelta(t, 1100, f.Years[0].ForecastedSize, 1e-6)

	var e predict.ExpiryImpact
	callTool(t, session, ToolPatentExpiryImpact, map[string]any{
		"molecule":            "metformin",
		"expiry_date":         "2028-03-01",
		"current_market_size": 1000,
	}, &e)
	assert.Len(t, e.Scenarios, 4)
	assert.NotEmpty(t, e.Recommendation)

	requireToolError(t, session, ToolPatentExpiryImpact, map[string]any{
		"molecule":            "metformin",
		"expiry_date":         "soon",
		"current_market_size": 1000,
	})
}
