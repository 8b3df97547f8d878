// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/internal/predict"
	"github.com/pdiddy/repurposing-engine/internal/service"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// AnalyzeInput is the input of analyze_query.
type AnalyzeInput struct {
	Query          string         `json:"query" jsonschema:"the research question, e.g. Can metformin be repurposed for oncology?"`
	UserID         string         `json:"user_id,omitempty" jsonschema:"caller identity recorded in the audit trail"`
	ConversationID string         `json:"conversation_id,omitempty" jsonschema:"optional conversation to group queries under"`
	Context        map[string]any `json:"context,omitempty" jsonschema:"optional attributes passed to every worker, such as molecule"`
}

// AnalyzeOutput is the result of analyze_query.
type AnalyzeOutput struct {
	AuditID             string               `json:"audit_id"`
	ConversationID      string               `json:"conversation_id,omitempty"`
	Intent              string               `json:"intent"`
	Response            string               `json:"response"`
	AgentsUsed          []string             `json:"agents_used"`
	ConfidenceScore     float64              `json:"confidence_score"`
	RegulatoryReadiness *float64             `json:"regulatory_readiness,omitempty"`
	PatentRisk          string               `json:"patent_risk"`
	Evidence            []types.EvidenceItem `json:"evidence"`
}

// AuditIDInput names one audited analysis.
type AuditIDInput struct {
	AuditID string `json:"audit_id" jsonschema:"audit id returned by analyze_query"`
}

// StatusOutput is the result of get_query_status.
type StatusOutput struct {
	AuditID       string   `json:"audit_id"`
	Status        string   `json:"status"`
	CreatedAt     string   `json:"created_at"`
	CompletedAt   string   `json:"completed_at,omitempty"`
	AgentsUsed    []string `json:"agents_used"`
	EvidenceCount int      `json:"evidence_count"`
}

// TrailOutput is the result of get_audit_trail.
type TrailOutput struct {
	AuditID string         `json:"audit_id"`
	Trail   map[string]any `json:"trail"`
}

// AnalyzeQuery runs one analysis through the service.
func (h *Handlers) AnalyzeQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, AnalyzeOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, AnalyzeOutput{}, fmt.Errorf("query is required")
	}

	resp, err := h.analyzer.Analyze(ctx, service.Request{
		Query:          input.Query,
		UserID:         input.UserID,
		ConversationID: input.ConversationID,
		Context:        input.Context,
	})
	if err != nil {
		h.logger.Warn("analyze_query failed", zap.String("audit_id", resp.AuditID), zap.Error(err))
		return nil, AnalyzeOutput{}, err
	}

	evidence := resp.Evidence
	if evidence == nil {
		evidence = []types.EvidenceItem{}
	}
	return nil, AnalyzeOutput{
		AuditID:             resp.AuditID,
		ConversationID:      resp.ConversationID,
		Intent:              string(resp.Intent),
		Response:            resp.Response,
		AgentsUsed:          nonNil(resp.AgentsUsed),
		ConfidenceScore:     resp.ConfidenceScore,
		RegulatoryReadiness: resp.RegulatoryReadiness,
		PatentRisk:          string(resp.PatentRisk),
		Evidence:            evidence,
	}, nil
}

// QueryStatus reports the progress of an audited analysis.
func (h *Handlers) QueryStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AuditIDInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	st, err := h.analyzer.Status(ctx, input.AuditID)
	if err != nil {
		return nil, StatusOutput{}, lookupError(input.AuditID, err)
	}
	out := StatusOutput{
		AuditID:       st.ID,
		Status:        string(st.Status),
		CreatedAt:     st.CreatedAt.Format(time.RFC3339),
		AgentsUsed:    nonNil(st.AgentsUsed),
		EvidenceCount: st.EvidenceCount,
	}
	if st.CompletedAt != nil {
		out.CompletedAt = st.CompletedAt.Format(time.RFC3339)
	}
	return nil, out, nil
}

// AuditTrail returns the full governance record of an analysis.
func (h *Handlers) AuditTrail(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AuditIDInput,
) (*mcp.CallToolResult, TrailOutput, error) {
	trail, err := h.analyzer.Trail(ctx, input.AuditID)
	if err != nil {
		return nil, TrailOutput{}, lookupError(input.AuditID, err)
	}
	// Round-trip through JSON so the trail keeps its wire field names.
	raw, err := json.Marshal(trail)
	if err != nil {
		return nil, TrailOutput{}, fmt.Errorf("encoding trail: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, TrailOutput{}, fmt.Errorf("encoding trail: %w", err)
	}
	return nil, TrailOutput{AuditID: input.AuditID, Trail: m}, nil
}

// PredictSuccess estimates repurposing success.
func (h *Handlers) PredictSuccess(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input predict.SuccessRequest,
) (*mcp.CallToolResult, predict.SuccessPrediction, error) {
	p, err := h.predictor.RepurposingSuccess(ctx, input)
	if err != nil {
		return nil, predict.SuccessPrediction{}, err
	}
	return nil, p, nil
}

// ForecastMarket projects market size.
func (h *Handlers) ForecastMarket(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input predict.ForecastRequest,
) (*mcp.CallToolResult, predict.Forecast, error) {
	f, err := predict.MarketForecast(input, h.now())
	if err != nil {
		return nil, predict.Forecast{}, err
	}
	return nil, f, nil
}

// PatentExpiryImpact models revenue after patent expiry.
func (h *Handlers) PatentExpiryImpact(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input predict.ExpiryRequest,
) (*mcp.CallToolResult, predict.ExpiryImpact, error) {
	impact, err := predict.PatentExpiryImpact(input, h.now())
	if err != nil {
		return nil, predict.ExpiryImpact{}, err
	}
	return nil, impact, nil
}

func lookupError(id string, err error) error {
	if service.IsNotFound(err) {
		return fmt.Errorf("audit id %q not found", id)
	}
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
