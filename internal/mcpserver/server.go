// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mcpserver exposes the analysis service and the forecasting
// models as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/internal/audit"
	"github.com/pdiddy/repurposing-engine/internal/predict"
	"github.com/pdiddy/repurposing-engine/internal/service"
)

// Tool names.
const (
	ToolAnalyzeQuery       = "analyze_query"
	ToolQueryStatus        = "get_query_status"
	ToolAuditTrail         = "get_audit_trail"
	ToolPredictSuccess     = "predict_repurposing_success"
	ToolForecastMarket     = "forecast_market"
	ToolPatentExpiryImpact = "patent_expiry_impact"
)

// Analyzer is the subset of *service.Service the tools call.
type Analyzer interface {
	Analyze(ctx context.Context, req service.Request) (service.Response, error)
	Status(ctx context.Context, auditID string) (audit.QueryStatus, error)
	Trail(ctx context.Context, auditID string) (audit.Trail, error)
}

// Handlers holds the collaborators behind the MCP tools.
type Handlers struct {
	analyzer  Analyzer
	predictor *predict.Predictor
	logger    *zap.Logger
	now       func() time.Time
}

// NewHandlers returns tool handlers backed by analyzer and predictor. A nil
// predictor uses the heuristic models.
func NewHandlers(analyzer Analyzer, predictor *predict.Predictor, logger *zap.Logger) *Handlers {
	if predictor == nil {
		predictor = &predict.Predictor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		analyzer:  analyzer,
		predictor: predictor,
		logger:    logger.Named("mcp"),
		now:       time.Now,
	}
}

// New returns an MCP server with every tool registered.
func New(h *Handlers, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "repurposing-engine",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolAnalyzeQuery,
		Description: "Run a drug repurposing analysis. Classifies the question, dispatches the literature, clinical, patent, regulatory, market, and internal workers it needs, and returns a synthesized answer with cited evidence, a confidence score, regulatory readiness, and patent risk. Every run is recorded in the audit trail under the returned audit_id.",
	}, h.AnalyzeQuery)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolQueryStatus,
		Description: "Return the status of an audited analysis: processing, completed, failed, or cancelled, with the agents that ran and the number of evidence sources recorded.",
	}, h.QueryStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolAuditTrail,
		Description: "Return the full governance record of an analysis: the query, every agent action, every cited evidence source, and the generated report versions.",
	}, h.AuditTrail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolPredictSuccess,
		Description: "Estimate the probability that repurposing a molecule for an indication succeeds, with key factors, risk factors, and a recommendation.",
	}, h.PredictSuccess)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolForecastMarket,
		Description: "Project market size year by year from the current size and CAGR, with volatility bounds.",
	}, h.ForecastMarket)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolPatentExpiryImpact,
		Description: "Model brand and generic revenue 1, 2, 3, and 5 years after a patent expires.",
	}, h.PatentExpiryImpact)

	return server
}

// Serve runs the server over stdio until ctx is done or the client
// disconnects.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
