// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders structured reports from analysis results, stores
// them as numbered versions, and exports them and their cited evidence.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// Type names a report rendering.
type Type string

const (
	TypeExecutive  Type = "executive"
	TypeDetailed   Type = "detailed"
	TypeRegulatory Type = "regulatory"
)

// Types lists the report types in version order.
var Types = []Type{TypeExecutive, TypeDetailed, TypeRegulatory}

// Defaults used when a result omits a value.
const (
	DefaultReadiness      = 0.5
	DefaultPatentRisk     = "unknown"
	DefaultOverview       = "Analysis completed."
	agentActionsNote      = "See audit trail for detailed agent actions"
	regulatoryRecommended = "Based on the analysis, consult regulatory experts for approval pathway."
)

// Section is one titled block of a report. Content is a string, a number,
// a map of metrics, or a list of evidence.
type Section struct {
	Title   string `json:"title" yaml:"title"`
	Content any    `json:"content" yaml:"content"`
}

// Report is one rendered report version.
type Report struct {
	Title       string    `json:"title" yaml:"title"`
	Type        Type      `json:"type" yaml:"type"`
	Version     int       `json:"version" yaml:"version"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Sections    []Section `json:"sections" yaml:"sections"`
}

// Store persists report versions against an audit record.
type Store interface {
	SaveReportVersion(ctx context.Context, auditID string, version int, reportType string, content any) error
	SetReportID(ctx context.Context, auditID, reportID string) error
}

// Generator renders the three report versions for a result.
type Generator struct {
	// Store receives rendered versions in Save. It may be nil when only
	// Render is used.
	Store Store

	// Now is the clock used for generated_at; nil means time.Now.
	Now func() time.Time
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}

// Render builds the executive, detailed, and regulatory reports, numbered
// 1 through 3.
func (g *Generator) Render(res types.Result) []Report {
	at := g.now()
	reports := []Report{
		executive(res),
		detailed(res),
		regulatory(res),
	}
	for i := range reports {
		reports[i].Version = i + 1
		reports[i].GeneratedAt = at
	}
	return reports
}

// Save renders the reports for res, stores each version under auditID, and
// attaches a new report id to the audit record. The report id is returned.
func (g *Generator) Save(ctx context.Context, auditID string, res types.Result) (string, error) {
	if g.Store == nil {
		return "", fmt.Errorf("report store not configured")
	}
	for _, r := range g.Render(res) {
		if err := g.Store.SaveReportVersion(ctx, auditID, r.Version, string(r.Type), r); err != nil {
			return "", fmt.Errorf("saving %s report: %w", r.Type, err)
		}
	}
	reportID := uuid.NewString()
	if err := g.Store.SetReportID(ctx, auditID, reportID); err != nil {
		return "", fmt.Errorf("attaching report id: %w", err)
	}
	return reportID, nil
}

func executive(res types.Result) Report {
	overview := res.Response
	if overview == "" {
		overview = DefaultOverview
	}
	agents := res.AgentsUsed
	if agents == nil {
		agents = []string{}
	}
	return Report{
		Title: "Executive Summary",
		Type:  TypeExecutive,
		Sections: []Section{
			{Title: "Overview", Content: overview},
			{Title: "Key Metrics", Content: map[string]any{
				"confidence_score":     res.ConfidenceScore,
				"regulatory_readiness": res.RegulatoryReadiness,
				"patent_risk":          patentRisk(res),
				"agents_used":          agents,
			}},
		},
	}
}

func detailed(res types.Result) Report {
	evidence := res.Evidence
	if evidence == nil {
		evidence = []types.EvidenceItem{}
	}
	return Report{
		Title: "Detailed Analysis Report",
		Type:  TypeDetailed,
		Sections: []Section{
			{Title: "Full Response", Content: res.Response},
			{Title: "Evidence Sources", Content: evidence},
			{Title: "Agent Actions", Content: agentActionsNote},
		},
	}
}

func regulatory(res types.Result) Report {
	readiness := DefaultReadiness
	if res.RegulatoryReadiness != nil {
		readiness = *res.RegulatoryReadiness
	}
	return Report{
		Title: "Regulatory Readiness Report",
		Type:  TypeRegulatory,
		Sections: []Section{
			{Title: "Regulatory Readiness Score", Content: readiness},
			{Title: "Patent Risk Assessment", Content: patentRisk(res)},
			{Title: "Recommendations", Content: regulatoryRecommended},
		},
	}
}

func patentRisk(res types.Result) string {
	if res.PatentRisk == "" {
		return DefaultPatentRisk
	}
	return string(res.PatentRisk)
}
