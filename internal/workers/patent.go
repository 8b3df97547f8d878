// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/internal/orchestrator"
	"github.com/pdiddy/repurposing-engine/internal/sources"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// ExpiryHorizon is how far ahead an active patent's expiry counts as
// expiring soon.
const ExpiryHorizon = 5 * 365 * 24 * time.Hour

// Landscape summarizes the patents found for a query.
type Landscape struct {
	Total        int
	Active       int
	ExpiringSoon bool
}

// Patent maps the patent landscape around a molecule.
type Patent struct {
	Source      sources.Source
	Config      types.SourcesConfig
	MaxEvidence int
	Logger      *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Name returns the worker name.
func (w *Patent) Name() string { return orchestrator.WorkerPatent }

// Process searches granted patents and reports how many are still in force
// and whether any of those expire within five years.
func (w *Patent) Process(ctx context.Context, query string, attrs map[string]any) (types.WorkerOutcome, error) {
	q := sources.Query{Text: query, Molecule: moleculeFor(query, attrs)}
	out, err := sources.SearchAll(ctx, q, []sources.Source{w.Source}, w.Config, w.Logger)
	if err != nil {
		return types.WorkerOutcome{}, fmt.Errorf("patent search: %w", err)
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	patents := limit(out.Evidence, w.MaxEvidence)
	land := AnalyzeLandscape(patents, now())

	meta := map[string]any{
		orchestrator.MetaActivePatents: land.Active,
		orchestrator.MetaExpiringSoon:  land.ExpiringSoon,
		"totalPatents":                 land.Total,
		"sources":                      []string{w.Source.Name()},
	}
	if len(out.SourceErrors) > 0 {
		meta["sourceErrors"] = out.SourceErrors
	}

	return types.Succeeded(patentSummary(patents, land, query), patents, confidence(len(patents), 0.03), meta), nil
}

// AnalyzeLandscape counts active patents and flags those whose expiry date
// falls within ExpiryHorizon of now.
func AnalyzeLandscape(patents []types.EvidenceItem, now time.Time) Landscape {
	land := Landscape{Total: len(patents)}
	horizon := now.Add(ExpiryHorizon)
	for _, p := range patents {
		if status, _ := p.ExtractedData["status"].(string); status != sources.PatentActive {
			continue
		}
		land.Active++
		expiry, _ := p.ExtractedData["expiry_date"].(string)
		if t, err := time.Parse("2006-01-02", expiry); err == nil && !t.After(horizon) {
			land.ExpiringSoon = true
		}
	}
	return land
}

func patentSummary(patents []types.EvidenceItem, land Landscape, query string) string {
	var b strings.Builder
	b.WriteString("## Patent Landscape Analysis\n\n")
	if len(patents) == 0 {
		fmt.Fprintf(&b, "No patents found for query: %s\n", query)
		return b.String()
	}
	fmt.Fprintf(&b, "Found %d relevant patents.\n\n", len(patents))
	b.WriteString("### Patent Status\n")
	fmt.Fprintf(&b, "- Active Patents: %d\n", land.Active)
	fmt.Fprintf(&b, "- Total Patents: %d\n", land.Total)
	if land.ExpiringSoon {
		b.WriteString("- Some patents expiring soon - potential opportunity\n")
	}
	b.WriteString("\n### Key Patents\n")
	for _, p := range patents[:min(5, len(patents))] {
		fmt.Fprintf(&b, "- %s (%s)\n", p.Title, p.SourceID)
	}
	return b.String()
}
