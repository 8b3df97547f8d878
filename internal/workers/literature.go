// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/internal/orchestrator"
	"github.com/pdiddy/repurposing-engine/internal/sources"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

var sourceDisplayNames = map[string]string{
	"pubmed":           "PubMed",
	"semantic_scholar": "Semantic Scholar",
	"europe_pmc":       "Europe PMC",
	"openalex":         "OpenAlex",
}

func displayName(source string) string {
	if n, ok := sourceDisplayNames[source]; ok {
		return n
	}
	return titleCase(strings.ReplaceAll(source, "_", " "))
}

// Literature searches the published literature across several indexes.
type Literature struct {
	Sources     []sources.Source
	Config      types.SourcesConfig
	MaxEvidence int
	Logger      *zap.Logger
}

// Name returns the worker name.
func (w *Literature) Name() string { return orchestrator.WorkerLiterature }

// Process searches all configured literature sources and summarizes the hits
// per source.
func (w *Literature) Process(ctx context.Context, query string, attrs map[string]any) (types.WorkerOutcome, error) {
	q := sources.Query{Text: query, Molecule: moleculeFor(query, attrs)}
	out, err := sources.SearchAll(ctx, q, w.Sources, w.Config, w.Logger)
	if err != nil {
		return types.WorkerOutcome{}, fmt.Errorf("literature search: %w", err)
	}

	var names []string
	for _, s := range w.Sources {
		names = append(names, s.Name())
	}

	meta := map[string]any{
		"totalResults": len(out.Evidence),
		"sources":      names,
	}
	if len(out.SourceErrors) > 0 {
		meta["sourceErrors"] = out.SourceErrors
	}

	return types.Succeeded(
		literatureSummary(out.Evidence, names, query),
		limit(out.Evidence, w.MaxEvidence),
		confidence(len(out.Evidence), 0.02),
		meta,
	), nil
}

func literatureSummary(evidence []types.EvidenceItem, sourceNames []string, query string) string {
	if len(evidence) == 0 {
		return "No literature found for query: " + query
	}

	display := make([]string, len(sourceNames))
	for i, n := range sourceNames {
		display[i] = displayName(n)
	}

	var b strings.Builder
	b.WriteString("## Literature Review\n\n")
	fmt.Fprintf(&b, "Found %d relevant publications across %s.\n\n", len(evidence), joinList(display))

	var order []string
	bySource := make(map[string][]types.EvidenceItem)
	for _, e := range evidence {
		src, _ := e.ExtractedData["source"].(string)
		if src == "" {
			src = e.SourceType
		}
		if _, ok := bySource[src]; !ok {
			order = append(order, src)
		}
		bySource[src] = append(bySource[src], e)
	}
	for _, src := range order {
		items := bySource[src]
		fmt.Fprintf(&b, "### %s\n", displayName(src))
		fmt.Fprintf(&b, "- Found %d relevant articles\n", len(items))
		fmt.Fprintf(&b, "- Top result: %s\n\n", items[0].Title)
	}
	return b.String()
}

// joinList renders "a", "a and b", or "a, b, and c".
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return "no sources"
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}
