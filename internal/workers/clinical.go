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

// Opportunity is a candidate new indication found in a registered trial.
type Opportunity struct {
	Molecule   string   `json:"molecule" yaml:"molecule"`
	Indication string   `json:"indication" yaml:"indication"`
	TrialID    string   `json:"trial_id" yaml:"trial_id"`
	Phases     []string `json:"phases,omitempty" yaml:"phases,omitempty"`
}

// Clinical analyzes registered clinical trials.
type Clinical struct {
	Source      sources.Source
	Config      types.SourcesConfig
	MaxEvidence int
	Logger      *zap.Logger
}

// Name returns the worker name.
func (w *Clinical) Name() string { return orchestrator.WorkerClinical }

// Process searches the trial registry and lists the distinct conditions
// under study as repurposing opportunities for the detected molecule.
func (w *Clinical) Process(ctx context.Context, query string, attrs map[string]any) (types.WorkerOutcome, error) {
	molecule := moleculeFor(query, attrs)
	out, err := sources.SearchAll(ctx, sources.Query{Text: query, Molecule: molecule},
		[]sources.Source{w.Source}, w.Config, w.Logger)
	if err != nil {
		return types.WorkerOutcome{}, fmt.Errorf("clinical trial search: %w", err)
	}

	trials := limit(out.Evidence, w.MaxEvidence)
	opps := repurposingOpportunities(molecule, trials)

	indications := make([]string, len(opps))
	for i, o := range opps {
		indications[i] = o.Indication
	}

	meta := map[string]any{
		"totalTrials":              len(trials),
		"repurposingOpportunities": len(opps),
		"indications":              indications,
		"source":                   "clinicaltrials.gov",
	}
	if len(out.SourceErrors) > 0 {
		meta["sourceErrors"] = out.SourceErrors
	}

	return types.Succeeded(clinicalSummary(trials, opps, query), trials, confidence(len(trials), 0.03), meta), nil
}

// repurposingOpportunities returns one opportunity per distinct condition
// (case-insensitive), in trial order. Without a molecule there are none.
func repurposingOpportunities(molecule string, trials []types.EvidenceItem) []Opportunity {
	if molecule == "" {
		return nil
	}
	seen := make(map[string]bool)
	var opps []Opportunity
	for _, t := range trials {
		for _, cond := range stringSlice(t.ExtractedData["conditions"]) {
			key := strings.ToLower(strings.TrimSpace(cond))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			opps = append(opps, Opportunity{
				Molecule:   molecule,
				Indication: cond,
				TrialID:    t.SourceID,
				Phases:     stringSlice(t.ExtractedData["phase"]),
			})
		}
	}
	return opps
}

func clinicalSummary(trials []types.EvidenceItem, opps []Opportunity, query string) string {
	var b strings.Builder
	b.WriteString("## Clinical Trial Analysis\n\n")
	if len(trials) == 0 {
		fmt.Fprintf(&b, "No clinical trials found for query: %s\n", query)
		return b.String()
	}
	fmt.Fprintf(&b, "Found %d relevant clinical trials.\n\n", len(trials))

	var phases []string
	byPhase := make(map[string]int)
	for _, t := range trials {
		for _, p := range stringSlice(t.ExtractedData["phase"]) {
			if _, ok := byPhase[p]; !ok {
				phases = append(phases, p)
			}
			byPhase[p]++
		}
	}
	if len(phases) > 0 {
		b.WriteString("### Trials by Phase\n")
		for _, p := range phases {
			fmt.Fprintf(&b, "- %s: %d trials\n", phaseLabel(p), byPhase[p])
		}
		b.WriteString("\n")
	}

	if len(opps) > 0 {
		b.WriteString("### Repurposing Opportunities\n")
		fmt.Fprintf(&b, "Found %d potential new indications:\n", len(opps))
		for _, o := range opps[:min(5, len(opps))] {
			fmt.Fprintf(&b, "- %s for %s (Trial: %s)\n", o.Molecule, o.Indication, o.TrialID)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// phaseLabel renders registry phase codes: PHASE2 -> "Phase 2",
// EARLY_PHASE1 -> "Early Phase 1", NA -> "Phase N/A".
func phaseLabel(code string) string {
	switch {
	case code == "NA":
		return "Phase N/A"
	case strings.HasPrefix(code, "EARLY_PHASE"):
		return "Early Phase " + strings.TrimPrefix(code, "EARLY_PHASE")
	case strings.HasPrefix(code, "PHASE"):
		return "Phase " + strings.TrimPrefix(code, "PHASE")
	}
	return "Phase " + code
}
