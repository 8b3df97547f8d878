// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/repurposing-engine/internal/orchestrator"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// Competition levels.
const (
	CompetitionLow    = "low"
	CompetitionMedium = "medium"
	CompetitionHigh   = "high"
)

// MarketProfile is the heuristic market estimate for a molecule.
type MarketProfile struct {
	SizeUSDMillions float64 `json:"size_usd_mn" yaml:"size_usd_mn"`
	CAGR            float64 `json:"cagr" yaml:"cagr"`
	Competition     string  `json:"competition" yaml:"competition"`
}

// Competitors returns the competitor count implied by the competition level.
func (p MarketProfile) Competitors() int {
	switch p.Competition {
	case CompetitionHigh:
		return 5
	case CompetitionLow:
		return 1
	}
	return 3
}

// MarketOpportunity is a scored market opening.
type MarketOpportunity struct {
	Type        string  `json:"type" yaml:"type"`
	Description string  `json:"description" yaml:"description"`
	Score       float64 `json:"score" yaml:"score"`
}

// marketTable holds the curated estimates; other molecules get
// defaultMarket.
var marketTable = map[string]MarketProfile{
	"pembrolizumab": {SizeUSDMillions: 20000, CAGR: 15.5, Competition: CompetitionHigh},
	"sitagliptin":   {SizeUSDMillions: 5000, CAGR: -2.3, Competition: CompetitionMedium},
	"metformin":     {SizeUSDMillions: 3000, CAGR: 5.2, Competition: CompetitionLow},
}

var defaultMarket = MarketProfile{SizeUSDMillions: 1000, CAGR: 3.0, Competition: CompetitionMedium}

const marketConfidence = 0.7

// Market estimates market size, growth, and competition from a curated
// heuristic table. It makes no network calls.
type Market struct{}

// Name returns the worker name.
func (w *Market) Name() string { return orchestrator.WorkerMarket }

// Process profiles the detected molecule's market.
func (w *Market) Process(ctx context.Context, query string, attrs map[string]any) (types.WorkerOutcome, error) {
	if err := ctx.Err(); err != nil {
		return types.WorkerOutcome{}, err
	}
	molecule := moleculeFor(query, attrs)
	profile := ProfileMarket(molecule)
	opps := MarketOpportunities(profile)

	var evidence []types.EvidenceItem
	if molecule != "" {
		evidence = append(evidence, types.EvidenceItem{
			SourceType: types.SourceMarket,
			SourceID:   "MARKET-" + molecule,
			Title:      "Market Analysis for " + molecule,
			ExtractedData: map[string]any{
				"size_usd_mn": profile.SizeUSDMillions,
				"cagr":        profile.CAGR,
			},
		})
	}

	meta := map[string]any{
		"marketSize": map[string]any{
			"size_usd_mn": profile.SizeUSDMillions,
			"cagr":        profile.CAGR,
		},
		"competitionLevel": profile.Competition,
		"competitorCount":  profile.Competitors(),
		"opportunities":    len(opps),
	}
	return types.Succeeded(marketSummary(profile, opps), evidence, marketConfidence, meta), nil
}

// ProfileMarket looks up the molecule. Without a molecule the market size
// and growth are zero.
func ProfileMarket(molecule string) MarketProfile {
	if molecule == "" {
		return MarketProfile{Competition: CompetitionMedium}
	}
	if p, ok := marketTable[strings.ToLower(molecule)]; ok {
		return p
	}
	return defaultMarket
}

// MarketOpportunities flags high-growth (CAGR above 10%) and
// low-competition markets.
func MarketOpportunities(p MarketProfile) []MarketOpportunity {
	var opps []MarketOpportunity
	if p.CAGR > 10 {
		opps = append(opps, MarketOpportunity{
			Type:        "high_growth",
			Description: fmt.Sprintf("High growth market (CAGR: %s%%)", strconv.FormatFloat(p.CAGR, 'f', -1, 64)),
			Score:       0.8,
		})
	}
	if p.Competition == CompetitionLow {
		opps = append(opps, MarketOpportunity{
			Type:        "low_competition",
			Description: "Low competition market - good entry opportunity",
			Score:       0.9,
		})
	}
	return opps
}

func marketSummary(p MarketProfile, opps []MarketOpportunity) string {
	var b strings.Builder
	b.WriteString("## Market Analysis\n\n")
	b.WriteString("### Market Size\n")
	fmt.Fprintf(&b, "- Market Size: $%sM\n", thousands(int64(p.SizeUSDMillions+0.5)))
	fmt.Fprintf(&b, "- CAGR: %.1f%%\n", p.CAGR)
	b.WriteString("\n### Competition\n")
	fmt.Fprintf(&b, "- Competition Level: %s\n", titleCase(p.Competition))
	fmt.Fprintf(&b, "- Competitors: %d\n", p.Competitors())
	if len(opps) > 0 {
		b.WriteString("\n### Opportunities\n")
		for _, o := range opps {
			fmt.Fprintf(&b, "- %s (Score: %.1f)\n", o.Description, o.Score)
		}
	}
	return b.String()
}
