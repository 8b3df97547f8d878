// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"strings"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// intentRule pairs an intent with the keywords that select it.
type intentRule struct {
	intent   types.Intent
	keywords []string
}

// intentRules are evaluated in order; the first rule with a matching keyword
// wins. A query mentioning both "repurpose" and "patent" is a repurposing
// question.
var intentRules = []intentRule{
	{types.IntentDrugRepurposing, []string{"repurpose", "repurposing", "new indication"}},
	{types.IntentPatentAnalysis, []string{"patent", "ip", "freedom to operate"}},
	{types.IntentRegulatoryAnalysis, []string{"regulatory", "fda", "ema", "approval"}},
	{types.IntentMarketAnalysis, []string{"market", "opportunity", "whitespace"}},
}

// Classify maps query text to an intent. Keywords match as substrings of
// the lower-cased query, so "ip" also matches inside longer words.
// Unmatched text yields IntentComprehensive.
func Classify(query string) types.Intent {
	q := strings.ToLower(query)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				return rule.intent
			}
		}
	}
	return types.IntentComprehensive
}
